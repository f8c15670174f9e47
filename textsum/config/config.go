package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	internal "github.com/egordm/TextSummarization/textsum"

	"github.com/spf13/viper"
)

// Config stores all configuration of the application.
// The values are read by viper from a config file or environment variables.
type Config struct {
	Batcher   BatcherConfig   `mapstructure:"batcher"`
	Filter    FilterConfig    `mapstructure:"filter"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Store     StoreConfig     `mapstructure:"store"`
}

// BatcherConfig stores batch cursor settings.
type BatcherConfig struct {
	BatchSize           int    `mapstructure:"batchSize"`
	DataDir             string `mapstructure:"dataDir"`
	ReportPaddedLengths bool   `mapstructure:"reportPaddedLengths"`
}

// FilterConfig stores the pair retention thresholds.
type FilterConfig struct {
	MaxLength          int `mapstructure:"maxLength"`
	MinLength          int `mapstructure:"minLength"`
	MaxUnknownInInput  int `mapstructure:"maxUnknownInInput"`
	MaxUnknownInTarget int `mapstructure:"maxUnknownInTarget"`
}

// EmbeddingConfig selects the pretrained vector source.
type EmbeddingConfig struct {
	Provider string `mapstructure:"provider"`
	Path     string `mapstructure:"path"`
	Dims     int    `mapstructure:"dims"`
	Seed     int64  `mapstructure:"seed"`
}

// StoreConfig stores persistence backend details.
type StoreConfig struct {
	Backend string `mapstructure:"backend"`
	DSN     string `mapstructure:"dsn"`
}

var AppConfig Config

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("..")
		v.AddConfigPath(filepath.Join("etc", internal.DefaultAppName))
		v.AddConfigPath(internal.DefaultConfigPath)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetDefault("batcher.batchSize", internal.DefaultBatchSize)
	v.SetDefault("batcher.dataDir", internal.DefaultDataDir)
	v.SetDefault("batcher.reportPaddedLengths", false)

	v.SetDefault("filter.maxLength", 600)
	v.SetDefault("filter.minLength", 16)
	v.SetDefault("filter.maxUnknownInInput", 5)
	v.SetDefault("filter.maxUnknownInTarget", 2)

	v.SetDefault("embedding.provider", "text")
	v.SetDefault("embedding.path", "")
	v.SetDefault("embedding.dims", internal.DefaultEmbeddingDims)
	v.SetDefault("embedding.seed", internal.DefaultEmbeddingSeed)

	v.SetDefault("store.backend", internal.DefaultStoreBackend)
	v.SetDefault("store.dsn", internal.DefaultStoreDSN)

	v.AutomaticEnv()                                   // Read in environment variables that match
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_")) // filter.minLength becomes FILTER_MINLENGTH

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found; defaults will be used.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	AppConfig = cfg
	return &AppConfig, nil
}

// Validate rejects settings the batcher cannot run with.
func (c *Config) Validate() error {
	if c.Batcher.BatchSize <= 0 {
		return fmt.Errorf("batcher.batchSize must be positive, got %d", c.Batcher.BatchSize)
	}
	if c.Filter.MinLength < 0 || c.Filter.MaxLength < c.Filter.MinLength {
		return fmt.Errorf("filter length bounds are invalid: min=%d max=%d", c.Filter.MinLength, c.Filter.MaxLength)
	}
	if c.Filter.MaxUnknownInInput < 0 || c.Filter.MaxUnknownInTarget < 0 {
		return fmt.Errorf("filter unknown-token limits must not be negative")
	}
	switch c.Store.Backend {
	case "file", "libsql":
	default:
		return fmt.Errorf("unsupported store backend %q", c.Store.Backend)
	}
	return nil
}
