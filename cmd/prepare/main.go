// Command prepare builds (or reloads) the batcher state for a pair of
// sentence files and reports the shape of the first batch.
package main

import (
	"bufio"
	"fmt"
	"os"

	internal "github.com/egordm/TextSummarization/textsum"
	"github.com/egordm/TextSummarization/textsum/batcher"
	"github.com/egordm/TextSummarization/textsum/config"
	"github.com/egordm/TextSummarization/textsum/dataset"
	"github.com/egordm/TextSummarization/textsum/embedding"
	"github.com/egordm/TextSummarization/textsum/store"
	"github.com/egordm/TextSummarization/textsum/text"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
)

func main() {
	configPath := pflag.StringP("config", "c", "", "path to config file")
	inputsPath := pflag.String("inputs", "", "file with one input sentence per line")
	targetsPath := pflag.String("targets", "", "file with one target sentence per line")
	lowercase := pflag.Bool("lowercase", true, "lowercase and strip accents before splitting")
	pflag.Parse()

	logger := internal.GetLogger()
	if err := run(logger, *configPath, *inputsPath, *targetsPath, *lowercase); err != nil {
		logger.Fatal().Err(err).Msg("prepare failed")
	}
}

func run(logger zerolog.Logger, configPath, inputsPath, targetsPath string, lowercase bool) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}

	splitter := text.NewBertSplitter(lowercase)
	inputs, err := readSentences(splitter, inputsPath)
	if err != nil {
		return fmt.Errorf("inputs: %w", err)
	}
	targets, err := readSentences(splitter, targetsPath)
	if err != nil {
		return fmt.Errorf("targets: %w", err)
	}

	st, err := store.Open(cfg.Store.Backend, cfg.Batcher.DataDir, cfg.Store.DSN, store.WithLogger(logger))
	if err != nil {
		return err
	}
	defer st.Close()

	opts := []batcher.Option{
		batcher.WithBatchSize(cfg.Batcher.BatchSize),
		batcher.WithStore(st),
		batcher.WithLookupSource(func() (embedding.Lookup, error) {
			return openLookup(logger, cfg.Embedding, text.Counts(inputs, targets))
		}),
		batcher.WithReleaseLookup(),
		batcher.WithSeed(uint64(cfg.Embedding.Seed)),
		batcher.WithLogger(logger),
		batcher.WithFilterConfig(dataset.FilterConfig{
			MaxLength:          cfg.Filter.MaxLength,
			MinLength:          cfg.Filter.MinLength,
			MaxUnknownInInput:  cfg.Filter.MaxUnknownInInput,
			MaxUnknownInTarget: cfg.Filter.MaxUnknownInTarget,
		}),
	}
	if cfg.Batcher.ReportPaddedLengths {
		opts = append(opts, batcher.WithPaddedLengths())
	}

	b, err := batcher.New(inputs, targets, opts...)
	if err != nil {
		return err
	}

	batch, err := b.Next()
	if err != nil {
		return err
	}
	logger.Info().
		Str("build", b.BuildID().String()).
		Int("pairs", b.Len()).
		Int("vocabulary", b.Vocabulary().Size()).
		Int("embeddingDims", b.Embeddings().Dims()).
		Int("batchSize", batch.Size()).
		Int("inputWidth", batch.InputWidth()).
		Int("targetWidth", batch.TargetWidth()).
		Msg("batcher ready")
	return nil
}

func openLookup(logger zerolog.Logger, cfg config.EmbeddingConfig, counts map[string]int) (embedding.Lookup, error) {
	switch cfg.Provider {
	case "text":
		if cfg.Path == "" {
			return nil, fmt.Errorf("embedding.path is required for the text provider")
		}
		return embedding.LoadTextVectors(cfg.Path, embedding.WithVocabularyFilter(counts))
	default:
		provider, err := embedding.NewProvider(cfg.Provider, cfg.Dims)
		if err != nil {
			return nil, err
		}
		known := make([]string, 0, len(counts))
		for tok := range counts {
			known = append(known, tok)
		}
		return embedding.NewProviderLookup(provider, known, embedding.WithLookupLogger(logger)), nil
	}
}

func readSentences(s text.Splitter, path string) ([][]string, error) {
	if path == "" {
		return nil, fmt.Errorf("no file given")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return text.SplitAll(s, lines)
}
