package embedding

import (
	"context"
	"fmt"
	"sync"

	internal "github.com/egordm/TextSummarization/textsum"

	"github.com/rs/zerolog"
)

// Lookup answers whether a pretrained vector exists for a token and returns it.
// Vector must only be called for tokens where HasVector reports true.
type Lookup interface {
	HasVector(token string) bool
	Vector(token string) []float32
	Dimensions() int
}

// CacheReleaser is implemented by lookups that hold vectors in memory and
// can drop them once the caller no longer needs them.
type CacheReleaser interface {
	ReleaseCache()
}

// Release drops the lookup's in-memory vectors if it supports it.
func Release(l Lookup) {
	if r, ok := l.(CacheReleaser); ok {
		r.ReleaseCache()
	}
}

// ProviderLookup exposes a Provider as a Lookup over a known token set.
// HasVector embeds the token on first use and caches the result until
// ReleaseCache. A token the provider fails to embed has no vector.
type ProviderLookup struct {
	provider Provider
	known    map[string]struct{}
	logger   zerolog.Logger

	mu     sync.Mutex
	cache  map[string][]float32
	failed map[string]struct{}
}

// ProviderLookupOption configures a ProviderLookup.
type ProviderLookupOption func(*ProviderLookup)

// WithLookupLogger sets the logger that reports embedding failures.
func WithLookupLogger(logger zerolog.Logger) ProviderLookupOption {
	return func(pl *ProviderLookup) { pl.logger = logger }
}

// NewProviderLookup wraps provider. A nil known set accepts every token.
func NewProviderLookup(provider Provider, known []string, opts ...ProviderLookupOption) *ProviderLookup {
	pl := &ProviderLookup{
		provider: provider,
		logger:   internal.GetLogger(),
		cache:    make(map[string][]float32),
		failed:   make(map[string]struct{}),
	}
	if known != nil {
		pl.known = make(map[string]struct{}, len(known))
		for _, tok := range known {
			pl.known[tok] = struct{}{}
		}
	}
	for _, opt := range opts {
		opt(pl)
	}
	return pl
}

func (pl *ProviderLookup) Dimensions() int { return pl.provider.Dimensions() }

func (pl *ProviderLookup) HasVector(token string) bool {
	if token == "" {
		return false
	}
	if pl.known != nil {
		if _, ok := pl.known[token]; !ok {
			return false
		}
	}
	_, ok := pl.embed(token)
	return ok
}

// Vector returns nil for a token without a vector.
func (pl *ProviderLookup) Vector(token string) []float32 {
	vec, _ := pl.embed(token)
	return vec
}

func (pl *ProviderLookup) embed(token string) ([]float32, bool) {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	if vec, ok := pl.cache[token]; ok {
		return vec, true
	}
	if _, ok := pl.failed[token]; ok {
		return nil, false
	}

	dims := pl.provider.Dimensions()
	out, err := pl.provider.Embed(context.Background(), []string{token})
	if err == nil && (len(out) != 1 || len(out[0]) != dims) {
		err = fmt.Errorf("%w: want one %d-wide vector", ErrDimensionMismatch, dims)
	}
	if err != nil {
		pl.logger.Warn().Err(err).Str("token", token).Msg("Embedding failed, token will be treated as unknown")
		pl.failed[token] = struct{}{}
		return nil, false
	}
	pl.cache[token] = out[0]
	return out[0], true
}

// CachedVectors reports how many vectors are currently held in memory.
func (pl *ProviderLookup) CachedVectors() int {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	return len(pl.cache)
}

// ReleaseCache drops cached vectors and remembered failures.
func (pl *ProviderLookup) ReleaseCache() {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	pl.cache = make(map[string][]float32)
	pl.failed = make(map[string]struct{})
}
