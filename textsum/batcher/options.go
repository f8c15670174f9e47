package batcher

import (
	internal "github.com/egordm/TextSummarization/textsum"
	"github.com/egordm/TextSummarization/textsum/dataset"
	"github.com/egordm/TextSummarization/textsum/embedding"
	"github.com/egordm/TextSummarization/textsum/store"
	"github.com/egordm/TextSummarization/textsum/text"
	"github.com/egordm/TextSummarization/textsum/vocab"

	"github.com/rs/zerolog"
)

// TokenCounter turns tokenized corpora into token occurrence counts.
type TokenCounter func(corpora ...[][]string) map[string]int

// LookupSource opens the pretrained vectors. It is only called when the
// state has to be rebuilt.
type LookupSource func() (embedding.Lookup, error)

type options struct {
	batchSize     int
	store         store.Store
	lookup        LookupSource
	releaseLookup bool
	filter        dataset.FilterConfig
	counter       TokenCounter
	seed          uint64
	paddedLengths bool
	logger        zerolog.Logger
}

func defaultOptions() options {
	return options{
		batchSize: internal.DefaultBatchSize,
		filter:    dataset.DefaultFilterConfig(),
		counter:   text.Counts,
		seed:      vocab.DefaultSeed,
		logger:    internal.GetLogger(),
	}
}

// Option configures a Batcher.
type Option func(*options)

// WithBatchSize sets the size used by Next.
func WithBatchSize(size int) Option {
	return func(o *options) { o.batchSize = size }
}

// WithStore loads state from s when possible and persists rebuilt state to it.
func WithStore(s store.Store) Option {
	return func(o *options) { o.store = s }
}

// WithLookup sets the pretrained vectors used when the state has to be rebuilt.
func WithLookup(l embedding.Lookup) Option {
	return func(o *options) {
		o.lookup = func() (embedding.Lookup, error) { return l, nil }
	}
}

// WithLookupSource defers opening the pretrained vectors until a rebuild
// needs them, so a successful load never pays for them.
func WithLookupSource(src LookupSource) Option {
	return func(o *options) { o.lookup = src }
}

// WithReleaseLookup releases the lookup's cache once the vocabulary is built.
func WithReleaseLookup() Option {
	return func(o *options) { o.releaseLookup = true }
}

// WithFilterConfig overrides the pair retention thresholds.
func WithFilterConfig(cfg dataset.FilterConfig) Option {
	return func(o *options) { o.filter = cfg }
}

// WithTokenCounter replaces the default whitespace-token counter.
func WithTokenCounter(c TokenCounter) Option {
	return func(o *options) { o.counter = c }
}

// WithSeed seeds the reserved-token placeholder vectors.
func WithSeed(seed uint64) Option {
	return func(o *options) { o.seed = seed }
}

// WithPaddedLengths reports the padded row width as every row's length
// instead of the row's real length.
func WithPaddedLengths() Option {
	return func(o *options) { o.paddedLengths = true }
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) { o.logger = logger }
}
