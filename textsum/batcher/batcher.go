// Package batcher serves fixed-size padded batches of filtered sequence
// pairs from a repeating cursor.
package batcher

import (
	"errors"
	"fmt"

	"github.com/egordm/TextSummarization/textsum/dataset"
	"github.com/egordm/TextSummarization/textsum/embedding"
	"github.com/egordm/TextSummarization/textsum/store"
	"github.com/egordm/TextSummarization/textsum/vocab"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	ErrEmptyDataset     = errors.New("no sequence pairs survived filtering")
	ErrBatchTooLarge    = errors.New("batch size exceeds dataset size")
	ErrInvalidBatchSize = errors.New("batch size must be positive")
	ErrMismatchedPairs  = errors.New("inputs and targets differ in length")
	ErrNoLookup         = errors.New("rebuilding requires an embedding lookup")
)

// Batcher owns the vocabulary, the embedding matrix, the filtered pairs and
// a cursor into them. It is not safe for concurrent use; use Share to give
// each consumer its own cursor over the same data.
type Batcher struct {
	state         *store.State
	batchSize     int
	paddedLengths bool
	cursor        int
	logger        zerolog.Logger
}

// New prepares a batcher for the paired tokenized sentences.
//
// When a store is configured its state is loaded first. If loading fails
// for any reason the state is rebuilt from inputs and targets (vocabulary
// and embeddings, encoding, filtering) and written back to the store,
// replacing whatever was there.
func New(inputs, targets [][]string, opts ...Option) (*Batcher, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.batchSize <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidBatchSize, o.batchSize)
	}
	if err := o.filter.Validate(); err != nil {
		return nil, fmt.Errorf("invalid filter config: %w", err)
	}

	logger := o.logger.With().Str("component", "batcher").Logger()
	logger.Info().Msg("Initializing Batcher")

	var st *store.State
	if o.store != nil {
		loaded, err := o.store.Load()
		if err != nil {
			logger.Warn().Err(err).Str("reason", loadFailureReason(err)).Msg("Error loading existing vocab & embeddings, rebuilding")
		} else {
			logger.Info().
				Int("vocabulary", loaded.Vocabulary.Size()).
				Int("embeddings", loaded.Embeddings.Rows()).
				Int("inputs", len(loaded.Pairs.Inputs)).
				Int("targets", len(loaded.Pairs.Targets)).
				Msg("Loaded saved batcher data")
			st = loaded
		}
	}

	rebuilt := st == nil
	if rebuilt {
		built, err := build(inputs, targets, o, logger)
		if err != nil {
			return nil, err
		}
		st = built
	}

	if st.Pairs.Len() == 0 {
		return nil, fmt.Errorf("%w: check the filter thresholds", ErrEmptyDataset)
	}

	if rebuilt && o.store != nil {
		if err := o.store.Save(st); err != nil {
			return nil, fmt.Errorf("failed to persist rebuilt state: %w", err)
		}
		logger.Info().Str("build", st.BuildID.String()).Msg("Saved batcher data")
	}

	if o.batchSize > st.Pairs.Len() {
		return nil, fmt.Errorf("%w: batch size %d, %d pairs", ErrBatchTooLarge, o.batchSize, st.Pairs.Len())
	}

	return &Batcher{
		state:         st,
		batchSize:     o.batchSize,
		paddedLengths: o.paddedLengths,
		logger:        logger,
	}, nil
}

func loadFailureReason(err error) string {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return "not found"
	case errors.Is(err, store.ErrCorrupt):
		return "corrupt"
	case errors.Is(err, store.ErrSchemaMismatch):
		return "schema mismatch"
	}
	return "unknown"
}

func build(inputs, targets [][]string, o options, logger zerolog.Logger) (*store.State, error) {
	if len(inputs) != len(targets) {
		return nil, fmt.Errorf("%w: %d inputs, %d targets", ErrMismatchedPairs, len(inputs), len(targets))
	}
	if o.lookup == nil {
		return nil, ErrNoLookup
	}
	lookup, err := o.lookup()
	if err != nil {
		return nil, fmt.Errorf("failed to open embedding lookup: %w", err)
	}
	if lookup == nil {
		return nil, ErrNoLookup
	}

	counts := o.counter(inputs, targets)
	logger.Info().Int("tokens", len(counts)).Msg("Counted tokens")

	v, emb, err := vocab.Build(counts, lookup, vocab.WithSeed(o.seed))
	if err != nil {
		return nil, fmt.Errorf("failed to build vocabulary: %w", err)
	}
	if o.releaseLookup {
		embedding.Release(lookup)
	}
	logger.Info().Int("vocabulary", v.Size()).Int("embeddings", emb.Rows()).Int("dims", emb.Dims()).Msg("Built vocabulary")

	inputIDs := dataset.Encode(inputs, v, true)
	targetIDs := dataset.Encode(targets, v, false)

	pairs, stats := dataset.Filter(inputIDs, targetIDs, vocab.UnkID, o.filter)
	logger.Info().
		Int("pairs", stats.Total).
		Int("targetTooShort", stats.TargetTooShort).
		Int("targetTooLong", stats.TargetTooLong).
		Int("inputTooShort", stats.InputTooShort).
		Int("tooManyUnkTarget", stats.TooManyUnkTarget).
		Int("tooManyUnkInput", stats.TooManyUnkInput).
		Int("inputs", len(pairs.Inputs)).
		Int("targets", len(pairs.Targets)).
		Msg("Filtered pairs")

	return &store.State{BuildID: uuid.New(), Vocabulary: v, Embeddings: emb, Pairs: pairs}, nil
}

// Next returns the next batch of the configured size.
func (b *Batcher) Next() (*Batch, error) {
	return b.NextBatch(b.batchSize)
}

// NextBatch returns the next size pairs, padded per batch with vocab.PadID.
//
// The cursor wraps to 0 once fewer than size pairs lie ahead of it, so a
// short tail is never served and the dataset is read as a circle.
func (b *Batcher) NextBatch(size int) (*Batch, error) {
	n := b.state.Pairs.Len()
	switch {
	case size <= 0:
		return nil, fmt.Errorf("%w: %d", ErrInvalidBatchSize, size)
	case n == 0:
		return nil, ErrEmptyDataset
	case size > n:
		return nil, fmt.Errorf("%w: batch size %d, %d pairs", ErrBatchTooLarge, size, n)
	}

	if b.cursor >= n-size {
		b.cursor = 0
	}
	start, end := b.cursor, b.cursor+size

	inputs, inputLengths, inputWidth := pad(b.state.Pairs.Inputs[start:end], vocab.PadID)
	targets, targetLengths, targetWidth := pad(b.state.Pairs.Targets[start:end], vocab.PadID)
	if b.paddedLengths {
		fill(inputLengths, inputWidth)
		fill(targetLengths, targetWidth)
	}

	b.cursor = end
	return &Batch{
		Inputs:        inputs,
		Targets:       targets,
		InputLengths:  inputLengths,
		TargetLengths: targetLengths,
	}, nil
}

func fill(xs []int, v int) {
	for i := range xs {
		xs[i] = v
	}
}

// Share returns a batcher over the same immutable data with its own cursor
// starting at 0.
func (b *Batcher) Share() *Batcher {
	return &Batcher{
		state:         b.state,
		batchSize:     b.batchSize,
		paddedLengths: b.paddedLengths,
		logger:        b.logger,
	}
}

// Reset moves the cursor back to the first pair.
func (b *Batcher) Reset() { b.cursor = 0 }

func (b *Batcher) Cursor() int                   { return b.cursor }
func (b *Batcher) BatchSize() int                { return b.batchSize }
func (b *Batcher) Len() int                      { return b.state.Pairs.Len() }
func (b *Batcher) BuildID() uuid.UUID            { return b.state.BuildID }
func (b *Batcher) Vocabulary() *vocab.Vocabulary { return b.state.Vocabulary }
func (b *Batcher) Embeddings() *vocab.Embeddings { return b.state.Embeddings }
