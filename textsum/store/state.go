// Package store persists the batcher state as three independent artifacts:
// the embedding matrix, the vocabulary and the filtered pair dataset.
package store

import (
	"fmt"

	"github.com/egordm/TextSummarization/textsum/dataset"
	"github.com/egordm/TextSummarization/textsum/vocab"

	"github.com/google/uuid"
)

// State is everything a batcher needs to serve batches without rebuilding.
type State struct {
	BuildID    uuid.UUID
	Vocabulary *vocab.Vocabulary
	Embeddings *vocab.Embeddings
	Pairs      dataset.Pairs
}

// Store saves and restores a State. Load fails as a unit: any missing,
// unreadable or inconsistent artifact fails the whole load with an
// *ArtifactError wrapping ErrNotFound, ErrCorrupt or ErrSchemaMismatch.
type Store interface {
	Save(state *State) error
	Load() (*State, error)
	Close() error
}

// Validate checks the cross-artifact invariants.
func (s *State) Validate() error {
	if s.Vocabulary == nil {
		return artifactErr(ArtifactVocabulary, ErrSchemaMismatch, "vocabulary is missing")
	}
	if s.Embeddings == nil {
		return artifactErr(ArtifactEmbeddings, ErrSchemaMismatch, "embedding matrix is missing")
	}
	if s.Embeddings.Rows() != s.Vocabulary.Size() {
		return artifactErr(ArtifactEmbeddings, ErrSchemaMismatch,
			"matrix has %d rows, vocabulary has %d tokens", s.Embeddings.Rows(), s.Vocabulary.Size())
	}
	if len(s.Pairs.Inputs) != len(s.Pairs.Targets) {
		return artifactErr(ArtifactData, ErrSchemaMismatch,
			"%d inputs but %d targets", len(s.Pairs.Inputs), len(s.Pairs.Targets))
	}
	if maxID := s.Pairs.MaxID(); maxID >= s.Vocabulary.Size() {
		return artifactErr(ArtifactData, ErrSchemaMismatch,
			"id %d out of range for vocabulary of %d", maxID, s.Vocabulary.Size())
	}
	return nil
}

func (s *State) String() string {
	return fmt.Sprintf("build=%s vocabulary=%d embeddings=%dx%d pairs=%d",
		s.BuildID, s.Vocabulary.Size(), s.Embeddings.Rows(), s.Embeddings.Dims(), s.Pairs.Len())
}

// assemble joins independently decoded artifacts and verifies that they
// come from the same build and agree with each other.
func assemble(embID uuid.UUID, emb *vocab.Embeddings, vocID uuid.UUID, voc *vocab.Vocabulary, dataID uuid.UUID, pairs dataset.Pairs) (*State, error) {
	if vocID != embID {
		return nil, artifactErr(ArtifactVocabulary, ErrSchemaMismatch, "build %s does not match embeddings build %s", vocID, embID)
	}
	if dataID != embID {
		return nil, artifactErr(ArtifactData, ErrSchemaMismatch, "build %s does not match embeddings build %s", dataID, embID)
	}
	st := &State{BuildID: embID, Vocabulary: voc, Embeddings: emb, Pairs: pairs}
	if err := st.Validate(); err != nil {
		return nil, err
	}
	return st, nil
}
