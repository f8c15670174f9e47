package store

import (
	"errors"
	"fmt"
)

// Load failures fall into exactly one of these classes.
var (
	ErrNotFound       = errors.New("persisted artifact not found")
	ErrCorrupt        = errors.New("persisted artifact is corrupt")
	ErrSchemaMismatch = errors.New("persisted artifact does not match schema")
)

// Artifact names.
const (
	ArtifactEmbeddings = "embeddings"
	ArtifactVocabulary = "vocabulary"
	ArtifactData       = "data"
)

// ArtifactError reports which artifact failed to load or save.
type ArtifactError struct {
	Artifact string
	Err      error
}

func (e *ArtifactError) Error() string {
	return fmt.Sprintf("%s artifact: %v", e.Artifact, e.Err)
}

func (e *ArtifactError) Unwrap() error { return e.Err }

func artifactErr(artifact string, kind error, format string, args ...interface{}) error {
	return &ArtifactError{Artifact: artifact, Err: fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...))}
}
