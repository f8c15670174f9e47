package store

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"
)

// File names of the artifacts inside a FileStore directory.
const (
	EmbeddingsFile = "embeddings.bin"
	VocabularyFile = "vocabulary.json"
	DataFile       = "data.bin"
)

// FileStore keeps each artifact in its own file under one directory.
type FileStore struct {
	dir    string
	logger zerolog.Logger
}

// NewFileStore returns a store rooted at dir. The directory is created on
// the first Save.
func NewFileStore(dir string, opts ...Option) *FileStore {
	o := buildOptions(opts)
	return &FileStore{dir: dir, logger: o.logger.With().Str("store", "file").Str("dir", dir).Logger()}
}

// Dir returns the directory holding the artifacts.
func (s *FileStore) Dir() string { return s.dir }

// Save writes the three artifacts, replacing any previous ones. Each file
// is written to a temporary name and renamed into place.
func (s *FileStore) Save(state *State) error {
	if err := state.Validate(); err != nil {
		return fmt.Errorf("refusing to save inconsistent state: %w", err)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create store directory %s: %w", s.dir, err)
	}

	p := pool.New().WithErrors()
	p.Go(func() error {
		return s.writeArtifact(ArtifactEmbeddings, EmbeddingsFile, func(w io.Writer) error {
			return encodeEmbeddings(w, state.BuildID, state.Embeddings)
		})
	})
	p.Go(func() error {
		return s.writeArtifact(ArtifactVocabulary, VocabularyFile, func(w io.Writer) error {
			return encodeVocabulary(w, state.BuildID, state.Vocabulary)
		})
	})
	p.Go(func() error {
		return s.writeArtifact(ArtifactData, DataFile, func(w io.Writer) error {
			return encodePairs(w, state.BuildID, state.Pairs)
		})
	})
	if err := p.Wait(); err != nil {
		return err
	}

	s.logger.Debug().Str("build", state.BuildID.String()).Msg("saved batcher state")
	return nil
}

func (s *FileStore) writeArtifact(artifact, name string, encode func(io.Writer) error) (err error) {
	tmp, err := os.CreateTemp(s.dir, name+".tmp-*")
	if err != nil {
		return &ArtifactError{Artifact: artifact, Err: err}
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err = encode(tmp); err != nil {
		return &ArtifactError{Artifact: artifact, Err: fmt.Errorf("encoding: %w", err)}
	}
	if err = tmp.Close(); err != nil {
		return &ArtifactError{Artifact: artifact, Err: err}
	}
	if err = os.Rename(tmp.Name(), filepath.Join(s.dir, name)); err != nil {
		return &ArtifactError{Artifact: artifact, Err: err}
	}
	return nil
}

// Load reads the three artifacts and checks that they form one state.
func (s *FileStore) Load() (*State, error) {
	var (
		embID, vocID, dataID uuid.UUID
		st                   State
	)
	err := s.readArtifact(ArtifactEmbeddings, EmbeddingsFile, func(r io.Reader, size int64) (derr error) {
		embID, st.Embeddings, derr = decodeEmbeddings(r, size)
		return derr
	})
	if err != nil {
		return nil, err
	}
	err = s.readArtifact(ArtifactVocabulary, VocabularyFile, func(r io.Reader, _ int64) (derr error) {
		vocID, st.Vocabulary, derr = decodeVocabulary(r)
		return derr
	})
	if err != nil {
		return nil, err
	}
	err = s.readArtifact(ArtifactData, DataFile, func(r io.Reader, size int64) (derr error) {
		dataID, st.Pairs, derr = decodePairs(r, size)
		return derr
	})
	if err != nil {
		return nil, err
	}

	loaded, err := assemble(embID, st.Embeddings, vocID, st.Vocabulary, dataID, st.Pairs)
	if err != nil {
		return nil, err
	}
	s.logger.Debug().Str("build", loaded.BuildID.String()).Msg("loaded batcher state")
	return loaded, nil
}

func (s *FileStore) readArtifact(artifact, name string, decode func(r io.Reader, size int64) error) error {
	f, err := os.Open(filepath.Join(s.dir, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return artifactErr(artifact, ErrNotFound, "%s", name)
		}
		return artifactErr(artifact, ErrCorrupt, "opening %s: %v", name, err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return artifactErr(artifact, ErrCorrupt, "stat %s: %v", name, err)
	}
	return decode(f, info.Size())
}

// Close is a no-op; files are closed after every operation.
func (*FileStore) Close() error { return nil }
