package store

import (
	"bytes"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	_ "github.com/tursodatabase/go-libsql"
)

const createArtifactsTable = `CREATE TABLE IF NOT EXISTS batcher_artifacts (
	name     TEXT PRIMARY KEY,
	build_id TEXT NOT NULL,
	payload  BLOB NOT NULL,
	saved_at INTEGER NOT NULL
)`

const upsertArtifact = `INSERT INTO batcher_artifacts (name, build_id, payload, saved_at)
VALUES (?, ?, ?, ?)
ON CONFLICT(name) DO UPDATE SET build_id = excluded.build_id, payload = excluded.payload, saved_at = excluded.saved_at`

// SQLStore keeps each artifact as one row of a libSQL table, encoded the
// same way FileStore encodes its files.
type SQLStore struct {
	db     *sql.DB
	logger zerolog.Logger
}

// OpenSQLStore opens (or creates) the database at dsn, e.g. "file:/data/batcher.db".
func OpenSQLStore(dsn string, opts ...Option) (*SQLStore, error) {
	o := buildOptions(opts)
	if path, ok := strings.CutPrefix(dsn, "file:"); ok && path != "" && !strings.HasPrefix(path, ":memory:") {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory for %s: %w", dsn, err)
		}
	}
	db, err := sql.Open("libsql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", dsn, err)
	}
	if _, err := db.Exec(createArtifactsTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create artifacts table: %w", err)
	}
	return &SQLStore{db: db, logger: o.logger.With().Str("store", "libsql").Logger()}, nil
}

// Save replaces the three artifact rows in one transaction.
func (s *SQLStore) Save(state *State) error {
	if err := state.Validate(); err != nil {
		return fmt.Errorf("refusing to save inconsistent state: %w", err)
	}

	payloads := []struct {
		artifact string
		encode   func(io.Writer) error
	}{
		{ArtifactEmbeddings, func(w io.Writer) error { return encodeEmbeddings(w, state.BuildID, state.Embeddings) }},
		{ArtifactVocabulary, func(w io.Writer) error { return encodeVocabulary(w, state.BuildID, state.Vocabulary) }},
		{ArtifactData, func(w io.Writer) error { return encodePairs(w, state.BuildID, state.Pairs) }},
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().Unix()
	for _, p := range payloads {
		var buf bytes.Buffer
		if err := p.encode(&buf); err != nil {
			return &ArtifactError{Artifact: p.artifact, Err: fmt.Errorf("encoding: %w", err)}
		}
		if _, err := tx.Exec(upsertArtifact, p.artifact, state.BuildID.String(), buf.Bytes(), now); err != nil {
			return &ArtifactError{Artifact: p.artifact, Err: fmt.Errorf("error writing row: %w", err)}
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing artifacts: %w", err)
	}

	s.logger.Debug().Str("build", state.BuildID.String()).Msg("saved batcher state")
	return nil
}

// Load reads the three artifact rows and checks that they form one state.
func (s *SQLStore) Load() (*State, error) {
	embPayload, err := s.payload(ArtifactEmbeddings)
	if err != nil {
		return nil, err
	}
	embID, emb, err := decodeEmbeddings(bytes.NewReader(embPayload), int64(len(embPayload)))
	if err != nil {
		return nil, err
	}

	vocPayload, err := s.payload(ArtifactVocabulary)
	if err != nil {
		return nil, err
	}
	vocID, voc, err := decodeVocabulary(bytes.NewReader(vocPayload))
	if err != nil {
		return nil, err
	}

	dataPayload, err := s.payload(ArtifactData)
	if err != nil {
		return nil, err
	}
	dataID, pairs, err := decodePairs(bytes.NewReader(dataPayload), int64(len(dataPayload)))
	if err != nil {
		return nil, err
	}

	st, err := assemble(embID, emb, vocID, voc, dataID, pairs)
	if err != nil {
		return nil, err
	}
	s.logger.Debug().Str("build", st.BuildID.String()).Msg("loaded batcher state")
	return st, nil
}

func (s *SQLStore) payload(artifact string) ([]byte, error) {
	var (
		buildID string
		payload []byte
	)
	err := s.db.QueryRow("SELECT build_id, payload FROM batcher_artifacts WHERE name = ?", artifact).Scan(&buildID, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, artifactErr(artifact, ErrNotFound, "no row")
	}
	if err != nil {
		return nil, artifactErr(artifact, ErrCorrupt, "query: %v", err)
	}
	if _, err := uuid.Parse(buildID); err != nil {
		return nil, artifactErr(artifact, ErrCorrupt, "build id column: %v", err)
	}
	return payload, nil
}

// Close closes the underlying database.
func (s *SQLStore) Close() error { return s.db.Close() }
