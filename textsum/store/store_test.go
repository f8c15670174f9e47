package store

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/egordm/TextSummarization/textsum/dataset"
	"github.com/egordm/TextSummarization/textsum/embedding"
	"github.com/egordm/TextSummarization/textsum/vocab"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildState(t *testing.T) *State {
	t.Helper()
	tv, err := embedding.NewTextVectors(map[string][]float32{
		"the": {0.1, 0.2}, "cat": {0.3, 0.4}, "sat": {0.5, 0.6}, "it": {0.7, 0.8}, "down": {0.9, 1.0},
	})
	require.NoError(t, err)

	sentencesIn := [][]string{{"the", "cat", "sat"}, {"the", "zebra", "sat", "down"}}
	sentencesOut := [][]string{{"it", "sat", "down"}, {"it", "sat"}}
	counts := map[string]int{"the": 2, "cat": 1, "sat": 3, "it": 2, "down": 2, "zebra": 1}

	v, emb, err := vocab.Build(counts, tv)
	require.NoError(t, err)

	cfg := dataset.FilterConfig{MaxLength: 10, MinLength: 1, MaxUnknownInInput: 1, MaxUnknownInTarget: 0}
	pairs, _ := dataset.Filter(dataset.Encode(sentencesIn, v, true), dataset.Encode(sentencesOut, v, false), vocab.UnkID, cfg)
	require.Equal(t, 2, pairs.Len())

	return &State{BuildID: uuid.New(), Vocabulary: v, Embeddings: emb, Pairs: pairs}
}

func assertStateEqual(t *testing.T, want, got *State) {
	t.Helper()
	assert.Equal(t, want.BuildID, got.BuildID)
	assert.True(t, want.Vocabulary.Equal(got.Vocabulary), "vocabulary differs")
	assert.True(t, want.Embeddings.Equal(got.Embeddings), "embeddings differ")
	assert.Equal(t, want.Pairs, got.Pairs)
}

func newTestFileStore(t *testing.T) *FileStore {
	return NewFileStore(filepath.Join(t.TempDir(), "state"), WithLogger(zerolog.Nop()))
}

func TestFileStore_RoundTrip(t *testing.T) {
	s := newTestFileStore(t)
	want := buildState(t)

	require.NoError(t, s.Save(want))
	for _, name := range []string{EmbeddingsFile, VocabularyFile, DataFile} {
		assert.FileExists(t, filepath.Join(s.Dir(), name))
	}

	got, err := s.Load()
	require.NoError(t, err)
	assertStateEqual(t, want, got)
}

func TestFileStore_EmptyPairsRoundTrip(t *testing.T) {
	s := newTestFileStore(t)
	want := buildState(t)
	want.Pairs = dataset.Pairs{Inputs: [][]int{}, Targets: [][]int{}}

	require.NoError(t, s.Save(want))
	got, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, 0, got.Pairs.Len())
}

func TestFileStore_OverwritesPreviousState(t *testing.T) {
	s := newTestFileStore(t)
	first := buildState(t)
	second := buildState(t)

	require.NoError(t, s.Save(first))
	require.NoError(t, s.Save(second))

	got, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, second.BuildID, got.BuildID)

	entries, err := os.ReadDir(s.Dir())
	require.NoError(t, err)
	assert.Len(t, entries, 3, "no temporary files are left behind")
}

func TestFileStore_NotFound(t *testing.T) {
	s := newTestFileStore(t)

	_, err := s.Load()
	assert.ErrorIs(t, err, ErrNotFound)

	var ae *ArtifactError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, ArtifactEmbeddings, ae.Artifact)
}

func TestFileStore_MissingSingleArtifact(t *testing.T) {
	s := newTestFileStore(t)
	require.NoError(t, s.Save(buildState(t)))
	require.NoError(t, os.Remove(filepath.Join(s.Dir(), DataFile)))

	_, err := s.Load()
	assert.ErrorIs(t, err, ErrNotFound)
	var ae *ArtifactError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, ArtifactData, ae.Artifact)
}

func TestFileStore_Corrupt(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		artifact string
		mutate   func([]byte) []byte
	}{
		{"truncated embeddings", EmbeddingsFile, ArtifactEmbeddings, func(b []byte) []byte { return b[:len(b)-3] }},
		{"bad embeddings magic", EmbeddingsFile, ArtifactEmbeddings, func(b []byte) []byte { b[0] = 'X'; return b }},
		{"trailing embeddings bytes", EmbeddingsFile, ArtifactEmbeddings, func(b []byte) []byte { return append(b, 0) }},
		{"garbled vocabulary", VocabularyFile, ArtifactVocabulary, func([]byte) []byte { return []byte("{not json") }},
		{"truncated data", DataFile, ArtifactData, func(b []byte) []byte { return b[:len(b)-1] }},
		{"empty data", DataFile, ArtifactData, func([]byte) []byte { return nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestFileStore(t)
			require.NoError(t, s.Save(buildState(t)))

			path := filepath.Join(s.Dir(), tt.file)
			raw, err := os.ReadFile(path)
			require.NoError(t, err)
			require.NoError(t, os.WriteFile(path, tt.mutate(raw), 0o644))

			_, err = s.Load()
			assert.ErrorIs(t, err, ErrCorrupt)
			var ae *ArtifactError
			require.ErrorAs(t, err, &ae)
			assert.Equal(t, tt.artifact, ae.Artifact)
		})
	}
}

func headerBytes(magic [4]byte, id uuid.UUID, counts ...uint64) []byte {
	b := append([]byte{}, magic[:]...)
	b = binary.LittleEndian.AppendUint32(b, formatVersion)
	b = append(b, id[:]...)
	for _, c := range counts {
		b = binary.LittleEndian.AppendUint64(b, c)
	}
	return b
}

func TestDecode_OversizedCountsAreCorrupt(t *testing.T) {
	id := uuid.New()
	hugeSequence := binary.LittleEndian.AppendUint32(headerBytes(dataMagic, id, 1), 1<<24)
	hugeSequence = binary.LittleEndian.AppendUint32(hugeSequence, 7)

	tests := []struct {
		name   string
		raw    []byte
		decode func(r *bytes.Reader, size int64) error
	}{
		{"embeddings shape without payload", headerBytes(embeddingsMagic, id, 1<<14, 1<<16), func(r *bytes.Reader, size int64) error {
			_, _, err := decodeEmbeddings(r, size)
			return err
		}},
		{"embeddings shape larger than payload", append(headerBytes(embeddingsMagic, id, 1<<20, 4), make([]byte, 32)...), func(r *bytes.Reader, size int64) error {
			_, _, err := decodeEmbeddings(r, size)
			return err
		}},
		{"pair count without payload", headerBytes(dataMagic, id, 1<<40), func(r *bytes.Reader, size int64) error {
			_, _, err := decodePairs(r, size)
			return err
		}},
		{"sequence length without payload", hugeSequence, func(r *bytes.Reader, size int64) error {
			_, _, err := decodePairs(r, size)
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.decode(bytes.NewReader(tt.raw), int64(len(tt.raw)))
			assert.ErrorIs(t, err, ErrCorrupt)
		})
	}
}

func TestFileStore_HeaderOnlyEmbeddingsFallBackToCorrupt(t *testing.T) {
	s := newTestFileStore(t)
	require.NoError(t, s.Save(buildState(t)))

	raw := headerBytes(embeddingsMagic, uuid.New(), 1<<14, 1<<16)
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), EmbeddingsFile), raw, 0o644))

	_, err := s.Load()
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestFileStore_SchemaMismatch(t *testing.T) {
	t.Run("artifacts from different builds", func(t *testing.T) {
		s := newTestFileStore(t)
		other := newTestFileStore(t)
		require.NoError(t, s.Save(buildState(t)))
		require.NoError(t, other.Save(buildState(t)))

		raw, err := os.ReadFile(filepath.Join(other.Dir(), DataFile))
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), DataFile), raw, 0o644))

		_, err = s.Load()
		assert.ErrorIs(t, err, ErrSchemaMismatch)
	})

	t.Run("format version", func(t *testing.T) {
		s := newTestFileStore(t)
		require.NoError(t, s.Save(buildState(t)))

		path := filepath.Join(s.Dir(), EmbeddingsFile)
		raw, err := os.ReadFile(path)
		require.NoError(t, err)
		binary.LittleEndian.PutUint32(raw[4:8], formatVersion+1)
		require.NoError(t, os.WriteFile(path, raw, 0o644))

		_, err = s.Load()
		assert.ErrorIs(t, err, ErrSchemaMismatch)
	})

	t.Run("reserved tokens reordered", func(t *testing.T) {
		s := newTestFileStore(t)
		st := buildState(t)
		require.NoError(t, s.Save(st))

		tokens := st.Vocabulary.Tokens()
		tokens[0], tokens[1] = tokens[1], tokens[0]
		f, err := os.Create(filepath.Join(s.Dir(), VocabularyFile))
		require.NoError(t, err)
		require.NoError(t, encodeVocabularyTokens(f, st.BuildID, tokens))
		require.NoError(t, f.Close())

		_, err = s.Load()
		assert.ErrorIs(t, err, ErrSchemaMismatch)
	})

	t.Run("matrix rows differ from vocabulary size", func(t *testing.T) {
		s := newTestFileStore(t)
		st := buildState(t)
		require.NoError(t, s.Save(st))

		tokens := append(st.Vocabulary.Tokens(), "extra")
		f, err := os.Create(filepath.Join(s.Dir(), VocabularyFile))
		require.NoError(t, err)
		require.NoError(t, encodeVocabularyTokens(f, st.BuildID, tokens))
		require.NoError(t, f.Close())

		_, err = s.Load()
		assert.ErrorIs(t, err, ErrSchemaMismatch)
		var ae *ArtifactError
		require.ErrorAs(t, err, &ae)
		assert.Equal(t, ArtifactEmbeddings, ae.Artifact)
	})
}

func TestFileStore_SaveRejectsInconsistentState(t *testing.T) {
	s := newTestFileStore(t)
	st := buildState(t)
	st.Pairs.Inputs = append(st.Pairs.Inputs, []int{st.Vocabulary.Size() + 5})
	st.Pairs.Targets = append(st.Pairs.Targets, []int{1})

	err := s.Save(st)
	assert.ErrorIs(t, err, ErrSchemaMismatch)
	_, statErr := os.Stat(s.Dir())
	assert.True(t, os.IsNotExist(statErr), "nothing is written for an inconsistent state")
}

func TestOpen(t *testing.T) {
	s, err := Open("file", t.TempDir(), "", WithLogger(zerolog.Nop()))
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)
	assert.NoError(t, s.Close())

	_, err = Open("redis", "", "")
	assert.Error(t, err)
}

func TestSQLStore_RoundTrip(t *testing.T) {
	dsn := "file:" + filepath.Join(t.TempDir(), "db", "batcher.db")
	s, err := OpenSQLStore(dsn, WithLogger(zerolog.Nop()))
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Load()
	assert.ErrorIs(t, err, ErrNotFound)

	first := buildState(t)
	require.NoError(t, s.Save(first))
	want := buildState(t)
	require.NoError(t, s.Save(want))

	got, err := s.Load()
	require.NoError(t, err)
	assertStateEqual(t, want, got)
}
