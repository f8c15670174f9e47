package store

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/egordm/TextSummarization/textsum/dataset"
	"github.com/egordm/TextSummarization/textsum/vocab"

	"github.com/google/uuid"
)

// Binary artifacts are little-endian:
//
//	embeddings: ['T','S','E','M'] [u32 version] [16B build id] [u64 rows] [u64 dims] rows*dims x f64
//	data:       ['T','S','D','S'] [u32 version] [16B build id] [u64 pairs]
//	            per pair: [u32 n] n x u32 input ids [u32 m] m x u32 target ids
//
// The vocabulary is JSON with the tokens listed in id order.
//
// Decoders take the artifact's size in bytes and never allocate more than
// the remaining payload can hold, so a corrupt count fails as ErrCorrupt
// instead of exhausting memory.
const (
	formatVersion uint32 = 1

	headerLen = 4 + 4 + 16
	shapeLen  = 2 * 8
	countLen  = 8
)

var (
	embeddingsMagic = [4]byte{'T', 'S', 'E', 'M'}
	dataMagic       = [4]byte{'T', 'S', 'D', 'S'}
)

type vocabularyFile struct {
	Version uint32   `json:"version"`
	BuildID string   `json:"build_id"`
	Tokens  []string `json:"tokens"`
}

func writeHeader(w io.Writer, magic [4]byte, id uuid.UUID) error {
	if _, err := w.Write(magic[:]); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, formatVersion); err != nil {
		return err
	}
	_, err := w.Write(id[:])
	return err
}

// readHeader checks magic and version and returns the build id.
func readHeader(r io.Reader, artifact string, magic [4]byte) (uuid.UUID, error) {
	var got [4]byte
	if _, err := io.ReadFull(r, got[:]); err != nil {
		return uuid.Nil, artifactErr(artifact, ErrCorrupt, "reading magic: %v", err)
	}
	if got != magic {
		return uuid.Nil, artifactErr(artifact, ErrCorrupt, "bad magic %q", got[:])
	}
	var ver uint32
	if err := binary.Read(r, binary.LittleEndian, &ver); err != nil {
		return uuid.Nil, artifactErr(artifact, ErrCorrupt, "reading version: %v", err)
	}
	if ver != formatVersion {
		return uuid.Nil, artifactErr(artifact, ErrSchemaMismatch, "format version %d, want %d", ver, formatVersion)
	}
	var id uuid.UUID
	if _, err := io.ReadFull(r, id[:]); err != nil {
		return uuid.Nil, artifactErr(artifact, ErrCorrupt, "reading build id: %v", err)
	}
	return id, nil
}

func encodeEmbeddings(w io.Writer, id uuid.UUID, emb *vocab.Embeddings) error {
	bw := bufio.NewWriter(w)
	if err := writeHeader(bw, embeddingsMagic, id); err != nil {
		return err
	}
	dims := [2]uint64{uint64(emb.Rows()), uint64(emb.Dims())}
	if err := binary.Write(bw, binary.LittleEndian, dims); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, emb.Data()); err != nil {
		return err
	}
	return bw.Flush()
}

func decodeEmbeddings(r io.Reader, size int64) (uuid.UUID, *vocab.Embeddings, error) {
	br := bufio.NewReader(r)
	id, err := readHeader(br, ArtifactEmbeddings, embeddingsMagic)
	if err != nil {
		return uuid.Nil, nil, err
	}
	var dims [2]uint64
	if err := binary.Read(br, binary.LittleEndian, &dims); err != nil {
		return uuid.Nil, nil, artifactErr(ArtifactEmbeddings, ErrCorrupt, "reading shape: %v", err)
	}
	rows, cols := dims[0], dims[1]
	payload := size - headerLen - shapeLen
	if rows == 0 || cols == 0 || payload <= 0 || payload%8 != 0 {
		return uuid.Nil, nil, artifactErr(ArtifactEmbeddings, ErrCorrupt, "shape %dx%d with %d payload bytes", rows, cols, payload)
	}
	if values := uint64(payload / 8); cols > values || rows != values/cols || values%cols != 0 {
		return uuid.Nil, nil, artifactErr(ArtifactEmbeddings, ErrCorrupt, "shape %dx%d does not fit %d payload bytes", rows, cols, payload)
	}
	data := make([]float64, rows*cols)
	if err := binary.Read(br, binary.LittleEndian, data); err != nil {
		return uuid.Nil, nil, artifactErr(ArtifactEmbeddings, ErrCorrupt, "reading values: %v", err)
	}
	if err := expectEOF(br, ArtifactEmbeddings); err != nil {
		return uuid.Nil, nil, err
	}
	emb, err := vocab.NewEmbeddings(int(rows), int(cols), data)
	if err != nil {
		return uuid.Nil, nil, artifactErr(ArtifactEmbeddings, ErrSchemaMismatch, "%v", err)
	}
	return id, emb, nil
}

func encodeVocabulary(w io.Writer, id uuid.UUID, v *vocab.Vocabulary) error {
	return encodeVocabularyTokens(w, id, v.Tokens())
}

func decodeVocabulary(r io.Reader) (uuid.UUID, *vocab.Vocabulary, error) {
	var vf vocabularyFile
	if err := json.NewDecoder(r).Decode(&vf); err != nil {
		return uuid.Nil, nil, artifactErr(ArtifactVocabulary, ErrCorrupt, "decoding: %v", err)
	}
	if vf.Version != formatVersion {
		return uuid.Nil, nil, artifactErr(ArtifactVocabulary, ErrSchemaMismatch, "format version %d, want %d", vf.Version, formatVersion)
	}
	id, err := uuid.Parse(vf.BuildID)
	if err != nil {
		return uuid.Nil, nil, artifactErr(ArtifactVocabulary, ErrCorrupt, "build id: %v", err)
	}
	v, err := vocab.FromTokens(vf.Tokens)
	if err != nil {
		return uuid.Nil, nil, artifactErr(ArtifactVocabulary, ErrSchemaMismatch, "%v", err)
	}
	return id, v, nil
}

func encodePairs(w io.Writer, id uuid.UUID, pairs dataset.Pairs) error {
	if len(pairs.Inputs) != len(pairs.Targets) {
		return fmt.Errorf("%d inputs but %d targets", len(pairs.Inputs), len(pairs.Targets))
	}
	bw := bufio.NewWriter(w)
	if err := writeHeader(bw, dataMagic, id); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, uint64(pairs.Len())); err != nil {
		return err
	}
	for i := range pairs.Inputs {
		if err := writeSequence(bw, pairs.Inputs[i]); err != nil {
			return err
		}
		if err := writeSequence(bw, pairs.Targets[i]); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func writeSequence(w io.Writer, seq []int) error {
	buf := make([]uint32, len(seq))
	for i, id := range seq {
		if id < 0 {
			return fmt.Errorf("negative id %d", id)
		}
		buf[i] = uint32(id)
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(seq))); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, buf)
}

func decodePairs(r io.Reader, size int64) (uuid.UUID, dataset.Pairs, error) {
	br := bufio.NewReader(r)
	id, err := readHeader(br, ArtifactData, dataMagic)
	if err != nil {
		return uuid.Nil, dataset.Pairs{}, err
	}
	var n uint64
	if err := binary.Read(br, binary.LittleEndian, &n); err != nil {
		return uuid.Nil, dataset.Pairs{}, artifactErr(ArtifactData, ErrCorrupt, "reading pair count: %v", err)
	}
	// every pair carries at least its two length prefixes
	remaining := size - headerLen - countLen
	if remaining < 0 || n > uint64(remaining)/8 {
		return uuid.Nil, dataset.Pairs{}, artifactErr(ArtifactData, ErrCorrupt, "%d pairs do not fit %d payload bytes", n, remaining)
	}
	pairs := dataset.Pairs{
		Inputs:  make([][]int, 0, n),
		Targets: make([][]int, 0, n),
	}
	for i := uint64(0); i < n; i++ {
		in, err := readSequence(br, &remaining)
		if err != nil {
			return uuid.Nil, dataset.Pairs{}, artifactErr(ArtifactData, ErrCorrupt, "pair %d input: %v", i, err)
		}
		tgt, err := readSequence(br, &remaining)
		if err != nil {
			return uuid.Nil, dataset.Pairs{}, artifactErr(ArtifactData, ErrCorrupt, "pair %d target: %v", i, err)
		}
		pairs.Inputs = append(pairs.Inputs, in)
		pairs.Targets = append(pairs.Targets, tgt)
	}
	if err := expectEOF(br, ArtifactData); err != nil {
		return uuid.Nil, dataset.Pairs{}, err
	}
	return id, pairs, nil
}

// readSequence reads one length-prefixed sequence and charges its bytes to
// remaining.
func readSequence(r io.Reader, remaining *int64) ([]int, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, err
	}
	*remaining -= 4
	if need := int64(n) * 4; need > *remaining {
		return nil, fmt.Errorf("sequence of %d ids exceeds %d remaining bytes", n, *remaining)
	}
	*remaining -= int64(n) * 4
	buf := make([]uint32, n)
	if err := binary.Read(r, binary.LittleEndian, buf); err != nil {
		return nil, err
	}
	seq := make([]int, n)
	for i, id := range buf {
		seq[i] = int(id)
	}
	return seq, nil
}

func expectEOF(br *bufio.Reader, artifact string) error {
	if _, err := br.ReadByte(); !errors.Is(err, io.EOF) {
		return artifactErr(artifact, ErrCorrupt, "trailing bytes after payload")
	}
	return nil
}

func encodeVocabularyTokens(w io.Writer, id uuid.UUID, tokens []string) error {
	return json.NewEncoder(w).Encode(vocabularyFile{Version: formatVersion, BuildID: id.String(), Tokens: tokens})
}
