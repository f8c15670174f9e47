package embedding

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
)

// ErrDimensionMismatch is returned when a vector row does not match the
// dimension established by the first row or the header.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// TextVectors is a Lookup backed by a GloVe/word2vec style text file:
// one "token v1 v2 ... vN" row per line, optionally preceded by a
// "count dims" header.
type TextVectors struct {
	mu      sync.RWMutex
	dims    int
	vectors map[string][]float32
}

type textOptions struct {
	keep map[string]struct{}
}

// TextOption configures LoadTextVectors.
type TextOption func(*textOptions)

// WithVocabularyFilter keeps only vectors for the given tokens.
func WithVocabularyFilter(tokens map[string]int) TextOption {
	return func(o *textOptions) {
		o.keep = make(map[string]struct{}, len(tokens))
		for tok := range tokens {
			o.keep[tok] = struct{}{}
		}
	}
}

// LoadTextVectors reads vectors from path.
func LoadTextVectors(path string, opts ...TextOption) (*TextVectors, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open embeddings %s: %w", path, err)
	}
	defer f.Close()
	return ReadTextVectors(f, opts...)
}

// ReadTextVectors parses vectors from r.
func ReadTextVectors(r io.Reader, opts ...TextOption) (*TextVectors, error) {
	var o textOptions
	for _, opt := range opts {
		opt(&o)
	}

	tv := &TextVectors{vectors: make(map[string][]float32)}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if lineNo == 1 && len(fields) == 2 {
			// "count dims" only when both are integers; "5 0.25" is a 1-d row
			_, countErr := strconv.Atoi(fields[0])
			dims, dimsErr := strconv.Atoi(fields[1])
			if countErr == nil && dimsErr == nil {
				if dims <= 0 {
					return nil, fmt.Errorf("line 1: invalid header dimension %d", dims)
				}
				tv.dims = dims
				continue
			}
		}
		if len(fields) < 2 {
			return nil, fmt.Errorf("line %d: row has no vector values", lineNo)
		}
		token := fields[0]
		values := fields[1:]
		if tv.dims == 0 {
			tv.dims = len(values)
		}
		if len(values) != tv.dims {
			return nil, fmt.Errorf("line %d: %w: want %d, got %d", lineNo, ErrDimensionMismatch, tv.dims, len(values))
		}
		if o.keep != nil {
			if _, ok := o.keep[token]; !ok {
				continue
			}
		}
		vec := make([]float32, tv.dims)
		for i, s := range values {
			x, err := strconv.ParseFloat(s, 32)
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid value %q: %w", lineNo, s, err)
			}
			vec[i] = float32(x)
		}
		tv.vectors[token] = vec
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read embeddings: %w", err)
	}
	return tv, nil
}

// NewTextVectors builds a lookup from an in-memory table. All vectors must
// share one dimension.
func NewTextVectors(vectors map[string][]float32) (*TextVectors, error) {
	tv := &TextVectors{vectors: make(map[string][]float32, len(vectors))}
	for tok, vec := range vectors {
		if tv.dims == 0 {
			tv.dims = len(vec)
		}
		if len(vec) != tv.dims {
			return nil, fmt.Errorf("token %q: %w: want %d, got %d", tok, ErrDimensionMismatch, tv.dims, len(vec))
		}
		tv.vectors[tok] = vec
	}
	return tv, nil
}

func (tv *TextVectors) Dimensions() int { return tv.dims }

func (tv *TextVectors) HasVector(token string) bool {
	tv.mu.RLock()
	defer tv.mu.RUnlock()
	_, ok := tv.vectors[token]
	return ok
}

func (tv *TextVectors) Vector(token string) []float32 {
	tv.mu.RLock()
	defer tv.mu.RUnlock()
	return tv.vectors[token]
}

// Len returns the number of vectors held in memory.
func (tv *TextVectors) Len() int {
	tv.mu.RLock()
	defer tv.mu.RUnlock()
	return len(tv.vectors)
}

// ReleaseCache drops every vector; the lookup reports no vectors afterwards.
func (tv *TextVectors) ReleaseCache() {
	tv.mu.Lock()
	defer tv.mu.Unlock()
	tv.vectors = make(map[string][]float32)
}
