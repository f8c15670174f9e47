package vocab

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Embeddings is the embedding matrix: row i is the vector of vocabulary id i.
type Embeddings struct {
	m *mat.Dense
}

// NewEmbeddings wraps row-major data of rows x dims values.
func NewEmbeddings(rows, dims int, data []float64) (*Embeddings, error) {
	if rows <= 0 || dims <= 0 {
		return nil, fmt.Errorf("embedding matrix must be non-empty, got %dx%d", rows, dims)
	}
	if len(data) != rows*dims {
		return nil, fmt.Errorf("embedding data has %d values, want %d", len(data), rows*dims)
	}
	return &Embeddings{m: mat.NewDense(rows, dims, data)}, nil
}

// Rows returns the number of vectors.
func (e *Embeddings) Rows() int {
	r, _ := e.m.Dims()
	return r
}

// Dims returns the dimensionality shared by every vector.
func (e *Embeddings) Dims() int {
	_, c := e.m.Dims()
	return c
}

// Row returns a copy of the vector for id.
func (e *Embeddings) Row(id int) []float64 {
	return mat.Row(nil, id, e.m)
}

// Matrix exposes the matrix read-only for model initialisation.
func (e *Embeddings) Matrix() mat.Matrix { return e.m }

// Data returns a row-major copy of every value.
func (e *Embeddings) Data() []float64 {
	rows, dims := e.m.Dims()
	out := make([]float64, 0, rows*dims)
	for i := 0; i < rows; i++ {
		out = append(out, e.m.RawRowView(i)...)
	}
	return out
}

// Equal reports exact element-wise equality.
func (e *Embeddings) Equal(o *Embeddings) bool {
	if e == nil || o == nil {
		return e == o
	}
	return mat.Equal(e.m, o.m)
}
