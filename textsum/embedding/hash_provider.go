package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"

	internal "github.com/egordm/TextSummarization/textsum"
)

// HashProvider derives a fixed pseudo-vector for every token from SHA-256
// digests of the token and a block counter. Vectors are unit length with
// components spread over [-1, 1], so distinct tokens get unrelated rows.
// It stands in for pretrained vectors during development.
type HashProvider struct {
	dims int
}

// NewHashProvider returns a hash provider producing dims-wide vectors.
func NewHashProvider(dims int) Provider {
	if dims <= 0 {
		dims = internal.DefaultEmbeddingDims
	}
	return &HashProvider{dims: dims}
}

func (h *HashProvider) Dimensions() int { return h.dims }

func (h *HashProvider) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	out := make([][]float32, len(inputs))
	for i, token := range inputs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = h.vector(token)
	}
	return out, nil
}

func (h *HashProvider) vector(token string) []float32 {
	vec := make([]float32, h.dims)
	msg := make([]byte, len(token)+4)
	copy(msg, token)

	var norm float64
	for block := 0; block*8 < h.dims; block++ {
		binary.LittleEndian.PutUint32(msg[len(token):], uint32(block))
		sum := sha256.Sum256(msg)
		for k := 0; k < 8 && block*8+k < h.dims; k++ {
			u := binary.LittleEndian.Uint32(sum[k*4:])
			x := float64(u)/float64(math.MaxUint32)*2 - 1
			vec[block*8+k] = float32(x)
			norm += x * x
		}
	}
	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for j := range vec {
			vec[j] *= scale
		}
	}
	return vec
}
