package vocab

import (
	"fmt"
	"math/rand/v2"

	"github.com/egordm/TextSummarization/textsum/embedding"

	"github.com/armon/go-radix"
	"gonum.org/v1/gonum/stat/distuv"
)

// DefaultSeed seeds the placeholder vectors of reserved tokens.
const DefaultSeed uint64 = 42

type buildOptions struct {
	seed uint64
}

// BuildOption configures Build.
type BuildOption func(*buildOptions)

// WithSeed sets the seed of the reserved-token placeholder vectors.
func WithSeed(seed uint64) BuildOption {
	return func(o *buildOptions) { o.seed = seed }
}

// Build derives the vocabulary and its embedding matrix from token counts.
//
// A counted token is kept only when lookup has a pretrained vector for it.
// Reserved tokens take ids 0..NumReserved-1, learned tokens follow in
// lexical order. The pad row is zero, the other reserved rows are drawn
// from U(-1, 1) with a fixed seed, learned rows are the looked-up vectors.
//
// lookup is only used for the duration of the call; releasing its cache
// is left to the caller.
func Build(counts map[string]int, lookup embedding.Lookup, opts ...BuildOption) (*Vocabulary, *Embeddings, error) {
	o := buildOptions{seed: DefaultSeed}
	for _, opt := range opts {
		opt(&o)
	}
	dims := lookup.Dimensions()
	if dims <= 0 {
		return nil, nil, fmt.Errorf("embedding lookup reports %d dimensions", dims)
	}

	// the radix walk visits keys in lexical order, which fixes learned ids
	// independently of map iteration order
	known := radix.New()
	for tok := range counts {
		if tok == "" || IsReserved(tok) || !lookup.HasVector(tok) {
			continue
		}
		known.Insert(tok, nil)
	}

	v := newReserved(known.Len())
	known.Walk(func(tok string, _ interface{}) bool {
		v.add(tok)
		return false
	})

	data := make([]float64, v.Size()*dims)
	placeholder := distuv.Uniform{Min: -1, Max: 1, Src: rand.NewPCG(o.seed, o.seed)}
	for id := 1; id < NumReserved; id++ {
		row := data[id*dims : (id+1)*dims]
		for j := range row {
			row[j] = placeholder.Rand()
		}
	}
	for id := NumReserved; id < v.Size(); id++ {
		row := data[id*dims : (id+1)*dims]
		// longer vectors are truncated, shorter ones zero-padded
		vec := lookup.Vector(v.tokens[id])
		for j := range min(len(vec), dims) {
			row[j] = float64(vec[j])
		}
	}

	emb, err := NewEmbeddings(v.Size(), dims, data)
	if err != nil {
		return nil, nil, err
	}
	return v, emb, nil
}
