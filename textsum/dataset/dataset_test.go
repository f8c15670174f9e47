package dataset

import (
	"testing"

	"github.com/egordm/TextSummarization/textsum/embedding"
	"github.com/egordm/TextSummarization/textsum/vocab"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testVocabulary(t *testing.T) *vocab.Vocabulary {
	t.Helper()
	tv, err := embedding.NewTextVectors(map[string][]float32{
		"the": {1}, "cat": {2}, "sat": {3}, "it": {4}, "down": {5},
	})
	require.NoError(t, err)
	v, _, err := vocab.Build(map[string]int{"the": 1, "cat": 1, "sat": 1, "it": 1, "down": 1}, tv)
	require.NoError(t, err)
	return v
}

// seq builds a sequence of n ids where the first unk positions are unknown.
func seq(n, unk int) []int {
	out := make([]int, n)
	for i := range out {
		if i < unk {
			out[i] = vocab.UnkID
		} else {
			out[i] = vocab.NumReserved
		}
	}
	return out
}

func TestEncode(t *testing.T) {
	v := testVocabulary(t)
	sentences := [][]string{{"the", "cat", "sat"}, {"the", "zebra"}, {}}

	t.Run("without eos", func(t *testing.T) {
		out := Encode(sentences, v, false)
		require.Len(t, out, 3)
		assert.Equal(t, []int{v.Lookup("the"), v.Lookup("cat"), v.Lookup("sat")}, out[0])
		assert.Equal(t, []int{v.Lookup("the"), vocab.UnkID}, out[1])
		assert.Empty(t, out[2])
	})

	t.Run("with eos", func(t *testing.T) {
		plain := Encode(sentences, v, false)
		withEOS := Encode(sentences, v, true)
		for i := range sentences {
			require.Len(t, withEOS[i], len(plain[i])+1)
			assert.Equal(t, plain[i], withEOS[i][:len(plain[i])])
			assert.Equal(t, vocab.EOSID, withEOS[i][len(plain[i])])
		}
	})

	t.Run("deterministic", func(t *testing.T) {
		assert.Equal(t, Encode(sentences, v, true), Encode(sentences, v, true))
	})
}

func TestUnknownCount(t *testing.T) {
	assert.Equal(t, 0, UnknownCount(nil, vocab.UnkID))
	assert.Equal(t, 2, UnknownCount([]int{vocab.UnkID, 5, vocab.UnkID}, vocab.UnkID))
}

func TestFilter_RetentionRules(t *testing.T) {
	cfg := DefaultFilterConfig()

	tests := []struct {
		name     string
		input    []int
		target   []int
		retained bool
	}{
		{"target too short", seq(20, 0), seq(10, 0), false},
		{"minimal retained pair", seq(20, 0), seq(16, 0), true},
		{"target at max length", seq(20, 0), seq(600, 0), true},
		{"target too long", seq(20, 0), seq(601, 0), false},
		{"input too short", seq(15, 0), seq(16, 0), false},
		{"long input is fine", seq(5000, 0), seq(16, 0), true},
		{"target unknown at limit", seq(20, 0), seq(16, 2), true},
		{"target unknown over limit", seq(20, 0), seq(16, 3), false},
		{"input unknown at limit", seq(20, 5), seq(16, 0), true},
		{"input unknown over limit", seq(20, 6), seq(16, 0), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pairs, stats := Filter([][]int{tt.input}, [][]int{tt.target}, vocab.UnkID, cfg)
			if tt.retained {
				assert.Equal(t, 1, pairs.Len())
				assert.Equal(t, 1, stats.Retained)
			} else {
				assert.Equal(t, 0, pairs.Len())
				assert.Equal(t, 0, stats.Retained)
			}
		})
	}
}

func TestFilter_PredicatesHoldForRetained(t *testing.T) {
	cfg := FilterConfig{MaxLength: 12, MinLength: 4, MaxUnknownInInput: 2, MaxUnknownInTarget: 1}

	var inputs, targets [][]int
	for inLen := 2; inLen <= 8; inLen += 2 {
		for tgtLen := 2; tgtLen <= 14; tgtLen += 3 {
			for unk := 0; unk <= 3; unk++ {
				inputs = append(inputs, seq(inLen, min(unk, inLen)))
				targets = append(targets, seq(tgtLen, min(unk, tgtLen)))
			}
		}
	}

	pairs, stats := Filter(inputs, targets, vocab.UnkID, cfg)
	require.Equal(t, pairs.Len(), len(pairs.Targets))
	for i := range pairs.Inputs {
		in, tgt := pairs.Inputs[i], pairs.Targets[i]
		assert.GreaterOrEqual(t, len(tgt), cfg.MinLength)
		assert.LessOrEqual(t, len(tgt), cfg.MaxLength)
		assert.GreaterOrEqual(t, len(in), cfg.MinLength)
		assert.LessOrEqual(t, UnknownCount(tgt, vocab.UnkID), cfg.MaxUnknownInTarget)
		assert.LessOrEqual(t, UnknownCount(in, vocab.UnkID), cfg.MaxUnknownInInput)
	}

	dropped := stats.TargetTooShort + stats.TargetTooLong + stats.InputTooShort + stats.TooManyUnkTarget + stats.TooManyUnkInput
	assert.Equal(t, len(inputs), stats.Total)
	assert.Equal(t, stats.Total, stats.Retained+dropped)
}

func TestFilter_OrderedByTargetLengthStable(t *testing.T) {
	cfg := FilterConfig{MaxLength: 100, MinLength: 1, MaxUnknownInInput: 0, MaxUnknownInTarget: 0}

	// inputs carry their original index as first id so order can be checked
	targetLens := []int{5, 3, 5, 1, 3, 9, 1}
	var inputs, targets [][]int
	for i, l := range targetLens {
		inputs = append(inputs, []int{100 + i})
		targets = append(targets, seq(l, 0))
	}

	pairs, _ := Filter(inputs, targets, vocab.UnkID, cfg)
	require.Equal(t, len(targetLens), pairs.Len())

	var order []int
	var lengths []int
	for i := range pairs.Inputs {
		order = append(order, pairs.Inputs[i][0]-100)
		lengths = append(lengths, len(pairs.Targets[i]))
	}
	assert.Equal(t, []int{3, 6, 1, 4, 0, 2, 5}, order)
	assert.IsNonDecreasing(t, lengths)
}

func TestFilter_EmptyAndMismatched(t *testing.T) {
	pairs, stats := Filter(nil, nil, vocab.UnkID, DefaultFilterConfig())
	assert.Equal(t, 0, pairs.Len())
	assert.Equal(t, 0, stats.Total)

	cfg := FilterConfig{MaxLength: 10, MinLength: 1}
	pairs, stats = Filter([][]int{seq(2, 0), seq(2, 0)}, [][]int{seq(2, 0)}, vocab.UnkID, cfg)
	assert.Equal(t, 1, pairs.Len())
	assert.Equal(t, 1, stats.MismatchedDropped)
}

func TestFilterConfig_Validate(t *testing.T) {
	assert.NoError(t, DefaultFilterConfig().Validate())
	assert.Error(t, FilterConfig{MinLength: -1}.Validate())
	assert.Error(t, FilterConfig{MinLength: 5, MaxLength: 4}.Validate())
	assert.Error(t, FilterConfig{MaxLength: 4, MaxUnknownInInput: -1}.Validate())
}

func TestLengthBuckets(t *testing.T) {
	lb := NewLengthBuckets()
	lb.Add(7, 4)
	lb.Add(2, 9)
	lb.Add(7, 1)
	lb.Add(2, 3)

	assert.Equal(t, []int{2, 7}, lb.Lengths())
	assert.Equal(t, 2, lb.Count(7))
	assert.Equal(t, 0, lb.Count(5))
	assert.Equal(t, []uint32{3, 9, 1, 4}, lb.Ordered())
}

func TestPairs_MaxID(t *testing.T) {
	assert.Equal(t, -1, Pairs{}.MaxID())
	assert.Equal(t, 9, Pairs{Inputs: [][]int{{1, 9}}, Targets: [][]int{{3}}}.MaxID())
}
