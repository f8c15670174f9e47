package text

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounts(t *testing.T) {
	inputs := [][]string{{"the", "cat", "sat"}, {"the", "dog"}}
	targets := [][]string{{"it", "sat", "down"}}

	counts := Counts(inputs, targets)
	assert.Equal(t, map[string]int{"the": 2, "cat": 1, "sat": 2, "dog": 1, "it": 1, "down": 1}, counts)
	assert.Empty(t, Counts())
}

func TestWhitespaceSplitter(t *testing.T) {
	tokens, err := WhitespaceSplitter{}.Split("  the cat\tsat \n")
	require.NoError(t, err)
	assert.Equal(t, []string{"the", "cat", "sat"}, tokens)
}

func TestBertSplitter(t *testing.T) {
	s := NewBertSplitter(true)

	tokens, err := s.Split("The cat sat, down!")
	require.NoError(t, err)
	assert.Equal(t, []string{"the", "cat", "sat", ",", "down", "!"}, tokens)

	tokens, err = s.Split("   ")
	require.NoError(t, err)
	assert.Empty(t, tokens)
}

func TestSplitAll(t *testing.T) {
	out, err := SplitAll(WhitespaceSplitter{}, []string{"a b", "", "c"})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a", "b"}, {}, {"c"}}, out)
}
