// Package text adapts token counting and sentence splitting for the batcher.
package text

// CountTokens adds the occurrences of every token in sentences to counts.
func CountTokens(counts map[string]int, sentences [][]string) {
	for _, sentence := range sentences {
		for _, tok := range sentence {
			counts[tok]++
		}
	}
}

// Counts returns the combined token counts of all corpora.
func Counts(corpora ...[][]string) map[string]int {
	counts := make(map[string]int)
	for _, sentences := range corpora {
		CountTokens(counts, sentences)
	}
	return counts
}
