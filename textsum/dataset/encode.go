// Package dataset turns tokenized sentence pairs into filtered, length
// ordered id sequences ready for batching.
package dataset

import "github.com/egordm/TextSummarization/textsum/vocab"

// Encode maps every token to its vocabulary id, unknown tokens to
// vocab.UnkID, and appends vocab.EOSID when appendEOS is set. The output
// mirrors the input one to one.
func Encode(sentences [][]string, v *vocab.Vocabulary, appendEOS bool) [][]int {
	out := make([][]int, len(sentences))
	for i, sentence := range sentences {
		n := len(sentence)
		if appendEOS {
			n++
		}
		ids := make([]int, 0, n)
		for _, tok := range sentence {
			ids = append(ids, v.Lookup(tok))
		}
		if appendEOS {
			ids = append(ids, vocab.EOSID)
		}
		out[i] = ids
	}
	return out
}

// UnknownCount counts the positions holding unkID.
func UnknownCount(seq []int, unkID int) int {
	n := 0
	for _, id := range seq {
		if id == unkID {
			n++
		}
	}
	return n
}
