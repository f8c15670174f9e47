package text

import (
	"fmt"
	"strings"

	tk "github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/normalizer"
	"github.com/sugarme/tokenizer/pretokenizer"
)

// Splitter turns one raw line into tokens.
type Splitter interface {
	Split(line string) ([]string, error)
}

// WhitespaceSplitter splits on runs of whitespace and nothing else.
type WhitespaceSplitter struct{}

func (WhitespaceSplitter) Split(line string) ([]string, error) {
	return strings.Fields(line), nil
}

// BertSplitter applies the BERT normalizer and pre-tokenizer from
// sugarme/tokenizer: whitespace and punctuation splitting with optional
// lowercasing and accent stripping.
type BertSplitter struct {
	norm *normalizer.BertNormalizer
	pre  *pretokenizer.BertPreTokenizer
}

// NewBertSplitter builds a splitter; lowercase also strips accents.
func NewBertSplitter(lowercase bool) *BertSplitter {
	return &BertSplitter{
		norm: normalizer.NewBertNormalizer(true, lowercase, true, lowercase),
		pre:  pretokenizer.NewBertPreTokenizer(),
	}
}

func (s *BertSplitter) Split(line string) ([]string, error) {
	normalized, err := s.norm.Normalize(normalizer.NewNormalizedFrom(line))
	if err != nil {
		return nil, fmt.Errorf("normalize: %w", err)
	}
	pretokenized, err := s.pre.PreTokenize(tk.NewPreTokenizedString(normalized.GetNormalized()))
	if err != nil {
		return nil, fmt.Errorf("pre-tokenize: %w", err)
	}
	splits := pretokenized.GetSplits(normalizer.OriginalTarget, tk.Byte)
	tokens := make([]string, 0, len(splits))
	for _, sp := range splits {
		if sp.Value == "" {
			continue
		}
		tokens = append(tokens, sp.Value)
	}
	return tokens, nil
}

// SplitAll splits every line, preserving order and count.
func SplitAll(s Splitter, lines []string) ([][]string, error) {
	out := make([][]string, len(lines))
	for i, line := range lines {
		tokens, err := s.Split(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		out[i] = tokens
	}
	return out, nil
}
