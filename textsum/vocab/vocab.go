// Package vocab builds the bounded token vocabulary and the embedding
// matrix aligned with it.
package vocab

import (
	"errors"
	"fmt"
)

// Reserved tokens. Their ids are fixed and precede every learned token.
const (
	PadToken = "<PAD>"
	UnkToken = "<UNK>"
	EOSToken = "<EOS>"
	GoToken  = "<GO>"
)

const (
	PadID = iota
	UnkID
	EOSID
	GoID

	// NumReserved is the number of reserved ids.
	NumReserved
)

var reservedTokens = [NumReserved]string{PadToken, UnkToken, EOSToken, GoToken}

// ErrInvalidVocabulary is returned when a token list cannot form a vocabulary.
var ErrInvalidVocabulary = errors.New("invalid vocabulary")

// Vocabulary is a dense bidirectional token <-> id mapping. Ids are
// contiguous from 0 and never change once assigned.
type Vocabulary struct {
	tokens []string
	ids    map[string]int
}

// ReservedTokens returns the reserved tokens in id order.
func ReservedTokens() []string {
	out := make([]string, NumReserved)
	copy(out, reservedTokens[:])
	return out
}

// IsReserved reports whether token is one of the reserved tokens.
func IsReserved(token string) bool {
	for _, r := range reservedTokens {
		if r == token {
			return true
		}
	}
	return false
}

// FromTokens rebuilds a vocabulary from an id-ordered token list, as
// produced by Tokens. The reserved tokens must sit at their fixed ids.
func FromTokens(tokens []string) (*Vocabulary, error) {
	if len(tokens) < NumReserved {
		return nil, fmt.Errorf("%w: %d tokens, need at least %d reserved", ErrInvalidVocabulary, len(tokens), NumReserved)
	}
	v := &Vocabulary{
		tokens: make([]string, len(tokens)),
		ids:    make(map[string]int, len(tokens)),
	}
	for id, tok := range tokens {
		if id < NumReserved && tok != reservedTokens[id] {
			return nil, fmt.Errorf("%w: id %d holds %q, want %q", ErrInvalidVocabulary, id, tok, reservedTokens[id])
		}
		if tok == "" {
			return nil, fmt.Errorf("%w: empty token at id %d", ErrInvalidVocabulary, id)
		}
		if prev, dup := v.ids[tok]; dup {
			return nil, fmt.Errorf("%w: token %q at ids %d and %d", ErrInvalidVocabulary, tok, prev, id)
		}
		v.tokens[id] = tok
		v.ids[tok] = id
	}
	return v, nil
}

func newReserved(capacity int) *Vocabulary {
	v := &Vocabulary{
		tokens: make([]string, 0, NumReserved+capacity),
		ids:    make(map[string]int, NumReserved+capacity),
	}
	for _, tok := range reservedTokens {
		v.add(tok)
	}
	return v
}

func (v *Vocabulary) add(token string) int {
	if id, ok := v.ids[token]; ok {
		return id
	}
	id := len(v.tokens)
	v.tokens = append(v.tokens, token)
	v.ids[token] = id
	return id
}

// Size returns the number of tokens, reserved included.
func (v *Vocabulary) Size() int { return len(v.tokens) }

// ID returns the id of token.
func (v *Vocabulary) ID(token string) (int, bool) {
	id, ok := v.ids[token]
	return id, ok
}

// Lookup returns the id of token, or UnkID when it is not in the vocabulary.
func (v *Vocabulary) Lookup(token string) int {
	if id, ok := v.ids[token]; ok {
		return id
	}
	return UnkID
}

// Token returns the token with the given id.
func (v *Vocabulary) Token(id int) (string, bool) {
	if id < 0 || id >= len(v.tokens) {
		return "", false
	}
	return v.tokens[id], true
}

// Tokens returns a copy of all tokens in id order.
func (v *Vocabulary) Tokens() []string {
	out := make([]string, len(v.tokens))
	copy(out, v.tokens)
	return out
}

// Decode maps ids back to tokens; out-of-range ids decode to UnkToken.
func (v *Vocabulary) Decode(ids []int) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		tok, ok := v.Token(id)
		if !ok {
			tok = UnkToken
		}
		out[i] = tok
	}
	return out
}

// Equal reports whether both vocabularies map the same tokens to the same ids.
func (v *Vocabulary) Equal(o *Vocabulary) bool {
	if v == nil || o == nil {
		return v == o
	}
	if len(v.tokens) != len(o.tokens) {
		return false
	}
	for i, tok := range v.tokens {
		if o.tokens[i] != tok {
			return false
		}
	}
	return true
}
