// Package basic implements a whitespace and punctuation tokenizer in the
// style of the original BERT basic tokenizer: text cleaning, optional
// lowercasing and accent stripping, CJK isolation and punctuation splitting.
// Every resulting piece is looked up in the vocabulary as-is.
package basic

import (
	"strings"

	"github.com/gomlx/go-bpetokenizer/tokenizer"
	"github.com/gomlx/go-bpetokenizer/tokens"
	"github.com/gomlx/go-bpetokenizer/vocab"
)

// Tokenizer splits text into whitespace, CJK and punctuation delimited
// pieces. Safe for concurrent use.
type Tokenizer struct {
	vocab        *vocab.Vocabulary
	lowerCase    bool
	stripAccents bool
}

var _ tokenizer.Tokenizer = &Tokenizer{}

// New creates a basic tokenizer from a loaded vocabulary.
func New(v *vocab.Vocabulary, lowerCase, stripAccents bool) *Tokenizer {
	return &Tokenizer{vocab: v, lowerCase: lowerCase, stripAccents: stripAccents}
}

// FromFlatFile creates a basic tokenizer from a flat newline-separated
// vocabulary file.
func FromFlatFile(path string, lowerCase, stripAccents bool) (*Tokenizer, error) {
	v, err := vocab.FromFlatFile(path, vocab.BaseSpecialTokens())
	if err != nil {
		return nil, err
	}
	return New(v, lowerCase, stripAccents), nil
}

// Vocab returns the tokenizer's vocabulary.
func (t *Tokenizer) Vocab() *vocab.Vocabulary {
	return t.vocab
}

// TokenizeToTokens cleans the pre-token, splits around special tokens and
// breaks the rest on whitespace, CJK characters and punctuation.
func (t *Tokenizer) TokenizeToTokens(initial tokens.TokenRef) []tokens.Token {
	cleaned := initial.ToOwned()
	tokenizer.CleanText(&cleaned, true)

	var out []tokens.Token
	for _, ref := range tokenizer.SplitOnSpecialTokens(cleaned.AsRef(), t.vocab) {
		if ref.Mask == tokens.MaskSpecial || ref.Mask == tokens.MaskUnknown {
			out = append(out, ref.ToOwned())
			continue
		}
		for _, word := range tokenizer.WhitespaceTokenize(ref) {
			token := word.ToOwned()
			if t.lowerCase {
				tokenizer.Lowercase(&token)
			}
			if t.stripAccents {
				tokenizer.StripAccents(&token)
			}
			for _, piece := range tokenizer.TokenizeCJKChars(token.AsRef()) {
				for _, sub := range tokenizer.SplitOnPunct(piece) {
					out = append(out, sub.ToOwned())
				}
			}
		}
	}
	tokenizer.FixMask(out)
	return out
}

// ConvertTokensToString joins tokens with single spaces.
func (t *Tokenizer) ConvertTokensToString(toks []string) string {
	return strings.Join(toks, " ")
}

// BuildInputWithSpecialTokens concatenates the sequences without adding any
// marker tokens.
func (t *Tokenizer) BuildInputWithSpecialTokens(seq1 tokens.TokenIDsWithOffsets, seq2 *tokens.TokenIDsWithOffsets) tokens.TokenIDsWithSpecialTokens {
	return tokenizer.BuildInputWithSpecialTokens(seq1, seq2)
}
