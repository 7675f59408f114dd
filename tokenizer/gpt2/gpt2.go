// Package gpt2 implements the GPT-2 byte-level BPE tokenizer: splitting on
// special tokens, optional lowercasing, regex pre-tokenization and byte-level
// pair merging.
package gpt2

import (
	"strings"
	"unicode/utf8"

	"github.com/dlclark/regexp2"
	"k8s.io/klog/v2"

	"github.com/gomlx/go-bpetokenizer/bpe"
	"github.com/gomlx/go-bpetokenizer/tokenizer"
	"github.com/gomlx/go-bpetokenizer/tokens"
	"github.com/gomlx/go-bpetokenizer/vocab"
)

const (
	// patternLookahead marks word boundaries inside whitespace runs, keeping
	// one space attached to the word that follows it.
	patternLookahead = `\s+\S`

	// patternTokenization is the GPT-2 pre-tokenization pattern: common
	// contractions, space-prefixed letter and number runs, other symbol runs
	// and residual whitespace.
	patternTokenization = `'s|'t|'re|'ve|'m|'ll|'d| ?\p{L}+| ?\p{N}+| ?[^\s\p{L}\p{N}]+|\s+`
)

// Tokenizer is a GPT-2 byte-level BPE tokenizer. Safe for concurrent use.
type Tokenizer struct {
	vocab               *vocab.Vocabulary
	merges              *vocab.MergeTable
	cache               *bpe.Cache
	patternLookahead    *regexp2.Regexp
	patternTokenization *regexp2.Regexp
	lowerCase           bool
}

// Compile-time check that Tokenizer implements the interface.
var _ tokenizer.Tokenizer = &Tokenizer{}

// New creates a GPT-2 tokenizer from a loaded vocabulary and merge table.
func New(v *vocab.Vocabulary, merges *vocab.MergeTable, lowerCase bool) *Tokenizer {
	klog.V(1).Infof("gpt2 tokenizer: %d vocabulary entries, %d merges, lower_case=%v",
		v.Len(), merges.Len(), lowerCase)
	return &Tokenizer{
		vocab:               v,
		merges:              merges,
		cache:               bpe.NewCache(),
		patternLookahead:    regexp2.MustCompile(patternLookahead, regexp2.None),
		patternTokenization: regexp2.MustCompile(patternTokenization, regexp2.None),
		lowerCase:           lowerCase,
	}
}

// FromFiles creates a GPT-2 tokenizer from a JSON vocabulary file and a
// merges file.
func FromFiles(vocabPath, mergesPath string, lowerCase bool) (*Tokenizer, error) {
	v, err := vocab.FromJSONFile(vocabPath, vocab.GPT2SpecialTokens())
	if err != nil {
		return nil, err
	}
	merges, err := vocab.MergesFromFile(mergesPath)
	if err != nil {
		return nil, err
	}
	return New(v, merges, lowerCase), nil
}

// Vocab returns the tokenizer's vocabulary.
func (t *Tokenizer) Vocab() *vocab.Vocabulary {
	return t.vocab
}

// TokenizeToTokens runs the GPT-2 pipeline on one pre-token: special tokens
// pass through whole, everything else is optionally lowercased, segmented by
// the pre-tokenization patterns and merged byte-level.
func (t *Tokenizer) TokenizeToTokens(initial tokens.TokenRef) []tokens.Token {
	var out []tokens.Token
	for _, ref := range tokenizer.SplitOnSpecialTokens(initial, t.vocab) {
		if ref.Mask == tokens.MaskSpecial || ref.Mask == tokens.MaskUnknown {
			out = append(out, ref.ToOwned())
			continue
		}
		token := ref.ToOwned()
		if t.lowerCase {
			tokenizer.Lowercase(&token)
		}
		for _, subWord := range tokenizer.SplitOnRegexWithLookahead(token.AsRef(), t.patternLookahead, t.patternTokenization) {
			out = append(out, bpe.SplitOnBPEPairs(subWord, t.merges, t.cache)...)
		}
	}
	tokenizer.FixMask(out)
	return out
}

// ConvertTokensToString joins token strings and reverses the byte projection.
// Invalid byte sequences are replaced instead of rejected.
func (t *Tokenizer) ConvertTokensToString(toks []string) string {
	raw := bpe.UnprojectRunes(strings.Join(toks, ""))
	return strings.ToValidUTF8(raw, string(utf8.RuneError))
}

// BuildInputWithSpecialTokens concatenates the sequences without adding any
// marker tokens; GPT-2 inputs carry none.
func (t *Tokenizer) BuildInputWithSpecialTokens(seq1 tokens.TokenIDsWithOffsets, seq2 *tokens.TokenIDsWithOffsets) tokens.TokenIDsWithSpecialTokens {
	return tokenizer.BuildInputWithSpecialTokens(seq1, seq2)
}

// Encode tokenizes and encodes a single text.
func (t *Tokenizer) Encode(text string, maxLen int, strategy tokenizer.TruncationStrategy, stride int) (tokens.TokenizedInput, error) {
	return tokenizer.Encode(t, text, maxLen, strategy, stride)
}

// Decode converts ids back to text.
func (t *Tokenizer) Decode(ids []int64, skipSpecialTokens, cleanUpTokenizationSpaces bool) string {
	return tokenizer.Decode(t, ids, skipSpecialTokens, cleanUpTokenizationSpaces)
}
