// Package tokenizer defines the Tokenizer interface and the shared encoding
// and decoding pipeline built on top of it. Concrete tokenizers (sub-packages
// gpt2 and basic) only implement the model-specific splitting; everything
// from offset bookkeeping to truncation and decoding lives here.
package tokenizer

import (
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"

	"github.com/gomlx/go-bpetokenizer/tokens"
	"github.com/gomlx/go-bpetokenizer/vocab"
)

// ErrValue reports an invalid argument combination, such as a truncation
// request the inputs cannot satisfy. Test with errors.Is.
var ErrValue = errors.New("value error")

// Tokenizer is the model-specific part of the pipeline. Implementations are
// safe for concurrent use.
//
// The package-level functions (Tokenize, Encode, Decode, ...) provide the
// shared behavior on top of any implementation.
type Tokenizer interface {
	// Vocab returns the tokenizer's vocabulary.
	Vocab() *vocab.Vocabulary

	// TokenizeToTokens splits one pre-token into model tokens, preserving
	// per-character reference offsets.
	TokenizeToTokens(initial tokens.TokenRef) []tokens.Token

	// ConvertTokensToString assembles decoded token strings back into text.
	ConvertTokensToString(toks []string) string

	// BuildInputWithSpecialTokens combines one or two id sequences into the
	// final model input, adding any model-specific marker tokens.
	BuildInputWithSpecialTokens(seq1 tokens.TokenIDsWithOffsets, seq2 *tokens.TokenIDsWithOffsets) tokens.TokenIDsWithSpecialTokens
}

// TokenizeWithOffsets tokenizes text keeping the full offset and mask
// bookkeeping. Empty or whitespace-only input yields an empty result. After
// splitting, masks are repaired so that a Continuation token never follows a
// None token.
func TokenizeWithOffsets(t Tokenizer, text string) tokens.TokensWithOffsets {
	if strings.TrimSpace(text) == "" {
		return tokens.TokensWithOffsets{}
	}
	initialOffsets := make([]tokens.OffsetSize, utf8.RuneCountInString(text))
	for i := range initialOffsets {
		initialOffsets[i] = tokens.OffsetSize(i)
	}
	toks := t.TokenizeToTokens(tokens.NewTokenRef(text, initialOffsets))
	FixMask(toks)

	out := tokens.TokensWithOffsets{
		Tokens:           make([]string, 0, len(toks)),
		Offsets:          make([]*tokens.Offset, 0, len(toks)),
		ReferenceOffsets: make([][]tokens.OffsetSize, 0, len(toks)),
		Masks:            make([]tokens.Mask, 0, len(toks)),
	}
	for _, token := range toks {
		out.Tokens = append(out.Tokens, token.Value)
		if len(token.ReferenceOffsets) > 0 {
			offset := tokens.NewOffset(
				token.ReferenceOffsets[0],
				token.ReferenceOffsets[len(token.ReferenceOffsets)-1]+1,
			)
			out.Offsets = append(out.Offsets, &offset)
		} else {
			out.Offsets = append(out.Offsets, nil)
		}
		out.ReferenceOffsets = append(out.ReferenceOffsets, token.ReferenceOffsets)
		out.Masks = append(out.Masks, token.Mask)
	}
	return out
}

// Tokenize returns only the token strings for text.
func Tokenize(t Tokenizer, text string) []string {
	return TokenizeWithOffsets(t, text).Tokens
}

// TokenizeList tokenizes each text independently.
func TokenizeList(t Tokenizer, texts []string) [][]string {
	out := make([][]string, len(texts))
	for i, text := range texts {
		out[i] = Tokenize(t, text)
	}
	return out
}

// ConvertTokensToIDs maps token strings to vocabulary ids.
func ConvertTokensToIDs(t Tokenizer, toks []string) []int64 {
	return t.Vocab().ConvertTokensToIDs(toks)
}

// FixMask rewrites any None token directly followed by a Continuation token
// to Begin. Splitting around special tokens can leave such boundary
// artifacts.
func FixMask(toks []tokens.Token) {
	for i := 1; i < len(toks); i++ {
		if toks[i].Mask == tokens.MaskContinuation && toks[i-1].Mask == tokens.MaskNone {
			toks[i-1].Mask = tokens.MaskBegin
		}
	}
}

// Encode tokenizes a single text and assembles the final model input,
// truncating to maxLen with the given strategy and stride.
func Encode(t Tokenizer, text string, maxLen int, strategy TruncationStrategy, stride int) (tokens.TokenizedInput, error) {
	return encode(t, text, nil, maxLen, strategy, stride)
}

// EncodePair encodes a text pair: both sides are tokenized independently and
// combined (segment ids 0 and 1) before truncation.
func EncodePair(t Tokenizer, text1, text2 string, maxLen int, strategy TruncationStrategy, stride int) (tokens.TokenizedInput, error) {
	return encode(t, text1, &text2, maxLen, strategy, stride)
}

func encode(t Tokenizer, text1 string, text2 *string, maxLen int, strategy TruncationStrategy, stride int) (tokens.TokenizedInput, error) {
	tokenized1 := TokenizeWithOffsets(t, text1)
	seq1 := tokens.TokenIDsWithOffsets{
		IDs:              ConvertTokensToIDs(t, tokenized1.Tokens),
		Offsets:          tokenized1.Offsets,
		ReferenceOffsets: tokenized1.ReferenceOffsets,
		Masks:            tokenized1.Masks,
	}
	totalLen := len(seq1.IDs)

	var seq2 *tokens.TokenIDsWithOffsets
	if text2 != nil {
		tokenized2 := TokenizeWithOffsets(t, *text2)
		seq2 = &tokens.TokenIDsWithOffsets{
			IDs:              ConvertTokensToIDs(t, tokenized2.Tokens),
			Offsets:          tokenized2.Offsets,
			ReferenceOffsets: tokenized2.ReferenceOffsets,
			Masks:            tokenized2.Masks,
		}
		totalLen += len(seq2.IDs)
	}

	var emptyPair *tokens.TokenIDsWithOffsets
	if seq2 != nil {
		emptyPair = &tokens.TokenIDsWithOffsets{}
	}
	totalLen += len(t.BuildInputWithSpecialTokens(tokens.TokenIDsWithOffsets{}, emptyPair).TokenIDs)

	numTruncated := 0
	if totalLen > maxLen {
		numTruncated = totalLen - maxLen
	}
	seq1, seq2, overflow, _, err := TruncateSequences(seq1, seq2, numTruncated, strategy, stride)
	if err != nil {
		return tokens.TokenizedInput{}, err
	}

	merged := t.BuildInputWithSpecialTokens(seq1, seq2)
	return tokens.TokenizedInput{
		TokenIDs:           merged.TokenIDs,
		SegmentIDs:         merged.SegmentIDs,
		SpecialTokensMask:  merged.SpecialTokensMask,
		OverflowingTokens:  overflow,
		NumTruncatedTokens: numTruncated,
		TokenOffsets:       merged.TokenOffsets,
		ReferenceOffsets:   merged.ReferenceOffsets,
		Mask:               merged.Mask,
	}, nil
}

// EncodeList encodes each text independently.
func EncodeList(t Tokenizer, texts []string, maxLen int, strategy TruncationStrategy, stride int) ([]tokens.TokenizedInput, error) {
	out := make([]tokens.TokenizedInput, 0, len(texts))
	for _, text := range texts {
		encoded, err := Encode(t, text, maxLen, strategy, stride)
		if err != nil {
			return nil, errors.WithMessagef(err, "encoding text %q", text)
		}
		out = append(out, encoded)
	}
	return out, nil
}

// EncodePairList encodes each text pair independently.
func EncodePairList(t Tokenizer, pairs [][2]string, maxLen int, strategy TruncationStrategy, stride int) ([]tokens.TokenizedInput, error) {
	out := make([]tokens.TokenizedInput, 0, len(pairs))
	for _, pair := range pairs {
		encoded, err := EncodePair(t, pair[0], pair[1], maxLen, strategy, stride)
		if err != nil {
			return nil, errors.WithMessagef(err, "encoding pair %q / %q", pair[0], pair[1])
		}
		out = append(out, encoded)
	}
	return out, nil
}

// BuildInputWithSpecialTokens is the base assembly shared by tokenizers that
// add no marker tokens: plain concatenation with segment ids 0 and 1 and an
// all-zero special tokens mask.
func BuildInputWithSpecialTokens(seq1 tokens.TokenIDsWithOffsets, seq2 *tokens.TokenIDsWithOffsets) tokens.TokenIDsWithSpecialTokens {
	segmentIDs := make([]int8, len(seq1.IDs))
	specialTokensMask := make([]int8, len(seq1.IDs))
	out := tokens.TokenIDsWithSpecialTokens{
		TokenIDs:         seq1.IDs,
		TokenOffsets:     seq1.Offsets,
		ReferenceOffsets: seq1.ReferenceOffsets,
		Mask:             seq1.Masks,
	}
	if seq2 != nil {
		segmentIDs = append(segmentIDs, make([]int8, len(seq2.IDs))...)
		for i := len(seq1.IDs); i < len(segmentIDs); i++ {
			segmentIDs[i] = 1
		}
		specialTokensMask = append(specialTokensMask, make([]int8, len(seq2.IDs))...)
		out.TokenIDs = append(out.TokenIDs, seq2.IDs...)
		out.TokenOffsets = append(out.TokenOffsets, seq2.Offsets...)
		out.ReferenceOffsets = append(out.ReferenceOffsets, seq2.ReferenceOffsets...)
		out.Mask = append(out.Mask, seq2.Masks...)
	}
	out.SegmentIDs = segmentIDs
	out.SpecialTokensMask = specialTokensMask
	return out
}

// DecodeToVec maps ids back to token strings, optionally dropping special
// tokens.
func DecodeToVec(t Tokenizer, ids []int64, skipSpecialTokens bool) []string {
	v := t.Vocab()
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if skipSpecialTokens && v.IsSpecialID(id) {
			continue
		}
		out = append(out, v.IDToToken(id))
	}
	return out
}

// Decode converts ids back to text. Decoding is total: unmapped ids fall back
// to the unknown token and invalid byte sequences are replaced, never
// rejected.
func Decode(t Tokenizer, ids []int64, skipSpecialTokens, cleanUpTokenizationSpaces bool) string {
	decoded := t.ConvertTokensToString(DecodeToVec(t, ids, skipSpecialTokens))
	if cleanUpTokenizationSpaces {
		return CleanUpTokenization(decoded)
	}
	return decoded
}

// DecodeList decodes each id sequence independently.
func DecodeList(t Tokenizer, idsList [][]int64, skipSpecialTokens, cleanUpTokenizationSpaces bool) []string {
	out := make([]string, len(idsList))
	for i, ids := range idsList {
		out[i] = Decode(t, ids, skipSpecialTokens, cleanUpTokenizationSpaces)
	}
	return out
}

// cleanUpReplacements are applied in order; later rules see the output of
// earlier ones.
var cleanUpReplacements = [][2]string{
	{" .", "."},
	{" !", "!"},
	{" ?", "?"},
	{" ,", ","},
	{" ' ", "'"},
	{" n't", "n't"},
	{" 'm", "'m"},
	{" do not", " don't"},
	{" 's", "'s"},
	{" 've", "'ve"},
	{" 're", "'re"},
}

// CleanUpTokenization removes spacing artifacts around punctuation and
// contractions left by space-joined decoding.
func CleanUpTokenization(s string) string {
	for _, replacement := range cleanUpReplacements {
		s = strings.ReplaceAll(s, replacement[0], replacement[1])
	}
	return s
}
