package gpt2

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gomlx/go-bpetokenizer/tokenizer"
	"github.com/gomlx/go-bpetokenizer/tokens"
	"github.com/gomlx/go-bpetokenizer/vocab"
)

var (
	testVocabJSON = []byte(`{"a": 0, "b": 1, "ab": 2, "<|endoftext|>": 3, "Ġab": 4}`)
	testMerges    = []byte("#version: 0.2\na b\nĠ ab\n")
)

func newTestTokenizer(t *testing.T, lowerCase bool) *Tokenizer {
	t.Helper()
	v, err := vocab.FromJSON(testVocabJSON, vocab.GPT2SpecialTokens())
	require.NoError(t, err)
	return New(v, vocab.ParseMerges(testMerges), lowerCase)
}

func TestTokenizeMerges(t *testing.T) {
	tok := newTestTokenizer(t, false)
	assert.Equal(t, []string{"ab"}, tokenizer.Tokenize(tok, "ab"))

	encoded, err := tok.Encode("ab", 128, tokenizer.LongestFirst, 0)
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, encoded.TokenIDs)
}

func TestTokenizeSpacePrefixedWord(t *testing.T) {
	tok := newTestTokenizer(t, false)
	assert.Equal(t, []string{"ab", "Ġab"}, tokenizer.Tokenize(tok, "ab ab"))

	encoded, err := tok.Encode("ab ab", 128, tokenizer.LongestFirst, 0)
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 4}, encoded.TokenIDs)
}

func TestTokenizeSpecialToken(t *testing.T) {
	tok := newTestTokenizer(t, false)
	result := tokenizer.TokenizeWithOffsets(tok, "<|endoftext|>")
	require.Equal(t, []string{"<|endoftext|>"}, result.Tokens)
	assert.Equal(t, tokens.MaskUnknown, result.Masks[0])

	encoded, err := tok.Encode("<|endoftext|>", 128, tokenizer.LongestFirst, 0)
	require.NoError(t, err)
	assert.Equal(t, []int64{3}, encoded.TokenIDs)
	assert.Empty(t, tokenizer.DecodeToVec(tok, encoded.TokenIDs, true))
}

func TestTokenizeWithOffsetsBookkeeping(t *testing.T) {
	tok := newTestTokenizer(t, false)
	result := tokenizer.TokenizeWithOffsets(tok, "ab ab")
	require.Len(t, result.Tokens, 2)
	assert.Equal(t, tokens.NewOffset(0, 2), *result.Offsets[0])
	assert.Equal(t, tokens.NewOffset(2, 5), *result.Offsets[1])
	assert.Equal(t, []tokens.OffsetSize{0, 1}, result.ReferenceOffsets[0])
	assert.Equal(t, []tokens.OffsetSize{2, 3, 4}, result.ReferenceOffsets[1])
}

func TestRoundTripBytes(t *testing.T) {
	// The byte projection is bijective: joining and unprojecting the token
	// strings reconstructs the input exactly, merges or not.
	tok := newTestTokenizer(t, false)
	for _, text := range []string{
		"ab ab",
		"Hello, world!",
		"tabs\tand\nnewlines",
		"héllo 日本語",
		"emoji 🙂 works",
	} {
		pieces := tokenizer.Tokenize(tok, text)
		assert.Equal(t, text, tok.ConvertTokensToString(pieces), "text %q", text)
	}
}

func TestDecodeRoundTrip(t *testing.T) {
	// With full vocabulary coverage, encode followed by decode reconstructs
	// the text.
	tok := newTestTokenizer(t, false)
	encoded, err := tok.Encode("ab ab", 128, tokenizer.LongestFirst, 0)
	require.NoError(t, err)
	assert.Equal(t, "ab ab", tok.Decode(encoded.TokenIDs, false, false))
}

func TestLowercasing(t *testing.T) {
	tok := newTestTokenizer(t, true)
	assert.Equal(t, []string{"ab"}, tokenizer.Tokenize(tok, "AB"))

	result := tokenizer.TokenizeWithOffsets(tok, "AB")
	require.Len(t, result.Offsets, 1)
	assert.Equal(t, tokens.NewOffset(0, 2), *result.Offsets[0])
}

func TestEncodeMaxLen(t *testing.T) {
	tok := newTestTokenizer(t, false)
	text := strings.TrimSpace(strings.Repeat("ab ", 50))
	encoded, err := tok.Encode(text, 8, tokenizer.LongestFirst, 0)
	require.NoError(t, err)
	assert.Len(t, encoded.TokenIDs, 8)
	assert.Equal(t, 50-8, encoded.NumTruncatedTokens)
}

func TestEncodeEmpty(t *testing.T) {
	tok := newTestTokenizer(t, false)
	encoded, err := tok.Encode("", 128, tokenizer.LongestFirst, 0)
	require.NoError(t, err)
	assert.Empty(t, encoded.TokenIDs)
	assert.Zero(t, encoded.NumTruncatedTokens)
}

func TestMergedRunMasks(t *testing.T) {
	// "ba" has no ranked pair, so it stays two pieces: Begin then
	// Continuation.
	tok := newTestTokenizer(t, false)
	result := tokenizer.TokenizeWithOffsets(tok, "ba")
	require.Equal(t, []string{"b", "a"}, result.Tokens)
	assert.Equal(t, tokens.MaskBegin, result.Masks[0])
	assert.Equal(t, tokens.MaskContinuation, result.Masks[1])
}

func TestConcurrentTokenizeAgree(t *testing.T) {
	tok := newTestTokenizer(t, false)
	text := strings.TrimSpace(strings.Repeat("ab ab ba ", 8))
	want := tokenizer.Tokenize(tok, text)

	var wg sync.WaitGroup
	results := make([][]string, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = tokenizer.Tokenize(tok, text)
		}(i)
	}
	wg.Wait()
	for _, got := range results {
		assert.Equal(t, want, got)
	}
}

func TestFromFiles(t *testing.T) {
	dir := t.TempDir()
	vocabPath := filepath.Join(dir, "vocab.json")
	mergesPath := filepath.Join(dir, "merges.txt")
	require.NoError(t, os.WriteFile(vocabPath, testVocabJSON, 0o644))
	require.NoError(t, os.WriteFile(mergesPath, testMerges, 0o644))

	tok, err := FromFiles(vocabPath, mergesPath, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"ab"}, tokenizer.Tokenize(tok, "ab"))

	_, err = FromFiles(filepath.Join(dir, "missing.json"), mergesPath, false)
	assert.Error(t, err)
}
