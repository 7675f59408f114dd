package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gomlx/go-bpetokenizer/staging"
)

func newTestService(t *testing.T) *staging.Service {
	t.Helper()
	s := staging.NewService()
	s.AppendVocab([]byte(`{"a": 0, "b": 1, "ab": 2, "<|endoftext|>": 3, "Ġab": 4}`))
	s.AppendMerges([]byte("#version: 0.2\na b\nĠ ab\n"))
	require.NoError(t, s.Initialize())
	return s
}

func TestDisplayPiecesAlignWithIDs(t *testing.T) {
	s := newTestService(t)

	// Special tokens are dropped from the batch display but must still get a
	// row in the table.
	ids, _ := s.Tokenize("ab <|endoftext|> ab")
	require.Equal(t, []int64{2, 3, 4}, ids)

	pieces := displayPieces(s, ids)
	require.Len(t, pieces, len(ids))
	assert.Equal(t, []string{"ab", "<|endoftext|>", " ab"}, pieces)
}

func TestDisplayPiecesSpecialOnly(t *testing.T) {
	s := newTestService(t)

	ids, display := s.Tokenize("<|endoftext|>")
	require.Equal(t, []int64{3}, ids)
	require.Empty(t, display)

	pieces := displayPieces(s, ids)
	require.Len(t, pieces, 1)
	assert.Equal(t, "<|endoftext|>", pieces[0])
}

func TestDisplayPiecesEmpty(t *testing.T) {
	s := newTestService(t)
	assert.Empty(t, displayPieces(s, nil))
}
