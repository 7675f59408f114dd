package vocab

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testVocabJSON = []byte(`{"hello": 0, "world": 1, "!": 2, "<|endoftext|>": 3}`)

func newTestVocab(t *testing.T) *Vocabulary {
	t.Helper()
	v, err := FromJSON(testVocabJSON, GPT2SpecialTokens())
	require.NoError(t, err)
	return v
}

func TestFromJSON(t *testing.T) {
	v := newTestVocab(t)
	assert.Equal(t, 4, v.Len())
	assert.Equal(t, "<|endoftext|>", v.UnknownToken())
	assert.Equal(t, int64(3), v.UnknownID())
}

func TestFromJSONInvalid(t *testing.T) {
	_, err := FromJSON([]byte(`not json`), GPT2SpecialTokens())
	assert.True(t, errors.Is(err, ErrVocabularyParsing))

	_, err = FromJSON([]byte(`{"a": -1, "<|endoftext|>": 0}`), GPT2SpecialTokens())
	assert.True(t, errors.Is(err, ErrVocabularyParsing))
}

func TestMissingSpecialToken(t *testing.T) {
	_, err := FromJSON([]byte(`{"hello": 0}`), GPT2SpecialTokens())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTokenNotFound))
}

func TestTokenToIDRoundTrip(t *testing.T) {
	v := newTestVocab(t)
	for token, id := range v.Values {
		assert.Equal(t, id, v.TokenToID(token))
		assert.Equal(t, token, v.IDToToken(id))
	}
}

func TestUnknownFallback(t *testing.T) {
	v := newTestVocab(t)
	assert.Equal(t, v.UnknownID(), v.TokenToID("never-seen"))
	assert.Equal(t, v.UnknownToken(), v.IDToToken(9999))
}

func TestIsSpecialID(t *testing.T) {
	v := newTestVocab(t)
	assert.True(t, v.IsSpecialID(3))
	assert.False(t, v.IsSpecialID(0))
}

func TestConvertTokensToIDs(t *testing.T) {
	v := newTestVocab(t)
	ids := v.ConvertTokensToIDs([]string{"hello", "world", "missing"})
	assert.Equal(t, []int64{0, 1, 3}, ids)
}

func TestAddTokens(t *testing.T) {
	v := newTestVocab(t)
	v.AddTokens([]string{"<custom>", "hello"})

	// New token appended at the next id and registered as special.
	id := v.TokenToID("<custom>")
	assert.Equal(t, int64(4), id)
	assert.True(t, v.IsSpecialID(id))

	// Existing tokens keep their id.
	assert.Equal(t, int64(0), v.TokenToID("hello"))

	// Adding again is a no-op.
	v.AddTokens([]string{"<custom>"})
	assert.Equal(t, 5, v.Len())
}

func TestAddExtraIDs(t *testing.T) {
	v := newTestVocab(t)
	v.AddExtraIDs(3)
	for i := 0; i < 3; i++ {
		token := fmt.Sprintf("<extra_id_%d>", i)
		id := v.TokenToID(token)
		assert.Equal(t, int64(4+i), id)
		assert.True(t, v.IsSpecialID(id))
	}
}

func TestFromFlat(t *testing.T) {
	v, err := FromFlat([]byte("[UNK]\nhello\n  world \n"), BaseSpecialTokens())
	require.NoError(t, err)
	assert.Equal(t, int64(0), v.TokenToID("[UNK]"))
	assert.Equal(t, int64(1), v.TokenToID("hello"))
	assert.Equal(t, int64(2), v.TokenToID("world"))
}

func TestFromJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vocab.json")
	require.NoError(t, os.WriteFile(path, testVocabJSON, 0o644))

	v, err := FromJSONFile(path, GPT2SpecialTokens())
	require.NoError(t, err)
	assert.Equal(t, 4, v.Len())

	_, err = FromJSONFile(filepath.Join(t.TempDir(), "missing.json"), GPT2SpecialTokens())
	assert.Error(t, err)
}
