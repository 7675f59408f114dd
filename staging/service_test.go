package staging

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gomlx/go-bpetokenizer/vocab"
)

var (
	testVocabJSON = []byte(`{"a": 0, "b": 1, "ab": 2, "<|endoftext|>": 3, "Ġab": 4}`)
	testMerges    = []byte("#version: 0.2\na b\nĠ ab\n")
)

func stageAll(s *Service) {
	// Chunked upload: arbitrary split points must not matter.
	half := len(testVocabJSON) / 2
	s.AppendVocab(testVocabJSON[:half])
	s.AppendVocab(testVocabJSON[half:])
	s.AppendMerges(testMerges)
}

func TestTokenizeBeforeInitialize(t *testing.T) {
	s := NewService()
	assert.False(t, s.Ready())
	ids, display := s.Tokenize("ab")
	assert.Empty(t, ids)
	assert.Empty(t, display)
	assert.Empty(t, s.Decode([]int64{2}, true, false))
}

func TestInitializeWithoutStagedData(t *testing.T) {
	s := NewService()
	err := s.Initialize()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotStaged))

	s.AppendVocab(testVocabJSON)
	err = s.Initialize()
	assert.True(t, errors.Is(err, ErrNotStaged))
}

func TestLifecycle(t *testing.T) {
	s := NewService()
	stageAll(s)
	assert.Equal(t, len(testVocabJSON), s.StagedVocabLen())
	assert.Equal(t, len(testMerges), s.StagedMergesLen())

	require.NoError(t, s.Initialize())
	assert.True(t, s.Ready())

	// Initialization consumes the staged buffers.
	assert.Zero(t, s.StagedVocabLen())
	assert.Zero(t, s.StagedMergesLen())

	ids, display := s.Tokenize("ab ab")
	assert.Equal(t, []int64{2, 4}, ids)
	// Display strings render the space marker as a plain space.
	assert.Equal(t, []string{"ab", " ab"}, display)

	assert.Equal(t, "ab ab", s.Decode(ids, true, false))
}

func TestTokenizeSkipsSpecialTokensInDisplay(t *testing.T) {
	s := NewService()
	stageAll(s)
	require.NoError(t, s.Initialize())

	ids, display := s.Tokenize("<|endoftext|>")
	assert.Equal(t, []int64{3}, ids)
	assert.Empty(t, display)
}

func TestFailedInitializeConsumesBuffers(t *testing.T) {
	s := NewService()
	s.AppendVocab([]byte(`not json`))
	s.AppendMerges(testMerges)

	err := s.Initialize()
	require.Error(t, err)
	assert.True(t, errors.Is(err, vocab.ErrVocabularyParsing))

	// A failed attempt requires re-staging from scratch.
	assert.Zero(t, s.StagedVocabLen())
	assert.Zero(t, s.StagedMergesLen())
	assert.False(t, s.Ready())
}

func TestInitializeRejectsInvalidUTF8(t *testing.T) {
	s := NewService()
	s.AppendVocab([]byte{0xff, 0xfe})
	s.AppendMerges(testMerges)
	err := s.Initialize()
	assert.True(t, errors.Is(err, vocab.ErrVocabularyParsing))
}

func TestClearStaged(t *testing.T) {
	s := NewService()
	stageAll(s)
	s.ClearStaged()
	assert.Zero(t, s.StagedVocabLen())
	assert.Zero(t, s.StagedMergesLen())
}

func TestMaxLenOption(t *testing.T) {
	s := NewService(WithMaxLen(2))
	stageAll(s)
	require.NoError(t, s.Initialize())

	ids, _ := s.Tokenize("ab ab ab ab")
	assert.Len(t, ids, 2)
}

func TestReinitialize(t *testing.T) {
	s := NewService()
	stageAll(s)
	require.NoError(t, s.Initialize())

	stageAll(s)
	require.NoError(t, s.Initialize())
	ids, _ := s.Tokenize("ab")
	assert.Equal(t, []int64{2}, ids)
}

type stubRunner struct {
	gotIDs []int64
}

func (r *stubRunner) Run(ids []int64) ([]float32, error) {
	r.gotIDs = ids
	return []float32{0.5}, nil
}

func TestRunModel(t *testing.T) {
	runner := &stubRunner{}
	s := NewService(WithModelRunner(runner))
	stageAll(s)
	require.NoError(t, s.Initialize())

	logits, err := s.RunModel("ab")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5}, logits)
	assert.Equal(t, []int64{2}, runner.gotIDs)
}

func TestRunModelWithoutRunner(t *testing.T) {
	s := NewService()
	stageAll(s)
	require.NoError(t, s.Initialize())

	logits, err := s.RunModel("ab")
	require.NoError(t, err)
	assert.Empty(t, logits)
}

func TestBufferTake(t *testing.T) {
	var b Buffer
	b.Append([]byte("abc"))
	b.Append([]byte("def"))
	assert.Equal(t, 6, b.Len())

	data := b.Take()
	assert.Equal(t, []byte("abcdef"), data)
	assert.Zero(t, b.Len())
	assert.Nil(t, b.Take())
}
