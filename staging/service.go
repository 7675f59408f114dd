package staging

import (
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/gomlx/go-bpetokenizer/bpe"
	"github.com/gomlx/go-bpetokenizer/tokenizer"
	"github.com/gomlx/go-bpetokenizer/tokenizer/gpt2"
	"github.com/gomlx/go-bpetokenizer/vocab"
)

// ErrNotStaged reports an Initialize call with an empty staging buffer.
var ErrNotStaged = errors.New("no staged data")

// DefaultMaxLen is the encoding length limit used when no option overrides
// it.
const DefaultMaxLen = 128

// ModelRunner runs a downstream model on encoded token ids. The service only
// forwards ids; inference itself is out of its hands.
type ModelRunner interface {
	Run(ids []int64) ([]float32, error)
}

// Service owns the staging buffers and the tokenizer built from them. It
// starts uninitialized: Tokenize returns empty results until Initialize
// succeeds. Safe for concurrent use; re-initialization replaces the tokenizer
// atomically.
type Service struct {
	id        string
	maxLen    int
	lowerCase bool
	runner    ModelRunner

	vocabBuf  Buffer
	mergesBuf Buffer

	mu  sync.RWMutex
	tok *gpt2.Tokenizer
}

// Option configures a Service.
type Option func(*Service)

// WithMaxLen overrides the encoding length limit.
func WithMaxLen(maxLen int) Option {
	return func(s *Service) { s.maxLen = maxLen }
}

// WithLowercase makes the tokenizer lowercase its input.
func WithLowercase(lowerCase bool) Option {
	return func(s *Service) { s.lowerCase = lowerCase }
}

// WithModelRunner attaches a downstream model to RunModel.
func WithModelRunner(runner ModelRunner) Option {
	return func(s *Service) { s.runner = runner }
}

// NewService creates an uninitialized service.
func NewService(opts ...Option) *Service {
	s := &Service{
		id:     uuid.NewString(),
		maxLen: DefaultMaxLen,
	}
	for _, opt := range opts {
		opt(s)
	}
	klog.V(1).Infof("staging service %s created (max_len=%d)", s.id, s.maxLen)
	return s
}

// ID returns the service's unique identifier.
func (s *Service) ID() string { return s.id }

// AppendVocab stages a chunk of vocabulary bytes.
func (s *Service) AppendVocab(chunk []byte) { s.vocabBuf.Append(chunk) }

// AppendMerges stages a chunk of merges bytes.
func (s *Service) AppendMerges(chunk []byte) { s.mergesBuf.Append(chunk) }

// StagedVocabLen returns the number of staged vocabulary bytes.
func (s *Service) StagedVocabLen() int { return s.vocabBuf.Len() }

// StagedMergesLen returns the number of staged merges bytes.
func (s *Service) StagedMergesLen() int { return s.mergesBuf.Len() }

// ClearStaged discards both staging buffers.
func (s *Service) ClearStaged() {
	s.vocabBuf.Clear()
	s.mergesBuf.Clear()
}

// Ready reports whether the service has an initialized tokenizer.
func (s *Service) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tok != nil
}

// Initialize consumes both staging buffers and builds the tokenizer. The
// buffers are emptied whether or not initialization succeeds, so a failed
// attempt requires re-staging.
func (s *Service) Initialize() error {
	vocabData := s.vocabBuf.Take()
	mergesData := s.mergesBuf.Take()

	if len(vocabData) == 0 {
		return errors.Wrap(ErrNotStaged, "vocabulary buffer is empty")
	}
	if len(mergesData) == 0 {
		return errors.Wrap(ErrNotStaged, "merges buffer is empty")
	}
	if !utf8.Valid(vocabData) {
		return errors.Wrap(vocab.ErrVocabularyParsing, "staged vocabulary is not valid UTF-8")
	}
	if !utf8.Valid(mergesData) {
		return errors.Wrap(vocab.ErrVocabularyParsing, "staged merges are not valid UTF-8")
	}

	v, err := vocab.FromJSON(vocabData, vocab.GPT2SpecialTokens())
	if err != nil {
		return errors.WithMessage(err, "initializing tokenizer from staged vocabulary")
	}
	merges := vocab.ParseMerges(mergesData)

	tok := gpt2.New(v, merges, s.lowerCase)
	s.mu.Lock()
	s.tok = tok
	s.mu.Unlock()
	klog.Infof("staging service %s initialized: %d vocabulary entries, %d merges", s.id, v.Len(), merges.Len())
	return nil
}

// Tokenize encodes text and returns the token ids together with display
// strings (special tokens skipped, space markers rendered as spaces). Before
// initialization it returns empty results; it never fails.
func (s *Service) Tokenize(text string) ([]int64, []string) {
	s.mu.RLock()
	tok := s.tok
	s.mu.RUnlock()
	if tok == nil {
		return nil, nil
	}

	encoded, err := tok.Encode(text, s.maxLen, tokenizer.LongestFirst, 0)
	if err != nil {
		klog.Errorf("staging service %s: encoding failed: %v", s.id, err)
		return nil, nil
	}

	pieces := tokenizer.DecodeToVec(tok, encoded.TokenIDs, true)
	display := make([]string, len(pieces))
	for i, piece := range pieces {
		display[i] = strings.ReplaceAll(piece, string(bpe.SpaceMarker), " ")
	}
	return encoded.TokenIDs, display
}

// Decode converts ids back to text using the initialized tokenizer. Before
// initialization it returns the empty string.
func (s *Service) Decode(ids []int64, skipSpecialTokens, cleanUpTokenizationSpaces bool) string {
	s.mu.RLock()
	tok := s.tok
	s.mu.RUnlock()
	if tok == nil {
		return ""
	}
	return tok.Decode(ids, skipSpecialTokens, cleanUpTokenizationSpaces)
}

// RunModel tokenizes text and forwards the ids to the attached model runner.
// Without a runner it degrades to an empty result.
func (s *Service) RunModel(text string) ([]float32, error) {
	if s.runner == nil {
		return nil, nil
	}
	ids, _ := s.Tokenize(text)
	if len(ids) == 0 {
		return nil, nil
	}
	return s.runner.Run(ids)
}
