// Package vocab implements the token vocabularies used by the tokenizers in
// this module: the main bijective token/id mapping with its special-token
// overlay, and the ranked byte-pair merge table consumed by the BPE engine.
package vocab

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

var (
	// ErrVocabularyParsing reports a malformed vocabulary source (invalid
	// JSON object or unreadable flat list).
	ErrVocabularyParsing = errors.New("vocabulary parsing error")

	// ErrTokenNotFound reports a configured special token that is absent from
	// the loaded vocabulary. This is fatal to construction.
	ErrTokenNotFound = errors.New("token not found in vocabulary")
)

// DefaultGPT2UnknownToken doubles as the BOS and EOS marker in GPT-2 style
// vocabularies.
const DefaultGPT2UnknownToken = "<|endoftext|>"

// DefaultBaseUnknownToken is the unknown marker of BERT-class flat
// vocabularies.
const DefaultBaseUnknownToken = "[UNK]"

// SpecialTokenMap configures the special tokens of a vocabulary. Unknown is
// mandatory; the remaining entries are registered only when non-empty. Every
// configured token must be present in the loaded vocabulary.
type SpecialTokenMap struct {
	Unknown    string
	Pad        string
	Bos        string
	Sep        string
	Cls        string
	Eos        string
	Mask       string
	Additional []string
}

// GPT2SpecialTokens returns the special token configuration of GPT-2 style
// vocabularies, where <|endoftext|> serves as unknown, BOS and EOS marker.
func GPT2SpecialTokens() SpecialTokenMap {
	return SpecialTokenMap{
		Unknown: DefaultGPT2UnknownToken,
		Bos:     DefaultGPT2UnknownToken,
		Eos:     DefaultGPT2UnknownToken,
	}
}

// BaseSpecialTokens returns the minimal special token configuration with only
// the [UNK] unknown marker.
func BaseSpecialTokens() SpecialTokenMap {
	return SpecialTokenMap{Unknown: DefaultBaseUnknownToken}
}

func (m SpecialTokenMap) register(values map[string]int64, specialValues map[string]int64) error {
	tokens := []string{m.Unknown, m.Pad, m.Bos, m.Sep, m.Cls, m.Eos, m.Mask}
	tokens = append(tokens, m.Additional...)
	for _, token := range tokens {
		if token == "" {
			continue
		}
		id, ok := values[token]
		if !ok {
			return errors.Wrapf(ErrTokenNotFound, "special value %q could not be found in the vocabulary", token)
		}
		specialValues[token] = id
	}
	return nil
}

// Vocabulary maps token strings to ids and back. Special tokens live in a
// separate overlay consulted first in both directions. A vocabulary is built
// once and is immutable for the tokenizer's life; lookups are safe for
// concurrent use.
type Vocabulary struct {
	// Values maps token strings to ids (the encoder base).
	Values map[string]int64

	// Indices maps token ids to strings (the decoder base).
	Indices map[int64]string

	// SpecialTokens is the special token configuration this vocabulary was
	// built with.
	SpecialTokens SpecialTokenMap

	// SpecialValues maps special token strings to ids. Checked before Values
	// on encoding.
	SpecialValues map[string]int64

	// SpecialIndices maps special token ids to strings. Checked before
	// Indices on decoding.
	SpecialIndices map[int64]string
}

// New builds a vocabulary from an existing token→id mapping and a special
// token configuration. Every configured special token must be present in
// values, otherwise construction fails with ErrTokenNotFound.
func New(values map[string]int64, specialTokens SpecialTokenMap) (*Vocabulary, error) {
	specialValues := make(map[string]int64)
	if err := specialTokens.register(values, specialValues); err != nil {
		return nil, err
	}
	return &Vocabulary{
		Values:         values,
		Indices:        swapKeyValues(values),
		SpecialTokens:  specialTokens,
		SpecialValues:  specialValues,
		SpecialIndices: swapKeyValues(specialValues),
	}, nil
}

// FromJSON builds a vocabulary from a UTF-8 JSON object mapping token strings
// to non-negative integer ids.
func FromJSON(data []byte, specialTokens SpecialTokenMap) (*Vocabulary, error) {
	values, err := readJSON(data)
	if err != nil {
		return nil, err
	}
	return New(values, specialTokens)
}

// FromFlat builds a vocabulary from a flat newline-separated token list, ids
// assigned by line number. Lines are trimmed of surrounding whitespace.
func FromFlat(data []byte, specialTokens SpecialTokenMap) (*Vocabulary, error) {
	values, err := readFlat(data)
	if err != nil {
		return nil, err
	}
	return New(values, specialTokens)
}

func readJSON(data []byte) (map[string]int64, error) {
	var values map[string]int64
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, errors.Wrapf(ErrVocabularyParsing, "%v", err)
	}
	for token, id := range values {
		if id < 0 {
			return nil, errors.Wrapf(ErrVocabularyParsing, "token %q has negative id %d", token, id)
		}
	}
	return values, nil
}

func readFlat(data []byte) (map[string]int64, error) {
	values := make(map[string]int64)
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(nil, 1024*1024)
	var index int64
	for scanner.Scan() {
		values[strings.TrimSpace(scanner.Text())] = index
		index++
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(ErrVocabularyParsing, "%v", err)
	}
	return values, nil
}

func swapKeyValues[K comparable, V comparable](in map[K]V) map[V]K {
	out := make(map[V]K, len(in))
	for k, v := range in {
		out[v] = k
	}
	return out
}

// UnknownToken returns the string of the mandatory unknown token.
func (v *Vocabulary) UnknownToken() string {
	return v.SpecialTokens.Unknown
}

// UnknownID returns the id of the unknown token.
func (v *Vocabulary) UnknownID() int64 {
	return v.Values[v.SpecialTokens.Unknown]
}

// TokenToID converts a token to its id, checking the special overlay first
// and falling back to the unknown id for out-of-vocabulary tokens. It is
// total and never fails.
func (v *Vocabulary) TokenToID(token string) int64 {
	if id, ok := v.SpecialValues[token]; ok {
		return id
	}
	if id, ok := v.Values[token]; ok {
		return id
	}
	return v.UnknownID()
}

// IDToToken converts an id to its token string, checking the special overlay
// first and falling back to the unknown token string for unmapped ids.
func (v *Vocabulary) IDToToken(id int64) string {
	if token, ok := v.SpecialIndices[id]; ok {
		return token
	}
	if token, ok := v.Indices[id]; ok {
		return token
	}
	return v.UnknownToken()
}

// IsSpecialID reports whether id belongs to the special token overlay.
func (v *Vocabulary) IsSpecialID(id int64) bool {
	_, ok := v.SpecialIndices[id]
	return ok
}

// ConvertTokensToIDs maps a list of tokens to their ids.
func (v *Vocabulary) ConvertTokensToIDs(toks []string) []int64 {
	ids := make([]int64, len(toks))
	for i, token := range toks {
		ids[i] = v.TokenToID(token)
	}
	return ids
}

// AddTokens appends new tokens to the vocabulary at the next sequential ids,
// registering them in both the main maps and the special overlay so that the
// tokenization algorithm leaves them whole. Tokens already present are
// skipped.
func (v *Vocabulary) AddTokens(toks []string) {
	currentIndex := int64(len(v.Values))
	for _, token := range toks {
		if _, ok := v.Values[token]; ok {
			continue
		}
		v.Values[token] = currentIndex
		v.Indices[currentIndex] = token
		v.SpecialValues[token] = currentIndex
		v.SpecialIndices[currentIndex] = token
		currentIndex++
	}
}

// AddExtraIDs appends n synthesized tokens following the <extra_id_N>
// template, the convention used by T5-class models for task-specific markers.
func (v *Vocabulary) AddExtraIDs(n int64) {
	extra := make([]string, 0, n)
	for i := int64(0); i < n; i++ {
		extra = append(extra, fmt.Sprintf("<extra_id_%d>", i))
	}
	v.AddTokens(extra)
}

// Len returns the number of entries in the main map.
func (v *Vocabulary) Len() int {
	return len(v.Values)
}
