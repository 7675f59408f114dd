package tokenizer

import (
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dlclark/regexp2"
	"golang.org/x/text/unicode/norm"

	"github.com/gomlx/go-bpetokenizer/tokens"
	"github.com/gomlx/go-bpetokenizer/vocab"
)

// SplitOnSpecialTokens splits a pre-token around any special vocabulary
// entries it contains. Matched entries become standalone tokens masked
// Special (or Unknown for the unknown marker itself); the text before a match
// is emitted with trailing whitespace trimmed. Candidates are tried longest
// first, so a special token that is a prefix of another never shadows it.
func SplitOnSpecialTokens(token tokens.TokenRef, v *vocab.Vocabulary) []tokens.TokenRef {
	specials := make([]string, 0, len(v.SpecialValues))
	for value := range v.SpecialValues {
		specials = append(specials, value)
	}
	slices.SortFunc(specials, func(a, b string) int {
		if len(a) != len(b) {
			return len(b) - len(a)
		}
		return strings.Compare(a, b)
	})
	testSubstr := func(s string) (int, int, tokens.Mask) {
		for _, value := range specials {
			if strings.HasPrefix(s, value) {
				mask := tokens.MaskSpecial
				if value == v.UnknownToken() {
					mask = tokens.MaskUnknown
				}
				return len(value), utf8.RuneCountInString(value), mask
			}
		}
		return 0, 0, tokens.MaskNone
	}
	return splitOnSubstr(token, testSubstr, true)
}

// splitOnSubstr splits a pre-token at every position where testSubstr
// reports a match on the remaining text. testSubstr returns the match length
// in bytes and characters and the mask for the matched span; zero characters
// means no match. Tokens already carrying a mask pass through whole.
func splitOnSubstr(token tokens.TokenRef, testSubstr func(s string) (int, int, tokens.Mask), addSeparators bool) []tokens.TokenRef {
	if token.Mask != tokens.MaskNone {
		return []tokens.TokenRef{token}
	}
	var out []tokens.TokenRef
	charBegin := 0
	bytesBegin := 0
	charCount := 0
	charIdx := 0

	for bytesIdx := range token.Value {
		charCount++
		matchedBytes, matchedChars, mask := testSubstr(token.Value[bytesIdx:])
		if matchedChars > 0 {
			if charBegin < charIdx {
				trimmed := strings.TrimRightFunc(token.Value[bytesBegin:bytesIdx], unicode.IsSpace)
				trimmedLen := utf8.RuneCountInString(trimmed)
				if trimmedLen > 0 {
					out = append(out, tokens.TokenRef{
						Value: trimmed,
						Offset: tokens.NewOffset(
							token.Offset.Begin+tokens.OffsetSize(charBegin),
							token.Offset.Begin+tokens.OffsetSize(charBegin+trimmedLen),
						),
						ReferenceOffsets: token.ReferenceOffsets[charBegin : charBegin+trimmedLen],
						Mask:             tokens.MaskNone,
					})
				}
			}
			if addSeparators {
				out = append(out, tokens.TokenRef{
					Value: token.Value[bytesIdx : bytesIdx+matchedBytes],
					Offset: tokens.NewOffset(
						token.Offset.Begin+tokens.OffsetSize(charIdx),
						token.Offset.Begin+tokens.OffsetSize(charIdx+matchedChars),
					),
					ReferenceOffsets: token.ReferenceOffsets[charIdx : charIdx+matchedChars],
					Mask:             mask,
				})
			}
			charBegin = charIdx + matchedChars
			bytesBegin = bytesIdx + matchedBytes
		}
		charIdx++
	}
	if bytesBegin < len(token.Value) {
		text := token.Value[bytesBegin:]
		out = append(out, tokens.TokenRef{
			Value: text,
			Offset: tokens.NewOffset(
				token.Offset.Begin+tokens.OffsetSize(charBegin),
				token.Offset.Begin+tokens.OffsetSize(charCount),
			),
			ReferenceOffsets: token.ReferenceOffsets[charBegin:charCount],
			Mask:             tokens.MaskNone,
		})
	}
	return out
}

// SplitOnRegexWithLookahead segments a pre-token in two passes: the lookahead
// pattern places split boundaries so that exactly one whitespace character
// stays attached to the word following it, then the tokenization pattern
// extracts the final sub-words from each segment. Masked tokens pass through
// whole.
func SplitOnRegexWithLookahead(token tokens.TokenRef, patternLookahead, patternTokenization *regexp2.Regexp) []tokens.TokenRef {
	if token.Mask != tokens.MaskNone {
		return []tokens.TokenRef{token}
	}

	runes := []rune(token.Value)
	var segments [][]rune
	begin := 0
	m, _ := patternLookahead.FindRunesMatch(runes)
	for m != nil {
		// Boundary sits before the last whitespace of the run, keeping it
		// attached to the next word.
		end := m.Index + m.Length - 2
		segments = append(segments, runes[begin:end])
		begin = end
		m, _ = patternLookahead.FindNextMatch(m)
	}
	segments = append(segments, runes[begin:])

	var subWords []string
	for _, segment := range segments {
		m, _ := patternTokenization.FindRunesMatch(segment)
		for m != nil {
			subWords = append(subWords, m.String())
			m, _ = patternTokenization.FindNextMatch(m)
		}
	}

	out := make([]tokens.TokenRef, 0, len(subWords))
	beginChar := 0
	for _, subWord := range subWords {
		endChar := beginChar + utf8.RuneCountInString(subWord)
		out = append(out, tokens.TokenRef{
			Value: subWord,
			Offset: tokens.NewOffset(
				token.Offset.Begin+tokens.OffsetSize(beginChar),
				token.Offset.Begin+tokens.OffsetSize(endChar),
			),
			ReferenceOffsets: token.ReferenceOffsets[beginChar:endChar],
			Mask:             tokens.MaskNone,
		})
		beginChar = endChar
	}
	return out
}

// splitOnChar splits a pre-token at every character accepted by test. When
// addSeparators is set the separating characters are kept as singleton tokens
// with setMask; otherwise they are dropped.
func splitOnChar(token tokens.TokenRef, test func(r rune) bool, addSeparators bool, setMask tokens.Mask) []tokens.TokenRef {
	if token.Mask != tokens.MaskNone {
		return []tokens.TokenRef{token}
	}
	var out []tokens.TokenRef
	charBegin := 0
	bytesBegin := 0
	charIdx := 0

	for bytesIdx, r := range token.Value {
		if test(r) {
			if charBegin < charIdx {
				out = append(out, tokens.TokenRef{
					Value: token.Value[bytesBegin:bytesIdx],
					Offset: tokens.NewOffset(
						token.Offset.Begin+tokens.OffsetSize(charBegin),
						token.Offset.Begin+tokens.OffsetSize(charIdx),
					),
					ReferenceOffsets: token.ReferenceOffsets[charBegin:charIdx],
					Mask:             tokens.MaskNone,
				})
			}
			if addSeparators {
				out = append(out, tokens.TokenRef{
					Value: token.Value[bytesIdx : bytesIdx+utf8.RuneLen(r)],
					Offset: tokens.NewOffset(
						token.Offset.Begin+tokens.OffsetSize(charIdx),
						token.Offset.Begin+tokens.OffsetSize(charIdx+1),
					),
					ReferenceOffsets: token.ReferenceOffsets[charIdx : charIdx+1],
					Mask:             setMask,
				})
			}
			charBegin = charIdx + 1
			bytesBegin = bytesIdx + utf8.RuneLen(r)
		}
		charIdx++
	}
	if bytesBegin < len(token.Value) {
		out = append(out, tokens.TokenRef{
			Value: token.Value[bytesBegin:],
			Offset: tokens.NewOffset(
				token.Offset.Begin+tokens.OffsetSize(charBegin),
				token.Offset.Begin+tokens.OffsetSize(charIdx),
			),
			ReferenceOffsets: token.ReferenceOffsets[charBegin:charIdx],
			Mask:             tokens.MaskNone,
		})
	}
	return out
}

// WhitespaceTokenize splits a pre-token on whitespace, dropping the
// separators.
func WhitespaceTokenize(token tokens.TokenRef) []tokens.TokenRef {
	return splitOnChar(token, IsWhitespace, false, tokens.MaskWhitespace)
}

// SplitOnPunct splits a pre-token around punctuation characters, keeping each
// as a singleton Punctuation-masked token.
func SplitOnPunct(token tokens.TokenRef) []tokens.TokenRef {
	return splitOnChar(token, IsPunctuation, true, tokens.MaskPunctuation)
}

// TokenizeCJKChars splits a pre-token around CJK characters, keeping each as
// a singleton CJK-masked token.
func TokenizeCJKChars(token tokens.TokenRef) []tokens.TokenRef {
	return splitOnChar(token, IsCJKChar, true, tokens.MaskCJK)
}

// Lowercase lowercases a token in place, remapping reference offsets so that
// multi-character lowercase expansions still point at their source character.
func Lowercase(token *tokens.Token) {
	var sb strings.Builder
	sb.Grow(len(token.Value))
	mapping := make([]tokens.OffsetSize, 0, len(token.ReferenceOffsets))
	pos := 0
	for _, r := range token.Value {
		for _, lowered := range strings.ToLower(string(r)) {
			sb.WriteRune(lowered)
			mapping = append(mapping, token.ReferenceOffsets[pos])
		}
		pos++
	}
	token.Value = sb.String()
	token.ReferenceOffsets = mapping
	updateOffsetFromReferences(token)
}

// StripAccents removes combining marks after canonical decomposition,
// remapping reference offsets like Lowercase does.
func StripAccents(token *tokens.Token) {
	var sb strings.Builder
	sb.Grow(len(token.Value))
	mapping := make([]tokens.OffsetSize, 0, len(token.ReferenceOffsets))
	pos := 0
	for _, r := range token.Value {
		for _, decomposed := range norm.NFD.String(string(r)) {
			if unicode.Is(unicode.Mn, decomposed) {
				continue
			}
			sb.WriteRune(decomposed)
			mapping = append(mapping, token.ReferenceOffsets[pos])
		}
		pos++
	}
	token.Value = sb.String()
	token.ReferenceOffsets = mapping
	updateOffsetFromReferences(token)
}

// CleanText drops control characters and normalizes whitespace variants to a
// plain space, in place.
func CleanText(token *tokens.Token, strict bool) {
	var sb strings.Builder
	sb.Grow(len(token.Value))
	mapping := make([]tokens.OffsetSize, 0, len(token.ReferenceOffsets))
	pos := 0
	for _, r := range token.Value {
		if r == 0 || r == utf8.RuneError || IsControl(r, strict) {
			pos++
			continue
		}
		if IsWhitespace(r) {
			sb.WriteRune(' ')
		} else {
			sb.WriteRune(r)
		}
		mapping = append(mapping, token.ReferenceOffsets[pos])
		pos++
	}
	token.Value = sb.String()
	token.ReferenceOffsets = mapping
	updateOffsetFromReferences(token)
}

func updateOffsetFromReferences(token *tokens.Token) {
	if len(token.ReferenceOffsets) == 0 {
		token.Offset = tokens.Offset{}
		return
	}
	token.Offset = tokens.NewOffset(
		token.ReferenceOffsets[0],
		token.ReferenceOffsets[len(token.ReferenceOffsets)-1]+1,
	)
}

// IsWhitespace reports whether r separates words: ASCII blank characters or
// any unicode space separator.
func IsWhitespace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r':
		return true
	}
	return unicode.Is(unicode.Zs, r)
}

// IsControl reports whether r is a control character. Tab, newline and
// carriage return count as whitespace instead. In non-strict mode format
// characters (category Cf) are kept.
func IsControl(r rune, strict bool) bool {
	switch r {
	case '\t', '\n', '\r':
		return false
	}
	if strict {
		return unicode.Is(unicode.C, r)
	}
	return unicode.IsControl(r)
}

// IsPunctuation reports whether r is punctuation. As in the original BERT
// tokenization, all non-alphanumeric ASCII characters count as punctuation
// even when unicode classifies them otherwise (like $ or @).
func IsPunctuation(r rune) bool {
	if (r >= 33 && r <= 47) || (r >= 58 && r <= 64) || (r >= 91 && r <= 96) || (r >= 123 && r <= 126) {
		return true
	}
	return unicode.IsPunct(r)
}

// cjkRanges covers the CJK unicode blocks treated as standalone characters.
var cjkRanges = [][2]rune{
	{0x4E00, 0x9FFF},
	{0x3400, 0x4DBF},
	{0x20000, 0x2A6DF},
	{0x2A700, 0x2B73F},
	{0x2B740, 0x2B81F},
	{0x2B820, 0x2CEAF},
	{0xF900, 0xFAFF},
	{0x2F800, 0x2FA1F},
}

// IsCJKChar reports whether r falls in one of the CJK ideograph blocks.
func IsCJKChar(r rune) bool {
	for _, rng := range cjkRanges {
		if r >= rng[0] && r <= rng[1] {
			return true
		}
	}
	return false
}
