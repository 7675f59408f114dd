// Package tokens defines the primitives shared by every tokenizer in this
// module: character offsets into the original text, token masks, and the
// owned/borrowed token representations produced by tokenization.
package tokens

import "unicode/utf8"

// OffsetSize is the primitive used to store positions in the original text,
// counted in unicode code points.
type OffsetSize = uint32

// Offset is a span of character positions relating a token back to its
// original input string. End is exclusive.
type Offset struct {
	Begin OffsetSize
	End   OffsetSize
}

// NewOffset creates an Offset from begin and end positions.
func NewOffset(begin, end OffsetSize) Offset {
	return Offset{Begin: begin, End: end}
}

// Valid reports whether the offset denotes a non-empty span.
func (o Offset) Valid() bool {
	return o.End > o.Begin
}

// Mask classifies a token (special marker, whitespace, subword piece, ...).
type Mask int

const (
	// MaskNone is the default: no particular marking, further processing may
	// apply to the token.
	MaskNone Mask = iota
	// MaskWhitespace marks a whitespace token in any shape or form.
	MaskWhitespace
	// MaskPunctuation marks a punctuation token.
	MaskPunctuation
	// MaskCJK marks a single Chinese/Japanese/Korean character.
	MaskCJK
	// MaskSpecial marks a special token such as a separator or class marker.
	MaskSpecial
	// MaskBegin marks the first sub-token of a multi-piece run. Subsequent
	// pieces of the run carry MaskContinuation.
	MaskBegin
	// MaskContinuation marks every sub-token of a run except the first.
	MaskContinuation
	// MaskUnfinished marks every sub-token of a run except the last, the
	// reverse convention of MaskContinuation.
	MaskUnfinished
	// MaskUnknown marks a token that is out of vocabulary and will decode to
	// the unknown token.
	MaskUnknown
)

var maskNames = map[Mask]string{
	MaskNone:         "none",
	MaskWhitespace:   "whitespace",
	MaskPunctuation:  "punctuation",
	MaskCJK:          "cjk",
	MaskSpecial:      "special",
	MaskBegin:        "begin",
	MaskContinuation: "continuation",
	MaskUnfinished:   "unfinished",
	MaskUnknown:      "unknown",
}

func (m Mask) String() string {
	if name, ok := maskNames[m]; ok {
		return name
	}
	return "invalid"
}

// View gives read access to a token's fields irrespective of its form
// (borrowed reference or owned).
type View interface {
	// Bounds returns the token's span with respect to the original text, and
	// whether that span is valid (non-empty).
	Bounds() (Offset, bool)
	// TokenMask returns the token's mask.
	TokenMask() Mask
	// Text returns the token's string representation.
	Text() string
}

// TokenRef is a token that borrows its text and reference offsets from a
// shared backing buffer. Use ToOwned to detach it.
type TokenRef struct {
	// Value is the string representation, typically a slice of the original
	// text.
	Value string
	// Offset is the token's span with respect to the original text.
	Offset Offset
	// ReferenceOffsets holds one original character position per character of
	// Value. For a token with offset begin 4 and end 10, reference offsets
	// are [4, 5, 6, 7, 8, 9].
	ReferenceOffsets []OffsetSize
	// Mask indicates the type of the token.
	Mask Mask
}

// NewTokenRef creates a token reference from a text and the positions of its
// characters with respect to the original text.
func NewTokenRef(text string, offsets []OffsetSize) TokenRef {
	return TokenRef{
		Value:            text,
		Offset:           Offset{Begin: 0, End: OffsetSize(len(offsets))},
		ReferenceOffsets: offsets,
		Mask:             MaskNone,
	}
}

// ToOwned copies the token reference into an owned Token.
func (t TokenRef) ToOwned() Token {
	return Token{
		Value:            t.Value,
		Offset:           t.Offset,
		ReferenceOffsets: append([]OffsetSize(nil), t.ReferenceOffsets...),
		Mask:             t.Mask,
	}
}

// Bounds implements View.
func (t TokenRef) Bounds() (Offset, bool) { return t.Offset, t.Offset.Valid() }

// TokenMask implements View.
func (t TokenRef) TokenMask() Mask { return t.Mask }

// Text implements View.
func (t TokenRef) Text() string { return t.Value }

// Token owns its text and reference offsets.
type Token struct {
	// Value is the string representation.
	Value string
	// Offset is the token's span with respect to the original text.
	Offset Offset
	// ReferenceOffsets holds one original character position per character of
	// Value.
	ReferenceOffsets []OffsetSize
	// Mask indicates the type of the token.
	Mask Mask
}

// NewToken creates an owned standalone token: its reference offsets simply
// enumerate its own characters.
func NewToken(text string) Token {
	size := OffsetSize(utf8.RuneCountInString(text))
	offsets := make([]OffsetSize, size)
	for i := range offsets {
		offsets[i] = OffsetSize(i)
	}
	return Token{
		Value:            text,
		Offset:           Offset{Begin: 0, End: size},
		ReferenceOffsets: offsets,
		Mask:             MaskNone,
	}
}

// AsRef returns a reference form of the token sharing its backing data.
func (t *Token) AsRef() TokenRef {
	return TokenRef{
		Value:            t.Value,
		Offset:           t.Offset,
		ReferenceOffsets: t.ReferenceOffsets,
		Mask:             t.Mask,
	}
}

// Bounds implements View.
func (t Token) Bounds() (Offset, bool) { return t.Offset, t.Offset.Valid() }

// TokenMask implements View.
func (t Token) TokenMask() Mask { return t.Mask }

// Text implements View.
func (t Token) Text() string { return t.Value }
