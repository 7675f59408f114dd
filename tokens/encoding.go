package tokens

// TokensWithOffsets is a tokenized sequence before encoding to ids: the token
// strings plus the offset information relating each one to the original text.
type TokensWithOffsets struct {
	// Tokens holds the token string representations.
	Tokens []string
	// Offsets holds the span of each token in the original text, nil when the
	// token cannot be related to the original source.
	Offsets []*Offset
	// ReferenceOffsets holds, for each token, one original position per
	// character of the token.
	ReferenceOffsets [][]OffsetSize
	// Masks classifies each token. Same length as Tokens.
	Masks []Mask
}

// TokenIDsWithOffsets is an encoded sequence before the addition of special
// tokens and truncation.
type TokenIDsWithOffsets struct {
	IDs              []int64
	Offsets          []*Offset
	ReferenceOffsets [][]OffsetSize
	Masks            []Mask
}

// TokenIDsWithSpecialTokens is the concatenation of one or two encoded
// sequences, before truncation to a maximum length.
type TokenIDsWithSpecialTokens struct {
	TokenIDs          []int64
	SegmentIDs        []int8
	SpecialTokensMask []int8
	TokenOffsets      []*Offset
	ReferenceOffsets  [][]OffsetSize
	Mask              []Mask
}

// TokenizedInput is the final output of the encoding process, ready for
// consumption by a language model. All per-token vectors share the length of
// TokenIDs, except OverflowingTokens.
type TokenizedInput struct {
	// TokenIDs holds the encoded token ids.
	TokenIDs []int64
	// SegmentIDs holds 0 for the first sequence and 1 for the second.
	SegmentIDs []int8
	// SpecialTokensMask flags special tokens (1) against regular tokens (0).
	SpecialTokensMask []int8
	// OverflowingTokens holds the tokens removed by truncation, in original
	// order, preceded by up to stride tokens copied from the retained
	// sequence.
	OverflowingTokens []int64
	// NumTruncatedTokens is the number of tokens removed by truncation.
	NumTruncatedTokens int
	// TokenOffsets holds the span of each token in the original text, nil for
	// tokens with no original source.
	TokenOffsets []*Offset
	// ReferenceOffsets holds per-character original positions for each token.
	ReferenceOffsets [][]OffsetSize
	// Mask classifies each token.
	Mask []Mask
}
