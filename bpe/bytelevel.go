// Package bpe implements the byte-pair-encoding core: the reversible
// byte-to-printable-rune projection used by GPT-2 style vocabularies, the
// rank-driven greedy merge loop, and a non-blocking memoization cache for
// per-word results.
package bpe

import (
	"strings"
	"unicode/utf8"

	"github.com/gomlx/go-bpetokenizer/tokens"
)

// SpaceMarker is the printable rune GPT-2 vocabularies use in place of the
// space byte 0x20.
const SpaceMarker = 'Ġ'

var (
	byteToRune [256]rune
	runeToByte map[rune]byte
)

func init() {
	runeToByte = make(map[rune]byte, 256)
	printable := func(b int) bool {
		return (b >= '!' && b <= '~') || (b >= 0xA1 && b <= 0xAC) || (b >= 0xAE && b <= 0xFF)
	}
	n := 0
	for b := 0; b < 256; b++ {
		var r rune
		if printable(b) {
			r = rune(b)
		} else {
			r = rune(256 + n)
			n++
		}
		byteToRune[b] = r
		runeToByte[r] = byte(b)
	}
}

// ProjectBytes maps each UTF-8 byte of the token's text to its printable
// stand-in rune, expanding the reference offsets so that every produced byte
// points back at the character it came from. The result is suitable as BPE
// merge input.
func ProjectBytes(token tokens.TokenRef) tokens.Token {
	var sb strings.Builder
	sb.Grow(len(token.Value) * 2)
	refOffsets := make([]tokens.OffsetSize, 0, len(token.Value))

	var buf [utf8.UTFMax]byte
	pos := 0
	for _, r := range token.Value {
		width := utf8.EncodeRune(buf[:], r)
		for i := 0; i < width; i++ {
			sb.WriteRune(byteToRune[buf[i]])
			refOffsets = append(refOffsets, token.ReferenceOffsets[pos])
		}
		pos++
	}

	out := tokens.Token{
		Value:            sb.String(),
		Offset:           token.Offset,
		ReferenceOffsets: refOffsets,
		Mask:             token.Mask,
	}
	return out
}

// UnprojectRunes inverts the byte projection, turning each stand-in rune back
// into its original byte. Runes outside the projection table pass through
// unchanged, so decoding never fails; callers sanitize the result for UTF-8
// validity.
func UnprojectRunes(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range s {
		if b, ok := runeToByte[r]; ok {
			sb.WriteByte(b)
		} else {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
