package bpe

import (
	"unicode/utf8"

	"github.com/gomlx/go-bpetokenizer/tokens"
	"github.com/gomlx/go-bpetokenizer/vocab"
)

// Apply runs the greedy merge loop on value: start with one symbol per
// character and repeatedly replace every non-overlapping left-to-right
// occurrence of the lowest-ranked adjacent pair until no ranked pair remains.
// It returns the merged pieces and, per piece, the number of characters it
// consumed from value. Pure function of (value, table).
func Apply(value string, table *vocab.MergeTable) ([]string, []int) {
	symbols := make([]string, 0, utf8.RuneCountInString(value))
	for _, r := range value {
		symbols = append(symbols, string(r))
	}
	for len(symbols) > 1 {
		left, right, ok := lowestRankedPair(symbols, table)
		if !ok {
			break
		}
		symbols = mergePair(symbols, left, right)
	}
	counts := make([]int, len(symbols))
	for i, s := range symbols {
		counts[i] = utf8.RuneCountInString(s)
	}
	return symbols, counts
}

func lowestRankedPair(symbols []string, table *vocab.MergeTable) (left, right string, ok bool) {
	best := int64(-1)
	for i := 0; i < len(symbols)-1; i++ {
		rank, found := table.Rank(symbols[i], symbols[i+1])
		if !found {
			continue
		}
		if best < 0 || rank < best {
			best = rank
			left, right = symbols[i], symbols[i+1]
		}
	}
	return left, right, best >= 0
}

func mergePair(symbols []string, left, right string) []string {
	out := make([]string, 0, len(symbols))
	for i := 0; i < len(symbols); {
		if i+1 < len(symbols) && symbols[i] == left && symbols[i+1] == right {
			out = append(out, left+right)
			i += 2
		} else {
			out = append(out, symbols[i])
			i++
		}
	}
	return out
}

// SplitOnBPEPairs byte-projects the pre-token, merges it against the table
// (consulting the cache first) and reassigns offsets: each merged piece keeps
// the reference offsets of the characters it consumed. A single resulting
// piece keeps MaskNone; multiple pieces get MaskBegin then MaskContinuation.
func SplitOnBPEPairs(token tokens.TokenRef, table *vocab.MergeTable, cache *Cache) []tokens.Token {
	projected := ProjectBytes(token)

	pieces, counts, hit := cache.Lookup(projected.Value)
	if !hit {
		pieces, counts = Apply(projected.Value, table)
		cache.Store(projected.Value, pieces, counts)
	}

	out := make([]tokens.Token, 0, len(pieces))
	begin := 0
	for i, piece := range pieces {
		end := begin + counts[i]
		refOffsets := projected.ReferenceOffsets[begin:end]
		mask := tokens.MaskNone
		if len(pieces) > 1 {
			if i == 0 {
				mask = tokens.MaskBegin
			} else {
				mask = tokens.MaskContinuation
			}
		}
		out = append(out, tokens.Token{
			Value:            piece,
			Offset:           tokens.NewOffset(refOffsets[0], refOffsets[len(refOffsets)-1]+1),
			ReferenceOffsets: append([]tokens.OffsetSize(nil), refOffsets...),
			Mask:             mask,
		})
		begin = end
	}
	return out
}
