package tokenizer

import (
	"github.com/pkg/errors"

	"github.com/gomlx/go-bpetokenizer/tokens"
)

// TruncationStrategy selects which sequence of an encoded input loses tokens
// when the combined length exceeds the maximum.
type TruncationStrategy int

const (
	// LongestFirst removes tokens one at a time from whichever sequence is
	// currently longer. On equal lengths the second sequence loses the token.
	LongestFirst TruncationStrategy = iota

	// OnlyFirst removes tokens from the tail of the first sequence only.
	OnlyFirst

	// OnlySecond removes tokens from the tail of the second sequence only.
	OnlySecond

	// DoNotTruncate fails whenever truncation would be required.
	DoNotTruncate
)

var truncationStrategyNames = map[TruncationStrategy]string{
	LongestFirst:  "longest_first",
	OnlyFirst:     "only_first",
	OnlySecond:    "only_second",
	DoNotTruncate: "do_not_truncate",
}

func (s TruncationStrategy) String() string {
	if name, ok := truncationStrategyNames[s]; ok {
		return name
	}
	return "unknown"
}

// TruncateSequences removes numTokensToRemove tokens from one or two id
// sequences according to the strategy, keeping offsets, reference offsets and
// masks in sync. It returns the truncated sequences, the overflowing ids in
// their original order, and their offsets. After truncation up to stride
// trailing tokens of the retained sequence are copied (not moved) to the
// front of the overflow. Failures wrap ErrValue.
func TruncateSequences(
	seq1 tokens.TokenIDsWithOffsets,
	seq2 *tokens.TokenIDsWithOffsets,
	numTokensToRemove int,
	strategy TruncationStrategy,
	stride int,
) (tokens.TokenIDsWithOffsets, *tokens.TokenIDsWithOffsets, []int64, []*tokens.Offset, error) {
	if numTokensToRemove == 0 {
		return seq1, seq2, nil, nil, nil
	}

	if seq2 == nil {
		switch strategy {
		case LongestFirst, OnlyFirst:
			if len(seq1.IDs) < numTokensToRemove {
				return seq1, seq2, nil, nil, errors.Wrap(ErrValue, "first sequence too short for requested truncation")
			}
			overflowIDs, overflowOffsets := truncateWithOverflow(&seq1, numTokensToRemove, stride)
			return seq1, seq2, overflowIDs, overflowOffsets, nil
		case OnlySecond:
			return seq1, seq2, nil, nil, errors.Wrap(ErrValue, "invalid truncation strategy for single sequence truncation")
		default:
			return seq1, seq2, nil, nil, errors.Wrap(ErrValue, "truncation needed but not allowed by truncation strategy")
		}
	}

	switch strategy {
	case LongestFirst:
		if len(seq1.IDs)+len(seq2.IDs) < numTokensToRemove {
			return seq1, seq2, nil, nil, errors.Wrap(ErrValue, "combined sequence length too short for requested truncation")
		}
		popped := make([]int64, 0, numTokensToRemove)
		poppedOffsets := make([]*tokens.Offset, 0, numTokensToRemove)
		for i := 0; i < numTokensToRemove; i++ {
			target := seq2
			if len(seq1.IDs) > len(seq2.IDs) {
				target = &seq1
			}
			id, offset := popLast(target)
			popped = append(popped, id)
			poppedOffsets = append(poppedOffsets, offset)
		}
		// Popped last-first; restore original order.
		reverse(popped)
		reverse(poppedOffsets)
		overflowIDs, overflowOffsets := prependStrideWindow(&seq1, popped, poppedOffsets, stride)
		return seq1, seq2, overflowIDs, overflowOffsets, nil

	case OnlyFirst:
		if len(seq1.IDs) < numTokensToRemove {
			return seq1, seq2, nil, nil, errors.Wrap(ErrValue, "first sequence too short for requested truncation")
		}
		overflowIDs, overflowOffsets := truncateWithOverflow(&seq1, numTokensToRemove, stride)
		return seq1, seq2, overflowIDs, overflowOffsets, nil

	case OnlySecond:
		if len(seq2.IDs) < numTokensToRemove {
			return seq1, seq2, nil, nil, errors.Wrap(ErrValue, "second sequence too short for requested truncation")
		}
		overflowIDs, overflowOffsets := truncateWithOverflow(seq2, numTokensToRemove, stride)
		return seq1, seq2, overflowIDs, overflowOffsets, nil

	default:
		return seq1, seq2, nil, nil, errors.Wrap(ErrValue, "truncation needed but not allowed by truncation strategy")
	}
}

// truncateWithOverflow moves the last numTokensToRemove ids of seq into an
// overflow buffer and copies up to stride retained trailing ids in front of
// it.
func truncateWithOverflow(seq *tokens.TokenIDsWithOffsets, numTokensToRemove, stride int) ([]int64, []*tokens.Offset) {
	cutoff := len(seq.IDs) - numTokensToRemove
	overflowIDs := append([]int64(nil), seq.IDs[cutoff:]...)
	seq.IDs = seq.IDs[:cutoff]

	var overflowOffsets []*tokens.Offset
	if len(seq.Offsets) > 0 {
		overflowOffsets = append([]*tokens.Offset(nil), seq.Offsets[cutoff:]...)
		seq.Offsets = seq.Offsets[:cutoff]
	}
	if len(seq.ReferenceOffsets) > 0 {
		seq.ReferenceOffsets = seq.ReferenceOffsets[:cutoff]
	}
	if len(seq.Masks) > 0 {
		seq.Masks = seq.Masks[:cutoff]
	}
	return prependStrideWindow(seq, overflowIDs, overflowOffsets, stride)
}

// prependStrideWindow copies up to stride trailing ids of the retained
// sequence to the front of the overflow buffer, so consecutive windows
// overlap.
func prependStrideWindow(seq *tokens.TokenIDsWithOffsets, overflowIDs []int64, overflowOffsets []*tokens.Offset, stride int) ([]int64, []*tokens.Offset) {
	windowLen := min(len(seq.IDs), stride)
	if windowLen == 0 {
		return overflowIDs, overflowOffsets
	}
	ids := append([]int64(nil), seq.IDs[len(seq.IDs)-windowLen:]...)
	overflowIDs = append(ids, overflowIDs...)
	if len(seq.Offsets) > 0 {
		offsets := append([]*tokens.Offset(nil), seq.Offsets[len(seq.Offsets)-windowLen:]...)
		overflowOffsets = append(offsets, overflowOffsets...)
	}
	return overflowIDs, overflowOffsets
}

func popLast(seq *tokens.TokenIDsWithOffsets) (int64, *tokens.Offset) {
	last := len(seq.IDs) - 1
	id := seq.IDs[last]
	seq.IDs = seq.IDs[:last]

	var offset *tokens.Offset
	if len(seq.Offsets) > 0 {
		offset = seq.Offsets[len(seq.Offsets)-1]
		seq.Offsets = seq.Offsets[:len(seq.Offsets)-1]
	}
	if len(seq.ReferenceOffsets) > 0 {
		seq.ReferenceOffsets = seq.ReferenceOffsets[:len(seq.ReferenceOffsets)-1]
	}
	if len(seq.Masks) > 0 {
		seq.Masks = seq.Masks[:len(seq.Masks)-1]
	}
	return id, offset
}

func reverse[T any](s []T) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
