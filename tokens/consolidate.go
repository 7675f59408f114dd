package tokens

import "iter"

// Consolidate iterates over maximal runs of tokens that belong together,
// grouping each token carrying MaskContinuation with the token that started
// its run. It yields subslices of the input, no token data is copied; the
// sequence can be restarted by ranging over it again.
func Consolidate[T View](toks []T) iter.Seq[[]T] {
	return func(yield func([]T) bool) {
		begin := 0
		for cursor := 1; cursor <= len(toks); cursor++ {
			if cursor < len(toks) && toks[cursor].TokenMask() == MaskContinuation {
				continue
			}
			if !yield(toks[begin:cursor]) {
				return
			}
			begin = cursor
		}
	}
}
