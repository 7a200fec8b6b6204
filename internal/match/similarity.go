package match

/*
 * String similarity for the fuzzy fallback.
 *
 * Similarity is an injectable strategy so the algorithm can be swapped
 * without touching the cascade. The default is a Gestalt ratio
 * (recursive longest-matching-substring, 2*M / (len(a)+len(b))), which
 * reproduces the score profile the configured thresholds were tuned
 * against: exact equality yields 1.0, "jon doe" vs "john doe" ~0.93.
 */

// Similarity scores two strings in [0, 1]. Implementations must be pure
// and symmetric-enough for threshold comparison; callers normalize case
// and whitespace before scoring.
type Similarity interface {
	Ratio(a, b string) float64
}

// DefaultFuzzyThreshold is the minimum accepted score for a fuzzy name
// match when the caller does not configure one.
const DefaultFuzzyThreshold = 0.85

// Gestalt implements ratio-based sequence similarity.
type Gestalt struct{}

// Ratio returns 2*M/(len(a)+len(b)) where M is the total size of matching
// blocks found by recursive longest-common-substring decomposition.
func (Gestalt) Ratio(a, b string) float64 {
	if a == b {
		return 1.0
	}
	ra, rb := []rune(a), []rune(b)
	if len(ra)+len(rb) == 0 {
		return 1.0
	}
	if len(ra) == 0 || len(rb) == 0 {
		return 0.0
	}
	matched := matchingTotal(ra, rb)
	return 2.0 * float64(matched) / float64(len(ra)+len(rb))
}

type matchSpan struct {
	alo, ahi, blo, bhi int
}

// matchingTotal sums matching block sizes: find the longest common
// substring, then recurse into the unmatched regions on each side.
// Iterative with an explicit stack; regions never overlap so the sum is
// exact.
func matchingTotal(a, b []rune) int {
	// Positions of each rune in b, for the inner longest-match scan
	b2j := make(map[rune][]int, len(b))
	for j, r := range b {
		b2j[r] = append(b2j[r], j)
	}

	total := 0
	stack := []matchSpan{{0, len(a), 0, len(b)}}
	for len(stack) > 0 {
		span := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		besti, bestj, size := longestMatch(a, b2j, span)
		if size == 0 {
			continue
		}
		total += size
		if span.alo < besti && span.blo < bestj {
			stack = append(stack, matchSpan{span.alo, besti, span.blo, bestj})
		}
		if besti+size < span.ahi && bestj+size < span.bhi {
			stack = append(stack, matchSpan{besti + size, span.ahi, bestj + size, span.bhi})
		}
	}
	return total
}

// longestMatch finds the longest block where a[i:i+k] == b[j:j+k] within
// the span. Earliest block in a wins ties, matching the reference
// sequence-matcher behavior.
func longestMatch(a []rune, b2j map[rune][]int, span matchSpan) (besti, bestj, bestsize int) {
	besti, bestj = span.alo, span.blo
	j2len := make(map[int]int)
	for i := span.alo; i < span.ahi; i++ {
		newJ2len := make(map[int]int)
		for _, j := range b2j[a[i]] {
			if j < span.blo {
				continue
			}
			if j >= span.bhi {
				break
			}
			k := j2len[j-1] + 1
			newJ2len[j] = k
			if k > bestsize {
				besti, bestj, bestsize = i-k+1, j-k+1, k
			}
		}
		j2len = newJ2len
	}
	return besti, bestj, bestsize
}
