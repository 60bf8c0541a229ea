// Package typoutil computes edit distances and expands a misspelled term to
// the indexed terms within reach.
package typoutil

// Distance returns the edit distance between a and b counted on runes. With
// transpositions a swap of two adjacent runes counts as one edit
// (Damerau-Levenshtein). Once the distance is known to exceed maxEdits,
// maxEdits+1 is returned. A negative maxEdits disables the limit.
func Distance(a, b string, maxEdits int, transpositions bool) int {
	runesA := []rune(a)
	runesB := []rune(b)
	lenA, lenB := len(runesA), len(runesB)

	limited := maxEdits >= 0
	if limited && abs(lenA-lenB) > maxEdits {
		return maxEdits + 1
	}
	if lenA == 0 {
		return lenB
	}
	if lenB == 0 {
		return lenA
	}

	// Three rows: transpositions look back two rows.
	prevPrev := make([]int, lenB+1)
	prev := make([]int, lenB+1)
	curr := make([]int, lenB+1)
	for j := 0; j <= lenB; j++ {
		prev[j] = j
	}

	for i := 1; i <= lenA; i++ {
		curr[0] = i
		rowMin := i
		for j := 1; j <= lenB; j++ {
			cost := 1
			if runesA[i-1] == runesB[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)

			if transpositions && i > 1 && j > 1 &&
				runesA[i-1] == runesB[j-2] && runesA[i-2] == runesB[j-1] {
				curr[j] = min(curr[j], prevPrev[j-2]+cost)
			}
			rowMin = min(rowMin, curr[j])
		}
		if limited && rowMin > maxEdits {
			return maxEdits + 1
		}
		prevPrev, prev, curr = prev, curr, prevPrev
	}
	return prev[lenB]
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
