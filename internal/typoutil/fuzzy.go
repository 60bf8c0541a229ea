package typoutil

import (
	"sort"
)

// MaxEdits is the largest edit distance a fuzzy term may be expanded with.
const MaxEdits = 2

// AutoEdits returns the edit distance allowed for a term of the given rune
// length: none up to 2 runes, one up to 5, two beyond.
func AutoEdits(termLength int) int {
	switch {
	case termLength <= 2:
		return 0
	case termLength <= 5:
		return 1
	default:
		return MaxEdits
	}
}

// Options control a fuzzy expansion.
type Options struct {
	MaxEdits       int
	PrefixLength   int
	MaxExpansions  int
	Transpositions bool
}

// Candidate is an indexed term within reach of the expanded term.
type Candidate struct {
	Term  string
	Edits int
}

// Expand returns the terms of indexed within opts.MaxEdits of term, the term
// itself included when indexed. Terms must share the first opts.PrefixLength
// runes of term. Candidates are ordered by edit distance, then term, and cut
// to opts.MaxExpansions when it is positive.
func Expand(term string, indexed []string, opts Options) []Candidate {
	maxEdits := min(max(opts.MaxEdits, 0), MaxEdits)
	termRunes := []rune(term)
	prefix := string(termRunes[:min(max(opts.PrefixLength, 0), len(termRunes))])

	candidates := make([]Candidate, 0)
	for _, candidate := range indexed {
		if !hasRunePrefix(candidate, prefix) {
			continue
		}
		edits := Distance(term, candidate, maxEdits, opts.Transpositions)
		if edits <= maxEdits {
			candidates = append(candidates, Candidate{Term: candidate, Edits: edits})
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Edits != candidates[j].Edits {
			return candidates[i].Edits < candidates[j].Edits
		}
		return candidates[i].Term < candidates[j].Term
	})
	if opts.MaxExpansions > 0 && len(candidates) > opts.MaxExpansions {
		candidates = candidates[:opts.MaxExpansions]
	}
	return candidates
}

func hasRunePrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}
