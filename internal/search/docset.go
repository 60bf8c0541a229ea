package search

import "sort"

// DocSet is a sorted, duplicate-free set of internal doc ids.
type DocSet []uint32

// NewDocSet builds a DocSet from ids in any order.
func NewDocSet(ids ...uint32) DocSet {
	if len(ids) == 0 {
		return DocSet{}
	}
	out := make(DocSet, len(ids))
	copy(out, ids)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })

	n := 1
	for i := 1; i < len(out); i++ {
		if out[i] != out[n-1] {
			out[n] = out[i]
			n++
		}
	}
	return out[:n]
}

// Contains reports whether id is in the set.
func (s DocSet) Contains(id uint32) bool {
	i := sort.Search(len(s), func(i int) bool { return s[i] >= id })
	return i < len(s) && s[i] == id
}

// And returns the intersection of s and other.
func (s DocSet) And(other DocSet) DocSet {
	out := make(DocSet, 0, min(len(s), len(other)))
	i, j := 0, 0
	for i < len(s) && j < len(other) {
		switch {
		case s[i] == other[j]:
			out = append(out, s[i])
			i++
			j++
		case s[i] < other[j]:
			i++
		default:
			j++
		}
	}
	return out
}

// Or returns the union of s and other.
func (s DocSet) Or(other DocSet) DocSet {
	out := make(DocSet, 0, len(s)+len(other))
	i, j := 0, 0
	for i < len(s) || j < len(other) {
		switch {
		case j == len(other) || (i < len(s) && s[i] < other[j]):
			out = append(out, s[i])
			i++
		case i == len(s) || other[j] < s[i]:
			out = append(out, other[j])
			j++
		default:
			out = append(out, s[i])
			i++
			j++
		}
	}
	return out
}

// AndNot returns the ids of s that are not in other.
func (s DocSet) AndNot(other DocSet) DocSet {
	out := make(DocSet, 0, len(s))
	j := 0
	for _, id := range s {
		for j < len(other) && other[j] < id {
			j++
		}
		if j < len(other) && other[j] == id {
			continue
		}
		out = append(out, id)
	}
	return out
}
