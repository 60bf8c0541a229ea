package typoutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistance(t *testing.T) {
	tests := []struct {
		name           string
		a, b           string
		maxEdits       int
		transpositions bool
		want           int
	}{
		{"both empty", "", "", -1, false, 0},
		{"a empty", "", "hello", -1, false, 5},
		{"identical", "hello", "hello", -1, false, 0},
		{"substitution", "kitten", "sitten", -1, false, 1},
		{"insertion", "apple", "applye", -1, false, 1},
		{"deletion", "banana", "banna", -1, false, 1},
		{"multiple edits", "saturday", "sunday", -1, false, 3},
		{"unicode", "résumé", "resume", -1, false, 2},
		{"swap without transpositions", "form", "from", -1, false, 2},
		{"swap with transpositions", "form", "from", -1, true, 1},
		{"limit on length difference", "a", "abcdef", 2, false, 3},
		{"limit on row minimum", "abcdef", "uvwxyz", 1, false, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Distance(tt.a, tt.b, tt.maxEdits, tt.transpositions))
		})
	}
}

func TestAutoEdits(t *testing.T) {
	assert.Equal(t, 0, AutoEdits(2))
	assert.Equal(t, 1, AutoEdits(3))
	assert.Equal(t, 1, AutoEdits(5))
	assert.Equal(t, 2, AutoEdits(6))
}

func TestExpand(t *testing.T) {
	indexed := []string{"apple", "apply", "apricot", "banana", "search", "serch", "seech"}

	t.Run("includes the exact term first", func(t *testing.T) {
		got := Expand("apple", indexed, Options{MaxEdits: 1})
		assert.Equal(t, []Candidate{{Term: "apple", Edits: 0}, {Term: "apply", Edits: 1}}, got)
	})

	t.Run("orders by edits then term", func(t *testing.T) {
		got := Expand("serch", indexed, Options{MaxEdits: 1})
		assert.Equal(t, []Candidate{
			{Term: "serch", Edits: 0},
			{Term: "search", Edits: 1},
			{Term: "seech", Edits: 1},
		}, got)
	})

	t.Run("prefix length", func(t *testing.T) {
		got := Expand("serch", indexed, Options{MaxEdits: 1, PrefixLength: 3})
		assert.Equal(t, []Candidate{{Term: "serch", Edits: 0}}, got)
	})

	t.Run("max expansions", func(t *testing.T) {
		got := Expand("serch", indexed, Options{MaxEdits: 1, MaxExpansions: 2})
		assert.Len(t, got, 2)
	})

	t.Run("edits are capped", func(t *testing.T) {
		got := Expand("bxnxnx", indexed, Options{MaxEdits: 5})
		assert.Empty(t, got)
	})

	t.Run("no indexed terms", func(t *testing.T) {
		assert.Empty(t, Expand("apple", nil, Options{MaxEdits: 2}))
	})
}
