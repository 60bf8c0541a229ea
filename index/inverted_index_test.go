package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInvertedIndexAddAndPostings(t *testing.T) {
	ii := NewInvertedIndex()
	ii.Add(0, "title", []string{"the", "quick", "fox", "the"})
	ii.Add(1, "title", []string{"lazy", "fox"})
	ii.Add(1, "tags", []string{"fox"})

	postings := ii.Postings("title", "fox")
	assert.Len(t, postings, 2)
	assert.Equal(t, uint32(0), postings[0].DocID)
	assert.Equal(t, uint32(1), postings[1].DocID)

	the := ii.Postings("title", "the")
	assert.Len(t, the, 1)
	assert.Equal(t, 2.0, the[0].Score)
	assert.Equal(t, []int{0, 3}, the[0].Positions)

	assert.Equal(t, 1, ii.DocFreq("tags", "fox"))
	assert.Equal(t, []string{"fox", "lazy", "quick", "the"}, ii.Terms("title"))
	assert.Equal(t, []string{"fox"}, ii.Terms("tags"))

	assert.Equal(t, 4, ii.FieldLength("title", 0))
	assert.Equal(t, 3.0, ii.AverageFieldLength("title"))
}

func TestInvertedIndexRemoveDocument(t *testing.T) {
	ii := NewInvertedIndex()
	ii.Add(0, "title", []string{"quick", "fox"})
	ii.Add(1, "title", []string{"fox"})

	ii.RemoveDocument(0)

	assert.Empty(t, ii.Postings("title", "quick"))
	_, exists := ii.Index["quick"]
	assert.False(t, exists, "empty posting lists are dropped")
	assert.Len(t, ii.Postings("title", "fox"), 1)
	assert.Equal(t, 0, ii.FieldLength("title", 0))
}
