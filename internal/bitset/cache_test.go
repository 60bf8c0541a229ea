package bitset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gcbaptista/go-shard-query/index"
	"github.com/gcbaptista/go-shard-query/internal/search"
	"github.com/gcbaptista/go-shard-query/model"
	"github.com/gcbaptista/go-shard-query/store"
)

func TestCacheProducer(t *testing.T) {
	docs := store.NewDocumentStore()
	ii := index.NewInvertedIndex()
	for _, id := range []string{"a", "b", "c"} {
		docID, _, _, err := docs.Put(model.Document{"documentID": id})
		require.NoError(t, err)
		if id != "b" {
			ii.Add(docID, "tag", []string{"x"})
		}
	}
	seg, err := search.NewSegment(ii, docs)
	require.NoError(t, err)

	cache, err := NewCache(4, nil)
	require.NoError(t, err)

	p := cache.Producer(&search.TermQuery{Field: "tag", Term: "x"})
	first, err := p.DocSet(seg)
	require.NoError(t, err)
	assert.Equal(t, search.DocSet{0, 2}, first)

	// A new producer for an equal query shares the entry.
	second, err := cache.Producer(&search.TermQuery{Field: "tag", Term: "x"}).DocSet(seg)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	hits, misses, size := cache.Stats()
	assert.Equal(t, uint64(1), hits)
	assert.Equal(t, uint64(1), misses)
	assert.Equal(t, 1, size)

	cache.Clear()
	_, _, size = cache.Stats()
	assert.Equal(t, 0, size)
}

func TestNewCacheRejectsInvalidSize(t *testing.T) {
	_, err := NewCache(0, nil)
	assert.Error(t, err)
}
