package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gcbaptista/go-shard-query/model"
)

func TestDocumentStorePutAndReplace(t *testing.T) {
	ds := NewDocumentStore()

	id1, _, replaced, err := ds.Put(model.Document{"documentID": "a", "title": "first"})
	require.NoError(t, err)
	assert.False(t, replaced)

	id2, _, _, err := ds.Put(model.Document{"documentID": "b", "title": "second"})
	require.NoError(t, err)
	assert.NotEqual(t, id1, id2)

	id3, previous, replaced, err := ds.Put(model.Document{"documentID": "a", "title": "first again"})
	require.NoError(t, err)
	assert.True(t, replaced)
	assert.Equal(t, id1, previous)
	assert.Greater(t, id3, id2, "doc ids are never reused")

	doc, docID, ok := ds.GetByExternalID("a")
	require.True(t, ok)
	assert.Equal(t, id3, docID)
	assert.Equal(t, "first again", doc["title"])

	_, ok = ds.Get(id1)
	assert.False(t, ok, "replaced document is gone")
	assert.Equal(t, []uint32{id2, id3}, ds.IDs())
	assert.Equal(t, 2, ds.Len())
}

func TestDocumentStoreRejectsMissingID(t *testing.T) {
	ds := NewDocumentStore()
	_, _, _, err := ds.Put(model.Document{"title": "no id"})
	assert.Error(t, err)
	assert.Equal(t, 0, ds.Len())
}

func TestDocumentStoreDelete(t *testing.T) {
	ds := NewDocumentStore()
	id, _, _, err := ds.Put(model.Document{"documentID": "a"})
	require.NoError(t, err)

	deleted, ok := ds.Delete("a")
	assert.True(t, ok)
	assert.Equal(t, id, deleted)

	_, ok = ds.Delete("a")
	assert.False(t, ok)
	assert.Empty(t, ds.IDs())
}
