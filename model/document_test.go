package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetDocumentID(t *testing.T) {
	id, ok := Document{"documentID": "doc1"}.GetDocumentID()
	assert.True(t, ok)
	assert.Equal(t, "doc1", id)

	_, ok = Document{"documentID": ""}.GetDocumentID()
	assert.False(t, ok, "empty IDs are not IDs")

	_, ok = Document{"documentID": 12}.GetDocumentID()
	assert.False(t, ok, "non-string IDs are rejected")
}

func TestPath(t *testing.T) {
	doc := Document{
		"title": "The Matrix",
		"tags":  []interface{}{"sci-fi", "action"},
		"director": map[string]interface{}{
			"name": "Wachowski",
		},
		"comments": []interface{}{
			map[string]interface{}{"author": "neo", "stars": 5.0},
			map[string]interface{}{"author": "trinity"},
		},
		"flat.key": "literal",
	}

	assert.Equal(t, []interface{}{"The Matrix"}, doc.Path("title"))
	assert.Equal(t, []interface{}{"sci-fi", "action"}, doc.Path("tags"))
	assert.Equal(t, []interface{}{"Wachowski"}, doc.Path("director.name"))
	assert.Equal(t, []interface{}{"neo", "trinity"}, doc.Path("comments.author"))
	assert.Equal(t, []interface{}{5.0}, doc.Path("comments.stars"))
	assert.Equal(t, []interface{}{"literal"}, doc.Path("flat.key"))
	assert.Nil(t, doc.Path("missing.field"))
}
