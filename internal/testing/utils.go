// Package testing provides fixtures shared by the tests of the shard query packages.
package testing

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gcbaptista/go-shard-query/config"
	"github.com/gcbaptista/go-shard-query/index"
	"github.com/gcbaptista/go-shard-query/internal/indexing"
	"github.com/gcbaptista/go-shard-query/internal/search"
	"github.com/gcbaptista/go-shard-query/mapping"
	"github.com/gcbaptista/go-shard-query/model"
	"github.com/gcbaptista/go-shard-query/store"
)

// Shard bundles the parts of one indexed shard.
type Shard struct {
	Settings *config.IndexSettings
	Mappings *mapping.Service
	Index    *index.InvertedIndex
	Store    *store.DocumentStore
	Indexer  *indexing.Service
	Segment  *search.Segment
}

// MovieSettings returns settings for a movie index with defaults applied.
func MovieSettings(name string) *config.IndexSettings {
	settings := &config.IndexSettings{
		Name:          name,
		UUID:          "uuid-" + name,
		DefaultFields: []string{"title"},
		SortFields:    []config.SortField{{Field: "released", Order: "desc"}},
	}
	settings.ApplyDefaults()
	return settings
}

// MovieDefinition returns the mapping of the movie index.
func MovieDefinition() *mapping.Definition {
	return &mapping.Definition{
		Properties: map[string]interface{}{
			"title":    map[string]interface{}{"type": "text"},
			"genre":    map[string]interface{}{"type": "keyword"},
			"year":     map[string]interface{}{"type": "integer"},
			"released": map[string]interface{}{"type": "date"},
			"rating":   map[string]interface{}{"type": "double"},
			"cast": map[string]interface{}{
				"type": "nested",
				"properties": map[string]interface{}{
					"name": map[string]interface{}{"type": "keyword"},
					"role": map[string]interface{}{"type": "text"},
				},
			},
			"studio": map[string]interface{}{
				"properties": map[string]interface{}{
					"name": map[string]interface{}{"type": "keyword"},
				},
			},
			"release_year": map[string]interface{}{"type": "runtime", "path": "year"},
		},
	}
}

// MovieDocuments returns four movies: m1 and m2 share their cast, m4 has no cast.
func MovieDocuments() []model.Document {
	return []model.Document{
		{
			"documentID": "m1",
			"title":      "The Matrix",
			"genre":      "scifi",
			"year":       1999,
			"released":   "1999-03-31",
			"rating":     8.7,
			"cast":       []interface{}{map[string]interface{}{"name": "Keanu Reeves", "role": "Neo"}},
			"studio":     map[string]interface{}{"name": "Warner"},
		},
		{
			"documentID": "m2",
			"title":      "The Matrix Reloaded",
			"genre":      "scifi",
			"year":       2003,
			"released":   "2003-05-15",
			"rating":     7.2,
			"cast":       []interface{}{map[string]interface{}{"name": "Keanu Reeves", "role": "Neo"}},
			"studio":     map[string]interface{}{"name": "Warner"},
		},
		{
			"documentID": "m3",
			"title":      "Alien",
			"genre":      "horror",
			"year":       1979,
			"released":   "1979-05-25",
			"rating":     8.5,
			"cast":       []interface{}{map[string]interface{}{"name": "Sigourney Weaver", "role": "Ripley"}},
			"studio":     map[string]interface{}{"name": "Fox"},
		},
		{
			"documentID": "m4",
			"title":      "Heat",
			"genre":      "crime",
			"year":       1995,
			"released":   "1995-12-15",
			"rating":     8.3,
		},
	}
}

// NewShard builds a shard from settings and a mapping and indexes docs into it.
func NewShard(t *testing.T, settings *config.IndexSettings, def *mapping.Definition, docs []model.Document) *Shard {
	t.Helper()
	mappings, err := mapping.NewService(mapping.Index{Name: settings.Name, UUID: settings.UUID}, def, nil)
	require.NoError(t, err, "Failed to build mappings")

	ii := index.NewInvertedIndex()
	ds := store.NewDocumentStore()
	indexer, err := indexing.NewService(mappings, ii, ds, nil)
	require.NoError(t, err, "Failed to create indexer")
	if len(docs) > 0 {
		require.NoError(t, indexer.AddDocuments(docs), "Failed to add test documents")
	}

	seg, err := search.NewSegment(ii, ds)
	require.NoError(t, err)

	return &Shard{Settings: settings, Mappings: mappings, Index: ii, Store: ds, Indexer: indexer, Segment: seg}
}

// NewMovieShard builds the movie shard with MovieDocuments indexed.
func NewMovieShard(t *testing.T) *Shard {
	t.Helper()
	return NewShard(t, MovieSettings("movies"), MovieDefinition(), MovieDocuments())
}

// ExternalIDs maps doc ids of docs back to their documentIDs, in order.
func (s *Shard) ExternalIDs(t *testing.T, docs search.DocSet) []string {
	t.Helper()
	ids := make([]string, 0, len(docs))
	for _, docID := range docs {
		doc, ok := s.Store.Get(docID)
		require.True(t, ok, "doc %d is not stored", docID)
		id, _ := doc.GetDocumentID()
		ids = append(ids, id)
	}
	return ids
}

// NewBufferLogger returns a JSON logger writing to the returned buffer.
func NewBufferLogger() (*slog.Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})), buf
}
