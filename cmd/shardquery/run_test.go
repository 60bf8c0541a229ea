package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gcbaptista/go-shard-query/internal/engine"
	"github.com/gcbaptista/go-shard-query/services"
)

const settingsYAML = `
name: movies
sort_fields:
  - field: year
    order: desc
allow_unmapped_fields: false
`

const mappingYAML = `
properties:
  title:
    type: text
  year:
    type: integer
`

const documentsJSON = `[
  {"documentID": "m1", "title": "The Matrix", "year": 1999},
  {"documentID": "m3", "title": "Alien", "year": 1979}
]`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadIndex(t *testing.T) {
	dir := t.TempDir()
	settings := writeFile(t, dir, "settings.yaml", settingsYAML)
	mapping := writeFile(t, dir, "mapping.yaml", mappingYAML)
	documents := writeFile(t, dir, "documents.json", documentsJSON)

	eng, err := engine.NewEngine(engine.Options{})
	require.NoError(t, err)
	defer eng.Close()

	name, err := loadIndex(eng, settings, mapping, documents)
	require.NoError(t, err)
	assert.Equal(t, "movies", name)

	result, err := eng.Search(context.Background(), name, services.SearchRequest{Query: json.RawMessage(`{"match_all": {}}`)})
	require.NoError(t, err)
	require.Len(t, result.Hits, 2)
	assert.Equal(t, "m1", result.Hits[0].ID)

	_, err = loadIndex(eng, filepath.Join(dir, "missing.yaml"), "", "")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	settings := writeFile(t, dir, "settings.yaml", settingsYAML)
	mapping := writeFile(t, dir, "mapping.yaml", mappingYAML)
	queryFile := writeFile(t, dir, "query.json", `{"range": {"year": {"gte": 1990}}}`)

	t.Run("inline query", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, validate(context.Background(), nil, &out, settings, mapping, `{"match": {"title": "matrix"}}`))

		var result services.ValidateResult
		require.NoError(t, json.Unmarshal(out.Bytes(), &result))
		assert.True(t, result.Valid)
		assert.True(t, result.Cacheable)
	})

	t.Run("query file", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, validate(context.Background(), nil, &out, settings, mapping, "@"+queryFile))
		assert.Contains(t, out.String(), `"valid": true`)
	})

	t.Run("unmapped field", func(t *testing.T) {
		var out bytes.Buffer
		err := validate(context.Background(), nil, &out, settings, mapping, `{"term": {"director": "Scott"}}`)
		assert.Error(t, err)
		assert.Contains(t, out.String(), `"valid": false`)
	})
}

func TestNewLogger(t *testing.T) {
	_, err := newLogger("json", "debug")
	assert.NoError(t, err)
	_, err = newLogger("xml", "info")
	assert.Error(t, err)
	_, err = newLogger("text", "loud")
	assert.Error(t, err)
}
