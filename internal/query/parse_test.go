package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gcbaptista/go-shard-query/internal/errors"
	"github.com/gcbaptista/go-shard-query/internal/script"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		expected Builder
	}{
		{
			name:     "term short form",
			query:    `{"term": {"genre": "scifi"}}`,
			expected: &TermBuilder{Field: "genre", Value: "scifi"},
		},
		{
			name:     "term with name",
			query:    `{"term": {"genre": {"value": "scifi", "_name": "g"}}}`,
			expected: &TermBuilder{Field: "genre", Value: "scifi", Name: "g"},
		},
		{
			name:     "terms lookup",
			query:    `{"terms": {"genre": {"index": "watchlists", "id": "alice", "path": "genres"}}}`,
			expected: &TermsBuilder{Field: "genre", Lookup: &TermsLookup{Index: "watchlists", ID: "alice", Path: "genres"}},
		},
		{
			name:     "match with operator",
			query:    `{"match": {"title": {"query": "the matrix", "operator": "and", "fuzziness": 1}}}`,
			expected: &MatchBuilder{Field: "title", Query: "the matrix", Operator: "and", Fuzziness: "1"},
		},
		{
			name:  "bool with single clause objects",
			query: `{"bool": {"must": {"match_all": {}}, "must_not": [{"match_none": {}}], "minimum_should_match": 1}}`,
			expected: &BoolBuilder{
				Must:               []Builder{&MatchAllBuilder{}},
				MustNot:            []Builder{&MatchNoneBuilder{}},
				MinimumShouldMatch: 1,
			},
		},
		{
			name:     "range",
			query:    `{"range": {"year": {"gte": 1990, "lt": 2000}}}`,
			expected: &RangeBuilder{Field: "year", GTE: float64(1990), LT: float64(2000)},
		},
		{
			name:     "ids",
			query:    `{"ids": {"values": ["m1"], "types": ["_doc"]}}`,
			expected: &IDsBuilder{IDs: []string{"m1"}, Types: []string{"_doc"}},
		},
		{
			name:     "nested",
			query:    `{"nested": {"path": "cast", "query": {"exists": {"field": "cast.name"}}, "ignore_unmapped": true}}`,
			expected: &NestedBuilder{Path: "cast", Query: &ExistsBuilder{Field: "cast.name"}, IgnoreUnmapped: true},
		},
		{
			name:     "script short form",
			query:    `{"script": {"script": "$.title"}}`,
			expected: &ScriptBuilder{Script: script.Script{Lang: script.LangJSONPath, Source: "$.title"}},
		},
		{
			name:  "script object form",
			query: `{"script": {"script": {"lang": "sample", "source": "0.5", "params": {"seed": 7}}}}`,
			expected: &ScriptBuilder{Script: script.Script{
				Lang: script.LangSample, Source: "0.5", Params: map[string]interface{}{"seed": float64(7)},
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := Parse([]byte(tt.query))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, b)
		})
	}
}

func TestParseFuzzyTranspositions(t *testing.T) {
	b, err := Parse([]byte(`{"fuzzy": {"title": {"value": "alein", "transpositions": false, "prefix_length": 1}}}`))
	require.NoError(t, err)
	fuzzy, ok := b.(*FuzzyBuilder)
	require.True(t, ok)
	require.NotNil(t, fuzzy.Transpositions)
	assert.False(t, *fuzzy.Transpositions)
	assert.Equal(t, 1, fuzzy.PrefixLength)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{"empty", "  "},
		{"malformed json", `{"term":`},
		{"not an object", `["term"]`},
		{"several kinds", `{"term": {"a": "b"}, "match": {"a": "b"}}`},
		{"unknown kind", `{"query_string": {"query": "a"}}`},
		{"term without value", `{"term": {"genre": {"_name": "x"}}}`},
		{"term with null", `{"term": {"genre": null}}`},
		{"term on two fields", `{"term": {"genre": "a", "title": "b"}}`},
		{"terms lookup without path", `{"terms": {"genre": {"index": "w", "id": "a"}}}`},
		{"terms of a string", `{"terms": {"genre": "scifi"}}`},
		{"match with bad operator", `{"match": {"title": {"query": "a", "operator": "xor"}}}`},
		{"match with unknown option", `{"match": {"title": {"query": "a", "boost": 2}}}`},
		{"bool with unknown clause", `{"bool": {"maybe": []}}`},
		{"bool with fractional minimum", `{"bool": {"minimum_should_match": 1.5}}`},
		{"range with gt and gte", `{"range": {"year": {"gt": 1, "gte": 2}}}`},
		{"range with format", `{"range": {"year": {"gte": 1, "format": "yyyy"}}}`},
		{"exists without field", `{"exists": {}}`},
		{"ids with numbers", `{"ids": {"values": [1, 2]}}`},
		{"fuzzy with boolean fuzziness", `{"fuzzy": {"title": {"value": "a", "fuzziness": true}}}`},
		{"wildcard with number", `{"wildcard": {"genre": 3}}`},
		{"nested without query", `{"nested": {"path": "cast"}}`},
		{"nested with bad inner query", `{"nested": {"path": "cast", "query": {"nope": {}}}}`},
		{"script of a number", `{"script": {"script": 1}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.query))
			require.Error(t, err)
			assert.ErrorIs(t, err, errors.ErrParsing)
		})
	}
}
