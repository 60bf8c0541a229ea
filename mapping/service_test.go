package mapping

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func movieDefinition() *Definition {
	return &Definition{
		Properties: map[string]interface{}{
			"title": map[string]interface{}{"type": "text"},
			"genre": map[string]interface{}{"type": "keyword"},
			"year":  map[string]interface{}{"type": "integer"},
			"released": map[string]interface{}{
				"type": "date",
			},
			"cast": map[string]interface{}{
				"type": "nested",
				"properties": map[string]interface{}{
					"name": map[string]interface{}{"type": "keyword"},
					"role": map[string]interface{}{"type": "text", "analyzer": "whitespace"},
				},
			},
			"studio": map[string]interface{}{
				"properties": map[string]interface{}{
					"name": map[string]interface{}{"type": "keyword"},
				},
			},
			"decade": map[string]interface{}{"type": "runtime", "path": "year"},
		},
	}
}

func TestNewService(t *testing.T) {
	svc, err := NewService(Index{Name: "movies", UUID: "u1"}, movieDefinition(), nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultDocumentType, svc.DocumentType())
	assert.True(t, svc.HasMappings())
	assert.True(t, svc.HasNested())

	title := svc.FieldType("title")
	require.NotNil(t, title)
	assert.Equal(t, TypeText, title.Type)
	assert.True(t, title.Searchable)
	assert.False(t, title.HasDocValues)

	role := svc.FieldType("cast.role")
	require.NotNil(t, role)
	assert.Equal(t, "whitespace", role.Analyzer)

	assert.Nil(t, svc.FieldType("missing"))
	assert.Nil(t, svc.FieldType("cast"), "object paths are not leaf fields")

	require.NotNil(t, svc.ObjectMapper("cast"))
	assert.True(t, svc.ObjectMapper("cast").Nested())
	require.NotNil(t, svc.ObjectMapper("studio"))
	assert.False(t, svc.ObjectMapper("studio").Nested())

	assert.Equal(t, []string{"cast.name", "cast.role", "decade", "genre", "released", "studio.name", "title", "year"}, svc.FieldNames())
}

func TestNewServiceWithoutDefinition(t *testing.T) {
	svc, err := NewService(Index{Name: "empty"}, nil, nil)
	require.NoError(t, err)
	assert.False(t, svc.HasMappings())
	assert.Equal(t, "", svc.DocumentType())
	assert.Empty(t, svc.FieldNames())
}

func TestNewServiceErrors(t *testing.T) {
	tests := []struct {
		name  string
		props map[string]interface{}
	}{
		{"unknown type", map[string]interface{}{"f": map[string]interface{}{"type": "geo_shape"}}},
		{"missing type", map[string]interface{}{"f": map[string]interface{}{}}},
		{"unknown parameter", map[string]interface{}{"f": map[string]interface{}{"type": "keyword", "boost": 2}}},
		{"analyzer on keyword", map[string]interface{}{"f": map[string]interface{}{"type": "keyword", "analyzer": "standard"}}},
		{"unknown analyzer", map[string]interface{}{"f": map[string]interface{}{"type": "text", "analyzer": "klingon"}}},
		{"runtime without path", map[string]interface{}{"f": map[string]interface{}{"type": "runtime"}}},
		{"runtime to unmapped", map[string]interface{}{"f": map[string]interface{}{"type": "runtime", "path": "nope"}}},
		{"property not an object", map[string]interface{}{"f": "keyword"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewService(Index{Name: "x"}, &Definition{Properties: tt.props}, nil)
			assert.Error(t, err)
		})
	}
}

func TestSimpleMatchToFullName(t *testing.T) {
	svc, err := NewService(Index{Name: "movies"}, movieDefinition(), nil)
	require.NoError(t, err)

	tests := []struct {
		pattern  string
		expected []string
	}{
		{"title", []string{"title"}},
		{"not_mapped", []string{"not_mapped"}},
		{"cast.*", []string{"cast.name", "cast.role"}},
		{"*.name", []string{"cast.name", "studio.name"}},
		{"ye?r", []string{"year"}},
		{"zzz*", nil},
	}

	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			assert.Equal(t, tt.expected, svc.SimpleMatchToFullName(tt.pattern))
		})
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	assert.Contains(t, r.TypeNames(), TypeKeyword)
	assert.Contains(t, r.TypeNames(), TypeNested)

	parser, ok := r.ParserContext().TypeParser(TypeKeyword)
	require.True(t, ok)
	m, err := parser("__anonymous_keyword", map[string]interface{}{}, r.ParserContext())
	require.NoError(t, err)
	fm, ok := m.(*FieldMapper)
	require.True(t, ok)
	assert.Equal(t, TypeKeyword, fm.FieldType().Type)

	_, ok = r.TypeParser("string")
	assert.False(t, ok, "legacy string type is aliased by callers, not registered")
}

func TestFieldTypeParseValue(t *testing.T) {
	year := &FieldType{Name: "year", Type: TypeInteger}
	v, err := year.ParseValue("1999.7")
	require.NoError(t, err)
	assert.Equal(t, 1999.0, v)

	_, err = year.ParseValue("nineteen")
	assert.Error(t, err)

	date := &FieldType{Name: "released", Type: TypeDate}
	v, err = date.ParseValue("1970-01-02")
	require.NoError(t, err)
	assert.Equal(t, int64(86400000), v)

	flag := &FieldType{Name: "flag", Type: TypeBoolean, Searchable: true}
	v, err = flag.ParseValue("true")
	require.NoError(t, err)
	assert.Equal(t, true, v)
	assert.Equal(t, []string{"true"}, flag.IndexTerms(true))

	genre := &FieldType{Name: "genre", Type: TypeKeyword, Searchable: true}
	assert.Equal(t, []string{"Sci Fi"}, genre.IndexTerms("Sci Fi"))
	assert.Equal(t, []string{"sci", "fi"}, NewTextFieldType("t").IndexTerms("Sci Fi"))
}

func TestLoadDefinition(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mapping.yaml")
	body := "properties:\n  title:\n    type: text\n  tags:\n    type: keyword\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	def, err := LoadDefinition(path)
	require.NoError(t, err)

	svc, err := NewService(Index{Name: "books"}, def, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"tags", "title"}, svc.FieldNames())
}
