package mapping

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pkg/errors"

	"github.com/gcbaptista/go-shard-query/config"
)

// DefaultDocumentType is the single document type of an index with mappings.
const DefaultDocumentType = "_doc"

// Index identifies an index by name and uuid.
type Index struct {
	Name string
	UUID string
}

func (i Index) String() string {
	return "[" + i.Name + "/" + i.UUID + "]"
}

// Definition is the mapping document of an index as supplied by the user.
type Definition struct {
	Type       string                 `json:"type,omitempty" yaml:"type,omitempty"`
	Properties map[string]interface{} `json:"properties" yaml:"properties"`
}

// LoadDefinition reads a mapping document from a YAML or JSON file.
func LoadDefinition(path string) (*Definition, error) {
	var def Definition
	if err := config.DecodeFile(path, &def); err != nil {
		return nil, errors.Wrap(err, "failed to load mapping definition")
	}
	return &def, nil
}

// Lookup is the read-only view of the mappings a query context resolves against.
type Lookup interface {
	FieldType(name string) *FieldType
	ParserContext() *ParserContext
	ObjectMapper(path string) *ObjectMapper
	HasNested() bool
	HasMappings() bool
	DocumentType() string
	SimpleMatchToFullName(pattern string) []string
}

// Service holds the parsed mappings of one index. It is immutable after
// construction and safe for concurrent use.
type Service struct {
	index         Index
	registry      *Registry
	docType       string
	fieldTypes    map[string]*FieldType
	objectMappers map[string]*ObjectMapper
	fieldNames    []string
	hasNested     bool
}

// NewService parses def with the registry. A nil definition yields an index without mappings.
func NewService(index Index, def *Definition, registry *Registry) (*Service, error) {
	if registry == nil {
		registry = NewRegistry()
	}
	s := &Service{
		index:         index,
		registry:      registry,
		fieldTypes:    make(map[string]*FieldType),
		objectMappers: make(map[string]*ObjectMapper),
	}
	if def == nil {
		return s, nil
	}

	s.docType = def.Type
	if s.docType == "" {
		s.docType = DefaultDocumentType
	}

	pc := registry.ParserContext()
	names := make([]string, 0, len(def.Properties))
	for name := range def.Properties {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		mapper, err := parseProperty(name, def.Properties[name], pc)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse mapping for index %s", index)
		}
		s.register(mapper)
	}
	for name := range s.fieldTypes {
		s.fieldNames = append(s.fieldNames, name)
	}
	sort.Strings(s.fieldNames)

	for name, ft := range s.fieldTypes {
		if ft.Type != TypeRuntime {
			continue
		}
		if _, ok := s.fieldTypes[ft.Path]; !ok {
			return nil, fmt.Errorf("runtime field [%s] refers to unmapped field [%s]", name, ft.Path)
		}
	}
	return s, nil
}

func (s *Service) register(m Mapper) {
	switch mapper := m.(type) {
	case *FieldMapper:
		s.fieldTypes[mapper.Name()] = mapper.FieldType()
	case *ObjectMapper:
		s.objectMappers[mapper.Name()] = mapper
		if mapper.Nested() {
			s.hasNested = true
		}
		for _, child := range mapper.Children() {
			s.register(child)
		}
	}
}

// Index returns the index these mappings belong to.
func (s *Service) Index() Index { return s.index }

// Registry returns the type-parser registry.
func (s *Service) Registry() *Registry { return s.registry }

// FieldType returns the mapped field type, or nil when name is not mapped.
func (s *Service) FieldType(name string) *FieldType {
	return s.fieldTypes[name]
}

// ParserContext returns a parser context bound to the service's registry.
func (s *Service) ParserContext() *ParserContext {
	return s.registry.ParserContext()
}

// ObjectMapper returns the object mapper at path, or nil.
func (s *Service) ObjectMapper(path string) *ObjectMapper {
	return s.objectMappers[path]
}

// HasNested reports whether any object is mapped as nested.
func (s *Service) HasNested() bool { return s.hasNested }

// HasMappings reports whether the index was created with a mapping document.
func (s *Service) HasMappings() bool { return s.docType != "" }

// DocumentType returns the document type, or "" for an index without mappings.
func (s *Service) DocumentType() string { return s.docType }

// FieldNames returns all mapped leaf field names in sorted order.
func (s *Service) FieldNames() []string {
	out := make([]string, len(s.fieldNames))
	copy(out, s.fieldNames)
	return out
}

// SimpleMatchToFullName expands a field name pattern ("*", "user.*", "tit?e")
// to the sorted list of mapped leaf fields it matches. A pattern without
// wildcards is returned as is, mapped or not.
func (s *Service) SimpleMatchToFullName(pattern string) []string {
	if !strings.ContainsAny(pattern, "*?[{") {
		return []string{pattern}
	}
	var matches []string
	for _, name := range s.fieldNames {
		ok, err := doublestar.Match(pattern, name)
		if err != nil {
			return nil
		}
		if ok {
			matches = append(matches, name)
		}
	}
	return matches
}
