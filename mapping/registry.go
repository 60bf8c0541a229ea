package mapping

import (
	"fmt"
	"sort"

	"github.com/gcbaptista/go-shard-query/internal/tokenizer"
)

// Mapper is either a leaf FieldMapper or an ObjectMapper.
type Mapper interface {
	Name() string
	TypeName() string
}

// FieldMapper is a leaf mapper wrapping a FieldType.
type FieldMapper struct {
	fieldType *FieldType
}

func (m *FieldMapper) Name() string          { return m.fieldType.Name }
func (m *FieldMapper) TypeName() string      { return m.fieldType.Type }
func (m *FieldMapper) FieldType() *FieldType { return m.fieldType }

// ObjectMapper groups sub-fields under a path. Nested objects are indexed
// as independent sub-documents in the search engine this mirrors.
type ObjectMapper struct {
	name     string
	nested   bool
	children []Mapper
}

func (m *ObjectMapper) Name() string { return m.name }

func (m *ObjectMapper) TypeName() string {
	if m.nested {
		return TypeNested
	}
	return TypeObject
}

// Nested reports whether the object is mapped as nested.
func (m *ObjectMapper) Nested() bool { return m.nested }

// Children returns the direct sub-mappers.
func (m *ObjectMapper) Children() []Mapper { return m.children }

// TypeParser builds a mapper named name from its mapping parameters.
type TypeParser func(name string, params map[string]interface{}, pc *ParserContext) (Mapper, error)

// ParserContext gives type parsers access to the registry, for object properties.
type ParserContext struct {
	registry *Registry
}

// TypeParser returns the parser registered for typeName.
func (pc *ParserContext) TypeParser(typeName string) (TypeParser, bool) {
	return pc.registry.TypeParser(typeName)
}

// Registry maps type names to parsers. It is filled at construction and read-only afterwards.
type Registry struct {
	parsers map[string]TypeParser
}

// NewRegistry returns a registry with the built-in field types.
func NewRegistry() *Registry {
	r := &Registry{parsers: make(map[string]TypeParser)}
	for _, name := range []string{TypeLong, TypeInteger, TypeDouble, TypeFloat, TypeBoolean, TypeDate} {
		r.parsers[name] = leafParser(name, "")
	}
	r.parsers[TypeText] = leafParser(TypeText, tokenizer.Standard)
	r.parsers[TypeKeyword] = leafParser(TypeKeyword, tokenizer.Keyword)
	r.parsers[TypeRuntime] = parseRuntime
	r.parsers[TypeObject] = objectParser(false)
	r.parsers[TypeNested] = objectParser(true)
	return r
}

// TypeParser returns the parser registered for typeName.
func (r *Registry) TypeParser(typeName string) (TypeParser, bool) {
	p, ok := r.parsers[typeName]
	return p, ok
}

// ParserContext returns a context bound to this registry.
func (r *Registry) ParserContext() *ParserContext {
	return &ParserContext{registry: r}
}

// TypeNames lists the registered type names in sorted order.
func (r *Registry) TypeNames() []string {
	names := make([]string, 0, len(r.parsers))
	for name := range r.parsers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewTextFieldType builds a standalone text field type with the standard analyzer.
func NewTextFieldType(name string) *FieldType {
	return &FieldType{Name: name, Type: TypeText, Analyzer: tokenizer.Standard, Searchable: true, HasDocValues: false}
}

func leafParser(typeName, defaultAnalyzer string) TypeParser {
	return func(name string, params map[string]interface{}, _ *ParserContext) (Mapper, error) {
		ft := &FieldType{
			Name:         name,
			Type:         typeName,
			Analyzer:     defaultAnalyzer,
			Searchable:   typeName == TypeText || typeName == TypeKeyword || typeName == TypeBoolean,
			HasDocValues: typeName != TypeText,
		}
		for key, value := range params {
			switch key {
			case "type":
			case "analyzer":
				analyzer, ok := value.(string)
				if !ok || !tokenizer.IsKnownAnalyzer(analyzer) {
					return nil, fmt.Errorf("unknown analyzer [%v] for field [%s]", value, name)
				}
				if typeName != TypeText {
					return nil, fmt.Errorf("field [%s] of type [%s] does not support [analyzer]", name, typeName)
				}
				ft.Analyzer = analyzer
			case "index":
				b, err := toBool(value)
				if err != nil {
					return nil, fmt.Errorf("field [%s]: [index] %w", name, err)
				}
				ft.Searchable = ft.Searchable && b
			case "doc_values":
				b, err := toBool(value)
				if err != nil {
					return nil, fmt.Errorf("field [%s]: [doc_values] %w", name, err)
				}
				ft.HasDocValues = ft.HasDocValues && b
			default:
				return nil, fmt.Errorf("unknown parameter [%s] on mapper [%s] of type [%s]", key, name, typeName)
			}
		}
		return &FieldMapper{fieldType: ft}, nil
	}
}

func parseRuntime(name string, params map[string]interface{}, _ *ParserContext) (Mapper, error) {
	path, _ := params["path"].(string)
	if path == "" {
		return nil, fmt.Errorf("runtime field [%s] requires a [path]", name)
	}
	return &FieldMapper{fieldType: &FieldType{Name: name, Type: TypeRuntime, HasDocValues: true, Path: path}}, nil
}

func objectParser(nested bool) TypeParser {
	return func(name string, params map[string]interface{}, pc *ParserContext) (Mapper, error) {
		obj := &ObjectMapper{name: name, nested: nested}
		props, _ := params["properties"].(map[string]interface{})
		keys := make([]string, 0, len(props))
		for key := range props {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			child, err := parseProperty(name+"."+key, props[key], pc)
			if err != nil {
				return nil, err
			}
			obj.children = append(obj.children, child)
		}
		return obj, nil
	}
}

func parseProperty(fullName string, raw interface{}, pc *ParserContext) (Mapper, error) {
	params, ok := raw.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("mapping for field [%s] must be an object, got %T", fullName, raw)
	}
	typeName, _ := params["type"].(string)
	if typeName == "" {
		if _, hasProps := params["properties"]; hasProps {
			typeName = TypeObject
		} else {
			return nil, fmt.Errorf("no type specified for field [%s]", fullName)
		}
	}
	parser, ok := pc.TypeParser(typeName)
	if !ok {
		return nil, fmt.Errorf("no handler for type [%s] declared on field [%s]", typeName, fullName)
	}
	return parser(fullName, params, pc)
}
