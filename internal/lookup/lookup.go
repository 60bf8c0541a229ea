// Package lookup gives per-document access to field values while a query is
// rewritten or executed.
package lookup

import (
	"fmt"
	"strings"

	"github.com/gcbaptista/go-shard-query/internal/search"
	"github.com/gcbaptista/go-shard-query/mapping"
	"github.com/gcbaptista/go-shard-query/model"
)

// MaxFieldChainDepth bounds how many runtime fields may be resolved through each other.
const MaxFieldChainDepth = 5

// FieldTypeResolver resolves a field name, applying the caller's unmapped-field policy.
type FieldTypeResolver func(name string) (*mapping.FieldType, error)

// FieldDataLookup builds the value reader of a field. searchLookup supplies a
// lookup forked for the field, for fields computed from other fields.
type FieldDataLookup func(ft *mapping.FieldType, searchLookup func() (*Lookup, error)) (search.DocValues, error)

// SourceProvider returns the stored source of a document.
type SourceProvider func(docID uint32) (model.Document, bool)

// Lookup resolves field values per document. It is owned by one query context
// and is not safe for concurrent use.
type Lookup struct {
	fieldType  FieldTypeResolver
	fieldData  FieldDataLookup
	source     SourceProvider
	references []string
	values     map[string]search.DocValues
}

// New creates a lookup.
func New(fieldType FieldTypeResolver, fieldData FieldDataLookup, source SourceProvider) *Lookup {
	return &Lookup{
		fieldType: fieldType,
		fieldData: fieldData,
		source:    source,
		values:    make(map[string]search.DocValues),
	}
}

// ForkAndTrackFieldReferences returns a lookup that remembers field as being
// resolved. It fails when field is already being resolved up the chain or the
// chain is too deep.
func (l *Lookup) ForkAndTrackFieldReferences(field string) (*Lookup, error) {
	for _, ref := range l.references {
		if ref == field {
			chain := append(append([]string{}, l.references...), field)
			return nil, fmt.Errorf("cyclic dependency detected while resolving runtime fields: %s", strings.Join(chain, " -> "))
		}
	}
	if len(l.references) >= MaxFieldChainDepth {
		return nil, fmt.Errorf("field requires resolving too many dependent fields: %s -> %s", strings.Join(l.references, " -> "), field)
	}

	refs := make([]string, len(l.references), len(l.references)+1)
	copy(refs, l.references)
	return &Lookup{
		fieldType:  l.fieldType,
		fieldData:  l.fieldData,
		source:     l.source,
		references: append(refs, field),
		values:     make(map[string]search.DocValues),
	}, nil
}

// References returns the chain of fields this lookup was forked for.
func (l *Lookup) References() []string {
	out := make([]string, len(l.references))
	copy(out, l.references)
	return out
}

// FieldValues returns the value reader of a field.
func (l *Lookup) FieldValues(field string) (search.DocValues, error) {
	if dv, ok := l.values[field]; ok {
		return dv, nil
	}
	ft, err := l.fieldType(field)
	if err != nil {
		return nil, err
	}
	if ft == nil {
		return nil, fmt.Errorf("no field found for [%s] in mapping", field)
	}
	dv, err := l.fieldData(ft, func() (*Lookup, error) {
		return l.ForkAndTrackFieldReferences(ft.Name)
	})
	if err != nil {
		return nil, err
	}
	l.values[field] = dv
	return dv, nil
}

// Doc returns the view of one document.
func (l *Lookup) Doc(docID uint32) *DocLookup {
	return &DocLookup{lookup: l, docID: docID}
}

// Source returns the stored source of a document.
func (l *Lookup) Source(docID uint32) (model.Document, bool) {
	return l.source(docID)
}

// DocLookup reads field values of a single document.
type DocLookup struct {
	lookup *Lookup
	docID  uint32
}

// Get returns the values of field for the document.
func (d *DocLookup) Get(field string) ([]interface{}, error) {
	dv, err := d.lookup.FieldValues(field)
	if err != nil {
		return nil, err
	}
	return dv.Values(d.docID)
}
