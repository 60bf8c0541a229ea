// Package fielddata reads per-document field values out of a shard's document store.
package fielddata

import (
	"fmt"

	"github.com/gcbaptista/go-shard-query/internal/lookup"
	"github.com/gcbaptista/go-shard-query/mapping"
	"github.com/gcbaptista/go-shard-query/store"
)

// IndexFieldData reads the values of one field.
type IndexFieldData interface {
	FieldName() string
	Index() string
	Values(docID uint32) ([]interface{}, error)
}

// Factory builds field data for a field of the index named fullyQualifiedIndex.
// searchLookup supplies the lookup computed fields read their sources through.
type Factory func(ft *mapping.FieldType, fullyQualifiedIndex string, searchLookup func() (*lookup.Lookup, error)) (IndexFieldData, error)

// NewFactory returns a factory reading from docStore.
func NewFactory(docStore *store.DocumentStore) Factory {
	return func(ft *mapping.FieldType, fullyQualifiedIndex string, searchLookup func() (*lookup.Lookup, error)) (IndexFieldData, error) {
		if ft == nil {
			return nil, fmt.Errorf("field type cannot be nil")
		}
		if !ft.HasDocValues {
			return nil, fmt.Errorf("can't load fielddata on [%s] because fielddata is unsupported on fields of type [%s]", ft.Name, ft.Type)
		}
		if ft.Type == mapping.TypeRuntime {
			return &runtimeFieldData{name: ft.Name, index: fullyQualifiedIndex, path: ft.Path, searchLookup: searchLookup}, nil
		}
		return &sourceFieldData{fieldType: ft, index: fullyQualifiedIndex, docStore: docStore}, nil
	}
}

type sourceFieldData struct {
	fieldType *mapping.FieldType
	index     string
	docStore  *store.DocumentStore
}

func (fd *sourceFieldData) FieldName() string { return fd.fieldType.Name }
func (fd *sourceFieldData) Index() string     { return fd.index }

func (fd *sourceFieldData) Values(docID uint32) ([]interface{}, error) {
	doc, ok := fd.docStore.Get(docID)
	if !ok {
		return nil, nil
	}
	raw := doc.Path(fd.fieldType.Name)
	values := make([]interface{}, 0, len(raw))
	for _, v := range raw {
		parsed, err := fd.fieldType.ParseValue(v)
		if err != nil {
			return nil, err
		}
		values = append(values, parsed)
	}
	return values, nil
}

// runtimeFieldData exposes the values of another field through the lookup.
type runtimeFieldData struct {
	name         string
	index        string
	path         string
	searchLookup func() (*lookup.Lookup, error)
}

func (fd *runtimeFieldData) FieldName() string { return fd.name }
func (fd *runtimeFieldData) Index() string     { return fd.index }

func (fd *runtimeFieldData) Values(docID uint32) ([]interface{}, error) {
	l, err := fd.searchLookup()
	if err != nil {
		return nil, err
	}
	return l.Doc(docID).Get(fd.path)
}
