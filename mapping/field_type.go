// Package mapping holds the field mapping definitions of an index and the
// registry of type parsers that turns mapping parameters into mappers.
package mapping

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/gcbaptista/go-shard-query/internal/tokenizer"
)

// Field type names known to the built-in registry.
const (
	TypeText    = "text"
	TypeKeyword = "keyword"
	TypeLong    = "long"
	TypeInteger = "integer"
	TypeDouble  = "double"
	TypeFloat   = "float"
	TypeBoolean = "boolean"
	TypeDate    = "date"
	TypeRuntime = "runtime"
	TypeObject  = "object"
	TypeNested  = "nested"
)

// FieldType describes how a leaf field is indexed and how query values are
// interpreted for it. FieldTypes are immutable once built.
type FieldType struct {
	Name         string
	Type         string
	Analyzer     string
	Searchable   bool   // tokens are written to the inverted index
	HasDocValues bool   // values can be read per document
	Path         string // runtime fields: the field whose values they expose
}

// IsNumeric reports whether values of the field are numbers.
func (ft *FieldType) IsNumeric() bool {
	switch ft.Type {
	case TypeLong, TypeInteger, TypeDouble, TypeFloat:
		return true
	}
	return false
}

// IsAnalyzed reports whether query text must go through the field's analyzer.
func (ft *FieldType) IsAnalyzed() bool {
	return ft.Type == TypeText
}

// Analyze splits text with the field's analyzer.
func (ft *FieldType) Analyze(text string) []string {
	return tokenizer.Analyze(ft.Analyzer, text)
}

// IndexTerms returns the terms a document value contributes to the inverted index.
func (ft *FieldType) IndexTerms(value interface{}) []string {
	if !ft.Searchable {
		return nil
	}
	switch ft.Type {
	case TypeText:
		if s, ok := value.(string); ok {
			return ft.Analyze(s)
		}
		return ft.Analyze(fmt.Sprint(value))
	case TypeKeyword:
		return []string{fmt.Sprint(value)}
	case TypeBoolean:
		if b, err := toBool(value); err == nil {
			return []string{strconv.FormatBool(b)}
		}
	}
	return nil
}

// ParseValue normalizes a document or query value to the field's comparable form:
// float64 for numbers, int64 epoch millis for dates, bool for booleans and string otherwise.
func (ft *FieldType) ParseValue(value interface{}) (interface{}, error) {
	switch {
	case ft.IsNumeric():
		f, err := toFloat(value)
		if err != nil {
			return nil, fmt.Errorf("field [%s] of type [%s]: %w", ft.Name, ft.Type, err)
		}
		if ft.Type == TypeLong || ft.Type == TypeInteger {
			f = math.Trunc(f)
		}
		return f, nil
	case ft.Type == TypeDate:
		ms, err := ParseDateMillis(value)
		if err != nil {
			return nil, fmt.Errorf("field [%s] of type [date]: %w", ft.Name, err)
		}
		return ms, nil
	case ft.Type == TypeBoolean:
		return toBool(value)
	default:
		return fmt.Sprint(value), nil
	}
}

// ParseDateMillis accepts epoch millis or an RFC 3339 / yyyy-MM-dd string.
func ParseDateMillis(value interface{}) (int64, error) {
	switch v := value.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case float64:
		return int64(v), nil
	case string:
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, v); err == nil {
				return t.UnixMilli(), nil
			}
		}
		if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
			return ms, nil
		}
		return 0, fmt.Errorf("failed to parse date [%s]", v)
	default:
		return 0, fmt.Errorf("failed to parse date from %T", value)
	}
}

func toFloat(value interface{}) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("failed to parse number [%s]", v)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("failed to parse number from %T", value)
	}
}

func toBool(value interface{}) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		switch v {
		case "true":
			return true, nil
		case "false", "":
			return false, nil
		}
	}
	return false, fmt.Errorf("failed to parse boolean from [%v]", value)
}
