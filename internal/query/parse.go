package query

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/gcbaptista/go-shard-query/internal/errors"
	"github.com/gcbaptista/go-shard-query/internal/script"
)

type parseFunc func(body interface{}) (Builder, error)

func parserFor(kind string) (parseFunc, bool) {
	switch kind {
	case KindMatchAll:
		return parseMatchAll, true
	case KindMatchNone:
		return parseMatchNone, true
	case KindTerm:
		return parseTerm, true
	case KindTerms:
		return parseTerms, true
	case KindMatch:
		return parseMatch, true
	case KindBool:
		return parseBool, true
	case KindRange:
		return parseRange, true
	case KindExists:
		return parseExists, true
	case KindIDs:
		return parseIDs, true
	case KindFuzzy:
		return parseFuzzy, true
	case KindWildcard:
		return parseWildcard, true
	case KindNested:
		return parseNested, true
	case KindScript:
		return parseScript, true
	}
	return nil, false
}

// Parse reads a JSON query description such as {"term": {"genre": "drama"}}.
func Parse(data []byte) (Builder, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.NewParsingError("", "query cannot be empty")
	}
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.NewParsingError("", "malformed query: %v", err)
	}
	return ParseValue(raw)
}

// ParseValue reads an already decoded query description.
func ParseValue(raw interface{}) (Builder, error) {
	obj, ok := raw.(map[string]interface{})
	if !ok {
		return nil, errors.NewParsingError("", "query must be an object, got %s", describe(raw))
	}
	if len(obj) != 1 {
		return nil, errors.NewParsingError("", "query must have exactly one key, got [%s]", joinKeys(obj))
	}
	for kind, body := range obj {
		parse, ok := parserFor(kind)
		if !ok {
			return nil, errors.NewParsingError(kind, "unknown query [%s]", kind)
		}
		return parse(body)
	}
	return nil, nil
}

func describe(v interface{}) string {
	switch v.(type) {
	case nil:
		return "null"
	case []interface{}:
		return "array"
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "boolean"
	}
	return fmt.Sprintf("%T", v)
}

func joinKeys(obj map[string]interface{}) string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return strings.Join(keys, ", ")
}

func asObject(kind string, v interface{}) (map[string]interface{}, error) {
	obj, ok := v.(map[string]interface{})
	if !ok {
		return nil, errors.NewParsingError(kind, "query malformed, expected an object, got %s", describe(v))
	}
	return obj, nil
}

func asString(kind, key string, v interface{}) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", errors.NewParsingError(kind, "[%s] must be a string, got %s", key, describe(v))
	}
	return s, nil
}

func asInt(kind, key string, v interface{}) (int, error) {
	f, ok := v.(float64)
	if !ok || f != float64(int(f)) {
		return 0, errors.NewParsingError(kind, "[%s] must be an integer, got %v", key, v)
	}
	return int(f), nil
}

func asBool(kind, key string, v interface{}) (bool, error) {
	b, ok := v.(bool)
	if !ok {
		return false, errors.NewParsingError(kind, "[%s] must be a boolean, got %s", key, describe(v))
	}
	return b, nil
}

func asStrings(kind, key string, v interface{}) ([]string, error) {
	items, ok := v.([]interface{})
	if !ok {
		return nil, errors.NewParsingError(kind, "[%s] must be an array, got %s", key, describe(v))
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, err := asString(kind, key, item)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func optionalName(kind string, obj map[string]interface{}) (string, error) {
	v, ok := obj["_name"]
	if !ok {
		return "", nil
	}
	return asString(kind, "_name", v)
}

// singleField splits {"<field>": <params>, "_name": ...} bodies.
func singleField(kind string, body interface{}) (field string, params interface{}, name string, err error) {
	obj, err := asObject(kind, body)
	if err != nil {
		return "", nil, "", err
	}
	if name, err = optionalName(kind, obj); err != nil {
		return "", nil, "", err
	}
	for k, v := range obj {
		if k == "_name" {
			continue
		}
		if field != "" {
			return "", nil, "", errors.NewParsingError(kind, "query doesn't support multiple fields, found [%s] and [%s]", field, k)
		}
		field, params = k, v
	}
	if field == "" {
		return "", nil, "", errors.NewParsingError(kind, "query requires a field")
	}
	return field, params, name, nil
}

// fieldParams reads the object form of a field body. valueKey is the key the
// short form maps to.
func fieldParams(kind, valueKey string, params interface{}, allowed ...string) (map[string]interface{}, error) {
	obj, ok := params.(map[string]interface{})
	if !ok {
		return map[string]interface{}{valueKey: params}, nil
	}
	known := map[string]bool{valueKey: true, "_name": true}
	for _, k := range allowed {
		known[k] = true
	}
	for k := range obj {
		if !known[k] {
			return nil, errors.NewParsingError(kind, "query does not support [%s]", k)
		}
	}
	return obj, nil
}

func checkKeys(kind string, obj map[string]interface{}, allowed ...string) error {
	known := map[string]bool{"_name": true}
	for _, k := range allowed {
		known[k] = true
	}
	for k := range obj {
		if !known[k] {
			return errors.NewParsingError(kind, "query does not support [%s]", k)
		}
	}
	return nil
}

func parseMatchAll(body interface{}) (Builder, error) {
	obj, err := asObject(KindMatchAll, body)
	if err != nil {
		return nil, err
	}
	if err := checkKeys(KindMatchAll, obj); err != nil {
		return nil, err
	}
	name, err := optionalName(KindMatchAll, obj)
	if err != nil {
		return nil, err
	}
	return &MatchAllBuilder{Name: name}, nil
}

func parseMatchNone(body interface{}) (Builder, error) {
	obj, err := asObject(KindMatchNone, body)
	if err != nil {
		return nil, err
	}
	if err := checkKeys(KindMatchNone, obj); err != nil {
		return nil, err
	}
	name, err := optionalName(KindMatchNone, obj)
	if err != nil {
		return nil, err
	}
	return &MatchNoneBuilder{Name: name}, nil
}

func parseTerm(body interface{}) (Builder, error) {
	field, params, name, err := singleField(KindTerm, body)
	if err != nil {
		return nil, err
	}
	obj, err := fieldParams(KindTerm, "value", params)
	if err != nil {
		return nil, err
	}
	if n, err := optionalName(KindTerm, obj); err != nil {
		return nil, err
	} else if n != "" {
		name = n
	}
	value, ok := obj["value"]
	if !ok || value == nil {
		return nil, errors.NewParsingError(KindTerm, "value cannot be null for field [%s]", field)
	}
	return &TermBuilder{Field: field, Value: value, Name: name}, nil
}

func parseTerms(body interface{}) (Builder, error) {
	field, params, name, err := singleField(KindTerms, body)
	if err != nil {
		return nil, err
	}
	switch p := params.(type) {
	case []interface{}:
		return &TermsBuilder{Field: field, Values: p, Name: name}, nil
	case map[string]interface{}:
		if err := checkKeys(KindTerms, p, "index", "id", "path"); err != nil {
			return nil, err
		}
		var l TermsLookup
		for key, target := range map[string]*string{"index": &l.Index, "id": &l.ID, "path": &l.Path} {
			v, ok := p[key]
			if !ok {
				return nil, errors.NewParsingError(KindTerms, "terms lookup requires [%s]", key)
			}
			if *target, err = asString(KindTerms, key, v); err != nil {
				return nil, err
			}
		}
		return &TermsBuilder{Field: field, Lookup: &l, Name: name}, nil
	}
	return nil, errors.NewParsingError(KindTerms, "[%s] must be an array of values or a lookup object", field)
}

func parseMatch(body interface{}) (Builder, error) {
	field, params, name, err := singleField(KindMatch, body)
	if err != nil {
		return nil, err
	}
	obj, err := fieldParams(KindMatch, "query", params, "operator", "fuzziness")
	if err != nil {
		return nil, err
	}
	b := &MatchBuilder{Field: field, Name: name}
	if n, err := optionalName(KindMatch, obj); err != nil {
		return nil, err
	} else if n != "" {
		b.Name = n
	}
	query, ok := obj["query"]
	if !ok || query == nil {
		return nil, errors.NewParsingError(KindMatch, "requires query value for field [%s]", field)
	}
	b.Query = query
	if v, ok := obj["operator"]; ok {
		if b.Operator, err = asString(KindMatch, "operator", v); err != nil {
			return nil, err
		}
		if b.Operator != "and" && b.Operator != "or" {
			return nil, errors.NewParsingError(KindMatch, "operator must be [and] or [or], got [%s]", b.Operator)
		}
	}
	if v, ok := obj["fuzziness"]; ok {
		if b.Fuzziness, err = fuzzinessString(KindMatch, v); err != nil {
			return nil, err
		}
	}
	return b, nil
}

func fuzzinessString(kind string, v interface{}) (string, error) {
	switch f := v.(type) {
	case string:
		return f, nil
	case float64:
		return fmt.Sprint(int(f)), nil
	}
	return "", errors.NewParsingError(kind, "[fuzziness] must be a string or a number, got %s", describe(v))
}

func parseBool(body interface{}) (Builder, error) {
	obj, err := asObject(KindBool, body)
	if err != nil {
		return nil, err
	}
	b := &BoolBuilder{}
	if b.Name, err = optionalName(KindBool, obj); err != nil {
		return nil, err
	}
	for key, v := range obj {
		var target *[]Builder
		switch key {
		case "_name":
			continue
		case "must":
			target = &b.Must
		case "filter":
			target = &b.Filter
		case "should":
			target = &b.Should
		case "must_not":
			target = &b.MustNot
		case "minimum_should_match":
			if b.MinimumShouldMatch, err = asInt(KindBool, key, v); err != nil {
				return nil, err
			}
			continue
		default:
			return nil, errors.NewParsingError(KindBool, "query does not support [%s]", key)
		}
		clauses, ok := v.([]interface{})
		if !ok {
			clauses = []interface{}{v}
		}
		for _, raw := range clauses {
			clause, err := ParseValue(raw)
			if err != nil {
				return nil, err
			}
			*target = append(*target, clause)
		}
	}
	return b, nil
}

func parseRange(body interface{}) (Builder, error) {
	field, params, name, err := singleField(KindRange, body)
	if err != nil {
		return nil, err
	}
	obj, err := asObject(KindRange, params)
	if err != nil {
		return nil, err
	}
	if err := checkKeys(KindRange, obj, "gt", "gte", "lt", "lte"); err != nil {
		return nil, err
	}
	b := &RangeBuilder{Field: field, GT: obj["gt"], GTE: obj["gte"], LT: obj["lt"], LTE: obj["lte"], Name: name}
	if n, err := optionalName(KindRange, obj); err != nil {
		return nil, err
	} else if n != "" {
		b.Name = n
	}
	if b.GT != nil && b.GTE != nil {
		return nil, errors.NewParsingError(KindRange, "[gt] and [gte] cannot both be set on field [%s]", field)
	}
	if b.LT != nil && b.LTE != nil {
		return nil, errors.NewParsingError(KindRange, "[lt] and [lte] cannot both be set on field [%s]", field)
	}
	return b, nil
}

func parseExists(body interface{}) (Builder, error) {
	obj, err := asObject(KindExists, body)
	if err != nil {
		return nil, err
	}
	if err := checkKeys(KindExists, obj, "field"); err != nil {
		return nil, err
	}
	v, ok := obj["field"]
	if !ok {
		return nil, errors.NewParsingError(KindExists, "query requires [field]")
	}
	b := &ExistsBuilder{}
	if b.Field, err = asString(KindExists, "field", v); err != nil {
		return nil, err
	}
	if b.Name, err = optionalName(KindExists, obj); err != nil {
		return nil, err
	}
	return b, nil
}

func parseIDs(body interface{}) (Builder, error) {
	obj, err := asObject(KindIDs, body)
	if err != nil {
		return nil, err
	}
	if err := checkKeys(KindIDs, obj, "values", "types"); err != nil {
		return nil, err
	}
	b := &IDsBuilder{}
	if v, ok := obj["values"]; ok {
		if b.IDs, err = asStrings(KindIDs, "values", v); err != nil {
			return nil, err
		}
	}
	if v, ok := obj["types"]; ok {
		if b.Types, err = asStrings(KindIDs, "types", v); err != nil {
			return nil, err
		}
	}
	if b.Name, err = optionalName(KindIDs, obj); err != nil {
		return nil, err
	}
	return b, nil
}

func parseFuzzy(body interface{}) (Builder, error) {
	field, params, name, err := singleField(KindFuzzy, body)
	if err != nil {
		return nil, err
	}
	obj, err := fieldParams(KindFuzzy, "value", params, "fuzziness", "prefix_length", "max_expansions", "transpositions")
	if err != nil {
		return nil, err
	}
	b := &FuzzyBuilder{Field: field, Name: name}
	if n, err := optionalName(KindFuzzy, obj); err != nil {
		return nil, err
	} else if n != "" {
		b.Name = n
	}
	if b.Value, err = asString(KindFuzzy, "value", obj["value"]); err != nil {
		return nil, err
	}
	if v, ok := obj["fuzziness"]; ok {
		if b.Fuzziness, err = fuzzinessString(KindFuzzy, v); err != nil {
			return nil, err
		}
	}
	if v, ok := obj["prefix_length"]; ok {
		if b.PrefixLength, err = asInt(KindFuzzy, "prefix_length", v); err != nil {
			return nil, err
		}
	}
	if v, ok := obj["max_expansions"]; ok {
		if b.MaxExpansions, err = asInt(KindFuzzy, "max_expansions", v); err != nil {
			return nil, err
		}
	}
	if v, ok := obj["transpositions"]; ok {
		t, err := asBool(KindFuzzy, "transpositions", v)
		if err != nil {
			return nil, err
		}
		b.Transpositions = &t
	}
	return b, nil
}

func parseWildcard(body interface{}) (Builder, error) {
	field, params, name, err := singleField(KindWildcard, body)
	if err != nil {
		return nil, err
	}
	obj, err := fieldParams(KindWildcard, "value", params)
	if err != nil {
		return nil, err
	}
	b := &WildcardBuilder{Field: field, Name: name}
	if n, err := optionalName(KindWildcard, obj); err != nil {
		return nil, err
	} else if n != "" {
		b.Name = n
	}
	if b.Value, err = asString(KindWildcard, "value", obj["value"]); err != nil {
		return nil, err
	}
	return b, nil
}

func parseNested(body interface{}) (Builder, error) {
	obj, err := asObject(KindNested, body)
	if err != nil {
		return nil, err
	}
	if err := checkKeys(KindNested, obj, "path", "query", "ignore_unmapped"); err != nil {
		return nil, err
	}
	b := &NestedBuilder{}
	if b.Path, err = asString(KindNested, "path", obj["path"]); err != nil {
		return nil, err
	}
	inner, ok := obj["query"]
	if !ok {
		return nil, errors.NewParsingError(KindNested, "[query] is required")
	}
	if b.Query, err = ParseValue(inner); err != nil {
		return nil, err
	}
	if v, ok := obj["ignore_unmapped"]; ok {
		if b.IgnoreUnmapped, err = asBool(KindNested, "ignore_unmapped", v); err != nil {
			return nil, err
		}
	}
	if b.Name, err = optionalName(KindNested, obj); err != nil {
		return nil, err
	}
	return b, nil
}

func parseScript(body interface{}) (Builder, error) {
	obj, err := asObject(KindScript, body)
	if err != nil {
		return nil, err
	}
	if err := checkKeys(KindScript, obj, "script"); err != nil {
		return nil, err
	}
	b := &ScriptBuilder{}
	if b.Name, err = optionalName(KindScript, obj); err != nil {
		return nil, err
	}

	switch s := obj["script"].(type) {
	case string:
		b.Script = script.Script{Lang: script.LangJSONPath, Source: s}
	case map[string]interface{}:
		if err := checkKeys(KindScript, s, "lang", "source", "params"); err != nil {
			return nil, err
		}
		b.Script.Lang = script.LangJSONPath
		if v, ok := s["lang"]; ok {
			if b.Script.Lang, err = asString(KindScript, "lang", v); err != nil {
				return nil, err
			}
		}
		if b.Script.Source, err = asString(KindScript, "source", s["source"]); err != nil {
			return nil, err
		}
		if v, ok := s["params"]; ok {
			if b.Script.Params, err = asObject(KindScript, v); err != nil {
				return nil, err
			}
		}
	default:
		return nil, errors.NewParsingError(KindScript, "[script] must be a string or an object, got %s", describe(obj["script"]))
	}
	return b, nil
}
