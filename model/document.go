package model

import "strings"

// Document is a flexible map representing a JSON document.
// The documentID is the only required field for document identification.
// Nested objects are map[string]interface{} values and can be read with Path.
type Document map[string]interface{}

// GetDocumentID returns the documentID if it's stored in the document map under "documentID" key.
func (d Document) GetDocumentID() (string, bool) {
	if id, ok := d["documentID"]; ok {
		if str, sok := id.(string); sok {
			if str != "" {
				return str, true
			}
		}
	}
	return "", false
}

// Path returns the values found under a dotted field name such as "comments.author".
// Arrays are flattened, so a path crossing an array of objects yields one value per object.
func (d Document) Path(name string) []interface{} {
	if v, ok := d[name]; ok {
		return flatten(v)
	}
	return collect(map[string]interface{}(d), strings.Split(name, "."))
}

func collect(node interface{}, parts []string) []interface{} {
	if len(parts) == 0 {
		return flatten(node)
	}
	switch n := node.(type) {
	case map[string]interface{}:
		child, ok := n[parts[0]]
		if !ok {
			return nil
		}
		return collect(child, parts[1:])
	case Document:
		return collect(map[string]interface{}(n), parts)
	case []interface{}:
		var out []interface{}
		for _, item := range n {
			out = append(out, collect(item, parts)...)
		}
		return out
	default:
		return nil
	}
}

func flatten(v interface{}) []interface{} {
	switch vv := v.(type) {
	case nil:
		return nil
	case []interface{}:
		out := make([]interface{}, 0, len(vv))
		for _, item := range vv {
			out = append(out, flatten(item)...)
		}
		return out
	case []string:
		out := make([]interface{}, len(vv))
		for i, s := range vv {
			out[i] = s
		}
		return out
	default:
		return []interface{}{v}
	}
}
