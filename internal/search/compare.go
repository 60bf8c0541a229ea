package search

import (
	"strconv"
)

// CompareValues orders two normalized field values. ok is false when the
// values are not comparable with each other.
func CompareValues(docVal, queryVal interface{}) (cmp int, ok bool) {
	// Numeric comparison
	if docFloat, docOk := convertToFloat64(docVal); docOk {
		if queryFloat, queryOk := convertToFloat64(queryVal); queryOk {
			switch {
			case docFloat < queryFloat:
				return -1, true
			case docFloat > queryFloat:
				return 1, true
			default:
				return 0, true
			}
		}
	}

	// String comparison (case-sensitive)
	if docStr, isDocStr := docVal.(string); isDocStr {
		if queryStr, isQueryStr := queryVal.(string); isQueryStr {
			switch {
			case docStr < queryStr:
				return -1, true
			case docStr > queryStr:
				return 1, true
			default:
				return 0, true
			}
		}
	}

	if docBool, isDocBool := docVal.(bool); isDocBool {
		if queryBool, isQueryBool := queryVal.(bool); isQueryBool {
			switch {
			case docBool == queryBool:
				return 0, true
			case !docBool:
				return -1, true
			default:
				return 1, true
			}
		}
	}

	return 0, false
}

// Range is a bound check on normalized values. A nil bound is open.
type Range struct {
	Lower, Upper               interface{}
	IncludeLower, IncludeUpper bool
}

// Contains reports whether v lies within the range.
func (r Range) Contains(v interface{}) bool {
	if r.Lower != nil {
		c, ok := CompareValues(v, r.Lower)
		if !ok || c < 0 || (c == 0 && !r.IncludeLower) {
			return false
		}
	}
	if r.Upper != nil {
		c, ok := CompareValues(v, r.Upper)
		if !ok || c > 0 || (c == 0 && !r.IncludeUpper) {
			return false
		}
	}
	return true
}

func (r Range) String() string {
	lower, upper := "*", "*"
	if r.Lower != nil {
		lower = formatValue(r.Lower)
	}
	if r.Upper != nil {
		upper = formatValue(r.Upper)
	}
	open, closing := "{", "}"
	if r.IncludeLower {
		open = "["
	}
	if r.IncludeUpper {
		closing = "]"
	}
	return open + lower + " TO " + upper + closing
}

func formatValue(v interface{}) string {
	switch vv := v.(type) {
	case float64:
		return strconv.FormatFloat(vv, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(vv, 10)
	case string:
		return vv
	case bool:
		return strconv.FormatBool(vv)
	default:
		return "?"
	}
}

// convertToFloat64 converts various numeric types to float64
func convertToFloat64(val interface{}) (float64, bool) {
	switch v := val.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	}
	return 0, false
}
