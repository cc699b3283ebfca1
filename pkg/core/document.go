package core

import (
	"fmt"
	"strings"
)

// FieldValue resolves a dot-path field ("company.address.city") against
// a document. Returns nil when any path segment is missing or a
// non-map value is traversed.
func FieldValue(doc Document, path string) any {
	if path == "" {
		return nil
	}

	var current any = map[string]any(doc)
	for _, segment := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			if d, ok := current.(Document); ok {
				m = map[string]any(d)
			} else {
				return nil
			}
		}
		current, ok = m[segment]
		if !ok {
			return nil
		}
	}
	return current
}

// CompareValues orders two field values. Numbers compare numerically
// across integer and float widths, strings and bools lexically; mixed
// or unsupported types fall back to their string forms so that sorts
// stay total and deterministic.
func CompareValues(a, b any) int {
	aFloat, aOK := toFloat64(a)
	bFloat, bOK := toFloat64(b)
	if aOK && bOK {
		switch {
		case aFloat < bFloat:
			return -1
		case aFloat > bFloat:
			return 1
		default:
			return 0
		}
	}

	if aStr, ok := a.(string); ok {
		if bStr, ok := b.(string); ok {
			return strings.Compare(aStr, bStr)
		}
	}

	if aBool, ok := a.(bool); ok {
		if bBool, ok := b.(bool); ok {
			switch {
			case aBool == bBool:
				return 0
			case bBool:
				return -1
			default:
				return 1
			}
		}
	}

	return strings.Compare(fmt.Sprintf("%v", a), fmt.Sprintf("%v", b))
}

// toFloat64 widens any numeric value to float64.
func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
