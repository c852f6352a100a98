package engine

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/formlab/formrules/internal/types"
)

/*
 * Value coercion for condition evaluation.
 *
 * Consolidates every type conversion the evaluator needs, keyed by the
 * FieldType enumeration. Values arrive JSON-typed (string, float64, bool,
 * []any, map[string]any); coercion is permissive and reports failure through
 * an ok flag instead of an error, so a mismatch degrades a single condition
 * to false rather than failing the pass.
 *
 * Conversions:
 *   - toNumber: numeric types, numeric strings, bools (true=1, false=0)
 *   - toOrdered: ordering operand per field type (numbers, or temporal
 *     values parsed to epoch milliseconds for date/time/datetime fields)
 *   - stringify: canonical string form (composites via JSON encoding)
 *   - asArray: wraps a scalar as a single-element array for the in operator
 *   - isEmptyValue: nil, empty string, empty array/map
 */

// toNumber converts a value to float64 for numeric comparison.
// Accepts float64, int, int64, json.Number, numeric strings, and bools.
// Whitespace-only strings are not valid numbers.
func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// temporalLayouts are tried in order when parsing date/time field values.
var temporalLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"15:04:05",
	"15:04",
}

// toTemporal parses a date/time value to epoch milliseconds.
// Numeric inputs are assumed to already be epoch milliseconds.
func toTemporal(v any) (float64, bool) {
	if s, ok := v.(string); ok {
		s = strings.TrimSpace(s)
		for _, layout := range temporalLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return float64(t.UnixMilli()), true
			}
		}
		return 0, false
	}
	return toNumber(v)
}

// toOrdered resolves an ordering operand for the given field type.
// Temporal fields parse date/time strings; everything else coerces to number.
func toOrdered(v any, ft types.FieldType) (float64, bool) {
	if ft.IsTemporal() {
		return toTemporal(v)
	}
	return toNumber(v)
}

// stringify produces the canonical string form of a value.
// Composites (arrays, objects) encode as JSON so structural values compare
// deterministically.
func stringify(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case bool:
		return strconv.FormatBool(s)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int:
		return strconv.Itoa(s)
	case int64:
		return strconv.FormatInt(s, 10)
	case json.Number:
		return s.String()
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// asArray treats the operand of the in operator as an array, wrapping a
// non-array value as a single-element array.
func asArray(v any) []any {
	switch a := v.(type) {
	case []any:
		return a
	case []string:
		out := make([]any, len(a))
		for i, s := range a {
			out[i] = s
		}
		return out
	case nil:
		return nil
	default:
		return []any{v}
	}
}

// isEmptyValue reports whether a field's current value counts as empty:
// missing/null, empty string, or an empty array. Zero numbers and "0" are
// not empty.
func isEmptyValue(v any) bool {
	switch s := v.(type) {
	case nil:
		return true
	case string:
		return s == ""
	case []any:
		return len(s) == 0
	case []string:
		return len(s) == 0
	case map[string]any:
		return len(s) == 0
	default:
		return false
	}
}
