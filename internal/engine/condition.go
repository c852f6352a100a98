package engine

import (
	"strings"

	"github.com/formlab/formrules/internal/types"
)

/*
 * Condition evaluation.
 *
 * Evaluates one typed condition against the live value map and the field
 * catalog. Values should be JSON-typed; coercion happens here via coerce.go.
 *
 * Operators:
 *   - ==/!=: structural equality on coerced values (numeric fields compare
 *     as numbers when both sides coerce; string forms otherwise)
 *   - </>/<=/>=: numeric (or temporal) coercion on both operands; a
 *     non-coercible operand yields condition-not-met, never an error
 *   - contains/notContains/startsWith/endsWith: case-insensitive substring
 *     operations on the string forms
 *   - in: operand treated as an array (scalar wrapped as one element)
 *   - isEmpty/isNotEmpty: inspect only the field's current value
 *
 * Error policy: EvaluateCondition never fails. A dangling field reference,
 * unknown operator, or coercion mismatch evaluates to false so one defective
 * condition cannot abort the pass (operator/type compatibility is advisory
 * and enforced by the validator at authoring time).
 */

// Catalog indexes a field list by id for operand resolution.
type Catalog map[types.FieldID]types.Field

// NewCatalog builds a Catalog from the form's field list.
func NewCatalog(fields []types.Field) Catalog {
	c := make(Catalog, len(fields))
	for _, f := range fields {
		c[f.ID] = f
	}
	return c
}

// EvaluateCondition evaluates a single condition against the value map.
// Returns false for dangling field references and coercion mismatches.
func EvaluateCondition(cond types.Condition, values types.ValueMap, catalog Catalog) bool {
	field, ok := catalog[cond.FieldID]
	if !ok {
		return false
	}
	current := values[cond.FieldID]

	// isEmpty/isNotEmpty ignore the configured comparison value entirely.
	switch cond.Operator {
	case types.OpIsEmpty:
		return isEmptyValue(current)
	case types.OpIsNotEmpty:
		return !isEmptyValue(current)
	}

	operand := cond.Value
	if cond.CompareToField != "" {
		if _, ok := catalog[cond.CompareToField]; !ok {
			return false
		}
		operand = values[cond.CompareToField]
	}

	switch cond.Operator {
	case types.OpEquals:
		return valuesEqual(current, operand, field.Type)
	case types.OpNotEquals:
		return !valuesEqual(current, operand, field.Type)
	case types.OpLess, types.OpGreater, types.OpLessEq, types.OpGreaterEq:
		return compareOrdered(cond.Operator, current, operand, field.Type)
	case types.OpContains:
		return stringContains(current, operand)
	case types.OpNotContain:
		return !stringContains(current, operand)
	case types.OpStartsWith:
		return strings.HasPrefix(foldString(current), foldString(operand))
	case types.OpEndsWith:
		return strings.HasSuffix(foldString(current), foldString(operand))
	case types.OpIn:
		return membershipIn(current, operand, field.Type)
	default:
		return false
	}
}

// valuesEqual performs structural equality on coerced values.
// Numeric fields compare as numbers when both sides coerce; all other
// combinations compare canonical string forms.
func valuesEqual(a, b any, ft types.FieldType) bool {
	if ft.IsNumeric() {
		if na, oka := toNumber(a); oka {
			if nb, okb := toNumber(b); okb {
				return na == nb
			}
		}
	}
	return stringify(a) == stringify(b)
}

// compareOrdered applies an ordering operator after numeric/temporal
// coercion. Non-coercible operands yield false.
func compareOrdered(op types.Operator, a, b any, ft types.FieldType) bool {
	na, oka := toOrdered(a, ft)
	nb, okb := toOrdered(b, ft)
	if !oka || !okb {
		return false
	}
	switch op {
	case types.OpLess:
		return na < nb
	case types.OpGreater:
		return na > nb
	case types.OpLessEq:
		return na <= nb
	case types.OpGreaterEq:
		return na >= nb
	default:
		return false
	}
}

// foldString lowercases the canonical string form for the case-insensitive
// substring operators.
func foldString(v any) string {
	return strings.ToLower(stringify(v))
}

// stringContains checks case-insensitive substring membership. For
// array-valued fields (checkbox, userPicker) it checks element membership
// instead of substring on the JSON encoding.
func stringContains(value, operand any) bool {
	if arr, ok := value.([]any); ok {
		needle := foldString(operand)
		for _, elem := range arr {
			if foldString(elem) == needle {
				return true
			}
		}
		return false
	}
	return strings.Contains(foldString(value), foldString(operand))
}

// membershipIn checks whether the field's value is a member of the operand
// array, using the same per-type equality semantics as ==.
func membershipIn(value, operand any, ft types.FieldType) bool {
	for _, elem := range asArray(operand) {
		if valuesEqual(value, elem, ft) {
			return true
		}
	}
	return false
}
