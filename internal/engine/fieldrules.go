package engine

import (
	"github.com/formlab/formrules/internal/types"
)

/*
 * Field-rule evaluation.
 *
 * Single deterministic pass in rule-declaration order:
 *
 *   1. Every field's state starts at its baseline.
 *   2. For each active, well-formed rule: evaluate its conditions, combine
 *      them through the logic expression, then either apply the action to
 *      the target's state or reset the affected aspect back to the BASELINE
 *      (not the pre-rule state) when the rule is unsatisfied.
 *   3. Later rules targeting the same field and aspect win over earlier
 *      ones; there is no conflict detection between rules.
 *
 * The pass is a pure function of (fields, rules, values) and is re-run from
 * scratch on every value change. There is no incremental diffing and no
 * multi-pass fixed point: a rule whose condition reads a value written by
 * setDefault/clearValue/autoFillFields sees it on the NEXT pass, after the
 * caller folds the returned mutations into its live value map.
 *
 * Error isolation: a dangling target is a no-op rule; invalid expressions
 * and payloads were marked at compile time and are skipped here. Nothing a
 * single rule does can abort the pass.
 */

// ValueMutation is a deferred change to the live value map emitted by
// setDefault (Value set) or clearValue (Clear true).
type ValueMutation struct {
	FieldID types.FieldID `json:"fieldId"`
	Value   any           `json:"value,omitempty"`
	Clear   bool          `json:"clear,omitempty"`
}

// FieldResult is the output of one field-rule evaluation pass.
type FieldResult struct {
	// States maps every catalog field to its derived state. Fields not
	// targeted by any satisfied rule equal their baseline exactly.
	States map[types.FieldID]types.FieldState `json:"fieldStates"`
	// Mutations are value-map changes to fold in before the next pass,
	// in the order the emitting rules were declared.
	Mutations []ValueMutation `json:"valueMutations,omitempty"`
}

// EvaluateFields compiles and evaluates in one call. Callers on the
// per-keystroke path should compile once and use EvaluateCompiledFields.
func EvaluateFields(fields []types.Field, rules []types.FieldRule, values types.ValueMap) FieldResult {
	return EvaluateCompiledFields(fields, CompileFieldRules(rules), values)
}

// EvaluateCompiledFields runs one evaluation pass over a compiled rule set.
// Pure: neither fields, rules, nor values are mutated.
func EvaluateCompiledFields(fields []types.Field, rules []CompiledFieldRule, values types.ValueMap) FieldResult {
	catalog := NewCatalog(fields)

	states := make(map[types.FieldID]types.FieldState, len(fields))
	for _, f := range fields {
		states[f.ID] = f.BaselineState()
	}

	result := FieldResult{States: states}

	for _, c := range rules {
		if !c.Rule.Active || c.Err != nil {
			continue
		}
		target, ok := catalog[c.Rule.TargetFieldID]
		if !ok {
			// Target deleted after the rule was authored: whole rule no-ops.
			continue
		}
		spec := fieldActions[c.Rule.Action]

		satisfied := c.Expr.Eval(conditionResults(c.Rule.Conditions, values, catalog))

		if spec.aspect == aspectValue {
			if satisfied {
				result.Mutations = append(result.Mutations, valueMutation(c))
			}
			continue
		}

		st := states[target.ID]
		if satisfied {
			spec.apply(&st, c.Payload)
		} else {
			resetAspect(&st, target, spec.aspect)
		}
		states[target.ID] = st
	}

	return result
}

// conditionResults evaluates each condition in order for the logic
// expression's positional references.
func conditionResults(conds []types.Condition, values types.ValueMap, catalog Catalog) []bool {
	results := make([]bool, len(conds))
	for i, cond := range conds {
		results[i] = EvaluateCondition(cond, values, catalog)
	}
	return results
}

func valueMutation(c CompiledFieldRule) ValueMutation {
	if c.Rule.Action == types.ActionClearValue {
		return ValueMutation{FieldID: c.Rule.TargetFieldID, Clear: true}
	}
	return ValueMutation{FieldID: c.Rule.TargetFieldID, Value: c.Payload}
}

// ApplyMutations folds mutations into a copy of the value map, producing the
// input for the next evaluation pass. Later mutations win on conflict.
func ApplyMutations(values types.ValueMap, mutations []ValueMutation) types.ValueMap {
	if len(mutations) == 0 {
		return values
	}
	next := values.Clone()
	for _, m := range mutations {
		if m.Clear {
			delete(next, m.FieldID)
			continue
		}
		next[m.FieldID] = m.Value
	}
	return next
}
