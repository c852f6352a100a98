package engine

import (
	"github.com/formlab/formrules/internal/types"
)

/*
 * Form-rule evaluation.
 *
 * Identical condition/logic pipeline to field rules, but a satisfied rule
 * yields an ActionDescriptor instead of mutating field state. The engine
 * performs no I/O: dispatching the side effects (email, webhook, workflow)
 * is the caller's job, as is debouncing duplicate fan-out across keystrokes.
 *
 * Descriptors are returned in rule-declaration order; unsatisfied and
 * defective rules contribute nothing.
 */

// EvaluateForm compiles and evaluates form rules in one call.
func EvaluateForm(fields []types.Field, rules []types.FormRule, values types.ValueMap) []types.ActionDescriptor {
	return EvaluateCompiledForm(fields, CompileFormRules(rules), values)
}

// EvaluateCompiledForm returns the ordered action descriptors of every
// satisfied, active form rule. Pure and deterministic: identical inputs
// yield an identical descriptor list.
func EvaluateCompiledForm(fields []types.Field, rules []CompiledFormRule, values types.ValueMap) []types.ActionDescriptor {
	catalog := NewCatalog(fields)

	descriptors := make([]types.ActionDescriptor, 0, len(rules))
	for _, c := range rules {
		if !c.Rule.Active || c.Err != nil {
			continue
		}
		if !c.Expr.Eval(conditionResults(c.Rule.Conditions, values, catalog)) {
			continue
		}
		descriptors = append(descriptors, types.ActionDescriptor{
			RuleID:      c.Rule.ID,
			Action:      c.Rule.Action,
			ActionValue: c.Payload,
		})
	}
	return descriptors
}

// AutoFillMutations extracts the value-map changes implied by satisfied
// autoFillFields descriptors so the runtime can fold them in alongside
// field-rule mutations before the next pass.
func AutoFillMutations(descriptors []types.ActionDescriptor) []ValueMutation {
	var mutations []ValueMutation
	for _, d := range descriptors {
		if d.Action != types.ActionAutoFillFields {
			continue
		}
		fill, ok := d.ActionValue.(map[string]any)
		if !ok {
			continue
		}
		for _, id := range sortedKeys(fill) {
			mutations = append(mutations, ValueMutation{
				FieldID: types.FieldID(id),
				Value:   fill[id],
			})
		}
	}
	return mutations
}
