package engine

import (
	"fmt"

	"github.com/formlab/formrules/internal/types"
)

/*
 * Rule-set compilation.
 *
 * Pre-parses each rule's logic expression and pre-decodes its action payload
 * so the per-keystroke evaluation path does no parsing. Compilation never
 * fails the set: a rule with a malformed expression or payload is marked
 * with Err and skipped at evaluation time, isolating one defective rule from
 * the rest of the pass.
 *
 * The compiled forms are immutable after construction and safe for
 * concurrent evaluation from independent contexts.
 */

// CompiledFieldRule is a field rule with its expression parsed and payload
// decoded. Err non-nil means the rule is skipped at evaluation.
type CompiledFieldRule struct {
	Rule    types.FieldRule
	Expr    *LogicExpr
	Payload any
	Err     error
}

// CompiledFormRule is the form-rule counterpart of CompiledFieldRule.
type CompiledFormRule struct {
	Rule    types.FormRule
	Expr    *LogicExpr
	Payload any
	Err     error
}

// CompileFieldRules pre-processes field rules in declaration order.
// Defective rules are marked, not dropped, so indices and ordering are
// preserved for diagnostics.
func CompileFieldRules(rules []types.FieldRule) []CompiledFieldRule {
	compiled := make([]CompiledFieldRule, 0, len(rules))
	for _, r := range rules {
		c := CompiledFieldRule{Rule: r}
		c.Expr, c.Payload, c.Err = compileParts(r.LogicExpression, len(r.Conditions), func() (any, error) {
			spec, ok := fieldActions[r.Action]
			if !ok {
				return nil, fmt.Errorf("%w: %q", types.ErrUnknownAction, r.Action)
			}
			if spec.decode == nil {
				return nil, nil
			}
			return spec.decode(r.ActionValue)
		})
		compiled = append(compiled, c)
	}
	return compiled
}

// CompileFormRules pre-processes form rules in declaration order.
func CompileFormRules(rules []types.FormRule) []CompiledFormRule {
	compiled := make([]CompiledFormRule, 0, len(rules))
	for _, r := range rules {
		c := CompiledFormRule{Rule: r}
		c.Expr, c.Payload, c.Err = compileParts(r.LogicExpression, len(r.Conditions), func() (any, error) {
			if !formActionKnown[r.Action] {
				return nil, fmt.Errorf("%w: %q", types.ErrUnknownAction, r.Action)
			}
			decode, ok := formActionDecoders[r.Action]
			if !ok {
				return nil, nil
			}
			return decode(r.ActionValue)
		})
		compiled = append(compiled, c)
	}
	return compiled
}

// compileParts parses the expression and decodes the payload, reporting the
// first defect. A rule with zero conditions can never be satisfied and is
// marked defective here rather than special-cased during evaluation.
func compileParts(expr string, conditionCount int, decodePayload func() (any, error)) (*LogicExpr, any, error) {
	if conditionCount == 0 {
		return nil, nil, types.ErrNoConditions
	}
	if conditionCount > types.MaxConditionsPerRule {
		return nil, nil, types.ErrTooManyConditions
	}
	parsed, err := ParseLogicExpression(expr, conditionCount)
	if err != nil {
		return nil, nil, err
	}
	payload, err := decodePayload()
	if err != nil {
		return nil, nil, err
	}
	return parsed, payload, nil
}
