package engine

import (
	"fmt"

	"github.com/formlab/formrules/internal/types"
)

/*
 * Pre-save rule validation.
 *
 * Structural checks run by the rule builder before persisting, not on the
 * per-keystroke path. Errors name defects that make a rule unevaluable
 * (dangling targets, malformed expressions, undecodable payloads); warnings
 * name advisory problems the evaluator tolerates by producing false
 * (operator/field-type mismatches, ambiguous operands).
 */

// Severity classifies a validation issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one validation finding, addressed to the rule author.
type Issue struct {
	RuleID      types.RuleID `json:"ruleId"`
	ConditionID string       `json:"conditionId,omitempty"`
	Severity    Severity     `json:"severity"`
	Message     string       `json:"message"`
}

// HasErrors reports whether any issue is an error (warnings alone do not
// block saving).
func HasErrors(issues []Issue) bool {
	for _, issue := range issues {
		if issue.Severity == SeverityError {
			return true
		}
	}
	return false
}

// ValidateFieldRule checks a field rule against the catalog.
func ValidateFieldRule(rule types.FieldRule, catalog Catalog) []Issue {
	var issues []Issue
	addError := func(msg string) { issues = append(issues, Issue{RuleID: rule.ID, Severity: SeverityError, Message: msg}) }

	if _, ok := catalog[rule.TargetFieldID]; !ok {
		addError(fmt.Sprintf("target field %q does not exist", rule.TargetFieldID))
	}
	if _, ok := fieldActions[rule.Action]; !ok {
		addError(fmt.Sprintf("unknown field action %q", rule.Action))
	} else if spec := fieldActions[rule.Action]; spec.decode != nil {
		if _, err := spec.decode(rule.ActionValue); err != nil {
			addError(err.Error())
		}
	}
	issues = append(issues, validateConditions(rule.ID, rule.Conditions, rule.LogicExpression, catalog)...)
	return issues
}

// ValidateFormRule checks a form rule against the catalog.
func ValidateFormRule(rule types.FormRule, catalog Catalog) []Issue {
	var issues []Issue
	addError := func(msg string) { issues = append(issues, Issue{RuleID: rule.ID, Severity: SeverityError, Message: msg}) }

	if !formActionKnown[rule.Action] {
		addError(fmt.Sprintf("unknown form action %q", rule.Action))
	} else if decode, ok := formActionDecoders[rule.Action]; ok {
		if _, err := decode(rule.ActionValue); err != nil {
			addError(err.Error())
		}
	}
	issues = append(issues, validateConditions(rule.ID, rule.Conditions, rule.LogicExpression, catalog)...)
	return issues
}

// validateConditions checks the shared condition-list and expression rules.
func validateConditions(ruleID types.RuleID, conds []types.Condition, expr string, catalog Catalog) []Issue {
	var issues []Issue
	add := func(sev Severity, condID, msg string) {
		issues = append(issues, Issue{RuleID: ruleID, ConditionID: condID, Severity: sev, Message: msg})
	}

	if len(conds) == 0 {
		add(SeverityError, "", "rule must have at least one condition")
	}
	if len(conds) > types.MaxConditionsPerRule {
		add(SeverityError, "", fmt.Sprintf("rule has %d conditions, maximum is %d", len(conds), types.MaxConditionsPerRule))
	}
	if err := ValidateExpression(expr, len(conds)); err != nil && len(conds) > 0 {
		add(SeverityError, "", err.Error())
	}

	for _, cond := range conds {
		field, ok := catalog[cond.FieldID]
		if !ok {
			add(SeverityError, cond.ID, fmt.Sprintf("condition references missing field %q", cond.FieldID))
			continue
		}
		if !operatorCompatible(cond.Operator, field.Type) {
			add(SeverityWarning, cond.ID, fmt.Sprintf("operator %q is not advised for %s fields; the condition will evaluate to false at runtime when operands do not coerce", cond.Operator, field.Type))
		}
		if cond.CompareToField != "" {
			ref, ok := catalog[cond.CompareToField]
			if !ok {
				add(SeverityError, cond.ID, fmt.Sprintf("compare-to field %q does not exist", cond.CompareToField))
			} else if ref.Type != field.Type {
				add(SeverityWarning, cond.ID, fmt.Sprintf("compare-to field %q is %s but source field is %s", cond.CompareToField, ref.Type, field.Type))
			}
			if cond.Value != nil {
				add(SeverityWarning, cond.ID, "condition sets both value and compareToField; compareToField wins at evaluation")
			}
		}
		if cond.Operator.IgnoresOperand() && (cond.Value != nil || cond.CompareToField != "") {
			add(SeverityWarning, cond.ID, fmt.Sprintf("operator %q ignores the configured comparison value", cond.Operator))
		}
		if cond.Operator == types.OpIn {
			if arr, ok := cond.Value.([]any); ok && len(arr) > types.MaxInOperatorValues {
				add(SeverityError, cond.ID, fmt.Sprintf("in operator has %d values, maximum is %d", len(arr), types.MaxInOperatorValues))
			}
		}
	}
	return issues
}

// operatorCompatible is the advisory operator/field-type table. The
// evaluator itself stays permissive; incompatible combinations are authoring
// warnings only.
func operatorCompatible(op types.Operator, ft types.FieldType) bool {
	switch op {
	case types.OpEquals, types.OpNotEquals, types.OpIn, types.OpIsEmpty, types.OpIsNotEmpty:
		return true
	case types.OpLess, types.OpGreater, types.OpLessEq, types.OpGreaterEq:
		return ft.IsNumeric() || ft.IsTemporal()
	case types.OpContains, types.OpNotContain, types.OpStartsWith, types.OpEndsWith:
		return !ft.IsNumeric() && !ft.IsTemporal() && ft != types.FieldToggle
	default:
		return false
	}
}
