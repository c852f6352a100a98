package types

import "errors"

// Sentinel errors for formrules operations.
var (
	// ErrInvalidExpression indicates a malformed or out-of-range logic
	// expression. Raised at validation time; at evaluation time such a rule
	// is skipped rather than crashing the pass.
	ErrInvalidExpression = errors.New("invalid logic expression")

	// ErrDanglingFieldReference indicates a condition, target, or compare-to
	// field id that no longer exists in the catalog.
	ErrDanglingFieldReference = errors.New("field reference does not exist in catalog")

	// ErrNoConditions indicates a rule with an empty condition list.
	ErrNoConditions = errors.New("rule has no conditions")

	// ErrTooManyConditions indicates a rule exceeds MaxConditionsPerRule.
	ErrTooManyConditions = errors.New("rule has too many conditions")

	// ErrExpressionTooLong indicates a logic expression exceeds MaxExpressionLength.
	ErrExpressionTooLong = errors.New("logic expression too long")

	// ErrTooManyInValues indicates an "in" operator exceeds MaxInOperatorValues.
	ErrTooManyInValues = errors.New("in operator has too many values")

	// ErrUnknownAction indicates an action outside the closed enumeration.
	ErrUnknownAction = errors.New("unknown rule action")

	// ErrInvalidActionValue indicates an action payload that does not decode
	// to the shape its action kind requires.
	ErrInvalidActionValue = errors.New("action value does not match action type")

	// ErrFormNotFound indicates an unknown form id.
	ErrFormNotFound = errors.New("form not found")

	// ErrRuleNotFound indicates an unknown rule id.
	ErrRuleNotFound = errors.New("rule not found")

	// ErrTooManyRules indicates a form exceeds MaxRulesPerForm.
	ErrTooManyRules = errors.New("form has too many rules")
)
