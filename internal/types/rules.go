package types

/*
 * Domain types for rule evaluation.
 *
 * Provides Condition, FieldRule, FormRule and the action enumerations used
 * by internal/engine for compilation and evaluation. These types mirror the
 * authored rule JSON consumed read-only from the rule builder; the engine
 * never writes them.
 *
 * Key types:
 *   - Condition: single typed comparison (literal or cross-field)
 *   - FieldRule: conditions + logic expression driving a field-state action
 *   - FormRule: same pipeline driving a form-level side effect
 *   - ActionDescriptor: output of a satisfied form rule
 *
 * Dependencies: None (standard library only)
 */

// Operator enumerates condition operators. Wire values match the authored
// rule JSON.
type Operator string

const (
	OpEquals     Operator = "=="
	OpNotEquals  Operator = "!="
	OpLess       Operator = "<"
	OpGreater    Operator = ">"
	OpLessEq     Operator = "<="
	OpGreaterEq  Operator = ">="
	OpContains   Operator = "contains"
	OpNotContain Operator = "notContains"
	OpStartsWith Operator = "startsWith"
	OpEndsWith   Operator = "endsWith"
	OpIn         Operator = "in"
	OpIsEmpty    Operator = "isEmpty"
	OpIsNotEmpty Operator = "isNotEmpty"
)

// IgnoresOperand reports whether the operator uses only the field's current
// value, ignoring both Value and CompareToField.
func (o Operator) IgnoresOperand() bool {
	return o == OpIsEmpty || o == OpIsNotEmpty
}

// Condition is a single typed comparison between a field's current value and
// either a literal Value or another field's current value (CompareToField).
// Exactly one of Value/CompareToField is meaningful per evaluation;
// isEmpty/isNotEmpty ignore both.
type Condition struct {
	ID             string   `json:"id"`
	FieldID        FieldID  `json:"fieldId"`
	Operator       Operator `json:"operator"`
	Value          any      `json:"value,omitempty"`
	CompareToField FieldID  `json:"compareToField,omitempty"`
}

// FieldAction enumerates field-rule actions (field-state mutations).
type FieldAction string

const (
	ActionShow          FieldAction = "show"
	ActionHide          FieldAction = "hide"
	ActionEnable        FieldAction = "enable"
	ActionDisable       FieldAction = "disable"
	ActionChangeLabel   FieldAction = "changeLabel"
	ActionShowTooltip   FieldAction = "showTooltip"
	ActionShowError     FieldAction = "showError"
	ActionChangeOptions FieldAction = "changeOptions"
	ActionSetDefault    FieldAction = "setDefault"
	ActionClearValue    FieldAction = "clearValue"
)

// FormAction enumerates form-rule actions (side effects, dispatched by an
// external collaborator).
type FormAction string

const (
	ActionApprove          FormAction = "approve"
	ActionDisapprove       FormAction = "disapprove"
	ActionNotify           FormAction = "notify"
	ActionSendEmail        FormAction = "sendEmail"
	ActionTriggerWebhook   FormAction = "triggerWebhook"
	ActionStartWorkflow    FormAction = "startWorkflow"
	ActionAssignForm       FormAction = "assignForm"
	ActionRedirect         FormAction = "redirect"
	ActionLockForm         FormAction = "lockForm"
	ActionUnlockForm       FormAction = "unlockForm"
	ActionAutoFillFields   FormAction = "autoFillFields"
	ActionChangeFormHeader FormAction = "changeFormHeader"
	ActionShowSuccessModal FormAction = "showSuccessModal"
	ActionAllowSubmit      FormAction = "allowSubmit"
	ActionPreventSubmit    FormAction = "preventSubmit"
)

// FieldRule binds conditions and a logic expression to a field-state action
// on a target field.
type FieldRule struct {
	ID              RuleID      `json:"id"`
	Name            string      `json:"name"`
	TargetFieldID   FieldID     `json:"targetFieldId"`
	Conditions      []Condition `json:"conditions"`
	LogicExpression string      `json:"logicExpression"`
	Action          FieldAction `json:"action"`
	ActionValue     any         `json:"actionValue,omitempty"`
	Active          bool        `json:"isActive"`
}

// FormRule binds conditions and a logic expression to a form-level action.
type FormRule struct {
	ID              RuleID      `json:"id"`
	Name            string      `json:"name"`
	Conditions      []Condition `json:"conditions"`
	LogicExpression string      `json:"logicExpression"`
	Action          FormAction  `json:"action"`
	ActionValue     any         `json:"actionValue,omitempty"`
	Active          bool        `json:"isActive"`
}

// EmailPayload is the resolved payload of a sendEmail action.
type EmailPayload struct {
	Recipients []string `json:"recipients"`
	Template   string   `json:"template"`
	Subject    string   `json:"subject,omitempty"`
}

// WebhookPayload is the resolved payload of a triggerWebhook action.
type WebhookPayload struct {
	URL    string            `json:"url"`
	Method string            `json:"method,omitempty"`
	Header map[string]string `json:"header,omitempty"`
}

// WorkflowPayload is the resolved payload of a startWorkflow action.
type WorkflowPayload struct {
	WorkflowID string         `json:"workflowId"`
	Input      map[string]any `json:"input,omitempty"`
}

// ActionDescriptor is the output of a satisfied form rule: the side effect
// to perform and its resolved payload. The engine returns descriptors to the
// caller and never performs I/O itself.
type ActionDescriptor struct {
	RuleID      RuleID     `json:"ruleId"`
	Action      FormAction `json:"action"`
	ActionValue any        `json:"actionValue,omitempty"`
}
