// Package types provides domain models shared across formrules components.
//
// Zero-dependency design: types.go, rules.go and errors.go use only the
// standard library so the evaluation engine can be embedded without pulling
// in transport or storage dependencies. ID utilities in ids.go import uuid
// but are isolated for selective inclusion.
package types

// FormID identifies a form definition.
// String alias enables type safety while maintaining JSON string serialization.
type FormID string

// FieldID identifies a field within a form.
type FieldID string

// RuleID identifies a field or form rule. UUIDv7 time-ordering ensures
// sequential IDs cluster in B-tree indexes.
type RuleID string

// ValueMap holds the live form data supplied by the runtime on every change:
// fieldId -> value. Values are JSON-typed per field type: string, float64,
// bool, []any, or map[string]any for structured fields (phone, currency).
type ValueMap map[FieldID]any

// Clone returns a shallow copy. Evaluation never mutates its input map;
// callers fold returned mutations into a copy between passes.
func (m ValueMap) Clone() ValueMap {
	out := make(ValueMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// FieldType enumerates the supported field kinds. The wire values match the
// authored form-definition JSON.
type FieldType string

const (
	FieldText       FieldType = "text"
	FieldTextarea   FieldType = "textarea"
	FieldNumber     FieldType = "number"
	FieldSelect     FieldType = "select"
	FieldRadio      FieldType = "radio"
	FieldCheckbox   FieldType = "checkbox"
	FieldToggle     FieldType = "toggle"
	FieldDate       FieldType = "date"
	FieldTime       FieldType = "time"
	FieldDateTime   FieldType = "datetime"
	FieldCurrency   FieldType = "currency"
	FieldCountry    FieldType = "country"
	FieldPhone      FieldType = "phone"
	FieldEmail      FieldType = "email"
	FieldRating     FieldType = "rating"
	FieldSlider     FieldType = "slider"
	FieldUserPicker FieldType = "userPicker"
)

// IsNumeric reports whether values of this field type compare as numbers.
func (t FieldType) IsNumeric() bool {
	switch t {
	case FieldNumber, FieldCurrency, FieldRating, FieldSlider:
		return true
	}
	return false
}

// IsTemporal reports whether values of this field type are date/time-valued.
func (t FieldType) IsTemporal() bool {
	switch t {
	case FieldDate, FieldTime, FieldDateTime:
		return true
	}
	return false
}

// IsChoice reports whether the field carries an authored option list.
func (t FieldType) IsChoice() bool {
	switch t {
	case FieldSelect, FieldRadio, FieldCheckbox:
		return true
	}
	return false
}

// Option is one entry of a choice field's ordered option list.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Baseline is a field's author-configured default state. It is restored
// whenever no currently-satisfied rule overrides the corresponding aspect.
type Baseline struct {
	Visible      bool   `json:"isVisible"`
	Enabled      bool   `json:"isEnabled"`
	Label        string `json:"label"`
	Tooltip      string `json:"tooltip,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

// Field is one entry of the form's field catalog. Immutable during a single
// evaluation pass.
type Field struct {
	ID       FieldID   `json:"id"`
	Type     FieldType `json:"type"`
	Options  []Option  `json:"options,omitempty"`
	Baseline Baseline  `json:"baseline"`
}

// FieldState is the derived, per-pass state of a field: the baseline plus
// the effects of every currently-satisfied field rule. Recomputed in full on
// each evaluation call; never persisted.
type FieldState struct {
	Visible      bool     `json:"isVisible"`
	Enabled      bool     `json:"isEnabled"`
	Label        string   `json:"label"`
	Options      []Option `json:"options,omitempty"`
	Tooltip      string   `json:"tooltip,omitempty"`
	ErrorMessage string   `json:"errorMessage,omitempty"`
}

// BaselineState builds the FieldState a field has when no rule targets it.
func (f Field) BaselineState() FieldState {
	return FieldState{
		Visible:      f.Baseline.Visible,
		Enabled:      f.Baseline.Enabled,
		Label:        f.Baseline.Label,
		Options:      f.Options,
		Tooltip:      f.Baseline.Tooltip,
		ErrorMessage: f.Baseline.ErrorMessage,
	}
}

// Resource limits enforced at rule-authoring time to keep per-keystroke
// evaluation bounded.
const (
	// MaxConditionsPerRule caps the condition list so logic expressions and
	// their parse trees stay small.
	MaxConditionsPerRule = 32

	// MaxExpressionLength caps the logic expression string.
	MaxExpressionLength = 512

	// MaxInOperatorValues limits the membership list of the "in" operator.
	MaxInOperatorValues = 64

	// MaxRulesPerForm caps the total number of rules attached to one form.
	MaxRulesPerForm = 256

	// MaxOptionsPerField caps a changeOptions payload.
	MaxOptionsPerField = 512
)
