package engine

import (
	"encoding/json"
	"fmt"

	"github.com/formlab/formrules/internal/types"
)

/*
 * Action dispatch tables.
 *
 * Every action kind is one entry in a closed table carrying its own typed
 * payload decoder, replacing a string switch over untyped actionValue.
 * Payloads decode once at compile time; evaluation applies pre-decoded
 * payloads only.
 *
 * Field actions mutate one aspect of FieldState (or, for setDefault and
 * clearValue, emit a value-map mutation that takes effect on the next
 * evaluation pass). The aspect is what gets reset to the field's baseline
 * when the rule's condition stops holding.
 *
 * Form actions resolve to ActionDescriptor payloads; dispatch of the side
 * effect itself is the caller's responsibility.
 */

// aspect names the single part of FieldState a field action affects.
type aspect int

const (
	aspectNone aspect = iota
	aspectVisibility
	aspectEnablement
	aspectLabel
	aspectTooltip
	aspectError
	aspectOptions
	aspectValue // value-map mutation, not FieldState
)

type fieldActionSpec struct {
	aspect aspect
	// decode converts the authored actionValue to the typed payload this
	// action applies. nil means the action takes no payload.
	decode func(av any) (any, error)
	// apply mutates the target's FieldState with the decoded payload.
	// nil for value-aspect actions, which emit mutations instead.
	apply func(st *types.FieldState, payload any)
}

var fieldActions = map[types.FieldAction]fieldActionSpec{
	types.ActionShow: {
		aspect: aspectVisibility,
		apply:  func(st *types.FieldState, _ any) { st.Visible = true },
	},
	types.ActionHide: {
		aspect: aspectVisibility,
		apply:  func(st *types.FieldState, _ any) { st.Visible = false },
	},
	types.ActionEnable: {
		aspect: aspectEnablement,
		apply:  func(st *types.FieldState, _ any) { st.Enabled = true },
	},
	types.ActionDisable: {
		aspect: aspectEnablement,
		apply:  func(st *types.FieldState, _ any) { st.Enabled = false },
	},
	types.ActionChangeLabel: {
		aspect: aspectLabel,
		decode: decodeString,
		apply:  func(st *types.FieldState, p any) { st.Label = p.(string) },
	},
	types.ActionShowTooltip: {
		aspect: aspectTooltip,
		decode: decodeString,
		apply:  func(st *types.FieldState, p any) { st.Tooltip = p.(string) },
	},
	types.ActionShowError: {
		aspect: aspectError,
		decode: decodeString,
		apply:  func(st *types.FieldState, p any) { st.ErrorMessage = p.(string) },
	},
	types.ActionChangeOptions: {
		aspect: aspectOptions,
		decode: decodeOptions,
		apply:  func(st *types.FieldState, p any) { st.Options = p.([]types.Option) },
	},
	types.ActionSetDefault: {
		aspect: aspectValue,
		decode: func(av any) (any, error) { return av, nil },
	},
	types.ActionClearValue: {
		aspect: aspectValue,
	},
}

// resetAspect restores one aspect of a FieldState to the field's baseline.
// Value-aspect actions have nothing to restore: user-entered data is never
// reverted by a rule ceasing to hold.
func resetAspect(st *types.FieldState, field types.Field, a aspect) {
	switch a {
	case aspectVisibility:
		st.Visible = field.Baseline.Visible
	case aspectEnablement:
		st.Enabled = field.Baseline.Enabled
	case aspectLabel:
		st.Label = field.Baseline.Label
	case aspectTooltip:
		st.Tooltip = field.Baseline.Tooltip
	case aspectError:
		st.ErrorMessage = field.Baseline.ErrorMessage
	case aspectOptions:
		st.Options = field.Options
	}
}

// formActionDecoders resolve authored actionValue payloads per form action.
// Actions without an entry take no payload and pass nil through.
var formActionDecoders = map[types.FormAction]func(av any) (any, error){
	types.ActionSendEmail: func(av any) (any, error) {
		var p types.EmailPayload
		if err := remarshal(av, &p); err != nil {
			return nil, err
		}
		if len(p.Recipients) == 0 {
			return nil, fmt.Errorf("%w: sendEmail requires at least one recipient", types.ErrInvalidActionValue)
		}
		return p, nil
	},
	types.ActionTriggerWebhook: func(av any) (any, error) {
		var p types.WebhookPayload
		if err := remarshal(av, &p); err != nil {
			return nil, err
		}
		if p.URL == "" {
			return nil, fmt.Errorf("%w: triggerWebhook requires a url", types.ErrInvalidActionValue)
		}
		return p, nil
	},
	types.ActionStartWorkflow: func(av any) (any, error) {
		var p types.WorkflowPayload
		if err := remarshal(av, &p); err != nil {
			return nil, err
		}
		if p.WorkflowID == "" {
			return nil, fmt.Errorf("%w: startWorkflow requires a workflowId", types.ErrInvalidActionValue)
		}
		return p, nil
	},
	types.ActionAutoFillFields: func(av any) (any, error) {
		var p map[string]any
		if err := remarshal(av, &p); err != nil {
			return nil, err
		}
		if len(p) == 0 {
			return nil, fmt.Errorf("%w: autoFillFields requires a fieldId -> value object", types.ErrInvalidActionValue)
		}
		return p, nil
	},
	types.ActionNotify:           decodeString,
	types.ActionRedirect:         decodeString,
	types.ActionAssignForm:       decodeString,
	types.ActionChangeFormHeader: decodeString,
}

// formActionKnown is the closed set of dispatchable form actions, including
// the payload-free ones.
var formActionKnown = map[types.FormAction]bool{
	types.ActionApprove: true, types.ActionDisapprove: true,
	types.ActionNotify: true, types.ActionSendEmail: true,
	types.ActionTriggerWebhook: true, types.ActionStartWorkflow: true,
	types.ActionAssignForm: true, types.ActionRedirect: true,
	types.ActionLockForm: true, types.ActionUnlockForm: true,
	types.ActionAutoFillFields: true, types.ActionChangeFormHeader: true,
	types.ActionShowSuccessModal: true, types.ActionAllowSubmit: true,
	types.ActionPreventSubmit: true,
}

// decodeString requires a string actionValue. No coercion: labels,
// tooltips, and routing targets are authored text, and a numeric or object
// payload is an authoring mistake better rejected at save time than
// rendered as its JSON form.
func decodeString(av any) (any, error) {
	s, ok := av.(string)
	if !ok {
		return nil, fmt.Errorf("%w: action requires a string value", types.ErrInvalidActionValue)
	}
	return s, nil
}

// decodeOptions converts an authored option array to []types.Option.
func decodeOptions(av any) (any, error) {
	var opts []types.Option
	if err := remarshal(av, &opts); err != nil {
		return nil, err
	}
	if len(opts) == 0 {
		return nil, fmt.Errorf("%w: changeOptions requires a non-empty option array", types.ErrInvalidActionValue)
	}
	if len(opts) > types.MaxOptionsPerField {
		return nil, fmt.Errorf("%w: changeOptions exceeds %d options", types.ErrInvalidActionValue, types.MaxOptionsPerField)
	}
	return opts, nil
}

// remarshal round-trips an any through JSON into a typed target. Authored
// payloads arrive as map[string]any/[]any from JSON decoding, so this is the
// one conversion point between wire shape and typed payloads.
func remarshal(av any, target any) error {
	if av == nil {
		return fmt.Errorf("%w: missing action value", types.ErrInvalidActionValue)
	}
	b, err := json.Marshal(av)
	if err != nil {
		return fmt.Errorf("%w: %v", types.ErrInvalidActionValue, err)
	}
	if err := json.Unmarshal(b, target); err != nil {
		return fmt.Errorf("%w: %v", types.ErrInvalidActionValue, err)
	}
	return nil
}
