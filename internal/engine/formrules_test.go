package engine

import (
	"reflect"
	"testing"

	"github.com/formlab/formrules/internal/types"
)

func formFields() []types.Field {
	return []types.Field{
		{ID: "total", Type: types.FieldNumber, Baseline: types.Baseline{Visible: true, Enabled: true}},
		{ID: "dept", Type: types.FieldSelect, Baseline: types.Baseline{Visible: true, Enabled: true}},
	}
}

func TestEvaluateForm_OrderedDescriptors(t *testing.T) {
	fields := formFields()
	rules := []types.FormRule{
		{
			ID:         "approve-small",
			Conditions: []types.Condition{{FieldID: "total", Operator: types.OpLess, Value: 1000}},
			Action:     types.ActionApprove,
			Active:     true,
		},
		{
			ID:         "notify-finance",
			Conditions: []types.Condition{{FieldID: "dept", Operator: types.OpEquals, Value: "finance"}},
			Action:     types.ActionNotify,
			ActionValue: "finance-channel",
			Active:     true,
		},
		{
			ID:         "lock-large",
			Conditions: []types.Condition{{FieldID: "total", Operator: types.OpGreaterEq, Value: 1000}},
			Action:     types.ActionLockForm,
			Active:     true,
		},
	}

	got := EvaluateForm(fields, rules, types.ValueMap{"total": float64(250), "dept": "finance"})
	if len(got) != 2 {
		t.Fatalf("len(descriptors) = %d, want 2", len(got))
	}
	if got[0].RuleID != "approve-small" || got[0].Action != types.ActionApprove {
		t.Errorf("descriptors[0] = %+v, want approve-small/approve", got[0])
	}
	if got[1].RuleID != "notify-finance" || got[1].ActionValue != "finance-channel" {
		t.Errorf("descriptors[1] = %+v, want notify-finance with channel payload", got[1])
	}
}

func TestEvaluateForm_PayloadDecoding(t *testing.T) {
	fields := formFields()
	rules := []types.FormRule{
		{
			ID:         "email",
			Conditions: []types.Condition{{FieldID: "total", Operator: types.OpGreater, Value: 0}},
			Action:     types.ActionSendEmail,
			ActionValue: map[string]any{
				"recipients": []any{"ops@example.com"},
				"template":   "high-value",
			},
			Active: true,
		},
		{
			ID:         "webhook",
			Conditions: []types.Condition{{FieldID: "total", Operator: types.OpGreater, Value: 0}},
			Action:     types.ActionTriggerWebhook,
			ActionValue: map[string]any{
				"url":    "https://hooks.example.com/forms",
				"method": "POST",
			},
			Active: true,
		},
	}

	got := EvaluateForm(fields, rules, types.ValueMap{"total": float64(10)})
	if len(got) != 2 {
		t.Fatalf("len(descriptors) = %d, want 2", len(got))
	}

	email, ok := got[0].ActionValue.(types.EmailPayload)
	if !ok {
		t.Fatalf("descriptors[0].ActionValue type = %T, want types.EmailPayload", got[0].ActionValue)
	}
	if want := []string{"ops@example.com"}; !reflect.DeepEqual(email.Recipients, want) {
		t.Errorf("email.Recipients = %v, want %v", email.Recipients, want)
	}

	hook, ok := got[1].ActionValue.(types.WebhookPayload)
	if !ok {
		t.Fatalf("descriptors[1].ActionValue type = %T, want types.WebhookPayload", got[1].ActionValue)
	}
	if hook.URL != "https://hooks.example.com/forms" {
		t.Errorf("hook.URL = %q, want the configured URL", hook.URL)
	}
}

func TestEvaluateForm_DefectivePayloadSkipsRule(t *testing.T) {
	fields := formFields()
	rules := []types.FormRule{{
		ID:          "bad-email",
		Conditions:  []types.Condition{{FieldID: "total", Operator: types.OpGreater, Value: 0}},
		Action:      types.ActionSendEmail,
		ActionValue: map[string]any{"template": "no-recipients"},
		Active:      true,
	}}

	if got := EvaluateForm(fields, rules, types.ValueMap{"total": float64(10)}); len(got) != 0 {
		t.Errorf("descriptors = %v, want none for undecodable payload", got)
	}
}

func TestEvaluateForm_UnsatisfiedAndInactiveSkipped(t *testing.T) {
	fields := formFields()
	rules := []types.FormRule{
		{
			ID:         "unmet",
			Conditions: []types.Condition{{FieldID: "total", Operator: types.OpGreater, Value: 1000}},
			Action:     types.ActionLockForm,
			Active:     true,
		},
		{
			ID:         "inactive",
			Conditions: []types.Condition{{FieldID: "total", Operator: types.OpGreater, Value: 0}},
			Action:     types.ActionApprove,
			Active:     false,
		},
	}

	if got := EvaluateForm(fields, rules, types.ValueMap{"total": float64(10)}); len(got) != 0 {
		t.Errorf("descriptors = %v, want none", got)
	}
}

func TestAutoFillMutations(t *testing.T) {
	descriptors := []types.ActionDescriptor{
		{RuleID: "r1", Action: types.ActionApprove},
		{
			RuleID: "r2",
			Action: types.ActionAutoFillFields,
			ActionValue: map[string]any{
				"city":    "Austin",
				"country": "US",
			},
		},
	}

	got := AutoFillMutations(descriptors)
	want := []ValueMutation{
		{FieldID: "city", Value: "Austin"},
		{FieldID: "country", Value: "US"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("AutoFillMutations() = %v, want %v (keys sorted)", got, want)
	}
}

func TestAutoFillMutations_NoDescriptors(t *testing.T) {
	if got := AutoFillMutations(nil); got != nil {
		t.Errorf("AutoFillMutations(nil) = %v, want nil", got)
	}
}
