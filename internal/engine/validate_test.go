package engine

import (
	"strings"
	"testing"

	"github.com/formlab/formrules/internal/types"
)

func validationCatalog() Catalog {
	return NewCatalog([]types.Field{
		{ID: "name", Type: types.FieldText},
		{ID: "age", Type: types.FieldNumber},
		{ID: "birthday", Type: types.FieldDate},
		{ID: "agree", Type: types.FieldToggle},
	})
}

func issueMessages(issues []Issue) string {
	var msgs []string
	for _, i := range issues {
		msgs = append(msgs, string(i.Severity)+": "+i.Message)
	}
	return strings.Join(msgs, "; ")
}

func countSeverity(issues []Issue, sev Severity) int {
	n := 0
	for _, i := range issues {
		if i.Severity == sev {
			n++
		}
	}
	return n
}

func TestValidateFieldRule_Valid(t *testing.T) {
	rule := types.FieldRule{
		ID:            "r1",
		TargetFieldID: "name",
		Conditions:    []types.Condition{{ID: "c1", FieldID: "age", Operator: types.OpGreaterEq, Value: 18}},
		Action:        types.ActionShow,
		Active:        true,
	}
	if issues := ValidateFieldRule(rule, validationCatalog()); len(issues) != 0 {
		t.Errorf("ValidateFieldRule() = [%s], want no issues", issueMessages(issues))
	}
}

func TestValidateFieldRule_Errors(t *testing.T) {
	tests := []struct {
		name string
		rule types.FieldRule
	}{
		{
			name: "missing target field",
			rule: types.FieldRule{
				ID: "r", TargetFieldID: "ghost",
				Conditions: []types.Condition{{FieldID: "age", Operator: types.OpGreater, Value: 1}},
				Action:     types.ActionShow,
			},
		},
		{
			name: "unknown action",
			rule: types.FieldRule{
				ID: "r", TargetFieldID: "name",
				Conditions: []types.Condition{{FieldID: "age", Operator: types.OpGreater, Value: 1}},
				Action:     types.FieldAction("explode"),
			},
		},
		{
			name: "changeLabel without string payload",
			rule: types.FieldRule{
				ID: "r", TargetFieldID: "name",
				Conditions:  []types.Condition{{FieldID: "age", Operator: types.OpGreater, Value: 1}},
				Action:      types.ActionChangeLabel,
				ActionValue: 42,
			},
		},
		{
			name: "no conditions",
			rule: types.FieldRule{
				ID: "r", TargetFieldID: "name",
				Action: types.ActionShow,
			},
		},
		{
			name: "expression references removed condition",
			rule: types.FieldRule{
				ID: "r", TargetFieldID: "name",
				Conditions:      []types.Condition{{FieldID: "age", Operator: types.OpGreater, Value: 1}},
				LogicExpression: "1 AND 2",
				Action:          types.ActionShow,
			},
		},
		{
			name: "condition references missing field",
			rule: types.FieldRule{
				ID: "r", TargetFieldID: "name",
				Conditions: []types.Condition{{ID: "c", FieldID: "ghost", Operator: types.OpEquals, Value: "x"}},
				Action:     types.ActionShow,
			},
		},
		{
			name: "compare-to field missing",
			rule: types.FieldRule{
				ID: "r", TargetFieldID: "name",
				Conditions: []types.Condition{{ID: "c", FieldID: "age", Operator: types.OpEquals, CompareToField: "ghost"}},
				Action:     types.ActionShow,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			issues := ValidateFieldRule(tt.rule, validationCatalog())
			if !HasErrors(issues) {
				t.Errorf("ValidateFieldRule() = [%s], want at least one error", issueMessages(issues))
			}
		})
	}
}

func TestValidateFieldRule_Warnings(t *testing.T) {
	tests := []struct {
		name string
		cond types.Condition
	}{
		{
			name: "ordering operator on text field",
			cond: types.Condition{ID: "c", FieldID: "name", Operator: types.OpGreater, Value: "z"},
		},
		{
			name: "contains on number field",
			cond: types.Condition{ID: "c", FieldID: "age", Operator: types.OpContains, Value: "1"},
		},
		{
			name: "substring operator on toggle",
			cond: types.Condition{ID: "c", FieldID: "agree", Operator: types.OpStartsWith, Value: "t"},
		},
		{
			name: "value and compareToField both set",
			cond: types.Condition{ID: "c", FieldID: "age", Operator: types.OpEquals, Value: 5, CompareToField: "age"},
		},
		{
			name: "isEmpty with configured value",
			cond: types.Condition{ID: "c", FieldID: "name", Operator: types.OpIsEmpty, Value: "ignored"},
		},
		{
			name: "compare-to field of different type",
			cond: types.Condition{ID: "c", FieldID: "age", Operator: types.OpEquals, CompareToField: "name"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := types.FieldRule{
				ID: "r", TargetFieldID: "name",
				Conditions: []types.Condition{tt.cond},
				Action:     types.ActionShow,
			}
			issues := ValidateFieldRule(rule, validationCatalog())
			if HasErrors(issues) {
				t.Fatalf("ValidateFieldRule() = [%s], want warnings only", issueMessages(issues))
			}
			if countSeverity(issues, SeverityWarning) == 0 {
				t.Errorf("ValidateFieldRule() = [%s], want at least one warning", issueMessages(issues))
			}
		})
	}
}

func TestValidateFieldRule_OrderingOnTemporalFieldOK(t *testing.T) {
	rule := types.FieldRule{
		ID: "r", TargetFieldID: "name",
		Conditions: []types.Condition{{ID: "c", FieldID: "birthday", Operator: types.OpLess, Value: "2000-01-01"}},
		Action:     types.ActionShow,
	}
	if issues := ValidateFieldRule(rule, validationCatalog()); len(issues) != 0 {
		t.Errorf("ValidateFieldRule() = [%s], want no issues for date ordering", issueMessages(issues))
	}
}

func TestValidateFieldRule_TooManyInValues(t *testing.T) {
	values := make([]any, types.MaxInOperatorValues+1)
	for i := range values {
		values[i] = i
	}
	rule := types.FieldRule{
		ID: "r", TargetFieldID: "name",
		Conditions: []types.Condition{{ID: "c", FieldID: "name", Operator: types.OpIn, Value: values}},
		Action:     types.ActionShow,
	}
	issues := ValidateFieldRule(rule, validationCatalog())
	if !HasErrors(issues) {
		t.Errorf("ValidateFieldRule() = [%s], want error for oversized in list", issueMessages(issues))
	}
}

func TestValidateFormRule(t *testing.T) {
	catalog := validationCatalog()

	valid := types.FormRule{
		ID:         "r",
		Conditions: []types.Condition{{FieldID: "age", Operator: types.OpGreaterEq, Value: 18}},
		Action:     types.ActionSendEmail,
		ActionValue: map[string]any{
			"recipients": []any{"ops@example.com"},
		},
		Active: true,
	}
	if issues := ValidateFormRule(valid, catalog); len(issues) != 0 {
		t.Errorf("ValidateFormRule(valid) = [%s], want no issues", issueMessages(issues))
	}

	badPayload := valid
	badPayload.ActionValue = map[string]any{"template": "none"}
	if issues := ValidateFormRule(badPayload, catalog); !HasErrors(issues) {
		t.Error("ValidateFormRule(email without recipients): want error")
	}

	badAction := valid
	badAction.Action = types.FormAction("teleport")
	badAction.ActionValue = nil
	if issues := ValidateFormRule(badAction, catalog); !HasErrors(issues) {
		t.Error("ValidateFormRule(unknown action): want error")
	}

	badWebhook := valid
	badWebhook.Action = types.ActionTriggerWebhook
	badWebhook.ActionValue = map[string]any{"method": "POST"}
	if issues := ValidateFormRule(badWebhook, catalog); !HasErrors(issues) {
		t.Error("ValidateFormRule(webhook without url): want error")
	}
}

func TestHasErrors(t *testing.T) {
	if HasErrors([]Issue{{Severity: SeverityWarning}}) {
		t.Error("HasErrors(warnings only) = true, want false")
	}
	if !HasErrors([]Issue{{Severity: SeverityWarning}, {Severity: SeverityError}}) {
		t.Error("HasErrors(mixed) = false, want true")
	}
}
