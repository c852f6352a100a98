package engine

import (
	"reflect"
	"testing"

	"github.com/formlab/formrules/internal/types"
)

func scenarioFields() []types.Field {
	return []types.Field{
		{ID: "country", Type: types.FieldSelect, Baseline: types.Baseline{Visible: true, Enabled: true, Label: "Country"}},
		{ID: "state", Type: types.FieldSelect, Baseline: types.Baseline{Visible: false, Enabled: true, Label: "State"}},
		{ID: "age", Type: types.FieldNumber, Baseline: types.Baseline{Visible: true, Enabled: true, Label: "Age"}},
		{ID: "hasConsent", Type: types.FieldToggle, Baseline: types.Baseline{Visible: true, Enabled: true, Label: "Consent"}},
		{ID: "submitBtn", Type: types.FieldText, Baseline: types.Baseline{Visible: true, Enabled: false, Label: "Submit"}},
		{ID: "note", Type: types.FieldText, Baseline: types.Baseline{Visible: true, Enabled: true, Label: "Note"}},
	}
}

// Scenario: country == "US" shows the state field.
func TestEvaluateFields_ShowOnMatch(t *testing.T) {
	fields := scenarioFields()
	rules := []types.FieldRule{{
		ID:            "r1",
		TargetFieldID: "state",
		Conditions:    []types.Condition{{FieldID: "country", Operator: types.OpEquals, Value: "US"}},
		Action:        types.ActionShow,
		Active:        true,
	}}

	result := EvaluateFields(fields, rules, types.ValueMap{"country": "US"})
	if !result.States["state"].Visible {
		t.Error(`state.Visible = false with country "US", want true`)
	}

	result = EvaluateFields(fields, rules, types.ValueMap{"country": "CA"})
	if result.States["state"].Visible {
		t.Error(`state.Visible = true with country "CA", want false (baseline)`)
	}
}

// Scenario: age>=18 AND hasConsent enables the submit button; losing either
// condition restores the disabled baseline.
func TestEvaluateFields_AndExpressionEnable(t *testing.T) {
	fields := scenarioFields()
	rules := []types.FieldRule{{
		ID:            "r1",
		TargetFieldID: "submitBtn",
		Conditions: []types.Condition{
			{FieldID: "age", Operator: types.OpGreaterEq, Value: 18},
			{FieldID: "hasConsent", Operator: types.OpEquals, Value: true},
		},
		LogicExpression: "1 AND 2",
		Action:          types.ActionEnable,
		Active:          true,
	}}

	result := EvaluateFields(fields, rules, types.ValueMap{"age": float64(20), "hasConsent": true})
	if !result.States["submitBtn"].Enabled {
		t.Error("submitBtn.Enabled = false with both conditions met, want true")
	}

	result = EvaluateFields(fields, rules, types.ValueMap{"age": float64(20), "hasConsent": false})
	if result.States["submitBtn"].Enabled {
		t.Error("submitBtn.Enabled = true with consent withdrawn, want false (baseline)")
	}
}

// Scenario: two satisfied rules target the same label; the later declaration wins.
func TestEvaluateFields_LastAppliedWins(t *testing.T) {
	fields := scenarioFields()
	always := []types.Condition{{FieldID: "note", Operator: types.OpIsNotEmpty}}
	rules := []types.FieldRule{
		{ID: "a", TargetFieldID: "note", Conditions: always, Action: types.ActionChangeLabel, ActionValue: "X", Active: true},
		{ID: "b", TargetFieldID: "note", Conditions: always, Action: types.ActionChangeLabel, ActionValue: "Y", Active: true},
	}

	result := EvaluateFields(fields, rules, types.ValueMap{"note": "text"})
	if got := result.States["note"].Label; got != "Y" {
		t.Errorf("note.Label = %q, want %q (last rule wins)", got, "Y")
	}
}

// An unsatisfied rule resets its aspect to the BASELINE, discarding the
// effect an earlier satisfied rule applied in the same pass.
func TestEvaluateFields_UnmetRuleRestoresBaseline(t *testing.T) {
	fields := scenarioFields()
	rules := []types.FieldRule{
		{
			ID: "a", TargetFieldID: "note",
			Conditions:  []types.Condition{{FieldID: "note", Operator: types.OpIsNotEmpty}},
			Action:      types.ActionChangeLabel, ActionValue: "Custom",
			Active:      true,
		},
		{
			ID: "b", TargetFieldID: "note",
			Conditions:  []types.Condition{{FieldID: "country", Operator: types.OpEquals, Value: "US"}},
			Action:      types.ActionChangeLabel, ActionValue: "US label",
			Active:      true,
		},
	}

	// Rule a satisfied, rule b not: b's reset discards a's label.
	result := EvaluateFields(fields, rules, types.ValueMap{"note": "text", "country": "CA"})
	if got := result.States["note"].Label; got != "Note" {
		t.Errorf("note.Label = %q, want baseline %q", got, "Note")
	}
}

func TestEvaluateFields_UnaffectedAspectsKeepEarlierEffects(t *testing.T) {
	fields := scenarioFields()
	rules := []types.FieldRule{
		{
			ID: "label", TargetFieldID: "note",
			Conditions: []types.Condition{{FieldID: "note", Operator: types.OpIsNotEmpty}},
			Action:     types.ActionChangeLabel, ActionValue: "Custom",
			Active:     true,
		},
		{
			ID: "hide", TargetFieldID: "note",
			Conditions: []types.Condition{{FieldID: "country", Operator: types.OpEquals, Value: "US"}},
			Action:     types.ActionHide,
			Active:     true,
		},
	}

	// The unmet hide rule resets visibility only; the label effect survives.
	result := EvaluateFields(fields, rules, types.ValueMap{"note": "text", "country": "CA"})
	st := result.States["note"]
	if st.Label != "Custom" {
		t.Errorf("note.Label = %q, want %q (different aspect untouched)", st.Label, "Custom")
	}
	if !st.Visible {
		t.Error("note.Visible = false, want baseline true")
	}
}

// Scenario: a condition referencing a deleted field evaluates false and the
// target stays at baseline; the pass does not fail.
func TestEvaluateFields_DanglingConditionField(t *testing.T) {
	fields := scenarioFields()
	rules := []types.FieldRule{{
		ID:            "r1",
		TargetFieldID: "state",
		Conditions:    []types.Condition{{FieldID: "deletedField", Operator: types.OpEquals, Value: "x"}},
		Action:        types.ActionShow,
		Active:        true,
	}}

	result := EvaluateFields(fields, rules, types.ValueMap{"deletedField": "x"})
	if result.States["state"].Visible {
		t.Error("state.Visible = true via dangling condition, want baseline false")
	}
}

func TestEvaluateFields_DanglingTargetIsNoOp(t *testing.T) {
	fields := scenarioFields()
	rules := []types.FieldRule{{
		ID:            "r1",
		TargetFieldID: "deletedField",
		Conditions:    []types.Condition{{FieldID: "country", Operator: types.OpEquals, Value: "US"}},
		Action:        types.ActionShow,
		Active:        true,
	}}

	result := EvaluateFields(fields, rules, types.ValueMap{"country": "US"})
	if _, ok := result.States["deletedField"]; ok {
		t.Error("dangling target produced a FieldState, want no-op")
	}
	if len(result.States) != len(fields) {
		t.Errorf("len(States) = %d, want %d", len(result.States), len(fields))
	}
}

func TestEvaluateFields_InactiveAndInvalidRulesSkipped(t *testing.T) {
	fields := scenarioFields()
	rules := []types.FieldRule{
		{
			ID: "inactive", TargetFieldID: "state",
			Conditions: []types.Condition{{FieldID: "country", Operator: types.OpEquals, Value: "US"}},
			Action:     types.ActionShow,
			Active:     false,
		},
		{
			ID: "badexpr", TargetFieldID: "state",
			Conditions:      []types.Condition{{FieldID: "country", Operator: types.OpEquals, Value: "US"}},
			LogicExpression: "1 AND 99",
			Action:          types.ActionShow,
			Active:          true,
		},
	}

	result := EvaluateFields(fields, rules, types.ValueMap{"country": "US"})
	if result.States["state"].Visible {
		t.Error("state.Visible = true via inactive/invalid rules, want baseline false")
	}
}

func TestEvaluateFields_ChangeOptionsAndTooltip(t *testing.T) {
	fields := scenarioFields()
	rules := []types.FieldRule{
		{
			ID: "opts", TargetFieldID: "state",
			Conditions:  []types.Condition{{FieldID: "country", Operator: types.OpEquals, Value: "US"}},
			Action:      types.ActionChangeOptions,
			ActionValue: []any{map[string]any{"value": "CA", "label": "California"}},
			Active:      true,
		},
		{
			ID: "tip", TargetFieldID: "state",
			Conditions:  []types.Condition{{FieldID: "country", Operator: types.OpEquals, Value: "US"}},
			Action:      types.ActionShowTooltip,
			ActionValue: "Select your state",
			Active:      true,
		},
	}

	result := EvaluateFields(fields, rules, types.ValueMap{"country": "US"})
	st := result.States["state"]
	want := []types.Option{{Value: "CA", Label: "California"}}
	if !reflect.DeepEqual(st.Options, want) {
		t.Errorf("state.Options = %v, want %v", st.Options, want)
	}
	if st.Tooltip != "Select your state" {
		t.Errorf("state.Tooltip = %q, want %q", st.Tooltip, "Select your state")
	}
}

func TestEvaluateFields_SetDefaultAndClearValueDeferred(t *testing.T) {
	fields := scenarioFields()
	rules := []types.FieldRule{
		{
			ID: "def", TargetFieldID: "note",
			Conditions:  []types.Condition{{FieldID: "country", Operator: types.OpEquals, Value: "US"}},
			Action:      types.ActionSetDefault,
			ActionValue: "USA resident",
			Active:      true,
		},
		{
			ID: "clr", TargetFieldID: "state",
			Conditions: []types.Condition{{FieldID: "country", Operator: types.OpNotEquals, Value: "US"}},
			Action:     types.ActionClearValue,
			Active:     true,
		},
	}

	values := types.ValueMap{"country": "US", "state": "CA"}
	result := EvaluateFields(fields, rules, values)

	// Mutations are emitted, the input map is untouched.
	wantMut := []ValueMutation{{FieldID: "note", Value: "USA resident"}}
	if !reflect.DeepEqual(result.Mutations, wantMut) {
		t.Errorf("Mutations = %v, want %v", result.Mutations, wantMut)
	}
	if _, ok := values["note"]; ok {
		t.Error("input value map was mutated during evaluation")
	}

	// Folding mutations produces the value map for the next pass.
	next := ApplyMutations(values, result.Mutations)
	if next["note"] != "USA resident" {
		t.Errorf(`next["note"] = %v, want "USA resident"`, next["note"])
	}

	// Switching country triggers clearValue on the following pass.
	next["country"] = "CA"
	result = EvaluateFields(fields, rules, next)
	after := ApplyMutations(next, result.Mutations)
	if _, ok := after["state"]; ok {
		t.Error("state value still present after clearValue mutation applied")
	}
}

func TestEvaluateFields_Deterministic(t *testing.T) {
	fields := scenarioFields()
	rules := []types.FieldRule{
		{ID: "a", TargetFieldID: "state", Conditions: []types.Condition{{FieldID: "country", Operator: types.OpEquals, Value: "US"}}, Action: types.ActionShow, Active: true},
		{ID: "b", TargetFieldID: "submitBtn", Conditions: []types.Condition{{FieldID: "age", Operator: types.OpGreaterEq, Value: 18}}, Action: types.ActionEnable, Active: true},
		{ID: "c", TargetFieldID: "note", Conditions: []types.Condition{{FieldID: "note", Operator: types.OpIsEmpty}}, Action: types.ActionChangeLabel, ActionValue: "Fill me", Active: true},
	}
	values := types.ValueMap{"country": "US", "age": float64(30)}

	first := EvaluateFields(fields, rules, values)
	second := EvaluateFields(fields, rules, values)
	if !reflect.DeepEqual(first, second) {
		t.Error("two evaluations with identical inputs differ")
	}
}

// Fields not targeted by any satisfied rule must equal the baseline exactly.
func TestEvaluateFields_NoStateLeakage(t *testing.T) {
	fields := scenarioFields()
	result := EvaluateFields(fields, nil, types.ValueMap{"country": "US"})
	for _, f := range fields {
		if !reflect.DeepEqual(result.States[f.ID], f.BaselineState()) {
			t.Errorf("field %s state = %+v, want baseline %+v", f.ID, result.States[f.ID], f.BaselineState())
		}
	}
}
