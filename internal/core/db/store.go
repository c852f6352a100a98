package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/formlab/formrules/internal/types"
)

// Store persists forms, their field catalogs, and their rules. Rule rows
// carry a position column because rule order is semantically significant:
// evaluation is last-applied-wins and descriptors are emitted in declaration
// order.
type Store struct {
	db      *sqlx.DB
	queries *Queries
}

// NewStore wraps an open database with the embedded named queries.
func NewStore(database *sqlx.DB) (*Store, error) {
	queries, err := LoadQueries(database)
	if err != nil {
		return nil, err
	}
	return &Store{db: database, queries: queries}, nil
}

type formRow struct {
	FormID types.FormID `db:"form_id"`
	Name   string       `db:"name"`
	Header string       `db:"header"`
}

type fieldRow struct {
	FieldID   types.FieldID `db:"field_id"`
	FormID    types.FormID  `db:"form_id"`
	FieldType string        `db:"field_type"`
	Baseline  string        `db:"baseline"`
	Options   string        `db:"options"`
	Position  int           `db:"position"`
}

type ruleRow struct {
	RuleID          types.RuleID `db:"rule_id"`
	FormID          types.FormID `db:"form_id"`
	Name            string       `db:"name"`
	TargetFieldID   string       `db:"target_field_id"`
	Conditions      string       `db:"conditions"`
	LogicExpression string       `db:"logic_expression"`
	Action          string       `db:"action"`
	ActionValue     string       `db:"action_value"`
	IsActive        bool         `db:"is_active"`
	Position        int          `db:"position"`
}

// CreateForm inserts a form and its field catalog.
func (s *Store) CreateForm(form types.Form) error {
	tx, err := s.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.execTx(tx, "insert-form", form.ID, form.Name, form.Header); err != nil {
		return fmt.Errorf("failed to insert form %s: %w", form.ID, err)
	}
	if err := s.insertFields(tx, form); err != nil {
		return err
	}
	return tx.Commit()
}

// UpdateForm replaces a form's metadata and field catalog. The caller is
// expected to re-validate stored rules afterwards: field removal can leave
// dangling references, which evaluate permissively but warrant a warning.
func (s *Store) UpdateForm(form types.Form) error {
	tx, err := s.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := s.execTxResult(tx, "update-form", form.Name, form.Header, form.ID)
	if err != nil {
		return fmt.Errorf("failed to update form %s: %w", form.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return types.ErrFormNotFound
	}
	if err := s.execTx(tx, "delete-form-fields", form.ID); err != nil {
		return fmt.Errorf("failed to clear fields for form %s: %w", form.ID, err)
	}
	if err := s.insertFields(tx, form); err != nil {
		return err
	}
	return tx.Commit()
}

// GetForm loads a form with its field catalog in declaration order.
func (s *Store) GetForm(formID types.FormID) (types.Form, error) {
	var row formRow
	if err := s.queries.Get("get-form", &row, formID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Form{}, types.ErrFormNotFound
		}
		return types.Form{}, fmt.Errorf("failed to load form %s: %w", formID, err)
	}

	var fieldRows []fieldRow
	if err := s.queries.Select("list-form-fields", &fieldRows, formID); err != nil {
		return types.Form{}, fmt.Errorf("failed to load fields for form %s: %w", formID, err)
	}

	form := types.Form{ID: row.FormID, Name: row.Name, Header: row.Header}
	for _, fr := range fieldRows {
		field := types.Field{ID: fr.FieldID, Type: types.FieldType(fr.FieldType)}
		if err := json.Unmarshal([]byte(fr.Baseline), &field.Baseline); err != nil {
			return types.Form{}, fmt.Errorf("corrupt baseline for field %s: %w", fr.FieldID, err)
		}
		if fr.Options != "" {
			if err := json.Unmarshal([]byte(fr.Options), &field.Options); err != nil {
				return types.Form{}, fmt.Errorf("corrupt options for field %s: %w", fr.FieldID, err)
			}
		}
		form.Fields = append(form.Fields, field)
	}
	return form, nil
}

// ListForms returns all form rows without their field catalogs.
func (s *Store) ListForms() ([]types.Form, error) {
	var rows []formRow
	if err := s.queries.Select("list-forms", &rows); err != nil {
		return nil, fmt.Errorf("failed to list forms: %w", err)
	}
	forms := make([]types.Form, 0, len(rows))
	for _, r := range rows {
		forms = append(forms, types.Form{ID: r.FormID, Name: r.Name, Header: r.Header})
	}
	return forms, nil
}

// DeleteForm removes a form, its fields, and its rules.
func (s *Store) DeleteForm(formID types.FormID) error {
	tx, err := s.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, name := range []string{"delete-form-field-rules", "delete-form-form-rules", "delete-form-fields"} {
		if err := s.execTx(tx, name, formID); err != nil {
			return fmt.Errorf("failed to delete form %s: %w", formID, err)
		}
	}
	res, err := s.execTxResult(tx, "delete-form", formID)
	if err != nil {
		return fmt.Errorf("failed to delete form %s: %w", formID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return types.ErrFormNotFound
	}
	return tx.Commit()
}

// CreateFieldRule appends a field rule to a form, enforcing the per-form
// rule cap across both rule kinds.
func (s *Store) CreateFieldRule(formID types.FormID, rule types.FieldRule) error {
	if err := s.checkRuleCapacity(formID); err != nil {
		return err
	}
	conditions, actionValue, err := encodeRuleJSON(rule.Conditions, rule.ActionValue)
	if err != nil {
		return err
	}
	position, err := s.nextPosition(formID, "next-field-rule-position")
	if err != nil {
		return err
	}
	_, err = s.queries.Exec("insert-field-rule",
		rule.ID, formID, rule.Name, string(rule.TargetFieldID), conditions,
		rule.LogicExpression, string(rule.Action), actionValue, rule.Active, position)
	if err != nil {
		return fmt.Errorf("failed to insert field rule %s: %w", rule.ID, err)
	}
	return nil
}

// UpdateFieldRule replaces a stored field rule in place, keeping its position.
func (s *Store) UpdateFieldRule(formID types.FormID, rule types.FieldRule) error {
	conditions, actionValue, err := encodeRuleJSON(rule.Conditions, rule.ActionValue)
	if err != nil {
		return err
	}
	res, err := s.queries.Exec("update-field-rule",
		rule.Name, string(rule.TargetFieldID), conditions, rule.LogicExpression,
		string(rule.Action), actionValue, rule.Active, rule.ID, formID)
	if err != nil {
		return fmt.Errorf("failed to update field rule %s: %w", rule.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return types.ErrRuleNotFound
	}
	return nil
}

// DeleteFieldRule removes one field rule.
func (s *Store) DeleteFieldRule(formID types.FormID, ruleID types.RuleID) error {
	res, err := s.queries.Exec("delete-field-rule", ruleID, formID)
	if err != nil {
		return fmt.Errorf("failed to delete field rule %s: %w", ruleID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return types.ErrRuleNotFound
	}
	return nil
}

// ListFieldRules returns a form's field rules in stored position order.
func (s *Store) ListFieldRules(formID types.FormID) ([]types.FieldRule, error) {
	var rows []ruleRow
	if err := s.queries.Select("list-field-rules", &rows, formID); err != nil {
		return nil, fmt.Errorf("failed to list field rules for form %s: %w", formID, err)
	}
	rules := make([]types.FieldRule, 0, len(rows))
	for _, r := range rows {
		rule := types.FieldRule{
			ID:              r.RuleID,
			Name:            r.Name,
			TargetFieldID:   types.FieldID(r.TargetFieldID),
			LogicExpression: r.LogicExpression,
			Action:          types.FieldAction(r.Action),
			Active:          r.IsActive,
		}
		if err := decodeRuleJSON(r, &rule.Conditions, &rule.ActionValue); err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// CreateFormRule appends a form rule, sharing the per-form cap with field rules.
func (s *Store) CreateFormRule(formID types.FormID, rule types.FormRule) error {
	if err := s.checkRuleCapacity(formID); err != nil {
		return err
	}
	conditions, actionValue, err := encodeRuleJSON(rule.Conditions, rule.ActionValue)
	if err != nil {
		return err
	}
	position, err := s.nextPosition(formID, "next-form-rule-position")
	if err != nil {
		return err
	}
	_, err = s.queries.Exec("insert-form-rule",
		rule.ID, formID, rule.Name, conditions, rule.LogicExpression,
		string(rule.Action), actionValue, rule.Active, position)
	if err != nil {
		return fmt.Errorf("failed to insert form rule %s: %w", rule.ID, err)
	}
	return nil
}

// UpdateFormRule replaces a stored form rule in place.
func (s *Store) UpdateFormRule(formID types.FormID, rule types.FormRule) error {
	conditions, actionValue, err := encodeRuleJSON(rule.Conditions, rule.ActionValue)
	if err != nil {
		return err
	}
	res, err := s.queries.Exec("update-form-rule",
		rule.Name, conditions, rule.LogicExpression, string(rule.Action),
		actionValue, rule.Active, rule.ID, formID)
	if err != nil {
		return fmt.Errorf("failed to update form rule %s: %w", rule.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return types.ErrRuleNotFound
	}
	return nil
}

// DeleteFormRule removes one form rule.
func (s *Store) DeleteFormRule(formID types.FormID, ruleID types.RuleID) error {
	res, err := s.queries.Exec("delete-form-rule", ruleID, formID)
	if err != nil {
		return fmt.Errorf("failed to delete form rule %s: %w", ruleID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return types.ErrRuleNotFound
	}
	return nil
}

// ListFormRules returns a form's form rules in stored position order.
func (s *Store) ListFormRules(formID types.FormID) ([]types.FormRule, error) {
	var rows []ruleRow
	if err := s.queries.Select("list-form-rules", &rows, formID); err != nil {
		return nil, fmt.Errorf("failed to list form rules for form %s: %w", formID, err)
	}
	rules := make([]types.FormRule, 0, len(rows))
	for _, r := range rows {
		rule := types.FormRule{
			ID:              r.RuleID,
			Name:            r.Name,
			LogicExpression: r.LogicExpression,
			Action:          types.FormAction(r.Action),
			Active:          r.IsActive,
		}
		if err := decodeRuleJSON(r, &rule.Conditions, &rule.ActionValue); err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// FormBundle loads everything the engine needs to compile a form.
func (s *Store) FormBundle(formID types.FormID) (types.Form, []types.FieldRule, []types.FormRule, error) {
	form, err := s.GetForm(formID)
	if err != nil {
		return types.Form{}, nil, nil, err
	}
	fieldRules, err := s.ListFieldRules(formID)
	if err != nil {
		return types.Form{}, nil, nil, err
	}
	formRules, err := s.ListFormRules(formID)
	if err != nil {
		return types.Form{}, nil, nil, err
	}
	return form, fieldRules, formRules, nil
}

func (s *Store) insertFields(tx *sqlx.Tx, form types.Form) error {
	for i, field := range form.Fields {
		baseline, err := json.Marshal(field.Baseline)
		if err != nil {
			return fmt.Errorf("failed to encode baseline for field %s: %w", field.ID, err)
		}
		options := ""
		if field.Options != nil {
			b, err := json.Marshal(field.Options)
			if err != nil {
				return fmt.Errorf("failed to encode options for field %s: %w", field.ID, err)
			}
			options = string(b)
		}
		if err := s.execTx(tx, "insert-field",
			field.ID, form.ID, string(field.Type), string(baseline), options, i); err != nil {
			return fmt.Errorf("failed to insert field %s: %w", field.ID, err)
		}
	}
	return nil
}

func (s *Store) checkRuleCapacity(formID types.FormID) error {
	var fieldCount, formCount int
	if err := s.queries.Get("count-field-rules", &fieldCount, formID); err != nil {
		return fmt.Errorf("failed to count field rules: %w", err)
	}
	if err := s.queries.Get("count-form-rules", &formCount, formID); err != nil {
		return fmt.Errorf("failed to count form rules: %w", err)
	}
	if fieldCount+formCount >= types.MaxRulesPerForm {
		return types.ErrTooManyRules
	}
	return nil
}

// nextPosition appends at the end of the current order. MAX(position)+1,
// not COUNT(*): deleting a mid-list rule must never make a later insert
// reuse a surviving rule's position.
func (s *Store) nextPosition(formID types.FormID, positionQuery string) (int, error) {
	var position int
	if err := s.queries.Get(positionQuery, &position, formID); err != nil {
		return 0, fmt.Errorf("failed to compute rule position: %w", err)
	}
	return position, nil
}

func (s *Store) execTx(tx *sqlx.Tx, name string, args ...any) error {
	_, err := s.execTxResult(tx, name, args...)
	return err
}

func (s *Store) execTxResult(tx *sqlx.Tx, name string, args ...any) (sql.Result, error) {
	query, err := s.queries.dot.Raw(name)
	if err != nil {
		return nil, fmt.Errorf("query not found: %s", name)
	}
	return tx.Exec(tx.Rebind(query), args...)
}

func encodeRuleJSON(conditions []types.Condition, actionValue any) (string, string, error) {
	condJSON, err := json.Marshal(conditions)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode conditions: %w", err)
	}
	avJSON := ""
	if actionValue != nil {
		b, err := json.Marshal(actionValue)
		if err != nil {
			return "", "", fmt.Errorf("failed to encode action value: %w", err)
		}
		avJSON = string(b)
	}
	return string(condJSON), avJSON, nil
}

func decodeRuleJSON(r ruleRow, conditions *[]types.Condition, actionValue *any) error {
	if err := json.Unmarshal([]byte(r.Conditions), conditions); err != nil {
		return fmt.Errorf("corrupt conditions for rule %s: %w", r.RuleID, err)
	}
	if r.ActionValue != "" {
		if err := json.Unmarshal([]byte(r.ActionValue), actionValue); err != nil {
			return fmt.Errorf("corrupt action value for rule %s: %w", r.RuleID, err)
		}
	}
	return nil
}
