package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/formlab/formrules/internal/engine"
	"github.com/formlab/formrules/internal/types"
)

// catalogFor loads the field catalog rules are validated against.
func (s *Service) catalogFor(formID types.FormID) (engine.Catalog, error) {
	form, err := s.store.GetForm(formID)
	if err != nil {
		return nil, err
	}
	return engine.NewCatalog(form.Fields), nil
}

func (s *Service) handleListRules(w http.ResponseWriter, r *http.Request) {
	formID := types.FormID(chi.URLParam(r, "formID"))
	if _, err := s.store.GetForm(formID); err != nil {
		respondStoreError(w, err)
		return
	}

	fieldRules, err := s.store.ListFieldRules(formID)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	formRules, err := s.store.ListFormRules(formID)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"fieldRules": fieldRules,
		"formRules":  formRules,
	})
}

func (s *Service) handleCreateFieldRule(w http.ResponseWriter, r *http.Request) {
	formID := types.FormID(chi.URLParam(r, "formID"))

	var rule types.FieldRule
	if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if rule.ID == "" {
		rule.ID = types.NewRuleID()
	}

	catalog, err := s.catalogFor(formID)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	issues := engine.ValidateFieldRule(rule, catalog)
	if engine.HasErrors(issues) {
		respondJSON(w, http.StatusBadRequest, map[string]any{"issues": issues})
		return
	}

	if err := s.store.CreateFieldRule(formID, rule); err != nil {
		respondStoreError(w, err)
		return
	}
	s.engine.Invalidate(formID)
	respondJSON(w, http.StatusCreated, map[string]any{"rule": rule, "issues": issues})
}

func (s *Service) handleUpdateFieldRule(w http.ResponseWriter, r *http.Request) {
	formID := types.FormID(chi.URLParam(r, "formID"))
	ruleID := types.RuleID(chi.URLParam(r, "ruleID"))

	var rule types.FieldRule
	if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	rule.ID = ruleID

	catalog, err := s.catalogFor(formID)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	issues := engine.ValidateFieldRule(rule, catalog)
	if engine.HasErrors(issues) {
		respondJSON(w, http.StatusBadRequest, map[string]any{"issues": issues})
		return
	}

	if err := s.store.UpdateFieldRule(formID, rule); err != nil {
		respondStoreError(w, err)
		return
	}
	s.engine.Invalidate(formID)
	respondJSON(w, http.StatusOK, map[string]any{"rule": rule, "issues": issues})
}

func (s *Service) handleDeleteFieldRule(w http.ResponseWriter, r *http.Request) {
	formID := types.FormID(chi.URLParam(r, "formID"))
	ruleID := types.RuleID(chi.URLParam(r, "ruleID"))

	if err := s.store.DeleteFieldRule(formID, ruleID); err != nil {
		respondStoreError(w, err)
		return
	}
	s.engine.Invalidate(formID)
	respondJSON(w, http.StatusNoContent, nil)
}

func (s *Service) handleCreateFormRule(w http.ResponseWriter, r *http.Request) {
	formID := types.FormID(chi.URLParam(r, "formID"))

	var rule types.FormRule
	if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if rule.ID == "" {
		rule.ID = types.NewRuleID()
	}

	catalog, err := s.catalogFor(formID)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	issues := engine.ValidateFormRule(rule, catalog)
	if engine.HasErrors(issues) {
		respondJSON(w, http.StatusBadRequest, map[string]any{"issues": issues})
		return
	}

	if err := s.store.CreateFormRule(formID, rule); err != nil {
		respondStoreError(w, err)
		return
	}
	s.engine.Invalidate(formID)
	respondJSON(w, http.StatusCreated, map[string]any{"rule": rule, "issues": issues})
}

func (s *Service) handleUpdateFormRule(w http.ResponseWriter, r *http.Request) {
	formID := types.FormID(chi.URLParam(r, "formID"))
	ruleID := types.RuleID(chi.URLParam(r, "ruleID"))

	var rule types.FormRule
	if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	rule.ID = ruleID

	catalog, err := s.catalogFor(formID)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	issues := engine.ValidateFormRule(rule, catalog)
	if engine.HasErrors(issues) {
		respondJSON(w, http.StatusBadRequest, map[string]any{"issues": issues})
		return
	}

	if err := s.store.UpdateFormRule(formID, rule); err != nil {
		respondStoreError(w, err)
		return
	}
	s.engine.Invalidate(formID)
	respondJSON(w, http.StatusOK, map[string]any{"rule": rule, "issues": issues})
}

func (s *Service) handleDeleteFormRule(w http.ResponseWriter, r *http.Request) {
	formID := types.FormID(chi.URLParam(r, "formID"))
	ruleID := types.RuleID(chi.URLParam(r, "ruleID"))

	if err := s.store.DeleteFormRule(formID, ruleID); err != nil {
		respondStoreError(w, err)
		return
	}
	s.engine.Invalidate(formID)
	respondJSON(w, http.StatusNoContent, nil)
}

// handleValidateRules re-validates every stored rule of a form against the
// current catalog. The rule builder calls this after field changes to
// surface dangling references before users hit them.
func (s *Service) handleValidateRules(w http.ResponseWriter, r *http.Request) {
	formID := types.FormID(chi.URLParam(r, "formID"))

	form, fieldRules, formRules, err := s.store.FormBundle(formID)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	catalog := engine.NewCatalog(form.Fields)

	var issues []engine.Issue
	for _, rule := range fieldRules {
		issues = append(issues, engine.ValidateFieldRule(rule, catalog)...)
	}
	for _, rule := range formRules {
		issues = append(issues, engine.ValidateFormRule(rule, catalog)...)
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"issues":    issues,
		"hasErrors": engine.HasErrors(issues),
	})
}
