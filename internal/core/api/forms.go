package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/formlab/formrules/internal/types"
)

func (s *Service) handleListForms(w http.ResponseWriter, r *http.Request) {
	forms, err := s.store.ListForms()
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"forms": forms})
}

func (s *Service) handleCreateForm(w http.ResponseWriter, r *http.Request) {
	var form types.Form
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if form.Name == "" {
		respondError(w, http.StatusBadRequest, "name is required", nil)
		return
	}
	if form.ID == "" {
		form.ID = types.NewFormID()
	}
	for i := range form.Fields {
		if form.Fields[i].ID == "" {
			form.Fields[i].ID = types.NewFieldID()
		}
	}

	if err := s.store.CreateForm(form); err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, form)
}

func (s *Service) handleGetForm(w http.ResponseWriter, r *http.Request) {
	formID := types.FormID(chi.URLParam(r, "formID"))
	form, err := s.store.GetForm(formID)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, form)
}

func (s *Service) handleUpdateForm(w http.ResponseWriter, r *http.Request) {
	formID := types.FormID(chi.URLParam(r, "formID"))

	var form types.Form
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	form.ID = formID
	if form.Name == "" {
		respondError(w, http.StatusBadRequest, "name is required", nil)
		return
	}

	if err := s.store.UpdateForm(form); err != nil {
		respondStoreError(w, err)
		return
	}
	// Field changes can orphan rule references; recompile on next evaluate.
	s.engine.Invalidate(formID)
	respondJSON(w, http.StatusOK, form)
}

func (s *Service) handleDeleteForm(w http.ResponseWriter, r *http.Request) {
	formID := types.FormID(chi.URLParam(r, "formID"))
	if err := s.store.DeleteForm(formID); err != nil {
		respondStoreError(w, err)
		return
	}
	s.engine.Invalidate(formID)
	respondJSON(w, http.StatusNoContent, nil)
}
