package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/formlab/formrules/internal/core/dispatch"
	"github.com/formlab/formrules/internal/engine"
	"github.com/formlab/formrules/internal/types"
)

// evaluateResponse is the wire shape of one evaluation pass.
type evaluateResponse struct {
	FieldStates    map[types.FieldID]types.FieldState `json:"fieldStates"`
	Actions        []types.ActionDescriptor           `json:"actions"`
	ValueMutations []engine.ValueMutation             `json:"valueMutations"`
	Dispatch       []dispatch.Outcome                 `json:"dispatch,omitempty"`
}

// handleEvaluateForm runs one pass for a stored form and dispatches the
// resulting form actions.
func (s *Service) handleEvaluateForm(w http.ResponseWriter, r *http.Request) {
	formID := types.FormID(chi.URLParam(r, "formID"))

	var req struct {
		Values types.ValueMap `json:"values"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	if err := s.ensureLoaded(formID); err != nil {
		respondStoreError(w, err)
		return
	}

	fieldResult, descriptors, err := s.engine.Evaluate(formID, req.Values)
	if err != nil {
		if errors.Is(err, types.ErrFormNotFound) {
			respondError(w, http.StatusNotFound, "form not found", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "evaluation failed", err)
		return
	}

	mutations := append(fieldResult.Mutations, engine.AutoFillMutations(descriptors)...)
	outcomes := s.dispatcher.Dispatch(r.Context(), formID, req.Values, descriptors)

	respondJSON(w, http.StatusOK, evaluateResponse{
		FieldStates:    fieldResult.States,
		Actions:        descriptors,
		ValueMutations: mutations,
		Dispatch:       outcomes,
	})
}

// handleEvaluateAdHoc evaluates a catalog and rule set supplied in the
// request. Nothing is persisted and nothing is dispatched: this is the
// preview path the rule builder uses while editing.
func (s *Service) handleEvaluateAdHoc(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Fields     []types.Field     `json:"fields"`
		FieldRules []types.FieldRule `json:"fieldRules"`
		FormRules  []types.FormRule  `json:"formRules"`
		Values     types.ValueMap    `json:"values"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if len(req.Fields) == 0 {
		respondError(w, http.StatusBadRequest, "fields are required", nil)
		return
	}

	fieldResult := engine.EvaluateFields(req.Fields, req.FieldRules, req.Values)
	descriptors := engine.EvaluateForm(req.Fields, req.FormRules, req.Values)
	mutations := append(fieldResult.Mutations, engine.AutoFillMutations(descriptors)...)

	respondJSON(w, http.StatusOK, evaluateResponse{
		FieldStates:    fieldResult.States,
		Actions:        descriptors,
		ValueMutations: mutations,
	})
}
