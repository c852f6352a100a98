package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/formlab/formrules/internal/types"
)

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string, err error) {
	body := map[string]any{"error": message}
	if err != nil {
		body["detail"] = err.Error()
	}
	if status >= 500 {
		slog.Error(message, "error", err)
	}
	respondJSON(w, status, body)
}

// respondStoreError maps store sentinel errors to HTTP statuses.
func respondStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, types.ErrFormNotFound):
		respondError(w, http.StatusNotFound, "form not found", nil)
	case errors.Is(err, types.ErrRuleNotFound):
		respondError(w, http.StatusNotFound, "rule not found", nil)
	case errors.Is(err, types.ErrTooManyRules):
		respondError(w, http.StatusUnprocessableEntity, "form has reached its rule limit", nil)
	default:
		respondError(w, http.StatusInternalServerError, "storage error", err)
	}
}
