// Package api provides the JSON HTTP service for form and rule management
// and rule evaluation.
package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/formlab/formrules/internal/core/config"
	"github.com/formlab/formrules/internal/core/db"
	"github.com/formlab/formrules/internal/core/dispatch"
	"github.com/formlab/formrules/internal/engine"
	"github.com/formlab/formrules/internal/types"
)

// Service is a thin orchestration layer: handlers delegate to the store,
// the engine, and the dispatcher. Compiled rule sets are cached in the
// engine and invalidated on every rule or form write.
type Service struct {
	store      *db.Store
	engine     *engine.Engine
	dispatcher *dispatch.Dispatcher
	cfg        *config.ServerConfig
}

// NewService creates the service with its dependencies.
func NewService(store *db.Store, eng *engine.Engine, dispatcher *dispatch.Dispatcher, cfg *config.ServerConfig) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if eng == nil {
		return nil, fmt.Errorf("engine cannot be nil")
	}
	if dispatcher == nil {
		return nil, fmt.Errorf("dispatcher cannot be nil")
	}
	if cfg == nil {
		return nil, fmt.Errorf("cfg cannot be nil")
	}
	return &Service{store: store, engine: eng, dispatcher: dispatcher, cfg: cfg}, nil
}

// Router builds the chi route tree.
func (s *Service) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.cfg.RequestTimeout))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Post("/evaluate", s.handleEvaluateAdHoc)

		r.Route("/forms", func(r chi.Router) {
			r.Get("/", s.handleListForms)
			r.Post("/", s.handleCreateForm)

			r.Route("/{formID}", func(r chi.Router) {
				r.Get("/", s.handleGetForm)
				r.Put("/", s.handleUpdateForm)
				r.Delete("/", s.handleDeleteForm)
				r.Post("/evaluate", s.handleEvaluateForm)

				r.Route("/rules", func(r chi.Router) {
					r.Get("/", s.handleListRules)
					r.Post("/validate", s.handleValidateRules)
					r.Post("/field", s.handleCreateFieldRule)
					r.Put("/field/{ruleID}", s.handleUpdateFieldRule)
					r.Delete("/field/{ruleID}", s.handleDeleteFieldRule)
					r.Post("/form", s.handleCreateFormRule)
					r.Put("/form/{ruleID}", s.handleUpdateFormRule)
					r.Delete("/form/{ruleID}", s.handleDeleteFormRule)
				})
			})
		})
	})

	return r
}

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ensureLoaded lazily compiles a form's rule set into the engine cache.
func (s *Service) ensureLoaded(formID types.FormID) error {
	if s.engine.Loaded(formID) {
		return nil
	}
	form, fieldRules, formRules, err := s.store.FormBundle(formID)
	if err != nil {
		return err
	}
	s.engine.Load(formID, form.Fields, fieldRules, formRules)
	return nil
}
