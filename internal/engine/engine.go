package engine

import (
	"sync"

	"github.com/formlab/formrules/internal/types"
)

// Engine caches compiled rule sets per form so the per-keystroke evaluate
// path never re-parses logic expressions. Evaluation itself is a pure
// function; the cache is the only mutable state and is guarded by an
// RWMutex for concurrent evaluation contexts (preview and live submission).
type Engine struct {
	mu    sync.RWMutex
	forms map[types.FormID]*compiledForm
}

type compiledForm struct {
	fields     []types.Field
	fieldRules []CompiledFieldRule
	formRules  []CompiledFormRule
}

// NewEngine creates an engine with an empty compiled-set cache.
func NewEngine() *Engine {
	return &Engine{forms: make(map[types.FormID]*compiledForm)}
}

// Load compiles and caches a form's catalog and rules, replacing any prior
// entry. Defective rules compile to marked no-ops, never an error.
func (en *Engine) Load(formID types.FormID, fields []types.Field, fieldRules []types.FieldRule, formRules []types.FormRule) {
	cf := &compiledForm{
		fields:     fields,
		fieldRules: CompileFieldRules(fieldRules),
		formRules:  CompileFormRules(formRules),
	}
	en.mu.Lock()
	en.forms[formID] = cf
	en.mu.Unlock()
}

// Invalidate drops a form's compiled rules, forcing a reload on next use.
func (en *Engine) Invalidate(formID types.FormID) {
	en.mu.Lock()
	delete(en.forms, formID)
	en.mu.Unlock()
}

// Loaded reports whether a compiled set exists for the form.
func (en *Engine) Loaded(formID types.FormID) bool {
	en.mu.RLock()
	defer en.mu.RUnlock()
	_, ok := en.forms[formID]
	return ok
}

// Evaluate runs one full pass for a loaded form: derived field states,
// ordered form-action descriptors, and the value mutations to fold in before
// the next pass. Returns ErrFormNotFound when the form is not loaded.
func (en *Engine) Evaluate(formID types.FormID, values types.ValueMap) (FieldResult, []types.ActionDescriptor, error) {
	en.mu.RLock()
	cf, ok := en.forms[formID]
	en.mu.RUnlock()
	if !ok {
		return FieldResult{}, nil, types.ErrFormNotFound
	}

	fieldResult := EvaluateCompiledFields(cf.fields, cf.fieldRules, values)
	descriptors := EvaluateCompiledForm(cf.fields, cf.formRules, values)
	return fieldResult, descriptors, nil
}
