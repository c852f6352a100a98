// Package dispatch turns form-action descriptors into side effects.
//
// The engine is pure: it returns descriptors of what a satisfied form rule
// wants done. This package is the collaborator that does it. Webhooks are
// delivered as signed HTTP requests; every other action kind is forwarded as
// a handoff record for downstream systems (mail service, workflow runner,
// the client UI). Repeated triggers of the same rule within the debounce
// window are suppressed so per-keystroke evaluation does not fan out one
// delivery per keystroke.
package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/formlab/formrules/internal/types"
)

// Status classifies what happened to one descriptor.
type Status string

const (
	// StatusDelivered means the webhook request got a 2xx response.
	StatusDelivered Status = "delivered"
	// StatusForwarded means the action was handed off as a record for a
	// downstream consumer; no I/O happened here.
	StatusForwarded Status = "forwarded"
	// StatusDebounced means the same rule+action fired within the window.
	StatusDebounced Status = "debounced"
	// StatusFailed means webhook delivery failed.
	StatusFailed Status = "failed"
)

// Outcome reports the handling of one descriptor.
type Outcome struct {
	RuleID types.RuleID     `json:"ruleId"`
	Action types.FormAction `json:"action"`
	Status Status           `json:"status"`
	Detail string           `json:"detail,omitempty"`
}

// Options configures a Dispatcher.
type Options struct {
	// Secret signs webhook bodies. nil disables signing.
	Secret []byte
	// WebhookTimeout bounds each delivery attempt.
	WebhookTimeout time.Duration
	// DebounceWindow suppresses repeat triggers of the same rule+action.
	// Zero disables debouncing.
	DebounceWindow time.Duration
	// Client overrides the HTTP client, used by tests.
	Client *http.Client
}

// Dispatcher delivers webhooks and forwards other actions. Safe for
// concurrent use.
type Dispatcher struct {
	client  *http.Client
	secret  []byte
	window  time.Duration
	timeout time.Duration

	mu       sync.Mutex
	lastSeen map[string]time.Time
	now      func() time.Time
}

// New creates a dispatcher from options.
func New(opts Options) *Dispatcher {
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.WebhookTimeout}
	}
	return &Dispatcher{
		client:   client,
		secret:   opts.Secret,
		window:   opts.DebounceWindow,
		timeout:  opts.WebhookTimeout,
		lastSeen: make(map[string]time.Time),
		now:      time.Now,
	}
}

// webhookBody is the wire shape of a webhook delivery.
type webhookBody struct {
	FormID types.FormID     `json:"formId"`
	RuleID types.RuleID     `json:"ruleId"`
	Action types.FormAction `json:"action"`
	Values types.ValueMap   `json:"values"`
}

// Dispatch handles each descriptor in order and reports per-descriptor
// outcomes. A failed webhook never blocks the descriptors after it.
func (d *Dispatcher) Dispatch(ctx context.Context, formID types.FormID, values types.ValueMap, descriptors []types.ActionDescriptor) []Outcome {
	outcomes := make([]Outcome, 0, len(descriptors))
	for _, desc := range descriptors {
		outcomes = append(outcomes, d.dispatchOne(ctx, formID, values, desc))
	}
	return outcomes
}

func (d *Dispatcher) dispatchOne(ctx context.Context, formID types.FormID, values types.ValueMap, desc types.ActionDescriptor) Outcome {
	out := Outcome{RuleID: desc.RuleID, Action: desc.Action}

	if d.debounced(formID, desc) {
		out.Status = StatusDebounced
		return out
	}

	if desc.Action != types.ActionTriggerWebhook {
		// Non-webhook actions are effects for downstream consumers; the
		// outcome record is the handoff.
		out.Status = StatusForwarded
		return out
	}

	payload, ok := desc.ActionValue.(types.WebhookPayload)
	if !ok {
		out.Status = StatusFailed
		out.Detail = "webhook payload missing or untyped"
		return out
	}

	if err := d.deliverWebhook(ctx, formID, values, desc, payload); err != nil {
		slog.Warn("webhook delivery failed",
			"formId", formID, "ruleId", desc.RuleID, "url", payload.URL, "error", err)
		out.Status = StatusFailed
		out.Detail = err.Error()
		return out
	}

	slog.Debug("webhook delivered", "formId", formID, "ruleId", desc.RuleID, "url", payload.URL)
	out.Status = StatusDelivered
	return out
}

// debounced records the trigger and reports whether it fell inside the
// window of the previous one.
func (d *Dispatcher) debounced(formID types.FormID, desc types.ActionDescriptor) bool {
	if d.window <= 0 {
		return false
	}
	key := fmt.Sprintf("%s/%s/%s", formID, desc.RuleID, desc.Action)

	d.mu.Lock()
	defer d.mu.Unlock()
	now := d.now()

	// Expired entries can never suppress anything again; sweeping them here
	// keeps the map bounded by the actively-firing rules instead of growing
	// with every rule and form ever dispatched.
	for k, last := range d.lastSeen {
		if now.Sub(last) >= d.window {
			delete(d.lastSeen, k)
		}
	}

	if last, ok := d.lastSeen[key]; ok && now.Sub(last) < d.window {
		return true
	}
	d.lastSeen[key] = now
	return false
}

func (d *Dispatcher) deliverWebhook(ctx context.Context, formID types.FormID, values types.ValueMap, desc types.ActionDescriptor, payload types.WebhookPayload) error {
	body, err := json.Marshal(webhookBody{
		FormID: formID,
		RuleID: desc.RuleID,
		Action: desc.Action,
		Values: values,
	})
	if err != nil {
		return fmt.Errorf("failed to encode webhook body: %w", err)
	}

	method := payload.Method
	if method == "" {
		method = http.MethodPost
	}

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, method, payload.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range payload.Header {
		req.Header.Set(k, v)
	}
	if d.secret != nil {
		req.Header.Set(SignatureHeader, FormatSignature(ComputeSignature(d.secret, body)))
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
