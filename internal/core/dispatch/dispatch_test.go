package dispatch

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/formlab/formrules/internal/types"
)

func testSecret() []byte {
	secret := make([]byte, 32)
	for i := range secret {
		secret[i] = byte(i)
	}
	return secret
}

func webhookDescriptor(url string) types.ActionDescriptor {
	return types.ActionDescriptor{
		RuleID:      "hook-rule",
		Action:      types.ActionTriggerWebhook,
		ActionValue: types.WebhookPayload{URL: url},
	}
}

func TestDispatch_WebhookDeliveredAndSigned(t *testing.T) {
	secret := testSecret()

	var gotBody []byte
	var gotSignature, gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		gotSignature = r.Header.Get(SignatureHeader)
		gotContentType = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	d := New(Options{Secret: secret, WebhookTimeout: 5 * time.Second})
	values := types.ValueMap{"country": "US"}
	outcomes := d.Dispatch(context.Background(), "form-1", values, []types.ActionDescriptor{webhookDescriptor(srv.URL)})

	if len(outcomes) != 1 || outcomes[0].Status != StatusDelivered {
		t.Fatalf("outcomes = %+v, want one delivered", outcomes)
	}
	if gotContentType != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", gotContentType)
	}
	if !VerifySignature(secret, gotBody, gotSignature) {
		t.Errorf("signature %q does not verify against body", gotSignature)
	}

	var body webhookBody
	if err := json.Unmarshal(gotBody, &body); err != nil {
		t.Fatalf("body is not JSON: %v", err)
	}
	if body.FormID != "form-1" || body.RuleID != "hook-rule" || body.Values["country"] != "US" {
		t.Errorf("body = %+v, want form/rule/values echoed", body)
	}
}

func TestDispatch_UnsignedWhenNoSecret(t *testing.T) {
	var gotSignature string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSignature = r.Header.Get(SignatureHeader)
	}))
	defer srv.Close()

	d := New(Options{WebhookTimeout: 5 * time.Second})
	outcomes := d.Dispatch(context.Background(), "form-1", nil, []types.ActionDescriptor{webhookDescriptor(srv.URL)})
	if outcomes[0].Status != StatusDelivered {
		t.Fatalf("status = %s, want delivered", outcomes[0].Status)
	}
	if gotSignature != "" {
		t.Errorf("signature header = %q, want empty without a secret", gotSignature)
	}
}

func TestDispatch_FailureDoesNotBlockLaterDescriptors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	d := New(Options{WebhookTimeout: 5 * time.Second})
	descriptors := []types.ActionDescriptor{
		webhookDescriptor(srv.URL),
		{RuleID: "approve-rule", Action: types.ActionApprove},
	}
	outcomes := d.Dispatch(context.Background(), "form-1", nil, descriptors)
	if len(outcomes) != 2 {
		t.Fatalf("len(outcomes) = %d, want 2", len(outcomes))
	}
	if outcomes[0].Status != StatusFailed {
		t.Errorf("outcomes[0].Status = %s, want failed", outcomes[0].Status)
	}
	if outcomes[1].Status != StatusForwarded {
		t.Errorf("outcomes[1].Status = %s, want forwarded", outcomes[1].Status)
	}
}

func TestDispatch_NonWebhookActionsForwarded(t *testing.T) {
	d := New(Options{})
	descriptors := []types.ActionDescriptor{
		{RuleID: "r1", Action: types.ActionSendEmail, ActionValue: types.EmailPayload{Recipients: []string{"a@b.c"}}},
		{RuleID: "r2", Action: types.ActionLockForm},
	}
	outcomes := d.Dispatch(context.Background(), "form-1", nil, descriptors)
	for i, out := range outcomes {
		if out.Status != StatusForwarded {
			t.Errorf("outcomes[%d].Status = %s, want forwarded", i, out.Status)
		}
	}
}

func TestDispatch_Debounce(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
	}))
	defer srv.Close()

	d := New(Options{WebhookTimeout: 5 * time.Second, DebounceWindow: time.Minute})
	clock := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)
	d.now = func() time.Time { return clock }

	desc := []types.ActionDescriptor{webhookDescriptor(srv.URL)}

	if out := d.Dispatch(context.Background(), "form-1", nil, desc); out[0].Status != StatusDelivered {
		t.Fatalf("first dispatch status = %s, want delivered", out[0].Status)
	}
	if out := d.Dispatch(context.Background(), "form-1", nil, desc); out[0].Status != StatusDebounced {
		t.Errorf("second dispatch status = %s, want debounced", out[0].Status)
	}

	// A different form shares the rule id but not the debounce key.
	if out := d.Dispatch(context.Background(), "form-2", nil, desc); out[0].Status != StatusDelivered {
		t.Errorf("other-form dispatch status = %s, want delivered", out[0].Status)
	}

	clock = clock.Add(2 * time.Minute)
	if out := d.Dispatch(context.Background(), "form-1", nil, desc); out[0].Status != StatusDelivered {
		t.Errorf("post-window dispatch status = %s, want delivered", out[0].Status)
	}

	if hits != 3 {
		t.Errorf("webhook hits = %d, want 3", hits)
	}
}

func TestVerifySignature(t *testing.T) {
	secret := testSecret()
	body := []byte(`{"formId":"f"}`)
	header := FormatSignature(ComputeSignature(secret, body))

	if !VerifySignature(secret, body, header) {
		t.Error("VerifySignature() = false for a valid signature")
	}
	if VerifySignature(secret, []byte("tampered"), header) {
		t.Error("VerifySignature() = true for a tampered body")
	}
	if VerifySignature(secret, body, "sha256=zz") {
		t.Error("VerifySignature() = true for undecodable hex")
	}
	if VerifySignature(secret, body, "md5=abc") {
		t.Error("VerifySignature() = true for wrong scheme prefix")
	}
}

func TestDispatch_ExpiredDebounceEntriesEvicted(t *testing.T) {
	d := New(Options{DebounceWindow: time.Minute})
	clock := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)
	d.now = func() time.Time { return clock }

	desc := []types.ActionDescriptor{{RuleID: "r1", Action: types.ActionApprove}}
	d.Dispatch(context.Background(), "deleted-form", nil, desc)

	clock = clock.Add(2 * time.Minute)
	d.Dispatch(context.Background(), "live-form", nil, desc)

	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.lastSeen) != 1 {
		t.Fatalf("len(lastSeen) = %d, want 1 after expiry sweep", len(d.lastSeen))
	}
	if _, ok := d.lastSeen["deleted-form/r1/approve"]; ok {
		t.Error("expired debounce entry still present after sweep")
	}
}
