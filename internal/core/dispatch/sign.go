package dispatch

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// SignatureHeader carries the HMAC-SHA256 signature of the webhook body.
const SignatureHeader = "X-Formrules-Signature"

// ComputeSignature computes the HMAC-SHA256 signature of a webhook body.
func ComputeSignature(secret, body []byte) []byte {
	h := hmac.New(sha256.New, secret)
	h.Write(body)
	return h.Sum(nil)
}

// FormatSignature renders a signature as the header value, sha256=<hex>.
func FormatSignature(sig []byte) string {
	return "sha256=" + hex.EncodeToString(sig)
}

// VerifySignature checks a received header value against the body using
// constant-time comparison. Receivers use this to authenticate deliveries.
func VerifySignature(secret, body []byte, header string) bool {
	encoded, ok := strings.CutPrefix(header, "sha256=")
	if !ok {
		return false
	}
	received, err := hex.DecodeString(encoded)
	if err != nil {
		return false
	}
	return hmac.Equal(received, ComputeSignature(secret, body))
}
