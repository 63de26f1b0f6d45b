// Package webhook verifies inbound ResourceSync/Stack webhook signatures
// (spec §6, supplemented from original_source — see DESIGN.md). The original
// implementation signs the raw request body with HMAC-SHA256 and sends the
// hex digest in a GitHub/Gitea-style `X-Hub-Signature-256` header.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

const signaturePrefix = "sha256="

// Verify checks header (the raw `X-Hub-Signature-256` value) against an
// HMAC-SHA256 of body keyed by secret. Returns false on any malformed
// header or mismatch; never panics on attacker-controlled input.
func Verify(secret string, body []byte, header string) bool {
	if secret == "" {
		return false
	}
	digest, ok := strings.CutPrefix(header, signaturePrefix)
	if !ok {
		return false
	}
	want, err := hex.DecodeString(digest)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	got := mac.Sum(nil)

	return hmac.Equal(want, got)
}

// Sign computes the `X-Hub-Signature-256` header value for body under
// secret — used by tests and by any internal self-test / webhook replay
// tooling.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return signaturePrefix + hex.EncodeToString(mac.Sum(nil))
}
