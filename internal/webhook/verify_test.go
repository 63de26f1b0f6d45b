package webhook

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerifyRoundTrip(t *testing.T) {
	secret := "s3cr3t"
	body := []byte(`{"ref":"refs/heads/main"}`)

	header := Sign(secret, body)
	assert.True(t, Verify(secret, body, header))
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	body := []byte(`{"ref":"refs/heads/main"}`)
	header := Sign("correct", body)
	assert.False(t, Verify("wrong", body, header))
}

func TestVerifyRejectsTamperedBody(t *testing.T) {
	secret := "s3cr3t"
	header := Sign(secret, []byte("original"))
	assert.False(t, Verify(secret, []byte("tampered"), header))
}

func TestVerifyRejectsMalformedHeader(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"missing prefix", "deadbeef"},
		{"non-hex digest", "sha256=not-hex"},
		{"empty header", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, Verify("secret", []byte("body"), tt.header))
		})
	}
}

func TestVerifyRejectsEmptySecret(t *testing.T) {
	body := []byte("body")
	header := Sign("", body)
	assert.False(t, Verify("", body, header))
}
