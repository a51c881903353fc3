package signing

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docugithub/docugithub/internal/failure"
)

var sigRe = regexp.MustCompile(`^sha256=[0-9a-f]{64}$`)

func TestSign_KnownVector(t *testing.T) {
	// RFC 4231 test case 2.
	got := Sign([]byte("what do ya want for nothing?"), "Jefe")
	assert.Equal(t, "sha256=5bdcc146bf60754e6a042426089575c75a003f089d2739839dec58b964ec3843", got)
}

func TestSign_Deterministic(t *testing.T) {
	bodies := []string{"", "{}", `{"session_id":"abc"}`, "ünïcødé"}
	for _, b := range bodies {
		first := Sign([]byte(b), "s3cret")
		second := Sign([]byte(b), "s3cret")
		assert.Equal(t, first, second)
		assert.Regexp(t, sigRe, first)
	}
}

func TestSign_DistinctBodies(t *testing.T) {
	a := Sign([]byte(`{"session_id":"a"}`), "k")
	b := Sign([]byte(`{"session_id":"b"}`), "k")
	assert.NotEqual(t, a, b)
}

func TestVerify(t *testing.T) {
	body := []byte(`{"x":1}`)
	sig := Sign(body, "k")
	assert.True(t, Verify(body, "k", sig))
	assert.False(t, Verify(body, "other", sig))
	assert.False(t, Verify([]byte(`{"x":2}`), "k", sig))
}

func TestBuild_NoSecret(t *testing.T) {
	b := Builder{BaseURL: "https://hooks.example.com/webhook/"}
	req, err := b.Build("analyze", map[string]string{"session_id": "s1"}, "")
	require.NoError(t, err)

	assert.Equal(t, "https://hooks.example.com/webhook/analyze", req.URL)
	assert.False(t, req.Signed())
	assert.Empty(t, req.Header.Get(SignatureHeader))
	assert.Empty(t, req.Header.Get("Authorization"))
	assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
	assert.Equal(t, `{"session_id":"s1"}`, string(req.Body))
}

func TestBuild_WithSecretAndToken(t *testing.T) {
	b := Builder{BaseURL: "https://hooks.example.com", Secret: "shh"}
	req, err := b.Build("generate", map[string]string{"session_id": "s1"}, "tok")
	require.NoError(t, err)

	sig := req.Header.Get(SignatureHeader)
	assert.Regexp(t, sigRe, sig)
	assert.Equal(t, Sign(req.Body, "shh"), sig)
	assert.Equal(t, "Bearer tok", req.Header.Get("Authorization"))
}

func TestBuild_MissingBase(t *testing.T) {
	_, err := Builder{Secret: "x"}.Build("analyze", struct{}{}, "")
	require.Error(t, err)
	assert.True(t, failure.Is(err, failure.ConfigurationMissing))
}

func TestBuild_UnknownEndpoint(t *testing.T) {
	_, err := Builder{BaseURL: "https://h"}.Build("delete", struct{}{}, "")
	assert.True(t, failure.Is(err, failure.ValidationFailure))
}

func TestCanonical(t *testing.T) {
	type payload struct {
		SessionID string   `json:"session_id"`
		Message   string   `json:"message"`
		Topics    []string `json:"topics,omitempty"`
	}
	got, err := Canonical(payload{SessionID: "s", Message: "<b>&</b>"})
	require.NoError(t, err)
	assert.Equal(t, `{"session_id":"s","message":"<b>&</b>"}`, string(got))

	got, err = Canonical(map[string]int{"b": 2, "a": 1})
	require.NoError(t, err)
	assert.Equal(t, `{"a":1,"b":2}`, string(got))
}
