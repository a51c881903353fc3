// Package signing builds authenticated requests for the workflow backend.
//
// Each request body is signed with HMAC-SHA256 under the shared webhook
// secret. The backend recomputes the signature over the exact bytes it
// receives, so the bytes that are signed are the bytes that are sent.
package signing

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/docugithub/docugithub/internal/failure"
)

const (
	// Prefix tags the signature with its algorithm.
	Prefix = "sha256="

	SignatureHeader = "x-webhook-signature"
)

// Endpoints the workflow backend accepts, in workflow order.
var Endpoints = []string{"initialize", "analyze", "preferences", "generate", "chat", "push"}

// Sign returns "sha256=" followed by the lowercase hex HMAC-SHA256 of body.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return Prefix + hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether signature is the signature of body under secret.
func Verify(body []byte, secret, signature string) bool {
	return hmac.Equal([]byte(Sign(body, secret)), []byte(signature))
}

// SignedRequest is a request ready to send. It is built per call and never stored.
type SignedRequest struct {
	Endpoint    string
	URL         string
	Body        []byte
	Signature   string
	BearerToken string
	Header      http.Header
}

// Signed reports whether the request carries a signature.
func (r *SignedRequest) Signed() bool {
	return r.Signature != ""
}

// Builder produces SignedRequests for one backend.
type Builder struct {
	BaseURL string
	Secret  string
}

// Build serializes payload, signs it when a secret is configured and
// attaches the bearer token when one is given.
func (b Builder) Build(endpoint string, payload any, bearerToken string) (*SignedRequest, error) {
	base := strings.TrimRight(strings.TrimSpace(b.BaseURL), "/")
	if base == "" {
		return nil, failure.New(failure.ConfigurationMissing, "N8N_WEBHOOK_BASE is not configured")
	}
	if !knownEndpoint(endpoint) {
		return nil, failure.Newf(failure.ValidationFailure, "unknown backend endpoint %q", endpoint)
	}

	body, err := Canonical(payload)
	if err != nil {
		return nil, failure.Wrap(failure.ValidationFailure, "encoding request body", err)
	}

	req := &SignedRequest{
		Endpoint:    endpoint,
		URL:         base + "/" + endpoint,
		Body:        body,
		BearerToken: bearerToken,
		Header:      http.Header{},
	}
	req.Header.Set("Content-Type", "application/json")
	if b.Secret != "" {
		req.Signature = Sign(body, b.Secret)
		req.Header.Set(SignatureHeader, req.Signature)
	}
	if bearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+bearerToken)
	}
	return req, nil
}

// Canonical encodes v as compact JSON: struct fields in declaration order,
// map keys sorted, no HTML escaping and no trailing newline.
func Canonical(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func knownEndpoint(name string) bool {
	for _, e := range Endpoints {
		if e == name {
			return true
		}
	}
	return false
}
