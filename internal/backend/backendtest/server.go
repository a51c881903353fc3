// Package backendtest provides a fake workflow backend for tests. It checks
// request signatures the way the real backend does and records every call.
package backendtest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/docugithub/docugithub/internal/signing"
)

// Call is one request received by the fake.
type Call struct {
	Endpoint       string
	Body           []byte
	Header         http.Header
	Fields         map[string]any
	SignatureValid bool
}

// Handler answers one endpoint. Returning a nil reply writes no body.
type Handler func(c Call) (status int, reply any)

// Server is a fake backend reachable at BaseURL.
type Server struct {
	*httptest.Server
	BaseURL string
	Secret  string

	mu       sync.Mutex
	calls    []Call
	handlers map[string]Handler
}

// New starts a fake backend with handlers that succeed. It is closed when
// the test ends.
func New(t testing.TB, secret string) *Server {
	t.Helper()
	s := &Server{Secret: secret, handlers: map[string]Handler{}}
	for _, ep := range signing.Endpoints {
		s.handlers[ep] = OK(map[string]any{"ok": true})
	}
	s.handlers["generate"] = OK(map[string]any{"markdown": "# Demo"})
	s.handlers["chat"] = func(c Call) (int, any) {
		return http.StatusOK, map[string]any{"success": true, "revised_readme": "revised: " + str(c.Fields["message"])}
	}
	s.handlers["push"] = OK(map[string]any{"success": true, "commit_url": "https://github.com/acme/widgets/commit/abc123"})

	r := chi.NewRouter()
	r.Post("/webhook/{endpoint}", s.serve)
	s.Server = httptest.NewServer(r)
	s.BaseURL = s.Server.URL + "/webhook"
	t.Cleanup(s.Close)
	return s
}

// OK replies 200 with body.
func OK(body any) Handler {
	return func(Call) (int, any) { return http.StatusOK, body }
}

// Status replies with an error status and a small JSON body.
func Status(code int) Handler {
	return func(Call) (int, any) { return code, map[string]any{"error": http.StatusText(code)} }
}

// Handle replaces the handler for endpoint.
func (s *Server) Handle(endpoint string, h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[endpoint] = h
}

// Calls returns the calls received for endpoint, or all calls when
// endpoint is empty.
func (s *Server) Calls(endpoint string) []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Call
	for _, c := range s.calls {
		if endpoint == "" || c.Endpoint == endpoint {
			out = append(out, c)
		}
	}
	return out
}

// Count is len(Calls(endpoint)).
func (s *Server) Count(endpoint string) int {
	return len(s.Calls(endpoint))
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	c := Call{
		Endpoint: chi.URLParam(r, "endpoint"),
		Body:     body,
		Header:   r.Header.Clone(),
	}
	_ = json.Unmarshal(body, &c.Fields)
	if s.Secret != "" {
		c.SignatureValid = signing.Verify(body, s.Secret, r.Header.Get(signing.SignatureHeader))
	}

	s.mu.Lock()
	s.calls = append(s.calls, c)
	h, ok := s.handlers[c.Endpoint]
	s.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}
	if s.Secret != "" && !c.SignatureValid {
		http.Error(w, `{"error":"invalid signature"}`, http.StatusUnauthorized)
		return
	}
	status, reply := h(c)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if reply == nil {
		return
	}
	if raw, ok := reply.(string); ok {
		io.WriteString(w, raw)
		return
	}
	json.NewEncoder(w).Encode(reply)
}

func str(v any) string {
	s, _ := v.(string)
	return s
}
