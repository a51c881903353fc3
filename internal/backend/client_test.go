package backend_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docugithub/docugithub/internal/backend"
	"github.com/docugithub/docugithub/internal/backend/backendtest"
	"github.com/docugithub/docugithub/internal/config"
	"github.com/docugithub/docugithub/internal/failure"
	"github.com/docugithub/docugithub/internal/signing"
)

func newClient(base, secret string) *backend.Client {
	return backend.New(config.WebhookConfig{BaseURL: base, Secret: secret}, 5*time.Second, nil)
}

func TestInitialize_SignedPayload(t *testing.T) {
	srv := backendtest.New(t, "s3cret")
	c := newClient(srv.BaseURL, "s3cret")

	err := c.Initialize(context.Background(), backend.InitializeRequest{
		RepoURL: "https://github.com/foo/bar", SessionID: "sid", Owner: "foo", Repo: "bar",
	}, "tok")
	require.NoError(t, err)

	calls := srv.Calls("initialize")
	require.Len(t, calls, 1)
	call := calls[0]
	assert.True(t, call.SignatureValid)
	assert.Equal(t, `{"repo_url":"https://github.com/foo/bar","session_id":"sid","owner":"foo","repo":"bar"}`, string(call.Body))
	assert.Equal(t, "application/json", call.Header.Get("Content-Type"))
	assert.Equal(t, "Bearer tok", call.Header.Get("Authorization"))
	assert.Equal(t, signing.Sign(call.Body, "s3cret"), call.Header.Get(signing.SignatureHeader))
}

func TestPost_Unsigned(t *testing.T) {
	srv := backendtest.New(t, "")
	c := newClient(srv.BaseURL, "")

	require.NoError(t, c.Preferences(context.Background(), backend.PreferencesRequest{
		SessionID:   "sid",
		Preferences: backend.Preferences{Style: "simple", Topics: []string{"Overview"}, Images: []string{}},
	}, ""))

	call := srv.Calls("preferences")[0]
	assert.Empty(t, call.Header.Get(signing.SignatureHeader))
	assert.Empty(t, call.Header.Get("Authorization"))
	assert.JSONEq(t, `{"session_id":"sid","preferences":{"style":"simple","topics":["Overview"],"images":[]}}`, string(call.Body))
}

func TestPost_MissingBase(t *testing.T) {
	c := newClient("", "s3cret")
	_, err := c.Analyze(context.Background(), backend.AnalyzeRequest{SessionID: "sid"}, "")
	assert.True(t, failure.Is(err, failure.ConfigurationMissing))
}

func TestAnalyze_ReturnsRaw(t *testing.T) {
	srv := backendtest.New(t, "")
	srv.Handle("analyze", backendtest.OK(map[string]any{"languages": []string{"Go"}}))
	c := newClient(srv.BaseURL, "")

	raw, err := c.Analyze(context.Background(), backend.AnalyzeRequest{SessionID: "sid", Owner: "foo", Repo: "bar"}, "")
	require.NoError(t, err)
	assert.JSONEq(t, `{"languages":["Go"]}`, string(raw))

	fields := srv.Calls("analyze")[0].Fields
	assert.Equal(t, "foo", fields["owner"])
	assert.Equal(t, "bar", fields["repo"])
}

func TestPost_NonObjectIsBackendFailure(t *testing.T) {
	srv := backendtest.New(t, "")
	srv.Handle("analyze", backendtest.OK("[1,2,3]"))
	c := newClient(srv.BaseURL, "")

	_, err := c.Analyze(context.Background(), backend.AnalyzeRequest{SessionID: "sid"}, "")
	assert.True(t, failure.Is(err, failure.BackendFailure))
}

func TestPost_ErrorStatus(t *testing.T) {
	srv := backendtest.New(t, "")
	srv.Handle("generate", backendtest.Status(http.StatusInternalServerError))
	c := newClient(srv.BaseURL, "")

	_, err := c.Generate(context.Background(), backend.GenerateRequest{SessionID: "sid"}, "")
	require.Error(t, err)
	var fe *failure.Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, failure.BackendFailure, fe.Kind)
	assert.Equal(t, http.StatusInternalServerError, fe.Status)
	assert.Equal(t, 1, srv.Count("generate"), "no retries")
}

func TestGenerate(t *testing.T) {
	srv := backendtest.New(t, "")
	c := newClient(srv.BaseURL, "")

	out, err := c.Generate(context.Background(), backend.GenerateRequest{SessionID: "sid", RepoURL: "https://github.com/foo/bar"}, "")
	require.NoError(t, err)
	assert.Equal(t, "# Demo", out.Markdown)

	srv.Handle("generate", backendtest.OK(map[string]any{"markdown": ""}))
	_, err = c.Generate(context.Background(), backend.GenerateRequest{SessionID: "sid"}, "")
	assert.True(t, failure.Is(err, failure.BackendFailure))
}

func TestChat(t *testing.T) {
	srv := backendtest.New(t, "")
	c := newClient(srv.BaseURL, "")

	out, err := c.Chat(context.Background(), backend.ChatRequest{SessionID: "sid", Message: "shorter", CurrentReadme: "# A"}, "")
	require.NoError(t, err)
	assert.Equal(t, "revised: shorter", out.RevisedReadme)
	_, hasSelection := srv.Calls("chat")[0].Fields["selected_text"]
	assert.False(t, hasSelection)

	tests := []struct {
		name  string
		reply any
	}{
		{"success false", map[string]any{"success": false, "revised_readme": "x"}},
		{"no revision", map[string]any{"success": true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv.Handle("chat", backendtest.OK(tt.reply))
			_, err := c.Chat(context.Background(), backend.ChatRequest{SessionID: "sid", Message: "m"}, "")
			assert.True(t, failure.Is(err, failure.BackendFailure))
		})
	}
}

func TestPush(t *testing.T) {
	srv := backendtest.New(t, "")
	c := newClient(srv.BaseURL, "")

	out, err := c.Push(context.Background(), backend.PushRequest{SessionID: "sid", ReadmeContent: "# A", CommitMessage: "docs"}, "")
	require.NoError(t, err)
	assert.Equal(t, "https://github.com/acme/widgets/commit/abc123", out.CommitURL)

	srv.Handle("push", backendtest.OK(map[string]any{"success": false, "error": "protected branch"}))
	_, err = c.Push(context.Background(), backend.PushRequest{SessionID: "sid"}, "")
	require.Error(t, err)
	assert.True(t, failure.Is(err, failure.BackendFailure))
	assert.Contains(t, err.Error(), "protected branch")
}

func TestPost_CanceledContext(t *testing.T) {
	srv := backendtest.New(t, "")
	c := newClient(srv.BaseURL, "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := c.Initialize(ctx, backend.InitializeRequest{SessionID: "sid"}, "")
	assert.True(t, failure.Is(err, failure.NetworkFailure))
}

func TestReady(t *testing.T) {
	assert.True(t, failure.Is(newClient(" ", "").Ready(), failure.ConfigurationMissing))
	assert.NoError(t, newClient("https://n8n.example.com/webhook", "").Ready())
}
