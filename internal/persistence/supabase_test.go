package persistence

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docugithub/docugithub/internal/config"
	"github.com/docugithub/docugithub/internal/failure"
)

type recorded struct {
	method, path, query string
	header              http.Header
	body                map[string]any
}

func fakeStore(t *testing.T, status int, reply string) (*Client, *[]recorded) {
	t.Helper()
	var got []recorded
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		rec := recorded{method: r.Method, path: r.URL.Path, query: r.URL.RawQuery, header: r.Header.Clone()}
		_ = json.Unmarshal(b, &rec.body)
		got = append(got, rec)
		w.WriteHeader(status)
		io.WriteString(w, reply)
	}))
	t.Cleanup(srv.Close)

	c, err := New(config.PersistenceConfig{URL: srv.URL + "/", Key: "anon-key"}, time.Second, nil)
	require.NoError(t, err)
	return c, &got
}

func TestNew_NotConfigured(t *testing.T) {
	_, err := New(config.PersistenceConfig{URL: "https://x.supabase.co"}, time.Second, nil)
	assert.True(t, failure.Is(err, failure.ConfigurationMissing))
}

func TestCreateSession(t *testing.T) {
	c, got := fakeStore(t, http.StatusCreated, `[{"id":"row-1","repo_url":"https://github.com/foo/bar","status":"started"}]`)

	row, err := c.CreateSession(context.Background(), SessionRow{RepoURL: "https://github.com/foo/bar", Owner: "foo", Repo: "bar"})
	require.NoError(t, err)
	assert.Equal(t, "row-1", row.ID)

	require.Len(t, *got, 1)
	req := (*got)[0]
	assert.Equal(t, http.MethodPost, req.method)
	assert.Equal(t, "/rest/v1/documentation_sessions", req.path)
	assert.Equal(t, "return=representation", req.header.Get("Prefer"))
	assert.Equal(t, "anon-key", req.header.Get("apikey"))
	assert.Equal(t, "Bearer anon-key", req.header.Get("Authorization"))
	assert.Equal(t, "started", req.body["status"])
	assert.NotContains(t, req.body, "id")
}

func TestCreateSession_EmptyReply(t *testing.T) {
	c, _ := fakeStore(t, http.StatusCreated, `[]`)
	_, err := c.CreateSession(context.Background(), SessionRow{RepoURL: "u"})
	assert.True(t, failure.Is(err, failure.BackendFailure))
}

func TestUpdateStatus(t *testing.T) {
	c, got := fakeStore(t, http.StatusNoContent, ``)

	require.NoError(t, c.UpdateStatus(context.Background(), "row-1", StatusAnalyzed))
	req := (*got)[0]
	assert.Equal(t, http.MethodPatch, req.method)
	assert.Equal(t, "id=eq.row-1", req.query)
	assert.Equal(t, map[string]any{"status": "analyzed"}, req.body)
}

func TestUpsertUserConfig(t *testing.T) {
	c, got := fakeStore(t, http.StatusCreated, ``)

	require.NoError(t, c.UpsertUserConfig(context.Background(), UserConfig{SessionID: "row-1", Style: "vibrant", Topics: []string{"Overview"}}))
	req := (*got)[0]
	assert.Equal(t, "/rest/v1/user_configs", req.path)
	assert.Equal(t, "on_conflict=session_id", req.query)
	assert.Equal(t, "resolution=merge-duplicates", req.header.Get("Prefer"))
	assert.Equal(t, []any{}, req.body["images"])
	assert.NotContains(t, req.body, "github_token")
}

func TestUpdateStatus_Rejected(t *testing.T) {
	c, _ := fakeStore(t, http.StatusUnauthorized, `{"message":"JWT expired"}`)
	err := c.UpdateStatus(context.Background(), "row-1", StatusFailed)
	var fe *failure.Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, failure.BackendFailure, fe.Kind)
	assert.Equal(t, http.StatusUnauthorized, fe.Status)
}
