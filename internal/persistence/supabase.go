// Package persistence records sessions and their preferences in the hosted
// data store through its PostgREST API.
package persistence

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/docugithub/docugithub/internal/config"
	"github.com/docugithub/docugithub/internal/failure"
	"github.com/docugithub/docugithub/internal/httpclient"
)

// Session statuses written to documentation_sessions.status.
const (
	StatusStarted    = "started"
	StatusAnalyzed   = "analyzed"
	StatusConfigured = "configured"
	StatusGenerated  = "generated"
	StatusPublished  = "published"
	StatusFailed     = "failed"
)

// SessionRow is a documentation_sessions row.
type SessionRow struct {
	ID        string     `json:"id,omitempty"`
	RepoURL   string     `json:"repo_url"`
	Owner     string     `json:"owner"`
	Repo      string     `json:"repo"`
	Status    string     `json:"status"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// UserConfig is a user_configs row, keyed by session_id.
type UserConfig struct {
	SessionID   string   `json:"session_id"`
	Style       string   `json:"style"`
	Topics      []string `json:"topics"`
	Images      []string `json:"images"`
	GitHubToken string   `json:"github_token,omitempty"`
}

// Client is a PostgREST client for one project.
type Client struct {
	HTTP   *httpclient.Client
	Logger *zap.Logger
}

// New returns a Client, or ConfigurationMissing when the store is not
// configured.
func New(cfg config.PersistenceConfig, timeout time.Duration, logger *zap.Logger) (*Client, error) {
	if !cfg.Configured() {
		return nil, failure.New(failure.ConfigurationMissing, "SUPABASE_URL and SUPABASE_ANON_KEY are not configured")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	hc := httpclient.New(httpclient.Options{BaseURL: strings.TrimRight(cfg.URL, "/") + "/rest/v1", Timeout: timeout})
	hc.Resty.
		SetHeader("apikey", cfg.Key).
		SetAuthToken(cfg.Key).
		SetHeader("Content-Type", "application/json")
	return &Client{HTTP: hc, Logger: logger}, nil
}

// CreateSession inserts a row and returns it with its generated id.
func (c *Client) CreateSession(ctx context.Context, row SessionRow) (*SessionRow, error) {
	if row.Status == "" {
		row.Status = StatusStarted
	}
	req, err := c.HTTP.Request(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := req.
		SetHeader("Prefer", "return=representation").
		SetBody(row).
		Post("/documentation_sessions")
	if cerr := httpclient.Classify("create session", resp, err); cerr != nil {
		return nil, cerr
	}

	var rows []SessionRow
	if err := json.Unmarshal(resp.Body(), &rows); err != nil || len(rows) == 0 || rows[0].ID == "" {
		return nil, &failure.Error{Kind: failure.BackendFailure, Status: resp.StatusCode(), Message: "create session: no row returned", Err: err}
	}
	c.Logger.Debug("session row created", zap.String("session_id", rows[0].ID))
	return &rows[0], nil
}

// UpdateStatus sets the status of a session row.
func (c *Client) UpdateStatus(ctx context.Context, id, status string) error {
	req, err := c.HTTP.Request(ctx)
	if err != nil {
		return err
	}
	resp, err := req.
		SetQueryParam("id", "eq."+id).
		SetBody(map[string]string{"status": status}).
		Patch("/documentation_sessions")
	return httpclient.Classify("update session status", resp, err)
}

// UpsertUserConfig writes the preferences for a session, replacing any
// earlier row for it.
func (c *Client) UpsertUserConfig(ctx context.Context, uc UserConfig) error {
	if uc.Topics == nil {
		uc.Topics = []string{}
	}
	if uc.Images == nil {
		uc.Images = []string{}
	}
	req, err := c.HTTP.Request(ctx)
	if err != nil {
		return err
	}
	resp, err := req.
		SetHeader("Prefer", "resolution=merge-duplicates").
		SetQueryParam("on_conflict", "session_id").
		SetBody(uc).
		Post("/user_configs")
	return httpclient.Classify("upsert user config", resp, err)
}
