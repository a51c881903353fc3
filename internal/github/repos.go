// Package github lists the signed-in user's repositories.
package github

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/docugithub/docugithub/internal/config"
	"github.com/docugithub/docugithub/internal/failure"
	"github.com/docugithub/docugithub/internal/httpclient"
)

// RecentLimit is how many repositories the picker shows.
const RecentLimit = 10

// Repository is the subset of the REST repository object the picker uses.
type Repository struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	FullName    string    `json:"full_name"`
	Private     bool      `json:"private"`
	HTMLURL     string    `json:"html_url"`
	Description string    `json:"description"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Client calls the REST API, rate limited on the client side.
type Client struct {
	HTTP   *httpclient.Client
	Logger *zap.Logger
}

func New(cfg config.GitHubConfig, timeout time.Duration, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	hc := httpclient.New(httpclient.Options{
		BaseURL:           cfg.APIURL,
		Timeout:           timeout,
		RequestsPerSecond: cfg.RequestsPerSecond,
	})
	hc.Resty.
		SetHeader("Accept", "application/vnd.github+json").
		SetHeader("X-GitHub-Api-Version", "2022-11-28")
	return &Client{HTTP: hc, Logger: logger}
}

// RecentRepositories returns the user's most recently updated repositories.
func (c *Client) RecentRepositories(ctx context.Context, token string) ([]Repository, error) {
	if token == "" {
		return nil, failure.New(failure.ValidationFailure, "Sign in first: no access token.")
	}
	req, err := c.HTTP.Request(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := req.
		SetAuthToken(token).
		SetQueryParams(map[string]string{"sort": "updated", "per_page": "10"}).
		Get("/user/repos")
	if cerr := httpclient.Classify("list repositories", resp, err); cerr != nil {
		return nil, cerr
	}

	var repos []Repository
	if err := json.Unmarshal(resp.Body(), &repos); err != nil {
		return nil, &failure.Error{Kind: failure.BackendFailure, Status: resp.StatusCode(), Message: "list repositories: malformed response", Err: err}
	}
	if len(repos) > RecentLimit {
		repos = repos[:RecentLimit]
	}
	c.Logger.Debug("listed repositories", zap.Int("count", len(repos)))
	return repos, nil
}
