// Package backend talks to the workflow-automation backend: one signed POST
// per workflow step.
package backend

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/docugithub/docugithub/internal/config"
	"github.com/docugithub/docugithub/internal/failure"
	"github.com/docugithub/docugithub/internal/httpclient"
	"github.com/docugithub/docugithub/internal/signing"
)

// Response is a decoded backend reply. The backend always answers with a
// JSON object; fields the client does not know about are kept in Fields.
type Response struct {
	Status int
	Raw    json.RawMessage
	Fields map[string]json.RawMessage
}

// Decode unmarshals the whole reply into v.
func (r *Response) Decode(v any) error {
	return json.Unmarshal(r.Raw, v)
}

// Client posts signed requests to {base}/{endpoint}.
type Client struct {
	Builder signing.Builder
	HTTP    *httpclient.Client
	Logger  *zap.Logger
}

// New returns a Client for the configured webhook base.
func New(cfg config.WebhookConfig, timeout time.Duration, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		Builder: signing.Builder{BaseURL: cfg.BaseURL, Secret: cfg.Secret},
		HTTP:    httpclient.New(httpclient.Options{Timeout: timeout}),
		Logger:  logger,
	}
}

// Ready reports ConfigurationMissing when no webhook base is set.
func (c *Client) Ready() error {
	if strings.TrimSpace(c.Builder.BaseURL) == "" {
		return failure.New(failure.ConfigurationMissing, "N8N_WEBHOOK_BASE is not configured")
	}
	return nil
}

// Post builds, signs and sends one request. Configuration and validation
// failures are returned before anything is sent.
func (c *Client) Post(ctx context.Context, endpoint string, payload any, bearerToken string) (*Response, error) {
	sr, err := c.Builder.Build(endpoint, payload, bearerToken)
	if err != nil {
		return nil, err
	}

	req, err := c.HTTP.Request(ctx)
	if err != nil {
		return nil, err
	}
	for k, vs := range sr.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	start := time.Now()
	resp, err := req.SetBody(sr.Body).Post(sr.URL)
	fields := []zap.Field{
		zap.String("endpoint", endpoint),
		zap.Bool("signed", sr.Signed()),
		zap.Bool("authorized", bearerToken != ""),
		zap.Duration("elapsed", time.Since(start)),
	}
	if cerr := httpclient.Classify("POST "+endpoint, resp, err); cerr != nil {
		c.Logger.Warn("webhook request failed", append(fields, zap.Error(cerr))...)
		return nil, cerr
	}
	c.Logger.Debug("webhook request", append(fields, zap.Int("status", resp.StatusCode()))...)

	out := &Response{Status: resp.StatusCode(), Raw: json.RawMessage(resp.Body())}
	if err := json.Unmarshal(out.Raw, &out.Fields); err != nil || out.Fields == nil {
		return nil, &failure.Error{
			Kind:    failure.BackendFailure,
			Status:  out.Status,
			Message: endpoint + ": response is not a JSON object",
			Err:     err,
		}
	}
	return out, nil
}

// Initialize registers a new session for a repository.
func (c *Client) Initialize(ctx context.Context, in InitializeRequest, token string) error {
	_, err := c.Post(ctx, "initialize", in, token)
	return err
}

// Analyze asks the backend to analyze the repository and returns its
// analysis verbatim.
func (c *Client) Analyze(ctx context.Context, in AnalyzeRequest, token string) (json.RawMessage, error) {
	resp, err := c.Post(ctx, "analyze", in, token)
	if err != nil {
		return nil, err
	}
	return resp.Raw, nil
}

// Preferences sends the documentation preferences.
func (c *Client) Preferences(ctx context.Context, in PreferencesRequest, token string) error {
	_, err := c.Post(ctx, "preferences", in, token)
	return err
}

// Generate requests the README. A reply without a non-empty markdown string
// is a backend failure.
func (c *Client) Generate(ctx context.Context, in GenerateRequest, token string) (*GenerateResponse, error) {
	resp, err := c.Post(ctx, "generate", in, token)
	if err != nil {
		return nil, err
	}
	var out GenerateResponse
	if err := resp.Decode(&out); err != nil || out.Markdown == "" {
		return nil, &failure.Error{Kind: failure.BackendFailure, Status: resp.Status, Message: "generate: response has no markdown", Err: err}
	}
	return &out, nil
}

// Chat requests a revision. success:false or a missing revised_readme is a
// backend failure.
func (c *Client) Chat(ctx context.Context, in ChatRequest, token string) (*ChatResponse, error) {
	resp, err := c.Post(ctx, "chat", in, token)
	if err != nil {
		return nil, err
	}
	var out ChatResponse
	if err := resp.Decode(&out); err != nil {
		return nil, &failure.Error{Kind: failure.BackendFailure, Status: resp.Status, Message: "chat: malformed response", Err: err}
	}
	if out.Success != nil && !*out.Success {
		return nil, &failure.Error{Kind: failure.BackendFailure, Status: resp.Status, Message: "chat: backend reported failure"}
	}
	if out.RevisedReadme == "" {
		return nil, &failure.Error{Kind: failure.BackendFailure, Status: resp.Status, Message: "chat: response has no revised_readme"}
	}
	return &out, nil
}

// Push commits the README to the repository. success:false is a backend
// failure.
func (c *Client) Push(ctx context.Context, in PushRequest, token string) (*PushResponse, error) {
	resp, err := c.Post(ctx, "push", in, token)
	if err != nil {
		return nil, err
	}
	var out PushResponse
	if err := resp.Decode(&out); err != nil {
		return nil, &failure.Error{Kind: failure.BackendFailure, Status: resp.Status, Message: "push: malformed response", Err: err}
	}
	if out.Success != nil && !*out.Success {
		msg := "push: backend reported failure"
		if out.Error != "" {
			msg += ": " + out.Error
		}
		return nil, &failure.Error{Kind: failure.BackendFailure, Status: resp.Status, Message: msg}
	}
	return &out, nil
}
