// Package identity signs the user in with the identity provider's OAuth
// device-authorization flow and reads the claims of the resulting token.
package identity

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

const deviceGrant = "urn:ietf:params:oauth:grant-type:device_code"

// DeviceCode is the provider's answer to a device-authorization request.
type DeviceCode struct {
	DeviceCode              string `json:"device_code"`
	UserCode                string `json:"user_code"`
	VerificationURI         string `json:"verification_uri"`
	VerificationURIComplete string `json:"verification_uri_complete"`
	ExpiresIn               int    `json:"expires_in"`
	Interval                int    `json:"interval"`
}

// Token is a granted token set.
type Token struct {
	AccessToken  string `json:"access_token"`
	IDToken      string `json:"id_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
	Scope        string `json:"scope,omitempty"`
	ExpiresIn    int    `json:"expires_in"`
}

type oauthError struct {
	Error       string `json:"error"`
	Description string `json:"error_description"`
}

// Client runs the device flow against https://{domain}.
type Client struct {
	HTTP   *httpclient.Client
	Config config.IdentityConfig
	Logger *zap.Logger

	// PollInterval overrides the interval the provider asks for.
	PollInterval time.Duration
	// SlowDownStep is added to the interval on each slow_down reply.
	SlowDownStep time.Duration
}

// New returns a Client, or ConfigurationMissing when no provider is set.
func New(cfg config.IdentityConfig, timeout time.Duration, logger *zap.Logger) (*Client, error) {
	if !cfg.Configured() {
		return nil, failure.New(failure.ConfigurationMissing, "AUTH0_DOMAIN and AUTH0_CLIENT_ID are not configured")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		HTTP:         httpclient.New(httpclient.Options{BaseURL: baseURL(cfg.Domain), Timeout: timeout}),
		Config:       cfg,
		Logger:       logger,
		SlowDownStep: 5 * time.Second,
	}, nil
}

func baseURL(domain string) string {
	domain = strings.TrimRight(domain, "/")
	if strings.HasPrefix(domain, "http://") || strings.HasPrefix(domain, "https://") {
		return domain
	}
	return "https://" + domain
}

// RequestDeviceCode starts the flow.
func (c *Client) RequestDeviceCode(ctx context.Context) (*DeviceCode, error) {
	req, err := c.HTTP.Request(ctx)
	if err != nil {
		return nil, err
	}
	form := map[string]string{
		"client_id": c.Config.ClientID,
		"scope":     c.Config.Scope,
	}
	if c.Config.Audience != "" {
		form["audience"] = c.Config.Audience
	}
	resp, err := req.SetFormData(form).Post("/oauth/device/code")
	if cerr := httpclient.Classify("device code", resp, err); cerr != nil {
		return nil, cerr
	}
	var dc DeviceCode
	if err := json.Unmarshal(resp.Body(), &dc); err != nil || dc.DeviceCode == "" {
		return nil, &failure.Error{Kind: failure.BackendFailure, Status: resp.StatusCode(), Message: "device code: malformed response", Err: err}
	}
	return &dc, nil
}

// PollToken polls until the user approves, denies or lets the code expire.
func (c *Client) PollToken(ctx context.Context, dc *DeviceCode) (*Token, error) {
	interval := c.PollInterval
	if interval <= 0 {
		interval = time.Duration(dc.Interval) * time.Second
	}
	if interval <= 0 {
		interval = 5 * time.Second
	}
	var deadline time.Time
	if dc.ExpiresIn > 0 {
		deadline = time.Now().Add(time.Duration(dc.ExpiresIn) * time.Second)
	}

	for {
		if !deadline.IsZero() && time.Now().After(deadline) {
			return nil, failure.New(failure.ValidationFailure, "The login code expired. Start the login again.")
		}

		tok, oerr, err := c.exchange(ctx, dc.DeviceCode)
		if err != nil {
			return nil, err
		}
		if tok != nil {
			c.Logger.Info("device login approved", zap.String("token_type", tok.TokenType))
			return tok, nil
		}

		switch oerr.Error {
		case "authorization_pending":
		case "slow_down":
			interval += c.SlowDownStep
		case "expired_token":
			return nil, failure.New(failure.ValidationFailure, "The login code expired. Start the login again.")
		case "access_denied":
			return nil, failure.New(failure.ValidationFailure, "Login was denied.")
		default:
			return nil, failure.Newf(failure.BackendFailure, "token: %s %s", oerr.Error, oerr.Description)
		}

		t := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, failure.Wrap(failure.NetworkFailure, "login interrupted", ctx.Err())
		case <-t.C:
		}
	}
}

// exchange makes one token request. It returns either a token or the
// OAuth error the provider answered with.
func (c *Client) exchange(ctx context.Context, deviceCode string) (*Token, *oauthError, error) {
	req, err := c.HTTP.Request(ctx)
	if err != nil {
		return nil, nil, err
	}
	resp, err := req.SetFormData(map[string]string{
		"grant_type":  deviceGrant,
		"device_code": deviceCode,
		"client_id":   c.Config.ClientID,
	}).Post("/oauth/token")
	if err != nil {
		return nil, nil, failure.Wrap(failure.NetworkFailure, "token", err)
	}
	if resp.IsError() {
		var oe oauthError
		if json.Unmarshal(resp.Body(), &oe) == nil && oe.Error != "" {
			return nil, &oe, nil
		}
		return nil, nil, httpclient.Classify("token", resp, nil)
	}
	var tok Token
	if err := json.Unmarshal(resp.Body(), &tok); err != nil || tok.AccessToken == "" {
		return nil, nil, &failure.Error{Kind: failure.BackendFailure, Status: resp.StatusCode(), Message: "token: malformed response", Err: err}
	}
	return &tok, nil, nil
}

// Login runs the whole flow. prompt is called once with the code the user
// has to enter.
func (c *Client) Login(ctx context.Context, prompt func(*DeviceCode)) (*Token, error) {
	dc, err := c.RequestDeviceCode(ctx)
	if err != nil {
		return nil, err
	}
	if prompt != nil {
		prompt(dc)
	}
	return c.PollToken(ctx, dc)
}
