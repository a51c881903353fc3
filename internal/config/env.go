package config

import (
	"fmt"
	"net"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Env holds the settings read from the environment.
type Env struct {
	Webhook     WebhookConfig
	Identity    IdentityConfig
	Persistence PersistenceConfig
	GitHub      GitHubConfig
	Server      ServerConfig
	Logging     LogConfig
	Workflow    WorkflowConfig
}

// WebhookConfig points at the workflow backend. BaseURL is required by every
// step; an empty Secret sends requests unsigned.
type WebhookConfig struct {
	BaseURL string `envconfig:"N8N_WEBHOOK_BASE"`
	Secret  string `envconfig:"WEBHOOK_SECRET"`
}

type IdentityConfig struct {
	Domain   string `envconfig:"AUTH0_DOMAIN"`
	ClientID string `envconfig:"AUTH0_CLIENT_ID"`
	Audience string `envconfig:"AUTH0_AUDIENCE" default:"https://api.github.com/"`
	Scope    string `envconfig:"AUTH0_SCOPE" default:"openid profile email read:user repo"`
}

// Configured reports whether the device flow can run.
func (c IdentityConfig) Configured() bool {
	return c.Domain != "" && c.ClientID != ""
}

type PersistenceConfig struct {
	URL string `envconfig:"SUPABASE_URL"`
	Key string `envconfig:"SUPABASE_ANON_KEY"`
}

// Configured reports whether sessions are recorded remotely.
func (c PersistenceConfig) Configured() bool {
	return c.URL != "" && c.Key != ""
}

type GitHubConfig struct {
	APIURL            string  `envconfig:"GITHUB_API_URL" default:"https://api.github.com"`
	RequestsPerSecond float64 `envconfig:"GITHUB_RPS" default:"5"`
}

type ServerConfig struct {
	Host string `envconfig:"HOST" default:"127.0.0.1"`
	Port string `envconfig:"PORT" default:"5173"`
}

// Addr is the listen address for serve.
func (c ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

type WorkflowConfig struct {
	HTTPTimeout   time.Duration `envconfig:"HTTP_TIMEOUT" default:"60s"`
	FallbackDelay time.Duration `envconfig:"FALLBACK_DELAY" default:"3s"`
}

// LoadEnv reads the environment.
func LoadEnv() (*Env, error) {
	var env Env
	if err := envconfig.Process("", &env); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}
	return &env, nil
}

// DefaultEnv returns the environment defaults with nothing configured.
func DefaultEnv() Env {
	return Env{
		Identity: IdentityConfig{Audience: "https://api.github.com/", Scope: "openid profile email read:user repo"},
		GitHub:   GitHubConfig{APIURL: "https://api.github.com", RequestsPerSecond: 5},
		Server:   ServerConfig{Host: "127.0.0.1", Port: "5173"},
		Logging:  LogConfig{Level: "info"},
		Workflow: WorkflowConfig{HTTPTimeout: 60 * time.Second, FallbackDelay: 3 * time.Second},
	}
}

// Missing lists required or recommended variables that are unset, keyed by
// variable name with a note on what their absence disables.
func (e Env) Missing() map[string]string {
	m := map[string]string{}
	if e.Webhook.BaseURL == "" {
		m["N8N_WEBHOOK_BASE"] = "required: every workflow step fails"
	}
	if e.Webhook.Secret == "" {
		m["WEBHOOK_SECRET"] = "requests are sent unsigned"
	}
	if !e.Identity.Configured() {
		m["AUTH0_DOMAIN/AUTH0_CLIENT_ID"] = "device login disabled; pass a token instead"
	}
	if !e.Persistence.Configured() {
		m["SUPABASE_URL/SUPABASE_ANON_KEY"] = "sessions get local ids and are not recorded"
	}
	return m
}
