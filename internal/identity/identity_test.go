package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docugithub/docugithub/internal/config"
	"github.com/docugithub/docugithub/internal/failure"
)

// provider answers the device code request and then replies to token polls
// with the given sequence of OAuth errors before granting a token. An entry
// of "" grants.
func provider(t *testing.T, polls []string) (*Client, *atomic.Int32) {
	t.Helper()
	var n atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/device/code", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "cid", r.PostForm.Get("client_id"))
		assert.Equal(t, "openid repo", r.PostForm.Get("scope"))
		assert.Equal(t, "https://api.github.com/", r.PostForm.Get("audience"))
		json.NewEncoder(w).Encode(DeviceCode{
			DeviceCode: "dev-1", UserCode: "ABCD-EFGH",
			VerificationURI: "https://tenant.example.com/activate", ExpiresIn: 600,
		})
	})
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, deviceGrant, r.PostForm.Get("grant_type"))
		assert.Equal(t, "dev-1", r.PostForm.Get("device_code"))
		i := int(n.Add(1)) - 1
		if i < len(polls) && polls[i] != "" {
			w.WriteHeader(http.StatusForbidden)
			json.NewEncoder(w).Encode(map[string]string{"error": polls[i]})
			return
		}
		json.NewEncoder(w).Encode(Token{AccessToken: "at-1", TokenType: "Bearer", ExpiresIn: 3600})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	c, err := New(config.IdentityConfig{
		Domain: srv.URL, ClientID: "cid", Audience: "https://api.github.com/", Scope: "openid repo",
	}, time.Second, nil)
	require.NoError(t, err)
	c.PollInterval = time.Millisecond
	c.SlowDownStep = time.Millisecond
	return c, &n
}

func TestNew_NotConfigured(t *testing.T) {
	_, err := New(config.IdentityConfig{Domain: "tenant.auth0.com"}, time.Second, nil)
	assert.True(t, failure.Is(err, failure.ConfigurationMissing))
}

func TestBaseURL(t *testing.T) {
	assert.Equal(t, "https://tenant.auth0.com", baseURL("tenant.auth0.com/"))
	assert.Equal(t, "http://127.0.0.1:9", baseURL("http://127.0.0.1:9"))
}

func TestLogin_PendingThenGranted(t *testing.T) {
	c, polls := provider(t, []string{"authorization_pending", "slow_down", "authorization_pending"})

	var shown *DeviceCode
	tok, err := c.Login(context.Background(), func(dc *DeviceCode) { shown = dc })
	require.NoError(t, err)
	assert.Equal(t, "at-1", tok.AccessToken)
	require.NotNil(t, shown)
	assert.Equal(t, "ABCD-EFGH", shown.UserCode)
	assert.Equal(t, int32(4), polls.Load())
}

func TestLogin_Terminal(t *testing.T) {
	tests := []struct {
		reply string
		kind  failure.Kind
	}{
		{"access_denied", failure.ValidationFailure},
		{"expired_token", failure.ValidationFailure},
		{"invalid_grant", failure.BackendFailure},
	}
	for _, tt := range tests {
		t.Run(tt.reply, func(t *testing.T) {
			c, _ := provider(t, []string{tt.reply})
			_, err := c.Login(context.Background(), nil)
			assert.Equal(t, tt.kind, failure.KindOf(err))
		})
	}
}

func TestPollToken_Canceled(t *testing.T) {
	c, _ := provider(t, []string{"authorization_pending", "authorization_pending", "authorization_pending"})
	c.PollInterval = time.Hour

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := c.PollToken(ctx, &DeviceCode{DeviceCode: "dev-1"})
	assert.True(t, failure.Is(err, failure.NetworkFailure))
}

func TestInspect(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   "github|42",
		"iss":   "https://tenant.auth0.com/",
		"exp":   exp.Unix(),
		"scope": "openid repo",
	}).SignedString([]byte("not-checked"))
	require.NoError(t, err)

	info, err := Inspect(signed)
	require.NoError(t, err)
	assert.Equal(t, "github|42", info.Subject)
	assert.Equal(t, "https://tenant.auth0.com/", info.Issuer)
	assert.Equal(t, "openid repo", info.Scope)
	assert.True(t, info.ExpiresAt.Equal(exp))
	assert.False(t, info.Expired(time.Now()))
	assert.True(t, info.Expired(exp.Add(time.Minute)))
}

func TestInspect_Opaque(t *testing.T) {
	_, err := Inspect("ghp_plainpersonaltoken")
	assert.ErrorIs(t, err, ErrOpaqueToken)
}
