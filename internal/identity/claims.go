package identity

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrOpaqueToken is returned by Inspect for tokens that are not JWTs.
var ErrOpaqueToken = errors.New("token is not a JWT")

// TokenInfo is what the UI shows about a token. The signature is not
// checked; the backend is the one that trusts or rejects the token.
type TokenInfo struct {
	Subject   string
	Issuer    string
	Scope     string
	ExpiresAt time.Time
}

// Expired reports whether the token has an expiry before now.
func (i *TokenInfo) Expired(now time.Time) bool {
	return !i.ExpiresAt.IsZero() && now.After(i.ExpiresAt)
}

// Inspect reads the unverified claims of a JWT access token.
func Inspect(token string) (*TokenInfo, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, ErrOpaqueToken
	}
	info := &TokenInfo{}
	info.Subject, _ = claims.GetSubject()
	info.Issuer, _ = claims.GetIssuer()
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		info.ExpiresAt = exp.Time
	}
	if s, ok := claims["scope"].(string); ok {
		info.Scope = s
	}
	return info, nil
}
