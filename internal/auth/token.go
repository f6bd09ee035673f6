// Package auth manages the OAuth2 token lifecycle and the user session:
// password and refresh grants, encrypted token persistence, single-flight
// refresh and authentication status.
package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token is the credential set held for the logged in user. A zero Expiry means
// the lifetime is unknown and the token is used until the host rejects it.
type Token struct {
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
}

// Expired reports whether the access token expires within leeway of now.
func (t Token) Expired(now time.Time, leeway time.Duration) bool {
	return !t.Expiry.IsZero() && !now.Before(t.Expiry.Add(-leeway))
}

// TokenResponse is the token endpoint response body.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	CreatedAt    int64  `json:"created_at"`
}

// Token converts the response, keeping previousRefresh when the response
// carries no refresh token.
func (r TokenResponse) Token(now time.Time, previousRefresh string) Token {
	refresh := r.RefreshToken
	if refresh == "" {
		refresh = previousRefresh
	}
	return Token{
		AccessToken:  r.AccessToken,
		RefreshToken: refresh,
		Expiry:       r.Expiry(now),
	}
}

// Expiry derives when the access token stops being valid. The issue time comes
// from created_at, then the token's iat claim; a token exp claim is used when
// expires_in is missing. Receipt time is the last resort.
func (r TokenResponse) Expiry(now time.Time) time.Time {
	lifetime := time.Duration(r.ExpiresIn) * time.Second

	if r.CreatedAt > 0 && r.ExpiresIn > 0 {
		return time.Unix(r.CreatedAt, 0).Add(lifetime)
	}

	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(r.AccessToken, claims); err == nil {
		if claims.IssuedAt != nil && r.ExpiresIn > 0 {
			return claims.IssuedAt.Add(lifetime)
		}
		if claims.ExpiresAt != nil {
			return claims.ExpiresAt.Time
		}
	}

	if r.ExpiresIn > 0 {
		return now.Add(lifetime)
	}
	return time.Time{}
}
