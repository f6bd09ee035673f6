package testutil

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var signingKey = []byte("ledgersync-test-signing-key")

// MintAccessToken returns a signed JWT access token issued at iat that expires after ttl.
func MintAccessToken(t *testing.T, subject string, iat time.Time, ttl time.Duration) string {
	t.Helper()

	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(iat),
		ExpiresAt: jwt.NewNumericDate(iat.Add(ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(signingKey)
	if err != nil {
		t.Fatalf("failed to sign access token: %v", err)
	}
	return signed
}
