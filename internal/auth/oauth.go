package auth

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/kuberan/ledgersync/internal/api"
	apperrors "github.com/kuberan/ledgersync/internal/errors"
)

// OAuthClient exchanges grants at the token endpoint.
type OAuthClient struct {
	tokenURL   string
	clientID   string
	httpClient *http.Client
}

// NewOAuthClient creates a token endpoint client. httpClient should not carry
// the authenticating transport.
func NewOAuthClient(tokenURL, clientID string, httpClient *http.Client) *OAuthClient {
	return &OAuthClient{tokenURL: tokenURL, clientID: clientID, httpClient: httpClient}
}

// PasswordGrant exchanges user credentials for tokens.
func (c *OAuthClient) PasswordGrant(ctx context.Context, username, password string) (TokenResponse, error) {
	return c.exchange(ctx, map[string]string{
		"grant_type": "password",
		"username":   username,
		"password":   password,
	})
}

// RefreshGrant exchanges a refresh token for a new access token.
func (c *OAuthClient) RefreshGrant(ctx context.Context, refreshToken string) (TokenResponse, error) {
	return c.exchange(ctx, map[string]string{
		"grant_type":    "refresh_token",
		"refresh_token": refreshToken,
	})
}

func (c *OAuthClient) exchange(ctx context.Context, body map[string]string) (TokenResponse, error) {
	body["client_id"] = c.clientID
	payload, err := json.Marshal(body)
	if err != nil {
		return TokenResponse{}, fmt.Errorf("marshaling token request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, bytes.NewReader(payload))
	if err != nil {
		return TokenResponse{}, fmt.Errorf("creating token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return TokenResponse{}, apperrors.Wrap(apperrors.ErrNetwork, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return TokenResponse{}, api.ParseError(resp)
	}

	var out TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return TokenResponse{}, fmt.Errorf("decoding token response: %w", err)
	}
	if out.AccessToken == "" {
		return TokenResponse{}, fmt.Errorf("token response carried no access token")
	}
	return out, nil
}

// IsInvalidGrant reports whether err means the refresh token was rejected for good.
func IsInvalidGrant(err error) bool {
	var appErr *apperrors.AppError
	if !stderrors.As(err, &appErr) {
		return false
	}
	switch appErr.Kind {
	case apperrors.KindAuth:
		return appErr.Code == apperrors.ErrInvalidGrant.Code
	case apperrors.KindAPI:
		return appErr.ServerCode == api.OAuthInvalidGrant || appErr.Code == apperrors.APIInvalidRefreshToken
	}
	return false
}
