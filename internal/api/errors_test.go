package api

import (
	"net/http"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "github.com/kuberan/ledgersync/internal/errors"
)

func TestParseErrorBody(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantCode   string
		wantServer string
		wantMsg    string
	}{
		{"invalid access token", 401, `{"error":{"code":"F0101","type":"auth","subtype":"token","message":"expired"}}`, apperrors.APIInvalidAccessToken, "F0101", "expired"},
		{"bad credentials", 401, `{"error":{"code":"F0111","message":"nope"}}`, apperrors.APIInvalidUsernamePassword, "F0111", "nope"},
		{"locked", 401, `{"error":{"code":"F0114"}}`, apperrors.APIAccountLocked, "F0114", apperrors.APIAccountLocked},
		{"other authorisation", 401, `{"error":{"code":"F0199","message":"x"}}`, apperrors.APIOtherAuthorisation, "F0199", "x"},
		{"must be different", 400, `{"error":{"code":"F0005","message":"same"}}`, apperrors.APIPasswordMustBeDifferent, "F0005", "same"},
		{"bad request", 400, `{"error":{"code":"F0001","message":"bad"}}`, apperrors.APIBadRequest, "F0001", "bad"},
		{"conflict", 409, `{"error":{"code":"F0003","message":"exists"}}`, apperrors.APIAlreadyExists, "F0003", "exists"},
		{"gone", 410, `{"error":{"code":"F0004"}}`, apperrors.APIDeprecated, "F0004", apperrors.APIDeprecated},
		{"rate limited", 429, `{"error":{"code":"F0006"}}`, apperrors.APIRateLimit, "F0006", apperrors.APIRateLimit},
		{"oauth invalid grant", 400, `{"error":"invalid_grant","error_description":"revoked"}`, apperrors.APIInvalidRefreshToken, "invalid_grant", "revoked"},
		{"oauth other", 401, `{"error":"invalid_client"}`, apperrors.APIUnauthorised, "invalid_client", "invalid_client"},
		{"maintenance html", 503, `<html>down</html>`, apperrors.APIMaintenance, "", "503 Service Unavailable"},
		{"server error empty", 502, ``, apperrors.APIServerError, "", "502 Bad Gateway"},
		{"not implemented", 501, `{}`, apperrors.APINotImplemented, "", "501 Not Implemented"},
		{"teapot", 418, `{}`, apperrors.APIUnknown, "", "418 I'm a teapot"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			statusLine := strconv.Itoa(tt.status) + " " + http.StatusText(tt.status)
			err := parseErrorBody(tt.status, statusLine, []byte(tt.body))

			assert.Equal(t, apperrors.KindAPI, err.Kind)
			assert.Equal(t, tt.wantCode, err.Code)
			assert.Equal(t, tt.wantServer, err.ServerCode)
			assert.Equal(t, tt.wantMsg, err.Message)
			assert.Equal(t, tt.status, err.StatusCode)
		})
	}
}

func TestWantsRefresh(t *testing.T) {
	assert.True(t, wantsRefresh([]byte(`{"error":{"code":"F0101"}}`)))
	assert.True(t, wantsRefresh([]byte(`unauthorized`)))
	assert.True(t, wantsRefresh(nil))
	assert.False(t, wantsRefresh([]byte(`{"error":{"code":"F0111"}}`)))
	assert.False(t, wantsRefresh([]byte(`{"error":{"code":"F0112"}}`)))
}

