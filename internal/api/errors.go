package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	apperrors "github.com/kuberan/ledgersync/internal/errors"
)

// Host error codes with a dedicated API error type.
const (
	CodeMustBeDifferent       = "F0005"
	CodeInvalidAccessToken    = "F0101"
	CodeInvalidRefreshToken   = "F0110"
	CodeInvalidUsernamePasswd = "F0111"
	CodeSuspendedUser         = "F0112"
	CodeSuspendedDevice       = "F0113"
	CodeAccountLocked         = "F0114"
)

// OAuthInvalidGrant is the token endpoint error for a rejected grant.
const OAuthInvalidGrant = "invalid_grant"

const maxErrorBody = 1 << 20

type errorDetail struct {
	Code    string `json:"code"`
	Type    string `json:"type"`
	Subtype string `json:"subtype"`
	Message string `json:"message"`
}

// ParseError reads a non-2xx response body and maps it to an API error. The body
// is consumed but not closed. The host format is
// {"error":{"code","type","subtype","message"}}; token endpoint errors use the
// OAuth form {"error":"invalid_grant","error_description":"..."}. Anything else
// falls back to the status line.
func ParseError(resp *http.Response) *apperrors.AppError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return parseErrorBody(resp.StatusCode, resp.Status, body)
}

func parseErrorBody(status int, statusLine string, body []byte) *apperrors.AppError {
	var envelope struct {
		Error            json.RawMessage `json:"error"`
		ErrorDescription string          `json:"error_description"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && len(envelope.Error) > 0 {
		var detail errorDetail
		if err := json.Unmarshal(envelope.Error, &detail); err == nil {
			return apperrors.NewAPIError(status, apiType(status, detail.Code), detail.Code, detail.Type, detail.Subtype, detail.Message)
		}
		var oauthCode string
		if err := json.Unmarshal(envelope.Error, &oauthCode); err == nil {
			typ := apiType(status, "")
			if oauthCode == OAuthInvalidGrant {
				typ = apperrors.APIInvalidRefreshToken
			}
			msg := envelope.ErrorDescription
			if msg == "" {
				msg = oauthCode
			}
			return apperrors.NewAPIError(status, typ, oauthCode, "oauth", "", msg)
		}
	}
	return apperrors.NewAPIError(status, apiType(status, ""), "", "", "", strings.TrimSpace(statusLine))
}

// apiType maps an HTTP status and host error code to an API error type.
func apiType(status int, code string) string {
	switch status {
	case http.StatusBadRequest:
		if code == CodeMustBeDifferent {
			return apperrors.APIPasswordMustBeDifferent
		}
		return apperrors.APIBadRequest
	case http.StatusUnauthorized:
		switch code {
		case CodeInvalidAccessToken:
			return apperrors.APIInvalidAccessToken
		case CodeInvalidRefreshToken:
			return apperrors.APIInvalidRefreshToken
		case CodeInvalidUsernamePasswd:
			return apperrors.APIInvalidUsernamePassword
		case CodeSuspendedUser:
			return apperrors.APISuspendedUser
		case CodeSuspendedDevice:
			return apperrors.APISuspendedDevice
		case CodeAccountLocked:
			return apperrors.APIAccountLocked
		case "":
			return apperrors.APIUnauthorised
		default:
			return apperrors.APIOtherAuthorisation
		}
	case http.StatusForbidden:
		return apperrors.APIUnauthorised
	case http.StatusNotFound:
		return apperrors.APINotFound
	case http.StatusConflict:
		return apperrors.APIAlreadyExists
	case http.StatusGone:
		return apperrors.APIDeprecated
	case http.StatusTooManyRequests:
		return apperrors.APIRateLimit
	case http.StatusNotImplemented:
		return apperrors.APINotImplemented
	case http.StatusServiceUnavailable:
		return apperrors.APIMaintenance
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusGatewayTimeout:
		return apperrors.APIServerError
	default:
		return apperrors.APIUnknown
	}
}

// wantsRefresh reports whether a 401 body means the access token should be
// refreshed: an invalid access token, or a body that cannot be parsed.
func wantsRefresh(body []byte) bool {
	if len(bytes.TrimSpace(body)) == 0 {
		return true
	}
	err := parseErrorBody(http.StatusUnauthorized, "", body)
	return err.ServerCode == "" || err.Code == apperrors.APIInvalidAccessToken
}
