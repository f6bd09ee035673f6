// Package errors provides the typed error taxonomy shared by every ledgersync package.
// Errors crossing a package boundary should be *AppError so callers can branch on
// Kind and Code without parsing messages.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Kind groups error codes by where the failure was detected.
type Kind string

const (
	KindAuth    Kind = "auth"
	KindAPI     Kind = "api"
	KindData    Kind = "data"
	KindCrypto  Kind = "crypto"
	KindNetwork Kind = "network"
)

// AppError represents a structured ledgersync error. For API errors ServerCode,
// Type and Subtype carry the machine-readable triad reported by the host.
type AppError struct {
	Kind       Kind   `json:"kind"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"status_code,omitempty"`
	ServerCode string `json:"server_code,omitempty"`
	Type       string `json:"type,omitempty"`
	Subtype    string `json:"subtype,omitempty"`
	Internal   error  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Internal)
	}
	return e.Message
}

// Unwrap returns the internal error for use with errors.Is/As.
func (e *AppError) Unwrap() error { return e.Internal }

// Is reports whether target is an *AppError with the same kind and code.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Code == t.Code
}

// Wrap creates a new AppError with the same kind/code/message but wraps an internal error.
func Wrap(sentinel *AppError, internal error) *AppError {
	e := *sentinel
	e.Internal = internal
	return &e
}

// WithMessage creates a new AppError with a custom message.
func WithMessage(sentinel *AppError, message string) *AppError {
	e := *sentinel
	e.Message = message
	return &e
}

// Authentication errors raised by the token lifecycle.
var (
	ErrMissingAccessToken  = &AppError{Kind: KindAuth, Code: "MISSING_ACCESS_TOKEN", Message: "No access token available"}
	ErrMissingRefreshToken = &AppError{Kind: KindAuth, Code: "MISSING_REFRESH_TOKEN", Message: "No refresh token available"}
	ErrInvalidGrant        = &AppError{Kind: KindAuth, Code: "INVALID_GRANT", Message: "Refresh token was rejected by the authorization server", StatusCode: http.StatusUnauthorized}
	ErrNetworkOrServer     = &AppError{Kind: KindAuth, Code: "NETWORK_OR_SERVER", Message: "Token exchange failed"}
)

// Local precondition errors, detected before any request is sent.
var (
	ErrDataMissingAccessToken  = &AppError{Kind: KindData, Code: "MISSING_ACCESS_TOKEN", Message: "Not logged in"}
	ErrDataMissingRefreshToken = &AppError{Kind: KindData, Code: "MISSING_REFRESH_TOKEN", Message: "Not logged in"}
	ErrInvalidInput            = &AppError{Kind: KindData, Code: "INVALID_INPUT", Message: "Invalid input"}
	ErrPasswordTooShort        = &AppError{Kind: KindData, Code: "PASSWORD_TOO_SHORT", Message: "Password must be at least 8 characters"}
	ErrAlreadyLoggedIn         = &AppError{Kind: KindData, Code: "ALREADY_LOGGED_IN", Message: "A user is already logged in"}
	ErrLoggedOut               = &AppError{Kind: KindData, Code: "LOGGED_OUT", Message: "Operation requires a logged in user"}
	ErrNotFound                = &AppError{Kind: KindData, Code: "NOT_FOUND", Message: "Record not found in cache"}
	ErrDatabase                = &AppError{Kind: KindData, Code: "DATABASE", Message: "Local store operation failed"}
)

// Crypto and transport errors.
var (
	ErrCrypto  = &AppError{Kind: KindCrypto, Code: "CRYPTO_FAILURE", Message: "Keystore operation failed"}
	ErrNetwork = &AppError{Kind: KindNetwork, Code: "NETWORK_FAILURE", Message: "Network request failed"}
)

// API error types mapped from the host's status and error code.
const (
	APIDeprecated              = "DEPRECATED"
	APIMaintenance             = "MAINTENANCE"
	APINotImplemented          = "NOT_IMPLEMENTED"
	APIRateLimit               = "RATE_LIMIT"
	APIServerError             = "SERVER_ERROR"
	APIBadRequest              = "BAD_REQUEST"
	APIUnauthorised            = "UNAUTHORISED"
	APINotFound                = "NOT_FOUND"
	APIAlreadyExists           = "ALREADY_EXISTS"
	APIPasswordMustBeDifferent = "PASSWORD_MUST_BE_DIFFERENT"
	APIInvalidAccessToken      = "INVALID_ACCESS_TOKEN"
	APIInvalidRefreshToken     = "INVALID_REFRESH_TOKEN"
	APIInvalidUsernamePassword = "INVALID_USERNAME_PASSWORD"
	APISuspendedDevice         = "SUSPENDED_DEVICE"
	APISuspendedUser           = "SUSPENDED_USER"
	APIAccountLocked           = "ACCOUNT_LOCKED"
	APIOtherAuthorisation      = "OTHER_AUTHORISATION"
	APIUnknown                 = "UNKNOWN"
)

// NewAPIError builds an API error. An empty message falls back to the API type.
func NewAPIError(statusCode int, apiType, serverCode, typ, subtype, message string) *AppError {
	if message == "" {
		message = apiType
	}
	return &AppError{
		Kind:       KindAPI,
		Code:       apiType,
		Message:    message,
		StatusCode: statusCode,
		ServerCode: serverCode,
		Type:       typ,
		Subtype:    subtype,
	}
}

// APIErrorOf returns a sentinel usable with errors.Is for the given API type.
func APIErrorOf(apiType string) *AppError {
	return &AppError{Kind: KindAPI, Code: apiType, Message: apiType}
}

// KindOf returns the kind of err, or an empty Kind if err carries no *AppError.
func KindOf(err error) Kind {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}

// HTTPStatus maps err to the status the daemon's HTTP surface answers with.
func HTTPStatus(err error) int {
	var appErr *AppError
	if !stderrors.As(err, &appErr) {
		return http.StatusInternalServerError
	}
	switch appErr.Kind {
	case KindData:
		switch appErr.Code {
		case ErrLoggedOut.Code, ErrAlreadyLoggedIn.Code:
			return http.StatusConflict
		case ErrNotFound.Code:
			return http.StatusNotFound
		case ErrDatabase.Code:
			return http.StatusInternalServerError
		case ErrDataMissingAccessToken.Code, ErrDataMissingRefreshToken.Code:
			return http.StatusUnauthorized
		}
		return http.StatusBadRequest
	case KindAuth:
		return http.StatusUnauthorized
	case KindAPI, KindNetwork:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
