package api

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/kuberan/ledgersync/internal/errors"
	"github.com/kuberan/ledgersync/internal/logger"
)

// Authenticator supplies access tokens to AuthTransport. RefreshAccess must
// share one in-flight exchange between concurrent callers; stale is the access
// token the caller saw rejected, or "" when it held none.
type Authenticator interface {
	Credentials() (accessToken string, expiry time.Time, canRefresh bool)
	RefreshAccess(ctx context.Context, stale string) (string, error)
}

// AuthTransport decorates requests with a bearer token. It refreshes the token
// before sending when it is missing or about to expire, and replays a request
// rejected with an invalid access token once after refreshing.
type AuthTransport struct {
	next   http.RoundTripper
	auth   Authenticator
	leeway time.Duration
	public []string
	now    func() time.Time
	log    *zap.SugaredLogger
}

// AuthOption configures an AuthTransport.
type AuthOption func(*AuthTransport)

// WithPublicPaths sends requests whose URL path ends in one of paths without a
// bearer token.
func WithPublicPaths(paths ...string) AuthOption {
	return func(t *AuthTransport) {
		for _, p := range paths {
			t.public = append(t.public, "/"+strings.Trim(p, "/"))
		}
	}
}

// WithLeeway refreshes tokens that expire within d.
func WithLeeway(d time.Duration) AuthOption {
	return func(t *AuthTransport) { t.leeway = d }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) AuthOption {
	return func(t *AuthTransport) { t.now = now }
}

// NewAuthTransport wraps next.
func NewAuthTransport(next http.RoundTripper, auth Authenticator, log *zap.SugaredLogger, opts ...AuthOption) *AuthTransport {
	if log == nil {
		log = logger.Nop()
	}
	t := &AuthTransport{next: next, auth: auth, now: time.Now, log: log}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// RoundTrip implements http.RoundTripper.
func (t *AuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.isPublic(req) {
		return t.next.RoundTrip(req)
	}
	ctx := req.Context()

	token, err := t.currentToken(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := t.next.RoundTrip(withBearer(req, token, nil))
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}

	body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	_ = resp.Body.Close()
	resp.Body = io.NopCloser(bytes.NewReader(body))
	if readErr != nil || !wantsRefresh(body) {
		return resp, nil
	}

	var replayBody io.ReadCloser
	if req.Body != nil && req.Body != http.NoBody {
		if req.GetBody == nil {
			t.log.Debugw("cannot replay request without GetBody", "url", req.URL.Redacted())
			return resp, nil
		}
		if replayBody, err = req.GetBody(); err != nil {
			return resp, nil
		}
	}

	fresh, err := t.auth.RefreshAccess(ctx, token)
	if err != nil {
		t.log.Infow("token refresh after 401 failed", "url", req.URL.Redacted(), "error", err)
		if replayBody != nil {
			_ = replayBody.Close()
		}
		return resp, nil
	}

	t.log.Debugw("replaying request with refreshed token", "method", req.Method, "url", req.URL.Redacted())
	return t.next.RoundTrip(withBearer(req, fresh, replayBody))
}

// currentToken returns a usable access token, refreshing first when none is
// held or the held one expires within the leeway.
func (t *AuthTransport) currentToken(ctx context.Context) (string, error) {
	token, expiry, canRefresh := t.auth.Credentials()
	switch {
	case token == "" && !canRefresh:
		return "", apperrors.ErrDataMissingAccessToken
	case token == "":
		return t.auth.RefreshAccess(ctx, "")
	case canRefresh && !expiry.IsZero() && !t.now().Before(expiry.Add(-t.leeway)):
		return t.auth.RefreshAccess(ctx, token)
	default:
		return token, nil
	}
}

func (t *AuthTransport) isPublic(req *http.Request) bool {
	path := strings.TrimRight(req.URL.Path, "/")
	for _, p := range t.public {
		if strings.HasSuffix(path, p) {
			return true
		}
	}
	return false
}

// withBearer clones req with the Authorization header set. A non-nil body
// replaces the clone's body.
func withBearer(req *http.Request, token string, body io.ReadCloser) *http.Request {
	out := req.Clone(req.Context())
	out.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		out.Body = body
	}
	return out
}
