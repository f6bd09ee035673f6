package auth

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	apperrors "github.com/kuberan/ledgersync/internal/errors"
	"github.com/kuberan/ledgersync/internal/logger"
	"github.com/kuberan/ledgersync/internal/metrics"
)

// Refresher exchanges the refresh token for a new access token. Concurrent
// callers share one exchange. A rejected grant clears the token store and runs
// the forced logout hook.
type Refresher struct {
	tokens   *TokenStore
	oauth    *OAuthClient
	group    singleflight.Group
	onLogout func(context.Context)
	now      func() time.Time
	log      *zap.SugaredLogger
}

// NewRefresher creates a Refresher. onForcedLogout may be nil.
func NewRefresher(tokens *TokenStore, oauth *OAuthClient, onForcedLogout func(context.Context), log *zap.SugaredLogger) *Refresher {
	if log == nil {
		log = logger.Nop()
	}
	return &Refresher{tokens: tokens, oauth: oauth, onLogout: onForcedLogout, now: time.Now, log: log}
}

// Refresh returns a fresh token. stale is the access token the caller last
// used, or "" when it held none; if the store already holds a different access
// token it is returned without contacting the token endpoint. The exchange
// outlives the cancellation of any one caller.
func (r *Refresher) Refresh(ctx context.Context, stale string) (Token, error) {
	if current, ok := r.replaced(stale); ok {
		return current, nil
	}
	if current, _ := r.tokens.Read(); current.RefreshToken == "" {
		return Token{}, apperrors.ErrMissingRefreshToken
	}

	flight := r.group.DoChan("refresh", func() (any, error) {
		return r.exchange(context.WithoutCancel(ctx), stale)
	})
	select {
	case res := <-flight:
		if res.Err != nil {
			return Token{}, res.Err
		}
		return res.Val.(Token), nil
	case <-ctx.Done():
		return Token{}, ctx.Err()
	}
}

// Credentials implements api.Authenticator.
func (r *Refresher) Credentials() (string, time.Time, bool) {
	t, _ := r.tokens.Read()
	return t.AccessToken, t.Expiry, t.RefreshToken != ""
}

// RefreshAccess implements api.Authenticator.
func (r *Refresher) RefreshAccess(ctx context.Context, stale string) (string, error) {
	t, err := r.Refresh(ctx, stale)
	if err != nil {
		return "", err
	}
	return t.AccessToken, nil
}

func (r *Refresher) replaced(stale string) (Token, bool) {
	current, _ := r.tokens.Read()
	return current, current.AccessToken != "" && current.AccessToken != stale
}

func (r *Refresher) exchange(ctx context.Context, stale string) (Token, error) {
	// A flight that started after another one finished sees its result here.
	if current, ok := r.replaced(stale); ok {
		return current, nil
	}
	current, _ := r.tokens.Read()
	if current.RefreshToken == "" {
		return Token{}, apperrors.ErrMissingRefreshToken
	}

	resp, err := r.oauth.RefreshGrant(ctx, current.RefreshToken)
	if err != nil {
		if IsInvalidGrant(err) {
			metrics.TokenRefreshes.WithLabelValues("invalid_grant").Inc()
			r.log.Warnw("refresh token rejected, logging out", "error", err)
			r.forceLogout(ctx)
			return Token{}, apperrors.Wrap(apperrors.ErrInvalidGrant, err)
		}
		metrics.TokenRefreshes.WithLabelValues("error").Inc()
		r.log.Infow("token refresh failed", "error", err)
		return Token{}, apperrors.Wrap(apperrors.ErrNetworkOrServer, err)
	}

	token := resp.Token(r.now(), current.RefreshToken)
	if err := r.tokens.Write(token); err != nil {
		metrics.TokenRefreshes.WithLabelValues("error").Inc()
		return Token{}, err
	}
	metrics.TokenRefreshes.WithLabelValues("success").Inc()
	r.log.Debugw("access token refreshed", "expiry", token.Expiry)
	return token, nil
}

func (r *Refresher) forceLogout(ctx context.Context) {
	if err := r.tokens.Clear(); err != nil {
		r.log.Errorw("clearing tokens after rejected grant failed", "error", err)
	}
	if r.onLogout != nil {
		r.onLogout(ctx)
	}
}
