package auth

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kuberan/ledgersync/internal/api"
	apperrors "github.com/kuberan/ledgersync/internal/errors"
	"github.com/kuberan/ledgersync/internal/logger"
	"github.com/kuberan/ledgersync/internal/models"
	"github.com/kuberan/ledgersync/internal/store"
	"github.com/kuberan/ledgersync/internal/validator"
)

// Host paths used by Authentication.
const (
	PathRegister = "user/register"
	PathReset    = "user/reset"
	PathDetails  = "user/details"
	PathLogout   = "user/logout"
	PathUser     = "user"
	PathPassword = "user/password"
)

// MinPasswordLength is the shortest password accepted locally.
const MinPasswordLength = 8

// Authentication logs users in and out and keeps the cached user profile.
type Authentication struct {
	client *api.Client
	oauth  *OAuthClient
	tokens *TokenStore
	users  *store.Table[models.User]
	status *StatusBroadcaster
	now    func() time.Time
	log    *zap.SugaredLogger
}

// NewAuthentication wires the authentication service.
func NewAuthentication(client *api.Client, oauth *OAuthClient, tokens *TokenStore, users *store.Table[models.User], status *StatusBroadcaster, log *zap.SugaredLogger) *Authentication {
	if log == nil {
		log = logger.Nop()
	}
	return &Authentication{
		client: client,
		oauth:  oauth,
		tokens: tokens,
		users:  users,
		status: status,
		now:    time.Now,
		log:    log,
	}
}

// LoggedIn reports whether a user is logged in.
func (a *Authentication) LoggedIn() bool {
	return a.tokens.LoggedIn()
}

// Login exchanges credentials for tokens and fetches the user profile. When the
// profile fetch fails the tokens are discarded and the error returned.
func (a *Authentication) Login(ctx context.Context, email, password string) error {
	if a.LoggedIn() {
		return apperrors.ErrAlreadyLoggedIn
	}
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "Email and password are required")
	}
	return a.login(ctx, email, password)
}

// Register creates the user on the host and logs them in.
func (a *Authentication) Register(ctx context.Context, reg models.Registration) error {
	if a.LoggedIn() {
		return apperrors.ErrAlreadyLoggedIn
	}
	if len(reg.Password) < MinPasswordLength {
		return apperrors.ErrPasswordTooShort
	}
	if err := validator.Struct(reg); err != nil {
		return err
	}
	if err := a.client.Post(ctx, PathRegister, reg, nil); err != nil {
		return err
	}
	a.log.Infow("user registered", "email", reg.Email)
	return a.login(ctx, reg.Email, reg.Password)
}

func (a *Authentication) login(ctx context.Context, email, password string) error {
	resp, err := a.oauth.PasswordGrant(ctx, email, password)
	if err != nil {
		return err
	}
	if err := a.tokens.Write(resp.Token(a.now(), "")); err != nil {
		return err
	}
	if _, err := a.RefreshUser(ctx); err != nil {
		a.log.Warnw("fetching user after login failed, discarding tokens", "error", err)
		if clearErr := a.tokens.Clear(); clearErr != nil {
			a.log.Errorw("clearing tokens failed", "error", clearErr)
		}
		return err
	}
	a.status.Set(StatusLoggedIn)
	a.log.Infow("user logged in")
	return nil
}

// RefreshUser fetches the user profile and replaces the cached one.
func (a *Authentication) RefreshUser(ctx context.Context) (models.User, error) {
	var user models.User
	if err := a.client.Get(ctx, PathDetails, nil, &user); err != nil {
		return models.User{}, err
	}
	if err := a.saveUser(ctx, user); err != nil {
		return models.User{}, err
	}
	return user, nil
}

// UpdateUser sends profile changes and caches the host's result.
func (a *Authentication) UpdateUser(ctx context.Context, update models.UserUpdate) (models.User, error) {
	if !a.LoggedIn() {
		return models.User{}, apperrors.ErrLoggedOut
	}
	if err := validator.Struct(update); err != nil {
		return models.User{}, err
	}
	var user models.User
	if err := a.client.Put(ctx, PathDetails, update, &user); err != nil {
		return models.User{}, err
	}
	if err := a.saveUser(ctx, user); err != nil {
		return models.User{}, err
	}
	return user, nil
}

// ChangePassword changes the user's password. currentPassword may be empty for
// users without one.
func (a *Authentication) ChangePassword(ctx context.Context, currentPassword, newPassword string) error {
	if len(newPassword) < MinPasswordLength {
		return apperrors.ErrPasswordTooShort
	}
	body := struct {
		CurrentPassword string `json:"current_password,omitempty"`
		NewPassword     string `json:"new_password"`
	}{currentPassword, newPassword}
	return a.client.Put(ctx, PathPassword, body, nil)
}

// Logout tells the host to revoke the session. Local state is left to the caller.
func (a *Authentication) Logout(ctx context.Context) error {
	return a.client.Put(ctx, PathLogout, nil, nil)
}

// DeleteUser deletes the user on the host.
func (a *Authentication) DeleteUser(ctx context.Context) error {
	return a.client.Delete(ctx, PathUser)
}

// User returns the cached profile.
func (a *Authentication) User(ctx context.Context) *store.Live[[]models.User] {
	return a.users.Load(ctx)
}

func (a *Authentication) saveUser(ctx context.Context, user models.User) error {
	if err := a.users.Insert(ctx, user); err != nil {
		return err
	}
	_, err := a.users.EvictStale(ctx, []int64{user.ID})
	return err
}
