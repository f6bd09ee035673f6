package sdk

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kuberan/ledgersync/internal/api"
	"github.com/kuberan/ledgersync/internal/auth"
	"github.com/kuberan/ledgersync/internal/config"
	apperrors "github.com/kuberan/ledgersync/internal/errors"
	"github.com/kuberan/ledgersync/internal/logger"
	"github.com/kuberan/ledgersync/internal/models"
	"github.com/kuberan/ledgersync/internal/scheduler"
	"github.com/kuberan/ledgersync/internal/testutil"
)

// tokenServer answers /oauth/token with whatever the current handler returns
// and counts grants by type.
type tokenServer struct {
	mu      sync.Mutex
	grants  map[string]int
	respond func(c *gin.Context, grantType string)
}

func (ts *tokenServer) handle(c *gin.Context) {
	var body map[string]string
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	ts.mu.Lock()
	ts.grants[body["grant_type"]]++
	respond := ts.respond
	ts.mu.Unlock()
	respond(c, body["grant_type"])
}

func (ts *tokenServer) count(grantType string) int {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.grants[grantType]
}

func (ts *tokenServer) set(fn func(c *gin.Context, grantType string)) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.respond = fn
}

func issue(c *gin.Context, access string, createdAt time.Time) {
	c.JSON(http.StatusOK, gin.H{
		"access_token":  access,
		"refresh_token": "refresh-" + access,
		"token_type":    "Bearer",
		"expires_in":    3600,
		"created_at":    createdAt.Unix(),
	})
}

type fixture struct {
	fake    *testutil.FakeAPI
	tokens  *tokenServer
	session *Session
}

func newFixture(t *testing.T, routes func(r *gin.Engine)) *fixture {
	t.Helper()

	f := &fixture{fake: testutil.NewFakeAPI(t), tokens: &tokenServer{grants: make(map[string]int)}}
	f.tokens.set(func(c *gin.Context, _ string) { issue(c, "fresh", time.Now()) })
	f.fake.Engine.POST("/oauth/token", f.tokens.handle)
	f.fake.Engine.GET("/user/details", func(c *gin.Context) {
		c.JSON(http.StatusOK, models.User{ID: 1, Email: "jacob@example.com", FirstName: "Jacob"})
	})
	if routes != nil {
		routes(f.fake.Engine)
	}

	cfg := &config.Config{
		Env:                "test",
		LogLevel:           "error",
		ServerURL:          f.fake.URL(),
		TokenURL:           f.fake.URL() + "oauth/token",
		ClientID:           "client-1",
		RequestTimeout:     5 * time.Second,
		TokenLeeway:        30 * time.Second,
		RefreshInterval:    time.Hour,
		SecondaryDelay:     time.Hour,
		SystemDelay:        time.Hour,
		ForegroundThrottle: 2 * time.Minute,
	}
	s, err := New(context.Background(), cfg,
		WithLogger(logger.Nop()),
		WithInMemoryCache(),
		WithPreferences(testutil.SetupPrefs(t)),
		WithKeystore(testutil.Keystore(t)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	f.session = s
	return f
}

func TestSession_ExpiredAccessTokenRefreshedOnce(t *testing.T) {
	f := newFixture(t, func(r *gin.Engine) {
		r.GET("/aggregation/accounts", func(c *gin.Context) {
			if c.GetHeader("Authorization") != "Bearer fresh" {
				testutil.APIError(c, http.StatusUnauthorized, api.CodeInvalidAccessToken, "expired")
				return
			}
			c.JSON(http.StatusOK, []models.Account{})
		})
	})
	f.tokens.set(func(c *gin.Context, grantType string) {
		if grantType == "password" {
			issue(c, "stale", time.Now().Add(-2*time.Hour))
			return
		}
		issue(c, "fresh", time.Now())
	})
	ctx := context.Background()

	require.NoError(t, f.session.Login(ctx, "jacob@example.com", "hunter22"))
	assert.Equal(t, 1, f.tokens.count("password"))
	assert.Equal(t, 1, f.tokens.count("refresh_token"), "first API call refreshes the expired token")

	for i := 0; i < 3; i++ {
		require.NoError(t, f.session.Accounts().RefreshAccounts(ctx))
	}
	assert.Equal(t, 1, f.tokens.count("refresh_token"), "no refresh within the new token's lifetime")
	assert.Equal(t, auth.StatusLoggedIn, f.session.Status())
}

func TestSession_InvalidGrantLogsOut(t *testing.T) {
	f := newFixture(t, func(r *gin.Engine) {
		r.GET("/aggregation/accounts", func(c *gin.Context) {
			testutil.APIError(c, http.StatusUnauthorized, api.CodeInvalidAccessToken, "expired")
		})
	})
	ctx := context.Background()
	require.NoError(t, f.session.Login(ctx, "jacob@example.com", "hunter22"))
	testutil.SeedHierarchy(t, f.session.Store(), 1, 11, 101, 1001)

	statuses, cancel := f.session.SubscribeStatus()
	defer cancel()
	require.Equal(t, auth.StatusLoggedIn, <-statuses)

	f.tokens.set(func(c *gin.Context, _ string) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_grant", "error_description": "revoked"})
	})

	err := f.session.Accounts().RefreshAccounts(ctx)
	testutil.AssertAppError(t, err, apperrors.KindAPI, apperrors.APIInvalidAccessToken)

	select {
	case s := <-statuses:
		assert.Equal(t, auth.StatusLoggedOut, s)
	case <-time.After(2 * time.Second):
		t.Fatal("no logged out notification")
	}
	assert.False(t, f.session.LoggedIn())
	ids, err := f.session.Store().Accounts.IDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
	users, err := f.session.Store().Users.IDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)

	hits := f.fake.Hits(http.MethodGet, "/aggregation/accounts")
	err = f.session.Accounts().RefreshAccounts(ctx)
	testutil.AssertAppError(t, err, apperrors.KindData, "MISSING_ACCESS_TOKEN")
	assert.Equal(t, hits, f.fake.Hits(http.MethodGet, "/aggregation/accounts"), "no request after forced logout")
}

func TestSession_LogoutResets(t *testing.T) {
	f := newFixture(t, func(r *gin.Engine) {
		r.PUT("/user/logout", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	})
	ctx := context.Background()

	err := f.session.Logout(ctx)
	testutil.AssertAppError(t, err, apperrors.KindData, "LOGGED_OUT")

	require.NoError(t, f.session.Login(ctx, "jacob@example.com", "hunter22"))
	testutil.Seed(t, f.session.Store().Messages, testutil.Message(1, false))
	require.NoError(t, f.session.RefreshData())
	assert.Equal(t, scheduler.StateRunning, f.session.SchedulerState())

	require.NoError(t, f.session.Logout(ctx))

	assert.Equal(t, 1, f.fake.Hits(http.MethodPut, "/user/logout"))
	assert.Equal(t, auth.StatusLoggedOut, f.session.Status())
	assert.Equal(t, scheduler.StateIdle, f.session.SchedulerState())
	ids, err := f.session.Store().Messages.IDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
	testutil.AssertAppError(t, f.session.RefreshData(), apperrors.KindData, "LOGGED_OUT")
}

func TestSession_LogoutSurvivesRemoteFailure(t *testing.T) {
	f := newFixture(t, func(r *gin.Engine) {
		r.PUT("/user/logout", func(c *gin.Context) {
			testutil.APIError(c, http.StatusServiceUnavailable, "F9001", "maintenance")
		})
	})
	ctx := context.Background()
	require.NoError(t, f.session.Login(ctx, "jacob@example.com", "hunter22"))

	require.NoError(t, f.session.Logout(ctx))
	assert.False(t, f.session.LoggedIn())
}

func TestSession_DeleteUser(t *testing.T) {
	f := newFixture(t, func(r *gin.Engine) {
		r.DELETE("/user", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	})
	ctx := context.Background()
	require.NoError(t, f.session.Login(ctx, "jacob@example.com", "hunter22"))

	require.NoError(t, f.session.DeleteUser(ctx))
	assert.Equal(t, 1, f.fake.Hits(http.MethodDelete, "/user"))
	assert.False(t, f.session.LoggedIn())
}

func TestSession_ForegroundThrottlesUserRefresh(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	now := time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC)
	f.session.now = func() time.Time { return now }
	f.session.scheduler = scheduler.New(scheduler.DefaultConfig(), scheduler.Tiers{}, nil)
	details := func() int { return f.fake.Hits(http.MethodGet, "/user/details") }

	require.NoError(t, f.session.Foregrounded(ctx), "logged out foreground is a no-op")
	assert.Equal(t, scheduler.StateIdle, f.session.SchedulerState())

	require.NoError(t, f.session.Login(ctx, "jacob@example.com", "hunter22"))
	require.Equal(t, 1, details())

	require.NoError(t, f.session.Foregrounded(ctx))
	assert.Equal(t, scheduler.StateRunning, f.session.SchedulerState())
	f.session.Backgrounded()
	assert.Equal(t, scheduler.StateIdle, f.session.SchedulerState())

	now = now.Add(time.Minute)
	require.NoError(t, f.session.Foregrounded(ctx))
	assert.Equal(t, 1, details(), "no refresh inside the window")

	now = now.Add(time.Minute)
	require.NoError(t, f.session.Foregrounded(ctx))
	assert.Equal(t, 2, details(), "refreshes once the window has passed")

	require.NoError(t, f.session.Foregrounded(ctx))
	assert.Equal(t, 2, details())
}

func TestSession_PrimaryTierRefreshesRecentData(t *testing.T) {
	f := newFixture(t, func(r *gin.Engine) {
		r.GET("/aggregation/provideraccounts", func(c *gin.Context) { c.JSON(http.StatusOK, []models.ProviderAccount{}) })
		r.GET("/aggregation/accounts", func(c *gin.Context) { c.JSON(http.StatusOK, []models.Account{}) })
		r.GET("/aggregation/transactions", func(c *gin.Context) { c.JSON(http.StatusOK, []models.Transaction{}) })
		r.GET("/messages/unread", func(c *gin.Context) { c.JSON(http.StatusOK, []models.Message{}) })
	})
	ctx := context.Background()
	require.NoError(t, f.session.Login(ctx, "jacob@example.com", "hunter22"))
	f.session.now = func() time.Time { return time.Date(2026, 1, 20, 8, 0, 0, 0, time.UTC) }

	require.NoError(t, f.session.primaryTier(ctx))

	queries := f.fake.Queries(http.MethodGet, "/aggregation/transactions")
	require.Len(t, queries, 1)
	assert.Equal(t, "2025-12-01", queries[0].Get("from_date"))
	assert.Equal(t, "2026-01-20", queries[0].Get("to_date"))
	assert.Equal(t, 1, f.fake.Hits(http.MethodGet, "/aggregation/provideraccounts"))
	assert.Equal(t, 1, f.fake.Hits(http.MethodGet, "/aggregation/accounts"))
	assert.Equal(t, 1, f.fake.Hits(http.MethodGet, "/messages/unread"))
}

func TestSession_SystemTierJoinsErrors(t *testing.T) {
	f := newFixture(t, func(r *gin.Engine) {
		r.GET("/aggregation/providers", func(c *gin.Context) {
			testutil.APIError(c, http.StatusInternalServerError, "F9000", "boom")
		})
		r.GET("/aggregation/categories", func(c *gin.Context) {
			c.JSON(http.StatusOK, []models.TransactionCategory{testutil.Category(1)})
		})
		r.GET("/aggregation/merchants", func(c *gin.Context) {
			c.JSON(http.StatusOK, []models.Merchant{testutil.Merchant(2)})
		})
	})
	ctx := context.Background()
	require.NoError(t, f.session.Login(ctx, "jacob@example.com", "hunter22"))

	err := f.session.systemTier(ctx)
	testutil.AssertAppError(t, err, apperrors.KindAPI, apperrors.APIServerError)

	categories, err := f.session.Store().Categories.IDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, categories, "other families still refresh")
}
