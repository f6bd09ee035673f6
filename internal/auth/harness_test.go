package auth

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kuberan/ledgersync/internal/api"
	"github.com/kuberan/ledgersync/internal/store"
	"github.com/kuberan/ledgersync/internal/testutil"
)

// harness wires a token store, refresher and authenticated client against a
// FakeAPI that also serves the token endpoint at /oauth/token. Host routes are
// registered by the routes callback before the server starts.
type harness struct {
	fake      *testutil.FakeAPI
	store     *store.Store
	tokens    *TokenStore
	oauth     *OAuthClient
	refresher *Refresher
	client    *api.Client
	status    *StatusBroadcaster
	auth      *Authentication

	logouts atomic.Int32

	mu           sync.Mutex
	grants       []map[string]string
	tokenHandler gin.HandlerFunc
}

func newHarness(t *testing.T, routes func(e *gin.Engine)) *harness {
	t.Helper()

	h := &harness{fake: testutil.NewFakeAPI(t), store: testutil.SetupTestStore(t)}
	h.fake.Engine.POST("/oauth/token", func(c *gin.Context) {
		var body map[string]string
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
			return
		}
		h.mu.Lock()
		h.grants = append(h.grants, body)
		handler := h.tokenHandler
		h.mu.Unlock()
		handler(c)
	})
	h.respondTokens("access-1", "refresh-1", 3600)
	if routes != nil {
		routes(h.fake.Engine)
	}

	h.tokens = NewTokenStore(testutil.SetupPrefs(t), testutil.Keystore(t), nil)
	plain := api.NewHTTPClient(http.DefaultTransport, 5*time.Second)
	h.oauth = NewOAuthClient(h.fake.URL()+"oauth/token", "client-1", plain)
	h.status = NewStatusBroadcaster(StatusLoggedOut)
	h.refresher = NewRefresher(h.tokens, h.oauth, func(_ context.Context) {
		h.logouts.Add(1)
		h.status.Set(StatusLoggedOut)
	}, nil)

	rt := api.NewAuthTransport(http.DefaultTransport, h.refresher, nil,
		api.WithLeeway(30*time.Second), api.WithPublicPaths(PathRegister, PathReset))
	client, err := api.NewClient(h.fake.URL(), api.NewHTTPClient(rt, 5*time.Second), nil)
	if err != nil {
		t.Fatalf("creating client: %v", err)
	}
	h.client = client
	h.auth = NewAuthentication(client, h.oauth, h.tokens, h.store.Users, h.status, nil)
	return h
}

// respondTokens makes the token endpoint issue access with created_at now.
func (h *harness) respondTokens(access, refresh string, expiresIn int64) {
	h.setTokenHandler(func(c *gin.Context) {
		body := gin.H{
			"access_token": access,
			"token_type":   "Bearer",
			"expires_in":   expiresIn,
			"created_at":   time.Now().Unix(),
		}
		if refresh != "" {
			body["refresh_token"] = refresh
		}
		c.JSON(http.StatusOK, body)
	})
}

func (h *harness) setTokenHandler(fn gin.HandlerFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.tokenHandler = fn
}

func (h *harness) grantCount(grantType string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, g := range h.grants {
		if g["grant_type"] == grantType {
			n++
		}
	}
	return n
}

// requireBearer answers 401 F0101 unless the request carries token.
func requireBearer(c *gin.Context, token string) bool {
	if c.GetHeader("Authorization") != "Bearer "+token {
		testutil.APIError(c, http.StatusUnauthorized, api.CodeInvalidAccessToken, "invalid access token")
		return false
	}
	return true
}
