package services

import (
	"context"
	"net/http"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"

	apperrors "github.com/kuberan/ledgersync/internal/errors"
	"github.com/kuberan/ledgersync/internal/models"
	"github.com/kuberan/ledgersync/internal/testutil"
)

// seedFamilies caches provider i → provider account 10+i → account 100+i →
// transaction 1000+i for each id.
func seedFamilies(t *testing.T, h *harness, ids ...int64) {
	t.Helper()

	for _, id := range ids {
		testutil.SeedHierarchy(t, h.store, id, 10+id, 100+id, 1000+id)
	}
}

func serveProviders(providers ...models.Provider) func(r *gin.Engine) {
	return func(r *gin.Engine) {
		r.GET("/aggregation/providers", func(c *gin.Context) {
			c.JSON(http.StatusOK, providers)
		})
	}
}

func TestRefreshProviders(t *testing.T) {
	t.Run("evicts_stale_with_cascade", func(t *testing.T) {
		h := newHarness(t, serveProviders(
			testutil.Provider(1, models.ProviderStatusSupported),
			testutil.Provider(3, models.ProviderStatusSupported),
		))
		seedFamilies(t, h, 1, 2, 3, 4)

		err := NewProviderService(h.sy).RefreshProviders(context.Background())
		testutil.AssertNoError(t, err)

		testutil.AssertIDs(t, cachedIDs(t, h.store.Providers), []int64{1, 3})
		testutil.AssertIDs(t, cachedIDs(t, h.store.ProviderAccounts), []int64{11, 13})
		testutil.AssertIDs(t, cachedIDs(t, h.store.Accounts), []int64{101, 103})
		testutil.AssertIDs(t, cachedIDs(t, h.store.Transactions), []int64{1001, 1003})
	})

	t.Run("keeps_disabled_and_unsupported", func(t *testing.T) {
		h := newHarness(t, serveProviders(testutil.Provider(1, models.ProviderStatusSupported)))
		testutil.Seed(t, h.store.Providers,
			testutil.Provider(5, models.ProviderStatusDisabled),
			testutil.Provider(6, models.ProviderStatusUnsupported),
			testutil.Provider(7, models.ProviderStatusOutage),
		)

		err := NewProviderService(h.sy).RefreshProviders(context.Background())
		testutil.AssertNoError(t, err)

		testutil.AssertIDs(t, cachedIDs(t, h.store.Providers), []int64{1, 5, 6})
	})

	t.Run("idempotent", func(t *testing.T) {
		h := newHarness(t, serveProviders(
			testutil.Provider(1, models.ProviderStatusSupported),
			testutil.Provider(3, models.ProviderStatusBeta),
		))
		seedFamilies(t, h, 1, 2, 3)
		svc := NewProviderService(h.sy)

		testutil.AssertNoError(t, svc.RefreshProviders(context.Background()))
		first, err := h.store.Providers.List(context.Background())
		testutil.AssertNoError(t, err)

		testutil.AssertNoError(t, svc.RefreshProviders(context.Background()))
		second, err := h.store.Providers.List(context.Background())
		testutil.AssertNoError(t, err)

		if len(first) != 2 || len(second) != 2 {
			t.Fatalf("expected 2 providers after each refresh, got %d and %d", len(first), len(second))
		}
		for i := range first {
			if first[i].ID != second[i].ID || first[i].Status != second[i].Status || first[i].Name != second[i].Name {
				t.Errorf("provider %d changed between identical refreshes", first[i].ID)
			}
		}
		testutil.AssertIDs(t, cachedIDs(t, h.store.ProviderAccounts), []int64{11, 13})
	})

	t.Run("partial_failure_keeps_pages_and_skips_eviction", func(t *testing.T) {
		h := newHarness(t, func(r *gin.Engine) {
			r.GET("/aggregation/providers", func(c *gin.Context) {
				if c.Query("page") == "2" {
					testutil.APIError(c, http.StatusInternalServerError, "F9000", "boom")
					return
				}
				next := "http://" + c.Request.Host + "/aggregation/providers?page=2"
				c.Header("Link", "<"+next+`>; rel="next"`)
				c.JSON(http.StatusOK, []models.Provider{testutil.Provider(9, models.ProviderStatusSupported)})
			})
		})
		seedFamilies(t, h, 1, 2)

		err := NewProviderService(h.sy).RefreshProviders(context.Background())
		testutil.AssertAppError(t, err, apperrors.KindAPI, apperrors.APIServerError)

		testutil.AssertIDs(t, cachedIDs(t, h.store.Providers), []int64{1, 2, 9})
		testutil.AssertIDs(t, cachedIDs(t, h.store.Transactions), []int64{1001, 1002})
	})

	t.Run("notifies_observers", func(t *testing.T) {
		h := newHarness(t, serveProviders(testutil.Provider(4, models.ProviderStatusSupported)))
		svc := NewProviderService(h.sy)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		live := svc.Providers(ctx)
		defer live.Close()
		testutil.Await(t, live, func(rows []models.Provider) bool { return len(rows) == 0 })

		testutil.AssertNoError(t, svc.RefreshProviders(ctx))
		testutil.Await(t, live, func(rows []models.Provider) bool { return len(rows) == 1 && rows[0].ID == 4 })
	})
}

func TestRefreshProvider(t *testing.T) {
	h := newHarness(t, func(r *gin.Engine) {
		r.GET("/aggregation/providers/:id", func(c *gin.Context) {
			id, _ := strconv.ParseInt(c.Param("id"), 10, 64)
			c.JSON(http.StatusOK, testutil.Provider(id, models.ProviderStatusOutage))
		})
	})

	err := NewProviderService(h.sy).RefreshProvider(context.Background(), 42)
	testutil.AssertNoError(t, err)

	p, err := h.store.Providers.Get(context.Background(), 42)
	testutil.AssertNoError(t, err)
	if p.Status != models.ProviderStatusOutage {
		t.Errorf("expected status outage, got %s", p.Status)
	}
}
