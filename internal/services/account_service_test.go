package services

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"

	apperrors "github.com/kuberan/ledgersync/internal/errors"
	"github.com/kuberan/ledgersync/internal/models"
	"github.com/kuberan/ledgersync/internal/testutil"
)

func TestRefreshAccounts(t *testing.T) {
	t.Run("fetches_every_page_and_resolves_parents", func(t *testing.T) {
		pages := [][]models.Account{make([]models.Account, 200), make([]models.Account, 115)}
		id := int64(1)
		for p := range pages {
			for i := range pages[p] {
				pages[p][i] = testutil.Account(id, 70)
				id++
			}
		}
		h := newHarness(t, func(r *gin.Engine) {
			r.GET("/aggregation/accounts", func(c *gin.Context) { testutil.Paginate(c, pages) })
			r.GET("/aggregation/provideraccounts/:id", func(c *gin.Context) {
				c.JSON(http.StatusOK, testutil.ProviderAccount(70, 3))
			})
			r.GET("/aggregation/providers/:id", func(c *gin.Context) {
				c.JSON(http.StatusOK, testutil.Provider(3, models.ProviderStatusSupported))
			})
		})

		err := NewAccountService(h.sy).RefreshAccounts(context.Background())
		testutil.AssertNoError(t, err)

		if got := len(cachedIDs(t, h.store.Accounts)); got != 315 {
			t.Errorf("expected 315 accounts, got %d", got)
		}
		if hits := h.fake.Hits(http.MethodGet, "/aggregation/accounts"); hits != 2 {
			t.Errorf("expected 2 page requests, got %d", hits)
		}
		if hits := h.fake.Hits(http.MethodGet, "/aggregation/provideraccounts/70"); hits != 1 {
			t.Errorf("expected provider account 70 fetched once, got %d", hits)
		}
		if hits := h.fake.Hits(http.MethodGet, "/aggregation/providers/3"); hits != 1 {
			t.Errorf("expected provider 3 fetched once, got %d", hits)
		}
		testutil.AssertIDs(t, cachedIDs(t, h.store.ProviderAccounts), []int64{70})
		testutil.AssertIDs(t, cachedIDs(t, h.store.Providers), []int64{3})
	})

	t.Run("evicts_accounts_and_their_transactions", func(t *testing.T) {
		h := newHarness(t, func(r *gin.Engine) {
			r.GET("/aggregation/accounts", func(c *gin.Context) {
				c.JSON(http.StatusOK, []models.Account{testutil.Account(101, 11)})
			})
		})
		seedFamilies(t, h, 1, 2)

		err := NewAccountService(h.sy).RefreshAccounts(context.Background())
		testutil.AssertNoError(t, err)

		testutil.AssertIDs(t, cachedIDs(t, h.store.Accounts), []int64{101})
		testutil.AssertIDs(t, cachedIDs(t, h.store.Transactions), []int64{1001})
		testutil.AssertIDs(t, cachedIDs(t, h.store.ProviderAccounts), []int64{11, 12})
	})

	t.Run("missing_parent_is_not_fatal", func(t *testing.T) {
		h := newHarness(t, func(r *gin.Engine) {
			r.GET("/aggregation/accounts", func(c *gin.Context) {
				c.JSON(http.StatusOK, []models.Account{testutil.Account(5, 404)})
			})
			r.GET("/aggregation/provideraccounts/:id", func(c *gin.Context) {
				testutil.APIError(c, http.StatusNotFound, "F0002", "not found")
			})
		})

		err := NewAccountService(h.sy).RefreshAccounts(context.Background())
		testutil.AssertNoError(t, err)
		testutil.AssertIDs(t, cachedIDs(t, h.store.Accounts), []int64{5})
	})
}

func TestUpdateAccount(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		h := newHarness(t, func(r *gin.Engine) {
			r.PUT("/aggregation/accounts/:id", func(c *gin.Context) {
				var update models.AccountUpdate
				if err := c.ShouldBindJSON(&update); err != nil {
					c.Status(http.StatusBadRequest)
					return
				}
				a := testutil.Account(101, 11)
				a.NickName = update.NickName
				a.Hidden = update.Hidden
				c.JSON(http.StatusOK, a)
			})
		})
		seedFamilies(t, h, 1)

		got, err := NewAccountService(h.sy).UpdateAccount(context.Background(), 101, models.AccountUpdate{NickName: "Bills", Hidden: true})
		testutil.AssertNoError(t, err)
		if got.NickName != "Bills" || !got.Hidden {
			t.Errorf("unexpected account returned: %+v", got)
		}

		cached, err := h.store.Accounts.Get(context.Background(), 101)
		testutil.AssertNoError(t, err)
		if cached.NickName != "Bills" {
			t.Errorf("expected cached nick name Bills, got %q", cached.NickName)
		}
	})

	t.Run("invalid_input", func(t *testing.T) {
		h := newHarness(t, nil)
		long := make([]byte, 101)
		for i := range long {
			long[i] = 'a'
		}

		_, err := NewAccountService(h.sy).UpdateAccount(context.Background(), 1, models.AccountUpdate{NickName: string(long)})
		testutil.AssertAppError(t, err, apperrors.KindData, "INVALID_INPUT")
	})
}
