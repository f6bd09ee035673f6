package services

import (
	"context"
	"net/http"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/kuberan/ledgersync/internal/models"
	"github.com/kuberan/ledgersync/internal/testutil"
)

func TestRefreshMerchants(t *testing.T) {
	h := newHarness(t, func(r *gin.Engine) {
		r.GET("/aggregation/merchants", func(c *gin.Context) {
			c.JSON(http.StatusOK, []models.Merchant{testutil.Merchant(1), testutil.Merchant(2)})
		})
	})
	testutil.Seed(t, h.store.Merchants, testutil.Merchant(3))
	testutil.Seed(t, h.store.Transactions, testutil.Transaction(1, 1, 3, 0, "2024-05-01"))

	err := NewMerchantService(h.sy).RefreshMerchants(context.Background())
	testutil.AssertNoError(t, err)

	testutil.AssertIDs(t, cachedIDs(t, h.store.Merchants), []int64{1, 2})
	testutil.AssertIDs(t, cachedIDs(t, h.store.Transactions), []int64{1})
}

func TestRefreshMerchant(t *testing.T) {
	h := newHarness(t, func(r *gin.Engine) {
		r.GET("/aggregation/merchants/:id", func(c *gin.Context) {
			id, _ := strconv.ParseInt(c.Param("id"), 10, 64)
			m := testutil.Merchant(id)
			m.Name = "Corner Store"
			c.JSON(http.StatusOK, m)
		})
	})

	err := NewMerchantService(h.sy).RefreshMerchant(context.Background(), 12)
	testutil.AssertNoError(t, err)

	m, err := h.store.Merchants.Get(context.Background(), 12)
	testutil.AssertNoError(t, err)
	if m.Name != "Corner Store" {
		t.Errorf("expected Corner Store, got %s", m.Name)
	}
}

func TestRefreshMerchantsByIDs(t *testing.T) {
	rec := &idRecorder{}
	h := newHarness(t, merchantRoutes(rec))
	testutil.Seed(t, h.store.Merchants, testutil.Merchant(77))

	err := NewMerchantService(h.sy).RefreshMerchantsByIDs(context.Background(), []int64{1, 2, 2, 0, 3})
	testutil.AssertNoError(t, err)

	testutil.AssertIDs(t, rec.all(), []int64{1, 2, 3})
	testutil.AssertIDs(t, cachedIDs(t, h.store.Merchants), []int64{1, 2, 3, 77})
}
