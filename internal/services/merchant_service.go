package services

import (
	"context"
	"fmt"

	"github.com/kuberan/ledgersync/internal/models"
	"github.com/kuberan/ledgersync/internal/store"
)

type merchantService struct {
	sy *Syncer
}

// NewMerchantService creates a new MerchantServicer.
func NewMerchantService(sy *Syncer) MerchantServicer {
	return &merchantService{sy: sy}
}

// RefreshMerchants fetches the full merchant list and evicts merchants the
// host no longer returns. Transactions keep their merchant ids.
func (s *merchantService) RefreshMerchants(ctx context.Context) error {
	_, err := reconcile(ctx, s.sy, s.sy.store.Merchants, fetch{
		family: "merchants",
		path:   pathMerchants,
		evict:  true,
	})
	return err
}

func (s *merchantService) RefreshMerchant(ctx context.Context, id int64) error {
	_, err := fetchOne(ctx, s.sy, s.sy.store.Merchants, "merchants", fmt.Sprintf("%s/%d", pathMerchants, id))
	return err
}

// RefreshMerchantsByIDs upserts the given merchants in batches without eviction.
func (s *merchantService) RefreshMerchantsByIDs(ctx context.Context, ids []int64) error {
	return fetchByIDs(ctx, s.sy, s.sy.store.Merchants, "merchants", pathMerchants, "merchant_ids", ids)
}

func (s *merchantService) Merchants(ctx context.Context, scopes ...store.Scope) *store.Live[[]models.Merchant] {
	return s.sy.store.Merchants.Load(ctx, scopes...)
}

func (s *merchantService) Merchant(ctx context.Context, id int64) *store.Live[*models.Merchant] {
	return s.sy.store.Merchants.LoadByID(ctx, id)
}
