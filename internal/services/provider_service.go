package services

import (
	"context"
	"fmt"

	"github.com/kuberan/ledgersync/internal/models"
	"github.com/kuberan/ledgersync/internal/store"
)

// providerService reconciles the provider catalogue.
type providerService struct {
	sy *Syncer
}

// NewProviderService creates a new ProviderServicer.
func NewProviderService(sy *Syncer) ProviderServicer {
	return &providerService{sy: sy}
}

// RefreshProviders fetches the full catalogue. Providers the host no longer
// lists are removed with their provider accounts, accounts and transactions,
// except disabled and unsupported ones.
func (s *providerService) RefreshProviders(ctx context.Context) error {
	_, err := reconcile(ctx, s.sy, s.sy.store.Providers, fetch{
		family: "providers",
		path:   pathProviders,
		evict:  true,
	})
	return err
}

func (s *providerService) RefreshProvider(ctx context.Context, id int64) error {
	_, err := fetchOne(ctx, s.sy, s.sy.store.Providers, "providers", fmt.Sprintf("%s/%d", pathProviders, id))
	return err
}

func (s *providerService) Providers(ctx context.Context, scopes ...store.Scope) *store.Live[[]models.Provider] {
	return s.sy.store.Providers.Load(ctx, scopes...)
}

func (s *providerService) Provider(ctx context.Context, id int64) *store.Live[*models.Provider] {
	return s.sy.store.Providers.LoadByID(ctx, id)
}

func (s *providerService) ProvidersWithRelation(ctx context.Context, scopes ...store.Scope) *store.Live[[]store.ProviderRelation] {
	return s.sy.store.ProvidersWithRelation(ctx, scopes...)
}

func (s *providerService) ProviderWithRelation(ctx context.Context, id int64) *store.Live[*store.ProviderRelation] {
	return s.sy.store.ProviderWithRelation(ctx, id)
}
