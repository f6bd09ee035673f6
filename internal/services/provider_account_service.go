package services

import (
	"context"
	"fmt"

	"github.com/kuberan/ledgersync/internal/models"
	"github.com/kuberan/ledgersync/internal/store"
	"github.com/kuberan/ledgersync/internal/validator"
)

// providerAccountService reconciles the user's provider logins.
type providerAccountService struct {
	sy *Syncer
}

// NewProviderAccountService creates a new ProviderAccountServicer.
func NewProviderAccountService(sy *Syncer) ProviderAccountServicer {
	return &providerAccountService{sy: sy}
}

type providerAccountRequest struct {
	ProviderID int64            `json:"provider_id,omitempty"`
	LoginForm  models.LoginForm `json:"login_form"`
}

// RefreshProviderAccounts fetches every provider account, evicting (with
// cascade) those the host no longer returns, then fetches missing providers.
func (s *providerAccountService) RefreshProviderAccounts(ctx context.Context) error {
	rows, err := reconcile(ctx, s.sy, s.sy.store.ProviderAccounts, fetch{
		family: "provider_accounts",
		path:   pathProviderAccounts,
		evict:  true,
	})
	if err != nil {
		return err
	}
	s.sy.resolveProviders(ctx, providerIDs(rows))
	return nil
}

func (s *providerAccountService) RefreshProviderAccount(ctx context.Context, id int64) error {
	row, err := fetchOne(ctx, s.sy, s.sy.store.ProviderAccounts, "provider_accounts", fmt.Sprintf("%s/%d", pathProviderAccounts, id))
	if err != nil {
		return err
	}
	s.sy.resolveProviders(ctx, []int64{row.ProviderID})
	return nil
}

// CreateProviderAccount links a provider with the user's credentials.
func (s *providerAccountService) CreateProviderAccount(ctx context.Context, providerID int64, form models.LoginForm) (*models.ProviderAccount, error) {
	if err := validator.Struct(form); err != nil {
		return nil, err
	}
	var created models.ProviderAccount
	body := providerAccountRequest{ProviderID: providerID, LoginForm: form}
	if err := s.sy.client.Post(ctx, pathProviderAccounts, body, &created); err != nil {
		return nil, err
	}
	if err := s.sy.store.ProviderAccounts.Insert(ctx, created); err != nil {
		return nil, err
	}
	s.sy.resolveProviders(ctx, []int64{created.ProviderID})
	return &created, nil
}

// UpdateProviderAccount resubmits credentials for an existing provider account.
func (s *providerAccountService) UpdateProviderAccount(ctx context.Context, id int64, form models.LoginForm) (*models.ProviderAccount, error) {
	if err := validator.Struct(form); err != nil {
		return nil, err
	}
	var updated models.ProviderAccount
	path := fmt.Sprintf("%s/%d", pathProviderAccounts, id)
	if err := s.sy.client.Put(ctx, path, providerAccountRequest{LoginForm: form}, &updated); err != nil {
		return nil, err
	}
	if err := s.sy.store.ProviderAccounts.Insert(ctx, updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteProviderAccount unlinks the provider account on the host and removes it
// locally with its accounts and transactions.
func (s *providerAccountService) DeleteProviderAccount(ctx context.Context, id int64) error {
	if err := s.sy.client.Delete(ctx, fmt.Sprintf("%s/%d", pathProviderAccounts, id)); err != nil {
		return err
	}
	return s.sy.store.ProviderAccounts.Delete(ctx, id)
}

func (s *providerAccountService) ProviderAccounts(ctx context.Context, scopes ...store.Scope) *store.Live[[]models.ProviderAccount] {
	return s.sy.store.ProviderAccounts.Load(ctx, scopes...)
}

func (s *providerAccountService) ProviderAccount(ctx context.Context, id int64) *store.Live[*models.ProviderAccount] {
	return s.sy.store.ProviderAccounts.LoadByID(ctx, id)
}

func (s *providerAccountService) ProviderAccountsWithRelation(ctx context.Context, scopes ...store.Scope) *store.Live[[]store.ProviderAccountRelation] {
	return s.sy.store.ProviderAccountsWithRelation(ctx, scopes...)
}

func (s *providerAccountService) ProviderAccountWithRelation(ctx context.Context, id int64) *store.Live[*store.ProviderAccountRelation] {
	return s.sy.store.ProviderAccountWithRelation(ctx, id)
}
