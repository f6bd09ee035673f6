package services

import (
	"context"
	"fmt"

	"github.com/kuberan/ledgersync/internal/models"
	"github.com/kuberan/ledgersync/internal/store"
	"github.com/kuberan/ledgersync/internal/validator"
)

// accountService reconciles aggregated accounts.
type accountService struct {
	sy *Syncer
}

// NewAccountService creates a new AccountServicer.
func NewAccountService(sy *Syncer) AccountServicer {
	return &accountService{sy: sy}
}

// RefreshAccounts fetches every account, evicting (with their transactions)
// those the host no longer returns, then fetches missing provider accounts.
func (s *accountService) RefreshAccounts(ctx context.Context) error {
	rows, err := reconcile(ctx, s.sy, s.sy.store.Accounts, fetch{
		family: "accounts",
		path:   pathAccounts,
		evict:  true,
	})
	if err != nil {
		return err
	}
	s.sy.resolveProviderAccounts(ctx, providerAccountIDs(rows))
	return nil
}

func (s *accountService) RefreshAccount(ctx context.Context, id int64) error {
	row, err := fetchOne(ctx, s.sy, s.sy.store.Accounts, "accounts", fmt.Sprintf("%s/%d", pathAccounts, id))
	if err != nil {
		return err
	}
	s.sy.resolveProviderAccounts(ctx, []int64{row.ProviderAccountID})
	return nil
}

// UpdateAccount changes the nick name and visibility flags of an account.
func (s *accountService) UpdateAccount(ctx context.Context, id int64, update models.AccountUpdate) (*models.Account, error) {
	if err := validator.Struct(update); err != nil {
		return nil, err
	}
	var account models.Account
	if err := s.sy.client.Put(ctx, fmt.Sprintf("%s/%d", pathAccounts, id), update, &account); err != nil {
		return nil, err
	}
	if err := s.sy.store.Accounts.Insert(ctx, account); err != nil {
		return nil, err
	}
	return &account, nil
}

func (s *accountService) Accounts(ctx context.Context, scopes ...store.Scope) *store.Live[[]models.Account] {
	return s.sy.store.Accounts.Load(ctx, scopes...)
}

func (s *accountService) Account(ctx context.Context, id int64) *store.Live[*models.Account] {
	return s.sy.store.Accounts.LoadByID(ctx, id)
}

func (s *accountService) AccountsWithRelation(ctx context.Context, scopes ...store.Scope) *store.Live[[]store.AccountRelation] {
	return s.sy.store.AccountsWithRelation(ctx, scopes...)
}

func (s *accountService) AccountWithRelation(ctx context.Context, id int64) *store.Live[*store.AccountRelation] {
	return s.sy.store.AccountWithRelation(ctx, id)
}

func providerAccountIDs(rows []models.Account) []int64 {
	ids := make([]int64, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ProviderAccountID)
	}
	return ids
}
