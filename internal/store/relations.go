package store

import (
	"context"

	"gorm.io/gorm"

	"github.com/kuberan/ledgersync/internal/models"
)

// ProviderRelation is a provider with its provider accounts.
type ProviderRelation struct {
	Provider         models.Provider          `json:"provider"`
	ProviderAccounts []models.ProviderAccount `json:"provider_accounts"`
}

// ProviderAccountRelation is a provider account with its provider and accounts.
// Provider is nil until the provider has been fetched.
type ProviderAccountRelation struct {
	ProviderAccount models.ProviderAccount `json:"provider_account"`
	Provider        *models.Provider       `json:"provider,omitempty"`
	Accounts        []models.Account       `json:"accounts"`
}

// AccountRelation is an account with its provider account and transactions.
type AccountRelation struct {
	Account         models.Account          `json:"account"`
	ProviderAccount *models.ProviderAccount `json:"provider_account,omitempty"`
	Transactions    []models.Transaction    `json:"transactions"`
}

// TransactionRelation is a transaction with the records it references.
type TransactionRelation struct {
	Transaction models.Transaction          `json:"transaction"`
	Account     *models.Account             `json:"account,omitempty"`
	Merchant    *models.Merchant            `json:"merchant,omitempty"`
	Category    *models.TransactionCategory `json:"category,omitempty"`
}

// ProvidersWithRelation observes providers matching scopes with their provider accounts.
func (s *Store) ProvidersWithRelation(ctx context.Context, scopes ...Scope) *Live[[]ProviderRelation] {
	return Watch(ctx, s, []string{TableProviders, TableProviderAccounts}, func(db *gorm.DB) ([]ProviderRelation, error) {
		return s.providerRelations(db, scopes)
	})
}

// ProviderWithRelation observes one provider. The value is nil while it is absent.
func (s *Store) ProviderWithRelation(ctx context.Context, id int64) *Live[*ProviderRelation] {
	return Watch(ctx, s, []string{TableProviders, TableProviderAccounts}, func(db *gorm.DB) (*ProviderRelation, error) {
		return first(s.providerRelations(db, []Scope{ByIDs([]int64{id})}))
	})
}

// ProviderAccountsWithRelation observes provider accounts matching scopes.
func (s *Store) ProviderAccountsWithRelation(ctx context.Context, scopes ...Scope) *Live[[]ProviderAccountRelation] {
	return Watch(ctx, s, []string{TableProviderAccounts, TableProviders, TableAccounts}, func(db *gorm.DB) ([]ProviderAccountRelation, error) {
		return s.providerAccountRelations(db, scopes)
	})
}

// ProviderAccountWithRelation observes one provider account.
func (s *Store) ProviderAccountWithRelation(ctx context.Context, id int64) *Live[*ProviderAccountRelation] {
	return Watch(ctx, s, []string{TableProviderAccounts, TableProviders, TableAccounts}, func(db *gorm.DB) (*ProviderAccountRelation, error) {
		return first(s.providerAccountRelations(db, []Scope{ByIDs([]int64{id})}))
	})
}

// AccountsWithRelation observes accounts matching scopes.
func (s *Store) AccountsWithRelation(ctx context.Context, scopes ...Scope) *Live[[]AccountRelation] {
	return Watch(ctx, s, []string{TableAccounts, TableProviderAccounts, TableTransactions}, func(db *gorm.DB) ([]AccountRelation, error) {
		return s.accountRelations(db, scopes)
	})
}

// AccountWithRelation observes one account.
func (s *Store) AccountWithRelation(ctx context.Context, id int64) *Live[*AccountRelation] {
	return Watch(ctx, s, []string{TableAccounts, TableProviderAccounts, TableTransactions}, func(db *gorm.DB) (*AccountRelation, error) {
		return first(s.accountRelations(db, []Scope{ByIDs([]int64{id})}))
	})
}

// TransactionsWithRelation observes transactions matching scopes.
func (s *Store) TransactionsWithRelation(ctx context.Context, scopes ...Scope) *Live[[]TransactionRelation] {
	tables := []string{TableTransactions, TableAccounts, TableMerchants, TableCategories}
	return Watch(ctx, s, tables, func(db *gorm.DB) ([]TransactionRelation, error) {
		return s.transactionRelations(db, scopes)
	})
}

// TransactionWithRelation observes one transaction.
func (s *Store) TransactionWithRelation(ctx context.Context, id int64) *Live[*TransactionRelation] {
	tables := []string{TableTransactions, TableAccounts, TableMerchants, TableCategories}
	return Watch(ctx, s, tables, func(db *gorm.DB) (*TransactionRelation, error) {
		return first(s.transactionRelations(db, []Scope{ByIDs([]int64{id})}))
	})
}

func (s *Store) providerRelations(db *gorm.DB, scopes []Scope) ([]ProviderRelation, error) {
	var out []ProviderRelation
	err := db.Transaction(func(tx *gorm.DB) error {
		providers, err := s.Providers.find(tx, scopes...)
		if err != nil {
			return err
		}
		children, err := s.ProviderAccounts.find(tx, inColumn("provider_id", models.IDs(providers)))
		if err != nil {
			return err
		}
		byParent := groupBy(children, func(pa models.ProviderAccount) int64 { return pa.ProviderID })
		out = make([]ProviderRelation, 0, len(providers))
		for _, p := range providers {
			out = append(out, ProviderRelation{Provider: p, ProviderAccounts: byParent[p.ID]})
		}
		return nil
	})
	return out, err
}

func (s *Store) providerAccountRelations(db *gorm.DB, scopes []Scope) ([]ProviderAccountRelation, error) {
	var out []ProviderAccountRelation
	err := db.Transaction(func(tx *gorm.DB) error {
		pas, err := s.ProviderAccounts.find(tx, scopes...)
		if err != nil {
			return err
		}
		providerIDs := make([]int64, len(pas))
		for i, pa := range pas {
			providerIDs[i] = pa.ProviderID
		}
		providers, err := s.Providers.find(tx, inColumn("id", Distinct(providerIDs)))
		if err != nil {
			return err
		}
		accounts, err := s.Accounts.find(tx, inColumn("provider_account_id", models.IDs(pas)))
		if err != nil {
			return err
		}
		providerByID := indexBy(providers)
		byParent := groupBy(accounts, func(a models.Account) int64 { return a.ProviderAccountID })
		out = make([]ProviderAccountRelation, 0, len(pas))
		for _, pa := range pas {
			out = append(out, ProviderAccountRelation{
				ProviderAccount: pa,
				Provider:        providerByID[pa.ProviderID],
				Accounts:        byParent[pa.ID],
			})
		}
		return nil
	})
	return out, err
}

func (s *Store) accountRelations(db *gorm.DB, scopes []Scope) ([]AccountRelation, error) {
	var out []AccountRelation
	err := db.Transaction(func(tx *gorm.DB) error {
		accounts, err := s.Accounts.find(tx, scopes...)
		if err != nil {
			return err
		}
		paIDs := make([]int64, len(accounts))
		for i, a := range accounts {
			paIDs[i] = a.ProviderAccountID
		}
		pas, err := s.ProviderAccounts.find(tx, inColumn("id", Distinct(paIDs)))
		if err != nil {
			return err
		}
		txns, err := s.Transactions.find(tx, inColumn("account_id", models.IDs(accounts)))
		if err != nil {
			return err
		}
		paByID := indexBy(pas)
		byParent := groupBy(txns, func(t models.Transaction) int64 { return t.AccountID })
		out = make([]AccountRelation, 0, len(accounts))
		for _, a := range accounts {
			out = append(out, AccountRelation{
				Account:         a,
				ProviderAccount: paByID[a.ProviderAccountID],
				Transactions:    byParent[a.ID],
			})
		}
		return nil
	})
	return out, err
}

func (s *Store) transactionRelations(db *gorm.DB, scopes []Scope) ([]TransactionRelation, error) {
	var out []TransactionRelation
	err := db.Transaction(func(tx *gorm.DB) error {
		txns, err := s.Transactions.find(tx, scopes...)
		if err != nil {
			return err
		}
		var accountIDs, merchantIDs, categoryIDs []int64
		for _, t := range txns {
			accountIDs = append(accountIDs, t.AccountID)
			merchantIDs = append(merchantIDs, t.MerchantID)
			categoryIDs = append(categoryIDs, t.CategoryID)
		}
		accounts, err := s.Accounts.find(tx, inColumn("id", Distinct(accountIDs)))
		if err != nil {
			return err
		}
		merchants, err := s.Merchants.find(tx, inColumn("id", Distinct(merchantIDs)))
		if err != nil {
			return err
		}
		categories, err := s.Categories.find(tx, inColumn("id", Distinct(categoryIDs)))
		if err != nil {
			return err
		}
		accountByID := indexBy(accounts)
		merchantByID := indexBy(merchants)
		categoryByID := indexBy(categories)
		out = make([]TransactionRelation, 0, len(txns))
		for _, t := range txns {
			out = append(out, TransactionRelation{
				Transaction: t,
				Account:     accountByID[t.AccountID],
				Merchant:    merchantByID[t.MerchantID],
				Category:    categoryByID[t.CategoryID],
			})
		}
		return nil
	})
	return out, err
}

// inColumn matches rows whose column is one of values. An empty list matches nothing.
func inColumn(column string, values []int64) Scope {
	return func(db *gorm.DB) *gorm.DB {
		if len(values) == 0 {
			return db.Where("1 = 0")
		}
		return db.Where(column+" IN ?", values)
	}
}

func indexBy[T models.Entity](rows []T) map[int64]*T {
	m := make(map[int64]*T, len(rows))
	for i := range rows {
		m[rows[i].PrimaryKey()] = &rows[i]
	}
	return m
}

func groupBy[T any](rows []T, key func(T) int64) map[int64][]T {
	m := make(map[int64][]T)
	for _, r := range rows {
		k := key(r)
		m[k] = append(m[k], r)
	}
	return m
}

func first[T any](rows []T, err error) (*T, error) {
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return &rows[0], nil
}
