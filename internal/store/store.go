// Package store is the relational cache of server records. All writes go through
// a Store so that they are serialized and observers are notified after commit.
package store

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"gorm.io/gorm"

	apperrors "github.com/kuberan/ledgersync/internal/errors"
	"github.com/kuberan/ledgersync/internal/logger"
	"github.com/kuberan/ledgersync/internal/models"
)

// Table names, used to describe which tables a live query depends on.
const (
	TableProviders        = "providers"
	TableProviderAccounts = "provider_accounts"
	TableAccounts         = "accounts"
	TableTransactions     = "transactions"
	TableMerchants        = "merchants"
	TableCategories       = "transaction_categories"
	TableMessages         = "messages"
	TableUsers            = "users"
)

// inChunk bounds the number of bound parameters in a single IN clause.
const inChunk = 500

// Scope narrows a query. It is applied with gorm's Scopes.
type Scope = func(*gorm.DB) *gorm.DB

// Store owns the cache tables.
type Store struct {
	db  *gorm.DB
	mu  sync.Mutex
	hub *hub
	log *zap.SugaredLogger

	Providers        *Table[models.Provider]
	ProviderAccounts *Table[models.ProviderAccount]
	Accounts         *Table[models.Account]
	Transactions     *Table[models.Transaction]
	Merchants        *Table[models.Merchant]
	Categories       *Table[models.TransactionCategory]
	Messages         *Table[models.Message]
	Users            *Table[models.User]
}

// New wraps a migrated database.
func New(db *gorm.DB, log *zap.SugaredLogger) *Store {
	if log == nil {
		log = logger.Nop()
	}
	s := &Store{db: db, hub: newHub(), log: log}

	s.Providers = newTable[models.Provider](s, "name ASC, id ASC")
	s.Providers.evictable = func(db *gorm.DB) *gorm.DB {
		return db.Where("status NOT IN ?", models.ProtectedProviderStatuses)
	}
	s.Providers.remove = deleteProviders
	s.Providers.touches = []string{TableProviders, TableProviderAccounts, TableAccounts, TableTransactions}

	s.ProviderAccounts = newTable[models.ProviderAccount](s, "id ASC")
	s.ProviderAccounts.remove = deleteProviderAccounts
	s.ProviderAccounts.touches = []string{TableProviderAccounts, TableAccounts, TableTransactions}

	s.Accounts = newTable[models.Account](s, "id ASC")
	s.Accounts.remove = deleteAccounts
	s.Accounts.touches = []string{TableAccounts, TableTransactions}

	s.Transactions = newTable[models.Transaction](s, "transaction_date DESC, id DESC")
	s.Merchants = newTable[models.Merchant](s, "id ASC")
	s.Categories = newTable[models.TransactionCategory](s, "id ASC")
	s.Messages = newTable[models.Message](s, "id DESC")
	s.Users = newTable[models.User](s, "id ASC")
	return s
}

// DB exposes the underlying handle for read-only use.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// write runs fn in a transaction while holding the write lock and notifies
// observers of tables once the transaction has committed.
func (s *Store) write(ctx context.Context, tables []string, fn func(tx *gorm.DB) error) error {
	s.mu.Lock()
	err := s.db.WithContext(ctx).Transaction(fn)
	s.mu.Unlock()
	if err != nil {
		return apperrors.Wrap(apperrors.ErrDatabase, err)
	}
	s.hub.publish(tables...)
	return nil
}

// ClearAll empties every table in one transaction.
func (s *Store) ClearAll(ctx context.Context) error {
	all := []string{
		TableTransactions, TableAccounts, TableProviderAccounts, TableProviders,
		TableMerchants, TableCategories, TableMessages, TableUsers,
	}
	return s.write(ctx, all, func(tx *gorm.DB) error {
		for _, name := range all {
			if err := tx.Exec("DELETE FROM " + name).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Counts returns the number of cached rows per table.
func (s *Store) Counts(ctx context.Context) (map[string]int64, error) {
	names := []string{
		TableProviders, TableProviderAccounts, TableAccounts, TableTransactions,
		TableMerchants, TableCategories, TableMessages, TableUsers,
	}
	counts := make(map[string]int64, len(names))
	for _, name := range names {
		var n int64
		if err := s.db.WithContext(ctx).Table(name).Count(&n).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrDatabase, err)
		}
		counts[name] = n
	}
	return counts, nil
}

// deleteProviders removes providers and everything aggregated through them,
// children first so that no reader can see an orphan inside the transaction.
func deleteProviders(tx *gorm.DB, ids []int64) error {
	var children []int64
	if err := pluckIn(tx.Model(&models.ProviderAccount{}), "provider_id", ids, &children); err != nil {
		return err
	}
	if err := deleteProviderAccounts(tx, children); err != nil {
		return err
	}
	return deleteIn[models.Provider](tx, "id", ids)
}

func deleteProviderAccounts(tx *gorm.DB, ids []int64) error {
	var children []int64
	if err := pluckIn(tx.Model(&models.Account{}), "provider_account_id", ids, &children); err != nil {
		return err
	}
	if err := deleteAccounts(tx, children); err != nil {
		return err
	}
	return deleteIn[models.ProviderAccount](tx, "id", ids)
}

func deleteAccounts(tx *gorm.DB, ids []int64) error {
	if err := deleteIn[models.Transaction](tx, "account_id", ids); err != nil {
		return err
	}
	return deleteIn[models.Account](tx, "id", ids)
}

func deleteIn[T any](tx *gorm.DB, column string, ids []int64) error {
	for _, chunk := range chunks(ids) {
		if err := tx.Where(column+" IN ?", chunk).Delete(new(T)).Error; err != nil {
			return err
		}
	}
	return nil
}

// pluckIn collects ids of rows whose column is in values.
func pluckIn(model *gorm.DB, column string, values []int64, dest *[]int64) error {
	for _, chunk := range chunks(values) {
		var part []int64
		if err := model.Session(&gorm.Session{}).Where(column+" IN ?", chunk).Pluck("id", &part).Error; err != nil {
			return err
		}
		*dest = append(*dest, part...)
	}
	return nil
}

func chunks(ids []int64) [][]int64 {
	var out [][]int64
	for len(ids) > 0 {
		n := min(len(ids), inChunk)
		out = append(out, ids[:n])
		ids = ids[n:]
	}
	return out
}
