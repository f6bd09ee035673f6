package services

import (
	"context"
	"fmt"
	"net/url"

	apperrors "github.com/kuberan/ledgersync/internal/errors"
	"github.com/kuberan/ledgersync/internal/models"
	"github.com/kuberan/ledgersync/internal/store"
	"github.com/kuberan/ledgersync/internal/validator"
)

// transactionService reconciles transactions and resolves their merchants and
// categories.
type transactionService struct {
	sy *Syncer
}

// NewTransactionService creates a new TransactionServicer.
func NewTransactionService(sy *Syncer) TransactionServicer {
	return &transactionService{sy: sy}
}

// RefreshTransactions fetches the transactions in filter's date range and
// accounts. Only cached transactions inside that same range and those accounts
// are candidates for eviction.
func (s *transactionService) RefreshTransactions(ctx context.Context, filter TransactionFilter) error {
	if filter.FromDate.IsZero() || filter.ToDate.IsZero() {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "Transaction refresh needs both a from and a to date")
	}
	if filter.ToDate.Before(filter.FromDate) {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "Transaction refresh range ends before it starts")
	}

	from := filter.FromDate.Format(models.TransactionDateFormat)
	to := filter.ToDate.Format(models.TransactionDateFormat)
	accountIDs := store.Distinct(filter.AccountIDs)

	query := url.Values{"from_date": {from}, "to_date": {to}}
	if len(accountIDs) > 0 {
		query.Set("account_ids", joinIDs(accountIDs))
	}
	rows, err := reconcile(ctx, s.sy, s.sy.store.Transactions, fetch{
		family: "transactions",
		path:   pathTransactions,
		query:  query,
		evict:  true,
		scopes: []store.Scope{store.TransactionsBetween(from, to, accountIDs)},
	})
	s.resolve(ctx, rows)
	return err
}

// RefreshTransactionsByIDs upserts specific transactions without evicting any.
func (s *transactionService) RefreshTransactionsByIDs(ctx context.Context, ids []int64) error {
	var rows []models.Transaction
	for _, batch := range batches(store.Distinct(ids), idBatchSize) {
		page, err := reconcile(ctx, s.sy, s.sy.store.Transactions, fetch{
			family: "transactions",
			path:   pathTransactions,
			query:  url.Values{"transaction_ids": {joinIDs(batch)}},
		})
		rows = append(rows, page...)
		if err != nil {
			s.resolve(ctx, rows)
			return err
		}
	}
	s.resolve(ctx, rows)
	return nil
}

func (s *transactionService) RefreshTransaction(ctx context.Context, id int64) error {
	row, err := fetchOne(ctx, s.sy, s.sy.store.Transactions, "transactions", fmt.Sprintf("%s/%d", pathTransactions, id))
	if err != nil {
		return err
	}
	s.resolve(ctx, []models.Transaction{row})
	return nil
}

// UpdateTransaction recategorises or annotates a transaction.
func (s *transactionService) UpdateTransaction(ctx context.Context, id int64, update models.TransactionUpdate) (*models.Transaction, error) {
	if err := validator.Struct(update); err != nil {
		return nil, err
	}
	var tx models.Transaction
	if err := s.sy.client.Put(ctx, fmt.Sprintf("%s/%d", pathTransactions, id), update, &tx); err != nil {
		return nil, err
	}
	if err := s.sy.store.Transactions.Insert(ctx, tx); err != nil {
		return nil, err
	}
	s.resolve(ctx, []models.Transaction{tx})
	return &tx, nil
}

func (s *transactionService) Transactions(ctx context.Context, scopes ...store.Scope) *store.Live[[]models.Transaction] {
	return s.sy.store.Transactions.Load(ctx, scopes...)
}

func (s *transactionService) Transaction(ctx context.Context, id int64) *store.Live[*models.Transaction] {
	return s.sy.store.Transactions.LoadByID(ctx, id)
}

func (s *transactionService) TransactionsWithRelation(ctx context.Context, scopes ...store.Scope) *store.Live[[]store.TransactionRelation] {
	return s.sy.store.TransactionsWithRelation(ctx, scopes...)
}

func (s *transactionService) TransactionWithRelation(ctx context.Context, id int64) *store.Live[*store.TransactionRelation] {
	return s.sy.store.TransactionWithRelation(ctx, id)
}

// resolve fetches the merchants and categories rows point at but the cache
// lacks.
func (s *transactionService) resolve(ctx context.Context, rows []models.Transaction) {
	if len(rows) == 0 {
		return
	}
	merchants := make([]int64, 0, len(rows))
	categories := make([]int64, 0, len(rows))
	for _, r := range rows {
		merchants = append(merchants, r.MerchantID)
		categories = append(categories, r.CategoryID)
	}
	s.sy.resolveMerchants(ctx, merchants)
	s.sy.resolveCategories(ctx, categories)
}
