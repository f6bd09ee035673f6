package sdk

import (
	"context"
	"time"

	"github.com/kuberan/ledgersync/internal/models"
	"github.com/kuberan/ledgersync/internal/services"
	"github.com/kuberan/ledgersync/internal/store"
)

// Counts returns the number of cached rows per table.
func (s *Session) Counts(ctx context.Context) (map[string]int64, error) {
	return s.store.Counts(ctx)
}

// CachedAccounts returns a snapshot of the cached accounts.
func (s *Session) CachedAccounts(ctx context.Context) ([]models.Account, error) {
	return s.store.Accounts.List(ctx)
}

// CachedTransactions returns a snapshot of cached transactions dated between
// from and to inclusive, limited to accountIDs when given.
func (s *Session) CachedTransactions(ctx context.Context, from, to time.Time, accountIDs []int64) ([]models.Transaction, error) {
	return s.store.Transactions.List(ctx, store.TransactionsBetween(
		from.Format(models.TransactionDateFormat), to.Format(models.TransactionDateFormat), accountIDs))
}

// CachedMessages returns a snapshot of the cached messages matching filter.
func (s *Session) CachedMessages(ctx context.Context, filter services.MessageFilter) ([]models.Message, error) {
	return s.store.Messages.List(ctx, store.MessagesFilter(filter.Types, filter.Read))
}

// MarkMessageRead marks a message read on the host and in the cache.
func (s *Session) MarkMessageRead(ctx context.Context, id int64) (*models.Message, error) {
	return s.messages.UpdateMessage(ctx, id, models.MessageUpdate{Read: true})
}
