package services

import (
	"context"
	"time"

	"github.com/kuberan/ledgersync/internal/models"
	"github.com/kuberan/ledgersync/internal/store"
)

// ProviderServicer defines the contract for provider reconciliation and reads.
type ProviderServicer interface {
	RefreshProviders(ctx context.Context) error
	RefreshProvider(ctx context.Context, id int64) error
	Providers(ctx context.Context, scopes ...store.Scope) *store.Live[[]models.Provider]
	Provider(ctx context.Context, id int64) *store.Live[*models.Provider]
	ProvidersWithRelation(ctx context.Context, scopes ...store.Scope) *store.Live[[]store.ProviderRelation]
	ProviderWithRelation(ctx context.Context, id int64) *store.Live[*store.ProviderRelation]
}

// ProviderAccountServicer defines the contract for provider account reconciliation,
// linking and reads.
type ProviderAccountServicer interface {
	RefreshProviderAccounts(ctx context.Context) error
	RefreshProviderAccount(ctx context.Context, id int64) error
	CreateProviderAccount(ctx context.Context, providerID int64, form models.LoginForm) (*models.ProviderAccount, error)
	UpdateProviderAccount(ctx context.Context, id int64, form models.LoginForm) (*models.ProviderAccount, error)
	DeleteProviderAccount(ctx context.Context, id int64) error
	ProviderAccounts(ctx context.Context, scopes ...store.Scope) *store.Live[[]models.ProviderAccount]
	ProviderAccount(ctx context.Context, id int64) *store.Live[*models.ProviderAccount]
	ProviderAccountsWithRelation(ctx context.Context, scopes ...store.Scope) *store.Live[[]store.ProviderAccountRelation]
	ProviderAccountWithRelation(ctx context.Context, id int64) *store.Live[*store.ProviderAccountRelation]
}

// AccountServicer defines the contract for account reconciliation, updates and reads.
type AccountServicer interface {
	RefreshAccounts(ctx context.Context) error
	RefreshAccount(ctx context.Context, id int64) error
	UpdateAccount(ctx context.Context, id int64, update models.AccountUpdate) (*models.Account, error)
	Accounts(ctx context.Context, scopes ...store.Scope) *store.Live[[]models.Account]
	Account(ctx context.Context, id int64) *store.Live[*models.Account]
	AccountsWithRelation(ctx context.Context, scopes ...store.Scope) *store.Live[[]store.AccountRelation]
	AccountWithRelation(ctx context.Context, id int64) *store.Live[*store.AccountRelation]
}

// TransactionFilter scopes a transaction refresh. Both dates are inclusive; an
// empty AccountIDs means every account.
type TransactionFilter struct {
	FromDate   time.Time
	ToDate     time.Time
	AccountIDs []int64
}

// TransactionServicer defines the contract for transaction reconciliation,
// updates and reads.
type TransactionServicer interface {
	RefreshTransactions(ctx context.Context, filter TransactionFilter) error
	RefreshTransactionsByIDs(ctx context.Context, ids []int64) error
	RefreshTransaction(ctx context.Context, id int64) error
	UpdateTransaction(ctx context.Context, id int64, update models.TransactionUpdate) (*models.Transaction, error)
	Transactions(ctx context.Context, scopes ...store.Scope) *store.Live[[]models.Transaction]
	Transaction(ctx context.Context, id int64) *store.Live[*models.Transaction]
	TransactionsWithRelation(ctx context.Context, scopes ...store.Scope) *store.Live[[]store.TransactionRelation]
	TransactionWithRelation(ctx context.Context, id int64) *store.Live[*store.TransactionRelation]
}

// MerchantServicer defines the contract for merchant reconciliation and reads.
type MerchantServicer interface {
	RefreshMerchants(ctx context.Context) error
	RefreshMerchant(ctx context.Context, id int64) error
	RefreshMerchantsByIDs(ctx context.Context, ids []int64) error
	Merchants(ctx context.Context, scopes ...store.Scope) *store.Live[[]models.Merchant]
	Merchant(ctx context.Context, id int64) *store.Live[*models.Merchant]
}

// CategoryServicer defines the contract for transaction category reconciliation and reads.
type CategoryServicer interface {
	RefreshTransactionCategories(ctx context.Context) error
	TransactionCategories(ctx context.Context, scopes ...store.Scope) *store.Live[[]models.TransactionCategory]
	TransactionCategory(ctx context.Context, id int64) *store.Live[*models.TransactionCategory]
}

// MessageFilter narrows message reads. A nil Read matches both states.
type MessageFilter struct {
	Types []string
	Read  *bool
}

// MessageServicer defines the contract for message reconciliation, updates and reads.
type MessageServicer interface {
	RefreshMessages(ctx context.Context) error
	RefreshUnreadMessages(ctx context.Context) error
	RefreshMessage(ctx context.Context, id int64) error
	UpdateMessage(ctx context.Context, id int64, update models.MessageUpdate) (*models.Message, error)
	Messages(ctx context.Context, filter MessageFilter) *store.Live[[]models.Message]
	Message(ctx context.Context, id int64) *store.Live[*models.Message]
}
