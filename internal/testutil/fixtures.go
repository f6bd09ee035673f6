package testutil

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/kuberan/ledgersync/internal/models"
	"github.com/kuberan/ledgersync/internal/store"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

// NextID returns a fresh positive id.
func NextID() int64 {
	return counter.Add(1) + 100000
}

// Provider builds a provider fixture.
func Provider(id int64, status models.ProviderStatus) models.Provider {
	return models.Provider{
		ID:             id,
		Name:           fmt.Sprintf("Provider %d", id),
		SmallLogoURL:   fmt.Sprintf("https://cdn.example.com/providers/%d.png", id),
		Status:         status,
		ContainerNames: []string{"bank", "credit_card"},
		AuthType:       "credentials",
	}
}

// ProviderAccount builds a provider account fixture.
func ProviderAccount(id, providerID int64) models.ProviderAccount {
	return models.ProviderAccount{
		ID:            id,
		ProviderID:    providerID,
		Editable:      true,
		RefreshStatus: models.RefreshStatusSuccess,
		LastRefreshed: "2024-05-01T10:00:00Z",
	}
}

// Account builds an account fixture.
func Account(id, providerAccountID int64) models.Account {
	return models.Account{
		ID:                id,
		ProviderAccountID: providerAccountID,
		AccountName:       fmt.Sprintf("Account %d", id),
		AccountStatus:     "active",
		AccountType:       models.AccountTypeBank,
		Container:         "bank",
		CurrentBalance:    decimal.RequireFromString("1042.50"),
		Currency:          "AUD",
		Included:          true,
	}
}

// Transaction builds a transaction fixture dated date.
func Transaction(id, accountID, merchantID, categoryID int64, date string) models.Transaction {
	return models.Transaction{
		ID:                  id,
		AccountID:           accountID,
		MerchantID:          merchantID,
		CategoryID:          categoryID,
		BaseType:            models.TransactionBaseTypeDebit,
		Status:              "posted",
		Amount:              decimal.RequireFromString("-12.35"),
		Currency:            "AUD",
		OriginalDescription: fmt.Sprintf("PURCHASE %d", id),
		TransactionDate:     date,
		PostDate:            date,
		Included:            true,
		BudgetCategory:      string(models.BudgetCategoryLiving),
	}
}

// Merchant builds a merchant fixture.
func Merchant(id int64) models.Merchant {
	return models.Merchant{ID: id, Name: fmt.Sprintf("Merchant %d", id), MerchantType: "retailer"}
}

// Category builds a transaction category fixture.
func Category(id int64) models.TransactionCategory {
	return models.TransactionCategory{
		ID:                    id,
		Name:                  fmt.Sprintf("Category %d", id),
		CategoryType:          "expense",
		DefaultBudgetCategory: models.BudgetCategoryLiving,
	}
}

// Message builds a message fixture.
func Message(id int64, read bool, types ...string) models.Message {
	if len(types) == 0 {
		types = []string{"home_nudge"}
	}
	return models.Message{
		ID:           id,
		Event:        "TEST_EVENT",
		Read:         read,
		MessageTypes: types,
		Title:        fmt.Sprintf("Message %d", id),
		ContentType:  "text",
		Content:      "Hello",
	}
}

// Seed upserts rows into table, failing the test on error.
func Seed[T models.Entity](t *testing.T, table *store.Table[T], rows ...T) {
	t.Helper()

	if err := table.InsertAll(context.Background(), rows...); err != nil {
		t.Fatalf("failed to seed %s: %v", table.Name(), err)
	}
}

// SeedHierarchy caches one provider → provider account → account → transaction chain.
func SeedHierarchy(t *testing.T, s *store.Store, providerID, providerAccountID, accountID, transactionID int64) {
	t.Helper()

	Seed(t, s.Providers, Provider(providerID, models.ProviderStatusSupported))
	Seed(t, s.ProviderAccounts, ProviderAccount(providerAccountID, providerID))
	Seed(t, s.Accounts, Account(accountID, providerAccountID))
	Seed(t, s.Transactions, Transaction(transactionID, accountID, 0, 0, "2024-05-02"))
}
