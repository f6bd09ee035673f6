// Package testutil provides test helpers for setting up in-memory stores,
// building fixtures, faking the remote API and making assertions.
package testutil

import (
	"testing"

	"github.com/kuberan/ledgersync/internal/database"
	"github.com/kuberan/ledgersync/internal/logger"
	"github.com/kuberan/ledgersync/internal/store"
)

// SetupTestStore creates an in-memory SQLite cache private to t with all
// models migrated. The database is closed when the test ends.
func SetupTestStore(t *testing.T) *store.Store {
	t.Helper()

	m, err := database.NewManager(&database.Config{Name: t.Name()}, logger.Nop())
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := m.Migrate(); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	t.Cleanup(func() {
		if err := m.Close(); err != nil {
			t.Errorf("failed to close test database: %v", err)
		}
	})

	return store.New(m.DB(), logger.Nop())
}
