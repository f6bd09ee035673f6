package testutil

import (
	"testing"

	"github.com/kuberan/ledgersync/internal/keystore"
	"github.com/kuberan/ledgersync/internal/logger"
	"github.com/kuberan/ledgersync/internal/prefs"
)

// SetupPrefs opens an in-memory preference store closed when the test ends.
func SetupPrefs(t *testing.T) *prefs.Badger {
	t.Helper()

	p, err := prefs.OpenInMemory(logger.Nop())
	if err != nil {
		t.Fatalf("failed to open preferences: %v", err)
	}
	t.Cleanup(func() { _ = p.Close() })
	return p
}

// Keystore returns an AEAD keystore derived from a fixed test secret.
func Keystore(t *testing.T) *keystore.AEAD {
	t.Helper()

	ks, err := keystore.NewAEAD([]byte("ledgersync-test-keystore-secret"), []byte("test-salt"))
	if err != nil {
		t.Fatalf("failed to create keystore: %v", err)
	}
	return ks
}
