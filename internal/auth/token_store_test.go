package auth

import (
	"testing"
	"time"

	"github.com/kuberan/ledgersync/internal/keystore"
	"github.com/kuberan/ledgersync/internal/testutil"
)

func TestTokenStore_WriteReadPersist(t *testing.T) {
	p := testutil.SetupPrefs(t)
	ks := testutil.Keystore(t)
	s := NewTokenStore(p, ks, nil)

	if _, ok := s.Read(); ok {
		t.Fatal("expected empty store")
	}

	expiry := time.Now().Add(time.Hour)
	if err := s.Write(Token{AccessToken: "access", RefreshToken: "refresh", Expiry: expiry}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	raw, err := p.Get(KeyAccessToken)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(raw) == "access" {
		t.Error("access token persisted in plain text")
	}

	reopened := NewTokenStore(p, ks, nil)
	got, ok := reopened.Read()
	if !ok {
		t.Fatal("expected persisted token")
	}
	if got.AccessToken != "access" || got.RefreshToken != "refresh" {
		t.Errorf("unexpected token %+v", got)
	}
	if got.Expiry.Unix() != expiry.Unix() {
		t.Errorf("expected expiry %v, got %v", expiry, got.Expiry)
	}
	if !reopened.LoggedIn() {
		t.Error("expected logged in")
	}
}

func TestTokenStore_Clear(t *testing.T) {
	p := testutil.SetupPrefs(t)
	s := NewTokenStore(p, testutil.Keystore(t), nil)
	if err := s.Write(Token{AccessToken: "a", RefreshToken: "r"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := s.Clear(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := s.Read(); ok {
		t.Error("expected no token after clear")
	}
	if s.LoggedIn() {
		t.Error("expected logged out after clear")
	}
	if _, ok := NewTokenStore(p, testutil.Keystore(t), nil).Read(); ok {
		t.Error("expected nothing persisted after clear")
	}
}

func TestTokenStore_UndecryptableReadsAbsent(t *testing.T) {
	p := testutil.SetupPrefs(t)
	if err := NewTokenStore(p, testutil.Keystore(t), nil).Write(Token{AccessToken: "a", RefreshToken: "r"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	other, err := keystore.NewAEAD([]byte("a-different-secret-entirely"), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := NewTokenStore(p, other, nil).Read(); ok {
		t.Error("expected tokens sealed under another key to read as absent")
	}
}
