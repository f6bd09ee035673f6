package auth

import (
	stderrors "errors"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/kuberan/ledgersync/internal/errors"
	"github.com/kuberan/ledgersync/internal/keystore"
	"github.com/kuberan/ledgersync/internal/logger"
	"github.com/kuberan/ledgersync/internal/prefs"
)

// Preference keys owned by the token store.
const (
	KeyAccessToken       = "access_token"
	KeyRefreshToken      = "refresh_token"
	KeyAccessTokenExpiry = "access_token_expiry"
	KeyLoggedIn          = "logged_in"
)

// TokenStore persists the token set through the keystore and keeps a decrypted
// in-memory mirror. Writes replace every key in one preference transaction.
type TokenStore struct {
	mu       sync.RWMutex
	prefs    prefs.Preferences
	keystore keystore.Keystore
	token    Token
	loggedIn bool
	log      *zap.SugaredLogger
}

// NewTokenStore loads any persisted tokens. Values that fail to decrypt are
// treated as absent.
func NewTokenStore(p prefs.Preferences, ks keystore.Keystore, log *zap.SugaredLogger) *TokenStore {
	if log == nil {
		log = logger.Nop()
	}
	s := &TokenStore{prefs: p, keystore: ks, log: log}
	s.token = Token{
		AccessToken:  s.readSecret(KeyAccessToken),
		RefreshToken: s.readSecret(KeyRefreshToken),
		Expiry:       s.readExpiry(),
	}
	if raw, err := p.Get(KeyLoggedIn); err == nil {
		s.loggedIn = string(raw) == "true"
	}
	return s
}

// Read returns the current token and whether any credential is held.
func (s *TokenStore) Read() (Token, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, s.token.AccessToken != "" || s.token.RefreshToken != ""
}

// LoggedIn reports whether a login completed and no logout happened since.
func (s *TokenStore) LoggedIn() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loggedIn
}

// Write atomically replaces the persisted token set and marks the session logged in.
func (s *TokenStore) Write(t Token) error {
	access, err := s.encrypt(t.AccessToken)
	if err != nil {
		return err
	}
	refresh, err := s.encrypt(t.RefreshToken)
	if err != nil {
		return err
	}
	var expiry []byte
	if !t.Expiry.IsZero() {
		expiry = []byte(strconv.FormatInt(t.Expiry.Unix(), 10))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	err = s.prefs.SetMany(map[string][]byte{
		KeyAccessToken:       access,
		KeyRefreshToken:      refresh,
		KeyAccessTokenExpiry: expiry,
		KeyLoggedIn:          []byte("true"),
	})
	if err != nil {
		return apperrors.Wrap(apperrors.ErrDatabase, err)
	}
	s.token = Token{AccessToken: t.AccessToken, RefreshToken: t.RefreshToken, Expiry: t.Expiry.Truncate(time.Second)}
	s.loggedIn = true
	return nil
}

// Clear removes every persisted token key.
func (s *TokenStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.prefs.Delete(KeyAccessToken, KeyRefreshToken, KeyAccessTokenExpiry, KeyLoggedIn); err != nil {
		return apperrors.Wrap(apperrors.ErrDatabase, err)
	}
	s.token = Token{}
	s.loggedIn = false
	return nil
}

func (s *TokenStore) encrypt(secret string) ([]byte, error) {
	if secret == "" {
		return nil, nil
	}
	return s.keystore.Encrypt([]byte(secret))
}

func (s *TokenStore) readSecret(key string) string {
	raw, err := s.prefs.Get(key)
	if err != nil {
		if !stderrors.Is(err, prefs.ErrNotFound) {
			s.log.Warnw("reading token preference failed", "key", key, "error", err)
		}
		return ""
	}
	if len(raw) == 0 {
		return ""
	}
	plain, err := s.keystore.Decrypt(raw)
	if err != nil {
		s.log.Warnw("decrypting token failed, treating as absent", "key", key, "error", err)
		return ""
	}
	return string(plain)
}

func (s *TokenStore) readExpiry() time.Time {
	raw, err := s.prefs.Get(KeyAccessTokenExpiry)
	if err != nil || len(raw) == 0 {
		return time.Time{}
	}
	secs, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(secs, 0)
}
