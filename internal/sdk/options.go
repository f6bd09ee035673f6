package sdk

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/kuberan/ledgersync/internal/keystore"
	"github.com/kuberan/ledgersync/internal/prefs"
)

// Option customises a Session.
type Option func(*options)

type options struct {
	log       *zap.SugaredLogger
	transport http.RoundTripper
	prefs     prefs.Preferences
	keystore  keystore.Keystore
	inMemory  bool
	now       func() time.Time
}

// WithLogger replaces the logger built from the config.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(o *options) { o.log = log }
}

// WithBaseTransport sets the innermost round tripper of the API transport chain.
func WithBaseTransport(rt http.RoundTripper) Option {
	return func(o *options) { o.transport = rt }
}

// WithPreferences uses p instead of opening the preference store in the data
// directory. The Session does not close p.
func WithPreferences(p prefs.Preferences) Option {
	return func(o *options) { o.prefs = p }
}

// WithKeystore replaces the keystore derived from the configured secret.
func WithKeystore(ks keystore.Keystore) Option {
	return func(o *options) { o.keystore = ks }
}

// WithInMemoryCache keeps the relational cache in memory.
func WithInMemoryCache() Option {
	return func(o *options) { o.inMemory = true }
}

// WithClock replaces time.Now for tier date ranges and throttling.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}
