// Package sdk assembles the ledgersync components into a Session: one logged in
// user, their cached data and the background refresh schedule.
package sdk

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kuberan/ledgersync/internal/api"
	"github.com/kuberan/ledgersync/internal/auth"
	"github.com/kuberan/ledgersync/internal/config"
	"github.com/kuberan/ledgersync/internal/database"
	apperrors "github.com/kuberan/ledgersync/internal/errors"
	"github.com/kuberan/ledgersync/internal/keystore"
	"github.com/kuberan/ledgersync/internal/logger"
	"github.com/kuberan/ledgersync/internal/models"
	"github.com/kuberan/ledgersync/internal/prefs"
	"github.com/kuberan/ledgersync/internal/scheduler"
	"github.com/kuberan/ledgersync/internal/services"
	"github.com/kuberan/ledgersync/internal/store"
)

// Version is reported in the User-Agent of API requests.
const Version = "0.4.0"

// Session owns every component for one user. Create it with New and release it
// with Close.
type Session struct {
	cfg *config.Config
	log *zap.SugaredLogger
	now func() time.Time

	db         *database.Manager
	store      *store.Store
	prefs      prefs.Preferences
	closePrefs func() error

	tokens    *auth.TokenStore
	refresher *auth.Refresher
	status    *auth.StatusBroadcaster
	auth      *auth.Authentication
	client    *api.Client
	scheduler *scheduler.Scheduler

	providers        services.ProviderServicer
	providerAccounts services.ProviderAccountServicer
	accounts         services.AccountServicer
	transactions     services.TransactionServicer
	merchants        services.MerchantServicer
	categories       services.CategoryServicer
	messages         services.MessageServicer

	mu              sync.Mutex
	lastUserRefresh time.Time
}

// New opens the cache and preferences and wires the API stack. A session that
// was logged in when last closed is logged in again.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Session, error) {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	log := o.log
	if log == nil {
		l, err := logger.New(cfg.Env, cfg.LogLevel)
		if err != nil {
			return nil, err
		}
		log = l
	}
	s := &Session{cfg: cfg, log: log, now: o.now}

	dbConfig := &database.Config{Path: cfg.DatabasePath()}
	if o.inMemory {
		dbConfig = &database.Config{Name: "session-" + uuid.NewString()}
	}
	db, err := database.NewManager(dbConfig, log)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	s.db = db
	s.store = store.New(db.DB(), log)

	s.prefs = o.prefs
	if s.prefs == nil {
		p, err := prefs.Open(cfg.PreferencesDir(), log)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("opening preferences: %w", err)
		}
		s.prefs = p
		s.closePrefs = p.Close
	}

	ks := o.keystore
	if ks == nil {
		aead, err := keystore.NewAEAD([]byte(cfg.KeystoreSecret), []byte(cfg.ClientID))
		if err != nil {
			_ = s.closeStorage()
			return nil, err
		}
		ks = aead
	}

	base := api.NewTransport(o.transport, api.TransportConfig{
		Timeout:           cfg.RequestTimeout,
		RequestsPerSecond: cfg.RequestsPerSecond,
		UserAgent:         "ledgersync/" + Version,
		Breaker:           api.DefaultBreakerConfig("api"),
	}, log)
	oauth := auth.NewOAuthClient(cfg.TokenURL, cfg.ClientID, api.NewHTTPClient(base, cfg.RequestTimeout))

	s.tokens = auth.NewTokenStore(s.prefs, ks, log)
	initial := auth.StatusLoggedOut
	if s.tokens.LoggedIn() {
		initial = auth.StatusLoggedIn
	}
	s.status = auth.NewStatusBroadcaster(initial)
	s.refresher = auth.NewRefresher(s.tokens, oauth, s.forcedLogout, log)

	authed := api.NewAuthTransport(base, s.refresher, log,
		api.WithLeeway(cfg.TokenLeeway),
		api.WithPublicPaths(auth.PathRegister, auth.PathReset),
	)
	client, err := api.NewClient(cfg.ServerURL, api.NewHTTPClient(authed, cfg.RequestTimeout), log)
	if err != nil {
		_ = s.closeStorage()
		return nil, err
	}
	s.client = client
	s.auth = auth.NewAuthentication(client, oauth, s.tokens, s.store.Users, s.status, log)

	sy := services.NewSyncer(client, s.store, log)
	s.providers = services.NewProviderService(sy)
	s.providerAccounts = services.NewProviderAccountService(sy)
	s.accounts = services.NewAccountService(sy)
	s.transactions = services.NewTransactionService(sy)
	s.merchants = services.NewMerchantService(sy)
	s.categories = services.NewCategoryService(sy)
	s.messages = services.NewMessageService(sy)

	s.scheduler = scheduler.New(scheduler.Config{
		Interval:       cfg.RefreshInterval,
		SecondaryDelay: cfg.SecondaryDelay,
		SystemDelay:    cfg.SystemDelay,
	}, scheduler.Tiers{
		Primary:   s.primaryTier,
		Secondary: s.secondaryTier,
		System:    s.systemTier,
	}, log)

	// Tokens that no longer decrypt leave a logged in flag with nothing behind it.
	if _, held := s.tokens.Read(); initial == auth.StatusLoggedIn && !held {
		log.Warnw("stored credentials unreadable, resetting session")
		if err := s.Reset(ctx); err != nil {
			_ = s.Close()
			return nil, err
		}
	}

	log.Infow("session ready", "logged_in", s.status.Current() == auth.StatusLoggedIn, "server", cfg.ServerURL)
	return s, nil
}

// Close stops background refreshes and releases storage.
func (s *Session) Close() error {
	s.scheduler.Pause()
	s.scheduler.Wait()
	return s.closeStorage()
}

func (s *Session) closeStorage() error {
	var errs []error
	if s.closePrefs != nil {
		errs = append(errs, s.closePrefs())
	}
	if s.db != nil {
		errs = append(errs, s.db.Close())
	}
	return errors.Join(errs...)
}

// Login logs the user in and fetches their profile.
func (s *Session) Login(ctx context.Context, email, password string) error {
	if err := s.auth.Login(ctx, email, password); err != nil {
		return err
	}
	s.markUserRefreshed()
	return nil
}

// Register creates the user and logs them in.
func (s *Session) Register(ctx context.Context, reg models.Registration) error {
	if err := s.auth.Register(ctx, reg); err != nil {
		return err
	}
	s.markUserRefreshed()
	return nil
}

// Logout revokes the session on the host, best effort, and resets local state.
func (s *Session) Logout(ctx context.Context) error {
	if !s.LoggedIn() {
		return apperrors.ErrLoggedOut
	}
	s.scheduler.Pause()
	if err := s.auth.Logout(ctx); err != nil {
		s.log.Warnw("remote logout failed, clearing local session anyway", "error", err)
	}
	return s.Reset(ctx)
}

// DeleteUser deletes the user on the host and then resets local state.
func (s *Session) DeleteUser(ctx context.Context) error {
	if !s.LoggedIn() {
		return apperrors.ErrLoggedOut
	}
	if err := s.auth.DeleteUser(ctx); err != nil {
		return err
	}
	return s.Reset(ctx)
}

// Reset stops refreshing, forgets the tokens and preferences, empties the cache
// and tells observers the session is logged out.
func (s *Session) Reset(ctx context.Context) error {
	s.scheduler.Pause()

	var errs []error
	if err := s.tokens.Clear(); err != nil {
		errs = append(errs, err)
	}
	if err := s.prefs.Reset(); err != nil {
		errs = append(errs, apperrors.Wrap(apperrors.ErrDatabase, err))
	}
	if err := s.store.ClearAll(ctx); err != nil {
		errs = append(errs, err)
	}
	s.mu.Lock()
	s.lastUserRefresh = time.Time{}
	s.mu.Unlock()

	s.status.Set(auth.StatusLoggedOut)
	s.log.Infow("session reset")
	return errors.Join(errs...)
}

// forcedLogout runs when the refresh token is rejected. It may run inside a
// scheduler tier, so it must not wait for tiers.
func (s *Session) forcedLogout(ctx context.Context) {
	if s.status.Current() != auth.StatusLoggedIn {
		return
	}
	s.log.Warnw("refresh token rejected, logging out")
	if err := s.Reset(context.WithoutCancel(ctx)); err != nil {
		s.log.Errorw("resetting session after forced logout failed", "error", err)
	}
}

// LoggedIn reports whether a user is logged in.
func (s *Session) LoggedIn() bool {
	return s.status.Current() == auth.StatusLoggedIn
}

// Status returns the authentication status.
func (s *Session) Status() auth.Status {
	return s.status.Current()
}

// SubscribeStatus delivers the current status and every change until cancel is
// called.
func (s *Session) SubscribeStatus() (<-chan auth.Status, func()) {
	return s.status.Subscribe()
}

// RefreshData starts, or restarts, the background refresh schedule.
func (s *Session) RefreshData() error {
	if !s.LoggedIn() {
		return apperrors.ErrLoggedOut
	}
	s.scheduler.Resume()
	return nil
}

// Foregrounded resumes refreshing and refreshes the user profile unless that
// happened within the throttle window. It does nothing when logged out.
func (s *Session) Foregrounded(ctx context.Context) error {
	if !s.LoggedIn() {
		return nil
	}
	s.scheduler.Resume()

	s.mu.Lock()
	due := s.lastUserRefresh.IsZero() || s.now().Sub(s.lastUserRefresh) >= s.cfg.ForegroundThrottle
	s.mu.Unlock()
	if !due {
		return nil
	}
	if _, err := s.auth.RefreshUser(ctx); err != nil {
		return err
	}
	s.markUserRefreshed()
	return nil
}

// Backgrounded stops refreshing.
func (s *Session) Backgrounded() {
	s.scheduler.Pause()
}

// SchedulerState reports whether background refreshes are running.
func (s *Session) SchedulerState() scheduler.State {
	return s.scheduler.State()
}

func (s *Session) markUserRefreshed() {
	s.mu.Lock()
	s.lastUserRefresh = s.now()
	s.mu.Unlock()
}

// primaryTier refreshes what the user looks at most: their logins, accounts,
// recent transactions, profile and unread messages.
func (s *Session) primaryTier(ctx context.Context) error {
	now := s.now()
	from := time.Date(now.Year(), now.Month()-1, 1, 0, 0, 0, 0, now.Location())

	return s.fanOut(ctx,
		s.providerAccounts.RefreshProviderAccounts,
		s.accounts.RefreshAccounts,
		func(ctx context.Context) error {
			return s.transactions.RefreshTransactions(ctx, services.TransactionFilter{FromDate: from, ToDate: now})
		},
		func(ctx context.Context) error {
			if _, err := s.auth.RefreshUser(ctx); err != nil {
				return err
			}
			s.markUserRefreshed()
			return nil
		},
		s.messages.RefreshUnreadMessages,
	)
}

func (s *Session) secondaryTier(ctx context.Context) error {
	return s.messages.RefreshMessages(ctx)
}

// systemTier refreshes reference data shared by every user.
func (s *Session) systemTier(ctx context.Context) error {
	return s.fanOut(ctx,
		s.providers.RefreshProviders,
		s.categories.RefreshTransactionCategories,
		s.merchants.RefreshMerchants,
	)
}

// fanOut runs every refresh concurrently and joins their errors. One failing
// family does not stop the others.
func (s *Session) fanOut(ctx context.Context, refreshes ...func(context.Context) error) error {
	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)
	for _, refresh := range refreshes {
		refresh := refresh
		g.Go(func() error {
			if err := refresh(ctx); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

// Auth exposes login, registration and profile operations.
func (s *Session) Auth() *auth.Authentication { return s.auth }

// Store exposes the cache for reads.
func (s *Session) Store() *store.Store { return s.store }

func (s *Session) Providers() services.ProviderServicer { return s.providers }

func (s *Session) ProviderAccounts() services.ProviderAccountServicer { return s.providerAccounts }

func (s *Session) Accounts() services.AccountServicer { return s.accounts }

func (s *Session) Transactions() services.TransactionServicer { return s.transactions }

func (s *Session) Merchants() services.MerchantServicer { return s.merchants }

func (s *Session) Categories() services.CategoryServicer { return s.categories }

func (s *Session) Messages() services.MessageServicer { return s.messages }
