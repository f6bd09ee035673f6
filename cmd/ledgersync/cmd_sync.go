package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	apperrors "github.com/kuberan/ledgersync/internal/errors"
	"github.com/kuberan/ledgersync/internal/handlers"
	"github.com/kuberan/ledgersync/internal/logger"
	"github.com/kuberan/ledgersync/internal/sdk"
)

const shutdownTimeout = 10 * time.Second

var _ handlers.Session = (*sdk.Session)(nil)

func runSync(cmd *cobra.Command, _ []string) error {
	log := logger.Get()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	session, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer closeSession(session)

	if err := session.Foregrounded(ctx); err != nil {
		log.Warnw("refreshing user failed", "error", err)
	}
	if err := session.RefreshData(); err != nil {
		if errors.Is(err, apperrors.ErrLoggedOut) {
			return errors.New("not logged in; run login first")
		}
		return err
	}
	log.Infow("sync started", "interval", cfg.RefreshInterval, "http_addr", cfg.HTTPAddr)

	g, ctx := errgroup.WithContext(ctx)
	if cfg.HTTPAddr != "" {
		srv := &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           handlers.NewRouter(session, cfg.ControlAPIKey, log),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("serving http: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}
	g.Go(func() error {
		return watchStatus(ctx, session)
	})

	err = g.Wait()
	session.Backgrounded()
	log.Infow("sync stopped")
	return err
}

// watchStatus ends the sync when the session is logged out, for example after
// the refresh token is rejected.
func watchStatus(ctx context.Context, session *sdk.Session) error {
	updates, cancel := session.SubscribeStatus()
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case status := <-updates:
			if !session.LoggedIn() {
				logger.Get().Warnw("session logged out, stopping sync", "status", status)
				return apperrors.ErrLoggedOut
			}
		}
	}
}
