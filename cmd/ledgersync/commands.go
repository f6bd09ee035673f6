package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kuberan/ledgersync/internal/config"
	"github.com/kuberan/ledgersync/internal/logger"
	"github.com/kuberan/ledgersync/internal/sdk"
)

var (
	cfg *config.Config

	loginEmail    string
	loginPassword string

	rootCmd = &cobra.Command{
		Use:           "ledgersync",
		Short:         "Sync aggregated accounts and transactions into a local cache",
		Version:       sdk.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load()
			if err != nil {
				return fmt.Errorf("loading configuration: %w", err)
			}
			cfg = loaded
			logger.Init(cfg.Env, cfg.LogLevel)
			return nil
		},
	}

	syncCmd = &cobra.Command{
		Use:   "sync",
		Short: "Refresh in the background until interrupted",
		Args:  cobra.NoArgs,
		RunE:  runSync, // Defined in cmd_sync.go
	}

	loginCmd = &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session tokens",
		Args:  cobra.NoArgs,
		RunE:  runLogin, // Defined in cmd_auth.go
	}

	logoutCmd = &cobra.Command{
		Use:   "logout",
		Short: "Log out and clear every cached record",
		Args:  cobra.NoArgs,
		RunE:  runLogout, // Defined in cmd_auth.go
	}

	statusCmd = &cobra.Command{
		Use:   "status",
		Short: "Print the login state and cached record counts",
		Args:  cobra.NoArgs,
		RunE:  runStatus, // Defined in cmd_status.go
	}
)

func init() {
	loginCmd.Flags().StringVar(&loginEmail, "email", "", "Account email (required)")
	loginCmd.Flags().StringVar(&loginPassword, "password", "",
		"Account password; defaults to $LEDGERSYNC_PASSWORD")
	_ = loginCmd.MarkFlagRequired("email")

	rootCmd.AddCommand(syncCmd, loginCmd, logoutCmd, statusCmd)
}

// openSession creates a session from the loaded configuration.
func openSession(ctx context.Context) (*sdk.Session, error) {
	session, err := sdk.New(ctx, cfg, sdk.WithLogger(logger.Get()))
	if err != nil {
		return nil, fmt.Errorf("opening session: %w", err)
	}
	return session, nil
}

// closeSession releases the session, logging rather than returning failures.
func closeSession(session *sdk.Session) {
	if err := session.Close(); err != nil {
		logger.Get().Warnw("closing session failed", "error", err)
	}
}
