package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	apperrors "github.com/kuberan/ledgersync/internal/errors"
)

func runLogin(cmd *cobra.Command, _ []string) error {
	password := loginPassword
	if password == "" {
		password = os.Getenv("LEDGERSYNC_PASSWORD")
	}
	if password == "" {
		return errors.New("a password is required: pass --password or set LEDGERSYNC_PASSWORD")
	}

	session, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer closeSession(session)

	if err := session.Login(cmd.Context(), loginEmail, password); err != nil {
		if errors.Is(err, apperrors.ErrAlreadyLoggedIn) {
			return errors.New("already logged in; run logout first")
		}
		return fmt.Errorf("logging in: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", loginEmail)
	return nil
}

func runLogout(cmd *cobra.Command, _ []string) error {
	session, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer closeSession(session)

	if err := session.Logout(cmd.Context()); err != nil {
		if errors.Is(err, apperrors.ErrLoggedOut) {
			fmt.Fprintln(cmd.OutOrStdout(), "Not logged in")
			return nil
		}
		return fmt.Errorf("logging out: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
	return nil
}
