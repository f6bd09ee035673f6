// Command ledgersync keeps a local cache of a user's aggregated financial data in
// sync with the remote API.
package main

import (
	"os"

	"github.com/kuberan/ledgersync/internal/logger"
)

func main() {
	defer logger.Sync()

	if err := rootCmd.Execute(); err != nil {
		logger.Get().Errorw("command failed", "error", err)
		logger.Sync()
		os.Exit(1)
	}
}
