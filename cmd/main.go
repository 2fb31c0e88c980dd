// Command hypr-ledger serves trade history, position reconstruction and
// builder-attributed PnL for Hyperliquid accounts.
//
// Usage:
//
//	hypr-ledger serve --config config.yaml
//	hypr-ledger history --user 0x... --coin BTC --from 1766449358096 --to 1766449704759
//	hypr-ledger match --user 0x... --from 1766449358096 --to 1766449704759
//
// Every setting can also be given through the environment or a .env file.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	envPath    string
)

func main() {
	root := &cobra.Command{
		Use:           "hypr-ledger",
		Short:         "Trade ledger and position history for Hyperliquid accounts",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to yaml config")
	root.PersistentFlags().StringVar(&envPath, "env", "", "path to .env file (default ./.env when present)")

	root.AddCommand(newServeCmd(), newHistoryCmd(), newMatchCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
