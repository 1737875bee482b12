package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var configPath string

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "scanner",
		Short: "Black Market arbitrage scanner for the Albion Online market",
		Long: `Scanner fetches market prices for the item catalog, finds routes where
buying in a city and selling into the Black Market is profitable, and ranks them.

Examples:
  scanner scan --top 20
  scanner scan --items T4_BAG,T5_BAG
  scanner run
  scanner purge
  scanner sync`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// A missing .env file is fine.
			_ = godotenv.Load()
		},
		SilenceUsage: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "./configs",
		"Directory containing config.yml")

	rootCmd.AddCommand(newScanCommand())
	rootCmd.AddCommand(newRunCommand())
	rootCmd.AddCommand(newPurgeCommand())
	rootCmd.AddCommand(newSyncCommand())
	rootCmd.AddCommand(newRoutesCommand())

	return rootCmd
}
