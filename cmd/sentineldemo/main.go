// Command sentineldemo is the informational demo driver spec.md §1 calls an
// out-of-scope external collaborator: it replays the canonical scenarios
// from spec §8 and, via the serve subcommand, stands up the api and
// broadcast servers over a configured fleet. None of this is part of the
// tested FSM contract.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	envFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "sentineldemo",
	Short: "Demo driver for the Drift/Consensus sensor front-end",
	Long: `sentineldemo replays the canonical Drift and Consensus scenarios and,
via "serve", exposes a running fleet over HTTP and WebSocket.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "optional .env file to load before running")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")

	rootCmd.AddCommand(driftCmd)
	rootCmd.AddCommand(consensusCmd)
	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
