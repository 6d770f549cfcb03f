// Command popcorn is a terminal movie search and watched list.
//
// Usage:
//
//	popcorn                      Run the TUI
//	popcorn search <query>       Search OMDb (--details to fetch each result)
//	popcorn show <id>            Show one title
//	popcorn watched [list]       Print the watched list
//	popcorn watched rm <id>      Remove a title
//	popcorn watched import <f>   Replace the list with a JSON export
//	popcorn watched export       Print the list as JSON
//	popcorn stats                Watched-list statistics
//	popcorn events               JSONL event log viewer
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "popcorn",
	Short:         "Search movies and keep a rated watched list",
	Long:          `popcorn searches the OMDb movie database as you type and keeps a rated list of what you watched, with running averages.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setup(cmd)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		teardown()
	},
	RunE: runTUI,
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.popcorn/config.yaml, or $POPCORN_CONFIG)")
	rootCmd.PersistentFlags().String("db", "", "SQLite database path (overrides config)")
	rootCmd.PersistentFlags().Bool("debug", false, "Log at debug level")
	rootCmd.PersistentFlags().String("keys", "", "Shell file exporting OMDB_API_KEY")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "popcorn: %v\n", err)
		teardown()
		os.Exit(1)
	}
}
