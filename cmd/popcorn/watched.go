package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/abelbrown/popcorn/internal/movie"
	"github.com/abelbrown/popcorn/internal/session"
	"github.com/abelbrown/popcorn/internal/store"
)

var watchedCmd = &cobra.Command{
	Use:   "watched",
	Short: "Show or edit the watched list",
	Args:  cobra.NoArgs,
	RunE:  runWatchedList,
}

var watchedListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the watched list",
	Args:  cobra.NoArgs,
	RunE:  runWatchedList,
}

var watchedRmCmd = &cobra.Command{
	Use:   "rm <imdb-id>",
	Short: "Remove a title from the watched list",
	Args:  cobra.ExactArgs(1),
	RunE:  runWatchedRm,
}

var watchedImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Replace the watched list with a JSON export (use - for stdin)",
	Args:  cobra.ExactArgs(1),
	RunE:  runWatchedImport,
}

var watchedExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Print the watched list as JSON",
	Args:  cobra.NoArgs,
	RunE:  runWatchedExport,
}

func init() {
	watchedCmd.AddCommand(watchedListCmd, watchedRmCmd, watchedImportCmd, watchedExportCmd)
	rootCmd.AddCommand(watchedCmd)
}

func runWatchedList(cmd *cobra.Command, args []string) error {
	list, err := rt.watchedList()
	if err != nil {
		return err
	}
	printWatched(cmd.OutOrStdout(), list.Load(), time.Now())
	return nil
}

func printWatched(w io.Writer, watched []movie.WatchedEntry, now time.Time) {
	if len(watched) == 0 {
		fmt.Fprintln(w, dimStyle.Render("Nothing watched yet"))
		return
	}
	for _, e := range watched {
		line := fmt.Sprintf("%-11s %-40s ⭐ %4.1f  🌟 %4.1f  ⏳ %3d min",
			e.ID, truncate(e.Title, 40), e.ExternalRating, e.UserRating, e.RuntimeMinutes)
		if !e.AddedAt.IsZero() {
			line += "  " + dimStyle.Render(humanize.RelTime(e.AddedAt, now, "ago", "from now"))
		}
		fmt.Fprintln(w, line)
	}
}

// runWatchedRm deletes through the session so the save rules match the TUI.
func runWatchedRm(cmd *cobra.Command, args []string) error {
	list, err := rt.watchedList()
	if err != nil {
		return err
	}

	sess := session.New(session.Config{Store: list, Watched: list.Load(), Events: rt.eventLogger()})
	defer sess.Close()

	if !sess.DeleteWatched(args[0]) {
		return fmt.Errorf("%s is not on the watched list", args[0])
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed %s (%d left)\n", args[0], len(sess.Watched()))
	return nil
}

func runWatchedImport(cmd *cobra.Command, args []string) error {
	list, err := rt.watchedList()
	if err != nil {
		return err
	}

	var r io.Reader
	if args[0] == "-" {
		r = cmd.InOrStdin()
	} else {
		f, err := rt.fs.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}

	entries, dropped, err := parseImport(r)
	if err != nil {
		return err
	}
	if dropped > 0 {
		cliLogger(cmd).Warn("dropped duplicate ids", "count", dropped)
	}
	if err := list.Save(entries); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d titles\n", len(entries))
	return nil
}

// parseImport decodes a browser-format watched export. Repeated ids keep
// their first entry; dropped counts the rest.
func parseImport(r io.Reader) (entries []movie.WatchedEntry, dropped int, err error) {
	var raw []movie.WatchedEntry
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, 0, fmt.Errorf("parse export: %w", err)
	}
	for i, e := range raw {
		if e.ID == "" {
			return nil, 0, fmt.Errorf("parse export: entry %d has no imdbID", i)
		}
	}
	entries = store.Dedupe(raw)
	return entries, len(raw) - len(entries), nil
}

func runWatchedExport(cmd *cobra.Command, args []string) error {
	list, err := rt.watchedList()
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(list.Load())
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}
