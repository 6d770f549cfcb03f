package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/abelbrown/popcorn/internal/movie"
	"github.com/abelbrown/popcorn/internal/omdb"
)

// maxConcurrentDetails limits parallel detail fetches for search --details.
const maxConcurrentDetails = 4

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search OMDb by title",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearch,
}

var showCmd = &cobra.Command{
	Use:   "show <imdb-id>",
	Short: "Show details for one title",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func init() {
	searchCmd.Flags().Bool("details", false, "Fetch runtime and rating for every result")
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(showCmd)
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func runSearch(cmd *cobra.Command, args []string) error {
	client, err := rt.client()
	if err != nil {
		return err
	}
	query := strings.Join(args, " ")
	if !movie.Searchable(query) {
		return fmt.Errorf("query %q is too short: need at least %d characters", query, movie.MinQueryLength)
	}

	results, err := client.Search(cmd.Context(), query)
	if err != nil {
		return fmt.Errorf("%s: %w", omdb.Message(err), err)
	}

	out := cmd.OutOrStdout()
	withDetails, _ := cmd.Flags().GetBool("details")
	if !withDetails {
		printResults(out, results)
		return nil
	}

	details := fetchDetails(cmd.Context(), client, results)
	printDetailedResults(out, results, details)
	return nil
}

// detailResult is one slot of fetchDetails' output.
type detailResult struct {
	detail movie.Detail
	err    error
}

type detailer interface {
	Detail(ctx context.Context, id string) (movie.Detail, error)
}

// fetchDetails loads every result's detail with bounded concurrency. A failed
// fetch is recorded in its slot and does not stop the others; cancelling ctx
// stops them all.
func fetchDetails(ctx context.Context, d detailer, results []movie.SearchResult) []detailResult {
	out := make([]detailResult, len(results))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentDetails)
	for i, r := range results {
		i, r := i, r
		g.Go(func() error {
			det, err := d.Detail(ctx, r.ID)
			out[i] = detailResult{detail: det, err: err}
			return nil
		})
	}
	g.Wait()
	return out
}

func printResults(w io.Writer, results []movie.SearchResult) {
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("Found %d results", len(results))))
	for _, r := range results {
		fmt.Fprintf(w, "%-11s %s %s\n", r.ID, r.Title, dimStyle.Render("("+r.Year+")"))
	}
}

func printDetailedResults(w io.Writer, results []movie.SearchResult, details []detailResult) {
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("Found %d results", len(results))))
	for i, r := range results {
		d := details[i]
		if d.err != nil {
			fmt.Fprintf(w, "%-11s %s %s  %s\n", r.ID, r.Title, dimStyle.Render("("+r.Year+")"), omdb.Message(d.err))
			continue
		}
		fmt.Fprintf(w, "%-11s %s %s  ⭐ %.1f  ⏳ %d min\n",
			r.ID, r.Title, dimStyle.Render("("+r.Year+")"), d.detail.ExternalRating, d.detail.RuntimeMinutes)
	}
}

func runShow(cmd *cobra.Command, args []string) error {
	client, err := rt.client()
	if err != nil {
		return err
	}
	d, err := client.Detail(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("%s: %w", omdb.Message(err), err)
	}

	var rating string
	if list, err := rt.watchedList(); err == nil {
		watched := list.Load()
		if i := movie.IndexOf(watched, d.ID); i >= 0 {
			rating = fmt.Sprintf("You rated this movie %.0f ⭐", watched[i].UserRating)
		}
	}

	printDetail(cmd.OutOrStdout(), d, rating)
	return nil
}

func printDetail(w io.Writer, d movie.Detail, rating string) {
	fmt.Fprintln(w, headerStyle.Render(d.Title)+" "+dimStyle.Render("("+d.Year+")"))
	fmt.Fprintf(w, "%s • %d min\n", d.Released, d.RuntimeMinutes)
	if d.Genre != "" {
		fmt.Fprintln(w, d.Genre)
	}
	fmt.Fprintf(w, "⭐ %.1f IMDb rating\n", d.ExternalRating)
	if rating != "" {
		fmt.Fprintln(w, rating)
	}
	if d.Plot != "" {
		fmt.Fprintln(w)
		fmt.Fprintln(w, d.Plot)
	}
	if d.Actors != "" {
		fmt.Fprintln(w, "Starring "+d.Actors)
	}
	if d.Director != "" {
		fmt.Fprintln(w, "Directed by "+d.Director)
	}
}
