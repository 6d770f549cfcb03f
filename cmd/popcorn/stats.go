package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/abelbrown/popcorn/internal/movie"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Watched-list statistics",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().Bool("storage", false, "Also list the database keys")
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	list, err := rt.watchedList()
	if err != nil {
		return err
	}
	watched := list.Load()
	out := cmd.OutOrStdout()

	printStats(out, watched)

	if withDB, _ := cmd.Flags().GetBool("storage"); withDB {
		keys, err := rt.store.Keys()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "\nDatabase:              %s\n", rt.cfg.Store.Path)
		fmt.Fprintf(out, "Keys (%d):\n", len(keys))
		for _, k := range keys {
			fmt.Fprintf(out, "  %s\n", k)
		}
	}
	return nil
}

func printStats(w io.Writer, watched []movie.WatchedEntry) {
	s := movie.Summarize(watched)
	fmt.Fprintf(w, "Movies watched:        %d\n", s.Count)
	fmt.Fprintf(w, "Avg IMDb rating:       %.1f\n", s.AvgExternalRating)
	fmt.Fprintf(w, "Avg your rating:       %.1f\n", s.AvgUserRating)
	fmt.Fprintf(w, "Avg runtime:           %.2f min\n", s.AvgRuntime)

	if len(watched) == 0 {
		return
	}

	// Rating distribution
	dist := map[int]int{}
	revisions := 0
	for _, e := range watched {
		dist[int(e.UserRating)]++
		revisions += e.RatingRevisionCount
	}
	ratings := make([]int, 0, len(dist))
	for r := range dist {
		ratings = append(ratings, r)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(ratings)))

	fmt.Fprintf(w, "\nYour ratings:\n")
	for _, r := range ratings {
		fmt.Fprintf(w, "  %2d  %-20s %d\n", r, bar(dist[r], len(watched), 20), dist[r])
	}
	fmt.Fprintf(w, "\nRating changes before adding: %.1f per movie\n", float64(revisions)/float64(len(watched)))
}

// bar draws n/total as a block bar of the given width.
func bar(n, total, width int) string {
	if total == 0 {
		return ""
	}
	filled := n * width / total
	if filled == 0 && n > 0 {
		filled = 1
	}
	out := make([]rune, filled)
	for i := range out {
		out[i] = '█'
	}
	return string(out)
}
