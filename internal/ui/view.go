package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/abelbrown/popcorn/internal/movie"
)

// renderHeader draws the logo, the search box and the result count.
func (a App) renderHeader() string {
	logo := Logo.Render("🍿 popcorn")
	search := SearchBar.Render(a.input.View())
	count := ResultCount.Render(fmt.Sprintf("Found %d results", len(a.sess.Results())))

	gap := a.width - lipgloss.Width(logo) - lipgloss.Width(search) - lipgloss.Width(count)
	if gap < 1 {
		gap = 1
	}
	return logo + search + strings.Repeat(" ", gap) + count
}

// renderPanes draws results on the left and detail or watched on the right.
func (a App) renderPanes() string {
	// Two boxes, each with a border (2) and padding (2).
	paneWidth := a.width/2 - 4
	if paneWidth < 20 {
		paneWidth = 20
	}
	paneHeight := a.height - 4
	if paneHeight < 3 {
		paneHeight = 3
	}

	leftStyle, rightStyle := Box, Box
	switch a.focus {
	case focusResults:
		leftStyle = FocusedBox
	case focusWatched:
		rightStyle = FocusedBox
	}

	left := leftStyle.Width(paneWidth).Height(paneHeight).Render(a.renderResults(paneWidth, paneHeight))

	var right string
	if a.sess.DetailOpen() {
		right = a.renderDetail(paneWidth)
	} else {
		right = a.renderSummary(a.sess.Summary()) + "\n" + a.renderWatched(paneWidth, paneHeight-3)
	}
	right = rightStyle.Width(paneWidth).Height(paneHeight).Render(right)

	return lipgloss.JoinHorizontal(lipgloss.Top, left, right)
}

// renderResults draws the result list, the spinner, or the error line.
func (a App) renderResults(width, height int) string {
	if a.sess.Loading() {
		return a.spinner.View() + " Loading..."
	}
	if msg := a.sess.Err(); msg != "" {
		return ErrorStyle.Render("⛔ " + msg)
	}

	rows := a.visibleResults()
	if len(rows) == 0 {
		if movie.Searchable(a.sess.Query()) {
			return Dim.Render("No movies found")
		}
		return Dim.Render(fmt.Sprintf("Type at least %d characters to search", movie.MinQueryLength))
	}

	start := scrollStart(a.cursor, len(rows), height)
	var lines []string
	for i := start; i < len(rows) && i < start+height; i++ {
		r := rows[i]
		text := truncateRunes(r.Title, width-8) + " " + Dim.Render("🗓 "+r.Year)
		switch {
		case a.focus == focusResults && i == a.cursor:
			text = SelectedItem.Render(truncateRunes(r.Title, width-8)) + " " + Dim.Render("🗓 "+r.Year)
		case r.ID == a.sess.SelectedID():
			text = OpenItem.Render("▸ "+truncateRunes(r.Title, width-10)) + " " + Dim.Render("🗓 "+r.Year)
		}
		lines = append(lines, text)
	}
	return strings.Join(lines, "\n")
}

// renderDetail draws the open movie.
func (a App) renderDetail(width int) string {
	id := a.sess.SelectedID()
	d, ok := a.sess.Detail()
	if !ok {
		// A failed fetch stays here until the user reselects or closes.
		return a.spinner.View() + " Loading " + id + "..."
	}

	var lines []string
	lines = append(lines, DetailTitle.Render(d.Title))
	lines = append(lines, Dim.Render(fmt.Sprintf("%s • %d min", d.Released, d.RuntimeMinutes)))
	if d.Genre != "" {
		lines = append(lines, Dim.Render(d.Genre))
	}
	lines = append(lines, Star.Render("⭐")+fmt.Sprintf(" %.1f IMDb rating", d.ExternalRating))
	lines = append(lines, "")

	if rating, watched := a.sess.WatchedRating(id); watched {
		lines = append(lines, fmt.Sprintf("You rated this movie %s %s", formatRating(rating), Star.Render("⭐")))
	} else {
		lines = append(lines, "Your rating: "+stars(a.sess.UserRating()))
		if a.sess.UserRating() > 0 {
			lines = append(lines, StatusBarKey.Render("a")+StatusBarText.Render(" + Add to list"))
		} else {
			lines = append(lines, Dim.Render("press 1-9, 0 for 10"))
		}
	}
	lines = append(lines, "")

	if d.Plot != "" {
		lines = append(lines, lipgloss.NewStyle().Italic(true).Width(width).Render(d.Plot))
	}
	if d.Actors != "" {
		lines = append(lines, "Starring "+d.Actors)
	}
	if d.Director != "" {
		lines = append(lines, "Directed by "+d.Director)
	}
	return strings.Join(lines, "\n")
}

// renderSummary draws the watched-list statistics.
func (a App) renderSummary(s movie.Summary) string {
	return SummaryHeader.Render("MOVIES YOU WATCHED") + "\n" + fmt.Sprintf(
		"#️⃣ %d movies  ⭐ %.1f  🌟 %.1f  ⏳ %.2f min",
		s.Count, s.AvgExternalRating, s.AvgUserRating, s.AvgRuntime,
	)
}

// renderWatched draws the watched list.
func (a App) renderWatched(width, height int) string {
	watched := a.sess.Watched()
	if len(watched) == 0 {
		return Dim.Render("Nothing watched yet")
	}
	if height < 1 {
		height = 1
	}

	start := scrollStart(a.watchedCursor, len(watched), height)
	var lines []string
	for i := start; i < len(watched) && i < start+height; i++ {
		w := watched[i]
		title := truncateRunes(w.Title, width/2)
		if a.focus == focusWatched && i == a.watchedCursor {
			title = SelectedItem.Render(title)
		}
		stats := fmt.Sprintf("⭐ %.1f  🌟 %s  ⏳ %d min", w.ExternalRating, formatRating(w.UserRating), w.RuntimeMinutes)
		line := title + "  " + stats
		if added := addedAgo(w.AddedAt); added != "" {
			line += "  " + Dim.Render(added)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// renderStatusBar draws the notice or the key help.
func (a App) renderStatusBar() string {
	left := ""
	switch {
	case a.notice != "":
		left = a.notice
	case a.busy():
		left = a.spinner.View()
	}

	hints := a.help.View(keys)
	padding := a.width - lipgloss.Width(left) - lipgloss.Width(hints) - 2
	if padding < 1 {
		padding = 1
	}
	return StatusBar.Width(a.width).Render(left + strings.Repeat(" ", padding) + hints)
}

// stars renders r (0-10) as filled and empty stars.
func stars(r float64) string {
	n := int(r)
	if n < 0 {
		n = 0
	}
	if n > movie.MaxRating {
		n = movie.MaxRating
	}
	return Star.Render(strings.Repeat("★", n)) + Dim.Render(strings.Repeat("☆", movie.MaxRating-n))
}

// formatRating prints whole ratings without decimals.
func formatRating(r float64) string {
	if r == float64(int(r)) {
		return fmt.Sprintf("%d", int(r))
	}
	return fmt.Sprintf("%.1f", r)
}

// addedAgo renders AddedAt relative to now. Entries imported from a browser
// export carry no timestamp.
func addedAgo(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return humanize.Time(t)
}

// scrollStart returns the first visible row keeping cursor on screen.
func scrollStart(cursor, total, height int) int {
	if height <= 0 || total <= height {
		return 0
	}
	start := cursor - height + 1
	if start < 0 {
		start = 0
	}
	if start > total-height {
		start = total - height
	}
	return start
}

// truncateRunes truncates s to at most n runes, appending "…" when cut.
func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n == 1 {
		return "…"
	}
	return string(r[:n-1]) + "…"
}
