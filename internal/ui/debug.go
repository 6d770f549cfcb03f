package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/abelbrown/popcorn/internal/coord"
	"github.com/abelbrown/popcorn/internal/events"
)

// debugPanelChrome is the number of terminal lines consumed by DebugPanel's
// border (top + bottom = 2) and vertical padding (top + bottom = 2).
// Must be updated if DebugPanel style changes.
const debugPanelChrome = 4

// debugOverlay renders the debug panel showing request stats and recent events.
// Pure function with no side effects. Returns empty string if ring is nil.
func debugOverlay(ring *events.Ring, lanes []coord.LaneStats, width, height int) string {
	if ring == nil {
		return ""
	}

	stats := ring.Stats()
	recent := ring.Last(20)

	// --- Stats section (keyed lookups, not map iteration) ---
	var lines []string
	lines = append(lines, DebugHeaderStyle.Render("Request Stats"))
	lines = append(lines, fmt.Sprintf("  Searches:   %d started, %d complete, %d errors, %d stale",
		stats[events.KindSearchStart], stats[events.KindSearchComplete],
		stats[events.KindSearchError], stats[events.KindSearchStale]))
	lines = append(lines, fmt.Sprintf("  Details:    %d started, %d complete, %d errors, %d stale",
		stats[events.KindDetailStart], stats[events.KindDetailComplete],
		stats[events.KindDetailError], stats[events.KindDetailStale]))
	lines = append(lines, fmt.Sprintf("  Watched:    %d added, %d deleted, %d duplicates, %d save errors",
		stats[events.KindWatchAdd], stats[events.KindWatchDelete],
		stats[events.KindWatchDuplicate], stats[events.KindStoreError]))
	for _, l := range lanes {
		state := "idle"
		if l.InFlight {
			state = "in flight"
		}
		lines = append(lines, fmt.Sprintf("  Lane %-7s seq %d, %d begun, %d cancelled, %s",
			l.Name+":", l.Seq, l.Begun, l.Cancelled, state))
	}
	lines = append(lines, fmt.Sprintf("  Buffer:     %d / %d events", ring.Len(), ring.Cap()))
	lines = append(lines, "")

	// --- Recent events section ---
	lines = append(lines, DebugHeaderStyle.Render("Recent Events"))
	for _, e := range recent {
		age := time.Since(e.Time)
		ageStr := formatAge(age)

		line := fmt.Sprintf("  %6s  %-18s", ageStr, string(e.Kind))
		if e.Query != "" {
			line += "  q:" + truncateRunes(e.Query, 20)
		}
		if e.MovieID != "" {
			line += "  id:" + e.MovieID
		}
		if e.Msg != "" {
			line += "  " + truncateRunes(e.Msg, 40)
		}
		if e.Err != "" {
			line += "  ERR:" + truncateRunes(e.Err, 30)
		}
		if e.RequestID != "" {
			rid := e.RequestID
			if len(rid) > 8 {
				rid = rid[:8]
			}
			line += fmt.Sprintf("  rid:%s", rid)
		}
		lines = append(lines, line)
	}

	// Truncate to fit terminal height (subtract chrome added by DebugPanel border/padding)
	maxHeight := height - debugPanelChrome
	if maxHeight < 1 {
		maxHeight = 1
	}
	if len(lines) > maxHeight {
		lines = lines[:maxHeight]
	}

	panelWidth := 96
	if panelWidth > width-4 {
		panelWidth = width - 4
	}
	if panelWidth < 20 {
		panelWidth = 20
	}

	content := strings.Join(lines, "\n")
	return DebugPanel.Width(panelWidth).Render(content)
}

// formatAge formats a duration as a compact human string.
// Handles negative durations from clock skew by clamping to "0ms".
func formatAge(d time.Duration) string {
	if d < 0 {
		return "0ms"
	}
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		return fmt.Sprintf("%.0fm", d.Minutes())
	}
}

// debugStatusBar renders the status bar for the debug overlay.
func debugStatusBar(width int) string {
	keys := StatusBarKey.Render("D") + StatusBarText.Render(":close")
	return StatusBar.Width(width).Render("  [DEBUG]  " + keys)
}
