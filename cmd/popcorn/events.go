package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "JSONL event log viewer",
	Args:  cobra.NoArgs,
	RunE:  runEvents,
}

func init() {
	f := eventsCmd.Flags()
	f.Int("tail", 50, "Number of recent lines to show")
	f.BoolP("follow", "f", false, "Follow mode (like tail -f)")
	f.String("kind", "", "Filter by event kind prefix (e.g. 'search')")
	f.String("level", "", "Minimum level: debug, info, warn, error")
	f.String("comp", "", "Filter by component name")
	f.String("rid", "", "Filter by request ID")
	f.Bool("json", false, "Output raw JSON lines")
	rootCmd.AddCommand(eventsCmd)
}

// eventRecord mirrors events.Event for JSON decoding.
// We decode from JSONL rather than importing events to keep this
// subcommand usable even if the event schema evolves.
type eventRecord struct {
	Time      time.Time      `json:"t"`
	Level     string         `json:"level"`
	Kind      string         `json:"kind"`
	Comp      string         `json:"comp"`
	SessionID string         `json:"session_id"`
	RequestID string         `json:"rid"`
	DurMs     float64        `json:"dur_ms"`
	Count     int            `json:"count"`
	Query     string         `json:"query"`
	MovieID   string         `json:"movie_id"`
	Err       string         `json:"err"`
	Msg       string         `json:"msg"`
	Extra     map[string]any `json:"extra"`
}

// eventFilter selects which records are shown.
type eventFilter struct {
	kind  string
	level string
	comp  string
	rid   string
}

// levelRank returns a numeric rank for filtering (higher = more severe).
func levelRank(level string) int {
	switch level {
	case "debug":
		return 0
	case "info":
		return 1
	case "warn":
		return 2
	case "error":
		return 3
	default:
		return 0
	}
}

func (f eventFilter) match(ev eventRecord) bool {
	if f.kind != "" && !strings.HasPrefix(ev.Kind, f.kind) {
		return false
	}
	if f.level != "" && levelRank(ev.Level) < levelRank(f.level) {
		return false
	}
	if f.comp != "" && ev.Comp != f.comp {
		return false
	}
	if f.rid != "" && !strings.HasPrefix(ev.RequestID, f.rid) {
		return false
	}
	return true
}

func formatEvent(ev eventRecord) string {
	ts := ev.Time.Format("15:04:05.000")
	lvl := strings.ToUpper(ev.Level)
	if lvl == "" {
		lvl = "?"
	}

	parts := []string{fmt.Sprintf("%s %-5s [%-7s] %-18s", ts, lvl, ev.Comp, ev.Kind)}

	if ev.Msg != "" {
		parts = append(parts, "- "+ev.Msg)
	}
	if ev.DurMs > 0 {
		parts = append(parts, fmt.Sprintf("(%.*fms)", durPrecision(ev.DurMs), ev.DurMs))
	}
	if ev.Count > 0 {
		parts = append(parts, fmt.Sprintf("n=%d", ev.Count))
	}
	if ev.Query != "" {
		parts = append(parts, fmt.Sprintf("q=%q", ev.Query))
	}
	if ev.MovieID != "" {
		parts = append(parts, "id="+ev.MovieID)
	}
	if ev.RequestID != "" {
		rid := ev.RequestID
		if len(rid) > 8 {
			rid = rid[:8]
		}
		parts = append(parts, "rid="+rid)
	}
	if ev.Err != "" {
		parts = append(parts, "err="+ev.Err)
	}

	return strings.Join(parts, " ")
}

func runEvents(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	tail, _ := flags.GetInt("tail")
	follow, _ := flags.GetBool("follow")
	rawJSON, _ := flags.GetBool("json")
	var filter eventFilter
	filter.kind, _ = flags.GetString("kind")
	filter.level, _ = flags.GetString("level")
	filter.comp, _ = flags.GetString("comp")
	filter.rid, _ = flags.GetString("rid")

	logPath := rt.eventLogPath()
	f, err := os.Open(logPath)
	if err != nil {
		return fmt.Errorf("event log not found at %s (run the TUI first to generate events): %w", logPath, err)
	}
	defer f.Close()

	out := cmd.OutOrStdout()
	show := func(l parsedLine) {
		if rawJSON {
			fmt.Fprintln(out, string(l.raw))
			return
		}
		fmt.Fprintln(out, formatEvent(l.ev))
	}

	for _, l := range readTailLines(f, tail, filter.match) {
		show(l)
	}
	if !follow {
		return nil
	}

	// Poll for new lines until interrupted.
	reader := bufio.NewReader(f)
	ctx := cmd.Context()
	for {
		line, err := reader.ReadBytes('\n')
		if err != nil {
			if err != io.EOF {
				return err
			}
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(100 * time.Millisecond):
			}
			continue
		}
		line = trimLine(line)
		if len(line) == 0 {
			continue
		}
		var ev eventRecord
		if json.Unmarshal(line, &ev) != nil {
			continue
		}
		if filter.match(ev) {
			show(parsedLine{ev: ev, raw: line})
		}
	}
}

type parsedLine struct {
	ev  eventRecord
	raw []byte
}

// readTailLines reads r and returns the last n lines matching the filter.
func readTailLines(r io.Reader, n int, match func(eventRecord) bool) []parsedLine {
	scanner := bufio.NewScanner(r)
	// Allow large lines (some events may have big Extra maps)
	scanner.Buffer(make([]byte, 0, 64*1024), 256*1024)

	var ring []parsedLine
	if n > 0 {
		ring = make([]parsedLine, 0, n)
	}

	for scanner.Scan() {
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var ev eventRecord
		if json.Unmarshal(raw, &ev) != nil {
			continue
		}
		if !match(ev) {
			continue
		}
		if n <= 0 {
			continue
		}
		// Make a copy of raw since scanner reuses the buffer
		rawCopy := make([]byte, len(raw))
		copy(rawCopy, raw)

		if len(ring) < n {
			ring = append(ring, parsedLine{ev: ev, raw: rawCopy})
		} else {
			copy(ring, ring[1:])
			ring[n-1] = parsedLine{ev: ev, raw: rawCopy}
		}
	}

	return ring
}

func trimLine(b []byte) []byte {
	for len(b) > 0 && (b[len(b)-1] == '\n' || b[len(b)-1] == '\r') {
		b = b[:len(b)-1]
	}
	return b
}

func durPrecision(ms float64) int {
	if ms >= 100 {
		return 0
	}
	if ms >= 1 {
		return 1
	}
	return 2
}
