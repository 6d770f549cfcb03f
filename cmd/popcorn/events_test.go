package main

import (
	"strings"
	"testing"
	"time"
)

const sampleLog = `{"t":"2024-05-01T12:00:00Z","level":"info","kind":"search.start","comp":"session","rid":"aaaa1111","query":"incep"}
{"t":"2024-05-01T12:00:01Z","level":"info","kind":"search.complete","comp":"session","rid":"aaaa1111","dur_ms":120.5,"count":8}
not json at all
{"t":"2024-05-01T12:00:02Z","level":"warn","kind":"search.stale","comp":"session","rid":"bbbb2222"}

{"t":"2024-05-01T12:00:03Z","level":"error","kind":"detail.error","comp":"session","rid":"cccc3333","movie_id":"tt1375666","err":"network"}
{"t":"2024-05-01T12:00:04Z","level":"info","kind":"watch.add","comp":"session","movie_id":"tt1375666"}
`

func matchAll(eventRecord) bool { return true }

func TestReadTailLines(t *testing.T) {
	lines := readTailLines(strings.NewReader(sampleLog), 2, matchAll)
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	if lines[0].ev.Kind != "detail.error" || lines[1].ev.Kind != "watch.add" {
		t.Errorf("expected last two events, got %s, %s", lines[0].ev.Kind, lines[1].ev.Kind)
	}
	if !strings.Contains(string(lines[1].raw), `"watch.add"`) {
		t.Errorf("raw line not preserved: %s", lines[1].raw)
	}
}

func TestReadTailLinesSkipsGarbage(t *testing.T) {
	lines := readTailLines(strings.NewReader(sampleLog), 100, matchAll)
	if len(lines) != 5 {
		t.Errorf("got %d lines, want 5 parsed events", len(lines))
	}
}

func TestReadTailLinesZero(t *testing.T) {
	if lines := readTailLines(strings.NewReader(sampleLog), 0, matchAll); len(lines) != 0 {
		t.Errorf("tail 0 should return nothing, got %d", len(lines))
	}
}

func TestEventFilter(t *testing.T) {
	tests := []struct {
		name   string
		filter eventFilter
		want   int
	}{
		{"none", eventFilter{}, 5},
		{"kind prefix", eventFilter{kind: "search"}, 3},
		{"level warn", eventFilter{level: "warn"}, 2},
		{"level error", eventFilter{level: "error"}, 1},
		{"comp", eventFilter{comp: "session"}, 5},
		{"comp miss", eventFilter{comp: "ui"}, 0},
		{"rid prefix", eventFilter{rid: "aaaa"}, 2},
		{"combined", eventFilter{kind: "search", level: "warn"}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lines := readTailLines(strings.NewReader(sampleLog), 100, tt.filter.match)
			if len(lines) != tt.want {
				t.Errorf("got %d lines, want %d", len(lines), tt.want)
			}
		})
	}
}

func TestFormatEvent(t *testing.T) {
	ev := eventRecord{
		Time:      time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Level:     "info",
		Kind:      "search.complete",
		Comp:      "session",
		RequestID: "0123456789abcdef",
		DurMs:     120.5,
		Count:     8,
		Query:     "incep",
	}
	got := formatEvent(ev)
	for _, want := range []string{"12:00:00.000", "INFO", "search.complete", "(120ms)", "n=8", `q="incep"`, "rid=01234567"} {
		if !strings.Contains(got, want) {
			t.Errorf("formatEvent missing %q: %s", want, got)
		}
	}
	if strings.Contains(got, "89abcdef") {
		t.Errorf("request id should be shortened: %s", got)
	}
}

func TestDurPrecision(t *testing.T) {
	if durPrecision(250) != 0 || durPrecision(12.5) != 1 || durPrecision(0.4) != 2 {
		t.Error("unexpected precision")
	}
}

func TestLevelRank(t *testing.T) {
	if !(levelRank("debug") < levelRank("info") && levelRank("info") < levelRank("warn") && levelRank("warn") < levelRank("error")) {
		t.Error("levels out of order")
	}
	if levelRank("bogus") != 0 {
		t.Error("unknown level should rank lowest")
	}
}
