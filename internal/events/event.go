// Package events records what popcorn does as typed JSONL events.
//
// A Logger serializes events asynchronously to a writer (the rotating
// event log). An attached Ring keeps the most recent events in memory for
// the TUI debug overlay and for tests.
package events

import (
	"encoding/json"
	"time"
)

// Level defines event severity for filtering.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Kind identifies the category of an event.
// Dot-delimited: "<subsystem>.<action>".
type Kind string

const (
	// Search lifecycle
	KindSearchStart    Kind = "search.start"
	KindSearchSkip     Kind = "search.skip" // query below the length gate, no call made
	KindSearchComplete Kind = "search.complete"
	KindSearchError    Kind = "search.error"
	KindSearchCancel   Kind = "search.cancel" // superseded or torn down
	KindSearchStale    Kind = "search.stale"  // completion arrived for a superseded request

	// Detail lifecycle
	KindDetailStart    Kind = "detail.start"
	KindDetailComplete Kind = "detail.complete"
	KindDetailError    Kind = "detail.error"
	KindDetailCancel   Kind = "detail.cancel"
	KindDetailStale    Kind = "detail.stale"

	// Watched list
	KindWatchRate      Kind = "watch.rate"
	KindWatchAdd       Kind = "watch.add"
	KindWatchDuplicate Kind = "watch.duplicate"
	KindWatchDelete    Kind = "watch.delete"

	// Persistence
	KindStoreLoad  Kind = "store.load"
	KindStoreSave  Kind = "store.save"
	KindStoreError Kind = "store.error"

	// System
	KindStartup  Kind = "sys.startup"
	KindShutdown Kind = "sys.shutdown"
	KindError    Kind = "sys.error"

	// Emitted only when POPCORN_TRACE is set
	KindMsgReceived Kind = "trace.msg_received"
)

// Event is the universal observability record. Every field except Kind and
// Time is optional. Serialized as a single JSONL line.
type Event struct {
	Time      time.Time      `json:"t"`
	Level     Level          `json:"level,omitempty"`
	Kind      Kind           `json:"kind"`
	Comp      string         `json:"comp,omitempty"` // "session", "ui", "cli", "main"
	SessionID string         `json:"session_id,omitempty"`
	RequestID string         `json:"rid,omitempty"` // correlates start/complete of one request
	Dur       time.Duration  `json:"-"`
	DurMs     float64        `json:"dur_ms,omitempty"` // computed from Dur at marshal time
	Count     int            `json:"count,omitempty"`
	Query     string         `json:"query,omitempty"`
	MovieID   string         `json:"movie_id,omitempty"`
	Err       string         `json:"err,omitempty"`
	Msg       string         `json:"msg,omitempty"`
	Extra     map[string]any `json:"extra,omitempty"`
}

// MarshalJSON implements json.Marshaler, converting Dur to DurMs.
func (e Event) MarshalJSON() ([]byte, error) {
	type alias Event
	a := alias(e)
	if e.Dur > 0 {
		a.DurMs = float64(e.Dur) / float64(time.Millisecond)
	}
	return json.Marshal(a)
}
