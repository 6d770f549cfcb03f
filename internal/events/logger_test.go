package events

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestEmitWritesValidJSONL(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)

	l.Emit(Event{Kind: KindSearchStart, Level: LevelInfo, Comp: "session", Query: "inception"})
	l.Close()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}

	var decoded map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if decoded["kind"] != "search.start" {
		t.Errorf("expected kind=search.start, got %v", decoded["kind"])
	}
	if decoded["comp"] != "session" {
		t.Errorf("expected comp=session, got %v", decoded["comp"])
	}
	if decoded["query"] != "inception" {
		t.Errorf("expected query=inception, got %v", decoded["query"])
	}
}

func TestEmitSetsDefaults(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)

	before := time.Now()
	l.Emit(Event{Kind: KindStartup})
	l.Close()
	after := time.Now()

	var ev Event
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &ev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if ev.Time.Before(before) || ev.Time.After(after) {
		t.Errorf("time %v not in [%v, %v]", ev.Time, before, after)
	}
	if ev.Level != LevelInfo {
		t.Errorf("expected default level info, got %q", ev.Level)
	}
	if _, err := uuid.Parse(ev.SessionID); err != nil {
		t.Errorf("session_id should be a uuid, got %q", ev.SessionID)
	}
	if ev.SessionID != l.SessionID() {
		t.Errorf("session_id %q != logger %q", ev.SessionID, l.SessionID())
	}
}

func TestDurToMs(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)

	l.Emit(Event{Kind: KindSearchComplete, Dur: 1500 * time.Millisecond})
	l.Close()

	var decoded map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["dur_ms"] != 1500.0 {
		t.Errorf("expected dur_ms=1500, got %v", decoded["dur_ms"])
	}
	if _, ok := decoded["Dur"]; ok {
		t.Error("raw Dur should not be serialized")
	}
}

func TestHelpers(t *testing.T) {
	l := NewNullLogger()
	ring := NewRing(10)
	l.SetRing(ring)

	l.Info(KindWatchAdd, "session", "added")
	l.Warn(KindWatchDuplicate, "session", "dup")
	l.Error(KindStoreError, "session", errors.New("disk full"))
	l.Error(KindError, "main", nil)
	l.Close()

	evs := ring.Snapshot()
	if len(evs) != 4 {
		t.Fatalf("expected 4 events in ring, got %d", len(evs))
	}
	if evs[0].Level != LevelInfo || evs[0].Msg != "added" {
		t.Errorf("info event wrong: %+v", evs[0])
	}
	if evs[1].Level != LevelWarn {
		t.Errorf("warn event wrong: %+v", evs[1])
	}
	if evs[2].Level != LevelError || evs[2].Err != "disk full" {
		t.Errorf("error event wrong: %+v", evs[2])
	}
	if evs[3].Err != "" {
		t.Errorf("nil error should log empty string, got %q", evs[3].Err)
	}
}

func TestNilLoggerIsNoop(t *testing.T) {
	var l *Logger
	l.Emit(Event{Kind: KindStartup})
	l.Info(KindStartup, "x", "y")
	l.SetRing(NewRing(1))
	l.Close()
	if l.Dropped() != 0 || l.SessionID() != "" {
		t.Error("nil logger should report zero values")
	}
}

func TestEmitAfterCloseDropped(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)
	l.Close()

	l.Emit(Event{Kind: KindStartup})
	if l.Dropped() != 1 {
		t.Errorf("expected 1 dropped, got %d", l.Dropped())
	}
	if buf.Len() != 0 {
		t.Errorf("nothing should be written after close, got %q", buf.String())
	}

	// Idempotent.
	l.Close()
}

type failWriter struct{}

func (failWriter) Write([]byte) (int, error) { return 0, errors.New("nope") }

func TestWriteFailureCountsDropped(t *testing.T) {
	l := NewLogger(failWriter{})
	l.Emit(Event{Kind: KindStartup})
	l.Emit(Event{Kind: KindShutdown})
	l.Close()

	if l.Dropped() != 2 {
		t.Errorf("expected 2 dropped, got %d", l.Dropped())
	}
}

func TestConcurrentEmit(t *testing.T) {
	l := NewNullLogger()
	ring := NewRing(64)
	l.SetRing(ring)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				l.Emit(Event{Kind: KindMsgReceived})
			}
		}()
	}
	wg.Wait()
	l.Close()

	if ring.Len() > 64 {
		t.Errorf("ring overflowed capacity: %d", ring.Len())
	}
	if uint64(ring.Len())+l.Dropped() == 0 {
		t.Error("expected events to be buffered or counted as dropped")
	}
}
