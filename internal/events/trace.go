package events

import (
	"os"
	"sync/atomic"
)

// traceEnabled is set once at package init. Atomic so tests can flip it.
var traceEnabled atomic.Bool

func init() {
	traceEnabled.Store(os.Getenv("POPCORN_TRACE") != "")
}

// TraceEnabled reports whether POPCORN_TRACE is set.
func TraceEnabled() bool {
	return traceEnabled.Load()
}

// setTraceEnabled overrides the flag for testing.
func setTraceEnabled(v bool) {
	traceEnabled.Store(v)
}
