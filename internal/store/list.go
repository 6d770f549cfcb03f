package store

import (
	"encoding/json"
	"fmt"

	"github.com/abelbrown/popcorn/internal/logging"
)

// WatchedKey is the storage key of the watched list.
const WatchedKey = "watched"

// Keyed is implemented by list entries with a unique id.
type Keyed interface {
	Key() string
}

// KV is the key/value surface List persists through. *Store implements it.
type KV interface {
	Get(key string) (string, bool, error)
	Put(key, value string) error
}

// List persists an ordered list of entries as one JSON value under a single key.
// Every Save replaces the stored list wholesale.
type List[T Keyed] struct {
	kv  KV
	key string
}

// NewList binds a list to a storage key.
func NewList[T Keyed](kv KV, key string) *List[T] {
	return &List[T]{kv: kv, key: key}
}

// Key returns the storage key the list lives under.
func (l *List[T]) Key() string {
	return l.key
}

// Load reads the stored list. A missing value, a read error, or a value that
// fails to parse all yield an empty list; failures are logged, never returned.
// Entries repeating an earlier key are dropped.
func (l *List[T]) Load() []T {
	raw, ok, err := l.kv.Get(l.key)
	if err != nil {
		logging.Warn("list load failed", "key", l.key, "error", err)
		return []T{}
	}
	if !ok {
		return []T{}
	}

	var items []T
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		logging.Warn("list parse failed", "key", l.key, "error", err)
		return []T{}
	}

	return Dedupe(items)
}

// Save writes the full list, replacing any prior value.
func (l *List[T]) Save(items []T) error {
	if items == nil {
		items = []T{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode %q: %w", l.key, err)
	}
	return l.kv.Put(l.key, string(data))
}

// Dedupe keeps the first entry for each key, preserving order.
func Dedupe[T Keyed](items []T) []T {
	seen := make(map[string]struct{}, len(items))
	out := make([]T, 0, len(items))
	for _, it := range items {
		k := it.Key()
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, it)
	}
	return out
}
