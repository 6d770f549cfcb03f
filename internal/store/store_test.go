package store

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/abelbrown/popcorn/internal/movie"
)

// Verify Store implements KV at compile time.
var _ KV = (*Store)(nil)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestOpen(t *testing.T) {
	st := openTestStore(t)

	var name string
	err := st.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='kv'").Scan(&name)
	if err != nil {
		t.Fatalf("kv table not created: %v", err)
	}
	if name != "kv" {
		t.Errorf("expected table name 'kv', got %q", name)
	}
}

func TestOpenFileReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "popcorn.db")

	st, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := st.Put("watched", "[]"); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	st.Close()

	// Migrations must be idempotent across restarts.
	st, err = Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer st.Close()

	v, ok, err := st.Get("watched")
	if err != nil || !ok || v != "[]" {
		t.Errorf("Get after reopen = (%q, %v, %v)", v, ok, err)
	}
}

func TestGetMissing(t *testing.T) {
	st := openTestStore(t)

	v, ok, err := st.Get("nope")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if ok || v != "" {
		t.Errorf("Get(missing) = (%q, %v), want (\"\", false)", v, ok)
	}
}

func TestPutReplaces(t *testing.T) {
	st := openTestStore(t)

	if err := st.Put("k", "one"); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := st.Put("k", "two"); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	v, ok, err := st.Get("k")
	if err != nil || !ok {
		t.Fatalf("Get failed: ok=%v err=%v", ok, err)
	}
	if v != "two" {
		t.Errorf("expected last write to win, got %q", v)
	}

	keys, err := st.Keys()
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	if len(keys) != 1 {
		t.Errorf("expected 1 key after overwrite, got %v", keys)
	}
}

func TestDelete(t *testing.T) {
	st := openTestStore(t)

	st.Put("a", "1")
	st.Put("b", "2")

	if err := st.Delete("a"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := st.Delete("missing"); err != nil {
		t.Errorf("Delete(missing) should not fail: %v", err)
	}

	keys, _ := st.Keys()
	if len(keys) != 1 || keys[0] != "b" {
		t.Errorf("Keys() = %v, want [b]", keys)
	}
}

func TestConcurrentPut(t *testing.T) {
	st := openTestStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := st.Put("k", "v"); err != nil {
				t.Errorf("Put %d failed: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	if _, ok, _ := st.Get("k"); !ok {
		t.Error("expected key to exist after concurrent puts")
	}
}

// --- List ---

// countingKV wraps a KV and counts writes.
type countingKV struct {
	KV
	puts int
}

func (c *countingKV) Put(key, value string) error {
	c.puts++
	return c.KV.Put(key, value)
}

// failingKV fails every read.
type failingKV struct{}

func (failingKV) Get(string) (string, bool, error) { return "", false, errors.New("disk on fire") }
func (failingKV) Put(string, string) error         { return errors.New("disk on fire") }

func TestListLoadEmpty(t *testing.T) {
	st := openTestStore(t)
	l := NewList[movie.WatchedEntry](st, WatchedKey)

	got := l.Load()
	if got == nil || len(got) != 0 {
		t.Errorf("Load on empty store = %v, want empty non-nil list", got)
	}
}

func TestListSaveLoad(t *testing.T) {
	st := openTestStore(t)
	l := NewList[movie.WatchedEntry](st, WatchedKey)

	want := []movie.WatchedEntry{
		{ID: "tt1375666", Title: "Inception", RuntimeMinutes: 148, UserRating: 9, RatingRevisionCount: 1},
		{ID: "tt0133093", Title: "The Matrix", RuntimeMinutes: 136, UserRating: 10},
	}
	if err := l.Save(want); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got := l.Load()
	if len(got) != 2 {
		t.Fatalf("Load returned %d entries, want 2", len(got))
	}
	if got[0].ID != "tt1375666" || got[1].ID != "tt0133093" {
		t.Errorf("order not preserved: %v", got)
	}
	if got[0].RuntimeMinutes != 148 || got[0].RatingRevisionCount != 1 {
		t.Errorf("fields not round-tripped: %+v", got[0])
	}
}

func TestListSaveNilWritesEmptyArray(t *testing.T) {
	st := openTestStore(t)
	l := NewList[movie.WatchedEntry](st, WatchedKey)

	if err := l.Save(nil); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	raw, _, _ := st.Get(WatchedKey)
	if raw != "[]" {
		t.Errorf("stored %q, want []", raw)
	}
}

func TestListLoadCorruptValue(t *testing.T) {
	st := openTestStore(t)
	st.Put(WatchedKey, "{not json")

	l := NewList[movie.WatchedEntry](st, WatchedKey)
	got := l.Load()
	if len(got) != 0 {
		t.Errorf("corrupt value should load as empty, got %v", got)
	}
}

func TestListLoadReadFailure(t *testing.T) {
	l := NewList[movie.WatchedEntry](failingKV{}, WatchedKey)
	if got := l.Load(); len(got) != 0 {
		t.Errorf("read failure should load as empty, got %v", got)
	}
}

func TestListLoadDropsDuplicates(t *testing.T) {
	st := openTestStore(t)
	st.Put(WatchedKey, `[{"imdbID":"a","title":"first"},{"imdbID":"b"},{"imdbID":"a","title":"second"}]`)

	got := NewList[movie.WatchedEntry](st, WatchedKey).Load()
	if len(got) != 2 {
		t.Fatalf("expected 2 entries after dedupe, got %d", len(got))
	}
	if got[0].Title != "first" {
		t.Errorf("expected first occurrence to win, got %q", got[0].Title)
	}
}

func TestListLoadDoesNotSave(t *testing.T) {
	st := openTestStore(t)
	st.Put(WatchedKey, `[{"imdbID":"a"}]`)

	kv := &countingKV{KV: st}
	l := NewList[movie.WatchedEntry](kv, WatchedKey)
	l.Load()
	l.Load()

	if kv.puts != 0 {
		t.Errorf("Load wrote %d times, want 0", kv.puts)
	}
}

func TestListKeysAreIndependent(t *testing.T) {
	st := openTestStore(t)

	a := NewList[movie.WatchedEntry](st, "a")
	b := NewList[movie.WatchedEntry](st, "b")
	a.Save([]movie.WatchedEntry{{ID: "x"}})

	if got := b.Load(); len(got) != 0 {
		t.Errorf("list b should be empty, got %v", got)
	}
	if a.Key() != "a" {
		t.Errorf("Key() = %q", a.Key())
	}
}
