// Package session is popcorn's application state machine.
//
// A Session owns the query, the search results, the open selection with its
// detail and rating, and the watched list. Every mutation goes through a
// Session method called from one goroutine (the Bubble Tea update loop or a
// CLI command). Fetches are handed out as request values whose Run method
// may execute anywhere; their completions come back through ApplySearch and
// ApplyDetail, which drop anything a newer request has superseded.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/abelbrown/popcorn/internal/coord"
	"github.com/abelbrown/popcorn/internal/events"
	"github.com/abelbrown/popcorn/internal/logging"
	"github.com/abelbrown/popcorn/internal/movie"
	"github.com/abelbrown/popcorn/internal/omdb"
)

const comp = "session"

var (
	// ErrDuplicateEntry is returned when adding an id already on the watched list.
	ErrDuplicateEntry = errors.New("already on the watched list")
	// ErrNoSelection is returned by rating operations with no movie open.
	ErrNoSelection = errors.New("no movie selected")
	// ErrInvalidRating is returned for ratings outside 1-10, or when adding unrated.
	ErrInvalidRating = errors.New("rating must be between 1 and 10")
	// ErrDetailNotLoaded is returned when adding before the detail fetch finished.
	ErrDetailNotLoaded = errors.New("movie details not loaded")
)

// Searcher runs title searches.
type Searcher interface {
	Search(ctx context.Context, query string) ([]movie.SearchResult, error)
}

// DetailFetcher loads one title's metadata.
type DetailFetcher interface {
	Detail(ctx context.Context, id string) (movie.Detail, error)
}

// ListStore persists the watched list wholesale.
type ListStore interface {
	Save(watched []movie.WatchedEntry) error
}

// Config wires a Session. Searcher and Details are needed only by SetQuery
// and SelectMovie; list-only callers may leave them nil.
type Config struct {
	Searcher Searcher
	Details  DetailFetcher
	Store    ListStore            // nil keeps the list in memory only
	Watched  []movie.WatchedEntry // initial list, usually List.Load()
	Events   *events.Logger       // nil discards events
	Now      func() time.Time     // stamps AddedAt; defaults to time.Now
	Context  context.Context      // parent of every request; defaults to Background
}

// Status is the coarse search state derived from the session fields.
type Status int

const (
	StatusIdle      Status = iota // no searchable query
	StatusSearching               // request in flight
	StatusResults                 // last search succeeded, possibly empty
	StatusFailed                  // last search failed
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusSearching:
		return "searching"
	case StatusResults:
		return "results"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Session holds application state. Not safe for concurrent use.
type Session struct {
	searcher Searcher
	details  DetailFetcher
	store    ListStore
	events   *events.Logger
	now      func() time.Time

	coord      *coord.Coordinator
	searchLane *coord.Lane
	detailLane *coord.Lane

	query   string
	results []movie.SearchResult
	loading bool
	errMsg  string

	selectedID    string
	detail        *movie.Detail
	detailLoading bool
	userRating    float64
	revisions     int // rating changes during the current selection

	watched []movie.WatchedEntry

	staleLog rate.Sometimes
}

// New creates a Session.
func New(cfg Config) *Session {
	ctx := cfg.Context
	if ctx == nil {
		ctx = context.Background()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	watched := make([]movie.WatchedEntry, len(cfg.Watched))
	copy(watched, cfg.Watched)

	c := coord.New(ctx)
	return &Session{
		searcher:   cfg.Searcher,
		details:    cfg.Details,
		store:      cfg.Store,
		events:     cfg.Events,
		now:        now,
		coord:      c,
		searchLane: c.NewLane("search"),
		detailLane: c.NewLane("detail"),
		results:    []movie.SearchResult{},
		watched:    watched,
		staleLog:   rate.Sometimes{First: 3, Interval: 30 * time.Second},
	}
}

// --- Search ---

// SearchRequest is one search, ready to run off the state goroutine.
type SearchRequest struct {
	Query     string
	RequestID string

	ctx      context.Context
	token    coord.Token
	searcher Searcher
}

// SearchDone is a finished search.
type SearchDone struct {
	Query     string
	RequestID string
	Results   []movie.SearchResult
	Err       error
	Dur       time.Duration

	token coord.Token
}

// Run performs the search. Safe to call from any goroutine.
func (r *SearchRequest) Run() SearchDone {
	start := time.Now()
	results, err := r.searcher.Search(r.ctx, r.Query)
	return SearchDone{
		Query:     r.Query,
		RequestID: r.RequestID,
		Results:   results,
		Err:       err,
		Dur:       time.Since(start),
		token:     r.token,
	}
}

// SetQuery replaces the query and supersedes any in-flight search.
// Returns nil when no request is needed: the query is too short to search
// (results are cleared immediately) or the session is closed.
func (s *Session) SetQuery(text string) *SearchRequest {
	s.query = text
	s.errMsg = ""

	if s.coord.Closed() {
		return nil
	}

	if !movie.Searchable(text) {
		s.searchLane.Cancel()
		s.results = []movie.SearchResult{}
		s.loading = false
		s.events.Emit(events.Event{Level: events.LevelDebug, Kind: events.KindSearchSkip, Comp: comp, Query: text})
		return nil
	}

	ctx, token := s.searchLane.Begin()
	s.loading = true

	req := &SearchRequest{
		Query:     text,
		RequestID: uuid.NewString(),
		ctx:       ctx,
		token:     token,
		searcher:  s.searcher,
	}
	s.events.Emit(events.Event{Kind: events.KindSearchStart, Comp: comp, RequestID: req.RequestID, Query: text})
	return req
}

// ApplySearch writes a finished search into state. Returns false when the
// completion was dropped: superseded, cancelled, or after Close.
func (s *Session) ApplySearch(done SearchDone) bool {
	if !s.searchLane.Current(done.token) {
		s.dropStale(events.KindSearchStale, done.RequestID, done.Query, "")
		return false
	}
	s.searchLane.Done(done.token)

	s.loading = false

	if isCancel(done.Err) {
		s.events.Emit(events.Event{Kind: events.KindSearchCancel, Comp: comp, RequestID: done.RequestID, Query: done.Query})
		return false
	}

	if done.Err != nil {
		s.results = []movie.SearchResult{}
		s.errMsg = omdb.Message(done.Err)
		logging.Warn("search failed", "query", done.Query, "error", done.Err)
		s.events.Emit(events.Event{
			Level: events.LevelWarn, Kind: events.KindSearchError, Comp: comp,
			RequestID: done.RequestID, Query: done.Query, Dur: done.Dur, Err: done.Err.Error(),
		})
		return true
	}

	results := done.Results
	if results == nil {
		results = []movie.SearchResult{}
	}
	s.results = results
	s.errMsg = ""
	s.events.Emit(events.Event{
		Kind: events.KindSearchComplete, Comp: comp,
		RequestID: done.RequestID, Query: done.Query, Dur: done.Dur, Count: len(results),
	})
	return true
}

// ReconcileSelection closes the detail view when the selected id is not among
// the current results. Callers invoke it after a search lands. Returns true if
// the selection was cleared.
func (s *Session) ReconcileSelection() bool {
	if s.selectedID == "" {
		return false
	}
	for _, r := range s.results {
		if r.ID == s.selectedID {
			return false
		}
	}
	s.CloseDetail()
	return true
}

// --- Detail ---

// DetailRequest is one detail fetch, ready to run off the state goroutine.
type DetailRequest struct {
	ID        string
	RequestID string

	ctx     context.Context
	token   coord.Token
	details DetailFetcher
}

// DetailDone is a finished detail fetch.
type DetailDone struct {
	ID        string
	RequestID string
	Detail    movie.Detail
	Err       error
	Dur       time.Duration

	token coord.Token
}

// Run fetches the detail. Safe to call from any goroutine.
func (r *DetailRequest) Run() DetailDone {
	start := time.Now()
	d, err := r.details.Detail(r.ctx, r.ID)
	return DetailDone{
		ID:        r.ID,
		RequestID: r.RequestID,
		Detail:    d,
		Err:       err,
		Dur:       time.Since(start),
		token:     r.token,
	}
}

// SelectMovie toggles the selection. Selecting the open id closes it and
// returns nil. Selecting another id discards the loaded detail, resets the
// rating, and returns the fetch to run.
func (s *Session) SelectMovie(id string) *DetailRequest {
	if id == "" || id == s.selectedID {
		s.CloseDetail()
		return nil
	}
	if s.coord.Closed() {
		return nil
	}

	ctx, token := s.detailLane.Begin()
	s.selectedID = id
	s.detail = nil
	s.detailLoading = true
	s.userRating = 0
	s.revisions = 0

	req := &DetailRequest{
		ID:        id,
		RequestID: uuid.NewString(),
		ctx:       ctx,
		token:     token,
		details:   s.details,
	}
	s.events.Emit(events.Event{Kind: events.KindDetailStart, Comp: comp, RequestID: req.RequestID, MovieID: id})
	return req
}

// ApplyDetail writes a finished detail fetch into state. A failed fetch is
// logged and leaves the detail loading; the user retries by reselecting.
// Returns false when the completion was dropped.
func (s *Session) ApplyDetail(done DetailDone) bool {
	if !s.detailLane.Current(done.token) {
		s.dropStale(events.KindDetailStale, done.RequestID, "", done.ID)
		return false
	}
	s.detailLane.Done(done.token)

	if isCancel(done.Err) {
		s.events.Emit(events.Event{Kind: events.KindDetailCancel, Comp: comp, RequestID: done.RequestID, MovieID: done.ID})
		return false
	}

	if done.Err != nil {
		logging.Warn("detail fetch failed", "id", done.ID, "error", done.Err)
		s.events.Emit(events.Event{
			Level: events.LevelWarn, Kind: events.KindDetailError, Comp: comp,
			RequestID: done.RequestID, MovieID: done.ID, Dur: done.Dur, Err: done.Err.Error(),
		})
		return true
	}

	d := done.Detail
	s.detail = &d
	s.detailLoading = false
	s.events.Emit(events.Event{
		Kind: events.KindDetailComplete, Comp: comp,
		RequestID: done.RequestID, MovieID: done.ID, Dur: done.Dur,
	})
	return true
}

// CloseDetail clears the selection and cancels its fetch. Idempotent.
func (s *Session) CloseDetail() {
	if s.detailLoading {
		s.events.Emit(events.Event{Level: events.LevelDebug, Kind: events.KindDetailCancel, Comp: comp, MovieID: s.selectedID})
	}
	s.detailLane.Cancel()
	s.selectedID = ""
	s.detail = nil
	s.detailLoading = false
	s.userRating = 0
	s.revisions = 0
}

// --- Rating and the watched list ---

// SetRating sets the rating for the open selection. Each change of value
// counts as one revision; re-entering the same value does not.
func (s *Session) SetRating(r float64) error {
	if s.selectedID == "" {
		return ErrNoSelection
	}
	if !movie.ValidRating(r) {
		return ErrInvalidRating
	}
	if r == s.userRating {
		return nil
	}
	s.userRating = r
	s.revisions++
	s.events.Emit(events.Event{
		Level: events.LevelDebug, Kind: events.KindWatchRate, Comp: comp,
		MovieID: s.selectedID, Count: s.revisions,
	})
	return nil
}

// CurrentEntry builds the watched entry for the open selection.
func (s *Session) CurrentEntry() (movie.WatchedEntry, error) {
	if s.selectedID == "" {
		return movie.WatchedEntry{}, ErrNoSelection
	}
	if s.detail == nil {
		return movie.WatchedEntry{}, ErrDetailNotLoaded
	}
	if !movie.ValidRating(s.userRating) {
		return movie.WatchedEntry{}, ErrInvalidRating
	}

	d := s.detail
	return movie.WatchedEntry{
		ID:                  s.selectedID,
		Title:               d.Title,
		Year:                d.Year,
		PosterURL:           d.PosterURL,
		ExternalRating:      d.ExternalRating,
		RuntimeMinutes:      d.RuntimeMinutes,
		UserRating:          s.userRating,
		RatingRevisionCount: s.revisions,
		AddedAt:             s.now(),
	}, nil
}

// AddCurrent adds the open selection with its rating to the watched list.
func (s *Session) AddCurrent() error {
	entry, err := s.CurrentEntry()
	if err != nil {
		return err
	}
	return s.AddWatched(entry)
}

// AddWatched appends entry, saves the list, and closes the detail view.
// An id already on the list is rejected with ErrDuplicateEntry and nothing
// changes.
func (s *Session) AddWatched(entry movie.WatchedEntry) error {
	if movie.IndexOf(s.watched, entry.ID) >= 0 {
		s.events.Emit(events.Event{Level: events.LevelWarn, Kind: events.KindWatchDuplicate, Comp: comp, MovieID: entry.ID})
		return ErrDuplicateEntry
	}

	next := make([]movie.WatchedEntry, len(s.watched), len(s.watched)+1)
	copy(next, s.watched)
	s.watched = append(next, entry)

	s.events.Emit(events.Event{Kind: events.KindWatchAdd, Comp: comp, MovieID: entry.ID, Count: len(s.watched)})
	s.save()
	s.CloseDetail()
	return nil
}

// DeleteWatched removes id from the watched list and saves. A missing id
// changes nothing but still saves. Returns true if an entry was removed.
func (s *Session) DeleteWatched(id string) bool {
	next := make([]movie.WatchedEntry, 0, len(s.watched))
	for _, w := range s.watched {
		if w.ID != id {
			next = append(next, w)
		}
	}
	removed := len(next) != len(s.watched)
	s.watched = next

	s.events.Emit(events.Event{Kind: events.KindWatchDelete, Comp: comp, MovieID: id, Count: len(s.watched)})
	s.save()
	return removed
}

// save writes the list. Failures are logged, never returned.
func (s *Session) save() {
	if s.store == nil {
		return
	}
	if err := s.store.Save(s.watched); err != nil {
		logging.Error("save watched list failed", "error", err)
		s.events.Error(events.KindStoreError, comp, err)
		return
	}
	s.events.Emit(events.Event{Level: events.LevelDebug, Kind: events.KindStoreSave, Comp: comp, Count: len(s.watched)})
}

// Summary returns the watched-list statistics.
func (s *Session) Summary() movie.Summary {
	return movie.Summarize(s.watched)
}

// WatchedRating returns the stored user rating for id.
func (s *Session) WatchedRating(id string) (float64, bool) {
	i := movie.IndexOf(s.watched, id)
	if i < 0 {
		return 0, false
	}
	return s.watched[i].UserRating, true
}

// IsWatched reports whether id is on the watched list.
func (s *Session) IsWatched(id string) bool {
	return movie.IndexOf(s.watched, id) >= 0
}

// Close cancels every in-flight request. Completions arriving later are
// dropped. Idempotent.
func (s *Session) Close() {
	if s.coord.Closed() {
		return
	}
	s.coord.Close()
	s.loading = false
	s.events.Emit(events.Event{Level: events.LevelDebug, Kind: events.KindShutdown, Comp: comp})
}

// --- Accessors ---

func (s *Session) Query() string        { return s.query }
func (s *Session) Loading() bool        { return s.loading }
func (s *Session) Err() string          { return s.errMsg }
func (s *Session) SelectedID() string   { return s.selectedID }
func (s *Session) DetailLoading() bool  { return s.detailLoading }
func (s *Session) DetailOpen() bool     { return s.selectedID != "" }
func (s *Session) UserRating() float64  { return s.userRating }
func (s *Session) RatingRevisions() int { return s.revisions }
func (s *Session) Closed() bool         { return s.coord.Closed() }

// Results returns a copy of the current results.
func (s *Session) Results() []movie.SearchResult {
	out := make([]movie.SearchResult, len(s.results))
	copy(out, s.results)
	return out
}

// Watched returns a copy of the watched list.
func (s *Session) Watched() []movie.WatchedEntry {
	out := make([]movie.WatchedEntry, len(s.watched))
	copy(out, s.watched)
	return out
}

// Detail returns the loaded detail for the open selection.
func (s *Session) Detail() (movie.Detail, bool) {
	if s.detail == nil {
		return movie.Detail{}, false
	}
	return *s.detail, true
}

// Status derives the search state.
func (s *Session) Status() Status {
	switch {
	case s.loading:
		return StatusSearching
	case s.errMsg != "":
		return StatusFailed
	case movie.Searchable(s.query):
		return StatusResults
	default:
		return StatusIdle
	}
}

// Lanes exposes request lane stats for the debug overlay.
func (s *Session) Lanes() []coord.LaneStats {
	return s.coord.Lanes()
}

// dropStale records a completion that lost the race to a newer request.
func (s *Session) dropStale(kind events.Kind, rid, query, id string) {
	s.events.Emit(events.Event{Level: events.LevelDebug, Kind: kind, Comp: comp, RequestID: rid, Query: query, MovieID: id})
	s.staleLog.Do(func() {
		logging.Debug("dropped stale completion", "kind", kind, "rid", rid)
	})
}

func isCancel(err error) bool {
	return errors.Is(err, context.Canceled)
}
