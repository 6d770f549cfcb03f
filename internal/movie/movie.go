// Package movie defines the records popcorn moves between the OMDb client,
// the session state machine, and the persisted watched list.
package movie

import (
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// MinQueryLength is the shortest trimmed query that triggers a search.
const MinQueryLength = 3

// Rating bounds for user ratings.
const (
	MinRating = 1
	MaxRating = 10
)

// SearchResult is one row of a title search. Produced fresh on every search.
type SearchResult struct {
	ID        string
	Title     string
	Year      string
	PosterURL string
}

// Detail is the full metadata snapshot for one title.
type Detail struct {
	ID             string
	Title          string
	Year           string
	PosterURL      string
	RuntimeMinutes int
	ExternalRating float64
	Plot           string
	Released       string
	Actors         string
	Director       string
	Genre          string
}

// WatchedEntry is a rated title on the watched list.
// JSON names match the browser export so old lists import unchanged.
type WatchedEntry struct {
	ID                  string    `json:"imdbID"`
	Title               string    `json:"title"`
	Year                string    `json:"year"`
	PosterURL           string    `json:"poster"`
	ExternalRating      float64   `json:"imdbRating"`
	RuntimeMinutes      int       `json:"runtime"`
	UserRating          float64   `json:"userRating"`
	RatingRevisionCount int       `json:"countRatingDecisions"`
	AddedAt             time.Time `json:"addedAt,omitzero"`
}

// Key returns the entry's unique id.
func (w WatchedEntry) Key() string {
	return w.ID
}

// Searchable reports whether query is long enough to send to the API.
// Shorter strings are treated as empty so a keystroke doesn't fire a request.
func Searchable(query string) bool {
	return utf8.RuneCountInString(strings.TrimSpace(query)) >= MinQueryLength
}

// ValidRating reports whether r is an acceptable user rating.
func ValidRating(r float64) bool {
	return r >= MinRating && r <= MaxRating
}

// ParseRuntime converts an API runtime like "148 min" to minutes.
// Returns 0 for "N/A" or anything without a leading integer.
func ParseRuntime(s string) int {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return 0
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// ParseRating converts an API rating like "8.8" to a float. "N/A" is 0, and so
// is anything non-finite, which JSON cannot store.
func ParseRating(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// Summary holds derived statistics over the watched list.
type Summary struct {
	Count             int
	AvgExternalRating float64
	AvgUserRating     float64
	AvgRuntime        float64
}

// Summarize computes the watched-list averages.
// Every mean is 0 over an empty list, never NaN.
func Summarize(watched []WatchedEntry) Summary {
	if len(watched) == 0 {
		return Summary{}
	}

	var ext, user, runtime float64
	for _, w := range watched {
		ext += w.ExternalRating
		user += w.UserRating
		runtime += float64(w.RuntimeMinutes)
	}

	n := float64(len(watched))
	return Summary{
		Count:             len(watched),
		AvgExternalRating: ext / n,
		AvgUserRating:     user / n,
		AvgRuntime:        runtime / n,
	}
}

// IndexOf returns the position of id in watched, or -1.
func IndexOf(watched []WatchedEntry, id string) int {
	for i, w := range watched {
		if w.ID == id {
			return i
		}
	}
	return -1
}
