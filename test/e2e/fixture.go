package e2e

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"time"

	"github.com/abelbrown/popcorn/internal/movie"
	"github.com/abelbrown/popcorn/internal/store"
)

// fakeOMDb serves a fixed catalogue in the OMDb wire format.
func fakeOMDb() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		switch {
		case q.Get("s") != "":
			json.NewEncoder(w).Encode(map[string]any{
				"Search": []map[string]string{
					{"Title": "Inception", "Year": "2010", "imdbID": "tt1375666", "Type": "movie", "Poster": "N/A"},
					{"Title": "Inception: The Cobol Job", "Year": "2010", "imdbID": "tt5295894", "Type": "movie", "Poster": "N/A"},
				},
				"totalResults": "2",
				"Response":     "True",
			})
		case q.Get("i") == "tt1375666":
			json.NewEncoder(w).Encode(map[string]string{
				"Title":      "Inception",
				"Year":       "2010",
				"Released":   "16 Jul 2010",
				"Runtime":    "148 min",
				"Genre":      "Action, Adventure, Sci-Fi",
				"Director":   "Christopher Nolan",
				"Actors":     "Leonardo DiCaprio, Joseph Gordon-Levitt",
				"Plot":       "A thief who steals corporate secrets through dream-sharing technology.",
				"imdbRating": "8.8",
				"imdbID":     "tt1375666",
				"Response":   "True",
			})
		default:
			json.NewEncoder(w).Encode(map[string]string{"Response": "False", "Error": "Incorrect IMDb ID."})
		}
	}))
}

// writeFixtureHome lays out a popcorn data dir under homeDir that points at
// endpoint and already has one watched title. Returns the config path.
func writeFixtureHome(homeDir, endpoint string) (string, error) {
	dataDir := filepath.Join(homeDir, ".popcorn")
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", err
	}
	dbPath := filepath.Join(dataDir, "popcorn.db")

	st, err := store.Open(dbPath)
	if err != nil {
		return "", err
	}
	defer st.Close()

	seed := []movie.WatchedEntry{{
		ID:             "tt0133093",
		Title:          "The Matrix",
		Year:           "1999",
		ExternalRating: 8.7,
		RuntimeMinutes: 136,
		UserRating:     10,
		AddedAt:        time.Now().Add(-48 * time.Hour),
	}}
	if err := store.NewList[movie.WatchedEntry](st, store.WatchedKey).Save(seed); err != nil {
		return "", err
	}

	cfgPath := filepath.Join(dataDir, "config.yaml")
	cfg := "omdb:\n  endpoint: " + endpoint + "/\nstore:\n  path: " + dbPath + "\nlog:\n  dir: " + filepath.Join(dataDir, "logs") + "\n"
	if err := os.WriteFile(cfgPath, []byte(cfg), 0600); err != nil {
		return "", err
	}
	return cfgPath, nil
}
