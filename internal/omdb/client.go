// Package omdb is the client for the OMDb movie-metadata API.
//
// Search and Detail are plain request/response calls. They hold no state
// between calls: supersession and cancellation are the caller's business,
// expressed through the context passed in.
package omdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/abelbrown/popcorn/internal/movie"
)

// DefaultEndpoint is the public OMDb API root.
const DefaultEndpoint = "https://www.omdbapi.com/"

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 1 << 20

var (
	// ErrNetwork covers transport failures and non-200 responses.
	ErrNetwork = errors.New("network failure")
	// ErrParse means the response body was not the JSON we expected.
	ErrParse = errors.New("malformed response")
	// ErrNotFound is the API's own "no results" answer.
	ErrNotFound = errors.New("not found")
)

// Client talks to the OMDb API.
type Client struct {
	apiKey   string
	endpoint string
	client   *http.Client
}

// NewClient creates a client. An empty endpoint uses DefaultEndpoint.
// A zero timeout means requests wait until their context is cancelled.
func NewClient(apiKey, endpoint string, timeout time.Duration) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Client{
		apiKey:   apiKey,
		endpoint: endpoint,
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// Available returns true if an API key is configured.
func (c *Client) Available() bool {
	return c.apiKey != ""
}

// Search looks up titles matching query.
// Queries shorter than movie.MinQueryLength return an empty list without a
// network call. The API's "Movie not found!" answer is an empty list, not an error.
func (c *Client) Search(ctx context.Context, query string) ([]movie.SearchResult, error) {
	if !movie.Searchable(query) {
		return []movie.SearchResult{}, nil
	}

	params := url.Values{}
	params.Set("s", strings.TrimSpace(query))

	var resp searchResponse
	if err := c.get(ctx, params, &resp); err != nil {
		return nil, err
	}

	if resp.Response == "False" {
		if isNotFound(resp.Error) {
			return []movie.SearchResult{}, nil
		}
		return nil, fmt.Errorf("%w: %s", ErrNetwork, resp.Error)
	}
	if resp.Response != "True" || resp.Search == nil {
		return nil, fmt.Errorf("%w: search response has no results or error (Response=%q)", ErrParse, resp.Response)
	}

	results := make([]movie.SearchResult, 0, len(resp.Search))
	for _, r := range resp.Search {
		if r.ImdbID == "" {
			continue
		}
		results = append(results, movie.SearchResult{
			ID:        r.ImdbID,
			Title:     r.Title,
			Year:      r.Year,
			PosterURL: r.Poster,
		})
	}
	return results, nil
}

// Detail fetches full metadata for one title. No caching: every call hits the API.
func (c *Client) Detail(ctx context.Context, id string) (movie.Detail, error) {
	params := url.Values{}
	params.Set("i", id)
	params.Set("plot", "short")

	var resp detailResponse
	if err := c.get(ctx, params, &resp); err != nil {
		return movie.Detail{}, err
	}

	if resp.Response == "False" {
		return movie.Detail{}, fmt.Errorf("%w: %s", ErrNotFound, resp.Error)
	}
	if resp.Title == "" {
		return movie.Detail{}, fmt.Errorf("%w: detail for %s has no title", ErrParse, id)
	}

	detailID := resp.ImdbID
	if detailID == "" {
		detailID = id
	}

	return movie.Detail{
		ID:             detailID,
		Title:          resp.Title,
		Year:           resp.Year,
		PosterURL:      resp.Poster,
		RuntimeMinutes: movie.ParseRuntime(resp.Runtime),
		ExternalRating: movie.ParseRating(resp.ImdbRating),
		Plot:           resp.Plot,
		Released:       resp.Released,
		Actors:         resp.Actors,
		Director:       resp.Director,
		Genre:          resp.Genre,
	}, nil
}

// get performs one GET against the API and decodes the body into out.
// A cancelled context is returned as-is so callers can tell it apart from
// a real failure.
func (c *Client) get(ctx context.Context, params url.Values, out any) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	params.Set("apikey", c.apiKey)
	u := c.endpoint + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "popcorn/0.1 (https://github.com/abelbrown/popcorn)")

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: read response: %v", ErrNetwork, err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: HTTP %d", ErrNetwork, resp.StatusCode)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %v", ErrParse, err)
	}
	return nil
}

// isNotFound matches the API's "no results" style errors.
func isNotFound(msg string) bool {
	m := strings.ToLower(msg)
	return strings.Contains(m, "not found") || strings.Contains(m, "too many results")
}

// Message turns a client error into the short line shown to the user.
func Message(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrParse):
		return "Something went wrong reading the movie data"
	case errors.Is(err, ErrNotFound):
		return "Movie not found"
	case errors.Is(err, ErrNetwork):
		return "Something went wrong with fetching movies"
	default:
		return err.Error()
	}
}

// searchResponse is the body of an ?s= request.
type searchResponse struct {
	Search       []searchItem `json:"Search"`
	TotalResults string       `json:"totalResults"`
	Response     string       `json:"Response"`
	Error        string       `json:"Error"`
}

// searchItem is one entry of searchResponse.Search.
type searchItem struct {
	Title  string `json:"Title"`
	Year   string `json:"Year"`
	ImdbID string `json:"imdbID"`
	Type   string `json:"Type"`
	Poster string `json:"Poster"`
}

// detailResponse is the body of an ?i= request.
type detailResponse struct {
	Title      string `json:"Title"`
	Year       string `json:"Year"`
	Released   string `json:"Released"`
	Runtime    string `json:"Runtime"`
	Genre      string `json:"Genre"`
	Director   string `json:"Director"`
	Actors     string `json:"Actors"`
	Plot       string `json:"Plot"`
	Poster     string `json:"Poster"`
	ImdbRating string `json:"imdbRating"`
	ImdbID     string `json:"imdbID"`
	Response   string `json:"Response"`
	Error      string `json:"Error"`
}
