// Package catalog is a client for the TMDb movie catalog API.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/TobiSchelling/antirec/internal/logging"
	"github.com/TobiSchelling/antirec/internal/metrics"
	"github.com/TobiSchelling/antirec/internal/movie"
)

// ErrUnavailable is returned when the catalog cannot be reached or answers
// with a non-success status.
var ErrUnavailable = errors.New("catalog unavailable")

var errNotFound = errors.New("not found")

// Options configures a Client.
type Options struct {
	BaseURL           string
	ImageBaseURL      string
	APIKey            string
	Language          string
	Timeout           time.Duration
	RequestsPerSecond float64 // <= 0 disables pacing
	BreakerFailures   uint32  // consecutive failures that open the circuit; 0 never opens
	BreakerCooldown   time.Duration
}

// Movie is a raw entry of a popular/discover result list.
type Movie struct {
	ID          int     `json:"id"`
	Title       string  `json:"title"`
	PosterPath  string  `json:"poster_path"`
	ReleaseDate string  `json:"release_date"`
	GenreIDs    []int   `json:"genre_ids"`
	Overview    string  `json:"overview"`
	VoteAverage float64 `json:"vote_average"`
}

// Client talks to the catalog over HTTP.
type Client struct {
	opts    Options
	http    *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[struct{}]
}

// New creates a catalog client.
func New(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://api.themoviedb.org/3"
	}
	if opts.ImageBaseURL == "" {
		opts.ImageBaseURL = "https://image.tmdb.org/t/p/w500"
	}
	if opts.Timeout == 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.BreakerCooldown == 0 {
		opts.BreakerCooldown = 30 * time.Second
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}

	return &Client{
		opts:    opts,
		http:    &http.Client{Timeout: opts.Timeout},
		limiter: rate.NewLimiter(limit, 1),
		breaker: newBreaker(opts.BreakerFailures, opts.BreakerCooldown),
	}
}

// ImageBaseURL is the prefix poster paths are appended to.
func (c *Client) ImageBaseURL() string {
	return c.opts.ImageBaseURL
}

// FetchPopular lists movies. With zero filters it reads the popular listing,
// otherwise it runs a discover query.
func (c *Client) FetchPopular(ctx context.Context, page int, f Filters) ([]Movie, error) {
	endpoint, path := "discover", "/discover/movie"
	if f.IsZero() {
		endpoint, path = "popular", "/movie/popular"
	}

	var result struct {
		Results []Movie `json:"results"`
	}
	if err := c.get(ctx, endpoint, path, f.values(page, c.opts.Language), &result); err != nil {
		if errors.Is(err, errNotFound) {
			return nil, fmt.Errorf("%w: %s returned 404", ErrUnavailable, path)
		}
		return nil, err
	}

	logging.Debug().Str("endpoint", endpoint).Int("page", page).Int("results", len(result.Results)).Msg("catalog query")
	return result.Results, nil
}

// FetchByID fetches one movie's details. A missing movie yields (nil, nil).
func (c *Client) FetchByID(ctx context.Context, id int) (*movie.Detail, error) {
	var raw struct {
		Title  string `json:"title"`
		Genres []struct {
			ID   int    `json:"id"`
			Name string `json:"name"`
		} `json:"genres"`
		ReleaseDate string  `json:"release_date"`
		Overview    string  `json:"overview"`
		VoteAverage float64 `json:"vote_average"`
	}

	q := url.Values{}
	if c.opts.Language != "" {
		q.Set("language", c.opts.Language)
	}
	err := c.get(ctx, "movie", fmt.Sprintf("/movie/%d", id), q, &raw)
	if errors.Is(err, errNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	d := &movie.Detail{
		Title:       raw.Title,
		Year:        year(raw.ReleaseDate),
		Overview:    raw.Overview,
		VoteAverage: raw.VoteAverage,
	}
	for _, g := range raw.Genres {
		d.Genres = append(d.Genres, g.Name)
	}
	return d, nil
}

func (c *Client) get(ctx context.Context, endpoint, path string, query url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	_, err := c.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, c.do(ctx, path, query, out)
	})

	switch {
	case err == nil:
		metrics.CatalogRequests.WithLabelValues(endpoint, "ok").Inc()
		return nil
	case errors.Is(err, errNotFound):
		metrics.CatalogRequests.WithLabelValues(endpoint, "not_found").Inc()
		return err
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.CatalogRequests.WithLabelValues(endpoint, "rejected").Inc()
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	default:
		metrics.CatalogRequests.WithLabelValues(endpoint, "error").Inc()
		return err
	}
}

func (c *Client) do(ctx context.Context, path string, query url.Values, out any) error {
	u := c.opts.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.opts.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.opts.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return errNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: %s returned %d: %s", ErrUnavailable, path, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decoding %s: %v", ErrUnavailable, path, err)
	}
	return nil
}

func year(releaseDate string) string {
	if len(releaseDate) < 4 {
		return "Unknown"
	}
	return releaseDate[:4]
}

// Year returns the 4-character release year or "Unknown".
func (m Movie) Year() string {
	return year(m.ReleaseDate)
}
