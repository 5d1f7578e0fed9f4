// Package recommend selects movies a user is expected to dislike.
package recommend

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/TobiSchelling/antirec/internal/catalog"
	"github.com/TobiSchelling/antirec/internal/logging"
	"github.com/TobiSchelling/antirec/internal/metrics"
	"github.com/TobiSchelling/antirec/internal/movie"
)

// ErrNoResults is returned when every query tier came back empty.
var ErrNoResults = errors.New("no results found")

// Catalog lists movies.
type Catalog interface {
	FetchPopular(ctx context.Context, page int, f catalog.Filters) ([]catalog.Movie, error)
}

// Options configures a Selector.
type Options struct {
	ImageBaseURL         string
	CertificationCountry string
	Certifications       []string
	OriginalLanguage     string
	MaxPage              int // discover pages are drawn from 1..MaxPage
	PosterPages          int // popular pages are drawn from 1..PosterPages
}

// DefaultOptions mirrors the catalog's family-friendly English setup.
func DefaultOptions() Options {
	return Options{
		ImageBaseURL:         "https://image.tmdb.org/t/p/w500",
		CertificationCountry: "US",
		Certifications:       []string{"G", "PG", "PG-13"},
		OriginalLanguage:     "en",
		MaxPage:              5,
		PosterPages:          20,
	}
}

// Selector runs the tiered anti-recommendation queries.
type Selector struct {
	catalog Catalog
	opts    Options

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSelector creates a selector. A nil rng is seeded randomly.
func NewSelector(cat Catalog, opts Options, rng *rand.Rand) *Selector {
	if opts.MaxPage < 1 {
		opts.MaxPage = 1
	}
	if opts.PosterPages < 1 {
		opts.PosterPages = 1
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Selector{catalog: cat, opts: opts, rng: rng}
}

// Select returns up to count movies matching pref, trying each tier in turn
// until one yields a usable result. pref may be nil.
func (s *Selector) Select(ctx context.Context, count int, pref *movie.AntiPreference) ([]movie.Summary, error) {
	if count < 1 {
		return nil, fmt.Errorf("count must be positive, got %d", count)
	}

	for _, st := range s.strategies(pref) {
		raw, err := s.catalog.FetchPopular(ctx, s.intN(s.opts.MaxPage)+1, st.filters)
		if err != nil {
			metrics.SelectorTiers.WithLabelValues(st.name, "error").Inc()
			return nil, fmt.Errorf("%s tier: %w", st.name, err)
		}

		posters := s.shape(raw, count)
		if len(posters) == 0 {
			metrics.SelectorTiers.WithLabelValues(st.name, "empty").Inc()
			logging.Info().Str("tier", st.name).Int("raw", len(raw)).Msg("tier produced no usable results")
			continue
		}

		metrics.SelectorTiers.WithLabelValues(st.name, "hit").Inc()
		logging.Info().Str("tier", st.name).Int("posters", len(posters)).Msg("selected anti-recommendations")
		return posters, nil
	}

	return nil, ErrNoResults
}

// RandomPosters returns up to count movies from a random page of the
// popular listing.
func (s *Selector) RandomPosters(ctx context.Context, count int) ([]movie.Summary, error) {
	if count < 1 {
		return nil, fmt.Errorf("count must be positive, got %d", count)
	}

	raw, err := s.catalog.FetchPopular(ctx, s.intN(s.opts.PosterPages)+1, catalog.Filters{})
	if err != nil {
		return nil, fmt.Errorf("fetching posters: %w", err)
	}

	posters := s.shape(raw, count)
	if len(posters) == 0 {
		return nil, ErrNoResults
	}
	return posters, nil
}

func (s *Selector) intN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.IntN(n)
}
