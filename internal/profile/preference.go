package profile

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/TobiSchelling/antirec/internal/llm"
	"github.com/TobiSchelling/antirec/internal/logging"
	"github.com/TobiSchelling/antirec/internal/movie"
)

// Analyzer derives an AntiPreference from the movies a user likes.
type Analyzer struct {
	catalog Catalog
	model   llm.Completer
}

// NewAnalyzer creates a new preference analyzer.
func NewAnalyzer(cat Catalog, model llm.Completer) *Analyzer {
	return &Analyzer{catalog: cat, model: model}
}

// Analyze always returns a usable AntiPreference; any failure yields
// FallbackAntiPreference.
func (a *Analyzer) Analyze(ctx context.Context, movieIDs []int) movie.AntiPreference {
	pref, err := a.analyze(ctx, movieIDs)
	return orFallback("preference", pref, err, FallbackAntiPreference())
}

func (a *Analyzer) analyze(ctx context.Context, movieIDs []int) (movie.AntiPreference, error) {
	details, err := resolveDetails(ctx, a.catalog, movieIDs)
	if err != nil {
		return movie.AntiPreference{}, err
	}

	prompt, err := renderPreferencePrompt(details)
	if err != nil {
		return movie.AntiPreference{}, err
	}

	text, err := a.model.Complete(ctx, preferenceSystem, prompt, true)
	if err != nil {
		return movie.AntiPreference{}, err
	}

	pref, err := ParseAntiPreference(text)
	if err != nil {
		return movie.AntiPreference{}, err
	}

	logging.Info().
		Int("movies", len(details)).
		Ints("genres", pref.GenresToInclude).
		Str("years", pref.MinYear+"-"+pref.MaxYear).
		Msg("derived anti-preferences")
	return pref, nil
}

type antiPreferenceWire struct {
	GenresToInclude *[]int    `json:"genres_to_include"`
	MinYear         *yearText `json:"min_year"`
	MaxYear         *yearText `json:"max_year"`
	Keywords        []string  `json:"keywords"`
	VoteAverageLTE  *float64  `json:"vote_average_lte"`
	SortPreference  *string   `json:"sort_preference"`
}

// ParseAntiPreference decodes and normalizes model output. Missing required
// fields or wrong types are reported as llm.ErrMalformedOutput.
func ParseAntiPreference(text string) (movie.AntiPreference, error) {
	var w antiPreferenceWire
	if err := llm.DecodeJSON(text, &w); err != nil {
		return movie.AntiPreference{}, err
	}

	switch {
	case w.GenresToInclude == nil:
		return movie.AntiPreference{}, missing("genres_to_include")
	case w.MinYear == nil:
		return movie.AntiPreference{}, missing("min_year")
	case w.MaxYear == nil:
		return movie.AntiPreference{}, missing("max_year")
	case w.VoteAverageLTE == nil:
		return movie.AntiPreference{}, missing("vote_average_lte")
	case w.SortPreference == nil:
		return movie.AntiPreference{}, missing("sort_preference")
	}

	pref := movie.AntiPreference{
		GenresToInclude: []int{},
		MinYear:         string(*w.MinYear),
		MaxYear:         string(*w.MaxYear),
		VoteAverageLTE:  movie.ClampVoteAverage(*w.VoteAverageLTE),
		SortPreference:  *w.SortPreference,
		Keywords:        []string{},
	}
	if pref.MinYear > pref.MaxYear {
		pref.MinYear, pref.MaxYear = pref.MaxYear, pref.MinYear
	}
	if !movie.ValidSort(pref.SortPreference) {
		pref.SortPreference = movie.SortVoteAverageAsc
	}

	seen := make(map[int]bool)
	for _, id := range *w.GenresToInclude {
		if movie.KnownGenre(id) && !seen[id] {
			seen[id] = true
			pref.GenresToInclude = append(pref.GenresToInclude, id)
		}
	}
	for _, kw := range w.Keywords {
		if kw = strings.TrimSpace(kw); kw != "" {
			pref.Keywords = append(pref.Keywords, kw)
		}
	}
	return pref, nil
}

func missing(field string) error {
	return fmt.Errorf("%w: missing %s", llm.ErrMalformedOutput, field)
}

// yearText is a 4-digit year given either as a JSON string or number.
type yearText string

func (y *yearText) UnmarshalJSON(data []byte) error {
	s := string(bytes.Trim(data, `"`))
	if len(s) != 4 {
		return fmt.Errorf("year %s is not 4 digits", data)
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return fmt.Errorf("year %s is not numeric", data)
		}
	}
	*y = yearText(s)
	return nil
}
