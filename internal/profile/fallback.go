package profile

import (
	"context"
	"errors"

	"github.com/TobiSchelling/antirec/internal/catalog"
	"github.com/TobiSchelling/antirec/internal/llm"
	"github.com/TobiSchelling/antirec/internal/logging"
	"github.com/TobiSchelling/antirec/internal/metrics"
	"github.com/TobiSchelling/antirec/internal/movie"
)

// FallbackAntiPreference is returned by Analyzer.Analyze whenever the model
// path fails.
func FallbackAntiPreference() movie.AntiPreference {
	return movie.AntiPreference{
		GenresToInclude: []int{},
		MinYear:         "1900",
		MaxYear:         "2024",
		VoteAverageLTE:  4.0,
		SortPreference:  movie.SortVoteAverageAsc,
		Keywords:        []string{"poorly executed", "bad production", "low quality"},
	}
}

// FallbackTasteSummary is returned by Summarizer.Summarize whenever the
// model path fails.
func FallbackTasteSummary() movie.TasteSummary {
	return movie.TasteSummary{
		TasteProfile:    "A lover of high-quality, engaging cinema with refined taste.",
		AntiPreferences: "Would probably run screaming from low-budget disasters and poorly executed films.",
	}
}

// orFallback maps any error to the static fallback value.
func orFallback[T any](component string, v T, err error, fallback T) T {
	if err == nil {
		return v
	}

	reason := reasonFor(err)
	logging.Warn().Err(err).Str("component", component).Str("reason", reason).Msg("using fallback")
	metrics.ProfileFallbacks.WithLabelValues(component, reason).Inc()
	return fallback
}

func reasonFor(err error) string {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	case errors.Is(err, llm.ErrMalformedOutput):
		return "malformed_output"
	case errors.Is(err, llm.ErrModelUnavailable):
		return "model_unavailable"
	case errors.Is(err, catalog.ErrUnavailable):
		return "catalog_unavailable"
	default:
		return "other"
	}
}
