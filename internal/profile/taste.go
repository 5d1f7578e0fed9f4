package profile

import (
	"context"
	"strings"

	"github.com/TobiSchelling/antirec/internal/llm"
	"github.com/TobiSchelling/antirec/internal/movie"
)

// Summarizer writes a short human-readable taste description.
type Summarizer struct {
	catalog Catalog
	model   llm.Completer
}

// NewSummarizer creates a new taste summarizer.
func NewSummarizer(cat Catalog, model llm.Completer) *Summarizer {
	return &Summarizer{catalog: cat, model: model}
}

// Summarize always returns a usable TasteSummary; any failure yields
// FallbackTasteSummary.
func (s *Summarizer) Summarize(ctx context.Context, movieIDs []int) movie.TasteSummary {
	summary, err := s.summarize(ctx, movieIDs)
	return orFallback("taste", summary, err, FallbackTasteSummary())
}

func (s *Summarizer) summarize(ctx context.Context, movieIDs []int) (movie.TasteSummary, error) {
	details, err := resolveDetails(ctx, s.catalog, movieIDs)
	if err != nil {
		return movie.TasteSummary{}, err
	}

	prompt, err := renderTastePrompt(details)
	if err != nil {
		return movie.TasteSummary{}, err
	}

	text, err := s.model.Complete(ctx, tasteSystem, prompt, true)
	if err != nil {
		return movie.TasteSummary{}, err
	}
	return ParseTasteSummary(text)
}

// ParseTasteSummary decodes model output; both fields must be non-empty
// strings.
func ParseTasteSummary(text string) (movie.TasteSummary, error) {
	var w struct {
		TasteProfile    *string `json:"taste_profile"`
		AntiPreferences *string `json:"anti_preferences"`
	}
	if err := llm.DecodeJSON(text, &w); err != nil {
		return movie.TasteSummary{}, err
	}
	if w.TasteProfile == nil || strings.TrimSpace(*w.TasteProfile) == "" {
		return movie.TasteSummary{}, missing("taste_profile")
	}
	if w.AntiPreferences == nil || strings.TrimSpace(*w.AntiPreferences) == "" {
		return movie.TasteSummary{}, missing("anti_preferences")
	}
	return movie.TasteSummary{
		TasteProfile:    strings.TrimSpace(*w.TasteProfile),
		AntiPreferences: strings.TrimSpace(*w.AntiPreferences),
	}, nil
}
