package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/TobiSchelling/antirec/internal/catalog"
	"github.com/TobiSchelling/antirec/internal/config"
	"github.com/TobiSchelling/antirec/internal/database"
	"github.com/TobiSchelling/antirec/internal/llm"
	"github.com/TobiSchelling/antirec/internal/logging"
	"github.com/TobiSchelling/antirec/internal/movie"
	"github.com/TobiSchelling/antirec/internal/profile"
	"github.com/TobiSchelling/antirec/internal/recommend"
)

var (
	// ErrNoSelection is returned when Run is called without movie IDs.
	ErrNoSelection = errors.New("no movies selected")
	// ErrProfileNotFound is returned when a stored profile does not exist.
	ErrProfileNotFound = errors.New("profile not found")
)

// StepResult holds the result of a single pipeline step.
type StepResult struct {
	Name    string
	Summary string
	Err     error
}

// Result holds the outcome of an analysis or a load-more request.
type Result struct {
	ProfileID      string
	AntiPreference movie.AntiPreference
	TasteSummary   movie.TasteSummary
	Movies         []movie.Summary
	Unfiltered     bool // the anti-preference matched nothing; Movies are random posters
	Steps          []StepResult
}

// Analyzer derives an anti-preference from selected movies.
type Analyzer interface {
	Analyze(ctx context.Context, movieIDs []int) movie.AntiPreference
}

// Summarizer describes a user's taste.
type Summarizer interface {
	Summarize(ctx context.Context, movieIDs []int) movie.TasteSummary
}

// Selector queries the catalog for anti-recommendations.
type Selector interface {
	Select(ctx context.Context, count int, pref *movie.AntiPreference) ([]movie.Summary, error)
	RandomPosters(ctx context.Context, count int) ([]movie.Summary, error)
}

// Pipeline orchestrates analysis, selection and profile storage.
type Pipeline struct {
	db         *database.DB
	analyzer   Analyzer
	summarizer Summarizer
	selector   Selector
}

// New creates a pipeline wired to the configured catalog and model provider.
func New(ctx context.Context, cfg *config.Config, db *database.DB) *Pipeline {
	cat := catalog.New(catalog.Options{
		BaseURL:           cfg.Catalog.BaseURL,
		ImageBaseURL:      cfg.Catalog.ImageBaseURL,
		APIKey:            cfg.Catalog.APIKey(),
		Language:          cfg.Catalog.Language,
		Timeout:           cfg.Catalog.Timeout(),
		RequestsPerSecond: cfg.Catalog.RequestsPerSecond,
		BreakerFailures:   cfg.Catalog.BreakerFailures,
		BreakerCooldown:   cfg.Catalog.BreakerCooldown(),
	})

	provider := llm.CreateProvider(ctx, llm.Options{
		Provider: cfg.Model.Provider,
		Model:    cfg.Model.Model,
		BaseURL:  cfg.Model.EffectiveBaseURL(),
		APIKey:   cfg.Model.APIKey(),
		Timeout:  cfg.Model.Timeout(),
	}, cfg.Model.OpenAIKey())
	model := llm.NewClient(provider, cfg.Model.MaxPromptChars)

	rec := cfg.Recommend
	selector := recommend.NewSelector(cat, recommend.Options{
		ImageBaseURL:         cat.ImageBaseURL(),
		CertificationCountry: rec.CertificationCountry,
		Certifications:       rec.Certifications,
		OriginalLanguage:     rec.OriginalLanguage,
		MaxPage:              rec.MaxPage,
		PosterPages:          rec.PosterPages,
	}, nil)

	return Assemble(db, profile.NewAnalyzer(cat, model), profile.NewSummarizer(cat, model), selector)
}

// Assemble creates a pipeline from its parts.
func Assemble(db *database.DB, analyzer Analyzer, summarizer Summarizer, selector Selector) *Pipeline {
	return &Pipeline{db: db, analyzer: analyzer, summarizer: summarizer, selector: selector}
}

// Posters returns random popular movies for the selection screen.
func (p *Pipeline) Posters(ctx context.Context, count int) ([]movie.Summary, error) {
	return p.selector.RandomPosters(ctx, count)
}

// Run analyzes the selected movies, stores the resulting profile and selects
// the first batch of anti-recommendations. A non-nil Result is returned
// whenever a profile was stored, even if selection failed.
func (p *Pipeline) Run(ctx context.Context, movieIDs []int, count int) (*Result, error) {
	if len(movieIDs) == 0 {
		return nil, ErrNoSelection
	}
	r := &Result{}

	logging.Info().Ints("movie_ids", movieIDs).Msg("step 1/4: analyzing anti-preferences")
	r.AntiPreference = p.analyzer.Analyze(ctx, movieIDs)
	r.Steps = append(r.Steps, StepResult{
		Name:    "Analyze",
		Summary: describePreference(r.AntiPreference),
	})

	logging.Info().Msg("step 2/4: summarizing taste")
	r.TasteSummary = p.summarizer.Summarize(ctx, movieIDs)
	r.Steps = append(r.Steps, StepResult{
		Name:    "Summarize",
		Summary: r.TasteSummary.TasteProfile,
	})

	logging.Info().Msg("step 3/4: storing profile")
	id, err := p.db.InsertProfile(ctx, movieIDs, r.AntiPreference, r.TasteSummary)
	if err != nil {
		r.Steps = append(r.Steps, StepResult{Name: "Store", Err: err})
		return nil, fmt.Errorf("storing profile: %w", err)
	}
	r.ProfileID = id
	r.Steps = append(r.Steps, StepResult{Name: "Store", Summary: "Profile " + id})

	logging.Info().Str("profile_id", id).Msg("step 4/4: selecting anti-recommendations")
	step, err := p.selectInto(ctx, r, count, nil)
	r.Steps = append(r.Steps, step)
	return r, err
}

// More selects another batch for a stored profile, preferring movies that
// have not been shown for it yet.
func (p *Pipeline) More(ctx context.Context, profileID string, count int) (*Result, error) {
	prof, err := p.db.GetProfile(ctx, profileID)
	if err != nil {
		return nil, fmt.Errorf("loading profile: %w", err)
	}
	if prof == nil {
		return nil, ErrProfileNotFound
	}

	seen, err := p.db.GetViewedIDs(ctx, profileID)
	if err != nil {
		return nil, fmt.Errorf("loading views: %w", err)
	}

	r := &Result{
		ProfileID:      prof.ID,
		AntiPreference: prof.AntiPreference,
		TasteSummary:   prof.TasteSummary,
	}
	step, err := p.selectInto(ctx, r, count, seen)
	r.Steps = append(r.Steps, step)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// Profile returns a stored profile.
func (p *Pipeline) Profile(ctx context.Context, profileID string) (*database.Profile, error) {
	prof, err := p.db.GetProfile(ctx, profileID)
	if err != nil {
		return nil, err
	}
	if prof == nil {
		return nil, ErrProfileNotFound
	}
	return prof, nil
}

// Reset deletes a stored profile and its history.
func (p *Pipeline) Reset(ctx context.Context, profileID string) error {
	deleted, err := p.db.DeleteProfile(ctx, profileID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrProfileNotFound
	}
	return nil
}

// selectInto fills r.Movies for r.AntiPreference, falling back to random
// posters when every tier comes back empty, and records the shown movies.
func (p *Pipeline) selectInto(ctx context.Context, r *Result, count int, seen map[int]bool) (StepResult, error) {
	movies, err := p.selector.Select(ctx, count, &r.AntiPreference)
	if errors.Is(err, recommend.ErrNoResults) {
		logging.Warn().Str("profile_id", r.ProfileID).Msg("anti-preference matched nothing, using unfiltered posters")
		r.Unfiltered = true
		movies, err = p.selector.RandomPosters(ctx, count)
	}
	if err != nil {
		return StepResult{Name: "Select", Err: err}, err
	}

	movies = preferUnseen(movies, seen)
	r.Movies = movies

	ids := make([]int, len(movies))
	for i, m := range movies {
		ids[i] = m.ID
	}
	if err := p.db.RecordViews(ctx, r.ProfileID, ids); err != nil {
		logging.Warn().Err(err).Str("profile_id", r.ProfileID).Msg("failed to record views")
	}

	summary := fmt.Sprintf("Selected %d movies", len(movies))
	if r.Unfiltered {
		summary += " (unfiltered)"
	}
	return StepResult{Name: "Select", Summary: summary}, nil
}

// preferUnseen drops already-shown movies unless that would leave nothing.
func preferUnseen(movies []movie.Summary, seen map[int]bool) []movie.Summary {
	if len(seen) == 0 {
		return movies
	}
	fresh := make([]movie.Summary, 0, len(movies))
	for _, m := range movies {
		if !seen[m.ID] {
			fresh = append(fresh, m)
		}
	}
	if len(fresh) == 0 {
		return movies
	}
	return fresh
}

func describePreference(pref movie.AntiPreference) string {
	names := make([]string, 0, len(pref.GenresToInclude))
	for _, id := range pref.GenresToInclude {
		names = append(names, movie.GenreName(id))
	}
	return fmt.Sprintf("Genres %v, %s-%s, rating <= %.1f", names, pref.MinYear, pref.MaxYear, pref.VoteAverageLTE)
}
