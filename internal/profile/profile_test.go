package profile

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	json "github.com/goccy/go-json"

	"github.com/TobiSchelling/antirec/internal/catalog"
	"github.com/TobiSchelling/antirec/internal/llm"
	"github.com/TobiSchelling/antirec/internal/movie"
)

// mockCatalog implements Catalog for testing.
type mockCatalog struct {
	movies map[int]movie.Detail
	errs   map[int]error
	calls  []int
}

func (m *mockCatalog) FetchByID(_ context.Context, id int) (*movie.Detail, error) {
	m.calls = append(m.calls, id)
	if err, ok := m.errs[id]; ok {
		return nil, err
	}
	d, ok := m.movies[id]
	if !ok {
		return nil, nil
	}
	return &d, nil
}

// mockModel implements llm.Completer and captures the last prompt.
type mockModel struct {
	response   string
	err        error
	lastSystem string
	lastPrompt string
	calls      int
}

func (m *mockModel) Complete(_ context.Context, system, user string, _ bool) (string, error) {
	m.calls++
	m.lastSystem = system
	m.lastPrompt = user
	return m.response, m.err
}

func testCatalog() *mockCatalog {
	return &mockCatalog{
		movies: map[int]movie.Detail{
			603: {Title: "The Matrix", Genres: []string{"Action", "Science Fiction"}, Year: "1999", Overview: "Neo.", VoteAverage: 8.2},
			13:  {Title: "Forrest Gump", Genres: []string{"Comedy", "Drama", "Romance"}, Year: "1994", Overview: "Run.", VoteAverage: 8.5},
		},
		errs: map[int]error{},
	}
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(data)
}

func TestAnalyzeParsesModelOutput(t *testing.T) {
	model := &mockModel{response: mustJSON(t, map[string]any{
		"genres_to_include": []int{27, 10751},
		"min_year":          "1970",
		"max_year":          "1985",
		"keywords":          []string{"slow pacing", "musical numbers"},
		"vote_average_lte":  4.5,
		"sort_preference":   "popularity.asc",
	})}
	a := NewAnalyzer(testCatalog(), model)

	pref := a.Analyze(context.Background(), []int{603, 13})

	want := movie.AntiPreference{
		GenresToInclude: []int{27, 10751},
		MinYear:         "1970",
		MaxYear:         "1985",
		VoteAverageLTE:  4.5,
		SortPreference:  movie.SortPopularityAsc,
		Keywords:        []string{"slow pacing", "musical numbers"},
	}
	if !reflect.DeepEqual(pref, want) {
		t.Errorf("unexpected anti-preference:\n got %+v\nwant %+v", pref, want)
	}
	if model.lastSystem != preferenceSystem {
		t.Error("expected preference system prompt")
	}
}

func TestAnalyzePromptEmbedsDetailsAndLegend(t *testing.T) {
	model := &mockModel{response: "{}"}
	a := NewAnalyzer(testCatalog(), model)
	a.Analyze(context.Background(), []int{603})

	for _, want := range []string{`"title": "The Matrix"`, "Science Fiction: 878", "Western: 37", "genres_to_include", "sort_preference"} {
		if !strings.Contains(model.lastPrompt, want) {
			t.Errorf("expected %q in prompt", want)
		}
	}
	if strings.Contains(model.lastPrompt, "Forrest Gump") {
		t.Error("unexpected unselected movie in prompt")
	}
}

func TestAnalyzeSkipsMissingAndFailedMovies(t *testing.T) {
	cat := testCatalog()
	cat.errs[500] = catalog.ErrUnavailable
	model := &mockModel{response: "{}"}
	a := NewAnalyzer(cat, model)

	a.Analyze(context.Background(), []int{404, 500, 13, 13})

	if len(cat.calls) != 4 {
		t.Errorf("expected every id to be resolved, got %v", cat.calls)
	}
	if model.calls != 1 {
		t.Fatalf("expected model to be called once, got %d", model.calls)
	}
	if strings.Count(model.lastPrompt, "Forrest Gump") != 2 {
		t.Error("expected duplicate selection to appear twice")
	}
}

func TestAnalyzeWithNoResolvedMoviesStillAsksModel(t *testing.T) {
	model := &mockModel{response: `{"genres_to_include":[],"min_year":"2000","max_year":"2010","vote_average_lte":3,"sort_preference":"vote_average.asc"}`}
	a := NewAnalyzer(&mockCatalog{}, model)

	pref := a.Analyze(context.Background(), []int{1, 2})
	if model.calls != 1 {
		t.Fatalf("expected model call, got %d", model.calls)
	}
	if !strings.Contains(model.lastPrompt, "[]") {
		t.Error("expected empty details block in prompt")
	}
	if len(pref.GenresToInclude) != 0 || pref.MinYear != "2000" {
		t.Errorf("unexpected anti-preference: %+v", pref)
	}
}

func TestAnalyzeFallbackWhenModelFails(t *testing.T) {
	model := &mockModel{err: llm.ErrModelUnavailable}
	a := NewAnalyzer(testCatalog(), model)

	pref := a.Analyze(context.Background(), []int{603})
	if !reflect.DeepEqual(pref, FallbackAntiPreference()) {
		t.Errorf("expected fallback, got %+v", pref)
	}
}

func TestAnalyzeFallbackOnMalformedOutput(t *testing.T) {
	cases := []string{
		"I think they'd hate musicals.",
		`{"genres_to_include": "horror"}`,
		`{"min_year":"1970","max_year":"1980","vote_average_lte":3,"sort_preference":"vote_average.asc"}`,
		`{"genres_to_include":[27],"min_year":"70s","max_year":"1980","vote_average_lte":3,"sort_preference":"vote_average.asc"}`,
	}
	for _, resp := range cases {
		a := NewAnalyzer(testCatalog(), &mockModel{response: resp})
		pref := a.Analyze(context.Background(), []int{603})
		if !reflect.DeepEqual(pref, FallbackAntiPreference()) {
			t.Errorf("response %q: expected fallback, got %+v", resp, pref)
		}
	}
}

func TestAnalyzeFallbackWhenCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cat := testCatalog()
	cat.errs[603] = context.Canceled
	model := &mockModel{response: "{}"}

	pref := NewAnalyzer(cat, model).Analyze(ctx, []int{603})
	if !reflect.DeepEqual(pref, FallbackAntiPreference()) {
		t.Errorf("expected fallback, got %+v", pref)
	}
	if model.calls != 0 {
		t.Error("expected no model call after cancellation")
	}
}

func TestAnalyzeIsDeterministic(t *testing.T) {
	resp := `{"genres_to_include":[35,27,99],"min_year":1960,"max_year":1979,"keywords":["camp"],"vote_average_lte":4,"sort_preference":"vote_average.asc"}`
	a := NewAnalyzer(testCatalog(), &mockModel{response: resp})

	first := a.Analyze(context.Background(), []int{603, 13})
	second := a.Analyze(context.Background(), []int{603, 13})
	if !reflect.DeepEqual(first, second) {
		t.Errorf("expected identical results, got %+v and %+v", first, second)
	}
}

func TestParseAntiPreferenceNormalizes(t *testing.T) {
	text := "```json\n" + `{
  "genres_to_include": [27, 27, 9999, 35],
  "min_year": 2010,
  "max_year": "1990",
  "keywords": ["  ", "jump scares"],
  "vote_average_lte": 8.5,
  "sort_preference": "release_date.desc"
}` + "\n```"

	pref, err := ParseAntiPreference(text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(pref.GenresToInclude, []int{27, 35}) {
		t.Errorf("expected known, deduplicated genres, got %v", pref.GenresToInclude)
	}
	if pref.MinYear != "1990" || pref.MaxYear != "2010" {
		t.Errorf("expected swapped years, got %s-%s", pref.MinYear, pref.MaxYear)
	}
	if pref.VoteAverageLTE != 5.0 {
		t.Errorf("expected clamp to 5.0, got %v", pref.VoteAverageLTE)
	}
	if pref.SortPreference != movie.SortVoteAverageAsc {
		t.Errorf("expected default sort, got %q", pref.SortPreference)
	}
	if !reflect.DeepEqual(pref.Keywords, []string{"jump scares"}) {
		t.Errorf("unexpected keywords %v", pref.Keywords)
	}
}

func TestParseAntiPreferenceRejectsBadYears(t *testing.T) {
	for _, year := range []string{`"-123"`, `"19a0"`, `"95"`, `19800`} {
		text := `{"genres_to_include":[27],"min_year":` + year +
			`,"max_year":"1990","vote_average_lte":3,"sort_preference":"vote_average.asc"}`
		if _, err := ParseAntiPreference(text); !errors.Is(err, llm.ErrMalformedOutput) {
			t.Errorf("year %s: expected ErrMalformedOutput, got %v", year, err)
		}
	}
}

func TestParseAntiPreferenceMissingField(t *testing.T) {
	_, err := ParseAntiPreference(`{"genres_to_include":[27],"min_year":"1970","max_year":"1980","vote_average_lte":3}`)
	if !errors.Is(err, llm.ErrMalformedOutput) {
		t.Fatalf("expected ErrMalformedOutput, got %v", err)
	}
	if !strings.Contains(err.Error(), "sort_preference") {
		t.Errorf("expected field name in error, got %v", err)
	}
}

func TestSummarize(t *testing.T) {
	model := &mockModel{response: `{"taste_profile":"Loves cerebral sci-fi.","anti_preferences":"Saccharine holiday romcoms."}`}
	s := NewSummarizer(testCatalog(), model)

	got := s.Summarize(context.Background(), []int{603})
	if got.TasteProfile != "Loves cerebral sci-fi." || got.AntiPreferences != "Saccharine holiday romcoms." {
		t.Errorf("unexpected summary: %+v", got)
	}
	if model.lastSystem != tasteSystem {
		t.Error("expected taste system prompt")
	}
	if !strings.Contains(model.lastPrompt, "The Matrix") || !strings.Contains(model.lastPrompt, "under 50 words") {
		t.Error("expected taste prompt with movie details")
	}
}

func TestSummarizeFallback(t *testing.T) {
	cases := []*mockModel{
		{err: llm.ErrModelUnavailable},
		{response: "not json"},
		{response: `{"taste_profile":"Loves sci-fi."}`},
		{response: `{"taste_profile":"","anti_preferences":"x"}`},
	}
	for i, model := range cases {
		got := NewSummarizer(testCatalog(), model).Summarize(context.Background(), []int{603})
		if got != FallbackTasteSummary() {
			t.Errorf("case %d: expected fallback, got %+v", i, got)
		}
	}
}

func TestFallbackAntiPreferenceInvariants(t *testing.T) {
	f := FallbackAntiPreference()
	if f.VoteAverageLTE > movie.MaxVoteAverageLTE {
		t.Errorf("fallback vote ceiling too high: %v", f.VoteAverageLTE)
	}
	if !movie.ValidSort(f.SortPreference) {
		t.Errorf("fallback sort invalid: %q", f.SortPreference)
	}
	if len(f.GenresToInclude) != 0 {
		t.Error("expected empty fallback genre set")
	}

	// Callers get independent copies.
	f.Keywords[0] = "changed"
	if FallbackAntiPreference().Keywords[0] != "poorly executed" {
		t.Error("fallback keywords were shared")
	}
}
