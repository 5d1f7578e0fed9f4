package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	json "github.com/goccy/go-json"

	"github.com/TobiSchelling/antirec/internal/catalog"
	"github.com/TobiSchelling/antirec/internal/database"
	"github.com/TobiSchelling/antirec/internal/movie"
	"github.com/TobiSchelling/antirec/internal/pipeline"
	"github.com/TobiSchelling/antirec/internal/recommend"
)

type stubAnalyzer struct{}

func (stubAnalyzer) Analyze(context.Context, []int) movie.AntiPreference {
	return movie.AntiPreference{
		GenresToInclude: []int{10402},
		MinYear:         "1990",
		MaxYear:         "2000",
		VoteAverageLTE:  4,
		SortPreference:  movie.SortVoteAverageAsc,
	}
}

type stubSummarizer struct{}

func (stubSummarizer) Summarize(context.Context, []int) movie.TasteSummary {
	return movie.TasteSummary{TasteProfile: "Likes noir.", AntiPreferences: "Musicals."}
}

type stubSelector struct {
	movies    []movie.Summary
	err       error
	lastCount int
}

func (s *stubSelector) Select(_ context.Context, count int, _ *movie.AntiPreference) ([]movie.Summary, error) {
	s.lastCount = count
	return s.movies, s.err
}

func (s *stubSelector) RandomPosters(_ context.Context, count int) ([]movie.Summary, error) {
	s.lastCount = count
	return s.movies, s.err
}

func newTestServer(t *testing.T, sel *stubSelector) *Server {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	p := pipeline.Assemble(db, stubAnalyzer{}, stubSummarizer{}, sel)
	return New(p, Options{DefaultCount: 10, PosterCount: 20})
}

func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decoding %q: %v", rec.Body.String(), err)
	}
}

func sampleMovies() []movie.Summary {
	return []movie.Summary{
		{ID: 1, Title: "Bad One", PosterURL: "https://img/1.jpg", Year: "1994", GenreIDs: []int{10402}},
		{ID: 2, Title: "Bad Two", PosterURL: "https://img/2.jpg", Year: "1997", GenreIDs: []int{10402}},
	}
}

func TestPostersRoute(t *testing.T) {
	sel := &stubSelector{movies: sampleMovies()}
	srv := newTestServer(t, sel)

	rec := do(t, srv, "GET", "/api/posters", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body postersResponse
	decode(t, rec, &body)
	if len(body.Movies) != 2 {
		t.Errorf("expected 2 posters, got %d", len(body.Movies))
	}
	if sel.lastCount != 20 {
		t.Errorf("expected default poster count 20, got %d", sel.lastCount)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("unexpected content type %q", ct)
	}
}

func TestPostersRejectsBadCount(t *testing.T) {
	srv := newTestServer(t, &stubSelector{movies: sampleMovies()})

	for _, q := range []string{"abc", "0", "-3", "51"} {
		rec := do(t, srv, "GET", "/api/posters?count="+q, "")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("count=%s: expected 400, got %d", q, rec.Code)
		}
		var body map[string]string
		decode(t, rec, &body)
		if body["error"] == "" {
			t.Errorf("count=%s: expected error message", q)
		}
	}
}

func TestCatalogOutageMapsToBadGateway(t *testing.T) {
	srv := newTestServer(t, &stubSelector{err: catalog.ErrUnavailable})

	rec := do(t, srv, "GET", "/api/posters?count=5", "")
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "try again later") {
		t.Errorf("expected generic retry message, got %s", rec.Body.String())
	}
}

func TestNoResultsMapsToNotFound(t *testing.T) {
	srv := newTestServer(t, &stubSelector{err: recommend.ErrNoResults})

	rec := do(t, srv, "GET", "/api/posters", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestProfileLifecycle(t *testing.T) {
	sel := &stubSelector{movies: sampleMovies()}
	srv := newTestServer(t, sel)

	rec := do(t, srv, "POST", "/api/profiles", `{"movie_ids":[603,13],"count":2}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created resultResponse
	decode(t, rec, &created)
	if created.ProfileID == "" || len(created.Movies) != 2 {
		t.Fatalf("unexpected create response %+v", created)
	}
	if created.TasteSummary.TasteProfile != "Likes noir." {
		t.Errorf("unexpected taste summary %+v", created.TasteSummary)
	}
	if sel.lastCount != 2 {
		t.Errorf("expected count 2, got %d", sel.lastCount)
	}

	rec = do(t, srv, "GET", "/api/profiles/"+created.ProfileID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var prof database.Profile
	decode(t, rec, &prof)
	if prof.Views != 2 || len(prof.SelectedIDs) != 2 {
		t.Errorf("unexpected stored profile %+v", prof)
	}

	rec = do(t, srv, "GET", "/api/profiles/"+created.ProfileID+"/recommendations?count=5", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var more resultResponse
	decode(t, rec, &more)
	if more.ProfileID != created.ProfileID || len(more.Movies) == 0 {
		t.Errorf("unexpected load-more response %+v", more)
	}

	rec = do(t, srv, "DELETE", "/api/profiles/"+created.ProfileID, "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}

	rec = do(t, srv, "GET", "/api/profiles/"+created.ProfileID, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", rec.Code)
	}
	rec = do(t, srv, "DELETE", "/api/profiles/"+created.ProfileID, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 on second delete, got %d", rec.Code)
	}
}

func TestCreateProfileValidation(t *testing.T) {
	srv := newTestServer(t, &stubSelector{movies: sampleMovies()})

	cases := map[string]string{
		"not json":      `{movie_ids`,
		"no movies":     `{"movie_ids":[]}`,
		"bad count":     `{"movie_ids":[1],"count":500}`,
		"wrong id type": `{"movie_ids":["a"]}`,
	}
	for name, body := range cases {
		rec := do(t, srv, "POST", "/api/profiles", body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", name, rec.Code)
		}
	}
}

func TestCreateProfileUsesDefaultCount(t *testing.T) {
	sel := &stubSelector{movies: sampleMovies()}
	srv := newTestServer(t, sel)

	rec := do(t, srv, "POST", "/api/profiles", `{"movie_ids":[603]}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if sel.lastCount != 10 {
		t.Errorf("expected default count 10, got %d", sel.lastCount)
	}
}

func TestMoreUnknownProfile(t *testing.T) {
	srv := newTestServer(t, &stubSelector{movies: sampleMovies()})

	rec := do(t, srv, "GET", "/api/profiles/missing/recommendations", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestMetricsRoute(t *testing.T) {
	srv := newTestServer(t, &stubSelector{})

	rec := do(t, srv, "GET", "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "go_goroutines") {
		t.Error("expected Go runtime metrics in output")
	}
}

func TestUnknownRoute(t *testing.T) {
	srv := newTestServer(t, &stubSelector{})
	rec := do(t, srv, "GET", "/nope", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}
