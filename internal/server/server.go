package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/TobiSchelling/antirec/internal/catalog"
	"github.com/TobiSchelling/antirec/internal/logging"
	"github.com/TobiSchelling/antirec/internal/movie"
	"github.com/TobiSchelling/antirec/internal/pipeline"
	"github.com/TobiSchelling/antirec/internal/recommend"
)

const (
	maxCount     = 50
	maxBodyBytes = 64 << 10
)

var errBadRequest = errors.New("bad request")

// Options configures request defaults.
type Options struct {
	DefaultCount int
	PosterCount  int
}

// Server is the JSON API over the anti-recommendation pipeline.
type Server struct {
	pipeline *pipeline.Pipeline
	opts     Options
	router   chi.Router
}

// New creates a new Server.
func New(p *pipeline.Pipeline, opts Options) *Server {
	if opts.DefaultCount < 1 {
		opts.DefaultCount = 10
	}
	if opts.PosterCount < 1 {
		opts.PosterCount = 20
	}
	s := &Server{pipeline: p, opts: opts, router: chi.NewRouter()}
	s.routes()
	return s
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	r := s.router
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(logRequests)
	r.Use(chimiddleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/posters", s.handlePosters)
		r.Post("/profiles", s.handleCreateProfile)
		r.Get("/profiles/{id}", s.handleGetProfile)
		r.Get("/profiles/{id}/recommendations", s.handleMore)
		r.Delete("/profiles/{id}", s.handleDeleteProfile)
	})

	r.Handle("/metrics", promhttp.Handler())
}

type postersResponse struct {
	Movies []movie.Summary `json:"movies"`
}

type createProfileRequest struct {
	MovieIDs []int `json:"movie_ids"`
	Count    int   `json:"count"`
}

type resultResponse struct {
	ProfileID      string               `json:"profile_id"`
	AntiPreference movie.AntiPreference `json:"anti_preference"`
	TasteSummary   movie.TasteSummary   `json:"taste_summary"`
	Movies         []movie.Summary      `json:"movies"`
	Unfiltered     bool                 `json:"unfiltered"`
}

func (s *Server) handlePosters(w http.ResponseWriter, r *http.Request) {
	count, err := countParam(r, s.opts.PosterCount)
	if err != nil {
		writeError(w, r, err)
		return
	}

	movies, err := s.pipeline.Posters(r.Context(), count)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, postersResponse{Movies: movies})
}

func (s *Server) handleCreateProfile(w http.ResponseWriter, r *http.Request) {
	var req createProfileRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, r, fmt.Errorf("%w: invalid JSON body: %v", errBadRequest, err))
		return
	}
	if req.Count == 0 {
		req.Count = s.opts.DefaultCount
	}
	if err := validateCount(req.Count); err != nil {
		writeError(w, r, err)
		return
	}

	res, err := s.pipeline.Run(r.Context(), req.MovieIDs, req.Count)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toResponse(res))
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	prof, err := s.pipeline.Profile(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, prof)
}

func (s *Server) handleMore(w http.ResponseWriter, r *http.Request) {
	count, err := countParam(r, s.opts.DefaultCount)
	if err != nil {
		writeError(w, r, err)
		return
	}

	res, err := s.pipeline.More(r.Context(), chi.URLParam(r, "id"), count)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(res))
}

func (s *Server) handleDeleteProfile(w http.ResponseWriter, r *http.Request) {
	if err := s.pipeline.Reset(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func toResponse(res *pipeline.Result) resultResponse {
	movies := res.Movies
	if movies == nil {
		movies = []movie.Summary{}
	}
	return resultResponse{
		ProfileID:      res.ProfileID,
		AntiPreference: res.AntiPreference,
		TasteSummary:   res.TasteSummary,
		Movies:         movies,
		Unfiltered:     res.Unfiltered,
	}
}

func countParam(r *http.Request, fallback int) (int, error) {
	raw := r.URL.Query().Get("count")
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: count must be an integer", errBadRequest)
	}
	return n, validateCount(n)
}

func validateCount(n int) error {
	if n < 1 || n > maxCount {
		return fmt.Errorf("%w: count must be between 1 and %d", errBadRequest, maxCount)
	}
	return nil
}

// writeError maps pipeline errors to status codes. Server-side failures get
// a generic message; details go to the log.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	msg := "Something went wrong. Please try again later."

	switch {
	case errors.Is(err, errBadRequest):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, pipeline.ErrNoSelection):
		status, msg = http.StatusBadRequest, "select at least one movie"
	case errors.Is(err, pipeline.ErrProfileNotFound):
		status, msg = http.StatusNotFound, "profile not found"
	case errors.Is(err, recommend.ErrNoResults):
		status, msg = http.StatusNotFound, "no movies found"
	case errors.Is(err, catalog.ErrUnavailable):
		status, msg = http.StatusBadGateway, "The movie catalog is unavailable. Please try again later."
	case errors.Is(err, context.Canceled):
		status = 499
	}

	if status >= http.StatusInternalServerError {
		logging.Error().Err(err).Str("path", r.URL.Path).
			Str("request_id", chimiddleware.GetReqID(r.Context())).Msg("request failed")
	}
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Warn().Err(err).Msg("writing response")
	}
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		logging.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Str("request_id", chimiddleware.GetReqID(r.Context())).
			Msg("request")
	})
}

// Serve runs the API on the given port until ctx is canceled.
func Serve(ctx context.Context, srv *Server, port int) error {
	addr := fmt.Sprintf("127.0.0.1:%d", port)
	hs := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", "http://"+addr).Msg("server listening")
		errCh <- hs.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return hs.Shutdown(shutdownCtx)
	}
}
