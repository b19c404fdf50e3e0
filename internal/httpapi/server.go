// Package httpapi exposes the technique library and the learning workflow
// over HTTP.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/p-n-ai/pai-testlab/internal/appstate"
	"github.com/p-n-ai/pai-testlab/internal/catalog"
	"github.com/p-n-ai/pai-testlab/internal/learner"
	"github.com/p-n-ai/pai-testlab/internal/report"
)

const (
	maxBodyBytes = 1 << 20
	readyTimeout = 2 * time.Second
)

// HealthChecker reports whether a dependency is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Config holds dependencies for the API.
type Config struct {
	Service *learner.Service
	State   *appstate.Store
	Hub     *Hub
	Storage HealthChecker
}

// Server serves the JSON API.
type Server struct {
	svc     *learner.Service
	catalog *catalog.Catalog
	state   *appstate.Store
	hub     *Hub
	storage HealthChecker
	etag    string
}

// New creates a server. A nil Hub gets a fresh one.
func New(cfg Config) *Server {
	hub := cfg.Hub
	if hub == nil {
		hub = NewHub()
	}
	c := cfg.Service.Catalog()
	return &Server{
		svc:     cfg.Service,
		catalog: c,
		state:   cfg.State,
		hub:     hub,
		storage: cfg.Storage,
		etag:    `"` + c.Digest() + `"`,
	}
}

// Handler returns the HTTP router.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealthz)
	mux.HandleFunc("GET /readyz", s.handleReadyz)

	mux.HandleFunc("GET /api/categories", s.cached(s.handleCategories))
	mux.HandleFunc("GET /api/categories/{id}", s.cached(s.handleCategory))
	mux.HandleFunc("GET /api/techniques", s.cached(s.handleTechniques))
	mux.HandleFunc("GET /api/techniques/{id}", s.cached(s.handleTechnique))
	mux.HandleFunc("GET /api/exercises", s.cached(s.handleExercises))
	mux.HandleFunc("GET /api/exercises/{id}", s.cached(s.handleExercise))
	mux.HandleFunc("POST /api/exercises/{id}/submissions", s.handleSubmit)

	mux.HandleFunc("GET /api/progress", s.handleProgress)
	mux.HandleFunc("GET /api/progress/{exerciseId}", s.handleExerciseProgress)
	mux.HandleFunc("GET /api/badges", s.handleBadges)
	mux.HandleFunc("GET /api/badges/definitions", s.cached(s.handleBadgeDefinitions))
	mux.Handle("GET /api/badges/stream", s.hub)

	mux.HandleFunc("GET /api/dashboard", s.handleDashboard)
	mux.HandleFunc("GET /api/dashboard/report.xlsx", s.handleReport)

	mux.HandleFunc("GET /api/state", s.handleState)
	mux.HandleFunc("POST /api/state/actions", s.handleStateAction)
	return mux
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if s.storage != nil {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()
		if err := s.storage.HealthCheck(ctx); err != nil {
			slog.Warn("readiness check failed", "error", err)
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}

// cached serves 304 when the client already holds the current catalog.
func (s *Server) cached(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("ETag", s.etag)
		w.Header().Set("Cache-Control", "no-cache")
		if r.Header.Get("If-None-Match") == s.etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		next(w, r)
	}
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.catalog.Categories())
}

func (s *Server) handleCategory(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	c, ok := s.catalog.Category(id)
	if !ok {
		writeError(w, http.StatusNotFound, "category not found: "+id)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"category":   c,
		"techniques": nonNil(s.catalog.TechniquesInCategory(id)),
	})
}

func (s *Server) handleTechniques(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	writeJSON(w, http.StatusOK, s.catalog.Search(q.Get("q"), q.Get("category")))
}

func (s *Server) handleTechnique(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	t, ok := s.catalog.Technique(id)
	if !ok {
		writeError(w, http.StatusNotFound, "technique not found: "+id)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"technique": t,
		"exercises": newExerciseViews(s.catalog.ExercisesForTechnique(id)),
	})
}

func (s *Server) handleExercises(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	exercises := s.catalog.Exercises()
	switch {
	case q.Get("technique") != "":
		exercises = s.catalog.ExercisesForTechnique(q.Get("technique"))
	case q.Get("category") != "" && q.Get("category") != catalog.CategoryAll:
		exercises = s.catalog.ExercisesInCategory(q.Get("category"))
	}
	writeJSON(w, http.StatusOK, newExerciseViews(exercises))
}

func (s *Server) handleExercise(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	e, ok := s.catalog.Exercise(id)
	if !ok {
		writeError(w, http.StatusNotFound, "exercise not found: "+id)
		return
	}
	writeJSON(w, http.StatusOK, newExerciseView(e))
}

type submissionRequest struct {
	Answers map[string]string `json:"answers"`
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submissionRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	out, err := s.svc.Submit(r.Context(), r.PathValue("id"), req.Answers)
	switch {
	case errors.Is(err, learner.ErrExerciseNotFound):
		writeError(w, http.StatusNotFound, err.Error())
		return
	case errors.Is(err, learner.ErrIncompleteSubmission):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, learner.ErrStorageUnavailable):
		writeError(w, http.StatusServiceUnavailable, "progress storage unavailable")
		return
	case err != nil:
		slog.Error("submission failed", "exercise_id", r.PathValue("id"), "error", err)
		writeError(w, http.StatusInternalServerError, "submission failed")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Progress())
}

func (s *Server) handleExerciseProgress(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("exerciseId")
	p, ok := s.svc.ExerciseProgress(id)
	if !ok {
		writeError(w, http.StatusNotFound, "no progress for exercise: "+id)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleBadges(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Badges())
}

func (s *Server) handleBadgeDefinitions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.catalog.Badges())
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Dashboard())
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := report.Write(&buf, s.svc.Dashboard(), s.catalog); err != nil {
		slog.Error("failed to render report", "error", err)
		writeError(w, http.StatusInternalServerError, "report failed")
		return
	}
	w.Header().Set("Content-Type", report.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="testlab-progress.xlsx"`)
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.state.Load())
}

func (s *Server) handleStateAction(w http.ResponseWriter, r *http.Request) {
	var a appstate.Action
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&a); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !appstate.Known(a.Type) {
		writeError(w, http.StatusBadRequest, "unknown action: "+string(a.Type))
		return
	}

	next, err := s.state.Dispatch(a)
	if err != nil {
		slog.Error("failed to save app state", "action", a.Type, "error", err)
	}
	writeJSON(w, http.StatusOK, next)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	encoder := json.NewEncoder(w)
	_ = encoder.Encode(payload)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
