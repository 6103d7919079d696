// Package api serves project status, bounds and run submission over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/urban-performance/internal/model"
	"github.com/sells-group/urban-performance/internal/store"
	"github.com/sells-group/urban-performance/internal/workflow"
)

// Submitter starts a project run.
type Submitter interface {
	Submit(ctx context.Context, projectID, name string) (*workflow.Submission, error)
}

// Projects is the store surface the API reads.
type Projects interface {
	Ping(ctx context.Context) error
	GetProject(ctx context.Context, projectID string) (*model.Project, error)
	CountRows(ctx context.Context, projectID string) (int, error)
}

// Server holds the API dependencies.
type Server struct {
	projects  Projects
	submitter Submitter
	log       *zap.Logger
}

// New creates a Server. A nil submitter disables run submission.
func New(projects Projects, submitter Submitter) *Server {
	return &Server{
		projects:  projects,
		submitter: submitter,
		log:       zap.L().With(zap.String("component", "api")),
	}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler(allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.health)
	r.Route("/projects/{id}", func(r chi.Router) {
		r.Get("/", s.getProject)
		r.Get("/bounds", s.getBounds)
		r.Post("/process", s.process)
	})
	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if err := s.projects.Ping(r.Context()); err != nil {
		s.log.Warn("health check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// loadProject writes the error response itself and returns nil when the
// project cannot be read.
func (s *Server) loadProject(w http.ResponseWriter, r *http.Request) *model.Project {
	id := chi.URLParam(r, "id")
	p, err := s.projects.GetProject(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "project not found")
			return nil
		}
		s.log.Error("get project", zap.String("project_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return nil
	}
	return p
}

type projectResponse struct {
	*model.Project
	Rows int `json:"rows"`
}

func (s *Server) getProject(w http.ResponseWriter, r *http.Request) {
	p := s.loadProject(w, r)
	if p == nil {
		return
	}
	rows, err := s.projects.CountRows(r.Context(), p.ID)
	if err != nil {
		s.log.Error("count rows", zap.String("project_id", p.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, projectResponse{Project: p, Rows: rows})
}

func (s *Server) getBounds(w http.ResponseWriter, r *http.Request) {
	p := s.loadProject(w, r)
	if p == nil {
		return
	}
	if p.Status != model.StatusReady {
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":    "project is not ready",
			"status":   p.Status,
			"progress": p.Progress,
		})
		return
	}
	bounds := p.Bounds
	if bounds == nil {
		bounds = model.Bounds{}
	}
	writeJSON(w, http.StatusOK, bounds)
}

type processRequest struct {
	Name string `json:"name"`
}

func (s *Server) process(w http.ResponseWriter, r *http.Request) {
	if s.submitter == nil {
		writeError(w, http.StatusServiceUnavailable, "run submission is not configured")
		return
	}
	var req processRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id := chi.URLParam(r, "id")
	sub, err := s.submitter.Submit(r.Context(), id, req.Name)
	if err != nil {
		s.log.Error("submit run", zap.String("project_id", id), zap.Error(err))
		writeError(w, http.StatusBadGateway, "could not start run")
		return
	}
	writeJSON(w, http.StatusAccepted, sub)
}
