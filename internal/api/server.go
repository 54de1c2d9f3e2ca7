package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dgallion1/scenegest/internal/config"
	"github.com/dgallion1/scenegest/internal/llm"
	"github.com/dgallion1/scenegest/internal/pipeline"
)

// LLMInfo describes the generation backend for the stats endpoint.
// *llm.Instrumented implements it.
type LLMInfo interface {
	Provider() string
	Model() string
	Stats() *llm.Stats
}

// Server is the HTTP API server for scenegest.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	llm          LLMInfo
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server. info may be nil.
func NewServer(orch *pipeline.Orchestrator, info LLMInfo, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		orchestrator: orch,
		llm:          info,
		log:          log,
		cfg:          cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/storyboards", s.handleStoryboard)
		r.Post("/outlines", s.handleOutline)
		r.Post("/scripts", s.handleScript)
		r.Post("/rewrites", s.handleRewrite)

		r.Get("/jobs/{jobID}", s.handleJobStatus)
		r.Get("/jobs/{jobID}/result", s.handleJobResult)

		r.Get("/stats/llm", s.handleLLMStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"queue_depth": s.orchestrator.QueueDepth(),
	})
}
