package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dgallion1/doctran/internal/config"
	"github.com/dgallion1/doctran/internal/pipeline"
	"github.com/dgallion1/doctran/internal/ratelimit"
	"github.com/dgallion1/doctran/internal/translate"
)

// Server is the HTTP API server for doctran.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	stats        *translate.StatsSet
	limits       *ratelimit.Registry
	pipeline     config.Pipeline
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server. base is the stage
// selection requests start from before their own overrides.
func NewServer(orch *pipeline.Orchestrator, stats *translate.StatsSet, limits *ratelimit.Registry, base config.Pipeline, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		orchestrator: orch,
		stats:        stats,
		limits:       limits,
		pipeline:     base,
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

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.DoctranAPIKey, s.log))

		r.Post("/api/translate", s.handleTranslate)

		r.Post("/api/jobs", s.handleSubmitJob)
		r.Get("/api/jobs/{jobID}", s.handleJobStatus)
		r.Get("/api/jobs/{jobID}/result", s.handleJobResult)

		r.Get("/api/stages", s.handleStages)
		r.Get("/api/stats/backends", s.handleBackendStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
