package api

import (
	"log/slog"
	"net/http"

	"github.com/dgallion1/docnav/internal/config"
	"github.com/dgallion1/docnav/internal/metrics"
	"github.com/dgallion1/docnav/internal/pipeline"
	"github.com/dgallion1/docnav/internal/sitestore"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the HTTP API server for docnav.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	sites        *sitestore.Store
	prom         *metrics.PrometheusRecorder
	rec          metrics.Recorder
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server. prom may be nil, in
// which case /metrics is not served.
func NewServer(orch *pipeline.Orchestrator, prom *metrics.PrometheusRecorder, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		orchestrator: orch,
		sites:        orch.Sites(),
		prom:         prom,
		rec:          metrics.NoopRecorder{},
		log:          log,
		cfg:          cfg,
	}
	if prom != nil {
		s.rec = prom
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
	r.Use(Metrics(s.rec))

	// Public endpoints.
	r.Get("/health", s.handleHealth)
	if s.prom != nil {
		r.Handle("/metrics", s.prom.Handler())
	}

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.APIKey, s.log))

		r.Post("/api/sites", s.handleUpload)
		r.Post("/api/sites/batch", s.handleBatchUpload)
		r.Get("/api/jobs/{jobID}", s.handleJobStatus)
		r.Get("/api/stats", s.handleStats)

		r.Get("/api/sites", s.handleListSites)
		r.Route("/api/sites/{siteID}", func(r chi.Router) {
			r.Get("/", s.handleGetSite)
			r.Delete("/", s.handleDeleteSite)
			r.Get("/tree", s.handleTree)
			r.Get("/navtreedata.js", s.handleScript)
			r.Get("/navtreeindex{n:[0-9]+}.js", s.handleIndexScript)
			r.Get("/breadcrumb", s.handleBreadcrumb)
			r.Get("/issues", s.handleIssues)
		})
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
