package apihttp

import (
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/pipeworks/taskmesh/internal/auth"
	"github.com/pipeworks/taskmesh/internal/broker"
	"github.com/pipeworks/taskmesh/internal/config"
	"github.com/pipeworks/taskmesh/internal/health"
	"github.com/pipeworks/taskmesh/internal/metrics"
	"github.com/pipeworks/taskmesh/internal/storage"
)

// IDGenerator issues job and trace IDs.
type IDGenerator interface {
	NextString() string
}

// Server bundles the dependencies the HTTP surface needs to ingest jobs,
// report status, and report health.
type Server struct {
	Repo        storage.Repository
	Broker      *broker.Broker
	Authorizer  auth.Authorizer
	RateLimiter *auth.RateLimiter
	IDs         IDGenerator
	Health      *health.ServiceHealthChecker
	Config      *config.Config
	Log         zerolog.Logger
}

// Router builds the mux.Router exposing §6's HTTP surface.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(recoveryMiddleware(s.Log))
	r.Use(securityHeadersMiddleware)
	r.Use(metricsMiddleware)
	r.Use(traceIDMiddleware(s.IDs))

	r.HandleFunc("/api/v1/health", s.handleHealth).Methods("GET")
	r.HandleFunc("/api/v1/health/detailed", s.handleHealthDetailed).Methods("GET")
	r.Handle("/metrics", metrics.Handler()).Methods("GET")

	authenticated := r.NewRoute().Subrouter()
	authenticated.Use(authMiddleware(s.Authorizer))
	authenticated.Use(rateLimitMiddleware(s.RateLimiter, s.tierLimits))

	authenticated.HandleFunc("/api/v1/analyze", s.handleAnalyze).Methods("POST")
	authenticated.HandleFunc("/api/v1/analyze/subjects", s.handleAnalyzeSubjects).Methods("POST")
	authenticated.HandleFunc("/api/v1/status/{job_id}", s.handleStatus).Methods("GET")
	authenticated.HandleFunc("/api/v1/results/{job_id}", s.handleResults).Methods("GET")

	return r
}

func (s *Server) tierLimits(tier string) auth.TierLimits {
	cfg := s.Config.TierLimit(tier)
	return auth.TierLimits{RequestsPerMinute: cfg.RequestsPerMinute, MaxConcurrent: cfg.MaxConcurrent}
}
