// Package server exposes the ingest and query services over HTTP.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/claude/vitalsync/internal/ingest"
	"github.com/claude/vitalsync/internal/models"
	"github.com/claude/vitalsync/internal/observability"
	"github.com/claude/vitalsync/internal/query"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// DefaultMaxBodyBytes bounds ingest request bodies unless configured otherwise.
const DefaultMaxBodyBytes = 200 << 20

// Ingester runs the ingest pipeline for a decoded payload.
type Ingester interface {
	Ingest(ctx context.Context, payload *models.HAEPayload) (ingest.Response, error)
	IngestMetrics(ctx context.Context, payload *models.HAEPayload) (ingest.Response, error)
	IngestWorkouts(ctx context.Context, payload *models.HAEPayload) (ingest.Response, error)
}

// Querier answers read requests.
type Querier interface {
	MetricsInRange(ctx context.Context, name string, from, to *time.Time) ([]models.MetricRow, error)
	WorkoutsInRange(ctx context.Context, from, to *time.Time) ([]query.WorkoutSummary, error)
	WorkoutByID(ctx context.Context, id string) (*query.WorkoutDetail, error)
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	ingest       Ingester
	query        Querier
	log          *slog.Logger
	maxBodyBytes int64
	router       chi.Router
}

// New creates a new Server with all routes configured. A maxBodyBytes of
// zero or less selects DefaultMaxBodyBytes.
func New(ing Ingester, q Querier, maxBodyBytes int64, log *slog.Logger) *Server {
	if maxBodyBytes <= 0 {
		maxBodyBytes = DefaultMaxBodyBytes
	}
	s := &Server{
		ingest:       ing,
		query:        q,
		log:          log,
		maxBodyBytes: maxBodyBytes,
		router:       chi.NewRouter(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(middleware.Recoverer)
	s.router.Use(RequestID)
	s.router.Use(RequestLogging(s.log))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", RequestIDHeader},
		ExposedHeaders: []string{RequestIDHeader},
		MaxAge:         300,
	}))

	s.router.Get("/", s.handleRoot)

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/data", s.ingestHandler("/api/data", s.ingest.Ingest))

		r.Post("/metrics", s.ingestHandler("/api/metrics", s.ingest.IngestMetrics))
		r.Get("/metrics/{name}", s.handleGetMetrics)

		r.Post("/workouts", s.ingestHandler("/api/workouts", s.ingest.IngestWorkouts))
		r.Get("/workouts", s.handleGetWorkouts)
		r.Get("/workouts/health", s.handleWorkoutsHealth)
		r.Get("/workouts/{id}", s.handleGetWorkout)
	})

	s.router.Handle("/metrics", observability.Handler())
}

// SetMCP mounts an MCP handler at /mcp.
func (s *Server) SetMCP(h http.Handler) {
	s.router.Handle("/mcp", h)
}
