// Package mcp exposes the query service as Model Context Protocol tools.
package mcp

import (
	"context"
	"log/slog"
	"time"

	"github.com/claude/vitalsync/internal/models"
	"github.com/claude/vitalsync/internal/query"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Querier is the read side the tools are served from.
type Querier interface {
	MetricsInRange(ctx context.Context, name string, from, to *time.Time) ([]models.MetricRow, error)
	WorkoutsInRange(ctx context.Context, from, to *time.Time) ([]query.WorkoutSummary, error)
	WorkoutByID(ctx context.Context, id string) (*query.WorkoutDetail, error)
}

// New creates an MCP server with all tools and resources registered.
func New(q Querier, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("VitalSync", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("VitalSync health data server. Query metrics and workouts exported by Health Auto Export."),
	)

	h := &handlers{q: q, log: log}

	s.AddTools(
		server.ServerTool{Tool: toolGetMetrics, Handler: h.getMetrics},
		server.ServerTool{Tool: toolGetWorkouts, Handler: h.getWorkouts},
		server.ServerTool{Tool: toolGetWorkout, Handler: h.getWorkout},
	)

	s.AddResources(
		server.ServerResource{Resource: resRecentWorkouts, Handler: h.recentWorkouts},
	)

	return s
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	q   Querier
	log *slog.Logger
}

var resRecentWorkouts = mcp.NewResource(
	"vitalsync://recent_workouts",
	"Recent Workouts",
	mcp.WithResourceDescription("Workouts from the last 14 days"),
	mcp.WithMIMEType("application/json"),
)
