package mcp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/claude/vitalsync/internal/query"
	"github.com/mark3labs/mcp-go/mcp"
)

// timeRange parses optional start/end arguments. The range is only returned
// when both are given, matching the HTTP query endpoints.
func timeRange(startStr, endStr string) (*time.Time, *time.Time, error) {
	if startStr == "" || endStr == "" {
		return nil, nil, nil
	}
	start, err := parseFlexTime(startStr)
	if err != nil {
		return nil, nil, err
	}
	end, err := parseFlexTime(endStr)
	if err != nil {
		return nil, nil, err
	}
	return &start, &end, nil
}

func parseFlexTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err == nil {
		return t, nil
	}
	t, err = time.Parse("2006-01-02", s)
	if err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("%q is neither RFC 3339 nor YYYY-MM-DD", s)
}

var toolGetMetrics = mcp.NewTool("get_metrics",
	mcp.WithDescription("Retrieve stored data points of one metric. Each point carries its source, date and data document (qty, Min/Avg/Max, systolic/diastolic or sleep stages)."),
	mcp.WithString("metric", mcp.Required(), mcp.Description("Metric name (e.g. heart_rate, step_count, blood_pressure, sleep_analysis)")),
	mcp.WithString("start", mcp.Description("Start date (ISO 8601 or YYYY-MM-DD). Applied only together with end.")),
	mcp.WithString("end", mcp.Description("End date (ISO 8601 or YYYY-MM-DD). Applied only together with start.")),
)

var toolGetWorkouts = mcp.NewTool("get_workouts",
	mcp.WithDescription("List workouts newest first with type, start/end, duration in minutes and calories burned."),
	mcp.WithString("start", mcp.Description("Start date. Applied only together with end.")),
	mcp.WithString("end", mcp.Description("End date. Applied only together with start.")),
)

var toolGetWorkout = mcp.NewTool("get_workout",
	mcp.WithDescription("Get the heart rate, heart rate recovery and GPS route of one workout."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Workout id as listed by get_workouts")),
)

func (h *handlers) getMetrics(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	metric, err := req.RequireString("metric")
	if err != nil {
		return mcp.NewToolResultError("metric parameter is required"), nil
	}

	start, end, err := timeRange(req.GetString("start", ""), req.GetString("end", ""))
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}

	rows, err := h.q.MetricsInRange(ctx, metric, start, end)
	if err != nil {
		h.log.Error("mcp get_metrics", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(rows)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getWorkouts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start, end, err := timeRange(req.GetString("start", ""), req.GetString("end", ""))
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}

	workouts, err := h.q.WorkoutsInRange(ctx, start, end)
	if err != nil {
		h.log.Error("mcp get_workouts", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(workouts)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getWorkout(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("id parameter is required"), nil
	}

	detail, err := h.q.WorkoutByID(ctx, id)
	if errors.Is(err, query.ErrWorkoutNotFound) {
		return mcp.NewToolResultError("workout not found: " + id), nil
	}
	if err != nil {
		h.log.Error("mcp get_workout", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(detail)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}
