package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/claude/vitalsync/internal/models"
	"github.com/claude/vitalsync/internal/query"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeQuerier struct {
	rows     []models.MetricRow
	workouts []query.WorkoutSummary
	detail   *query.WorkoutDetail
	err      error

	name     string
	from, to *time.Time
}

func (f *fakeQuerier) MetricsInRange(ctx context.Context, name string, from, to *time.Time) ([]models.MetricRow, error) {
	f.name, f.from, f.to = name, from, to
	return f.rows, f.err
}

func (f *fakeQuerier) WorkoutsInRange(ctx context.Context, from, to *time.Time) ([]query.WorkoutSummary, error) {
	f.from, f.to = from, to
	return f.workouts, f.err
}

func (f *fakeQuerier) WorkoutByID(ctx context.Context, id string) (*query.WorkoutDetail, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.detail == nil {
		return nil, query.ErrWorkoutNotFound
	}
	return f.detail, nil
}

func newHandlers(q *fakeQuerier) *handlers {
	return &handlers{q: q, log: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func callRequest(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	tc, ok := mcp.AsTextContent(res.Content[0])
	require.True(t, ok, "content type %T", res.Content[0])
	return tc.Text
}

// TestTimeRange verifies bounds are parsed only as a pair.
func TestTimeRange(t *testing.T) {
	start, end, err := timeRange("", "")
	require.NoError(t, err)
	assert.Nil(t, start)
	assert.Nil(t, end)

	start, end, err = timeRange("2024-01-01", "")
	require.NoError(t, err)
	assert.Nil(t, start, "a lone bound does not filter")
	assert.Nil(t, end)

	start, end, err = timeRange("2024-01-01", "2024-06-15T10:30:00Z")
	require.NoError(t, err)
	assert.True(t, start.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, end.Equal(time.Date(2024, 6, 15, 10, 30, 0, 0, time.UTC)))

	_, _, err = timeRange("not-a-date", "2024-01-01")
	assert.Error(t, err)
}

func TestGetMetrics(t *testing.T) {
	q := &fakeQuerier{rows: []models.MetricRow{{Name: "heart_rate", Source: "watch", Data: json.RawMessage(`{"Avg":72}`)}}}
	h := newHandlers(q)

	res, err := h.getMetrics(context.Background(), callRequest(map[string]any{
		"metric": "heart_rate", "start": "2024-01-01", "end": "2024-01-31",
	}))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Equal(t, "heart_rate", q.name)
	require.NotNil(t, q.from)
	assert.Contains(t, resultText(t, res), `"source":"watch"`)
}

func TestGetMetricsRequiresMetric(t *testing.T) {
	res, err := newHandlers(&fakeQuerier{}).getMetrics(context.Background(), callRequest(map[string]any{}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestGetMetricsQueryFailure(t *testing.T) {
	res, err := newHandlers(&fakeQuerier{err: errors.New("db down")}).getMetrics(context.Background(),
		callRequest(map[string]any{"metric": "step_count"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "db down")
}

func TestGetWorkouts(t *testing.T) {
	q := &fakeQuerier{workouts: []query.WorkoutSummary{{ID: "w1", WorkoutType: "Walk"}}}
	res, err := newHandlers(q).getWorkouts(context.Background(), callRequest(map[string]any{"start": "garbage", "end": "2024-01-01"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	res, err = newHandlers(q).getWorkouts(context.Background(), callRequest(nil))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Contains(t, resultText(t, res), `"workout_type":"Walk"`)
}

func TestGetWorkout(t *testing.T) {
	h := newHandlers(&fakeQuerier{})
	res, err := h.getWorkout(context.Background(), callRequest(map[string]any{"id": "missing"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "workout not found")

	h = newHandlers(&fakeQuerier{detail: &query.WorkoutDetail{
		HeartRateData: []query.Sample{}, HeartRateRecovery: []query.Sample{}, Route: []query.RoutePoint{},
	}})
	res, err = h.getWorkout(context.Background(), callRequest(map[string]any{"id": "w1"}))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.JSONEq(t, `{"heartRateData":[],"heartRateRecovery":[],"route":[]}`, resultText(t, res))
}

func TestRecentWorkoutsResource(t *testing.T) {
	q := &fakeQuerier{workouts: []query.WorkoutSummary{{ID: "w1"}}}
	var req mcp.ReadResourceRequest
	req.Params.URI = "vitalsync://recent_workouts"

	contents, err := newHandlers(q).recentWorkouts(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, contents, 1)
	require.NotNil(t, q.from)
	assert.InDelta(t, 14*24, q.to.Sub(*q.from).Hours(), 0.01)

	text, ok := contents[0].(mcp.TextResourceContents)
	require.True(t, ok)
	assert.Contains(t, text.Text, `"id":"w1"`)
}

func TestNewRegistersTools(t *testing.T) {
	s := New(&fakeQuerier{}, "test", slog.New(slog.NewTextHandler(io.Discard, nil)))
	resp := s.HandleMessage(context.Background(), json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))

	b, err := json.Marshal(resp)
	require.NoError(t, err)
	for _, name := range []string{"get_metrics", "get_workouts", "get_workout"} {
		assert.Contains(t, string(b), `"name":"`+name+`"`)
	}
}
