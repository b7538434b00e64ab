package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"testing"

	"github.com/claude/vitalsync/internal/ingest"
	"github.com/claude/vitalsync/internal/storage/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newStoreServer wires the real ingester over a SQLite store, so requests go
// through decoding, mapping and persistence end to end.
func newStoreServer(t *testing.T) (*Server, *sqlite.Store) {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "vitalsync.db"))
	require.NoError(t, err)
	t.Cleanup(store.Close)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(ingest.New(store, store, log), &fakeQuerier{}, 1<<20, log), store
}

const stepCountMetric = `{"name":"step_count","units":"count","data":[{"date":"2024-01-01T00:00:00Z","qty":5,"source":"watch"}]}`

// TestIngestDataMistypedWorkoutKeepsMetrics verifies that a workout with a
// numeric id or a string duration never blocks the metrics sent alongside it.
func TestIngestDataMistypedWorkoutKeepsMetrics(t *testing.T) {
	s, store := newStoreServer(t)
	ctx := context.Background()

	rec := do(t, s, http.MethodPost, "/api/data", `{"data":{
		"metrics":[`+stepCountMetric+`],
		"workouts":[{"id":42,"name":"Run","duration":"1800","start":"2024-01-01T07:00:00Z"}]
	}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rows, err := store.QueryMetrics(ctx, "step_count", nil, nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "watch", rows[0].Source)

	w, err := store.GetWorkout(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, "Run", w.Name)
	assert.Equal(t, 0.0, w.DurationSec)
}

// TestIngestDataUnusableWorkoutIsPartial verifies that a workout the store
// cannot accept fails only the workout subsystem.
func TestIngestDataUnusableWorkoutIsPartial(t *testing.T) {
	s, store := newStoreServer(t)

	rec := do(t, s, http.MethodPost, "/api/data", `{"data":{
		"metrics":[`+stepCountMetric+`],
		"workouts":[{"id":{"nested":true},"name":"Run"}]
	}}`)
	require.Equal(t, http.StatusMultiStatus, rec.Code, rec.Body.String())

	var resp ingest.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Metrics.Success)
	assert.False(t, resp.Workouts.Success)

	rows, err := store.QueryMetrics(context.Background(), "step_count", nil, nil)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

// TestIngestDataOutOfRangeDateStaysReadable verifies that a date past year
// 9999 is stored as the epoch fallback and the metric can still be queried.
func TestIngestDataOutOfRangeDateStaysReadable(t *testing.T) {
	s, store := newStoreServer(t)

	rec := do(t, s, http.MethodPost, "/api/metrics", `{"data":{"metrics":[
		{"name":"heart_rate","units":"count/min","data":[{"date":1e15,"Avg":70},{"date":-8e15,"Avg":71,"source":"phone"}]}
	]}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rows, err := store.QueryMetrics(context.Background(), "heart_rate", nil, nil)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	for _, r := range rows {
		assert.Equal(t, 1970, r.Date.Year())
	}
}
