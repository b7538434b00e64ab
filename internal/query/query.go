// Package query serves read views over stored metrics and workouts.
package query

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/claude/vitalsync/internal/models"
	"github.com/claude/vitalsync/internal/observability"
	"github.com/claude/vitalsync/internal/storage"
)

// ErrWorkoutNotFound is returned by WorkoutByID for an unknown id.
var ErrWorkoutNotFound = errors.New("workout not found")

// Reader is the read side of a store.
type Reader interface {
	QueryMetrics(ctx context.Context, name string, from, to *time.Time) ([]models.MetricRow, error)
	QueryWorkouts(ctx context.Context, from, to *time.Time) ([]models.WorkoutRecord, error)
	GetWorkout(ctx context.Context, id string) (*models.WorkoutRecord, error)
	GetRoute(ctx context.Context, id string) (*models.RouteRecord, error)
}

// WorkoutSummary is the list view of a workout.
type WorkoutSummary struct {
	ID              string    `json:"id"`
	WorkoutType     string    `json:"workout_type"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	DurationMinutes float64   `json:"duration_minutes"`
	CaloriesBurned  *float64  `json:"calories_burned,omitempty"`
}

// Sample is a heart rate reading tagged with its series.
type Sample struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Value     *float64  `json:"value"`
}

// RoutePoint is one location of a workout route.
type RoutePoint struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Time      time.Time `json:"time"`
}

// WorkoutDetail is the detail view of a single workout.
type WorkoutDetail struct {
	HeartRateData     []Sample     `json:"heartRateData"`
	HeartRateRecovery []Sample     `json:"heartRateRecovery"`
	Route             []RoutePoint `json:"route"`
}

const (
	sampleHeartRate         = "Heart Rate"
	sampleHeartRateRecovery = "Heart Rate Recovery"
)

// Service answers read queries. Every call goes to the store.
type Service struct {
	store Reader
}

// New creates a query Service.
func New(store Reader) *Service {
	return &Service{store: store}
}

// MetricsInRange returns the records of one metric. The range is applied
// only when both bounds are given.
func (s *Service) MetricsInRange(ctx context.Context, name string, from, to *time.Time) (rows []models.MetricRow, err error) {
	defer func() { observability.ObserveQuery("metrics", err) }()

	if from == nil || to == nil {
		from, to = nil, nil
	}
	rows, err = s.store.QueryMetrics(ctx, name, from, to)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", name, err)
	}
	if rows == nil {
		rows = []models.MetricRow{}
	}
	return rows, nil
}

// WorkoutsInRange returns workout summaries, newest first.
func (s *Service) WorkoutsInRange(ctx context.Context, from, to *time.Time) (out []WorkoutSummary, err error) {
	defer func() { observability.ObserveQuery("workouts", err) }()

	if from == nil || to == nil {
		from, to = nil, nil
	}
	workouts, err := s.store.QueryWorkouts(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("querying workouts: %w", err)
	}

	out = make([]WorkoutSummary, len(workouts))
	for i, w := range workouts {
		out[i] = summarize(w)
	}
	return out, nil
}

// WorkoutByID assembles the detail view of one workout, or returns
// ErrWorkoutNotFound.
func (s *Service) WorkoutByID(ctx context.Context, id string) (detail *WorkoutDetail, err error) {
	defer func() {
		if errors.Is(err, ErrWorkoutNotFound) {
			observability.ObserveQuery("workout", nil)
			return
		}
		observability.ObserveQuery("workout", err)
	}()

	w, err := s.store.GetWorkout(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrWorkoutNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetching workout %s: %w", id, err)
	}

	detail = &WorkoutDetail{
		HeartRateData:     samples(sampleHeartRate, w.HeartRateData),
		HeartRateRecovery: samples(sampleHeartRateRecovery, w.HeartRateRecovery),
		Route:             []RoutePoint{},
	}

	route, err := s.store.GetRoute(ctx, id)
	switch {
	case errors.Is(err, storage.ErrNotFound):
	case err != nil:
		return nil, fmt.Errorf("fetching route %s: %w", id, err)
	default:
		for _, loc := range route.Locations {
			detail.Route = append(detail.Route, RoutePoint{
				Latitude:  loc.Latitude,
				Longitude: loc.Longitude,
				Time:      loc.Timestamp.UTC(),
			})
		}
	}
	return detail, nil
}

func summarize(w models.WorkoutRecord) WorkoutSummary {
	sum := WorkoutSummary{
		ID:              w.WorkoutID,
		WorkoutType:     w.Name,
		StartTime:       w.Start.UTC(),
		EndTime:         w.End.UTC(),
		DurationMinutes: w.DurationSec / 60,
	}
	var energy models.HAEQuantity
	if len(w.ActiveEnergyBurned) > 0 && json.Unmarshal(w.ActiveEnergyBurned, &energy) == nil {
		sum.CaloriesBurned = energy.Qty
	}
	return sum
}

// samples relabels stored heart rate points. A series that is not a list of
// points yields no samples.
func samples(kind string, raw json.RawMessage) []Sample {
	var points []models.HAEWorkoutHRPoint
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &points)
	}
	out := make([]Sample, 0, len(points))
	for _, p := range points {
		out = append(out, Sample{
			Type:      kind,
			Timestamp: models.NormalizeTime(p.Date),
			Value:     p.Avg,
		})
	}
	return out
}
