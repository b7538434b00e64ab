// Package ingest runs the Health Auto Export ingest pipeline: metrics and
// workouts are mapped and persisted by independent subsystems whose outcomes
// are merged into one response.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/claude/vitalsync/internal/models"
	"github.com/claude/vitalsync/internal/observability"
	"golang.org/x/sync/errgroup"
)

// ErrNoData is returned when a request carries no data envelope at all.
var ErrNoData = errors.New("no data provided")

const (
	subsystemMetrics  = "metrics"
	subsystemWorkouts = "workouts"
)

// MetricStore persists all records of one metric name as a single atomic unit,
// upserting on (name, source, date).
type MetricStore interface {
	UpsertMetrics(ctx context.Context, name string, records []models.MetricRecord) error
}

// WorkoutStore persists a batch of workouts and their routes as a single
// atomic unit, upserting on workout id.
type WorkoutStore interface {
	UpsertWorkouts(ctx context.Context, writes []models.WorkoutWrite) (models.WorkoutCounts, error)
}

// Ingester dispatches ingest requests to the metric and workout subsystems.
type Ingester struct {
	metrics  MetricStore
	workouts WorkoutStore
	log      *slog.Logger
}

// New creates an Ingester over the given stores.
func New(metrics MetricStore, workouts WorkoutStore, log *slog.Logger) *Ingester {
	return &Ingester{metrics: metrics, workouts: workouts, log: log}
}

// Ingest runs both subsystems concurrently and waits for both, whatever
// either one returns. A failure in one never stops the other.
func (in *Ingester) Ingest(ctx context.Context, payload *models.HAEPayload) (Response, error) {
	if payload == nil || payload.Data == nil {
		return Response{}, ErrNoData
	}

	var (
		g        errgroup.Group
		metrics  *Outcome
		workouts *Outcome
	)
	g.Go(func() error {
		metrics = in.run(subsystemMetrics, func() *Outcome {
			return in.saveMetrics(ctx, payload.Data.Metrics)
		})
		return nil
	})
	g.Go(func() error {
		workouts = in.run(subsystemWorkouts, func() *Outcome {
			return in.saveWorkouts(ctx, payload.Data.Workouts)
		})
		return nil
	})
	_ = g.Wait()

	return Response{Metrics: metrics, Workouts: workouts}, nil
}

// IngestMetrics runs only the metric subsystem.
func (in *Ingester) IngestMetrics(ctx context.Context, payload *models.HAEPayload) (Response, error) {
	if payload == nil || payload.Data == nil {
		return Response{}, ErrNoData
	}
	out := in.run(subsystemMetrics, func() *Outcome {
		return in.saveMetrics(ctx, payload.Data.Metrics)
	})
	return Response{Metrics: out}, nil
}

// IngestWorkouts runs only the workout subsystem.
func (in *Ingester) IngestWorkouts(ctx context.Context, payload *models.HAEPayload) (Response, error) {
	if payload == nil || payload.Data == nil {
		return Response{}, ErrNoData
	}
	out := in.run(subsystemWorkouts, func() *Outcome {
		return in.saveWorkouts(ctx, payload.Data.Workouts)
	})
	return Response{Workouts: out}, nil
}

// run executes one subsystem, turning a panic into a failed outcome so the
// sibling subsystem and the response are unaffected.
func (in *Ingester) run(subsystem string, fn func() *Outcome) (out *Outcome) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			in.log.Error("ingest subsystem panicked", "subsystem", subsystem, "panic", r)
			out = &Outcome{Success: false, Error: fmt.Sprint(r)}
		}
		observability.ObserveSubsystem(subsystem, out.Success, time.Since(start))
		in.log.Info("ingest subsystem finished",
			"subsystem", subsystem,
			"success", out.Success,
			"duration", time.Since(start).String(),
		)
	}()
	return fn()
}
