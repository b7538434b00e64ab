package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/claude/vitalsync/internal/models"
	"github.com/jackc/pgx/v5"
)

const upsertWorkoutSQL = `INSERT INTO workouts (workout_id, name, start_time, end_time, duration,
 active_energy_burned, distance, heart_rate_data, heart_rate_recovery,
 step_count, temperature, humidity, intensity, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,NOW())
ON CONFLICT (workout_id) DO UPDATE SET
 name = EXCLUDED.name, start_time = EXCLUDED.start_time, end_time = EXCLUDED.end_time,
 duration = EXCLUDED.duration, active_energy_burned = EXCLUDED.active_energy_burned,
 distance = EXCLUDED.distance, heart_rate_data = EXCLUDED.heart_rate_data,
 heart_rate_recovery = EXCLUDED.heart_rate_recovery, step_count = EXCLUDED.step_count,
 temperature = EXCLUDED.temperature, humidity = EXCLUDED.humidity,
 intensity = EXCLUDED.intensity, updated_at = NOW()`

const upsertRouteSQL = `INSERT INTO routes (workout_id, locations, updated_at)
VALUES ($1, $2, NOW())
ON CONFLICT (workout_id) DO UPDATE SET locations = EXCLUDED.locations, updated_at = NOW()`

const selectWorkoutSQL = `SELECT workout_id, name, start_time, end_time, duration,
 active_energy_burned, distance, heart_rate_data, heart_rate_recovery,
 step_count, temperature, humidity, intensity
FROM workouts`

// UpsertWorkouts writes all workouts and their routes in one transaction.
// Any failure rolls back the whole batch.
func (db *DB) UpsertWorkouts(ctx context.Context, writes []models.WorkoutWrite) (models.WorkoutCounts, error) {
	var counts models.WorkoutCounts
	if len(writes) == 0 {
		return counts, nil
	}

	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return counts, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for i, w := range writes {
		if w.Workout.WorkoutID == "" {
			return models.WorkoutCounts{}, fmt.Errorf("workout %d has no id", i)
		}
		if err := upsertWorkout(ctx, tx, w.Workout); err != nil {
			return models.WorkoutCounts{}, err
		}
		counts.Workouts++

		if w.Route == nil || len(w.Route.Locations) == 0 {
			continue
		}
		locations, err := json.Marshal(w.Route.Locations)
		if err != nil {
			return models.WorkoutCounts{}, fmt.Errorf("encoding route %s: %w", w.Workout.WorkoutID, err)
		}
		if _, err := tx.Exec(ctx, upsertRouteSQL, w.Workout.WorkoutID, json.RawMessage(locations)); err != nil {
			return models.WorkoutCounts{}, fmt.Errorf("upserting route %s: %w", w.Workout.WorkoutID, err)
		}
		counts.Routes++
	}

	if err := tx.Commit(ctx); err != nil {
		return models.WorkoutCounts{}, fmt.Errorf("committing workouts: %w", err)
	}
	return counts, nil
}

func upsertWorkout(ctx context.Context, tx pgx.Tx, w models.WorkoutRecord) error {
	_, err := tx.Exec(ctx, upsertWorkoutSQL,
		w.WorkoutID, w.Name, w.Start, w.End, w.DurationSec,
		jsonb(w.ActiveEnergyBurned), jsonb(w.Distance),
		jsonbArray(w.HeartRateData), jsonbArray(w.HeartRateRecovery),
		jsonb(w.StepCount), jsonb(w.Temperature), jsonb(w.Humidity), jsonb(w.Intensity))
	if err != nil {
		return fmt.Errorf("upserting workout %s: %w", w.WorkoutID, err)
	}
	return nil
}

// QueryWorkouts returns workouts newest first. The start time filter is
// inclusive and only applied when both bounds are set.
func (db *DB) QueryWorkouts(ctx context.Context, from, to *time.Time) ([]models.WorkoutRecord, error) {
	query := selectWorkoutSQL
	var args []any
	if from != nil && to != nil {
		query += ` WHERE start_time >= $1 AND start_time <= $2`
		args = append(args, *from, *to)
	}
	query += ` ORDER BY start_time DESC`

	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying workouts: %w", err)
	}
	defer rows.Close()

	var result []models.WorkoutRecord
	for rows.Next() {
		w, err := scanWorkout(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, w)
	}
	return result, rows.Err()
}

// GetWorkout returns a single workout, or ErrNotFound.
func (db *DB) GetWorkout(ctx context.Context, id string) (*models.WorkoutRecord, error) {
	w, err := scanWorkout(db.Pool.QueryRow(ctx, selectWorkoutSQL+` WHERE workout_id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// GetRoute returns the route of a workout, or ErrNotFound.
func (db *DB) GetRoute(ctx context.Context, id string) (*models.RouteRecord, error) {
	var locations []byte
	err := db.Pool.QueryRow(ctx, `SELECT locations FROM routes WHERE workout_id = $1`, id).Scan(&locations)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying route: %w", err)
	}

	route := &models.RouteRecord{WorkoutID: id}
	if err := json.Unmarshal(locations, &route.Locations); err != nil {
		return nil, fmt.Errorf("decoding route %s: %w", id, err)
	}
	return route, nil
}

func scanWorkout(row pgx.Row) (models.WorkoutRecord, error) {
	var (
		w                                models.WorkoutRecord
		energy, distance, hr, hrr, steps []byte
		temperature, humidity, intensity []byte
	)
	err := row.Scan(&w.WorkoutID, &w.Name, &w.Start, &w.End, &w.DurationSec,
		&energy, &distance, &hr, &hrr, &steps, &temperature, &humidity, &intensity)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return w, err
		}
		return w, fmt.Errorf("scanning workout row: %w", err)
	}
	w.Start, w.End = w.Start.UTC(), w.End.UTC()
	w.ActiveEnergyBurned = energy
	w.Distance = distance
	w.HeartRateData = hr
	w.HeartRateRecovery = hrr
	w.StepCount = steps
	w.Temperature = temperature
	w.Humidity = humidity
	w.Intensity = intensity
	return w, nil
}
