package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/claude/vitalsync/internal/models"
	"github.com/claude/vitalsync/internal/storage"
)

const selectWorkoutSQL = `SELECT workout_id, name, start_time, end_time, duration,
 active_energy_burned, distance, heart_rate_data, heart_rate_recovery,
 step_count, temperature, humidity, intensity
FROM workouts`

// UpsertWorkouts writes all workouts and their routes in one transaction.
// Any failure rolls back the whole batch.
func (s *Store) UpsertWorkouts(ctx context.Context, writes []models.WorkoutWrite) (models.WorkoutCounts, error) {
	var counts models.WorkoutCounts
	if len(writes) == 0 {
		return counts, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return counts, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

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
		_, err = tx.ExecContext(ctx, `INSERT INTO routes (workout_id, locations, updated_at)
			VALUES (?, ?, CURRENT_TIMESTAMP)
			ON CONFLICT (workout_id) DO UPDATE SET locations = excluded.locations, updated_at = CURRENT_TIMESTAMP`,
			w.Workout.WorkoutID, string(locations))
		if err != nil {
			return models.WorkoutCounts{}, fmt.Errorf("upserting route %s: %w", w.Workout.WorkoutID, err)
		}
		counts.Routes++
	}

	if err := tx.Commit(); err != nil {
		return models.WorkoutCounts{}, fmt.Errorf("committing workouts: %w", err)
	}
	return counts, nil
}

func upsertWorkout(ctx context.Context, tx *sql.Tx, w models.WorkoutRecord) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO workouts (workout_id, name, start_time, end_time, duration,
		 active_energy_burned, distance, heart_rate_data, heart_rate_recovery,
		 step_count, temperature, humidity, intensity, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (workout_id) DO UPDATE SET
		 name = excluded.name, start_time = excluded.start_time, end_time = excluded.end_time,
		 duration = excluded.duration, active_energy_burned = excluded.active_energy_burned,
		 distance = excluded.distance, heart_rate_data = excluded.heart_rate_data,
		 heart_rate_recovery = excluded.heart_rate_recovery, step_count = excluded.step_count,
		 temperature = excluded.temperature, humidity = excluded.humidity,
		 intensity = excluded.intensity, updated_at = CURRENT_TIMESTAMP`,
		w.WorkoutID, w.Name, formatTime(w.Start), formatTime(w.End), w.DurationSec,
		text(w.ActiveEnergyBurned), text(w.Distance),
		textArray(w.HeartRateData), textArray(w.HeartRateRecovery),
		text(w.StepCount), text(w.Temperature), text(w.Humidity), text(w.Intensity))
	if err != nil {
		return fmt.Errorf("upserting workout %s: %w", w.WorkoutID, err)
	}
	return nil
}

// QueryWorkouts returns workouts newest first. The start time filter is
// inclusive and only applied when both bounds are set.
func (s *Store) QueryWorkouts(ctx context.Context, from, to *time.Time) ([]models.WorkoutRecord, error) {
	query := selectWorkoutSQL
	var args []any
	if from != nil && to != nil {
		query += ` WHERE start_time >= ? AND start_time <= ?`
		args = append(args, formatTime(*from), formatTime(*to))
	}
	query += ` ORDER BY start_time DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
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

// GetWorkout returns a single workout, or storage.ErrNotFound.
func (s *Store) GetWorkout(ctx context.Context, id string) (*models.WorkoutRecord, error) {
	w, err := scanWorkout(s.db.QueryRowContext(ctx, selectWorkoutSQL+` WHERE workout_id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// GetRoute returns the route of a workout, or storage.ErrNotFound.
func (s *Store) GetRoute(ctx context.Context, id string) (*models.RouteRecord, error) {
	var locations string
	err := s.db.QueryRowContext(ctx, `SELECT locations FROM routes WHERE workout_id = ?`, id).Scan(&locations)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying route: %w", err)
	}

	route := &models.RouteRecord{WorkoutID: id}
	if err := json.Unmarshal([]byte(locations), &route.Locations); err != nil {
		return nil, fmt.Errorf("decoding route %s: %w", id, err)
	}
	return route, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanWorkout(row scanner) (models.WorkoutRecord, error) {
	var (
		w                                models.WorkoutRecord
		start, end                       string
		energy, distance, hr, hrr, steps sql.NullString
		temperature, humidity, intensity sql.NullString
	)
	err := row.Scan(&w.WorkoutID, &w.Name, &start, &end, &w.DurationSec,
		&energy, &distance, &hr, &hrr, &steps, &temperature, &humidity, &intensity)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return w, err
		}
		return w, fmt.Errorf("scanning workout row: %w", err)
	}
	if w.Start, err = parseTime(start); err != nil {
		return w, err
	}
	if w.End, err = parseTime(end); err != nil {
		return w, err
	}
	w.ActiveEnergyBurned = raw(energy)
	w.Distance = raw(distance)
	w.HeartRateData = raw(hr)
	w.HeartRateRecovery = raw(hrr)
	w.StepCount = raw(steps)
	w.Temperature = raw(temperature)
	w.Humidity = raw(humidity)
	w.Intensity = raw(intensity)
	return w, nil
}

func raw(s sql.NullString) json.RawMessage {
	if !s.Valid {
		return nil
	}
	return json.RawMessage(s.String)
}
