package ingest

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/claude/vitalsync/internal/ingest/hae"
	"github.com/claude/vitalsync/internal/models"
	"github.com/claude/vitalsync/internal/observability"
)

// saveWorkouts maps every workout and its route and hands the whole batch to
// the store as one transaction.
func (in *Ingester) saveWorkouts(ctx context.Context, workouts []json.RawMessage) *Outcome {
	if len(workouts) == 0 {
		return &Outcome{Success: true, Message: "No workout data provided"}
	}

	writes := make([]models.WorkoutWrite, len(workouts))
	for i, w := range workouts {
		writes[i] = models.WorkoutWrite{
			Workout: hae.MapWorkout(w),
			Route:   hae.MapRoute(w),
		}
	}

	counts, err := in.workouts.UpsertWorkouts(ctx, writes)
	if err != nil {
		in.log.Error("error processing workouts", "error", err)
		return &Outcome{Success: false, Message: "Workouts not saved", Error: err.Error()}
	}
	observability.AddRecords("workout", counts.Workouts)
	observability.AddRecords("route", counts.Routes)

	in.log.Debug("processed workouts", "workouts", counts.Workouts, "routes", counts.Routes)
	return &Outcome{
		Success: true,
		Message: fmt.Sprintf("%d Workouts and %d Routes saved successfully", counts.Workouts, counts.Routes),
	}
}
