package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/claude/vitalsync/internal/ingest"
	"github.com/claude/vitalsync/internal/models"
	"github.com/claude/vitalsync/internal/observability"
	"github.com/claude/vitalsync/internal/query"
	"github.com/go-chi/chi/v5"
)

type ingestFunc func(ctx context.Context, payload *models.HAEPayload) (ingest.Response, error)

// ingestHandler decodes a Health Auto Export payload and answers with the
// merged subsystem outcomes.
func (s *Server) ingestHandler(endpoint string, run ingestFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxBodyBytes)

		var payload models.HAEPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				s.respondIngest(w, endpoint, http.StatusRequestEntityTooLarge,
					map[string]string{"error": "request body too large"})
				return
			}
			s.respondIngest(w, endpoint, http.StatusBadRequest,
				map[string]string{"error": "invalid JSON: " + err.Error()})
			return
		}

		resp, err := run(r.Context(), &payload)
		if err != nil {
			message := err.Error()
			if errors.Is(err, ingest.ErrNoData) {
				message = "No data provided"
			}
			s.log.Error("ingest error", "endpoint", endpoint, "error", err)
			s.respondIngest(w, endpoint, http.StatusInternalServerError,
				map[string]string{"error": "Failed to process request", "message": message})
			return
		}

		s.respondIngest(w, endpoint, resp.Status(), resp)
	}
}

func (s *Server) respondIngest(w http.ResponseWriter, endpoint string, status int, v any) {
	observability.ObserveIngestRequest(endpoint, status)
	writeJSON(w, status, v)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Hello world!"})
}

func (s *Server) handleGetMetrics(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	from, to := epochMillisParam(r, "from"), epochMillisParam(r, "to")

	rows, err := s.query.MetricsInRange(r.Context(), name, from, to)
	if err != nil {
		s.log.Error("error getting metrics", "metric", name, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Error getting metrics"})
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleGetWorkouts(w http.ResponseWriter, r *http.Request) {
	from, to := epochMillisParam(r, "startDate"), epochMillisParam(r, "endDate")

	workouts, err := s.query.WorkoutsInRange(r.Context(), from, to)
	if err != nil {
		s.log.Error("error fetching workouts", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Error fetching workouts"})
		return
	}
	s.log.Debug("workouts fetched", "count", len(workouts))
	writeJSON(w, http.StatusOK, workouts)
}

func (s *Server) handleGetWorkout(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	detail, err := s.query.WorkoutByID(r.Context(), id)
	if errors.Is(err, query.ErrWorkoutNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Workout not found"})
		return
	}
	if err != nil {
		s.log.Error("error fetching workout details", "workout_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Error fetching workout details"})
		return
	}
	s.log.Debug("workout fetched", "workout_id", id, "locations", len(detail.Route))
	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handleWorkoutsHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// maxEpochMillis is the largest magnitude a point in time may have.
const maxEpochMillis = 8.64e15

// epochMillisParam reads a query parameter holding milliseconds since the
// Unix epoch. Missing, empty or unusable values yield nil.
func epochMillisParam(r *http.Request, key string) *time.Time {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil
	}
	ms, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(ms) || math.IsInf(ms, 0) || math.Abs(ms) > maxEpochMillis {
		return nil
	}
	t := time.UnixMilli(int64(ms)).UTC()
	return &t
}
