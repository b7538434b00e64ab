package hae

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/claude/vitalsync/internal/models"
)

// MapWorkout renames the HAE id to the workout id and normalizes start/end.
// Every other field is carried over untouched. The workout is read field by
// field, so a field of the wrong type is dropped instead of failing the batch.
func MapWorkout(raw json.RawMessage) models.WorkoutRecord {
	w := decodeMeasurement(raw)
	rec := models.WorkoutRecord{
		WorkoutID:          w.id("id"),
		Name:               w.text("name"),
		Start:              w.time("start"),
		End:                w.time("end"),
		ActiveEnergyBurned: present(w["activeEnergyBurned"]),
		Distance:           present(w["distance"]),
		HeartRateData:      present(w["heartRateData"]),
		HeartRateRecovery:  present(w["heartRateRecovery"]),
		StepCount:          present(w["stepCount"]),
		Temperature:        present(w["temperature"]),
		Humidity:           present(w["humidity"]),
		Intensity:          present(w["intensity"]),
	}
	if d := w.number("duration"); d != nil {
		rec.DurationSec = *d
	}
	return rec
}

// MapRoute returns the workout's route, or nil when it has no usable points.
// Points without numeric coordinates are skipped.
func MapRoute(raw json.RawMessage) *models.RouteRecord {
	w := decodeMeasurement(raw)
	var points []json.RawMessage
	if err := json.Unmarshal(w["route"], &points); err != nil || len(points) == 0 {
		return nil
	}

	locations := make([]models.Location, 0, len(points))
	for _, p := range points {
		pt := decodeMeasurement(p)
		lat, lon := pt.number("latitude"), pt.number("longitude")
		if lat == nil || lon == nil {
			continue
		}
		locations = append(locations, models.Location{
			Latitude:           *lat,
			Longitude:          *lon,
			Timestamp:          pt.time("timestamp"),
			Altitude:           pt.number("altitude"),
			Course:             pt.number("course"),
			CourseAccuracy:     pt.number("courseAccuracy"),
			HorizontalAccuracy: pt.number("horizontalAccuracy"),
			VerticalAccuracy:   pt.number("verticalAccuracy"),
			Speed:              pt.number("speed"),
			SpeedAccuracy:      pt.number("speedAccuracy"),
		})
	}
	if len(locations) == 0 {
		return nil
	}
	return &models.RouteRecord{WorkoutID: w.id("id"), Locations: locations}
}

// id reads an identifier sent either as a string or as a number. Numbers
// are formatted in decimal, so 42 becomes "42".
func (m measurement) id(key string) string {
	if s := m.text(key); s != "" {
		return s
	}
	if n := m.number(key); n != nil {
		return strconv.FormatFloat(*n, 'f', -1, 64)
	}
	return ""
}

// present drops JSON null so absent and null are stored the same way.
func present(raw json.RawMessage) json.RawMessage {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	return raw
}
