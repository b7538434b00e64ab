package models

import (
	"encoding/json"
	"time"
)

// WorkoutRecord is a workout as persisted. Re-ingesting the same WorkoutID
// replaces every other field.
type WorkoutRecord struct {
	WorkoutID   string
	Name        string
	Start       time.Time
	End         time.Time
	DurationSec float64

	ActiveEnergyBurned json.RawMessage
	Distance           json.RawMessage
	HeartRateData      json.RawMessage
	HeartRateRecovery  json.RawMessage
	StepCount          json.RawMessage
	Temperature        json.RawMessage
	Humidity           json.RawMessage
	Intensity          json.RawMessage
}

// Location is one normalized GPS sample of a route.
type Location struct {
	Latitude           float64   `json:"latitude"`
	Longitude          float64   `json:"longitude"`
	Timestamp          time.Time `json:"timestamp"`
	Altitude           *float64  `json:"altitude,omitempty"`
	Course             *float64  `json:"course,omitempty"`
	CourseAccuracy     *float64  `json:"courseAccuracy,omitempty"`
	HorizontalAccuracy *float64  `json:"horizontalAccuracy,omitempty"`
	VerticalAccuracy   *float64  `json:"verticalAccuracy,omitempty"`
	Speed              *float64  `json:"speed,omitempty"`
	SpeedAccuracy      *float64  `json:"speedAccuracy,omitempty"`
}

// RouteRecord is the route of a single workout. Locations is never empty.
type RouteRecord struct {
	WorkoutID string
	Locations []Location
}

// WorkoutWrite pairs a workout with its optional route for one upsert.
type WorkoutWrite struct {
	Workout WorkoutRecord
	Route   *RouteRecord
}

// WorkoutCounts reports what a workout upsert wrote.
type WorkoutCounts struct {
	Workouts int
	Routes   int
}
