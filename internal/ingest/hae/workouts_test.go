package hae

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/claude/vitalsync/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeWorkout(t *testing.T, raw string) json.RawMessage {
	t.Helper()
	require.True(t, json.Valid([]byte(raw)), "invalid test JSON")
	return json.RawMessage(raw)
}

// TestMapWorkout verifies the id rename, start/end normalization, and that
// nested measurements pass through unchanged.
func TestMapWorkout(t *testing.T) {
	w := decodeWorkout(t, `{
		"id": "W-1",
		"name": "Outdoor Run",
		"start": "2024-02-06 07:00:00 -0800",
		"end": "bogus",
		"duration": 1800,
		"activeEnergyBurned": {"qty": 350, "units": "kcal"},
		"heartRateData": [{"date": "2024-02-06 07:00:00 -0800", "Avg": 150}],
		"temperature": null
	}`)
	rec := MapWorkout(w)
	assert.Equal(t, "W-1", rec.WorkoutID)
	assert.Equal(t, "Outdoor Run", rec.Name)
	assert.True(t, rec.Start.Equal(time.Date(2024, 2, 6, 15, 0, 0, 0, time.UTC)))
	assert.True(t, rec.End.Equal(models.Epoch()))
	assert.Equal(t, 1800.0, rec.DurationSec)
	assert.JSONEq(t, `{"qty": 350, "units": "kcal"}`, string(rec.ActiveEnergyBurned))
	assert.JSONEq(t, `[{"date": "2024-02-06 07:00:00 -0800", "Avg": 150}]`, string(rec.HeartRateData))
	assert.Nil(t, rec.Temperature)
	assert.Nil(t, rec.Distance)
}

// TestMapRouteAbsent verifies that a missing or empty route is not a route.
func TestMapRouteAbsent(t *testing.T) {
	assert.Nil(t, MapRoute(decodeWorkout(t, `{"id":"a"}`)))
	assert.Nil(t, MapRoute(decodeWorkout(t, `{"id":"a","route":[]}`)))
	assert.Nil(t, MapRoute(decodeWorkout(t, `{"id":"a","route":null}`)))
}

// TestMapRoute verifies the route is keyed by the workout id and every
// location timestamp is normalized.
func TestMapRoute(t *testing.T) {
	w := decodeWorkout(t, `{"id":"W-2","route":[
		{"latitude":37.77,"longitude":-122.41,"timestamp":"2024-02-06 07:00:00 +0000","speed":3.2},
		{"latitude":37.78,"longitude":-122.42,"timestamp":"??"}
	]}`)
	route := MapRoute(w)
	require.NotNil(t, route)
	assert.Equal(t, "W-2", route.WorkoutID)
	require.Len(t, route.Locations, 2)
	assert.True(t, route.Locations[0].Timestamp.Equal(time.Date(2024, 2, 6, 7, 0, 0, 0, time.UTC)))
	assert.Equal(t, 3.2, *route.Locations[0].Speed)
	assert.True(t, route.Locations[1].Timestamp.Equal(models.Epoch()))
	assert.Nil(t, route.Locations[1].Speed)
}

// TestMapWorkoutMistypedFields verifies a numeric id is kept as text and a
// field of the wrong type degrades instead of failing the workout.
func TestMapWorkoutMistypedFields(t *testing.T) {
	rec := MapWorkout(decodeWorkout(t, `{"id":42,"name":["run"],"duration":"1800","start":"2024-02-06 07:00:00 +0000"}`))
	assert.Equal(t, "42", rec.WorkoutID)
	assert.Equal(t, "", rec.Name)
	assert.Equal(t, 0.0, rec.DurationSec)
	assert.True(t, rec.Start.Equal(time.Date(2024, 2, 6, 7, 0, 0, 0, time.UTC)))

	rec = MapWorkout(decodeWorkout(t, `"not a workout"`))
	assert.Equal(t, "", rec.WorkoutID)
	assert.True(t, rec.Start.Equal(models.Epoch()))
}

// TestMapRouteSkipsPointsWithoutCoordinates verifies that points lacking
// numeric coordinates are dropped, and a route left empty is no route.
func TestMapRouteSkipsPointsWithoutCoordinates(t *testing.T) {
	route := MapRoute(decodeWorkout(t, `{"id":7,"route":[
		{"latitude":"37.77","longitude":-122.41},
		{"latitude":37.78,"longitude":-122.42,"timestamp":"2024-02-06 07:00:00 +0000"}
	]}`))
	require.NotNil(t, route)
	assert.Equal(t, "7", route.WorkoutID)
	require.Len(t, route.Locations, 1)
	assert.Equal(t, 37.78, route.Locations[0].Latitude)

	assert.Nil(t, MapRoute(decodeWorkout(t, `{"id":"a","route":[{"latitude":null}]}`)))
	assert.Nil(t, MapRoute(decodeWorkout(t, `{"id":"a","route":"none"}`)))
}
