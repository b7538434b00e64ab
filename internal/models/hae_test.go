package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestParseTimeFullDatetime verifies parsing the standard HAE datetime format.
// This is the most common format used by all metric data points.
func TestParseTimeFullDatetime(t *testing.T) {
	got := ParseTime("2024-02-06 14:30:00 -0800")
	want := time.Date(2024, 2, 6, 14, 30, 0, 0, time.FixedZone("", -8*3600))
	assert.True(t, got.Equal(want), "got %v, want %v", got, want)
}

// TestParseTimeRFC3339 verifies ISO timestamps as produced by other exporters.
func TestParseTimeRFC3339(t *testing.T) {
	got := ParseTime("2024-01-01T00:00:00Z")
	assert.True(t, got.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)), "got %v", got)

	got = ParseTime("2024-01-01T08:15:30.250+02:00")
	assert.True(t, got.Equal(time.Date(2024, 1, 1, 6, 15, 30, 250e6, time.UTC)), "got %v", got)
}

// TestParseTimeDateOnly verifies the date-only format used in aggregated sleep data.
func TestParseTimeDateOnly(t *testing.T) {
	got := ParseTime("2024-02-06")
	assert.Equal(t, 2024, got.Year())
	assert.Equal(t, time.February, got.Month())
	assert.Equal(t, 6, got.Day())
}

// TestParseTimeInvalidFallsBackToEpoch verifies that unparseable input never
// errors and always lands on the epoch sentinel.
func TestParseTimeInvalidFallsBackToEpoch(t *testing.T) {
	for _, s := range []string{"", "   ", "not-a-date", "2024-13-45", "yesterday"} {
		assert.True(t, ParseTime(s).Equal(Epoch()), "ParseTime(%q) should be Epoch", s)
	}
}

// TestNormalizeTime covers every JSON token type a date field may carry.
func TestNormalizeTime(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want time.Time
	}{
		{"absent", "", Epoch()},
		{"null", "null", Epoch()},
		{"hae string", `"2024-02-06 14:30:00 +0000"`, time.Date(2024, 2, 6, 14, 30, 0, 0, time.UTC)},
		{"iso string", `"2024-01-01T00:00:00Z"`, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"garbage string", `"abc"`, Epoch()},
		{"epoch millis", `1704067200000`, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"out of range millis", `1e300`, Epoch()},
		{"millis past year 9999", `1e15`, Epoch()},
		{"millis before year 1", `-8e15`, Epoch()},
		{"last storable millis", `253402300799999`, time.Date(9999, 12, 31, 23, 59, 59, 999e6, time.UTC)},
		{"string shifted past year 9999", `"9999-12-31 23:00:00 -0500"`, Epoch()},
		{"bool", `true`, Epoch()},
		{"object", `{"date":"2024-01-01"}`, Epoch()},
		{"array", `["2024-01-01"]`, Epoch()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeTime(json.RawMessage(tt.raw))
			assert.True(t, got.Equal(tt.want), "got %v, want %v", got, tt.want)
		})
	}
}

// TestHAEPayloadUnmarshal verifies parsing a complete HAE REST API payload.
// Ensures the nested data.metrics structure is correctly deserialized.
func TestHAEPayloadUnmarshal(t *testing.T) {
	raw := `{
		"data": {
			"metrics": [
				{
					"name": "heart_rate",
					"units": "count/min",
					"data": [
						{"date": "2024-02-06 14:30:00 -0800", "Min": 65, "Avg": 72, "Max": 85, "source": "watch"}
					]
				}
			],
			"workouts": []
		}
	}`
	var p HAEPayload
	require.NoError(t, json.Unmarshal([]byte(raw), &p))
	require.NotNil(t, p.Data)
	require.Len(t, p.Data.Metrics, 1)
	assert.Equal(t, "heart_rate", p.Data.Metrics[0].Name)
	assert.Len(t, p.Data.Metrics[0].Data, 1)
	assert.Empty(t, p.Data.Workouts)
}

// TestHAEPayloadMissingEnvelope verifies that a body without "data" leaves
// Data nil so the dispatcher can reject it.
func TestHAEPayloadMissingEnvelope(t *testing.T) {
	var p HAEPayload
	require.NoError(t, json.Unmarshal([]byte(`{"metrics":[]}`), &p))
	assert.Nil(t, p.Data)
}

// TestHAEPayloadToleratesMistypedFields verifies that a field of the wrong
// type inside one entry does not fail the whole body: workouts stay raw for
// the mapper and metric entries decode what they can.
func TestHAEPayloadToleratesMistypedFields(t *testing.T) {
	raw := `{"data": {
		"metrics": [
			{"name": 42, "units": "count", "data": [{"qty": 1}]},
			{"name": "step_count", "units": 7, "data": {"qty": 2}},
			"not an object",
			{"name": "heart_rate", "units": "count/min", "data": [{"Avg": 70}]}
		],
		"workouts": [{"id": 42, "duration": "1800", "route": "none"}]
	}}`
	var p HAEPayload
	require.NoError(t, json.Unmarshal([]byte(raw), &p))
	require.Len(t, p.Data.Metrics, 4)

	assert.Equal(t, "", p.Data.Metrics[0].Name)
	assert.Len(t, p.Data.Metrics[0].Data, 1)
	assert.Equal(t, "step_count", p.Data.Metrics[1].Name)
	assert.Equal(t, "", p.Data.Metrics[1].Units)
	assert.Nil(t, p.Data.Metrics[1].Data)
	assert.Equal(t, HAEMetric{}, p.Data.Metrics[2])
	assert.Equal(t, "heart_rate", p.Data.Metrics[3].Name)
	assert.Equal(t, "count/min", p.Data.Metrics[3].Units)

	require.Len(t, p.Data.Workouts, 1)
	assert.JSONEq(t, `{"id": 42, "duration": "1800", "route": "none"}`, string(p.Data.Workouts[0]))
}
