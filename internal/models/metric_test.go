package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f64(v float64) *float64 { return &v }

// TestKindOf verifies the dedicated shapes and the quantity fallback for
// every other name.
func TestKindOf(t *testing.T) {
	assert.Equal(t, KindHeartRate, KindOf("heart_rate"))
	assert.Equal(t, KindBloodPressure, KindOf("blood_pressure"))
	assert.Equal(t, KindSleepAnalysis, KindOf("sleep_analysis"))
	for _, name := range []string{"resting_heart_rate", "step_count", "vo2_max", ""} {
		assert.Equal(t, KindQuantity, KindOf(name), name)
	}
}

// TestStoredSourceDefault verifies the empty-source sentinel.
func TestStoredSourceDefault(t *testing.T) {
	assert.Equal(t, DefaultSource, MetricRecord{}.StoredSource())
	assert.Equal(t, "watch", MetricRecord{Source: "watch"}.StoredSource())
}

// TestMarshalDataHeartRate verifies the stored document keeps the HAE key
// casing and omits the key columns.
func TestMarshalDataHeartRate(t *testing.T) {
	rec := MetricRecord{
		Source:  "watch",
		Date:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Units:   "count/min",
		Payload: HeartRatePayload{Min: f64(60), Avg: f64(72), Max: f64(110)},
	}
	data, err := rec.MarshalData()
	require.NoError(t, err)
	assert.JSONEq(t, `{"units":"count/min","Min":60,"Avg":72,"Max":110}`, string(data))
}

// TestMarshalDataOmitsAbsentNumbers verifies that numbers missing from the
// export are left out rather than stored as zero.
func TestMarshalDataOmitsAbsentNumbers(t *testing.T) {
	rec := MetricRecord{Payload: BloodPressurePayload{Systolic: f64(120)}}
	data, err := rec.MarshalData()
	require.NoError(t, err)
	assert.JSONEq(t, `{"systolic":120}`, string(data))
}

// TestMarshalDataSleep verifies sleep windows are written as UTC timestamps.
func TestMarshalDataSleep(t *testing.T) {
	start := time.Date(2024, 2, 5, 23, 0, 0, 0, time.FixedZone("", -8*3600))
	rec := MetricRecord{
		Units:    "hr",
		Metadata: json.RawMessage(`{"tz":"PST"}`),
		Payload: SleepPayload{
			InBedStart: start, InBedEnd: start.Add(8 * time.Hour),
			SleepStart: start, SleepEnd: start.Add(7 * time.Hour),
			Core: f64(3.5), Deep: f64(1.2),
		},
	}
	data, err := rec.MarshalData()
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"units":"hr",
		"metadata":{"tz":"PST"},
		"inBedStart":"2024-02-06T07:00:00Z",
		"inBedEnd":"2024-02-06T15:00:00Z",
		"sleepStart":"2024-02-06T07:00:00Z",
		"sleepEnd":"2024-02-06T14:00:00Z",
		"core":3.5,
		"deep":1.2
	}`, string(data))
}
