package models

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"
	"time"
)

// HAETimeLayout is the Health Auto Export date format: "2006-01-02 15:04:05 -0700".
const (
	HAETimeLayout     = "2006-01-02 15:04:05 -0700"
	HAEDateOnlyLayout = "2006-01-02"
)

// Epoch returns the instant stored in place of any timestamp that is
// missing, unparseable or outside the storable range: 1970-01-01T00:00:00Z.
func Epoch() time.Time {
	return time.Unix(0, 0).UTC()
}

// maxEpochMillis bounds numeric timestamps to the range a JavaScript Date accepts,
// which is what HAE clients use to build them.
const maxEpochMillis = 8.64e15

// Both stores and the export layouts only round-trip four-digit years.
const (
	minStorableYear = 1
	maxStorableYear = 9999
)

// storable returns t, or Epoch when its UTC year is outside 1 to 9999.
func storable(t time.Time) time.Time {
	if y := t.UTC().Year(); y < minStorableYear || y > maxStorableYear {
		return Epoch()
	}
	return t
}

var timeLayouts = []string{
	HAETimeLayout,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05Z07:00",
	HAEDateOnlyLayout,
}

// ParseTime parses a date string from an export. It never fails: anything it
// cannot read, or that falls outside years 1 to 9999, comes back as Epoch.
func ParseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return Epoch()
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return storable(t)
		}
	}
	return Epoch()
}

// NormalizeTime reads a raw JSON date field. Strings go through ParseTime,
// numbers are taken as Unix milliseconds, everything else (absent, null,
// objects, numbers outside years 1 to 9999) yields Epoch.
func NormalizeTime(raw json.RawMessage) time.Time {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return Epoch()
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return Epoch()
		}
		return ParseTime(s)
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		var ms float64
		if err := json.Unmarshal(raw, &ms); err != nil {
			return Epoch()
		}
		if math.IsNaN(ms) || math.Abs(ms) > maxEpochMillis {
			return Epoch()
		}
		return storable(time.UnixMilli(int64(ms)).UTC())
	default:
		return Epoch()
	}
}

// HAEPayload is the top-level REST API JSON structure. Data is nil when the
// request carried no "data" envelope at all.
type HAEPayload struct {
	Data *HAEData `json:"data"`
}

// HAEData contains the arrays of health data.
type HAEData struct {
	Metrics  []HAEMetric      `json:"metrics,omitempty"`
	Workouts []json.RawMessage `json:"workouts,omitempty"`
}

// HAEMetric is a single metric entry with name, units, and data points.
// Data points stay raw: their shape depends on the metric name.
type HAEMetric struct {
	Name  string            `json:"name"`
	Units string            `json:"units"`
	Data  []json.RawMessage `json:"data"`
}

// UnmarshalJSON decodes a metric entry field by field. A field of the wrong
// type is left empty instead of failing the whole request body, and an entry
// that is not an object decodes to a metric with no data.
func (m *HAEMetric) UnmarshalJSON(b []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil {
		*m = HAEMetric{}
		return nil
	}
	var out HAEMetric
	_ = json.Unmarshal(fields["name"], &out.Name)
	_ = json.Unmarshal(fields["units"], &out.Units)
	if err := json.Unmarshal(fields["data"], &out.Data); err != nil {
		out.Data = nil
	}
	*m = out
	return nil
}

// HAEQuantity is the {"qty": N, "units": "..."} structure.
type HAEQuantity struct {
	Qty   *float64 `json:"qty"`
	Units string   `json:"units"`
}

// HAEWorkoutHRPoint is a heart rate data point during a workout.
type HAEWorkoutHRPoint struct {
	Date   json.RawMessage `json:"date"`
	Min    *float64        `json:"Min"`
	Avg    *float64        `json:"Avg"`
	Max    *float64        `json:"Max"`
	Units  string          `json:"units"`
	Source string          `json:"source"`
}
