package hae

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/claude/vitalsync/internal/models"
)

// measurement is a data point read field by field, so that one bad field
// never costs the rest of the point.
type measurement map[string]json.RawMessage

// decodeMeasurement never fails: a point that is not a JSON object has no fields.
func decodeMeasurement(raw json.RawMessage) measurement {
	var m measurement
	if err := json.Unmarshal(raw, &m); err != nil {
		return measurement{}
	}
	return m
}

// number returns the field if it is a JSON number, nil otherwise.
func (m measurement) number(key string) *float64 {
	raw, ok := m[key]
	if !ok {
		return nil
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	return &v
}

// text returns the field if it is a JSON string, "" otherwise.
func (m measurement) text(key string) string {
	var s string
	if err := json.Unmarshal(m[key], &s); err != nil {
		return ""
	}
	return s
}

func (m measurement) time(key string) time.Time {
	return models.NormalizeTime(m[key])
}

// object returns the field only when it is a JSON object.
func (m measurement) object(key string) json.RawMessage {
	raw := bytes.TrimSpace(m[key])
	if len(raw) == 0 || raw[0] != '{' {
		return nil
	}
	return raw
}
