package models

import (
	"encoding/json"
	"time"
)

// MetricKind is the record shape a metric name maps to.
type MetricKind int

const (
	KindQuantity      MetricKind = iota // {"qty": N}; also every unrecognized name
	KindHeartRate                       // {"Min": N, "Avg": N, "Max": N}
	KindBloodPressure                   // {"systolic": N, "diastolic": N}
	KindSleepAnalysis                   // stage durations plus in-bed/asleep windows
)

// Metric names with a dedicated shape.
const (
	MetricHeartRate     = "heart_rate"
	MetricBloodPressure = "blood_pressure"
	MetricSleepAnalysis = "sleep_analysis"
)

// DefaultSource replaces an empty source when a record is stored.
const DefaultSource = "source unknown"

func (k MetricKind) String() string {
	switch k {
	case KindHeartRate:
		return "heart_rate"
	case KindBloodPressure:
		return "blood_pressure"
	case KindSleepAnalysis:
		return "sleep_analysis"
	default:
		return "quantity"
	}
}

// KindOf returns the record shape for a metric name. Names without a
// dedicated shape are quantities.
func KindOf(name string) MetricKind {
	switch name {
	case MetricHeartRate:
		return KindHeartRate
	case MetricBloodPressure:
		return KindBloodPressure
	case MetricSleepAnalysis:
		return KindSleepAnalysis
	default:
		return KindQuantity
	}
}

// MetricPayload is the kind-specific part of a MetricRecord. The set of
// implementations is closed to this package.
type MetricPayload interface {
	Kind() MetricKind
	fields(dst map[string]any)
}

// QuantityPayload is the generic single-value shape.
type QuantityPayload struct {
	Qty *float64
}

// HeartRatePayload carries the Min/Avg/Max triple.
type HeartRatePayload struct {
	Min *float64
	Avg *float64
	Max *float64
}

// BloodPressurePayload carries systolic/diastolic readings.
type BloodPressurePayload struct {
	Systolic  *float64
	Diastolic *float64
}

// SleepPayload is a nightly sleep summary.
type SleepPayload struct {
	InBedStart time.Time
	InBedEnd   time.Time
	SleepStart time.Time
	SleepEnd   time.Time
	Core       *float64
	REM        *float64
	Deep       *float64
	Awake      *float64
	InBed      *float64
}

func (QuantityPayload) Kind() MetricKind      { return KindQuantity }
func (HeartRatePayload) Kind() MetricKind     { return KindHeartRate }
func (BloodPressurePayload) Kind() MetricKind { return KindBloodPressure }
func (SleepPayload) Kind() MetricKind         { return KindSleepAnalysis }

func (p QuantityPayload) fields(dst map[string]any) {
	putNumber(dst, "qty", p.Qty)
}

func (p HeartRatePayload) fields(dst map[string]any) {
	putNumber(dst, "Min", p.Min)
	putNumber(dst, "Avg", p.Avg)
	putNumber(dst, "Max", p.Max)
}

func (p BloodPressurePayload) fields(dst map[string]any) {
	putNumber(dst, "systolic", p.Systolic)
	putNumber(dst, "diastolic", p.Diastolic)
}

func (p SleepPayload) fields(dst map[string]any) {
	dst["inBedStart"] = p.InBedStart.UTC()
	dst["inBedEnd"] = p.InBedEnd.UTC()
	dst["sleepStart"] = p.SleepStart.UTC()
	dst["sleepEnd"] = p.SleepEnd.UTC()
	putNumber(dst, "core", p.Core)
	putNumber(dst, "rem", p.REM)
	putNumber(dst, "deep", p.Deep)
	putNumber(dst, "awake", p.Awake)
	putNumber(dst, "inBed", p.InBed)
}

func putNumber(dst map[string]any, key string, v *float64) {
	if v != nil {
		dst[key] = *v
	}
}

// MetricRecord is one normalized measurement, ready to be upserted under
// (metric name, Source, Date).
type MetricRecord struct {
	Source   string
	Date     time.Time
	Units    string
	Metadata json.RawMessage
	Payload  MetricPayload
}

// StoredSource returns the source used as part of the storage key.
func (r MetricRecord) StoredSource() string {
	if r.Source == "" {
		return DefaultSource
	}
	return r.Source
}

// MarshalData encodes everything but the key columns into the JSON document
// kept in the data column.
func (r MetricRecord) MarshalData() ([]byte, error) {
	data := map[string]any{}
	if r.Units != "" {
		data["units"] = r.Units
	}
	if len(r.Metadata) > 0 {
		data["metadata"] = r.Metadata
	}
	if r.Payload != nil {
		r.Payload.fields(data)
	}
	return json.Marshal(data)
}

// MetricRow is a stored metric as returned by range queries.
type MetricRow struct {
	Name   string          `json:"name"`
	Source string          `json:"source"`
	Date   time.Time       `json:"date"`
	Data   json.RawMessage `json:"data"`
}
