// Package hae turns Health Auto Export payload entries into the records the
// stores persist. Nothing here touches storage and nothing here fails.
package hae

import (
	"encoding/json"

	"github.com/claude/vitalsync/internal/models"
)

// MapMetric converts every data point of a metric batch into a typed record,
// in input order. The batch name picks the shape; unknown names are quantities.
func MapMetric(m models.HAEMetric) []models.MetricRecord {
	kind := models.KindOf(m.Name)
	records := make([]models.MetricRecord, 0, len(m.Data))
	for _, raw := range m.Data {
		records = append(records, mapDataPoint(kind, m.Units, raw))
	}
	return records
}

func mapDataPoint(kind models.MetricKind, units string, raw json.RawMessage) models.MetricRecord {
	dp := decodeMeasurement(raw)
	rec := models.MetricRecord{
		Source:   dp.text("source"),
		Date:     dp.time("date"),
		Units:    units,
		Metadata: dp.object("metadata"),
	}

	switch kind {
	case models.KindHeartRate:
		rec.Payload = models.HeartRatePayload{
			Min: dp.number("Min"),
			Avg: dp.number("Avg"),
			Max: dp.number("Max"),
		}
	case models.KindBloodPressure:
		rec.Payload = models.BloodPressurePayload{
			Systolic:  dp.number("systolic"),
			Diastolic: dp.number("diastolic"),
		}
	case models.KindSleepAnalysis:
		rec.Payload = models.SleepPayload{
			InBedStart: dp.time("inBedStart"),
			InBedEnd:   dp.time("inBedEnd"),
			SleepStart: dp.time("sleepStart"),
			SleepEnd:   dp.time("sleepEnd"),
			Core:       dp.number("core"),
			REM:        dp.number("rem"),
			Deep:       dp.number("deep"),
			Awake:      dp.number("awake"),
			InBed:      dp.number("inBed"),
		}
	default:
		rec.Payload = models.QuantityPayload{Qty: dp.number("qty")}
	}
	return rec
}
