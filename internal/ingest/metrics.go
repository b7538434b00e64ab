package ingest

import (
	"context"
	"fmt"

	"github.com/claude/vitalsync/internal/ingest/hae"
	"github.com/claude/vitalsync/internal/models"
	"github.com/claude/vitalsync/internal/observability"
	"golang.org/x/sync/errgroup"
)

// saveMetrics maps every batch, groups records by metric name and upserts
// each group concurrently. Each group commits or rolls back on its own; the
// outcome fails if any group failed.
func (in *Ingester) saveMetrics(ctx context.Context, batches []models.HAEMetric) *Outcome {
	if len(batches) == 0 {
		return &Outcome{Success: true, Message: "No metrics data provided"}
	}

	names, byName := groupMetrics(batches)

	var g errgroup.Group
	for _, name := range names {
		records := byName[name]
		if len(records) == 0 {
			continue
		}
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("saving %s: panic: %v", name, r)
				}
			}()
			if err := in.metrics.UpsertMetrics(ctx, name, records); err != nil {
				return fmt.Errorf("saving %s: %w", name, err)
			}
			observability.AddRecords("metric", len(records))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		in.log.Error("error saving metrics", "error", err)
		return &Outcome{Success: false, Error: err.Error()}
	}

	return &Outcome{
		Success: true,
		Message: fmt.Sprintf("%d metrics saved successfully", len(batches)),
	}
}

// groupMetrics maps batches and merges those sharing a name, keeping the
// order in which names first appear.
func groupMetrics(batches []models.HAEMetric) ([]string, map[string][]models.MetricRecord) {
	var names []string
	byName := make(map[string][]models.MetricRecord)
	for _, b := range batches {
		if _, seen := byName[b.Name]; !seen {
			names = append(names, b.Name)
		}
		byName[b.Name] = append(byName[b.Name], hae.MapMetric(b)...)
	}
	return names, byName
}
