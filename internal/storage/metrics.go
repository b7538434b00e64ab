package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/claude/vitalsync/internal/models"
	"github.com/jackc/pgx/v5"
)

const upsertMetricSQL = `INSERT INTO metrics (name, source, date, data, updated_at)
VALUES ($1, $2, $3, $4, NOW())
ON CONFLICT (name, source, date) DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()`

// UpsertMetrics writes every record of one metric name in a single
// transaction, replacing the data of records whose (source, date) exists.
func (db *DB) UpsertMetrics(ctx context.Context, name string, records []models.MetricRecord) error {
	if len(records) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, r := range records {
		data, err := r.MarshalData()
		if err != nil {
			return fmt.Errorf("encoding %s data: %w", name, err)
		}
		batch.Queue(upsertMetricSQL, name, r.StoredSource(), r.Date, json.RawMessage(data))
	}

	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("upserting %s metrics: %w", name, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing %s metrics: %w", name, err)
	}
	return nil
}

// QueryMetrics returns the stored records of a metric name by ascending date.
// The date filter is inclusive and only applied when both bounds are set.
func (db *DB) QueryMetrics(ctx context.Context, name string, from, to *time.Time) ([]models.MetricRow, error) {
	query := `SELECT name, source, date, data FROM metrics WHERE name = $1`
	args := []any{name}
	if from != nil && to != nil {
		query += ` AND date >= $2 AND date <= $3`
		args = append(args, *from, *to)
	}
	query += ` ORDER BY date ASC`

	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying metrics: %w", err)
	}
	defer rows.Close()

	var result []models.MetricRow
	for rows.Next() {
		var (
			r    models.MetricRow
			data []byte
		)
		if err := rows.Scan(&r.Name, &r.Source, &r.Date, &data); err != nil {
			return nil, fmt.Errorf("scanning metric row: %w", err)
		}
		r.Date = r.Date.UTC()
		r.Data = data
		result = append(result, r)
	}
	return result, rows.Err()
}
