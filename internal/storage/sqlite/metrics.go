package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/claude/vitalsync/internal/models"
)

// UpsertMetrics writes every record of one metric name in a single
// transaction, replacing the data of records whose (source, date) exists.
func (s *Store) UpsertMetrics(ctx context.Context, name string, records []models.MetricRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO metrics (name, source, date, data, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (name, source, date) DO UPDATE SET data = excluded.data, updated_at = CURRENT_TIMESTAMP`)
	if err != nil {
		return fmt.Errorf("preparing metric upsert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		data, err := r.MarshalData()
		if err != nil {
			return fmt.Errorf("encoding %s data: %w", name, err)
		}
		if _, err := stmt.ExecContext(ctx, name, r.StoredSource(), formatTime(r.Date), string(data)); err != nil {
			return fmt.Errorf("upserting %s metric: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing %s metrics: %w", name, err)
	}
	return nil
}

// QueryMetrics returns the stored records of a metric name by ascending date.
// The date filter is inclusive and only applied when both bounds are set.
func (s *Store) QueryMetrics(ctx context.Context, name string, from, to *time.Time) ([]models.MetricRow, error) {
	query := `SELECT name, source, date, data FROM metrics WHERE name = ?`
	args := []any{name}
	if from != nil && to != nil {
		query += ` AND date >= ? AND date <= ?`
		args = append(args, formatTime(*from), formatTime(*to))
	}
	query += ` ORDER BY date ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying metrics: %w", err)
	}
	defer rows.Close()

	var result []models.MetricRow
	for rows.Next() {
		var (
			r          models.MetricRow
			date, data string
		)
		if err := rows.Scan(&r.Name, &r.Source, &date, &data); err != nil {
			return nil, fmt.Errorf("scanning metric row: %w", err)
		}
		if r.Date, err = parseTime(date); err != nil {
			return nil, err
		}
		r.Data = []byte(data)
		result = append(result, r)
	}
	return result, rows.Err()
}
