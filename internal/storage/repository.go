package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmarkou/energypulse/internal/domain/models"
	"github.com/lib/pq"
)

// StorageError reports a failed read or write against the persistence layer.
// It is not retried here; retrying the whole ingestion call is safe because
// dedupe and full recompute make re-running a window idempotent.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return fmt.Sprintf("storage: %s: %v", e.Op, e.Err) }

func (e *StorageError) Unwrap() error { return e.Err }

// uniqueViolation is the Postgres error code for unique-constraint conflicts.
const uniqueViolation = "23505"

// IsConflict reports whether err is a unique-constraint violation.
func IsConflict(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// ReadingsRepository defines the contract for reading/average persistence.
type ReadingsRepository interface {
	// ListReadingsInWindow returns all readings for source with
	// timestamp_utc in [fromUTC, toUTC), ordered ascending.
	ListReadingsInWindow(ctx context.Context, source string, fromUTC, toUTC time.Time) ([]models.Reading, error)

	// ListReadings returns readings for source with optional bounds
	// (from inclusive, to exclusive), ordered by timestamp ascending.
	ListReadings(ctx context.Context, source string, fromUTC, toUTC *time.Time) ([]models.Reading, error)

	// ListDailyAverages returns daily averages for source with optional
	// inclusive day bounds, ordered by day ascending.
	ListDailyAverages(ctx context.Context, source string, from, to *time.Time) ([]models.DailyAverage, error)

	// GetDailyAveragesForDays returns the existing average rows for the
	// given days in one read.
	GetDailyAveragesForDays(ctx context.Context, source string, days []time.Time) ([]models.DailyAverage, error)

	// ApplyIngestion persists one ingestion call's reading inserts and
	// average upserts as a single transaction. Readings already present
	// (unique on source+timestamp) are skipped; the returned counts are
	// rows actually inserted and average rows actually written.
	ApplyIngestion(ctx context.Context, readings []models.Reading, averages []models.DailyAverage) (inserted int, daysUpdated int, err error)
}

type readingsRepository struct {
	db *sql.DB
}

// NewReadingsRepository wires a ReadingsRepository over an open *sql.DB.
func NewReadingsRepository(db *sql.DB) ReadingsRepository {
	return &readingsRepository{db: db}
}

func (r *readingsRepository) ListReadingsInWindow(ctx context.Context, source string, fromUTC, toUTC time.Time) ([]models.Reading, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, source, timestamp_utc, price
		FROM readings
		WHERE source = $1 AND timestamp_utc >= $2 AND timestamp_utc < $3
		ORDER BY timestamp_utc ASC
	`, source, fromUTC, toUTC)
	if err != nil {
		return nil, &StorageError{Op: "list readings in window", Err: err}
	}
	return scanReadings(rows, "list readings in window")
}

func (r *readingsRepository) ListReadings(ctx context.Context, source string, fromUTC, toUTC *time.Time) ([]models.Reading, error) {
	// $1 is always source; bound placeholders depend on provided filters.
	conditions := "source = $1"
	args := []interface{}{source}
	if fromUTC != nil {
		args = append(args, *fromUTC)
		conditions += fmt.Sprintf(" AND timestamp_utc >= $%d", len(args))
	}
	if toUTC != nil {
		args = append(args, *toUTC)
		conditions += fmt.Sprintf(" AND timestamp_utc < $%d", len(args))
	}

	query := fmt.Sprintf(`
		SELECT id, source, timestamp_utc, price
		FROM readings
		WHERE %s
		ORDER BY timestamp_utc ASC
	`, conditions)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &StorageError{Op: "list readings", Err: err}
	}
	return scanReadings(rows, "list readings")
}

func scanReadings(rows *sql.Rows, op string) ([]models.Reading, error) {
	defer func() { _ = rows.Close() }()

	var out []models.Reading
	for rows.Next() {
		var rd models.Reading
		if err := rows.Scan(&rd.ID, &rd.Source, &rd.TimestampUTC, &rd.Price); err != nil {
			return nil, &StorageError{Op: op, Err: err}
		}
		rd.TimestampUTC = rd.TimestampUTC.UTC()
		out = append(out, rd)
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Op: op, Err: err}
	}
	return out, nil
}

func (r *readingsRepository) ListDailyAverages(ctx context.Context, source string, from, to *time.Time) ([]models.DailyAverage, error) {
	conditions := "source = $1"
	args := []interface{}{source}
	if from != nil {
		args = append(args, *from)
		conditions += fmt.Sprintf(" AND day >= $%d", len(args))
	}
	if to != nil {
		args = append(args, *to)
		conditions += fmt.Sprintf(" AND day <= $%d", len(args))
	}

	query := fmt.Sprintf(`
		SELECT id, source, day, average_price
		FROM daily_averages
		WHERE %s
		ORDER BY day ASC
	`, conditions)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &StorageError{Op: "list daily averages", Err: err}
	}
	return scanAverages(rows, "list daily averages")
}

func (r *readingsRepository) GetDailyAveragesForDays(ctx context.Context, source string, days []time.Time) ([]models.DailyAverage, error) {
	if len(days) == 0 {
		return nil, nil
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, source, day, average_price
		FROM daily_averages
		WHERE source = $1 AND day = ANY($2)
		ORDER BY day ASC
	`, source, pq.Array(days))
	if err != nil {
		return nil, &StorageError{Op: "get daily averages for days", Err: err}
	}
	return scanAverages(rows, "get daily averages for days")
}

func scanAverages(rows *sql.Rows, op string) ([]models.DailyAverage, error) {
	defer func() { _ = rows.Close() }()

	var out []models.DailyAverage
	for rows.Next() {
		var a models.DailyAverage
		if err := rows.Scan(&a.ID, &a.Source, &a.Day, &a.AveragePrice); err != nil {
			return nil, &StorageError{Op: op, Err: err}
		}
		a.Day = models.DayOf(a.Day)
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Op: op, Err: err}
	}
	return out, nil
}

// ApplyIngestion inserts new readings and upserts recomputed averages inside
// one transaction, so a mid-pipeline failure never commits a half-applied
// state.
//
// Readings use ON CONFLICT DO NOTHING against the (source, timestamp_utc)
// unique constraint: a concurrent ingest of an overlapping window cannot
// double-insert, and insertedCount reflects rows that actually landed.
func (r *readingsRepository) ApplyIngestion(ctx context.Context, readings []models.Reading, averages []models.DailyAverage) (int, int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, &StorageError{Op: "begin", Err: err}
	}

	inserted := 0
	if len(readings) > 0 {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO readings (source, timestamp_utc, price)
			VALUES ($1, $2, $3)
			ON CONFLICT (source, timestamp_utc) DO NOTHING
		`)
		if err != nil {
			_ = tx.Rollback()
			return 0, 0, &StorageError{Op: "prepare insert readings", Err: err}
		}
		for _, rd := range readings {
			res, err := stmt.ExecContext(ctx, rd.Source, rd.TimestampUTC, rd.Price)
			if err != nil {
				_ = stmt.Close()
				_ = tx.Rollback()
				return 0, 0, &StorageError{Op: "insert reading", Err: err}
			}
			if n, err := res.RowsAffected(); err == nil {
				inserted += int(n)
			}
		}
		if err := stmt.Close(); err != nil {
			_ = tx.Rollback()
			return 0, 0, &StorageError{Op: "insert readings", Err: err}
		}
	}

	daysUpdated := 0
	if len(averages) > 0 {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO daily_averages (source, day, average_price)
			VALUES ($1, $2, $3)
			ON CONFLICT (day, source)
			DO UPDATE SET average_price = EXCLUDED.average_price
		`)
		if err != nil {
			_ = tx.Rollback()
			return 0, 0, &StorageError{Op: "prepare upsert averages", Err: err}
		}
		for _, a := range averages {
			res, err := stmt.ExecContext(ctx, a.Source, a.Day, a.AveragePrice)
			if err != nil {
				_ = stmt.Close()
				_ = tx.Rollback()
				return 0, 0, &StorageError{Op: "upsert average", Err: err}
			}
			if n, err := res.RowsAffected(); err == nil {
				daysUpdated += int(n)
			}
		}
		if err := stmt.Close(); err != nil {
			_ = tx.Rollback()
			return 0, 0, &StorageError{Op: "upsert averages", Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, &StorageError{Op: "commit", Err: err}
	}
	return inserted, daysUpdated, nil
}
