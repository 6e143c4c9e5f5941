package metrics

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"shopsmart/internal/generator"
)

// Outcome classifies how a generation ended.
type Outcome string

const (
	OutcomeSuccess   Outcome = "success"
	OutcomeTimeout   Outcome = "timeout"
	OutcomeTransport Outcome = "transport"
	OutcomeServer    Outcome = "server"
	OutcomeMalformed Outcome = "malformed"
	OutcomeCanceled  Outcome = "canceled"
	OutcomeUnknown   Outcome = "unknown"
)

// OutcomeOf maps a generation error to its outcome; nil is a success.
func OutcomeOf(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, generator.ErrTimeout):
		return OutcomeTimeout
	case errors.Is(err, generator.ErrTransport):
		return OutcomeTransport
	case errors.Is(err, generator.ErrServer):
		return OutcomeServer
	case errors.Is(err, generator.ErrMalformedResponse):
		return OutcomeMalformed
	case errors.Is(err, generator.ErrCanceled), errors.Is(err, context.Canceled):
		return OutcomeCanceled
	default:
		return OutcomeUnknown
	}
}

// GenerationMetric records one resolved generation request.
type GenerationMetric struct {
	Mode      string
	Outcome   Outcome
	Items     int
	Latency   time.Duration
	Timestamp time.Time
}

// Recorder accepts generation metrics.
type Recorder interface {
	Record(ctx context.Context, m GenerationMetric) error
}

// Store handles persistence of metrics to SQLite.
type Store struct {
	db *sql.DB
}

// NewStore initializes the Store with an existing database connection.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Record saves a metric to the database.
func (s *Store) Record(ctx context.Context, m GenerationMetric) error {
	ts := m.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO generation_metrics (mode, outcome, items, latency_ms, timestamp) VALUES (?, ?, ?, ?, ?)`,
		m.Mode, string(m.Outcome), m.Items, m.Latency.Milliseconds(), ts.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to insert generation metric: %w", err)
	}
	return nil
}

// DailyUsage represents generation totals for a single day.
type DailyUsage struct {
	Date         string
	Total        int
	Succeeded    int
	AvgLatencyMS int64
}

// Failed is the number of generations that did not succeed.
func (d DailyUsage) Failed() int { return d.Total - d.Succeeded }

// GetDailyUsage retrieves usage for the last N days, newest day first.
func (s *Store) GetDailyUsage(ctx context.Context, days int) ([]DailyUsage, error) {
	since := time.Now().AddDate(0, 0, -days).UnixMilli()
	rows, err := s.db.QueryContext(ctx, `
		SELECT date(timestamp / 1000, 'unixepoch') AS day,
		       COUNT(*),
		       SUM(CASE WHEN outcome = 'success' THEN 1 ELSE 0 END),
		       CAST(AVG(latency_ms) AS INTEGER)
		FROM generation_metrics
		WHERE timestamp >= ?
		GROUP BY day
		ORDER BY day DESC`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily usage: %w", err)
	}
	defer rows.Close()

	var results []DailyUsage
	for rows.Next() {
		var u DailyUsage
		if err := rows.Scan(&u.Date, &u.Total, &u.Succeeded, &u.AvgLatencyMS); err != nil {
			return nil, fmt.Errorf("failed to scan daily usage: %w", err)
		}
		results = append(results, u)
	}
	return results, rows.Err()
}

// Cleanup removes records older than the specified number of days and
// returns how many were removed.
func (s *Store) Cleanup(ctx context.Context, olderThanDays int) (int64, error) {
	threshold := time.Now().AddDate(0, 0, -olderThanDays).UnixMilli()
	res, err := s.db.ExecContext(ctx, `DELETE FROM generation_metrics WHERE timestamp < ?`, threshold)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up metrics: %w", err)
	}
	return res.RowsAffected()
}
