package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jandubois/clusterwatch/internal/report"
)

// ErrNoReports is returned by LatestReport when the journal is empty.
var ErrNoReports = errors.New("db: no reports recorded")

// MaxRecent caps RecentReports.
const MaxRecent = 500

// Store is the report journal.
type Store struct {
	db *DB
}

// NewStore wraps a connected database.
func NewStore(d *DB) *Store {
	return &Store{db: d}
}

// Open connects to dbPath, migrates it and returns a Store.
func Open(ctx context.Context, dbPath string) (*Store, error) {
	d, err := Connect(ctx, dbPath)
	if err != nil {
		return nil, err
	}
	return NewStore(d), nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveReport records r. Saving the same report twice is an error.
func (s *Store) SaveReport(ctx context.Context, r *report.Report) error {
	_, err := s.db.DB().ExecContext(ctx, `
		INSERT INTO reports (id, round_at, hostname, overall, duration_ms, total, warning, critical, unknown, body)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.ID, Time{r.Timestamp}, r.Hostname, r.Overall.String(), r.Duration.Milliseconds(),
		r.Summary.Total, r.Summary.Warning, r.Summary.Critical, r.Summary.Unknown, reportBody{r})
	if err != nil {
		return fmt.Errorf("insert report %s: %w", r.ID, err)
	}
	return nil
}

// LatestReport returns the most recent report.
func (s *Store) LatestReport(ctx context.Context) (*report.Report, error) {
	var body reportBody
	err := s.db.DB().QueryRowContext(ctx,
		`SELECT body FROM reports ORDER BY round_at DESC LIMIT 1`,
	).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoReports
	}
	if err != nil {
		return nil, fmt.Errorf("query latest report: %w", err)
	}
	return body.Report, nil
}

// RecentReports returns up to limit reports, newest first.
func (s *Store) RecentReports(ctx context.Context, limit int) ([]*report.Report, error) {
	if limit <= 0 || limit > MaxRecent {
		limit = MaxRecent
	}
	rows, err := s.db.DB().QueryContext(ctx,
		`SELECT body FROM reports ORDER BY round_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query reports: %w", err)
	}
	defer rows.Close()

	var reports []*report.Report
	for rows.Next() {
		var body reportBody
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		reports = append(reports, body.Report)
	}
	return reports, rows.Err()
}
