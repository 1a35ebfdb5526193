package database

import (
	"context"
	"database/sql"
	"fmt"
)

var _ RunRepository = (*CrawlRunRepository)(nil)

// CrawlRunRepository records pagination passes over portal partitions
type CrawlRunRepository struct {
	db *DB
}

// NewRunRepository creates a new crawl run repository
func NewRunRepository(db *DB) *CrawlRunRepository {
	return &CrawlRunRepository{db: db}
}

const runColumns = `
	id, portal, property_type, status, stop_reason, pages,
	created, updated, unchanged, rejected, skipped, error,
	started_at, finished_at`

func scanRun(row rowScanner) (*CrawlRun, error) {
	var run CrawlRun
	var startedAt int64
	var finishedAt sql.NullInt64

	err := row.Scan(
		&run.ID, &run.Portal, &run.PropertyType, &run.Status, &run.StopReason, &run.Pages,
		&run.Created, &run.Updated, &run.Unchanged, &run.Rejected, &run.Skipped, &run.Error,
		&startedAt, &finishedAt,
	)
	if err != nil {
		return nil, err
	}

	run.StartedAt = fromUnix(startedAt)
	run.FinishedAt = fromNullUnix(finishedAt)
	return &run, nil
}

// StartRun inserts a run in the running state
func (r *CrawlRunRepository) StartRun(ctx context.Context, run *CrawlRun) error {
	if run.Status == "" {
		run.Status = RunStatusRunning
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO crawl_runs (id, portal, property_type, status, started_at)
		VALUES (?, ?, ?, ?, ?)
	`, run.ID, run.Portal, run.PropertyType, run.Status, toUnix(run.StartedAt))
	if err != nil {
		return fmt.Errorf("failed to start crawl run: %w", err)
	}
	return nil
}

// FinishRun stores the final counters, stop reason and status of a run
func (r *CrawlRunRepository) FinishRun(ctx context.Context, run *CrawlRun) error {
	var finishedAt any
	if run.FinishedAt != nil {
		finishedAt = toUnix(*run.FinishedAt)
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE crawl_runs
		SET status = ?, stop_reason = ?, pages = ?,
		    created = ?, updated = ?, unchanged = ?, rejected = ?, skipped = ?,
		    error = ?, finished_at = ?
		WHERE id = ?
	`, run.Status, run.StopReason, run.Pages,
		run.Created, run.Updated, run.Unchanged, run.Rejected, run.Skipped,
		run.Error, finishedAt, run.ID)
	if err != nil {
		return fmt.Errorf("failed to finish crawl run: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check finished crawl run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("crawl run %s not found", run.ID)
	}
	return nil
}

// GetLatestRun returns the most recently started run for a partition
func (r *CrawlRunRepository) GetLatestRun(ctx context.Context, portal, propertyType string) (*CrawlRun, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+runColumns+` FROM crawl_runs
		WHERE portal = ? AND property_type = ?
		ORDER BY started_at DESC
		LIMIT 1
	`, portal, propertyType)

	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest crawl run: %w", err)
	}
	return run, nil
}

// ListRuns returns the most recent runs across all partitions
func (r *CrawlRunRepository) ListRuns(ctx context.Context, limit int) ([]CrawlRun, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+runColumns+` FROM crawl_runs
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list crawl runs: %w", err)
	}
	defer rows.Close()

	var runs []CrawlRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan crawl run row: %w", err)
		}
		runs = append(runs, *run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating crawl run rows: %w", err)
	}

	return runs, nil
}
