package listing

import (
	"context"
	"fmt"
	"time"
)

// StaleArchiver archives listings not observed since cutoff in one statement.
type StaleArchiver interface {
	ArchiveStale(ctx context.Context, cutoff, now time.Time) (int64, error)
}

type Reaper struct {
	archiver StaleArchiver
	now      func() time.Time
}

func NewReaper(archiver StaleArchiver) *Reaper {
	return &Reaper{archiver: archiver, now: time.Now}
}

// Sweep archives every listing whose last observation is strictly older than
// retentionDays ago and returns how many rows changed.
func (r *Reaper) Sweep(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays < 0 {
		return 0, fmt.Errorf("retention days must be non-negative, got %d", retentionDays)
	}

	now := r.now().UTC()
	cutoff := now.AddDate(0, 0, -retentionDays)

	count, err := r.archiver.ArchiveStale(ctx, cutoff, now)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep stale listings: %w", err)
	}
	return count, nil
}
