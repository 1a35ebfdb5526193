package listing

import (
	"context"
	"errors"
	"testing"
	"time"
)

type archiverFunc func(ctx context.Context, cutoff, now time.Time) (int64, error)

func (f archiverFunc) ArchiveStale(ctx context.Context, cutoff, now time.Time) (int64, error) {
	return f(ctx, cutoff, now)
}

func TestReaperSweepCutoff(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

	var gotCutoff, gotNow time.Time
	reaper := NewReaper(archiverFunc(func(ctx context.Context, cutoff, n time.Time) (int64, error) {
		gotCutoff, gotNow = cutoff, n
		return 4, nil
	}))
	reaper.now = func() time.Time { return now }

	count, err := reaper.Sweep(context.Background(), 3)
	if err != nil {
		t.Fatal(err)
	}
	if count != 4 {
		t.Errorf("Expected 4 archived, got %d", count)
	}
	if !gotCutoff.Equal(time.Date(2024, 5, 7, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("Unexpected cutoff %v", gotCutoff)
	}
	if !gotNow.Equal(now) {
		t.Errorf("Unexpected now %v", gotNow)
	}
}

func TestReaperSweepErrors(t *testing.T) {
	reaper := NewReaper(archiverFunc(func(ctx context.Context, cutoff, now time.Time) (int64, error) {
		return 0, errors.New("disk I/O error")
	}))

	if _, err := reaper.Sweep(context.Background(), 3); err == nil {
		t.Error("Expected store error to propagate")
	}
	if _, err := reaper.Sweep(context.Background(), -1); err == nil {
		t.Error("Expected negative retention to be rejected")
	}
}

func TestReaperSweepAgainstCatalog(t *testing.T) {
	ing, repo, c := newTestIngester(t)
	ctx := context.Background()

	if _, err := ing.Ingest(ctx, record("https://example.com/stale", price(1000000))); err != nil {
		t.Fatal(err)
	}
	c.advance(24 * time.Hour)
	if _, err := ing.Ingest(ctx, record("https://example.com/fresh", price(1000000))); err != nil {
		t.Fatal(err)
	}
	c.advance(3 * 24 * time.Hour)

	reaper := NewReaper(repo)
	reaper.now = c.now

	count, err := reaper.Sweep(ctx, 3)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("Expected only the listing older than the cutoff to be archived, got %d", count)
	}

	count, err = reaper.Sweep(ctx, 3)
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("Expected a repeat sweep to archive nothing, got %d", count)
	}
}
