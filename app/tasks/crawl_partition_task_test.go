package tasks

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lysyi3m/rent-comb/app/crawl"
	"github.com/lysyi3m/rent-comb/app/database"
	"github.com/lysyi3m/rent-comb/app/listing"
)

func newTestDB(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.NewConnection(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, _, err = database.RunMigrations(db)
	require.NoError(t, err)
	return db
}

type stubAdapter struct {
	pages  int
	failAt int
	closed bool
}

func (a *stubAdapter) FetchPage(ctx context.Context, partition crawl.Partition, page int) (crawl.Page, error) {
	if page == a.failAt {
		return crawl.Page{}, fmt.Errorf("%w: HTTP error: 503", crawl.ErrNavigation)
	}
	if page > a.pages {
		return crawl.Page{}, nil
	}
	return crawl.Page{Records: []listing.RawRecord{
		{CanonicalLink: fmt.Sprintf("https://example.com/%s/%d", partition.PropertyType, page)},
	}}, nil
}

func (a *stubAdapter) Close() error {
	a.closed = true
	return nil
}

type createAll struct{}

func (createAll) Ingest(ctx context.Context, rec listing.RawRecord) (listing.Outcome, error) {
	return listing.OutcomeCreated, nil
}

func portalConfig(enabled bool) *crawl.Config {
	return &crawl.Config{
		Name:          "demo",
		URL:           "https://example.com/{type}?page={page}",
		PropertyTypes: []string{"casas"},
		Settings:      crawl.ConfigSettings{Enabled: enabled, RefreshInterval: 3600},
	}
}

func TestCrawlPartitionTaskRecordsRun(t *testing.T) {
	runRepo := database.NewRunRepository(newTestDB(t))
	adapter := &stubAdapter{pages: 3}
	config := portalConfig(true)

	task := NewCrawlPartitionTask(config, config.Partitions()[0],
		func(*crawl.Config) (PartitionAdapter, error) { return adapter, nil },
		createAll{}, runRepo, 10, 50)
	task.Start()

	require.NoError(t, task.Execute(context.Background()))
	assert.True(t, adapter.closed)
	assert.Equal(t, 0, task.GetMaxRetries())

	run, err := runRepo.GetLatestRun(context.Background(), "demo", "casas")
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, task.GetID(), run.ID)
	assert.Equal(t, database.RunStatusCompleted, run.Status)
	assert.Equal(t, string(crawl.StopExhausted), run.StopReason)
	assert.Equal(t, 4, run.Pages)
	assert.Equal(t, 3, run.Created)
	assert.NotNil(t, run.FinishedAt)
}

func TestCrawlPartitionTaskNavigationFailure(t *testing.T) {
	runRepo := database.NewRunRepository(newTestDB(t))
	adapter := &stubAdapter{pages: 5, failAt: 2}
	config := portalConfig(true)

	task := NewCrawlPartitionTask(config, config.Partitions()[0],
		func(*crawl.Config) (PartitionAdapter, error) { return adapter, nil },
		createAll{}, runRepo, 10, 50)

	err := task.Execute(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, crawl.ErrNavigation))
	assert.False(t, task.CanRetry())

	run, err := runRepo.GetLatestRun(context.Background(), "demo", "casas")
	require.NoError(t, err)
	assert.Equal(t, database.RunStatusFailed, run.Status)
	assert.Equal(t, 1, run.Created)
	assert.Contains(t, run.Error, "503")
}

func TestCrawlPartitionTaskSettingsOverride(t *testing.T) {
	config := portalConfig(true)
	config.Settings.MaxPages = 2
	config.Settings.UnchangedThreshold = 4

	task := NewCrawlPartitionTask(config, config.Partitions()[0], nil, createAll{}, nil, 10, 50)
	assert.Equal(t, 2, task.maxPages)
	assert.Equal(t, 4, task.threshold)
}

func TestCrawlPartitionTaskDisabledPortal(t *testing.T) {
	config := portalConfig(false)
	called := false

	task := NewCrawlPartitionTask(config, config.Partitions()[0],
		func(*crawl.Config) (PartitionAdapter, error) { called = true; return nil, nil },
		createAll{}, nil, 10, 50)

	require.NoError(t, task.Execute(context.Background()))
	assert.False(t, called)
}

func TestCrawlPartitionTaskCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	config := portalConfig(true)
	task := NewCrawlPartitionTask(config, config.Partitions()[0], nil, createAll{}, nil, 10, 50)
	assert.ErrorIs(t, task.Execute(ctx), context.Canceled)
}

func TestCrawlPartitionTaskUsesClock(t *testing.T) {
	runRepo := database.NewRunRepository(newTestDB(t))
	config := portalConfig(true)
	started := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

	task := NewCrawlPartitionTask(config, config.Partitions()[0],
		func(*crawl.Config) (PartitionAdapter, error) { return &stubAdapter{}, nil },
		createAll{}, runRepo, 10, 50)
	task.now = func() time.Time { return started }

	require.NoError(t, task.Execute(context.Background()))

	run, err := runRepo.GetLatestRun(context.Background(), "demo", "casas")
	require.NoError(t, err)
	assert.True(t, run.StartedAt.Equal(started))
}
