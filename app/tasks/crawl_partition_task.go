package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lysyi3m/rent-comb/app/crawl"
	"github.com/lysyi3m/rent-comb/app/database"
)

// CrawlPartitionTask runs one pagination pass over a portal partition. It is
// not retried inline; a failed partition is picked up again when it is next
// due.
type CrawlPartitionTask struct {
	Task
	Config     *crawl.Config
	Partition  crawl.Partition
	newAdapter AdapterFactory
	ingestor   crawl.Ingestor
	runRepo    database.RunRepository
	threshold  int
	maxPages   int
	now        func() time.Time
}

func NewCrawlPartitionTask(config *crawl.Config, partition crawl.Partition, newAdapter AdapterFactory, ingestor crawl.Ingestor, runRepo database.RunRepository, threshold, maxPages int) *CrawlPartitionTask {
	task := NewTask(TaskTypeCrawlPartition, partition.String())
	task.MaxRetries = 0

	if config.Settings.UnchangedThreshold > 0 {
		threshold = config.Settings.UnchangedThreshold
	}
	if config.Settings.MaxPages > 0 {
		maxPages = config.Settings.MaxPages
	}

	return &CrawlPartitionTask{
		Task:       task,
		Config:     config,
		Partition:  partition,
		newAdapter: newAdapter,
		ingestor:   ingestor,
		runRepo:    runRepo,
		threshold:  threshold,
		maxPages:   maxPages,
		now:        time.Now,
	}
}

func (t *CrawlPartitionTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if !t.Config.Settings.Enabled {
		slog.Debug("Portal disabled, skipping", "partition", t.Target)
		return nil
	}

	adapter, err := t.newAdapter(t.Config)
	if err != nil {
		return fmt.Errorf("failed to create adapter: %w", err)
	}
	defer func() {
		if err := adapter.Close(); err != nil {
			slog.Warn("Failed to close adapter", "partition", t.Target, "error", err)
		}
	}()

	run := &database.CrawlRun{
		ID:           t.ID,
		Portal:       t.Partition.Portal,
		PropertyType: t.Partition.PropertyType,
		Status:       database.RunStatusRunning,
		StartedAt:    t.now().UTC(),
	}
	if err := t.runRepo.StartRun(ctx, run); err != nil {
		return fmt.Errorf("failed to record crawl run: %w", err)
	}

	paginator := crawl.NewPaginator(t.ingestor, t.threshold, t.maxPages)
	summary, runErr := paginator.Run(ctx, adapter, t.Partition)

	finished := t.now().UTC()
	run.Status = database.RunStatusCompleted
	run.StopReason = string(summary.StopReason)
	run.Pages = summary.Pages
	run.Created = summary.Created
	run.Updated = summary.Updated
	run.Unchanged = summary.Unchanged
	run.Rejected = summary.Rejected
	run.Skipped = summary.Skipped
	run.FinishedAt = &finished
	if runErr != nil {
		run.Status = database.RunStatusFailed
		run.Error = runErr.Error()
	}

	// The run is recorded even when the crawl context was cancelled.
	if err := t.runRepo.FinishRun(context.WithoutCancel(ctx), run); err != nil {
		slog.Error("Failed to finish crawl run", "partition", t.Target, "run_id", run.ID, "error", err)
	}

	if runErr != nil {
		return fmt.Errorf("crawl of %s stopped after %d pages: %w", t.Target, summary.Pages, runErr)
	}

	slog.Info("Task completed",
		"type", t.GetType(),
		"partition", t.Target,
		"duration", t.GetDuration(),
		"pages", summary.Pages,
		"created", summary.Created,
		"updated", summary.Updated,
		"unchanged", summary.Unchanged,
		"rejected", summary.Rejected,
		"skipped", summary.Skipped,
		"stop_reason", summary.StopReason)

	return nil
}
