package tasks

import (
	"context"

	"github.com/lysyi3m/rent-comb/app/crawl"
	"github.com/lysyi3m/rent-comb/app/database"
)

// TaskSchedulerInterface defines the interface for task scheduling operations.
// The API uses EnqueueCrawl to trigger a crawl outside the schedule.
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
	EnqueueCrawl(portalName string) (int, error)
}

// PartitionAdapter is an adapter instance owned by a single crawl task.
type PartitionAdapter interface {
	crawl.Adapter
	Close() error
}

// AdapterFactory builds a fresh adapter for one crawl task.
type AdapterFactory func(config *crawl.Config) (PartitionAdapter, error)

type Sweeper interface {
	Sweep(ctx context.Context, retentionDays int) (int64, error)
}

type ZoneSyncer interface {
	SyncDiscovered() (learned int, remaining int, err error)
}

type SectorResolver interface {
	Sector(location, title string) string
}

type SectorRepository interface {
	GetSectorInputs(ctx context.Context) ([]database.SectorInput, error)
	UpdateListingSector(ctx context.Context, id int64, sector string) error
}
