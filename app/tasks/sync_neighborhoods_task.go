package tasks

import (
	"context"
	"fmt"
	"log/slog"
)

// SyncNeighborhoodsTask re-resolves the discovered zones against the current
// neighborhood map, learning the ones that now fall into a category.
type SyncNeighborhoodsTask struct {
	Task
	syncer ZoneSyncer
}

func NewSyncNeighborhoodsTask(syncer ZoneSyncer) *SyncNeighborhoodsTask {
	return &SyncNeighborhoodsTask{
		Task:   NewTask(TaskTypeSyncNeighborhoods, "neighborhood_map"),
		syncer: syncer,
	}
}

func (t *SyncNeighborhoodsTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	learned, remaining, err := t.syncer.SyncDiscovered()
	if err != nil {
		return fmt.Errorf("failed to sync discovered neighborhoods: %w", err)
	}

	slog.Info("Task completed",
		"type", t.GetType(),
		"duration", t.GetDuration(),
		"learned", learned,
		"remaining", remaining)

	return nil
}
