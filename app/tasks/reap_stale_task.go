package tasks

import (
	"context"
	"fmt"
	"log/slog"
)

type ReapStaleTask struct {
	Task
	reaper        Sweeper
	retentionDays int
}

func NewReapStaleTask(reaper Sweeper, retentionDays int) *ReapStaleTask {
	return &ReapStaleTask{
		Task:          NewTask(TaskTypeReapStale, "listings"),
		reaper:        reaper,
		retentionDays: retentionDays,
	}
}

func (t *ReapStaleTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	archived, err := t.reaper.Sweep(ctx, t.retentionDays)
	if err != nil {
		return fmt.Errorf("failed to reap stale listings: %w", err)
	}

	slog.Info("Task completed",
		"type", t.GetType(),
		"duration", t.GetDuration(),
		"retention_days", t.retentionDays,
		"archived", archived)

	return nil
}
