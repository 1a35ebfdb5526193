package tasks

import (
	"context"
	"fmt"
	"log/slog"
)

// BackfillSectorsTask recomputes the sector cache column of every listing.
type BackfillSectorsTask struct {
	Task
	repo     SectorRepository
	resolver SectorResolver
}

func NewBackfillSectorsTask(repo SectorRepository, resolver SectorResolver) *BackfillSectorsTask {
	return &BackfillSectorsTask{
		Task:     NewTask(TaskTypeBackfillSectors, "listings"),
		repo:     repo,
		resolver: resolver,
	}
}

func (t *BackfillSectorsTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	inputs, err := t.repo.GetSectorInputs(ctx)
	if err != nil {
		return fmt.Errorf("failed to get listings: %w", err)
	}

	updatedCount := 0
	errorCount := 0

	for _, in := range inputs {
		if err := ctx.Err(); err != nil {
			return err
		}

		resolved := t.resolver.Sector(in.RawLocation, in.Title)
		if resolved == in.Sector {
			continue
		}

		if err := t.repo.UpdateListingSector(ctx, in.ID, resolved); err != nil {
			slog.Error("Failed to update listing sector", "listing_id", in.ID, "error", err)
			errorCount++
		} else {
			updatedCount++
		}
	}

	slog.Info("Task completed",
		"type", t.GetType(),
		"duration", t.GetDuration(),
		"total", len(inputs),
		"success", updatedCount,
		"errors", errorCount)

	return nil
}
