package crawl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/rent-comb/app/listing"
)

const (
	DefaultUnchangedThreshold = 10
	DefaultMaxPages           = 50
)

type StopReason string

const (
	StopUnchanged  StopReason = "unchanged_threshold"
	StopLoop       StopReason = "repeated_page"
	StopMaxPages   StopReason = "max_pages"
	StopExhausted  StopReason = "exhausted"
	StopNavigation StopReason = "navigation_error"
	StopStore      StopReason = "store_error"
	StopCancelled  StopReason = "cancelled"
)

type Ingestor interface {
	Ingest(ctx context.Context, rec listing.RawRecord) (listing.Outcome, error)
}

// Summary describes one pagination pass. Records ingested before an error
// stay ingested.
type Summary struct {
	Partition  Partition
	Pages      int
	Created    int
	Updated    int
	Unchanged  int
	Rejected   int
	Skipped    int
	StopReason StopReason
}

// Paginator walks the result pages of one partition until the source looks
// exhausted or already known.
type Paginator struct {
	ingestor  Ingestor
	threshold int
	maxPages  int
}

func NewPaginator(ingestor Ingestor, threshold, maxPages int) *Paginator {
	if threshold <= 0 {
		threshold = DefaultUnchangedThreshold
	}
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	return &Paginator{ingestor: ingestor, threshold: threshold, maxPages: maxPages}
}

// Run crawls partition through adapter. The consecutive unchanged counter
// spans page boundaries; a page whose link set equals the previous page's
// ends the run before any of its records are ingested.
func (p *Paginator) Run(ctx context.Context, adapter Adapter, partition Partition) (Summary, error) {
	summary := Summary{Partition: partition}
	consecutive := 0
	var previous map[string]struct{}

	for page := 1; page <= p.maxPages; page++ {
		if err := ctx.Err(); err != nil {
			summary.StopReason = StopCancelled
			return summary, err
		}

		result, err := adapter.FetchPage(ctx, partition, page)
		if err != nil {
			summary.StopReason = StopNavigation
			if !errors.Is(err, ErrNavigation) {
				err = fmt.Errorf("%w: %v", ErrNavigation, err)
			}
			return summary, err
		}
		summary.Pages++

		for _, failure := range result.Failures {
			slog.Debug("Skipping record", "partition", partition.String(), "page", page, "error", failure)
		}
		summary.Skipped += len(result.Failures)

		if len(result.Records) == 0 {
			summary.StopReason = StopExhausted
			return summary, nil
		}

		links := linkSet(result.Records)
		if previous != nil && sameLinks(previous, links) {
			slog.Warn("Source returned the same page again", "partition", partition.String(), "page", page, "url", result.URL)
			summary.StopReason = StopLoop
			return summary, nil
		}
		previous = links

		for _, rec := range result.Records {
			outcome, err := p.ingestor.Ingest(ctx, rec)
			if errors.Is(err, listing.ErrInvalidRecord) {
				slog.Debug("Skipping invalid record", "partition", partition.String(), "link", rec.CanonicalLink, "error", err)
				summary.Skipped++
				continue
			}
			if err != nil {
				summary.StopReason = StopStore
				return summary, fmt.Errorf("failed to ingest %s: %w", rec.CanonicalLink, err)
			}

			switch outcome {
			case listing.OutcomeCreated:
				summary.Created++
				consecutive = 0
			case listing.OutcomeUpdated:
				summary.Updated++
				consecutive = 0
			case listing.OutcomeUnchanged:
				summary.Unchanged++
				consecutive++
			case listing.OutcomeRejected:
				summary.Rejected++
			}

			if consecutive >= p.threshold {
				summary.StopReason = StopUnchanged
				return summary, nil
			}
		}

		if result.Last {
			summary.StopReason = StopExhausted
			return summary, nil
		}
	}

	summary.StopReason = StopMaxPages
	return summary, nil
}

func linkSet(records []listing.RawRecord) map[string]struct{} {
	set := make(map[string]struct{}, len(records))
	for _, rec := range records {
		set[rec.CanonicalLink] = struct{}{}
	}
	return set
}

func sameLinks(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for link := range a {
		if _, ok := b[link]; !ok {
			return false
		}
	}
	return true
}
