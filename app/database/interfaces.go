package database

import (
	"context"
	"encoding/json"
	"time"
)

type ListingRepository interface {
	GetListing(ctx context.Context, id int64) (*Listing, error)
	GetListingByLink(ctx context.Context, link string) (*Listing, error)
	InsertListing(ctx context.Context, listing *Listing) (int64, error)
	ObserveListing(ctx context.Context, id int64, observedAt time.Time, price *float64) error
	ArchiveStale(ctx context.Context, cutoff, now time.Time) (int64, error)
	ListListings(ctx context.Context, filter ListingFilter) ([]Listing, error)
	CountListings(ctx context.Context, filter ListingFilter) (int, error)
	SetListingStatus(ctx context.Context, id int64, status Status, now time.Time) error
	GetListingStats(ctx context.Context) (ListingStats, error)
	GetSectorInputs(ctx context.Context) ([]SectorInput, error)
	UpdateListingSector(ctx context.Context, id int64, sector string) error
}

type SavedSearchRepository interface {
	CreateSavedSearch(ctx context.Context, name string, criteria json.RawMessage) (*SavedSearch, error)
	ListSavedSearches(ctx context.Context) ([]SavedSearch, error)
	DeleteSavedSearch(ctx context.Context, id int64) (bool, error)
}

type RunRepository interface {
	StartRun(ctx context.Context, run *CrawlRun) error
	FinishRun(ctx context.Context, run *CrawlRun) error
	GetLatestRun(ctx context.Context, portal, propertyType string) (*CrawlRun, error)
	ListRuns(ctx context.Context, limit int) ([]CrawlRun, error)
}
