package api

import (
	"encoding/json"

	"github.com/lysyi3m/rent-comb/app/crawl"
	"github.com/lysyi3m/rent-comb/app/database"
	"github.com/lysyi3m/rent-comb/app/sector"
	"github.com/lysyi3m/rent-comb/app/tasks"
)

// NeighborhoodSource exposes the curated map and the zones awaiting curation.
type NeighborhoodSource interface {
	Snapshot() sector.Map
	Discovered() []string
}

type ListingResolver interface {
	Sector(location, title string) string
	ResolveDisplayVariant(raw string) (string, bool)
}

var (
	_ NeighborhoodSource = (*sector.Store)(nil)
	_ ListingResolver    = (*sector.Resolver)(nil)
)

type Handler struct {
	portalCache   *crawl.PortalCache
	listingRepo   database.ListingRepository
	searchRepo    database.SavedSearchRepository
	runRepo       database.RunRepository
	neighborhoods NeighborhoodSource
	resolver      ListingResolver
	scheduler     tasks.TaskSchedulerInterface
	reaper        tasks.Sweeper
	generator     *Generator
	retentionDays int
}

// listingResponse is a catalog row plus the sector and neighborhood resolved
// against the current map at request time.
type listingResponse struct {
	database.Listing
	ResolvedSector       string `json:"resolved_sector"`
	ResolvedNeighborhood string `json:"resolved_neighborhood"`
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

type searchRequest struct {
	Name     string          `json:"name" binding:"required"`
	Criteria json.RawMessage `json:"criteria"`
}
