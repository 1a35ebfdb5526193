package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lysyi3m/rent-comb/app/cfg"
	"github.com/lysyi3m/rent-comb/app/crawl"
	"github.com/lysyi3m/rent-comb/app/database"
	"github.com/lysyi3m/rent-comb/app/tasks"
)

const (
	defaultListingLimit = 100
	maxListingLimit     = 500
	feedItemLimit       = 50
)

var errBadQuery = errors.New("invalid query parameter")

func NewHandler(portalCache *crawl.PortalCache, listingRepo database.ListingRepository,
	searchRepo database.SavedSearchRepository, runRepo database.RunRepository,
	neighborhoods NeighborhoodSource, resolver ListingResolver,
	scheduler tasks.TaskSchedulerInterface, reaper tasks.Sweeper) *Handler {
	return &Handler{
		portalCache:   portalCache,
		listingRepo:   listingRepo,
		searchRepo:    searchRepo,
		runRepo:       runRepo,
		neighborhoods: neighborhoods,
		resolver:      resolver,
		scheduler:     scheduler,
		reaper:        reaper,
		generator:     NewGenerator(),
		retentionDays: cfg.Get().RetentionDays,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if stats, err := h.listingRepo.GetListingStats(c.Request.Context()); err == nil {
		health["listings"] = stats.Total
		health["active_listings"] = stats.Active
	}

	health["loaded_portals"] = h.portalCache.GetConfigCount()

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	stats, err := h.listingRepo.GetListingStats(c.Request.Context())
	if err != nil {
		slog.Error("Database error", "operation", "get_listing_stats", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"listings":           stats,
		"discovered_zones":   len(h.neighborhoods.Discovered()),
		"neighborhood_count": len(h.neighborhoods.Snapshot().Categories),
	})
}

// GetListingFeed serves the newest active listings as RSS.
func (h *Handler) GetListingFeed(c *gin.Context) {
	active := true
	filter := database.ListingFilter{
		Source: c.Query("source"),
		Sector: c.Query("sector"),
		Active: &active,
		Limit:  feedItemLimit,
	}

	listings, err := h.listingRepo.ListListings(c.Request.Context(), filter)
	if err != nil {
		slog.Error("Database error", "operation", "list_listings", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	rss, err := h.generator.Run(filter, listings)
	if err != nil {
		slog.Error("RSS generation error", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.Header("Content-Type", "application/xml; charset=utf-8")
	c.Header("X-Feed-Items", strconv.Itoa(len(listings)))
	c.String(http.StatusOK, rss)
}

func (h *Handler) APIListListings(c *gin.Context) {
	filter, err := parseListingFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	listings, err := h.listingRepo.ListListings(c.Request.Context(), filter)
	if err != nil {
		slog.Error("Database error", "operation", "list_listings", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	total, err := h.listingRepo.CountListings(c.Request.Context(), filter)
	if err != nil {
		slog.Error("Database error", "operation", "count_listings", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	out := make([]listingResponse, 0, len(listings))
	for _, l := range listings {
		out = append(out, h.resolve(l))
	}

	c.JSON(http.StatusOK, gin.H{
		"listings": out,
		"count":    len(out),
		"total":    total,
		"limit":    filter.Limit,
		"offset":   filter.Offset,
	})
}

func (h *Handler) APIGetListing(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	listing, err := h.listingRepo.GetListing(c.Request.Context(), id)
	if err != nil {
		slog.Error("Database error", "operation", "get_listing", "id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if listing == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Listing not found"})
		return
	}

	c.JSON(http.StatusOK, h.resolve(*listing))
}

func (h *Handler) APISetListingStatus(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing status"})
		return
	}

	status := database.Status(strings.ToUpper(strings.TrimSpace(req.Status)))
	if !status.IsValid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown status", "status": req.Status})
		return
	}

	ctx := c.Request.Context()
	listing, err := h.listingRepo.GetListing(ctx, id)
	if err != nil {
		slog.Error("Database error", "operation", "get_listing", "id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if listing == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Listing not found"})
		return
	}

	if err := h.listingRepo.SetListingStatus(ctx, id, status, time.Now()); err != nil {
		slog.Error("Database error", "operation", "set_listing_status", "id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	listing, err = h.listingRepo.GetListing(ctx, id)
	if err != nil || listing == nil {
		slog.Error("Database error", "operation", "get_listing", "id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	slog.Info("Listing status changed", "id", id, "status", status)
	c.JSON(http.StatusOK, h.resolve(*listing))
}

func (h *Handler) APIListNeighborhoods(c *gin.Context) {
	c.JSON(http.StatusOK, h.neighborhoods.Snapshot())
}

func (h *Handler) APIListDiscovered(c *gin.Context) {
	zones := h.neighborhoods.Discovered()
	if zones == nil {
		zones = []string{}
	}
	c.JSON(http.StatusOK, gin.H{
		"zones": zones,
		"total": len(zones),
	})
}

func (h *Handler) APIListSearches(c *gin.Context) {
	searches, err := h.searchRepo.ListSavedSearches(c.Request.Context())
	if err != nil {
		slog.Error("Database error", "operation", "list_saved_searches", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if searches == nil {
		searches = []database.SavedSearch{}
	}

	c.JSON(http.StatusOK, gin.H{
		"searches": searches,
		"total":    len(searches),
	})
}

func (h *Handler) APICreateSearch(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid saved search", "details": err.Error()})
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing search name"})
		return
	}
	criteria := req.Criteria
	if string(criteria) == "null" {
		criteria = nil
	}

	search, err := h.searchRepo.CreateSavedSearch(c.Request.Context(), name, criteria)
	if err != nil {
		slog.Error("Database error", "operation", "create_saved_search", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusCreated, search)
}

func (h *Handler) APIDeleteSearch(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	deleted, err := h.searchRepo.DeleteSavedSearch(c.Request.Context(), id)
	if err != nil {
		slog.Error("Database error", "operation", "delete_saved_search", "id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"error": "Saved search not found"})
		return
	}

	c.Status(http.StatusNoContent)
}

// APICrawlPortal queues every partition of a portal outside the schedule.
func (h *Handler) APICrawlPortal(c *gin.Context) {
	name := c.Param("name")

	config, err := h.portalCache.GetConfig(name)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Portal configuration not found"})
		return
	}
	if !config.Settings.Enabled {
		c.JSON(http.StatusConflict, gin.H{"error": "Portal is disabled"})
		return
	}

	queued, err := h.scheduler.EnqueueCrawl(name)
	if err != nil {
		slog.Error("Error enqueueing crawl", "portal", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to enqueue crawl",
			"details": err.Error(),
		})
		return
	}

	partitions := make([]string, 0, len(config.PropertyTypes))
	for _, p := range config.Partitions() {
		partitions = append(partitions, p.String())
	}

	c.JSON(http.StatusAccepted, gin.H{
		"success":    true,
		"portal":     name,
		"partitions": partitions,
		"queued":     queued,
	})
}

// APIReap runs the staleness sweep synchronously with the configured retention.
func (h *Handler) APIReap(c *gin.Context) {
	start := time.Now()
	archived, err := h.reaper.Sweep(c.Request.Context(), h.retentionDays)
	if err != nil {
		slog.Error("Staleness sweep failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Staleness sweep failed"})
		return
	}

	slog.Info("Staleness sweep completed", "archived", archived, "retention_days", h.retentionDays, "duration", time.Since(start))
	c.JSON(http.StatusOK, gin.H{
		"archived":       archived,
		"retention_days": h.retentionDays,
	})
}

func (h *Handler) APIListRuns(c *gin.Context) {
	limit, err := queryInt(c, "limit", 50)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	runs, err := h.runRepo.ListRuns(c.Request.Context(), limit)
	if err != nil {
		slog.Error("Database error", "operation", "list_runs", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if runs == nil {
		runs = []database.CrawlRun{}
	}

	c.JSON(http.StatusOK, gin.H{
		"runs":  runs,
		"count": len(runs),
	})
}

func (h *Handler) resolve(l database.Listing) listingResponse {
	resp := listingResponse{
		Listing:        l,
		ResolvedSector: h.resolver.Sector(l.RawLocation, l.Title),
	}

	if variant, ok := h.resolver.ResolveDisplayVariant(l.RawLocation); ok {
		resp.ResolvedNeighborhood = variant
	} else if variant, ok := h.resolver.ResolveDisplayVariant(l.Title); ok {
		resp.ResolvedNeighborhood = variant
	}

	return resp
}

func parseListingFilter(c *gin.Context) (database.ListingFilter, error) {
	filter := database.ListingFilter{
		Source: strings.TrimSpace(c.Query("source")),
		Sector: strings.TrimSpace(c.Query("sector")),
	}

	if s := strings.TrimSpace(c.Query("status")); s != "" {
		filter.Status = database.Status(strings.ToUpper(s))
		if !filter.Status.IsValid() {
			return filter, badQuery("status", s)
		}
	}

	if s := c.Query("active"); s != "" {
		active, err := strconv.ParseBool(s)
		if err != nil {
			return filter, badQuery("active", s)
		}
		filter.Active = &active
	}

	var err error
	if filter.MinPrice, err = queryFloat(c, "min_price"); err != nil {
		return filter, err
	}
	if filter.MaxPrice, err = queryFloat(c, "max_price"); err != nil {
		return filter, err
	}
	if filter.Limit, err = queryInt(c, "limit", defaultListingLimit); err != nil {
		return filter, err
	}
	if filter.Offset, err = queryInt(c, "offset", 0); err != nil {
		return filter, err
	}
	filter.Limit = min(filter.Limit, maxListingLimit)

	return filter, nil
}

func queryInt(c *gin.Context, key string, def int) (int, error) {
	s := c.Query(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, badQuery(key, s)
	}
	if n == 0 && key == "limit" {
		return def, nil
	}
	return n, nil
}

func queryFloat(c *gin.Context, key string) (*float64, error) {
	s := c.Query(key)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return nil, badQuery(key, s)
	}
	return &v, nil
}

func badQuery(key, value string) error {
	return fmt.Errorf("%w: %s=%s", errBadQuery, key, value)
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid id parameter"})
		return 0, false
	}
	return id, true
}
