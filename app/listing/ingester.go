package listing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lysyi3m/rent-comb/app/database"
)

// Catalog is the subset of the listing repository the ingester mutates.
type Catalog interface {
	GetListingByLink(ctx context.Context, link string) (*database.Listing, error)
	InsertListing(ctx context.Context, listing *database.Listing) (int64, error)
	ObserveListing(ctx context.Context, id int64, observedAt time.Time, price *float64) error
}

// Gate decides whether a record belongs in the catalog.
type Gate interface {
	Accept(title, rawLocation string, price *float64) bool
}

// SectorResolver labels a listing for the sector cache column.
type SectorResolver interface {
	Sector(location, title string) string
}

// Ingester classifies raw records against the catalog and applies the
// resulting mutation. It holds no per-crawl state and is safe for concurrent
// use by several paginators.
type Ingester struct {
	catalog  Catalog
	gate     Gate
	resolver SectorResolver
	now      func() time.Time
}

func NewIngester(catalog Catalog, gate Gate, resolver SectorResolver) *Ingester {
	return &Ingester{
		catalog:  catalog,
		gate:     gate,
		resolver: resolver,
		now:      time.Now,
	}
}

// Ingest stores or refreshes one record. Store errors other than a duplicate
// insert are returned unchanged in the chain and leave the row untouched.
func (i *Ingester) Ingest(ctx context.Context, rec RawRecord) (Outcome, error) {
	if err := rec.Validate(); err != nil {
		return OutcomeRejected, err
	}

	if !i.gate.Accept(rec.Title, rec.RawLocation, rec.Price) {
		return OutcomeRejected, nil
	}

	now := i.now().UTC()

	existing, err := i.catalog.GetListingByLink(ctx, rec.CanonicalLink)
	if err != nil {
		return "", fmt.Errorf("failed to look up listing: %w", err)
	}

	if existing == nil {
		outcome, err := i.create(ctx, rec, now)
		if !errors.Is(err, database.ErrDuplicateLink) {
			return outcome, err
		}

		slog.Debug("Concurrent insert detected, retrying as update", "link", rec.CanonicalLink)
		existing, err = i.catalog.GetListingByLink(ctx, rec.CanonicalLink)
		if err != nil {
			return "", fmt.Errorf("failed to look up listing after duplicate insert: %w", err)
		}
		if existing == nil {
			return "", fmt.Errorf("listing %s vanished after duplicate insert", rec.CanonicalLink)
		}
	}

	return i.observe(ctx, existing, rec, now)
}

func (i *Ingester) create(ctx context.Context, rec RawRecord, now time.Time) (Outcome, error) {
	l := &database.Listing{
		CanonicalLink:  rec.CanonicalLink,
		Title:          rec.Title,
		Price:          rec.Price,
		RawLocation:    rec.RawLocation,
		Description:    rec.Description,
		Area:           rec.Area,
		Bedrooms:       rec.Bedrooms,
		Bathrooms:      rec.Bathrooms,
		Source:         rec.Source,
		ExternalID:     rec.ExternalID,
		ImageURL:       rec.ImageURL,
		Status:         database.StatusNew,
		Active:         true,
		CreatedAt:      now,
		UpdatedAt:      now,
		LastObservedAt: now,
	}
	if i.resolver != nil {
		l.Sector = i.resolver.Sector(rec.RawLocation, rec.Title)
	}

	if _, err := i.catalog.InsertListing(ctx, l); err != nil {
		return "", err
	}
	return OutcomeCreated, nil
}

func (i *Ingester) observe(ctx context.Context, existing *database.Listing, rec RawRecord, now time.Time) (Outcome, error) {
	if priceChanged(existing.Price, rec.Price) {
		if err := i.catalog.ObserveListing(ctx, existing.ID, now, rec.Price); err != nil {
			return "", err
		}
		return OutcomeUpdated, nil
	}

	if err := i.catalog.ObserveListing(ctx, existing.ID, now, nil); err != nil {
		return "", err
	}
	return OutcomeUnchanged, nil
}

// A missing incoming price is absence of data, not a change.
func priceChanged(stored, incoming *float64) bool {
	if incoming == nil {
		return false
	}
	return stored == nil || *stored != *incoming
}
