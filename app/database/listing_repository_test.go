package database

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := NewConnection(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	version, dirty, err := RunMigrations(db)
	require.NoError(t, err)
	require.False(t, dirty)
	require.Equal(t, uint(3), version)

	return db
}

func floatPtr(v float64) *float64 { return &v }

func newListing(link string, observedAt time.Time) *Listing {
	return &Listing{
		CanonicalLink:  link,
		Title:          "Apartamento en arriendo",
		Price:          floatPtr(2500000),
		RawLocation:    "Laureles, Medellín",
		Source:         "fincaraiz",
		Sector:         "Laureles",
		Status:         StatusNew,
		Active:         true,
		CreatedAt:      observedAt,
		UpdatedAt:      observedAt,
		LastObservedAt: observedAt,
	}
}

func TestInsertAndGetListing(t *testing.T) {
	repo := NewListingRepository(newTestDB(t))
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	l := newListing("https://example.com/a/1", now)
	l.Bedrooms = new(int)
	*l.Bedrooms = 3

	id, err := repo.InsertListing(ctx, l)
	require.NoError(t, err)
	assert.Positive(t, id)

	got, err := repo.GetListingByLink(ctx, "https://example.com/a/1")
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, id, got.ID)
	assert.Equal(t, StatusNew, got.Status)
	assert.True(t, got.Active)
	assert.Equal(t, 2500000.0, *got.Price)
	assert.Equal(t, 3, *got.Bedrooms)
	assert.Nil(t, got.Area)
	assert.Nil(t, got.Bathrooms)
	assert.True(t, got.LastObservedAt.Equal(now))

	missing, err := repo.GetListingByLink(ctx, "https://example.com/missing")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestInsertDuplicateLink(t *testing.T) {
	repo := NewListingRepository(newTestDB(t))
	ctx := context.Background()
	now := time.Now()

	_, err := repo.InsertListing(ctx, newListing("https://example.com/dup", now))
	require.NoError(t, err)

	_, err = repo.InsertListing(ctx, newListing("https://example.com/dup", now))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicateLink), "got %v", err)

	stats, err := repo.GetListingStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Total)
}

func TestConcurrentInsertsKeepOneRow(t *testing.T) {
	repo := NewListingRepository(newTestDB(t))
	ctx := context.Background()
	now := time.Now()

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = repo.InsertListing(ctx, newListing("https://example.com/race", now))
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, ErrDuplicateLink)
	}
	assert.Equal(t, 1, succeeded)
}

func TestObserveListing(t *testing.T) {
	repo := NewListingRepository(newTestDB(t))
	ctx := context.Background()
	t0 := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	id, err := repo.InsertListing(ctx, newListing("https://example.com/obs", t0))
	require.NoError(t, err)

	t.Run("without price keeps updated_at", func(t *testing.T) {
		t1 := t0.Add(time.Hour)
		require.NoError(t, repo.ObserveListing(ctx, id, t1, nil))

		got, err := repo.GetListing(ctx, id)
		require.NoError(t, err)
		assert.True(t, got.LastObservedAt.Equal(t1))
		assert.True(t, got.UpdatedAt.Equal(t0))
		assert.Equal(t, 2500000.0, *got.Price)
	})

	t.Run("with price updates price", func(t *testing.T) {
		t2 := t0.Add(2 * time.Hour)
		require.NoError(t, repo.ObserveListing(ctx, id, t2, floatPtr(2300000)))

		got, err := repo.GetListing(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, 2300000.0, *got.Price)
		assert.True(t, got.UpdatedAt.Equal(t2))
	})

	t.Run("never moves backwards", func(t *testing.T) {
		require.NoError(t, repo.ObserveListing(ctx, id, t0, nil))

		got, err := repo.GetListing(ctx, id)
		require.NoError(t, err)
		assert.True(t, got.LastObservedAt.Equal(t0.Add(2*time.Hour)))
	})
}

func TestObserveResurrectsArchivedWithoutChangingStatus(t *testing.T) {
	repo := NewListingRepository(newTestDB(t))
	ctx := context.Background()
	t0 := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	id, err := repo.InsertListing(ctx, newListing("https://example.com/old", t0))
	require.NoError(t, err)

	archived, err := repo.ArchiveStale(ctx, t0.Add(time.Hour), t0.Add(time.Hour))
	require.NoError(t, err)
	require.Equal(t, int64(1), archived)

	later := t0.Add(48 * time.Hour)
	require.NoError(t, repo.ObserveListing(ctx, id, later, nil))

	got, err := repo.GetListing(ctx, id)
	require.NoError(t, err)
	assert.True(t, got.Active)
	assert.Equal(t, StatusArchived, got.Status)
	assert.True(t, got.UpdatedAt.Equal(later))
}

func TestArchiveStaleBoundary(t *testing.T) {
	repo := NewListingRepository(newTestDB(t))
	ctx := context.Background()
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	cutoff := now.AddDate(0, 0, -3)

	atCutoff, err := repo.InsertListing(ctx, newListing("https://example.com/at", cutoff))
	require.NoError(t, err)
	older, err := repo.InsertListing(ctx, newListing("https://example.com/older", cutoff.AddDate(0, 0, -1)))
	require.NoError(t, err)

	favorite := newListing("https://example.com/fav", cutoff.AddDate(0, 0, -10))
	favorite.Status = StatusFavorite
	favID, err := repo.InsertListing(ctx, favorite)
	require.NoError(t, err)

	count, err := repo.ArchiveStale(ctx, cutoff, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	got, err := repo.GetListing(ctx, atCutoff)
	require.NoError(t, err)
	assert.Equal(t, StatusNew, got.Status)
	assert.True(t, got.Active)

	got, err = repo.GetListing(ctx, older)
	require.NoError(t, err)
	assert.Equal(t, StatusArchived, got.Status)
	assert.False(t, got.Active)
	assert.True(t, got.UpdatedAt.Equal(now))

	got, err = repo.GetListing(ctx, favID)
	require.NoError(t, err)
	assert.Equal(t, StatusFavorite, got.Status)
	assert.True(t, got.Active)

	count, err = repo.ArchiveStale(ctx, cutoff, now)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestSetListingStatus(t *testing.T) {
	repo := NewListingRepository(newTestDB(t))
	ctx := context.Background()
	t0 := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	id, err := repo.InsertListing(ctx, newListing("https://example.com/status", t0))
	require.NoError(t, err)

	require.NoError(t, repo.SetListingStatus(ctx, id, StatusArchived, t0))
	got, err := repo.GetListing(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StatusArchived, got.Status)
	assert.True(t, got.Active, "manual archive keeps the listing active")

	_, err = repo.ArchiveStale(ctx, t0.Add(time.Hour), t0.Add(time.Hour))
	require.NoError(t, err)

	require.NoError(t, repo.SetListingStatus(ctx, id, StatusFavorite, t0))
	got, err = repo.GetListing(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StatusFavorite, got.Status)
	assert.True(t, got.Active)

	assert.Error(t, repo.SetListingStatus(ctx, id, Status("DELETED"), t0))
}

func TestListListingsFilters(t *testing.T) {
	repo := NewListingRepository(newTestDB(t))
	ctx := context.Background()
	t0 := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	cheap := newListing("https://example.com/cheap", t0)
	cheap.Price = floatPtr(1200000)
	cheap.Sector = "Belén"
	_, err := repo.InsertListing(ctx, cheap)
	require.NoError(t, err)

	pricey := newListing("https://example.com/pricey", t0.Add(time.Minute))
	pricey.Price = floatPtr(4200000)
	pricey.Source = "ciencuadras"
	_, err = repo.InsertListing(ctx, pricey)
	require.NoError(t, err)

	unknown := newListing("https://example.com/unknown", t0.Add(2*time.Minute))
	unknown.Price = nil
	_, err = repo.InsertListing(ctx, unknown)
	require.NoError(t, err)

	all, err := repo.ListListings(ctx, ListingFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "https://example.com/unknown", all[0].CanonicalLink)

	bySector, err := repo.ListListings(ctx, ListingFilter{Sector: "Belén"})
	require.NoError(t, err)
	require.Len(t, bySector, 1)
	assert.Equal(t, "https://example.com/cheap", bySector[0].CanonicalLink)

	bySource, err := repo.ListListings(ctx, ListingFilter{Source: "ciencuadras"})
	require.NoError(t, err)
	require.Len(t, bySource, 1)

	byPrice, err := repo.ListListings(ctx, ListingFilter{MaxPrice: floatPtr(3000000)})
	require.NoError(t, err)
	require.Len(t, byPrice, 1)
	assert.Equal(t, "https://example.com/cheap", byPrice[0].CanonicalLink)

	paged, err := repo.ListListings(ctx, ListingFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, paged, 1)
	assert.Equal(t, "https://example.com/pricey", paged[0].CanonicalLink)

	count, err := repo.CountListings(ctx, ListingFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, count, "count ignores paging")

	count, err = repo.CountListings(ctx, ListingFilter{MaxPrice: floatPtr(3000000)})
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = repo.CountListings(ctx, ListingFilter{Source: "none"})
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestSectorInputsAndUpdate(t *testing.T) {
	repo := NewListingRepository(newTestDB(t))
	ctx := context.Background()

	l := newListing("https://example.com/sector", time.Now())
	l.Sector = ""
	id, err := repo.InsertListing(ctx, l)
	require.NoError(t, err)

	inputs, err := repo.GetSectorInputs(ctx)
	require.NoError(t, err)
	require.Len(t, inputs, 1)
	assert.Equal(t, "Laureles, Medellín", inputs[0].RawLocation)
	assert.Empty(t, inputs[0].Sector)

	require.NoError(t, repo.UpdateListingSector(ctx, id, "Laureles"))
	got, err := repo.GetListing(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Laureles", got.Sector)
}
