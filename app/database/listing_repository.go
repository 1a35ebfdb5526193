package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

var _ ListingRepository = (*ListingRepo)(nil)

// ListingRepo handles database operations for listings
type ListingRepo struct {
	db *DB
}

// NewListingRepository creates a new listing repository
func NewListingRepository(db *DB) *ListingRepo {
	return &ListingRepo{db: db}
}

const listingColumns = `
	id, canonical_link, title, price, raw_location, description,
	area, bedrooms, bathrooms, source, external_id, image_url, sector,
	status, active, created_at, updated_at, last_observed_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanListing(row rowScanner) (*Listing, error) {
	var l Listing
	var price, area sql.NullFloat64
	var bedrooms, bathrooms sql.NullInt64
	var createdAt, updatedAt, observedAt int64

	err := row.Scan(
		&l.ID, &l.CanonicalLink, &l.Title, &price, &l.RawLocation, &l.Description,
		&area, &bedrooms, &bathrooms, &l.Source, &l.ExternalID, &l.ImageURL, &l.Sector,
		&l.Status, &l.Active, &createdAt, &updatedAt, &observedAt,
	)
	if err != nil {
		return nil, err
	}

	l.Price = nullFloat(price)
	l.Area = nullFloat(area)
	l.Bedrooms = nullInt(bedrooms)
	l.Bathrooms = nullInt(bathrooms)
	l.CreatedAt = fromUnix(createdAt)
	l.UpdatedAt = fromUnix(updatedAt)
	l.LastObservedAt = fromUnix(observedAt)

	return &l, nil
}

// GetListing retrieves a listing by its database ID
func (r *ListingRepo) GetListing(ctx context.Context, id int64) (*Listing, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+listingColumns+` FROM listings WHERE id = ?`, id)
	l, err := scanListing(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get listing: %w", err)
	}
	return l, nil
}

// GetListingByLink retrieves a listing by its canonical link
func (r *ListingRepo) GetListingByLink(ctx context.Context, link string) (*Listing, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+listingColumns+` FROM listings WHERE canonical_link = ?`, link)
	l, err := scanListing(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get listing by link: %w", err)
	}
	return l, nil
}

// InsertListing stores a new listing. A collision on canonical_link returns
// ErrDuplicateLink.
func (r *ListingRepo) InsertListing(ctx context.Context, l *Listing) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO listings (
			canonical_link, title, price, raw_location, description,
			area, bedrooms, bathrooms, source, external_id, image_url, sector,
			status, active, created_at, updated_at, last_observed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, l.CanonicalLink, l.Title, l.Price, l.RawLocation, l.Description,
		l.Area, l.Bedrooms, l.Bathrooms, l.Source, l.ExternalID, l.ImageURL, l.Sector,
		l.Status, l.Active, toUnix(l.CreatedAt), toUnix(l.UpdatedAt), toUnix(l.LastObservedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("%w: %s", ErrDuplicateLink, l.CanonicalLink)
		}
		return 0, fmt.Errorf("failed to insert listing: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read listing id: %w", err)
	}
	return id, nil
}

// ObserveListing marks a listing as seen at observedAt and reactivates it.
// last_observed_at never moves backwards. A non-nil price replaces the stored
// one; status is left untouched.
func (r *ListingRepo) ObserveListing(ctx context.Context, id int64, observedAt time.Time, price *float64) error {
	observed := toUnix(observedAt)

	var err error
	if price != nil {
		_, err = r.db.ExecContext(ctx, `
			UPDATE listings
			SET last_observed_at = MAX(last_observed_at, ?),
			    active = 1,
			    price = ?,
			    updated_at = ?
			WHERE id = ?
		`, observed, *price, observed, id)
	} else {
		_, err = r.db.ExecContext(ctx, `
			UPDATE listings
			SET last_observed_at = MAX(last_observed_at, ?),
			    updated_at = CASE WHEN active = 0 THEN ? ELSE updated_at END,
			    active = 1
			WHERE id = ?
		`, observed, observed, id)
	}
	if err != nil {
		return fmt.Errorf("failed to observe listing: %w", err)
	}
	return nil
}

// ArchiveStale archives every listing last observed strictly before cutoff in
// a single statement. Favorites and already archived listings are left alone.
func (r *ListingRepo) ArchiveStale(ctx context.Context, cutoff, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE listings
		SET status = 'ARCHIVED', active = 0, updated_at = ?
		WHERE last_observed_at < ?
		  AND status NOT IN ('ARCHIVED', 'FAVORITE')
	`, toUnix(now), toUnix(cutoff))
	if err != nil {
		return 0, fmt.Errorf("failed to archive stale listings: %w", err)
	}

	count, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count archived listings: %w", err)
	}
	return count, nil
}

// ListListings returns listings matching filter, newest first
func (r *ListingRepo) ListListings(ctx context.Context, filter ListingFilter) ([]Listing, error) {
	where, args := listingWhere(filter)

	query := `SELECT ` + listingColumns + ` FROM listings` + where

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?"
	args = append(args, limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list listings: %w", err)
	}
	defer rows.Close()

	var listings []Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan listing row: %w", err)
		}
		listings = append(listings, *l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating listing rows: %w", err)
	}

	return listings, nil
}

// CountListings returns the number of listings matching filter, ignoring
// Limit and Offset.
func (r *ListingRepo) CountListings(ctx context.Context, filter ListingFilter) (int, error) {
	where, args := listingWhere(filter)

	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM listings`+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count listings: %w", err)
	}
	return count, nil
}

func listingWhere(filter ListingFilter) (string, []any) {
	var where []string
	var args []any

	if filter.Source != "" {
		where = append(where, "source = ?")
		args = append(args, filter.Source)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.Sector != "" {
		where = append(where, "sector = ?")
		args = append(args, filter.Sector)
	}
	if filter.Active != nil {
		where = append(where, "active = ?")
		args = append(args, *filter.Active)
	}
	if filter.MinPrice != nil {
		where = append(where, "price >= ?")
		args = append(args, *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		where = append(where, "price <= ?")
		args = append(args, *filter.MaxPrice)
	}

	if len(where) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(where, " AND "), args
}

// SetListingStatus applies a user-chosen status. Any status other than
// ARCHIVED reactivates the listing.
func (r *ListingRepo) SetListingStatus(ctx context.Context, id int64, status Status, now time.Time) error {
	if !status.IsValid() {
		return fmt.Errorf("invalid status %q", status)
	}

	_, err := r.db.ExecContext(ctx, `
		UPDATE listings
		SET status = ?,
		    active = CASE WHEN ? = 'ARCHIVED' THEN active ELSE 1 END,
		    updated_at = ?
		WHERE id = ?
	`, status, status, toUnix(now), id)
	if err != nil {
		return fmt.Errorf("failed to set listing status: %w", err)
	}
	return nil
}

// GetListingStats returns counts by lifecycle state
func (r *ListingRepo) GetListingStats(ctx context.Context) (ListingStats, error) {
	var s ListingStats
	err := r.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN active = 1 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'NEW' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'SEEN' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'FAVORITE' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'ARCHIVED' THEN 1 ELSE 0 END), 0)
		FROM listings
	`).Scan(&s.Total, &s.Active, &s.New, &s.Seen, &s.Favorite, &s.Archived)
	if err != nil {
		return s, fmt.Errorf("failed to get listing stats: %w", err)
	}
	return s, nil
}

// GetSectorInputs returns the fields needed to recompute every listing's sector
func (r *ListingRepo) GetSectorInputs(ctx context.Context) ([]SectorInput, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, title, raw_location, sector FROM listings ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to get sector inputs: %w", err)
	}
	defer rows.Close()

	var inputs []SectorInput
	for rows.Next() {
		var in SectorInput
		if err := rows.Scan(&in.ID, &in.Title, &in.RawLocation, &in.Sector); err != nil {
			return nil, fmt.Errorf("failed to scan sector input: %w", err)
		}
		inputs = append(inputs, in)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sector inputs: %w", err)
	}

	return inputs, nil
}

// UpdateListingSector rewrites the cached sector column
func (r *ListingRepo) UpdateListingSector(ctx context.Context, id int64, sector string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE listings SET sector = ? WHERE id = ?`, sector, id)
	if err != nil {
		return fmt.Errorf("failed to update listing sector: %w", err)
	}
	return nil
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func nullInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}
