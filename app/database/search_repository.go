package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

var _ SavedSearchRepository = (*SearchRepository)(nil)

// SearchRepository handles database operations for saved searches
type SearchRepository struct {
	db  *DB
	now func() time.Time
}

// NewSearchRepository creates a new saved search repository
func NewSearchRepository(db *DB) *SearchRepository {
	return &SearchRepository{db: db, now: time.Now}
}

// CreateSavedSearch stores a named set of listing filter criteria
func (r *SearchRepository) CreateSavedSearch(ctx context.Context, name string, criteria json.RawMessage) (*SavedSearch, error) {
	if len(criteria) == 0 {
		criteria = json.RawMessage("{}")
	}
	if !json.Valid(criteria) {
		return nil, fmt.Errorf("criteria is not valid JSON")
	}

	createdAt := r.now().UTC()
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO saved_searches (name, criteria, created_at) VALUES (?, ?, ?)
	`, name, string(criteria), toUnix(createdAt))
	if err != nil {
		return nil, fmt.Errorf("failed to create saved search: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read saved search id: %w", err)
	}

	return &SavedSearch{
		ID:        id,
		Name:      name,
		Criteria:  criteria,
		CreatedAt: fromUnix(toUnix(createdAt)),
	}, nil
}

// ListSavedSearches returns all saved searches, oldest first
func (r *SearchRepository) ListSavedSearches(ctx context.Context) ([]SavedSearch, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, criteria, created_at FROM saved_searches ORDER BY created_at, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list saved searches: %w", err)
	}
	defer rows.Close()

	var searches []SavedSearch
	for rows.Next() {
		var s SavedSearch
		var criteria string
		var createdAt int64
		if err := rows.Scan(&s.ID, &s.Name, &criteria, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan saved search row: %w", err)
		}
		s.Criteria = json.RawMessage(criteria)
		s.CreatedAt = fromUnix(createdAt)
		searches = append(searches, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating saved search rows: %w", err)
	}

	return searches, nil
}

// DeleteSavedSearch removes a saved search and reports whether it existed
func (r *SearchRepository) DeleteSavedSearch(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM saved_searches WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete saved search: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to count deleted saved searches: %w", err)
	}
	return n > 0, nil
}
