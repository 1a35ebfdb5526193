package database

import (
	"encoding/json"
	"time"
)

type Status string

const (
	StatusNew      Status = "NEW"
	StatusSeen     Status = "SEEN"
	StatusFavorite Status = "FAVORITE"
	StatusArchived Status = "ARCHIVED"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusNew, StatusSeen, StatusFavorite, StatusArchived:
		return true
	}
	return false
}

// Listing is a catalog row. CanonicalLink never changes after insert.
type Listing struct {
	ID             int64     `json:"id"`
	CanonicalLink  string    `json:"canonical_link"`
	Title          string    `json:"title"`
	Price          *float64  `json:"price"`
	RawLocation    string    `json:"raw_location"`
	Description    string    `json:"description"`
	Area           *float64  `json:"area"`
	Bedrooms       *int      `json:"bedroom_count"`
	Bathrooms      *int      `json:"bathroom_count"`
	Source         string    `json:"source_portal"`
	ExternalID     string    `json:"external_id"`
	ImageURL       string    `json:"image_url"`
	Sector         string    `json:"sector"`
	Status         Status    `json:"status"`
	Active         bool      `json:"active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	LastObservedAt time.Time `json:"last_observed_at"`
}

type ListingFilter struct {
	Source   string
	Status   Status
	Sector   string
	Active   *bool
	MinPrice *float64
	MaxPrice *float64
	Limit    int
	Offset   int
}

// SectorInput carries the fields needed to recompute a listing's sector.
type SectorInput struct {
	ID          int64
	Title       string
	RawLocation string
	Sector      string
}

type ListingStats struct {
	Total    int `json:"total"`
	Active   int `json:"active"`
	New      int `json:"new"`
	Seen     int `json:"seen"`
	Favorite int `json:"favorite"`
	Archived int `json:"archived"`
}

type SavedSearch struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	Criteria  json.RawMessage `json:"criteria"`
	CreatedAt time.Time       `json:"created_at"`
}

type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// CrawlRun records one pagination pass over a portal partition.
type CrawlRun struct {
	ID           string     `json:"id"`
	Portal       string     `json:"portal"`
	PropertyType string     `json:"property_type"`
	Status       RunStatus  `json:"status"`
	StopReason   string     `json:"stop_reason"`
	Pages        int        `json:"pages"`
	Created      int        `json:"created"`
	Updated      int        `json:"updated"`
	Unchanged    int        `json:"unchanged"`
	Rejected     int        `json:"rejected"`
	Skipped      int        `json:"skipped"`
	Error        string     `json:"error,omitempty"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at"`
}
