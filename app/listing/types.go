package listing

import (
	"errors"
	"strings"
)

// ErrInvalidRecord marks a raw record that does not satisfy the adapter
// contract.
var ErrInvalidRecord = errors.New("invalid raw record")

// RawRecord is the shape every portal adapter produces. Nil numeric fields mean
// the source did not provide a value.
type RawRecord struct {
	CanonicalLink string
	Title         string
	Price         *float64
	RawLocation   string
	Area          *float64
	Bedrooms      *int
	Bathrooms     *int
	ImageURL      string
	ExternalID    string
	Description   string
	Source        string
}

func (r RawRecord) Validate() error {
	if strings.TrimSpace(r.CanonicalLink) == "" {
		return errors.Join(ErrInvalidRecord, errors.New("canonical link is required"))
	}
	if r.Price != nil && *r.Price < 0 {
		return errors.Join(ErrInvalidRecord, errors.New("price must be non-negative"))
	}
	if r.Area != nil && *r.Area < 0 {
		return errors.Join(ErrInvalidRecord, errors.New("area must be non-negative"))
	}
	if r.Bedrooms != nil && *r.Bedrooms < 0 {
		return errors.Join(ErrInvalidRecord, errors.New("bedroom count must be non-negative"))
	}
	if r.Bathrooms != nil && *r.Bathrooms < 0 {
		return errors.Join(ErrInvalidRecord, errors.New("bathroom count must be non-negative"))
	}
	return nil
}

type Outcome string

const (
	OutcomeCreated   Outcome = "CREATED"
	OutcomeUpdated   Outcome = "UPDATED"
	OutcomeUnchanged Outcome = "UNCHANGED"
	OutcomeRejected  Outcome = "REJECTED"
)
