package model

import (
	"errors"
	"time"
)

// ErrInvalidRating is returned for ratings outside 1..5.
var ErrInvalidRating = errors.New("rating must be between 1 and 5")

// Review is a customer's rating of a listing. CreatedAt is set on insert
// and never updated; reviews are listed newest first.
type Review struct {
	ID           uint64    // reviews.id
	ListingID    uint64    // reviews.listing_id
	CustomerName string    // reviews.customer_name
	Rating       uint8     // reviews.rating (1..5)
	Comment      string    // reviews.comment
	Visible      bool      // reviews.visible
	CreatedAt    time.Time // reviews.created_at
}

// Validate checks the rating range.
func (r Review) Validate() error {
	if r.Rating < 1 || r.Rating > 5 {
		return ErrInvalidRating
	}
	return nil
}
