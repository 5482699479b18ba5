package store

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a review id does not exist.
var ErrNotFound = errors.New("review not found")

// Cover describes an uploaded cover image stored out-of-band.
type Cover struct {
	Key         string `json:"key"`
	ContentType string `json:"contentType"`
	SizeBytes   int64  `json:"sizeBytes"`
}

// Review is a user-submitted book review. Rows are immutable once created;
// ids are assigned monotonically and never reused after deletion.
type Review struct {
	ID        int64
	Author    string
	Title     string
	Content   string
	Score     int
	Cover     *Cover
	CreatedAt time.Time
}

// Store defines persistence operations for reviews.
type Store interface {
	// CreateReview persists a fully validated review and assigns the next id.
	CreateReview(r Review) (Review, error)
	// ListReviews returns all reviews, newest first.
	ListReviews() ([]Review, error)
	// GetReview fetches a review by id.
	GetReview(id int64) (Review, bool, error)
	// DeleteReview removes a review permanently.
	DeleteReview(id int64) error
	// CountReviews returns the number of stored reviews.
	CountReviews() (int, error)
}
