package review

import (
	"context"

	"github.com/google/uuid"
)

type SortField string

const (
	SortByCreatedAt SortField = "created_at"
	SortByRating    SortField = "rating"
)

// ListFilter narrows List. Nil fields do not filter.
type ListFilter struct {
	DoctorID  *uuid.UUID
	PatientID *uuid.UUID
	Rating    *int
	SortBy    SortField
	Ascending bool
	Limit     int
	Offset    int
}

type Repository interface {
	// Insert returns ErrAlreadyReviewed when the appointment already has a review.
	Insert(ctx context.Context, r *Review) (*Review, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Review, error)
	List(ctx context.Context, f ListFilter) ([]Review, int, error)
	// Update writes rating, comment and anonymity.
	Update(ctx context.Context, r *Review) (*Review, error)
	SetResponse(ctx context.Context, id uuid.UUID, response string) (*Review, error)
	Delete(ctx context.Context, id uuid.UUID) error
	RatingCounts(ctx context.Context, doctorID uuid.UUID) (map[int]int, error)
}
