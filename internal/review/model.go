package review

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/amelfeddag/SanoX-public/internal/appointment"
)

var (
	ErrReviewNotFound  = fmt.Errorf("review %w", appointment.ErrNotFound)
	ErrAlreadyReviewed = errors.New("appointment has already been reviewed")
	ErrNotReviewable   = errors.New("only completed appointments can be reviewed")
)

const (
	MinRating = 1
	MaxRating = 5

	maxCommentLength  = 2000
	maxResponseLength = 1000

	anonymousReviewer = "Anonymous patient"
)

// Review is a patient's rating of one completed appointment.
type Review struct {
	ID             uuid.UUID
	PatientID      uuid.UUID
	DoctorID       uuid.UUID
	AppointmentID  uuid.UUID
	Rating         int
	Comment        *string
	Anonymous      bool
	DoctorResponse *string
	RespondedAt    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time

	// Joined for listings.
	PatientName     string
	DoctorName      string
	AppointmentDate time.Time
}

// ReviewerName hides the patient of an anonymous review.
func (r Review) ReviewerName() string {
	if r.Anonymous || r.PatientName == "" {
		return anonymousReviewer
	}
	return r.PatientName
}

// Summary aggregates every review of a doctor.
type Summary struct {
	Total        int
	Average      float64
	Distribution map[int]int
}

// summarize builds a Summary from per-rating counts. The average is rounded
// to one decimal and every rating from MinRating to MaxRating is present.
func summarize(counts map[int]int) Summary {
	s := Summary{Distribution: make(map[int]int, MaxRating)}
	sum := 0
	for rating := MinRating; rating <= MaxRating; rating++ {
		n := counts[rating]
		s.Distribution[rating] = n
		s.Total += n
		sum += rating * n
	}
	if s.Total > 0 {
		s.Average = math.Round(float64(sum)/float64(s.Total)*10) / 10
	}
	return s
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", appointment.ErrValidation, fmt.Sprintf(format, args...))
}
