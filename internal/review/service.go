package review

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/amelfeddag/SanoX-public/internal/appointment"
)

const (
	defaultPageLimit = 10
	maxPageLimit     = 100
)

// Appointments is the read side of the booking store a review is checked against.
type Appointments interface {
	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error)
	GetDoctorByID(ctx context.Context, id uuid.UUID) (*appointment.Doctor, error)
	GetPatientByID(ctx context.Context, id uuid.UUID) (*appointment.Patient, error)
}

type Service struct {
	repo     Repository
	appts    Appointments
	notifier appointment.Notifier
	log      *zap.Logger
}

func NewService(repo Repository, appts Appointments, notifier appointment.Notifier, log *zap.Logger) *Service {
	return &Service{repo: repo, appts: appts, notifier: notifier, log: log}
}

type CreateRequest struct {
	PatientID     uuid.UUID
	AppointmentID uuid.UUID
	Rating        int
	Comment       string
	Anonymous     bool
}

// UpdateRequest changes the fields that are set.
type UpdateRequest struct {
	Rating    *int
	Comment   *string
	Anonymous *bool
}

// Query pages through reviews. Rating filters to one score.
type Query struct {
	Rating *int
	SortBy SortField
	Order  string
	Page   int
	Limit  int
}

type Page struct {
	Items []Review
	Page  int
	Limit int
	Total int
}

// DoctorReviews is one page of a doctor's reviews with the summary over all of them.
type DoctorReviews struct {
	Page
	DoctorName string
	Summary    Summary
}

func validateRating(rating int) error {
	if rating < MinRating || rating > MaxRating {
		return invalid("rating must be between %d and %d", MinRating, MaxRating)
	}
	return nil
}

// cleanComment trims the comment; a blank comment is stored as NULL.
func cleanComment(comment string) (*string, error) {
	comment = strings.TrimSpace(comment)
	if comment == "" {
		return nil, nil
	}
	if utf8.RuneCountInString(comment) > maxCommentLength {
		return nil, invalid("comment must be at most %d characters", maxCommentLength)
	}
	return &comment, nil
}

// Create records the patient's review of one of their completed appointments.
// Each appointment can be reviewed once.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Review, error) {
	if err := validateRating(req.Rating); err != nil {
		return nil, err
	}
	comment, err := cleanComment(req.Comment)
	if err != nil {
		return nil, err
	}

	appt, err := s.appts.GetAppointmentByID(ctx, req.AppointmentID)
	if err != nil {
		return nil, err
	}
	if appt.PatientID != req.PatientID {
		return nil, appointment.ErrAppointmentNotFound
	}
	if appt.Status != appointment.StatusCompleted {
		return nil, ErrNotReviewable
	}

	created, err := s.repo.Insert(ctx, &Review{
		ID:            uuid.New(),
		PatientID:     req.PatientID,
		DoctorID:      appt.DoctorID,
		AppointmentID: appt.ID,
		Rating:        req.Rating,
		Comment:       comment,
		Anonymous:     req.Anonymous,
	})
	if err != nil {
		if errors.Is(err, ErrAlreadyReviewed) {
			return nil, err
		}
		return nil, fmt.Errorf("create review: %w", err)
	}

	s.log.Info("review created",
		zap.String("review_id", created.ID.String()),
		zap.String("doctor_id", created.DoctorID.String()),
		zap.Int("rating", created.Rating),
	)

	if doctor, err := s.appts.GetDoctorByID(ctx, created.DoctorID); err != nil {
		s.log.Warn("review: doctor lookup for notification failed", zap.Error(err))
	} else {
		s.notify(ctx, appointment.NotificationEvent{
			UserID:               doctor.UserID,
			Title:                "New review",
			Message:              fmt.Sprintf("A patient rated the consultation of %s %d/%d.", appointment.FormatDate(appt.Date), created.Rating, MaxRating),
			Type:                 appointment.NotificationGeneral,
			RelatedAppointmentID: &created.AppointmentID,
		})
	}
	return created, nil
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	return page, limit
}

func (q Query) filter() (ListFilter, int, int, error) {
	var f ListFilter
	if q.Rating != nil {
		if err := validateRating(*q.Rating); err != nil {
			return f, 0, 0, err
		}
		f.Rating = q.Rating
	}

	switch q.SortBy {
	case "", SortByCreatedAt:
		f.SortBy = SortByCreatedAt
	case SortByRating:
		f.SortBy = SortByRating
	default:
		return f, 0, 0, invalid("sort_by must be %s or %s", SortByCreatedAt, SortByRating)
	}

	switch strings.ToLower(q.Order) {
	case "", "desc":
	case "asc":
		f.Ascending = true
	default:
		return f, 0, 0, invalid("sort_order must be asc or desc")
	}

	page, limit := normalizePage(q.Page, q.Limit)
	f.Limit = limit
	f.Offset = (page - 1) * limit
	return f, page, limit, nil
}

func (s *Service) list(ctx context.Context, f ListFilter, page, limit int) (*Page, error) {
	items, total, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	if items == nil {
		items = []Review{}
	}
	return &Page{Items: items, Page: page, Limit: limit, Total: total}, nil
}

// ForDoctor returns a page of the doctor's reviews, newest first by default.
func (s *Service) ForDoctor(ctx context.Context, doctorID uuid.UUID, q Query) (*DoctorReviews, error) {
	f, page, limit, err := q.filter()
	if err != nil {
		return nil, err
	}

	doctor, err := s.appts.GetDoctorByID(ctx, doctorID)
	if err != nil {
		return nil, err
	}

	f.DoctorID = &doctorID
	p, err := s.list(ctx, f, page, limit)
	if err != nil {
		return nil, err
	}

	summary, err := s.Summary(ctx, doctorID)
	if err != nil {
		return nil, err
	}

	return &DoctorReviews{Page: *p, DoctorName: doctor.DisplayName(), Summary: summary}, nil
}

// ByPatient returns the patient's own reviews, newest first.
func (s *Service) ByPatient(ctx context.Context, patientID uuid.UUID, page, limit int) (*Page, error) {
	page, limit = normalizePage(page, limit)
	return s.list(ctx, ListFilter{
		PatientID: &patientID,
		SortBy:    SortByCreatedAt,
		Limit:     limit,
		Offset:    (page - 1) * limit,
	}, page, limit)
}

// Summary aggregates every review of the doctor.
func (s *Service) Summary(ctx context.Context, doctorID uuid.UUID) (Summary, error) {
	counts, err := s.repo.RatingCounts(ctx, doctorID)
	if err != nil {
		return Summary{}, fmt.Errorf("review summary: %w", err)
	}
	return summarize(counts), nil
}

// owned loads a review and hides it from anyone but its author.
func (s *Service) owned(ctx context.Context, patientID, reviewID uuid.UUID) (*Review, error) {
	r, err := s.repo.GetByID(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	if r.PatientID != patientID {
		return nil, ErrReviewNotFound
	}
	return r, nil
}

func (s *Service) Update(ctx context.Context, patientID, reviewID uuid.UUID, req UpdateRequest) (*Review, error) {
	r, err := s.owned(ctx, patientID, reviewID)
	if err != nil {
		return nil, err
	}

	if req.Rating != nil {
		if err := validateRating(*req.Rating); err != nil {
			return nil, err
		}
		r.Rating = *req.Rating
	}
	if req.Comment != nil {
		if r.Comment, err = cleanComment(*req.Comment); err != nil {
			return nil, err
		}
	}
	if req.Anonymous != nil {
		r.Anonymous = *req.Anonymous
	}

	return s.repo.Update(ctx, r)
}

func (s *Service) Delete(ctx context.Context, patientID, reviewID uuid.UUID) error {
	if _, err := s.owned(ctx, patientID, reviewID); err != nil {
		return err
	}
	return s.repo.Delete(ctx, reviewID)
}

// Respond stores the doctor's public answer to a review of them, replacing
// any earlier answer, and tells the patient.
func (s *Service) Respond(ctx context.Context, doctorID, reviewID uuid.UUID, response string) (*Review, error) {
	response = strings.TrimSpace(response)
	if response == "" {
		return nil, invalid("response is required")
	}
	if utf8.RuneCountInString(response) > maxResponseLength {
		return nil, invalid("response must be at most %d characters", maxResponseLength)
	}

	r, err := s.repo.GetByID(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	if r.DoctorID != doctorID {
		return nil, ErrReviewNotFound
	}

	updated, err := s.repo.SetResponse(ctx, reviewID, response)
	if err != nil {
		return nil, err
	}

	if patient, err := s.appts.GetPatientByID(ctx, updated.PatientID); err != nil {
		s.log.Warn("review: patient lookup for notification failed", zap.Error(err))
	} else {
		s.notify(ctx, appointment.NotificationEvent{
			UserID:               patient.UserID,
			Title:                "Your review got a response",
			Message:              updated.DoctorName + " responded to your review.",
			Type:                 appointment.NotificationGeneral,
			RelatedAppointmentID: &updated.AppointmentID,
		})
	}
	return updated, nil
}

// notify never fails the review operation.
func (s *Service) notify(ctx context.Context, ev appointment.NotificationEvent) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, ev); err != nil {
		s.log.Warn("review: notification failed",
			zap.String("user_id", ev.UserID.String()),
			zap.Error(err),
		)
	}
}
