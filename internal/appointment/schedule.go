package appointment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// WindowInput is one authored weekly window. Active defaults to true.
type WindowInput struct {
	DayOfWeek int
	Start     TimeOfDay
	End       TimeOfDay
	Active    *bool
}

func (in WindowInput) toWindow(doctorID uuid.UUID) (Window, error) {
	if in.DayOfWeek < 0 || in.DayOfWeek > 6 {
		return Window{}, validationf("day_of_week must be between 0 (Sunday) and 6 (Saturday)")
	}
	if !in.Start.Valid() || !in.End.Valid() {
		return Window{}, validationf("window times must be within the day")
	}
	if in.Start >= in.End {
		return Window{}, validationf("window start %s must be before end %s", in.Start, in.End)
	}

	active := true
	if in.Active != nil {
		active = *in.Active
	}

	return Window{
		ID:        uuid.New(),
		DoctorID:  doctorID,
		DayOfWeek: time.Weekday(in.DayOfWeek),
		Start:     in.Start,
		End:       in.End,
		Active:    active,
	}, nil
}

func (s *Service) GetDoctorAvailability(ctx context.Context, doctorID uuid.UUID) ([]Window, error) {
	if _, err := s.repo.GetDoctorByID(ctx, doctorID); err != nil {
		return nil, err
	}

	windows, err := s.repo.ListWindows(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("list availability: %w", err)
	}
	if windows == nil {
		windows = []Window{}
	}
	return windows, nil
}

// UpdateDoctorAvailability replaces every window of the doctor. Existing
// appointments are not touched.
func (s *Service) UpdateDoctorAvailability(ctx context.Context, doctorID uuid.UUID, inputs []WindowInput) ([]Window, error) {
	if _, err := s.repo.GetDoctorByID(ctx, doctorID); err != nil {
		return nil, err
	}

	windows := make([]Window, 0, len(inputs))
	for i, in := range inputs {
		w, err := in.toWindow(doctorID)
		if err != nil {
			return nil, fmt.Errorf("window %d: %w", i, err)
		}
		windows = append(windows, w)
	}

	if err := s.repo.ReplaceWindows(ctx, doctorID, windows); err != nil {
		return nil, fmt.Errorf("replace availability: %w", err)
	}

	s.log.Info("doctor availability replaced",
		zap.String("doctor_id", doctorID.String()),
		zap.Int("windows", len(windows)),
	)
	return windows, nil
}

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// ListQuery holds the optional filters of an appointment listing.
type ListQuery struct {
	Status *AppointmentStatus
	Date   *time.Time
	Page   int
	Limit  int
}

type AppointmentPage struct {
	Items []AppointmentDetail
	Page  int
	Limit int
	Total int
}

func (q ListQuery) normalize() (ListQuery, error) {
	if q.Status != nil && !q.Status.Valid() {
		return q, validationf("unknown status %q", *q.Status)
	}
	q.Page, q.Limit = normalizePage(q.Page, q.Limit)
	return q, nil
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

// ListPatientAppointments returns the patient's appointments, newest first.
func (s *Service) ListPatientAppointments(ctx context.Context, patientID uuid.UUID, q ListQuery) (*AppointmentPage, error) {
	q, err := q.normalize()
	if err != nil {
		return nil, err
	}
	return s.list(ctx, AppointmentFilter{
		PatientID:   &patientID,
		Status:      q.Status,
		Date:        q.Date,
		NewestFirst: true,
	}, q)
}

// ListDoctorAppointments returns the doctor's agenda, earliest first.
func (s *Service) ListDoctorAppointments(ctx context.Context, doctorID uuid.UUID, q ListQuery) (*AppointmentPage, error) {
	q, err := q.normalize()
	if err != nil {
		return nil, err
	}
	return s.list(ctx, AppointmentFilter{
		DoctorID: &doctorID,
		Status:   q.Status,
		Date:     q.Date,
	}, q)
}

func (s *Service) list(ctx context.Context, f AppointmentFilter, q ListQuery) (*AppointmentPage, error) {
	f.Limit = q.Limit
	f.Offset = (q.Page - 1) * q.Limit

	items, total, err := s.repo.ListAppointments(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	if items == nil {
		items = []AppointmentDetail{}
	}

	return &AppointmentPage{Items: items, Page: q.Page, Limit: q.Limit, Total: total}, nil
}

// GetAppointment returns an appointment to either of its two parties.
func (s *Service) GetAppointment(ctx context.Context, actorID, appointmentID uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if appt.PatientID != actorID && appt.DoctorID != actorID {
		return nil, ErrUnauthorized
	}
	return appt, nil
}

// UpcomingConfirmed lists confirmed appointments starting in [from, to).
func (s *Service) UpcomingConfirmed(ctx context.Context, from, to time.Time) ([]AppointmentDetail, error) {
	items, err := s.repo.ListConfirmedStartingBetween(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("list upcoming appointments: %w", err)
	}
	return items, nil
}

// Now exposes the service clock to collaborators that schedule around it.
func (s *Service) Now() time.Time {
	return s.now()
}
