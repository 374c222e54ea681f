package appointment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	redisclient "github.com/amelfeddag/SanoX-public/internal/redis"
)

type Service struct {
	repo     Repository
	locker   redisclient.Locker
	notifier Notifier
	log      *zap.Logger
	now      func() time.Time
}

type Option func(*Service)

// WithClock overrides the clock used for the "today" boundary.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(repo Repository, locker redisclient.Locker, notifier Notifier, log *zap.Logger, opts ...Option) *Service {
	s := &Service{
		repo:     repo,
		locker:   locker,
		notifier: notifier,
		log:      log,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BookRequest carries a patient's booking. DurationMinutes and UrgencyLevel
// must already have their defaults applied.
type BookRequest struct {
	PatientID       uuid.UUID
	DoctorID        uuid.UUID
	Date            time.Time
	Time            TimeOfDay
	DurationMinutes int
	UrgencyLevel    int
	Notes           string
	ConversationID  *uuid.UUID
}

func validateDuration(minutes int) error {
	if minutes <= 0 || minutes > MaxDurationMinutes {
		return validationf("duration must be between 1 and %d minutes", MaxDurationMinutes)
	}
	return nil
}

func (r BookRequest) validate() error {
	if r.PatientID == uuid.Nil {
		return validationf("patient is required")
	}
	if r.DoctorID == uuid.Nil {
		return validationf("doctor is required")
	}
	if r.Date.IsZero() {
		return validationf("appointment date is required")
	}
	if !r.Time.Valid() {
		return validationf("appointment time is out of range")
	}
	if err := validateDuration(r.DurationMinutes); err != nil {
		return err
	}
	if int(r.Time.Add(r.DurationMinutes)) > minutesPerDay {
		return validationf("appointment must end before midnight")
	}
	if r.UrgencyLevel < MinUrgency || r.UrgencyLevel > MaxUrgency {
		return validationf("urgency level must be between %d and %d", MinUrgency, MaxUrgency)
	}
	return nil
}

// activeDoctor loads a doctor that can still receive bookings.
func (s *Service) activeDoctor(ctx context.Context, doctorID uuid.UUID) (*Doctor, error) {
	doctor, err := s.repo.GetDoctorByID(ctx, doctorID)
	if err != nil {
		if errors.Is(err, ErrDoctorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load doctor: %w", err)
	}
	if !doctor.Active {
		return nil, ErrDoctorNotFound
	}
	return doctor, nil
}

// GetAvailableSlots lists the bookable slots of a doctor on date. A date
// before today is an error; a day without availability is an empty list.
func (s *Service) GetAvailableSlots(ctx context.Context, doctorID uuid.UUID, date time.Time, durationMinutes int) ([]Slot, error) {
	if doctorID == uuid.Nil {
		return nil, validationf("doctor is required")
	}
	if date.IsZero() {
		return nil, validationf("date is required (format: YYYY-MM-DD)")
	}
	if err := validateDuration(durationMinutes); err != nil {
		return nil, err
	}
	if isPast(date, s.now()) {
		return nil, ErrPastDate
	}

	if _, err := s.activeDoctor(ctx, doctorID); err != nil {
		return nil, err
	}

	windows, err := s.repo.ListActiveWindowsForDay(ctx, doctorID, date.Weekday())
	if err != nil {
		return nil, fmt.Errorf("load availability: %w", err)
	}
	if len(windows) == 0 {
		return []Slot{}, nil
	}

	active, err := s.repo.ListActiveAppointments(ctx, doctorID, date)
	if err != nil {
		return nil, fmt.Errorf("load appointments: %w", err)
	}

	return GenerateSlots(windows, active, durationMinutes), nil
}

// Book creates a pending appointment. The conflict check and the insert run
// under the doctor's lock, and the insert itself is guarded by the store, so
// two concurrent requests for overlapping times cannot both succeed.
func (s *Service) Book(ctx context.Context, req BookRequest) (*Appointment, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	if isPast(req.Date, s.now()) {
		return nil, ErrPastDate
	}

	patient, err := s.repo.GetPatientByID(ctx, req.PatientID)
	if err != nil {
		if errors.Is(err, ErrPatientNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load patient: %w", err)
	}

	doctor, err := s.activeDoctor(ctx, req.DoctorID)
	if err != nil {
		return nil, err
	}

	windows, err := s.repo.ListActiveWindowsForDay(ctx, doctor.ID, req.Date.Weekday())
	if err != nil {
		return nil, fmt.Errorf("load availability: %w", err)
	}
	if !fitsAnyWindow(windows, req.Time, req.DurationMinutes) {
		return nil, fmt.Errorf("%w: %s is outside the doctor's availability", ErrSlotUnavailable, req.Time)
	}

	var created *Appointment

	err = s.locker.WithDoctorLock(ctx, doctor.ID, func(lockCtx context.Context) error {
		active, err := s.repo.ListActiveAppointments(lockCtx, doctor.ID, req.Date)
		if err != nil {
			return fmt.Errorf("check conflicting appointments: %w", err)
		}
		if IsBlocked(req.Time, req.DurationMinutes, active) {
			return ErrSlotUnavailable
		}

		appt := &Appointment{
			ID:              uuid.New(),
			PatientID:       patient.ID,
			DoctorID:        doctor.ID,
			ConversationID:  req.ConversationID,
			Date:            DateOf(req.Date),
			Time:            req.Time,
			DurationMinutes: req.DurationMinutes,
			Status:          StatusPending,
			UrgencyLevel:    req.UrgencyLevel,
			Notes:           optionalString(req.Notes),
		}

		created, err = s.repo.InsertAppointment(lockCtx, appt)
		return err
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, fmt.Errorf("%w: another booking for this doctor is in progress", ErrSlotUnavailable)
		}
		return nil, err
	}

	s.log.Info("appointment booked",
		zap.String("appointment_id", created.ID.String()),
		zap.String("doctor_id", doctor.ID.String()),
		zap.String("patient_id", patient.ID.String()),
		zap.String("date", FormatDate(created.Date)),
		zap.String("time", created.Time.String()),
	)

	s.notify(ctx, NotificationEvent{
		UserID:               doctor.UserID,
		Title:                "New appointment request",
		Message:              fmt.Sprintf("You received a new appointment request for %s at %s", FormatDate(created.Date), created.Time),
		Type:                 NotificationRequest,
		RelatedAppointmentID: &created.ID,
	})
	s.notify(ctx, NotificationEvent{
		UserID:               patient.UserID,
		Title:                "Appointment request sent",
		Message:              fmt.Sprintf("Your appointment request with %s has been sent and is awaiting confirmation.", doctor.DisplayName()),
		Type:                 NotificationRequest,
		RelatedAppointmentID: &created.ID,
	})

	return created, nil
}

func fitsAnyWindow(windows []Window, start TimeOfDay, durationMinutes int) bool {
	for _, w := range windows {
		if w.Active && w.Contains(start, durationMinutes) {
			return true
		}
	}
	return false
}

// Confirm moves a pending appointment to confirmed.
func (s *Service) Confirm(ctx context.Context, doctorID, appointmentID uuid.UUID, notes string) (*Appointment, error) {
	var n *string
	if notes = strings.TrimSpace(notes); notes != "" {
		n = optionalString("Doctor notes: " + notes)
	}

	updated, err := s.transition(ctx, TransitionConfirm, doctorID, appointmentID, n)
	if err != nil {
		return nil, err
	}

	s.notifyPatient(ctx, updated, NotificationEvent{
		Title:   "Appointment confirmed",
		Message: fmt.Sprintf("Your appointment on %s at %s has been confirmed by your doctor.", FormatDate(updated.Date), updated.Time),
		Type:    NotificationConfirmed,
	})
	return updated, nil
}

// Reject cancels a pending or confirmed appointment on the doctor's side.
func (s *Service) Reject(ctx context.Context, doctorID, appointmentID uuid.UUID, reason string) (*Appointment, error) {
	reason = strings.TrimSpace(reason)
	notes := "Cancelled by doctor"
	if reason != "" {
		notes += ": " + reason
	}

	updated, err := s.transition(ctx, TransitionReject, doctorID, appointmentID, &notes)
	if err != nil {
		return nil, err
	}

	msg := fmt.Sprintf("Your appointment on %s at %s has been cancelled by your doctor", FormatDate(updated.Date), updated.Time)
	if reason != "" {
		msg += ". Reason: " + reason
	}
	s.notifyPatient(ctx, updated, NotificationEvent{
		Title:   "Appointment cancelled",
		Message: msg,
		Type:    NotificationCancelled,
	})
	return updated, nil
}

// Cancel cancels a pending or confirmed appointment on the patient's side.
func (s *Service) Cancel(ctx context.Context, patientID, appointmentID uuid.UUID, reason string) (*Appointment, error) {
	reason = strings.TrimSpace(reason)
	notes := "Cancelled by patient"
	if reason != "" {
		notes += ": " + reason
	}

	updated, err := s.transition(ctx, TransitionPatientCancel, patientID, appointmentID, &notes)
	if err != nil {
		return nil, err
	}

	msg := fmt.Sprintf("The patient cancelled the appointment on %s at %s", FormatDate(updated.Date), updated.Time)
	if reason != "" {
		msg += ". Reason: " + reason
	}
	s.notifyDoctor(ctx, updated, NotificationEvent{
		Title:   "Appointment cancelled",
		Message: msg,
		Type:    NotificationCancelled,
	})
	return updated, nil
}

// Complete closes a confirmed consultation.
func (s *Service) Complete(ctx context.Context, doctorID, appointmentID uuid.UUID, notes, prescriptions string) (*Appointment, error) {
	var parts []string
	if notes = strings.TrimSpace(notes); notes != "" {
		parts = append(parts, "Consultation notes: "+notes)
	}
	if prescriptions = strings.TrimSpace(prescriptions); prescriptions != "" {
		parts = append(parts, "Prescriptions: "+prescriptions)
	}
	summary := "Consultation completed"
	if len(parts) > 0 {
		summary = strings.Join(parts, "; ")
	}

	updated, err := s.transition(ctx, TransitionComplete, doctorID, appointmentID, &summary)
	if err != nil {
		return nil, err
	}

	s.notifyPatient(ctx, updated, NotificationEvent{
		Title:   "Consultation completed",
		Message: fmt.Sprintf("Your consultation on %s at %s is completed. Check your medical documents for details.", FormatDate(updated.Date), updated.Time),
		Type:    NotificationGeneral,
	})
	return updated, nil
}

// transition loads the appointment, checks the actor and the state machine,
// then applies the status change only if nobody changed it in between.
func (s *Service) transition(ctx context.Context, t Transition, actorID, appointmentID uuid.UUID, notes *string) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, appointmentID)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load appointment: %w", err)
	}

	if err := authorize(t, appt, actorID); err != nil {
		return nil, err
	}

	to, err := Next(t, appt.Status)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot %s an appointment that is %s", ErrInvalidStateTransition, t, appt.Status)
	}

	updated, err := s.repo.UpdateAppointmentStatus(ctx, appt.ID, appt.Status, to, notes)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, fmt.Errorf("%w: appointment changed while it was being updated", ErrInvalidStateTransition)
		}
		return nil, fmt.Errorf("%s appointment: %w", t, err)
	}

	s.log.Info("appointment status changed",
		zap.String("appointment_id", updated.ID.String()),
		zap.String("transition", string(t)),
		zap.String("from", string(appt.Status)),
		zap.String("to", string(updated.Status)),
	)
	return updated, nil
}

func (s *Service) notifyPatient(ctx context.Context, appt *Appointment, ev NotificationEvent) {
	patient, err := s.repo.GetPatientByID(ctx, appt.PatientID)
	if err != nil {
		s.log.Warn("skip notification: patient lookup failed",
			zap.String("appointment_id", appt.ID.String()),
			zap.Error(err),
		)
		return
	}
	ev.UserID = patient.UserID
	ev.RelatedAppointmentID = &appt.ID
	s.notify(ctx, ev)
}

func (s *Service) notifyDoctor(ctx context.Context, appt *Appointment, ev NotificationEvent) {
	doctor, err := s.repo.GetDoctorByID(ctx, appt.DoctorID)
	if err != nil {
		s.log.Warn("skip notification: doctor lookup failed",
			zap.String("appointment_id", appt.ID.String()),
			zap.Error(err),
		)
		return
	}
	ev.UserID = doctor.UserID
	ev.RelatedAppointmentID = &appt.ID
	s.notify(ctx, ev)
}

func (s *Service) notify(ctx context.Context, ev NotificationEvent) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, ev); err != nil {
		s.log.Warn("failed to send notification",
			zap.String("user_id", ev.UserID.String()),
			zap.String("type", string(ev.Type)),
			zap.Error(err),
		)
	}
}

func optionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
