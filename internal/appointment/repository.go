package appointment

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// AppointmentFilter narrows ListAppointments. Nil fields do not filter.
type AppointmentFilter struct {
	PatientID   *uuid.UUID
	DoctorID    *uuid.UUID
	Status      *AppointmentStatus
	Date        *time.Time
	NewestFirst bool
	Limit       int
	Offset      int
}

// Repository contains all DB interactions needed by the service.
type Repository interface {
	GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error)

	// Doctor directory
	ListDoctors(ctx context.Context, f DoctorFilter) ([]Doctor, int, error)
	ListSpecialties(ctx context.Context) ([]string, error)

	// Weekly availability
	ListWindows(ctx context.Context, doctorID uuid.UUID) ([]Window, error)
	ListActiveWindowsForDay(ctx context.Context, doctorID uuid.UUID, day time.Weekday) ([]Window, error)
	ReplaceWindows(ctx context.Context, doctorID uuid.UUID, windows []Window) error

	// For conflict checks
	ListActiveAppointments(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]Appointment, error)
	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)

	// InsertAppointment must reject, atomically, an active appointment that
	// overlaps another active one of the same doctor, returning ErrSlotUnavailable.
	InsertAppointment(ctx context.Context, a *Appointment) (*Appointment, error)
	// UpdateAppointmentStatus only applies when the row is still in from;
	// otherwise it returns ErrAppointmentNotFound. A nil notes keeps the current notes.
	UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to AppointmentStatus, notes *string) (*Appointment, error)

	// Listings
	ListAppointments(ctx context.Context, f AppointmentFilter) ([]AppointmentDetail, int, error)
	ListConfirmedStartingBetween(ctx context.Context, from, to time.Time) ([]AppointmentDetail, error)
}
