package appointment

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusCompleted AppointmentStatus = "completed"
	StatusCancelled AppointmentStatus = "cancelled"
)

// Active reports whether an appointment in this status still occupies its slot.
func (s AppointmentStatus) Active() bool {
	return s == StatusPending || s == StatusConfirmed
}

func (s AppointmentStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

const (
	DefaultDurationMinutes = 30
	MaxDurationMinutes     = 8 * 60
	SlotStrideMinutes      = 30

	MinUrgency = 1
	MaxUrgency = 5
)

type Patient struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	Name        string
	Phone       *string
	DateOfBirth *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Doctor struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	FirstName string
	LastName  string
	Specialty *string
	Phone     *string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (d Doctor) DisplayName() string {
	return "Dr. " + d.FirstName + " " + d.LastName
}

// Window is one recurring weekly opening of a doctor.
type Window struct {
	ID        uuid.UUID
	DoctorID  uuid.UUID
	DayOfWeek time.Weekday
	Start     TimeOfDay
	End       TimeOfDay
	Active    bool
}

func (w Window) Contains(start TimeOfDay, durationMinutes int) bool {
	return start >= w.Start && start.Add(durationMinutes) <= w.End
}

type Appointment struct {
	ID              uuid.UUID
	PatientID       uuid.UUID
	DoctorID        uuid.UUID
	ConversationID  *uuid.UUID
	Date            time.Time
	Time            TimeOfDay
	DurationMinutes int
	Status          AppointmentStatus
	UrgencyLevel    int
	Notes           *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (a Appointment) End() TimeOfDay {
	return a.Time.Add(a.DurationMinutes)
}

// Slot is a bookable time computed on demand, never stored.
type Slot struct {
	Time      TimeOfDay
	Available bool
	Duration  int
}

// AppointmentDetail is an appointment joined with both parties for listings.
type AppointmentDetail struct {
	Appointment
	Doctor  *Doctor
	Patient *Patient
}
