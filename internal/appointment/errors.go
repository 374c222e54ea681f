package appointment

import (
	"errors"
	"fmt"
)

var (
	ErrValidation             = errors.New("validation failed")
	ErrNotFound               = errors.New("not found")
	ErrUnauthorized           = errors.New("actor is not allowed to act on this appointment")
	ErrInvalidStateTransition = errors.New("invalid status transition")
	ErrSlotUnavailable        = errors.New("time slot is no longer available")
	ErrPastDate               = errors.New("date is in the past")
)

var (
	ErrPatientNotFound     = fmt.Errorf("patient %w", ErrNotFound)
	ErrDoctorNotFound      = fmt.Errorf("doctor %w", ErrNotFound)
	ErrAppointmentNotFound = fmt.Errorf("appointment %w", ErrNotFound)
)

func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
