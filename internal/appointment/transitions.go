package appointment

import "github.com/google/uuid"

// Role identifies which party of an appointment performs a transition.
type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
)

type Transition string

const (
	TransitionBook          Transition = "book"
	TransitionConfirm       Transition = "confirm"
	TransitionReject        Transition = "reject"
	TransitionPatientCancel Transition = "cancel"
	TransitionComplete      Transition = "complete"
)

type transitionRule struct {
	actor Role
	from  []AppointmentStatus
	to    AppointmentStatus
}

// Book has no source state: it creates the appointment in pending.
var transitionRules = map[Transition]transitionRule{
	TransitionBook:          {actor: RolePatient, to: StatusPending},
	TransitionConfirm:       {actor: RoleDoctor, from: []AppointmentStatus{StatusPending}, to: StatusConfirmed},
	TransitionReject:        {actor: RoleDoctor, from: []AppointmentStatus{StatusPending, StatusConfirmed}, to: StatusCancelled},
	TransitionPatientCancel: {actor: RolePatient, from: []AppointmentStatus{StatusPending, StatusConfirmed}, to: StatusCancelled},
	TransitionComplete:      {actor: RoleDoctor, from: []AppointmentStatus{StatusConfirmed}, to: StatusCompleted},
}

// Next returns the status reached by applying t to an appointment in current,
// or ErrInvalidStateTransition when t is not legal from current.
func Next(t Transition, current AppointmentStatus) (AppointmentStatus, error) {
	rule, ok := transitionRules[t]
	if !ok || t == TransitionBook {
		return current, ErrInvalidStateTransition
	}
	for _, from := range rule.from {
		if from == current {
			return rule.to, nil
		}
	}
	return current, ErrInvalidStateTransition
}

// ActorFor returns the party allowed to perform t.
func ActorFor(t Transition) Role {
	return transitionRules[t].actor
}

// authorize checks that actorID is the appointment's party for transition t.
func authorize(t Transition, a *Appointment, actorID uuid.UUID) error {
	switch ActorFor(t) {
	case RoleDoctor:
		if a.DoctorID != actorID {
			return ErrUnauthorized
		}
	case RolePatient:
		if a.PatientID != actorID {
			return ErrUnauthorized
		}
	default:
		return ErrUnauthorized
	}
	return nil
}
