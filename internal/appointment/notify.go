package appointment

import (
	"context"

	"github.com/google/uuid"
)

type NotificationType string

const (
	NotificationRequest   NotificationType = "appointment_request"
	NotificationConfirmed NotificationType = "appointment_confirmed"
	NotificationCancelled NotificationType = "appointment_cancelled"
	NotificationGeneral   NotificationType = "general"
	NotificationReminder  NotificationType = "appointment_reminder"
)

// NotificationEvent is emitted to the counter-party on every successful transition.
type NotificationEvent struct {
	UserID               uuid.UUID        `json:"user_id"`
	Title                string           `json:"title"`
	Message              string           `json:"message"`
	Type                 NotificationType `json:"type"`
	RelatedAppointmentID *uuid.UUID       `json:"related_appointment_id,omitempty"`
}

// Notifier delivers notification events. Errors are reported but never undo
// the transition that produced the event.
type Notifier interface {
	Notify(ctx context.Context, ev NotificationEvent) error
}
