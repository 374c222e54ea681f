package notification

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/amelfeddag/SanoX-public/internal/appointment"
)

var ErrNotFound = errors.New("notification not found")

type Notification struct {
	ID                   uuid.UUID                    `json:"id"`
	UserID               uuid.UUID                    `json:"user_id"`
	Title                string                       `json:"title"`
	Message              string                       `json:"message"`
	Type                 appointment.NotificationType `json:"type"`
	RelatedAppointmentID *uuid.UUID                   `json:"related_appointment_id,omitempty"`
	IsRead               bool                         `json:"is_read"`
	CreatedAt            time.Time                    `json:"created_at"`
}

func fromEvent(ev appointment.NotificationEvent) *Notification {
	return &Notification{
		ID:                   uuid.New(),
		UserID:               ev.UserID,
		Title:                ev.Title,
		Message:              ev.Message,
		Type:                 ev.Type,
		RelatedAppointmentID: ev.RelatedAppointmentID,
	}
}

type Stats struct {
	Total  int `json:"total"`
	Unread int `json:"unread"`
	Read   int `json:"read"`
}

// Page is one page of a user's inbox. UnreadCount covers the whole inbox.
type Page struct {
	Items       []Notification `json:"notifications"`
	Page        int            `json:"page"`
	Limit       int            `json:"limit"`
	Total       int            `json:"total"`
	UnreadCount int            `json:"unread_count"`
}
