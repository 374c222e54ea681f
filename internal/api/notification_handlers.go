package api

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/amelfeddag/SanoX-public/internal/notification"
)

type NotificationService interface {
	List(ctx context.Context, userID uuid.UUID, page, limit int, unreadOnly bool) (*notification.Page, error)
	MarkRead(ctx context.Context, userID, id uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
	Stats(ctx context.Context, userID uuid.UUID) (notification.Stats, error)
}

var _ NotificationService = (*notification.Service)(nil)

// Notifications are addressed to users, not profiles.
type notificationHandlers struct {
	svc NotificationService
	log *zap.Logger
}

func (h *notificationHandlers) list(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())

	page, err := queryInt(r, "page", 1)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_query", err.Error())
		return
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_query", err.Error())
		return
	}
	unreadOnly := r.URL.Query().Get("unread_only") == "true"

	out, err := h.svc.List(r.Context(), p.UserID, page, limit, unreadOnly)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *notificationHandlers) stats(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())

	st, err := h.svc.Stats(r.Context(), p.UserID)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *notificationHandlers) markRead(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())
	id, err := urlUUID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_notification_id", err.Error())
		return
	}

	if err := h.svc.MarkRead(r.Context(), p.UserID, id); err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *notificationHandlers) markAllRead(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())

	n, err := h.svc.MarkAllRead(r.Context(), p.UserID)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, MarkAllReadResponse{Updated: n})
}

func (h *notificationHandlers) delete(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())
	id, err := urlUUID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_notification_id", err.Error())
		return
	}

	if err := h.svc.Delete(r.Context(), p.UserID, id); err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
