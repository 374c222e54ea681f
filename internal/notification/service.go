package notification

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// Service exposes a user's inbox. Every operation is scoped to the user.
type Service struct {
	store Store
	log   *zap.Logger
}

func NewService(store Store, log *zap.Logger) *Service {
	return &Service{store: store, log: log}
}

func (s *Service) List(ctx context.Context, userID uuid.UUID, page, limit int, unreadOnly bool) (*Page, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	items, total, err := s.store.List(ctx, userID, unreadOnly, limit, (page-1)*limit)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []Notification{}
	}

	unread, err := s.store.CountUnread(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &Page{Items: items, Page: page, Limit: limit, Total: total, UnreadCount: unread}, nil
}

func (s *Service) MarkRead(ctx context.Context, userID, id uuid.UUID) error {
	return s.store.MarkRead(ctx, userID, id)
}

func (s *Service) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	n, err := s.store.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, err
	}
	s.log.Debug("notifications marked read", zap.String("user_id", userID.String()), zap.Int64("count", n))
	return n, nil
}

func (s *Service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	return s.store.Delete(ctx, userID, id)
}

func (s *Service) Stats(ctx context.Context, userID uuid.UUID) (Stats, error) {
	return s.store.Stats(ctx, userID)
}
