package notification

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/amelfeddag/SanoX-public/internal/appointment"
)

type memStore struct {
	mu    sync.Mutex
	items []*Notification
	err   error
	clock time.Time
}

func (m *memStore) Insert(_ context.Context, n *Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.clock = m.clock.Add(time.Second)
	n.CreatedAt = m.clock
	cp := *n
	m.items = append(m.items, &cp)
	return nil
}

func (m *memStore) owned(userID uuid.UUID, unreadOnly bool) []*Notification {
	var out []*Notification
	for _, n := range m.items {
		if n.UserID != userID || (unreadOnly && n.IsRead) {
			continue
		}
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (m *memStore) List(_ context.Context, userID uuid.UUID, unreadOnly bool, limit, offset int) ([]Notification, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.owned(userID, unreadOnly)
	var out []Notification
	for i := offset; i < len(all) && i < offset+limit; i++ {
		out = append(out, *all[i])
	}
	return out, len(all), nil
}

func (m *memStore) CountUnread(_ context.Context, userID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.owned(userID, true)), nil
}

func (m *memStore) MarkRead(_ context.Context, userID, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range m.items {
		if n.ID == id && n.UserID == userID {
			n.IsRead = true
			return nil
		}
	}
	return ErrNotFound
}

func (m *memStore) MarkAllRead(_ context.Context, userID uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var changed int64
	for _, n := range m.owned(userID, true) {
		n.IsRead = true
		changed++
	}
	return changed, nil
}

func (m *memStore) Delete(_ context.Context, userID, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, n := range m.items {
		if n.ID == id && n.UserID == userID {
			m.items = append(m.items[:i], m.items[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (m *memStore) Stats(_ context.Context, userID uuid.UUID) (Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := len(m.owned(userID, false))
	unread := len(m.owned(userID, true))
	return Stats{Total: total, Unread: unread, Read: total - unread}, nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []appointment.NotificationEvent
	err    error
}

func (p *fakePublisher) Publish(_ context.Context, ev appointment.NotificationEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}
