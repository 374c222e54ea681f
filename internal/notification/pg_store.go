package notification

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/amelfeddag/SanoX-public/internal/appointment"
)

type PgStore struct {
	pool *pgxpool.Pool
}

func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

const notificationColumns = `id, user_id, title, message, type, related_appointment_id, is_read, created_at`

func scanNotification(row pgx.Row) (*Notification, error) {
	var (
		n   Notification
		typ string
	)
	err := row.Scan(
		&n.ID,
		&n.UserID,
		&n.Title,
		&n.Message,
		&typ,
		&n.RelatedAppointmentID,
		&n.IsRead,
		&n.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	n.Type = appointment.NotificationType(typ)
	return &n, nil
}

func (s *PgStore) Insert(ctx context.Context, n *Notification) error {
	const q = `
		INSERT INTO notifications (id, user_id, title, message, type, related_appointment_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING is_read, created_at
	`
	err := s.pool.QueryRow(ctx, q, n.ID, n.UserID, n.Title, n.Message, string(n.Type), n.RelatedAppointmentID).
		Scan(&n.IsRead, &n.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (s *PgStore) List(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit, offset int) ([]Notification, int, error) {
	total, err := s.count(ctx, userID, unreadOnly)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 || offset >= total {
		return nil, total, nil
	}

	q := `
		SELECT ` + notificationColumns + `
		FROM notifications
		WHERE user_id = $1
	`
	if unreadOnly {
		q += ` AND is_read = FALSE`
	}
	q += ` ORDER BY created_at DESC, id LIMIT $2 OFFSET $3`

	rows, err := s.pool.Query(ctx, q, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan notification: %w", err)
		}
		out = append(out, *n)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (s *PgStore) count(ctx context.Context, userID uuid.UUID, unreadOnly bool) (int, error) {
	q := `SELECT COUNT(*) FROM notifications WHERE user_id = $1`
	if unreadOnly {
		q += ` AND is_read = FALSE`
	}
	var n int
	if err := s.pool.QueryRow(ctx, q, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count notifications: %w", err)
	}
	return n, nil
}

func (s *PgStore) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.count(ctx, userID, true)
}

// MarkRead is idempotent: an already-read notification still counts as found.
func (s *PgStore) MarkRead(ctx context.Context, userID, id uuid.UUID) error {
	const q = `UPDATE notifications SET is_read = TRUE WHERE id = $1 AND user_id = $2`
	tag, err := s.pool.Exec(ctx, q, id, userID)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PgStore) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	const q = `UPDATE notifications SET is_read = TRUE WHERE user_id = $1 AND is_read = FALSE`
	tag, err := s.pool.Exec(ctx, q, userID)
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *PgStore) Delete(ctx context.Context, userID, id uuid.UUID) error {
	const q = `DELETE FROM notifications WHERE id = $1 AND user_id = $2`
	tag, err := s.pool.Exec(ctx, q, id, userID)
	if err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PgStore) Stats(ctx context.Context, userID uuid.UUID) (Stats, error) {
	const q = `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE NOT is_read)
		FROM notifications
		WHERE user_id = $1
	`
	var st Stats
	if err := s.pool.QueryRow(ctx, q, userID).Scan(&st.Total, &st.Unread); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Stats{}, nil
		}
		return Stats{}, fmt.Errorf("notification stats: %w", err)
	}
	st.Read = st.Total - st.Unread
	return st, nil
}
