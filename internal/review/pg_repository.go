package review

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgUniqueViolation = "23505"

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const reviewColumns = `r.id, r.patient_id, r.doctor_id, r.appointment_id, r.rating, r.comment,
	r.is_anonymous, r.doctor_response, r.response_date, r.created_at, r.updated_at,
	p.name, d.first_name, d.last_name, a.appointment_date`

const reviewFrom = `
	FROM reviews r
	JOIN patients p ON p.id = r.patient_id
	JOIN doctors d ON d.id = r.doctor_id
	JOIN appointments a ON a.id = r.appointment_id`

func scanReview(row pgx.Row) (*Review, error) {
	var (
		r           Review
		rating      int16
		doctorFirst string
		doctorLast  string
	)

	err := row.Scan(
		&r.ID,
		&r.PatientID,
		&r.DoctorID,
		&r.AppointmentID,
		&rating,
		&r.Comment,
		&r.Anonymous,
		&r.DoctorResponse,
		&r.RespondedAt,
		&r.CreatedAt,
		&r.UpdatedAt,
		&r.PatientName,
		&doctorFirst,
		&doctorLast,
		&r.AppointmentDate,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrReviewNotFound
		}
		return nil, err
	}

	r.Rating = int(rating)
	r.DoctorName = "Dr. " + doctorFirst + " " + doctorLast
	return &r, nil
}

func (s *PgRepository) Insert(ctx context.Context, r *Review) (*Review, error) {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO reviews (id, patient_id, doctor_id, appointment_id, rating, comment, is_anonymous)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, r.ID, r.PatientID, r.DoctorID, r.AppointmentID, int16(r.Rating), r.Comment, r.Anonymous)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, ErrAlreadyReviewed
		}
		return nil, fmt.Errorf("insert review: %w", err)
	}
	return s.GetByID(ctx, r.ID)
}

func (s *PgRepository) GetByID(ctx context.Context, id uuid.UUID) (*Review, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+reviewColumns+reviewFrom+`
		WHERE r.id = $1
	`, id)
	return scanReview(row)
}

func (s *PgRepository) List(ctx context.Context, f ListFilter) ([]Review, int, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.DoctorID != nil {
		where = append(where, "r.doctor_id = "+arg(*f.DoctorID))
	}
	if f.PatientID != nil {
		where = append(where, "r.patient_id = "+arg(*f.PatientID))
	}
	if f.Rating != nil {
		where = append(where, "r.rating = "+arg(int16(*f.Rating)))
	}

	cond := ""
	if len(where) > 0 {
		cond = "\n\tWHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM reviews r`+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count reviews: %w", err)
	}
	if total == 0 || f.Offset >= total {
		return nil, total, nil
	}

	column := "r.created_at"
	if f.SortBy == SortByRating {
		column = "r.rating"
	}
	dir := "DESC"
	if f.Ascending {
		dir = "ASC"
	}

	sql := `SELECT ` + reviewColumns + reviewFrom + cond +
		"\n\tORDER BY " + column + " " + dir + ", r.created_at DESC, r.id" +
		"\n\tLIMIT " + arg(f.Limit) + " OFFSET " + arg(f.Offset)

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	var result []Review
	for rows.Next() {
		r, err := scanReview(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, *r)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return result, total, nil
}

func (s *PgRepository) Update(ctx context.Context, r *Review) (*Review, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE reviews
		SET rating = $2,
		    comment = $3,
		    is_anonymous = $4,
		    updated_at = now()
		WHERE id = $1
	`, r.ID, int16(r.Rating), r.Comment, r.Anonymous)
	if err != nil {
		return nil, fmt.Errorf("update review: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrReviewNotFound
	}
	return s.GetByID(ctx, r.ID)
}

func (s *PgRepository) SetResponse(ctx context.Context, id uuid.UUID, response string) (*Review, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE reviews
		SET doctor_response = $2,
		    response_date = now(),
		    updated_at = now()
		WHERE id = $1
	`, id, response)
	if err != nil {
		return nil, fmt.Errorf("respond to review: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrReviewNotFound
	}
	return s.GetByID(ctx, id)
}

func (s *PgRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM reviews WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrReviewNotFound
	}
	return nil
}

func (s *PgRepository) RatingCounts(ctx context.Context, doctorID uuid.UUID) (map[int]int, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT rating, COUNT(*)
		FROM reviews
		WHERE doctor_id = $1
		GROUP BY rating
	`, doctorID)
	if err != nil {
		return nil, fmt.Errorf("count ratings: %w", err)
	}
	defer rows.Close()

	counts := make(map[int]int)
	for rows.Next() {
		var (
			rating int16
			n      int
		)
		if err := rows.Scan(&rating, &n); err != nil {
			return nil, err
		}
		counts[int(rating)] = n
	}
	return counts, rows.Err()
}
