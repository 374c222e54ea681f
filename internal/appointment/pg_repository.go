package appointment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	pgUniqueViolation    = "23505"
	pgExclusionViolation = "23P01"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

func toPgTime(t TimeOfDay) pgtype.Time {
	return pgtype.Time{Microseconds: int64(t.Duration() / time.Microsecond), Valid: true}
}

func fromPgTime(t pgtype.Time) TimeOfDay {
	return TimeOfDayFromDuration(time.Duration(t.Microseconds) * time.Microsecond)
}

func isSlotConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgExclusionViolation || pgErr.Code == pgUniqueViolation
	}
	return false
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient

	err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.Name,
		&p.Phone,
		&p.DateOfBirth,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}

	return &p, nil
}

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor

	err := row.Scan(
		&d.ID,
		&d.UserID,
		&d.FirstName,
		&d.LastName,
		&d.Specialty,
		&d.Phone,
		&d.Active,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDoctorNotFound
		}
		return nil, err
	}

	return &d, nil
}

func scanWindow(row pgx.Row) (*Window, error) {
	var (
		w          Window
		day        int16
		start, end pgtype.Time
	)

	if err := row.Scan(&w.ID, &w.DoctorID, &day, &start, &end, &w.Active); err != nil {
		return nil, err
	}

	w.DayOfWeek = time.Weekday(day)
	w.Start = fromPgTime(start)
	w.End = fromPgTime(end)
	return &w, nil
}

const appointmentColumns = `a.id, a.patient_id, a.doctor_id, a.conversation_id, a.appointment_date,
	a.appointment_time, a.duration_minutes, a.status, a.urgency_level, a.notes, a.created_at, a.updated_at`

func appointmentDest(a *Appointment, start *pgtype.Time, urgency *int16) []any {
	return []any{
		&a.ID,
		&a.PatientID,
		&a.DoctorID,
		&a.ConversationID,
		&a.Date,
		start,
		&a.DurationMinutes,
		&a.Status,
		urgency,
		&a.Notes,
		&a.CreatedAt,
		&a.UpdatedAt,
	}
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var (
		a       Appointment
		start   pgtype.Time
		urgency int16
	)

	if err := row.Scan(appointmentDest(&a, &start, &urgency)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	a.Time = fromPgTime(start)
	a.UrgencyLevel = int(urgency)
	return &a, nil
}

const detailColumns = appointmentColumns + `,
	d.id, d.user_id, d.first_name, d.last_name, d.specialty, d.phone,
	p.id, p.user_id, p.name, p.phone, p.date_of_birth`

const detailFrom = `
	FROM appointments a
	JOIN doctors d ON d.id = a.doctor_id
	JOIN patients p ON p.id = a.patient_id`

func scanDetail(row pgx.Row) (*AppointmentDetail, error) {
	var (
		det     AppointmentDetail
		start   pgtype.Time
		urgency int16
		doc     Doctor
		pat     Patient
	)

	dest := appointmentDest(&det.Appointment, &start, &urgency)
	dest = append(dest,
		&doc.ID, &doc.UserID, &doc.FirstName, &doc.LastName, &doc.Specialty, &doc.Phone,
		&pat.ID, &pat.UserID, &pat.Name, &pat.Phone, &pat.DateOfBirth,
	)

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	det.Time = fromPgTime(start)
	det.UrgencyLevel = int(urgency)
	det.Doctor = &doc
	det.Patient = &pat
	return &det, nil
}

// Interface methods

func (r *PgRepository) GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, user_id, name, phone, date_of_birth, created_at, updated_at
		FROM patients
		WHERE id = $1
	`, id)
	return scanPatient(row)
}

const doctorColumns = `id, user_id, first_name, last_name, specialty, phone, is_active, created_at, updated_at`

func (r *PgRepository) GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+doctorColumns+`
		FROM doctors
		WHERE id = $1
	`, id)
	return scanDoctor(row)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (r *PgRepository) ListDoctors(ctx context.Context, f DoctorFilter) ([]Doctor, int, error) {
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	where := []string{"is_active"}
	if f.Specialty != nil {
		where = append(where, "lower(specialty) = lower("+arg(*f.Specialty)+")")
	}
	if f.Search != "" {
		where = append(where, "(first_name || ' ' || last_name) ILIKE "+arg("%"+likeEscaper.Replace(f.Search)+"%"))
	}
	cond := "\n\tWHERE " + strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM doctors`+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count doctors: %w", err)
	}
	if total == 0 || f.Offset >= total {
		return nil, total, nil
	}

	sql := `SELECT ` + doctorColumns + ` FROM doctors` + cond +
		"\n\tORDER BY last_name, first_name, id LIMIT " + arg(f.Limit) + " OFFSET " + arg(f.Offset)

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []Doctor
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, *d)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return result, total, nil
}

func (r *PgRepository) ListSpecialties(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT specialty
		FROM doctors
		WHERE is_active
		  AND specialty IS NOT NULL
		  AND specialty <> ''
		ORDER BY specialty
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func (r *PgRepository) ListWindows(ctx context.Context, doctorID uuid.UUID) ([]Window, error) {
	return r.queryWindows(ctx, `
		SELECT id, doctor_id, day_of_week, start_time, end_time, is_active
		FROM doctor_availability
		WHERE doctor_id = $1
		ORDER BY day_of_week, start_time
	`, doctorID)
}

func (r *PgRepository) ListActiveWindowsForDay(ctx context.Context, doctorID uuid.UUID, day time.Weekday) ([]Window, error) {
	return r.queryWindows(ctx, `
		SELECT id, doctor_id, day_of_week, start_time, end_time, is_active
		FROM doctor_availability
		WHERE doctor_id = $1
		  AND day_of_week = $2
		  AND is_active
		ORDER BY start_time
	`, doctorID, int16(day))
}

func (r *PgRepository) queryWindows(ctx context.Context, sql string, args ...any) ([]Window, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Window
	for rows.Next() {
		w, err := scanWindow(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *w)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) ReplaceWindows(ctx context.Context, doctorID uuid.UUID, windows []Window) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin replace windows: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM doctor_availability WHERE doctor_id = $1`, doctorID); err != nil {
		return fmt.Errorf("delete windows: %w", err)
	}

	for _, w := range windows {
		_, err := tx.Exec(ctx, `
			INSERT INTO doctor_availability (id, doctor_id, day_of_week, start_time, end_time, is_active)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, w.ID, doctorID, int16(w.DayOfWeek), toPgTime(w.Start), toPgTime(w.End), w.Active)
		if err != nil {
			return fmt.Errorf("insert window: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit replace windows: %w", err)
	}
	return nil
}

func (r *PgRepository) ListActiveAppointments(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments a
		WHERE a.doctor_id = $1
		  AND a.appointment_date = $2
		  AND a.status IN ('pending', 'confirmed')
		ORDER BY a.appointment_time
	`, doctorID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments a
		WHERE a.id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) InsertAppointment(ctx context.Context, a *Appointment) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO appointments AS a (id, patient_id, doctor_id, conversation_id, appointment_date,
			appointment_time, duration_minutes, status, urgency_level, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now(), now())
		RETURNING `+appointmentColumns,
		a.ID, a.PatientID, a.DoctorID, a.ConversationID, a.Date,
		toPgTime(a.Time), a.DurationMinutes, a.Status, int16(a.UrgencyLevel), a.Notes)

	created, err := scanAppointment(row)
	if err != nil {
		if isSlotConflict(err) {
			return nil, ErrSlotUnavailable
		}
		return nil, fmt.Errorf("insert appointment: %w", err)
	}
	return created, nil
}

func (r *PgRepository) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to AppointmentStatus, notes *string) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments AS a
		SET status = $2,
		    notes = COALESCE($4, a.notes),
		    updated_at = now()
		WHERE a.id = $1
		  AND a.status = $3
		RETURNING `+appointmentColumns,
		id, to, from, notes)

	return scanAppointment(row)
}

func (r *PgRepository) ListAppointments(ctx context.Context, f AppointmentFilter) ([]AppointmentDetail, int, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.PatientID != nil {
		where = append(where, "a.patient_id = "+arg(*f.PatientID))
	}
	if f.DoctorID != nil {
		where = append(where, "a.doctor_id = "+arg(*f.DoctorID))
	}
	if f.Status != nil {
		where = append(where, "a.status = "+arg(string(*f.Status)))
	}
	if f.Date != nil {
		where = append(where, "a.appointment_date = "+arg(*f.Date))
	}

	cond := ""
	if len(where) > 0 {
		cond = "\n\tWHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM appointments a`+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count appointments: %w", err)
	}
	if total == 0 || f.Offset >= total {
		return nil, total, nil
	}

	sql := `SELECT ` + detailColumns + detailFrom + cond
	if f.NewestFirst {
		sql += "\n\tORDER BY a.appointment_date DESC, a.appointment_time DESC, a.id"
	} else {
		sql += "\n\tORDER BY a.appointment_date ASC, a.appointment_time ASC, a.id"
	}
	sql += "\n\tLIMIT " + arg(f.Limit) + " OFFSET " + arg(f.Offset)

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []AppointmentDetail
	for rows.Next() {
		d, err := scanDetail(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, *d)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return result, total, nil
}

// ListConfirmedStartingBetween compares wall-clock start times; from and to
// are interpreted without their zone.
func (r *PgRepository) ListConfirmedStartingBetween(ctx context.Context, from, to time.Time) ([]AppointmentDetail, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+detailColumns+detailFrom+`
		WHERE a.status = 'confirmed'
		  AND a.appointment_date + a.appointment_time >= $1::timestamp
		  AND a.appointment_date + a.appointment_time < $2::timestamp
		ORDER BY a.appointment_date, a.appointment_time
	`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []AppointmentDetail
	for rows.Next() {
		d, err := scanDetail(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *d)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}
