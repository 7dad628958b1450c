package availability

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicdesk/appointment-engine/internal/timegrid"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

func scanWindow(row pgx.Row) (*Window, error) {
	var w Window
	var start, end string

	err := row.Scan(
		&w.ID,
		&w.DoctorID,
		&w.Date,
		&start,
		&end,
		&w.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if w.StartTime, err = timegrid.Parse(start); err != nil {
		return nil, err
	}
	if w.EndTime, err = timegrid.Parse(end); err != nil {
		return nil, err
	}
	return &w, nil
}

func scanSchedule(row pgx.Row) (*Schedule, error) {
	var s Schedule
	var weekday int
	var start, end string

	err := row.Scan(
		&s.ID,
		&s.DoctorID,
		&weekday,
		&start,
		&end,
		&s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	s.Weekday = time.Weekday(weekday)
	if s.StartTime, err = timegrid.Parse(start); err != nil {
		return nil, err
	}
	if s.EndTime, err = timegrid.Parse(end); err != nil {
		return nil, err
	}
	return &s, nil
}

// Interface methods

func (r *PgRepository) CreateWindow(ctx context.Context, doctorID uuid.UUID, date string, start, end timegrid.Clock) (*Window, error) {
	id := uuid.New()

	row := r.pool.QueryRow(ctx, `
		INSERT INTO availability_windows (id, doctor_id, date, start_time, end_time, created_at)
		VALUES ($1, $2, $3::date, $4, $5, now())
		RETURNING id, doctor_id, to_char(date, 'YYYY-MM-DD'), start_time, end_time, created_at
	`, id, doctorID, date, start.String(), end.String())

	return scanWindow(row)
}

func (r *PgRepository) ListWindows(ctx context.Context, doctorID uuid.UUID, from, to string) ([]Window, error) {
	var rows pgx.Rows
	var err error

	if from != "" && to != "" {
		rows, err = r.pool.Query(ctx, `
			SELECT id, doctor_id, to_char(date, 'YYYY-MM-DD'), start_time, end_time, created_at
			FROM availability_windows
			WHERE doctor_id = $1 AND date BETWEEN $2::date AND $3::date
			ORDER BY date, start_time
		`, doctorID, from, to)
	} else {
		rows, err = r.pool.Query(ctx, `
			SELECT id, doctor_id, to_char(date, 'YYYY-MM-DD'), start_time, end_time, created_at
			FROM availability_windows
			WHERE doctor_id = $1
			ORDER BY date, start_time
		`, doctorID)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectWindows(rows)
}

func (r *PgRepository) WindowsForDate(ctx context.Context, doctorID uuid.UUID, date string) ([]Window, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, doctor_id, to_char(date, 'YYYY-MM-DD'), start_time, end_time, created_at
		FROM availability_windows
		WHERE doctor_id = $1 AND date = $2::date
		ORDER BY start_time
	`, doctorID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectWindows(rows)
}

func collectWindows(rows pgx.Rows) ([]Window, error) {
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

func (r *PgRepository) DeleteWindow(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM availability_windows WHERE id = $1
	`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PgRepository) CreateSchedule(ctx context.Context, doctorID uuid.UUID, weekday time.Weekday, start, end timegrid.Clock) (*Schedule, error) {
	id := uuid.New()

	row := r.pool.QueryRow(ctx, `
		INSERT INTO weekly_schedules (id, doctor_id, weekday, start_time, end_time, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
		RETURNING id, doctor_id, weekday, start_time, end_time, created_at
	`, id, doctorID, int(weekday), start.String(), end.String())

	return scanSchedule(row)
}

func (r *PgRepository) ListSchedules(ctx context.Context, doctorID uuid.UUID) ([]Schedule, error) {
	// Monday-first ordering; time.Weekday counts Sunday as 0
	rows, err := r.pool.Query(ctx, `
		SELECT id, doctor_id, weekday, start_time, end_time, created_at
		FROM weekly_schedules
		WHERE doctor_id = $1
		ORDER BY (weekday + 6) % 7, start_time
	`, doctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Schedule
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PgRepository) DeleteSchedule(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM weekly_schedules WHERE id = $1
	`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
