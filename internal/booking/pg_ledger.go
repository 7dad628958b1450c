package booking

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicdesk/appointment-engine/internal/timegrid"
)

// activeSlotConstraint is the partial unique index over
// (doctor_id, date, slot_time) for non-terminal statuses. It is what makes
// concurrent duplicate inserts fail fast instead of racing.
const activeSlotConstraint = "appointments_active_slot_key"

const appointmentColumns = `
	id, patient_id, doctor_id, assistant_id,
	to_char(date, 'YYYY-MM-DD'), slot_time, status,
	to_char(follow_up_date, 'YYYY-MM-DD'), created_at
`

type PgLedger struct {
	pool *pgxpool.Pool
}

func NewPgLedger(pool *pgxpool.Pool) *PgLedger {
	return &PgLedger{pool: pool}
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var slotTime string
	var status string

	err := row.Scan(
		&a.ID,
		&a.PatientID,
		&a.DoctorID,
		&a.AssistantID,
		&a.Date,
		&slotTime,
		&status,
		&a.FollowUpDate,
		&a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	a.Status = Status(status)
	if a.SlotTime, err = timegrid.Parse(slotTime); err != nil {
		return nil, err
	}
	return &a, nil
}

func (l *PgLedger) Create(ctx context.Context, n NewAppointment) (*Appointment, error) {
	// Pre-check, then insert. The partial unique index backstops the gap
	// between the two, so a concurrent winner surfaces as 23505 here.
	var occupied bool
	err := l.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE doctor_id = $1 AND date = $2::date AND slot_time = $3
			  AND status NOT IN ('CANCELLED', 'REJECTED')
		)
	`, n.DoctorID, n.Date, n.SlotTime.String()).Scan(&occupied)
	if err != nil {
		return nil, err
	}
	if occupied {
		return nil, ErrSlotTaken
	}

	id := uuid.New()
	row := l.pool.QueryRow(ctx, `
		INSERT INTO appointments (id, patient_id, doctor_id, assistant_id, date, slot_time, status, created_at)
		VALUES ($1, $2, $3, $4, $5::date, $6, $7, now())
		RETURNING `+appointmentColumns,
		id, n.PatientID, n.DoctorID, n.AssistantID, n.Date, n.SlotTime.String(), string(n.Status))

	appt, err := scanAppointment(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == activeSlotConstraint {
			return nil, ErrSlotTaken
		}
		return nil, err
	}
	return appt, nil
}

func (l *PgLedger) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := l.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (l *PgLedger) ListByDoctor(ctx context.Context, doctorID uuid.UUID, date string) ([]Appointment, error) {
	var rows pgx.Rows
	var err error

	if date != "" {
		rows, err = l.pool.Query(ctx, `
			SELECT `+appointmentColumns+`
			FROM appointments
			WHERE doctor_id = $1 AND date = $2::date
			ORDER BY slot_time ASC
		`, doctorID, date)
	} else {
		rows, err = l.pool.Query(ctx, `
			SELECT `+appointmentColumns+`
			FROM appointments
			WHERE doctor_id = $1
			ORDER BY date DESC, slot_time DESC
		`, doctorID)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectAppointments(rows)
}

func (l *PgLedger) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]Appointment, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE patient_id = $1
		ORDER BY date DESC, slot_time DESC
	`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectAppointments(rows)
}

func (l *PgLedger) ListPendingByDoctor(ctx context.Context, doctorID uuid.UUID) ([]Appointment, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE doctor_id = $1 AND status = 'PENDING'
		ORDER BY date ASC, slot_time ASC
	`, doctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectAppointments(rows)
}

func collectAppointments(rows pgx.Rows) ([]Appointment, error) {
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

func (l *PgLedger) OccupiedTimes(ctx context.Context, doctorID uuid.UUID, date string) (map[timegrid.Clock]struct{}, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT slot_time
		FROM appointments
		WHERE doctor_id = $1 AND date = $2::date
		  AND status NOT IN ('CANCELLED', 'REJECTED')
	`, doctorID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	occupied := make(map[timegrid.Clock]struct{})
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		c, err := timegrid.Parse(s)
		if err != nil {
			return nil, err
		}
		occupied[c] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return occupied, nil
}

func (l *PgLedger) UpdateStatus(ctx context.Context, id uuid.UUID, from []Status, to Status, doctorScope *uuid.UUID) (bool, error) {
	fromStrs := make([]string, len(from))
	for i, s := range from {
		fromStrs[i] = string(s)
	}

	var tag pgconn.CommandTag
	var err error

	if doctorScope != nil {
		tag, err = l.pool.Exec(ctx, `
			UPDATE appointments
			SET status = $2
			WHERE id = $1 AND status = ANY($3) AND doctor_id = $4
		`, id, string(to), fromStrs, *doctorScope)
	} else {
		tag, err = l.pool.Exec(ctx, `
			UPDATE appointments
			SET status = $2
			WHERE id = $1 AND status = ANY($3)
		`, id, string(to), fromStrs)
	}
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (l *PgLedger) CancelByPatient(ctx context.Context, id, patientID uuid.UUID) (bool, error) {
	tag, err := l.pool.Exec(ctx, `
		UPDATE appointments
		SET status = 'CANCELLED'
		WHERE id = $1 AND patient_id = $2
		  AND status NOT IN ('CANCELLED', 'REJECTED', 'COMPLETED')
	`, id, patientID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (l *PgLedger) Complete(ctx context.Context, id, doctorID uuid.UUID, followUpDate *string) (bool, error) {
	tag, err := l.pool.Exec(ctx, `
		UPDATE appointments
		SET status = 'COMPLETED',
		    follow_up_date = $3::date
		WHERE id = $1 AND doctor_id = $2 AND status = 'BOOKED'
	`, id, doctorID, followUpDate)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
