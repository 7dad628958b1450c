package booking

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/clinicdesk/appointment-engine/internal/timegrid"
)

var (
	// ErrSlotTaken is returned by Create when a non-terminal appointment
	// already holds the same (doctor, date, slot) cell.
	ErrSlotTaken = errors.New("slot already has an active appointment")

	ErrAppointmentNotFound = errors.New("appointment not found")
)

// Ledger is the appointment table. It is the only component that writes
// appointment rows; everything else goes through it.
type Ledger interface {
	// Create inserts a new appointment after verifying no non-terminal
	// appointment holds the same cell. The backing store must make the
	// check-and-insert atomic (partial unique index or equivalent) so a
	// concurrent duplicate fails with ErrSlotTaken instead of racing.
	Create(ctx context.Context, n NewAppointment) (*Appointment, error)

	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)

	// ListByDoctor returns the doctor's appointments. With a date the
	// order is slot time ascending; across all dates it is newest first.
	ListByDoctor(ctx context.Context, doctorID uuid.UUID, date string) ([]Appointment, error)

	// ListByPatient returns a patient's appointments newest first.
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]Appointment, error)

	// ListPendingByDoctor returns pending appointments oldest first, the
	// order an approval queue is worked in.
	ListPendingByDoctor(ctx context.Context, doctorID uuid.UUID) ([]Appointment, error)

	// OccupiedTimes returns every slot time on the date held by an
	// appointment whose status still occupies its cell.
	OccupiedTimes(ctx context.Context, doctorID uuid.UUID, date string) (map[timegrid.Clock]struct{}, error)

	// UpdateStatus moves the appointment to the given status if its
	// current status is in from. When doctorScope is non-nil the update is
	// additionally restricted to that doctor's appointments. Returns false
	// when nothing matched, whether because the id is absent, the status
	// already moved on, or the scope did not match.
	UpdateStatus(ctx context.Context, id uuid.UUID, from []Status, to Status, doctorScope *uuid.UUID) (bool, error)

	// CancelByPatient cancels a non-terminal appointment owned by the
	// given patient. False when the appointment is absent, terminal, or
	// owned by someone else.
	CancelByPatient(ctx context.Context, id, patientID uuid.UUID) (bool, error)

	// Complete moves a booked appointment to completed, recording an
	// optional follow-up date. Scoped to the treating doctor.
	Complete(ctx context.Context, id, doctorID uuid.UUID, followUpDate *string) (bool, error)
}
