package booking

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinicdesk/appointment-engine/internal/timegrid"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusBooked    Status = "BOOKED"
	StatusRejected  Status = "REJECTED"
	StatusCancelled Status = "CANCELLED"
	StatusCompleted Status = "COMPLETED"
	StatusAvailable Status = "AVAILABLE"
)

// Terminal reports whether no further transition is allowed out of s.
func (s Status) Terminal() bool {
	switch s {
	case StatusRejected, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

// Occupies reports whether an appointment in this status claims its slot.
// Cancelled and rejected rows free the slot; completed rows keep holding it
// as history.
func (s Status) Occupies() bool {
	return s != StatusCancelled && s != StatusRejected
}

// Known reports whether s is one of the defined statuses.
func (s Status) Known() bool {
	switch s {
	case StatusPending, StatusBooked, StatusRejected, StatusCancelled, StatusCompleted, StatusAvailable:
		return true
	}
	return false
}

// Appointment is a claim on a single (doctor, date, slot) cell. PatientID is
// nil for staff-published open slots awaiting a patient. AssistantID is set
// when an assistant created or approved the appointment.
type Appointment struct {
	ID           uuid.UUID
	PatientID    *uuid.UUID
	DoctorID     uuid.UUID
	AssistantID  *uuid.UUID
	Date         string // calendar date, YYYY-MM-DD
	SlotTime     timegrid.Clock
	Status       Status
	FollowUpDate *string
	CreatedAt    time.Time
}

// NewAppointment carries the fields for a ledger insert.
type NewAppointment struct {
	PatientID   *uuid.UUID
	DoctorID    uuid.UUID
	AssistantID *uuid.UUID
	Date        string
	SlotTime    timegrid.Clock
	Status      Status
}
