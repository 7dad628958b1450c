package booking

import "github.com/google/uuid"

// Role identifies the kind of actor attempting a status change. The web
// layer resolves sessions to roles before calling in; the engine only
// applies the transition rules.
type Role string

const (
	RolePatient   Role = "patient"
	RoleDoctor    Role = "doctor"
	RoleAssistant Role = "assistant"
	RoleAdmin     Role = "admin"
)

// Actor is the already-authenticated identity behind a status change.
// DoctorID carries the doctor scope: the doctor's own id, or the doctor an
// assistant is assigned to. Unused for patients and admins.
type Actor struct {
	ID       uuid.UUID
	Role     Role
	DoctorID uuid.UUID
}

// transitions is the status machine. Terminal statuses have no outgoing
// edges, so any attempt out of them falls through to false.
var transitions = map[Status][]Status{
	StatusPending:   {StatusBooked, StatusRejected, StatusCancelled},
	StatusBooked:    {StatusCancelled, StatusCompleted},
	StatusAvailable: {StatusCancelled},
}

// CanTransition reports whether the status machine permits from -> to,
// regardless of who is asking.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Permitted reports whether the actor may move the appointment to the given
// status. Staff act within their doctor scope; a patient may only cancel
// their own appointment.
func Permitted(a *Appointment, to Status, actor Actor) bool {
	if !CanTransition(a.Status, to) {
		return false
	}

	switch actor.Role {
	case RoleAdmin:
		return true
	case RoleDoctor, RoleAssistant:
		if a.DoctorID != actor.DoctorID {
			return false
		}
		// Completing a visit is the doctor's call alone.
		if to == StatusCompleted {
			return actor.Role == RoleDoctor
		}
		return true
	case RolePatient:
		return to == StatusCancelled && a.PatientID != nil && *a.PatientID == actor.ID
	}
	return false
}
