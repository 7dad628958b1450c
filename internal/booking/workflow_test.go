package booking

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestStatusHelpers(t *testing.T) {
	assert.True(t, StatusRejected.Terminal())
	assert.True(t, StatusCancelled.Terminal())
	assert.True(t, StatusCompleted.Terminal())
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusBooked.Terminal())
	assert.False(t, StatusAvailable.Terminal())

	assert.True(t, StatusPending.Occupies())
	assert.True(t, StatusBooked.Occupies())
	assert.True(t, StatusAvailable.Occupies())
	assert.True(t, StatusCompleted.Occupies())
	assert.False(t, StatusCancelled.Occupies())
	assert.False(t, StatusRejected.Occupies())

	assert.True(t, StatusBooked.Known())
	assert.False(t, Status("NO_SHOW").Known())
}

func TestCanTransition(t *testing.T) {
	allowed := []struct{ from, to Status }{
		{StatusPending, StatusBooked},
		{StatusPending, StatusRejected},
		{StatusPending, StatusCancelled},
		{StatusBooked, StatusCancelled},
		{StatusBooked, StatusCompleted},
		{StatusAvailable, StatusCancelled},
	}
	for _, tc := range allowed {
		assert.True(t, CanTransition(tc.from, tc.to), "%s -> %s should be allowed", tc.from, tc.to)
	}

	denied := []struct{ from, to Status }{
		{StatusRejected, StatusPending},
		{StatusRejected, StatusBooked},
		{StatusCancelled, StatusBooked},
		{StatusCancelled, StatusPending},
		{StatusCompleted, StatusBooked},
		{StatusCompleted, StatusCancelled},
		{StatusBooked, StatusPending},
		{StatusBooked, StatusRejected},
		{StatusAvailable, StatusCompleted},
		{StatusPending, StatusAvailable},
	}
	for _, tc := range denied {
		assert.False(t, CanTransition(tc.from, tc.to), "%s -> %s should be denied", tc.from, tc.to)
	}
}

func TestPermitted(t *testing.T) {
	doctorID := uuid.New()
	patientID := uuid.New()
	appt := &Appointment{
		ID:        uuid.New(),
		PatientID: &patientID,
		DoctorID:  doctorID,
		Status:    StatusPending,
	}

	doctor := Actor{ID: doctorID, Role: RoleDoctor, DoctorID: doctorID}
	otherDoctor := Actor{ID: uuid.New(), Role: RoleDoctor, DoctorID: uuid.New()}
	assistant := Actor{ID: uuid.New(), Role: RoleAssistant, DoctorID: doctorID}
	patient := Actor{ID: patientID, Role: RolePatient}
	stranger := Actor{ID: uuid.New(), Role: RolePatient}
	admin := Actor{ID: uuid.New(), Role: RoleAdmin}

	assert.True(t, Permitted(appt, StatusBooked, doctor))
	assert.True(t, Permitted(appt, StatusBooked, assistant))
	assert.True(t, Permitted(appt, StatusRejected, doctor))
	assert.True(t, Permitted(appt, StatusBooked, admin))
	assert.False(t, Permitted(appt, StatusBooked, otherDoctor), "doctor scope mismatch")
	assert.False(t, Permitted(appt, StatusBooked, patient))

	// Patient cancellation: owner only.
	assert.True(t, Permitted(appt, StatusCancelled, patient))
	assert.False(t, Permitted(appt, StatusCancelled, stranger))

	booked := &Appointment{ID: uuid.New(), PatientID: &patientID, DoctorID: doctorID, Status: StatusBooked}
	assert.True(t, Permitted(booked, StatusCompleted, doctor))
	assert.False(t, Permitted(booked, StatusCompleted, assistant), "only the doctor completes a visit")
	assert.True(t, Permitted(booked, StatusCancelled, assistant))

	// Open slots have no patient; staff cancel them.
	open := &Appointment{ID: uuid.New(), DoctorID: doctorID, Status: StatusAvailable}
	assert.True(t, Permitted(open, StatusCancelled, doctor))
	assert.False(t, Permitted(open, StatusCancelled, stranger))

	// Nothing leaves a terminal state regardless of role.
	done := &Appointment{ID: uuid.New(), PatientID: &patientID, DoctorID: doctorID, Status: StatusCompleted}
	assert.False(t, Permitted(done, StatusCancelled, admin))
}
