package booking_test

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicdesk/appointment-engine/internal/availability"
	"github.com/clinicdesk/appointment-engine/internal/booking"
	"github.com/clinicdesk/appointment-engine/internal/timegrid"
)

// passthroughLocker runs the critical section with no extra serialization,
// leaving the ledger's atomic check-and-insert as the only guard. That is
// exactly the property the contention tests need to exercise.
type passthroughLocker struct{}

func (passthroughLocker) WithBookingLock(ctx context.Context, _ uuid.UUID, _ string, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func newTestService(t *testing.T) (*booking.Service, *booking.MemoryLedger, *availability.MemoryRepository) {
	t.Helper()
	ledger := booking.NewMemoryLedger()
	windows := availability.NewMemoryRepository()
	svc := booking.NewService(ledger, windows, passthroughLocker{}, booking.DefaultFallbackPolicy(), nil)
	return svc, ledger, windows
}

func slotStrings(slots []timegrid.Clock) []string {
	out := make([]string, 0, len(slots))
	for _, s := range slots {
		out = append(out, s.String())
	}
	return out
}

func TestAvailableSlotsSubtractsOccupied(t *testing.T) {
	svc, ledger, windows := newTestService(t)
	ctx := context.Background()
	doctorID := uuid.New()
	const date = "2025-12-20"

	_, err := windows.CreateWindow(ctx, doctorID, date, timegrid.MustParse("09:00"), timegrid.MustParse("11:00"))
	require.NoError(t, err)

	patientID := uuid.New()
	appt, err := ledger.Create(ctx, booking.NewAppointment{
		PatientID: &patientID,
		DoctorID:  doctorID,
		Date:      date,
		SlotTime:  timegrid.MustParse("09:30"),
		Status:    booking.StatusPending,
	})
	require.NoError(t, err)

	slots, err := svc.AvailableSlots(ctx, doctorID, date)
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00", "10:00", "10:30"}, slotStrings(slots))

	// A cancelled appointment frees its slot.
	ok, err := ledger.UpdateStatus(ctx, appt.ID, []booking.Status{booking.StatusPending}, booking.StatusCancelled, nil)
	require.NoError(t, err)
	require.True(t, ok)

	slots, err = svc.AvailableSlots(ctx, doctorID, date)
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00", "09:30", "10:00", "10:30"}, slotStrings(slots))
}

func TestAvailableSlotsOverlappingWindowsCollapse(t *testing.T) {
	svc, _, windows := newTestService(t)
	ctx := context.Background()
	doctorID := uuid.New()
	const date = "2025-12-20"

	_, err := windows.CreateWindow(ctx, doctorID, date, timegrid.MustParse("09:00"), timegrid.MustParse("10:30"))
	require.NoError(t, err)
	_, err = windows.CreateWindow(ctx, doctorID, date, timegrid.MustParse("10:00"), timegrid.MustParse("11:30"))
	require.NoError(t, err)

	slots, err := svc.AvailableSlots(ctx, doctorID, date)
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00", "09:30", "10:00", "10:30", "11:00"}, slotStrings(slots))
}

func TestAvailableSlotsFallbackBusinessHours(t *testing.T) {
	svc, ledger, _ := newTestService(t)
	ctx := context.Background()
	doctorID := uuid.New()
	const date = "2025-12-22"

	slots, err := svc.AvailableSlots(ctx, doctorID, date)
	require.NoError(t, err)
	require.Len(t, slots, 16)
	assert.Equal(t, "09:00", slots[0].String())
	assert.Equal(t, "16:30", slots[15].String())

	patientID := uuid.New()
	_, err = ledger.Create(ctx, booking.NewAppointment{
		PatientID: &patientID,
		DoctorID:  doctorID,
		Date:      date,
		SlotTime:  timegrid.MustParse("09:00"),
		Status:    booking.StatusBooked,
	})
	require.NoError(t, err)

	slots, err = svc.AvailableSlots(ctx, doctorID, date)
	require.NoError(t, err)
	assert.Len(t, slots, 15)
	assert.Equal(t, "09:30", slots[0].String())
}

func TestReserveCreatesPending(t *testing.T) {
	svc, _, windows := newTestService(t)
	ctx := context.Background()
	doctorID, patientID := uuid.New(), uuid.New()
	const date = "2025-12-20"

	_, err := windows.CreateWindow(ctx, doctorID, date, timegrid.MustParse("09:00"), timegrid.MustParse("10:00"))
	require.NoError(t, err)

	appt, err := svc.Reserve(ctx, patientID, doctorID, date, timegrid.MustParse("09:00"))
	require.NoError(t, err)
	assert.Equal(t, booking.StatusPending, appt.Status)
	require.NotNil(t, appt.PatientID)
	assert.Equal(t, patientID, *appt.PatientID)

	slots, err := svc.AvailableSlots(ctx, doctorID, date)
	require.NoError(t, err)
	assert.Equal(t, []string{"09:30"}, slotStrings(slots))
}

func TestReserveRejectsOffGridTime(t *testing.T) {
	svc, _, windows := newTestService(t)
	ctx := context.Background()
	doctorID := uuid.New()
	const date = "2025-12-20"

	_, err := windows.CreateWindow(ctx, doctorID, date, timegrid.MustParse("09:00"), timegrid.MustParse("10:00"))
	require.NoError(t, err)

	// 12:00 looks bookable on a stale page but is outside the window.
	_, err = svc.Reserve(ctx, uuid.New(), doctorID, date, timegrid.MustParse("12:00"))
	assert.ErrorIs(t, err, booking.ErrSlotUnavailable)
}

func TestReserveTakenSlot(t *testing.T) {
	svc, _, windows := newTestService(t)
	ctx := context.Background()
	doctorID := uuid.New()
	const date = "2025-12-20"

	_, err := windows.CreateWindow(ctx, doctorID, date, timegrid.MustParse("09:00"), timegrid.MustParse("10:00"))
	require.NoError(t, err)

	_, err = svc.Reserve(ctx, uuid.New(), doctorID, date, timegrid.MustParse("09:00"))
	require.NoError(t, err)

	_, err = svc.Reserve(ctx, uuid.New(), doctorID, date, timegrid.MustParse("09:00"))
	assert.ErrorIs(t, err, booking.ErrSlotUnavailable)
}

func TestConcurrentReserveExactlyOneWinner(t *testing.T) {
	svc, _, windows := newTestService(t)
	ctx := context.Background()
	doctorID := uuid.New()
	const date = "2025-12-20"

	_, err := windows.CreateWindow(ctx, doctorID, date, timegrid.MustParse("09:00"), timegrid.MustParse("09:30"))
	require.NoError(t, err)

	const attempts = 32
	var wg sync.WaitGroup
	start := make(chan struct{})
	results := make(chan error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := svc.Reserve(ctx, uuid.New(), doctorID, date, timegrid.MustParse("09:00"))
			results <- err
		}()
	}

	close(start)
	wg.Wait()
	close(results)

	var wins, losses int
	for err := range results {
		switch {
		case err == nil:
			wins++
		default:
			require.ErrorIs(t, err, booking.ErrSlotUnavailable)
			losses++
		}
	}
	assert.Equal(t, 1, wins, "exactly one concurrent reserve must win")
	assert.Equal(t, attempts-1, losses)
}

func TestPublishOpenSlotOccupies(t *testing.T) {
	svc, _, windows := newTestService(t)
	ctx := context.Background()
	doctorID := uuid.New()
	assistantID := uuid.New()
	const date = "2025-12-20"

	_, err := windows.CreateWindow(ctx, doctorID, date, timegrid.MustParse("09:00"), timegrid.MustParse("10:00"))
	require.NoError(t, err)

	appt, err := svc.PublishOpenSlot(ctx, doctorID, &assistantID, date, timegrid.MustParse("09:00"))
	require.NoError(t, err)
	assert.Equal(t, booking.StatusAvailable, appt.Status)
	assert.Nil(t, appt.PatientID)

	slots, err := svc.AvailableSlots(ctx, doctorID, date)
	require.NoError(t, err)
	assert.Equal(t, []string{"09:30"}, slotStrings(slots))

	// The open slot cell cannot be double-claimed.
	_, err = svc.Reserve(ctx, uuid.New(), doctorID, date, timegrid.MustParse("09:00"))
	assert.ErrorIs(t, err, booking.ErrSlotUnavailable)
}

func TestPublishOpenSlotOutsideDeclaredWindows(t *testing.T) {
	svc, _, windows := newTestService(t)
	ctx := context.Background()
	doctorID := uuid.New()
	assistantID := uuid.New()
	const date = "2025-12-20"

	_, err := windows.CreateWindow(ctx, doctorID, date, timegrid.MustParse("09:00"), timegrid.MustParse("10:00"))
	require.NoError(t, err)

	// Staff place open slots directly; 14:00 is outside every declared
	// window and still goes in.
	appt, err := svc.PublishOpenSlot(ctx, doctorID, &assistantID, date, timegrid.MustParse("14:00"))
	require.NoError(t, err)
	assert.Equal(t, booking.StatusAvailable, appt.Status)
	assert.Equal(t, "14:00", appt.SlotTime.String())

	// Off-grid times work too.
	odd, err := svc.PublishOpenSlot(ctx, doctorID, &assistantID, date, timegrid.MustParse("18:45"))
	require.NoError(t, err)
	assert.Equal(t, "18:45", odd.SlotTime.String())

	// The duplicate-slot guard still applies to publication.
	_, err = svc.PublishOpenSlot(ctx, doctorID, &assistantID, date, timegrid.MustParse("14:00"))
	assert.ErrorIs(t, err, booking.ErrSlotUnavailable)

	// Patients remain bound to declared availability, so the published
	// cell does not make 14:30 bookable.
	_, err = svc.Reserve(ctx, uuid.New(), doctorID, date, timegrid.MustParse("14:30"))
	assert.ErrorIs(t, err, booking.ErrSlotUnavailable)
}

func TestWindowRoundTrip(t *testing.T) {
	svc, _, windows := newTestService(t)
	ctx := context.Background()
	doctorID := uuid.New()
	const date = "2026-01-05"

	win, err := windows.CreateWindow(ctx, doctorID, date, timegrid.MustParse("08:00"), timegrid.MustParse("09:00"))
	require.NoError(t, err)

	slots, err := svc.AvailableSlots(ctx, doctorID, date)
	require.NoError(t, err)
	assert.Equal(t, []string{"08:00", "08:30"}, slotStrings(slots))

	deleted, err := windows.DeleteWindow(ctx, win.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	// With the window gone the fallback grid applies again.
	slots, err = svc.AvailableSlots(ctx, doctorID, date)
	require.NoError(t, err)
	assert.Equal(t, "09:00", slots[0].String())
	assert.Len(t, slots, 16)

	// Deleting an absent id reports false, not an error.
	deleted, err = windows.DeleteWindow(ctx, win.ID)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestApproveRejectScopedToDoctor(t *testing.T) {
	svc, _, windows := newTestService(t)
	ctx := context.Background()
	doctorID := uuid.New()
	const date = "2025-12-20"

	_, err := windows.CreateWindow(ctx, doctorID, date, timegrid.MustParse("09:00"), timegrid.MustParse("10:00"))
	require.NoError(t, err)

	appt, err := svc.Reserve(ctx, uuid.New(), doctorID, date, timegrid.MustParse("09:00"))
	require.NoError(t, err)

	// Some other doctor cannot approve this appointment.
	ok, err := svc.Approve(ctx, appt.ID, uuid.New())
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.Approve(ctx, appt.ID, doctorID)
	require.NoError(t, err)
	assert.True(t, ok)

	// Already booked: a second approve is a no-op.
	ok, err = svc.Approve(ctx, appt.ID, doctorID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRejectFreesSlot(t *testing.T) {
	svc, _, windows := newTestService(t)
	ctx := context.Background()
	doctorID := uuid.New()
	const date = "2025-12-20"

	_, err := windows.CreateWindow(ctx, doctorID, date, timegrid.MustParse("09:00"), timegrid.MustParse("09:30"))
	require.NoError(t, err)

	appt, err := svc.Reserve(ctx, uuid.New(), doctorID, date, timegrid.MustParse("09:00"))
	require.NoError(t, err)

	ok, err := svc.Reject(ctx, appt.ID, doctorID)
	require.NoError(t, err)
	require.True(t, ok)

	slots, err := svc.AvailableSlots(ctx, doctorID, date)
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00"}, slotStrings(slots))
}

func TestCancelRequiresOwnership(t *testing.T) {
	svc, _, windows := newTestService(t)
	ctx := context.Background()
	doctorID, patientID := uuid.New(), uuid.New()
	const date = "2025-12-20"

	_, err := windows.CreateWindow(ctx, doctorID, date, timegrid.MustParse("09:00"), timegrid.MustParse("10:00"))
	require.NoError(t, err)

	appt, err := svc.Reserve(ctx, patientID, doctorID, date, timegrid.MustParse("09:00"))
	require.NoError(t, err)

	ok, err := svc.Cancel(ctx, appt.ID, uuid.New())
	require.NoError(t, err)
	assert.False(t, ok, "a stranger cannot cancel someone else's appointment")

	ok, err = svc.Cancel(ctx, appt.ID, patientID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCompleteRecordsFollowUpAndKeepsSlot(t *testing.T) {
	svc, ledger, windows := newTestService(t)
	ctx := context.Background()
	doctorID, patientID := uuid.New(), uuid.New()
	const date = "2025-12-20"

	_, err := windows.CreateWindow(ctx, doctorID, date, timegrid.MustParse("09:00"), timegrid.MustParse("10:00"))
	require.NoError(t, err)

	appt, err := svc.Reserve(ctx, patientID, doctorID, date, timegrid.MustParse("09:00"))
	require.NoError(t, err)

	ok, err := svc.Approve(ctx, appt.ID, doctorID)
	require.NoError(t, err)
	require.True(t, ok)

	followUp := "2026-01-10"
	ok, err = svc.Complete(ctx, appt.ID, doctorID, &followUp)
	require.NoError(t, err)
	require.True(t, ok)

	got, err := ledger.GetByID(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.StatusCompleted, got.Status)
	require.NotNil(t, got.FollowUpDate)
	assert.Equal(t, followUp, *got.FollowUpDate)

	// Completed visits keep their slot as history.
	slots, err := svc.AvailableSlots(ctx, doctorID, date)
	require.NoError(t, err)
	assert.NotContains(t, slotStrings(slots), "09:00")
}

func TestSetStatusMonotonicOnTerminal(t *testing.T) {
	svc, ledger, _ := newTestService(t)
	ctx := context.Background()
	doctorID := uuid.New()
	const date = "2025-12-20"

	for i, terminal := range []booking.Status{booking.StatusRejected, booking.StatusCancelled, booking.StatusCompleted} {
		patientID := uuid.New()
		appt, err := ledger.Create(ctx, booking.NewAppointment{
			PatientID: &patientID,
			DoctorID:  doctorID,
			Date:      date,
			SlotTime:  timegrid.Clock(9*60 + i*30),
			Status:    terminal,
		})
		require.NoError(t, err)

		for _, next := range []booking.Status{booking.StatusPending, booking.StatusBooked, booking.StatusCancelled, booking.StatusAvailable} {
			ok, err := svc.SetStatus(ctx, appt.ID, next, nil)
			require.NoError(t, err)
			assert.False(t, ok, "terminal %s must not move to %s", terminal, next)
		}

		got, err := ledger.GetByID(ctx, appt.ID)
		require.NoError(t, err)
		assert.Equal(t, terminal, got.Status)
	}
}

func TestSetStatusMissingAppointment(t *testing.T) {
	svc, _, _ := newTestService(t)

	// Absent id reports the same plain false as a bad transition.
	ok, err := svc.SetStatus(context.Background(), uuid.New(), booking.StatusBooked, nil)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSetStatusDoctorScope(t *testing.T) {
	svc, _, windows := newTestService(t)
	ctx := context.Background()
	doctorID := uuid.New()
	const date = "2025-12-20"

	_, err := windows.CreateWindow(ctx, doctorID, date, timegrid.MustParse("09:00"), timegrid.MustParse("10:00"))
	require.NoError(t, err)

	appt, err := svc.Reserve(ctx, uuid.New(), doctorID, date, timegrid.MustParse("09:00"))
	require.NoError(t, err)

	other := uuid.New()
	ok, err := svc.SetStatus(ctx, appt.ID, booking.StatusBooked, &other)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.SetStatus(ctx, appt.ID, booking.StatusBooked, &doctorID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestTransitionActorRules(t *testing.T) {
	svc, _, windows := newTestService(t)
	ctx := context.Background()
	doctorID, patientID := uuid.New(), uuid.New()
	const date = "2025-12-20"

	_, err := windows.CreateWindow(ctx, doctorID, date, timegrid.MustParse("09:00"), timegrid.MustParse("10:00"))
	require.NoError(t, err)

	appt, err := svc.Reserve(ctx, patientID, doctorID, date, timegrid.MustParse("09:00"))
	require.NoError(t, err)

	// A patient cannot approve their own request.
	ok, err := svc.Transition(ctx, appt.ID, booking.StatusBooked, booking.Actor{ID: patientID, Role: booking.RolePatient})
	require.NoError(t, err)
	assert.False(t, ok)

	// The assigned assistant can.
	assistant := booking.Actor{ID: uuid.New(), Role: booking.RoleAssistant, DoctorID: doctorID}
	ok, err = svc.Transition(ctx, appt.ID, booking.StatusBooked, assistant)
	require.NoError(t, err)
	assert.True(t, ok)

	// Completion is the doctor's call, not the assistant's.
	ok, err = svc.Transition(ctx, appt.ID, booking.StatusCompleted, assistant)
	require.NoError(t, err)
	assert.False(t, ok)

	doctor := booking.Actor{ID: doctorID, Role: booking.RoleDoctor, DoctorID: doctorID}
	ok, err = svc.Transition(ctx, appt.ID, booking.StatusCompleted, doctor)
	require.NoError(t, err)
	assert.True(t, ok)
}

// Full patient journey: declare availability, book, race, approve,
// cancel, rebook.
func TestBookingLifecycleScenario(t *testing.T) {
	svc, _, windows := newTestService(t)
	ctx := context.Background()
	doctorID := uuid.New()
	patientA, patientB := uuid.New(), uuid.New()
	const date = "2025-12-20"

	_, err := windows.CreateWindow(ctx, doctorID, date, timegrid.MustParse("09:00"), timegrid.MustParse("10:00"))
	require.NoError(t, err)

	// Patient A books 09:00.
	apptA, err := svc.Reserve(ctx, patientA, doctorID, date, timegrid.MustParse("09:00"))
	require.NoError(t, err)
	assert.Equal(t, booking.StatusPending, apptA.Status)

	// Patient B races for the same slot and loses.
	_, err = svc.Reserve(ctx, patientB, doctorID, date, timegrid.MustParse("09:00"))
	require.ErrorIs(t, err, booking.ErrSlotUnavailable)

	// Doctor approves A.
	ok, err := svc.Approve(ctx, apptA.ID, doctorID)
	require.NoError(t, err)
	require.True(t, ok)

	// A cancels; the slot frees up.
	ok, err = svc.Cancel(ctx, apptA.ID, patientA)
	require.NoError(t, err)
	require.True(t, ok)

	slots, err := svc.AvailableSlots(ctx, doctorID, date)
	require.NoError(t, err)
	assert.Contains(t, slotStrings(slots), "09:00")

	// B tries again and succeeds this time.
	apptB, err := svc.Reserve(ctx, patientB, doctorID, date, timegrid.MustParse("09:00"))
	require.NoError(t, err)
	assert.Equal(t, booking.StatusPending, apptB.Status)
}

func TestListOrdering(t *testing.T) {
	svc, _, windows := newTestService(t)
	ctx := context.Background()
	doctorID, patientID := uuid.New(), uuid.New()

	for _, d := range []string{"2025-12-20", "2025-12-21"} {
		_, err := windows.CreateWindow(ctx, doctorID, d, timegrid.MustParse("09:00"), timegrid.MustParse("11:00"))
		require.NoError(t, err)
	}

	for _, item := range []struct{ date, at string }{
		{"2025-12-20", "10:00"},
		{"2025-12-21", "09:00"},
		{"2025-12-20", "09:00"},
	} {
		_, err := svc.Reserve(ctx, patientID, doctorID, item.date, timegrid.MustParse(item.at))
		require.NoError(t, err)
	}

	// Doctor view for one date: slot time ascending.
	byDoctor, err := svc.AppointmentsByDoctor(ctx, doctorID, "2025-12-20")
	require.NoError(t, err)
	require.Len(t, byDoctor, 2)
	assert.Equal(t, "09:00", byDoctor[0].SlotTime.String())
	assert.Equal(t, "10:00", byDoctor[1].SlotTime.String())

	// Patient history: newest first.
	byPatient, err := svc.AppointmentsByPatient(ctx, patientID)
	require.NoError(t, err)
	require.Len(t, byPatient, 3)
	assert.Equal(t, "2025-12-21", byPatient[0].Date)
	assert.Equal(t, "10:00", byPatient[1].SlotTime.String())

	// Approval queue: oldest first.
	pending, err := svc.PendingByDoctor(ctx, doctorID)
	require.NoError(t, err)
	require.Len(t, pending, 3)
	assert.Equal(t, "2025-12-20", pending[0].Date)
	assert.Equal(t, "09:00", pending[0].SlotTime.String())
}
