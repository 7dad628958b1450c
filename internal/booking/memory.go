package booking

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/clinicdesk/appointment-engine/internal/timegrid"
)

// MemoryLedger is an in-process Ledger for tests and the local simulator.
// Create holds the mutex across the occupancy check and the insert, giving
// the same exactly-one-winner behavior the partial unique index provides in
// Postgres.
type MemoryLedger struct {
	mu    sync.Mutex
	rows  map[uuid.UUID]Appointment
	order []uuid.UUID // insertion order, for stable iteration
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{rows: make(map[uuid.UUID]Appointment)}
}

func (l *MemoryLedger) Create(_ context.Context, n NewAppointment) (*Appointment, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, a := range l.rows {
		if a.DoctorID == n.DoctorID && a.Date == n.Date && a.SlotTime == n.SlotTime && a.Status.Occupies() {
			return nil, ErrSlotTaken
		}
	}

	a := Appointment{
		ID:          uuid.New(),
		PatientID:   n.PatientID,
		DoctorID:    n.DoctorID,
		AssistantID: n.AssistantID,
		Date:        n.Date,
		SlotTime:    n.SlotTime,
		Status:      n.Status,
		CreatedAt:   time.Now(),
	}
	l.rows[a.ID] = a
	l.order = append(l.order, a.ID)
	return &a, nil
}

func (l *MemoryLedger) GetByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	a, ok := l.rows[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	return &a, nil
}

func (l *MemoryLedger) ListByDoctor(_ context.Context, doctorID uuid.UUID, date string) ([]Appointment, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var result []Appointment
	for _, id := range l.order {
		a := l.rows[id]
		if a.DoctorID != doctorID {
			continue
		}
		if date != "" && a.Date != date {
			continue
		}
		result = append(result, a)
	}

	if date != "" {
		sort.Slice(result, func(i, j int) bool {
			return result[i].SlotTime < result[j].SlotTime
		})
	} else {
		sort.Slice(result, func(i, j int) bool {
			if result[i].Date != result[j].Date {
				return result[i].Date > result[j].Date
			}
			return result[i].SlotTime > result[j].SlotTime
		})
	}
	return result, nil
}

func (l *MemoryLedger) ListByPatient(_ context.Context, patientID uuid.UUID) ([]Appointment, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var result []Appointment
	for _, id := range l.order {
		a := l.rows[id]
		if a.PatientID != nil && *a.PatientID == patientID {
			result = append(result, a)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Date != result[j].Date {
			return result[i].Date > result[j].Date
		}
		return result[i].SlotTime > result[j].SlotTime
	})
	return result, nil
}

func (l *MemoryLedger) ListPendingByDoctor(_ context.Context, doctorID uuid.UUID) ([]Appointment, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var result []Appointment
	for _, id := range l.order {
		a := l.rows[id]
		if a.DoctorID == doctorID && a.Status == StatusPending {
			result = append(result, a)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Date != result[j].Date {
			return result[i].Date < result[j].Date
		}
		return result[i].SlotTime < result[j].SlotTime
	})
	return result, nil
}

func (l *MemoryLedger) OccupiedTimes(_ context.Context, doctorID uuid.UUID, date string) (map[timegrid.Clock]struct{}, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	occupied := make(map[timegrid.Clock]struct{})
	for _, a := range l.rows {
		if a.DoctorID == doctorID && a.Date == date && a.Status.Occupies() {
			occupied[a.SlotTime] = struct{}{}
		}
	}
	return occupied, nil
}

func (l *MemoryLedger) UpdateStatus(_ context.Context, id uuid.UUID, from []Status, to Status, doctorScope *uuid.UUID) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	a, ok := l.rows[id]
	if !ok {
		return false, nil
	}
	if doctorScope != nil && a.DoctorID != *doctorScope {
		return false, nil
	}

	matched := false
	for _, f := range from {
		if a.Status == f {
			matched = true
			break
		}
	}
	if !matched {
		return false, nil
	}

	a.Status = to
	l.rows[id] = a
	return true, nil
}

func (l *MemoryLedger) CancelByPatient(_ context.Context, id, patientID uuid.UUID) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	a, ok := l.rows[id]
	if !ok {
		return false, nil
	}
	if a.PatientID == nil || *a.PatientID != patientID {
		return false, nil
	}
	if a.Status.Terminal() {
		return false, nil
	}

	a.Status = StatusCancelled
	l.rows[id] = a
	return true, nil
}

func (l *MemoryLedger) Complete(_ context.Context, id, doctorID uuid.UUID, followUpDate *string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	a, ok := l.rows[id]
	if !ok {
		return false, nil
	}
	if a.DoctorID != doctorID || a.Status != StatusBooked {
		return false, nil
	}

	a.Status = StatusCompleted
	a.FollowUpDate = followUpDate
	l.rows[id] = a
	return true, nil
}
