package availability

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/clinicdesk/appointment-engine/internal/timegrid"
)

// MemoryRepository is an in-process Repository used by tests and the local
// simulator. Semantics mirror PgRepository, including permissive window
// creation and false-on-absent deletes.
type MemoryRepository struct {
	mu        sync.RWMutex
	windows   map[uuid.UUID]Window
	schedules map[uuid.UUID]Schedule
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		windows:   make(map[uuid.UUID]Window),
		schedules: make(map[uuid.UUID]Schedule),
	}
}

func (r *MemoryRepository) CreateWindow(_ context.Context, doctorID uuid.UUID, date string, start, end timegrid.Clock) (*Window, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	w := Window{
		ID:        uuid.New(),
		DoctorID:  doctorID,
		Date:      date,
		StartTime: start,
		EndTime:   end,
		CreatedAt: time.Now(),
	}
	r.windows[w.ID] = w
	return &w, nil
}

func (r *MemoryRepository) ListWindows(_ context.Context, doctorID uuid.UUID, from, to string) ([]Window, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []Window
	for _, w := range r.windows {
		if w.DoctorID != doctorID {
			continue
		}
		if from != "" && to != "" && (w.Date < from || w.Date > to) {
			continue
		}
		result = append(result, w)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Date != result[j].Date {
			return result[i].Date < result[j].Date
		}
		return result[i].StartTime < result[j].StartTime
	})
	return result, nil
}

func (r *MemoryRepository) WindowsForDate(_ context.Context, doctorID uuid.UUID, date string) ([]Window, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []Window
	for _, w := range r.windows {
		if w.DoctorID == doctorID && w.Date == date {
			result = append(result, w)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].StartTime < result[j].StartTime
	})
	return result, nil
}

func (r *MemoryRepository) DeleteWindow(_ context.Context, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.windows[id]; !ok {
		return false, nil
	}
	delete(r.windows, id)
	return true, nil
}

func (r *MemoryRepository) CreateSchedule(_ context.Context, doctorID uuid.UUID, weekday time.Weekday, start, end timegrid.Clock) (*Schedule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := Schedule{
		ID:        uuid.New(),
		DoctorID:  doctorID,
		Weekday:   weekday,
		StartTime: start,
		EndTime:   end,
		CreatedAt: time.Now(),
	}
	r.schedules[s.ID] = s
	return &s, nil
}

func (r *MemoryRepository) ListSchedules(_ context.Context, doctorID uuid.UUID) ([]Schedule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []Schedule
	for _, s := range r.schedules {
		if s.DoctorID == doctorID {
			result = append(result, s)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		wi := (int(result[i].Weekday) + 6) % 7
		wj := (int(result[j].Weekday) + 6) % 7
		if wi != wj {
			return wi < wj
		}
		return result[i].StartTime < result[j].StartTime
	})
	return result, nil
}

func (r *MemoryRepository) DeleteSchedule(_ context.Context, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.schedules[id]; !ok {
		return false, nil
	}
	delete(r.schedules, id)
	return true, nil
}
