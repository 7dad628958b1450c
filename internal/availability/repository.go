package availability

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/clinicdesk/appointment-engine/internal/timegrid"
)

// Repository persists doctor availability. Window creation is deliberately
// permissive: any start < end pair is accepted and overlap with existing
// windows is not rejected.
type Repository interface {
	CreateWindow(ctx context.Context, doctorID uuid.UUID, date string, start, end timegrid.Clock) (*Window, error)

	// ListWindows returns a doctor's windows ordered by (date, start_time).
	// Empty from/to means no bound on that side.
	ListWindows(ctx context.Context, doctorID uuid.UUID, from, to string) ([]Window, error)

	// WindowsForDate returns the windows for a single calendar date,
	// ordered by start_time.
	WindowsForDate(ctx context.Context, doctorID uuid.UUID, date string) ([]Window, error)

	// DeleteWindow reports false for an absent id rather than erroring.
	DeleteWindow(ctx context.Context, id uuid.UUID) (bool, error)

	CreateSchedule(ctx context.Context, doctorID uuid.UUID, weekday time.Weekday, start, end timegrid.Clock) (*Schedule, error)

	// ListSchedules returns a doctor's weekly entries ordered Monday first.
	ListSchedules(ctx context.Context, doctorID uuid.UUID) ([]Schedule, error)

	DeleteSchedule(ctx context.Context, id uuid.UUID) (bool, error)
}
