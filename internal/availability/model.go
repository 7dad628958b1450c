package availability

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinicdesk/appointment-engine/internal/timegrid"
)

// Window is a dated availability declaration owned by a doctor. Windows are
// static facts: created and deleted explicitly, never transitioned.
// Overlapping windows for the same doctor and date are allowed; slot
// expansion unions them by minute mark so duplicates collapse downstream.
type Window struct {
	ID        uuid.UUID
	DoctorID  uuid.UUID
	Date      string // calendar date, YYYY-MM-DD
	StartTime timegrid.Clock
	EndTime   timegrid.Clock
	CreatedAt time.Time
}

// Schedule is a recurring weekly availability entry, used for display on
// doctor profiles. Slot resolution works off dated Windows only.
type Schedule struct {
	ID        uuid.UUID
	DoctorID  uuid.UUID
	Weekday   time.Weekday
	StartTime timegrid.Clock
	EndTime   timegrid.Clock
	CreatedAt time.Time
}
