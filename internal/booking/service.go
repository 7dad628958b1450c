package booking

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/clinicdesk/appointment-engine/internal/availability"
	redisclient "github.com/clinicdesk/appointment-engine/internal/redis"
	"github.com/clinicdesk/appointment-engine/internal/timegrid"
)

// ErrSlotUnavailable is returned by Reserve when the requested time is not
// currently free, whether the caller raced another booking or submitted a
// stale slot list.
var ErrSlotUnavailable = errors.New("slot is no longer available")

// FallbackPolicy is the window applied when a doctor has declared no
// availability for a date. Doctors with no explicit windows still appear
// bookable during these hours; see DESIGN.md for why this stays a policy
// rather than a hidden default.
type FallbackPolicy struct {
	DayStart    timegrid.Clock
	DayEnd      timegrid.Clock
	StepMinutes int
}

// DefaultFallbackPolicy is standard business hours on the 30-minute grid.
func DefaultFallbackPolicy() FallbackPolicy {
	return FallbackPolicy{
		DayStart:    timegrid.MustParse("09:00"),
		DayEnd:      timegrid.MustParse("17:00"),
		StepMinutes: timegrid.DefaultStepMinutes,
	}
}

// Service composes the availability store and the appointment ledger to
// resolve free slots and to run the reserve-on-book critical section.
type Service struct {
	ledger  Ledger
	windows availability.Repository
	locker  redisclient.Locker
	policy  FallbackPolicy
	log     *zap.Logger
}

func NewService(ledger Ledger, windows availability.Repository, locker redisclient.Locker, policy FallbackPolicy, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		ledger:  ledger,
		windows: windows,
		locker:  locker,
		policy:  policy,
		log:     log,
	}
}

// AvailableSlots answers "what slots are free for this doctor on this date".
// Every call re-reads current state; results are never cached.
func (s *Service) AvailableSlots(ctx context.Context, doctorID uuid.UUID, date string) ([]timegrid.Clock, error) {
	windows, err := s.windows.WindowsForDate(ctx, doctorID, date)
	if err != nil {
		return nil, fmt.Errorf("load availability windows: %w", err)
	}

	marks := make(map[timegrid.Clock]struct{})
	if len(windows) == 0 {
		for _, t := range timegrid.Expand(s.policy.DayStart, s.policy.DayEnd, s.policy.StepMinutes) {
			marks[t] = struct{}{}
		}
	} else {
		// Union of all windows; overlaps collapse on the minute marks.
		for _, w := range windows {
			for _, t := range timegrid.Expand(w.StartTime, w.EndTime, s.policy.StepMinutes) {
				marks[t] = struct{}{}
			}
		}
	}

	occupied, err := s.ledger.OccupiedTimes(ctx, doctorID, date)
	if err != nil {
		return nil, fmt.Errorf("load occupied times: %w", err)
	}

	free := make([]timegrid.Clock, 0, len(marks))
	for t := range marks {
		if _, taken := occupied[t]; !taken {
			free = append(free, t)
		}
	}
	sort.Slice(free, func(i, j int) bool { return free[i] < free[j] })
	return free, nil
}

// Reserve claims a slot for a patient, creating a PENDING appointment. The
// availability recompute and the ledger insert run inside a per doctor-day
// lock; the ledger's own occupancy check backstops writers that bypass the
// lock.
func (s *Service) Reserve(ctx context.Context, patientID, doctorID uuid.UUID, date string, at timegrid.Clock) (*Appointment, error) {
	return s.claim(ctx, doctorID, date, at, true, NewAppointment{
		PatientID: &patientID,
		DoctorID:  doctorID,
		Date:      date,
		SlotTime:  at,
		Status:    StatusPending,
	})
}

// PublishOpenSlot lets staff pre-allocate an open AVAILABLE slot with no
// patient attached. The row occupies its cell exactly like a booked one.
// Staff place these directly, so the slot need not fall inside a declared
// window; only the duplicate-slot guard applies.
func (s *Service) PublishOpenSlot(ctx context.Context, doctorID uuid.UUID, assistantID *uuid.UUID, date string, at timegrid.Clock) (*Appointment, error) {
	return s.claim(ctx, doctorID, date, at, false, NewAppointment{
		DoctorID:    doctorID,
		AssistantID: assistantID,
		Date:        date,
		SlotTime:    at,
		Status:      StatusAvailable,
	})
}

func (s *Service) claim(ctx context.Context, doctorID uuid.UUID, date string, at timegrid.Clock, requireFree bool, n NewAppointment) (*Appointment, error) {
	var created *Appointment

	err := s.locker.WithBookingLock(ctx, doctorID, date, func(lockCtx context.Context) error {
		if requireFree {
			// Fresh recompute inside the critical section; the caller's
			// idea of what is free may be stale.
			free, err := s.AvailableSlots(lockCtx, doctorID, date)
			if err != nil {
				return err
			}
			if !containsSlot(free, at) {
				return ErrSlotUnavailable
			}
		}

		appt, err := s.ledger.Create(lockCtx, n)
		if err != nil {
			if errors.Is(err, ErrSlotTaken) {
				return ErrSlotUnavailable
			}
			return fmt.Errorf("create appointment: %w", err)
		}
		created = appt
		return nil
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			s.log.Debug("booking lock contended",
				zap.String("doctor_id", doctorID.String()),
				zap.String("date", date),
				zap.String("slot", at.String()))
			return nil, ErrSlotUnavailable
		}
		return nil, err
	}

	s.log.Info("slot claimed",
		zap.String("appointment_id", created.ID.String()),
		zap.String("doctor_id", doctorID.String()),
		zap.String("date", date),
		zap.String("slot", at.String()),
		zap.String("status", string(created.Status)))

	return created, nil
}

func containsSlot(slots []timegrid.Clock, at timegrid.Clock) bool {
	for _, t := range slots {
		if t == at {
			return true
		}
	}
	return false
}

// Approve moves a pending appointment to BOOKED, scoped to the doctor so a
// doctor cannot approve another doctor's queue.
func (s *Service) Approve(ctx context.Context, id, doctorID uuid.UUID) (bool, error) {
	return s.ledger.UpdateStatus(ctx, id, []Status{StatusPending}, StatusBooked, &doctorID)
}

// Reject moves a pending appointment to REJECTED, freeing its slot.
func (s *Service) Reject(ctx context.Context, id, doctorID uuid.UUID) (bool, error) {
	return s.ledger.UpdateStatus(ctx, id, []Status{StatusPending}, StatusRejected, &doctorID)
}

// Cancel is the patient-initiated cancellation of their own appointment.
func (s *Service) Cancel(ctx context.Context, id, patientID uuid.UUID) (bool, error) {
	return s.ledger.CancelByPatient(ctx, id, patientID)
}

// Complete closes out a booked visit, optionally recording a follow-up date.
func (s *Service) Complete(ctx context.Context, id, doctorID uuid.UUID, followUpDate *string) (bool, error) {
	return s.ledger.Complete(ctx, id, doctorID, followUpDate)
}

// SetStatus is the generic transition path. When actingDoctorID is set the
// update only touches that doctor's appointments; when nil it is the
// unscoped administrative path. A missing appointment and a disallowed
// transition both report plain false, so callers cannot distinguish the two.
func (s *Service) SetStatus(ctx context.Context, id uuid.UUID, to Status, actingDoctorID *uuid.UUID) (bool, error) {
	if !to.Known() {
		return false, nil
	}

	appt, err := s.ledger.GetByID(ctx, id)
	if errors.Is(err, ErrAppointmentNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load appointment: %w", err)
	}
	if !CanTransition(appt.Status, to) {
		return false, nil
	}

	// CAS on the observed status so a concurrent transition loses cleanly.
	return s.ledger.UpdateStatus(ctx, id, []Status{appt.Status}, to, actingDoctorID)
}

// Transition applies a role-checked status change on behalf of an actor.
func (s *Service) Transition(ctx context.Context, id uuid.UUID, to Status, actor Actor) (bool, error) {
	appt, err := s.ledger.GetByID(ctx, id)
	if errors.Is(err, ErrAppointmentNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load appointment: %w", err)
	}
	if !Permitted(appt, to, actor) {
		return false, nil
	}

	if actor.Role == RolePatient {
		return s.ledger.CancelByPatient(ctx, id, actor.ID)
	}

	var scope *uuid.UUID
	if actor.Role == RoleDoctor || actor.Role == RoleAssistant {
		scope = &actor.DoctorID
	}
	return s.ledger.UpdateStatus(ctx, id, []Status{appt.Status}, to, scope)
}

// Read-side passthroughs for the web layer.

func (s *Service) Appointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.ledger.GetByID(ctx, id)
}

func (s *Service) AppointmentsByDoctor(ctx context.Context, doctorID uuid.UUID, date string) ([]Appointment, error) {
	return s.ledger.ListByDoctor(ctx, doctorID, date)
}

func (s *Service) AppointmentsByPatient(ctx context.Context, patientID uuid.UUID) ([]Appointment, error) {
	return s.ledger.ListByPatient(ctx, patientID)
}

func (s *Service) PendingByDoctor(ctx context.Context, doctorID uuid.UUID) ([]Appointment, error) {
	return s.ledger.ListPendingByDoctor(ctx, doctorID)
}
