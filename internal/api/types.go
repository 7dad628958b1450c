package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinicdesk/appointment-engine/internal/availability"
	"github.com/clinicdesk/appointment-engine/internal/booking"
)

type BookAppointmentRequest struct {
	PatientID string `json:"patient_id"`
	DoctorID  string `json:"doctor_id"`
	Date      string `json:"date"`
	Time      string `json:"time"`
}

type OpenSlotRequest struct {
	DoctorID    string `json:"doctor_id"`
	AssistantID string `json:"assistant_id,omitempty"`
	Date        string `json:"date"`
	Time        string `json:"time"`
}

type ApprovalRequest struct {
	DoctorID string `json:"doctor_id"`
}

type CancelRequest struct {
	PatientID string `json:"patient_id"`
}

type CompleteRequest struct {
	DoctorID     string `json:"doctor_id"`
	FollowUpDate string `json:"follow_up_date,omitempty"`
}

type SetStatusRequest struct {
	Status         string `json:"status"`
	ActingDoctorID string `json:"acting_doctor_id,omitempty"`
}

type CreateWindowRequest struct {
	DoctorID  string `json:"doctor_id"`
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

type CreateScheduleRequest struct {
	DoctorID  string `json:"doctor_id"`
	Weekday   string `json:"weekday"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

type AppointmentResponse struct {
	ID           uuid.UUID  `json:"id"`
	PatientID    *uuid.UUID `json:"patient_id,omitempty"`
	DoctorID     uuid.UUID  `json:"doctor_id"`
	AssistantID  *uuid.UUID `json:"assistant_id,omitempty"`
	Date         string     `json:"date"`
	Time         string     `json:"time"`
	Status       string     `json:"status"`
	FollowUpDate *string    `json:"follow_up_date,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

func toAppointmentResponse(a *booking.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:           a.ID,
		PatientID:    a.PatientID,
		DoctorID:     a.DoctorID,
		AssistantID:  a.AssistantID,
		Date:         a.Date,
		Time:         a.SlotTime.String(),
		Status:       string(a.Status),
		FollowUpDate: a.FollowUpDate,
		CreatedAt:    a.CreatedAt,
	}
}

type SlotsResponse struct {
	DoctorID uuid.UUID `json:"doctor_id"`
	Date     string    `json:"date"`
	Slots    []string  `json:"slots"`
}

type WindowResponse struct {
	ID        uuid.UUID `json:"id"`
	DoctorID  uuid.UUID `json:"doctor_id"`
	Date      string    `json:"date"`
	StartTime string    `json:"start_time"`
	EndTime   string    `json:"end_time"`
	CreatedAt time.Time `json:"created_at"`
}

func toWindowResponse(w *availability.Window) WindowResponse {
	return WindowResponse{
		ID:        w.ID,
		DoctorID:  w.DoctorID,
		Date:      w.Date,
		StartTime: w.StartTime.String(),
		EndTime:   w.EndTime.String(),
		CreatedAt: w.CreatedAt,
	}
}

type ScheduleResponse struct {
	ID        uuid.UUID `json:"id"`
	DoctorID  uuid.UUID `json:"doctor_id"`
	Weekday   string    `json:"weekday"`
	StartTime string    `json:"start_time"`
	EndTime   string    `json:"end_time"`
	CreatedAt time.Time `json:"created_at"`
}

func toScheduleResponse(s *availability.Schedule) ScheduleResponse {
	return ScheduleResponse{
		ID:        s.ID,
		DoctorID:  s.DoctorID,
		Weekday:   s.Weekday.String(),
		StartTime: s.StartTime.String(),
		EndTime:   s.EndTime.String(),
		CreatedAt: s.CreatedAt,
	}
}

type UpdateResponse struct {
	Updated bool `json:"updated"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
