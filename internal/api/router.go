package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/clinicdesk/appointment-engine/internal/availability"
	"github.com/clinicdesk/appointment-engine/internal/booking"
)

type RouterConfig struct {
	Service      *booking.Service
	Availability availability.Repository
	PgPool       *pgxpool.Pool
	Redis        *redis.Client
	Logger       *zap.Logger
	Env          string
	Version      string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))

	// Health endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	// Slot resolution and booking
	r.Get("/doctors/{doctorID}/slots", listSlotsHandler(cfg.Service))
	r.Post("/appointments", bookAppointmentHandler(cfg.Service))
	r.Post("/appointments/open", openSlotHandler(cfg.Service))
	r.Get("/appointments", listAppointmentsHandler(cfg.Service))
	r.Get("/appointments/{id}", getAppointmentHandler(cfg.Service))
	r.Post("/appointments/{id}/approve", approveAppointmentHandler(cfg.Service))
	r.Post("/appointments/{id}/reject", rejectAppointmentHandler(cfg.Service))
	r.Post("/appointments/{id}/cancel", cancelAppointmentHandler(cfg.Service))
	r.Post("/appointments/{id}/complete", completeAppointmentHandler(cfg.Service))
	r.Post("/appointments/{id}/status", setStatusHandler(cfg.Service))
	r.Get("/doctors/{doctorID}/appointments/pending", listPendingHandler(cfg.Service))

	// Availability windows and weekly schedules
	r.Post("/availability", createWindowHandler(cfg.Availability))
	r.Get("/doctors/{doctorID}/availability", listWindowsHandler(cfg.Availability))
	r.Delete("/availability/{id}", deleteWindowHandler(cfg.Availability))
	r.Post("/schedules", createScheduleHandler(cfg.Availability))
	r.Get("/doctors/{doctorID}/schedules", listSchedulesHandler(cfg.Availability))
	r.Delete("/schedules/{id}", deleteScheduleHandler(cfg.Availability))

	return r
}
