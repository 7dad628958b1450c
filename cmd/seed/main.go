package main

import (
	"context"
	"os"
	"strconv"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/clinicdesk/appointment-engine/internal/availability"
	"github.com/clinicdesk/appointment-engine/internal/booking"
	"github.com/clinicdesk/appointment-engine/internal/db"
	"github.com/clinicdesk/appointment-engine/internal/timegrid"
)

// Seeds a demo dataset: doctors with availability windows over the coming
// days, a weekly schedule each, and a sprinkling of staff-published open
// slots. Doctor and patient profiles live outside this engine, so doctors
// here are just freshly minted ids.
func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		logger.Fatal("POSTGRES_DSN is required")
	}

	doctors := envInt("SEED_DOCTORS", 20)
	days := envInt("SEED_DAYS", 7)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.Connect(ctx, dsn)
	if err != nil {
		logger.Fatal("connect postgres", zap.Error(err))
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	windows := availability.NewPgRepository(pool)
	ledger := booking.NewPgLedger(pool)

	seedCtx := context.Background()
	var windowCount, openSlotCount int

	for i := 0; i < doctors; i++ {
		doctorID := uuid.New()

		// One weekly schedule entry for the profile page.
		weekday := time.Weekday(gofakeit.Number(1, 5)) // Monday..Friday
		if _, err := windows.CreateSchedule(seedCtx, doctorID, weekday,
			timegrid.MustParse("09:00"), timegrid.MustParse("17:00")); err != nil {
			logger.Fatal("seed schedule", zap.Error(err))
		}

		for d := 0; d < days; d++ {
			date := time.Now().AddDate(0, 0, d+1).Format("2006-01-02")

			// Morning window, sometimes an afternoon one too.
			start := timegrid.Clock(gofakeit.Number(16, 20) * 30) // 08:00..10:00
			end := start + timegrid.Clock(gofakeit.Number(6, 10)*30)
			if _, err := windows.CreateWindow(seedCtx, doctorID, date, start, end); err != nil {
				logger.Fatal("seed window", zap.Error(err))
			}
			windowCount++

			if gofakeit.Bool() {
				pmStart := timegrid.MustParse("14:00")
				pmEnd := pmStart + timegrid.Clock(gofakeit.Number(4, 8)*30)
				if _, err := windows.CreateWindow(seedCtx, doctorID, date, pmStart, pmEnd); err != nil {
					logger.Fatal("seed window", zap.Error(err))
				}
				windowCount++
			}

			// Occasionally publish an open slot inside the morning window.
			if gofakeit.Number(0, 3) == 0 {
				assistantID := uuid.New()
				_, err := ledger.Create(seedCtx, booking.NewAppointment{
					DoctorID:    doctorID,
					AssistantID: &assistantID,
					Date:        date,
					SlotTime:    start,
					Status:      booking.StatusAvailable,
				})
				if err != nil {
					logger.Fatal("seed open slot", zap.Error(err))
				}
				openSlotCount++
			}
		}
	}

	logger.Info("seed complete",
		zap.Int("doctors", doctors),
		zap.Int("windows", windowCount),
		zap.Int("open_slots", openSlotCount))
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}
