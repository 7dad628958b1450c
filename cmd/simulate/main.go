package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Contention simulator: for each round it publishes a fresh availability
// window, then fires a pack of concurrent booking requests at the same slot
// and checks that exactly one wins. Anything else is a correctness failure
// of the reservation path, not load noise.

type SimConfig struct {
	APIBaseURL string
	Rounds     int
	Workers    int
}

type RoundMetrics struct {
	Total    int64
	Success  int64
	Conflict int64
	Error    int64

	mu        sync.Mutex
	latencies []time.Duration
}

func (m *RoundMetrics) Record(latency time.Duration, status int) {
	atomic.AddInt64(&m.Total, 1)
	switch {
	case status == http.StatusCreated:
		atomic.AddInt64(&m.Success, 1)
	case status == http.StatusConflict:
		atomic.AddInt64(&m.Conflict, 1)
	default:
		atomic.AddInt64(&m.Error, 1)
	}

	m.mu.Lock()
	m.latencies = append(m.latencies, latency)
	m.mu.Unlock()
}

func (m *RoundMetrics) Stats() (avg, p50, p95, max time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.latencies) == 0 {
		return 0, 0, 0, 0
	}

	ls := make([]time.Duration, len(m.latencies))
	copy(ls, m.latencies)
	sort.Slice(ls, func(i, j int) bool { return ls[i] < ls[j] })

	var sum time.Duration
	for _, l := range ls {
		sum += l
	}
	avg = sum / time.Duration(len(ls))
	p50 = ls[len(ls)*50/100]
	p95idx := len(ls) * 95 / 100
	if p95idx >= len(ls) {
		p95idx = len(ls) - 1
	}
	p95 = ls[p95idx]
	max = ls[len(ls)-1]
	return avg, p50, p95, max
}

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	cfg := SimConfig{
		APIBaseURL: envStr("API_BASE_URL", "http://127.0.0.1:8080"),
		Rounds:     envInt("SIM_ROUNDS", 10),
		Workers:    envInt("SIM_WORKERS", 25),
	}

	logger.Info("simulate starting",
		zap.String("api", cfg.APIBaseURL),
		zap.Int("rounds", cfg.Rounds),
		zap.Int("workers", cfg.Workers))

	gofakeit.Seed(time.Now().UnixNano())
	client := &http.Client{Timeout: 10 * time.Second}

	metrics := &RoundMetrics{}
	violations := 0

	for round := 0; round < cfg.Rounds; round++ {
		winners, err := runRound(client, cfg, metrics)
		if err != nil {
			logger.Error("round failed", zap.Int("round", round), zap.Error(err))
			continue
		}
		if winners != 1 {
			violations++
			logger.Error("contention violation: wrong number of winners",
				zap.Int("round", round),
				zap.Int("winners", winners))
		}
	}

	avg, p50, p95, max := metrics.Stats()
	fmt.Printf("\n=== simulate report ===\n")
	fmt.Printf("requests:   %d\n", atomic.LoadInt64(&metrics.Total))
	fmt.Printf("booked:     %d\n", atomic.LoadInt64(&metrics.Success))
	fmt.Printf("conflicts:  %d\n", atomic.LoadInt64(&metrics.Conflict))
	fmt.Printf("errors:     %d\n", atomic.LoadInt64(&metrics.Error))
	fmt.Printf("latency:    avg=%s p50=%s p95=%s max=%s\n", avg, p50, p95, max)
	fmt.Printf("violations: %d\n", violations)

	if violations > 0 {
		os.Exit(1)
	}
}

// runRound sets up one doctor/date/slot and slams it with concurrent
// bookings. Returns how many requests were accepted.
func runRound(client *http.Client, cfg SimConfig, metrics *RoundMetrics) (int, error) {
	doctorID := uuid.New()
	date := time.Now().AddDate(0, 0, 1+gofakeit.Number(0, 30)).Format("2006-01-02")

	body := map[string]string{
		"doctor_id":  doctorID.String(),
		"date":       date,
		"start_time": "09:00",
		"end_time":   "12:00",
	}
	if _, status, err := post(client, cfg.APIBaseURL+"/availability", body); err != nil || status != http.StatusCreated {
		return 0, fmt.Errorf("create availability: status=%d err=%v", status, err)
	}

	slot, err := firstFreeSlot(client, cfg.APIBaseURL, doctorID, date)
	if err != nil {
		return 0, err
	}

	var winners int64
	var wg sync.WaitGroup
	start := make(chan struct{})

	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start

			req := map[string]string{
				"patient_id": uuid.NewString(),
				"doctor_id":  doctorID.String(),
				"date":       date,
				"time":       slot,
			}

			t0 := time.Now()
			_, status, err := post(client, cfg.APIBaseURL+"/appointments", req)
			latency := time.Since(t0)
			if err != nil {
				metrics.Record(latency, 0)
				return
			}
			metrics.Record(latency, status)
			if status == http.StatusCreated {
				atomic.AddInt64(&winners, 1)
			}
		}()
	}

	close(start)
	wg.Wait()

	return int(atomic.LoadInt64(&winners)), nil
}

func firstFreeSlot(client *http.Client, base string, doctorID uuid.UUID, date string) (string, error) {
	resp, err := client.Get(fmt.Sprintf("%s/doctors/%s/slots?date=%s", base, doctorID, date))
	if err != nil {
		return "", fmt.Errorf("list slots: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("list slots: status=%d", resp.StatusCode)
	}

	var out struct {
		Slots []string `json:"slots"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode slots: %w", err)
	}
	if len(out.Slots) == 0 {
		return "", fmt.Errorf("no free slots for doctor %s on %s", doctorID, date)
	}
	return out.Slots[0], nil
}

func post(client *http.Client, url string, body any) ([]byte, int, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, 0, err
	}

	resp, err := client.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return respBody, resp.StatusCode, nil
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}
