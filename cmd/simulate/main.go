package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/amelfeddag/SanoX-public/internal/api"
	"github.com/amelfeddag/SanoX-public/internal/appointment"
	"github.com/amelfeddag/SanoX-public/internal/config"
	"github.com/amelfeddag/SanoX-public/internal/db"
)

type SimConfig struct {
	APIBaseURL   string
	Duration     time.Duration
	Workers      int
	SlotCount    int
	ConfirmRatio float64
	PatientLimit int
	PostgresDSN  string
	JWTSecret    []byte
}

type party struct {
	profileID uuid.UUID
	token     string
}

type DataPool struct {
	Patients []party
	Doctor   party
	Date     time.Time
	Slots    []string

	mu           sync.RWMutex
	appointments []uuid.UUID
}

func (dp *DataPool) AddAppointment(id uuid.UUID) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	dp.appointments = append(dp.appointments, id)
}

func (dp *DataPool) GetRandomAppointment(rng *rand.Rand) (uuid.UUID, bool) {
	dp.mu.RLock()
	defer dp.mu.RUnlock()
	if len(dp.appointments) == 0 {
		return uuid.Nil, false
	}
	return dp.appointments[rng.Intn(len(dp.appointments))], true
}

type OperationMetrics struct {
	Total     int64
	Success   int64
	Conflict  int64
	Error     int64
	Latencies []time.Duration
	mu        sync.Mutex
}

func (om *OperationMetrics) Record(latency time.Duration, success bool, conflict bool) {
	atomic.AddInt64(&om.Total, 1)
	if success {
		atomic.AddInt64(&om.Success, 1)
	} else if conflict {
		atomic.AddInt64(&om.Conflict, 1)
	} else {
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.Latencies = append(om.Latencies, latency)
	om.mu.Unlock()
}

func percentile(sorted []time.Duration, p int) time.Duration {
	idx := len(sorted) * p / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func (om *OperationMetrics) Stats() (avg, p50, p95, p99 time.Duration) {
	om.mu.Lock()
	defer om.mu.Unlock()

	if len(om.Latencies) == 0 {
		return 0, 0, 0, 0
	}

	latencies := make([]time.Duration, len(om.Latencies))
	copy(latencies, om.Latencies)
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}

	return sum / time.Duration(len(latencies)), percentile(latencies, 50), percentile(latencies, 95), percentile(latencies, 99)
}

type Metrics struct {
	Booking OperationMetrics
	Confirm OperationMetrics
	Slots   OperationMetrics
}

type Simulator struct {
	config  SimConfig
	pool    *DataPool
	client  *http.Client
	metrics Metrics
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("simulator starting")

	cfg := loadConfig()
	if err := validateConfig(cfg); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	log.Printf("config: duration=%s workers=%d slots=%d confirm=%.2f",
		cfg.Duration, cfg.Workers, cfg.SlotCount, cfg.ConfirmRatio)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pgPool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pgPool.Close()

	dataPool, err := loadDataPool(ctx, pgPool, cfg)
	if err != nil {
		log.Fatalf("load data pool: %v", err)
	}

	log.Printf("loaded: %d patients, doctor=%s date=%s slots=%v",
		len(dataPool.Patients), dataPool.Doctor.profileID, appointment.FormatDate(dataPool.Date), dataPool.Slots)

	sim := &Simulator{
		config: cfg,
		pool:   dataPool,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	sim.Run()
	sim.PrintReport()

	if err := verifyNoDoubleBooking(context.Background(), pgPool, dataPool); err != nil {
		log.Fatalf("double booking detected: %v", err)
	}
	log.Println("verified: no slot holds more than one active appointment")
}

func loadConfig() SimConfig {
	baseCfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load base config: %v", err)
	}

	return SimConfig{
		APIBaseURL:   getEnv("SIM_API_BASE_URL", "http://localhost:8080"),
		Duration:     getDuration("SIM_DURATION", 15*time.Second),
		Workers:      getInt("SIM_WORKERS", 50),
		SlotCount:    getInt("SIM_SLOT_COUNT", 4),
		ConfirmRatio: getFloat("SIM_CONFIRM_RATIO", 0.1),
		PatientLimit: getInt("SIM_PATIENT_LIMIT", 500),
		PostgresDSN:  baseCfg.PostgresDSN,
		JWTSecret:    []byte(baseCfg.JWTSecret),
	}
}

func validateConfig(cfg SimConfig) error {
	if cfg.PostgresDSN == "" {
		return fmt.Errorf("POSTGRES_DSN is required (set in .env or environment)")
	}
	if cfg.Workers <= 0 {
		return fmt.Errorf("SIM_WORKERS must be > 0")
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("SIM_DURATION must be > 0")
	}
	if cfg.SlotCount <= 0 {
		return fmt.Errorf("SIM_SLOT_COUNT must be > 0")
	}
	return nil
}

func mint(cfg SimConfig, userID, profileID uuid.UUID, role appointment.Role) (party, error) {
	token, err := api.IssueToken(cfg.JWTSecret, userID, profileID, role, cfg.Duration+time.Hour)
	if err != nil {
		return party{}, err
	}
	return party{profileID: profileID, token: token}, nil
}

// nextWeekday returns the first date after today falling on day.
func nextWeekday(day time.Weekday) time.Time {
	d := appointment.DateOf(time.Now()).AddDate(0, 0, 1)
	for d.Weekday() != day {
		d = d.AddDate(0, 0, 1)
	}
	return d
}

func loadDataPool(ctx context.Context, pool *pgxpool.Pool, cfg SimConfig) (*DataPool, error) {
	dataPool := &DataPool{}

	rows, err := pool.Query(ctx, `SELECT id, user_id FROM patients LIMIT $1`, cfg.PatientLimit)
	if err != nil {
		return nil, fmt.Errorf("load patients: %w", err)
	}
	for rows.Next() {
		var id, userID uuid.UUID
		if err := rows.Scan(&id, &userID); err != nil {
			rows.Close()
			return nil, err
		}
		p, err := mint(cfg, userID, id, appointment.RolePatient)
		if err != nil {
			rows.Close()
			return nil, err
		}
		dataPool.Patients = append(dataPool.Patients, p)
	}
	rows.Close()
	if len(dataPool.Patients) == 0 {
		return nil, fmt.Errorf("no patients loaded")
	}

	var doctorID, doctorUserID uuid.UUID
	err = pool.QueryRow(ctx, `
		SELECT d.id, d.user_id
		FROM doctors d
		WHERE d.is_active
		  AND EXISTS (SELECT 1 FROM doctor_availability w WHERE w.doctor_id = d.id AND w.day_of_week = 1 AND w.is_active)
		ORDER BY d.created_at
		LIMIT 1
	`).Scan(&doctorID, &doctorUserID)
	if err != nil {
		return nil, fmt.Errorf("load doctor: %w", err)
	}
	if dataPool.Doctor, err = mint(cfg, doctorUserID, doctorID, appointment.RoleDoctor); err != nil {
		return nil, err
	}

	// A fixed, small set of contended slots on the next Monday.
	dataPool.Date = nextWeekday(time.Monday)
	start := appointment.MustTimeOfDay("09:00")
	for i := 0; i < cfg.SlotCount; i++ {
		dataPool.Slots = append(dataPool.Slots, start.Add(i*appointment.SlotStrideMinutes).String())
	}

	return dataPool, nil
}

func (s *Simulator) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Duration)
	defer cancel()

	log.Printf("starting simulation for %s with %d workers", s.config.Duration, s.config.Workers)

	var wg sync.WaitGroup
	for i := 0; i < s.config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			s.worker(ctx, workerID)
		}(i)
	}

	wg.Wait()
	log.Println("simulation complete")
}

func (s *Simulator) worker(ctx context.Context, workerID int) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))

	for {
		select {
		case <-ctx.Done():
			return
		default:
			r := rng.Float64()
			switch {
			case r < s.config.ConfirmRatio:
				s.doConfirm(ctx, rng)
			case r < s.config.ConfirmRatio+0.2:
				s.doSlots(ctx, rng)
			default:
				s.doBooking(ctx, rng)
			}
		}
	}
}

func (s *Simulator) send(ctx context.Context, method, path, token string, body any) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return 0, nil, err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.config.APIBaseURL+path, reader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	out, err := io.ReadAll(resp.Body)
	return resp.StatusCode, out, err
}

func (s *Simulator) doBooking(ctx context.Context, rng *rand.Rand) {
	patient := s.pool.Patients[rng.Intn(len(s.pool.Patients))]
	slot := s.pool.Slots[rng.Intn(len(s.pool.Slots))]

	start := time.Now()
	status, body, err := s.send(ctx, http.MethodPost, "/appointments", patient.token, api.BookAppointmentRequest{
		DoctorID:        s.pool.Doctor.profileID.String(),
		AppointmentDate: appointment.FormatDate(s.pool.Date),
		AppointmentTime: slot,
	})
	latency := time.Since(start)
	if ctx.Err() != nil {
		return
	}

	success := err == nil && status == http.StatusCreated
	if success {
		var resp api.AppointmentResponse
		if json.Unmarshal(body, &resp) == nil && resp.ID != uuid.Nil {
			s.pool.AddAppointment(resp.ID)
		}
	}
	s.metrics.Booking.Record(latency, success, err == nil && status == http.StatusConflict)
}

func (s *Simulator) doConfirm(ctx context.Context, rng *rand.Rand) {
	apptID, ok := s.pool.GetRandomAppointment(rng)
	if !ok {
		return
	}

	start := time.Now()
	status, _, err := s.send(ctx, http.MethodPatch,
		fmt.Sprintf("/doctor/appointments/%s/confirm", apptID), s.pool.Doctor.token, api.ConfirmRequest{})
	latency := time.Since(start)
	if ctx.Err() != nil {
		return
	}

	s.metrics.Confirm.Record(latency, err == nil && status == http.StatusOK, err == nil && status == http.StatusConflict)
}

func (s *Simulator) doSlots(ctx context.Context, rng *rand.Rand) {
	patient := s.pool.Patients[rng.Intn(len(s.pool.Patients))]

	start := time.Now()
	status, _, err := s.send(ctx, http.MethodGet,
		fmt.Sprintf("/doctors/%s/available-slots?date=%s", s.pool.Doctor.profileID, appointment.FormatDate(s.pool.Date)),
		patient.token, nil)
	latency := time.Since(start)
	if ctx.Err() != nil {
		return
	}

	s.metrics.Slots.Record(latency, err == nil && status == http.StatusOK, false)
}

func verifyNoDoubleBooking(ctx context.Context, pool *pgxpool.Pool, dp *DataPool) error {
	rows, err := pool.Query(ctx, `
		SELECT a.id, b.id
		FROM appointments a
		JOIN appointments b
		  ON a.doctor_id = b.doctor_id
		 AND a.appointment_date = b.appointment_date
		 AND a.id < b.id
		 AND a.appointment_time < b.appointment_time + make_interval(mins => b.duration_minutes)
		 AND b.appointment_time < a.appointment_time + make_interval(mins => a.duration_minutes)
		WHERE a.doctor_id = $1
		  AND a.appointment_date = $2
		  AND a.status IN ('pending', 'confirmed')
		  AND b.status IN ('pending', 'confirmed')
	`, dp.Doctor.profileID, dp.Date)
	if err != nil {
		return err
	}
	defer rows.Close()

	var pairs []string
	for rows.Next() {
		var a, b uuid.UUID
		if err := rows.Scan(&a, &b); err != nil {
			return err
		}
		pairs = append(pairs, a.String()+"/"+b.String())
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if len(pairs) > 0 {
		return fmt.Errorf("%d overlapping pairs: %s", len(pairs), strings.Join(pairs, ", "))
	}
	return nil
}

func (s *Simulator) PrintReport() {
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("SIMULATION REPORT")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Duration: %s\n", s.config.Duration)
	fmt.Printf("Workers: %d\n", s.config.Workers)
	fmt.Printf("Contended slots: %d\n", len(s.pool.Slots))
	fmt.Println()

	printOperationReport("Booking", &s.metrics.Booking)
	printOperationReport("Confirm", &s.metrics.Confirm)
	printOperationReport("Available slots", &s.metrics.Slots)
}

func printOperationReport(name string, om *OperationMetrics) {
	total := atomic.LoadInt64(&om.Total)
	if total == 0 {
		return
	}

	success := atomic.LoadInt64(&om.Success)
	conflict := atomic.LoadInt64(&om.Conflict)
	failed := atomic.LoadInt64(&om.Error)

	avg, p50, p95, p99 := om.Stats()

	fmt.Printf("%s:\n", name)
	fmt.Printf("  Total: %d\n", total)
	fmt.Printf("  Success: %d (%.1f%%)\n", success, float64(success)/float64(total)*100)
	if conflict > 0 {
		fmt.Printf("  Conflicts: %d (%.1f%%)\n", conflict, float64(conflict)/float64(total)*100)
	}
	if failed > 0 {
		fmt.Printf("  Errors: %d (%.1f%%)\n", failed, float64(failed)/float64(total)*100)
	}
	fmt.Printf("  Latency: avg=%s p50=%s p95=%s p99=%s\n",
		avg.Round(time.Millisecond), p50.Round(time.Millisecond),
		p95.Round(time.Millisecond), p99.Round(time.Millisecond))
	fmt.Println()
}

// Helper functions

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
