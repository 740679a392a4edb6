package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hackgods/clinic-booking/internal/clinic"
	"github.com/hackgods/clinic-booking/internal/config"
	"github.com/hackgods/clinic-booking/internal/db"
)

type SimConfig struct {
	APIBaseURL   string
	Duration     time.Duration
	Workers      int
	BookingRatio float64
	StatusRatio  float64
	ReadRatio    float64
	Days         int // slots are spread over this many days from tomorrow
	PatientLimit int
	PostgresDSN  string
}

// DataPool holds ids the workers draw from. Slots are deliberately few so
// concurrent bookings collide.
type DataPool struct {
	Patients []int64
	Doctors  []int64
	Slots    []clinic.Slot

	mu           sync.RWMutex
	appointments []int64
}

func (dp *DataPool) AddAppointment(id int64) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	dp.appointments = append(dp.appointments, id)
}

func (dp *DataPool) RandomAppointment(f *gofakeit.Faker) (int64, bool) {
	dp.mu.RLock()
	defer dp.mu.RUnlock()
	if len(dp.appointments) == 0 {
		return 0, false
	}
	return dp.appointments[f.Number(0, len(dp.appointments)-1)], true
}

type OperationMetrics struct {
	Total     int64
	Success   int64
	Conflict  int64
	Error     int64
	Latencies []time.Duration
	mu        sync.Mutex
}

func (om *OperationMetrics) Record(latency time.Duration, status int, err error) {
	atomic.AddInt64(&om.Total, 1)
	switch {
	case err != nil:
		atomic.AddInt64(&om.Error, 1)
	case status == http.StatusConflict:
		atomic.AddInt64(&om.Conflict, 1)
	case status >= 200 && status < 300:
		atomic.AddInt64(&om.Success, 1)
	default:
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.Latencies = append(om.Latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Percentiles() (avg, p50, p95, p99 time.Duration) {
	om.mu.Lock()
	latencies := append([]time.Duration(nil), om.Latencies...)
	om.mu.Unlock()

	if len(latencies) == 0 {
		return 0, 0, 0, 0
	}
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}
	at := func(pct int) time.Duration {
		return latencies[min(len(latencies)*pct/100, len(latencies)-1)]
	}
	return sum / time.Duration(len(latencies)), at(50), at(95), at(99)
}

type Metrics struct {
	Booking OperationMetrics
	Status  OperationMetrics
	Detail  OperationMetrics
	List    OperationMetrics
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

	log.Printf("config: duration=%s workers=%d booking=%.2f status=%.2f read=%.2f days=%d",
		cfg.Duration, cfg.Workers, cfg.BookingRatio, cfg.StatusRatio, cfg.ReadRatio, cfg.Days)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pgPool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN, false)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pgPool.Close()

	dataPool, err := loadDataPool(ctx, pgPool, cfg)
	if err != nil {
		log.Fatalf("load data pool: %v", err)
	}

	log.Printf("loaded: %d patients, %d doctors, %d slots", len(dataPool.Patients), len(dataPool.Doctors), len(dataPool.Slots))

	sim := &Simulator{
		config: cfg,
		pool:   dataPool,
		client: &http.Client{Timeout: 10 * time.Second},
	}

	sim.Run()
	sim.PrintReport()
}

// loadConfig reads the simulator's flags. Database and port settings come from the shared config.
func loadConfig() SimConfig {
	baseCfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load base config: %v", err)
	}

	cfg := SimConfig{PostgresDSN: baseCfg.PostgresDSN}
	flag.StringVar(&cfg.APIBaseURL, "url", "http://localhost:"+baseCfg.HTTPPort, "api base url")
	flag.DurationVar(&cfg.Duration, "duration", 30*time.Second, "how long to run")
	flag.IntVar(&cfg.Workers, "workers", 10, "concurrent clients")
	flag.Float64Var(&cfg.BookingRatio, "booking", 0.5, "share of booking requests")
	flag.Float64Var(&cfg.StatusRatio, "status", 0.2, "share of status changes")
	flag.Float64Var(&cfg.ReadRatio, "read", 0.3, "share of reads")
	flag.IntVar(&cfg.Days, "days", 2, "days of slots to contend for, starting tomorrow")
	flag.IntVar(&cfg.PatientLimit, "patients", 1000, "max patients to load")
	flag.Parse()

	total := cfg.BookingRatio + cfg.StatusRatio + cfg.ReadRatio
	if total > 0 {
		cfg.BookingRatio /= total
		cfg.StatusRatio /= total
		cfg.ReadRatio /= total
	}

	return cfg
}

func validateConfig(cfg SimConfig) error {
	if cfg.Workers <= 0 {
		return fmt.Errorf("-workers must be > 0")
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("-duration must be > 0")
	}
	if cfg.Days <= 0 {
		return fmt.Errorf("-days must be > 0")
	}
	return nil
}

func loadIDs(ctx context.Context, pool *pgxpool.Pool, query string, args ...any) ([]int64, error) {
	rows, err := pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func loadDataPool(ctx context.Context, pool *pgxpool.Pool, cfg SimConfig) (*DataPool, error) {
	patients, err := loadIDs(ctx, pool, `SELECT id FROM users WHERE role = 'patient' ORDER BY id LIMIT $1`, cfg.PatientLimit)
	if err != nil {
		return nil, fmt.Errorf("load patients: %w", err)
	}
	doctors, err := loadIDs(ctx, pool, `SELECT id FROM doctors ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("load doctors: %w", err)
	}
	if len(patients) == 0 {
		return nil, fmt.Errorf("no patients loaded, run cmd/seed first")
	}
	if len(doctors) == 0 {
		return nil, fmt.Errorf("no doctors loaded, run cmd/seed first")
	}

	dp := &DataPool{Patients: patients, Doctors: doctors}

	tomorrow := time.Now().AddDate(0, 0, 1)
	for d := 0; d < cfg.Days; d++ {
		day := tomorrow.AddDate(0, 0, d).Format(clinic.DayLayout)
		for _, doctorID := range doctors {
			for minutes := 9 * 60; minutes < 17*60; minutes += 30 {
				dp.Slots = append(dp.Slots, clinic.Slot{
					DoctorID: doctorID,
					Date:     day,
					Time:     fmt.Sprintf("%02d:%02d", minutes/60, minutes%60),
				})
			}
		}
	}

	return dp, nil
}

func (s *Simulator) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Duration)
	defer cancel()

	log.Printf("starting simulation for %s with %d workers", s.config.Duration, s.config.Workers)

	var wg sync.WaitGroup
	for i := 0; i < s.config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.worker(ctx)
		}()
	}

	wg.Wait()
	log.Println("simulation complete")
}

func (s *Simulator) worker(ctx context.Context) {
	faker := gofakeit.New(0)

	for ctx.Err() == nil {
		r := faker.Float64()
		switch {
		case r < s.config.BookingRatio:
			s.doBooking(ctx, faker)
		case r < s.config.BookingRatio+s.config.StatusRatio:
			s.doStatusChange(ctx, faker)
		case faker.Bool():
			s.doDetail(ctx, faker)
		default:
			s.doListByPatient(ctx, faker)
		}
	}
}

// call performs one request and returns the status code with the decoded body.
func (s *Simulator) call(ctx context.Context, method, path string, body, out any) (int, error) {
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.config.APIBaseURL+path, reader)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, err
		}
	}
	return resp.StatusCode, nil
}

func (s *Simulator) doBooking(ctx context.Context, f *gofakeit.Faker) {
	slot := s.pool.Slots[f.Number(0, len(s.pool.Slots)-1)]
	patientID := s.pool.Patients[f.Number(0, len(s.pool.Patients)-1)]

	var created struct {
		ID int64 `json:"id"`
	}
	start := time.Now()
	status, err := s.call(ctx, http.MethodPost, "/api/appointments", map[string]any{
		"patient_id": patientID,
		"doctor_id":  slot.DoctorID,
		"date":       slot.Date,
		"time":       slot.Time,
	}, &created)
	if ctx.Err() != nil {
		return
	}
	s.metrics.Booking.Record(time.Since(start), status, err)

	if status == http.StatusCreated && created.ID > 0 {
		s.pool.AddAppointment(created.ID)
	}
}

// doStatusChange mostly approves, and sometimes cancels to free the slot again.
func (s *Simulator) doStatusChange(ctx context.Context, f *gofakeit.Faker) {
	id, ok := s.pool.RandomAppointment(f)
	if !ok {
		return
	}
	next := f.RandomString([]string{"approved", "approved", "approved", "completed", "cancelled"})

	start := time.Now()
	status, err := s.call(ctx, http.MethodPatch, fmt.Sprintf("/api/appointments/%d", id), map[string]any{"status": next}, nil)
	if ctx.Err() != nil {
		return
	}
	s.metrics.Status.Record(time.Since(start), status, err)
}

func (s *Simulator) doDetail(ctx context.Context, f *gofakeit.Faker) {
	id, ok := s.pool.RandomAppointment(f)
	if !ok {
		return
	}

	start := time.Now()
	status, err := s.call(ctx, http.MethodGet, fmt.Sprintf("/api/appointments/detail/%d", id), nil, nil)
	if ctx.Err() != nil {
		return
	}
	s.metrics.Detail.Record(time.Since(start), status, err)
}

func (s *Simulator) doListByPatient(ctx context.Context, f *gofakeit.Faker) {
	patientID := s.pool.Patients[f.Number(0, len(s.pool.Patients)-1)]

	start := time.Now()
	status, err := s.call(ctx, http.MethodGet, fmt.Sprintf("/api/appointments/%d?role=patient", patientID), nil, nil)
	if ctx.Err() != nil {
		return
	}
	s.metrics.List.Record(time.Since(start), status, err)
}

func (s *Simulator) PrintReport() {
	line := strings.Repeat("=", 80)
	fmt.Println("\n" + line)
	fmt.Println("SIMULATION REPORT")
	fmt.Println(line)
	fmt.Printf("Duration: %s\n", s.config.Duration)
	fmt.Printf("Workers: %d\n", s.config.Workers)
	fmt.Printf("Slots: %d\n", len(s.pool.Slots))
	fmt.Println()

	printOperationReport("Booking", &s.metrics.Booking)
	printOperationReport("Status change", &s.metrics.Status)
	printOperationReport("Appointment detail", &s.metrics.Detail)
	printOperationReport("List by patient", &s.metrics.List)
}

func printOperationReport(name string, om *OperationMetrics) {
	total := atomic.LoadInt64(&om.Total)
	if total == 0 {
		return
	}

	success := atomic.LoadInt64(&om.Success)
	conflict := atomic.LoadInt64(&om.Conflict)
	failed := atomic.LoadInt64(&om.Error)
	pct := func(n int64) float64 { return float64(n) / float64(total) * 100 }

	avg, p50, p95, p99 := om.Percentiles()

	fmt.Printf("%s:\n", name)
	fmt.Printf("  Total: %d\n", total)
	fmt.Printf("  Success: %d (%.1f%%)\n", success, pct(success))
	if conflict > 0 {
		fmt.Printf("  Conflicts: %d (%.1f%%)\n", conflict, pct(conflict))
	}
	if failed > 0 {
		fmt.Printf("  Errors: %d (%.1f%%)\n", failed, pct(failed))
	}
	fmt.Printf("  Latency: avg=%s p50=%s p95=%s p99=%s\n",
		avg.Round(time.Millisecond), p50.Round(time.Millisecond),
		p95.Round(time.Millisecond), p99.Round(time.Millisecond))
	fmt.Println()
}
