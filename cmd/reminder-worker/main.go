package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/hackgods/clinic-booking/internal/clinic"
	"github.com/hackgods/clinic-booking/internal/config"
	"github.com/hackgods/clinic-booking/internal/db"
	"github.com/hackgods/clinic-booking/internal/notify"
	redisclient "github.com/hackgods/clinic-booking/internal/redis"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("reminder-worker starting up")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	log.Printf("running reminder worker in env=%s schedule=%q lead=%s", cfg.Env, cfg.ReminderSchedule, cfg.ReminderLead)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN, false)
	cancelPg()
	if err != nil {
		log.Fatalf("postgres connection error: %v", err)
	}
	defer pgPool.Close()
	log.Println("connected to Postgres")

	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		log.Fatalf("redis connection error: %v", err)
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Printf("error closing redis: %v", err)
		}
	}()
	log.Println("connected to Redis")

	logger := log.New(os.Stderr, "reminders ", log.LstdFlags|log.Lmsgprefix)

	repo := clinic.NewPgRepository(pgPool)
	mailer := notify.NewFromConfig(notify.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	}, repo, logger)
	reminders := clinic.NewReminders(repo, redisclient.NewRedisOnceMarker(rdb), mailer, logger)

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	if _, err := c.AddFunc(cfg.ReminderSchedule, func() {
		runOnce(rootCtx, reminders, cfg.ReminderLead)
	}); err != nil {
		log.Fatalf("invalid REMINDER_SCHEDULE %q: %v", cfg.ReminderSchedule, err)
	}

	// Run once at startup; the redis markers keep this from double sending
	runOnce(rootCtx, reminders, cfg.ReminderLead)

	c.Start()
	<-rootCtx.Done()
	log.Println("shutdown signal received, stopping reminder worker")

	// wait for a run in progress
	select {
	case <-c.Stop().Done():
	case <-time.After(cfg.ShutdownTimeout):
		log.Println("reminder run did not finish before shutdown timeout")
	}
}

func runOnce(ctx context.Context, r *clinic.Reminders, lead time.Duration) {
	runCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	day := clinic.ReminderDay(time.Now(), lead)
	start := time.Now()
	sent, err := r.Send(runCtx, day)
	if err != nil {
		log.Printf("reminder run error day=%s sent=%d: %v", day, sent, err)
		return
	}
	log.Printf("reminder run complete day=%s sent=%d in %s", day, sent, time.Since(start))
}
