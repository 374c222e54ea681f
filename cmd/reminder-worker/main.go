package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/amelfeddag/SanoX-public/internal/appointment"
	"github.com/amelfeddag/SanoX-public/internal/config"
	"github.com/amelfeddag/SanoX-public/internal/db"
	"github.com/amelfeddag/SanoX-public/internal/logger"
	"github.com/amelfeddag/SanoX-public/internal/notification"
	redisclient "github.com/amelfeddag/SanoX-public/internal/redis"
	"github.com/amelfeddag/SanoX-public/internal/reminder"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	lg, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	lg.Info("reminder-worker starting up",
		zap.String("env", cfg.Env),
		zap.String("cron", cfg.ReminderCron),
		zap.Duration("lead", cfg.ReminderLead),
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		lg.Fatal("postgres connection error", zap.Error(err))
	}
	defer pgPool.Close()
	lg.Info("connected to Postgres")

	rdb, err := redisclient.NewRedisClient(rootCtx, cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		lg.Fatal("redis connection error", zap.Error(err))
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			lg.Warn("error closing redis", zap.Error(err))
		}
	}()
	lg.Info("connected to Redis")

	var publisher notification.Publisher
	if cfg.AMQPURL != "" {
		conn, err := amqp.Dial(cfg.AMQPURL)
		if err != nil {
			lg.Fatal("rabbitmq connection error", zap.Error(err))
		}
		defer conn.Close()

		p, err := notification.NewAMQPPublisher(conn, cfg.NotifyQueue, lg)
		if err != nil {
			lg.Fatal("rabbitmq publisher error", zap.Error(err))
		}
		defer p.Close()
		publisher = p
	}

	dispatcher := notification.NewDispatcher(notification.NewPgStore(pgPool), publisher, lg)
	locker := redisclient.NewRedisDoctorLocker(rdb, cfg.LockTTL, cfg.LockWait)
	svc := appointment.NewService(appointment.NewPgRepository(pgPool), locker, dispatcher, lg)

	worker := reminder.NewWorker(lg, svc, redisclient.NewKeyStore(rdb), dispatcher, cfg.ReminderCron, cfg.ReminderLead)

	// Run once at startup
	worker.RunOnce(rootCtx)

	if err := worker.Start(rootCtx); err != nil {
		lg.Fatal("reminder schedule error", zap.Error(err))
	}

	<-rootCtx.Done()
	lg.Info("shutdown signal received, stopping reminder worker")
	worker.Stop()
}
