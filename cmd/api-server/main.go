package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/amelfeddag/SanoX-public/internal/api"
	"github.com/amelfeddag/SanoX-public/internal/appointment"
	"github.com/amelfeddag/SanoX-public/internal/config"
	"github.com/amelfeddag/SanoX-public/internal/db"
	"github.com/amelfeddag/SanoX-public/internal/logger"
	"github.com/amelfeddag/SanoX-public/internal/notification"
	redisclient "github.com/amelfeddag/SanoX-public/internal/redis"
	"github.com/amelfeddag/SanoX-public/internal/review"
)

var version = "dev"

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

	lg.Info("api-server starting up", zap.String("env", cfg.Env), zap.String("http_port", cfg.HTTPPort), zap.String("version", version))

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

	if cfg.ApplySchema {
		if err := db.ApplySchema(rootCtx, pgPool); err != nil {
			lg.Fatal("apply schema", zap.Error(err))
		}
		lg.Info("schema applied")
	}

	// Connect Redis
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
		lg.Info("connected to RabbitMQ", zap.String("queue", cfg.NotifyQueue))
	}

	store := notification.NewPgStore(pgPool)
	dispatcher := notification.NewDispatcher(store, publisher, lg)

	repo := appointment.NewPgRepository(pgPool)
	locker := redisclient.NewRedisDoctorLocker(rdb, cfg.LockTTL, cfg.LockWait)
	svc := appointment.NewService(repo, locker, dispatcher, lg)
	reviews := review.NewService(review.NewPgRepository(pgPool), repo, dispatcher, lg)

	router := api.NewRouter(api.RouterConfig{
		Bookings:        svc,
		Notifications:   notification.NewService(store, lg),
		Directory:       svc,
		Reviews:         reviews,
		DB:              pgPool,
		Cache:           api.PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() }),
		Log:             lg,
		JWTSecret:       []byte(cfg.JWTSecret),
		CORSOrigins:     cfg.CORSOrigins,
		RateLimitPerMin: cfg.RateLimitPerMin,
		Env:             cfg.Env,
		Version:         version,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		lg.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-rootCtx.Done()
	lg.Info("shutting down api-server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		lg.Error("graceful shutdown failed", zap.Error(err))
	}
}
