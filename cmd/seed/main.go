package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/amelfeddag/SanoX-public/internal/appointment"
	"github.com/amelfeddag/SanoX-public/internal/db"
	"github.com/amelfeddag/SanoX-public/internal/logger"
)

// Mon-Fri, 09:00-12:00 and 14:00-17:00.
var weeklyWindows = []struct {
	start, end string
}{
	{"09:00", "12:00"},
	{"14:00", "17:00"},
}

func main() {
	doctors := flag.Int("doctors", 25, "number of doctors to create")
	patients := flag.Int("patients", 2000, "number of patients to create")
	applySchema := flag.Bool("schema", true, "apply the schema before seeding")
	flag.Parse()

	lg, err := logger.New("dev", "info")
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		lg.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		lg.Fatal("connect postgres", zap.Error(err))
	}
	defer pool.Close()

	if *applySchema {
		if err := db.ApplySchema(context.Background(), pool); err != nil {
			lg.Fatal("apply schema", zap.Error(err))
		}
	}

	if err := seedDoctors(context.Background(), lg, pool, *doctors); err != nil {
		lg.Fatal("seed doctors", zap.Error(err))
	}
	if err := seedPatients(context.Background(), lg, pool, *patients); err != nil {
		lg.Fatal("seed patients", zap.Error(err))
	}

	lg.Info("seed complete")
}

func seedDoctors(ctx context.Context, lg *zap.Logger, pool *pgxpool.Pool, count int) error {
	lg.Info("seeding doctors", zap.Int("count", count))

	specialties := []string{
		"Dermatology",
		"Cardiology",
		"General Practice",
		"Orthopedics",
		"Endocrinology",
		"Neurology",
		"Pediatrics",
		"Psychiatry",
		"Ophthalmology",
		"ENT",
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for i := 0; i < count; i++ {
		id := uuid.New()
		spec := specialties[gofakeit.Number(0, len(specialties)-1)]

		_, err := tx.Exec(ctx, `
			INSERT INTO doctors (id, user_id, first_name, last_name, specialty, phone, is_active)
			VALUES ($1, $2, $3, $4, $5, $6, TRUE)
		`, id, uuid.New(), gofakeit.FirstName(), gofakeit.LastName(), spec, gofakeit.Phone())
		if err != nil {
			return err
		}

		if err := seedWindows(ctx, tx, id); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	lg.Info("doctors seeded", zap.Int("count", count))
	return nil
}

func seedWindows(ctx context.Context, tx pgx.Tx, doctorID uuid.UUID) error {
	for day := time.Monday; day <= time.Friday; day++ {
		for _, w := range weeklyWindows {
			_, err := tx.Exec(ctx, `
				INSERT INTO doctor_availability (id, doctor_id, day_of_week, start_time, end_time, is_active)
				VALUES ($1, $2, $3, $4::time, $5::time, TRUE)
			`, uuid.New(), doctorID, int(day), appointment.MustTimeOfDay(w.start).String(), appointment.MustTimeOfDay(w.end).String())
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func seedPatients(ctx context.Context, lg *zap.Logger, pool *pgxpool.Pool, count int) error {
	lg.Info("seeding patients", zap.Int("count", count))

	const batchSize = 500

	for offset := 0; offset < count; offset += batchSize {
		end := offset + batchSize
		if end > count {
			end = count
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		for i := offset; i < end; i++ {
			dob := gofakeit.DateRange(time.Date(1940, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC))

			_, err := tx.Exec(ctx, `
				INSERT INTO patients (id, user_id, name, phone, date_of_birth)
				VALUES ($1, $2, $3, $4, $5)
			`, uuid.New(), uuid.New(), gofakeit.Name(), gofakeit.Phone(), appointment.DateOf(dob))
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}

		lg.Info("patients seeded", zap.Int("done", end), zap.Int("total", count))
	}

	return nil
}
