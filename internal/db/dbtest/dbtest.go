// Package dbtest connects repository tests to a real Postgres.
//
// Tests using it are skipped unless TEST_POSTGRES_DSN is set. Every helper
// creates fresh rows with random ids, so packages may share one database.
package dbtest

import (
	"context"
	"os"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/amelfeddag/SanoX-public/internal/db"
)

const (
	DSNEnv = "TEST_POSTGRES_DSN"

	schemaLockKey = 727_2030
)

// Pool returns a pool with the schema applied, closed when the test ends.
func Pool(t testing.TB) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv(DSNEnv)
	if dsn == "" {
		t.Skipf("skipping: %s not set", DSNEnv)
	}

	ctx := context.Background()
	pool, err := db.ConnectPostgres(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	// Packages run in parallel; serialize the DDL.
	conn, err := pool.Acquire(ctx)
	require.NoError(t, err)
	defer conn.Release()

	_, err = conn.Exec(ctx, `SELECT pg_advisory_lock($1)`, schemaLockKey)
	require.NoError(t, err)
	defer conn.Exec(ctx, `SELECT pg_advisory_unlock($1)`, schemaLockKey)

	_, err = conn.Exec(ctx, db.SchemaSQL())
	require.NoError(t, err)

	return pool
}

// SeedDoctor inserts an active doctor and returns its id.
func SeedDoctor(t testing.TB, pool *pgxpool.Pool, specialty string) uuid.UUID {
	t.Helper()

	id := uuid.New()
	_, err := pool.Exec(context.Background(), `
		INSERT INTO doctors (id, user_id, first_name, last_name, specialty, is_active)
		VALUES ($1, $2, $3, $4, $5, TRUE)
	`, id, uuid.New(), gofakeit.FirstName(), gofakeit.LastName(), specialty)
	require.NoError(t, err)
	return id
}

// SeedPatient inserts a patient and returns its id.
func SeedPatient(t testing.TB, pool *pgxpool.Pool) uuid.UUID {
	t.Helper()

	id := uuid.New()
	_, err := pool.Exec(context.Background(), `
		INSERT INTO patients (id, user_id, name)
		VALUES ($1, $2, $3)
	`, id, uuid.New(), gofakeit.Name())
	require.NoError(t, err)
	return id
}
