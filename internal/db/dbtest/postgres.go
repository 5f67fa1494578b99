// Package dbtest boots a throwaway Postgres for integration tests.
package dbtest

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/sudo-init-do/masterhub/internal/db"
)

// EnvFlag opts in to container-backed tests.
const EnvFlag = "MASTERHUB_PG_IT"

// Pool starts postgres:16, applies the schema and returns a pool that is
// closed, along with the container, when the test ends. The test is skipped
// under -short or when MASTERHUB_PG_IT is not "1".
func Pool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	pool := EmptyPool(t)
	if err := db.EnsureSchema(context.Background(), pool); err != nil {
		t.Fatalf("schema: %v", err)
	}
	return pool
}

// EmptyPool is Pool without the schema: a fresh database with no tables.
func EmptyPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() || os.Getenv(EnvFlag) != "1" {
		t.Skipf("set %s=1 to run postgres integration tests", EnvFlag)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("masterhub"),
		postgres.WithUsername("masterhub"),
		postgres.WithPassword("masterhub"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("connection string: %v", err)
	}
	pool, err := db.Connect(ctx, dsn, nil)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}

// InsertUser creates a bare account row and returns its id.
func InsertUser(t *testing.T, pool *pgxpool.Pool, email, name, role string) string {
	t.Helper()
	var id string
	err := pool.QueryRow(context.Background(), `
		INSERT INTO users (email, name, role, password_hash)
		VALUES ($1, $2, $3, 'x') RETURNING id::text`, email, name, role).Scan(&id)
	if err != nil {
		t.Fatalf("insert user %s: %v", email, err)
	}
	return id
}
