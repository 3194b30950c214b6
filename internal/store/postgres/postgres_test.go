package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/neegandary/NexChat/internal/store"
	"github.com/neegandary/NexChat/internal/store/storetest"
)

// TestPostgresStoreCompliance runs the shared store suite against real
// PostgreSQL. Set CHAT_TEST_POSTGRES_DSN to reuse an existing database;
// otherwise a disposable container is started via Docker.
func TestPostgresStoreCompliance(t *testing.T) {
	if testing.Short() {
		t.Skip("needs Docker or CHAT_TEST_POSTGRES_DSN")
	}
	ctx := context.Background()

	dsn := os.Getenv("CHAT_TEST_POSTGRES_DSN")
	if dsn == "" {
		dsn = startPostgres(ctx, t)
	}

	db, err := Open(dsn)
	if err != nil {
		t.Fatalf("open postgres: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	storetest.Run(t, func(t *testing.T) store.Store {
		resetSchema(ctx, t, db)
		return NewWithDB(db)
	})
}

func startPostgres(ctx context.Context, t *testing.T) string {
	t.Helper()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "chat",
			"POSTGRES_PASSWORD": "chat",
			"POSTGRES_DB":       "chat_test",
		},
		// Postgres restarts once during init, so wait for the second
		// ready line before connecting.
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("cannot start postgres container (is Docker available?): %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("container port: %v", err)
	}
	return fmt.Sprintf("postgres://chat:chat@%s:%s/chat_test?sslmode=disable", host, port.Port())
}

// resetSchema drops and recreates the tables so the suite always starts
// clean, even against a long-lived database supplied via the env var.
func resetSchema(ctx context.Context, t *testing.T, db *sql.DB) {
	t.Helper()
	if _, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS messages, conversations, profiles CASCADE`); err != nil {
		t.Fatalf("drop tables: %v", err)
	}
	if err := EnsureSchema(ctx, db); err != nil {
		t.Fatalf("apply schema: %v", err)
	}
}
