//go:build integration

package containers

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// schema is the full DDL for every table the stores use. It mirrors the
// schema documented on each Postgres store.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id UUID PRIMARY KEY,
    email TEXT NOT NULL UNIQUE,
    password_hash BYTEA NOT NULL,
    role TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS trust_policies (
    id UUID PRIMARY KEY,
    name TEXT NOT NULL UNIQUE,
    owner_id UUID NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    threshold DOUBLE PRECISION NOT NULL,
    weights JSONB NOT NULL DEFAULT '{}',
    active BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS devices (
    id UUID PRIMARY KEY,
    user_id UUID NOT NULL,
    name TEXT NOT NULL,
    fingerprint TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS posture_checkpoints (
    id BIGSERIAL PRIMARY KEY,
    device_id UUID NOT NULL REFERENCES devices(id) ON DELETE CASCADE,
    checkpoint TEXT NOT NULL,
    status TEXT NOT NULL,
    recorded_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS posture_checkpoints_device_idx
    ON posture_checkpoints (device_id, checkpoint, recorded_at DESC);

CREATE TABLE IF NOT EXISTS access_attempts (
    id UUID PRIMARY KEY,
    user_id UUID NOT NULL,
    device_id UUID,
    ip TEXT NOT NULL,
    ts TIMESTAMPTZ NOT NULL,
    decision TEXT NOT NULL,
    reason TEXT NOT NULL,
    total_score DOUBLE PRECISION NOT NULL,
    policy_id UUID
);
CREATE INDEX IF NOT EXISTS access_attempts_user_idx
    ON access_attempts (user_id, ts DESC);

CREATE TABLE IF NOT EXISTS attempt_details (
    attempt_id UUID NOT NULL REFERENCES access_attempts(id) ON DELETE CASCADE,
    factor TEXT NOT NULL,
    contribution DOUBLE PRECISION NOT NULL,
    position INT NOT NULL,
    PRIMARY KEY (attempt_id, factor)
);

CREATE TABLE IF NOT EXISTS audit_events (
    id UUID PRIMARY KEY,
    category TEXT NOT NULL,
    occurred_at TIMESTAMPTZ NOT NULL,
    user_id UUID,
    subject TEXT NOT NULL DEFAULT '',
    action TEXT NOT NULL,
    decision TEXT NOT NULL DEFAULT '',
    reason TEXT NOT NULL DEFAULT '',
    client_ip TEXT NOT NULL DEFAULT '',
    request_id TEXT NOT NULL DEFAULT '',
    actor_id TEXT NOT NULL DEFAULT ''
);
`

// PostgresContainer wraps a testcontainers Postgres instance with an open
// connection pool and the schema applied.
type PostgresContainer struct {
	Container testcontainers.Container
	DB        *sql.DB
	URL       string
}

// NewPostgresContainer starts a Postgres container and applies the schema.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("modzero"),
		tcpostgres.WithUsername("modzero"),
		tcpostgres.WithPassword("modzero"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	url, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get postgres connection string: %v", err)
	}

	db, err := sql.Open("pgx", url)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to open postgres connection: %v", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to ping postgres: %v", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to apply schema: %v", err)
	}

	return &PostgresContainer{
		Container: container,
		DB:        db,
		URL:       url,
	}
}

// TruncateTables clears the given tables. Use between tests for isolation.
func (p *PostgresContainer) TruncateTables(ctx context.Context, tables ...string) error {
	if len(tables) == 0 {
		return nil
	}
	query := fmt.Sprintf("TRUNCATE %s CASCADE", strings.Join(tables, ", "))
	if _, err := p.DB.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("truncate tables: %w", err)
	}
	return nil
}
