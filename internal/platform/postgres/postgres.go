// Package postgres opens the shared database handle and bootstraps the schema
// used by the selfie registry, trip store and audit outbox.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
)

const schema = `
CREATE TABLE IF NOT EXISTS user_selfies (
	id           BIGSERIAL PRIMARY KEY,
	phone_number VARCHAR(15) NOT NULL,
	selfie       BYTEA NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_user_selfies_phone_created
	ON user_selfies (phone_number, created_at DESC);

CREATE TABLE IF NOT EXISTS trip_details (
	id           BIGSERIAL PRIMARY KEY,
	phone_number VARCHAR(15) NOT NULL,
	trip_number  INTEGER NOT NULL CHECK (trip_number >= 1),
	checkin_time TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_trip_details_phone ON trip_details (phone_number);

CREATE TABLE IF NOT EXISTS audit_outbox (
	id           TEXT PRIMARY KEY,
	event_type   TEXT NOT NULL,
	payload      JSONB NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL,
	published_at TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_audit_outbox_pending
	ON audit_outbox (created_at) WHERE published_at IS NULL;
`

// Open connects to databaseURL with the pgx driver and verifies the connection.
func Open(ctx context.Context, databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// Migrate creates the tables if they do not exist.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}
