// Package postgres writes audit events to a transactional outbox table. A
// relay worker later forwards pending rows to the configured sink.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	audit "tripmate/pkg/platform/audit"
)

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Store implements audit.Store over the audit_outbox table.
type Store struct {
	db dbExecutor
}

// New creates an outbox store on a connection pool.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// NewTx binds the store to tx so the event commits with the caller's writes.
func NewTx(tx *sql.Tx) *Store {
	return &Store{db: tx}
}

// Entry is one pending outbox row.
type Entry struct {
	ID    string
	Event audit.Event
}

// Append writes event to the outbox.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	payload, err := audit.MarshalEvent(event)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO audit_outbox (id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := s.db.ExecContext(ctx, query, event.ID, event.Action, payload, event.Timestamp); err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}
	return nil
}

// Pending returns up to limit unpublished entries, oldest first.
func (s *Store) Pending(ctx context.Context, limit int) ([]Entry, error) {
	query := `
		SELECT id, payload
		FROM audit_outbox
		WHERE published_at IS NULL
		ORDER BY created_at
		LIMIT $1
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query pending outbox: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var id string
		var payload []byte
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, fmt.Errorf("scan outbox entry: %w", err)
		}
		event, err := audit.UnmarshalEvent(payload)
		if err != nil {
			return nil, fmt.Errorf("outbox entry %s: %w", id, err)
		}
		entries = append(entries, Entry{ID: id, Event: event})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox: %w", err)
	}
	return entries, nil
}

// MarkPublished stamps entries as forwarded.
func (s *Store) MarkPublished(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	query := `UPDATE audit_outbox SET published_at = NOW() WHERE id = ANY($1)`
	if _, err := s.db.ExecContext(ctx, query, ids); err != nil {
		return fmt.Errorf("mark outbox published: %w", err)
	}
	return nil
}
