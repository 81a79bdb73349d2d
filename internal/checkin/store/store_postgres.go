package store

import (
	"context"
	"database/sql"
	"fmt"

	"tripmate/internal/checkin/models"
	"tripmate/pkg/requestcontext"
)

type dbExecutor interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// PostgresStore persists trips in trip_details.
type PostgresStore struct {
	db dbExecutor
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// NewPostgresTx binds the store to an open transaction.
func NewPostgresTx(tx *sql.Tx) *PostgresStore {
	return &PostgresStore{db: tx}
}

func (s *PostgresStore) Insert(ctx context.Context, trip *models.Trip) error {
	if trip.CheckinTime.IsZero() {
		trip.CheckinTime = requestcontext.Now(ctx)
	}
	query := `
		INSERT INTO trip_details (phone_number, trip_number, checkin_time)
		VALUES ($1, $2, $3)
		RETURNING id
	`
	if err := s.db.QueryRowContext(ctx, query, trip.Phone, trip.TripNumber, trip.CheckinTime).Scan(&trip.ID); err != nil {
		return fmt.Errorf("insert trip: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByPhone(ctx context.Context, phone string) ([]models.Trip, error) {
	query := `
		SELECT id, phone_number, trip_number, checkin_time
		FROM trip_details
		WHERE phone_number = $1
		ORDER BY checkin_time, id
	`
	rows, err := s.db.QueryContext(ctx, query, phone)
	if err != nil {
		return nil, fmt.Errorf("list trips: %w", err)
	}
	defer rows.Close()

	out := []models.Trip{}
	for rows.Next() {
		var t models.Trip
		if err := rows.Scan(&t.ID, &t.Phone, &t.TripNumber, &t.CheckinTime); err != nil {
			return nil, fmt.Errorf("scan trip: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trips: %w", err)
	}
	return out, nil
}
