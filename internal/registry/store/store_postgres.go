package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"tripmate/internal/registry/models"
	"tripmate/pkg/platform/sentinel"
	"tripmate/pkg/requestcontext"
)

// PostgresStore reads and writes the user_selfies table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Insert(ctx context.Context, selfie *models.Selfie) error {
	if selfie.CreatedAt.IsZero() {
		selfie.CreatedAt = requestcontext.Now(ctx)
	}
	query := `
		INSERT INTO user_selfies (phone_number, selfie, created_at)
		VALUES ($1, $2, $3)
		RETURNING id
	`
	if err := s.db.QueryRowContext(ctx, query, selfie.Phone, selfie.Image, selfie.CreatedAt).Scan(&selfie.ID); err != nil {
		return fmt.Errorf("insert selfie: %w", err)
	}
	return nil
}

func (s *PostgresStore) LatestByPhone(ctx context.Context, phone string) (*models.Selfie, error) {
	query := `
		SELECT id, phone_number, selfie, created_at
		FROM user_selfies
		WHERE phone_number = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`
	var sf models.Selfie
	err := s.db.QueryRowContext(ctx, query, phone).Scan(&sf.ID, &sf.Phone, &sf.Image, &sf.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find latest selfie: %w", err)
	}
	return &sf, nil
}

func (s *PostgresStore) ListRegistrations(ctx context.Context) ([]models.Registration, error) {
	query := `
		SELECT id, phone_number, created_at
		FROM user_selfies
		ORDER BY created_at DESC, id DESC
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	defer rows.Close()

	out := []models.Registration{}
	for rows.Next() {
		var r models.Registration
		if err := rows.Scan(&r.ID, &r.Phone, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate registrations: %w", err)
	}
	return out, nil
}
