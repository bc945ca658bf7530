package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lettercast/campaign-engine/internal/domain"
)

type pgSubscriberRepository struct {
	pool *pgxpool.Pool
}

// NewPgSubscriberRepository returns a SubscriberRepository backed by PostgreSQL.
func NewPgSubscriberRepository(pool *pgxpool.Pool) SubscriberRepository {
	return &pgSubscriberRepository{pool: pool}
}

func (r *pgSubscriberRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Subscriber, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, email, name, status, created_at
		FROM subscribers WHERE id = $1`, id)

	var s domain.Subscriber
	err := row.Scan(&s.ID, &s.Email, &s.Name, &s.Status, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get subscriber: %w", err)
	}
	return &s, nil
}

func (r *pgSubscriberRepository) ListSubscribedIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id FROM subscribers
		WHERE status = 'subscribed'
		ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list subscribed ids: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
