package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lettercast/campaign-engine/internal/domain"
)

type pgTrackingEventRepository struct {
	pool *pgxpool.Pool
}

// NewPgTrackingEventRepository returns a TrackingEventRepository backed by PostgreSQL.
func NewPgTrackingEventRepository(pool *pgxpool.Pool) TrackingEventRepository {
	return &pgTrackingEventRepository{pool: pool}
}

func (r *pgTrackingEventRepository) Insert(ctx context.Context, e *domain.TrackingEvent) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO tracking_events
			(id, campaign_id, subscriber_id, action, target_url,
			 ip_address, user_agent, occurred_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		e.ID, e.CampaignID, e.SubscriberID, e.Action, e.TargetURL,
		e.IPAddress, e.UserAgent, e.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("insert tracking event: %w", err)
	}
	return nil
}

func (r *pgTrackingEventRepository) ExistsSince(ctx context.Context, campaignID, subscriberID uuid.UUID,
	action domain.ActionType, targetURL *string, since time.Time) (bool, error) {

	var exists bool
	// IS NOT DISTINCT FROM gives NULL-safe equality on target_url.
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM tracking_events
			WHERE campaign_id = $1
			  AND subscriber_id = $2
			  AND action = $3
			  AND target_url IS NOT DISTINCT FROM $4
			  AND occurred_at >= $5
		)`, campaignID, subscriberID, action, targetURL, since).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("dedup lookup: %w", err)
	}
	return exists, nil
}

func (r *pgTrackingEventRepository) AggregateStats(ctx context.Context, campaignID uuid.UUID) (*domain.EngagementStats, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT action, COUNT(*), COUNT(DISTINCT subscriber_id)
		FROM tracking_events
		WHERE campaign_id = $1
		GROUP BY action`, campaignID)
	if err != nil {
		return nil, fmt.Errorf("aggregate stats: %w", err)
	}
	defer rows.Close()

	stats := &domain.EngagementStats{}
	for rows.Next() {
		var action domain.ActionType
		var total, unique int
		if err := rows.Scan(&action, &total, &unique); err != nil {
			return nil, err
		}
		switch action {
		case domain.ActionOpen:
			stats.TotalOpens, stats.UniqueOpens = total, unique
		case domain.ActionClick:
			stats.TotalClicks, stats.UniqueClicks = total, unique
		}
	}
	return stats, rows.Err()
}
