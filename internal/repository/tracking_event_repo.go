package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/lettercast/campaign-engine/internal/domain"
)

// TrackingEventRepository defines persistence for open/click events.
type TrackingEventRepository interface {
	Insert(ctx context.Context, e *domain.TrackingEvent) error

	// ExistsSince reports whether an event with the same
	// (campaign, subscriber, action, target_url) tuple was recorded at or
	// after the given instant. target_url is compared NULL-safe: two nil
	// values match, nil never matches a concrete URL.
	ExistsSince(ctx context.Context, campaignID, subscriberID uuid.UUID,
		action domain.ActionType, targetURL *string, since time.Time) (bool, error)

	// AggregateStats computes total and distinct-subscriber counts per
	// action type for one campaign. A campaign with no events yields the
	// zero value, not an error.
	AggregateStats(ctx context.Context, campaignID uuid.UUID) (*domain.EngagementStats, error)
}
