package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lettercast/campaign-engine/internal/domain"
)

// MockTrackingEventRepository is an in-memory TrackingEventRepository for tests.
type MockTrackingEventRepository struct {
	mu     sync.RWMutex
	events []*domain.TrackingEvent

	InsertErr      error
	ExistsSinceErr error
}

func NewMockTrackingEventRepository() *MockTrackingEventRepository {
	return &MockTrackingEventRepository{}
}

func (m *MockTrackingEventRepository) Insert(_ context.Context, e *domain.TrackingEvent) error {
	if m.InsertErr != nil {
		return m.InsertErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *e
	if e.TargetURL != nil {
		u := *e.TargetURL
		clone.TargetURL = &u
	}
	m.events = append(m.events, &clone)
	return nil
}

func (m *MockTrackingEventRepository) ExistsSince(_ context.Context, campaignID, subscriberID uuid.UUID, action domain.ActionType, targetURL *string, since time.Time) (bool, error) {
	if m.ExistsSinceErr != nil {
		return false, m.ExistsSinceErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, e := range m.events {
		if e.CampaignID != campaignID || e.SubscriberID != subscriberID || e.Action != action {
			continue
		}
		if !sameTarget(e.TargetURL, targetURL) {
			continue
		}
		if !e.OccurredAt.Before(since) {
			return true, nil
		}
	}
	return false, nil
}

func (m *MockTrackingEventRepository) AggregateStats(_ context.Context, campaignID uuid.UUID) (*domain.EngagementStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stats := &domain.EngagementStats{}
	openers := make(map[uuid.UUID]struct{})
	clickers := make(map[uuid.UUID]struct{})
	for _, e := range m.events {
		if e.CampaignID != campaignID {
			continue
		}
		switch e.Action {
		case domain.ActionOpen:
			stats.TotalOpens++
			openers[e.SubscriberID] = struct{}{}
		case domain.ActionClick:
			stats.TotalClicks++
			clickers[e.SubscriberID] = struct{}{}
		}
	}
	stats.UniqueOpens = len(openers)
	stats.UniqueClicks = len(clickers)
	return stats, nil
}

// Events returns a snapshot of everything inserted so far.
func (m *MockTrackingEventRepository) Events() []*domain.TrackingEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.TrackingEvent, len(m.events))
	copy(out, m.events)
	return out
}

// NULL-safe comparison, matching IS NOT DISTINCT FROM semantics.
func sameTarget(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

var _ TrackingEventRepository = (*MockTrackingEventRepository)(nil)
