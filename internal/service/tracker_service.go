package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lettercast/campaign-engine/internal/domain"
	"github.com/lettercast/campaign-engine/internal/repository"
)

// TrackerHooks observes recorded and deduplicated events. Fields may be nil.
type TrackerHooks struct {
	EventRecorded func(action string)
	EventDeduped  func(action string)
}

func (h TrackerHooks) eventRecorded(action domain.ActionType) {
	if h.EventRecorded != nil {
		h.EventRecorded(string(action))
	}
}

func (h TrackerHooks) eventDeduped(action domain.ActionType) {
	if h.EventDeduped != nil {
		h.EventDeduped(string(action))
	}
}

// TrackerService records engagement events and serves aggregated stats.
type TrackerService struct {
	events      repository.TrackingEventRepository
	hooks       TrackerHooks
	logger      *zap.Logger
	dedupWindow time.Duration
}

func NewTrackerService(
	events repository.TrackingEventRepository,
	hooks TrackerHooks,
	logger *zap.Logger,
	dedupWindow time.Duration,
) *TrackerService {
	return &TrackerService{
		events:      events,
		hooks:       hooks,
		logger:      logger,
		dedupWindow: dedupWindow,
	}
}

// RecordEvent stores one open or click unless an equal event landed within
// the dedup window. Equality covers campaign, subscriber, action, and target
// URL, with two NULL targets counting as equal. The duplicate result is true
// only when the event was suppressed; a freshly stored event returns false.
//
// A failed dedup lookup is logged and the event recorded anyway; losing the
// window briefly only risks an extra row, never a lost event.
func (s *TrackerService) RecordEvent(ctx context.Context, e *domain.TrackingEvent) (duplicate bool, err error) {
	if !e.Action.IsValid() {
		return false, domain.ErrInvalidAction
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}

	since := e.OccurredAt.Add(-s.dedupWindow)
	dup, err := s.events.ExistsSince(ctx, e.CampaignID, e.SubscriberID, e.Action, e.TargetURL, since)
	if err != nil {
		s.logger.Warn("dedup lookup failed, recording anyway",
			zap.String("campaign_id", e.CampaignID.String()),
			zap.Error(err))
	} else if dup {
		s.hooks.eventDeduped(e.Action)
		return true, nil
	}

	if err := s.events.Insert(ctx, e); err != nil {
		return false, err
	}
	s.hooks.eventRecorded(e.Action)
	return false, nil
}

// Stats returns the aggregated engagement counters for a campaign.
func (s *TrackerService) Stats(ctx context.Context, campaignID uuid.UUID) (*domain.EngagementStats, error) {
	return s.events.AggregateStats(ctx, campaignID)
}
