package domain

import (
	"time"

	"github.com/google/uuid"
)

// ActionType is the kind of engagement a tracking event records.
type ActionType string

const (
	ActionOpen  ActionType = "open"
	ActionClick ActionType = "click"
)

func (a ActionType) IsValid() bool {
	return a == ActionOpen || a == ActionClick
}

// TrackingEvent is one recorded open or click. TargetURL is set only for
// clicks. Events are append-only; dedup happens at record time, not by a
// uniqueness constraint, because repeat engagement outside the dedup
// window is legitimately recorded again.
type TrackingEvent struct {
	ID           uuid.UUID  `json:"id"`
	CampaignID   uuid.UUID  `json:"campaign_id"`
	SubscriberID uuid.UUID  `json:"subscriber_id"`
	Action       ActionType `json:"action"`
	TargetURL    *string    `json:"target_url,omitempty"`
	IPAddress    string     `json:"ip_address,omitempty"`
	UserAgent    string     `json:"user_agent,omitempty"`
	OccurredAt   time.Time  `json:"occurred_at"`
}

// EngagementStats is the aggregate view of a campaign's tracking events.
// Unique counts are distinct subscribers per action type.
type EngagementStats struct {
	TotalOpens   int `json:"total_opens"`
	UniqueOpens  int `json:"unique_opens"`
	TotalClicks  int `json:"total_clicks"`
	UniqueClicks int `json:"unique_clicks"`
}
