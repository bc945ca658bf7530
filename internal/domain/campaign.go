package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status tracks the lifecycle of a campaign.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusScheduled Status = "scheduled"
	StatusSending   Status = "sending"
	StatusSent      Status = "sent"
	StatusArchived  Status = "archived"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusDraft, StatusScheduled, StatusSending, StatusSent, StatusArchived:
		return true
	}
	return false
}

// CanTransitionTo encodes the campaign state machine:
//
//	draft     → scheduled | sending | archived
//	scheduled → sending | draft (explicit unschedule)
//	sending   → sent (only)
//	sent      → archived
//	archived  → (terminal)
//
// Repositories enforce this physically with conditional UPDATEs; this
// method is the in-memory source of truth for validation and tests.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusDraft:
		return next == StatusScheduled || next == StatusSending || next == StatusArchived
	case StatusScheduled:
		return next == StatusSending || next == StatusDraft
	case StatusSending:
		return next == StatusSent
	case StatusSent:
		return next == StatusArchived
	}
	return false
}

// Campaign is one bulk email send job with its own content, schedule,
// and status. RecipientsCount is written exactly once, when the campaign
// enters sending (or is finalized with an empty recipient set); it never
// decreases afterwards.
type Campaign struct {
	ID              uuid.UUID  `json:"id"`
	Subject         string     `json:"subject"`
	Content         string     `json:"content"`
	Status          Status     `json:"status"`
	ScheduledAt     *time.Time `json:"scheduled_at,omitempty"`
	SentAt          *time.Time `json:"sent_at,omitempty"`
	RecipientsCount int        `json:"recipients_count"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// CreateCampaignRequest is the inbound payload for a new draft campaign.
type CreateCampaignRequest struct {
	Subject string `json:"subject"`
	Content string `json:"content"`
}

func (r *CreateCampaignRequest) Validate() error {
	if strings.TrimSpace(r.Subject) == "" {
		return ErrInvalidSubject
	}
	if strings.TrimSpace(r.Content) == "" {
		return ErrInvalidContent
	}
	return nil
}

// ListFilter holds query parameters for paginated campaign listing.
type ListFilter struct {
	Status *Status
	Page   int
	Limit  int
}
