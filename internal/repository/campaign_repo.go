package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/lettercast/campaign-engine/internal/domain"
)

// CampaignRepository defines all persistence operations for campaigns.
// The pgx implementation is in pg_campaign_repo.go.
// Tests use a hand-written mock (mock_campaign_repo.go).
//
// State transitions are conditional UPDATEs checked by rows-affected so
// that concurrent callers race on the database row, not on an in-process
// read-then-write.
type CampaignRepository interface {
	Create(ctx context.Context, c *domain.Campaign) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Campaign, error)
	List(ctx context.Context, filter domain.ListFilter) ([]*domain.Campaign, int, error)
	FindByStatus(ctx context.Context, status domain.Status) ([]*domain.Campaign, error)

	// MarkScheduled moves a draft or scheduled campaign to scheduled with
	// the given fire time. Returns ErrInvalidStatus if the campaign is in
	// any other state, ErrNotFound if it does not exist.
	MarkScheduled(ctx context.Context, id uuid.UUID, at time.Time) error

	// ClearSchedule moves a scheduled campaign back to draft.
	ClearSchedule(ctx context.Context, id uuid.UUID) error

	// BeginSending atomically flips the campaign into sending and fixes
	// recipients_count, guarded by status NOT IN (sending, sent, archived).
	// Exactly one of two concurrent callers wins; the loser receives
	// ErrAlreadySending, ErrAlreadySent, or ErrInvalidStatus depending on
	// the state the winner (or a prior operation) left behind.
	BeginSending(ctx context.Context, id uuid.UUID, recipientsCount int) error

	// Finalize moves a sending campaign to sent. Returns true if this call
	// performed the transition, false if the campaign was not in sending
	// (already finalized by a concurrent batch, or never started).
	Finalize(ctx context.Context, id uuid.UUID, sentAt time.Time) (bool, error)

	// Archive moves a draft or sent campaign to archived.
	Archive(ctx context.Context, id uuid.UUID) error
}
