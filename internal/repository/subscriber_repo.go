package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/lettercast/campaign-engine/internal/domain"
)

// SubscriberRepository is the read surface the dispatch engine needs from
// the subscriber store. List management (imports, unsubscribes, CRUD) is
// owned by a different service; this one only snapshots eligible ids and
// resolves individual subscribers at send time.
type SubscriberRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Subscriber, error)

	// ListSubscribedIDs returns the ids of all currently subscribed
	// members in a stable order. Used to snapshot the recipient queue
	// when a campaign enters sending.
	ListSubscribedIDs(ctx context.Context) ([]uuid.UUID, error)
}
