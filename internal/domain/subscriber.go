package domain

import (
	"time"

	"github.com/google/uuid"
)

// SubscriberStatus is the opt-in state of a list member.
type SubscriberStatus string

const (
	SubscriberSubscribed   SubscriberStatus = "subscribed"
	SubscriberUnsubscribed SubscriberStatus = "unsubscribed"
)

// Subscriber is a list member. The dispatch engine only ever reads
// subscribers; list management lives outside this service.
type Subscriber struct {
	ID        uuid.UUID        `json:"id"`
	Email     string           `json:"email"`
	Name      string           `json:"name"`
	Status    SubscriberStatus `json:"status"`
	CreatedAt time.Time        `json:"created_at"`
}

// IsSubscribed reports whether the subscriber is still eligible to
// receive campaign mail. Subscribers can unsubscribe between the queue
// snapshot and their batch being processed; they are skipped silently.
func (s *Subscriber) IsSubscribed() bool {
	return s.Status == SubscriberSubscribed
}
