package repository

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/lettercast/campaign-engine/internal/domain"
)

// MockSubscriberRepository is an in-memory SubscriberRepository for tests.
type MockSubscriberRepository struct {
	mu          sync.RWMutex
	subscribers map[uuid.UUID]*domain.Subscriber
	order       []uuid.UUID

	ListErr error
}

func NewMockSubscriberRepository() *MockSubscriberRepository {
	return &MockSubscriberRepository{subscribers: make(map[uuid.UUID]*domain.Subscriber)}
}

// Add stores a subscriber and remembers insertion order, so that
// ListSubscribedIDs returns a stable ordering like the SQL implementation.
func (m *MockSubscriberRepository) Add(s *domain.Subscriber) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.subscribers[s.ID]; !ok {
		m.order = append(m.order, s.ID)
	}
	clone := *s
	m.subscribers[s.ID] = &clone
}

func (m *MockSubscriberRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.Subscriber, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.subscribers[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *s
	return &clone, nil
}

func (m *MockSubscriberRepository) ListSubscribedIDs(_ context.Context) ([]uuid.UUID, error) {
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]uuid.UUID, 0, len(m.order))
	for _, id := range m.order {
		if s, ok := m.subscribers[id]; ok && s.IsSubscribed() {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

var _ SubscriberRepository = (*MockSubscriberRepository)(nil)
