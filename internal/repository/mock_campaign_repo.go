package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lettercast/campaign-engine/internal/domain"
)

// MockCampaignRepository is a hand-written, in-memory implementation of
// CampaignRepository used in unit tests. No mock-generation library needed.
// Conditional transitions are checked under one mutex, which mirrors the
// atomicity the SQL implementation gets from single conditional UPDATEs.
type MockCampaignRepository struct {
	mu        sync.RWMutex
	campaigns map[uuid.UUID]*domain.Campaign

	// Optional error overrides — set in tests to simulate failure paths.
	CreateErr       error
	GetByIDErr      error
	BeginSendingErr error
	FinalizeErr     error
}

func NewMockCampaignRepository() *MockCampaignRepository {
	return &MockCampaignRepository{campaigns: make(map[uuid.UUID]*domain.Campaign)}
}

func (m *MockCampaignRepository) Create(_ context.Context, c *domain.Campaign) error {
	if m.CreateErr != nil {
		return m.CreateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *c
	m.campaigns[c.ID] = &clone
	return nil
}

func (m *MockCampaignRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.Campaign, error) {
	if m.GetByIDErr != nil {
		return nil, m.GetByIDErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.campaigns[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *c
	return &clone, nil
}

func (m *MockCampaignRepository) List(_ context.Context, f domain.ListFilter) ([]*domain.Campaign, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Campaign
	for _, c := range m.campaigns {
		if f.Status != nil && c.Status != *f.Status {
			continue
		}
		clone := *c
		result = append(result, &clone)
	}
	return result, len(result), nil
}

func (m *MockCampaignRepository) FindByStatus(_ context.Context, status domain.Status) ([]*domain.Campaign, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Campaign
	for _, c := range m.campaigns {
		if c.Status == status {
			clone := *c
			result = append(result, &clone)
		}
	}
	return result, nil
}

func (m *MockCampaignRepository) MarkScheduled(_ context.Context, id uuid.UUID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[id]
	if !ok {
		return domain.ErrNotFound
	}
	if c.Status != domain.StatusDraft && c.Status != domain.StatusScheduled {
		return m.conflict(c)
	}
	c.Status = domain.StatusScheduled
	t := at
	c.ScheduledAt = &t
	c.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *MockCampaignRepository) ClearSchedule(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[id]
	if !ok {
		return domain.ErrNotFound
	}
	if c.Status != domain.StatusScheduled {
		return m.conflict(c)
	}
	c.Status = domain.StatusDraft
	c.ScheduledAt = nil
	c.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *MockCampaignRepository) BeginSending(_ context.Context, id uuid.UUID, recipientsCount int) error {
	if m.BeginSendingErr != nil {
		return m.BeginSendingErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[id]
	if !ok {
		return domain.ErrNotFound
	}
	switch c.Status {
	case domain.StatusSending, domain.StatusSent, domain.StatusArchived:
		return m.conflict(c)
	}
	c.Status = domain.StatusSending
	c.RecipientsCount = recipientsCount
	c.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *MockCampaignRepository) Finalize(_ context.Context, id uuid.UUID, sentAt time.Time) (bool, error) {
	if m.FinalizeErr != nil {
		return false, m.FinalizeErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if c.Status != domain.StatusSending {
		return false, nil
	}
	c.Status = domain.StatusSent
	t := sentAt
	c.SentAt = &t
	c.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (m *MockCampaignRepository) Archive(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[id]
	if !ok {
		return domain.ErrNotFound
	}
	if c.Status != domain.StatusDraft && c.Status != domain.StatusSent {
		return m.conflict(c)
	}
	c.Status = domain.StatusArchived
	c.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *MockCampaignRepository) conflict(c *domain.Campaign) error {
	switch c.Status {
	case domain.StatusSending:
		return domain.ErrAlreadySending
	case domain.StatusSent:
		return domain.ErrAlreadySent
	default:
		return domain.ErrInvalidStatus
	}
}

var _ CampaignRepository = (*MockCampaignRepository)(nil)
