package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lettercast/campaign-engine/internal/domain"
	"github.com/lettercast/campaign-engine/internal/mailer"
	"github.com/lettercast/campaign-engine/internal/queue"
	"github.com/lettercast/campaign-engine/internal/ratelimiter"
	"github.com/lettercast/campaign-engine/internal/repository"
	"github.com/lettercast/campaign-engine/internal/scheduler"
	"github.com/lettercast/campaign-engine/internal/tracking"
)

const testSubjectPrefix = "[Test] "

// Lock is the slice of distributed locking the dispatcher needs.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// LockFactory creates a fresh lock instance for a key. Each batch run gets
// its own instance so ownership tokens are never shared.
type LockFactory func(key string) Lock

// MetricHooks lets the caller observe dispatch outcomes without the service
// depending on a metrics registry. Any field may be nil.
type MetricHooks struct {
	EmailSent         func()
	EmailSendFailure  func()
	CampaignStarted   func()
	CampaignFinalized func()
	BatchDuration     func(seconds float64)
}

func (h MetricHooks) campaignStarted() {
	if h.CampaignStarted != nil {
		h.CampaignStarted()
	}
}

func (h MetricHooks) emailSent() {
	if h.EmailSent != nil {
		h.EmailSent()
	}
}

func (h MetricHooks) emailSendFailure() {
	if h.EmailSendFailure != nil {
		h.EmailSendFailure()
	}
}

func (h MetricHooks) campaignFinalized() {
	if h.CampaignFinalized != nil {
		h.CampaignFinalized()
	}
}

func (h MetricHooks) batchDuration(seconds float64) {
	if h.BatchDuration != nil {
		h.BatchDuration(seconds)
	}
}

// DispatchService owns the campaign lifecycle: scheduling, batch dispatch,
// and finalization. All state transitions go through conditional repository
// updates, so concurrent triggers and API calls cannot race a campaign into
// an invalid status.
type DispatchService struct {
	campaigns   repository.CampaignRepository
	subscribers repository.SubscriberRepository
	recipients  *queue.RecipientQueue
	triggers    scheduler.TriggerRegistry
	sender      mailer.Sender
	injector    *tracking.Injector
	pacer       *ratelimiter.SendPacer
	locks       LockFactory
	hooks       MetricHooks
	logger      *zap.Logger

	batchSize     int
	batchInterval time.Duration
}

type DispatchConfig struct {
	BatchSize     int
	BatchInterval time.Duration
}

func NewDispatchService(
	campaigns repository.CampaignRepository,
	subscribers repository.SubscriberRepository,
	recipients *queue.RecipientQueue,
	triggers scheduler.TriggerRegistry,
	sender mailer.Sender,
	injector *tracking.Injector,
	pacer *ratelimiter.SendPacer,
	locks LockFactory,
	hooks MetricHooks,
	logger *zap.Logger,
	cfg DispatchConfig,
) *DispatchService {
	return &DispatchService{
		campaigns:     campaigns,
		subscribers:   subscribers,
		recipients:    recipients,
		triggers:      triggers,
		sender:        sender,
		injector:      injector,
		pacer:         pacer,
		locks:         locks,
		hooks:         hooks,
		logger:        logger,
		batchSize:     cfg.BatchSize,
		batchInterval: cfg.BatchInterval,
	}
}

func initTriggerName(id uuid.UUID) string {
	return fmt.Sprintf("campaign:%s:init", id)
}

func processTriggerName(id uuid.UUID) string {
	return fmt.Sprintf("campaign:%s:process", id)
}

func batchLockKey(id uuid.UUID) string {
	return fmt.Sprintf("campaign:%s:batch", id)
}

// Create validates and persists a new draft campaign.
func (s *DispatchService) Create(ctx context.Context, req domain.CreateCampaignRequest) (*domain.Campaign, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	c := &domain.Campaign{
		ID:        uuid.New(),
		Subject:   req.Subject,
		Content:   req.Content,
		Status:    domain.StatusDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.campaigns.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("persist campaign: %w", err)
	}
	s.logger.Info("campaign created", zap.String("campaign_id", c.ID.String()))
	return c, nil
}

// Get returns a campaign and, while it is sending, how many recipients are
// still queued.
func (s *DispatchService) Get(ctx context.Context, id uuid.UUID) (*domain.Campaign, int64, error) {
	c, err := s.campaigns.GetByID(ctx, id)
	if err != nil {
		return nil, 0, err
	}
	var pending int64
	if c.Status == domain.StatusSending {
		pending, err = s.recipients.Len(ctx, id)
		if err != nil {
			s.logger.Warn("queue length lookup failed",
				zap.String("campaign_id", id.String()), zap.Error(err))
			pending = 0
		}
	}
	return c, pending, nil
}

// List returns campaigns matching the filter plus the total match count.
func (s *DispatchService) List(ctx context.Context, f domain.ListFilter) ([]*domain.Campaign, int, error) {
	return s.campaigns.List(ctx, f)
}

// Schedule arms a one-shot trigger that will start the send at the given
// time. The trigger is registered before the status flips so a crash between
// the two steps leaves a draft, never a scheduled campaign nobody will fire.
func (s *DispatchService) Schedule(ctx context.Context, id uuid.UUID, at time.Time) error {
	if !at.After(time.Now()) {
		return domain.ErrScheduleInPast
	}
	if _, err := s.campaigns.GetByID(ctx, id); err != nil {
		return err
	}

	name := initTriggerName(id)
	err := s.triggers.ScheduleOnce(name, at, func() {
		if err := s.InitiateSending(context.Background(), id); err != nil &&
			!errors.Is(err, domain.ErrNoSubscribers) {
			s.logger.Error("scheduled send failed",
				zap.String("campaign_id", id.String()), zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("register trigger: %w", err)
	}

	if err := s.campaigns.MarkScheduled(ctx, id, at); err != nil {
		s.triggers.Cancel(name)
		return err
	}
	s.logger.Info("campaign scheduled",
		zap.String("campaign_id", id.String()), zap.Time("at", at))
	return nil
}

// Unschedule cancels a pending scheduled send and returns the campaign to
// draft.
func (s *DispatchService) Unschedule(ctx context.Context, id uuid.UUID) error {
	if err := s.campaigns.ClearSchedule(ctx, id); err != nil {
		return err
	}
	s.triggers.Cancel(initTriggerName(id))
	s.logger.Info("campaign unscheduled", zap.String("campaign_id", id.String()))
	return nil
}

// InitiateSending snapshots the subscriber set, flips the campaign to
// sending, and arms the recurring batch trigger. The conditional status
// update makes this safe to call twice; the loser gets ErrAlreadySending.
func (s *DispatchService) InitiateSending(ctx context.Context, id uuid.UUID) error {
	recipientIDs, err := s.subscribers.ListSubscribedIDs(ctx)
	if err != nil {
		return fmt.Errorf("list subscribers: %w", err)
	}

	if err := s.campaigns.BeginSending(ctx, id, len(recipientIDs)); err != nil {
		return err
	}
	s.hooks.campaignStarted()
	s.triggers.Cancel(initTriggerName(id))

	if len(recipientIDs) == 0 {
		s.finalize(ctx, id)
		s.logger.Warn("campaign has no recipients", zap.String("campaign_id", id.String()))
		return domain.ErrNoSubscribers
	}

	if err := s.recipients.Snapshot(ctx, id, recipientIDs); err != nil {
		// The status CAS already won, but a tick against the missing
		// queue would finalize the campaign with zero emails out. Retry
		// the snapshot on the batch trigger until it lands.
		s.logger.Error("snapshot recipients failed, retrying on batch trigger",
			zap.String("campaign_id", id.String()), zap.Error(err))
		s.armSnapshotRetry(id, recipientIDs)
		return fmt.Errorf("snapshot recipients: %w", err)
	}
	s.armProcessTrigger(id)

	s.logger.Info("campaign sending started",
		zap.String("campaign_id", id.String()),
		zap.Int("recipients", len(recipientIDs)))
	return nil
}

func (s *DispatchService) armProcessTrigger(id uuid.UUID) {
	err := s.triggers.ScheduleRecurring(processTriggerName(id), s.batchInterval, func() {
		if err := s.ProcessBatch(context.Background(), id); err != nil {
			s.logger.Error("batch processing failed",
				zap.String("campaign_id", id.String()), zap.Error(err))
		}
	})
	if err != nil {
		s.logger.Error("arm batch trigger",
			zap.String("campaign_id", id.String()), zap.Error(err))
	}
}

// armSnapshotRetry replaces the batch trigger with one that re-attempts the
// recipient snapshot before any claiming happens. Once the snapshot lands the
// normal batch trigger takes over.
func (s *DispatchService) armSnapshotRetry(id uuid.UUID, recipientIDs []uuid.UUID) {
	err := s.triggers.ScheduleRecurring(processTriggerName(id), s.batchInterval, func() {
		ctx := context.Background()
		if err := s.recipients.Snapshot(ctx, id, recipientIDs); err != nil {
			s.logger.Error("retry recipient snapshot",
				zap.String("campaign_id", id.String()), zap.Error(err))
			return
		}
		s.armProcessTrigger(id)
		if err := s.ProcessBatch(ctx, id); err != nil {
			s.logger.Error("batch processing failed",
				zap.String("campaign_id", id.String()), zap.Error(err))
		}
	})
	if err != nil {
		s.logger.Error("arm snapshot retry trigger",
			zap.String("campaign_id", id.String()), zap.Error(err))
	}
}

// ProcessBatch claims and sends one batch of recipients. A distributed lock
// keeps overlapping trigger ticks from double-claiming; a tick that loses
// the lock simply skips, the next tick picks the work up.
func (s *DispatchService) ProcessBatch(ctx context.Context, id uuid.UUID) error {
	lock := s.locks(batchLockKey(id))
	acquired, err := lock.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire batch lock: %w", err)
	}
	if !acquired {
		s.logger.Debug("batch already in flight", zap.String("campaign_id", id.String()))
		return nil
	}
	defer func() {
		if err := lock.Release(ctx); err != nil {
			s.logger.Warn("release batch lock",
				zap.String("campaign_id", id.String()), zap.Error(err))
		}
	}()

	started := time.Now()
	defer func() { s.hooks.batchDuration(time.Since(started).Seconds()) }()

	campaign, err := s.campaigns.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.triggers.Cancel(processTriggerName(id))
			if derr := s.recipients.Delete(ctx, id); derr != nil {
				s.logger.Warn("drop queue of missing campaign", zap.Error(derr))
			}
			return nil
		}
		return fmt.Errorf("load campaign: %w", err)
	}
	if campaign.Status != domain.StatusSending {
		// Stale trigger from a previous process lifetime.
		s.triggers.Cancel(processTriggerName(id))
		return nil
	}

	batch, remaining, err := s.recipients.Claim(ctx, id, s.batchSize)
	if err != nil {
		return fmt.Errorf("claim batch: %w", err)
	}
	if len(batch) == 0 {
		// Queue drained or expired; either way the campaign is done.
		s.finalize(ctx, id)
		return nil
	}

	for i, subscriberID := range batch {
		sub, err := s.subscribers.GetByID(ctx, subscriberID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			s.requeue(id, batch[i:])
			return fmt.Errorf("load subscriber %s: %w", subscriberID, err)
		}
		if !sub.IsSubscribed() {
			continue
		}

		html := s.injector.Inject(campaign.Content, id, sub.ID)
		if err := s.pacer.Wait(ctx); err != nil {
			s.requeue(id, batch[i:])
			return fmt.Errorf("rate limiter: %w", err)
		}
		msg := &mailer.Message{To: sub.Email, Subject: campaign.Subject, HTML: html}
		if err := s.sender.Send(ctx, msg); err != nil {
			// One bad recipient must not sink the batch.
			s.hooks.emailSendFailure()
			s.logger.Error("send failed",
				zap.String("campaign_id", id.String()),
				zap.String("subscriber_id", sub.ID.String()),
				zap.Error(err))
			continue
		}
		s.hooks.emailSent()
	}

	s.logger.Info("batch dispatched",
		zap.String("campaign_id", id.String()),
		zap.Int("batch", len(batch)),
		zap.Int64("remaining", remaining))

	if remaining == 0 {
		s.finalize(ctx, id)
	}
	return nil
}

// requeue puts claimed-but-unprocessed recipients back at the head of the
// queue when a batch aborts, so the next trigger fire picks them up instead
// of losing them, and the campaign never finalizes past them. A fresh
// context is used: the abort may stem from the caller's context dying.
func (s *DispatchService) requeue(id uuid.UUID, recipientIDs []uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.recipients.Requeue(ctx, id, recipientIDs); err != nil {
		s.logger.Error("requeue unprocessed recipients",
			zap.String("campaign_id", id.String()),
			zap.Int("count", len(recipientIDs)),
			zap.Error(err))
	}
}

// finalize flips the campaign to sent and tears the dispatch machinery down.
// The conditional update makes it idempotent: only the first caller records
// sent_at and counts the finalization.
func (s *DispatchService) finalize(ctx context.Context, id uuid.UUID) {
	flipped, err := s.campaigns.Finalize(ctx, id, time.Now().UTC())
	if err != nil {
		s.logger.Error("finalize campaign",
			zap.String("campaign_id", id.String()), zap.Error(err))
		return
	}
	s.triggers.Cancel(processTriggerName(id))
	if err := s.recipients.Delete(ctx, id); err != nil {
		s.logger.Warn("drop recipient queue",
			zap.String("campaign_id", id.String()), zap.Error(err))
	}
	if flipped {
		s.hooks.campaignFinalized()
		s.logger.Info("campaign finalized", zap.String("campaign_id", id.String()))
	}
}

// SendTest delivers a single rendered copy to the given address. Tracking
// links carry the zero subscriber ID, so test opens and clicks never land in
// real stats. Campaign status is untouched.
func (s *DispatchService) SendTest(ctx context.Context, id uuid.UUID, email string) error {
	if err := mailer.ValidateAddress(email); err != nil {
		return err
	}
	campaign, err := s.campaigns.GetByID(ctx, id)
	if err != nil {
		return err
	}

	html := s.injector.Inject(campaign.Content, id, uuid.Nil)
	msg := &mailer.Message{
		To:      email,
		Subject: testSubjectPrefix + campaign.Subject,
		HTML:    html,
	}
	if err := s.sender.Send(ctx, msg); err != nil {
		s.hooks.emailSendFailure()
		return fmt.Errorf("send test: %w", err)
	}
	s.hooks.emailSent()
	s.logger.Info("test email sent", zap.String("campaign_id", id.String()))
	return nil
}

// Archive retires a draft or sent campaign.
func (s *DispatchService) Archive(ctx context.Context, id uuid.UUID) error {
	if err := s.campaigns.Archive(ctx, id); err != nil {
		return err
	}
	s.logger.Info("campaign archived", zap.String("campaign_id", id.String()))
	return nil
}

// RestoreTriggers re-registers triggers lost to a restart: scheduled
// campaigns get their one-shot back (past-due ones fire immediately) and
// sending campaigns get their batch trigger back. Re-running a batch tick
// early is harmless; the claim is atomic and the finalize is conditional.
func (s *DispatchService) RestoreTriggers(ctx context.Context) error {
	scheduled, err := s.campaigns.FindByStatus(ctx, domain.StatusScheduled)
	if err != nil {
		return fmt.Errorf("find scheduled campaigns: %w", err)
	}
	for _, c := range scheduled {
		if c.ScheduledAt == nil {
			continue
		}
		id := c.ID
		err := s.triggers.ScheduleOnce(initTriggerName(id), *c.ScheduledAt, func() {
			if err := s.InitiateSending(context.Background(), id); err != nil &&
				!errors.Is(err, domain.ErrNoSubscribers) {
				s.logger.Error("restored send failed",
					zap.String("campaign_id", id.String()), zap.Error(err))
			}
		})
		if err != nil {
			return fmt.Errorf("restore trigger for %s: %w", id, err)
		}
	}

	sending, err := s.campaigns.FindByStatus(ctx, domain.StatusSending)
	if err != nil {
		return fmt.Errorf("find sending campaigns: %w", err)
	}
	for _, c := range sending {
		// Count restored sends into the sending gauge so the later
		// finalize decrement stays balanced.
		s.hooks.campaignStarted()
		s.armProcessTrigger(c.ID)
	}

	s.logger.Info("triggers restored",
		zap.Int("scheduled", len(scheduled)),
		zap.Int("sending", len(sending)))
	return nil
}
