package scheduler

import (
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/lettercast/campaign-engine/internal/domain"
)

// TriggerRegistry registers named fire-and-forget triggers. Callers hold the
// name, not a handle, so a trigger can be cancelled from any code path that
// knows which campaign it belongs to.
type TriggerRegistry interface {
	// ScheduleOnce fires fn once at the given time. Scheduling a name that
	// already exists replaces the previous trigger.
	ScheduleOnce(name string, at time.Time, fn func()) error
	// ScheduleRecurring fires fn immediately and then every interval until
	// cancelled. Scheduling a name that already exists replaces it.
	ScheduleRecurring(name string, every time.Duration, fn func()) error
	// Cancel removes the named trigger. Unknown names are a no-op.
	Cancel(name string)
}

// TriggerScheduler is the in-process TriggerRegistry. Recurring triggers run
// on a cron runner, one-shots on plain timers. Delivery is best effort: ticks
// may fire late or more than once around restarts, so trigger callbacks must
// be safe to re-run.
type TriggerScheduler struct {
	cron   *cron.Cron
	logger *zap.Logger

	mu      sync.Mutex
	entries map[string]cron.EntryID
	timers  map[string]*time.Timer
	stopped bool
}

func New(logger *zap.Logger) *TriggerScheduler {
	s := &TriggerScheduler{
		cron:    cron.New(),
		logger:  logger,
		entries: make(map[string]cron.EntryID),
		timers:  make(map[string]*time.Timer),
	}
	s.cron.Start()
	return s
}

func (s *TriggerScheduler) ScheduleOnce(name string, at time.Time, fn func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return domain.ErrSchedulerClosed
	}
	s.cancelLocked(name)

	delay := time.Until(at)
	if delay < 0 {
		delay = 0
	}
	s.timers[name] = time.AfterFunc(delay, func() {
		s.mu.Lock()
		delete(s.timers, name)
		s.mu.Unlock()
		fn()
	})
	s.logger.Debug("one-shot trigger registered",
		zap.String("trigger", name),
		zap.Time("at", at))
	return nil
}

func (s *TriggerScheduler) ScheduleRecurring(name string, every time.Duration, fn func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return domain.ErrSchedulerClosed
	}
	s.cancelLocked(name)

	id := s.cron.Schedule(cron.Every(every), cron.FuncJob(fn))
	s.entries[name] = id
	s.logger.Debug("recurring trigger registered",
		zap.String("trigger", name),
		zap.Duration("every", every))

	// First tick fires now; cron only fires after the first interval elapses.
	go fn()
	return nil
}

func (s *TriggerScheduler) Cancel(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked(name)
}

func (s *TriggerScheduler) cancelLocked(name string) {
	if id, ok := s.entries[name]; ok {
		s.cron.Remove(id)
		delete(s.entries, name)
	}
	if timer, ok := s.timers[name]; ok {
		timer.Stop()
		delete(s.timers, name)
	}
}

// Stop cancels every trigger and rejects further registrations. It waits for
// any cron job already running to return.
func (s *TriggerScheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	for name := range s.entries {
		s.cron.Remove(s.entries[name])
		delete(s.entries, name)
	}
	for name := range s.timers {
		s.timers[name].Stop()
		delete(s.timers, name)
	}
	s.mu.Unlock()

	<-s.cron.Stop().Done()
}

var _ TriggerRegistry = (*TriggerScheduler)(nil)
