package scheduler

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/lettercast/campaign-engine/internal/domain"
)

func newTestScheduler(t *testing.T) *TriggerScheduler {
	t.Helper()
	s := New(zap.NewNop())
	t.Cleanup(s.Stop)
	return s
}

func TestScheduleOnceFires(t *testing.T) {
	s := newTestScheduler(t)
	fired := make(chan struct{})

	err := s.ScheduleOnce("campaign:init", time.Now().Add(10*time.Millisecond), func() {
		close(fired)
	})
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("one-shot trigger never fired")
	}
}

func TestScheduleOncePastTimeFiresImmediately(t *testing.T) {
	s := newTestScheduler(t)
	fired := make(chan struct{})

	err := s.ScheduleOnce("campaign:init", time.Now().Add(-time.Hour), func() {
		close(fired)
	})
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("past-due trigger never fired")
	}
}

func TestRecurringFiresImmediately(t *testing.T) {
	s := newTestScheduler(t)
	var count atomic.Int64
	fired := make(chan struct{}, 1)

	err := s.ScheduleRecurring("campaign:process", time.Hour, func() {
		count.Add(1)
		select {
		case fired <- struct{}{}:
		default:
		}
	})
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("recurring trigger did not fire its first tick")
	}
	if count.Load() != 1 {
		t.Errorf("expected exactly one tick before interval elapses, got %d", count.Load())
	}
}

func TestCancelStopsTrigger(t *testing.T) {
	s := newTestScheduler(t)
	var fired atomic.Bool

	err := s.ScheduleOnce("campaign:init", time.Now().Add(50*time.Millisecond), func() {
		fired.Store(true)
	})
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	s.Cancel("campaign:init")

	time.Sleep(150 * time.Millisecond)
	if fired.Load() {
		t.Error("cancelled trigger still fired")
	}
}

func TestReschedulingReplacesTrigger(t *testing.T) {
	s := newTestScheduler(t)
	var first, second atomic.Bool

	if err := s.ScheduleOnce("campaign:init", time.Now().Add(50*time.Millisecond), func() { first.Store(true) }); err != nil {
		t.Fatalf("first schedule: %v", err)
	}
	if err := s.ScheduleOnce("campaign:init", time.Now().Add(20*time.Millisecond), func() { second.Store(true) }); err != nil {
		t.Fatalf("second schedule: %v", err)
	}

	time.Sleep(200 * time.Millisecond)
	if first.Load() {
		t.Error("replaced trigger still fired")
	}
	if !second.Load() {
		t.Error("replacement trigger never fired")
	}
}

func TestStopRejectsNewTriggers(t *testing.T) {
	s := New(zap.NewNop())
	s.Stop()

	err := s.ScheduleOnce("campaign:init", time.Now(), func() {})
	if !errors.Is(err, domain.ErrSchedulerClosed) {
		t.Errorf("expected ErrSchedulerClosed, got %v", err)
	}
	err = s.ScheduleRecurring("campaign:process", time.Minute, func() {})
	if !errors.Is(err, domain.ErrSchedulerClosed) {
		t.Errorf("expected ErrSchedulerClosed, got %v", err)
	}
}
