package distlock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestClient(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client
}

func TestAcquireIsExclusive(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	a := New(client, "batch:abc", time.Minute)
	b := New(client, "batch:abc", time.Minute)

	ok, err := a.Acquire(ctx)
	if err != nil || !ok {
		t.Fatalf("first acquire: ok=%v err=%v", ok, err)
	}
	ok, err = b.Acquire(ctx)
	if err != nil {
		t.Fatalf("second acquire: %v", err)
	}
	if ok {
		t.Error("expected second acquire to fail while lock is held")
	}
}

func TestReleaseAllowsReacquire(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	a := New(client, "batch:abc", time.Minute)
	if ok, _ := a.Acquire(ctx); !ok {
		t.Fatal("acquire failed")
	}
	if err := a.Release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}

	b := New(client, "batch:abc", time.Minute)
	ok, err := b.Acquire(ctx)
	if err != nil || !ok {
		t.Fatalf("reacquire after release: ok=%v err=%v", ok, err)
	}
}

func TestReleaseIgnoresForeignLock(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	a := New(client, "batch:abc", time.Minute)
	b := New(client, "batch:abc", time.Minute)
	if ok, _ := a.Acquire(ctx); !ok {
		t.Fatal("acquire failed")
	}

	// b never held the lock, its release must not free a's lock.
	if err := b.Release(ctx); err != nil {
		t.Fatalf("foreign release: %v", err)
	}
	if ok, _ := b.Acquire(ctx); ok {
		t.Error("expected lock to still be held by a")
	}
}
