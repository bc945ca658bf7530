package queue

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func newTestQueue(t *testing.T) (*RecipientQueue, *miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRecipientQueue(client, 24*time.Hour), mr, client
}

func ids(n int) []uuid.UUID {
	out := make([]uuid.UUID, n)
	for i := range out {
		out[i] = uuid.New()
	}
	return out
}

func TestSnapshotSetsTTL(t *testing.T) {
	q, mr, _ := newTestQueue(t)
	campaignID := uuid.New()

	if err := q.Snapshot(context.Background(), campaignID, ids(3)); err != nil {
		t.Fatalf("snapshot: %v", err)
	}

	key := "campaign:" + campaignID.String() + ":recipients"
	if ttl := mr.TTL(key); ttl != 24*time.Hour {
		t.Errorf("expected 24h TTL, got %v", ttl)
	}
	n, err := q.Len(context.Background(), campaignID)
	if err != nil {
		t.Fatalf("len: %v", err)
	}
	if n != 3 {
		t.Errorf("expected 3 queued, got %d", n)
	}
}

func TestSnapshotReplacesExisting(t *testing.T) {
	q, _, _ := newTestQueue(t)
	campaignID := uuid.New()

	if err := q.Snapshot(context.Background(), campaignID, ids(5)); err != nil {
		t.Fatalf("first snapshot: %v", err)
	}
	if err := q.Snapshot(context.Background(), campaignID, ids(2)); err != nil {
		t.Fatalf("second snapshot: %v", err)
	}

	n, _ := q.Len(context.Background(), campaignID)
	if n != 2 {
		t.Errorf("expected replacement to leave 2 queued, got %d", n)
	}
}

func TestClaimPreservesOrder(t *testing.T) {
	q, _, _ := newTestQueue(t)
	campaignID := uuid.New()
	recipients := ids(5)

	if err := q.Snapshot(context.Background(), campaignID, recipients); err != nil {
		t.Fatalf("snapshot: %v", err)
	}

	batch, remaining, err := q.Claim(context.Background(), campaignID, 3)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if len(batch) != 3 || remaining != 2 {
		t.Fatalf("expected batch of 3 with 2 remaining, got %d and %d", len(batch), remaining)
	}
	for i, id := range batch {
		if id != recipients[i] {
			t.Errorf("batch[%d] = %s, want %s", i, id, recipients[i])
		}
	}

	batch, remaining, err = q.Claim(context.Background(), campaignID, 3)
	if err != nil {
		t.Fatalf("second claim: %v", err)
	}
	if len(batch) != 2 || remaining != 0 {
		t.Errorf("expected final batch of 2 with 0 remaining, got %d and %d", len(batch), remaining)
	}
}

func TestRequeueRestoresHeadOrder(t *testing.T) {
	q, mr, _ := newTestQueue(t)
	campaignID := uuid.New()
	recipients := ids(4)

	if err := q.Snapshot(context.Background(), campaignID, recipients); err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	batch, _, err := q.Claim(context.Background(), campaignID, 3)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}

	// An aborted batch puts its unprocessed tail back; the queue must read
	// as if those entries were never claimed.
	if err := q.Requeue(context.Background(), campaignID, batch[1:]); err != nil {
		t.Fatalf("requeue: %v", err)
	}

	key := "campaign:" + campaignID.String() + ":recipients"
	if ttl := mr.TTL(key); ttl != 24*time.Hour {
		t.Errorf("expected requeue to re-arm the 24h TTL, got %v", ttl)
	}

	got, remaining, err := q.Claim(context.Background(), campaignID, 10)
	if err != nil {
		t.Fatalf("reclaim: %v", err)
	}
	want := []uuid.UUID{recipients[1], recipients[2], recipients[3]}
	if len(got) != len(want) || remaining != 0 {
		t.Fatalf("expected %d queued with 0 remaining, got %d and %d", len(want), len(got), remaining)
	}
	for i, id := range got {
		if id != want[i] {
			t.Errorf("queue[%d] = %s, want %s", i, id, want[i])
		}
	}
}

func TestClaimMissingKey(t *testing.T) {
	q, _, _ := newTestQueue(t)

	batch, remaining, err := q.Claim(context.Background(), uuid.New(), 50)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if len(batch) != 0 || remaining != 0 {
		t.Errorf("expected empty claim on missing key, got %d and %d", len(batch), remaining)
	}
}

func TestClaimSkipsGarbageEntries(t *testing.T) {
	q, _, client := newTestQueue(t)
	campaignID := uuid.New()
	good := uuid.New()

	key := "campaign:" + campaignID.String() + ":recipients"
	if err := client.RPush(context.Background(), key, "not-a-uuid", good.String()).Err(); err != nil {
		t.Fatalf("seed: %v", err)
	}

	batch, remaining, err := q.Claim(context.Background(), campaignID, 10)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if len(batch) != 1 || batch[0] != good {
		t.Errorf("expected only the valid id, got %v", batch)
	}
	if remaining != 0 {
		t.Errorf("expected 0 remaining, got %d", remaining)
	}
}

func TestDelete(t *testing.T) {
	q, mr, _ := newTestQueue(t)
	campaignID := uuid.New()

	if err := q.Snapshot(context.Background(), campaignID, ids(2)); err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if err := q.Delete(context.Background(), campaignID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if mr.Exists("campaign:" + campaignID.String() + ":recipients") {
		t.Error("expected queue key to be gone")
	}
}
