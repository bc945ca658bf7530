package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// claimScript pops up to ARGV[1] entries off the head of the list and
// returns them together with the remaining length, in one atomic step.
// Concurrent batch workers therefore never see the same recipient twice.
var claimScript = redis.NewScript(`
local batch = redis.call("LRANGE", KEYS[1], 0, tonumber(ARGV[1]) - 1)
if #batch > 0 then
	redis.call("LTRIM", KEYS[1], #batch, -1)
end
local remaining = redis.call("LLEN", KEYS[1])
return {batch, remaining}
`)

// RecipientQueue holds the pending recipient list of a sending campaign.
// The list is a working copy of the subscriber set taken at send start;
// it expires on its own so an abandoned send leaves nothing behind.
type RecipientQueue struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRecipientQueue(client *redis.Client, ttl time.Duration) *RecipientQueue {
	return &RecipientQueue{client: client, ttl: ttl}
}

func (q *RecipientQueue) key(campaignID uuid.UUID) string {
	return fmt.Sprintf("campaign:%s:recipients", campaignID)
}

// Snapshot replaces the campaign's queue with the given recipient IDs and
// arms the expiry. Replacing (DEL then RPUSH) keeps a retried send start
// from doubling the list.
func (q *RecipientQueue) Snapshot(ctx context.Context, campaignID uuid.UUID, recipientIDs []uuid.UUID) error {
	key := q.key(campaignID)
	vals := make([]interface{}, len(recipientIDs))
	for i, id := range recipientIDs {
		vals[i] = id.String()
	}
	pipe := q.client.TxPipeline()
	pipe.Del(ctx, key)
	if len(vals) > 0 {
		pipe.RPush(ctx, key, vals...)
		pipe.Expire(ctx, key, q.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("snapshot recipients: %w", err)
	}
	return nil
}

// Claim atomically removes up to n recipient IDs from the head of the queue
// and reports how many remain. A missing or expired key yields an empty
// batch and zero remaining, not an error.
func (q *RecipientQueue) Claim(ctx context.Context, campaignID uuid.UUID, n int) ([]uuid.UUID, int64, error) {
	res, err := claimScript.Run(ctx, q.client, []string{q.key(campaignID)}, n).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("claim recipients: %w", err)
	}
	parts, ok := res.([]interface{})
	if !ok || len(parts) != 2 {
		return nil, 0, fmt.Errorf("claim recipients: unexpected reply %T", res)
	}
	rawBatch, _ := parts[0].([]interface{})
	remaining, _ := parts[1].(int64)

	ids := make([]uuid.UUID, 0, len(rawBatch))
	for _, raw := range rawBatch {
		s, ok := raw.(string)
		if !ok {
			continue
		}
		id, err := uuid.Parse(s)
		if err != nil {
			// Skip garbage entries rather than wedging the whole batch.
			continue
		}
		ids = append(ids, id)
	}
	return ids, remaining, nil
}

// Requeue returns claimed-but-unprocessed recipient IDs to the head of the
// queue, preserving their original order, and re-arms the expiry. Used when
// a batch aborts mid-flight so nobody claimed out of the list is lost.
func (q *RecipientQueue) Requeue(ctx context.Context, campaignID uuid.UUID, recipientIDs []uuid.UUID) error {
	if len(recipientIDs) == 0 {
		return nil
	}
	key := q.key(campaignID)
	// LPUSH prepends its arguments one by one, reversing them; feed the
	// ids pre-reversed so the head keeps the original order.
	vals := make([]interface{}, len(recipientIDs))
	for i, id := range recipientIDs {
		vals[len(recipientIDs)-1-i] = id.String()
	}
	pipe := q.client.TxPipeline()
	pipe.LPush(ctx, key, vals...)
	pipe.Expire(ctx, key, q.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("requeue recipients: %w", err)
	}
	return nil
}

// Len reports how many recipients are still queued.
func (q *RecipientQueue) Len(ctx context.Context, campaignID uuid.UUID) (int64, error) {
	n, err := q.client.LLen(ctx, q.key(campaignID)).Result()
	if err != nil {
		return 0, fmt.Errorf("queue length: %w", err)
	}
	return n, nil
}

// Delete drops the queue, typically right after a campaign finalizes.
func (q *RecipientQueue) Delete(ctx context.Context, campaignID uuid.UUID) error {
	if err := q.client.Del(ctx, q.key(campaignID)).Err(); err != nil {
		return fmt.Errorf("delete queue: %w", err)
	}
	return nil
}
