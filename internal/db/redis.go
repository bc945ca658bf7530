package db

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/lettercast/campaign-engine/internal/config"
)

// ConnectRedis creates a Redis client and verifies connectivity.
// Redis holds only ephemeral state (recipient queues, batch locks), all of
// it TTL-bounded, so a flushed instance degrades to orphan-queue recovery
// rather than data loss.
func ConnectRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return client, nil
}
