// Package rediscache serves the pre-computed analytics read models the
// dashboard renders. Snapshots are produced by an out-of-band aggregation
// job; this layer only reads and refreshes the cache.
package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/voiceflowhq/collab/domain/repositories"
)

// snapshotTTL bounds staleness; the aggregation job refreshes well
// within it.
const snapshotTTL = 15 * time.Minute

// AnalyticsCache implements repositories.AnalyticsReader on Redis
type AnalyticsCache struct {
	client *redis.Client
	logger *zap.Logger
}

// NewAnalyticsCache connects to Redis using REDIS_URL and verifies the
// connection with a ping.
func NewAnalyticsCache(logger *zap.Logger) (*AnalyticsCache, error) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		url = "redis://localhost:6379/0" // Default for development
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	logger.Info("Successfully connected to Redis", zap.String("url", url))
	return &AnalyticsCache{client: client, logger: logger}, nil
}

func key(userID string) string {
	return "analytics:" + userID
}

// Get implements repositories.AnalyticsReader. A cache miss returns nil
// without error; the caller serves an empty dashboard.
func (c *AnalyticsCache) Get(ctx context.Context, userID string) (*repositories.AnalyticsSnapshot, error) {
	if userID == "" {
		return nil, errors.New("user ID cannot be empty")
	}

	payload, err := c.client.Get(ctx, key(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read analytics snapshot: %w", err)
	}

	var snapshot repositories.AnalyticsSnapshot
	if err := json.Unmarshal(payload, &snapshot); err != nil {
		return nil, fmt.Errorf("corrupt analytics snapshot for user %s: %w", userID, err)
	}
	return &snapshot, nil
}

// Put implements repositories.AnalyticsReader
func (c *AnalyticsCache) Put(ctx context.Context, userID string, snapshot *repositories.AnalyticsSnapshot) error {
	if userID == "" {
		return errors.New("user ID cannot be empty")
	}
	if snapshot == nil {
		return errors.New("snapshot cannot be nil")
	}

	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal analytics snapshot: %w", err)
	}

	if err := c.client.Set(ctx, key(userID), payload, snapshotTTL).Err(); err != nil {
		return fmt.Errorf("failed to write analytics snapshot: %w", err)
	}
	return nil
}

// Close releases the Redis connection.
func (c *AnalyticsCache) Close() error {
	return c.client.Close()
}
