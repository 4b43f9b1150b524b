package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kmettler/habitloop/internal/models"
	"github.com/kmettler/habitloop/internal/services/chat"
	"github.com/redis/go-redis/v9"
)

// DefaultPatternTTL bounds how stale cached routine patterns can get before
// the next analysis run has to repopulate them.
const DefaultPatternTTL = 7 * 24 * time.Hour

// RoutineCache stores inferred routine patterns in Redis. The analyzer worker
// writes them after each recomputation; the chat pipeline reads them as
// advisory context. A cache miss means no patterns, never an error surfaced
// to the user.
type RoutineCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRoutineCache creates a Redis-backed routine pattern cache
func NewRoutineCache(redisURL string) (*RoutineCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RoutineCache{client: client, ttl: DefaultPatternTTL}, nil
}

// NewRoutineCacheWithClient wraps an existing Redis client
func NewRoutineCacheWithClient(client *redis.Client) *RoutineCache {
	return &RoutineCache{client: client, ttl: DefaultPatternTTL}
}

func patternKey(userID uuid.UUID) string {
	return "routines:" + userID.String()
}

// Patterns returns the cached routine patterns for a user. A missing key
// yields an empty slice.
func (c *RoutineCache) Patterns(ctx context.Context, userID uuid.UUID) ([]models.RoutinePattern, error) {
	data, err := c.client.Get(ctx, patternKey(userID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get routine patterns: %w", err)
	}

	var patterns []models.RoutinePattern
	if err := json.Unmarshal(data, &patterns); err != nil {
		return nil, fmt.Errorf("failed to decode routine patterns: %w", err)
	}

	return patterns, nil
}

// Store replaces the cached patterns for a user
func (c *RoutineCache) Store(ctx context.Context, userID uuid.UUID, patterns []models.RoutinePattern) error {
	data, err := json.Marshal(patterns)
	if err != nil {
		return fmt.Errorf("failed to encode routine patterns: %w", err)
	}

	if err := c.client.Set(ctx, patternKey(userID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store routine patterns: %w", err)
	}

	return nil
}

// Ping checks if Redis is reachable
func (c *RoutineCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (c *RoutineCache) Close() error {
	return c.client.Close()
}

var _ chat.RoutineSource = (*RoutineCache)(nil)
