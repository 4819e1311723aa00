package storage

import (
	"context"
	"fmt"
	"time"

	"zus_chatbot/pkg"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
)

const (
	// SessionTTL is the default sliding TTL of a conversation (40 minutes)
	SessionTTL         = 40 * time.Minute
	conversationPrefix = "conversation:"
)

// RedisTurnStore keeps each session as a Redis list of JSON-encoded turns.
// RPUSH is atomic, so concurrent appends to one session are never lost.
type RedisTurnStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient parses redisURL and verifies the connection
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	if redisURL == "" {
		return nil, fmt.Errorf("redis URL is required")
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	// Test connection
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return client, nil
}

// NewRedisTurnStore creates a Redis-backed TurnStore. ttl <= 0 uses SessionTTL.
func NewRedisTurnStore(client *redis.Client, ttl time.Duration) *RedisTurnStore {
	if ttl <= 0 {
		ttl = SessionTTL
	}
	return &RedisTurnStore{client: client, ttl: ttl}
}

// key generates a Redis key for the given session ID
func (r *RedisTurnStore) key(sessionID string) string {
	return conversationPrefix + sessionID
}

// Append pushes a turn and refreshes the session TTL
func (r *RedisTurnStore) Append(ctx context.Context, sessionID string, turn pkg.ConversationTurn) error {
	if sessionID == "" {
		return fmt.Errorf("%w: session ID cannot be empty", pkg.ErrInvalidRequest)
	}

	data, err := sonic.Marshal(turn)
	if err != nil {
		return fmt.Errorf("failed to marshal turn: %w", err)
	}

	key := r.key(sessionID)
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, data)
		pipe.Expire(ctx, key, r.ttl)
		return nil
	})
	if err != nil {
		return pkg.NewServiceError("redis", "append turn", err)
	}
	return nil
}

// Recent returns up to maxTurns most recent turns, oldest first
func (r *RedisTurnStore) Recent(ctx context.Context, sessionID string, maxTurns int) ([]pkg.ConversationTurn, error) {
	if maxTurns <= 0 {
		return []pkg.ConversationTurn{}, nil
	}

	key := r.key(sessionID)
	items, err := r.client.LRange(ctx, key, int64(-maxTurns), -1).Result()
	if err != nil {
		if err == redis.Nil {
			return []pkg.ConversationTurn{}, nil
		}
		return nil, pkg.NewServiceError("redis", "load history", err)
	}

	turns := make([]pkg.ConversationTurn, 0, len(items))
	for _, item := range items {
		var turn pkg.ConversationTurn
		if err := sonic.UnmarshalString(item, &turn); err != nil {
			return nil, fmt.Errorf("failed to unmarshal turn: %w", err)
		}
		turns = append(turns, turn)
	}

	// Refresh TTL
	if len(items) > 0 {
		r.client.Expire(ctx, key, r.ttl)
	}
	return turns, nil
}

// Reset removes the session from Redis
func (r *RedisTurnStore) Reset(ctx context.Context, sessionID string) error {
	if err := r.client.Del(ctx, r.key(sessionID)).Err(); err != nil {
		return pkg.NewServiceError("redis", "reset session", err)
	}
	return nil
}

// GetTTL gets remaining TTL for a session
func (r *RedisTurnStore) GetTTL(ctx context.Context, sessionID string) (time.Duration, error) {
	ttl, err := r.client.TTL(ctx, r.key(sessionID)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get TTL: %w", err)
	}
	return ttl, nil
}

// Ping tests Redis connection
func (r *RedisTurnStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (r *RedisTurnStore) Close() error {
	return r.client.Close()
}
