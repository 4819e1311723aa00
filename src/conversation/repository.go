package conversation

import (
	"context"
	"fmt"
	"strings"

	"zus_chatbot/internal/storage"
	"zus_chatbot/src/model"
)

// Repository is the turn log backing a Service
type Repository = storage.TurnStore

// NewRepository builds the configured turn store. The returned close func releases
// any connection held by the store and is never nil.
func NewRepository(ctx context.Context, config model.ConversationConfig) (Repository, func() error, error) {
	switch strings.ToLower(config.Store) {
	case "", "memory":
		return storage.NewMemoryTurnStore(config.SessionCap), func() error { return nil }, nil
	case "redis":
		client, err := storage.NewRedisClient(ctx, config.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create redis repository: %w", err)
		}
		store := storage.NewRedisTurnStore(client, config.TTL)
		return store, store.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported conversation store: %s", config.Store)
	}
}
