package src

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	config, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "info", config.LogConfig.Level)
	assert.Equal(t, ":8000", config.ServerConfig.Addr)
	assert.Equal(t, []string{"*"}, config.ServerConfig.AllowedOrigins)
	assert.Equal(t, "openai", config.LLMConfig.Provider)
	assert.Equal(t, 1536, config.EmbeddingConfig.Dimension)
	assert.Equal(t, 10, config.ConversationConfig.MaxTurns)
	assert.Equal(t, 40*time.Minute, config.ConversationConfig.TTL)
	assert.Equal(t, 50, config.IndexConfig.ProductsTopK)
	assert.Equal(t, 40, config.IndexConfig.OutletsTopK)
	assert.Equal(t, 5, config.CatalogConfig.Concurrency)
	assert.Equal(t, 50, config.CatalogConfig.BatchSize)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("CONVERSATION_MAX_TURNS", "4")
	t.Setenv("INDEX_PROVIDER", "memory")
	t.Setenv("LLM_PROVIDER", "ollama")

	config, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "debug", config.LogConfig.Level)
	assert.Equal(t, 4, config.ConversationConfig.MaxTurns)
	assert.Equal(t, "memory", config.IndexConfig.Provider)
	assert.Equal(t, "ollama", config.LLMConfig.Provider)
}

func TestLoadConfigValidation(t *testing.T) {
	t.Setenv("CONVERSATION_STORE", "redis")

	_, err := LoadConfig()
	assert.Error(t, err)
}
