package src

import (
	"fmt"

	"zus_chatbot/src/model"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	LogConfig          model.LogConfig          `envconfig:"LOG"`
	ServerConfig       model.ServerConfig       `envconfig:"SERVER"`
	LLMConfig          model.LLMConfig          `envconfig:"LLM"`
	EmbeddingConfig    model.EmbeddingConfig    `envconfig:"EMBEDDING"`
	IndexConfig        model.IndexConfig        `envconfig:"INDEX"`
	ConversationConfig model.ConversationConfig `envconfig:"CONVERSATION"`
	CatalogConfig      model.CatalogConfig      `envconfig:"CATALOG"`
	ClassifierConfig   model.ClassifierConfig   `envconfig:"CLASSIFIER"`
}

func LoadConfig() (*Config, error) {
	var config Config
	err := envconfig.Process("", &config)
	if err != nil {
		return nil, fmt.Errorf("error processing environment configuration: %v", err)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) validate() error {
	if c.ConversationConfig.MaxTurns <= 0 {
		return fmt.Errorf("CONVERSATION_MAX_TURNS must be positive, got %d", c.ConversationConfig.MaxTurns)
	}
	if c.ConversationConfig.Store == "redis" && c.ConversationConfig.RedisURL == "" {
		return fmt.Errorf("CONVERSATION_REDIS_URL is required when CONVERSATION_STORE=redis")
	}
	if c.EmbeddingConfig.Dimension <= 0 {
		return fmt.Errorf("EMBEDDING_DIMENSION must be positive, got %d", c.EmbeddingConfig.Dimension)
	}
	if c.CatalogConfig.Concurrency <= 0 {
		c.CatalogConfig.Concurrency = 1
	}
	return nil
}
