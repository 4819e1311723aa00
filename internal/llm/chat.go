// Package llm adapts chat completion and embedding providers to the eino
// component interfaces used by the rest of the service.
package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino-ext/components/model/deepseek"
	"github.com/cloudwego/eino-ext/components/model/ollama"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"zus_chatbot/pkg"
	appmodel "zus_chatbot/src/model"
)

// Completer produces a reply from prior turns and a new user message
type Completer interface {
	Complete(ctx context.Context, history []*schema.Message, message string) (string, error)
}

// NewChatModel creates the chat model for the configured provider
func NewChatModel(ctx context.Context, config appmodel.LLMConfig) (model.BaseChatModel, error) {
	return newChatModel(ctx, config.Provider, config.Model, config)
}

// NewSummaryChatModel creates the low-temperature model used to summarize search results
func NewSummaryChatModel(ctx context.Context, config appmodel.LLMConfig) (model.BaseChatModel, error) {
	summary := config
	summary.Temperature = config.SummaryTemperature
	return newChatModel(ctx, config.Provider, config.SummaryModel, summary)
}

func newChatModel(ctx context.Context, provider, modelName string, config appmodel.LLMConfig) (model.BaseChatModel, error) {
	switch strings.ToLower(provider) {
	case "openai", "":
		maxTokens := config.MaxTokens
		temperature := float32(config.Temperature)
		cm, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
			APIKey:      config.APIKey,
			BaseURL:     config.BaseURL,
			Model:       modelName,
			MaxTokens:   &maxTokens,
			Temperature: &temperature,
			Timeout:     config.Timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("error creating openai chat model: %w", err)
		}
		return cm, nil
	case "ollama":
		cm, err := ollama.NewChatModel(ctx, &ollama.ChatModelConfig{
			BaseURL: config.BaseURL,
			Model:   modelName,
			Timeout: config.Timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("error creating ollama chat model: %w", err)
		}
		return cm, nil
	case "deepseek":
		cm, err := deepseek.NewChatModel(ctx, &deepseek.ChatModelConfig{
			APIKey:  config.APIKey,
			BaseURL: config.BaseURL,
			Model:   modelName,
			Timeout: config.Timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("error creating deepseek chat model: %w", err)
		}
		return cm, nil
	case "ark":
		cm, err := ark.NewChatModel(ctx, &ark.ChatModelConfig{
			APIKey:  config.APIKey,
			BaseURL: config.BaseURL,
			Model:   modelName,
		})
		if err != nil {
			return nil, fmt.Errorf("error creating ark chat model: %w", err)
		}
		return cm, nil
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", provider)
	}
}

// ChainCompleter runs the eino chain: ChatTemplate → ChatModel
type ChainCompleter struct {
	chain   compose.Runnable[map[string]any, *schema.Message]
	timeout time.Duration
}

// braceEscaper makes literal text safe inside an f-string template
var braceEscaper = strings.NewReplacer("{", "{{", "}", "}}")

// NewCompleter compiles a chain that prepends systemPrompt and the history to
// each message. systemPrompt is literal text; braces in it are kept as written.
func NewCompleter(ctx context.Context, chatModel model.BaseChatModel, systemPrompt string, timeout time.Duration) (*ChainCompleter, error) {
	template := prompt.FromMessages(schema.FString,
		schema.SystemMessage(braceEscaper.Replace(systemPrompt)),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{message}"),
	)

	chain, err := compose.NewChain[map[string]any, *schema.Message]().
		AppendChatTemplate(template).
		AppendChatModel(chatModel).
		Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("error creating Eino chain: %w", err)
	}

	return &ChainCompleter{chain: chain, timeout: timeout}, nil
}

// Complete returns the trimmed completion text
func (c *ChainCompleter) Complete(ctx context.Context, history []*schema.Message, message string) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	if history == nil {
		history = []*schema.Message{}
	}
	result, err := c.chain.Invoke(ctx, map[string]any{
		"history": history,
		"message": message,
	})
	if err != nil {
		return "", pkg.NewServiceError("completion", "generate", err)
	}
	if result == nil {
		return "", pkg.NewServiceError("completion", "generate", fmt.Errorf("empty response"))
	}
	return strings.TrimSpace(result.Content), nil
}
