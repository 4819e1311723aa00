package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/ollama/ollama/api"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"zus_chatbot/pkg"
	appmodel "zus_chatbot/src/model"
)

// NewEmbedder creates the embedder for the configured provider
func NewEmbedder(config appmodel.EmbeddingConfig) (embedding.Embedder, error) {
	switch strings.ToLower(config.Provider) {
	case "openai", "":
		return NewOpenAIEmbedder(config), nil
	case "ollama":
		return NewOllamaEmbedder(config)
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", config.Provider)
	}
}

// ====================== OpenAI ======================
// OpenAIEmbedder calls the OpenAI-compatible embeddings endpoint
type OpenAIEmbedder struct {
	client  openai.Client
	model   string
	timeout time.Duration
}

func NewOpenAIEmbedder(config appmodel.EmbeddingConfig) *OpenAIEmbedder {
	opts := []option.RequestOption{option.WithAPIKey(config.APIKey)}
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}

	return &OpenAIEmbedder{
		client:  openai.NewClient(opts...),
		model:   config.Model,
		timeout: config.Timeout,
	}
}

func (e *OpenAIEmbedder) EmbedStrings(ctx context.Context, texts []string, opts ...embedding.Option) ([][]float64, error) {
	if len(texts) == 0 {
		return [][]float64{}, nil
	}

	ctx, cancel := withTimeout(ctx, e.timeout)
	defer cancel()

	resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, pkg.NewServiceError("embedding", "embed", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, pkg.NewServiceError("embedding", "embed", fmt.Errorf("got %d embeddings for %d inputs", len(resp.Data), len(texts)))
	}

	data := resp.Data
	sort.Slice(data, func(i, j int) bool { return data[i].Index < data[j].Index })

	vectors := make([][]float64, len(data))
	for i, d := range data {
		vectors[i] = d.Embedding
	}
	return vectors, nil
}

// ====================== Ollama ======================
// OllamaEmbedder calls a local Ollama server
type OllamaEmbedder struct {
	client  *api.Client
	model   string
	timeout time.Duration
}

func NewOllamaEmbedder(config appmodel.EmbeddingConfig) (*OllamaEmbedder, error) {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ollama base URL: %w", err)
	}

	return &OllamaEmbedder{
		client:  api.NewClient(u, http.DefaultClient),
		model:   config.Model,
		timeout: config.Timeout,
	}, nil
}

func (e *OllamaEmbedder) EmbedStrings(ctx context.Context, texts []string, opts ...embedding.Option) ([][]float64, error) {
	if len(texts) == 0 {
		return [][]float64{}, nil
	}

	ctx, cancel := withTimeout(ctx, e.timeout)
	defer cancel()

	resp, err := e.client.Embed(ctx, &api.EmbedRequest{Model: e.model, Input: texts})
	if err != nil {
		return nil, pkg.NewServiceError("embedding", "embed", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, pkg.NewServiceError("embedding", "embed", fmt.Errorf("got %d embeddings for %d inputs", len(resp.Embeddings), len(texts)))
	}

	vectors := make([][]float64, len(resp.Embeddings))
	for i, emb := range resp.Embeddings {
		vec := make([]float64, len(emb))
		for j, v := range emb {
			vec[j] = float64(v)
		}
		vectors[i] = vec
	}
	return vectors, nil
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
