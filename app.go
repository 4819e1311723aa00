package main

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/embedding"

	appconfig "zus_chatbot/internal/config"
	"zus_chatbot/internal/catalog"
	"zus_chatbot/internal/core"
	"zus_chatbot/internal/index"
	"zus_chatbot/internal/llm"
	"zus_chatbot/internal/nlu"
	"zus_chatbot/internal/nodes"
	"zus_chatbot/internal/services"
	"zus_chatbot/pkg"
	"zus_chatbot/src"
	"zus_chatbot/src/conversation"
	"zus_chatbot/src/logger"
)

const summarySystemPrompt = "You are a helpful retail assistant."

// app holds the long-lived components shared by the commands
type app struct {
	config      *src.Config
	embedder    embedding.Embedder
	productIdx  index.VectorIndex
	outletIdx   index.VectorIndex
	corpus      *appconfig.Corpus
	memory      *conversation.Service
	closeMemory func() error

	products *services.ProductService
	outlets  *services.OutletService
}

func newApp(ctx context.Context, config *src.Config) (*app, error) {
	embedder, err := llm.NewEmbedder(config.EmbeddingConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	productIdx, outletIdx, err := newIndexes(config)
	if err != nil {
		return nil, err
	}

	corpus, err := appconfig.LoadCorpus(config.ClassifierConfig.CorpusPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load classifier corpus: %w", err)
	}

	repo, closeRepo, err := conversation.NewRepository(ctx, config.ConversationConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create conversation store: %w", err)
	}

	logger.Info().
		Str("embedding", config.EmbeddingConfig.Provider).
		Str("index", config.IndexConfig.Provider).
		Str("conversation", config.ConversationConfig.Store).
		Msg("Components initialized")

	return &app{
		config:      config,
		embedder:    embedder,
		productIdx:  productIdx,
		outletIdx:   outletIdx,
		corpus:      corpus,
		memory:      conversation.NewService(repo, config.ConversationConfig.MaxTurns),
		closeMemory: closeRepo,
	}, nil
}

// newIndexes returns the product and outlet indexes. Each domain lives in its
// own Pinecone index host.
func newIndexes(config *src.Config) (index.VectorIndex, index.VectorIndex, error) {
	cfg := config.IndexConfig
	switch cfg.Provider {
	case "memory":
		return index.NewMemoryIndex(), index.NewMemoryIndex(), nil
	case "pinecone":
		products, err := index.NewPineconeIndex(pineconeConfig(cfg.ProductsHost, config))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create products index: %w", err)
		}
		outlets, err := index.NewPineconeIndex(pineconeConfig(cfg.OutletsHost, config))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create outlets index: %w", err)
		}
		return products, outlets, nil
	default:
		return nil, nil, fmt.Errorf("unsupported index provider: %s", cfg.Provider)
	}
}

func pineconeConfig(host string, config *src.Config) index.PineconeConfig {
	return index.PineconeConfig{
		Host:       host,
		APIKey:     config.IndexConfig.APIKey,
		Namespace:  config.IndexConfig.Namespace,
		Dimension:  config.EmbeddingConfig.Dimension,
		Timeout:    config.IndexConfig.Timeout,
		MaxRetries: config.IndexConfig.MaxRetries,
	}
}

// Ingestor loads the catalogs into the indexes
func (a *app) Ingestor() *catalog.Ingestor {
	return catalog.NewIngestor(
		catalog.NewHTTPSource(a.config.CatalogConfig),
		a.embedder,
		a.productIdx,
		a.outletIdx,
		catalog.IngestConfig{
			Concurrency: a.config.CatalogConfig.Concurrency,
			BatchSize:   a.config.CatalogConfig.BatchSize,
			Cities:      a.corpus.Cities,
			DefaultCity: a.corpus.DefaultCity,
		},
	)
}

// Processor builds the chat models, the dispatchers and the dialogue processor
func (a *app) Processor(ctx context.Context) (*core.Processor, error) {
	llmConfig := a.config.LLMConfig

	chatModel, err := llm.NewChatModel(ctx, llmConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}
	chat, err := llm.NewCompleter(ctx, chatModel, llmConfig.SystemPrompt, llmConfig.Timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat chain: %w", err)
	}

	var summarizer llm.Completer
	if llmConfig.SummaryModel != "" {
		summaryModel, err := llm.NewSummaryChatModel(ctx, llmConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to create summary model: %w", err)
		}
		summaryChain, err := llm.NewCompleter(ctx, summaryModel, summarySystemPrompt, llmConfig.Timeout)
		if err != nil {
			return nil, fmt.Errorf("failed to create summary chain: %w", err)
		}
		summarizer = summaryChain
	}

	indexConfig := a.config.IndexConfig
	a.products = services.NewProductService(a.embedder, a.productIdx, summarizer, services.Config{
		TopK:      indexConfig.ProductsTopK,
		ScanLimit: indexConfig.ScanLimit,
		Timeout:   indexConfig.Timeout,
	})
	a.outlets = services.NewOutletService(a.embedder, a.outletIdx, a.corpus.Cities, services.Config{
		TopK:      indexConfig.OutletsTopK,
		ScanLimit: indexConfig.ScanLimit,
		Timeout:   indexConfig.Timeout,
	})

	classifier, err := nlu.NewClassifier(ctx, a.embedder, a.corpus, a.config.ClassifierConfig.MinSimilarity)
	if err != nil {
		return nil, fmt.Errorf("failed to create classifier: %w", err)
	}

	processor := core.NewProcessor(classifier, a.memory)
	routes := map[pkg.Intent]core.Node{
		pkg.IntentCalc:     nodes.NewCalcNode(),
		pkg.IntentProducts: nodes.NewProductsNode(a.products, indexConfig.ProductsTopK),
		pkg.IntentOutlets:  nodes.NewOutletsNode(a.outlets, indexConfig.OutletsTopK),
		pkg.IntentChat:     nodes.NewChatNode(chat),
	}
	for _, intent := range pkg.Intents {
		if err := processor.AddNode(intent, routes[intent]); err != nil {
			return nil, err
		}
	}
	return processor, nil
}

// Close releases the conversation store
func (a *app) Close() {
	if a.closeMemory == nil {
		return
	}
	if err := a.closeMemory(); err != nil {
		logger.Warn().Err(err).Msg("Failed to close conversation store")
	}
}
