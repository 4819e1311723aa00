package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/rs/zerolog"

	"zus_chatbot/internal/index"
	"zus_chatbot/internal/llm"
	"zus_chatbot/src/logger"
)

var productCountPattern = regexp.MustCompile(`\b(how many|count|number of|total)\b`)

// ProductService handles product queries
type ProductService struct {
	embedder   embedding.Embedder
	index      index.VectorIndex
	summarizer llm.Completer
	config     Config
	log        zerolog.Logger
}

// NewProductService creates the products dispatcher. summarizer may be nil.
func NewProductService(embedder embedding.Embedder, idx index.VectorIndex, summarizer llm.Completer, config Config) *ProductService {
	return &ProductService{
		embedder:   embedder,
		index:      idx,
		summarizer: summarizer,
		config:     config.withDefaults(50),
		log:        logger.Component("products"),
	}
}

// Query answers a product question. Count questions use the index stats;
// everything else is a similarity search over product records.
func (s *ProductService) Query(ctx context.Context, text string, topK int) (*QueryResult, error) {
	text, err := validateQuery(text)
	if err != nil {
		return nil, err
	}
	if topK <= 0 {
		topK = s.config.TopK
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	if productCountPattern.MatchString(strings.ToLower(text)) {
		return s.count(ctx, text)
	}
	return s.search(ctx, text, topK)
}

func (s *ProductService) count(ctx context.Context, text string) (*QueryResult, error) {
	total, err := s.index.Count(ctx, index.Filter{Type: index.TypeProduct})
	if err != nil {
		return nil, serviceError("index", "count products", err)
	}

	return &QueryResult{
		Query:        text,
		Response:     fmt.Sprintf("There are %d products available.", total),
		Mode:         ModeCount,
		MatchesFound: total,
	}, nil
}

func (s *ProductService) search(ctx context.Context, text string, topK int) (*QueryResult, error) {
	vector, err := embedQuery(ctx, s.embedder, text)
	if err != nil {
		return nil, err
	}

	matches, err := s.index.Query(ctx, index.QueryRequest{
		Vector: vector,
		TopK:   topK,
		Filter: index.Filter{Type: index.TypeProduct},
	})
	if err != nil {
		return nil, serviceError("index", "search products", err)
	}

	result := &QueryResult{Query: text, Mode: ModeSearch}
	if len(matches) == 0 {
		result.Response = "No matching products found."
		return result, nil
	}

	for _, m := range matches {
		result.Products = append(result.Products, Product{
			Name:        m.Metadata.Get("name", ""),
			Price:       m.Metadata.Get("price", ""),
			Description: m.Metadata.Get("description", ""),
			Calories:    m.Metadata.Get("calories", ""),
			Text:        m.Metadata.Get("text", ""),
		})
	}
	result.MatchesFound = len(result.Products)
	result.Response = s.summarize(ctx, text, result.Products)
	return result, nil
}

// summarize asks the summarizer to answer from the results. Without one, or
// when it fails, a fixed acknowledgement is returned.
func (s *ProductService) summarize(ctx context.Context, text string, products []Product) string {
	const fallback = "Products retrieved successfully."
	if s.summarizer == nil {
		return fallback
	}

	var prompt strings.Builder
	prompt.WriteString("User question: " + text + "\n\nProducts:\n")
	for _, p := range products {
		fmt.Fprintf(&prompt, "- %s | price: RM%s | %s\n", p.Name, p.Price, p.Description)
	}

	answer, err := s.summarizer.Complete(ctx, nil, prompt.String())
	if err != nil || answer == "" {
		s.log.Warn().Err(err).Msg("Product summary failed, using default response")
		return fallback
	}
	return answer
}
