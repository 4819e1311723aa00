// Package nlu classifies user messages into an intent and a query type.
//
// Two strategies are combined. Heuristics is a keyword detector used as the
// calculator shortcut and as a fallback when embeddings are unavailable.
// The embedding vote compares the message against immutable reference corpora
// built once at start-up.
package nlu

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/rs/zerolog"

	"zus_chatbot/internal/config"
	"zus_chatbot/pkg"
	"zus_chatbot/src/logger"
)

// Classifier maps raw text to a pkg.Classification
type Classifier struct {
	embedder      embedding.Embedder
	intents       *ReferenceCorpus
	queryTypes    *ReferenceCorpus
	heuristics    *Heuristics
	productTerms  []string
	outletTerms   []string
	minSimilarity float64
	log           zerolog.Logger
}

// NewClassifier embeds both reference corpora and returns a ready classifier.
// minSimilarity > 0 routes intent votes scoring below it to chat.
func NewClassifier(ctx context.Context, embedder embedding.Embedder, corpus *config.Corpus, minSimilarity float64) (*Classifier, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}

	intents, err := NewReferenceCorpus(ctx, embedder, corpus.Intents)
	if err != nil {
		return nil, fmt.Errorf("failed to build intent corpus: %w", err)
	}
	queryTypes, err := NewReferenceCorpus(ctx, embedder, corpus.QueryTypes)
	if err != nil {
		return nil, fmt.Errorf("failed to build query type corpus: %w", err)
	}

	return &Classifier{
		embedder:      embedder,
		intents:       intents,
		queryTypes:    queryTypes,
		heuristics:    NewHeuristics(corpus),
		productTerms:  lowerAll(corpus.CountOverride.Products),
		outletTerms:   lowerAll(corpus.CountOverride.Outlets),
		minSimilarity: minSimilarity,
		log:           logger.Component("nlu"),
	}, nil
}

// Classify returns the intent and query type for text. A message that parses
// as arithmetic skips the embedding vote. If the embedding call fails, the
// heuristic intent with query type general is returned together with an error
// wrapping pkg.ErrClassificationFailure.
func (c *Classifier) Classify(ctx context.Context, text string) (pkg.Classification, error) {
	heuristic, expr := c.heuristics.Classify(text)
	if heuristic == pkg.IntentCalc {
		return pkg.Classification{Intent: pkg.IntentCalc, QueryType: pkg.QueryTypeGeneral, Expression: expr}, nil
	}

	fallback := pkg.Classification{Intent: heuristic, QueryType: pkg.QueryTypeGeneral}

	vectors, err := c.embedder.EmbedStrings(ctx, []string{text})
	if err != nil {
		c.log.Warn().Err(err).Str("fallback_intent", string(heuristic)).Msg("Embedding failed, using heuristic intent")
		return fallback, fmt.Errorf("%w: %w", pkg.ErrClassificationFailure, err)
	}
	if len(vectors) != 1 {
		return fallback, fmt.Errorf("%w: embedding returned %d vectors", pkg.ErrClassificationFailure, len(vectors))
	}

	result := c.vote(vectors[0])
	if result.QueryType == pkg.QueryTypeCount {
		result.Intent = c.countOverride(text)
	}
	if result.Intent == pkg.IntentCalc {
		result.Expression = c.heuristics.Expression(text)
	}

	c.log.Debug().
		Str("intent", string(result.Intent)).
		Str("query_type", string(result.QueryType)).
		Msg("Classified message")
	return result, nil
}

func (c *Classifier) vote(vector []float64) pkg.Classification {
	result := pkg.Classification{Intent: pkg.IntentChat, QueryType: pkg.QueryTypeGeneral}

	// A vote with no similarity at all keeps the default label
	if label, score, ok := c.intents.Vote(vector); ok && score > 0 && score >= c.minSimilarity {
		result.Intent = pkg.Intent(label)
	}
	if label, score, ok := c.queryTypes.Vote(vector); ok && score > 0 {
		result.QueryType = pkg.QueryType(label)
	}
	return result
}

// countOverride picks the domain of a count question by keyword
func (c *Classifier) countOverride(text string) pkg.Intent {
	lower := strings.ToLower(text)
	switch {
	case containsAny(lower, c.productTerms):
		return pkg.IntentProducts
	case containsAny(lower, c.outletTerms):
		return pkg.IntentOutlets
	default:
		return pkg.IntentChat
	}
}
