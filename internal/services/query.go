// Package services answers product and outlet questions from the vector index.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/embedding"

	"zus_chatbot/pkg"
)

// QueryMode tells whether a result came from an aggregate count or a similarity search
type QueryMode string

const (
	ModeCount  QueryMode = "count"
	ModeSearch QueryMode = "search"
)

// HoursPlaceholder replaces stored opening hours when a user asks about hours
const HoursPlaceholder = "Check website for updated operating hours"

// Product is the projection of a product record
type Product struct {
	Name        string `json:"name"`
	Price       string `json:"price,omitempty"`
	Description string `json:"description,omitempty"`
	Calories    string `json:"calories,omitempty"`
	Text        string `json:"-"`
}

// Outlet is the projection of an outlet record
type Outlet struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	City    string `json:"city"`
	Hours   string `json:"hours"`
	Text    string `json:"-"`
}

// QueryResult is returned by both dispatchers
type QueryResult struct {
	Query          string         `json:"query"`
	Response       string         `json:"response"`
	Mode           QueryMode      `json:"mode"`
	MatchesFound   int            `json:"matches_found"`
	CitiesDetected []string       `json:"cities_detected,omitempty"`
	CityCounts     map[string]int `json:"city_counts,omitempty"`
	Products       []Product      `json:"products,omitempty"`
	Outlets        []Outlet       `json:"outlets,omitempty"`
}

// Config bounds a dispatcher's downstream calls
type Config struct {
	TopK      int
	ScanLimit int
	Timeout   time.Duration
}

func (c Config) withDefaults(topK int) Config {
	if c.TopK <= 0 {
		c.TopK = topK
	}
	if c.ScanLimit <= 0 {
		c.ScanLimit = 5000
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	return c
}

func validateQuery(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%w: query cannot be empty", pkg.ErrInvalidRequest)
	}
	return text, nil
}

// embedQuery embeds a single query text
func embedQuery(ctx context.Context, embedder embedding.Embedder, text string) ([]float64, error) {
	vectors, err := embedder.EmbedStrings(ctx, []string{text})
	if err != nil {
		return nil, serviceError("embedding", "embed query", err)
	}
	if len(vectors) != 1 || len(vectors[0]) == 0 {
		return nil, pkg.NewServiceError("embedding", "embed query", fmt.Errorf("unexpected embedding result"))
	}
	return vectors[0], nil
}

// serviceError keeps an existing ServiceError and wraps anything else
func serviceError(service, op string, err error) error {
	if errors.Is(err, pkg.ErrServiceUnavailable) {
		return err
	}
	return pkg.NewServiceError(service, op, err)
}
