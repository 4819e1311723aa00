package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/cloudwego/eino/components/embedding"

	"zus_chatbot/internal/index"
)

var outletCountPattern = regexp.MustCompile(`\b(how many|count|number of|total|total outlets|store count|outlet count|stores)\b`)

// OutletService handles outlet queries
type OutletService struct {
	embedder embedding.Embedder
	index    index.VectorIndex
	cities   []string
	config   Config
}

// NewOutletService creates the outlets dispatcher. cities is the fixed list of
// names recognized in queries.
func NewOutletService(embedder embedding.Embedder, idx index.VectorIndex, cities []string, config Config) *OutletService {
	return &OutletService{
		embedder: embedder,
		index:    idx,
		cities:   cities,
		config:   config.withDefaults(40),
	}
}

// ExtractCities returns the known cities mentioned in text, in list order
func ExtractCities(text string, cities []string) []string {
	lower := strings.ToLower(text)
	var found []string
	for _, city := range cities {
		if city != "" && strings.Contains(lower, strings.ToLower(city)) {
			found = append(found, city)
		}
	}
	return found
}

// Query answers an outlet question
func (s *OutletService) Query(ctx context.Context, text string, topK int) (*QueryResult, error) {
	text, err := validateQuery(text)
	if err != nil {
		return nil, err
	}
	if topK <= 0 {
		topK = s.config.TopK
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	lower := strings.ToLower(text)
	cities := ExtractCities(text, s.cities)

	var result *QueryResult
	switch {
	case outletCountPattern.MatchString(lower) && len(cities) == 0:
		result, err = s.countAll(ctx, text)
	case outletCountPattern.MatchString(lower):
		result, err = s.countByCity(ctx, text, cities)
	default:
		result, err = s.search(ctx, text, topK, cities)
	}
	if err != nil {
		return nil, err
	}

	if strings.Contains(lower, "hour") {
		for i := range result.Outlets {
			result.Outlets[i].Hours = HoursPlaceholder
		}
	}
	return result, nil
}

func (s *OutletService) countAll(ctx context.Context, text string) (*QueryResult, error) {
	total, err := s.index.Count(ctx, index.Filter{Type: index.TypeOutlet})
	if err != nil {
		return nil, serviceError("index", "count outlets", err)
	}

	return &QueryResult{
		Query:        text,
		Response:     fmt.Sprintf("There are %d outlets across all cities.", total),
		Mode:         ModeCount,
		MatchesFound: total,
	}, nil
}

// countByCity scans each city with a filter-only query and sums the results
func (s *OutletService) countByCity(ctx context.Context, text string, cities []string) (*QueryResult, error) {
	result := &QueryResult{
		Query:          text,
		Mode:           ModeCount,
		CitiesDetected: cities,
		CityCounts:     make(map[string]int, len(cities)),
	}

	for _, city := range cities {
		matches, err := s.index.Query(ctx, index.QueryRequest{
			TopK:   s.config.ScanLimit,
			Filter: index.Filter{Type: index.TypeOutlet, Field: "city", Values: []string{city}},
		})
		if err != nil {
			return nil, serviceError("index", "scan outlets", err)
		}
		result.CityCounts[city] = len(matches)
		result.Outlets = append(result.Outlets, projectOutlets(matches)...)
	}

	result.MatchesFound = len(result.Outlets)
	result.Response = fmt.Sprintf("There are %d outlets in %s.", result.MatchesFound, strings.Join(cities, ", "))
	return result, nil
}

func (s *OutletService) search(ctx context.Context, text string, topK int, cities []string) (*QueryResult, error) {
	vector, err := embedQuery(ctx, s.embedder, text)
	if err != nil {
		return nil, err
	}

	filter := index.Filter{Type: index.TypeOutlet}
	if len(cities) > 0 {
		filter.Field = "city"
		filter.Values = cities
	}

	matches, err := s.index.Query(ctx, index.QueryRequest{Vector: vector, TopK: topK, Filter: filter})
	if err != nil {
		return nil, serviceError("index", "search outlets", err)
	}

	result := &QueryResult{Query: text, Mode: ModeSearch, CitiesDetected: cities}
	if len(matches) == 0 {
		result.Response = "No matching outlets found."
		return result, nil
	}

	result.Outlets = projectOutlets(matches)
	result.MatchesFound = len(result.Outlets)
	result.Response = "Outlets retrieved successfully."
	return result, nil
}

func projectOutlets(matches []index.Match) []Outlet {
	outlets := make([]Outlet, 0, len(matches))
	for _, m := range matches {
		outlets = append(outlets, Outlet{
			Name:    m.Metadata.Get("name", ""),
			Address: m.Metadata.Get("address", ""),
			City:    m.Metadata.Get("city", ""),
			Hours:   m.Metadata.Get("hours", "Not available"),
			Text:    m.Metadata.Get("text", ""),
		})
	}
	return outlets
}
