package nodes

import (
	"context"
	"fmt"
	"strings"

	"zus_chatbot/internal/core"
	"zus_chatbot/internal/services"
	"zus_chatbot/pkg"
)

// Querier is a domain dispatcher
type Querier interface {
	Query(ctx context.Context, text string, topK int) (*services.QueryResult, error)
}

// ====================== Products ======================
// ProductsNode answers product questions
type ProductsNode struct {
	service Querier
	topK    int
}

func NewProductsNode(service Querier, topK int) *ProductsNode {
	return &ProductsNode{service: service, topK: topK}
}

func (n *ProductsNode) Execute(ctx context.Context, input core.NodeInput) (core.NodeOutput, error) {
	result, err := n.service.Query(ctx, input.UserMessage, n.topK)
	if err != nil {
		return core.NodeOutput{}, err
	}
	return core.NodeOutput{
		Reply: formatProducts(result, input.Classification.QueryType),
		Data:  map[string]any{"matches_found": result.MatchesFound, "mode": result.Mode},
	}, nil
}

func (n *ProductsNode) GetName() string {
	return "products"
}

func (n *ProductsNode) GetType() core.NodeType {
	return core.NodeTypeTools
}

func formatProducts(result *services.QueryResult, queryType pkg.QueryType) string {
	if queryType == pkg.QueryTypeCount {
		if result.Mode == services.ModeCount {
			return result.Response
		}
		return fmt.Sprintf("There are **%d products** matching your query.", result.MatchesFound)
	}
	if len(result.Products) == 0 {
		return result.Response
	}

	lines := make([]string, 0, len(result.Products))
	switch queryType {
	case pkg.QueryTypeAttribute, pkg.QueryTypeTime:
		for _, p := range result.Products {
			lines = append(lines, fmt.Sprintf("%s - Price: RM%s, Calories: %s",
				orDefault(p.Name, "Unknown"), orDefault(p.Price, "N/A"), orDefault(p.Calories, "N/A")))
		}
		return "Here are the products with details:\n" + strings.Join(lines, "\n")
	default:
		for _, p := range result.Products {
			lines = append(lines, orDefault(p.Text, orDefault(p.Name, "Unknown")))
		}
		return "Here are some products I found:\n" + strings.Join(lines, "\n")
	}
}

// ====================== Outlets ======================
// OutletsNode answers outlet questions
type OutletsNode struct {
	service Querier
	topK    int
}

func NewOutletsNode(service Querier, topK int) *OutletsNode {
	return &OutletsNode{service: service, topK: topK}
}

func (n *OutletsNode) Execute(ctx context.Context, input core.NodeInput) (core.NodeOutput, error) {
	result, err := n.service.Query(ctx, input.UserMessage, n.topK)
	if err != nil {
		return core.NodeOutput{}, err
	}
	return core.NodeOutput{
		Reply: formatOutlets(result, input.Classification.QueryType),
		Data: map[string]any{
			"matches_found":   result.MatchesFound,
			"mode":            result.Mode,
			"cities_detected": result.CitiesDetected,
		},
	}, nil
}

func (n *OutletsNode) GetName() string {
	return "outlets"
}

func (n *OutletsNode) GetType() core.NodeType {
	return core.NodeTypeTools
}

func formatOutlets(result *services.QueryResult, queryType pkg.QueryType) string {
	if queryType == pkg.QueryTypeCount {
		if result.Mode == services.ModeCount {
			return result.Response
		}
		return fmt.Sprintf("There are **%d outlets** matching your query.", result.MatchesFound)
	}
	if len(result.Outlets) == 0 {
		return result.Response
	}

	lines := make([]string, 0, len(result.Outlets))
	switch queryType {
	case pkg.QueryTypeAttribute, pkg.QueryTypeTime:
		for _, o := range result.Outlets {
			lines = append(lines, fmt.Sprintf("%s: %s", orDefault(o.Name, "Unknown"), orDefault(o.Hours, "N/A")))
		}
		return "Outlet opening hours:\n" + strings.Join(lines, "\n")
	default:
		for _, o := range result.Outlets {
			snippet := o.Text
			if snippet == "" {
				snippet = strings.TrimSuffix(orDefault(o.Name, "Unknown")+" - "+o.Address, " - ")
			}
			lines = append(lines, snippet)
		}
		return "Here are the nearby outlets:\n" + strings.Join(lines, "\n")
	}
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
