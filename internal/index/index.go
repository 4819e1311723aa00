// Package index talks to the vector index holding product and outlet records.
package index

import (
	"context"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
)

// Record types stored in the index
const (
	TypeProduct = "product"
	TypeOutlet  = "outlet"
)

// Filter restricts a query to one record type and, optionally, to records whose
// Field equals one of Values
type Filter struct {
	Type   string
	Field  string
	Values []string
}

// QueryRequest is a similarity search. A nil Vector scans by filter only.
type QueryRequest struct {
	Vector []float64
	TopK   int
	Filter Filter
}

// Metadata is the validated string view of a record's metadata
type Metadata map[string]string

// Get returns the value for key, or fallback when it is missing or empty
func (m Metadata) Get(key, fallback string) string {
	if v, ok := m[key]; ok && v != "" {
		return v
	}
	return fallback
}

// Match is one ranked search result
type Match struct {
	ID       string   `json:"id"`
	Score    float64  `json:"score"`
	Metadata Metadata `json:"metadata"`
}

// Vector is one record to upsert
type Vector struct {
	ID       string         `json:"id"`
	Values   []float64      `json:"values"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// VectorIndex is the narrow interface the dispatchers and ingestion depend on
type VectorIndex interface {
	Query(ctx context.Context, req QueryRequest) ([]Match, error)
	Count(ctx context.Context, filter Filter) (int, error)
	Upsert(ctx context.Context, vectors []Vector) error
}

// toMetadata converts raw metadata into strings so callers never type-assert
func toMetadata(raw map[string]any) Metadata {
	meta := make(Metadata, len(raw))
	for k, v := range raw {
		meta[k] = stringify(v)
	}
	return meta
}

func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			parts = append(parts, stringify(item))
		}
		return strings.Join(parts, ", ")
	default:
		data, err := sonic.MarshalString(val)
		if err != nil {
			return ""
		}
		return data
	}
}

// matches reports whether metadata satisfies the filter
func (f Filter) matches(meta Metadata) bool {
	if f.Type != "" && meta["type"] != f.Type {
		return false
	}
	if f.Field == "" || len(f.Values) == 0 {
		return true
	}
	value := meta[f.Field]
	for _, want := range f.Values {
		if value == want {
			return true
		}
	}
	return false
}
