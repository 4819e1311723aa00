package index

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"zus_chatbot/pkg"
)

// MemoryIndex is a brute-force in-process VectorIndex for development and tests
type MemoryIndex struct {
	mu      sync.RWMutex
	records map[string]Vector
	order   []string
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{records: make(map[string]Vector)}
}

// Query ranks filtered records by cosine similarity. A nil vector returns
// filtered records in insertion order with score 0.
func (m *MemoryIndex) Query(ctx context.Context, req QueryRequest) ([]Match, error) {
	if err := ctx.Err(); err != nil {
		return nil, pkg.NewServiceError("memory index", "query", err)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var matches []Match
	for _, id := range m.order {
		rec := m.records[id]
		meta := toMetadata(rec.Metadata)
		if !req.Filter.matches(meta) {
			continue
		}
		score := 0.0
		if req.Vector != nil {
			score = pkg.Cosine(req.Vector, rec.Values)
		}
		matches = append(matches, Match{ID: id, Score: score, Metadata: meta})
	}

	if req.Vector != nil {
		sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	}
	if req.TopK > 0 && len(matches) > req.TopK {
		matches = matches[:req.TopK]
	}
	return matches, nil
}

// Count returns the number of records matching filter
func (m *MemoryIndex) Count(ctx context.Context, filter Filter) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, pkg.NewServiceError("memory index", "count", err)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	total := 0
	for _, rec := range m.records {
		if filter.matches(toMetadata(rec.Metadata)) {
			total++
		}
	}
	return total, nil
}

// Upsert inserts or replaces records by id
func (m *MemoryIndex) Upsert(ctx context.Context, vectors []Vector) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, v := range vectors {
		if v.ID == "" {
			return fmt.Errorf("%w: vector id cannot be empty", pkg.ErrInvalidRequest)
		}
		if _, exists := m.records[v.ID]; !exists {
			m.order = append(m.order, v.ID)
		}
		m.records[v.ID] = v
	}
	return nil
}
