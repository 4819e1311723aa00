package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zus_chatbot/internal/config"
	"zus_chatbot/internal/index"
	"zus_chatbot/internal/testutil"
	"zus_chatbot/pkg"
)

// spyIndex records how the dispatchers use the index
type spyIndex struct {
	index.VectorIndex
	searches int
	scans    int
	counts   int
	err      error
}

func (s *spyIndex) Query(ctx context.Context, req index.QueryRequest) ([]index.Match, error) {
	if s.err != nil {
		return nil, s.err
	}
	if req.Vector == nil {
		s.scans++
	} else {
		s.searches++
	}
	return s.VectorIndex.Query(ctx, req)
}

func (s *spyIndex) Count(ctx context.Context, filter index.Filter) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	s.counts++
	return s.VectorIndex.Count(ctx, filter)
}

type stubCompleter struct {
	reply  string
	err    error
	prompt string
}

func (c *stubCompleter) Complete(ctx context.Context, history []*schema.Message, message string) (string, error) {
	c.prompt = message
	return c.reply, c.err
}

func seedIndex(t *testing.T, embedder *testutil.FakeEmbedder) *spyIndex {
	t.Helper()
	ctx := context.Background()
	idx := index.NewMemoryIndex()

	records := []map[string]any{
		{"type": index.TypeOutlet, "name": "ZUS Coffee Cheras Traders Square", "address": "Jalan Cheras", "city": "Cheras", "hours": "8am-10pm", "text": "Outlet: ZUS Coffee Cheras Traders Square"},
		{"type": index.TypeOutlet, "name": "ZUS Coffee Taman Connaught", "address": "Jalan Cerdas, Cheras", "city": "Cheras", "text": "Outlet: ZUS Coffee Taman Connaught"},
		{"type": index.TypeOutlet, "name": "ZUS Coffee SS 2", "address": "SS 2, Petaling Jaya", "city": "Petaling Jaya", "hours": "7am-9pm", "text": "Outlet: ZUS Coffee SS 2"},
		{"type": index.TypeProduct, "name": "ZUS All Day Cup", "price": 55, "description": "stainless steel tumbler", "calories": "", "text": "Product: ZUS All Day Cup"},
		{"type": index.TypeProduct, "name": "ZUS OG Ceramic Mug", "price": 39, "description": "ceramic mug", "text": "Product: ZUS OG Ceramic Mug"},
	}

	var vectors []index.Vector
	for i, meta := range records {
		emb, err := embedder.EmbedStrings(ctx, []string{fmt.Sprint(meta["text"], " ", meta["description"], " ", meta["address"])})
		require.NoError(t, err)
		vectors = append(vectors, index.Vector{ID: fmt.Sprintf("r%d", i), Values: emb[0], Metadata: meta})
	}
	require.NoError(t, idx.Upsert(ctx, vectors))
	return &spyIndex{VectorIndex: idx}
}

func newOutletService(t *testing.T) (*OutletService, *spyIndex) {
	embedder := testutil.NewFakeEmbedder()
	idx := seedIndex(t, embedder)
	return NewOutletService(embedder, idx, config.DefaultCorpus().Cities, Config{Timeout: time.Second}), idx
}

func TestExtractCities(t *testing.T) {
	cities := config.DefaultCorpus().Cities

	assert.Equal(t, []string{"Petaling Jaya"}, ExtractCities("how many outlets in petaling jaya", cities))
	assert.Equal(t, []string{"Shah Alam", "Cheras"}, ExtractCities("Cheras or SHAH ALAM?", cities))
	assert.Empty(t, ExtractCities("outlets near me", cities))
}

func TestOutletCountByCity(t *testing.T) {
	svc, idx := newOutletService(t)

	result, err := svc.Query(context.Background(), "how many outlets in Cheras", 0)
	require.NoError(t, err)

	assert.Equal(t, ModeCount, result.Mode)
	assert.Equal(t, "There are 2 outlets in Cheras.", result.Response)
	assert.Equal(t, 2, result.MatchesFound)
	assert.Equal(t, map[string]int{"Cheras": 2}, result.CityCounts)
	assert.Equal(t, []string{"Cheras"}, result.CitiesDetected)
	assert.Len(t, result.Outlets, 2)
	assert.Equal(t, 0, idx.searches)
	assert.Equal(t, 1, idx.scans)
}

func TestOutletCountMultipleCities(t *testing.T) {
	svc, _ := newOutletService(t)

	result, err := svc.Query(context.Background(), "number of stores in Cheras and Petaling Jaya", 0)
	require.NoError(t, err)
	assert.Equal(t, "There are 3 outlets in Petaling Jaya, Cheras.", result.Response)
	assert.Equal(t, map[string]int{"Cheras": 2, "Petaling Jaya": 1}, result.CityCounts)
}

func TestOutletCountAll(t *testing.T) {
	svc, idx := newOutletService(t)

	result, err := svc.Query(context.Background(), "How many outlets do you have?", 0)
	require.NoError(t, err)
	assert.Equal(t, "There are 3 outlets across all cities.", result.Response)
	assert.Equal(t, 3, result.MatchesFound)
	assert.Equal(t, 1, idx.counts)
	assert.Equal(t, 0, idx.searches)
}

func TestOutletSearch(t *testing.T) {
	svc, idx := newOutletService(t)

	result, err := svc.Query(context.Background(), "outlet in Petaling Jaya", 0)
	require.NoError(t, err)
	assert.Equal(t, ModeSearch, result.Mode)
	assert.Equal(t, "Outlets retrieved successfully.", result.Response)
	require.Len(t, result.Outlets, 1)
	assert.Equal(t, "ZUS Coffee SS 2", result.Outlets[0].Name)
	assert.Equal(t, "7am-9pm", result.Outlets[0].Hours)
	assert.Equal(t, 1, idx.searches)
}

func TestOutletHoursPlaceholder(t *testing.T) {
	svc, _ := newOutletService(t)

	result, err := svc.Query(context.Background(), "opening hours of outlets in Cheras", 0)
	require.NoError(t, err)
	require.NotEmpty(t, result.Outlets)
	for _, o := range result.Outlets {
		assert.Equal(t, HoursPlaceholder, o.Hours)
	}

	result, err = svc.Query(context.Background(), "how many outlets in Cheras and their hours", 0)
	require.NoError(t, err)
	for _, o := range result.Outlets {
		assert.Equal(t, HoursPlaceholder, o.Hours)
	}
}

func TestOutletMissingHours(t *testing.T) {
	svc, _ := newOutletService(t)

	result, err := svc.Query(context.Background(), "Taman Connaught Cheras", 0)
	require.NoError(t, err)
	for _, o := range result.Outlets {
		if o.Name == "ZUS Coffee Taman Connaught" {
			assert.Equal(t, "Not available", o.Hours)
		}
	}
}

func TestOutletNoMatches(t *testing.T) {
	svc, _ := newOutletService(t)

	result, err := svc.Query(context.Background(), "outlet in Sepang", 0)
	require.NoError(t, err)
	assert.Equal(t, "No matching outlets found.", result.Response)
	assert.Equal(t, []string{"Sepang"}, result.CitiesDetected)
}

func TestOutletServiceErrors(t *testing.T) {
	svc, idx := newOutletService(t)
	idx.err = errors.New("connection reset")

	_, err := svc.Query(context.Background(), "how many outlets in Cheras", 0)
	assert.ErrorIs(t, err, pkg.ErrServiceUnavailable)

	_, err = svc.Query(context.Background(), "   ", 0)
	assert.ErrorIs(t, err, pkg.ErrInvalidRequest)
}

func TestOutletEmbeddingFailure(t *testing.T) {
	embedder := testutil.NewFakeEmbedder()
	idx := seedIndex(t, embedder)
	svc := NewOutletService(embedder, idx, config.DefaultCorpus().Cities, Config{})
	embedder.Err = errors.New("timeout")

	_, err := svc.Query(context.Background(), "outlet near klcc", 0)
	assert.ErrorIs(t, err, pkg.ErrServiceUnavailable)
}

func TestProductCount(t *testing.T) {
	embedder := testutil.NewFakeEmbedder()
	idx := seedIndex(t, embedder)
	svc := NewProductService(embedder, idx, nil, Config{})

	result, err := svc.Query(context.Background(), "How many drinkware items are there in total?", 0)
	require.NoError(t, err)
	assert.Equal(t, "There are 2 products available.", result.Response)
	assert.Equal(t, ModeCount, result.Mode)
	assert.Equal(t, 0, idx.searches)
}

func TestProductSearch(t *testing.T) {
	embedder := testutil.NewFakeEmbedder()
	idx := seedIndex(t, embedder)
	svc := NewProductService(embedder, idx, nil, Config{})

	result, err := svc.Query(context.Background(), "ceramic mug", 1)
	require.NoError(t, err)
	assert.Equal(t, "Products retrieved successfully.", result.Response)
	require.Len(t, result.Products, 1)
	assert.Equal(t, "ZUS OG Ceramic Mug", result.Products[0].Name)
	assert.Equal(t, "39", result.Products[0].Price)
	assert.Equal(t, "Product: ZUS OG Ceramic Mug", result.Products[0].Text)
}

func TestProductSearchSummary(t *testing.T) {
	embedder := testutil.NewFakeEmbedder()
	idx := seedIndex(t, embedder)
	summarizer := &stubCompleter{reply: "The OG Ceramic Mug costs RM39."}
	svc := NewProductService(embedder, idx, summarizer, Config{})

	result, err := svc.Query(context.Background(), "ceramic mug price", 0)
	require.NoError(t, err)
	assert.Equal(t, "The OG Ceramic Mug costs RM39.", result.Response)
	assert.Contains(t, summarizer.prompt, "User question: ceramic mug price")
	assert.Contains(t, summarizer.prompt, "ZUS OG Ceramic Mug")

	summarizer.err = errors.New("down")
	result, err = svc.Query(context.Background(), "ceramic mug price", 0)
	require.NoError(t, err)
	assert.Equal(t, "Products retrieved successfully.", result.Response)
}

func TestProductNoMatches(t *testing.T) {
	embedder := testutil.NewFakeEmbedder()
	svc := NewProductService(embedder, index.NewMemoryIndex(), nil, Config{})

	result, err := svc.Query(context.Background(), "tumbler", 0)
	require.NoError(t, err)
	assert.Equal(t, "No matching products found.", result.Response)
	assert.Equal(t, 0, result.MatchesFound)
}
