package catalog

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"zus_chatbot/internal/index"
	"zus_chatbot/internal/services"
	"zus_chatbot/src/logger"
)

// IngestConfig tunes ingestion fan-out
type IngestConfig struct {
	Concurrency int
	BatchSize   int
	Cities      []string
	DefaultCity string
}

// Ingestor embeds catalog records and upserts them into the domain indexes
type Ingestor struct {
	source   Source
	embedder embedding.Embedder
	products index.VectorIndex
	outlets  index.VectorIndex
	config   IngestConfig
	log      zerolog.Logger
}

func NewIngestor(source Source, embedder embedding.Embedder, products, outlets index.VectorIndex, config IngestConfig) *Ingestor {
	if config.Concurrency <= 0 {
		config.Concurrency = 5
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 50
	}
	if config.DefaultCity == "" {
		config.DefaultCity = "KL/SEL"
	}
	return &Ingestor{
		source:   source,
		embedder: embedder,
		products: products,
		outlets:  outlets,
		config:   config,
		log:      logger.Component("ingest"),
	}
}

// IngestAll loads products then outlets and returns how many of each were written
func (i *Ingestor) IngestAll(ctx context.Context) (products, outlets int, err error) {
	if products, err = i.IngestProducts(ctx); err != nil {
		return products, 0, err
	}
	outlets, err = i.IngestOutlets(ctx)
	return products, outlets, err
}

// IngestProducts fetches, embeds and upserts the product catalog
func (i *Ingestor) IngestProducts(ctx context.Context) (int, error) {
	records, err := i.source.FetchProducts(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch products: %w", err)
	}

	vectors := make([]index.Vector, len(records))
	texts := make([]string, len(records))
	for n, p := range records {
		texts[n] = fmt.Sprintf("Product: %s\nDescription: %s\nPrice: RM%s", p.Name, p.Description, p.Price)
		vectors[n] = index.Vector{
			ID: "product-" + p.ID,
			Metadata: map[string]any{
				"name":        p.Name,
				"description": p.Description,
				"price":       p.Price,
				"text":        texts[n],
				"type":        index.TypeProduct,
			},
		}
	}

	return i.embedAndUpsert(ctx, i.products, texts, vectors)
}

// IngestOutlets fetches, embeds and upserts the outlet feed. The city is taken
// from the address; outlets in no known city get the default city.
func (i *Ingestor) IngestOutlets(ctx context.Context) (int, error) {
	records, err := i.source.FetchOutlets(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch outlets: %w", err)
	}

	vectors := make([]index.Vector, len(records))
	texts := make([]string, len(records))
	for n, o := range records {
		texts[n] = fmt.Sprintf("%s - %s", o.Name, o.Address)
		vectors[n] = index.Vector{
			// Stable ids keep re-ingestion idempotent
			ID: "outlet-" + uuid.NewSHA1(uuid.NameSpaceURL, []byte(o.Name+"|"+o.Address)).String(),
			Metadata: map[string]any{
				"name":    o.Name,
				"address": o.Address,
				"city":    i.CityOf(o.Address),
				"text":    texts[n],
				"type":    index.TypeOutlet,
				"hours":   "Not available",
			},
		}
	}

	return i.embedAndUpsert(ctx, i.outlets, texts, vectors)
}

var postcodePattern = regexp.MustCompile(`\b\d{5}\s+([^,]+)`)

// CityOf picks the outlet's city from its address: the known city following
// the postcode, else the earliest known city mentioned, else the default city.
func (i *Ingestor) CityOf(address string) string {
	if m := postcodePattern.FindStringSubmatch(address); m != nil {
		if cities := services.ExtractCities(m[1], i.config.Cities); len(cities) > 0 {
			return cities[0]
		}
	}

	lower := strings.ToLower(address)
	best, bestAt := "", len(lower)
	for _, city := range services.ExtractCities(address, i.config.Cities) {
		if at := strings.Index(lower, strings.ToLower(city)); at < bestAt {
			best, bestAt = city, at
		}
	}
	if best != "" {
		return best
	}
	return i.config.DefaultCity
}

func (i *Ingestor) embedAndUpsert(ctx context.Context, idx index.VectorIndex, texts []string, vectors []index.Vector) (int, error) {
	if len(vectors) == 0 {
		i.log.Warn().Msg("No records to ingest")
		return 0, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(i.config.Concurrency)
	for n := range vectors {
		g.Go(func() error {
			emb, err := i.embedder.EmbedStrings(gctx, []string{texts[n]})
			if err != nil {
				return fmt.Errorf("failed to embed %s: %w", vectors[n].ID, err)
			}
			if len(emb) != 1 {
				return fmt.Errorf("failed to embed %s: got %d vectors", vectors[n].ID, len(emb))
			}
			vectors[n].Values = emb[0]
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	written := 0
	for start := 0; start < len(vectors); start += i.config.BatchSize {
		end := min(start+i.config.BatchSize, len(vectors))
		if err := idx.Upsert(ctx, vectors[start:end]); err != nil {
			return written, fmt.Errorf("failed to upsert batch at %d: %w", start, err)
		}
		written += end - start
		i.log.Info().Int("batch", start/i.config.BatchSize+1).Int("size", end-start).Msg("Uploaded batch")
	}

	i.log.Info().Int("count", written).Msg("Ingestion complete")
	return written, nil
}
