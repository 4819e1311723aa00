package index

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pinecone-io/go-pinecone/v3/pinecone"
	"github.com/rs/zerolog"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"zus_chatbot/pkg"
	"zus_chatbot/src/logger"
)

// PineconeConfig configures one Pinecone index host
type PineconeConfig struct {
	Host       string
	APIKey     string
	Namespace  string
	Dimension  int
	Timeout    time.Duration
	MaxRetries uint64
}

// DataPlane is the subset of *pinecone.IndexConnection used by PineconeIndex
type DataPlane interface {
	QueryByVectorValues(ctx context.Context, in *pinecone.QueryByVectorValuesRequest) (*pinecone.QueryVectorsResponse, error)
	DescribeIndexStatsFiltered(ctx context.Context, metadataFilter *pinecone.MetadataFilter) (*pinecone.DescribeIndexStatsResponse, error)
	UpsertVectors(ctx context.Context, in []*pinecone.Vector) (uint32, error)
}

// PineconeIndex is a VectorIndex over one Pinecone index.
// Query and Count are idempotent and retried with exponential backoff.
type PineconeIndex struct {
	conn       DataPlane
	namespace  string
	dimension  int
	timeout    time.Duration
	maxRetries uint64
	log        zerolog.Logger
}

// NewPineconeIndex connects to the index at config.Host
func NewPineconeIndex(config PineconeConfig) (*PineconeIndex, error) {
	if config.Host == "" {
		return nil, fmt.Errorf("pinecone host is required")
	}
	if config.Dimension <= 0 {
		return nil, fmt.Errorf("pinecone dimension must be positive")
	}

	client, err := pinecone.NewClient(pinecone.NewClientParams{ApiKey: config.APIKey})
	if err != nil {
		return nil, fmt.Errorf("failed to create pinecone client: %w", err)
	}
	conn, err := client.Index(pinecone.NewIndexConnParams{Host: config.Host, Namespace: config.Namespace})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to pinecone index %s: %w", config.Host, err)
	}

	return NewPineconeIndexWithConn(conn, config), nil
}

// NewPineconeIndexWithConn wraps an existing data plane connection
func NewPineconeIndexWithConn(conn DataPlane, config PineconeConfig) *PineconeIndex {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &PineconeIndex{
		conn:       conn,
		namespace:  config.Namespace,
		dimension:  config.Dimension,
		timeout:    timeout,
		maxRetries: config.MaxRetries,
		log:        logger.Component("pinecone"),
	}
}

// Query runs a similarity search. A nil vector is sent as a zero vector so the
// filter alone selects records.
func (p *PineconeIndex) Query(ctx context.Context, req QueryRequest) ([]Match, error) {
	vector := make([]float32, p.dimension)
	for i, v := range req.Vector {
		if i < len(vector) {
			vector[i] = float32(v)
		}
	}

	filter, err := pineconeFilter(req.Filter, true)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", pkg.ErrInvalidRequest, err)
	}

	in := &pinecone.QueryByVectorValuesRequest{
		Vector:          vector,
		TopK:            uint32(max(req.TopK, 1)),
		MetadataFilter:  filter,
		IncludeMetadata: true,
	}

	var resp *pinecone.QueryVectorsResponse
	err = p.retry(ctx, func(ctx context.Context) (err error) {
		resp, err = p.conn.QueryByVectorValues(ctx, in)
		return err
	})
	if err != nil {
		return nil, pkg.NewServiceError("pinecone", "query", err)
	}

	matches := make([]Match, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		if m == nil || m.Vector == nil || m.Vector.Id == "" {
			p.log.Warn().Msg("Skipping match without id")
			continue
		}
		var raw map[string]any
		if m.Vector.Metadata != nil {
			raw = m.Vector.Metadata.AsMap()
		}
		matches = append(matches, Match{ID: m.Vector.Id, Score: float64(m.Score), Metadata: toMetadata(raw)})
	}
	return matches, nil
}

// Count returns the number of records. Each domain lives in its own index, so
// the type constraint is implied by the host and only the field filter is sent.
func (p *PineconeIndex) Count(ctx context.Context, filter Filter) (int, error) {
	metadataFilter, err := pineconeFilter(filter, false)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", pkg.ErrInvalidRequest, err)
	}

	var resp *pinecone.DescribeIndexStatsResponse
	err = p.retry(ctx, func(ctx context.Context) (err error) {
		resp, err = p.conn.DescribeIndexStatsFiltered(ctx, metadataFilter)
		return err
	})
	if err != nil {
		return 0, pkg.NewServiceError("pinecone", "count", err)
	}

	if p.namespace != "" {
		if ns, ok := resp.Namespaces[p.namespace]; ok && ns != nil {
			return int(ns.VectorCount), nil
		}
		return 0, nil
	}
	return int(resp.TotalVectorCount), nil
}

// Upsert writes vectors in a single request
func (p *PineconeIndex) Upsert(ctx context.Context, vectors []Vector) error {
	if len(vectors) == 0 {
		return nil
	}

	in := make([]*pinecone.Vector, 0, len(vectors))
	for _, v := range vectors {
		if v.ID == "" {
			return fmt.Errorf("%w: vector id cannot be empty", pkg.ErrInvalidRequest)
		}
		values := make([]float32, len(v.Values))
		for i, f := range v.Values {
			values[i] = float32(f)
		}
		metadata, err := structpb.NewStruct(v.Metadata)
		if err != nil {
			return fmt.Errorf("%w: metadata of %s: %v", pkg.ErrInvalidRequest, v.ID, err)
		}
		in = append(in, &pinecone.Vector{Id: v.ID, Values: &values, Metadata: metadata})
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	if _, err := p.conn.UpsertVectors(ctx, in); err != nil {
		return pkg.NewServiceError("pinecone", "upsert", err)
	}
	return nil
}

// retry runs op with a per-attempt timeout. Errors a retry cannot fix stop it early.
func (p *PineconeIndex) retry(ctx context.Context, op func(ctx context.Context) error) error {
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), p.maxRetries), ctx)
	return backoff.RetryNotify(func() error {
		attemptCtx, cancel := context.WithTimeout(ctx, p.timeout)
		defer cancel()

		err := op(attemptCtx)
		if err != nil && !retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, policy, func(err error, wait time.Duration) {
		p.log.Warn().Err(err).Dur("retry_in", wait).Msg("Pinecone request failed, retrying")
	})
}

func retryable(err error) bool {
	switch status.Code(err) {
	case codes.InvalidArgument, codes.NotFound, codes.PermissionDenied,
		codes.Unauthenticated, codes.FailedPrecondition, codes.Unimplemented:
		return false
	default:
		return true
	}
}

// pineconeFilter renders a Filter in Pinecone's metadata filter language
func pineconeFilter(f Filter, withType bool) (*pinecone.MetadataFilter, error) {
	filter := map[string]any{}
	if withType && f.Type != "" {
		filter["type"] = map[string]any{"$eq": f.Type}
	}
	switch {
	case f.Field == "" || len(f.Values) == 0:
	case len(f.Values) == 1:
		filter[f.Field] = map[string]any{"$eq": f.Values[0]}
	default:
		values := make([]any, len(f.Values))
		for i, v := range f.Values {
			values[i] = v
		}
		filter[f.Field] = map[string]any{"$in": values}
	}
	if len(filter) == 0 {
		return nil, nil
	}
	return structpb.NewStruct(filter)
}
