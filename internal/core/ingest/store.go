package ingest

import (
	"context"
	"fmt"

	"nabook/config"
	"nabook/pkg/apperror/status"
	"nabook/pkg/logger"

	milvusclient "github.com/milvus-io/milvus-sdk-go/v2/client"
	milvusentity "github.com/milvus-io/milvus-sdk-go/v2/entity"
)

const (
	fieldID         = "id"
	fieldContent    = "content"
	fieldSourceType = "source_type"
	fieldCreatedAt  = "created_at"
	fieldVector     = "embedding"

	maxIDLength      = 64
	maxContentLength = 65535
)

// milvusAPI is the slice of the SDK client the store actually calls. The SDK's
// milvusclient.Client satisfies it as-is; tests substitute a fake.
type milvusAPI interface {
	HasCollection(ctx context.Context, collName string) (bool, error)
	CreateCollection(ctx context.Context, schema *milvusentity.Schema, shardsNum int32, opts ...milvusclient.CreateCollectionOption) error
	CreateIndex(ctx context.Context, collName string, fieldName string, idx milvusentity.Index, async bool, opts ...milvusclient.IndexOption) error
	LoadCollection(ctx context.Context, collName string, async bool, opts ...milvusclient.LoadCollectionOption) error
	Upsert(ctx context.Context, collName string, partitionName string, columns ...milvusentity.Column) (milvusentity.Column, error)
	Search(ctx context.Context, collName string, partitions []string, expr string, outputFields []string, vectors []milvusentity.Vector, vectorField string, metricType milvusentity.MetricType, topK int, sp milvusentity.SearchParam, opts ...milvusclient.SearchQueryOptionFunc) ([]milvusclient.SearchResult, error)
	Close() error
}

// MilvusStore implements VectorStore against a Milvus deployment. Connections
// are dialed per call; the store itself holds no mutable state.
type MilvusStore struct {
	address    string
	collection string
	dim        int
	metricType milvusentity.MetricType
	m          int
	efConstr   int
	efSearch   int

	dial func(ctx context.Context) (milvusAPI, error)
}

func NewMilvusStore() *MilvusStore {
	cfg := config.Cfg.Search
	s := &MilvusStore{
		address:    cfg.Address,
		collection: cfg.Index,
		dim:        config.Cfg.OpenAI.EmbeddingDim,
		metricType: milvusentity.MetricType(cfg.IndexHNSWConfig.MetricType),
		m:          cfg.IndexHNSWConfig.M,
		efConstr:   cfg.IndexHNSWConfig.EfConstruction,
		efSearch:   cfg.IndexHNSWConfig.EfSearch,
	}
	s.dial = func(ctx context.Context) (milvusAPI, error) {
		return milvusclient.NewClient(ctx, milvusclient.Config{Address: s.address})
	}
	return s
}

func (s *MilvusStore) connect(ctx context.Context) (milvusAPI, error) {
	cli, err := s.dial(ctx)
	if err != nil {
		return nil, status.New(status.UpstreamSearch, err)
	}
	return cli, nil
}

// Ping verifies connectivity without touching the collection.
func (s *MilvusStore) Ping(ctx context.Context) error {
	cli, err := s.connect(ctx)
	if err != nil {
		return err
	}
	return cli.Close()
}

// EnsureIndex is idempotent: it creates the collection, its HNSW index and
// loads it only when the collection does not exist yet. Creation is rare
// relative to query volume, so paying the one-time cost on a cold start is
// preferred over out-of-band provisioning.
func (s *MilvusStore) EnsureIndex(ctx context.Context) error {
	cli, err := s.connect(ctx)
	if err != nil {
		return err
	}
	defer cli.Close()

	exists, err := cli.HasCollection(ctx, s.collection)
	if err != nil {
		return status.New(status.UpstreamSearch, err)
	}
	if exists {
		return nil
	}

	logger.Info("%v: creating index %q (dim=%d)", config.ModuleSearch, s.collection, s.dim)

	schema := milvusentity.NewSchema().WithName(s.collection).WithDescription("nabook note chunks")
	schema.WithField(milvusentity.NewField().
		WithName(fieldID).
		WithDataType(milvusentity.FieldTypeVarChar).
		WithMaxLength(maxIDLength).
		WithIsPrimaryKey(true))
	schema.WithField(milvusentity.NewField().
		WithName(fieldContent).
		WithDataType(milvusentity.FieldTypeVarChar).
		WithMaxLength(maxContentLength))
	schema.WithField(milvusentity.NewField().
		WithName(fieldSourceType).
		WithDataType(milvusentity.FieldTypeVarChar).
		WithMaxLength(32))
	schema.WithField(milvusentity.NewField().
		WithName(fieldCreatedAt).
		WithDataType(milvusentity.FieldTypeVarChar).
		WithMaxLength(64))
	schema.WithField(milvusentity.NewField().
		WithName(fieldVector).
		WithDataType(milvusentity.FieldTypeFloatVector).
		WithDim(int64(s.dim)))

	if err := cli.CreateCollection(ctx, schema, 2); err != nil {
		return status.New(status.UpstreamSearch, err)
	}

	idx, err := milvusentity.NewIndexHNSW(s.metricType, s.m, s.efConstr)
	if err != nil {
		return status.New(status.UpstreamSearch, err)
	}
	if err := cli.CreateIndex(ctx, s.collection, fieldVector, idx, false); err != nil {
		return status.New(status.UpstreamSearch, err)
	}
	if err := cli.LoadCollection(ctx, s.collection, false); err != nil {
		return status.New(status.UpstreamSearch, err)
	}

	logger.Info("%v: index %q created", config.ModuleSearch, s.collection)
	return nil
}

// Upsert inserts or overwrites chunks by key. Milvus acknowledges upserts with
// the written primary keys; fewer keys than submitted means a silent
// per-document failure, which the caller must see as an error.
func (s *MilvusStore) Upsert(ctx context.Context, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	cli, err := s.connect(ctx)
	if err != nil {
		return err
	}
	defer cli.Close()

	ids := make([]string, len(chunks))
	contents := make([]string, len(chunks))
	sources := make([]string, len(chunks))
	createdAts := make([]string, len(chunks))
	vectors := make([][]float32, len(chunks))
	for i, ch := range chunks {
		if len(ch.Vector) != s.dim {
			return status.New(status.UpstreamSearch,
				fmt.Errorf("chunk %s: vector dimension %d does not match index dimension %d", ch.ID, len(ch.Vector), s.dim))
		}
		ids[i] = ch.ID
		contents[i] = truncateRunes(ch.Content, maxContentLength)
		sources[i] = ch.SourceType
		createdAts[i] = ch.CreatedAt
		vectors[i] = ch.Vector
	}

	result, err := cli.Upsert(ctx, s.collection, "",
		milvusentity.NewColumnVarChar(fieldID, ids),
		milvusentity.NewColumnVarChar(fieldContent, contents),
		milvusentity.NewColumnVarChar(fieldSourceType, sources),
		milvusentity.NewColumnVarChar(fieldCreatedAt, createdAts),
		milvusentity.NewColumnFloatVector(fieldVector, s.dim, vectors),
	)
	if err != nil {
		return status.New(status.UpstreamSearch, err)
	}
	if result.Len() != len(chunks) {
		return status.New(status.UpstreamSearch,
			fmt.Errorf("upsert acknowledged %d of %d documents", result.Len(), len(chunks)))
	}
	return nil
}

// Search runs an ANN query on the content vector and returns hits in relevance
// order, projecting only the content field.
func (s *MilvusStore) Search(ctx context.Context, vector []float32, topK int) ([]Hit, error) {
	if topK <= 0 {
		topK = 3
	}
	cli, err := s.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer cli.Close()

	exists, err := cli.HasCollection(ctx, s.collection)
	if err != nil {
		return nil, status.New(status.UpstreamSearch, err)
	}
	if !exists {
		return nil, status.New(status.UpstreamSearch, fmt.Errorf("index %q not found", s.collection))
	}

	// EnsureIndex loaded the collection at creation and Milvus keeps it loaded
	// until released, so no LoadCollection round trip per query.
	sp, err := milvusentity.NewIndexHNSWSearchParam(s.efSearch)
	if err != nil {
		return nil, status.New(status.UpstreamSearch, err)
	}

	results, err := cli.Search(
		ctx,
		s.collection,
		nil, // partitions
		"",  // no scalar filter
		[]string{fieldContent},
		[]milvusentity.Vector{milvusentity.FloatVector(vector)},
		fieldVector,
		s.metricType,
		topK,
		sp,
	)
	if err != nil {
		logger.Error(err, "%v: search failed", config.ModuleSearch)
		return nil, status.New(status.UpstreamSearch, err)
	}
	if len(results) == 0 {
		return []Hit{}, nil
	}

	rs := results[0]
	hits := make([]Hit, 0, rs.ResultCount)
	for i := 0; i < rs.ResultCount; i++ {
		var h Hit
		if idCol, ok := rs.IDs.(*milvusentity.ColumnVarChar); ok {
			h.ID = idCol.Data()[i]
		}
		h.Score = rs.Scores[i]
		for _, field := range rs.Fields {
			if col, ok := field.(*milvusentity.ColumnVarChar); ok && col.Name() == fieldContent {
				h.Content = col.Data()[i]
			}
		}
		hits = append(hits, h)
	}
	return hits, nil
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
