package ingest

import (
	"context"
	"testing"

	milvusclient "github.com/milvus-io/milvus-sdk-go/v2/client"
	milvusentity "github.com/milvus-io/milvus-sdk-go/v2/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMilvus struct {
	exists        bool
	upsertResult  milvusentity.Column
	searchResults []milvusclient.SearchResult

	hasCalls    int
	createCalls int
	indexCalls  int
	loadCalls   int
	searchCalls int
	closeCalls  int
}

func (f *fakeMilvus) HasCollection(ctx context.Context, collName string) (bool, error) {
	f.hasCalls++
	return f.exists, nil
}

func (f *fakeMilvus) CreateCollection(ctx context.Context, schema *milvusentity.Schema, shardsNum int32, opts ...milvusclient.CreateCollectionOption) error {
	f.createCalls++
	f.exists = true
	return nil
}

func (f *fakeMilvus) CreateIndex(ctx context.Context, collName string, fieldName string, idx milvusentity.Index, async bool, opts ...milvusclient.IndexOption) error {
	f.indexCalls++
	return nil
}

func (f *fakeMilvus) LoadCollection(ctx context.Context, collName string, async bool, opts ...milvusclient.LoadCollectionOption) error {
	f.loadCalls++
	return nil
}

func (f *fakeMilvus) Upsert(ctx context.Context, collName string, partitionName string, columns ...milvusentity.Column) (milvusentity.Column, error) {
	return f.upsertResult, nil
}

func (f *fakeMilvus) Search(ctx context.Context, collName string, partitions []string, expr string, outputFields []string, vectors []milvusentity.Vector, vectorField string, metricType milvusentity.MetricType, topK int, sp milvusentity.SearchParam, opts ...milvusclient.SearchQueryOptionFunc) ([]milvusclient.SearchResult, error) {
	f.searchCalls++
	return f.searchResults, nil
}

func (f *fakeMilvus) Close() error {
	f.closeCalls++
	return nil
}

func newFakeStore(fake *fakeMilvus) *MilvusStore {
	return &MilvusStore{
		address:    "fake:19530",
		collection: "test_index",
		dim:        3,
		metricType: milvusentity.COSINE,
		m:          4,
		efConstr:   400,
		efSearch:   500,
		dial: func(ctx context.Context) (milvusAPI, error) {
			return fake, nil
		},
	}
}

func TestEnsureIndexCreatesOnlyOnce(t *testing.T) {
	fake := &fakeMilvus{}
	store := newFakeStore(fake)

	require.NoError(t, store.EnsureIndex(context.Background()))
	require.NoError(t, store.EnsureIndex(context.Background()))

	assert.Equal(t, 2, fake.hasCalls)
	assert.Equal(t, 1, fake.createCalls, "second call must not recreate the collection")
	assert.Equal(t, 1, fake.indexCalls)
	assert.Equal(t, 1, fake.loadCalls)
	assert.Equal(t, 2, fake.closeCalls)
}

func TestSearchDoesNotReloadCollection(t *testing.T) {
	fake := &fakeMilvus{
		exists: true,
		searchResults: []milvusclient.SearchResult{{
			ResultCount: 2,
			IDs:         milvusentity.NewColumnVarChar(fieldID, []string{"doc-1", "doc-2"}),
			Fields: milvusclient.ResultSet{
				milvusentity.NewColumnVarChar(fieldContent, []string{"primer apunte", "segundo apunte"}),
			},
			Scores: []float32{0.12, 0.34},
		}},
	}
	store := newFakeStore(fake)

	hits, err := store.Search(context.Background(), []float32{0.1, 0.2, 0.3}, 3)
	require.NoError(t, err)

	require.Len(t, hits, 2)
	assert.Equal(t, "doc-1", hits[0].ID)
	assert.Equal(t, "primer apunte", hits[0].Content)
	assert.Equal(t, float32(0.12), hits[0].Score)
	assert.Equal(t, "segundo apunte", hits[1].Content)

	assert.Equal(t, 1, fake.searchCalls)
	assert.Zero(t, fake.loadCalls, "queries must not re-load the collection")
}

func TestSearchMissingCollection(t *testing.T) {
	fake := &fakeMilvus{exists: false}
	store := newFakeStore(fake)

	_, err := store.Search(context.Background(), []float32{0.1, 0.2, 0.3}, 3)
	require.ErrorContains(t, err, "not found")
	assert.Zero(t, fake.searchCalls)
}

func TestUpsertRejectsPartialAcknowledgement(t *testing.T) {
	fake := &fakeMilvus{
		exists:       true,
		upsertResult: milvusentity.NewColumnVarChar(fieldID, []string{"chunk-1"}),
	}
	store := newFakeStore(fake)

	chunks := []Chunk{
		{ID: "chunk-1", Content: "uno", Vector: []float32{0.1, 0.2, 0.3}},
		{ID: "chunk-2", Content: "dos", Vector: []float32{0.4, 0.5, 0.6}},
	}
	err := store.Upsert(context.Background(), chunks)
	require.ErrorContains(t, err, "acknowledged 1 of 2")
}

func TestUpsertRejectsDimensionMismatch(t *testing.T) {
	fake := &fakeMilvus{exists: true}
	store := newFakeStore(fake)

	err := store.Upsert(context.Background(), []Chunk{
		{ID: "chunk-1", Content: "uno", Vector: []float32{0.1, 0.2}},
	})
	require.ErrorContains(t, err, "dimension")
}
