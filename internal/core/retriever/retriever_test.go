package retriever

import (
	"context"
	"errors"
	"testing"
	"time"

	"nabook/internal/core/ingest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEmbedder struct {
	vector []float32
	err    error
	calls  int
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	return f.vector, f.err
}

// fakeSearchStore returns one prepared result set per Search call, the last
// one repeating.
type fakeSearchStore struct {
	results [][]ingest.Hit
	err     error
	calls   int
}

func (f *fakeSearchStore) EnsureIndex(ctx context.Context) error { return nil }

func (f *fakeSearchStore) Upsert(ctx context.Context, chunks []ingest.Chunk) error { return nil }

func (f *fakeSearchStore) Ping(ctx context.Context) error { return nil }

func (f *fakeSearchStore) Search(ctx context.Context, vector []float32, topK int) ([]ingest.Hit, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if len(f.results) == 0 {
		return nil, nil
	}
	idx := f.calls - 1
	if idx >= len(f.results) {
		idx = len(f.results) - 1
	}
	return f.results[idx], nil
}

func newTestRetriever(embedder ingest.Embedder, store ingest.VectorStore) (*Retriever, *[]time.Duration) {
	slept := &[]time.Duration{}
	r := &Retriever{
		embedder:      embedder,
		store:         store,
		topK:          3,
		retryAttempts: 4,
		baseDelay:     500 * time.Millisecond,
		sleep:         func(d time.Duration) { *slept = append(*slept, d) },
	}
	return r, slept
}

func TestRetrieveRejectsEmptyTopic(t *testing.T) {
	emb := &fakeEmbedder{vector: []float32{0.1}}
	r, _ := newTestRetriever(emb, &fakeSearchStore{})

	_, err := r.Retrieve(context.Background(), "   ", false)
	require.Error(t, err)
	assert.Zero(t, emb.calls)
}

func TestRetrieveEmbedErrorPropagates(t *testing.T) {
	emb := &fakeEmbedder{err: errors.New("embedding unavailable")}
	store := &fakeSearchStore{}
	r, _ := newTestRetriever(emb, store)

	_, err := r.Retrieve(context.Background(), "tema", false)
	require.Error(t, err)
	assert.Zero(t, store.calls)
}

func TestRetrieveNoRetryWithoutFreshIngestion(t *testing.T) {
	store := &fakeSearchStore{results: [][]ingest.Hit{nil}}
	r, slept := newTestRetriever(&fakeEmbedder{vector: []float32{0.1}}, store)

	chunks, err := r.Retrieve(context.Background(), "tema", false)
	require.NoError(t, err)
	assert.Empty(t, chunks)
	assert.Equal(t, 1, store.calls)
	assert.Empty(t, *slept)
}

func TestRetrieveRetriesAfterFreshIngestionWithDoublingBackoff(t *testing.T) {
	store := &fakeSearchStore{results: [][]ingest.Hit{
		nil,
		nil,
		{{ID: "doc-1", Content: "la célula es la unidad básica de la vida"}},
	}}
	r, slept := newTestRetriever(&fakeEmbedder{vector: []float32{0.1}}, store)

	chunks, err := r.Retrieve(context.Background(), "tema", true)
	require.NoError(t, err)
	assert.Equal(t, []string{"la célula es la unidad básica de la vida"}, chunks)
	assert.Equal(t, 3, store.calls)
	assert.Equal(t, []time.Duration{500 * time.Millisecond, time.Second}, *slept)
}

func TestRetrieveGivesUpAfterConfiguredAttempts(t *testing.T) {
	store := &fakeSearchStore{results: [][]ingest.Hit{nil}}
	r, slept := newTestRetriever(&fakeEmbedder{vector: []float32{0.1}}, store)

	chunks, err := r.Retrieve(context.Background(), "tema", true)
	require.NoError(t, err)
	assert.Empty(t, chunks)
	assert.Equal(t, 4, store.calls)
	assert.Len(t, *slept, 3)
}

func TestRetrieveFiltersEmptyContent(t *testing.T) {
	store := &fakeSearchStore{results: [][]ingest.Hit{{
		{ID: "a", Content: "primero"},
		{ID: "b", Content: ""},
		{ID: "c", Content: "tercero"},
	}}}
	r, _ := newTestRetriever(&fakeEmbedder{vector: []float32{0.1}}, store)

	chunks, err := r.Retrieve(context.Background(), "tema", false)
	require.NoError(t, err)
	assert.Equal(t, []string{"primero", "tercero"}, chunks)
}

func TestRetrieveSearchErrorPropagates(t *testing.T) {
	store := &fakeSearchStore{err: errors.New("search down")}
	r, slept := newTestRetriever(&fakeEmbedder{vector: []float32{0.1}}, store)

	_, err := r.Retrieve(context.Background(), "tema", true)
	require.Error(t, err)
	assert.Equal(t, 1, store.calls, "upstream errors must not be retried")
	assert.Empty(t, *slept)
}
