package retriever

import (
	"context"
	"errors"
	"strings"
	"time"

	"nabook/config"
	"nabook/internal/core/ingest"
	"nabook/pkg/logger"
)

// Retriever embeds a topic and pulls the top-k most similar chunks out of the
// vector index.
type Retriever struct {
	embedder ingest.Embedder
	store    ingest.VectorStore

	topK          int
	retryAttempts int
	baseDelay     time.Duration

	sleep func(time.Duration) // swapped out in tests
}

func New(embedder ingest.Embedder, store ingest.VectorStore) *Retriever {
	cfg := config.Cfg.Retrieval
	return &Retriever{
		embedder:      embedder,
		store:         store,
		topK:          cfg.TopK,
		retryAttempts: cfg.RetryAttempts,
		baseDelay:     time.Duration(cfg.RetryBaseDelay) * time.Millisecond,
		sleep:         time.Sleep,
	}
}

// Retrieve returns the contents of the top-k chunks nearest to topic, in
// relevance order. When freshlyIngested is set, an empty result is retried
// with doubling backoff to absorb the index's eventual-consistency window.
// This is a best-effort mitigation, not a guarantee: under sustained indexing
// delay the new chunk may still be absent.
func (r *Retriever) Retrieve(ctx context.Context, topic string, freshlyIngested bool) ([]string, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, errors.New("topic is empty")
	}

	vector, err := r.embedder.Embed(ctx, topic)
	if err != nil {
		logger.Error(err, "%v: embed topic failed", config.ModuleRetriever)
		return nil, err
	}

	attempts := 1
	if freshlyIngested && r.retryAttempts > attempts {
		attempts = r.retryAttempts
	}

	delay := r.baseDelay
	for attempt := 1; ; attempt++ {
		hits, err := r.store.Search(ctx, vector, r.topK)
		if err != nil {
			logger.Error(err, "%v: search failed", config.ModuleRetriever)
			return nil, err
		}

		chunks := make([]string, 0, len(hits))
		for _, h := range hits {
			if h.Content != "" {
				chunks = append(chunks, h.Content)
			}
		}
		if len(chunks) > 0 || attempt >= attempts {
			return chunks, nil
		}

		logger.Info("%v: empty result after fresh ingestion, retrying in %s (attempt %d/%d)",
			config.ModuleRetriever, delay, attempt, attempts)
		r.sleep(delay)
		delay *= 2
	}
}
