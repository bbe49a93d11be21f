package ingest

import (
	"context"
	"time"

	"nabook/config"
	"nabook/pkg/logger"
)

// Ingestor writes a single document into the vector index: embed the content,
// then upsert {id, content, vector, metadata}. There is no rollback path: a
// failed upsert after a successful embedding surfaces the upsert error and the
// embedding cost is sunk.
type Ingestor struct {
	embedder Embedder
	store    VectorStore
}

func NewIngestor(embedder Embedder, store VectorStore) *Ingestor {
	return &Ingestor{embedder: embedder, store: store}
}

// Ingest indexes content under id with sourceType "note".
func (ing *Ingestor) Ingest(ctx context.Context, id, content string) error {
	return ing.ingest(ctx, id, content, SourceNote)
}

// IngestExtracted indexes OCR/extracted text under id with sourceType "vision_ocr".
func (ing *Ingestor) IngestExtracted(ctx context.Context, id, content string) error {
	return ing.ingest(ctx, id, content, SourceVisionOCR)
}

func (ing *Ingestor) ingest(ctx context.Context, id, content, sourceType string) error {
	vector, err := ing.embedder.Embed(ctx, content)
	if err != nil {
		return err
	}

	chunk := Chunk{
		ID:         id,
		Content:    content,
		Vector:     vector,
		SourceType: sourceType,
		CreatedAt:  time.Now().UTC().Format(time.RFC3339),
	}
	if err := ing.store.Upsert(ctx, []Chunk{chunk}); err != nil {
		return err
	}

	logger.WithFields(map[string]interface{}{
		"id":          id,
		"source_type": sourceType,
		"chars":       len(content),
	}).Infof("%v: document indexed", config.ModuleSearch)
	return nil
}
