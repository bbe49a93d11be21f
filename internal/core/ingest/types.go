package ingest

import "context"

// Source tags recorded on indexed chunks.
const (
	SourceNote      = "note"
	SourceVisionOCR = "vision_ocr"
)

// Chunk is one indexed unit of knowledge: the raw text plus its embedding.
// Re-ingesting the same ID overwrites by upsert; chunks are never deleted.
type Chunk struct {
	ID         string
	Content    string
	Vector     []float32
	SourceType string
	CreatedAt  string // RFC 3339
}

// Hit is a single ranked result from the vector index.
type Hit struct {
	ID      string
	Score   float32
	Content string
}

// Embedder converts one text into a fixed-length vector. No batching: the
// pipeline embeds a single note or a single topic at a time.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// VectorStore is the hosted document index: upsert-by-id plus approximate
// nearest-neighbor search, with a lazily created schema.
type VectorStore interface {
	EnsureIndex(ctx context.Context) error
	Upsert(ctx context.Context, chunks []Chunk) error
	Search(ctx context.Context, vector []float32, topK int) ([]Hit, error)
	Ping(ctx context.Context) error
}

// TextExtractor turns an uploaded image/PDF payload into plain text.
type TextExtractor interface {
	ExtractText(ctx context.Context, data []byte, mimeType string) (string, error)
}
