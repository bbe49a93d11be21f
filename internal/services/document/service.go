package document

import (
	"context"
	"path/filepath"
	"strings"

	"nabook/config"
	"nabook/internal/core/ingest"
	"nabook/pkg/logger"

	"github.com/google/uuid"
)

const previewRunes = 200

// Ingestor indexes extracted text (satisfied by ingest.Ingestor).
type Ingestor interface {
	IngestExtracted(ctx context.Context, id, content string) error
}

// Archiver stores the raw upload; nil disables archiving.
type Archiver interface {
	Store(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// Result is returned to the editor UI after a document was processed.
type Result struct {
	DocumentID string `json:"documentId"`
	Preview    string `json:"preview"`
	Indexed    bool   `json:"indexed"`
}

// Service turns an uploaded image/PDF into an indexed chunk: extract text
// (native PDF layer first, OCR as fallback), embed, upsert, archive the raw
// bytes best-effort.
type Service struct {
	extractor ingest.TextExtractor
	ingestor  Ingestor
	store     ingest.VectorStore
	archive   Archiver
}

func NewService(extractor ingest.TextExtractor, ingestor Ingestor, store ingest.VectorStore, archive Archiver) *Service {
	return &Service{
		extractor: extractor,
		ingestor:  ingestor,
		store:     store,
		archive:   archive,
	}
}

// Process runs the document pipeline. An empty extraction aborts before any
// embedding or index upload, surfacing ingest.ErrNoTextExtracted.
func (s *Service) Process(ctx context.Context, filename string, data []byte, mimeType string) (Result, error) {
	text, err := s.extractText(ctx, filename, data, mimeType)
	if err != nil {
		return Result{}, err
	}

	if err := s.store.EnsureIndex(ctx); err != nil {
		return Result{}, err
	}

	documentID := uuid.NewString()
	if err := s.ingestor.IngestExtracted(ctx, documentID, text); err != nil {
		return Result{}, err
	}

	s.archiveUpload(ctx, documentID, filename, data, mimeType)

	return Result{
		DocumentID: documentID,
		Preview:    buildPreview(text),
		Indexed:    true,
	}, nil
}

// extractText prefers the PDF's embedded text layer; scanned PDFs and images
// go through the hosted OCR service.
func (s *Service) extractText(ctx context.Context, filename string, data []byte, mimeType string) (string, error) {
	isPDF := mimeType == "application/pdf" || strings.EqualFold(filepath.Ext(filename), ".pdf")
	if isPDF {
		if text, err := ingest.ExtractPDFText(data); err == nil && text != "" {
			logger.Info("%v: native pdf text used for %s, skipping ocr", config.ModuleDocument, filename)
			return text, nil
		}
	}
	return s.extractor.ExtractText(ctx, data, mimeType)
}

// archiveUpload is best-effort: losing the raw upload costs a re-upload, not
// the indexed knowledge.
func (s *Service) archiveUpload(ctx context.Context, documentID, filename string, data []byte, mimeType string) {
	if s.archive == nil {
		return
	}
	ext := strings.ToLower(filepath.Ext(filename))
	uri, err := s.archive.Store(ctx, documentID+ext, data, mimeType)
	if err != nil {
		logger.Error(err, "%v: archive upload failed for %s", config.ModuleDocument, documentID)
		return
	}
	logger.Info("%v: upload archived at %s", config.ModuleDocument, uri)
}

func buildPreview(text string) string {
	runes := []rune(text)
	if len(runes) <= previewRunes {
		return text + "..."
	}
	return string(runes[:previewRunes]) + "..."
}
