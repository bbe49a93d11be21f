package document

import (
	"context"
	"errors"
	"strings"
	"testing"

	"nabook/internal/core/ingest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubExtractor struct {
	text  string
	err   error
	calls int
}

func (s *stubExtractor) ExtractText(ctx context.Context, data []byte, mimeType string) (string, error) {
	s.calls++
	return s.text, s.err
}

type stubIngestor struct {
	ids      []string
	contents []string
	err      error
}

func (s *stubIngestor) IngestExtracted(ctx context.Context, id, content string) error {
	s.ids = append(s.ids, id)
	s.contents = append(s.contents, content)
	return s.err
}

type stubIndex struct {
	ensureCalls int
	ensureErr   error
}

func (s *stubIndex) EnsureIndex(ctx context.Context) error {
	s.ensureCalls++
	return s.ensureErr
}
func (s *stubIndex) Upsert(ctx context.Context, chunks []ingest.Chunk) error { return nil }
func (s *stubIndex) Search(ctx context.Context, vector []float32, topK int) ([]ingest.Hit, error) {
	return nil, nil
}
func (s *stubIndex) Ping(ctx context.Context) error { return nil }

type stubArchive struct {
	keys  []string
	mimes []string
	err   error
}

func (s *stubArchive) Store(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	s.keys = append(s.keys, key)
	s.mimes = append(s.mimes, contentType)
	if s.err != nil {
		return "", s.err
	}
	return "s3://bucket/documents/" + key, nil
}

func TestProcessImageHappyPath(t *testing.T) {
	extractor := &stubExtractor{text: "apuntes de biología celular"}
	ingestor := &stubIngestor{}
	index := &stubIndex{}
	archive := &stubArchive{}
	svc := NewService(extractor, ingestor, index, archive)

	res, err := svc.Process(context.Background(), "apuntes.png", []byte("png-bytes"), "image/png")
	require.NoError(t, err)

	assert.True(t, res.Indexed)
	assert.NotEmpty(t, res.DocumentID)
	assert.Equal(t, "apuntes de biología celular...", res.Preview)

	assert.Equal(t, 1, index.ensureCalls)
	require.Len(t, ingestor.ids, 1)
	assert.Equal(t, res.DocumentID, ingestor.ids[0])
	assert.Equal(t, "apuntes de biología celular", ingestor.contents[0])

	require.Len(t, archive.keys, 1)
	assert.Equal(t, res.DocumentID+".png", archive.keys[0])
	assert.Equal(t, "image/png", archive.mimes[0])
}

func TestProcessEmptyExtractionAbortsBeforeIndexing(t *testing.T) {
	extractor := &stubExtractor{err: ingest.ErrNoTextExtracted}
	ingestor := &stubIngestor{}
	index := &stubIndex{}
	svc := NewService(extractor, ingestor, index, nil)

	_, err := svc.Process(context.Background(), "blanco.png", []byte("x"), "image/png")
	require.ErrorIs(t, err, ingest.ErrNoTextExtracted)
	assert.Zero(t, index.ensureCalls)
	assert.Empty(t, ingestor.ids)
}

func TestProcessArchiveFailureIsNotFatal(t *testing.T) {
	extractor := &stubExtractor{text: "contenido"}
	archive := &stubArchive{err: errors.New("bucket unavailable")}
	svc := NewService(extractor, &stubIngestor{}, &stubIndex{}, archive)

	res, err := svc.Process(context.Background(), "nota.jpg", []byte("x"), "image/jpeg")
	require.NoError(t, err)
	assert.True(t, res.Indexed)
}

func TestProcessWithoutArchiver(t *testing.T) {
	svc := NewService(&stubExtractor{text: "contenido"}, &stubIngestor{}, &stubIndex{}, nil)

	res, err := svc.Process(context.Background(), "nota.png", []byte("x"), "image/png")
	require.NoError(t, err)
	assert.True(t, res.Indexed)
}

func TestProcessPreviewTruncatesLongText(t *testing.T) {
	long := strings.Repeat("á", 350)
	svc := NewService(&stubExtractor{text: long}, &stubIngestor{}, &stubIndex{}, nil)

	res, err := svc.Process(context.Background(), "nota.png", []byte("x"), "image/png")
	require.NoError(t, err)

	runes := []rune(res.Preview)
	assert.Len(t, runes, previewRunes+3)
	assert.True(t, strings.HasSuffix(res.Preview, "..."))
}

func TestProcessScannedPDFFallsBackToOCR(t *testing.T) {
	// Not a parseable PDF, so the embedded-text fast path fails and the OCR
	// extractor must be consulted.
	extractor := &stubExtractor{text: "texto por ocr"}
	svc := NewService(extractor, &stubIngestor{}, &stubIndex{}, nil)

	res, err := svc.Process(context.Background(), "escaneo.pdf", []byte("not-a-real-pdf"), "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, 1, extractor.calls)
	assert.True(t, res.Indexed)
}
