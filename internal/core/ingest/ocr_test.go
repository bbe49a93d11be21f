package ingest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"nabook/pkg/apperror/status"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractTextJoinsPagesPreferringMarkdown(t *testing.T) {
	var gotReq ocrRequest
	var gotAuth string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/ocr", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"pages": []map[string]string{
				{"markdown": "# Página uno"},
				{"markdown": "", "text": "página dos en texto plano"},
			},
		})
	}))
	defer srv.Close()

	ocr := NewMistralOCR(srv.URL, "test-key", "mistral-ocr")
	text, err := ocr.ExtractText(context.Background(), []byte("fake-image-bytes"), "image/png")
	require.NoError(t, err)

	assert.Equal(t, "# Página uno\n\npágina dos en texto plano", text)
	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "mistral-ocr", gotReq.Model)
	assert.Equal(t, "image_url", gotReq.Document.Type)
	assert.True(t, strings.HasPrefix(gotReq.Document.ImageURL, "data:image/png;base64,"))
}

func TestExtractTextDefaultsMimeToPDF(t *testing.T) {
	var gotReq ocrRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"pages": []map[string]string{{"markdown": "contenido"}},
		})
	}))
	defer srv.Close()

	ocr := NewMistralOCR(srv.URL, "k", "mistral-ocr")
	_, err := ocr.ExtractText(context.Background(), []byte("x"), "")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(gotReq.Document.ImageURL, "data:application/pdf;base64,"))
}

func TestExtractTextUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"invalid api key"}`))
	}))
	defer srv.Close()

	ocr := NewMistralOCR(srv.URL, "bad-key", "mistral-ocr")
	_, err := ocr.ExtractText(context.Background(), []byte("x"), "image/png")
	require.Error(t, err)

	var coded status.CodedError
	require.ErrorAs(t, err, &coded)
	assert.Equal(t, status.UpstreamOCR, coded.ErrorCode())
	assert.Contains(t, err.Error(), "401")
	assert.Contains(t, err.Error(), "invalid api key")
}

func TestExtractTextEmptyResultIsClientError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"pages": []map[string]string{{"markdown": "   "}, {"text": "\n\t"}},
		})
	}))
	defer srv.Close()

	ocr := NewMistralOCR(srv.URL, "k", "mistral-ocr")
	_, err := ocr.ExtractText(context.Background(), []byte("x"), "image/png")
	require.ErrorIs(t, err, ErrNoTextExtracted)
}
