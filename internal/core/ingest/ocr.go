package ingest

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"nabook/config"
	"nabook/pkg/apperror/status"
	"nabook/pkg/logger"
)

// ErrNoTextExtracted means OCR succeeded but found nothing usable. Handlers
// treat it as a client error, not an upstream failure.
var ErrNoTextExtracted = errors.New("no se pudo extraer ningún texto del documento")

type ocrRequest struct {
	Model    string      `json:"model"`
	Document ocrDocument `json:"document"`
}

type ocrDocument struct {
	Type     string `json:"type"`
	ImageURL string `json:"image_url"`
}

type ocrResponse struct {
	Pages []struct {
		Markdown string `json:"markdown"`
		Text     string `json:"text"`
	} `json:"pages"`
}

// MistralOCR posts the file as an embedded base64 data URL to the hosted OCR
// endpoint. There is no Go SDK for this provider; the request is a single
// JSON POST.
type MistralOCR struct {
	endpoint string
	apiKey   string
	model    string
	http     *http.Client
}

func NewMistralOCR(endpoint, apiKey, model string) *MistralOCR {
	return &MistralOCR{
		endpoint: strings.TrimSuffix(endpoint, "/"),
		apiKey:   apiKey,
		model:    model,
		http:     &http.Client{Timeout: 60 * time.Second},
	}
}

// ExtractText runs OCR and concatenates per-page text, preferring the richer
// markdown field over plain text, with a blank line between pages.
func (m *MistralOCR) ExtractText(ctx context.Context, data []byte, mimeType string) (string, error) {
	if mimeType == "" {
		mimeType = "application/pdf"
	}
	dataURL := fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data))

	body, err := json.Marshal(ocrRequest{
		Model:    m.model,
		Document: ocrDocument{Type: "image_url", ImageURL: dataURL},
	})
	if err != nil {
		return "", status.New(status.UpstreamOCR, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint+"/v1/ocr", bytes.NewReader(body))
	if err != nil {
		return "", status.New(status.UpstreamOCR, err)
	}
	req.Header.Set("Authorization", "Bearer "+m.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.http.Do(req)
	if err != nil {
		logger.Error(err, "%v: ocr call failed", config.ModuleMistral)
		return "", status.New(status.UpstreamOCR, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errText, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", status.New(status.UpstreamOCR,
			fmt.Errorf("mistral ocr failed: %s - %s", resp.Status, strings.TrimSpace(string(errText))))
	}

	var out ocrResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", status.New(status.UpstreamOCR, err)
	}

	parts := make([]string, 0, len(out.Pages))
	for _, p := range out.Pages {
		if p.Markdown != "" {
			parts = append(parts, p.Markdown)
		} else {
			parts = append(parts, p.Text)
		}
	}
	text := strings.Join(parts, "\n\n")
	if strings.TrimSpace(text) == "" {
		return "", ErrNoTextExtracted
	}
	return text, nil
}
