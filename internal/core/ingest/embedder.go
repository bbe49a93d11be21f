package ingest

import (
	"context"
	"errors"
	"fmt"

	"nabook/config"
	"nabook/pkg/apperror/status"
	"nabook/pkg/logger"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

type openAIEmbeddingRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type openAIEmbeddingResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// OpenAIEmbedder calls the hosted embeddings endpoint. The deployment name and
// an optional Azure-style base URL come from config.
type OpenAIEmbedder struct {
	client openai.Client
	model  string
	dim    int
}

func NewOpenAIEmbedder(key, endpoint, model string, dim int) *OpenAIEmbedder {
	opts := []option.RequestOption{option.WithAPIKey(key)}
	if endpoint != "" {
		opts = append(opts, option.WithBaseURL(endpoint))
	}
	return &OpenAIEmbedder{
		client: openai.NewClient(opts...),
		model:  model,
		dim:    dim,
	}
}

// Embed returns the vector for a single input string. Quota, auth and
// malformed-input failures from upstream propagate untouched.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, status.New(status.UpstreamEmbedding, errors.New("empty embedding input"))
	}

	req := openAIEmbeddingRequest{Model: e.model, Input: text}
	var out openAIEmbeddingResponse
	if err := e.client.Post(ctx, "/embeddings", req, &out); err != nil {
		logger.Error(err, "%v: embedding call failed", config.ModuleOpenAI)
		return nil, status.New(status.UpstreamEmbedding, err)
	}
	if out.Error != nil {
		return nil, status.New(status.UpstreamEmbedding, errors.New(out.Error.Message))
	}
	if len(out.Data) == 0 {
		return nil, status.New(status.UpstreamEmbedding, errors.New("no embedding returned"))
	}

	src := out.Data[0].Embedding
	if e.dim > 0 && len(src) != e.dim {
		return nil, status.New(status.UpstreamEmbedding,
			fmt.Errorf("embedding dimension mismatch: got %d, index expects %d", len(src), e.dim))
	}
	vec := make([]float32, len(src))
	for i := range src {
		vec[i] = float32(src[i])
	}
	return vec, nil
}
