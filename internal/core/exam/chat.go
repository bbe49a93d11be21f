package exam

import (
	"context"
	"errors"
	"strings"

	"nabook/config"
	"nabook/pkg/apperror/status"
	"nabook/pkg/logger"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// ChatClient synthesizes text from a system and a user instruction, with the
// model constrained to emit a single JSON object.
type ChatClient interface {
	CompleteJSON(ctx context.Context, system, user string) (string, error)
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
type responseFormat struct {
	Type string `json:"type"`
}
type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	Temperature    float32        `json:"temperature"`
	MaxTokens      int            `json:"max_tokens"`
	ResponseFormat responseFormat `json:"response_format"`
}
type chatChoice struct {
	Index   int `json:"index"`
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	FinishReason string `json:"finish_reason"`
}
type chatResponse struct {
	Choices []chatChoice `json:"choices"`
}

// OpenAIChat calls the hosted chat-completions endpoint. The deployment name
// and an optional Azure-style base URL come from config.
type OpenAIChat struct {
	client      openai.Client
	model       string
	temperature float32
	maxTokens   int
}

func NewOpenAIChat(key, endpoint, model string, temperature float32, maxTokens int) *OpenAIChat {
	opts := []option.RequestOption{option.WithAPIKey(key)}
	if endpoint != "" {
		opts = append(opts, option.WithBaseURL(endpoint))
	}
	return &OpenAIChat{
		client:      openai.NewClient(opts...),
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
	}
}

func (c *OpenAIChat) CompleteJSON(ctx context.Context, system, user string) (string, error) {
	req := chatRequest{
		Model:       c.model,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		ResponseFormat: responseFormat{Type: "json_object"},
	}
	var out chatResponse
	if err := c.client.Post(ctx, "/chat/completions", req, &out); err != nil {
		logger.Error(err, "%v: chat call failed", config.ModuleOpenAI)
		return "", status.New(status.UpstreamChat, err)
	}
	if len(out.Choices) == 0 {
		return "", status.New(status.UpstreamChat, errors.New("no choices returned"))
	}
	content := strings.TrimSpace(out.Choices[0].Message.Content)
	if content == "" {
		return "", status.New(status.ChatBadFormat, errors.New("model returned empty content"))
	}
	return content, nil
}
