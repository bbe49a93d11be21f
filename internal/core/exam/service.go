package exam

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"nabook/config"
	"nabook/internal/core/ingest"
	"nabook/pkg/apperror/status"
	"nabook/pkg/logger"

	"github.com/go-playground/validator/v10"
)

// Ingestor is the inline-ingestion dependency (satisfied by ingest.Ingestor).
type Ingestor interface {
	Ingest(ctx context.Context, id, content string) error
}

// Retriever embeds the topic and searches the index (satisfied by retriever.Retriever).
type Retriever interface {
	Retrieve(ctx context.Context, topic string, freshlyIngested bool) ([]string, error)
}

// Service runs the exam generation pipeline. All collaborators are injected so
// tests can substitute fakes for the hosted dependencies.
type Service struct {
	store     ingest.VectorStore
	ingestor  Ingestor
	retriever Retriever
	chat      ChatClient

	questionCount int
	validate      *validator.Validate
}

func NewService(store ingest.VectorStore, ingestor Ingestor, retriever Retriever, chat ChatClient, questionCount int) *Service {
	if questionCount <= 0 {
		questionCount = 3
	}
	return &Service{
		store:         store,
		ingestor:      ingestor,
		retriever:     retriever,
		chat:          chat,
		questionCount: questionCount,
		validate:      validator.New(),
	}
}

// Generate executes the pipeline in strict sequence, each step an abort point:
// validate topic, ensure index, optionally ingest the provided document, embed
// and search, prompt the chat model, parse and validate the exam. No partial
// results: the pipeline is all-or-nothing per request.
func (s *Service) Generate(ctx context.Context, req Request) (Exam, error) {
	topic := strings.TrimSpace(req.Topic)
	if topic == "" {
		return Exam{}, ErrTopicRequired
	}
	logger.Info("%v: generate start, topic %q", config.ModuleExam, topic)

	if err := s.store.EnsureIndex(ctx); err != nil {
		logger.Error(err, "%v: ensure index failed", config.ModuleExam)
		return Exam{}, err
	}

	freshlyIngested := false
	if req.ID != "" && strings.TrimSpace(req.Content) != "" {
		logger.Info("%v: ingesting document %s inline", config.ModuleExam, req.ID)
		if err := s.ingestor.Ingest(ctx, req.ID, req.Content); err != nil {
			logger.Error(err, "%v: inline ingestion failed", config.ModuleExam)
			return Exam{}, err
		}
		freshlyIngested = true
	}

	retrieveCtx, cancelRetrieve := context.WithTimeout(ctx, 30*time.Second)
	defer cancelRetrieve()
	chunks, err := s.retriever.Retrieve(retrieveCtx, topic, freshlyIngested)
	if err != nil {
		return Exam{}, err
	}
	if len(chunks) == 0 {
		return Exam{}, ErrEmptyIndex
	}
	logger.Info("%v: retrieved %d chunks", config.ModuleExam, len(chunks))

	system, user := buildPrompt(chunks, topic, s.questionCount)
	chatCtx, cancelChat := context.WithTimeout(ctx, 60*time.Second)
	defer cancelChat()
	raw, err := s.chat.CompleteJSON(chatCtx, system, user)
	if err != nil {
		return Exam{}, err
	}

	return s.parseExam(raw)
}

// parseExam decodes the model output and enforces the structural invariants:
// non-empty questions, four options each, correctOptionIndex within range.
func (s *Service) parseExam(raw string) (Exam, error) {
	var exam Exam
	if err := json.Unmarshal([]byte(raw), &exam); err != nil {
		return Exam{}, status.New(status.ChatBadFormat, fmt.Errorf("model output is not valid JSON: %w", err))
	}
	if err := s.validate.Struct(exam); err != nil {
		return Exam{}, status.New(status.ChatBadFormat, fmt.Errorf("model output failed validation: %w", err))
	}
	for i, q := range exam.Questions {
		if q.CorrectOptionIndex < 0 || q.CorrectOptionIndex >= len(q.Options) {
			return Exam{}, status.New(status.ChatBadFormat,
				fmt.Errorf("question %d: correctOptionIndex %d out of range [0,%d)", i, q.CorrectOptionIndex, len(q.Options)))
		}
	}
	return exam, nil
}
