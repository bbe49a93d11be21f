package exam

import (
	"context"
	"encoding/json"
	"errors"

	"nabook/config"
	coreexam "nabook/internal/core/exam"
	"nabook/pkg/apperror"
	"nabook/pkg/apperror/status"

	"github.com/gofiber/fiber/v3"
)

// Generator runs the ingest-and-search pipeline (satisfied by exam.Service).
type Generator interface {
	Generate(ctx context.Context, req coreexam.Request) (coreexam.Exam, error)
}

type Handler struct {
	svc Generator
}

func NewHandler(svc Generator) *Handler {
	return &Handler{svc: svc}
}

type generateResponse struct {
	Success bool          `json:"success"`
	Exam    coreexam.Exam `json:"exam"`
}

// HandleGenerate ingests the optional inline document, retrieves context for
// the topic and synthesizes an exam. Errors map onto the taxonomy: 400 for
// validation, 404 for an empty knowledge base, 500 for everything upstream.
func (h *Handler) HandleGenerate(c fiber.Ctx) error {
	var req coreexam.Request
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return apperror.BadRequest(config.ModuleExam, c, status.ExamInvalidRequestBody, err.Error())
	}

	result, err := h.svc.Generate(context.Background(), req)
	switch {
	case errors.Is(err, coreexam.ErrTopicRequired):
		return apperror.BadRequest(config.ModuleExam, c, status.ExamTopicRequired, err.Error())
	case errors.Is(err, coreexam.ErrEmptyIndex):
		return apperror.NotFound(config.ModuleExam, c, status.ExamEmptyIndex, err.Error())
	case err != nil:
		return apperror.InternalError(config.ModuleExam, c, err)
	}

	return c.Status(fiber.StatusOK).JSON(generateResponse{Success: true, Exam: result})
}
