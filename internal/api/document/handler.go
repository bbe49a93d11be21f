package document

import (
	"context"
	"errors"
	"io"

	"nabook/config"
	"nabook/internal/core/ingest"
	docsvc "nabook/internal/services/document"
	"nabook/pkg/apperror"
	"nabook/pkg/apperror/status"

	"github.com/gofiber/fiber/v3"
)

// Processor runs the OCR-and-index pipeline (satisfied by document.Service).
type Processor interface {
	Process(ctx context.Context, filename string, data []byte, mimeType string) (docsvc.Result, error)
}

type Handler struct {
	svc Processor
}

func NewHandler(svc Processor) *Handler {
	return &Handler{svc: svc}
}

type processResponse struct {
	Success bool          `json:"success"`
	Data    docsvc.Result `json:"data"`
}

// HandleProcess accepts a multipart upload, extracts its text and indexes it.
// "No text extracted" is a client-visible 400, not a server failure.
func (h *Handler) HandleProcess(c fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return apperror.BadRequest(config.ModuleDocument, c, status.DocumentFileRequired, "no se proporcionó ningún archivo")
	}
	if fh.Size == 0 {
		return apperror.BadRequest(config.ModuleDocument, c, status.DocumentFileRequired, "el archivo está vacío")
	}

	file, err := fh.Open()
	if err != nil {
		return apperror.BadRequest(config.ModuleDocument, c, status.DocumentFileRequired, "no se pudo abrir el archivo")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return apperror.InternalError(config.ModuleDocument, c, err)
	}

	mimeType := fh.Header.Get("Content-Type")
	result, err := h.svc.Process(context.Background(), fh.Filename, data, mimeType)
	if errors.Is(err, ingest.ErrNoTextExtracted) {
		return apperror.BadRequest(config.ModuleDocument, c, status.DocumentNoTextExtracted, err.Error())
	}
	if err != nil {
		return apperror.InternalError(config.ModuleDocument, c, err)
	}

	return c.Status(fiber.StatusOK).JSON(processResponse{Success: true, Data: result})
}
