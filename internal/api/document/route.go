package document

import (
	"github.com/gofiber/fiber/v3"
)

// RegisterRoutes mounts the document processing endpoint.
func RegisterRoutes(r fiber.Router, h *Handler) {
	r.Post("/process-document", h.HandleProcess)
}
