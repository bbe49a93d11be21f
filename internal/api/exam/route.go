package exam

import (
	"github.com/gofiber/fiber/v3"
)

// RegisterRoutes mounts the exam generation endpoint.
func RegisterRoutes(r fiber.Router, h *Handler) {
	r.Post("/generate-exam", h.HandleGenerate)
}
