package session

import (
	"github.com/gofiber/fiber/v3"
)

// RegisterRoutes mounts session CRUD and the exam attempt flow.
func RegisterRoutes(r fiber.Router, h *Handler) {
	sessions := r.Group("/sessions")
	sessions.Post("/", h.HandleCreate)
	sessions.Get("/:id", h.HandleGet)
	sessions.Put("/:id", h.HandleUpdate)
	sessions.Post("/:id/attempts", h.HandleStartAttempt)

	attempts := r.Group("/attempts")
	attempts.Post("/:id/answers", h.HandleAnswer)
	attempts.Post("/:id/next", h.HandleNext)
	attempts.Delete("/:id", h.HandleAbandon)
}
