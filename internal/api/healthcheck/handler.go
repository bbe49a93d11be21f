package healthcheck

import (
	"context"
	"time"

	"nabook/config"
	"nabook/internal/core/ingest"
	"nabook/internal/database"
	"nabook/pkg/apperror"

	"github.com/gofiber/fiber/v3"
)

type Handler struct {
	store ingest.VectorStore
}

func NewHandler(store ingest.VectorStore) *Handler {
	return &Handler{store: store}
}

func (h *Handler) API(c fiber.Ctx) error {
	return c.SendString("ok")
}

func (h *Handler) Database(c fiber.Ctx) error {
	db, err := database.GetDB()
	if err != nil {
		return apperror.InternalError(config.ModuleDatabase, c, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return apperror.InternalError(config.ModuleDatabase, c, err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		return apperror.InternalError(config.ModuleDatabase, c, err)
	}
	return c.SendString("ok")
}

func (h *Handler) Search(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := h.store.Ping(ctx); err != nil {
		return apperror.InternalError(config.ModuleSearch, c, err)
	}
	return c.SendString("ok")
}
