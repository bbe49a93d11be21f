package main

import (
	"context"
	"fmt"
	"time"

	"nabook/config"
	apidocument "nabook/internal/api/document"
	apiexam "nabook/internal/api/exam"
	"nabook/internal/api/healthcheck"
	apisession "nabook/internal/api/session"
	"nabook/internal/core/exam"
	"nabook/internal/core/ingest"
	"nabook/internal/core/retriever"
	"nabook/internal/database"
	"nabook/internal/middleware"
	documentsvc "nabook/internal/services/document"
	sessionsvc "nabook/internal/services/session"
	"nabook/pkg/logger"
	s3pkg "nabook/pkg/s3"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/joho/godotenv"
)

func main() {
	// .env is optional; real deployments inject the environment directly.
	_ = godotenv.Load()

	if err := config.Init("config.yaml"); err != nil {
		logger.Fatal(err, "%v: invalid configuration", config.ModuleSetting)
	}
	_ = logger.SetLevel(string(config.Cfg.LogLevel))

	if err := database.Init(); err != nil {
		logger.Fatal(err, "%v: database unavailable", config.ModuleDatabase)
	}

	// Upstream handles are built once here and injected everywhere, so tests
	// can swap them for fakes.
	store := ingest.NewMilvusStore()
	pingSearchWithRetry(store, 5, 2*time.Second)

	oa := config.Cfg.OpenAI
	embedder := ingest.NewOpenAIEmbedder(oa.Key, oa.Endpoint, oa.EmbeddingModel, oa.EmbeddingDim)
	chat := exam.NewOpenAIChat(oa.Key, oa.Endpoint, oa.ChatModel, oa.Temperature, oa.MaxTokens)

	mi := config.Cfg.Mistral
	ocr := ingest.NewMistralOCR(mi.Endpoint, mi.Key, mi.Model)

	ingestor := ingest.NewIngestor(embedder, store)
	retr := retriever.New(embedder, store)
	examSvc := exam.NewService(store, ingestor, retr, chat, config.Cfg.Exam.QuestionCount)

	var archiver documentsvc.Archiver
	archive, err := s3pkg.NewArchive(context.Background())
	if err != nil {
		logger.Error(err, "%v: archive disabled", config.ModuleS3)
	} else if archive != nil {
		archiver = archive
	}
	docSvc := documentsvc.NewService(ocr, ingestor, store, archiver)

	repo := sessionsvc.NewRepository()
	attempts := sessionsvc.NewAttemptRegistry()

	app := fiber.New(fiber.Config{
		AppName:   config.Cfg.Server.AppName,
		BodyLimit: config.Cfg.Server.BodyLimit,
	})

	app.Use(middleware.RequestID())
	app.Use(middleware.PanicRecovery())
	app.Use(cors.New(cors.Config{
		AllowOrigins: config.Cfg.Cors.AllowOrigins,
		AllowMethods: config.Cfg.Cors.AllowMethods,
		AllowHeaders: config.Cfg.Cors.AllowHeaders,
	}))

	healthcheck.RegisterRoutes(app, healthcheck.NewHandler(store))

	api := app.Group("/api")
	apiexam.RegisterRoutes(api, apiexam.NewHandler(examSvc))
	apidocument.RegisterRoutes(api, apidocument.NewHandler(docSvc))
	apisession.RegisterRoutes(api, apisession.NewHandler(repo, attempts, examSvc))

	addr := fmt.Sprintf(":%d", config.Cfg.Server.Port)
	logger.Info("%v: listening on %s", config.ModuleServer, addr)
	if err := app.Listen(addr); err != nil {
		logger.Fatal(err, "%v: server error", config.ModuleServer)
	}
}

// pingSearchWithRetry warns early when the vector index is unreachable; the
// index itself is created lazily on first use.
func pingSearchWithRetry(store ingest.VectorStore, attempts int, delay time.Duration) {
	var lastErr error
	for i := 0; i < attempts; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		lastErr = store.Ping(ctx)
		cancel()
		if lastErr == nil {
			logger.Info("%v: reachable", config.ModuleSearch)
			return
		}
		time.Sleep(delay)
	}
	logger.Error(lastErr, "%v: unreachable after %d attempts", config.ModuleSearch, attempts)
}
