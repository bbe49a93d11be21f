package main

import (
	"context"
	"time"

	"nabook/config"
	"nabook/internal/core/ingest"
	"nabook/pkg/logger"

	"github.com/joho/godotenv"
)

// One-shot index provisioning. The API server also creates the index lazily,
// but running this first makes the first request cheaper and surfaces
// connectivity problems before deploy.
func main() {
	_ = godotenv.Load()

	if err := config.Init("config.yaml"); err != nil {
		logger.Fatal(err, "%v: invalid configuration", config.ModuleSetting)
	}
	_ = logger.SetLevel(string(config.Cfg.LogLevel))

	store := ingest.NewMilvusStore()

	var lastErr error
	for attempt := 1; attempt <= 5; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		lastErr = store.EnsureIndex(ctx)
		cancel()
		if lastErr == nil {
			logger.Info("%v: index %q ready", config.ModuleSearch, config.Cfg.Search.Index)
			return
		}
		logger.Warn("%v: attempt %d failed: %v", config.ModuleSearch, attempt, lastErr)
		time.Sleep(3 * time.Second)
	}
	logger.Fatal(lastErr, "%v: could not provision index %q", config.ModuleSearch, config.Cfg.Search.Index)
}
