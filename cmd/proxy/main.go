package main

import (
	"context"
	"os"

	"go.uber.org/zap"

	"github.com/parley-llm/parley/internal/config"
	"github.com/parley-llm/parley/internal/platform/logger"
	"github.com/parley-llm/parley/internal/platform/otel"
	"github.com/parley-llm/parley/internal/server"
	"github.com/parley-llm/parley/pkg/client"
	"github.com/parley-llm/parley/pkg/keys"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Get().Fatal("config load failed", zap.Error(err))
	}

	logger.Initialize(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	log := logger.Get()
	defer logger.Sync()

	shutdown, err := otel.InitTracer("parley-proxy", log, os.Stdout)
	if err != nil {
		log.Fatal("tracer init failed", zap.Error(err))
	}
	defer func() {
		_ = shutdown(context.Background())
	}()

	sources := []keys.Source{keys.FromEnv()}
	if cfg.Keys.DotenvPath != "" {
		sources = append(sources, keys.FromDotenv(cfg.Keys.DotenvPath))
	}
	if cfg.Keys.SQLitePath != "" {
		sources = append(sources, keys.FromSQLite(cfg.Keys.SQLitePath))
	}

	store, err := keys.Load(sources...)
	if err != nil {
		log.Fatal("credential load failed", zap.Error(err))
	}
	log.Info("credentials loaded", zap.Int("providers", len(store.Providers())))

	c := client.New(store, client.WithLogger(log))

	engine := server.NewRouter(c, log, cfg.Server.Env)
	log.Info("starting proxy", zap.String("port", cfg.Server.Port))
	if err := engine.Run(":" + cfg.Server.Port); err != nil {
		log.Fatal("server failed", zap.Error(err))
	}
}
