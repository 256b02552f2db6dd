package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kavach/engine/internal/api"
	"github.com/kavach/engine/internal/api/handlers"
	"github.com/kavach/engine/internal/auth"
	"github.com/kavach/engine/internal/config"
	"github.com/kavach/engine/internal/engine"
	"github.com/kavach/engine/internal/health"
	"github.com/kavach/engine/internal/office"
	"github.com/kavach/engine/internal/pdf"
	"github.com/kavach/engine/internal/storage"
	"github.com/kavach/engine/pkg/logger"
)

// @title Kavach Engine API
// @version 1.0
// @description Servicio HTTP de transformación de documentos PDF

// @BasePath /
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

// @securityDefinitions.apikey EngineSecret
// @in header
// @name X-ENGINE-SECRET

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	logger := logger.New(cfg.Log.Level, cfg.Log.Format)
	defer logger.Sync()

	logger.Infow("🚀 Starting Kavach Engine",
		"version", handlers.Version,
		"environment", cfg.Environment,
		"port", cfg.Port,
		"office_provider", cfg.Office.Provider,
		"redis_enabled", cfg.Redis.Enabled,
	)

	shutdown := NewShutdownManager(logger, 30*time.Second)

	registry, redisClient := setupRegistry(cfg, logger)
	if redisClient != nil {
		shutdown.Register("redis", func(context.Context) error { return redisClient.Close() })
	}

	store, err := storage.NewService(cfg, registry, logger.Named("storage"))
	if err != nil {
		logger.Errorw("Failed to initialize storage", "error", err)
		os.Exit(1)
	}

	// retención de artefactos
	janitorCtx, stopJanitor := context.WithCancel(context.Background())
	janitor := storage.NewJanitor(store, storage.RetentionPolicy{
		MaxAge:   cfg.Storage.RetentionMaxAge,
		MaxBytes: cfg.Storage.RetentionMaxBytes,
	}, logger.Named("janitor"))
	janitorDone := make(chan struct{})
	go func() {
		defer close(janitorDone)
		janitor.Run(janitorCtx, cfg.Storage.CleanupInterval)
	}()
	shutdown.Register("janitor", func(ctx context.Context) error {
		stopJanitor()
		select {
		case <-janitorDone:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})

	runner := engine.NewRunner(engine.ExecRunner{}, engine.Options{
		Timeout:       cfg.Engines.Timeout,
		MaxConcurrent: cfg.Engines.MaxConcurrent,
	}, logger.Named("engine"))
	tools := engine.NewTools(runner, engine.Chains{
		Ghostscript: cfg.Engines.Ghostscript,
		Qpdf:        cfg.Engines.Qpdf,
		Pdftoppm:    cfg.Engines.Pdftoppm,
		Office:      cfg.Office.Candidates,
	})
	logToolAvailability(logger, tools.Chains())

	converter := office.NewService(cfg, tools, logger.Named("office"))
	h := handlers.New(cfg, logger, store, pdf.NewService(logger.Named("pdf")), tools, converter)
	if redisClient != nil {
		h.Health().Register("redis", health.RedisPing(redisClient))
	}
	verifier := auth.NewVerifier(cfg.Security.JWTSecret, cfg.EngineSecret)

	server := api.NewServer(cfg, logger, h, verifier)
	shutdown.Register("http", server.Shutdown)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		if err := <-serverErr; err != nil {
			logger.Errorw("Server stopped", "error", err)
		}
		cancel()
	}()

	shutdown.Wait(ctx)
	if err := shutdown.Shutdown(); err != nil {
		logger.Errorw("Error durante shutdown", "error", err)
		os.Exit(1)
	}
	logger.Infow("🎯 Kavach Engine stopped")
}

// setupRegistry usa Redis para el registro de artefactos si está habilitado; si no, memoria
func setupRegistry(cfg *config.Config, log *logger.Logger) (storage.Registry, *redis.Client) {
	if !cfg.Redis.Enabled {
		log.Warnw("⚠️ Redis disabled - artifact registry kept in memory")
		return storage.NewMemoryRegistry(cfg.Storage.ArtifactTTL), nil
	}

	client, err := storage.NewRedisClient(context.Background(), cfg.Redis.URL, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Errorw("Redis unavailable - falling back to in-memory registry", "url", cfg.Redis.URL, "error", err)
		return storage.NewMemoryRegistry(cfg.Storage.ArtifactTTL), nil
	}

	log.Infow("✅ Redis connected", "url", cfg.Redis.URL)
	return storage.NewRedisRegistry(client, cfg.Storage.ArtifactTTL, log.Named("registry")), client
}

func logToolAvailability(log *logger.Logger, chains engine.Chains) {
	for name, candidates := range map[string][]string{
		"ghostscript": chains.Ghostscript,
		"qpdf":        chains.Qpdf,
		"pdftoppm":    chains.Pdftoppm,
		"office":      chains.Office,
	} {
		found := false
		for _, ok := range engine.Available(candidates) {
			found = found || ok
		}
		if found {
			log.Infow("🔧 External engine available", "engine", name, "candidates", candidates)
		} else {
			log.Warnw("⚠️ External engine not found in PATH", "engine", name, "candidates", candidates)
		}
	}
}
