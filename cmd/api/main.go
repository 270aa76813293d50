package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"funmoji/internal/adapter/repo"
	"funmoji/internal/domain"
	"funmoji/internal/generator"
	"funmoji/internal/http/handlers"
	"funmoji/internal/http/httpapi"
	"funmoji/internal/infra"
	"funmoji/internal/infra/metrics"
	"funmoji/internal/providers/grok"
	"funmoji/internal/providers/replicate"
	"funmoji/internal/sticker"
	"funmoji/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	registry := prometheus.NewRegistry()
	metrics.Register(registry)

	store, err := storage.NewFileStore(cfg.OutputDir)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open output dir")
	}

	// Recents live in Postgres when a DATABASE_URL is present, in a JSON
	// file next to the stickers otherwise.
	ctx := context.Background()
	var recents domain.RecentStickerRepository
	if cfg.DatabaseURL != "" {
		pool, poolErr := infra.NewDBPool(ctx, cfg)
		if poolErr != nil {
			logger.Fatal().Err(poolErr).Msg("failed to connect database")
		}
		defer pool.Close()
		pg := repo.NewRecentStickerRepository(pool)
		if schemaErr := pg.EnsureSchema(ctx); schemaErr != nil {
			logger.Fatal().Err(schemaErr).Msg("failed to ensure schema")
		}
		recents = pg
	} else {
		file, fileErr := storage.NewRecentsFile(cfg.RecentsPath)
		if fileErr != nil {
			logger.Fatal().Err(fileErr).Msg("failed to open recents store")
		}
		recents = file
	}

	materializer, err := sticker.NewMaterializer(sticker.Options{Store: store, Logger: &logger})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build materializer")
	}

	replicateClient := replicate.NewClient(replicate.Options{
		APIToken:        cfg.ReplicateAPIToken,
		BaseURL:         cfg.ReplicateBaseURL,
		Logger:          &logger,
		PollInterval:    cfg.PollInterval,
		PollMaxAttempts: cfg.PollMaxAttempts,
	})
	grokClient := grok.NewClient(grok.Options{
		APIKey:  cfg.XAIAPIKey,
		BaseURL: cfg.XAIBaseURL,
		Logger:  &logger,
	})

	orchestrator, err := generator.New(generator.Options{
		Replicate:    replicateClient,
		Grok:         grokClient,
		Materializer: materializer,
		Recents:      recents,
		Logger:       &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build orchestrator")
	}
	if !orchestrator.HasAnyProvider() {
		logger.Warn().Msg("no provider credentials configured, generation requests will fail")
	}

	app := handlers.NewApp(orchestrator, recents, &logger)
	router := httpapi.NewRouter(app, httpapi.Options{
		Logger:        logger,
		DefaultLocale: cfg.DefaultLocale,
		GenerateLimit: cfg.RateLimitPerMin,
		StaticDir:     cfg.OutputDir,
		Registry:      registry,
	})

	server := infra.NewHTTPServer(cfg, router)
	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
