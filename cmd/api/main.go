package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"server/internal/adapter/repo"
	"server/internal/cache"
	"server/internal/http/handlers"
	"server/internal/http/httpapi"
	"server/internal/infra"
	"server/internal/jobs"
	"server/internal/prompts"
	"server/internal/providers/synthetic"
	"server/internal/providers/vertex"
	"server/internal/storage"
)

func main() {
	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := infra.RunMigrations(cfg.DatabaseURL); err != nil {
		logger.Fatal().Err(err).Msg("failed to apply migrations")
	}

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer pool.Close()

	var reportCache cache.Cache
	if cfg.RedisURL != "" {
		redisCache, err := cache.NewRedisCache(cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to configure redis")
		}
		if err := redisCache.Ping(ctx); err != nil {
			logger.Fatal().Err(err).Msg("failed to reach redis")
		}
		defer redisCache.Close()
		reportCache = redisCache
		logger.Info().Msg("redis cache enabled")
	}

	storagePath := cfg.StoragePath
	if !filepath.IsAbs(storagePath) {
		if abs, err := filepath.Abs(storagePath); err == nil {
			storagePath = abs
		}
	}
	fileStore, err := storage.NewFileStore(storagePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure storage")
	}

	settings := handlers.ProviderSettings{
		ProjectID:   cfg.VertexProjectID,
		Location:    cfg.VertexLocation,
		BaseURL:     cfg.VertexBaseURL,
		AccessToken: cfg.VertexAccessToken,
		VideoModel:  cfg.VideoModel,
		ImageModel:  cfg.ImageModel,
		TextModel:   cfg.TextModel,
	}
	buildClient := func(s handlers.ProviderSettings) (jobs.Client, error) {
		return vertex.NewClient(vertex.Options{
			ProjectID:   s.ProjectID,
			Location:    s.Location,
			BaseURL:     s.BaseURL,
			AccessToken: s.AccessToken,
			VideoModel:  s.VideoModel,
			ImageModel:  s.ImageModel,
			TextModel:   s.TextModel,
			Logger:      &logger,
		})
	}

	var client jobs.Client
	if settings.ProjectID != "" && settings.AccessToken != "" {
		client, err = buildClient(settings)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to configure vertex client")
		}
	} else {
		logger.Warn().Msg("vertex credentials missing, using synthetic generation")
		client = synthetic.NewClient()
	}
	clients := jobs.NewClientRef(client)

	jobRepo := repo.NewJobRepository(pool)
	instructionRepo := repo.NewInstructionRepository(pool)
	runner := jobs.NewRunner(jobRepo, fileStore, logger)
	dispatcher := jobs.NewDispatcher(jobRepo, clients, runner, logger)
	statusService := jobs.NewStatusService(jobRepo, reportCache, logger)
	promptService := prompts.NewService(func() prompts.TextGenerator {
		gen, _ := clients.Load().(prompts.TextGenerator)
		return gen
	}, logger)

	app := handlers.NewApp(dispatcher, statusService, instructionRepo, promptService, clients, buildClient, settings, logger)
	router := httpapi.NewRouter(app, httpapi.Options{
		Logger:          logger,
		AllowedOrigins:  []string{"*"},
		RateLimitPerMin: cfg.RateLimitPerMin,
		StaticDir:       storagePath,
	})

	server := infra.NewHTTPServer(cfg, router)
	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	if err := dispatcher.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to drain runners")
	}
	logger.Info().Msg("server stopped")
}
