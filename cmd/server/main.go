package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/andresuchdata/costbook/backend-go/internal/analytics"
	"github.com/andresuchdata/costbook/backend-go/internal/api"
	"github.com/andresuchdata/costbook/backend-go/internal/cache"
	"github.com/andresuchdata/costbook/backend-go/internal/config"
	"github.com/andresuchdata/costbook/backend-go/internal/repository/postgres"
	"github.com/andresuchdata/costbook/backend-go/internal/service"
	"github.com/andresuchdata/costbook/backend-go/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg := config.Load()

	logger.SetFormat(cfg.Log.Format)
	logger.SetLevel(cfg.Log.Level)
	log.Logger = logger.Log
	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := postgres.NewDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	if err := db.Migrate(context.Background()); err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to apply database schema")
	}

	analyticsCache, err := cache.NewAnalyticsCache(cfg.Cache)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Analytics cache unavailable, continuing without cache")
		analyticsCache = cache.NewNoopAnalyticsCache()
	}

	analyticsService := service.NewAnalyticsService(
		postgres.NewRecordRepository(db),
		postgres.NewInventoryRepository(db),
		postgres.NewRecipeRepository(db),
		analyticsCache,
		analytics.NewEngine(service.EngineOptionsFromConfig(cfg.Analytics)),
		service.DefaultsFromConfig(cfg.Analytics),
	)

	router := api.NewRouter(&api.Services{Analytics: analyticsService}, cfg.Server.AllowedOrigins)
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Log.Info().Str("port", cfg.Server.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info().Msg("Shutting down server...")

	shutdownTimeout := time.Duration(cfg.Server.ShutdownTimeout) * time.Second
	if shutdownTimeout <= 0 {
		shutdownTimeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	logger.Log.Info().Msg("Server exiting")
}
