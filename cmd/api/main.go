package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/oncotrack/response-api/internal/config"
	"github.com/oncotrack/response-api/internal/handler"
	cohorthandler "github.com/oncotrack/response-api/internal/handler/cohort"
	"github.com/oncotrack/response-api/internal/middleware"
	"github.com/oncotrack/response-api/internal/repository/postgres"
	"github.com/oncotrack/response-api/internal/router"
	cohortservice "github.com/oncotrack/response-api/internal/service/cohort"
	"github.com/oncotrack/response-api/pkg/logger"
	"github.com/oncotrack/response-api/pkg/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	lg := logger.New(&logger.Config{
		Level:      level,
		TimeFormat: time.RFC3339,
		Output:     os.Stdout,
		Console:    cfg.Log.Console,
	})

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		lg.Fatal(err, "failed to connect to database")
	}
	defer db.Close()

	m := metrics.New(cfg.Metrics.Namespace, cfg.Metrics.Subsystem)

	measurementRepo := postgres.NewMeasurementRepository(db, m)
	cohortSvc := cohortservice.NewService(measurementRepo, m, cfg.Cache.TTL, cfg.Cache.CleanupInterval)

	h := handler.NewHandler(db)
	cohortH := cohorthandler.NewHandler(cohortSvc)

	r := router.NewRouter(h, cohortH, router.Config{
		RateLimit: middleware.RateLimiterConfig{
			RPS:   cfg.RateLimit.RPS,
			Burst: cfg.RateLimit.Burst,
		},
		CORS: middleware.CORSConfig{
			AllowedOrigins: cfg.CORS.AllowedOrigins,
			AllowedMethods: cfg.CORS.AllowedMethods,
			AllowedHeaders: cfg.CORS.AllowedHeaders,
		},
		Timeout:       time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
		MetricsPrefix: cfg.Metrics.Namespace,
	})
	r.Setup()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: r.Engine(),
	}

	go func() {
		lg.Info("starting server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			lg.Fatal(err, "failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	lg.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		lg.Fatal(err, "server forced to shutdown")
	}

	lg.Info("server exited properly")
}
