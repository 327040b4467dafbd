package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"subtrack/internal/cli"
	apphttp "subtrack/internal/http"
	"subtrack/internal/log"
	"subtrack/internal/services"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	publisher, closePublisher := cli.InitPublisher(logger, cfg)
	defer closePublisher()

	svc := services.NewSubscriptionService(repo, publisher)
	srv := apphttp.NewServer(":"+cfg.Port, svc, repo, cfg.ExchangeRate, logger,
		apphttp.WithWriteRateLimit(cfg.WriteRateLimit))

	// Configure server timeouts and limits
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
	})

	logger.Info("Starting subtrack server",
		log.FieldOperation, log.OpStartup,
		"port", cfg.Port,
		"db_path", cfg.SQLiteDBPath,
		"exchange_rate", cfg.ExchangeRate,
		"write_rate_limit", cfg.WriteRateLimit,
		"events", cfg.AMQPURL != "")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully", log.FieldOperation, log.OpShutdown)
}
