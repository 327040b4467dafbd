// Package cli provides common CLI initialization utilities shared by
// cmd/subtrack, cmd/subtrack-worker and cmd/subs.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"subtrack/internal/amqp"
	"subtrack/internal/config"
	"subtrack/internal/log"
	"subtrack/internal/services"
	"subtrack/internal/storage"

	"github.com/joho/godotenv"
)

// SetupLogger initializes structured logging at the given LOG_LEVEL and
// makes it the process default. Unknown levels fall back to info.
func SetupLogger(level, component string) *log.Logger {
	lvl, ok := config.ParseLogLevel(level)

	cfg := log.DefaultConfig()
	cfg.Level = lvl
	cfg.Component = component
	logger := log.New(cfg)
	log.SetDefault(logger)

	if !ok {
		logger.Warn("Unknown log level, using info", "level", level)
	}
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *log.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

// InitSQLite initializes a SQLite repository with the given path.
// Returns the repository or exits the process on failure.
func InitSQLite(logger *log.Logger, dbPath string) *storage.SQLiteRepository {
	sqliteRepo, err := storage.NewSQLiteRepository(dbPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", dbPath)
		os.Exit(1)
	}
	logger.Info("SQLite repository ready", "path", dbPath)
	return sqliteRepo
}

// InitPublisher connects the change-event publisher when AMQP_URL is set.
// With AMQP disabled or unreachable it returns a nil publisher, and the
// service runs without events. The returned close func is never nil.
func InitPublisher(logger *log.Logger, cfg *config.Config) (services.EventPublisher, func()) {
	if cfg.AMQPURL == "" {
		logger.Info("AMQP disabled - no AMQP_URL provided, change events will not be published")
		return nil, func() {}
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to connect to AMQP, continuing without change events", "error", err)
		return nil, func() {}
	}

	logger.Info("AMQP publisher connected", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	return client, func() {
		if err := client.Close(); err != nil {
			logger.Warn("Failed to close AMQP client", "error", err)
		}
	}
}

// GracefulShutdown returns a context that is cancelled on SIGINT or SIGTERM.
// cleanup, if given, runs first with a context bounded by timeout.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func(context.Context)) context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
		case <-ctx.Done():
			return
		}

		if cleanup != nil {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
			cleanup(shutdownCtx)
			if shutdownCtx.Err() == context.DeadlineExceeded {
				logger.Warn("Shutdown timeout reached")
			}
			shutdownCancel()
		}
		cancel()
	}()

	return ctx
}
