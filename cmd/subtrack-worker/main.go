package main

import (
	"context"
	"errors"
	"os"
	"time"

	"subtrack/internal/amqp"
	"subtrack/internal/cli"
	"subtrack/internal/log"
	"subtrack/internal/sheets"
	gsheet "subtrack/internal/sheets/google"
	"subtrack/internal/sheets/memory"
	"subtrack/internal/worker"

	"golang.org/x/sync/errgroup"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), log.ComponentWorker)
	logger.Info("Starting subtrack-worker", log.FieldOperation, log.OpStartup)

	cfg := cli.LoadAndValidateConfig(logger)

	// The worker only reads; the API server owns writes.
	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	ctx := cli.GracefulShutdown(logger, 10*time.Second, nil)

	var mirror sheets.Mirror
	if cfg.GoogleSpreadsheetID != "" {
		client, err := gsheet.NewFromConfig(ctx, cfg)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		mirror = client
		logger.Info("Google Sheets client initialized",
			"spreadsheet_id", cfg.GoogleSpreadsheetID,
			"sheet", cfg.GoogleSheetName)
	} else {
		mirror = memory.New()
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided, mirroring in memory only")
	}

	mirrorWorker := worker.NewMirrorWorker(repo, mirror, cfg.ExchangeRate)

	// Startup sync catches changes made while the worker was down.
	if err := mirrorWorker.Sync(ctx); err != nil {
		logger.Error("Startup sync failed", "error", err)
		// Don't exit - the periodic sync will retry
	}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer amqpClient.Close()

		g.Go(func() error {
			err := amqpClient.ConsumeEvents(gctx, mirrorWorker.HandleEvent)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	} else {
		logger.Info("AMQP disabled - relying on periodic sync only")
	}

	g.Go(func() error {
		return mirrorWorker.RunPeriodic(gctx, cfg.SyncInterval)
	})

	logger.Info("Worker running", "sync_interval", cfg.SyncInterval.String())
	if err := g.Wait(); err != nil {
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully",
		log.FieldOperation, log.OpShutdown,
		"last_sync", mirrorWorker.LastSync())
}
