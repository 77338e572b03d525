package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"finsight/internal/amqp"
	"finsight/internal/config"
	"finsight/internal/export"
	gexport "finsight/internal/export/google"
	applog "finsight/internal/log"
	"finsight/internal/services"
	"finsight/internal/storage"
	"finsight/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	cfg := applog.DefaultConfig()
	cfg.Component = applog.ComponentWorker
	logger := applog.New(cfg)
	applog.SetDefault(logger)

	logger.Info("Starting finsight-worker")

	conf := config.Load()
	if err := conf.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(conf.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", conf.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	// Google Sheets export is optional. Without it snapshots stay in SQLite.
	var writer export.SnapshotWriter
	if conf.GoogleSpreadsheetID != "" {
		client, err := gexport.NewFromEnv(context.Background())
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		writer = client
		logger.Info("Google Sheets export enabled", "spreadsheet_id", conf.GoogleSpreadsheetID)
	} else {
		logger.Info("Google Sheets export disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	amqpClient, err := amqp.NewClient(conf.AMQPURL, conf.AMQPExchange, conf.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	insights := services.NewInsightService(repo, amqpClient)
	recomputeWorker := worker.NewRecomputeWorker(repo, insights, writer, conf.ExportBatchSize)

	// Drain any export backlog left over from downtime
	if err := recomputeWorker.StartupExportCheck(ctx); err != nil {
		logger.Error("Startup export check failed", "error", err)
		// Don't exit - continue with normal operation
	}

	scheduler := worker.NewScheduler(ctx, recomputeWorker)
	if err := scheduler.Register(conf.RecomputeCron, conf.ExportCron); err != nil {
		logger.Error("Failed to register schedules", "error", err)
		os.Exit(1)
	}
	scheduler.Start()
	defer scheduler.Stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := amqpClient.ConsumeRecompute(gctx, func(msg *amqp.RecomputeMessage) error {
			return recomputeWorker.HandleRecomputeMessage(gctx, msg)
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	// Snapshot events nudge the exporter so snapshots reach the sheet
	// without waiting for the export cron. Pointless without a sink.
	if writer != nil {
		g.Go(func() error {
			err := amqpClient.ConsumeSnapshotEvents(gctx, conf.AMQPQueue+".snapshots", func(msg *amqp.SnapshotCreatedMessage) error {
				return recomputeWorker.HandleSnapshotEvent(gctx, msg)
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	logger.Info("Worker running",
		"queue", conf.AMQPQueue,
		"recompute_cron", conf.RecomputeCron,
		"export_cron", conf.ExportCron)

	if err := g.Wait(); err != nil {
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}

	logger.Info("Worker stopped gracefully")
}
