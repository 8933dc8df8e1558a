package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/lodestar-data/tableau-harvester/pkg/apperrors"
	"github.com/lodestar-data/tableau-harvester/pkg/config"
	"github.com/lodestar-data/tableau-harvester/pkg/database"
	"github.com/lodestar-data/tableau-harvester/pkg/logging"
	"github.com/lodestar-data/tableau-harvester/pkg/models"
	"github.com/lodestar-data/tableau-harvester/pkg/repositories"
	"github.com/lodestar-data/tableau-harvester/pkg/sink"
	"github.com/lodestar-data/tableau-harvester/pkg/tableau"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.LogEnv)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Harvest did not complete cleanly", zap.Error(err))
		os.Exit(1)
	}
}

// errHarvestFailed signals a completed run with recorded failures.
var errHarvestFailed = errors.New("harvest completed with failures")

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	logger.Info("Starting tableau-harvester",
		zap.String("version", Version),
		zap.String("server", logging.SanitizeURI(cfg.ConnectURI)),
		zap.String("site", cfg.Site),
		zap.Strings("projects", cfg.Projects),
		zap.String("env", cfg.Env),
	)

	out, err := sink.New(cfg.Sink, logger)
	if err != nil {
		return err
	}

	var runs repositories.RunRepository
	if cfg.Database.Enabled() {
		db, err := database.NewConnection(ctx, &cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()

		stdDB := stdlib.OpenDBFromPool(db.Pool)
		if err := database.RunMigrations(stdDB, cfg.Database.MigrationsPath, logger); err != nil {
			return err
		}
		if err := stdDB.Close(); err != nil {
			logger.Warn("Failed to close migration connection", zap.Error(err))
		}

		runs = repositories.NewRunRepository(db)
		logPreviousRun(ctx, runs, logger)
	}

	client, err := tableau.NewClient(cfg, logger)
	if err != nil {
		return err
	}

	runRecord := &models.HarvestRun{}
	if runs != nil {
		if err := runs.Create(ctx, runRecord); err != nil {
			logger.Warn("Failed to record harvest run start", zap.Error(err))
			runs = nil
		}
	}

	report := tableau.NewHarvester(cfg, client, out, logger).Run(ctx)

	if err := out.Close(); err != nil {
		logger.Warn("Failed to close sink", zap.Error(err))
	}

	if runs != nil {
		runRecord.RecordsEmitted = report.RecordsEmitted
		runRecord.Warnings = report.Warnings
		runRecord.Failures = report.Failures
		runRecord.Succeeded = !report.Failed()
		if err := runs.Complete(ctx, runRecord); err != nil {
			logger.Warn("Failed to record harvest run outcome", zap.Error(err))
		}
	}

	if report.Failed() {
		return errHarvestFailed
	}
	return nil
}

func logPreviousRun(ctx context.Context, runs repositories.RunRepository, logger *zap.Logger) {
	previous, err := runs.Latest(ctx)
	if errors.Is(err, apperrors.ErrNotFound) {
		return
	}
	if err != nil {
		logger.Warn("Failed to load previous run", zap.Error(err))
		return
	}
	logger.Info("Previous harvest run",
		zap.String("id", previous.ID.String()),
		zap.Time("startedAt", previous.StartedAt),
		zap.Int("records", previous.RecordsEmitted),
		zap.Bool("succeeded", previous.Succeeded),
	)
}
