// purge runs the retention sweeper once against the configured database and
// exits. It is meant for cron jobs and manual maintenance when the API
// server's own schedule is disabled.
//
//	go run ./scripts --all --dry-run
//	go run ./scripts --type task --older-than 90 --batch-size 500
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"github.com/tim7en/pm-app-sub001/config"
	"github.com/tim7en/pm-app-sub001/database"
	"github.com/tim7en/pm-app-sub001/lifecycle"
	"github.com/tim7en/pm-app-sub001/logger"
	"github.com/tim7en/pm-app-sub001/models"
	"github.com/tim7en/pm-app-sub001/repositories"
	"github.com/tim7en/pm-app-sub001/retention"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		entity     string
		all        bool
		olderThan  int
		batchSize  int
		dryRun     bool
		archiveDir string
		cascadeCfg string
	)

	flagSet := pflag.NewFlagSet("purge", pflag.ContinueOnError)
	flagSet.StringVar(&entity, "type", "", "entity type to purge (e.g. task, project)")
	flagSet.BoolVar(&all, "all", false, "sweep every registered type, dependents first")
	flagSet.IntVar(&olderThan, "older-than", 0, "retention window in days (default: RETENTION_DAYS)")
	flagSet.IntVar(&batchSize, "batch-size", 0, "records per batch (default: RETENTION_BATCH_SIZE)")
	flagSet.BoolVar(&dryRun, "dry-run", false, "report candidates without deleting")
	flagSet.StringVar(&archiveDir, "archive-dir", "", "write erased records to gzip JSONL files in this directory")
	flagSet.StringVar(&cascadeCfg, "cascade-config", "", "YAML cascade graph (default: CASCADE_CONFIG or built-in)")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}
	if args := flagSet.Args(); len(args) > 0 {
		return fmt.Errorf("unexpected argument: %s", args[0])
	}
	if all == (entity != "") {
		return errors.New("exactly one of --type or --all is required")
	}

	envErr := config.LoadEnv()
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log, err := logger.New(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, Output: os.Stderr})
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	if envErr != nil {
		log.Debug().Err(envErr).Msg("no .env file loaded")
	}

	conn, err := database.Open(database.Options{
		Driver:          cfg.DBDriver,
		URL:             cfg.DatabaseURL,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
	}, log)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer conn.Close()

	if cascadeCfg == "" {
		cascadeCfg = cfg.CascadeConfig
	}
	registry := lifecycle.DefaultRegistry()
	if cascadeCfg != "" {
		if registry, err = lifecycle.LoadRegistry(cascadeCfg); err != nil {
			return fmt.Errorf("loading cascade config %s: %w", cascadeCfg, err)
		}
	}

	adapters, err := repositories.NewAdapters(conn.DB)
	if err != nil {
		return fmt.Errorf("creating adapters: %w", err)
	}

	retentionCfg := &retention.Config{
		RetentionDays: cfg.RetentionDays,
		BatchSize:     cfg.RetentionBatchSize,
		MaxBatches:    cfg.RetentionMaxBatches,
		ArchiveDir:    cfg.RetentionArchiveDir,
	}
	if olderThan > 0 {
		retentionCfg.RetentionDays = olderThan
	}
	if batchSize > 0 {
		retentionCfg.BatchSize = batchSize
	}
	if archiveDir != "" {
		retentionCfg.ArchiveDir = archiveDir
	}

	sweeper, err := retention.NewSweeper(registry, adapters, retentionCfg, retention.WithLogger(log))
	if err != nil {
		return fmt.Errorf("creating retention sweeper: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")

	if all {
		report, err := sweeper.SweepAll(ctx, dryRun)
		if report != nil {
			if encErr := encoder.Encode(report); encErr != nil {
				return encErr
			}
		}
		return err
	}

	result, err := sweeper.Cleanup(ctx, models.EntityType(entity), retention.CleanupOptions{DryRun: dryRun})
	if err != nil {
		return err
	}
	return encoder.Encode(result)
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, "Usage: purge (--type TYPE | --all) [flags]\n\nErase soft-deleted records older than the retention window.\n\nFlags:\n")
	flagSet.PrintDefaults()
}
