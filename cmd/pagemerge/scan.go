package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/tsawler/pagemerge/internal/config"
	"github.com/tsawler/pagemerge/internal/logger"
	"github.com/tsawler/pagemerge/internal/metrics"
	"github.com/tsawler/pagemerge/merge"
	"github.com/tsawler/pagemerge/scanner"
	"github.com/tsawler/pagemerge/store"
)

// scanCommand merges the database corpus once or continuously
func scanCommand(cfg config.Config, once bool) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	plan, err := cfg.Plan()
	if err != nil {
		return err
	}
	merger, err := merge.New(plan)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()
	logger.Info("Main", "Connected to database")

	sc, err := scanner.New(store.NewPostgres(db), merger, scanner.Config{
		Workers:   cfg.Workers,
		BatchSize: cfg.EffectiveBatchSize(),
	})
	if err != nil {
		return err
	}

	if cfg.MetricsAddr != "" {
		m := metrics.New()
		sc.SetObserver(m)
		go func() {
			logger.Info("Main", "Serving metrics on %s/metrics", cfg.MetricsAddr)
			if err := m.StartServer(cfg.MetricsAddr); err != nil {
				logger.Error("Main", "metrics server: %v", err)
			}
		}()
	}

	if once {
		report, err := sc.Scan(ctx)
		logger.Info("Main", "%s", report)
		if report.Failed > 0 && err == nil {
			err = fmt.Errorf("%d pages failed to commit", report.Failed)
		}
		return err
	}

	logger.Info("Main", "Scanning every %s with %d workers", cfg.Interval, cfg.Workers)
	err = sc.Run(ctx, cfg.Interval)
	if errors.Is(err, context.Canceled) {
		logger.Info("Main", "Shutting down")
		return nil
	}
	return err
}
