package main

import (
	"context"
	"fmt"
	"net/url"
	"os"

	"github.com/tsawler/pagemerge/internal/config"
	"github.com/tsawler/pagemerge/internal/logger"
	"github.com/tsawler/pagemerge/scanner"
	"github.com/tsawler/pagemerge/store"
)

// resetCommand clears the merged flag of the given pages so the next scan
// merges them again
func resetCommand(cfg config.Config, pageIDs []string) error {
	ctx := context.Background()
	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	var r scanner.Resetter = store.NewPostgres(db)
	n, err := r.ResetMerged(ctx, pageIDs)
	if err != nil {
		return err
	}
	logger.Info("Main", "Reset %d of %d pages", n, len(pageIDs))
	if int(n) < len(pageIDs) {
		return fmt.Errorf("%d page ids not found", len(pageIDs)-int(n))
	}
	return nil
}

func migrateCommand(cfg config.Config) error {
	ctx := context.Background()
	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := store.NewPostgres(db).Migrate(ctx); err != nil {
		return err
	}
	logger.Info("Main", "Schema up to date")
	return nil
}

func configCommand(cfg config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if u, err := url.Parse(cfg.DatabaseURL); err == nil && cfg.DatabaseURL != "" {
		cfg.DatabaseURL = u.Redacted()
	}
	data, err := cfg.Marshal()
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(data)
	return err
}
