// Command migrate-parents merges duplicate parent documents into canonical
// parents/{normalizedEmail} documents. It is a dry run unless -apply is set.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"fled-backend/internal/parent/migration"
	schoolRepo "fled-backend/internal/school/repository"
	"fled-backend/pkg/config"
	"fled-backend/pkg/firebaseapp"
	appLogger "fled-backend/pkg/logger"

	"github.com/rs/zerolog"
)

var errCredentials = errors.New("service account JSON not found")

type options struct {
	apply       bool
	credentials string
	projectID   string
}

func parseArgs(args []string, cfg *config.Config, stderr io.Writer) (options, error) {
	fs := flag.NewFlagSet("migrate-parents", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var opts options
	fs.BoolVar(&opts.apply, "apply", false, "write merged documents and delete duplicates")
	fs.StringVar(&opts.credentials, "credentials", cfg.MigrateCredentials, "service account JSON path")
	fs.StringVar(&opts.projectID, "project", cfg.GoogleProjectID, "Google Cloud project id")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if _, err := os.Stat(opts.credentials); err != nil {
		return options{}, fmt.Errorf("%w at %s: place the service account there or pass -credentials", errCredentials, opts.credentials)
	}
	return opts, nil
}

func run(ctx context.Context, opts options, logger zerolog.Logger) error {
	app, err := firebaseapp.New(ctx, opts.projectID, opts.credentials)
	if err != nil {
		return err
	}
	client, err := app.Firestore(ctx)
	if err != nil {
		return fmt.Errorf("failed to create firestore client: %w", err)
	}
	defer client.Close()

	merger := migration.NewMerger(schoolRepo.NewFirestoreParentRepository(client), logger)
	report, err := merger.Run(ctx, opts.apply)
	if err != nil {
		return err
	}
	if report.Failed > 0 || report.DeleteFailures > 0 {
		return fmt.Errorf("%d group(s) failed, %d delete(s) failed", report.Failed, report.DeleteFailures)
	}
	return nil
}

func main() {
	cfg := config.Load()
	format := cfg.LogFormat
	if os.Getenv("LOG_FORMAT") == "" {
		format = "console"
	}
	logger := appLogger.NewWithWriter(os.Stderr, cfg.LogLevel, format)

	opts, err := parseArgs(os.Args[1:], cfg, os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		logger.Error().Err(err).Msg("invalid arguments")
		os.Exit(1)
	}

	if err := run(context.Background(), opts, logger); err != nil {
		logger.Error().Err(err).Msg("migration failed")
		os.Exit(1)
	}
}
