package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/Flipping-Utilities/parsed-osrs/internal/config"
	appdb "github.com/Flipping-Utilities/parsed-osrs/internal/db"
	"github.com/Flipping-Utilities/parsed-osrs/internal/export"
	applog "github.com/Flipping-Utilities/parsed-osrs/internal/log"
	"github.com/Flipping-Utilities/parsed-osrs/internal/pages"
	"github.com/Flipping-Utilities/parsed-osrs/internal/pipeline"
	"github.com/Flipping-Utilities/parsed-osrs/internal/wiki"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "parsed-osrs",
		Short:         "Synchronizes OSRS wiki content and extracts typed game data",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	root.AddCommand(
		newRefreshCommand(),
		newExtractCommand(),
		newRunCommand(),
		newImportDumpCommand(),
		newDumpPagesCommand(),
	)
	return root
}

func newRefreshCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Discover wiki pages and fetch stale content",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPipeline(cmd.Context(), func(ctx context.Context, pipe *pipeline.Pipeline, _ *config.Config) error {
				return pipe.Refresh(ctx)
			})
		},
	}
}

func newExtractCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "extract",
		Short: "Extract typed records from stored content into JSON artifacts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPipeline(cmd.Context(), func(ctx context.Context, pipe *pipeline.Pipeline, _ *config.Config) error {
				return pipe.Extract(ctx)
			})
		},
	}
}

func newRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Refresh the catalog and extract in one pass",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPipeline(cmd.Context(), func(ctx context.Context, pipe *pipeline.Pipeline, _ *config.Config) error {
				return pipe.Run(ctx)
			})
		},
	}
}

func newImportDumpCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import-dump <file>",
		Short: "Seed the page catalog from a MediaWiki XML export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPipeline(cmd.Context(), func(ctx context.Context, pipe *pipeline.Pipeline, _ *config.Config) error {
				file, err := os.Open(args[0])
				if err != nil {
					return eris.Wrapf(err, "opening dump file: %s", args[0])
				}
				defer file.Close()

				imported, err := pipe.ImportDump(ctx, file)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "imported %d pages\n", imported)
				return nil
			})
		},
	}
}

func newDumpPagesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "dump-pages",
		Short: "Write the raw stored page content to the wiki folder",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPipeline(cmd.Context(), func(ctx context.Context, pipe *pipeline.Pipeline, cfg *config.Config) error {
				written, err := pipe.DumpPages(ctx, cfg.WikiDir)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %d pages\n", written)
				return nil
			})
		},
	}
}

// withPipeline performs the shared bootstrap, hands the wired pipeline to the
// action and tears everything down afterwards.
func withPipeline(ctx context.Context, action func(context.Context, *pipeline.Pipeline, *config.Config) error) error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return eris.Wrap(err, "failure loading configuration")
	}

	logger, err := applog.NewLogger(cfg.LogLevel)
	if err != nil {
		return eris.Wrap(err, "failure initialising logger")
	}

	sentryHub, flush, err := applog.InitSentry(logger, cfg.SentryDSN, cfg.Environment)
	if err != nil {
		return eris.Wrap(err, "failure initialising sentry")
	}
	defer flush()

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return eris.Wrap(err, "creating database directory")
	}

	dbConn, err := appdb.Open(appdb.Options{Path: cfg.DBPath})
	if err != nil {
		return eris.Wrap(err, "opening database")
	}
	defer func() {
		if closeErr := appdb.Close(dbConn); closeErr != nil {
			logger.WithError(closeErr).Error("closing database")
		}
	}()

	if err := pages.Migrate(ctx, dbConn, logger); err != nil {
		return eris.Wrap(err, "running migrations")
	}

	repository, err := pages.NewRepository(dbConn, logger)
	if err != nil {
		return eris.Wrap(err, "building page repository")
	}

	client, err := wiki.NewClient(wiki.ClientOptions{
		Contact:         cfg.DiscordUsername,
		RequestInterval: cfg.RequestDelay,
		Logger:          logger,
	})
	if err != nil {
		return eris.Wrap(err, "creating wiki client")
	}

	writer, err := export.NewWriter(cfg.DataDir, logger, sentryHub)
	if err != nil {
		return eris.Wrap(err, "creating export writer")
	}

	pipe, err := pipeline.New(client, repository, writer, logger, sentryHub)
	if err != nil {
		return eris.Wrap(err, "wiring pipeline")
	}

	return action(ctx, pipe, cfg)
}
