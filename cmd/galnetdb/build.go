package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pevans/galnetdb/config"
	"github.com/pevans/galnetdb/galnet"
	"github.com/pevans/galnetdb/ingest"
)

func (a *app) buildCommand() *cobra.Command {
	base := a.baseRunConfig()
	pipelineDefaults := ingest.DefaultPipelineConfig()
	if a.file != nil {
		if a.file.Feed.BaseURL != "" {
			pipelineDefaults.BaseURL = a.file.Feed.BaseURL
		}
		if d, err := time.ParseDuration(a.file.Feed.Timeout); err == nil {
			pipelineDefaults.FetchTimeout = d
		}
	}

	var (
		dbFlags          storeFlags
		createTable      bool
		rejectDuplicates bool
		yearOffset       int
		settingsPath     string
		baseURL          string
		fetchTimeout     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Scrape the GalNet archive into the articles table",
		Long: `build walks the GalNet listing oldest first, translates each in-game
date to a real date, and inserts one row per article. The run config is
written to the settings file when the run completes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			run := config.DefaultRunConfig()
			dbFlags.apply(run)
			run.CreateTable = createTable
			run.RejectDuplicates = rejectDuplicates
			run.YearOffset = yearOffset

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return a.runBuild(ctx, run, &ingest.PipelineConfig{
				BaseURL:      baseURL,
				FetchTimeout: fetchTimeout,
				SettingsPath: settingsPath,
				Clock:        time.Now,
			})
		},
	}

	dbFlags.register(cmd, base)

	flags := cmd.Flags()
	flags.BoolVar(&createTable, "create-table", getEnvBool("GALNETDB_CREATE_TABLE", base.CreateTable),
		"Create the articles table before scraping; fails if it exists (GALNETDB_CREATE_TABLE)")
	flags.BoolVar(&rejectDuplicates, "reject-duplicates", getEnvBool("GALNETDB_REJECT_DUPLICATES", false),
		"Skip articles whose UID is already stored (GALNETDB_REJECT_DUPLICATES)")
	flags.IntVar(&yearOffset, "year-offset", getEnvInt("GALNETDB_YEAR_OFFSET", base.YearOffset),
		"Years subtracted from in-game dates; 0 uses the built-in offset (GALNETDB_YEAR_OFFSET)")
	flags.StringVar(&settingsPath, "settings", getEnv("GALNETDB_SETTINGS", config.DefaultSettingsPath),
		"Settings file written after a successful run (GALNETDB_SETTINGS)")
	flags.StringVar(&baseURL, "base-url", getEnv("GALNETDB_BASE_URL", pipelineDefaults.BaseURL),
		"Site hosting the GalNet feed (GALNETDB_BASE_URL)")
	flags.DurationVar(&fetchTimeout, "fetch-timeout", getEnvDuration("GALNETDB_FETCH_TIMEOUT", pipelineDefaults.FetchTimeout),
		"Timeout per page request (GALNETDB_FETCH_TIMEOUT)")

	return cmd
}

// runBuild runs one pipeline and prints its summary.
func (a *app) runBuild(ctx context.Context, run *config.RunConfig, pc *ingest.PipelineConfig) error {
	if pc.BaseURL == "" {
		pc.BaseURL = galnet.DefaultBaseURL
	}

	result, err := ingest.NewPipeline(run, nil, pc, a.logger).Run(ctx)
	if err != nil {
		a.logger.Error("Build failed",
			zap.String("run_id", result.RunID.String()),
			zap.String("state", string(result.State)),
			zap.Int("inserted", result.Inserted),
			zap.Error(err),
		)
		return fmt.Errorf("build failed after %d articles: %w", result.Inserted, err)
	}

	fmt.Fprintf(os.Stdout, "Inserted %d articles from %d listing links", result.Inserted, result.Links)
	if result.Skipped > 0 {
		fmt.Fprintf(os.Stdout, " (%d already stored)", result.Skipped)
	}
	fmt.Fprintln(os.Stdout)
	if pc.SettingsPath != "" {
		fmt.Fprintf(os.Stdout, "Run config saved to %s\n", pc.SettingsPath)
	}

	return nil
}
