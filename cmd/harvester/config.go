package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/jonathan/api-harvester/internal/config"
	"github.com/jonathan/api-harvester/internal/observability"
)

// resolveConfig loads the --config file when given, fills defaults and
// applies flag overrides. Overrides run after defaults so that an explicit
// zero (such as --daily-limit 0 for unlimited) survives the merge.
func resolveConfig(cmd *cobra.Command, override func(cmd *cobra.Command, cfg *config.Config)) (config.Config, error) {
	var cfg config.Config
	if configPath != "" {
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			return config.Config{}, err
		}
		cfg = *loaded
	}

	cfg = cfg.MergeWithDefaults(config.Defaults())
	if cmd.Flags().Changed("verbose") {
		cfg.Verbose = verbose
	}
	if override != nil {
		override(cmd, &cfg)
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func newLogger(cmd *cobra.Command, cfg config.Config) *slog.Logger {
	return observability.NewLogger(cmd.ErrOrStderr(), cfg.Verbose)
}

func newPrinter(out io.Writer) *observability.Printer {
	return observability.NewPrinter(out, !noColor && !color.NoColor)
}

// signalContext is cancelled on SIGINT or SIGTERM so a run stops between keys
// and still writes its state.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// pipelineFlags are the per-pipeline overrides shared by the fetch commands.
type pipelineFlags struct {
	input        string
	artifactsDir string
	errorLedger  string
	dailyLimit   int
	maxAttempts  int
	endpoints    []string
}

func (f *pipelineFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.input, "input", "i", "", "Path to the subjects file")
	cmd.Flags().StringVar(&f.artifactsDir, "artifacts-dir", "", "Directory for fetched JSON artifacts")
	cmd.Flags().StringVar(&f.errorLedger, "error-ledger", "", "Path to the CSV error report")
	cmd.Flags().IntVar(&f.dailyLimit, "daily-limit", 0, "Maximum successful fetches per run (0 = unlimited)")
	cmd.Flags().IntVar(&f.maxAttempts, "max-attempts", 0, "Attempts per fetch key before it is recorded as failed")
	cmd.Flags().StringSliceVar(&f.endpoints, "endpoint", nil, "Endpoint (API_Name) to call; repeat for several")
}

func (f *pipelineFlags) apply(cmd *cobra.Command, p *config.Pipeline) {
	if cmd.Flags().Changed("input") {
		p.Input = f.input
	}
	if cmd.Flags().Changed("artifacts-dir") {
		p.ArtifactsDir = f.artifactsDir
	}
	if cmd.Flags().Changed("error-ledger") {
		p.ErrorLedger = f.errorLedger
	}
	if cmd.Flags().Changed("daily-limit") {
		p.DailyLimit = f.dailyLimit
	}
	if cmd.Flags().Changed("max-attempts") {
		p.MaxAttempts = f.maxAttempts
	}
	if cmd.Flags().Changed("endpoint") {
		p.Endpoints = f.endpoints
	}
}

// sharedFlags are the run-wide overrides shared by the fetch commands.
type sharedFlags struct {
	credentials      string
	indexMode        string
	indexPath        string
	databaseURL      string
	freshnessWindow  string
	backoff          string
	minInterval      string
	flushEachSuccess bool
}

func (f *sharedFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.credentials, "credentials", "", "Path to the API credentials CSV")
	cmd.Flags().StringVar(&f.indexMode, "index", "", "Freshness index: scan, file or postgres")
	cmd.Flags().StringVar(&f.indexPath, "index-path", "", "JSON index file for --index file")
	cmd.Flags().StringVar(&f.databaseURL, "db-url", "", "PostgreSQL connection URL for --index postgres (defaults to HARVESTER_DATABASE_URL or DATABASE_URL env var)")
	cmd.Flags().StringVar(&f.freshnessWindow, "freshness-window", "", "Skip subjects fetched more recently than this (e.g. 720h)")
	cmd.Flags().StringVar(&f.backoff, "backoff", "", "Retry backoff: none, fixed, exponential or jitter")
	cmd.Flags().StringVar(&f.minInterval, "min-interval", "", "Minimum spacing between requests (e.g. 1s)")
	cmd.Flags().BoolVar(&f.flushEachSuccess, "flush-each-success", false, "Write state after every successful fetch")
}

func (f *sharedFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("credentials") {
		cfg.Credentials = f.credentials
	}
	if cmd.Flags().Changed("index") {
		cfg.Index.Mode = f.indexMode
	}
	if cmd.Flags().Changed("index-path") {
		cfg.Index.Path = f.indexPath
	}
	if cmd.Flags().Changed("db-url") {
		cfg.Index.DatabaseURL = f.databaseURL
	}
	if cmd.Flags().Changed("freshness-window") {
		cfg.FreshnessWindow = f.freshnessWindow
	}
	if cmd.Flags().Changed("backoff") {
		cfg.Backoff.Policy = f.backoff
	}
	if cmd.Flags().Changed("min-interval") {
		cfg.MinInterval = f.minInterval
	}
	if cmd.Flags().Changed("flush-each-success") {
		cfg.FlushEachSuccess = f.flushEachSuccess
	}
}

func describe(cfg config.Config) string {
	return fmt.Sprintf("index=%s window=%s backoff=%s", cfg.Index.Mode, cfg.FreshnessWindow, cfg.Backoff.Policy)
}
