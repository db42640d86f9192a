// Package pipeline wires configuration, credentials and subjects into an
// orchestrator run for the domain and keyword fetch pipelines.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/api/option"

	"github.com/jonathan/api-harvester/internal/artifacts"
	"github.com/jonathan/api-harvester/internal/config"
	"github.com/jonathan/api-harvester/internal/credentials"
	"github.com/jonathan/api-harvester/internal/db"
	"github.com/jonathan/api-harvester/internal/fetch"
	"github.com/jonathan/api-harvester/internal/freshness"
	"github.com/jonathan/api-harvester/internal/ledger"
	"github.com/jonathan/api-harvester/internal/orchestrator"
	"github.com/jonathan/api-harvester/internal/state"
	"github.com/jonathan/api-harvester/internal/subjects"
	"github.com/jonathan/api-harvester/internal/types"
)

// RunOptions holds everything one pipeline run needs. Config must already
// be merged with defaults and validated.
type RunOptions struct {
	Config     config.Config
	Logger     *slog.Logger
	OnProgress orchestrator.ProgressCallback

	// HTTP overrides the template requester settings.
	HTTP *fetch.Options
	// SearchOptions are passed to the Custom Search client.
	SearchOptions []option.ClientOption
	// Now overrides the clock.
	Now func() time.Time
}

func (o *RunOptions) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

func (o *RunOptions) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

func configError(source string, err error) error {
	return &config.ConfigurationError{Source: source, Cause: err}
}

// RunDomains fetches every API Ninja endpoint for every domain.
func RunDomains(ctx context.Context, opts RunOptions) (*orchestrator.Summary, error) {
	cfg := opts.Config
	p := cfg.Domains

	domains, err := subjects.LoadDomains(p.Input, p.InputEncoding)
	if err != nil {
		return nil, configError(p.Input, err)
	}
	endpoints, err := loadEndpoints(cfg, p)
	if err != nil {
		return nil, err
	}
	layout, err := ledger.LayoutByName(p.LedgerLayout)
	if err != nil {
		return nil, configError("domains.ledger_layout", err)
	}

	store := artifacts.NewStore(p.ArtifactsDir).WithClock(opts.now)
	table := state.NewMemoryTable()
	gate, index, closeIndex := buildGate(ctx, opts, store)
	defer closeIndex()

	o, err := orchestrator.New(orchestrator.Config{
		DailyLimit:              p.DailyLimit,
		LedgerPersistenceErrors: true,
		FlushEachSuccess:        cfg.FlushEachSuccess,
	}, orchestrator.Deps{
		Gate:       gate,
		Fetcher:    fetch.NewExecutor(fetch.NewHTTPRequester(httpOptions(opts)), executorConfig(cfg, p, false), opts.logger()),
		Store:      store,
		Errors:     ledger.New(p.ErrorLedger, layout),
		Table:      table,
		Index:      index,
		Logger:     opts.logger(),
		Now:        opts.now,
		OnProgress: opts.OnProgress,
	})
	if err != nil {
		return nil, err
	}

	opts.logger().Info("starting domain fetch", "domains", len(domains), "endpoints", len(endpoints))
	return o.Run(ctx, domains, endpoints)
}

// RunKeywords runs the Google Search keyword pipeline. Keywords fetched
// within the freshness window are skipped, and the keywords file is
// rewritten with the new LastDateFetched values at the end of the run.
func RunKeywords(ctx context.Context, opts RunOptions) (*orchestrator.Summary, error) {
	cfg := opts.Config
	p := cfg.Keywords

	table, err := state.LoadKeywordTable(p.Input, p.InputEncoding)
	if err != nil {
		return nil, configError(p.Input, err)
	}
	endpoints, err := loadEndpoints(cfg, p)
	if err != nil {
		return nil, err
	}
	layout, err := ledger.LayoutByName(p.LedgerLayout)
	if err != nil {
		return nil, configError("keywords.ledger_layout", err)
	}

	var requester fetch.Requester = fetch.NewHTTPRequester(httpOptions(opts))
	if p.SearchClient {
		requester = fetch.NewSearchRequester(opts.SearchOptions...)
	}

	store := artifacts.NewStore(p.ArtifactsDir).WithClock(opts.now)
	gate, index, closeIndex := buildGate(ctx, opts, store)
	defer closeIndex()
	window := config.Duration(cfg.FreshnessWindow, types.DefaultFreshnessWindow)

	o, err := orchestrator.New(orchestrator.Config{
		DailyLimit:       p.DailyLimit,
		FlushEachSuccess: cfg.FlushEachSuccess,
	}, orchestrator.Deps{
		Gate:       freshness.Any(freshness.NewLedgerGate(table, window, opts.now), gate),
		Fetcher:    fetch.NewExecutor(requester, executorConfig(cfg, p, true), opts.logger()),
		Store:      store,
		Errors:     ledger.New(p.ErrorLedger, layout),
		Table:      table,
		Index:      index,
		Logger:     opts.logger(),
		Now:        opts.now,
		OnProgress: opts.OnProgress,
	})
	if err != nil {
		return nil, err
	}

	keywords := table.Subjects()
	opts.logger().Info("starting keyword fetch",
		"keywords", len(keywords),
		"due", len(table.Due(opts.now(), window)),
		"daily_limit", p.DailyLimit)
	return o.Run(ctx, keywords, endpoints)
}

func loadEndpoints(cfg config.Config, p config.Pipeline) ([]types.Endpoint, error) {
	records, err := credentials.Load(cfg.Credentials, cfg.CredentialsEncoding)
	if err != nil {
		return nil, configError(cfg.Credentials, err)
	}
	endpoints, err := credentials.Endpoints(records, p.Endpoints)
	if err != nil {
		return nil, configError(cfg.Credentials, err)
	}
	return endpoints, nil
}

func httpOptions(opts RunOptions) *fetch.Options {
	if opts.HTTP != nil {
		return opts.HTTP
	}
	o := fetch.DefaultOptions()
	o.Timeout = config.Duration(opts.Config.Timeout, fetch.DefaultTimeout)
	return o
}

func executorConfig(cfg config.Config, p config.Pipeline, augment bool) fetch.ExecutorConfig {
	// Validate has already rejected unknown policies; a nil policy retries immediately.
	policy, _ := fetch.ParseBackoff(cfg.Backoff.Policy,
		config.Duration(cfg.Backoff.Base, 0),
		config.Duration(cfg.Backoff.Max, 0))
	return fetch.ExecutorConfig{
		MaxAttempts:    p.MaxAttempts,
		Backoff:        policy,
		MinInterval:    config.Duration(cfg.MinInterval, 0),
		AugmentPayload: augment,
	}
}

// buildGate returns the freshness gate for the configured index mode, the
// index to update on success (nil in scan mode) and a cleanup func.
func buildGate(ctx context.Context, opts RunOptions, store *artifacts.Store) (freshness.Gate, state.Index, func()) {
	cfg := opts.Config
	logger := opts.logger()
	window := config.Duration(cfg.FreshnessWindow, types.DefaultFreshnessWindow)
	scan := freshness.NewScanGate(store, window, opts.now, logger)

	switch cfg.Index.Mode {
	case config.IndexFile:
		index := state.NewFileIndex(cfg.Index.Path)
		return freshness.NewIndexGate(index, window, opts.now, logger), index, func() {}
	case config.IndexPostgres:
		database, err := connectIndex(ctx, cfg.DatabaseURL())
		if err != nil {
			logger.Warn("failed to open postgres fetch index, falling back to directory scan", "error", err)
			return scan, nil, func() {}
		}
		return freshness.NewIndexGate(database, window, opts.now, logger), database, database.Close
	default:
		return scan, nil, func() {}
	}
}

func connectIndex(ctx context.Context, databaseURL string) (*db.DB, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	database, err := db.Connect(connectCtx, databaseURL)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(connectCtx); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to migrate fetch index: %w", err)
	}
	return database, nil
}
