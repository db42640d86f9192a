package main

import (
	"github.com/spf13/cobra"

	"github.com/jonathan/api-harvester/internal/config"
	"github.com/jonathan/api-harvester/internal/pipeline"
)

var fetchDomainsCommand = &cobra.Command{
	Use:   "fetch-domains",
	Short: "Fetch DNS, WHOIS and location data for every domain",
	Long: `Reads domains from the input file (one per line, or a CSV with a displayLink
column) and calls every configured API Ninja endpoint for each one. Each
endpoint is tried once per run; failures go to the domain error report.`,
	RunE: runFetchDomains,
}

var (
	domainsPipeline pipelineFlags
	domainsShared   sharedFlags
)

func init() {
	domainsPipeline.register(fetchDomainsCommand)
	domainsShared.register(fetchDomainsCommand)
	rootCmd.AddCommand(fetchDomainsCommand)
}

func runFetchDomains(cmd *cobra.Command, _ []string) error {
	cfg, err := resolveConfig(cmd, func(cmd *cobra.Command, cfg *config.Config) {
		domainsShared.apply(cmd, cfg)
		domainsPipeline.apply(cmd, &cfg.Domains)
	})
	if err != nil {
		return err
	}

	logger := newLogger(cmd, cfg)
	logger.Debug("resolved configuration", "input", cfg.Domains.Input, "settings", describe(cfg))

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	summary, err := pipeline.RunDomains(ctx, pipeline.RunOptions{Config: cfg, Logger: logger})
	newPrinter(cmd.OutOrStdout()).PrintSummary("Domain Fetch", summary)
	return err
}
