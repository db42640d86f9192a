package main

import (
	"github.com/spf13/cobra"

	"github.com/jonathan/api-harvester/internal/config"
	"github.com/jonathan/api-harvester/internal/pipeline"
)

var fetchKeywordsCommand = &cobra.Command{
	Use:   "fetch-keywords",
	Short: "Run Google searches for keywords that are due",
	Long: `Reads the keywords CSV and searches every keyword whose LastDateFetched is
older than the freshness window, up to the daily limit. The keywords file is
rewritten at the end of the run with the new fetch times.`,
	RunE: runFetchKeywords,
}

var (
	keywordsPipeline     pipelineFlags
	keywordsShared       sharedFlags
	keywordsSearchClient bool
)

func init() {
	keywordsPipeline.register(fetchKeywordsCommand)
	keywordsShared.register(fetchKeywordsCommand)
	fetchKeywordsCommand.Flags().BoolVar(&keywordsSearchClient, "search-client", false, "Use the Custom Search API client instead of the URL template")
	rootCmd.AddCommand(fetchKeywordsCommand)
}

func runFetchKeywords(cmd *cobra.Command, _ []string) error {
	cfg, err := resolveConfig(cmd, func(cmd *cobra.Command, cfg *config.Config) {
		keywordsShared.apply(cmd, cfg)
		keywordsPipeline.apply(cmd, &cfg.Keywords)
		if cmd.Flags().Changed("search-client") {
			cfg.Keywords.SearchClient = keywordsSearchClient
		}
	})
	if err != nil {
		return err
	}

	logger := newLogger(cmd, cfg)
	logger.Debug("resolved configuration", "input", cfg.Keywords.Input, "settings", describe(cfg))

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	summary, err := pipeline.RunKeywords(ctx, pipeline.RunOptions{Config: cfg, Logger: logger})
	newPrinter(cmd.OutOrStdout()).PrintSummary("Keyword Fetch", summary)
	return err
}
