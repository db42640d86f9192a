package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
	noColor    bool
)

var rootCmd = &cobra.Command{
	Use:   "harvester",
	Short: "Fetch third-party API data for domains and keywords",
	Long: `Harvester fetches JSON from third-party APIs for a list of subjects and stores
each response as a timestamped artifact. Subjects fetched within the freshness
window are skipped, failures are appended to a CSV error report, and a daily
quota caps how many successful fetches a run may make.

Configuration can be loaded from a JSON file using --config. Command-line flags
override config file values.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config.json file (values can be overridden by other flags)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Print detailed debug information")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
