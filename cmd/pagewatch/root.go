package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pagewatch/pagewatch/internal/config"
	"github.com/pagewatch/pagewatch/internal/constants"
	"github.com/pagewatch/pagewatch/internal/logger"
)

const defaultConfigPath = constants.DefaultConfigPath

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "pagewatch",
	Short: "Pagewatch - scheduled page observation daemon",
	Long: `Pagewatch periodically fetches web pages, extracts content with CSS
selectors, sends it to an LLM inference service, and records each outcome.
Tasks are plain files in a directory; schedules are cron expressions,
daily times, or one-time instants.`,
	Version: Version,
}

func init() {
	// Add subcommands
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(reloadCmd)
	rootCmd.AddCommand(runCmd)
}

// loadConfig loads and validates the daemon configuration, exiting on any
// problem. Every subcommand that touches daemon state goes through here.
func loadConfig(path string) *config.Config {
	if path == "" {
		path = defaultConfigPath
	}

	cfg, err := config.Load(path)
	if err != nil {
		fmt.Printf("❌ Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if errors := cfg.Validate(); len(errors) > 0 {
		fmt.Printf("❌ Configuration validation failed:\n")
		for _, e := range errors {
			fmt.Printf("  - %v\n", e)
		}
		os.Exit(1)
	}

	return cfg
}

// newLogger builds the diagnostic logger from the configuration, exiting on
// failure.
func newLogger(cfg *config.Config) *logger.Logger {
	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		fmt.Printf("❌ Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger.SetDefault(log)
	return log
}
