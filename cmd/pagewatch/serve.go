package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pagewatch/pagewatch/internal/daemon"
	"github.com/pagewatch/pagewatch/internal/logger"
)

var (
	serveConfigPath string
	serveLogLevel   string
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the daemon in the foreground (main command)",
	Long: `Run the pagewatch daemon in the foreground: load task definitions,
schedule them, and execute observation runs as their triggers fire.

SIGINT or SIGTERM shuts the daemon down gracefully; SIGHUP re-reads the
task directory. Use "start" to launch in the background instead.`,
	Run: serveHandler,
}

func serveHandler(cmd *cobra.Command, args []string) {
	cfg := loadConfig(serveConfigPath)
	if serveLogLevel != "" {
		cfg.Logging.Level = serveLogLevel
	}
	log := newLogger(cfg)

	log.Info("🚀 Starting pagewatch",
		logger.Field{Key: "version", Value: Version},
		logger.Field{Key: "git_commit", Value: GitCommit},
		logger.Field{Key: "tasks_dir", Value: cfg.Tasks.Dir},
		logger.Field{Key: "state_dir", Value: cfg.State.Dir},
		logger.Field{Key: "timezone", Value: cfg.Scheduler.Timezone},
	)

	d, err := daemon.New(cfg, log)
	if err != nil {
		log.Error("Failed to assemble daemon", err)
		os.Exit(1)
	}

	if err := d.Run(context.Background()); err != nil {
		log.Error("Daemon startup failed", err)
		fmt.Printf("❌ %v\n", err)
		os.Exit(1)
	}

	log.Info("👋 Pagewatch stopped gracefully")
}

func init() {
	serveCmd.Flags().StringVarP(&serveConfigPath, "config", "c", "", "Path to configuration file (default: ./config.toml)")
	serveCmd.Flags().StringVarP(&serveLogLevel, "log-level", "l", "", "Override log level (debug, info, warn, error)")
}
