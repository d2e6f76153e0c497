package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pagewatch/pagewatch/internal/daemon"
)

var statusConfigPath string

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether the daemon is running",
	Run:   statusHandler,
}

func statusHandler(cmd *cobra.Command, args []string) {
	cfg := loadConfig(statusConfigPath)

	running, pid, err := daemon.Status(cfg.PidFilePath())
	if err != nil {
		fmt.Printf("❌ Cannot determine daemon status: %v\n", err)
		os.Exit(1)
	}

	if running {
		fmt.Printf("✅ Daemon is running (PID %d)\n", pid)
		// The pid file is written once at startup, so its mtime is the
		// start time.
		if info, err := os.Stat(cfg.PidFilePath()); err == nil {
			uptime := time.Since(info.ModTime()).Round(time.Second)
			fmt.Printf("Uptime: %s\n", uptime)
		}
		return
	}
	if pid != 0 {
		fmt.Printf("Daemon is not running (stale pid file, PID %d)\n", pid)
		os.Exit(1)
	}
	fmt.Println("Daemon is not running")
	os.Exit(1)
}

func init() {
	statusCmd.Flags().StringVarP(&statusConfigPath, "config", "c", "", "Path to configuration file (default: ./config.toml)")
}
