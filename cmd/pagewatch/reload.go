//go:build !windows

package main

import (
	"fmt"
	"os"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pagewatch/pagewatch/internal/daemon"
)

var reloadConfigPath string

// reloadCmd represents the reload command
var reloadCmd = &cobra.Command{
	Use:   "reload",
	Short: "Ask the running daemon to re-read its task definitions",
	Long: `Send SIGHUP to the running daemon. The daemon deactivates its
current schedule, re-reads the task directory, and activates the new set.
In-flight observation runs are not interrupted.`,
	Run: reloadHandler,
}

func reloadHandler(cmd *cobra.Command, args []string) {
	cfg := loadConfig(reloadConfigPath)

	running, pid, err := daemon.Status(cfg.PidFilePath())
	if err != nil {
		fmt.Printf("❌ Cannot determine daemon status: %v\n", err)
		os.Exit(1)
	}
	if !running {
		fmt.Println("Daemon is not running")
		os.Exit(1)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		fmt.Printf("❌ Process not found: %v\n", err)
		os.Exit(1)
	}
	if err := process.Signal(syscall.SIGHUP); err != nil {
		fmt.Printf("❌ Failed to signal daemon: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✅ Reload requested (PID %d)\n", pid)
}

func init() {
	reloadCmd.Flags().StringVarP(&reloadConfigPath, "config", "c", "", "Path to configuration file (default: ./config.toml)")
}
