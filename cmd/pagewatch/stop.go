package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pagewatch/pagewatch/internal/daemon"
)

var stopConfigPath string

// stopCmd represents the stop command
var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running daemon",
	Long: `Stop the daemon recorded in the pid file. The daemon is asked to
shut down gracefully first; if it does not exit within the grace period
it is killed.`,
	Run: stopHandler,
}

func stopHandler(cmd *cobra.Command, args []string) {
	cfg := loadConfig(stopConfigPath)

	pid, err := daemon.ReadPidFile(cfg.PidFilePath())
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Println("Daemon is not running (pid file not found)")
			return
		}
		fmt.Printf("❌ Cannot read pid file: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Stopping daemon (PID %d)...\n", pid)
	if err := daemon.Kill(pid); err != nil {
		fmt.Printf("❌ Failed to stop daemon: %v\n", err)
		os.Exit(1)
	}

	// The pid file is removed by the daemon's own teardown.
	fmt.Println("✅ Daemon stopped")
}

func init() {
	stopCmd.Flags().StringVarP(&stopConfigPath, "config", "c", "", "Path to configuration file (default: ./config.toml)")
}
