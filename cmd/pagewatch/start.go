//go:build !windows

package main

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pagewatch/pagewatch/internal/daemon"
)

var startConfigPath string

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Launch the daemon in the background",
	Long: `Launch the pagewatch daemon as a detached background process.
The child runs "serve" with the same configuration; its pid is recorded
in the state directory for stop/status/reload.`,
	Run: startHandler,
}

func startHandler(cmd *cobra.Command, args []string) {
	cfg := loadConfig(startConfigPath)

	if running, pid, err := daemon.Status(cfg.PidFilePath()); err == nil && running {
		fmt.Printf("Daemon is already running (PID %d)\n", pid)
		return
	}

	self, err := os.Executable()
	if err != nil {
		fmt.Printf("❌ Cannot locate own executable: %v\n", err)
		os.Exit(1)
	}

	configPath := startConfigPath
	if configPath == "" {
		configPath = defaultConfigPath
	}

	child := exec.Command(self, "serve", "--config", configPath)
	child.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	child.Stdin = nil
	child.Stdout = nil
	child.Stderr = nil

	if err := child.Start(); err != nil {
		fmt.Printf("❌ Failed to launch daemon: %v\n", err)
		os.Exit(1)
	}
	pid := child.Process.Pid
	_ = child.Process.Release()

	// Give the child a moment to come up or fail fast on a bad config.
	time.Sleep(500 * time.Millisecond)
	if running, _, err := daemon.Status(cfg.PidFilePath()); err != nil || !running {
		fmt.Printf("❌ Daemon did not come up; check the log output\n")
		os.Exit(1)
	}

	fmt.Printf("✅ Daemon started (PID %d)\n", pid)
}

func init() {
	startCmd.Flags().StringVarP(&startConfigPath, "config", "c", "", "Path to configuration file (default: ./config.toml)")
}
