package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pagewatch/pagewatch/internal/config"
	"github.com/pagewatch/pagewatch/internal/logger"
	"github.com/pagewatch/pagewatch/internal/task"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `Validate and inspect pagewatch configuration and task definitions.`,
}

// configValidateCmd represents the config validate command
var configValidateCmd = &cobra.Command{
	Use:   "validate [config-file]",
	Short: "Validate configuration file",
	Long:  `Validate the configuration file and check for errors.`,
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		log, err := logger.New(logger.Config{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
			os.Exit(1)
		}

		configPath := defaultConfigPath
		if len(args) > 0 {
			configPath = args[0]
		}

		log.Info("Validating configuration", logger.Field{Key: "path", Value: configPath})

		cfg, err := config.Load(configPath)
		if err != nil {
			log.Error("Failed to load config", err)
			os.Exit(1)
		}

		errors := cfg.Validate()
		if len(errors) > 0 {
			log.Error("Config validation failed", fmt.Errorf("%d errors", len(errors)))
			for _, e := range errors {
				log.Error("Validation error", e)
			}
			os.Exit(1)
		}

		log.Info("Configuration is valid")
	},
}

// configTasksCmd represents the config tasks command
var configTasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "List the loadable task definitions",
	Long:  `Load the task directory the way the daemon would and list every valid task.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig(configTasksConfigPath)
		log := newLogger(cfg)

		defs, err := task.NewLoader(cfg.Tasks.Dir, log).Load()
		if err != nil {
			fmt.Printf("❌ %v\n", err)
			os.Exit(1)
		}

		if len(defs) == 0 {
			fmt.Printf("No task definitions in %s\n", cfg.Tasks.Dir)
			return
		}
		for _, def := range defs {
			schedule := def.Schedule
			if schedule == "" {
				schedule = "(manual)"
			}
			fmt.Printf("%-20s %-24s %s\n", def.Name, schedule, def.URL)
		}
	},
}

var configTasksConfigPath string

func init() {
	configTasksCmd.Flags().StringVarP(&configTasksConfigPath, "config", "c", "", "Path to configuration file (default: ./config.toml)")
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configTasksCmd)
}
