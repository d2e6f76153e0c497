package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pagewatch/pagewatch/internal/config"
	"github.com/pagewatch/pagewatch/internal/extract"
	"github.com/pagewatch/pagewatch/internal/inference"
	"github.com/pagewatch/pagewatch/internal/logger"
	"github.com/pagewatch/pagewatch/internal/pipeline"
	"github.com/pagewatch/pagewatch/internal/result"
	"github.com/pagewatch/pagewatch/internal/task"
)

var (
	runConfigPath string
	runDebug      bool
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run <task-name-or-file>",
	Short: "Execute one observation task immediately",
	Long: `Execute one task right now, ignoring its schedule, and print the
outcome. The argument is either a task name from the configured tasks
directory or a path to a task definition file.

Exits 0 when the run succeeds and 1 when it fails.`,
	Args: cobra.ExactArgs(1),
	Run:  runHandler,
}

func runHandler(cmd *cobra.Command, args []string) {
	cfg := loadConfig(runConfigPath)
	if runDebug {
		cfg.Logging.Level = "debug"
	}
	log := newLogger(cfg)

	def, err := resolveTask(cfg, log, args[0])
	if err != nil {
		fmt.Printf("❌ %v\n", err)
		os.Exit(1)
	}

	sink, err := result.NewFileSink(cfg.ResultLogPath())
	if err != nil {
		fmt.Printf("❌ Failed to open result log: %v\n", err)
		os.Exit(1)
	}
	defer sink.Close()

	engine := extract.NewHTTPEngine(extract.Config{
		Timeout:         time.Duration(cfg.Pipeline.FetchTimeoutSecs) * time.Second,
		UserAgent:       cfg.Pipeline.UserAgent,
		MaxResponseSize: cfg.Pipeline.MaxResponseSize,
	}, log)
	client := inference.NewHTTPClient(inference.Config{
		TimeoutSeconds: cfg.Pipeline.FetchTimeoutSecs,
	}, log)
	pipe := pipeline.New(pipeline.Config{
		MaxRetries: cfg.Pipeline.MaxRetries,
		RetryDelay: time.Duration(cfg.Pipeline.RetryDelaySeconds) * time.Second,
	}, engine, client, sink, nil, log)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	fmt.Printf("Running task %q...\n", def.Name)
	rec, err := pipe.Run(ctx, def)
	if err != nil {
		fmt.Printf("❌ Task failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✅ Task %q succeeded (model %s)\n", rec.Task, rec.Model)
	fmt.Println(rec.Content)
}

// resolveTask turns the argument into a task definition: an existing file
// path wins, otherwise the name is looked up in the tasks directory.
func resolveTask(cfg *config.Config, log *logger.Logger, arg string) (task.Definition, error) {
	loader := task.NewLoader(cfg.Tasks.Dir, log)

	if _, err := os.Stat(arg); err == nil {
		defs, err := loader.LoadFile(arg)
		if err != nil {
			return task.Definition{}, fmt.Errorf("load %s: %w", arg, err)
		}
		if len(defs) != 1 {
			return task.Definition{}, fmt.Errorf("%s defines %d tasks, expected exactly one", arg, len(defs))
		}
		return defs[0], nil
	}

	defs, err := loader.Load()
	if err != nil {
		return task.Definition{}, err
	}
	for _, def := range defs {
		if def.Name == arg {
			return def, nil
		}
	}
	return task.Definition{}, fmt.Errorf("no task named %q in %s", arg, cfg.Tasks.Dir)
}

func init() {
	runCmd.Flags().StringVarP(&runConfigPath, "config", "c", "", "Path to configuration file (default: ./config.toml)")
	runCmd.Flags().BoolVarP(&runDebug, "debug", "d", false, "Enable debug logging")
}
