// Package cmd provides the CLI commands for dirwatch.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/dirwatch/internal/logging"
	"github.com/Aman-CERP/dirwatch/internal/output"
	"github.com/Aman-CERP/dirwatch/internal/profiling"
	"github.com/Aman-CERP/dirwatch/pkg/version"
)

// Debug logging flag
var (
	debugMode      bool
	loggingCleanup func()
)

// Profiling flags
var (
	profileCfg profiling.Config
	profile    *profiling.Session
)

// NewRootCmd creates the root command for the dirwatch CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dirwatch",
		Short: "Watch files and directories for changes",
		Long: `dirwatch reports files that appear or change under a set of watched
directories, filtered by extension.

It uses OS change notifications where available and falls back to
polling modification times.`,
		Version:       version.Short(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("dirwatch version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to ~/.dirwatch/logs/")

	cmd.PersistentFlags().StringVar(&profileCfg.CPU, "profile-cpu", "", "Write CPU profile to file")
	cmd.PersistentFlags().StringVar(&profileCfg.Heap, "profile-mem", "", "Write memory profile to file")
	cmd.PersistentFlags().StringVar(&profileCfg.Goroutines, "profile-goroutines", "", "Write goroutine stacks to file on exit")
	cmd.PersistentFlags().StringVar(&profileCfg.Trace, "profile-trace", "", "Write execution trace to file")

	cmd.PersistentPreRunE = startProfilingAndLogging
	cmd.PersistentPostRunE = stopProfilingAndLogging

	cmd.AddCommand(newWatchCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newLogsCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// startProfilingAndLogging starts profiling if requested and routes
// diagnostics to the debug log file when --debug is set. Stdout and stderr
// stay free for event output.
func startProfilingAndLogging(_ *cobra.Command, _ []string) error {
	if profileCfg.Enabled() {
		s, err := profiling.Start(profileCfg)
		if err != nil {
			return err
		}
		profile = s
	}

	if !debugMode {
		return nil
	}

	cfg := logging.DebugConfig()
	cfg.WriteToStderr = false
	cleanup, err := logging.SetupDefault(cfg)
	if err != nil {
		return fmt.Errorf("failed to setup debug logging: %w", err)
	}
	loggingCleanup = cleanup
	slog.Info("debug logging enabled",
		slog.String("log_file", cfg.FilePath),
		slog.String("version", version.Short()))
	return nil
}

func stopProfilingAndLogging(_ *cobra.Command, _ []string) error {
	var err error
	if profile != nil {
		err = profile.Stop()
		profile = nil
	}

	if loggingCleanup != nil {
		slog.Info("debug logging stopped")
		loggingCleanup()
		loggingCleanup = nil
	}
	return err
}

// Execute runs the root command and prints any error with its hint.
func Execute() error {
	err := NewRootCmd().Execute()
	if err != nil {
		output.New(os.Stderr).Err(err)
	}
	return err
}
