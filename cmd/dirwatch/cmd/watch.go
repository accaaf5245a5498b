package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/dirwatch/internal/config"
	werrors "github.com/Aman-CERP/dirwatch/internal/errors"
	"github.com/Aman-CERP/dirwatch/internal/logging"
	"github.com/Aman-CERP/dirwatch/internal/ui"
	"github.com/Aman-CERP/dirwatch/internal/watcher"
)

type watchOptions struct {
	extensions []string
	files      []string
	backend    string
	interval   time.Duration
	recursive  bool
	configDir  string
	noTUI      bool
	json       bool
}

func newWatchCmd() *cobra.Command {
	var opts watchOptions

	cmd := &cobra.Command{
		Use:   "watch [dir...]",
		Short: "Watch directories and files for changes",
		Long: `Watch directories and files and print one line for every file that
appears (NEW) or changes (CHANGE).

Directories given as arguments are filtered by --ext; without --ext every
file is reported. Hidden files and .svn directories are ignored.
Targets from the configuration file are watched as well. With no targets
at all, the current directory is watched.

Backends:
  auto      OS change notifications, polling when they are unavailable
  native    OS change notifications only
  polling   compare modification times every --interval`,
		Example: `  # Watch Go sources in the current directory tree
  dirwatch watch --ext go --recursive .

  # Watch two directories and a single file, polling every second
  dirwatch watch --backend polling --interval 1s src docs --file go.mod

  # Emit JSON lines for scripts
  dirwatch watch --json . | jq .path`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd.Context(), cmd, args, opts)
		},
	}

	cmd.Flags().StringSliceVarP(&opts.extensions, "ext", "e", nil, "File extension to watch, without the dot (repeatable, default: all)")
	cmd.Flags().StringArrayVarP(&opts.files, "file", "f", nil, "Single file to watch (repeatable)")
	cmd.Flags().StringVarP(&opts.backend, "backend", "b", "", "Detection backend: auto, native or polling")
	cmd.Flags().DurationVarP(&opts.interval, "interval", "i", 0, "Polling interval and native wait bound (default 3s)")
	cmd.Flags().BoolVarP(&opts.recursive, "recursive", "r", false, "Descend into subdirectories")
	cmd.Flags().StringVar(&opts.configDir, "config", "", "Directory holding .dirwatch.yaml (default: current directory)")
	cmd.Flags().BoolVar(&opts.noTUI, "no-tui", false, "Disable the dashboard, print plain lines")
	cmd.Flags().BoolVar(&opts.json, "json", false, "Print events as JSON lines")

	return cmd
}

// watchPlan is the resolved set of targets to register.
type watchPlan struct {
	dirs  []config.Target
	files []string
}

func (p watchPlan) describe() []string {
	var out []string
	for _, d := range p.dirs {
		out = append(out, d.Path)
	}
	return append(out, p.files...)
}

func runWatch(ctx context.Context, cmd *cobra.Command, args []string, opts watchOptions) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	dir := opts.configDir
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get current directory: %w", err)
		}
		dir = cwd
	}

	cfg, err := config.Load(dir)
	if err != nil {
		return err
	}
	applyWatchFlags(cmd, cfg, opts)
	if err := cfg.Validate(); err != nil {
		return err
	}

	if !debugMode {
		cleanup, err := setupWatchLogging(cmd, cfg, opts)
		if err != nil {
			return err
		}
		defer cleanup()
	}

	wopts, err := cfg.WatcherOptions(slog.Default())
	if err != nil {
		return err
	}
	w, err := watcher.New(wopts)
	if err != nil {
		return err
	}

	plan := planTargets(cfg, args, opts.extensions)
	if err := register(w, plan); err != nil {
		w.Stop()
		return err
	}

	renderer := ui.NewRenderer(ui.NewConfig(cmd.OutOrStdout(),
		ui.WithForcePlain(opts.noTUI),
		ui.WithJSON(opts.json),
		ui.WithSummary(ui.Summary{
			Backend: w.BackendName(),
			Targets: plan.describe(),
			Sleep:   w.SleepTime(),
		}),
		ui.WithOnQuit(cancel),
	))
	if err := renderer.Start(ctx); err != nil {
		w.Stop()
		return fmt.Errorf("failed to start output: %w", err)
	}
	w.AddListener(ui.Listener(renderer))

	if err := w.Start(ctx); err != nil {
		_ = renderer.Stop()
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-gctx.Done()
		w.Stop()
		return nil
	})
	g.Go(func() error {
		<-w.Done()
		cancel()
		return nil
	})
	err = g.Wait()

	if stopErr := renderer.Stop(); err == nil {
		err = stopErr
	}
	if n := w.ListenerFailures(); n > 0 {
		slog.Warn("listener failures during session", slog.Uint64("count", n))
	}
	return err
}

// applyWatchFlags lets explicitly set flags override the loaded config.
func applyWatchFlags(cmd *cobra.Command, cfg *config.Config, opts watchOptions) {
	flags := cmd.Flags()
	if flags.Changed("backend") {
		cfg.Watch.Backend = opts.backend
	}
	if flags.Changed("interval") {
		cfg.Watch.SleepTime = opts.interval.String()
	}
	if flags.Changed("recursive") {
		cfg.Watch.Recursive = opts.recursive
	}
}

// setupWatchLogging installs the configured logger. The dashboard owns the
// terminal, so without a log file diagnostics are dropped while it runs.
func setupWatchLogging(cmd *cobra.Command, cfg *config.Config, opts watchOptions) (func(), error) {
	lc := cfg.LogConfig()
	if lc.FilePath == "" && !opts.noTUI && !opts.json && ui.IsTTY(cmd.OutOrStdout()) {
		lc.WriteToStderr = false
	}
	cleanup, err := logging.SetupDefault(lc)
	if err != nil {
		return nil, werrors.ConfigError("failed to set up logging", err).
			WithSuggestion("check logging.file in the configuration")
	}
	return cleanup, nil
}

// planTargets merges command-line targets with configured ones. Command
// line directories share the --ext filter.
func planTargets(cfg *config.Config, args, exts []string) watchPlan {
	plan := watchPlan{
		dirs:  append([]config.Target(nil), cfg.Targets...),
		files: append([]string(nil), cfg.Files...),
	}
	for _, arg := range args {
		plan.dirs = append(plan.dirs, config.Target{Path: arg, Extensions: exts})
	}
	if len(plan.dirs) == 0 && len(plan.files) == 0 {
		plan.dirs = append(plan.dirs, config.Target{Path: ".", Extensions: exts})
	}
	return plan
}

// register adds every planned target. Files go first so a file that is
// also inside a watched directory is tracked as a file target.
func register(w *watcher.DirectoryWatcher, plan watchPlan) error {
	for _, f := range plan.files {
		if err := w.AddWatchFile(f); err != nil {
			return fmt.Errorf("failed to watch file %s: %w", f, err)
		}
	}
	for _, d := range plan.dirs {
		info, err := os.Stat(d.Path)
		if err != nil {
			return werrors.New(werrors.ErrCodePathNotFound,
				fmt.Sprintf("cannot watch %s", d.Path), err).
				WithDetail("path", d.Path).
				WithSuggestion("check that the directory exists")
		}
		if !info.IsDir() {
			return werrors.ValidationError(werrors.ErrCodeInvalidPath,
				fmt.Sprintf("%s is not a directory", d.Path)).
				WithSuggestion(fmt.Sprintf("use --file %s", filepath.Clean(d.Path)))
		}
		if err := w.AddWatchDirectory(d.Path, d.Extensions...); err != nil {
			return err
		}
	}
	return nil
}
