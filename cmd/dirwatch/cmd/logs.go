package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"regexp"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/dirwatch/internal/logging"
	"github.com/Aman-CERP/dirwatch/internal/watcher"
)

type logsOptions struct {
	follow   bool
	lines    int
	level    string
	filter   string
	noColor  bool
	logFile  string
	interval time.Duration
}

func newLogsCmd() *cobra.Command {
	var opts logsOptions

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "View dirwatch debug logs",
		Long: `View the log written by 'dirwatch --debug' (~/.dirwatch/logs/dirwatch.log).

By default the last 50 lines are shown. Use -f to follow new entries;
the log file is itself watched for changes.`,
		Example: `  dirwatch logs                    # Show last 50 lines
  dirwatch logs -n 200             # Show last 200 lines
  dirwatch logs -f                 # Follow new entries
  dirwatch logs --level warn       # Only warnings and errors
  dirwatch logs --filter fallback  # Filter by pattern`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLogs(cmd.Context(), cmd, opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.follow, "follow", "f", false, "Follow log output (like tail -f)")
	cmd.Flags().IntVarP(&opts.lines, "lines", "n", 50, "Number of lines to show")
	cmd.Flags().StringVar(&opts.level, "level", "", "Minimum log level (debug|info|warn|error)")
	cmd.Flags().StringVar(&opts.filter, "filter", "", "Filter by keyword/pattern (regex)")
	cmd.Flags().BoolVar(&opts.noColor, "no-color", false, "Disable colored output")
	cmd.Flags().StringVar(&opts.logFile, "file", "", "Path to log file")
	cmd.Flags().DurationVar(&opts.interval, "interval", 500*time.Millisecond, "How often to check the log file when following")

	return cmd
}

func runLogs(ctx context.Context, cmd *cobra.Command, opts logsOptions) error {
	path, err := logging.FindLogFile(opts.logFile)
	if err != nil {
		return err
	}
	if err := logging.ValidateLevel(opts.level); err != nil {
		return err
	}

	var pattern *regexp.Regexp
	if opts.filter != "" {
		pattern, err = regexp.Compile(opts.filter)
		if err != nil {
			return fmt.Errorf("invalid filter pattern: %w", err)
		}
	}

	viewer := logging.NewViewer(logging.ViewerConfig{
		Level:   opts.level,
		Pattern: pattern,
		NoColor: opts.noColor || os.Getenv("NO_COLOR") != "",
	}, cmd.OutOrStdout())

	errOut := cmd.ErrOrStderr()
	fmt.Fprintf(errOut, "Log file: %s\n", path)
	if opts.follow {
		fmt.Fprintln(errOut, "Following... (Ctrl+C to stop)")
	}
	fmt.Fprintln(errOut, "---")

	entries, err := viewer.Tail(path, opts.lines)
	if err != nil {
		return err
	}
	viewer.Print(entries)

	if !opts.follow {
		return nil
	}
	return followLog(ctx, viewer, path, opts.interval)
}

// followLog prints lines appended to path until ctx is cancelled, using a
// DirectoryWatcher on the log file to learn about writes.
func followLog(ctx context.Context, viewer *logging.Viewer, path string, interval time.Duration) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	follower, err := logging.NewFollower(path)
	if err != nil {
		return err
	}

	// The followed file may be our own debug log; the watcher must not
	// write to it.
	w, err := watcher.New(watcher.Options{
		SleepTime: interval,
		Logger:    slog.New(slog.DiscardHandler),
	})
	if err != nil {
		return err
	}

	readErr := make(chan error, 1)
	printNew := func(string) {
		lines, err := follower.ReadNew()
		if err != nil {
			select {
			case readErr <- err:
			default:
			}
			w.SetActive(false)
			return
		}
		viewer.Print(viewer.Filter(lines))
	}
	w.AddListener(watcher.ListenerFuncs{New: printNew, Change: printNew})

	if err := w.AddWatchFile(path); err != nil {
		w.Stop()
		return err
	}
	if err := w.Start(ctx); err != nil {
		return err
	}
	<-w.Done()

	select {
	case err := <-readErr:
		return err
	default:
		return nil
	}
}
