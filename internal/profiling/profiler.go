// Package profiling writes CPU, heap, goroutine and execution-trace
// profiles for a dirwatch run.
package profiling

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"
	"runtime/trace"
)

// Config names the profile files to write. Empty paths are skipped.
type Config struct {
	CPU        string
	Heap       string
	Goroutines string
	Trace      string
}

// Enabled reports whether any profile was requested.
func (c Config) Enabled() bool {
	return c.CPU != "" || c.Heap != "" || c.Goroutines != "" || c.Trace != ""
}

// Session is a running profiling session. CPU and trace profiles cover the
// time between Start and Stop; heap and goroutine profiles are snapshots
// taken at Stop.
type Session struct {
	cfg       Config
	cpuFile   *os.File
	traceFile *os.File
}

// Start begins CPU profiling and tracing as configured.
func Start(cfg Config) (*Session, error) {
	s := &Session{cfg: cfg}

	if cfg.CPU != "" {
		f, err := os.Create(cfg.CPU)
		if err != nil {
			return nil, fmt.Errorf("failed to create CPU profile file: %w", err)
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("failed to start CPU profile: %w", err)
		}
		s.cpuFile = f
	}

	if cfg.Trace != "" {
		f, err := os.Create(cfg.Trace)
		if err != nil {
			s.stopCPU()
			return nil, fmt.Errorf("failed to create trace file: %w", err)
		}
		if err := trace.Start(f); err != nil {
			_ = f.Close()
			s.stopCPU()
			return nil, fmt.Errorf("failed to start trace: %w", err)
		}
		s.traceFile = f
	}

	return s, nil
}

// Stop ends CPU profiling and tracing and writes the snapshot profiles.
// It is safe to call more than once.
func (s *Session) Stop() error {
	s.stopCPU()
	if s.traceFile != nil {
		trace.Stop()
		_ = s.traceFile.Close()
		s.traceFile = nil
	}

	var errs []error
	if s.cfg.Heap != "" {
		// Collect first so the profile shows live objects only.
		runtime.GC()
		errs = append(errs, writeProfile("heap", s.cfg.Heap, 0))
	}
	if s.cfg.Goroutines != "" {
		errs = append(errs, writeProfile("goroutine", s.cfg.Goroutines, 1))
	}
	s.cfg.Heap, s.cfg.Goroutines = "", ""
	return errors.Join(errs...)
}

func (s *Session) stopCPU() {
	if s.cpuFile != nil {
		pprof.StopCPUProfile()
		_ = s.cpuFile.Close()
		s.cpuFile = nil
	}
}

func writeProfile(name, path string, debug int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s profile file: %w", name, err)
	}
	defer func() { _ = f.Close() }()

	if err := pprof.Lookup(name).WriteTo(f, debug); err != nil {
		return fmt.Errorf("failed to write %s profile: %w", name, err)
	}
	return nil
}
