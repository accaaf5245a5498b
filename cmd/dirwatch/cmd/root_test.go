package cmd

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// syncBuffer is a bytes.Buffer safe for a writer goroutine and a polling test.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// isolateEnv keeps the user's home, config and DIRWATCH_* settings out of a test.
func isolateEnv(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	for _, v := range []string{
		"DIRWATCH_BACKEND", "DIRWATCH_SLEEP_TIME", "DIRWATCH_DEBOUNCE_WINDOW",
		"DIRWATCH_RECURSIVE", "DIRWATCH_MAX_BACKEND_ERRORS", "DIRWATCH_LOG_LEVEL", "DIRWATCH_LOG_FILE",
	} {
		t.Setenv(v, "")
	}
	return home
}

// keepDefaultLogger restores the slog default replaced by logging setup.
func keepDefaultLogger(t *testing.T) {
	t.Helper()
	orig := slog.Default()
	t.Cleanup(func() { slog.SetDefault(orig) })
}

func runRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestRootCmd_ShowsHelp(t *testing.T) {
	// When: executing with --help
	out, err := runRoot(t, "--help")

	// Then: usage lists every subcommand
	require.NoError(t, err)
	assert.Contains(t, out, "dirwatch")
	for _, sub := range []string{"watch", "config", "logs", "version"} {
		assert.Contains(t, out, sub)
	}
}

func TestRootCmd_HasDebugFlag(t *testing.T) {
	cmd := NewRootCmd()

	flag := cmd.PersistentFlags().Lookup("debug")

	require.NotNil(t, flag)
	assert.Equal(t, "false", flag.DefValue)
}

func TestRootCmd_VersionFlag(t *testing.T) {
	out, err := runRoot(t, "--version")

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "dirwatch version "))
}

func TestRootCmd_DebugWritesLogFile(t *testing.T) {
	// Given: an isolated home directory
	home := isolateEnv(t)
	keepDefaultLogger(t)

	// When: running any command with --debug
	_, err := runRoot(t, "--debug", "version", "--short")

	// Then: the debug log exists under ~/.dirwatch/logs
	require.NoError(t, err)
	data, err := os.ReadFile(filepath.Join(home, ".dirwatch", "logs", "dirwatch.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "debug logging enabled")
	assert.Nil(t, loggingCleanup, "cleanup should run after the command")
}

func TestRootCmd_UnknownCommand(t *testing.T) {
	_, err := runRoot(t, "explode")

	assert.Error(t, err)
}

func TestRootCmd_ProfileFlags(t *testing.T) {
	// Given: profile paths in a temp directory
	dir := t.TempDir()
	heap := filepath.Join(dir, "heap.prof")
	goroutines := filepath.Join(dir, "goroutines.txt")

	// When: running a command with profiling enabled
	_, err := runRoot(t, "--profile-mem", heap, "--profile-goroutines", goroutines, "version")

	// Then: the snapshots are written at exit
	require.NoError(t, err)
	assert.FileExists(t, heap)
	assert.FileExists(t, goroutines)
	assert.Nil(t, profile)
}
