package cmd

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleLog = `{"time":"2026-03-01T10:00:00Z","level":"INFO","msg":"watcher started","backend":"native"}
{"time":"2026-03-01T10:00:01Z","level":"DEBUG","msg":"scan skipped","path":"/tmp/x"}
{"time":"2026-03-01T10:00:02Z","level":"WARN","msg":"native watching unavailable, using polling"}
`

func writeLog(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dirwatch.log")
	require.NoError(t, os.WriteFile(path, []byte(sampleLog), 0644))
	return path
}

func TestLogsCmd_Tail(t *testing.T) {
	path := writeLog(t)

	out, err := runRoot(t, "logs", "--file", path, "--no-color")

	require.NoError(t, err)
	assert.Contains(t, out, "Log file: "+path)
	assert.Contains(t, out, "watcher started")
	assert.Contains(t, out, "backend=native")
	assert.Contains(t, out, "scan skipped")
}

func TestLogsCmd_LevelAndPatternFilters(t *testing.T) {
	path := writeLog(t)

	out, err := runRoot(t, "logs", "--file", path, "--no-color", "--level", "warn")
	require.NoError(t, err)
	assert.NotContains(t, out, "watcher started")
	assert.Contains(t, out, "using polling")

	out, err = runRoot(t, "logs", "--file", path, "--no-color", "--filter", "scan")
	require.NoError(t, err)
	assert.Contains(t, out, "scan skipped")
	assert.NotContains(t, out, "watcher started")
}

func TestLogsCmd_LastLines(t *testing.T) {
	path := writeLog(t)

	out, err := runRoot(t, "logs", "--file", path, "--no-color", "-n", "1")

	require.NoError(t, err)
	assert.Contains(t, out, "using polling")
	assert.NotContains(t, out, "scan skipped")
}

func TestLogsCmd_Errors(t *testing.T) {
	path := writeLog(t)

	_, err := runRoot(t, "logs", "--file", filepath.Join(t.TempDir(), "absent.log"))
	assert.Error(t, err)

	_, err = runRoot(t, "logs", "--file", path, "--filter", "(")
	assert.ErrorContains(t, err, "invalid filter pattern")

	_, err = runRoot(t, "logs", "--file", path, "--level", "loud")
	assert.Error(t, err)
}

func TestLogsCmd_FollowPrintsAppendedLines(t *testing.T) {
	keepDefaultLogger(t)
	path := writeLog(t)

	// Given: logs -f running on the file
	ctx, cancel := context.WithCancel(context.Background())
	out := &syncBuffer{}
	cmd := NewRootCmd()
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs([]string{"logs", "-f", "--file", path, "--no-color", "--interval", "20ms"})

	result := make(chan error, 1)
	go func() { result <- cmd.ExecuteContext(ctx) }()
	require.Eventually(t, func() bool { return strings.Contains(out.String(), "Following") }, 3*time.Second, 10*time.Millisecond)
	time.Sleep(100 * time.Millisecond)

	// When: a line is appended
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	require.NoError(t, err)
	_, err = f.WriteString(`{"time":"2026-03-01T10:00:03Z","level":"INFO","msg":"appended entry"}` + "\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	// Then: it is printed
	require.Eventually(t, func() bool { return strings.Contains(out.String(), "appended entry") }, 3*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-result:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("logs -f did not exit after cancellation")
	}
}
