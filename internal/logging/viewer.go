package logging

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// maxLineSize bounds a single log line read by the viewer.
const maxLineSize = 1024 * 1024

// LogEntry is one parsed JSON log line.
type LogEntry struct {
	Time    time.Time
	Level   string
	Msg     string
	Attrs   map[string]any
	Raw     string
	IsValid bool
}

// ViewerConfig configures the log viewer.
type ViewerConfig struct {
	Level   string         // minimum level shown
	Pattern *regexp.Regexp // only lines matching the pattern
	NoColor bool
}

// Viewer reads dirwatch log files back for display.
type Viewer struct {
	config ViewerConfig
	out    io.Writer
	levels map[string]lipgloss.Style
	dim    lipgloss.Style
}

// NewViewer creates a new log viewer.
func NewViewer(cfg ViewerConfig, out io.Writer) *Viewer {
	v := &Viewer{
		config: cfg,
		out:    out,
		levels: map[string]lipgloss.Style{},
		dim:    lipgloss.NewStyle(),
	}
	if !cfg.NoColor {
		v.dim = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
		v.levels = map[string]lipgloss.Style{
			"DEBUG": lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
			"INFO":  lipgloss.NewStyle().Foreground(lipgloss.Color("154")),
			"WARN":  lipgloss.NewStyle().Foreground(lipgloss.Color("220")),
			"ERROR": lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		}
	}
	return v
}

// Tail returns the matching entries among the last n lines of path.
func (v *Viewer) Tail(path string, n int) ([]LogEntry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	defer func() { _ = file.Close() }()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	// ring of the last n lines
	ring := make([]string, 0, n)
	for scanner.Scan() {
		if n <= 0 {
			continue
		}
		if len(ring) == n {
			ring = append(ring[1:], scanner.Text())
		} else {
			ring = append(ring, scanner.Text())
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read log file: %w", err)
	}

	return v.Filter(ring), nil
}

// Filter parses lines and keeps those matching the configured filters.
func (v *Viewer) Filter(lines []string) []LogEntry {
	var entries []LogEntry
	for _, line := range lines {
		if line == "" {
			continue
		}
		entry := ParseLine(line)
		if v.matches(entry) {
			entries = append(entries, entry)
		}
	}
	return entries
}

// Print writes entries to the output, one per line.
func (v *Viewer) Print(entries []LogEntry) {
	for _, entry := range entries {
		_, _ = fmt.Fprintln(v.out, v.FormatEntry(entry))
	}
}

// FormatEntry renders an entry as "15:04:05.000 LEVEL msg k=v ...".
// Lines that are not JSON are returned unchanged.
func (v *Viewer) FormatEntry(entry LogEntry) string {
	if !entry.IsValid {
		return entry.Raw
	}

	level := strings.ToUpper(entry.Level)
	if len(level) > 5 {
		level = level[:5]
	}
	level = fmt.Sprintf("%-5s", level)
	if style, ok := v.levels[strings.TrimSpace(level)]; ok {
		level = style.Render(level)
	}

	keys := make([]string, 0, len(entry.Attrs))
	for k := range entry.Attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(v.dim.Render(entry.Time.Format("15:04:05.000")))
	b.WriteString(" ")
	b.WriteString(level)
	b.WriteString(" ")
	b.WriteString(entry.Msg)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, entry.Attrs[k])
	}
	return b.String()
}

func (v *Viewer) matches(entry LogEntry) bool {
	if v.config.Level != "" && ParseLevel(entry.Level) < ParseLevel(v.config.Level) {
		return false
	}
	if v.config.Pattern != nil && !v.config.Pattern.MatchString(entry.Raw) {
		return false
	}
	return true
}

// ParseLine parses a JSON log line written by the slog JSON handler.
func ParseLine(line string) LogEntry {
	entry := LogEntry{Raw: line}

	var data map[string]any
	if err := json.Unmarshal([]byte(line), &data); err != nil {
		return entry
	}
	entry.IsValid = true

	if t, ok := data[slogTimeKey].(string); ok {
		if parsed, err := time.Parse(time.RFC3339Nano, t); err == nil {
			entry.Time = parsed
		}
	}
	entry.Level, _ = data[slogLevelKey].(string)
	entry.Msg, _ = data[slogMsgKey].(string)

	entry.Attrs = make(map[string]any, len(data))
	for k, val := range data {
		switch k {
		case slogTimeKey, slogLevelKey, slogMsgKey:
		default:
			entry.Attrs[k] = val
		}
	}
	return entry
}

const (
	slogTimeKey  = "time"
	slogLevelKey = "level"
	slogMsgKey   = "msg"
)

// Follower reads lines appended to a log file since the previous call.
// A file that shrank, as after rotation, is read again from the start.
type Follower struct {
	path string

	mu      sync.Mutex
	offset  int64
	partial string
}

// NewFollower starts following path at its current end.
func NewFollower(path string) (*Follower, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat log file: %w", err)
	}
	return &Follower{path: path, offset: info.Size()}, nil
}

// ReadNew returns the complete lines written since the last call.
func (f *Follower) ReadNew() ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	file, err := os.Open(f.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	defer func() { _ = file.Close() }()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat log file: %w", err)
	}
	if info.Size() < f.offset {
		f.offset = 0
		f.partial = ""
	}
	if info.Size() == f.offset {
		return nil, nil
	}

	if _, err := file.Seek(f.offset, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to seek log file: %w", err)
	}
	data, err := io.ReadAll(io.LimitReader(file, info.Size()-f.offset))
	if err != nil {
		return nil, fmt.Errorf("failed to read log file: %w", err)
	}
	f.offset += int64(len(data))

	text := f.partial + string(data)
	lines := strings.Split(text, "\n")
	f.partial = lines[len(lines)-1]
	return lines[:len(lines)-1], nil
}
