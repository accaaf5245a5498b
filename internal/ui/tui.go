package ui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// sampleInterval is the width of one sparkline bar.
const sampleInterval = time.Second

// TUIRenderer shows a live dashboard using bubbletea.
type TUIRenderer struct {
	mu      sync.Mutex
	cfg     Config
	program *tea.Program
	model   *watchModel
	tracker *Tracker
	started bool
	done    chan struct{}
}

// NewTUIRenderer creates a TUI renderer.
// Returns an error if the output is not a terminal.
func NewTUIRenderer(cfg Config) (*TUIRenderer, error) {
	if !IsTTY(cfg.Output) {
		return nil, fmt.Errorf("output is not a TTY")
	}

	tracker := NewTracker()
	model := newWatchModel(tracker, cfg.Summary, cfg.OnQuit)
	if cfg.NoColor {
		model.styles = NoColorStyles()
	}

	return &TUIRenderer{
		cfg:     cfg,
		tracker: tracker,
		model:   model,
		done:    make(chan struct{}),
	}, nil
}

// Start implements Renderer.
func (r *TUIRenderer) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return nil
	}

	opts := []tea.ProgramOption{tea.WithContext(ctx), tea.WithAltScreen()}
	if f, ok := r.cfg.Output.(*os.File); ok {
		opts = append(opts, tea.WithOutput(f))
	}

	r.program = tea.NewProgram(r.model, opts...)
	r.started = true

	go func() {
		defer close(r.done)
		_, _ = r.program.Run()
	}()
	return nil
}

// Event implements Renderer.
func (r *TUIRenderer) Event(e Event) {
	r.tracker.Record(e)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.program != nil {
		r.program.Send(eventMsg(e))
	}
}

// Stop implements Renderer. The final totals are printed after the
// alternate screen is released.
func (r *TUIRenderer) Stop() error {
	r.mu.Lock()
	program := r.program
	r.mu.Unlock()

	if program != nil {
		program.Quit()
		select {
		case <-r.done:
		case <-time.After(2 * time.Second):
		}
	}

	_, _ = fmt.Fprintln(r.cfg.Output, totals(r.tracker.Stats()))
	return nil
}

type eventMsg Event
type sampleMsg time.Time

// watchModel is the bubbletea model for the watch dashboard.
type watchModel struct {
	tracker  *Tracker
	summary  Summary
	onQuit   func()
	spinner  spinner.Model
	styles   Styles
	width    int
	height   int
	quitting bool
}

func newWatchModel(tracker *Tracker, summary Summary, onQuit func()) *watchModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorLime))

	return &watchModel{
		tracker: tracker,
		summary: summary,
		onQuit:  onQuit,
		spinner: s,
		styles:  DefaultStyles(),
		width:   80,
		height:  24,
	}
}

// Init implements tea.Model.
func (m *watchModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, sampleCmd())
}

func sampleCmd() tea.Cmd {
	return tea.Tick(sampleInterval, func(t time.Time) tea.Msg {
		return sampleMsg(t)
	})
}

// Update implements tea.Model.
func (m *watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.quitting = true
			if m.onQuit != nil {
				m.onQuit()
			}
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case eventMsg:
		// Counted by the tracker in Event; the next frame shows it.
		return m, nil

	case sampleMsg:
		m.tracker.Sample()
		return m, sampleCmd()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View implements tea.Model.
func (m *watchModel) View() string {
	if m.quitting {
		return "Stopping...\n"
	}

	contentWidth := max(m.width-4, 40)
	stats := m.tracker.Stats()

	sections := []string{
		m.renderStatus(),
		m.renderCounters(stats),
		m.renderSparkline(contentWidth),
		m.renderDivider(contentWidth),
		m.renderRecent(stats, contentWidth),
	}

	title := "dirwatch"
	if m.summary.Backend != "" {
		title = fmt.Sprintf("dirwatch • %s", m.summary.Backend)
	}
	panel := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(ColorDarkGray)).
		Padding(0, 1).
		Width(contentWidth)

	return lipgloss.JoinVertical(lipgloss.Left,
		m.styles.Header.Render(title),
		panel.Render(strings.Join(sections, "\n")),
		m.styles.Dim.Render("q to quit"),
	)
}

func (m *watchModel) renderStatus() string {
	return fmt.Sprintf("%s %s", m.spinner.View(), m.styles.Label.Render("Watching "+describe(m.summary)))
}

func (m *watchModel) renderCounters(s TrackerStats) string {
	sep := m.styles.Dim.Render("  •  ")
	return strings.Join([]string{
		m.styles.New.Render(fmt.Sprintf("%d new", s.New)),
		m.styles.Change.Render(fmt.Sprintf("%d changed", s.Changed)),
		m.styles.Label.Render(fmt.Sprintf("peak %d/s", s.Peak)),
		m.styles.Label.Render("up " + formatDuration(s.Elapsed)),
	}, sep)
}

func (m *watchModel) renderSparkline(width int) string {
	spark := m.tracker.RenderSparkline(max(width-12, 10))
	return m.styles.Spark.Render(spark) + " " + m.styles.Dim.Render("events/s")
}

func (m *watchModel) renderDivider(width int) string {
	return m.styles.Border.Render(strings.Repeat("─", width))
}

// renderRecent lists the newest events that fit the terminal height.
func (m *watchModel) renderRecent(s TrackerStats, width int) string {
	if len(s.Recent) == 0 {
		return m.styles.Dim.Render("No changes yet")
	}

	rows := max(m.height-10, 3)
	if len(s.Recent) < rows {
		rows = len(s.Recent)
	}

	lines := make([]string, 0, rows)
	for _, e := range s.Recent[:rows] {
		path := truncatePath(e.Path, width-17)
		lines = append(lines, fmt.Sprintf("%s %s %s",
			m.styles.Time.Render(e.Time.Format("15:04:05")),
			m.styles.KindStyle(e.Kind).Render(e.Kind.Label()),
			m.styles.Path.Render(path)))
	}
	return strings.Join(lines, "\n")
}

// truncatePath shortens a path to maxLen, keeping the file name.
func truncatePath(path string, maxLen int) string {
	if maxLen < 4 || len(path) <= maxLen {
		return path
	}

	name := filepath.Base(path)
	if len(name)+4 > maxLen {
		return "..." + name[len(name)-maxLen+3:]
	}

	dir := filepath.Dir(path)
	keep := maxLen - len(name) - 4
	return "..." + dir[len(dir)-keep:] + string(filepath.Separator) + name
}

var _ Renderer = (*TUIRenderer)(nil)
