package ui

import "github.com/charmbracelet/lipgloss"

// Color palette
const (
	ColorLime     = "154" // new files, accents
	ColorLimeDim  = "106" // borders of the active panel
	ColorCyan     = "81"  // changed files
	ColorWhite    = "255"
	ColorGray     = "245" // timestamps, labels
	ColorDarkGray = "238" // separators
	ColorRed      = "196"
	ColorYellow   = "220"
)

// Styles holds all UI styles.
type Styles struct {
	Header  lipgloss.Style
	New     lipgloss.Style
	Change  lipgloss.Style
	Path    lipgloss.Style
	Time    lipgloss.Style
	Label   lipgloss.Style
	Dim     lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Border  lipgloss.Style
	Spark   lipgloss.Style
}

// DefaultStyles returns the colored styles.
func DefaultStyles() Styles {
	return Styles{
		Header:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorLime)),
		New:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorLime)),
		Change:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorCyan)),
		Path:    lipgloss.NewStyle().Foreground(lipgloss.Color(ColorWhite)),
		Time:    lipgloss.NewStyle().Foreground(lipgloss.Color(ColorGray)),
		Label:   lipgloss.NewStyle().Foreground(lipgloss.Color(ColorGray)),
		Dim:     lipgloss.NewStyle().Foreground(lipgloss.Color(ColorDarkGray)),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color(ColorYellow)),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color(ColorRed)),
		Border:  lipgloss.NewStyle().Foreground(lipgloss.Color(ColorDarkGray)),
		Spark:   lipgloss.NewStyle().Foreground(lipgloss.Color(ColorLime)),
	}
}

// NoColorStyles returns unstyled components for plain mode.
func NoColorStyles() Styles {
	plain := lipgloss.NewStyle()
	return Styles{
		Header:  plain,
		New:     plain,
		Change:  plain,
		Path:    plain,
		Time:    plain,
		Label:   plain,
		Dim:     plain,
		Warning: plain,
		Error:   plain,
		Border:  plain,
		Spark:   plain,
	}
}

// GetStyles returns the appropriate styles based on color preference.
func GetStyles(noColor bool) Styles {
	if noColor {
		return NoColorStyles()
	}
	return DefaultStyles()
}

// KindStyle returns the style for an event kind.
func (s Styles) KindStyle(k EventKind) lipgloss.Style {
	if k == EventNew {
		return s.New
	}
	return s.Change
}
