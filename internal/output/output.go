// Package output provides consistent CLI output formatting for dirwatch
// commands other than the event stream.
package output

import (
	"fmt"
	"io"
	"strings"

	werrors "github.com/Aman-CERP/dirwatch/internal/errors"
	"github.com/Aman-CERP/dirwatch/internal/ui"
)

// Writer provides formatted output for CLI.
type Writer struct {
	out    io.Writer
	styles ui.Styles
}

// New creates a Writer. Color is used only on a terminal without NO_COLOR.
func New(out io.Writer) *Writer {
	return &Writer{
		out:    out,
		styles: ui.GetStyles(!ui.IsTTY(out) || ui.DetectNoColor()),
	}
}

// Status prints a status message with an icon.
// Errors from writing are intentionally ignored for console output.
func (w *Writer) Status(icon, msg string) {
	if icon != "" {
		_, _ = fmt.Fprintf(w.out, "%s %s\n", icon, msg)
	} else {
		_, _ = fmt.Fprintf(w.out, "   %s\n", msg)
	}
}

// Statusf prints a formatted status message with an icon.
func (w *Writer) Statusf(icon, format string, args ...any) {
	w.Status(icon, fmt.Sprintf(format, args...))
}

// Success prints a success message with checkmark.
func (w *Writer) Success(msg string) {
	w.Status(w.styles.New.Render("✓"), msg)
}

// Successf prints a formatted success message.
func (w *Writer) Successf(format string, args ...any) {
	w.Success(fmt.Sprintf(format, args...))
}

// Warning prints a warning message.
func (w *Writer) Warning(msg string) {
	w.Status(w.styles.Warning.Render("!"), msg)
}

// Warningf prints a formatted warning message.
func (w *Writer) Warningf(format string, args ...any) {
	w.Warning(fmt.Sprintf(format, args...))
}

// Error prints an error message.
func (w *Writer) Error(msg string) {
	w.Status(w.styles.Error.Render("✗"), msg)
}

// Errorf prints a formatted error message.
func (w *Writer) Errorf(format string, args ...any) {
	w.Error(fmt.Sprintf(format, args...))
}

// Err prints err with its hint and code when it is a WatchError.
func (w *Writer) Err(err error) {
	if err == nil {
		return
	}
	_, _ = fmt.Fprint(w.out, w.styles.Error.Render(werrors.FormatForCLI(err)))
}

// Header prints a bold section title.
func (w *Writer) Header(title string) {
	_, _ = fmt.Fprintln(w.out, w.styles.Header.Render(title))
}

// KeyValue prints an indented "key: value" row with the key padded to width.
func (w *Writer) KeyValue(key string, value any, width int) {
	label := w.styles.Label.Render(fmt.Sprintf("%-*s", width, key+":"))
	_, _ = fmt.Fprintf(w.out, "  %s %v\n", label, value)
}

// Code prints a code block with indentation.
func (w *Writer) Code(content string) {
	_, _ = fmt.Fprintln(w.out)
	for _, line := range strings.Split(strings.TrimRight(content, "\n"), "\n") {
		_, _ = fmt.Fprintf(w.out, "  %s\n", line)
	}
	_, _ = fmt.Fprintln(w.out)
}

// Newline prints an empty line.
func (w *Writer) Newline() {
	_, _ = fmt.Fprintln(w.out)
}
