package errors

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// FormatForCLI formats an error for terminal display.
func FormatForCLI(err error) string {
	if err == nil {
		return ""
	}

	var we *WatchError
	if !errors.As(err, &we) {
		we = Wrap(ErrCodeInternal, err)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Error: %s\n", we.Message))
	if we.Suggestion != "" {
		sb.WriteString(fmt.Sprintf("  Hint: %s\n", we.Suggestion))
	}
	sb.WriteString(fmt.Sprintf("  Code: %s\n", we.Code))

	return sb.String()
}

// LogAttrs returns slog attributes describing err.
func LogAttrs(err error) []slog.Attr {
	if err == nil {
		return nil
	}

	var we *WatchError
	if !errors.As(err, &we) {
		return []slog.Attr{slog.String("error", err.Error())}
	}

	attrs := []slog.Attr{
		slog.String("error_code", we.Code),
		slog.String("error", we.Message),
		slog.String("category", string(we.Category)),
		slog.String("severity", string(we.Severity)),
	}
	if we.Cause != nil {
		attrs = append(attrs, slog.String("cause", we.Cause.Error()))
	}
	for k, v := range we.Details {
		attrs = append(attrs, slog.String(k, v))
	}
	return attrs
}
