// Package log is the application's slog setup: component-scoped loggers,
// request-scoped loggers carried in the context, and typed helpers for the
// events worth recording (HTTP requests, ledger writes, exports).
package log

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger is a slog.Logger that remembers which component it belongs to.
// Attributes added with With survive a change of component.
type Logger struct {
	*slog.Logger
	base      slog.Handler
	attrs     []any
	component string
}

func build(base slog.Handler, component string, attrs []any) *Logger {
	return &Logger{
		Logger:    slog.New(base).With(FieldComponent, component).With(attrs...),
		base:      base,
		attrs:     attrs,
		component: component,
	}
}

// Format selects the slog handler.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

type Config struct {
	Level     slog.Level
	Component string
	Format    Format
	// Output defaults to stdout.
	Output io.Writer
	// Handler overrides Format and Output when set.
	Handler slog.Handler
}

// ParseLevel maps LOG_LEVEL values to slog levels. Unknown values mean info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ParseFormat maps LOG_FORMAT values to a Format. Anything but "json" is text.
func ParseFormat(s string) Format {
	if strings.EqualFold(strings.TrimSpace(s), string(FormatJSON)) {
		return FormatJSON
	}
	return FormatText
}

func New(config Config) *Logger {
	handler := config.Handler
	if handler == nil {
		out := config.Output
		if out == nil {
			out = os.Stdout
		}
		opts := &slog.HandlerOptions{Level: config.Level}
		if config.Format == FormatJSON {
			handler = slog.NewJSONHandler(out, opts)
		} else {
			handler = slog.NewTextHandler(out, opts)
		}
	}
	component := config.Component
	if component == "" {
		component = ComponentApp
	}
	return build(handler, component, nil)
}

func (l *Logger) With(args ...any) *Logger {
	attrs := append(append([]any(nil), l.attrs...), args...)
	return build(l.base, l.component, attrs)
}

// WithComponent returns a logger tagged with another component. The
// attribute is replaced, not repeated.
func (l *Logger) WithComponent(component string) *Logger {
	return build(l.base, component, l.attrs)
}

// WithHousehold scopes the logger to a signed-in user and their household.
func (l *Logger) WithHousehold(userID, householdID string) *Logger {
	return l.With(FieldUserID, userID, FieldHouseholdID, householdID)
}

func (l *Logger) Component() string { return l.component }

// SetDefault installs logger as the process-wide slog default.
func SetDefault(logger *Logger) {
	slog.SetDefault(logger.Logger)
}
