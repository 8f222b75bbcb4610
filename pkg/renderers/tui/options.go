package tui

import (
	"io"
	"log/slog"
)

// Theme holds the prefixes the session puts in front of status (InfoPrefix)
// and error (ErrorPrefix) lines, plus the text shown while submitting.
type Theme struct {
	InfoPrefix  string
	ErrorPrefix string
	BusyMessage string
}

// DefaultTheme returns the prefixes used when no theme is supplied.
func DefaultTheme() Theme {
	return Theme{
		InfoPrefix:  "·",
		ErrorPrefix: "✗",
		BusyMessage: "Submitting…",
	}
}

// Option configures the terminal session.
type Option func(*Session)

// WithPromptDriver overrides the prompt driver used by the session.
func WithPromptDriver(driver PromptDriver) Option {
	return func(s *Session) {
		if driver != nil {
			s.driver = driver
		}
	}
}

// WithOutput sets where the default survey driver prints messages.
func WithOutput(w io.Writer) Option {
	return func(s *Session) {
		if w != nil {
			s.out = w
		}
	}
}

// WithTheme applies optional message prefixes. Empty fields keep defaults.
func WithTheme(theme Theme) Option {
	return func(s *Session) {
		if theme.InfoPrefix != "" {
			s.theme.InfoPrefix = theme.InfoPrefix
		}
		if theme.ErrorPrefix != "" {
			s.theme.ErrorPrefix = theme.ErrorPrefix
		}
		if theme.BusyMessage != "" {
			s.theme.BusyMessage = theme.BusyMessage
		}
	}
}

// WithLogger sets the session logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}
