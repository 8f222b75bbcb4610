package tui

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/goliatone/go-signup/pkg/signup"
)

// OutputFormat controls how the submitted values are echoed on success.
type OutputFormat string

const (
	// OutputFormatJSON prints an indented JSON object.
	OutputFormatJSON OutputFormat = "json"
	// OutputFormatPrettyText prints one "key: value" line per field.
	OutputFormatPrettyText OutputFormat = "pretty"
)

// WithOutputFormat selects the success summary format.
func WithOutputFormat(format OutputFormat) Option {
	return func(s *Session) {
		if format != "" {
			s.format = format
		}
	}
}

// Session drives a sign-up controller from terminal prompts. Each field is
// prompted in order, stored with SetValue and then marked touched (the
// terminal equivalent of a blur), so its error is shown immediately and the
// field is asked again until it is clean.
type Session struct {
	controller *signup.Controller
	driver     PromptDriver
	out        io.Writer
	theme      Theme
	format     OutputFormat
	logger     *slog.Logger
}

// NewSession binds a session to controller.
func NewSession(controller *signup.Controller, options ...Option) (*Session, error) {
	if controller == nil {
		return nil, errors.New("tui: controller is required")
	}
	s := &Session{
		controller: controller,
		theme:      DefaultTheme(),
		format:     OutputFormatJSON,
		logger:     slog.Default(),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(s)
	}
	if s.driver == nil {
		s.driver = newSurveyDriver(s.out)
	}
	return s, nil
}

// Run prompts until the submission succeeds, the user declines to retry a
// failed submission (ErrDeclined) or aborts (ErrAborted).
func (s *Session) Run(ctx context.Context) (signup.Result, error) {
	if ctx == nil {
		return signup.Result{}, errors.New("tui: context is required")
	}

	for {
		for _, spec := range signup.FieldSpecs() {
			if err := s.promptField(ctx, spec); err != nil {
				return signup.Result{}, err
			}
		}

		if err := s.driver.Info(ctx, s.infoLine(s.theme.BusyMessage)); err != nil {
			return signup.Result{}, err
		}
		res, err := s.controller.Submit(ctx)

		switch res.Outcome {
		case signup.OutcomeSucceeded:
			summary, serr := s.summary(res.Values)
			if serr != nil {
				return res, serr
			}
			if err := s.driver.Info(ctx, summary); err != nil {
				return res, err
			}
			return res, nil

		case signup.OutcomeInvalid:
			// fields are re-prompted by the next pass; show what blocked us
			if err := s.reportErrors(ctx, res.Snapshot); err != nil {
				return res, err
			}

		case signup.OutcomeFailed:
			if ierr := s.driver.Info(ctx, s.errorLine(res.Snapshot.GeneralError)); ierr != nil {
				return res, ierr
			}
			retry, cerr := s.driver.Confirm(ctx, ConfirmConfig{
				Message: "Try again?",
				Default: true,
			})
			if cerr != nil {
				return res, cerr
			}
			if !retry {
				return res, fmt.Errorf("%w: %v", ErrDeclined, err)
			}

		default:
			if err != nil {
				return res, err
			}
			return res, fmt.Errorf("tui: unexpected submit outcome %q", res.Outcome)
		}
	}
}

func (s *Session) promptField(ctx context.Context, spec signup.FieldSpec) error {
	for {
		snap := s.controller.Snapshot()
		current, err := snap.Values.Get(spec.Name)
		if err != nil {
			return err
		}

		var value any
		switch {
		case spec.Kind == signup.FieldKindBoolean:
			def, _ := current.(bool)
			value, err = s.driver.Confirm(ctx, ConfirmConfig{
				Message: spec.Label,
				Default: def,
			})
		case spec.Secret:
			value, err = s.driver.Password(ctx, InputConfig{Message: spec.Label})
		default:
			def, _ := current.(string)
			value, err = s.driver.Input(ctx, InputConfig{
				Message: spec.Label,
				Default: def,
				Help:    placeholderHelp(spec),
			})
		}
		if err != nil {
			return err
		}

		if err := s.controller.SetValue(spec.Name, value); err != nil {
			return err
		}
		if err := s.controller.MarkTouched(spec.Name); err != nil {
			return err
		}

		msg := s.controller.Snapshot().VisibleError(spec.Name)
		if msg == "" {
			return nil
		}
		s.logger.Debug("tui: field rejected", slog.String("field", string(spec.Name)))
		if err := s.driver.Info(ctx, s.errorLine(msg)); err != nil {
			return err
		}
	}
}

func (s *Session) reportErrors(ctx context.Context, snap signup.Snapshot) error {
	visible := snap.VisibleErrors()
	for _, field := range signup.Fields() {
		msg := visible.Get(field)
		if msg == "" {
			continue
		}
		if err := s.driver.Info(ctx, s.errorLine(field.Label()+": "+msg)); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) infoLine(msg string) string {
	return strings.TrimSpace(s.theme.InfoPrefix + " " + msg)
}

func (s *Session) errorLine(msg string) string {
	return strings.TrimSpace(s.theme.ErrorPrefix + " " + msg)
}

func (s *Session) summary(values signup.Values) (string, error) {
	redacted := values.Redacted()
	switch s.format {
	case OutputFormatPrettyText:
		return prettyPrint(redacted), nil
	default:
		data, err := json.MarshalIndent(redacted, "", "  ")
		if err != nil {
			return "", fmt.Errorf("tui: encode summary: %w", err)
		}
		return string(data), nil
	}
}

func placeholderHelp(spec signup.FieldSpec) string {
	if spec.Placeholder == "" {
		return ""
	}
	return "e.g. " + spec.Placeholder
}

func prettyPrint(values map[string]any) string {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, key := range keys {
		fmt.Fprintf(&b, "%s: %v\n", key, values[key])
	}
	return strings.TrimRight(b.String(), "\n")
}
