package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-signup/pkg/signup"
)

type stubDriver struct {
	inputs       []string
	passwords    []string
	confirm      []bool
	infoMessages []string
	inputErr     error
	inputPos     int
	passPos      int
	confirmPos   int
}

func (s *stubDriver) Input(_ context.Context, _ InputConfig) (string, error) {
	if s.inputErr != nil {
		return "", s.inputErr
	}
	if s.inputPos >= len(s.inputs) {
		return "", errors.New("no input scripted")
	}
	val := s.inputs[s.inputPos]
	s.inputPos++
	return val, nil
}

func (s *stubDriver) Password(_ context.Context, _ InputConfig) (string, error) {
	if s.passPos >= len(s.passwords) {
		return "", errors.New("no password scripted")
	}
	val := s.passwords[s.passPos]
	s.passPos++
	return val, nil
}

func (s *stubDriver) Confirm(_ context.Context, _ ConfirmConfig) (bool, error) {
	if s.confirmPos >= len(s.confirm) {
		return false, errors.New("no confirm scripted")
	}
	val := s.confirm[s.confirmPos]
	s.confirmPos++
	return val, nil
}

func (s *stubDriver) Info(_ context.Context, msg string) error {
	s.infoMessages = append(s.infoMessages, msg)
	return nil
}

func (s *stubDriver) saw(fragment string) bool {
	for _, msg := range s.infoMessages {
		if strings.Contains(msg, fragment) {
			return true
		}
	}
	return false
}

func newTestSession(t *testing.T, sub signup.Submitter, driver *stubDriver, opts ...Option) (*Session, *signup.Controller) {
	t.Helper()
	ctrl := signup.New(sub)
	s, err := NewSession(ctrl, append([]Option{WithPromptDriver(driver)}, opts...)...)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	return s, ctrl
}

func TestSession_Success(t *testing.T) {
	driver := &stubDriver{
		inputs:    []string{"john@x.com"},
		passwords: []string{"ab", "ab"},
		confirm:   []bool{true},
	}
	var requests []signup.SignUpRequest
	sub := signup.SubmitterFunc(func(_ context.Context, req signup.SignUpRequest) error {
		requests = append(requests, req)
		return nil
	})
	s, ctrl := newTestSession(t, sub, driver)

	res, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Outcome != signup.OutcomeSucceeded {
		t.Fatalf("expected success, got %s", res.Outcome)
	}
	if diff := cmp.Diff([]signup.SignUpRequest{{Email: "john@x.com"}}, requests); diff != "" {
		t.Fatalf("requests mismatch (-want +got):\n%s", diff)
	}
	if !driver.saw(DefaultTheme().BusyMessage) {
		t.Fatalf("expected busy message, got %v", driver.infoMessages)
	}
	if !driver.saw(`"email": "john@x.com"`) || !driver.saw(`"password": "**"`) {
		t.Fatalf("expected redacted JSON summary, got %v", driver.infoMessages)
	}
	if ctrl.Snapshot().IsSubmitting {
		t.Fatalf("controller should be idle")
	}
}

func TestSession_ThemePrefixesMessages(t *testing.T) {
	driver := &stubDriver{
		inputs:    []string{"john@x.com"},
		passwords: []string{"ab", "a", "ab"},
		confirm:   []bool{true},
	}
	s, _ := newTestSession(t, signup.NewSimulatedSubmitter(0), driver,
		WithTheme(Theme{InfoPrefix: ">>", ErrorPrefix: "!!", BusyMessage: "Hold on"}),
	)

	if _, err := s.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !driver.saw(">> Hold on") {
		t.Fatalf("expected prefixed busy message, got %v", driver.infoMessages)
	}
	if !driver.saw("!! Passwords must match") {
		t.Fatalf("expected prefixed error line, got %v", driver.infoMessages)
	}
}

func TestSession_RepromptsInvalidFields(t *testing.T) {
	driver := &stubDriver{
		inputs:    []string{"not-an-email", "john@x.com"},
		passwords: []string{"a", "ab", "abc", "ab"},
		confirm:   []bool{false, true},
	}
	s, _ := newTestSession(t, signup.NewSimulatedSubmitter(0), driver, WithOutputFormat(OutputFormatPrettyText))

	res, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Outcome != signup.OutcomeSucceeded {
		t.Fatalf("expected success, got %s", res.Outcome)
	}
	for _, want := range []string{
		"Email must be a valid email",
		"Seems a bit short",
		"Passwords must match",
		"Must agree to terms to continue",
		"email: john@x.com",
	} {
		if !driver.saw(want) {
			t.Fatalf("expected %q in %v", want, driver.infoMessages)
		}
	}
	if driver.inputPos != 2 || driver.passPos != 4 || driver.confirmPos != 2 {
		t.Fatalf("prompts not consumed as expected: %+v", driver)
	}
}

func TestSession_FailureDeclined(t *testing.T) {
	driver := &stubDriver{
		inputs:    []string{signup.DefaultRejectedEmail},
		passwords: []string{"ab", "ab"},
		confirm:   []bool{true, false},
	}
	s, ctrl := newTestSession(t, signup.NewSimulatedSubmitter(0), driver)

	res, err := s.Run(context.Background())
	if !errors.Is(err, ErrDeclined) {
		t.Fatalf("expected declined, got %v", err)
	}
	if res.Outcome != signup.OutcomeFailed {
		t.Fatalf("expected failed, got %s", res.Outcome)
	}
	if !driver.saw(signup.DefaultRejectedReason) {
		t.Fatalf("expected general error message, got %v", driver.infoMessages)
	}
	if got := ctrl.Snapshot().GeneralError; got != signup.DefaultRejectedReason {
		t.Fatalf("general error: got %q", got)
	}
}

func TestSession_FailureThenRetry(t *testing.T) {
	driver := &stubDriver{
		inputs:    []string{signup.DefaultRejectedEmail, "john@x.com"},
		passwords: []string{"ab", "ab", "ab", "ab"},
		confirm:   []bool{true, true, true},
	}
	s, ctrl := newTestSession(t, signup.NewSimulatedSubmitter(0), driver)

	res, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Outcome != signup.OutcomeSucceeded {
		t.Fatalf("expected success, got %s", res.Outcome)
	}
	snap := ctrl.Snapshot()
	if snap.GeneralError != "" || snap.Attempts != 2 {
		t.Fatalf("unexpected state after retry: %+v", snap)
	}
}

func TestSession_Aborted(t *testing.T) {
	driver := &stubDriver{inputErr: ErrAborted}
	s, _ := newTestSession(t, signup.NewSimulatedSubmitter(0), driver)

	if _, err := s.Run(context.Background()); !errors.Is(err, ErrAborted) {
		t.Fatalf("expected aborted, got %v", err)
	}
}

func TestNewSession_RequiresController(t *testing.T) {
	if _, err := NewSession(nil); err == nil {
		t.Fatalf("expected error for nil controller")
	}
}
