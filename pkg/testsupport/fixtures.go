package testsupport

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-signup/pkg/signup"
)

// ValidValues returns a value set that passes the default rule table.
func ValidValues() signup.Values {
	return signup.Values{
		Email:           "john@x.com",
		Password:        "ab",
		ConfirmPassword: "ab",
		AgreeToTerms:    true,
	}
}

// GatedSubmitter records sign-up requests and, when gated, blocks each call
// until Release is invoked. Started is closed on the first call.
type GatedSubmitter struct {
	Err error

	mu       sync.Mutex
	requests []signup.SignUpRequest
	gate     chan struct{}
	started  chan struct{}
	once     sync.Once
}

// NewGatedSubmitter returns a submitter whose calls block until Release.
func NewGatedSubmitter() *GatedSubmitter {
	return &GatedSubmitter{
		gate:    make(chan struct{}),
		started: make(chan struct{}),
	}
}

// SignUp implements signup.Submitter.
func (s *GatedSubmitter) SignUp(ctx context.Context, req signup.SignUpRequest) error {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	gate, started := s.gate, s.started
	s.mu.Unlock()

	if started != nil {
		s.once.Do(func() { close(started) })
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return s.Err
}

// Started is closed once the first call has been received.
func (s *GatedSubmitter) Started() <-chan struct{} {
	return s.started
}

// Release unblocks pending and future calls.
func (s *GatedSubmitter) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gate != nil {
		close(s.gate)
		s.gate = nil
	}
}

// Requests returns a copy of the recorded requests.
func (s *GatedSubmitter) Requests() []signup.SignUpRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]signup.SignUpRequest(nil), s.requests...)
}

// MustReadGolden reads a golden file and returns its raw bytes.
func MustReadGolden(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read golden: %v", err)
	}
	return data
}

// WriteGolden writes value as indented JSON when UPDATE_GOLDENS is set.
// Returns true if the golden was written (test should exit early).
func WriteGolden(t *testing.T, path string, value any) bool {
	t.Helper()
	if os.Getenv("UPDATE_GOLDENS") == "" {
		return false
	}
	payload, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		t.Fatalf("marshal golden: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir golden dir: %v", err)
	}
	if err := os.WriteFile(path, append(payload, '\n'), 0o644); err != nil {
		t.Fatalf("write golden: %v", err)
	}
	return true
}

// CompareJSONGolden decodes the golden at path into a value of the same type
// as got and fails the test with a diff when they differ.
func CompareJSONGolden[T any](t *testing.T, path string, got T) {
	t.Helper()
	if WriteGolden(t, path, got) {
		return
	}
	var want T
	if err := json.Unmarshal(MustReadGolden(t, path), &want); err != nil {
		t.Fatalf("unmarshal golden %s: %v", path, err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("golden mismatch %s (-want +got):\n%s", path, diff)
	}
}
