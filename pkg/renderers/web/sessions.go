package web

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-signup/pkg/signup"
)

// ControllerFactory builds the controller for a new browser session.
type ControllerFactory func() *signup.Controller

type session struct {
	controller *signup.Controller
	lastSeen   time.Time
}

// SessionStore keeps one controller per browser session. Sessions idle for
// longer than the TTL are evicted unless a submission is in flight.
type SessionStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	factory ControllerFactory
	items   map[string]*session
}

// NewSessionStore constructs an empty store.
func NewSessionStore(factory ControllerFactory, ttl time.Duration, now func() time.Time) *SessionStore {
	if now == nil {
		now = time.Now
	}
	return &SessionStore{
		ttl:     ttl,
		now:     now,
		factory: factory,
		items:   make(map[string]*session),
	}
}

// Acquire returns the controller for id, creating a new session (and id) when
// id is unknown, malformed or expired. The second return value is the id the
// caller should persist.
func (s *SessionStore) Acquire(id string) (*signup.Controller, string) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := uuid.Parse(id); err == nil {
		if sess, ok := s.items[id]; ok && !s.expired(sess, now) {
			sess.lastSeen = now
			return sess.controller, id
		}
	}

	id = uuid.NewString()
	sess := &session{controller: s.factory(), lastSeen: now}
	s.items[id] = sess
	return sess.controller, id
}

// Len reports the number of live sessions.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Sweep evicts expired sessions and returns how many were removed.
func (s *SessionStore) Sweep() int {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, sess := range s.items {
		if !s.expired(sess, now) {
			continue
		}
		if sess.controller.Snapshot().IsSubmitting {
			continue
		}
		delete(s.items, id)
		removed++
	}
	return removed
}

// Run sweeps every interval until ctx is done.
func (s *SessionStore) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = s.ttl
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.Sweep()
		}
	}
}

func (s *SessionStore) expired(sess *session, now time.Time) bool {
	return s.ttl > 0 && now.Sub(sess.lastSeen) > s.ttl
}
