// Package session tracks authenticated principals. Sessions are keyed
// by token id rather than held in a single process-wide slot, so the
// layer serves concurrent callers; validity is a fixed window from the
// moment of authentication, not refreshed by activity.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultTTL is the fixed session validity window.
const DefaultTTL = 7200 * time.Second

// Principal is the snapshot of the authenticated user a session
// carries. It never includes the password hash.
type Principal struct {
	ID       uuid.UUID `json:"_id"`
	Username string    `json:"username"`
	Role     string    `json:"role"`
	FullName string    `json:"fullName"`
}

type Session struct {
	ID              string
	Principal       Principal
	AuthenticatedAt time.Time
}

// Store holds live sessions. Expired sessions are evicted when a
// lookup observes the expiry; there is no background sweeper.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
	now      func() time.Time
}

func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// WithClock replaces the time source, for tests.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// Create opens a session for a principal and returns it.
func (s *Store) Create(p Principal) *Session {
	sess := &Session{
		ID:              uuid.NewString(),
		Principal:       p,
		AuthenticatedAt: s.now(),
	}
	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()
	return sess
}

// Get returns the session if it exists and is still inside its
// validity window. An expired session is removed on the spot.
func (s *Store) Get(id string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	if s.now().After(sess.AuthenticatedAt.Add(s.ttl)) {
		delete(s.sessions, id)
		return nil, false
	}
	return sess, true
}

// Delete closes a session. Closing an absent session is fine; logout
// is idempotent.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

// Len reports live (possibly expired but not yet observed) sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

type ctxKey struct{}

// NewContext attaches a session to a context. The service layer reads
// the principal from context only, never from globals.
func NewContext(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, sess)
}

// FromContext returns the session carried by ctx, if any.
func FromContext(ctx context.Context) (*Session, bool) {
	sess, ok := ctx.Value(ctxKey{}).(*Session)
	return sess, ok
}
