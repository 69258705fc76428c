package conversation

import (
	"sync"
	"time"
)

// Key identifies a session: one user in one chat.
type Key struct {
	ChatID int64
	UserID int64
}

type session struct {
	state     State
	updatedAt time.Time
}

// Sessions holds the in-memory dialog state of every user.
type Sessions struct {
	mu       sync.Mutex
	sessions map[Key]session
	now      func() time.Time
}

// NewSessions creates an empty session store.
func NewSessions() *Sessions {
	return &Sessions{sessions: make(map[Key]session), now: time.Now}
}

// Get returns the state of k, if a session exists.
func (s *Sessions) Get(k Key) (State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[k]
	if !ok {
		return nil, false
	}
	return sess.state, true
}

// Swap stores next for k and returns the previous state. A nil next ends
// the session.
func (s *Sessions) Swap(k Key, next State) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.sessions[k].state
	if next == nil {
		delete(s.sessions, k)
	} else {
		s.sessions[k] = session{state: next, updatedAt: s.now()}
	}
	return prev
}

// RemoveIdle ends sessions untouched for longer than maxIdle and returns
// their states.
func (s *Sessions) RemoveIdle(maxIdle time.Duration) []State {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-maxIdle)
	var removed []State
	for k, sess := range s.sessions {
		if sess.updatedAt.Before(cutoff) {
			removed = append(removed, sess.state)
			delete(s.sessions, k)
		}
	}
	return removed
}

// RemoveAll ends every session and returns their states.
func (s *Sessions) RemoveAll() []State {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := make([]State, 0, len(s.sessions))
	for _, sess := range s.sessions {
		removed = append(removed, sess.state)
	}
	s.sessions = make(map[Key]session)
	return removed
}

// Len returns the number of active sessions.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
