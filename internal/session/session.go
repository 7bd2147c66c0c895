// Package session tracks recent query turns per client session so
// callers can inspect and clear their own interaction history. Both
// dimensions are bounded: a session past its turn limit drops its
// oldest turns, and a tracker past its session limit drops the
// session that has been idle the longest.
package session

import (
	"sync"
	"time"
)

// DefaultMaxTurns is the per-session history bound.
const DefaultMaxTurns = 20

// DefaultMaxSessions bounds how many sessions are tracked at once.
const DefaultMaxSessions = 128

// Turn is one recorded query and the number of hits it returned.
type Turn struct {
	Query string    `json:"query"`
	Hits  int       `json:"hits"`
	At    time.Time `json:"at"`
}

// Status summarises one session's history.
type Status struct {
	SessionID string    `json:"session_id"`
	Turns     int       `json:"turns"`
	MaxTurns  int       `json:"max_turns"`
	FirstAt   time.Time `json:"first_at,omitempty"`
	LastAt    time.Time `json:"last_at,omitempty"`
}

// Tracker keeps a bounded turn history per session ID. Safe for
// concurrent use.
type Tracker struct {
	mu          sync.Mutex
	maxTurns    int
	maxSessions int
	sessions    map[string][]Turn
	lastSeen    map[string]time.Time
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithMaxTurns sets the per-session bound. Non-positive values are
// ignored.
func WithMaxTurns(n int) Option {
	return func(t *Tracker) {
		if n > 0 {
			t.maxTurns = n
		}
	}
}

// WithMaxSessions sets the session count bound. Non-positive values
// are ignored.
func WithMaxSessions(n int) Option {
	return func(t *Tracker) {
		if n > 0 {
			t.maxSessions = n
		}
	}
}

// NewTracker creates an empty session tracker.
func NewTracker(opts ...Option) *Tracker {
	t := &Tracker{
		maxTurns:    DefaultMaxTurns,
		maxSessions: DefaultMaxSessions,
		sessions:    make(map[string][]Turn),
		lastSeen:    make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Append records a turn for the session, evicting the oldest turns
// once the turn bound is reached. A turn for a new session past the
// session bound first evicts the longest-idle session.
func (t *Tracker) Append(sessionID string, turn Turn) {
	if sessionID == "" {
		return
	}
	if turn.At.IsZero() {
		turn.At = time.Now().UTC()
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, known := t.sessions[sessionID]; !known && len(t.sessions) >= t.maxSessions {
		t.evictIdlest()
	}

	turns := append(t.sessions[sessionID], turn)
	if len(turns) > t.maxTurns {
		turns = turns[len(turns)-t.maxTurns:]
	}
	t.sessions[sessionID] = turns
	t.lastSeen[sessionID] = turn.At
}

// evictIdlest drops the session whose last turn is oldest. Callers
// hold the lock.
func (t *Tracker) evictIdlest() {
	var victim string
	var oldest time.Time
	for id, seen := range t.lastSeen {
		if victim == "" || seen.Before(oldest) {
			victim, oldest = id, seen
		}
	}
	if victim != "" {
		delete(t.sessions, victim)
		delete(t.lastSeen, victim)
	}
}

// History returns a copy of the session's turns, oldest first.
func (t *Tracker) History(sessionID string) []Turn {
	t.mu.Lock()
	defer t.mu.Unlock()

	turns := t.sessions[sessionID]
	out := make([]Turn, len(turns))
	copy(out, turns)
	return out
}

// Clear removes the session's history and returns how many turns were
// dropped.
func (t *Tracker) Clear(sessionID string) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	removed := len(t.sessions[sessionID])
	delete(t.sessions, sessionID)
	delete(t.lastSeen, sessionID)
	return removed
}

// Status reports the session's current history bounds.
func (t *Tracker) Status(sessionID string) Status {
	t.mu.Lock()
	defer t.mu.Unlock()

	turns := t.sessions[sessionID]
	status := Status{
		SessionID: sessionID,
		Turns:     len(turns),
		MaxTurns:  t.maxTurns,
	}
	if len(turns) > 0 {
		status.FirstAt = turns[0].At
		status.LastAt = turns[len(turns)-1].At
	}
	return status
}
