// Package session tracks which news sessions are active and when each one
// was first activated. Sessions never deactivate; they only fade through
// drift decay, and the registry is cleared wholesale on engine reset.
package session

import (
	"sync"
	"time"
)

// Registry holds the set of active sessions and their activation instants.
// Activation is idempotent: the first call records the start time, later
// calls are no-ops.
type Registry struct {
	mu         sync.RWMutex
	startTimes map[string]time.Time
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{startTimes: make(map[string]time.Time)}
}

// Activate marks the session active as of now. Returns true if the session
// was newly activated, false if it was already active.
func (r *Registry) Activate(sessionID string, now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.startTimes[sessionID]; ok {
		return false
	}
	r.startTimes[sessionID] = now
	return true
}

// IsActive reports whether the session has been activated.
func (r *Registry) IsActive(sessionID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.startTimes[sessionID]
	return ok
}

// StartTime returns the activation instant of the session.
func (r *Registry) StartTime(sessionID string) (time.Time, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.startTimes[sessionID]
	return t, ok
}

// Active returns a snapshot of all active sessions and their start times.
func (r *Registry) Active() map[string]time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]time.Time, len(r.startTimes))
	for id, t := range r.startTimes {
		out[id] = t
	}
	return out
}

// Len returns the number of active sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.startTimes)
}

// Clear removes every active session.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.startTimes = make(map[string]time.Time)
}
