// Package state tracks per-user conversation state. The state is a UX nuance
// only: it distinguishes "first message after the greeting" from any later
// message, and both paths converge on the same ticket intake. It lives in
// memory for the process lifetime; loss on restart is harmless.
package state

import "sync"

// State is the conversation phase of a single user.
type State int

const (
	// None is the default for users the tracker has never seen.
	None State = iota
	// AwaitingQuestion marks a user who was just greeted and whose next
	// message is their first question.
	AwaitingQuestion
)

// Tracker is a thread-safe in-memory map of user keys to conversation state.
// Callers must not hold external locks across tracker calls; the tracker
// itself is never held across store or transport I/O.
type Tracker struct {
	mu    sync.Mutex
	users map[string]State
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{users: make(map[string]State)}
}

// Set records the state for a user key.
func (t *Tracker) Set(key string, s State) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.users[key] = s
}

// Get returns the state for a user key, None if unknown.
func (t *Tracker) Get(key string) State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.users[key]
}

// Clear resets a user key back to None.
func (t *Tracker) Clear(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.users, key)
}
