package identity

import "sync"

// State holds the local user's current display name.
// The zero value is ready to use and holds no identity.
type State struct {
	mu   sync.RWMutex
	name string
}

// New returns a State with no identity assigned.
func New() *State {
	return &State{}
}

// Set overwrites the identity unconditionally.
func (s *State) Set(name string) {
	s.mu.Lock()
	s.name = name
	s.mu.Unlock()
}

// Reconcile applies a rename only when oldName is exactly the current identity.
// It reports whether the identity changed.
func (s *State) Reconcile(oldName, newName string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if oldName != s.name {
		return false
	}
	s.name = newName
	return true
}

// Current returns the identity, or "" before the first assignment.
func (s *State) Current() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name
}

// IsMine reports whether author is the current identity.
// Nothing is mine while no identity is assigned.
func (s *State) IsMine(author string) bool {
	cur := s.Current()
	return cur != "" && author == cur
}
