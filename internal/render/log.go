package render

import (
	"sync"

	"github.com/gosuda/portal-chat/internal/chat"
)

// Log records rendered entries in order. It backs the terminal UI and the
// web transcript, and doubles as a headless surface in tests.
type Log struct {
	mu       sync.RWMutex
	entries  []Entry
	identity string
	changed  chan struct{}
}

func NewLog() *Log {
	return &Log{changed: make(chan struct{}, 1)}
}

func (l *Log) User(m chat.Message, mine bool) {
	l.append(Entry{Message: m, Mine: mine})
}

func (l *Log) System(m chat.Message) {
	l.append(Entry{Message: m})
}

func (l *Log) Identity(name string) {
	l.mu.Lock()
	l.identity = name
	l.mu.Unlock()
	l.notify()
}

func (l *Log) append(e Entry) {
	l.mu.Lock()
	l.entries = append(l.entries, e)
	l.mu.Unlock()
	l.notify()
}

// notify never blocks; one pending signal covers any number of changes.
func (l *Log) notify() {
	select {
	case l.changed <- struct{}{}:
	default:
	}
}

// Changed fires after one or more entries or identity updates.
func (l *Log) Changed() <-chan struct{} {
	return l.changed
}

// Entries returns a snapshot of everything rendered so far.
func (l *Log) Entries() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]Entry(nil), l.entries...)
}

// Since returns the entries rendered after the first n.
func (l *Log) Since(n int) []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if n >= len(l.entries) {
		return nil
	}
	return append([]Entry(nil), l.entries[n:]...)
}

// IdentityName returns the last identity label value.
func (l *Log) IdentityName() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.identity
}
