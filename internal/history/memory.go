package history

import (
	"sync"

	"github.com/gosuda/portal-chat/internal/chat"
)

// Memory is a process-local cache used when no data path is configured.
type Memory struct {
	mu   sync.Mutex
	msgs []chat.Message
}

// NewMemory returns a cache preloaded with msgs.
func NewMemory(msgs ...chat.Message) *Memory {
	return &Memory{msgs: append([]chat.Message(nil), msgs...)}
}

func (m *Memory) LoadAll() ([]chat.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]chat.Message{}, m.msgs...), nil
}

func (m *Memory) Append(msg chat.Message) error {
	m.mu.Lock()
	m.msgs = append(m.msgs, msg)
	m.mu.Unlock()
	return nil
}
