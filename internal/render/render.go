// Package render maps chat messages onto append-only display surfaces.
package render

import "github.com/gosuda/portal-chat/internal/chat"

// Renderer is an append-only display surface. Implementations never
// revisit earlier entries and keep the newest entry in view.
type Renderer interface {
	// User appends a user message; mine marks it as sent by the local identity.
	User(m chat.Message, mine bool)
	// System appends a plain notice without author or avatar.
	System(m chat.Message)
	// Identity updates the label showing the local user's name.
	Identity(name string)
}

// Render dispatches m to the method matching its kind.
func Render(r Renderer, m chat.Message, mine bool) {
	if m.Kind == chat.KindUser {
		r.User(m, mine)
		return
	}
	r.System(m)
}

// Entry is one rendered message as a surface remembers it.
type Entry struct {
	Message chat.Message `json:"message"`
	Mine    bool         `json:"mine"`
}

// Multi fans every call out to each renderer in order.
type Multi []Renderer

func (m Multi) User(msg chat.Message, mine bool) {
	for _, r := range m {
		r.User(msg, mine)
	}
}

func (m Multi) System(msg chat.Message) {
	for _, r := range m {
		r.System(msg)
	}
}

func (m Multi) Identity(name string) {
	for _, r := range m {
		r.Identity(name)
	}
}
