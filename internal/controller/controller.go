// Package controller keeps the local view of a chat in step with the
// coordinator: it replays cached history on start, applies inbound events
// to identity, cache and view, and turns local actions into outbound events.
package controller

import (
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/gosuda/portal-chat/internal/chat"
	"github.com/gosuda/portal-chat/internal/identity"
	"github.com/gosuda/portal-chat/internal/render"
	"github.com/gosuda/portal-chat/internal/transport"
)

// Transport is the named-event channel to the coordinator.
type Transport interface {
	transport.Subscriber
	Emit(event string, payload any) error
}

// Cache is the durable message history.
type Cache interface {
	LoadAll() ([]chat.Message, error)
	Append(m chat.Message) error
}

// Input is a local text field. bubbles' *textinput.Model satisfies it.
type Input interface {
	Value() string
	SetValue(s string)
}

// Controller serializes every inbound event and local action behind one
// lock, so exactly one handler runs at a time.
type Controller struct {
	mu        sync.Mutex
	transport Transport
	identity  *identity.State
	cache     Cache
	view      render.Renderer
	started   bool
}

func New(t Transport, id *identity.State, cache Cache, view render.Renderer) *Controller {
	return &Controller{transport: t, identity: id, cache: cache, view: view}
}

// Start replays the cached history and then subscribes to inbound events.
// Calls after the first are no-ops.
func (c *Controller) Start() {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.replay()
	c.mu.Unlock()

	transport.On(c.transport, transport.EventSetUsername, func(p transport.Username) { c.HandleSetUsername(p) })
	transport.On(c.transport, transport.EventUserJoined, func(p transport.Username) { c.HandleUserJoined(p) })
	transport.On(c.transport, transport.EventUserLeft, func(p transport.Username) { c.HandleUserLeft(p) })
	transport.On(c.transport, transport.EventNewMessage, func(p transport.NewMessage) { c.HandleNewMessage(p) })
	transport.On(c.transport, transport.EventUsernameUpdated, func(p transport.UsernameUpdated) { c.HandleUsernameUpdated(p) })
}

// replay renders cached messages as not mine: identity is only assigned
// once the coordinator sends set_username, after replay has finished.
func (c *Controller) replay() {
	msgs, err := c.cache.LoadAll()
	if err != nil {
		log.Warn().Err(err).Msg("[chat] load history failed; starting empty")
		return
	}
	for _, m := range msgs {
		render.Render(c.view, m, false)
	}
	log.Debug().Int("count", len(msgs)).Msg("[chat] replayed history")
}

func (c *Controller) HandleSetUsername(p transport.Username) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.identity.Set(p.Username)
	c.view.Identity(p.Username)
}

func (c *Controller) HandleUserJoined(p transport.Username) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.view.System(chat.JoinedNotice(p.Username))
}

func (c *Controller) HandleUserLeft(p transport.Username) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.view.System(chat.LeftNotice(p.Username))
}

// HandleNewMessage persists the message before rendering it. A failed write
// is logged and the message still renders.
func (c *Controller) HandleNewMessage(p transport.NewMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m := chat.UserMessage(p.Message, p.Username, p.Avatar)
	if err := c.cache.Append(m); err != nil {
		log.Warn().Err(err).Str("author", m.Author).Msg("[chat] persist message failed")
	}
	c.view.User(m, c.identity.IsMine(m.Author))
}

func (c *Controller) HandleUsernameUpdated(p transport.UsernameUpdated) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.identity.Reconcile(p.OldUsername, p.NewUsername) {
		c.view.Identity(p.NewUsername)
	}
	c.view.System(chat.RenamedNotice(p.OldUsername, p.NewUsername))
}

// Send emits the trimmed input as a chat message and clears the field.
// Blank input is ignored. It reports whether an event was emitted.
func (c *Controller) Send(in Input) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	text := strings.TrimSpace(in.Value())
	if text == "" {
		return false
	}
	if err := c.transport.Emit(transport.EventSendMessage, transport.SendMessage{Message: text}); err != nil {
		log.Warn().Err(err).Msg("[chat] send message failed")
		return false
	}
	in.SetValue("")
	return true
}

// Rename asks the coordinator for a new name and clears the field. Blank
// input, or the current name, is ignored. Local identity only changes when
// the coordinator echoes username_updated back.
func (c *Controller) Rename(in Input) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	name := strings.TrimSpace(in.Value())
	if name == "" || name == c.identity.Current() {
		return false
	}
	if err := c.transport.Emit(transport.EventUpdateUsername, transport.Username{Username: name}); err != nil {
		log.Warn().Err(err).Msg("[chat] rename failed")
		return false
	}
	in.SetValue("")
	return true
}

// Identity returns the current local display name.
func (c *Controller) Identity() string {
	return c.identity.Current()
}
