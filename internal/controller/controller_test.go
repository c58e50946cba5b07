package controller

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gosuda/portal-chat/internal/chat"
	"github.com/gosuda/portal-chat/internal/history"
	"github.com/gosuda/portal-chat/internal/identity"
	"github.com/gosuda/portal-chat/internal/render"
	"github.com/gosuda/portal-chat/internal/transport"
)

type emitted struct {
	event   string
	payload any
}

type fakeTransport struct {
	handlers map[string]transport.Handler
	emits    []emitted
	err      error
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{handlers: map[string]transport.Handler{}}
}

func (f *fakeTransport) Subscribe(event string, h transport.Handler) { f.handlers[event] = h }

func (f *fakeTransport) Emit(event string, payload any) error {
	if f.err != nil {
		return f.err
	}
	f.emits = append(f.emits, emitted{event, payload})
	return nil
}

// fire delivers an inbound event the way the websocket client would.
func (f *fakeTransport) fire(t *testing.T, event string, payload any) {
	t.Helper()
	h, ok := f.handlers[event]
	require.True(t, ok, "no handler for %s", event)
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	h(data)
}

type field struct{ value string }

func (f *field) Value() string     { return f.value }
func (f *field) SetValue(s string) { f.value = s }

type failingCache struct{}

func (failingCache) LoadAll() ([]chat.Message, error) { return nil, errors.New("disk gone") }
func (failingCache) Append(chat.Message) error        { return errors.New("disk gone") }

type fixture struct {
	transport *fakeTransport
	identity  *identity.State
	cache     *history.Memory
	view      *render.Log
	ctrl      *Controller
}

func newFixture(cached ...chat.Message) fixture {
	f := fixture{
		transport: newFakeTransport(),
		identity:  identity.New(),
		cache:     history.NewMemory(cached...),
		view:      render.NewLog(),
	}
	f.ctrl = New(f.transport, f.identity, f.cache, f.view)
	f.ctrl.Start()
	return f
}

func (f fixture) cached(t *testing.T) []chat.Message {
	t.Helper()
	msgs, err := f.cache.LoadAll()
	require.NoError(t, err)
	return msgs
}

func Test_Replay_Renders_Cache_In_Order(t *testing.T) {
	req := require.New(t)
	m1 := chat.UserMessage("first", "alice", "/a.png")
	m2 := chat.UserMessage("second", "bob", "/b.png")
	f := newFixture(m1, m2)

	req.Equal([]render.Entry{{Message: m1}, {Message: m2}}, f.view.Entries())

	f.ctrl.Start()
	req.Len(f.view.Entries(), 2)
}

func Test_Replay_Treats_Own_Messages_As_Foreign(t *testing.T) {
	req := require.New(t)
	f := fixture{
		transport: newFakeTransport(),
		identity:  identity.New(),
		cache:     history.NewMemory(chat.UserMessage("mine", "alice", "")),
		view:      render.NewLog(),
	}
	f.identity.Set("alice")
	New(f.transport, f.identity, f.cache, f.view).Start()

	req.False(f.view.Entries()[0].Mine)
}

func Test_Replay_Survives_Cache_Failure(t *testing.T) {
	req := require.New(t)
	tr := newFakeTransport()
	view := render.NewLog()
	c := New(tr, identity.New(), failingCache{}, view)
	c.Start()
	req.Empty(view.Entries())

	tr.fire(t, transport.EventNewMessage, transport.NewMessage{Message: "hi", Username: "bob"})
	req.Len(view.Entries(), 1)
}

func Test_Set_Username(t *testing.T) {
	req := require.New(t)
	f := newFixture()

	f.transport.fire(t, transport.EventSetUsername, transport.Username{Username: "alice"})
	req.Equal("alice", f.ctrl.Identity())
	req.Equal("alice", f.view.IdentityName())
	req.Empty(f.view.Entries())
}

func Test_New_Messages_Append_In_Arrival_Order(t *testing.T) {
	req := require.New(t)
	f := newFixture()

	var want []chat.Message
	for _, text := range []string{"a", "b", "c"} {
		f.transport.fire(t, transport.EventNewMessage, transport.NewMessage{Message: text, Username: "bob", Avatar: "/b.png"})
		want = append(want, chat.UserMessage(text, "bob", "/b.png"))
	}
	req.Equal(want, f.cached(t))
}

func Test_System_Notices_Are_Not_Cached(t *testing.T) {
	req := require.New(t)
	f := newFixture()
	f.transport.fire(t, transport.EventSetUsername, transport.Username{Username: "alice"})

	f.transport.fire(t, transport.EventUserJoined, transport.Username{Username: "bob"})
	f.transport.fire(t, transport.EventUserLeft, transport.Username{Username: "bob"})
	f.transport.fire(t, transport.EventUsernameUpdated, transport.UsernameUpdated{OldUsername: "carol", NewUsername: "c"})

	req.Empty(f.cached(t))
	req.Equal([]render.Entry{
		{Message: chat.Notice("bob joined the chat")},
		{Message: chat.Notice("bob left the chat")},
		{Message: chat.Notice("carol changed their name to c")},
	}, f.view.Entries())
}

func Test_Rename_Self_Reconciliation(t *testing.T) {
	req := require.New(t)
	f := newFixture()
	f.transport.fire(t, transport.EventSetUsername, transport.Username{Username: "A"})

	f.transport.fire(t, transport.EventUsernameUpdated, transport.UsernameUpdated{OldUsername: "C", NewUsername: "B"})
	req.Equal("A", f.ctrl.Identity())
	req.Equal("A", f.view.IdentityName())

	f.transport.fire(t, transport.EventUsernameUpdated, transport.UsernameUpdated{OldUsername: "A", NewUsername: "B"})
	req.Equal("B", f.ctrl.Identity())
	req.Equal("B", f.view.IdentityName())
}

func Test_Mine_Classification(t *testing.T) {
	req := require.New(t)
	f := newFixture()
	f.transport.fire(t, transport.EventSetUsername, transport.Username{Username: "A"})

	f.transport.fire(t, transport.EventNewMessage, transport.NewMessage{Message: "x", Username: "A"})
	f.transport.fire(t, transport.EventNewMessage, transport.NewMessage{Message: "y", Username: "B"})

	entries := f.view.Entries()
	req.True(entries[0].Mine)
	req.False(entries[1].Mine)
}

func Test_Malformed_Payload_Changes_Nothing(t *testing.T) {
	req := require.New(t)
	f := newFixture()
	f.transport.fire(t, transport.EventSetUsername, transport.Username{Username: "alice"})

	f.transport.handlers[transport.EventNewMessage](json.RawMessage(`{"message":1}`))
	f.transport.handlers[transport.EventSetUsername](json.RawMessage(`{}`))

	req.Empty(f.cached(t))
	req.Empty(f.view.Entries())
	req.Equal("alice", f.ctrl.Identity())
}

func Test_Send_Input_Hygiene(t *testing.T) {
	req := require.New(t)
	f := newFixture()

	for _, v := range []string{"", "   ", "\t\n"} {
		in := &field{value: v}
		req.False(f.ctrl.Send(in))
	}
	req.Empty(f.transport.emits)

	in := &field{value: "  hello  "}
	req.True(f.ctrl.Send(in))
	req.Equal("", in.value)
	req.Equal([]emitted{{transport.EventSendMessage, transport.SendMessage{Message: "hello"}}}, f.transport.emits)
}

func Test_Send_Keeps_Input_When_Emit_Fails(t *testing.T) {
	req := require.New(t)
	f := newFixture()
	f.transport.err = transport.ErrClosed

	in := &field{value: "hello"}
	req.False(f.ctrl.Send(in))
	req.Equal("hello", in.value)
}

func Test_Rename_Input_Hygiene(t *testing.T) {
	req := require.New(t)
	f := newFixture()
	f.transport.fire(t, transport.EventSetUsername, transport.Username{Username: "alice"})

	for _, v := range []string{"", "  ", " alice "} {
		in := &field{value: v}
		req.False(f.ctrl.Rename(in))
		req.Equal(v, in.value)
	}
	req.Empty(f.transport.emits)

	in := &field{value: " al "}
	req.True(f.ctrl.Rename(in))
	req.Equal("", in.value)
	req.Equal([]emitted{{transport.EventUpdateUsername, transport.Username{Username: "al"}}}, f.transport.emits)
	// Identity waits for the coordinator's username_updated.
	req.Equal("alice", f.ctrl.Identity())
}

func Test_End_To_End_Scenario(t *testing.T) {
	req := require.New(t)
	f := newFixture()
	req.Equal("", f.ctrl.Identity())

	f.transport.fire(t, transport.EventSetUsername, transport.Username{Username: "alice"})
	req.Equal("alice", f.ctrl.Identity())

	f.transport.fire(t, transport.EventNewMessage, transport.NewMessage{Username: "bob", Message: "hi", Avatar: "/b.png"})
	bobHi := chat.Message{Author: "bob", Content: "hi", Kind: chat.KindUser, AvatarRef: "/b.png"}
	req.Equal([]chat.Message{bobHi}, f.cached(t))
	req.Equal(render.Entry{Message: bobHi, Mine: false}, f.view.Entries()[0])

	f.transport.fire(t, transport.EventUsernameUpdated, transport.UsernameUpdated{OldUsername: "alice", NewUsername: "al"})
	req.Equal("al", f.ctrl.Identity())
	entries := f.view.Entries()
	req.Len(entries, 2)
	req.Equal(chat.KindSystem, entries[1].Message.Kind)
	req.Len(f.cached(t), 1)
}
