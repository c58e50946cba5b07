package render

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/indent"
	"github.com/muesli/reflow/wordwrap"

	"github.com/gosuda/portal-chat/internal/chat"
)

// Styles formats entries as terminal lines.
type Styles struct {
	Mine     lipgloss.Style
	Other    lipgloss.Style
	Author   lipgloss.Style
	Avatar   lipgloss.Style
	System   lipgloss.Style
	Identity lipgloss.Style
}

// NewStyles builds styles whose color profile follows r.
func NewStyles(r *lipgloss.Renderer) Styles {
	return Styles{
		Mine:     r.NewStyle().Foreground(lipgloss.Color("111")),
		Other:    r.NewStyle().Foreground(lipgloss.Color("120")),
		Author:   r.NewStyle().Bold(true),
		Avatar:   r.NewStyle().Foreground(lipgloss.Color("243")),
		System:   r.NewStyle().Foreground(lipgloss.Color("243")).Italic(true),
		Identity: r.NewStyle().Foreground(lipgloss.Color("117")).Bold(true),
	}
}

// AvatarMarker stands in for the avatar image on a terminal.
func AvatarMarker(ref string) string {
	if ref == "" {
		return "[ ]"
	}
	return "[avatar]"
}

// Format renders one entry. Message text is wrapped to width when width > 0
// and is never interpreted as markup.
func (s Styles) Format(e Entry, width int) string {
	m := e.Message
	if m.Kind != chat.KindUser {
		return s.System.Render("* " + m.Content)
	}
	body := s.Other
	prefix := "  "
	if e.Mine {
		body = s.Mine
		prefix = "> "
	}
	head := prefix + s.Avatar.Render(AvatarMarker(m.AvatarRef)) + " " + s.Author.Render(m.Author)
	text := m.Content
	if width > 4 {
		text = wordwrap.String(text, width-4)
	}
	return head + "\n" + body.Render(indent.String(text, 4))
}

// Text writes each rendered entry to w as it arrives; a terminal scrolls
// on its own, so appending keeps the newest entry in view.
type Text struct {
	mu     sync.Mutex
	w      io.Writer
	styles Styles
	width  int
}

// NewText returns a Text renderer wrapping message bodies at width columns (0 disables wrapping).
func NewText(w io.Writer, width int) *Text {
	return &Text{w: w, styles: NewStyles(lipgloss.NewRenderer(w)), width: width}
}

func (t *Text) User(m chat.Message, mine bool) {
	t.write(t.styles.Format(Entry{Message: m, Mine: mine}, t.width))
}

func (t *Text) System(m chat.Message) {
	t.write(t.styles.Format(Entry{Message: m}, t.width))
}

func (t *Text) Identity(name string) {
	t.write(t.styles.Identity.Render(chat.IdentityLabel(name)))
}

func (t *Text) write(s string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, _ = fmt.Fprintln(t.w, strings.TrimRight(s, "\n"))
}
