package main

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/gosuda/portal-chat/internal/chat"
	"github.com/gosuda/portal-chat/internal/controller"
	"github.com/gosuda/portal-chat/internal/render"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("213"))

	identityStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("117")).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243")).
			Italic(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)
)

const (
	focusMessage = iota
	focusUsername
)

// chromeHeight is the rows taken by header, inputs and help.
const chromeHeight = 6

type transcriptChangedMsg struct{}

type disconnectedMsg struct{ err error }

type chatModel struct {
	ctrl       *controller.Controller
	transcript *render.Log
	styles     render.Styles

	viewport viewport.Model
	message  textinput.Model
	username textinput.Model
	focus    int
	width    int

	// lines holds formatted entries laid out for lineWidth; rendered
	// counts the transcript entries already in lines.
	lines     []string
	lineWidth int
	rendered  int

	disconnected bool
	err          error
}

func newChatModel(ctrl *controller.Controller, transcript *render.Log) chatModel {
	msg := textinput.New()
	msg.Placeholder = "Type a message..."
	msg.Prompt = "> "
	msg.CharLimit = 0 // no limit
	msg.Focus()

	name := textinput.New()
	name.Placeholder = "New username"
	name.Prompt = "@ "
	name.CharLimit = 0

	m := chatModel{
		ctrl:       ctrl,
		transcript: transcript,
		styles:     render.NewStyles(lipgloss.DefaultRenderer()),
		viewport:   viewport.New(80, 20),
		message:    msg,
		username:   name,
		width:      80,
	}
	m.refresh()
	return m
}

// waitForChange turns the next transcript change into a message.
func (m chatModel) waitForChange() tea.Cmd {
	ch := m.transcript.Changed()
	return func() tea.Msg {
		<-ch
		return transcriptChangedMsg{}
	}
}

func (m chatModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.waitForChange())
}

func (m chatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-chromeHeight, 1)
		m.message.Width = msg.Width - 4
		m.username.Width = msg.Width - 4
		m.refresh()
		return m, nil

	case transcriptChangedMsg:
		m.refresh()
		return m, m.waitForChange()

	case disconnectedMsg:
		m.disconnected = true
		m.err = msg.err
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "tab", "shift+tab":
			cmd := m.toggleFocus()
			return m, cmd
		case "enter":
			if m.disconnected {
				return m, nil
			}
			if m.focus == focusMessage {
				m.ctrl.Send(&m.message)
			} else {
				m.ctrl.Rename(&m.username)
			}
			return m, nil
		case "pgup", "pgdown":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}

	var cmd tea.Cmd
	if m.focus == focusMessage {
		m.message, cmd = m.message.Update(msg)
	} else {
		m.username, cmd = m.username.Update(msg)
	}
	return m, cmd
}

func (m *chatModel) toggleFocus() tea.Cmd {
	if m.focus == focusMessage {
		m.focus = focusUsername
		m.message.Blur()
		return m.username.Focus()
	}
	m.focus = focusMessage
	m.username.Blur()
	return m.message.Focus()
}

// refresh formats transcript entries added since the last call and keeps
// the newest entry in view. A width change lays everything out again.
func (m *chatModel) refresh() {
	if m.lineWidth != m.width {
		m.lines = nil
		m.rendered = 0
		m.lineWidth = m.width
	}
	fresh := m.transcript.Since(m.rendered)
	for _, e := range fresh {
		m.lines = append(m.lines, m.styles.Format(e, m.width))
	}
	m.rendered += len(fresh)
	m.viewport.SetContent(strings.Join(m.lines, "\n"))
	m.viewport.GotoBottom()
}

func (m chatModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("chat"))
	if name := m.transcript.IdentityName(); name != "" {
		b.WriteString("  " + identityStyle.Render(chat.IdentityLabel(name)))
	}
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(m.message.View())
	b.WriteString("\n")
	b.WriteString(m.username.View())
	b.WriteString("\n")
	if m.disconnected {
		text := "disconnected"
		if m.err != nil {
			text += ": " + m.err.Error()
		}
		b.WriteString(errorStyle.Render(text))
	} else {
		b.WriteString(helpStyle.Render("enter: send/rename • tab: switch field • pgup/pgdown: scroll • esc: quit"))
	}
	return b.String()
}

func runTUI(ctx context.Context, ctrl *controller.Controller, transcript *render.Log, disconnected <-chan error) error {
	p := tea.NewProgram(newChatModel(ctrl, transcript), tea.WithAltScreen(), tea.WithContext(ctx))
	go func() {
		select {
		case err := <-disconnected:
			p.Send(disconnectedMsg{err: err})
		case <-ctx.Done():
		}
	}()
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
