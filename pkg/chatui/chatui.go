// Package chatui is the terminal chat page: a transcript view, an input line
// and a spinner while the advisor is thinking.
//
// Like the web page it replaces, the model keeps the whole conversation in
// memory, sends it with every message, allows one request in flight at a time
// and turns every failure into a canned assistant reply.
package chatui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"

	"github.com/finassist/finassist/pkg/advisor"
	"github.com/finassist/finassist/pkg/llm"
	"github.com/finassist/finassist/pkg/transcript"
)

// Canned assistant turns.
const (
	Greeting    = "Hi there! I'm your AI financial assistant. How can I help you with your financial planning, investments, or other money matters today?"
	ChatFailure = "Sorry, I encountered an issue processing your request. Please try again later."
	EmptyReply  = "Sorry, I couldn't generate a response. Please try again."
)

const helpLine = "enter send • /upload <file> • /clear • /quit • pgup/pgdn scroll"

// Chatter sends one chat turn. *client.Client satisfies it.
type Chatter interface {
	Chat(ctx context.Context, message string, history []llm.Message) (*llm.ChatResponse, error)
}

// replyMsg carries the outcome of one request back into Update.
type replyMsg struct {
	content string
	err     error
}

// Model is the bubbletea model for the chat page.
type Model struct {
	chatter    Chatter
	transcript *transcript.Transcript
	renderer   Renderer
	newRender  RendererFactory
	styles     styles

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model

	loading bool
	status  string
	ready   bool
	width   int
}

// Option configures a Model.
type Option func(*Model)

// WithRendererFactory replaces the glamour renderer, e.g. for tests.
func WithRendererFactory(f RendererFactory) Option {
	return func(m *Model) {
		m.newRender = f
	}
}

// New creates the chat page, seeded with the greeting.
func New(chatter Chatter, opts ...Option) *Model {
	input := textinput.New()
	input.Placeholder = "Ask about budgeting, investing, retirement..."
	input.Prompt = "› "
	input.CharLimit = 4000
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := &Model{
		chatter:    chatter,
		transcript: transcript.New(llm.AssistantMessage(Greeting)),
		styles:     defaultStyles(),
		input:      input,
		viewport:   viewport.New(80, 20),
		spinner:    sp,
		width:      80,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.newRender == nil {
		// Detect once; resizes only rebuild for the new width.
		m.newRender = GlamourRenderer(BackgroundStyle())
	}
	m.renderer = m.newRender(m.width)
	return m
}

// Transcript returns a copy of the conversation so far.
func (m *Model) Transcript() []llm.Message {
	return m.transcript.Turns()
}

// Loading reports whether a request is in flight.
func (m *Model) Loading() bool {
	return m.loading
}

func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			return m, m.submit()
		case tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

	case replyMsg:
		m.loading = false
		m.input.Focus()
		m.transcript.Append(llm.AssistantMessage(msg.content))
		if msg.err != nil {
			m.status = "request failed: " + msg.err.Error()
		}
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(m.styles.title.Render("FinAssist"))
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")

	switch {
	case m.loading:
		b.WriteString(m.spinner.View() + " " + m.styles.status.Render("Thinking..."))
	case m.status != "":
		b.WriteString(m.styles.status.Render(m.status))
	default:
		b.WriteString(m.styles.help.Render(helpLine))
	}
	b.WriteString("\n")
	b.WriteString(m.input.View())

	return b.String()
}

// submit handles the enter key. Nothing is sent while a request is in flight.
func (m *Model) submit() tea.Cmd {
	if m.loading {
		return nil
	}

	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return nil
	}
	m.input.Reset()
	m.status = ""

	if strings.HasPrefix(text, "/") {
		return m.command(text)
	}

	return m.send(text, text, EmptyReply, ChatFailure)
}

// command runs a slash command.
func (m *Model) command(text string) tea.Cmd {
	name, arg, _ := strings.Cut(text, " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case "/quit", "/exit":
		return tea.Quit
	case "/clear":
		m.transcript.Reset(llm.AssistantMessage(Greeting))
		m.refresh()
		return nil
	case "/upload":
		doc, err := advisor.NewDocument(arg)
		if err != nil {
			m.status = err.Error()
			return nil
		}
		return m.send(doc.Notice, doc.Prompt, advisor.DocumentFallback, advisor.DocumentFailure)
	}

	m.status = fmt.Sprintf("unknown command %s", name)
	return nil
}

// send appends shown to the transcript and asks the advisor with message.
// The history sent is the transcript as it was before this turn.
func (m *Model) send(shown, message, empty, failure string) tea.Cmd {
	history := m.transcript.Wire()
	m.transcript.Append(llm.UserMessage(shown))
	m.loading = true
	m.input.Blur()
	m.refresh()

	return tea.Batch(m.spinner.Tick, ask(m.chatter, message, history, empty, failure))
}

func ask(c Chatter, message string, history []llm.Message, empty, failure string) tea.Cmd {
	return func() tea.Msg {
		resp, err := c.Chat(context.Background(), message, history)
		if err != nil {
			return replyMsg{content: failure, err: err}
		}
		if resp.Content == "" {
			return replyMsg{content: empty}
		}
		return replyMsg{content: resp.Content}
	}
}

func (m *Model) resize(width, height int) {
	m.width = width
	m.input.Width = width - 4

	// title, status and input lines
	vh := height - 3
	if vh < 1 {
		vh = 1
	}
	m.viewport.Width = width
	m.viewport.Height = vh
	m.renderer = m.newRender(width)
	m.ready = true
	m.refresh()
}

// refresh re-renders the transcript into the viewport and scrolls to the end.
func (m *Model) refresh() {
	var b strings.Builder
	for _, turn := range m.transcript.Turns() {
		switch turn.Role {
		case llm.RoleUser:
			b.WriteString(m.styles.user.Render("You"))
			b.WriteString("\n")
			b.WriteString(ansi.Wordwrap(turn.Content, m.width, ""))
			b.WriteString("\n\n")
		case llm.RoleAssistant:
			b.WriteString(m.styles.assistant.Render("Advisor"))
			b.WriteString("\n")
			b.WriteString(m.render(turn.Content))
			b.WriteString("\n")
		case llm.RoleSystem:
			// never shown
		}
	}
	m.viewport.SetContent(b.String())
	m.viewport.GotoBottom()
}

func (m *Model) render(content string) string {
	out, err := m.renderer.Render(content)
	if err != nil {
		return ansi.Wordwrap(content, m.width, "") + "\n"
	}
	return out
}
