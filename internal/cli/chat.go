package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/106-/claude-code-slack-agent/internal/claude"
)

// Backend is the slice of the invoker the chat TUI needs.
type Backend interface {
	Invoke(ctx context.Context, prompt, sessionHandle string) <-chan claude.Chunk
}

// --- message types ---

type backendResponseMsg struct {
	content string
	tools   []string
	handle  string
	err     error
}

// --- chat config ---

// ChatConfig holds display metadata for the chat TUI.
type ChatConfig struct {
	Model   string
	Command string
}

// --- chat entry ---

type chatEntry struct {
	role    string // "user", "assistant", "tool", "error"
	content string
}

// --- interactive chat model ---

type chatModel struct {
	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model

	history    []chatEntry
	waiting    bool
	cancelFunc context.CancelFunc

	backend Backend
	ctx     context.Context
	// handle resumes the conversation across messages; empty until the
	// first successful reply, untouched by failed ones.
	handle string

	ready   bool
	width   int
	height  int
	model   string
	command string
}

func newChatModel(backend Backend, ctx context.Context, cfg ChatConfig) chatModel {
	ti := textinput.New()
	ti.Placeholder = "Type a message..."
	ti.Focus()
	ti.CharLimit = 0
	ti.Prompt = "❯ "
	ti.PromptStyle = lipgloss.NewStyle().Foreground(Accent)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(Accent)

	model := cfg.Model
	if model == "" {
		model = "default model"
	}

	return chatModel{
		input:   ti,
		spinner: sp,
		backend: backend,
		ctx:     ctx,
		model:   model,
		command: cfg.Command,
	}
}

func (m chatModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m chatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		// Layout: header(1) + divider(1) + viewport + divider(1) + input(1) + status(1) = 5 fixed
		vpHeight := msg.Height - 5
		if vpHeight < 1 {
			vpHeight = 1
		}
		if !m.ready {
			m.viewport = viewport.New(msg.Width, vpHeight)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = vpHeight
		}
		m.input.Width = msg.Width - 4
		m.viewport.SetContent(m.renderHistory())
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyCtrlD:
			return m, tea.Quit
		case tea.KeyEnter:
			if m.waiting {
				return m, nil
			}
			input := strings.TrimSpace(m.input.Value())
			if input == "" {
				return m, nil
			}
			if isExitCmd(input) {
				return m, tea.Quit
			}
			m.history = append(m.history, chatEntry{role: "user", content: input})
			m.input.SetValue("")
			m.input.Blur()
			m.waiting = true
			msgCtx, cancel := context.WithCancel(m.ctx)
			m.cancelFunc = cancel
			m.viewport.SetContent(m.renderHistory())
			m.viewport.GotoBottom()
			return m, sendMessage(msgCtx, m.backend, input, m.handle)
		case tea.KeyEsc:
			if m.waiting && m.cancelFunc != nil {
				m.cancelFunc()
				m.cancelFunc = nil
			}
			return m, nil
		case tea.KeyPgUp, tea.KeyPgDown, tea.KeyUp, tea.KeyDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

	case backendResponseMsg:
		m.waiting = false
		m.cancelFunc = nil
		focusCmd := m.input.Focus()
		for _, tool := range msg.tools {
			m.history = append(m.history, chatEntry{role: "tool", content: tool})
		}
		if msg.err != nil {
			if errors.Is(msg.err, context.Canceled) {
				m.history = append(m.history, chatEntry{role: "assistant", content: "[Interrupted]"})
			} else {
				m.history = append(m.history, chatEntry{role: "error", content: msg.err.Error()})
			}
		} else {
			m.history = append(m.history, chatEntry{role: "assistant", content: msg.content})
			if msg.handle != "" {
				m.handle = msg.handle
			}
		}
		m.viewport.SetContent(m.renderHistory())
		m.viewport.GotoBottom()
		return m, focusCmd

	case spinner.TickMsg:
		if m.waiting {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	// Route remaining events to input when not waiting
	if !m.waiting {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m chatModel) View() string {
	if !m.ready {
		return "\n  Initializing..."
	}

	header := TitleStyle.Render(fmt.Sprintf(" %s slack-agent", Logo))
	divider := DimStyle.Render(strings.Repeat("─", m.width))

	var inputLine string
	if m.waiting {
		inputLine = fmt.Sprintf(" %s Thinking... (Esc to stop)", m.spinner.View())
	} else {
		inputLine = " " + m.input.View()
	}

	statusBar := m.renderStatusBar()

	return header + "\n" +
		divider + "\n" +
		m.viewport.View() + "\n" +
		divider + "\n" +
		inputLine + "\n" +
		statusBar
}

func (m chatModel) renderHistory() string {
	if len(m.history) == 0 {
		return m.renderWelcome()
	}

	var sb strings.Builder
	for _, entry := range m.history {
		switch entry.role {
		case "user":
			sb.WriteString("\n")
			sb.WriteString("  " + UserLabel.Render("You") + "\n")
			for _, line := range strings.Split(entry.content, "\n") {
				sb.WriteString("  " + line + "\n")
			}
		case "assistant":
			sb.WriteString("\n")
			sb.WriteString("  " + BotLabel.Render("claude") + "\n")
			for _, line := range strings.Split(entry.content, "\n") {
				sb.WriteString("  " + line + "\n")
			}
		case "tool":
			sb.WriteString("  " + DimStyle.Render("⚙ "+entry.content) + "\n")
		case "error":
			sb.WriteString("\n")
			sb.WriteString("  " + ErrStyle.Render("Error: "+entry.content) + "\n")
		}
	}

	return sb.String()
}

func (m chatModel) renderWelcome() string {
	var sb strings.Builder
	sb.WriteString("\n")
	sb.WriteString("  " + TitleStyle.Render(Logo+" slack-agent chat") + "\n\n")
	sb.WriteString("  " + BoldStyle.Render("Talk to the same backend the Slack bot uses:") + "\n")
	sb.WriteString(DimStyle.Render("  1. Messages share one session, so follow-ups keep context") + "\n")
	sb.WriteString(DimStyle.Render("  2. Esc interrupts a running request") + "\n")
	sb.WriteString(DimStyle.Render("  3. exit or ctrl+c to quit") + "\n")
	return sb.String()
}

func (m chatModel) renderStatusBar() string {
	left := DimStyle.Render(" " + m.command)
	right := DimStyle.Render(m.model + " ")

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}

	return left + strings.Repeat(" ", gap) + right
}

// sendMessage drives one backend interaction to completion off the UI loop
// and delivers the outcome as a single message.
func sendMessage(ctx context.Context, backend Backend, input, handle string) tea.Cmd {
	return func() tea.Msg {
		var text string
		var tools []string
		for chunk := range backend.Invoke(ctx, input, handle) {
			switch chunk.Kind {
			case claude.ChunkToolUse:
				tools = append(tools, chunk.Tool+": "+chunk.Summary)
			case claude.ChunkFinal:
				text = chunk.Text
				return backendResponseMsg{content: text, tools: tools, handle: chunk.SessionHandle}
			case claude.ChunkError:
				return backendResponseMsg{tools: tools, err: chunk.Err}
			}
		}
		return backendResponseMsg{tools: tools, err: errors.New("backend stream ended unexpectedly")}
	}
}

func isExitCmd(s string) bool {
	s = strings.ToLower(s)
	return s == "exit" || s == "quit" || s == "/exit" || s == "/quit" || s == ":q"
}

// RunChat starts the interactive chat TUI.
func RunChat(backend Backend, ctx context.Context, cfg ChatConfig) error {
	m := newChatModel(backend, ctx, cfg)
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// --- single message model ---

type singleModel struct {
	spinner spinner.Model
	backend Backend
	ctx     context.Context
	message string
	result  backendResponseMsg
	done    bool
}

func (m singleModel) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		sendMessage(m.ctx, m.backend, m.message, ""),
	)
}

func (m singleModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
	case backendResponseMsg:
		m.result = msg
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m singleModel) View() string {
	if m.done {
		return ""
	}
	return fmt.Sprintf("\n %s Processing...\n", m.spinner.View())
}

// RunSingleMessage processes one message with a spinner, then prints the result.
func RunSingleMessage(backend Backend, ctx context.Context, message string) error {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(Accent)

	m := singleModel{
		spinner: sp,
		backend: backend,
		ctx:     ctx,
		message: message,
	}

	p := tea.NewProgram(m)
	final, err := p.Run()
	if err != nil {
		return err
	}

	fm := final.(singleModel)
	if fm.result.err != nil {
		fmt.Println(ErrStyle.Render("\n  Error: " + fm.result.err.Error()))
		return fm.result.err
	}

	fmt.Println()
	for _, tool := range fm.result.tools {
		fmt.Println("  " + DimStyle.Render("⚙ "+tool))
	}
	fmt.Println("  " + BotLabel.Render("claude"))
	for _, line := range strings.Split(fm.result.content, "\n") {
		fmt.Println("  " + line)
	}
	fmt.Println()
	return nil
}
