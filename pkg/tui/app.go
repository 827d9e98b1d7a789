// Package tui is the interactive terminal frontend: sign in, pick a file,
// ask questions, read answers.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/emerjence/billctl/pkg/api"
	"github.com/emerjence/billctl/pkg/catalog"
	"github.com/emerjence/billctl/pkg/credential"
	"github.com/emerjence/billctl/pkg/query"
	"github.com/emerjence/billctl/pkg/session"
)

type state int

const (
	stateLogin state = iota
	stateAsking
	stateSelectingFile
	stateEnteringKey
	stateConfirmQuit
)

type statusCheckedMsg struct{ status api.KeyStatus }
type filesRefreshedMsg struct{}
type queryDoneMsg struct{}
type keySetMsg struct{ signedUp bool }
type keyRemovedMsg struct{}
type loggedOutMsg struct{}
type errMsg struct{ err error }

// Model is the bubbletea model for the client.
type Model struct {
	ctx     context.Context
	session *session.Controller
	creds   *credential.Manager
	catalog *catalog.Client
	queries *query.Orchestrator

	state      state
	cursor     int
	listOffset int
	width      int
	height     int
	errText    string
	infoText   string

	identityInput textinput.Model
	keyInput      textinput.Model
	textarea      textarea.Model
	viewport      viewport.Model
	spinner       spinner.Model
	renderer      *glamour.TermRenderer
}

// New assembles the model. The session may already carry a remembered
// identity; Init reconciles it against the backend.
func New(ctx context.Context, sess *session.Controller, creds *credential.Manager,
	cat *catalog.Client, queries *query.Orchestrator) Model {

	ii := textinput.New()
	ii.Placeholder = "username"
	ii.CharLimit = 64
	ii.Focus()

	ki := textinput.New()
	ki.Placeholder = "sk-..."
	ki.CharLimit = 200
	ki.EchoMode = textinput.EchoPassword

	ta := textarea.New()
	ta.Placeholder = "Ask about your billing data..."
	ta.Prompt = "┃ "
	ta.CharLimit = 500
	ta.SetWidth(80)
	ta.SetHeight(3)
	ta.ShowLineNumbers = false
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()

	vp := viewport.New(80, 20)
	vp.SetContent("Welcome. Ask a question to get started.")

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	// Standard style avoids terminal queries that leak into input.
	r, _ := glamour.NewTermRenderer(
		glamour.WithStandardStyle("light"),
		glamour.WithWordWrap(80),
	)

	startState := stateLogin
	if sess.Identity() != "" {
		startState = stateAsking
		ta.Focus()
	}

	return Model{
		ctx:           ctx,
		session:       sess,
		creds:         creds,
		catalog:       cat,
		queries:       queries,
		state:         startState,
		identityInput: ii,
		keyInput:      ki,
		textarea:      ta,
		viewport:      vp,
		spinner:       sp,
		renderer:      r,
	}
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textarea.Blink, m.spinner.Tick}
	if m.session.Identity() != "" {
		cmds = append(cmds, m.checkStatusCmd(), m.refreshFilesCmd())
	}
	return tea.Batch(cmds...)
}

// Commands

func (m Model) checkStatusCmd() tea.Cmd {
	return func() tea.Msg {
		status, err := m.session.CheckStatus(m.ctx)
		if err != nil {
			return errMsg{err}
		}
		return statusCheckedMsg{status}
	}
}

func (m Model) refreshFilesCmd() tea.Cmd {
	return func() tea.Msg {
		if err := m.catalog.Refresh(m.ctx); err != nil {
			return errMsg{err}
		}
		return filesRefreshedMsg{}
	}
}

func (m Model) submitCmd(text string) tea.Cmd {
	return func() tea.Msg {
		// Outcome and message are read back from the orchestrator; the
		// error only duplicates them.
		_ = m.queries.Submit(m.ctx, text)
		return queryDoneMsg{}
	}
}

func (m Model) setKeyCmd(value string) tea.Cmd {
	return func() tea.Msg {
		signedUp, err := m.creds.SetKey(m.ctx, value)
		if err != nil {
			return errMsg{err}
		}
		return keySetMsg{signedUp}
	}
}

func (m Model) removeKeyCmd() tea.Cmd {
	return func() tea.Msg {
		if err := m.creds.RemoveKey(m.ctx); err != nil {
			return errMsg{err}
		}
		return keyRemovedMsg{}
	}
}

func (m Model) logoutCmd() tea.Cmd {
	return func() tea.Msg {
		m.session.Logout(m.ctx)
		return loggedOutMsg{}
	}
}

// Update

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = msg.Width
		m.textarea.SetWidth(msg.Width)
		m.viewport.Height = msg.Height - m.textarea.Height() - 5
		if m.viewport.Height < 0 {
			m.viewport.Height = 0
		}
		m.renderer, _ = glamour.NewTermRenderer(
			glamour.WithStandardStyle("light"),
			glamour.WithWordWrap(max(20, m.width-4)),
		)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.updateKey(msg)

	case statusCheckedMsg:
		if !m.session.Authenticated() {
			// A remembered identity the backend does not know yet. Route back
			// through login with the name prefilled rather than leaving the
			// user at a prompt that rejects every question.
			m.state = stateLogin
			m.identityInput.SetValue(m.session.Identity())
			m.identityInput.CursorEnd()
			m.identityInput.Focus()
			m.textarea.Blur()
			return m, nil
		}
		if msg.status.Exists {
			if msg.status.UsingCustomKey {
				m.infoText = "Using your API key."
			} else {
				m.infoText = "Using the default API key."
			}
		}
		return m, nil

	case filesRefreshedMsg:
		m.cursor = 0
		m.listOffset = 0
		return m, nil

	case queryDoneMsg:
		m.errText = m.queries.Failure()
		if res := m.queries.Result(); res != nil {
			m.viewport.SetContent(m.renderResult(res))
			m.viewport.GotoTop()
		}
		return m, nil

	case keySetMsg:
		m.state = stateAsking
		m.textarea.Focus()
		m.keyInput.Reset()
		if msg.signedUp {
			m.infoText = "Signed up and API key set."
		} else {
			m.infoText = "Signed in and API key updated."
		}
		return m, nil

	case keyRemovedMsg:
		m.infoText = "API key removed. Using the default key."
		return m, nil

	case loggedOutMsg:
		m.state = stateLogin
		m.errText = ""
		m.infoText = ""
		m.textarea.Reset()
		m.viewport.SetContent("Signed out.")
		m.identityInput.Reset()
		m.identityInput.Focus()
		return m, nil

	case errMsg:
		m.errText = userMessage(msg.err)
		return m, nil
	}

	// Forward everything else to the focused components.
	var cmd tea.Cmd
	switch m.state {
	case stateLogin:
		m.identityInput, cmd = m.identityInput.Update(msg)
	case stateEnteringKey:
		m.keyInput, cmd = m.keyInput.Update(msg)
	case stateAsking:
		m.textarea, cmd = m.textarea.Update(msg)
	}
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m Model) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		m.state = stateConfirmQuit
		return m, nil

	case tea.KeyEsc:
		switch m.state {
		case stateConfirmQuit, stateSelectingFile, stateEnteringKey:
			m.state = stateAsking
			m.textarea.Focus()
			return m, nil
		default:
			m.state = stateConfirmQuit
			return m, nil
		}
	}

	switch m.state {
	case stateLogin:
		if msg.Type == tea.KeyEnter {
			if err := m.session.Login(m.identityInput.Value()); err != nil {
				m.errText = userMessage(err)
				return m, nil
			}
			m.errText = ""
			m.state = stateAsking
			m.textarea.Focus()
			return m, tea.Batch(m.checkStatusCmd(), m.refreshFilesCmd())
		}

	case stateAsking:
		switch msg.String() {
		case "ctrl+f":
			m.state = stateSelectingFile
			m.cursor = 0
			m.listOffset = 0
			return m, m.refreshFilesCmd()
		case "ctrl+k":
			m.state = stateEnteringKey
			m.keyInput.Focus()
			return m, nil
		case "ctrl+x":
			return m, m.removeKeyCmd()
		case "ctrl+l":
			return m, m.logoutCmd()
		}
		if msg.Type == tea.KeyEnter && !m.queries.Loading() {
			text := m.textarea.Value()
			m.errText = ""
			m.infoText = ""
			m.textarea.Reset()
			return m, m.submitCmd(text)
		}

	case stateSelectingFile:
		files := m.catalog.Files()
		switch msg.Type {
		case tea.KeyUp:
			if m.cursor > 0 {
				m.cursor--
				if m.cursor < m.listOffset {
					m.listOffset = m.cursor
				}
			}
		case tea.KeyDown:
			if m.cursor < len(files)-1 {
				m.cursor++
				maxViewable := m.maxViewable()
				if m.cursor >= m.listOffset+maxViewable {
					m.listOffset = m.cursor - maxViewable + 1
				}
			}
		case tea.KeyEnter:
			if m.cursor < len(files) {
				m.catalog.Select(files[m.cursor].Filename)
			}
			m.state = stateAsking
			m.textarea.Focus()
			return m, nil
		}
		if msg.String() == "a" {
			// "All files" sentinel; meaningful in the lazy variant only.
			m.catalog.Select("")
			m.state = stateAsking
			m.textarea.Focus()
			return m, nil
		}

	case stateEnteringKey:
		if msg.Type == tea.KeyEnter {
			value := m.keyInput.Value()
			m.errText = ""
			return m, m.setKeyCmd(value)
		}

	case stateConfirmQuit:
		switch msg.String() {
		case "y", "Y":
			// One bounded cleanup attempt before the program exits.
			m.session.NotifyShutdown()
			return m, tea.Quit
		case "n", "N":
			m.state = stateAsking
			m.textarea.Focus()
			return m, nil
		}
	}

	// Fall through to component updates.
	var cmd tea.Cmd
	switch m.state {
	case stateLogin:
		m.identityInput, cmd = m.identityInput.Update(msg)
	case stateEnteringKey:
		m.keyInput, cmd = m.keyInput.Update(msg)
	case stateAsking:
		m.textarea, cmd = m.textarea.Update(msg)
	}
	return m, cmd
}

// View

func (m Model) View() string {
	var errorView string
	if m.errText != "" {
		errorView = errorStyle.Width(max(0, m.width)).Render("Error: " + m.errText)
	} else if m.infoText != "" {
		errorView = infoStyle.Render(m.infoText)
	}

	switch m.state {
	case stateLogin:
		return lipgloss.JoinVertical(lipgloss.Left,
			titleStyle.Render("Billing Analyzer"),
			"",
			"Pick a username to start. Same name, same workspace; there is no password.",
			"",
			m.identityInput.View(),
			"",
			helpStyle.Render("Enter to sign in, Esc to quit."),
			errorView,
		)

	case stateSelectingFile:
		return m.fileListView(errorView)

	case stateEnteringKey:
		return lipgloss.JoinVertical(lipgloss.Left,
			titleStyle.Render("API Key"),
			"",
			`Paste your key (starts with "sk-"). It is sent once and not stored locally.`,
			"",
			m.keyInput.View(),
			"",
			helpStyle.Render("Enter to save, Esc to cancel."),
			errorView,
		)

	case stateConfirmQuit:
		return lipgloss.JoinVertical(lipgloss.Left,
			titleStyle.Render("Quit"),
			"",
			"Leave the session? (y/n)",
			helpStyle.Render("Your identity stays remembered; the backend is notified best-effort."),
			errorView,
		)
	}

	header := titleStyle.Render("Billing Analyzer") + "  " +
		identityStyle.Render(m.session.Identity()) + "  " +
		fileTagStyle.Render(m.selectedLabel())

	status := ""
	if m.queries.Loading() {
		status = m.spinner.View() + " thinking..."
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		"",
		m.viewport.View(),
		status,
		errorView,
		m.textarea.View(),
		helpStyle.Render("Enter ask · ctrl+f files · ctrl+k set key · ctrl+x remove key · ctrl+l sign out · esc quit"),
	)
}

func (m Model) fileListView(errorView string) string {
	files := m.catalog.Files()
	maxViewable := m.maxViewable()

	start := m.listOffset
	end := start + maxViewable
	if end > len(files) {
		end = len(files)
	}

	var rows []string
	for i := start; i < end; i++ {
		f := files[i]
		cursor := " "
		line := fmt.Sprintf("%s (%s)", f.Filename, humanSize(f.Size))
		if f.Filename == m.catalog.Selected() {
			line += " *"
		}
		if m.cursor == i {
			cursor = ">"
			line = selectedItemStyle.Render(line)
		}
		rows = append(rows, fmt.Sprintf("%s %s", cursorStyle.Render(cursor), line))
	}
	if len(files) == 0 {
		rows = append(rows, helpStyle.Render("No files uploaded yet."))
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("Select File"),
		"",
		lipgloss.JoinVertical(lipgloss.Left, rows...),
		"",
		helpStyle.Render("Enter to select, a for all files, Esc to cancel."),
		errorView,
	)
}

func (m Model) selectedLabel() string {
	if sel := m.catalog.Selected(); sel != "" {
		return "[" + sel + "]"
	}
	return "[all files]"
}

func (m Model) maxViewable() int {
	v := m.height - 7
	if v < 1 {
		v = 1
	}
	return v
}

func (m Model) renderResult(res *api.QueryResult) string {
	var sb strings.Builder
	sb.WriteString("### Answer\n\n")
	sb.WriteString(res.Answer)
	sb.WriteString("\n")
	if res.Reasoning != "" {
		sb.WriteString("\n### Reasoning\n\n")
		sb.WriteString(res.Reasoning)
		sb.WriteString("\n")
	}
	sb.WriteString(fmt.Sprintf("\n_Answered in %.2fs_\n", res.ExecutionTime))

	if m.renderer != nil {
		if out, err := m.renderer.Render(sb.String()); err == nil {
			return out
		}
	}
	return sb.String()
}

// userMessage maps an error to what the user should see: validation and
// remote details verbatim, transport problems as the generic retry text.
func userMessage(err error) string {
	if err == nil {
		return ""
	}
	var te *api.TransportError
	if errors.As(err, &te) {
		return query.TransportFailure
	}
	return err.Error()
}

func humanSize(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
