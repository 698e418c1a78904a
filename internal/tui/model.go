// Package tui is the terminal chat client: a company picker followed by a
// scrolling conversation with the document assistant.
package tui

import (
	"context"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/bobmcallan/insight/internal/interfaces"
	"github.com/bobmcallan/insight/internal/models"
)

// Mode is the screen currently shown.
type Mode int

const (
	ModePicker Mode = iota
	ModeChat
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Model is the root bubbletea model for the chat client.
type Model struct {
	chat  interfaces.ChatService
	names []string

	sessionID string
	company   string
	messages  []models.ChatMessage

	// Picker
	filter   string
	selected int

	// Chat input
	input  string
	scroll int

	// UI state
	mode         Mode
	busy         bool
	spinnerFrame int
	width        int
	height       int
	status       string
	errorMessage string
}

// New creates a model over a chat service and the selectable company names.
func New(chat interfaces.ChatService, names []string) Model {
	return Model{
		chat:   chat,
		names:  names,
		mode:   ModePicker,
		status: "Starting session...",
		width:  80,
		height: 24,
	}
}

// Init creates the chat session.
func (m Model) Init() tea.Cmd {
	return createSessionCmd(m.chat)
}

func createSessionCmd(chat interfaces.ChatService) tea.Cmd {
	return func() tea.Msg {
		sess, err := chat.CreateSession(context.Background())
		if err != nil {
			return ErrorMsg{Err: err}
		}
		return SessionCreatedMsg{Session: sess}
	}
}

func selectCompanyCmd(chat interfaces.ChatService, sessionID, name string) tea.Cmd {
	return func() tea.Msg {
		sess, err := chat.SelectCompany(context.Background(), sessionID, name)
		if err != nil {
			return ErrorMsg{Err: err}
		}
		return CompanySelectedMsg{Session: sess}
	}
}

func askCmd(chat interfaces.ChatService, sessionID, question string) tea.Cmd {
	return func() tea.Msg {
		msg, err := chat.Ask(context.Background(), sessionID, question)
		if err != nil {
			return ErrorMsg{Err: err}
		}
		return ReplyMsg{Message: msg}
	}
}

func spinnerTickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(time.Time) tea.Msg {
		return SpinnerTickMsg{}
	})
}

// Update processes messages and returns the updated model and any commands.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case SessionCreatedMsg:
		m.sessionID = msg.Session.ID
		m.status = "Select a company"
		return m, nil

	case CompanySelectedMsg:
		m.busy = false
		m.company = msg.Session.Company.Name
		m.messages = msg.Session.Messages
		m.mode = ModeChat
		m.scroll = 0
		m.errorMessage = ""
		m.status = "Ask a question about " + m.company
		return m, nil

	case ReplyMsg:
		m.busy = false
		m.messages = append(m.messages, *msg.Message)
		m.scroll = 0
		m.status = "Ask a question about " + m.company
		return m, nil

	case ErrorMsg:
		m.busy = false
		m.errorMessage = msg.Err.Error()
		if m.mode == ModeChat && len(m.messages) > 0 && m.messages[len(m.messages)-1].Role == models.RoleUser {
			m.messages = m.messages[:len(m.messages)-1]
		}
		return m, nil

	case SpinnerTickMsg:
		if !m.busy {
			return m, nil
		}
		m.spinnerFrame = (m.spinnerFrame + 1) % len(spinnerFrames)
		return m, spinnerTickCmd()
	}

	return m, nil
}

// handleKey routes a key press to the active screen.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == KeyCtrlC {
		return m, tea.Quit
	}
	if m.busy {
		return m, nil
	}
	if m.mode == ModePicker {
		return m.handlePickerKey(msg)
	}
	return m.handleChatKey(msg)
}

func (m Model) handlePickerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	matches := m.filtered()

	switch msg.String() {
	case KeyEsc:
		if m.filter == "" && m.company != "" {
			m.mode = ModeChat
			return m, nil
		}
		if m.filter == "" {
			return m, tea.Quit
		}
		m.filter = ""
		m.selected = 0
	case KeyUp:
		if m.selected > 0 {
			m.selected--
		}
	case KeyDown:
		if m.selected < len(matches)-1 {
			m.selected++
		}
	case KeyBackspace:
		m.filter = dropLastRune(m.filter)
		m.selected = 0
	case KeyEnter:
		if m.sessionID == "" || len(matches) == 0 {
			return m, nil
		}
		name := matches[m.selected]
		m.busy = true
		m.errorMessage = ""
		m.status = "Selecting " + name + "..."
		return m, tea.Batch(selectCompanyCmd(m.chat, m.sessionID, name), spinnerTickCmd())
	default:
		if msg.Type == tea.KeyRunes {
			m.filter += string(msg.Runes)
			m.selected = 0
		} else if msg.Type == tea.KeySpace {
			m.filter += " "
			m.selected = 0
		}
	}
	return m, nil
}

func (m Model) handleChatKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case KeyEsc, KeyTab:
		m.mode = ModePicker
		m.filter = ""
		m.selected = 0
		m.status = "Select a company"
	case KeyPgUp:
		m.scroll += m.pageSize()
	case KeyPgDown:
		m.scroll = max(0, m.scroll-m.pageSize())
	case KeyBackspace:
		m.input = dropLastRune(m.input)
	case KeyEnter:
		question := strings.TrimSpace(m.input)
		if question == "" {
			return m, nil
		}
		m.input = ""
		m.busy = true
		m.errorMessage = ""
		m.scroll = 0
		m.messages = append(m.messages, models.ChatMessage{Role: models.RoleUser, Content: question, CreatedAt: time.Now()})
		if len(m.messages) == 1 {
			m.status = "Fetching documents and analyzing..."
		} else {
			m.status = "Analyzing..."
		}
		return m, tea.Batch(askCmd(m.chat, m.sessionID, question), spinnerTickCmd())
	default:
		if msg.Type == tea.KeyRunes {
			m.input += string(msg.Runes)
		} else if msg.Type == tea.KeySpace {
			m.input += " "
		}
	}
	return m, nil
}

// filtered returns the company names matching the picker filter.
func (m Model) filtered() []string {
	if m.filter == "" {
		return m.names
	}
	f := strings.ToLower(m.filter)
	var out []string
	for _, n := range m.names {
		if strings.Contains(strings.ToLower(n), f) {
			out = append(out, n)
		}
	}
	return out
}

func (m Model) pageSize() int {
	return max(1, m.height-6)
}

func dropLastRune(s string) string {
	r := []rune(s)
	if len(r) == 0 {
		return s
	}
	return string(r[:len(r)-1])
}
