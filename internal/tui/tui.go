// Package tui provides a terminal validation editor using Bubble Tea.
package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/joss/seccompare/internal/domain"
	"github.com/joss/seccompare/internal/logging"
	"github.com/joss/seccompare/internal/storage"
	"github.com/joss/seccompare/internal/view"
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			MarginLeft(2)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	activeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			MarginTop(1)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1)
)

// View represents the current view mode
type View int

const (
	ViewSessions View = iota
	ViewFindings
	ViewEdit
	ViewHelp
)

// ownWriteWindow is how long after our own save a store event is taken
// to be its echo rather than another process's write.
const ownWriteWindow = time.Second

// SessionLister supplies the session picker.
type SessionLister interface {
	List(ctx context.Context) []*domain.Session
}

// Model is the main TUI model
type Model struct {
	ctx      context.Context
	sessions SessionLister
	binding  *view.Binding
	log      *logging.Logger

	// State
	view     View
	prevView View
	picker   *Picker
	cursor   int // finding row in ViewFindings
	field    int // edited field in ViewEdit
	stale    bool
	lastSave time.Time
	err      error
	ready    bool
	quitting bool

	// Components
	spinner spinner.Model
	notes   textinput.Model
	detail  viewport.Model
	width   int
	height  int
}

// Message types
type sessionsMsg []*domain.Session
type loadedMsg struct{}
type savedMsg struct{ err error }
type storeChangedMsg struct{}
type errMsg struct{ err error }

// New creates a new TUI model. If sessionID is set it is opened directly.
func New(ctx context.Context, sessions SessionLister, binding *view.Binding, sessionID string) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	ti := textinput.New()
	ti.Placeholder = "Notes..."
	ti.CharLimit = 2000
	ti.Width = 60
	ti.Cursor.SetMode(cursor.CursorStatic)

	m := Model{
		ctx:      ctx,
		sessions: sessions,
		binding:  binding,
		log:      logging.New("tui"),
		view:     ViewSessions,
		picker:   NewPicker(80, 20),
		spinner:  s,
		notes:    ti,
		detail:   viewport.New(76, 6),
	}
	if sessionID != "" {
		m.view = ViewFindings
		binding.Load(ctx, sessionID)
	}
	return m
}

// Init initializes the TUI
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		m.fetchSessions(),
	)
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.notes.Focused() {
			return m.updateNotes(msg)
		}
		if m.picker.Filtering() {
			var cmd tea.Cmd
			m.picker, cmd = m.picker.Update(msg)
			return m, cmd
		}
		switch msg.String() {
		case "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "?":
			if m.view == ViewHelp {
				m.view = m.prevView
			} else {
				m.prevView = m.view
				m.view = ViewHelp
			}
			return m, nil
		}

		switch m.view {
		case ViewSessions:
			return m.updateSessions(msg)
		case ViewFindings:
			return m.updateFindings(msg)
		case ViewEdit:
			return m.updateEdit(msg)
		case ViewHelp:
			m.view = m.prevView
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.picker.SetSize(msg.Width-4, msg.Height-6)
		m.detail.Width = msg.Width - 6
		m.notes.Width = msg.Width - 12

	case sessionsMsg:
		m.picker.SetSessions(msg)

	case loadedMsg:
		m.cursor = 0
		if err := m.binding.Err(); err != nil {
			m.err = err
			m.view = ViewSessions
		}

	case savedMsg:
		m.err = msg.err
		m.lastSave = time.Now()
		if m.binding.Session() == nil {
			// Deleted elsewhere.
			m.err = m.binding.Err()
			m.view = ViewSessions
			cmds = append(cmds, m.fetchSessions())
		}

	case storeChangedMsg:
		cmds = append(cmds, m.fetchSessions())
		if m.view == ViewEdit {
			if time.Since(m.lastSave) > ownWriteWindow {
				m.stale = true
			}
		} else {
			cmds = append(cmds, m.reload())
		}

	case errMsg:
		m.err = msg.err

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m Model) updateSessions(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc":
		m.quitting = true
		return m, tea.Quit
	case "enter":
		sess, ok := m.picker.Selected()
		if !ok {
			return m, nil
		}
		m.err = nil
		m.view = ViewFindings
		return m, m.load(sess.ID)
	case "r":
		return m, m.fetchSessions()
	}
	var cmd tea.Cmd
	m.picker, cmd = m.picker.Update(msg)
	return m, cmd
}

func (m Model) updateFindings(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	rows := m.rows()
	switch msg.String() {
	case "q":
		m.quitting = true
		return m, tea.Quit
	case "esc":
		m.view = ViewSessions
		m.binding.ClearSelection()
		return m, m.fetchSessions()
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(rows)-1 {
			m.cursor++
		}
	case "enter":
		if m.cursor < len(rows) {
			m.binding.SelectValidation(rows[m.cursor].ID)
			m.field = 0
			m.err = nil
			m.view = ViewEdit
			m.detail.SetContent(findingDetail(rows[m.cursor]))
			m.detail.GotoTop()
		}
	}
	return m, nil
}

func (m Model) updateEdit(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "q":
		m.binding.ClearSelection()
		m.view = ViewFindings
		if m.stale {
			m.stale = false
			return m, m.reload()
		}
		return m, nil
	case "up", "k":
		if m.field > 0 {
			m.field--
		}
		return m, nil
	case "down", "j":
		if m.field < len(editFields)-1 {
			m.field++
		}
		return m, nil
	case "left", "h":
		return m, m.adjust(-1)
	case "right", "l":
		return m, m.adjust(1)
	case "1", "2", "3", "4", "5":
		return m, m.rate(int(msg.String()[0] - '0'))
	case "c":
		return m, m.setStatus(domain.StatusConfirmed)
	case "f":
		return m, m.setStatus(domain.StatusFalsePositive)
	case "r":
		return m, m.setStatus(domain.StatusNeedsReview)
	case "p":
		return m, m.setStatus(domain.StatusPending)
	case "n", "enter":
		if editFields[m.field] == fieldNotes || msg.String() == "n" {
			sel, _ := m.binding.Selected()
			m.field = len(editFields) - 1
			m.notes.SetValue(sel.Notes)
			m.notes.CursorEnd()
			return m, m.notes.Focus()
		}
	case "pgdown", "ctrl+d", "pgup", "ctrl+u":
		var cmd tea.Cmd
		m.detail, cmd = m.detail.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) updateNotes(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		notes := m.notes.Value()
		m.notes.Blur()
		return m, m.edit(func(v *domain.Validation) { v.Notes = notes })
	case "esc":
		m.notes.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.notes, cmd = m.notes.Update(msg)
	return m, cmd
}

// rows lists the current session's findings, model A first.
func (m Model) rows() []domain.Finding {
	sess := m.binding.Session()
	if sess == nil {
		return nil
	}
	return append(append([]domain.Finding{}, sess.ModelAResults...), sess.ModelBResults...)
}

// View renders the TUI
func (m Model) View() string {
	if m.quitting {
		return "Goodbye!\n"
	}

	if !m.ready {
		return fmt.Sprintf("\n  %s Loading...", m.spinner.View())
	}

	switch m.view {
	case ViewFindings:
		return m.viewFindings()
	case ViewEdit:
		return m.viewEdit()
	case ViewHelp:
		return m.viewHelp()
	default:
		return m.viewSessions()
	}
}

// Options configures Run.
type Options struct {
	// SessionID opens a session directly instead of the picker.
	SessionID string
	// StorePath, when set, is watched so writes from other processes
	// refresh the open views.
	StorePath string
}

// Run starts the TUI
func Run(ctx context.Context, sessions SessionLister, binding *view.Binding, opts Options) error {
	p := tea.NewProgram(New(ctx, sessions, binding, opts.SessionID), tea.WithAltScreen(), tea.WithContext(ctx))

	if opts.StorePath != "" {
		w, err := storage.WatchStore(opts.StorePath, 0, func() { p.Send(storeChangedMsg{}) })
		if err != nil {
			logging.New("tui").Warn("watch_unavailable", map[string]any{"path": opts.StorePath}, err)
		} else {
			defer w.Close()
		}
	}

	_, err := p.Run()
	return err
}
