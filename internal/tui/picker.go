package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/joss/seccompare/internal/domain"
	"github.com/joss/seccompare/internal/render"
	"github.com/joss/seccompare/internal/session"
)

// sessionItem implements list.Item for the session picker
type sessionItem struct {
	sess *domain.Session
}

func (i sessionItem) Title() string { return i.sess.Name }

func (i sessionItem) Description() string {
	p := domain.ComputeProgressView(i.sess)
	return fmt.Sprintf("%s %3.0f%%  %d/%d validated  updated %s",
		render.ProgressBar(p.PercentComplete, 12), p.PercentComplete,
		p.ValidatedFindings, p.TotalFindings,
		i.sess.UpdatedAt.Local().Format("Jan 02 15:04"))
}

func (i sessionItem) FilterValue() string { return i.sess.Name }

// Picker lists sessions with a fuzzy name filter typed after "/".
type Picker struct {
	list     list.Model
	filter   textinput.Model
	sessions []*domain.Session
}

// NewPicker creates a new session picker
func NewPicker(width, height int) *Picker {
	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.
		Foreground(lipgloss.Color("205")).
		BorderForeground(lipgloss.Color("205"))

	l := list.New([]list.Item{}, delegate, width, height)
	l.Title = "Review sessions"
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.Styles.Title = lipgloss.NewStyle().
		Foreground(lipgloss.Color("205")).
		Bold(true)

	fi := textinput.New()
	fi.Prompt = "/ "
	fi.Placeholder = "filter by name"
	fi.Cursor.SetMode(cursor.CursorStatic)

	return &Picker{list: l, filter: fi}
}

// SetSessions replaces the listed sessions, keeping the current filter.
func (p *Picker) SetSessions(sessions []*domain.Session) {
	p.sessions = sessions
	p.apply()
}

func (p *Picker) apply() {
	matched := session.Filter(p.sessions, p.filter.Value())
	items := make([]list.Item, 0, len(matched))
	for _, s := range matched {
		items = append(items, sessionItem{sess: s})
	}
	p.list.SetItems(items)
}

// Filtering reports whether the filter input has focus.
func (p *Picker) Filtering() bool {
	return p.filter.Focused()
}

// Update handles messages for the picker
func (p *Picker) Update(msg tea.Msg) (*Picker, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		if p.filter.Focused() {
			switch key.String() {
			case "enter":
				p.filter.Blur()
				return p, nil
			case "esc":
				p.filter.Blur()
				p.filter.SetValue("")
				p.apply()
				return p, nil
			}
			var cmd tea.Cmd
			p.filter, cmd = p.filter.Update(msg)
			p.apply()
			return p, cmd
		}
		if key.String() == "/" {
			return p, p.filter.Focus()
		}
	}

	var cmd tea.Cmd
	p.list, cmd = p.list.Update(msg)
	return p, cmd
}

// View renders the picker
func (p *Picker) View() string {
	if p.filter.Focused() || p.filter.Value() != "" {
		return p.filter.View() + "\n" + p.list.View()
	}
	return p.list.View()
}

// Selected returns the highlighted session
func (p *Picker) Selected() (*domain.Session, bool) {
	item, ok := p.list.SelectedItem().(sessionItem)
	if !ok {
		return nil, false
	}
	return item.sess, true
}

// Len returns how many sessions are shown.
func (p *Picker) Len() int {
	return len(p.list.Items())
}

// SetSize updates the picker dimensions
func (p *Picker) SetSize(width, height int) {
	p.list.SetSize(width, height)
}
