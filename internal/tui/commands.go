package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/joss/seccompare/internal/domain"
	"github.com/joss/seccompare/internal/logging"
)

// Fields of the edit view, top to bottom.
const (
	fieldStatus = "status"
	fieldNotes  = "notes"
)

var editFields = []string{
	fieldStatus,
	string(domain.DimAccuracy),
	string(domain.DimCompleteness),
	string(domain.DimRelevance),
	string(domain.DimActionability),
	fieldNotes,
}

// Commands

func (m Model) fetchSessions() tea.Cmd {
	sessions, ctx := m.sessions, logging.StartOperation(m.ctx, "tui list_sessions")
	return func() tea.Msg {
		return sessionsMsg(sessions.List(ctx))
	}
}

func (m Model) load(id string) tea.Cmd {
	binding, ctx := m.binding, logging.StartOperation(m.ctx, "tui load_session")
	return func() tea.Msg {
		binding.Load(ctx, id)
		return loadedMsg{}
	}
}

// reload refreshes the open session after an outside write.
func (m Model) reload() tea.Cmd {
	sess := m.binding.Session()
	if sess == nil {
		return nil
	}
	return m.load(sess.ID)
}

// edit applies fn to the selected validation through the binding.
// Rating changes land in memory at once; the binding persists them
// when the status is not pending.
func (m Model) edit(fn func(*domain.Validation)) tea.Cmd {
	sel, ok := m.binding.Selected()
	if !ok {
		return nil
	}
	fn(&sel)
	if err := domain.CheckValidation(sel); err != nil {
		return func() tea.Msg { return errMsg{err: err} }
	}

	binding, ctx := m.binding, logging.StartOperation(m.ctx, "tui save_validation")
	return func() tea.Msg {
		_, err := binding.EditSelected(ctx, fn)
		return savedMsg{err: err}
	}
}

func (m Model) rate(score int) tea.Cmd {
	field := editFields[m.field]
	if field == fieldStatus || field == fieldNotes {
		return nil
	}
	if err := domain.CheckRating(score); err != nil {
		return func() tea.Msg { return errMsg{err: err} }
	}
	dim := domain.Dimension(field)
	return m.edit(func(v *domain.Validation) { v.SetScore(dim, score) })
}

func (m Model) setStatus(s domain.Status) tea.Cmd {
	return m.edit(func(v *domain.Validation) { v.Status = s })
}

// adjust moves the focused field by delta: statuses cycle, ratings clamp to 1-5.
func (m Model) adjust(delta int) tea.Cmd {
	sel, ok := m.binding.Selected()
	if !ok {
		return nil
	}
	switch field := editFields[m.field]; field {
	case fieldNotes:
		return nil
	case fieldStatus:
		statuses := domain.Statuses()
		idx := 0
		for i, s := range statuses {
			if s == sel.Status {
				idx = i
			}
		}
		idx = (idx + delta + len(statuses)) % len(statuses)
		return m.setStatus(statuses[idx])
	default:
		score := sel.Score(domain.Dimension(field)) + delta
		if score < 1 || score > 5 {
			return nil
		}
		return m.rate(score)
	}
}

func findingDetail(f domain.Finding) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s [%s]\n", f.Title, f.Severity)
	if f.Category != "" || f.CWEID != "" {
		fmt.Fprintf(&b, "%s %s\n", f.Category, f.CWEID)
	}
	if f.Confidence != nil {
		fmt.Fprintf(&b, "confidence: %d%%\n", *f.Confidence)
	}
	if f.Description != "" {
		b.WriteString("\n" + f.Description + "\n")
	}
	for _, mit := range f.Mitigations {
		b.WriteString("  - " + mit + "\n")
	}
	return b.String()
}
