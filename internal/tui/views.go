package tui

import (
	"fmt"
	"strings"

	"github.com/joss/seccompare/internal/domain"
	"github.com/joss/seccompare/internal/render"
)

func statusStyle(s domain.Status) string {
	label := render.StatusIcon(s) + " " + string(s)
	switch s {
	case domain.StatusConfirmed:
		return activeStyle.Render(label)
	case domain.StatusFalsePositive:
		return errorStyle.Render(label)
	case domain.StatusNeedsReview:
		return warnStyle.Render(label)
	}
	return infoStyle.Render(label)
}

func (m Model) footer(help string) string {
	var b strings.Builder
	if m.err != nil {
		b.WriteString("\n" + errorStyle.Render("  "+m.err.Error()))
	}
	b.WriteString(helpStyle.Render("  " + help))
	return b.String()
}

func (m Model) viewSessions() string {
	var b strings.Builder
	if m.picker.Len() == 0 && !m.picker.Filtering() {
		b.WriteString(titleStyle.Render("Review sessions") + "\n\n")
		b.WriteString(infoStyle.Render("  No sessions found. Create one with: seccompare session create <name>") + "\n")
	} else {
		b.WriteString(m.picker.View() + "\n")
	}
	b.WriteString(m.footer("enter: open │ /: filter │ r: refresh │ ?: help │ q: quit"))
	return b.String()
}

func (m Model) viewFindings() string {
	var b strings.Builder

	if m.binding.Loading() {
		return fmt.Sprintf("\n  %s Loading session...", m.spinner.View())
	}
	sess := m.binding.Session()
	if sess == nil {
		return titleStyle.Render("No session loaded") + m.footer("esc: back")
	}

	b.WriteString(titleStyle.Render(sess.Name) + "\n")
	b.WriteString(m.progressLine() + "\n\n")

	rows := m.rows()
	if len(rows) == 0 {
		b.WriteString(infoStyle.Render("  No findings yet. Ingest some with: seccompare findings ingest") + "\n")
	}
	for i, f := range rows {
		side := "A"
		if i >= len(sess.ModelAResults) {
			side = "B"
		}
		status := domain.StatusPending
		if v, ok := sess.Validation(f.ID); ok {
			status = v.Status
		}

		cursor := "  "
		title := render.Truncate(f.Title, 48)
		if i == m.cursor {
			cursor = "▶ "
			title = activeStyle.Render(title)
		}
		fmt.Fprintf(&b, "%s%s %s %-6s %s  %s\n",
			cursor, side, render.SeverityIcon(f.Severity), f.Severity, title, statusStyle(status))
	}

	b.WriteString(m.footer("enter: validate │ j/k: navigate │ esc: sessions │ ?: help"))
	return b.String()
}

func (m Model) progressLine() string {
	p := m.binding.Progress()
	return infoStyle.Render(fmt.Sprintf("  %s %.0f%% │ %d/%d validated │ %d confirmed │ %d false positives │ %d needs review",
		render.ProgressBar(p.PercentComplete, 20), p.PercentComplete,
		p.ValidatedFindings, p.TotalFindings, p.ConfirmedFindings, p.FalsePositives, p.NeedsReview))
}

func (m Model) viewEdit() string {
	sel, ok := m.binding.Selected()
	if !ok {
		return titleStyle.Render("Nothing selected") + m.footer("esc: back")
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Validate "+sel.FindingID) + "\n")
	b.WriteString(m.progressLine() + "\n")
	b.WriteString(boxStyle.Render(m.detail.View()) + "\n\n")

	for i, field := range editFields {
		cursor := "  "
		if i == m.field {
			cursor = "▶ "
		}
		var value string
		switch field {
		case fieldStatus:
			value = statusStyle(sel.Status)
		case fieldNotes:
			if m.notes.Focused() {
				value = m.notes.View()
			} else if sel.Notes == "" {
				value = infoStyle.Render("(none)")
			} else {
				value = sel.Notes
			}
		default:
			score := clamp(sel.Score(domain.Dimension(field)))
			value = strings.Repeat("★", score) + strings.Repeat("☆", 5-score)
		}
		fmt.Fprintf(&b, "%s%-14s %s\n", cursor, field, value)
	}

	if sel.Status.IsPending() {
		b.WriteString(warnStyle.Render("\n  Pending: ratings are kept here but not saved until a status is chosen") + "\n")
	}
	if m.stale {
		b.WriteString(warnStyle.Render("  Store changed on disk; reloading when you leave this finding") + "\n")
	}

	b.WriteString(m.footer("←/→ or 1-5: rate │ c/f/r/p: status │ n: notes │ esc: back"))
	return b.String()
}

func clamp(score int) int {
	if score < 0 {
		return 0
	}
	if score > 5 {
		return 5
	}
	return score
}

func (m Model) viewHelp() string {
	help := `
  seccompare - Validation editor

  SESSIONS
    j/k       Navigate up/down
    /         Filter by name
    enter     Open session
    r         Refresh list

  FINDINGS
    j/k       Navigate up/down
    enter     Validate finding
    esc       Back to sessions

  VALIDATION
    j/k       Move between fields
    h/l       Change status or rating
    1-5       Set rating
    c f r p   confirmed / false-positive / needs-review / pending
    n         Edit notes
    esc       Back to findings
`
	return titleStyle.Render("Help") + "\n" + infoStyle.Render(help) + helpStyle.Render("\n  press any key to return")
}
