package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/joss/seccompare/internal/domain"
)

// Renderer handles output formatting.
type Renderer struct {
	pretty bool
}

// New creates a new renderer.
func New(pretty bool) *Renderer {
	return &Renderer{pretty: pretty}
}

// Sessions formats the session list, most recent first.
func (r *Renderer) Sessions(sessions []*domain.Session) string {
	if len(sessions) == 0 {
		return "No sessions found"
	}

	var sb strings.Builder

	if r.pretty {
		sb.WriteString(color.CyanString("Review Sessions\n"))
		sb.WriteString(strings.Repeat("─", 72) + "\n")
	}

	for _, s := range sessions {
		r.formatSession(&sb, s)
	}

	return sb.String()
}

func (r *Renderer) formatSession(sb *strings.Builder, s *domain.Session) {
	p := domain.ComputeProgressView(s)
	updated := s.UpdatedAt.Local().Format("2006-01-02 15:04")

	if r.pretty {
		bar := ProgressBar(p.PercentComplete, 20)
		if p.TotalFindings > 0 && p.ValidatedFindings == p.TotalFindings {
			bar = color.GreenString(bar)
		}
		fmt.Fprintf(sb, "%s %s %s %3.0f%% %d/%d\n",
			color.HiBlackString(s.ID), Truncate(s.Name, 28), bar,
			p.PercentComplete, p.ValidatedFindings, p.TotalFindings)
		fmt.Fprintf(sb, "    %s\n", color.HiBlackString("updated "+updated))
	} else {
		fmt.Fprintf(sb, "%s\t%s\t%d/%d\t%s\n", s.ID, s.Name, p.ValidatedFindings, p.TotalFindings, updated)
	}
}

// Progress formats the progress counters of one session.
func (r *Renderer) Progress(p domain.ProgressView) string {
	var sb strings.Builder

	if r.pretty {
		fmt.Fprintf(&sb, "%s %.0f%%\n", ProgressBar(p.PercentComplete, 30), p.PercentComplete)
		fmt.Fprintf(&sb, "  Validated:       %d/%d\n", p.ValidatedFindings, p.TotalFindings)
		fmt.Fprintf(&sb, "  Confirmed:       %s\n", color.GreenString("%d", p.ConfirmedFindings))
		fmt.Fprintf(&sb, "  False positives: %s\n", color.RedString("%d", p.FalsePositives))
		fmt.Fprintf(&sb, "  Needs review:    %s\n", color.YellowString("%d", p.NeedsReview))
	} else {
		fmt.Fprintf(&sb, "total=%d validated=%d confirmed=%d false_positives=%d needs_review=%d percent=%.1f\n",
			p.TotalFindings, p.ValidatedFindings, p.ConfirmedFindings, p.FalsePositives, p.NeedsReview, p.PercentComplete)
	}

	return sb.String()
}

// StatusLabel colors a validation status.
func (r *Renderer) StatusLabel(s domain.Status) string {
	if s == "" {
		s = domain.StatusPending
	}
	label := StatusIcon(s) + " " + string(s)
	if !r.pretty {
		return string(s)
	}
	switch s {
	case domain.StatusConfirmed:
		return color.GreenString(label)
	case domain.StatusFalsePositive:
		return color.RedString(label)
	case domain.StatusNeedsReview:
		return color.YellowString(label)
	}
	return color.HiBlackString(label)
}

// FormatDuration formats a duration in human-readable form.
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
}
