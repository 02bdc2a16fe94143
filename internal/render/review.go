package render

import (
	"github.com/joss/seccompare/internal/domain"
	"github.com/joss/seccompare/internal/validation"
)

// Review renders session and validation details.
type Review struct {
	*Writer
	r *Renderer
}

// NewReview creates a Review renderer writing to w.
func NewReview(w *Writer, pretty bool) *Review {
	return &Review{Writer: w, r: New(pretty)}
}

// Session renders a session with its findings and their validation state.
func (a *Review) Session(s *domain.Session) {
	a.Header("SESSION %s", s.Name)
	a.Item("ID:       %s", s.ID)
	if s.PromptTemplate != nil {
		a.Item("Template: %s", s.PromptTemplate.Name)
	}
	a.Item("Model A:  %s", orDash(s.ModelAID))
	a.Item("Model B:  %s", orDash(s.ModelBID))
	a.Item("Created:  %s", s.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	a.Item("Updated:  %s", s.UpdatedAt.Local().Format("2006-01-02 15:04:05"))

	a.Section("Progress")
	a.Print("%s", a.r.Progress(domain.ComputeProgressView(s)))

	a.findings(s, domain.SideA, s.ModelAID)
	a.findings(s, domain.SideB, s.ModelBID)

	if orphans := s.Orphans(); len(orphans) > 0 {
		a.Section("Orphaned validations")
		for _, v := range orphans {
			a.Item("%s %s", a.r.StatusLabel(v.Status), v.FindingID)
		}
	}
}

func (a *Review) findings(s *domain.Session, side domain.Side, model string) {
	results := s.Results(side)
	title := "Model " + string(side) + " findings"
	if model != "" {
		title += " (" + model + ")"
	}
	a.Section(title)
	if len(results) == 0 {
		a.Item("none")
		return
	}
	for _, f := range results {
		v, ok := s.Validation(f.ID)
		status := domain.StatusPending
		if ok {
			status = v.Status
		}
		a.Item("%s %-8s %s  %s", SeverityIcon(f.Severity), f.Severity, Truncate(f.Title, 50), a.r.StatusLabel(status))
		a.Nested("%s", f.ID)
	}
}

// Finding renders one finding with its side and validation state.
func (a *Review) Finding(f domain.Finding, side domain.Side, v domain.Validation) {
	a.Header("FINDING %s", f.ID)
	a.Item("Title:       %s", f.Title)
	a.Item("Severity:    %s %s", SeverityIcon(f.Severity), f.Severity)
	a.Item("Model:       %s (%s)", orDash(f.ModelSource), side)
	if f.Category != "" {
		a.Item("Category:    %s", f.Category)
	}
	if f.CWEID != "" {
		a.Item("CWE:         %s", f.CWEID)
	}
	if f.Confidence != nil {
		a.Item("Confidence:  %d%%", *f.Confidence)
	}
	a.Item("Status:      %s", a.r.StatusLabel(v.Status))
	if f.Description != "" {
		a.Section("Description")
		a.Println("%s", f.Description)
	}
	if len(f.Mitigations) > 0 {
		a.Section("Mitigations")
		for _, m := range f.Mitigations {
			a.Item("%s", m)
		}
	}
}

// Validations renders the stored validations of a session.
func (a *Review) Validations(vs []domain.Validation) {
	if len(vs) == 0 {
		a.Empty("No validations recorded")
		return
	}

	a.Header("VALIDATIONS (%d)", len(vs))
	for _, v := range vs {
		a.Println("%s %s  acc=%d comp=%d rel=%d act=%d",
			a.r.StatusLabel(v.Status), v.FindingID,
			v.Accuracy, v.Completeness, v.Relevance, v.Actionability)
		if v.Notes != "" {
			a.Nested("%s", Truncate(v.Notes, 70))
		}
	}
}

// Validation renders one validation in full.
func (a *Review) Validation(v domain.Validation) {
	a.Header("VALIDATION %s", v.FindingID)
	a.Item("Status:        %s", a.r.StatusLabel(v.Status))
	for _, d := range domain.Dimensions() {
		a.Item("%-14s %d/5", string(d)+":", v.Score(d))
	}
	if v.Notes != "" {
		a.Item("Notes:         %s", v.Notes)
	}
	if v.ValidatedBy != "" {
		a.Item("Validated by:  %s", v.ValidatedBy)
	}
	if !v.ValidatedAt.IsZero() {
		a.Item("Validated at:  %s", v.ValidatedAt.Local().Format("2006-01-02 15:04:05"))
	}
}

// Stats renders validation statistics.
func (a *Review) Stats(st validation.Stats) {
	a.Header("VALIDATION STATISTICS")

	a.Item("Validated:       %d", st.Total)
	for _, s := range domain.Statuses() {
		a.Item("%-16s %d", string(s)+":", st.ByStatus[s])
	}
	if st.Orphaned > 0 {
		a.Item("Orphaned:        %d", st.Orphaned)
	}

	a.Section("Mean scores")
	for _, d := range domain.Dimensions() {
		a.Item("%-14s %.2f", string(d)+":", st.MeanScores[d])
	}
}

// Orphans renders validations whose finding is gone.
func (a *Review) Orphans(vs []domain.Validation) {
	if len(vs) == 0 {
		a.Empty("No orphaned validations")
		return
	}
	a.Header("ORPHANED VALIDATIONS (%d)", len(vs))
	for _, v := range vs {
		a.Item("%s %s", a.r.StatusLabel(v.Status), v.FindingID)
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
