package domain

// Progress holds the aggregate counters of a session. It is always
// recomputed from the session's findings and validations, never edited.
type Progress struct {
	TotalFindings     int `json:"totalFindings"`
	ValidatedFindings int `json:"validatedFindings"`
	ConfirmedFindings int `json:"confirmedFindings"`
	FalsePositives    int `json:"falsePositives"`
}

// ProgressView extends Progress with the counters the UI derives on read.
type ProgressView struct {
	Progress
	NeedsReview int `json:"needsReview"`
	// PercentComplete is validated/total as a percentage in [0, 100];
	// 0 when the session has no findings.
	PercentComplete float64 `json:"percentComplete"`
}

// ComputeProgress derives the stored counters from s.
func ComputeProgress(s *Session) Progress {
	p := Progress{TotalFindings: len(s.ModelAResults) + len(s.ModelBResults)}
	for _, v := range s.Validations {
		if v.Status.IsPending() {
			continue
		}
		p.ValidatedFindings++
		switch v.Status {
		case StatusConfirmed:
			p.ConfirmedFindings++
		case StatusFalsePositive:
			p.FalsePositives++
		}
	}
	return p
}

// ComputeProgressView derives the extended progress from s.
func ComputeProgressView(s *Session) ProgressView {
	if s == nil {
		return ProgressView{}
	}
	view := ProgressView{Progress: ComputeProgress(s)}
	for _, v := range s.Validations {
		if v.Status == StatusNeedsReview {
			view.NeedsReview++
		}
	}
	if view.TotalFindings > 0 {
		view.PercentComplete = float64(view.ValidatedFindings) / float64(view.TotalFindings) * 100
	}
	return view
}
