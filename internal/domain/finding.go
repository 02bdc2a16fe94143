// Package domain defines the core entities of a review session: findings
// reported by two compared models, the analyst's validations of them, and
// the progress counters derived from both.
package domain

import "time"

// Severity is the reported impact of a finding.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// severityRank orders severities for sorting.
var severityRank = map[Severity]int{
	SeverityHigh:   3,
	SeverityMedium: 2,
	SeverityLow:    1,
}

// Rank returns a sortable weight; unknown severities sort last.
func (s Severity) Rank() int {
	return severityRank[s]
}

// Valid reports whether s is one of the known severities.
func (s Severity) Valid() bool {
	_, ok := severityRank[s]
	return ok
}

// Finding is a single security issue reported by one model.
// Findings are immutable once stored in a session.
type Finding struct {
	ID          string    `json:"id" yaml:"id" validate:"required"`
	Title       string    `json:"title" yaml:"title" validate:"required"`
	Description string    `json:"description" yaml:"description"`
	Severity    Severity  `json:"severity" yaml:"severity" validate:"oneof=high medium low"`
	Category    string    `json:"category" yaml:"category"`
	ModelSource string    `json:"modelSource" yaml:"modelSource"`
	Confidence  *int      `json:"confidence,omitempty" yaml:"confidence,omitempty" validate:"omitempty,min=0,max=100"`
	CWEID       string    `json:"cweId,omitempty" yaml:"cweId,omitempty"`
	Mitigations []string  `json:"mitigations,omitempty" yaml:"mitigations,omitempty"`
	CreatedAt   time.Time `json:"createdAt" yaml:"createdAt"`
}

// Side identifies which compared model a result sequence belongs to.
type Side string

const (
	SideA Side = "A"
	SideB Side = "B"
)
