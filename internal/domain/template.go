package domain

import "time"

// PromptTemplate is a methodology template. Sessions embed a value copy,
// so later edits to the template do not change existing sessions.
type PromptTemplate struct {
	ID          string    `json:"id" yaml:"id"`
	Name        string    `json:"name" yaml:"name"`
	Description string    `json:"description" yaml:"description"`
	Category    string    `json:"category" yaml:"category"`
	Content     string    `json:"content" yaml:"content"`
	Variables   []string  `json:"variables,omitempty" yaml:"variables,omitempty"`
	CreatedAt   time.Time `json:"createdAt" yaml:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt" yaml:"updatedAt"`
}

// Snapshot returns a deep copy of t.
func (t *PromptTemplate) Snapshot() *PromptTemplate {
	if t == nil {
		return nil
	}
	cp := *t
	if t.Variables != nil {
		cp.Variables = append([]string(nil), t.Variables...)
	}
	return &cp
}
