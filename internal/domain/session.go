package domain

import (
	"time"
)

// Session is one analyst's working unit: a template snapshot, two
// sequences of model findings, and the validations recorded against them.
type Session struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	PromptTemplate *PromptTemplate `json:"promptTemplate"`
	ModelAID       string          `json:"modelAId"`
	ModelBID       string          `json:"modelBId"`
	ModelAResults  []Finding       `json:"modelAResults"`
	ModelBResults  []Finding       `json:"modelBResults"`
	Validations    []Validation    `json:"validations"`
	Progress       Progress        `json:"progress"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// NewSession returns an empty session stamped at now.
func NewSession(id, name string, now time.Time) *Session {
	return &Session{
		ID:            id,
		Name:          name,
		ModelAResults: []Finding{},
		ModelBResults: []Finding{},
		Validations:   []Validation{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Clone returns a copy of s that shares nothing mutable with it.
// Findings are immutable, so their nested slices are shared.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	cp := *s
	cp.PromptTemplate = s.PromptTemplate.Snapshot()
	cp.ModelAResults = append(make([]Finding, 0, len(s.ModelAResults)), s.ModelAResults...)
	cp.ModelBResults = append(make([]Finding, 0, len(s.ModelBResults)), s.ModelBResults...)
	cp.Validations = append(make([]Validation, 0, len(s.Validations)), s.Validations...)
	return &cp
}

// Normalize replaces nil collections with empty ones so the session
// always serializes with arrays, never nulls.
func (s *Session) Normalize() {
	if s.ModelAResults == nil {
		s.ModelAResults = []Finding{}
	}
	if s.ModelBResults == nil {
		s.ModelBResults = []Finding{}
	}
	if s.Validations == nil {
		s.Validations = []Validation{}
	}
}

// RecomputeProgress refreshes the stored counters.
func (s *Session) RecomputeProgress() {
	s.Progress = ComputeProgress(s)
}

// Results returns the result sequence for side.
func (s *Session) Results(side Side) []Finding {
	if side == SideB {
		return s.ModelBResults
	}
	return s.ModelAResults
}

// FindFinding looks a finding up by id across both result sequences.
func (s *Session) FindFinding(id string) (Finding, Side, bool) {
	for _, f := range s.ModelAResults {
		if f.ID == id {
			return f, SideA, true
		}
	}
	for _, f := range s.ModelBResults {
		if f.ID == id {
			return f, SideB, true
		}
	}
	return Finding{}, "", false
}

// FindingIDs returns the set of ids present in either result sequence.
func (s *Session) FindingIDs() map[string]struct{} {
	ids := make(map[string]struct{}, len(s.ModelAResults)+len(s.ModelBResults))
	for _, f := range s.ModelAResults {
		ids[f.ID] = struct{}{}
	}
	for _, f := range s.ModelBResults {
		ids[f.ID] = struct{}{}
	}
	return ids
}

// Validation returns the record for findingID, if any.
func (s *Session) Validation(findingID string) (Validation, bool) {
	for _, v := range s.Validations {
		if v.FindingID == findingID {
			return v, true
		}
	}
	return Validation{}, false
}

// PutValidation applies v to the session's validation set: a pending v
// removes any record for its finding, anything else replaces the existing
// record in place or appends a new one. The set stays unique by FindingID.
func (s *Session) PutValidation(v Validation) {
	if v.Status.IsPending() {
		s.RemoveValidation(v.FindingID)
		return
	}
	for i := range s.Validations {
		if s.Validations[i].FindingID == v.FindingID {
			s.Validations[i] = v
			return
		}
	}
	s.Validations = append(s.Validations, v)
}

// RemoveValidation drops the record for findingID and reports whether one existed.
func (s *Session) RemoveValidation(findingID string) bool {
	kept := s.Validations[:0]
	removed := false
	for _, v := range s.Validations {
		if v.FindingID == findingID {
			removed = true
			continue
		}
		kept = append(kept, v)
	}
	s.Validations = kept
	return removed
}

// ReplaceValidations swaps the whole validation set. Entries are applied in
// order through PutValidation, so pending entries are dropped and later
// duplicates win.
func (s *Session) ReplaceValidations(vs []Validation) {
	s.Validations = []Validation{}
	for _, v := range vs {
		s.PutValidation(v)
	}
}

// Orphans returns validations whose finding is no longer in either result sequence.
func (s *Session) Orphans() []Validation {
	ids := s.FindingIDs()
	var out []Validation
	for _, v := range s.Validations {
		if _, ok := ids[v.FindingID]; !ok {
			out = append(out, v)
		}
	}
	return out
}

// PruneOrphans removes validations without a matching finding and returns how many were dropped.
func (s *Session) PruneOrphans() int {
	ids := s.FindingIDs()
	kept := s.Validations[:0]
	for _, v := range s.Validations {
		if _, ok := ids[v.FindingID]; ok {
			kept = append(kept, v)
		}
	}
	dropped := len(s.Validations) - len(kept)
	s.Validations = kept
	return dropped
}
