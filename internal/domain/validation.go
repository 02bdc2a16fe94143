package domain

import "time"

// Status is the analyst's verdict on a finding.
type Status string

const (
	// StatusPending means "not yet judged". A pending validation is never
	// stored: it is the same thing as having no record at all.
	StatusPending       Status = "pending"
	StatusConfirmed     Status = "confirmed"
	StatusFalsePositive Status = "false-positive"
	StatusNeedsReview   Status = "needs-review"
)

// Statuses lists every status in display order.
func Statuses() []Status {
	return []Status{StatusPending, StatusConfirmed, StatusFalsePositive, StatusNeedsReview}
}

// IsPending reports whether s is the absence state. The empty string is
// treated as pending so zero-value validations are never stored.
func (s Status) IsPending() bool {
	return s == StatusPending || s == ""
}

// Validation is an analyst's quality judgment on one finding.
// FindingID is the identity: a session holds at most one per finding.
type Validation struct {
	FindingID     string    `json:"findingId" validate:"required"`
	Status        Status    `json:"status" validate:"oneof=pending confirmed false-positive needs-review"`
	Accuracy      int       `json:"accuracy" validate:"min=1,max=5"`
	Completeness  int       `json:"completeness" validate:"min=1,max=5"`
	Relevance     int       `json:"relevance" validate:"min=1,max=5"`
	Actionability int       `json:"actionability" validate:"min=1,max=5"`
	Notes         string    `json:"notes"`
	ValidatedBy   string    `json:"validatedBy"`
	ValidatedAt   time.Time `json:"validatedAt"`
}

// DefaultRating is the score a fresh validation starts with on every dimension.
const DefaultRating = 3

// NewValidation returns a pending validation for findingID with every
// score at DefaultRating, ready for editing.
func NewValidation(findingID string) Validation {
	return Validation{
		FindingID:     findingID,
		Status:        StatusPending,
		Accuracy:      DefaultRating,
		Completeness:  DefaultRating,
		Relevance:     DefaultRating,
		Actionability: DefaultRating,
	}
}

// Dimension names one of the four quality scores.
type Dimension string

const (
	DimAccuracy      Dimension = "accuracy"
	DimCompleteness  Dimension = "completeness"
	DimRelevance     Dimension = "relevance"
	DimActionability Dimension = "actionability"
)

// Dimensions lists the quality dimensions in display order.
func Dimensions() []Dimension {
	return []Dimension{DimAccuracy, DimCompleteness, DimRelevance, DimActionability}
}

// Score returns the rating for d, or 0 for an unknown dimension.
func (v Validation) Score(d Dimension) int {
	switch d {
	case DimAccuracy:
		return v.Accuracy
	case DimCompleteness:
		return v.Completeness
	case DimRelevance:
		return v.Relevance
	case DimActionability:
		return v.Actionability
	}
	return 0
}

// SetScore sets the rating for d. Unknown dimensions are ignored.
func (v *Validation) SetScore(d Dimension, score int) {
	switch d {
	case DimAccuracy:
		v.Accuracy = score
	case DimCompleteness:
		v.Completeness = score
	case DimRelevance:
		v.Relevance = score
	case DimActionability:
		v.Actionability = score
	}
}
