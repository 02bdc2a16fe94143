package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestComputeProgress(t *testing.T) {
	s := NewSession("s1", "x", time.Now())
	s.ModelAResults = findings("a1", "a2", "a3")
	s.ModelBResults = findings("b1", "b2")

	assert.Equal(t, Progress{TotalFindings: 5}, ComputeProgress(s))

	s.PutValidation(confirmed("a1"))
	fp := NewValidation("a2")
	fp.Status = StatusFalsePositive
	s.PutValidation(fp)
	nr := NewValidation("b1")
	nr.Status = StatusNeedsReview
	s.PutValidation(nr)

	assert.Equal(t, Progress{
		TotalFindings:     5,
		ValidatedFindings: 3,
		ConfirmedFindings: 1,
		FalsePositives:    1,
	}, ComputeProgress(s))
}

func TestComputeProgressIgnoresStoredPending(t *testing.T) {
	// Imported data may carry pending records written by older tools.
	s := NewSession("s1", "x", time.Now())
	s.ModelAResults = findings("a1")
	s.Validations = []Validation{NewValidation("a1")}

	assert.Equal(t, 0, ComputeProgress(s).ValidatedFindings)
}

func TestComputeProgressView(t *testing.T) {
	t.Run("no findings", func(t *testing.T) {
		s := NewSession("s1", "x", time.Now())
		view := ComputeProgressView(s)
		assert.Equal(t, 0.0, view.PercentComplete)
		assert.Equal(t, 0, view.NeedsReview)
	})

	t.Run("nil session", func(t *testing.T) {
		assert.Equal(t, ProgressView{}, ComputeProgressView(nil))
	})

	t.Run("partial", func(t *testing.T) {
		s := NewSession("s1", "x", time.Now())
		s.ModelAResults = findings("a1", "a2")
		s.ModelBResults = findings("b1", "b2")
		nr := NewValidation("a1")
		nr.Status = StatusNeedsReview
		s.PutValidation(nr)

		view := ComputeProgressView(s)
		assert.Equal(t, 1, view.NeedsReview)
		assert.Equal(t, 1, view.ValidatedFindings)
		assert.InDelta(t, 25.0, view.PercentComplete, 0.001)
	})
}
