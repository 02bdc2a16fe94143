package validation

import (
	"context"

	"github.com/joss/seccompare/internal/domain"
)

// Stats summarises a session's validations.
type Stats struct {
	Total       int                          `json:"total"`
	ByStatus    map[domain.Status]int        `json:"byStatus"`
	MeanScores  map[domain.Dimension]float64 `json:"meanScores"`
	Orphaned    int                          `json:"orphaned"`
	Unvalidated int                          `json:"unvalidated"`
}

// GetValidationStats counts validations per status and averages each
// score over the stored (non-pending) validations. Means are 0 when there
// are none. An unknown session yields zero stats.
func (r *Repository) GetValidationStats(ctx context.Context, sessionID string) Stats {
	sess, ok := r.store.Get(ctx, sessionID)
	if !ok {
		return ComputeStats(nil)
	}
	return ComputeStats(sess)
}

// ComputeStats derives Stats from sess.
func ComputeStats(sess *domain.Session) Stats {
	st := Stats{
		ByStatus:   make(map[domain.Status]int, len(domain.Statuses())),
		MeanScores: make(map[domain.Dimension]float64, len(domain.Dimensions())),
	}
	for _, s := range domain.Statuses() {
		st.ByStatus[s] = 0
	}
	for _, d := range domain.Dimensions() {
		st.MeanScores[d] = 0
	}
	if sess == nil {
		return st
	}

	sums := make(map[domain.Dimension]int, len(domain.Dimensions()))
	for _, v := range sess.Validations {
		if v.Status.IsPending() {
			continue
		}
		st.Total++
		st.ByStatus[v.Status]++
		for _, d := range domain.Dimensions() {
			sums[d] += v.Score(d)
		}
	}
	if st.Total > 0 {
		for _, d := range domain.Dimensions() {
			st.MeanScores[d] = float64(sums[d]) / float64(st.Total)
		}
	}

	st.Orphaned = len(sess.Orphans())
	findings := len(sess.ModelAResults) + len(sess.ModelBResults)
	st.Unvalidated = findings - (st.Total - st.Orphaned)
	if st.Unvalidated < 0 {
		st.Unvalidated = 0
	}
	st.ByStatus[domain.StatusPending] = st.Unvalidated
	return st
}
