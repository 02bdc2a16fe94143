// Package validation reads and writes the validations of a persisted
// session. Every write is a read-modify-write of the owning session
// followed by a progress recompute.
package validation

import (
	"context"
	"time"

	"github.com/joss/seccompare/internal/domain"
	"github.com/joss/seccompare/internal/logging"
	"github.com/joss/seccompare/internal/metrics"
)

// SessionStore is the slice of the persistence store the repository needs.
type SessionStore interface {
	Get(ctx context.Context, id string) (*domain.Session, bool)
	Save(ctx context.Context, sess *domain.Session) error
	Now() time.Time
}

// ProgressUpdater recomputes and persists a session's progress counters.
// The session Manager satisfies it.
type ProgressUpdater interface {
	UpdateProgress(ctx context.Context, id string) (*domain.Session, error)
}

// Repository manages validations inside persisted sessions.
type Repository struct {
	store       SessionStore
	progress    ProgressUpdater
	validatedBy string
	log         *logging.Logger
	metrics     *metrics.Metrics
}

// Option configures a Repository.
type Option func(*Repository)

// WithValidatedBy sets the analyst name recorded on validations that carry none.
func WithValidatedBy(name string) Option {
	return func(r *Repository) { r.validatedBy = name }
}

// WithMetrics records validation writes in m instead of the global metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Repository) { r.metrics = m }
}

// NewRepository creates a Repository. progress may be nil, in which case
// counters are recomputed inline before the write.
func NewRepository(store SessionStore, progress ProgressUpdater, opts ...Option) *Repository {
	r := &Repository{
		store:    store,
		progress: progress,
		log:      logging.New("validation"),
		metrics:  metrics.Global(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SaveValidation applies v to the session and returns the updated session.
// A pending v deletes any existing record for its finding. An unknown
// session is a no-op returning (nil, nil).
func (r *Repository) SaveValidation(ctx context.Context, sessionID string, v domain.Validation) (*domain.Session, error) {
	sess, ok := r.store.Get(ctx, sessionID)
	if !ok {
		r.log.WithContext(ctx).WithSession(sessionID).Debug("save_validation_unknown_session", nil)
		return nil, nil
	}

	if !v.Status.IsPending() {
		if v.ValidatedAt.IsZero() {
			v.ValidatedAt = r.store.Now()
		}
		if v.ValidatedBy == "" {
			v.ValidatedBy = r.validatedBy
		}
	}
	sess.PutValidation(v)

	updated, err := r.commit(ctx, sess)
	if err != nil {
		return nil, err
	}

	status := string(v.Status)
	if v.Status.IsPending() {
		status = string(domain.StatusPending)
	}
	r.metrics.RecordValidationWrite(status)
	r.log.WithContext(ctx).WithSession(sessionID).Info("validation_saved", map[string]any{
		"finding_id": v.FindingID,
		"status":     status,
	})
	return updated, nil
}

// GetValidation returns the record for findingID. Pending findings have none.
func (r *Repository) GetValidation(ctx context.Context, sessionID, findingID string) (*domain.Validation, bool) {
	sess, ok := r.store.Get(ctx, sessionID)
	if !ok {
		return nil, false
	}
	v, ok := sess.Validation(findingID)
	if !ok {
		return nil, false
	}
	return &v, true
}

// GetAllValidations returns the session's validations in insertion order,
// or an empty slice when the session is unknown.
func (r *Repository) GetAllValidations(ctx context.Context, sessionID string) []domain.Validation {
	sess, ok := r.store.Get(ctx, sessionID)
	if !ok {
		return []domain.Validation{}
	}
	return sess.Validations
}

// DeleteValidation removes the record for findingID. Removing an absent
// record still refreshes progress; an unknown session is a no-op.
func (r *Repository) DeleteValidation(ctx context.Context, sessionID, findingID string) (*domain.Session, error) {
	sess, ok := r.store.Get(ctx, sessionID)
	if !ok {
		return nil, nil
	}
	removed := sess.RemoveValidation(findingID)
	updated, err := r.commit(ctx, sess)
	if err != nil {
		return nil, err
	}
	if removed {
		r.metrics.RecordValidationWrite("deleted")
	}
	r.log.WithContext(ctx).WithSession(sessionID).Info("validation_deleted", map[string]any{
		"finding_id": findingID,
		"removed":    removed,
	})
	return updated, nil
}

// ReplaceAll swaps the whole validation set. Pending entries are dropped
// and later duplicates win.
func (r *Repository) ReplaceAll(ctx context.Context, sessionID string, vs []domain.Validation) (*domain.Session, error) {
	sess, ok := r.store.Get(ctx, sessionID)
	if !ok {
		return nil, nil
	}
	sess.ReplaceValidations(vs)
	updated, err := r.commit(ctx, sess)
	if err != nil {
		return nil, err
	}
	r.log.WithContext(ctx).WithSession(sessionID).Info("validations_replaced", map[string]any{
		"count": len(sess.Validations),
	})
	return updated, nil
}

// ClearAll removes every validation from the session.
func (r *Repository) ClearAll(ctx context.Context, sessionID string) (*domain.Session, error) {
	return r.ReplaceAll(ctx, sessionID, nil)
}

// commit persists sess and refreshes its progress counters.
func (r *Repository) commit(ctx context.Context, sess *domain.Session) (*domain.Session, error) {
	if r.progress == nil {
		sess.RecomputeProgress()
		if err := r.store.Save(ctx, sess); err != nil {
			return nil, err
		}
		return sess, nil
	}

	if err := r.store.Save(ctx, sess); err != nil {
		return nil, err
	}
	updated, err := r.progress.UpdateProgress(ctx, sess.ID)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		// Deleted between the two writes.
		return sess, nil
	}
	return updated, nil
}
