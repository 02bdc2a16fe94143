// Package session manages the lifecycle of review sessions: creation,
// metadata edits, findings ingestion and progress bookkeeping.
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/joss/seccompare/internal/domain"
	"github.com/joss/seccompare/internal/logging"
)

// Store is the persistence the Manager delegates to.
type Store interface {
	ListAll(ctx context.Context) []*domain.Session
	Get(ctx context.Context, id string) (*domain.Session, bool)
	Save(ctx context.Context, sess *domain.Session) error
	Delete(ctx context.Context, id string) error
	Export(ctx context.Context, id string) ([]byte, bool)
	Import(ctx context.Context, data []byte) (*domain.Session, error)
	Now() time.Time
	NewID() string
}

// OrphanPolicy decides what happens to validations whose finding
// disappears when results are replaced.
type OrphanPolicy string

const (
	// OrphanRetain keeps orphaned validations. They stay counted in progress.
	OrphanRetain OrphanPolicy = "retain"
	// OrphanPrune drops them during findings replacement.
	OrphanPrune OrphanPolicy = "prune"
)

// Patch lists the metadata fields to change. Nil fields are left alone.
type Patch struct {
	Name           *string
	PromptTemplate *domain.PromptTemplate
	ModelAID       *string
	ModelBID       *string
}

// Manager handles session lifecycle
type Manager struct {
	store   Store
	orphans OrphanPolicy
	log     *logging.Logger
}

// NewManager creates a Manager over the given store. An empty policy means retain.
func NewManager(s Store, policy OrphanPolicy) *Manager {
	if policy == "" {
		policy = OrphanRetain
	}
	return &Manager{store: s, orphans: policy, log: logging.New("session")}
}

// OrphanPolicy returns the policy applied by UpdateFindings.
func (m *Manager) OrphanPolicy() OrphanPolicy {
	return m.orphans
}

// Create creates and persists a new empty session.
func (m *Manager) Create(ctx context.Context, name string) (*domain.Session, error) {
	// Zero timestamps let Save stamp createdAt and updatedAt from one reading.
	sess := domain.NewSession(m.store.NewID(), name, time.Time{})

	if err := m.store.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	m.log.WithContext(ctx).WithSession(sess.ID).Info("session_created", map[string]any{
		"name": name,
	})
	return sess, nil
}

// Get retrieves a session by ID
func (m *Manager) Get(ctx context.Context, id string) (*domain.Session, bool) {
	return m.store.Get(ctx, id)
}

// List returns every session, most recently updated first.
func (m *Manager) List(ctx context.Context) []*domain.Session {
	return m.store.ListAll(ctx)
}

// Update merges the non-nil fields of p into the session and persists it.
// UpdatedAt is re-stamped even when p is empty.
func (m *Manager) Update(ctx context.Context, id string, p Patch) (*domain.Session, error) {
	return m.mutate(ctx, id, "update", func(sess *domain.Session) {
		if p.Name != nil {
			sess.Name = *p.Name
		}
		if p.PromptTemplate != nil {
			sess.PromptTemplate = p.PromptTemplate.Snapshot()
		}
		if p.ModelAID != nil {
			sess.ModelAID = *p.ModelAID
		}
		if p.ModelBID != nil {
			sess.ModelBID = *p.ModelBID
		}
	})
}

// SetTemplate stores a snapshot of tmpl on the session. Later edits to
// tmpl do not reach the session.
func (m *Manager) SetTemplate(ctx context.Context, id string, tmpl *domain.PromptTemplate) (*domain.Session, error) {
	return m.Update(ctx, id, Patch{PromptTemplate: tmpl})
}

// UpdateFindings replaces both result sequences and recomputes progress.
// Validations are kept or pruned according to the orphan policy.
func (m *Manager) UpdateFindings(ctx context.Context, id string, a, b []domain.Finding) (*domain.Session, error) {
	pruned := 0
	sess, err := m.mutate(ctx, id, "update_findings", func(sess *domain.Session) {
		sess.ModelAResults = append([]domain.Finding{}, a...)
		sess.ModelBResults = append([]domain.Finding{}, b...)
		if m.orphans == OrphanPrune {
			pruned = sess.PruneOrphans()
		}
		sess.RecomputeProgress()
	})
	if sess != nil {
		m.log.WithContext(ctx).WithSession(id).Info("findings_updated", map[string]any{
			"model_a": len(a),
			"model_b": len(b),
			"pruned":  pruned,
			"orphans": len(sess.Orphans()),
		})
	}
	return sess, err
}

// UpdateProgress recomputes every counter from the stored findings and
// validations. Repeating it without intervening writes is a no-op apart
// from UpdatedAt.
func (m *Manager) UpdateProgress(ctx context.Context, id string) (*domain.Session, error) {
	return m.mutate(ctx, id, "update_progress", func(sess *domain.Session) {
		sess.RecomputeProgress()
	})
}

// Delete removes a session
func (m *Manager) Delete(ctx context.Context, id string) error {
	if err := m.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Export returns the session as pretty-printed JSON.
func (m *Manager) Export(ctx context.Context, id string) ([]byte, bool) {
	return m.store.Export(ctx, id)
}

// Import stores an exported session under a new id.
func (m *Manager) Import(ctx context.Context, data []byte) (*domain.Session, error) {
	sess, err := m.store.Import(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("import session: %w", err)
	}
	return sess, nil
}

// mutate loads id, applies fn and persists the result. Unknown ids are a
// no-op returning (nil, nil).
func (m *Manager) mutate(ctx context.Context, id, op string, fn func(*domain.Session)) (*domain.Session, error) {
	sess, ok := m.store.Get(ctx, id)
	if !ok {
		m.log.WithContext(ctx).WithSession(id).Debug("unknown_session", map[string]any{"op": op})
		return nil, nil
	}
	fn(sess)
	if err := m.store.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sess, nil
}
