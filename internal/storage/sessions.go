package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/joss/seccompare/internal/domain"
	"github.com/joss/seccompare/internal/logging"
	"github.com/joss/seccompare/internal/metrics"
	"github.com/joss/seccompare/internal/store"
)

// SessionsKey is the KV key holding the whole session collection as a JSON array.
const SessionsKey = "security-review-sessions"

// SessionStore is the canonical owner of persisted sessions. Callers get
// copies; the only way to change stored state is Save, Delete or Import.
//
// Every write is a read-modify-write of the whole collection. Within one
// process the mutex serialises them; across processes the last writer
// wins, so two tabs or two CLI invocations racing on the same store can
// drop each other's changes.
type SessionStore struct {
	mu      sync.Mutex
	kv      store.KV
	now     func() time.Time
	newID   func() string
	log     *logging.Logger
	metrics *metrics.Metrics
}

// Option configures a SessionStore.
type Option func(*SessionStore)

// WithClock overrides the wall clock used for updatedAt stamps.
func WithClock(now func() time.Time) Option {
	return func(s *SessionStore) { s.now = now }
}

// WithIDGenerator overrides how Import mints new session ids.
func WithIDGenerator(newID func() string) Option {
	return func(s *SessionStore) { s.newID = newID }
}

// WithMetrics records store activity in m instead of the global metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *SessionStore) { s.metrics = m }
}

// NewSessionStore creates a SessionStore over kv.
func NewSessionStore(kv store.KV, opts ...Option) *SessionStore {
	s := &SessionStore{
		kv:      kv,
		now:     time.Now,
		newID:   NewID,
		log:     logging.New("storage"),
		metrics: metrics.Global(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewID returns a collision-free session id: a ULID, i.e. a millisecond
// timestamp followed by 80 random bits, monotonic within a process.
func NewID() string {
	return ulid.Make().String()
}

// Now returns the store's current time. Higher layers use it so every
// timestamp in a session comes from one clock.
func (s *SessionStore) Now() time.Time {
	return s.now()
}

// NewID mints an id with the store's generator.
func (s *SessionStore) NewID() string {
	return s.newID()
}

// KV returns the backend, for health checks.
func (s *SessionStore) KV() store.KV {
	return s.kv
}

// load reads the whole collection for the read paths. A failing backend is
// logged and treated as empty, so a bad local file never takes the caller
// down.
func (s *SessionStore) load(ctx context.Context) []*domain.Session {
	sessions, err := s.read(ctx)
	if err != nil {
		s.log.WithContext(ctx).Warn("load_failed", nil, err)
		return nil
	}
	return sessions
}

// read reads the whole collection. Missing data means an empty store and
// corrupt data is logged and also read as empty, so the next write replaces
// it. Any other backend error is returned: writing on top of a collection
// that could not be read would drop every other session.
func (s *SessionStore) read(ctx context.Context) ([]*domain.Session, error) {
	start := time.Now()
	defer s.metrics.ObserveStore("get", start)

	data, err := s.kv.Get(ctx, SessionsKey)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read sessions: %w", err)
	}

	var sessions []*domain.Session
	if err := json.Unmarshal(data, &sessions); err != nil {
		s.metrics.CorruptReads.Inc()
		s.log.WithContext(ctx).Warn("corrupt_collection", map[string]any{
			"bytes": len(data),
		}, fmt.Errorf("%w: %v", store.ErrCorrupt, err))
		return nil, nil
	}

	kept := sessions[:0]
	for _, sess := range sessions {
		if sess == nil || sess.ID == "" {
			continue
		}
		sess.Normalize()
		kept = append(kept, sess)
	}
	s.metrics.Sessions.Set(float64(len(kept)))
	return kept, nil
}

// write replaces the whole collection.
func (s *SessionStore) write(ctx context.Context, sessions []*domain.Session) error {
	start := time.Now()
	defer s.metrics.ObserveStore("set", start)

	if sessions == nil {
		sessions = []*domain.Session{}
	}
	data, err := json.Marshal(sessions)
	if err != nil {
		return fmt.Errorf("encode sessions: %w", err)
	}
	if err := s.kv.Set(ctx, SessionsKey, data); err != nil {
		return fmt.Errorf("write sessions: %w", err)
	}
	s.metrics.Sessions.Set(float64(len(sessions)))
	return nil
}

// ListAll returns every session, most recently updated first.
func (s *SessionStore) ListAll(ctx context.Context) []*domain.Session {
	s.mu.Lock()
	sessions := s.load(ctx)
	s.mu.Unlock()

	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].UpdatedAt.After(sessions[j].UpdatedAt)
	})
	return sessions
}

// Get returns a copy of the session with id, if present.
func (s *SessionStore) Get(ctx context.Context, id string) (*domain.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sess := range s.load(ctx) {
		if sess.ID == id {
			return sess, true
		}
	}
	return nil, false
}

// Save upserts sess by id and stamps its UpdatedAt to now. The caller's
// value is stamped too, so it matches what was stored.
func (s *SessionStore) Save(ctx context.Context, sess *domain.Session) error {
	if sess == nil || sess.ID == "" {
		return errors.New("save session: id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sessions, err := s.read(ctx)
	if err != nil {
		s.metrics.RecordSessionWrite("save", err)
		s.log.WithContext(ctx).WithSession(sess.ID).Error("save_failed", nil, err)
		return err
	}
	s.stamp(sess)
	stored := sess.Clone()
	stored.Normalize()

	replaced := false
	for i, existing := range sessions {
		if existing.ID == sess.ID {
			sessions[i] = stored
			replaced = true
			break
		}
	}
	if !replaced {
		sessions = append(sessions, stored)
	}

	err = s.write(ctx, sessions)
	s.metrics.RecordSessionWrite("save", err)
	if err != nil {
		s.log.WithContext(ctx).WithSession(sess.ID).Error("save_failed", nil, err)
		return err
	}
	s.log.WithContext(ctx).WithSession(sess.ID).Debug("session_saved", map[string]any{
		"created": !replaced,
	})
	return nil
}

// stamp advances UpdatedAt to now, never letting it fall behind CreatedAt.
func (s *SessionStore) stamp(sess *domain.Session) {
	now := s.now()
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = now
	}
	if now.Before(sess.CreatedAt) {
		now = sess.CreatedAt
	}
	sess.UpdatedAt = now
}

// Delete removes the session with id. Deleting an absent id is a no-op.
func (s *SessionStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions, err := s.read(ctx)
	if err != nil {
		s.metrics.RecordSessionWrite("delete", err)
		return err
	}
	kept := sessions[:0]
	for _, sess := range sessions {
		if sess.ID != id {
			kept = append(kept, sess)
		}
	}
	if len(kept) == len(sessions) {
		return nil
	}

	err = s.write(ctx, kept)
	s.metrics.RecordSessionWrite("delete", err)
	if err != nil {
		return err
	}
	s.log.WithContext(ctx).WithSession(id).Info("session_deleted", nil)
	return nil
}

// Export returns the session with id as pretty-printed JSON.
func (s *SessionStore) Export(ctx context.Context, id string) ([]byte, bool) {
	sess, ok := s.Get(ctx, id)
	if !ok {
		return nil, false
	}
	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		s.log.WithContext(ctx).WithSession(id).Error("export_failed", nil, err)
		return nil, false
	}
	return data, true
}

// Import stores a session decoded from data under a freshly minted id, so
// importing the same export twice never collides with the original.
// Unknown fields are ignored. Validations are re-applied so the imported
// set is unique by finding and holds no pending records, and progress is
// recomputed from the imported content.
func (s *SessionStore) Import(ctx context.Context, data []byte) (*domain.Session, error) {
	var sess domain.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}

	originalID := sess.ID
	sess.ID = s.newID()
	sess.Normalize()
	sess.ReplaceValidations(sess.Validations)
	sess.RecomputeProgress()

	if err := s.Save(ctx, &sess); err != nil {
		return nil, err
	}
	s.log.WithContext(ctx).WithSession(sess.ID).Info("session_imported", map[string]any{
		"source_id": originalID,
	})
	return sess.Clone(), nil
}
