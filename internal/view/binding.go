// Package view binds one "current" session to an interactive surface: it
// tracks loading and error flags, the validation being edited, and a
// progress view that is recomputed on every change.
package view

import (
	"context"
	"sync"

	"github.com/joss/seccompare/internal/domain"
	"github.com/joss/seccompare/internal/logging"
	"github.com/joss/seccompare/internal/session"
	"github.com/joss/seccompare/internal/store"
)

// Sessions is the lifecycle surface the Binding drives.
type Sessions interface {
	Create(ctx context.Context, name string) (*domain.Session, error)
	Get(ctx context.Context, id string) (*domain.Session, bool)
	Update(ctx context.Context, id string, p session.Patch) (*domain.Session, error)
	UpdateFindings(ctx context.Context, id string, a, b []domain.Finding) (*domain.Session, error)
}

// Validations is the validation surface the Binding drives.
type Validations interface {
	SaveValidation(ctx context.Context, sessionID string, v domain.Validation) (*domain.Session, error)
	ReplaceAll(ctx context.Context, sessionID string, vs []domain.Validation) (*domain.Session, error)
	ClearAll(ctx context.Context, sessionID string) (*domain.Session, error)
}

// State is a snapshot of the Binding handed to subscribers.
type State struct {
	Session  *domain.Session
	Selected *domain.Validation
	Loading  bool
	Err      error
	Progress domain.ProgressView
}

// Binding holds the current session and the validation selected for editing.
// Selection moves unselected -> selected(findingId) -> unselected; selecting
// another finding replaces the selection.
type Binding struct {
	mu          sync.Mutex
	sessions    Sessions
	validations Validations
	log         *logging.Logger

	current  *domain.Session
	selected *domain.Validation
	loading  bool
	err      error

	nextSub int
	subs    map[int]func(State)
}

// NewBinding creates a Binding with no current session.
func NewBinding(sessions Sessions, validations Validations) *Binding {
	return &Binding{
		sessions:    sessions,
		validations: validations,
		log:         logging.New("view"),
		subs:        make(map[int]func(State)),
	}
}

// Subscribe registers fn to be called with a fresh State after every
// change. The returned func unregisters it.
func (b *Binding) Subscribe(fn func(State)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextSub
	b.nextSub++
	b.subs[id] = fn
	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}

// Load makes the session with id current. An empty id clears the current
// session. An id that resolves to nothing sets Err instead of failing.
func (b *Binding) Load(ctx context.Context, id string) {
	b.mu.Lock()
	if id == "" {
		b.current, b.selected, b.err = nil, nil, nil
		b.loading = false
		b.unlockAndNotify()
		return
	}
	b.loading = true
	b.err = nil
	b.unlockAndNotify()

	sess, ok := b.sessions.Get(ctx, id)

	b.mu.Lock()
	b.loading = false
	b.selected = nil
	if ok {
		b.current = sess
	} else {
		b.current = nil
		b.err = store.NewNotFoundError("session", id)
		b.log.WithContext(ctx).WithSession(id).Warn("load_failed", nil, b.err)
	}
	b.unlockAndNotify()
}

// Create creates a session and makes it current.
func (b *Binding) Create(ctx context.Context, name string) (*domain.Session, error) {
	sess, err := b.sessions.Create(ctx, name)
	if err != nil {
		return nil, err
	}
	b.mu.Lock()
	b.current, b.selected, b.err = sess, nil, nil
	b.unlockAndNotify()
	return sess.Clone(), nil
}

// Update patches the current session. Without one it is a no-op.
func (b *Binding) Update(ctx context.Context, p session.Patch) (*domain.Session, error) {
	id := b.currentID()
	if id == "" {
		return nil, nil
	}
	return b.apply(b.sessions.Update(ctx, id, p))
}

// AppendFindings adds a generation round to the current result sequences.
// The combined sequences are persisted as a full replacement.
func (b *Binding) AppendFindings(ctx context.Context, roundA, roundB []domain.Finding) (*domain.Session, error) {
	b.mu.Lock()
	if b.current == nil {
		b.mu.Unlock()
		return nil, nil
	}
	id := b.current.ID
	allA := append(append([]domain.Finding{}, b.current.ModelAResults...), roundA...)
	allB := append(append([]domain.Finding{}, b.current.ModelBResults...), roundB...)
	b.mu.Unlock()

	return b.apply(b.sessions.UpdateFindings(ctx, id, allA, allB))
}

// SaveValidation writes v to the current session. Progress reflects the
// write as soon as this returns.
func (b *Binding) SaveValidation(ctx context.Context, v domain.Validation) (*domain.Session, error) {
	id := b.currentID()
	if id == "" {
		return nil, nil
	}
	return b.apply(b.validations.SaveValidation(ctx, id, v))
}

// ReplaceAllValidations swaps the current session's validation set.
func (b *Binding) ReplaceAllValidations(ctx context.Context, vs []domain.Validation) (*domain.Session, error) {
	id := b.currentID()
	if id == "" {
		return nil, nil
	}
	return b.apply(b.validations.ReplaceAll(ctx, id, vs))
}

// ClearAll removes every validation from the current session.
func (b *Binding) ClearAll(ctx context.Context) (*domain.Session, error) {
	id := b.currentID()
	if id == "" {
		return nil, nil
	}
	return b.apply(b.validations.ClearAll(ctx, id))
}

// SelectValidation selects findingID for editing. The selection starts
// from the stored record, or from a fresh pending validation.
func (b *Binding) SelectValidation(findingID string) {
	b.mu.Lock()
	if findingID == "" {
		b.selected = nil
	} else {
		v := b.lookup(findingID)
		b.selected = &v
	}
	b.unlockAndNotify()
}

// ClearSelection returns to the unselected state.
func (b *Binding) ClearSelection() {
	b.mu.Lock()
	b.selected = nil
	b.unlockAndNotify()
}

// Selected returns a copy of the validation being edited.
func (b *Binding) Selected() (domain.Validation, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.selected == nil {
		return domain.Validation{}, false
	}
	return *b.selected, true
}

// EditSelected applies fn to the selected validation. The edit is kept in
// memory immediately. It is persisted when the status is non-pending; a
// pending status removes any stored record instead.
func (b *Binding) EditSelected(ctx context.Context, fn func(*domain.Validation)) (*domain.Session, error) {
	b.mu.Lock()
	if b.selected == nil || b.current == nil {
		b.mu.Unlock()
		return nil, nil
	}
	fn(b.selected)
	edited := *b.selected
	id := b.current.ID
	_, stored := b.current.Validation(edited.FindingID)
	b.unlockAndNotify()

	if edited.Status.IsPending() && !stored {
		return nil, nil
	}
	return b.apply(b.validations.SaveValidation(ctx, id, edited))
}

// GetValidation returns the current session's record for findingID.
func (b *Binding) GetValidation(findingID string) (domain.Validation, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current == nil {
		return domain.Validation{}, false
	}
	return b.current.Validation(findingID)
}

// Session returns a copy of the current session, or nil.
func (b *Binding) Session() *domain.Session {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current.Clone()
}

// Progress derives the progress view from the current session.
func (b *Binding) Progress() domain.ProgressView {
	b.mu.Lock()
	defer b.mu.Unlock()
	return domain.ComputeProgressView(b.current)
}

// Loading reports whether a Load is in flight.
func (b *Binding) Loading() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loading
}

// Err returns the error flag set by the last Load.
func (b *Binding) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.err
}

// State returns a snapshot of the Binding.
func (b *Binding) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snapshot()
}

func (b *Binding) currentID() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current == nil {
		return ""
	}
	return b.current.ID
}

// apply makes sess current after a write. A nil session means it vanished
// underneath us, which clears the binding with a not-found flag.
func (b *Binding) apply(sess *domain.Session, err error) (*domain.Session, error) {
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	if sess == nil {
		if b.current != nil {
			b.err = store.NewNotFoundError("session", b.current.ID)
		}
		b.current, b.selected = nil, nil
		b.unlockAndNotify()
		return nil, nil
	}
	b.current = sess
	b.err = nil
	if b.selected != nil {
		v := b.lookup(b.selected.FindingID)
		if v.Status.IsPending() {
			// Keep in-progress scores for a finding that has no record yet.
			v = *b.selected
		}
		b.selected = &v
	}
	b.unlockAndNotify()
	return sess.Clone(), nil
}

// lookup returns the stored record for findingID or a fresh one. Callers hold mu.
func (b *Binding) lookup(findingID string) domain.Validation {
	if b.current != nil {
		if v, ok := b.current.Validation(findingID); ok {
			return v
		}
	}
	return domain.NewValidation(findingID)
}

// snapshot copies the state. Callers hold mu.
func (b *Binding) snapshot() State {
	st := State{
		Session:  b.current.Clone(),
		Loading:  b.loading,
		Err:      b.err,
		Progress: domain.ComputeProgressView(b.current),
	}
	if b.selected != nil {
		v := *b.selected
		st.Selected = &v
	}
	return st
}

// unlockAndNotify releases mu and calls subscribers with the new state.
func (b *Binding) unlockAndNotify() {
	st := b.snapshot()
	subs := make([]func(State), 0, len(b.subs))
	for _, fn := range b.subs {
		subs = append(subs, fn)
	}
	b.mu.Unlock()

	for _, fn := range subs {
		fn(st)
	}
}
