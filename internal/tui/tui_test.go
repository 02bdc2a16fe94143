package tui

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joss/seccompare/internal/domain"
	"github.com/joss/seccompare/internal/metrics"
	"github.com/joss/seccompare/internal/session"
	"github.com/joss/seccompare/internal/storage"
	"github.com/joss/seccompare/internal/validation"
	"github.com/joss/seccompare/internal/view"
)

type fixture struct {
	manager *session.Manager
	repo    *validation.Repository
	binding *view.Binding
	sess    *domain.Session
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	m := metrics.New()
	st := storage.NewSessionStore(storage.NewMemoryKV(), storage.WithMetrics(m))
	mgr := session.NewManager(st, session.OrphanRetain)
	repo := validation.NewRepository(st, mgr, validation.WithMetrics(m))

	sess, err := mgr.Create(ctx, "Audit 1")
	require.NoError(t, err)
	sess, err = mgr.UpdateFindings(ctx, sess.ID,
		[]domain.Finding{{ID: "f1", Title: "SQLi", Severity: domain.SeverityHigh}},
		[]domain.Finding{{ID: "g1", Title: "XSS", Severity: domain.SeverityLow}},
	)
	require.NoError(t, err)

	return &fixture{manager: mgr, repo: repo, binding: view.NewBinding(mgr, repo), sess: sess}
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// press sends k and runs any returned command once, feeding its message back.
func press(t *testing.T, m Model, k string) Model {
	t.Helper()
	next, cmd := m.Update(key(k))
	m = next.(Model)
	if cmd != nil {
		if msg := cmd(); msg != nil {
			if _, batch := msg.(tea.BatchMsg); !batch {
				next, _ = m.Update(msg)
				m = next.(Model)
			}
		}
	}
	return m
}

func ready(m Model) Model {
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return next.(Model)
}

func TestOpenSessionDirectly(t *testing.T) {
	f := newFixture(t)
	m := ready(New(context.Background(), f.manager, f.binding, f.sess.ID))

	assert.Equal(t, ViewFindings, m.view)
	assert.Len(t, m.rows(), 2)
	out := m.View()
	assert.Contains(t, out, "Audit 1")
	assert.Contains(t, out, "SQLi")
	assert.Contains(t, out, "0/2 validated")
}

func TestValidateFindingFlow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	m := ready(New(ctx, f.manager, f.binding, f.sess.ID))

	m = press(t, m, "enter")
	require.Equal(t, ViewEdit, m.view)
	sel, ok := f.binding.Selected()
	require.True(t, ok)
	assert.Equal(t, "f1", sel.FindingID)

	// Rate accuracy while pending: kept in memory only.
	m = press(t, m, "j")
	m = press(t, m, "5")
	sel, _ = f.binding.Selected()
	assert.Equal(t, 5, sel.Accuracy)
	_, stored := f.repo.GetValidation(ctx, f.sess.ID, "f1")
	assert.False(t, stored)
	assert.Contains(t, m.View(), "Pending")

	// Confirm: persisted with the accumulated rating.
	m = press(t, m, "c")
	v, stored := f.repo.GetValidation(ctx, f.sess.ID, "f1")
	require.True(t, stored)
	assert.Equal(t, domain.StatusConfirmed, v.Status)
	assert.Equal(t, 5, v.Accuracy)
	assert.Equal(t, 1, f.binding.Progress().ValidatedFindings)

	// Lower the rating with h.
	m = press(t, m, "h")
	v, _ = f.repo.GetValidation(ctx, f.sess.ID, "f1")
	assert.Equal(t, 4, v.Accuracy)

	m = press(t, m, "esc")
	assert.Equal(t, ViewFindings, m.view)
	_, ok = f.binding.Selected()
	assert.False(t, ok)
	assert.Contains(t, m.View(), "1/2 validated")
}

func TestRatingsClamp(t *testing.T) {
	f := newFixture(t)
	m := ready(New(context.Background(), f.manager, f.binding, f.sess.ID))
	m = press(t, m, "enter")
	m = press(t, m, "j")
	for i := 0; i < 4; i++ {
		m = press(t, m, "l")
	}
	sel, _ := f.binding.Selected()
	assert.Equal(t, 5, sel.Accuracy)
	assert.NoError(t, m.err)
}

func TestStatusCycles(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	m := ready(New(ctx, f.manager, f.binding, f.sess.ID))
	m = press(t, m, "enter")

	m = press(t, m, "l")
	sel, _ := f.binding.Selected()
	assert.Equal(t, domain.StatusConfirmed, sel.Status)

	m = press(t, m, "h")
	m = press(t, m, "h")
	sel, _ = f.binding.Selected()
	assert.Equal(t, domain.StatusNeedsReview, sel.Status)
	_, stored := f.repo.GetValidation(ctx, f.sess.ID, "f1")
	assert.True(t, stored)

	_ = press(t, m, "p")
	_, stored = f.repo.GetValidation(ctx, f.sess.ID, "f1")
	assert.False(t, stored)
}

func TestNotes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	m := ready(New(ctx, f.manager, f.binding, f.sess.ID))
	m = press(t, m, "enter")
	m = press(t, m, "f")

	m = press(t, m, "n")
	require.True(t, m.notes.Focused())
	for _, r := range "dup" {
		m = press(t, m, string(r))
	}
	m = press(t, m, "enter")
	assert.False(t, m.notes.Focused())

	v, ok := f.repo.GetValidation(ctx, f.sess.ID, "f1")
	require.True(t, ok)
	assert.Equal(t, "dup", v.Notes)
	assert.Equal(t, domain.StatusFalsePositive, v.Status)
}

func TestUnknownSessionReturnsToPicker(t *testing.T) {
	f := newFixture(t)
	m := ready(New(context.Background(), f.manager, f.binding, ""))
	assert.Equal(t, ViewSessions, m.view)

	next, _ := m.Update(m.load("missing")())
	m = next.(Model)
	assert.Equal(t, ViewSessions, m.view)
	assert.Error(t, m.err)
}

func TestPickerFilterAndOpen(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.manager.Create(ctx, "Payments review")
	require.NoError(t, err)

	m := ready(New(ctx, f.manager, f.binding, ""))
	next, _ := m.Update(m.fetchSessions()())
	m = next.(Model)
	assert.Equal(t, 2, m.picker.Len())

	m = press(t, m, "/")
	require.True(t, m.picker.Filtering())
	for _, r := range "audit" {
		m = press(t, m, string(r))
	}
	m = press(t, m, "enter")
	assert.False(t, m.picker.Filtering())
	assert.Equal(t, 1, m.picker.Len())

	m = press(t, m, "enter")
	assert.Equal(t, ViewFindings, m.view)
	require.NotNil(t, f.binding.Session())
	assert.Equal(t, f.sess.ID, f.binding.Session().ID)
}

func TestStoreChangeDeferredWhileEditing(t *testing.T) {
	f := newFixture(t)
	m := ready(New(context.Background(), f.manager, f.binding, f.sess.ID))
	m = press(t, m, "enter")

	next, _ := m.Update(storeChangedMsg{})
	m = next.(Model)
	assert.True(t, m.stale)
	assert.Contains(t, m.View(), "Store changed")

	m = press(t, m, "esc")
	assert.False(t, m.stale)
}

func TestOwnSaveDoesNotMarkStale(t *testing.T) {
	f := newFixture(t)
	m := ready(New(context.Background(), f.manager, f.binding, f.sess.ID))
	m = press(t, m, "enter")
	m = press(t, m, "c")

	next, _ := m.Update(storeChangedMsg{})
	m = next.(Model)
	assert.False(t, m.stale)
}

func TestHelpToggle(t *testing.T) {
	f := newFixture(t)
	m := ready(New(context.Background(), f.manager, f.binding, f.sess.ID))
	m = press(t, m, "?")
	assert.Equal(t, ViewHelp, m.view)
	assert.Contains(t, m.View(), "Validation editor")
	m = press(t, m, "x")
	assert.Equal(t, ViewFindings, m.view)
}
