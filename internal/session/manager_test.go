package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joss/seccompare/internal/domain"
	"github.com/joss/seccompare/internal/metrics"
	"github.com/joss/seccompare/internal/storage"
)

type tickClock struct{ t time.Time }

func (c *tickClock) Now() time.Time {
	c.t = c.t.Add(time.Minute)
	return c.t
}

func newManager(t *testing.T, policy OrphanPolicy) (*Manager, *storage.SessionStore, *storage.MemoryKV) {
	t.Helper()
	kv := storage.NewMemoryKV()
	clock := &tickClock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	st := storage.NewSessionStore(kv, storage.WithClock(clock.Now), storage.WithMetrics(metrics.New()))
	return NewManager(st, policy), st, kv
}

func findings(side string, n int) []domain.Finding {
	out := make([]domain.Finding, n)
	for i := range out {
		out[i] = domain.Finding{
			ID:       side + string(rune('1'+i)),
			Title:    "finding",
			Severity: domain.SeverityMedium,
		}
	}
	return out
}

func TestCreate(t *testing.T) {
	ctx := context.Background()
	m, st, _ := newManager(t, "")

	sess, err := m.Create(ctx, "Audit 1")
	require.NoError(t, err)
	assert.NotEmpty(t, sess.ID)
	assert.Equal(t, "Audit 1", sess.Name)
	assert.Empty(t, sess.ModelAResults)
	assert.Empty(t, sess.ModelBResults)
	assert.Empty(t, sess.Validations)
	assert.Equal(t, domain.Progress{}, sess.Progress)
	assert.False(t, sess.CreatedAt.IsZero())
	assert.Equal(t, sess.CreatedAt, sess.UpdatedAt)

	stored, ok := st.Get(ctx, sess.ID)
	require.True(t, ok)
	assert.Equal(t, stored.CreatedAt, stored.UpdatedAt)
}

func TestCreateMintsDistinctIDs(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newManager(t, "")
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		sess, err := m.Create(ctx, "x")
		require.NoError(t, err)
		require.False(t, seen[sess.ID])
		seen[sess.ID] = true
	}
	assert.Len(t, m.List(ctx), 50)
}

func TestUpdateMergesPatch(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newManager(t, "")
	sess, err := m.Create(ctx, "before")
	require.NoError(t, err)

	name := "after"
	modelA := "gpt"
	updated, err := m.Update(ctx, sess.ID, Patch{Name: &name, ModelAID: &modelA})
	require.NoError(t, err)
	assert.Equal(t, "after", updated.Name)
	assert.Equal(t, "gpt", updated.ModelAID)
	assert.Equal(t, "", updated.ModelBID)
	assert.True(t, updated.UpdatedAt.After(sess.UpdatedAt))
	assert.Equal(t, sess.CreatedAt, updated.CreatedAt)

	again, err := m.Update(ctx, sess.ID, Patch{})
	require.NoError(t, err)
	assert.Equal(t, "after", again.Name)
	assert.True(t, again.UpdatedAt.After(updated.UpdatedAt))
}

func TestSetTemplateStoresSnapshot(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newManager(t, "")
	sess, _ := m.Create(ctx, "x")

	tmpl := &domain.PromptTemplate{ID: "t1", Name: "STRIDE", Variables: []string{"system"}}
	_, err := m.SetTemplate(ctx, sess.ID, tmpl)
	require.NoError(t, err)

	tmpl.Name = "edited later"
	tmpl.Variables[0] = "changed"

	got, ok := m.Get(ctx, sess.ID)
	require.True(t, ok)
	require.NotNil(t, got.PromptTemplate)
	assert.Equal(t, "STRIDE", got.PromptTemplate.Name)
	assert.Equal(t, []string{"system"}, got.PromptTemplate.Variables)
}

func TestUpdateFindingsReplaces(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newManager(t, "")
	sess, _ := m.Create(ctx, "x")

	rounds := []struct{ a, b int }{{3, 2}, {1, 0}, {0, 4}, {2, 2}}
	for _, r := range rounds {
		updated, err := m.UpdateFindings(ctx, sess.ID, findings("a", r.a), findings("b", r.b))
		require.NoError(t, err)
		assert.Equal(t, r.a+r.b, updated.Progress.TotalFindings)
		assert.Len(t, updated.ModelAResults, r.a)
		assert.Len(t, updated.ModelBResults, r.b)
	}
}

func TestUpdateFindingsOrphanPolicy(t *testing.T) {
	ctx := context.Background()

	for _, tc := range []struct {
		policy      OrphanPolicy
		validations int
		validated   int
	}{
		{OrphanRetain, 2, 2},
		{OrphanPrune, 1, 1},
	} {
		t.Run(string(tc.policy), func(t *testing.T) {
			m, st, _ := newManager(t, tc.policy)
			sess, _ := m.Create(ctx, "x")
			_, err := m.UpdateFindings(ctx, sess.ID, findings("a", 2), nil)
			require.NoError(t, err)

			stored, _ := st.Get(ctx, sess.ID)
			for _, id := range []string{"a1", "a2"} {
				v := domain.NewValidation(id)
				v.Status = domain.StatusConfirmed
				stored.PutValidation(v)
			}
			require.NoError(t, st.Save(ctx, stored))

			updated, err := m.UpdateFindings(ctx, sess.ID, findings("a", 1), nil)
			require.NoError(t, err)
			assert.Len(t, updated.Validations, tc.validations)
			assert.Equal(t, tc.validated, updated.Progress.ValidatedFindings)
			assert.Equal(t, 1, updated.Progress.TotalFindings)
		})
	}
}

func TestUpdateProgressIdempotent(t *testing.T) {
	ctx := context.Background()
	m, st, _ := newManager(t, "")
	sess, _ := m.Create(ctx, "x")
	_, err := m.UpdateFindings(ctx, sess.ID, findings("a", 3), findings("b", 1))
	require.NoError(t, err)

	stored, _ := st.Get(ctx, sess.ID)
	v := domain.NewValidation("a1")
	v.Status = domain.StatusFalsePositive
	stored.PutValidation(v)
	stored.Progress = domain.Progress{TotalFindings: 42}
	require.NoError(t, st.Save(ctx, stored))

	first, err := m.UpdateProgress(ctx, sess.ID)
	require.NoError(t, err)
	second, err := m.UpdateProgress(ctx, sess.ID)
	require.NoError(t, err)

	want := domain.Progress{TotalFindings: 4, ValidatedFindings: 1, FalsePositives: 1}
	assert.Equal(t, want, first.Progress)
	assert.Equal(t, want, second.Progress)
}

func TestUnknownSessionIsNoop(t *testing.T) {
	ctx := context.Background()
	m, _, kv := newManager(t, "")
	name := "x"

	sess, err := m.Update(ctx, "missing", Patch{Name: &name})
	assert.NoError(t, err)
	assert.Nil(t, sess)

	sess, err = m.UpdateFindings(ctx, "missing", findings("a", 1), nil)
	assert.NoError(t, err)
	assert.Nil(t, sess)

	sess, err = m.UpdateProgress(ctx, "missing")
	assert.NoError(t, err)
	assert.Nil(t, sess)

	assert.NoError(t, m.Delete(ctx, "missing"))

	_, ok := m.Get(ctx, "missing")
	assert.False(t, ok)
	_, ok = m.Export(ctx, "missing")
	assert.False(t, ok)

	// Nothing was ever written.
	_, err = kv.Get(ctx, storage.SessionsKey)
	assert.Error(t, err)
}

func TestDeleteAndImport(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newManager(t, "")
	sess, _ := m.Create(ctx, "x")

	data, ok := m.Export(ctx, sess.ID)
	require.True(t, ok)

	require.NoError(t, m.Delete(ctx, sess.ID))
	assert.Empty(t, m.List(ctx))

	imported, err := m.Import(ctx, data)
	require.NoError(t, err)
	assert.NotEqual(t, sess.ID, imported.ID)
	assert.Equal(t, "x", imported.Name)

	_, err = m.Import(ctx, []byte("{"))
	assert.Error(t, err)
}

func TestNewManagerDefaultsToRetain(t *testing.T) {
	m, _, _ := newManager(t, "")
	assert.Equal(t, OrphanRetain, m.OrphanPolicy())
}
