package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joss/seccompare/internal/domain"
	"github.com/joss/seccompare/internal/metrics"
	"github.com/joss/seccompare/internal/store"
)

// fakeClock hands out strictly increasing times one second apart.
type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

// sequentialIDs returns an id generator producing imp-1, imp-2, ...
func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("imp-%d", n)
	}
}

type fixture struct {
	kv      *MemoryKV
	store   *SessionStore
	clock   *fakeClock
	metrics *metrics.Metrics
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{kv: NewMemoryKV(), clock: newFakeClock(), metrics: metrics.New()}
	f.store = NewSessionStore(f.kv,
		WithClock(f.clock.Now),
		WithIDGenerator(sequentialIDs()),
		WithMetrics(f.metrics),
	)
	return f
}

func (f *fixture) seed(t *testing.T, id, name string) *domain.Session {
	t.Helper()
	sess := domain.NewSession(id, name, f.clock.Now())
	require.NoError(t, f.store.Save(context.Background(), sess))
	return sess
}

func TestListAllEmptyStore(t *testing.T) {
	f := newFixture(t)
	assert.Empty(t, f.store.ListAll(context.Background()))
}

func TestListAllSortedByUpdatedAtDesc(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t, "s1", "first")
	f.seed(t, "s2", "second")
	s1, _ := f.store.Get(ctx, "s1")
	require.NoError(t, f.store.Save(ctx, s1))

	got := f.store.ListAll(ctx)
	require.Len(t, got, 2)
	assert.Equal(t, "s1", got[0].ID)
	assert.Equal(t, "s2", got[1].ID)
}

func TestSaveStampsUpdatedAt(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sess := f.seed(t, "s1", "x")
	first := sess.UpdatedAt

	sess.Name = "renamed"
	require.NoError(t, f.store.Save(ctx, sess))

	got, ok := f.store.Get(ctx, "s1")
	require.True(t, ok)
	assert.Equal(t, "renamed", got.Name)
	assert.True(t, got.UpdatedAt.After(first))
	assert.Equal(t, sess.UpdatedAt, got.UpdatedAt)
	assert.False(t, got.UpdatedAt.Before(got.CreatedAt))
}

func TestSaveNeverLetsUpdatedAtPrecedeCreatedAt(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	future := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	sess := domain.NewSession("s1", "x", future)

	require.NoError(t, f.store.Save(ctx, sess))
	assert.Equal(t, future, sess.UpdatedAt)
}

func TestSaveRequiresID(t *testing.T) {
	f := newFixture(t)
	assert.Error(t, f.store.Save(context.Background(), &domain.Session{}))
	assert.Error(t, f.store.Save(context.Background(), nil))
}

func TestGetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t, "s1", "x")

	got, ok := f.store.Get(ctx, "s1")
	require.True(t, ok)
	got.Name = "mutated"

	again, _ := f.store.Get(ctx, "s1")
	assert.Equal(t, "x", again.Name)

	_, ok = f.store.Get(ctx, "absent")
	assert.False(t, ok)
}

func TestDeleteIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t, "s1", "x")
	before, err := f.kv.Get(ctx, SessionsKey)
	require.NoError(t, err)

	require.NoError(t, f.store.Delete(ctx, "absent"))
	after, err := f.kv.Get(ctx, SessionsKey)
	require.NoError(t, err)
	assert.Equal(t, before, after, "deleting an absent id must not touch the collection")

	require.NoError(t, f.store.Delete(ctx, "s1"))
	require.NoError(t, f.store.Delete(ctx, "s1"))
	assert.Empty(t, f.store.ListAll(ctx))
}

func TestCorruptCollectionReadsAsEmpty(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.kv.Set(ctx, SessionsKey, []byte("{not json")))

	assert.Empty(t, f.store.ListAll(ctx))
	_, ok := f.store.Get(ctx, "s1")
	assert.False(t, ok)
	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.CorruptReads))

	// A write after corruption replaces it with a valid collection.
	f.seed(t, "s1", "recovered")
	assert.Len(t, f.store.ListAll(ctx), 1)
}

// failingKV fails every call.
type failingKV struct{ *MemoryKV }

func (*failingKV) Get(context.Context, string) ([]byte, error) { return nil, errors.New("io error") }
func (*failingKV) Set(context.Context, string, []byte) error   { return errors.New("io error") }

func TestBackendFailures(t *testing.T) {
	ctx := context.Background()
	m := metrics.New()
	s := NewSessionStore(&failingKV{MemoryKV: NewMemoryKV()}, WithMetrics(m))

	assert.Empty(t, s.ListAll(ctx))
	err := s.Save(ctx, domain.NewSession("s1", "x", time.Now()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read sessions")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SessionWrites.WithLabelValues("save", "error")))
}

// flakyKV fails the next failGets reads and passes everything else through.
type flakyKV struct {
	*MemoryKV
	failGets int
}

func (f *flakyKV) Get(ctx context.Context, key string) ([]byte, error) {
	if f.failGets > 0 {
		f.failGets--
		return nil, errors.New("database is locked")
	}
	return f.MemoryKV.Get(ctx, key)
}

func TestWritesRefuseUnreadableCollection(t *testing.T) {
	ctx := context.Background()
	kv := &flakyKV{MemoryKV: NewMemoryKV()}
	s := NewSessionStore(kv, WithMetrics(metrics.New()))
	for _, id := range []string{"s1", "s2", "s3"} {
		require.NoError(t, s.Save(ctx, domain.NewSession(id, id, time.Now())))
	}

	kv.failGets = 1
	s4 := domain.NewSession("s4", "s4", time.Now())
	err := s.Save(ctx, s4)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database is locked")
	assert.Len(t, s.ListAll(ctx), 3)

	kv.failGets = 1
	require.Error(t, s.Delete(ctx, "s1"))
	assert.Len(t, s.ListAll(ctx), 3)

	kv.failGets = 1
	_, err = s.Import(ctx, []byte(`{"id":"x","name":"imported"}`))
	require.Error(t, err)
	assert.Len(t, s.ListAll(ctx), 3)

	require.NoError(t, s.Save(ctx, s4))
	assert.Len(t, s.ListAll(ctx), 4)
}

func TestExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sess := domain.NewSession("S1", "Audit 1", f.clock.Now())
	conf := 80
	sess.ModelAResults = []domain.Finding{{ID: "a1", Title: "SQLi", Severity: domain.SeverityHigh, Confidence: &conf}}
	sess.ModelBResults = []domain.Finding{{ID: "b1", Title: "XSS", Severity: domain.SeverityLow}}
	v := domain.NewValidation("a1")
	v.Status = domain.StatusConfirmed
	sess.PutValidation(v)
	sess.RecomputeProgress()
	require.NoError(t, f.store.Save(ctx, sess))

	data, ok := f.store.Export(ctx, "S1")
	require.True(t, ok)
	assert.Contains(t, string(data), "\n  \"id\": \"S1\"")

	imported, err := f.store.Import(ctx, data)
	require.NoError(t, err)
	assert.NotEqual(t, "S1", imported.ID)
	assert.Equal(t, "imp-1", imported.ID)
	assert.Equal(t, sess.Name, imported.Name)
	assert.Equal(t, sess.ModelAResults, imported.ModelAResults)
	assert.Equal(t, sess.ModelBResults, imported.ModelBResults)
	assert.Equal(t, sess.Validations, imported.Validations)
	assert.Equal(t, sess.Progress, imported.Progress)
	assert.True(t, imported.UpdatedAt.After(sess.UpdatedAt))

	assert.Len(t, f.store.ListAll(ctx), 2)
	original, ok := f.store.Get(ctx, "S1")
	require.True(t, ok)
	assert.Equal(t, "Audit 1", original.Name)
}

func TestExportAbsent(t *testing.T) {
	f := newFixture(t)
	_, ok := f.store.Export(context.Background(), "nope")
	assert.False(t, ok)
}

func TestImportToleratesUnknownFieldsAndRepairs(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	raw := map[string]any{
		"id":            "S1",
		"name":          "legacy",
		"futureField":   map[string]any{"x": 1},
		"modelAResults": []any{map[string]any{"id": "a1", "title": "t", "severity": "high", "extra": true}},
		"validations": []any{
			map[string]any{"findingId": "a1", "status": "confirmed", "accuracy": 2},
			map[string]any{"findingId": "a1", "status": "confirmed", "accuracy": 4},
			map[string]any{"findingId": "a2", "status": "pending"},
		},
		"progress": map[string]any{"totalFindings": 99},
	}
	data, err := json.Marshal(raw)
	require.NoError(t, err)

	sess, err := f.store.Import(ctx, data)
	require.NoError(t, err)

	assert.Equal(t, "legacy", sess.Name)
	assert.NotNil(t, sess.ModelBResults)
	require.Len(t, sess.Validations, 1)
	assert.Equal(t, 4, sess.Validations[0].Accuracy)
	assert.Equal(t, domain.Progress{TotalFindings: 1, ValidatedFindings: 1, ConfirmedFindings: 1}, sess.Progress)
	assert.False(t, sess.UpdatedAt.Before(sess.CreatedAt))
}

func TestImportRejectsInvalidJSON(t *testing.T) {
	f := newFixture(t)
	_, err := f.store.Import(context.Background(), []byte("nope"))
	assert.Error(t, err)
	assert.Empty(t, f.store.ListAll(context.Background()))
}

func TestSessionStoreOverEveryBackend(t *testing.T) {
	ctx := context.Background()
	for name, kv := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := NewSessionStore(kv, WithMetrics(metrics.New()))
			require.NoError(t, s.Save(ctx, domain.NewSession("s1", "one", time.Now())))
			require.NoError(t, s.Save(ctx, domain.NewSession("s2", "two", time.Now())))

			got, ok := s.Get(ctx, "s2")
			require.True(t, ok)
			assert.Equal(t, "two", got.Name)

			require.NoError(t, s.Delete(ctx, "s1"))
			all := s.ListAll(ctx)
			require.Len(t, all, 1)
			assert.Equal(t, "s2", all[0].ID)
		})
	}
}

func TestNewIDUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := NewID()
		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
	_, err := ulid.Parse(NewID())
	assert.NoError(t, err)
}

var (
	_ store.KV = (*failingKV)(nil)
	_ store.KV = (*flakyKV)(nil)
)
