package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joss/seccompare/internal/domain"
	"github.com/joss/seccompare/internal/metrics"
	"github.com/joss/seccompare/internal/session"
	"github.com/joss/seccompare/internal/storage"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestJSONParserShapes(t *testing.T) {
	p := NewJSONParser()
	assert.Equal(t, []string{".json"}, p.Extensions())

	arr, err := p.Parse("a.json", []byte(`[{"id":"f1","title":"SQLi","severity":"high","confidence":90}]`))
	require.NoError(t, err)
	require.Len(t, arr, 1)
	assert.Equal(t, "SQLi", arr[0].Title)
	require.NotNil(t, arr[0].Confidence)
	assert.Equal(t, 90, *arr[0].Confidence)

	obj, err := p.Parse("b.json", []byte(`{"findings":[{"id":"f2","title":"XSS","severity":"low"}],"model":"x"}`))
	require.NoError(t, err)
	require.Len(t, obj, 1)
	assert.Equal(t, "f2", obj[0].ID)

	empty, err := p.Parse("c.json", []byte("  \n"))
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = p.Parse("d.json", []byte(`{"findings":`))
	assert.ErrorContains(t, err, "d.json")
}

func TestYAMLParserShapes(t *testing.T) {
	p := NewYAMLParser()

	seq, err := p.Parse("a.yaml", []byte(`
- id: f1
  title: Path traversal
  severity: medium
  cweId: CWE-22
  mitigations: [canonicalize paths]
  createdAt: 2025-01-02T03:04:05Z
`))
	require.NoError(t, err)
	require.Len(t, seq, 1)
	assert.Equal(t, "CWE-22", seq[0].CWEID)
	assert.Equal(t, []string{"canonicalize paths"}, seq[0].Mitigations)
	assert.Equal(t, time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC), seq[0].CreatedAt.UTC())

	mapping, err := p.Parse("b.yml", []byte("findings:\n  - id: f2\n    title: CSRF\n    severity: low\n"))
	require.NoError(t, err)
	require.Len(t, mapping, 1)

	_, err = p.Parse("c.yaml", []byte("just a string"))
	assert.Error(t, err)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	assert.True(t, r.CanParse("x.json"))
	assert.True(t, r.CanParse("x.YAML"))
	assert.True(t, r.CanParse("x.yml"))
	assert.False(t, r.CanParse("x.txt"))

	_, err := r.ParseFile("x.txt")
	assert.ErrorContains(t, err, "unsupported")
}

func TestExpand(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "runs/1/a.json", "[]")
	b := writeFile(t, dir, "runs/2/b.json", "[]")
	writeFile(t, dir, "runs/2/notes.txt", "")

	files, err := Expand(filepath.Join(dir, "runs", "**", "*.json"))
	require.NoError(t, err)
	assert.Equal(t, []string{a, b}, files)

	files, err = Expand(a, filepath.Join(dir, "runs", "*", "*.json"))
	require.NoError(t, err)
	assert.Equal(t, []string{a, b}, files)

	_, err = Expand(filepath.Join(dir, "nothing", "*.json"))
	assert.Error(t, err)
}

func newIngester(t *testing.T) (*Ingester, *session.Manager) {
	t.Helper()
	st := storage.NewSessionStore(storage.NewMemoryKV(), storage.WithMetrics(metrics.New()))
	mgr := session.NewManager(st, session.OrphanRetain)
	ing := NewIngester(mgr)
	n := 0
	ing.newID = func() string {
		n++
		return fmt.Sprintf("gen-%d", n)
	}
	ing.now = func() time.Time { return time.Date(2025, 5, 5, 0, 0, 0, 0, time.UTC) }
	return ing, mgr
}

func TestLoadFillsDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.json", `[{"title":"No id","severity":"HIGH"},{"id":"x","title":"Has id","severity":"low","modelSource":"other"}]`)
	ing, _ := newIngester(t)

	stats := &Stats{}
	got, err := ing.Load(Source{ModelID: "model-a", Patterns: []string{path}}, stats)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "gen-1", got[0].ID)
	assert.Equal(t, domain.SeverityHigh, got[0].Severity)
	assert.Equal(t, "model-a", got[0].ModelSource)
	assert.Equal(t, time.Date(2025, 5, 5, 0, 0, 0, 0, time.UTC), got[0].CreatedAt)
	assert.Equal(t, "other", got[1].ModelSource)
	assert.Equal(t, 1, stats.Files)
	assert.Equal(t, 1, stats.Generated)
}

func TestLoadRejectsBadFindings(t *testing.T) {
	dir := t.TempDir()
	ing, _ := newIngester(t)

	bad := writeFile(t, dir, "bad.json", `[{"id":"f1","title":"x","severity":"critical"}]`)
	_, err := ing.Load(Source{Patterns: []string{bad}}, nil)
	assert.ErrorContains(t, err, "finding 1")
	assert.ErrorContains(t, err, "severity")

	dupA := writeFile(t, dir, "dup1.json", `[{"id":"f1","title":"x","severity":"low"}]`)
	dupB := writeFile(t, dir, "dup2.yaml", "- id: f1\n  title: y\n  severity: low\n")
	_, err = ing.Load(Source{Patterns: []string{dupA, dupB}}, nil)
	assert.ErrorContains(t, err, "duplicate finding id")
}

func TestIngestReplaceAndAppend(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	ing, mgr := newIngester(t)
	sess, err := mgr.Create(ctx, "Audit 1")
	require.NoError(t, err)

	a1 := writeFile(t, dir, "a1.json", `[{"id":"a1","title":"t","severity":"high"},{"id":"a2","title":"t","severity":"low"},{"id":"a3","title":"t","severity":"low"}]`)
	b1 := writeFile(t, dir, "b1.yaml", "- {id: b1, title: t, severity: medium}\n- {id: b2, title: t, severity: medium}\n")

	updated, stats, err := ing.Ingest(ctx, sess.ID,
		Source{ModelID: "model-a", Patterns: []string{a1}},
		Source{ModelID: "model-b", Patterns: []string{b1}},
		ModeReplace)
	require.NoError(t, err)
	assert.Equal(t, 5, updated.Progress.TotalFindings)
	assert.Equal(t, "model-a", updated.ModelAID)
	assert.Equal(t, "model-b", updated.ModelBID)
	assert.Equal(t, &Stats{Files: 2, FindingsA: 3, FindingsB: 2}, stats)

	a2 := writeFile(t, dir, "a2.json", `[{"id":"a4","title":"t","severity":"high"}]`)
	updated, _, err = ing.Ingest(ctx, sess.ID, Source{Patterns: []string{a2}}, Source{}, ModeAppend)
	require.NoError(t, err)
	assert.Len(t, updated.ModelAResults, 4)
	assert.Len(t, updated.ModelBResults, 2)
	assert.Equal(t, 6, updated.Progress.TotalFindings)

	_, _, err = ing.Ingest(ctx, sess.ID, Source{Patterns: []string{a2}}, Source{}, ModeAppend)
	assert.ErrorContains(t, err, "already in session")

	updated, _, err = ing.Ingest(ctx, sess.ID, Source{Patterns: []string{a2}}, Source{}, ModeReplace)
	require.NoError(t, err)
	assert.Equal(t, 1, updated.Progress.TotalFindings)
}

func TestIngestUnknownSession(t *testing.T) {
	ing, _ := newIngester(t)
	sess, stats, err := ing.Ingest(context.Background(), "missing", Source{}, Source{}, ModeReplace)
	assert.NoError(t, err)
	assert.Nil(t, sess)
	assert.Equal(t, 0, stats.Files)
}

func TestParseTemplate(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	tmpl, err := ParseTemplate("templates/stride.yaml", []byte(`
name: STRIDE review
category: threat-modeling
content: |
  Review {{ system }} for {{threat}} threats. Focus on {{system}}.
`), now)
	require.NoError(t, err)
	assert.NotEmpty(t, tmpl.ID)
	assert.Equal(t, "STRIDE review", tmpl.Name)
	assert.Equal(t, []string{"system", "threat"}, tmpl.Variables)
	assert.Equal(t, now, tmpl.CreatedAt)
	assert.Equal(t, now, tmpl.UpdatedAt)

	named, err := ParseTemplate("dir/owasp.yml", []byte("content: check {{app}}\nvariables: [app, env]\n"), now)
	require.NoError(t, err)
	assert.Equal(t, "owasp", named.Name)
	assert.Equal(t, []string{"app", "env"}, named.Variables)

	_, err = ParseTemplate("empty.yaml", []byte("name: x\n"), now)
	assert.ErrorContains(t, err, "content is empty")
}

func TestLoadTemplateFromFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "t.yaml", "id: t1\ncontent: hello\n")
	tmpl, err := LoadTemplate(path)
	require.NoError(t, err)
	assert.Equal(t, "t1", tmpl.ID)
	assert.Equal(t, "t", tmpl.Name)

	_, err = LoadTemplate(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
