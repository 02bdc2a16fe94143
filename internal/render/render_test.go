package render

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"

	"github.com/joss/seccompare/internal/domain"
	"github.com/joss/seccompare/internal/validation"
)

func init() {
	color.NoColor = true
}

func sample() *domain.Session {
	s := domain.NewSession("01HX", "Audit 1", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	s.ModelAID = "model-a"
	s.ModelAResults = []domain.Finding{
		{ID: "f1", Title: "SQL injection in login", Severity: domain.SeverityHigh},
		{ID: "f2", Title: "Verbose errors", Severity: domain.SeverityLow},
	}
	s.ModelBResults = []domain.Finding{{ID: "g1", Title: "Weak hashing", Severity: domain.SeverityMedium}}
	v := domain.NewValidation("f1")
	v.Status = domain.StatusConfirmed
	v.Notes = "reproduced"
	s.PutValidation(v)
	gone := domain.NewValidation("old")
	gone.Status = domain.StatusNeedsReview
	s.PutValidation(gone)
	s.RecomputeProgress()
	return s
}

func TestProgressBar(t *testing.T) {
	assert.Equal(t, "░░░░░░░░░░", ProgressBar(0, 10))
	assert.Equal(t, "█████░░░░░", ProgressBar(50, 10))
	assert.Equal(t, "██████████", ProgressBar(150, 10))
	assert.Equal(t, "", ProgressBar(50, 0))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "abcdefg...", Truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "ab", Truncate("abcdef", 2))
	assert.Equal(t, "ééé...", Truncate("éééééééé", 6))
}

func TestIcons(t *testing.T) {
	assert.Equal(t, "✓", StatusIcon(domain.StatusConfirmed))
	assert.Equal(t, "✗", StatusIcon(domain.StatusFalsePositive))
	assert.Equal(t, "•", StatusIcon(domain.StatusPending))
	assert.Equal(t, "●", SeverityIcon(domain.SeverityHigh))
	assert.Equal(t, "•", SeverityIcon("unknown"))
}

func TestSessionsPlain(t *testing.T) {
	r := New(false)
	assert.Equal(t, "No sessions found", r.Sessions(nil))

	out := r.Sessions([]*domain.Session{sample()})
	assert.True(t, strings.HasPrefix(out, "01HX\tAudit 1\t2/3\t"))
}

func TestSessionsPretty(t *testing.T) {
	out := New(true).Sessions([]*domain.Session{sample()})
	assert.Contains(t, out, "Review Sessions")
	assert.Contains(t, out, "67% 2/3")
}

func TestProgressPlain(t *testing.T) {
	out := New(false).Progress(domain.ComputeProgressView(sample()))
	assert.Equal(t, "total=3 validated=2 confirmed=1 false_positives=0 needs_review=1 percent=66.7\n", out)
}

func TestReviewSession(t *testing.T) {
	var buf bytes.Buffer
	NewReview(NewWriter(&buf), false).Session(sample())
	out := buf.String()

	assert.Contains(t, out, "SESSION AUDIT 1")
	assert.Contains(t, out, "Model A:  model-a")
	assert.Contains(t, out, "Model B:  -")
	assert.Contains(t, out, "MODEL A FINDINGS (MODEL-A):")
	assert.Contains(t, out, "SQL injection in login  confirmed")
	assert.Contains(t, out, "Weak hashing  pending")
	assert.Contains(t, out, "ORPHANED VALIDATIONS:")
}

func TestReviewValidations(t *testing.T) {
	var buf bytes.Buffer
	rv := NewReview(NewWriter(&buf), false)
	rv.Validations(nil)
	assert.Equal(t, "No validations recorded\n", buf.String())

	buf.Reset()
	rv.Validations(sample().Validations)
	assert.Contains(t, buf.String(), "VALIDATIONS (2)")
	assert.Contains(t, buf.String(), "confirmed f1  acc=3 comp=3 rel=3 act=3")
	assert.Contains(t, buf.String(), "└─ reproduced")
}

func TestReviewStats(t *testing.T) {
	var buf bytes.Buffer
	NewReview(NewWriter(&buf), false).Stats(validation.ComputeStats(sample()))
	out := buf.String()
	assert.Contains(t, out, "Validated:       2")
	assert.Contains(t, out, "confirmed:       1")
	assert.Contains(t, out, "Orphaned:        1")
	assert.Contains(t, out, "accuracy:      3.00")
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "250ms", FormatDuration(250*time.Millisecond))
	assert.Equal(t, "1.5s", FormatDuration(1500*time.Millisecond))
	assert.Equal(t, "2m5s", FormatDuration(125*time.Second))
}

func TestReviewFinding(t *testing.T) {
	conf := 80
	f := domain.Finding{
		ID: "f9", Title: "Open redirect", Severity: domain.SeverityMedium,
		ModelSource: "model-a", CWEID: "CWE-601", Confidence: &conf,
		Description: "next parameter is not checked",
		Mitigations: []string{"allow-list redirect targets"},
	}

	var buf bytes.Buffer
	NewReview(NewWriter(&buf), false).Finding(f, domain.SideA, domain.NewValidation("f9"))
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "FINDING F9\n"))
	assert.Contains(t, out, "Model:       model-a (A)")
	assert.Contains(t, out, "CWE:         CWE-601")
	assert.Contains(t, out, "Confidence:  80%")
	assert.Contains(t, out, "Status:      pending")
	assert.Contains(t, out, "MITIGATIONS:\n  allow-list redirect targets\n")
}
