package ingest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joss/seccompare/internal/domain"
	"github.com/joss/seccompare/internal/logging"
	"github.com/joss/seccompare/internal/session"
)

// Sessions is the lifecycle surface findings are ingested through.
type Sessions interface {
	Get(ctx context.Context, id string) (*domain.Session, bool)
	Update(ctx context.Context, id string, p session.Patch) (*domain.Session, error)
	UpdateFindings(ctx context.Context, id string, a, b []domain.Finding) (*domain.Session, error)
}

// Mode decides how loaded findings combine with the session's current ones.
type Mode string

const (
	// ModeReplace swaps both result sequences for the loaded ones.
	ModeReplace Mode = "replace"
	// ModeAppend adds the loaded findings as a new generation round.
	ModeAppend Mode = "append"
)

// Source names one model and the files holding its findings.
type Source struct {
	ModelID  string
	Patterns []string
}

// Stats tracks ingestion statistics.
type Stats struct {
	Files     int `json:"files"`
	FindingsA int `json:"findingsA"`
	FindingsB int `json:"findingsB"`
	Generated int `json:"generatedIds"`
}

// Ingester loads findings files into sessions.
type Ingester struct {
	sessions Sessions
	registry *Registry
	now      func() time.Time
	newID    func() string
	log      *logging.Logger
}

// NewIngester creates a findings ingester.
func NewIngester(sessions Sessions) *Ingester {
	return &Ingester{
		sessions: sessions,
		registry: NewRegistry(),
		now:      time.Now,
		newID:    uuid.NewString,
		log:      logging.New("ingest"),
	}
}

// Registry returns the parser registry, for registering extra formats.
func (i *Ingester) Registry() *Registry {
	return i.registry
}

// Load reads every file named by src and returns the prepared findings.
// Missing ids get a UUID, missing modelSource the source's model id and
// missing createdAt the current time. Every finding is checked.
func (i *Ingester) Load(src Source, stats *Stats) ([]domain.Finding, error) {
	if stats == nil {
		stats = &Stats{}
	}
	files, err := Expand(src.Patterns...)
	if err != nil {
		return nil, err
	}

	out := []domain.Finding{}
	seen := make(map[string]string)
	now := i.now()
	for _, path := range files {
		findings, err := i.registry.ParseFile(path)
		if err != nil {
			return nil, err
		}
		stats.Files++

		for n, f := range findings {
			if f.ID == "" {
				f.ID = i.newID()
				stats.Generated++
			}
			if f.ModelSource == "" {
				f.ModelSource = src.ModelID
			}
			if f.CreatedAt.IsZero() {
				f.CreatedAt = now
			}
			f.Severity = domain.Severity(strings.ToLower(string(f.Severity)))

			if err := domain.CheckFinding(f); err != nil {
				return nil, fmt.Errorf("%s: finding %d: %w", path, n+1, err)
			}
			if prev, dup := seen[f.ID]; dup {
				return nil, fmt.Errorf("%s: duplicate finding id %q (first seen in %s)", path, f.ID, prev)
			}
			seen[f.ID] = path
			out = append(out, f)
		}
	}
	return out, nil
}

// Ingest loads both sources and writes them to the session. With
// ModeAppend the loaded findings extend the current sequences. Model ids
// given in the sources are recorded on the session. An unknown session is
// a no-op returning a nil session.
func (i *Ingester) Ingest(ctx context.Context, sessionID string, a, b Source, mode Mode) (*domain.Session, *Stats, error) {
	start := time.Now()
	stats := &Stats{}

	sess, ok := i.sessions.Get(ctx, sessionID)
	if !ok {
		return nil, stats, nil
	}

	loadedA, err := i.Load(a, stats)
	if err != nil {
		return nil, stats, err
	}
	loadedB, err := i.Load(b, stats)
	if err != nil {
		return nil, stats, err
	}
	stats.FindingsA = len(loadedA)
	stats.FindingsB = len(loadedB)

	if mode == ModeAppend {
		if err := checkCollisions(sess.ModelAResults, loadedA); err != nil {
			return nil, stats, fmt.Errorf("model A: %w", err)
		}
		if err := checkCollisions(sess.ModelBResults, loadedB); err != nil {
			return nil, stats, fmt.Errorf("model B: %w", err)
		}
		loadedA = append(append([]domain.Finding{}, sess.ModelAResults...), loadedA...)
		loadedB = append(append([]domain.Finding{}, sess.ModelBResults...), loadedB...)
	}

	if a.ModelID != "" || b.ModelID != "" {
		patch := session.Patch{}
		if a.ModelID != "" {
			patch.ModelAID = &a.ModelID
		}
		if b.ModelID != "" {
			patch.ModelBID = &b.ModelID
		}
		if _, err := i.sessions.Update(ctx, sessionID, patch); err != nil {
			return nil, stats, err
		}
	}

	updated, err := i.sessions.UpdateFindings(ctx, sessionID, loadedA, loadedB)
	if err != nil {
		return nil, stats, err
	}

	i.log.WithContext(ctx).WithSession(sessionID).TimedEvent("findings_ingested", start, map[string]any{
		"files":      stats.Files,
		"findings_a": stats.FindingsA,
		"findings_b": stats.FindingsB,
		"mode":       string(mode),
	})
	return updated, stats, nil
}

func checkCollisions(existing, loaded []domain.Finding) error {
	ids := make(map[string]bool, len(existing))
	for _, f := range existing {
		ids[f.ID] = true
	}
	for _, f := range loaded {
		if ids[f.ID] {
			return fmt.Errorf("finding id %q already in session", f.ID)
		}
	}
	return nil
}
