package session

import (
	"github.com/sahilm/fuzzy"

	"github.com/joss/seccompare/internal/domain"
)

// sessionNames adapts a session slice to fuzzy.Source.
type sessionNames []*domain.Session

func (s sessionNames) String(i int) string { return s[i].Name }
func (s sessionNames) Len() int            { return len(s) }

// Filter returns the sessions whose name fuzzy-matches query, best match
// first. An empty query returns sessions unchanged.
func Filter(sessions []*domain.Session, query string) []*domain.Session {
	if query == "" {
		return sessions
	}
	matches := fuzzy.FindFrom(query, sessionNames(sessions))
	out := make([]*domain.Session, 0, len(matches))
	for _, m := range matches {
		out = append(out, sessions[m.Index])
	}
	return out
}
