package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/joss/seccompare/internal/domain"
	"github.com/joss/seccompare/internal/render"
	"github.com/joss/seccompare/internal/store"
)

// exitOnError prints err to stderr and exits.
func exitOnError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// review returns a renderer writing to w.
func review(w io.Writer) *render.Review {
	return render.NewReview(render.NewWriter(w), pretty)
}

// requireSession looks up a session, failing with a not-found error.
// The core treats unknown ids as no-ops; the CLI reports them.
func requireSession(ctx context.Context, id string) (*domain.Session, error) {
	sess, ok := app.Sessions.Get(ctx, id)
	if !ok {
		return nil, sessionNotFound(id)
	}
	return sess, nil
}

// saveValidation writes v and returns the updated session. A session that
// vanished since it was looked up is reported as not found.
func saveValidation(ctx context.Context, sessionID string, v domain.Validation) (*domain.Session, error) {
	updated, err := app.Validations.SaveValidation(ctx, sessionID, v)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, sessionNotFound(sessionID)
	}
	return updated, nil
}

func sessionNotFound(id string) error {
	return store.NewNotFoundError("session", id)
}
