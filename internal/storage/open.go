package storage

import (
	"fmt"

	"github.com/joss/seccompare/internal/store"
)

// OpenOptions selects and configures a backend.
type OpenOptions struct {
	Backend    string
	Path       string
	SyncWrites bool
}

// Open returns the KV backend named by opts.Backend.
func Open(opts OpenOptions) (store.KV, error) {
	switch opts.Backend {
	case store.BackendMemory:
		return NewMemoryKV(), nil
	case store.BackendSQLite:
		return OpenSQLite(opts.Path)
	case store.BackendBadger:
		return OpenBadger(BadgerConfig{Path: opts.Path, SyncWrites: opts.SyncWrites})
	}
	return nil, fmt.Errorf("%w: %q", store.ErrUnknownBackend, opts.Backend)
}
