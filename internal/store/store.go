// Package store provides common interfaces for data persistence.
// Every backend in seccompare implements these interfaces for consistency.
package store

import (
	"context"
)

// Store is the minimal interface all stores must implement.
type Store interface {
	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error
	// Close releases any resources held by the store.
	Close() error
}

// KV is a flat key-value backend. It plays the role a browser's local
// storage plays for a single-page app: one value per key, whole-value
// writes, last writer wins.
type KV interface {
	Store
	// Get returns the value stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}

// Backend names accepted by Open functions and configuration.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendBadger = "badger"
)

// Backends lists every supported backend name.
func Backends() []string {
	return []string{BackendMemory, BackendSQLite, BackendBadger}
}
