package logging

import (
	"fmt"
	"runtime/debug"
)

// RecoveryHandler turns panics into logged errors so no single command
// can take the process down with a raw stack dump.
type RecoveryHandler struct {
	Component string
	OnPanic   func(err interface{}, stack string)
}

// NewRecoveryHandler creates a recovery handler for a component
func NewRecoveryHandler(component string) *RecoveryHandler {
	return &RecoveryHandler{
		Component: component,
	}
}

// Wrap executes fn with panic recovery
func (r *RecoveryHandler) Wrap(fn func()) {
	defer func() {
		if rec := recover(); rec != nil {
			r.handlePanic(rec, string(debug.Stack()))
		}
	}()
	fn()
}

// WrapError executes fn with panic recovery, returning error on panic
func (r *RecoveryHandler) WrapError(fn func() error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = r.handlePanic(rec, string(debug.Stack()))
		}
	}()
	return fn()
}

// handlePanic logs the panic and calls the custom handler
func (r *RecoveryHandler) handlePanic(rec interface{}, stack string) error {
	New(r.Component).Error("panic_recovered", map[string]any{
		"stack": stack,
	}, fmt.Errorf("%v", rec))

	if r.OnPanic != nil {
		r.OnPanic(rec, stack)
	}

	return fmt.Errorf("panic in %s: %v", r.Component, rec)
}

// SafeGo launches a goroutine with panic recovery
func SafeGo(component string, fn func()) {
	go NewRecoveryHandler(component).Wrap(fn)
}
