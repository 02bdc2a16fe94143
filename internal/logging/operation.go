package logging

import (
	"context"

	"github.com/oklog/ulid/v2"
)

// Operation is one CLI command or TUI action. Every log line emitted while
// it runs carries its id and name.
type Operation struct {
	ID   string
	Name string
}

type operationKey struct{}

// StartOperation tags ctx with a new operation called name. The id is a
// ULID, so ids from successive invocations sort in the order they ran.
func StartOperation(ctx context.Context, name string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, operationKey{}, Operation{ID: ulid.Make().String(), Name: name})
}

// OperationFrom returns the operation ctx belongs to.
func OperationFrom(ctx context.Context) (Operation, bool) {
	if ctx == nil {
		return Operation{}, false
	}
	op, ok := ctx.Value(operationKey{}).(Operation)
	return op, ok
}
