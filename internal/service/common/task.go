//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"fmt"
)

// Task is the handle of an operation running on its own goroutine.
type Task[T any] struct {
	cancel context.CancelFunc
	done   chan struct{}
	result T
	err    error
}

// Go runs fn on a new goroutine with a cancellable child of ctx. A panic in fn is
// turned into the task error.
func Go[T any](ctx context.Context, fn func(context.Context) (T, error)) *Task[T] {
	ctx, cancel := context.WithCancel(ctx)

	t := &Task[T]{
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go func() {
		defer close(t.done)
		defer cancel()
		defer func() {
			if r := recover(); r != nil {
				t.err = fmt.Errorf("task panicked: %v", r)
			}
		}()

		t.result, t.err = fn(ctx)
	}()

	return t
}

// Done is closed when the operation has finished.
func (t *Task[T]) Done() <-chan struct{} {
	return t.done
}

// Cancel asks the operation to stop. It does not wait.
func (t *Task[T]) Cancel() {
	t.cancel()
}

// Wait blocks until the operation finishes or ctx ends. Ending ctx does not cancel the
// operation; call Cancel for that.
func (t *Task[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-t.done:
		return t.result, t.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
