// Package async runs blocking calls on a goroutine and hands back a Future.
package async

import (
	"context"
	"fmt"
	"sync"
)

// PanicError carries a value recovered from a panicking call.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Future is the pending result of a call started with Go.
type Future[T any] struct {
	done    chan struct{}
	val     T
	err     error
	cleanup func(T)
	abandon sync.Once
}

// Go starts fn on its own goroutine. fn is expected to honor its own
// context; Future does not cancel it. A panic in fn becomes a *PanicError.
func Go[T any](fn func() (T, error)) *Future[T] {
	return GoWithCleanup(fn, nil)
}

// GoWithCleanup is Go with a release hook for results nobody will collect.
// If Await gives up before fn returns, cleanup runs on fn's value once it
// arrives, provided fn succeeded.
func GoWithCleanup[T any](fn func() (T, error), cleanup func(T)) *Future[T] {
	f := &Future[T]{done: make(chan struct{}), cleanup: cleanup}
	go func() {
		defer close(f.done)
		defer func() {
			if r := recover(); r != nil {
				var zero T
				f.val, f.err = zero, &PanicError{Value: r}
			}
		}()
		f.val, f.err = fn()
	}()
	return f
}

// Done is closed once the result is available.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the call completes.
func (f *Future[T]) Wait() (T, error) {
	<-f.done
	return f.val, f.err
}

// Await waits for the result or for ctx to end, whichever comes first.
// Giving up on the wait does not stop the call; the late result is handed
// to the cleanup hook and must not be collected afterwards.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		f.abandon.Do(func() {
			if f.cleanup == nil {
				return
			}
			go func() {
				<-f.done
				if f.err == nil {
					f.cleanup(f.val)
				}
			}()
		})
		var zero T
		return zero, ctx.Err()
	}
}
