package actorutil

import (
	"errors"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/primetalk/goio/io"
)

var ErrNilTaskResult = errors.New("task result is nil")

// Done is the result of a task that only reports an error.
type Done struct{}

// SafeBackgroundTask runs a blocking function off the actor goroutine and
// delivers its result, or a recovered error value, as a message.
type SafeBackgroundTask[T any] struct {
	system  *actor.ActorSystem
	fn      func() (*T, error)
	timeout *time.Duration
	recover func(error) T
}

func NewBackgroundTaskErr(ctx actor.Context, fn func() error) *SafeBackgroundTask[Done] {
	return &SafeBackgroundTask[Done]{
		system: ctx.ActorSystem(),
		fn: func() (*Done, error) {
			if err := fn(); err != nil {
				return nil, err
			}
			return &Done{}, nil
		},
	}
}

func (t *SafeBackgroundTask[T]) WithTimeout(timeout time.Duration) *SafeBackgroundTask[T] {
	t.timeout = &timeout
	return t
}

// Recover maps a failure, including a timeout, to a deliverable value.
// Without it failures are dropped.
func (t *SafeBackgroundTask[T]) Recover(fn func(error) T) *SafeBackgroundTask[T] {
	t.recover = fn
	return t
}

// PipeTo runs the task in its own goroutine and sends the result to pid.
func (t *SafeBackgroundTask[T]) PipeTo(pid *actor.PID) {
	go func() {
		if value, ok := t.run(); ok {
			t.system.Root.Send(pid, value)
		}
	}()
}

func (t *SafeBackgroundTask[T]) run() (T, bool) {
	bgFn := io.Eval(t.fn)
	bg := io.Map(bgFn, func(a *T) T {
		if a != nil {
			return *a
		}
		panic(ErrNilTaskResult)
	})
	if t.timeout != nil {
		bg = io.WithTimeout[T](*t.timeout)(bg)
	}
	result := io.RunSync(bg)
	if result.Error != nil {
		if t.recover == nil {
			var zero T
			return zero, false
		}
		return t.recover(result.Error), true
	}
	return result.Value, true
}

func MapBackgroundTask[T, T2 any](bgt *SafeBackgroundTask[T], mapFn func(*T) *T2) *SafeBackgroundTask[T2] {
	newFn := func() (*T2, error) {
		r, err := bgt.fn()
		if err != nil {
			return nil, err
		}
		return mapFn(r), nil
	}
	return &SafeBackgroundTask[T2]{
		system: bgt.system,
		fn:     newFn,
	}
}
