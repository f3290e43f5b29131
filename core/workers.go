package orchestration

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
)

// watchContext calls onDone when ctx ends. The returned stop function
// detaches the watcher; it may be called more than once.
func watchContext(ctx context.Context, onDone func()) (stop func()) {
	detached := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			onDone()
		case <-detached:
		}
	}()

	var once sync.Once
	return func() { once.Do(func() { close(detached) }) }
}

type turnStage func(context.Context) error

// panicSafeStage runs one stage of a turn and converts a panic into an error
// so a misbehaving collaborator cannot take the controller down with it.
func panicSafeStage(name string, run func(context.Context) error) turnStage {
	return func(ctx context.Context) (err error) {
		defer func() {
			if recovered := recover(); recovered != nil {
				logger.ErrorContext(ctx, "turn stage panicked", "stage", name, "panic", recovered, "stack", string(debug.Stack()))
				err = fmt.Errorf("%s stage panicked: %v", name, recovered)
			}
		}()

		if err = run(ctx); err != nil {
			return fmt.Errorf("%s stage failed: %w", name, err)
		}
		return nil
	}
}
