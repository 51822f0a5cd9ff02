package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// effects runs best-effort work that decorates an already committed
// operation. Failures and panics are logged and never reach the caller.
type effects struct {
	logger *slog.Logger
	async  bool
	wg     sync.WaitGroup
}

// run executes fn inline.
func (e *effects) run(ctx context.Context, name string, fn func(context.Context) error, attrs ...any) {
	if err := e.guard(ctx, fn); err != nil {
		e.logger.ErrorContext(ctx, "side effect failed", append([]any{"effect", name, "error", err}, attrs...)...)
	}
}

// spawn executes fn on its own goroutine when async is enabled, inline
// otherwise. The goroutine outlives request cancellation.
func (e *effects) spawn(ctx context.Context, name string, fn func(context.Context) error, attrs ...any) {
	if !e.async {
		e.run(ctx, name, fn, attrs...)
		return
	}
	ctx = context.WithoutCancel(ctx)
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.run(ctx, name, fn, attrs...)
	}()
}

func (e *effects) guard(ctx context.Context, fn func(context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(ctx)
}

// wait blocks until spawned effects have finished.
func (e *effects) wait() {
	e.wg.Wait()
}
