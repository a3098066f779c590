// Package trigger fires one-shot work once a readiness condition holds.
package trigger

import (
	"context"
	"time"
)

// Ready returns an already-closed readiness channel.
func Ready() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

// Wait blocks until ready is closed and then for delay. A nil ready channel
// counts as ready. Returns ctx.Err() if ctx ends first.
func Wait(ctx context.Context, ready <-chan struct{}, delay time.Duration) error {
	if ready != nil {
		select {
		case <-ready:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Once runs fn exactly once after Wait succeeds. fn is not called when ctx
// ends before the trigger fires.
func Once(ctx context.Context, ready <-chan struct{}, delay time.Duration, fn func(context.Context)) error {
	if err := Wait(ctx, ready, delay); err != nil {
		return err
	}
	fn(ctx)
	return nil
}
