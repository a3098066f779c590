package trigger

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestOnceRunsWhenReady(t *testing.T) {
	calls := 0
	err := Once(context.Background(), Ready(), 0, func(context.Context) { calls++ })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestOnceNilReady(t *testing.T) {
	calls := 0
	if err := Once(context.Background(), nil, 0, func(context.Context) { calls++ }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestWaitHonoursDelay(t *testing.T) {
	start := time.Now()
	if err := Wait(context.Background(), Ready(), 30*time.Millisecond); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Errorf("returned after %s, expected at least 30ms", elapsed)
	}
}

func TestWaitBlocksUntilReady(t *testing.T) {
	ready := make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- Wait(context.Background(), ready, 0) }()

	select {
	case <-done:
		t.Fatal("Wait returned before ready was closed")
	case <-time.After(20 * time.Millisecond):
	}

	close(ready)
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after ready was closed")
	}
}

func TestOnceCancelled(t *testing.T) {
	tests := []struct {
		name  string
		ready <-chan struct{}
		delay time.Duration
	}{
		{name: "never ready", ready: make(chan struct{}), delay: 0},
		{name: "during delay", ready: Ready(), delay: time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
			defer cancel()

			called := false
			err := Once(ctx, tt.ready, tt.delay, func(context.Context) { called = true })
			if !errors.Is(err, context.DeadlineExceeded) {
				t.Errorf("expected deadline exceeded, got %v", err)
			}
			if called {
				t.Error("fn must not run after cancellation")
			}
		})
	}
}
