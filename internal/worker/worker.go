// Package worker defines the lifecycle contract shared by the engine's
// long-running loops.
package worker

import (
	"context"
	"time"
)

// Runner is a long-running loop with cooperative lifecycle control. Start is
// non-blocking; Shutdown cancels the loop and waits for it to drain within
// the context deadline.
type Runner interface {
	Start() error
	Shutdown(ctx context.Context) error
	Running() bool
}

// Sleep waits for d or until the context is cancelled. Returns false when the
// wait was interrupted by cancellation.
func Sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
