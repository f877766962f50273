package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// WithTimeout bounds fn by timeout. fn must honour its context. A deadline
// hit is reported as context.DeadlineExceeded naming the operation; parent
// cancellation is passed through unchanged.
func WithTimeout(ctx context.Context, timeout time.Duration, name string, fn func(ctx context.Context) error) error {
	if timeout <= 0 {
		return fn(ctx)
	}
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := fn(timeoutCtx)
	if err == nil || ctx.Err() != nil {
		return err
	}
	if errors.Is(timeoutCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w (limit: %v)", name, context.DeadlineExceeded, timeout)
	}
	return err
}
