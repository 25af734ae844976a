package clone

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/melih-ucgun/clonectl/internal/core"
	"github.com/melih-ucgun/clonectl/internal/redfish"
)

// PostState values that mean the system finished booting.
var postComplete = map[string]bool{
	"FinishedPost":            true,
	"InPostDiscoveryComplete": true,
}

// Waiter polls the controller after a reset at a constant interval until a
// maximum duration runs out. The first attempt is made one interval after
// the wait starts.
type Waiter struct {
	Client   redfish.Client
	Logger   core.Logger
	Interval time.Duration
}

func (w *Waiter) poll(ctx context.Context, what string, max time.Duration, op func() error) error {
	logger := w.Logger
	if logger == nil {
		logger = core.NopLogger{}
	}
	// First attempt one interval after the reset request.
	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrCancelled, ctx.Err())
	case <-time.After(w.Interval):
	}

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, op()
	},
		backoff.WithBackOff(backoff.NewConstantBackOff(w.Interval)),
		backoff.WithMaxElapsedTime(max),
		backoff.WithNotify(func(err error, next time.Duration) {
			logger.Debug("Waiting for "+what, "error", err, "retry_in", next)
		}),
	)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return fmt.Errorf("%w: %v", ErrCancelled, ctx.Err())
	}
	if errors.Is(err, redfish.ErrNotFound) {
		return err
	}
	return fmt.Errorf("%w: %s after %s: %v", ErrTimeout, what, max, err)
}

// Reconnect re-establishes the session after a controller reset. Each
// attempt opens a new session; only running out of time is fatal.
func (w *Waiter) Reconnect(ctx context.Context, max time.Duration) error {
	return w.poll(ctx, "controller", max, func() error {
		return w.Client.Reconnect(ctx)
	})
}

// PostState waits until the system at path has left its transitional boot
// states.
func (w *Waiter) PostState(ctx context.Context, path string, max time.Duration) error {
	return w.poll(ctx, "system boot", max, func() error {
		t, err := w.Client.Read(ctx, path)
		if err != nil {
			if errors.Is(err, redfish.ErrNotFound) {
				return backoff.Permanent(err)
			}
			return err
		}
		state := t.GetString("Oem", "Hpe", "PostState")
		if !postComplete[state] {
			return fmt.Errorf("post state %q", state)
		}
		return nil
	})
}
