package aggregator

import (
	"context"
	"time"
)

// overrunGrace is how long a call may outlive its timeout before the cycle
// stops waiting for it and records the fallback value instead.
const overrunGrace = 25 * time.Millisecond

// settle runs call with a deadline of timeout and always returns within
// timeout+overrunGrace. A call that panics or overruns yields fallback().
func settle[T any](ctx context.Context, timeout time.Duration, call func(context.Context) T, fallback func() T) T {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan T, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fallback()
			}
		}()
		done <- call(callCtx)
	}()

	timer := time.NewTimer(timeout + overrunGrace)
	defer timer.Stop()

	select {
	case v := <-done:
		return v
	case <-timer.C:
		return fallback()
	}
}
