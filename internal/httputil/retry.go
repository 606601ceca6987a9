// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides the retry policy shared by the pipeline stages.
package httputil

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrExhausted is wrapped by the error Do returns after the last attempt fails.
var ErrExhausted = errors.New("retries exhausted")

const defaultMaxAttempts = 3

// SleepFunc pauses for d. It returns early with ctx.Err() when ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// ContextSleep is the default SleepFunc backed by a timer.
func ContextSleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// RetryPolicy runs an operation up to MaxAttempts times with a fixed Delay
// between attempts. There is no backoff and no pause after the final attempt.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts, not the number of
	// retries. Zero means 3.
	MaxAttempts int

	// Delay is the fixed pause between attempts.
	Delay time.Duration

	// Sleep performs the pause. Tests replace it to avoid real waits.
	// Nil means ContextSleep.
	Sleep SleepFunc

	// OnFailure, when set, is called after every failed attempt with the
	// 1-based attempt number. last reports whether no attempt follows.
	OnFailure func(attempt int, last bool, err error)
}

// Attempts returns the effective attempt bound.
func (p RetryPolicy) Attempts() int {
	if p.MaxAttempts <= 0 {
		return defaultMaxAttempts
	}
	return p.MaxAttempts
}

// Do calls op until it succeeds or the attempt bound is reached. The
// attempt number passed to op starts at 1. When every attempt fails the
// returned error wraps both ErrExhausted and the last failure. A cancelled
// context stops the loop with ctx.Err().
func (p RetryPolicy) Do(ctx context.Context, op func(ctx context.Context, attempt int) error) error {
	attempts := p.Attempts()
	sleep := p.Sleep
	if sleep == nil {
		sleep = ContextSleep
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := op(ctx, attempt)
		if err == nil {
			return nil
		}
		lastErr = err

		last := attempt == attempts
		if p.OnFailure != nil {
			p.OnFailure(attempt, last, err)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if last {
			break
		}
		if err := sleep(ctx, p.Delay); err != nil {
			return err
		}
	}
	return fmt.Errorf("%w after %d attempts: %w", ErrExhausted, attempts, lastErr)
}
