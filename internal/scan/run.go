package scan

import (
	"context"
	"fmt"
	"time"
)

// StageFunc performs the work of one stage.
type StageFunc[T any] func(ctx context.Context) (T, error)

// Run executes fn under its own deadline and folds every result into an
// Outcome: nothing fn does, including panicking or overrunning its budget,
// escapes as an error. isEmpty decides whether a successful payload counts
// as "no findings"; a nil isEmpty treats every payload as data.
//
// fn runs on its own goroutine so that a stage ignoring cancellation still
// yields a Timeout outcome on time. The parent ctx is never cancelled here,
// so sibling stages are unaffected.
func Run[T any](ctx context.Context, stage Stage, timeout time.Duration, fn StageFunc[T], isEmpty func(T) bool) Outcome[T] {
	start := time.Now()

	stageCtx := ctx
	cancel := context.CancelFunc(func() {})
	if timeout > 0 {
		stageCtx, cancel = context.WithTimeout(ctx, timeout)
	}
	defer cancel()

	type result struct {
		payload T
		err     error
	}
	done := make(chan result, 1)

	go func() {
		var r result
		defer func() {
			if p := recover(); p != nil {
				r = result{err: Errorf(ReasonToolExecutionError, "panic: %v", p)}
			}
			done <- r
		}()
		r.payload, r.err = fn(stageCtx)
	}()

	var out Outcome[T]
	select {
	case r := <-done:
		out = fold(stage, stageCtx, r.payload, r.err, isEmpty)
	case <-stageCtx.Done():
		reason := ReasonTimeout
		if stageCtx.Err() != context.DeadlineExceeded {
			reason = ReasonCancelled
		}
		out = Failed[T](stage, reason, timeoutDetail(stageCtx, timeout))
	}
	out.Elapsed = time.Since(start)
	return out
}

func fold[T any](stage Stage, ctx context.Context, payload T, err error, isEmpty func(T) bool) Outcome[T] {
	if err != nil {
		reason := Classify(err)
		// A killed process reports a plain exit error; the deadline is the real cause.
		if ctx.Err() == context.DeadlineExceeded {
			reason = ReasonTimeout
		}
		return Failed[T](stage, reason, err.Error())
	}
	if isEmpty != nil && isEmpty(payload) {
		return Empty(stage, payload)
	}
	return Success(stage, payload)
}

func timeoutDetail(ctx context.Context, timeout time.Duration) string {
	if ctx.Err() == context.DeadlineExceeded {
		return fmt.Sprintf("stage exceeded its %s budget", timeout)
	}
	return fmt.Sprintf("stage cancelled: %v", context.Cause(ctx))
}

// IsEmpty is the isEmpty predicate for slice-shaped payloads.
func IsEmpty[E any](s []E) bool { return len(s) == 0 }
