// Package concurrencylimiter provides the bounded worker pool spec.md §5
// requires ("a pool of worker threads bounded by configuration"). It is a
// promoted, generalized form of the teacher's root-package
// concurrency_limiter.go, rebuilt over golang.org/x/sync/semaphore's
// weighted semaphore instead of a bare channel so the pack's
// golang.org/x/sync dependency (already in the teacher's go.mod) has a
// concrete home here, per SPEC_FULL.md §11.
package concurrencylimiter

import (
	"context"

	"golang.org/x/sync/semaphore"
)

type limiterKey struct{}

type limiter struct {
	sem *semaphore.Weighted
}

// With attaches a limiter admitting at most maxConcurrent concurrently
// acquired tokens to ctx. A maxConcurrent <= 0 means unbounded.
func With(ctx context.Context, maxConcurrent int) context.Context {
	if maxConcurrent <= 0 {
		return ctx
	}
	return context.WithValue(ctx, limiterKey{}, &limiter{sem: semaphore.NewWeighted(int64(maxConcurrent))})
}

// Acquire blocks until a token is available (or ctx is done), returning a
// context to use for the guarded work and a release function that must be
// called exactly once. If ctx carries no limiter, Acquire is a no-op.
func Acquire(ctx context.Context) (context.Context, func()) {
	l, ok := ctx.Value(limiterKey{}).(*limiter)
	if !ok {
		return ctx, func() {}
	}
	if err := l.sem.Acquire(ctx, 1); err != nil {
		// ctx is already done; the caller's subsequent work will observe
		// ctx.Err() immediately, so returning a no-op release is safe.
		return ctx, func() {}
	}
	released := false
	return ctx, func() {
		if released {
			return
		}
		released = true
		l.sem.Release(1)
	}
}

// TemporarilyRelease releases the current goroutine's token for the
// duration of f, re-acquiring it before returning. Use this around a
// suspension point (spec.md §5) so a resolver that blocks on a sibling
// doesn't hold a worker slot idle.
func TemporarilyRelease(ctx context.Context, f func()) {
	l, ok := ctx.Value(limiterKey{}).(*limiter)
	if !ok {
		f()
		return
	}
	l.sem.Release(1)
	defer l.sem.Acquire(context.Background(), 1)
	f()
}
