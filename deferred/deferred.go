// Package deferred implements a typed lazy-value primitive ("Deferred")
// with three terminal states -- value, failure, and cancellation -- and a
// small composition algebra (Handle/Map/FlatMap/Recover/Combine/All) over
// it. It plays the role that a coroutine's Deferred/Job plays in the
// source system: the planner in package engine builds its dependency
// graph out of these values instead of chaining callbacks by hand.
package deferred

import (
	"sync"

	"go.uber.org/atomic"
)

// CancelReason explains why a Deferred was cancelled.
type CancelReason struct {
	Reason string
	Cause  error
}

func (c CancelReason) Error() string {
	if c.Cause != nil {
		return c.Reason + ": " + c.Cause.Error()
	}
	return c.Reason
}

// Cancelled reports whether err is a CancelReason. Wrapped errors are not
// unwrapped: an error that merely wraps a CancelReason reports false.
func Cancelled(err error) (CancelReason, bool) {
	cr, ok := err.(CancelReason)
	return cr, ok
}

type state int

const (
	statePending state = iota
	stateValue
	stateFailed
	stateCancelled
)

// Deferred is a single-assignment future. The zero value is not usable;
// construct one with New, Completed, Failed, CancelledD, or a combinator.
type Deferred[T any] struct {
	mu    sync.Mutex
	state state
	value T
	err   error // populated for stateFailed and stateCancelled (as CancelReason)
	done  chan struct{}

	// onSettle is invoked (without the lock held) exactly once, when the
	// deferred transitions out of statePending.
	onSettle []func()

	// cancelHook, when set, lets a composed Deferred (FlatMap's outer
	// result) forward an external Cancel into whichever upstream link is
	// currently live, instead of only marking itself cancelled.
	cancelHook func(CancelReason)
}

// New creates an unresolved Deferred and the function used to resolve it.
// Resolve may be called at most once; subsequent calls are no-ops. This is
// the "completableDeferred()" of spec.md §4.1.
func New[T any]() (*Deferred[T], func(T, error)) {
	d := &Deferred[T]{done: make(chan struct{})}
	return d, d.settle
}

// Completed returns an already-successful Deferred.
func Completed[T any](v T) *Deferred[T] {
	d := &Deferred[T]{done: make(chan struct{})}
	d.settle(v, nil)
	return d
}

// Failed returns an already-failed Deferred.
func Failed[T any](err error) *Deferred[T] {
	var zero T
	d := &Deferred[T]{done: make(chan struct{})}
	d.settle(zero, err)
	return d
}

// CancelledD returns an already-cancelled Deferred with the given reason.
func CancelledD[T any](reason CancelReason) *Deferred[T] {
	var zero T
	d := &Deferred[T]{done: make(chan struct{})}
	d.settle(zero, reason)
	return d
}

func (d *Deferred[T]) settle(v T, err error) {
	d.mu.Lock()
	if d.state != statePending {
		d.mu.Unlock()
		return
	}
	d.value = v
	d.err = err
	switch {
	case err == nil:
		d.state = stateValue
	default:
		if _, ok := Cancelled(err); ok {
			d.state = stateCancelled
		} else {
			d.state = stateFailed
		}
	}
	callbacks := d.onSettle
	d.onSettle = nil
	close(d.done)
	d.mu.Unlock()

	for _, cb := range callbacks {
		cb()
	}
}

// onTerminal registers f to run once the deferred reaches a terminal
// state, running it immediately (synchronously) if already terminal.
func (d *Deferred[T]) onTerminal(f func()) {
	d.mu.Lock()
	if d.state != statePending {
		d.mu.Unlock()
		f()
		return
	}
	d.onSettle = append(d.onSettle, f)
	d.mu.Unlock()
}

// Await blocks until the Deferred is terminal and returns its value/err.
// A cancellation is returned as a CancelReason error.
func (d *Deferred[T]) Await() (T, error) {
	<-d.done
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.value, d.err
}

// Done returns a channel closed when the Deferred becomes terminal.
func (d *Deferred[T]) Done() <-chan struct{} {
	return d.done
}

// Snapshot returns the current terminal value/err without blocking; ok is
// false while the Deferred is still pending.
func (d *Deferred[T]) Snapshot() (value T, err error, ok bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state == statePending {
		return value, nil, false
	}
	return d.value, d.err, true
}

// IsCancelled reports whether the Deferred settled in the cancelled state.
func (d *Deferred[T]) IsCancelled() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state == stateCancelled
}

// Cancel transitions a pending Deferred to the cancelled state. It has no
// effect on an already-terminal Deferred (first settlement wins). If the
// Deferred has a cancelHook (e.g. the outer result of FlatMap) the hook is
// invoked first so a live upstream link is cancelled too.
func (d *Deferred[T]) Cancel(reason CancelReason) {
	if d.cancelHook != nil {
		d.cancelHook(reason)
		return
	}
	var zero T
	d.settle(zero, reason)
}

// Handle runs fn exactly once, regardless of the upstream outcome, except
// that upstream cancellation is propagated to the result WITHOUT invoking
// fn (spec.md §4.1). If fn panics with a CancelReason the result is
// cancelled with that reason; any other panic or returned error fails the
// result.
func Handle[T, U any](d *Deferred[T], fn func(v T, err error) (U, error)) *Deferred[U] {
	out, resolve := New[U]()
	d.onTerminal(func() {
		v, err, _ := d.Snapshot()
		if _, ok := Cancelled(err); ok {
			out.Cancel(err.(CancelReason))
			return
		}
		runSafely(resolve, func() (U, error) { return fn(v, err) })
	})
	return out
}

// runSafely invokes body, converting a CancelReason panic into a
// cancellation and any other panic into a failure, then calls resolve.
func runSafely[U any](resolve func(U, error), body func() (U, error)) {
	defer func() {
		if r := recover(); r != nil {
			var zero U
			if cr, ok := r.(CancelReason); ok {
				resolve(zero, cr)
				return
			}
			if err, ok := r.(error); ok {
				resolve(zero, err)
				return
			}
			resolve(zero, panicError{r})
		}
	}()
	v, err := body()
	resolve(v, err)
}

type panicError struct{ v interface{} }

func (p panicError) Error() string { return "deferred: panic: " + errString(p.v) }

func errString(v interface{}) string {
	if e, ok := v.(error); ok {
		return e.Error()
	}
	if s, ok := v.(string); ok {
		return s
	}
	return "non-error panic value"
}

// Map runs fn only on success; failures and cancellations pass through.
func Map[T, U any](d *Deferred[T], fn func(T) (U, error)) *Deferred[U] {
	return Handle(d, func(v T, err error) (U, error) {
		var zero U
		if err != nil {
			return zero, err
		}
		return fn(v)
	})
}

// FlatMap chains into an inner Deferred produced by fn. Upstream
// cancellation skips fn. Cancelling the returned Deferred cancels the
// currently active inner Deferred (no leak); inner cancellation cancels
// the returned Deferred; inner failure propagates as a failure.
func FlatMap[T, U any](d *Deferred[T], fn func(T) *Deferred[U]) *Deferred[U] {
	out, resolve := New[U]()
	var mu sync.Mutex
	var inner *Deferred[U]
	var outerCancel *CancelReason

	finish := func(v U, err error) {
		mu.Lock()
		alreadyCancelled := outerCancel != nil
		mu.Unlock()
		if alreadyCancelled {
			return // out already settled by the cancel hook
		}
		resolve(v, err)
	}

	d.onTerminal(func() {
		v, err, _ := d.Snapshot()
		if err != nil {
			// Cancellation and failure both propagate without calling fn.
			finish(*new(U), err)
			return
		}

		next := fn(v)
		mu.Lock()
		if outerCancel != nil {
			reason := *outerCancel
			mu.Unlock()
			next.Cancel(reason)
			return
		}
		inner = next
		mu.Unlock()

		next.onTerminal(func() {
			iv, ierr, _ := next.Snapshot()
			finish(iv, ierr)
		})
	})

	out.cancelHook = func(reason CancelReason) {
		mu.Lock()
		if outerCancel != nil {
			mu.Unlock()
			return
		}
		outerCancel = &reason
		cur := inner
		mu.Unlock()
		if cur != nil {
			cur.Cancel(reason)
		}
		resolve(*new(U), reason)
	}
	return out
}

// Recover runs fn on failure only (not on cancellation, which bypasses
// recovery and propagates as-is); success passes through unchanged.
func Recover[T any](d *Deferred[T], fn func(error) (T, error)) *Deferred[T] {
	return Handle(d, func(v T, err error) (T, error) {
		if err == nil {
			return v, nil
		}
		if _, ok := Cancelled(err); ok {
			return v, err
		}
		return fn(err)
	})
}

// Combine waits for both a and b, then applies fn. It fails with the
// first failure observed among the two (by settlement order), and
// cancellation of either cancels the result.
func Combine[A, B, U any](a *Deferred[A], b *Deferred[B], fn func(A, B) (U, error)) *Deferred[U] {
	out, resolve := New[U]()
	var mu sync.Mutex
	remaining := atomic.NewInt32(2)
	var firstErr error
	var av A
	var bv B

	settle := func() {
		if remaining.Dec() != 0 {
			return
		}
		mu.Lock()
		err := firstErr
		a, b := av, bv
		mu.Unlock()
		if err != nil {
			var zero U
			resolve(zero, err)
			return
		}
		runSafely(resolve, func() (U, error) { return fn(a, b) })
	}

	a.onTerminal(func() {
		v, err, _ := a.Snapshot()
		mu.Lock()
		av = v
		if err != nil && firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
		settle()
	})
	b.onTerminal(func() {
		v, err, _ := b.Snapshot()
		mu.Lock()
		bv = v
		if err != nil && firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
		settle()
	})
	return out
}
