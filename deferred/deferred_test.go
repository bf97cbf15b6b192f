package deferred_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airbnb/viaduct/deferred"
)

func TestCompletedAwait(t *testing.T) {
	d := deferred.Completed(42)
	v, err := d.Await()
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestHandleSkipsOnCancellation(t *testing.T) {
	d, resolve := deferred.New[int]()
	called := false
	out := deferred.Handle(d, func(v int, err error) (int, error) {
		called = true
		return v, err
	})

	reason := deferred.CancelReason{Reason: "stop"}
	resolve(0, reason)

	_, err := out.Await()
	assert.False(t, called, "fn must not be invoked on upstream cancellation")
	cr, ok := deferred.Cancelled(err)
	require.True(t, ok)
	assert.Equal(t, reason, cr)
}

func TestMapPropagatesFailure(t *testing.T) {
	d := deferred.Failed[int](assertErr("boom"))
	out := deferred.Map(d, func(v int) (int, error) { return v + 1, nil })
	_, err := out.Await()
	assert.EqualError(t, err, "boom")
}

func TestFlatMapChainsInner(t *testing.T) {
	d := deferred.Completed(1)
	out := deferred.FlatMap(d, func(v int) *deferred.Deferred[int] {
		return deferred.Completed(v + 41)
	})
	v, err := out.Await()
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestFlatMapInnerCancellationCancelsOuter(t *testing.T) {
	d := deferred.Completed(1)
	inner, resolveInner := deferred.New[int]()
	out := deferred.FlatMap(d, func(int) *deferred.Deferred[int] { return inner })

	reason := deferred.CancelReason{Reason: "inner died"}
	resolveInner(0, reason)

	_, err := out.Await()
	cr, ok := deferred.Cancelled(err)
	require.True(t, ok)
	assert.Equal(t, reason, cr)
}

func TestFlatMapCancelOuterCancelsLiveInner(t *testing.T) {
	gate := make(chan struct{})
	d := deferred.Completed(1)
	var inner *deferred.Deferred[int]
	out := deferred.FlatMap(d, func(int) *deferred.Deferred[int] {
		inner = deferred.Spawn(deferred.NewTaskGroup(context.Background()), func(ctx context.Context) (int, error) {
			<-gate
			return 0, nil
		})
		return inner
	})

	// give FlatMap's onTerminal callback a chance to run and create inner.
	time.Sleep(10 * time.Millisecond)

	reason := deferred.CancelReason{Reason: "caller gave up"}
	out.Cancel(reason)

	_, err := out.Await()
	cr, ok := deferred.Cancelled(err)
	require.True(t, ok)
	assert.Equal(t, reason, cr)
	require.NotNil(t, inner)
	assert.True(t, inner.IsCancelled(), "cancelling the outer result must cancel the live inner Deferred")
	close(gate)
}

func TestRecoverSkipsOnCancellation(t *testing.T) {
	d, resolve := deferred.New[int]()
	reason := deferred.CancelReason{Reason: "stop"}
	out := deferred.Recover(d, func(error) (int, error) { return 99, nil })
	resolve(0, reason)

	_, err := out.Await()
	_, ok := deferred.Cancelled(err)
	assert.True(t, ok)
}

func TestRecoverRunsOnFailure(t *testing.T) {
	d := deferred.Failed[int](assertErr("nope"))
	out := deferred.Recover(d, func(error) (int, error) { return 7, nil })
	v, err := out.Await()
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestCombineWaitsForBothAndPropagatesCancellation(t *testing.T) {
	a := deferred.Completed(1)
	b, resolveB := deferred.New[int]()
	out := deferred.Combine(a, b, func(x, y int) (int, error) { return x + y, nil })

	reason := deferred.CancelReason{Reason: "b cancelled"}
	resolveB(0, reason)

	_, err := out.Await()
	_, ok := deferred.Cancelled(err)
	assert.True(t, ok)
}

func TestAllWaitsForEveryElementEvenOnFailure(t *testing.T) {
	first := deferred.Failed[int](assertErr("first failed"))
	second, resolveSecond := deferred.New[int]()

	out := deferred.All([]*deferred.Deferred[int]{first, second})

	select {
	case <-out.Done():
		t.Fatal("All must not settle until every element is terminal")
	case <-time.After(20 * time.Millisecond):
	}

	resolveSecond(2, nil)

	_, err := out.Await()
	assert.EqualError(t, err, "first failed")
}

func TestAllEmptySucceeds(t *testing.T) {
	out := deferred.All[int](nil)
	v, err := out.Await()
	require.NoError(t, err)
	assert.Empty(t, v)
}

func TestTaskGroupCancelPropagatesToChildren(t *testing.T) {
	g := deferred.NewTaskGroup(context.Background())
	started := make(chan struct{})
	child := deferred.Spawn(g, func(ctx context.Context) (int, error) {
		close(started)
		<-ctx.Done()
		return 0, ctx.Err()
	})

	<-started
	g.Cancel(deferred.CancelReason{Reason: "request timeout"})

	_, err := child.Await()
	assert.Error(t, err)
}

func TestTaskGroupChildSettlingDoesNotCancelSiblings(t *testing.T) {
	g := deferred.NewTaskGroup(context.Background())
	a := deferred.Spawn(g, func(ctx context.Context) (int, error) { return 1, nil })
	gate := make(chan struct{})
	b := deferred.Spawn(g, func(ctx context.Context) (int, error) {
		<-gate
		return 2, nil
	})

	_, err := a.Await()
	require.NoError(t, err)

	select {
	case <-b.Done():
		t.Fatal("sibling must not be cancelled by a's settlement")
	case <-time.After(20 * time.Millisecond):
	}
	close(gate)
	v, err := b.Await()
	require.NoError(t, err)
	assert.Equal(t, 2, v)
}

type assertErr string

func (e assertErr) Error() string { return string(e) }
