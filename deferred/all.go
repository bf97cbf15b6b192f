package deferred

import "go.uber.org/atomic"

// All waits for every element of list to settle. Per spec.md §4.1/§8
// invariant 4: failure or cancellation of one element does NOT cancel its
// siblings, and the result only settles once every sibling has, carrying
// the first error (by list order) if any. The implementation is O(n) and
// uses a fan-in counter rather than chained completion callbacks, so it
// cannot blow the call stack when thousands of elements settle at once.
func All[T any](list []*Deferred[T]) *Deferred[[]T] {
	out, resolve := New[[]T]()

	if len(list) == 0 {
		resolve(nil, nil)
		return out
	}

	values := make([]T, len(list))
	errs := make([]error, len(list))
	remaining := atomic.NewInt64(int64(len(list)))

	for i, d := range list {
		i, d := i, d
		d.onTerminal(func() {
			v, err, _ := d.Snapshot()
			values[i] = v
			errs[i] = err
			if remaining.Dec() == 0 {
				finishAll(resolve, values, errs)
			}
		})
	}

	return out
}

func finishAll[T any](resolve func([]T, error), values []T, errs []error) {
	for _, err := range errs {
		if err != nil {
			resolve(nil, err)
			return
		}
	}
	resolve(values, nil)
}
