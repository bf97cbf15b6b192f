package engine

import (
	"context"
	"sync"

	"github.com/airbnb/viaduct/deferred"
)

// batchEntry is one pending Selector enqueued against a FieldResolver,
// in the order it was enqueued (insertion order is the tie-break used
// when flushing, per spec.md §4.2/§4.3).
type batchEntry struct {
	selector *Selector
	resolve  func(interface{}, error)
}

// BatchBuffer accumulates Selector calls against batching FieldResolvers
// within one scheduling tick and flushes them together, grounded on
// thunder's batch_executor.go WorkUnit grouping (there: one BatchExecutor
// tick per unwound reflect.Value batch; here: one flush per resolver per
// tick, keyed by resolver identity rather than by Go type).
type BatchBuffer struct {
	mu      sync.Mutex
	pending map[*FieldResolver][]*batchEntry
}

// NewBatchBuffer creates an empty buffer for one request.
func NewBatchBuffer() *BatchBuffer {
	return &BatchBuffer{pending: map[*FieldResolver][]*batchEntry{}}
}

// Enqueue registers sel against resolver and returns a Deferred that
// settles once the buffer is flushed for that resolver. Calling Enqueue
// after Flush has run for this tick starts a fresh pending batch that the
// caller must flush again (the buffer is reusable across ticks).
func (b *BatchBuffer) Enqueue(resolver *FieldResolver, sel *Selector) *deferred.Deferred[interface{}] {
	p, resolve := deferred.New[interface{}]()
	b.mu.Lock()
	b.pending[resolver] = append(b.pending[resolver], &batchEntry{selector: sel, resolve: resolve})
	b.mu.Unlock()
	return p
}

// Flush resolves every resolver with pending selectors concurrently, each
// through exactly one BatchResolve call carrying its selectors in
// insertion order, and settles each selector's promise from the returned
// per-selector Result.
func (b *BatchBuffer) Flush(ctx context.Context) {
	b.mu.Lock()
	batches := b.pending
	b.pending = map[*FieldResolver][]*batchEntry{}
	b.mu.Unlock()

	if len(batches) == 0 {
		return
	}

	var wg sync.WaitGroup
	for resolver, entries := range batches {
		wg.Add(1)
		go func(resolver *FieldResolver, entries []*batchEntry) {
			defer wg.Done()
			flushOne(ctx, resolver, entries)
		}(resolver, entries)
	}
	wg.Wait()
}

func flushOne(ctx context.Context, resolver *FieldResolver, entries []*batchEntry) {
	selectors := make([]*Selector, len(entries))
	for i, e := range entries {
		selectors[i] = e.selector
	}

	results := safeBatchResolve(ctx, resolver, selectors)

	for _, e := range entries {
		res, ok := results[e.selector]
		if !ok {
			e.resolve(nil, &InternalEngineException{Message: "batch resolver did not return a result for a selector"})
			continue
		}
		e.resolve(res.Value, res.Err)
	}
}

// safeBatchResolve recovers a panicking BatchResolve into a uniform
// FieldFetchingException applied to every selector in the batch, matching
// thunder's safeExecuteBatchResolver recover-and-fan-out behavior.
func safeBatchResolve(ctx context.Context, resolver *FieldResolver, selectors []*Selector) (results map[*Selector]Result[interface{}]) {
	defer func() {
		if r := recover(); r != nil {
			results = map[*Selector]Result[interface{}]{}
			err := &FieldFetchingException{Message: "resolver panicked", Cause: panicToError(r)}
			for _, s := range selectors {
				results[s] = ErrResult[interface{}](err)
			}
		}
	}()
	return resolver.BatchResolve(ctx, selectors)
}

func panicToError(r interface{}) error {
	if err, ok := r.(error); ok {
		return err
	}
	if msg, ok := r.(string); ok {
		return &FieldFetchingException{Message: msg}
	}
	return &FieldFetchingException{Message: "non-error panic value"}
}
