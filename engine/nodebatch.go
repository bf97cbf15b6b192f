package engine

import (
	"context"
	"sync"

	"github.com/airbnb/viaduct/deferred"
)

// nodeBatchEntry is one pending NodeSelector enqueued against a
// NodeResolver within one tick.
type nodeBatchEntry struct {
	selector *NodeSelector
	resolve  func(*EngineObjectData, error)
}

// NodeBatchBuffer is BatchBuffer's counterpart for Node resolution: it
// accumulates NodeSelector calls against batching NodeResolvers so that
// node references discovered concurrently -- e.g. every element of a
// list-of-Node field, planned together by respond.go's list handling --
// land in the same batchResolve call instead of one call per id (spec.md
// §8's "proves batching" scenario, and invariant 5's per-(type,id) call
// bound).
type NodeBatchBuffer struct {
	mu      sync.Mutex
	pending map[*NodeResolver][]*nodeBatchEntry
}

// NewNodeBatchBuffer creates an empty buffer for one request.
func NewNodeBatchBuffer() *NodeBatchBuffer {
	return &NodeBatchBuffer{pending: map[*NodeResolver][]*nodeBatchEntry{}}
}

// Enqueue registers sel against resolver and returns a Deferred that
// settles once the buffer is flushed for that resolver.
func (b *NodeBatchBuffer) Enqueue(resolver *NodeResolver, sel *NodeSelector) *deferred.Deferred[*EngineObjectData] {
	p, resolve := deferred.New[*EngineObjectData]()
	b.mu.Lock()
	b.pending[resolver] = append(b.pending[resolver], &nodeBatchEntry{selector: sel, resolve: resolve})
	b.mu.Unlock()
	return p
}

// Flush resolves every resolver with pending node selectors concurrently,
// one batchResolve call per resolver carrying every selector enqueued
// against it since the last flush.
func (b *NodeBatchBuffer) Flush(ctx context.Context) {
	b.mu.Lock()
	batches := b.pending
	b.pending = map[*NodeResolver][]*nodeBatchEntry{}
	b.mu.Unlock()

	if len(batches) == 0 {
		return
	}

	var wg sync.WaitGroup
	for resolver, entries := range batches {
		wg.Add(1)
		go func(resolver *NodeResolver, entries []*nodeBatchEntry) {
			defer wg.Done()
			flushOneNode(ctx, resolver, entries)
		}(resolver, entries)
	}
	wg.Wait()
}

func flushOneNode(ctx context.Context, resolver *NodeResolver, entries []*nodeBatchEntry) {
	selectors := make([]*NodeSelector, len(entries))
	for i, e := range entries {
		selectors[i] = e.selector
	}

	results := safeBatchResolveNode(ctx, resolver, selectors)

	for _, e := range entries {
		res, ok := results[e.selector]
		if !ok {
			e.resolve(nil, &InternalEngineException{Message: "node batch resolver did not return a result for a selector"})
			continue
		}
		e.resolve(res.Value, res.Err)
	}
}

// safeBatchResolveNode recovers a panicking batchResolve into a uniform
// error applied to every selector in the batch, per spec.md §8 boundary
// behavior (c): "Node resolver whose batchResolve throws ... records an
// error on every selector in the batch with the thrown exception's
// message."
func safeBatchResolveNode(ctx context.Context, resolver *NodeResolver, selectors []*NodeSelector) (results map[*NodeSelector]Result[*EngineObjectData]) {
	defer func() {
		if r := recover(); r != nil {
			results = map[*NodeSelector]Result[*EngineObjectData]{}
			err := &FieldFetchingException{Message: "node resolver panicked", Cause: panicToError(r)}
			for _, s := range selectors {
				results[s] = ErrResult[*EngineObjectData](err)
			}
		}
	}()
	return resolver.BatchResolve(ctx, selectors)
}
