// Package engine is documented in errors.go; this file implements the
// planner/executor core of spec.md §4.2: FieldExecution tree construction
// and its dispatch over a bounded worker pool.
package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/airbnb/viaduct/concurrencylimiter"
	"github.com/airbnb/viaduct/deferred"
	"github.com/airbnb/viaduct/rss"
	"github.com/airbnb/viaduct/schema"
	"github.com/airbnb/viaduct/selection"
)

// Dispatcher is the read side of the registry assembled by package
// dispatcher (spec.md §4.5). engine depends only on this interface so
// dispatcher can depend on engine's contract types without a cycle.
type Dispatcher interface {
	FieldResolver(typeName, fieldName string) (*FieldResolver, bool)
	NodeResolver(typeName string) (*NodeResolver, bool)
	FieldChecker(typeName, fieldName string) (*CheckerExecutor, bool)
	TypeChecker(typeName string) (*CheckerExecutor, bool)
}

// NodeCache is the per-request node data-loader contract implemented by
// package nodecache (spec.md §4.3).
type NodeCache interface {
	GetOrResolve(ctx context.Context, typeName, id string, selections *selection.RawSelectionSet, resolve func() *NodeReference) *NodeReference
}

// Hooks is the instrumentation chain contract implemented by package
// instrumentation (spec.md §4.7). NewExecutor replaces a nil Hooks with
// NoHooks, an inert chain.
type Hooks interface {
	BeforeField(ctx context.Context, typeName, fieldName string) (context.Context, func(err error))
	BeforeCheck(ctx context.Context, typeName, fieldName string, kind CheckerKind) (context.Context, func(res CheckerResult))
}

// NoHooks is an Hooks implementation that does nothing, used when a
// request has no instrumentation configured.
var NoHooks Hooks = noHooks{}

type noHooks struct{}

func (noHooks) BeforeField(ctx context.Context, _, _ string) (context.Context, func(error)) {
	return ctx, func(error) {}
}
func (noHooks) BeforeCheck(ctx context.Context, _, _ string, _ CheckerKind) (context.Context, func(CheckerResult)) {
	return ctx, func(CheckerResult) {}
}

// FieldExecution is one node of the plan tree spec.md §4.2 describes: a
// single selected field, its resolved arguments, and (once its value is
// known) the sub-plan for its children.
type FieldExecution struct {
	TypeName  string
	FieldName string
	Path      []PathSegment
	Arguments map[string]interface{}
	Field     selection.Field // the originating selection, for ContinueInto/response assembly
	Result    *deferred.Deferred[interface{}]
}

// Executor dispatches a FieldExecution tree against a Dispatcher, a
// NodeCache, and an instrumentation Hooks chain, bounding resolver fan-out
// through a concurrencylimiter-attached context (spec.md §5).
type Executor struct {
	Schema    *schema.Schema
	Dispatch  Dispatcher
	Nodes     NodeCache
	Hooks     Hooks
	Batch     *BatchBuffer
	NodeBatch *NodeBatchBuffer
	Group     *deferred.TaskGroup

	fatalMu sync.Mutex
	fatal   *FatalInstrumentationError
}

// NewExecutor wires the collaborators for one request.
func NewExecutor(sch *schema.Schema, dispatch Dispatcher, nodes NodeCache, hooks Hooks) *Executor {
	if hooks == nil {
		hooks = NoHooks
	}
	return &Executor{
		Schema:    sch,
		Dispatch:  dispatch,
		Nodes:     nodes,
		Hooks:     hooks,
		Batch:     NewBatchBuffer(),
		NodeBatch: NewNodeBatchBuffer(),
		Group:     deferred.NewTaskGroup(context.Background()),
	}
}

// setFatal records the first FatalInstrumentationError seen during this
// request and cancels every in-flight field through ex.Group, per spec.md
// §4.2: an exception from an instrumentation hook or completion callback is
// fatal to the whole operation, not scoped to the field that triggered it.
// A second fatal error (e.g. raised by a sibling field racing the first) is
// discarded and does not replace the one already stored, since only one
// needs to surface.
func (ex *Executor) setFatal(err *FatalInstrumentationError) {
	ex.fatalMu.Lock()
	if ex.fatal == nil {
		ex.fatal = err
	}
	ex.fatalMu.Unlock()
	ex.Group.Cancel(deferred.CancelReason{Reason: err.Error(), Cause: err})
}

// FatalError returns the request's recorded fatal instrumentation failure,
// if any. AssembleResponse checks this to suppress partial data (spec.md
// §8: "entire request fails ... no partial data returned").
func (ex *Executor) FatalError() *FatalInstrumentationError {
	ex.fatalMu.Lock()
	defer ex.fatalMu.Unlock()
	return ex.fatal
}

// guardHook runs name's hook body, recovering any panic into a
// FatalInstrumentationError recorded on ex and re-raised so the caller's own
// field execution also fails rather than silently continuing as if the hook
// had run normally.
func guardHook(ex *Executor, name string, body func()) {
	defer func() {
		if r := recover(); r != nil {
			fatal := &FatalInstrumentationError{HookName: name, Cause: panicToError(r)}
			ex.setFatal(fatal)
			panic(fatal)
		}
	}()
	body()
}

// ExecuteRoot runs selections (already variable-bound) against root,
// returning a map of output-name -> FieldExecution for every top-level
// selected field. ctx should already carry a concurrencylimiter (via
// concurrencylimiter.With) if the caller wants bounded fan-out (spec.md
// §5); the caller drives ticks (Batch.Flush) until nothing remains
// pending.
func (ex *Executor) ExecuteRoot(ctx context.Context, typeName string, root *EngineObjectData, selections *selection.RawSelectionSet) map[string]*FieldExecution {
	out := map[string]*FieldExecution{}
	for _, f := range selections.Parsed().Fields {
		out[f.OutputName()] = ex.planField(ctx, typeName, root, root, f, selections.Variables(), []PathSegment{FieldSeg(f.OutputName())})
	}
	return out
}

// planField builds and kicks off one FieldExecution.
func (ex *Executor) planField(ctx context.Context, typeName string, objectValue, queryValue *EngineObjectData, f selection.Field, vars selection.VariableEnv, path []PathSegment) *FieldExecution {
	fe := &FieldExecution{TypeName: typeName, FieldName: f.Name, Path: path, Arguments: selection.ResolveArgs(f.Arguments, vars), Field: f}

	resolver, ok := ex.Dispatch.FieldResolver(typeName, f.Name)
	if !ok {
		fe.Result = deferred.Completed[interface{}](nil)
		return fe
	}

	fe.Result = deferred.Spawn(ex.Group, func(taskCtx context.Context) (interface{}, error) {
		return ex.runChecksAndResolve(taskCtx, typeName, f.Name, resolver, fe.Arguments, objectValue, queryValue, f)
	})

	return fe
}

func (ex *Executor) runChecksAndResolve(ctx context.Context, typeName, fieldName string, resolver *FieldResolver, args map[string]interface{}, objectValue, queryValue *EngineObjectData, f selection.Field) (interface{}, error) {
	if checker, ok := ex.Dispatch.FieldChecker(typeName, fieldName); ok {
		if err := ex.runChecker(ctx, checker, CheckField, typeName, fieldName, args, objectValue, queryValue); err != nil {
			return nil, err
		}
	}

	objSel, querySel, err := ex.materializeResolverRSS(ctx, resolver, args, objectValue, queryValue)
	if err != nil {
		return nil, err
	}

	sel := &Selector{Arguments: args, ObjectValue: objSel.data, QueryValue: querySel.data}
	if f.SubSelection != nil {
		sel.Selections = selection.NewRawSelectionSet(ex.Schema, f.SubSelection, nil)
	}

	var hookCtx context.Context
	var done func(error)
	guardHook(ex, fmt.Sprintf("beginFieldExecution for %s", fieldName), func() {
		hookCtx, done = ex.Hooks.BeforeField(ctx, typeName, fieldName)
	})

	acquiredCtx, release := concurrencylimiter.Acquire(hookCtx)
	defer release()

	var v interface{}
	var ferr error
	if resolver.IsBatching {
		// A batching resolver's work happens on another goroutine during
		// Flush; release this slot for the wait so it doesn't sit idle
		// holding a worker token (spec.md §5).
		concurrencylimiter.TemporarilyRelease(acquiredCtx, func() {
			v, ferr = ex.Batch.Enqueue(resolver, sel).Await()
		})
	} else {
		v, ferr = ex.resolveSingle(acquiredCtx, resolver, sel)
	}
	if ferr == nil {
		v = ex.resolveNodeRefs(ctx, v, sel.Selections)
	}
	guardHook(ex, fmt.Sprintf("endFieldExecution for %s", fieldName), func() {
		done(ferr)
	})
	return v, ferr
}

// resolveNodeRefs turns a resolver's returned NodeRef (or []interface{} of
// NodeRefs, for a list-of-Node field) into node-backed EngineObjectData,
// looked up or created through the request's NodeCache. Values that carry
// no NodeRef pass through unchanged. A NodeRef surfacing with no NodeCache
// configured for this request resolves to nil, matching "missing
// dispatcher key returns null" for the one collaborator a NodeRef cannot
// do without.
func (ex *Executor) resolveNodeRefs(ctx context.Context, v interface{}, selections *selection.RawSelectionSet) interface{} {
	switch val := v.(type) {
	case NodeRef:
		return ex.resolveOneNodeRef(ctx, val, selections)
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			ref, ok := item.(NodeRef)
			if !ok {
				out[i] = item
				continue
			}
			out[i] = ex.resolveOneNodeRef(ctx, ref, selections)
		}
		return out
	default:
		return v
	}
}

func (ex *Executor) resolveOneNodeRef(ctx context.Context, ref NodeRef, selections *selection.RawSelectionSet) interface{} {
	if ex.Nodes == nil {
		return nil
	}
	node := ex.Nodes.GetOrResolve(ctx, ref.TypeName, ref.ID, selections, func() *NodeReference {
		return ex.newNodeReference(ctx, ref, selections)
	})
	return NewNodeObjectData(node)
}

// newNodeReference builds the NodeReference a cache miss creates: its
// resolveOnce closure dispatches to TypeName's NodeResolver against
// selections, the node fetch's own sub-selection rather than whatever
// field happened to discover this id. Unlike engines that thread a
// fragment/variable registry through context, this one passes selections
// and variables as explicit arguments at every hop, so there is no
// field-scope context state left to clear before calling batchResolve
// (spec.md §4.3's "field-scope isolation" falls out of the calling
// convention rather than needing an explicit reset step).
func (ex *Executor) newNodeReference(ctx context.Context, ref NodeRef, selections *selection.RawSelectionSet) *NodeReference {
	return NewNodeReference(ref.ID, ref.TypeName, func() (*EngineObjectData, error) {
		resolver, ok := ex.Dispatch.NodeResolver(ref.TypeName)
		if !ok {
			return nil, &MissingNodeResolver{TypeName: ref.TypeName}
		}
		sel := &NodeSelector{ID: ref.ID, Selections: selections}
		results := ex.batchResolveNode(ctx, resolver, sel)
		res, ok := results[sel]
		if !ok {
			return nil, &InternalEngineException{Message: "node resolver returned no result for its own selector"}
		}
		return res.Value, res.Err
	})
}

// batchResolveNode runs resolver's batch call for sel alone, or through
// ex.NodeBatch when the resolver batches and a buffer is attached,
// coalescing concurrently-discovered node refs of the same resolver into
// one batchResolve call (spec.md §8 scenario "proves batching").
func (ex *Executor) batchResolveNode(ctx context.Context, resolver *NodeResolver, sel *NodeSelector) map[*NodeSelector]Result[*EngineObjectData] {
	if resolver.IsBatching && ex.NodeBatch != nil {
		v, err := ex.NodeBatch.Enqueue(resolver, sel).Await()
		return map[*NodeSelector]Result[*EngineObjectData]{sel: {Value: v, Err: err}}
	}
	return safeBatchResolveNode(ctx, resolver, []*NodeSelector{sel})
}

// materialized is the bound selection set a resolver declared for one RSS
// slot (object or query), nil if the resolver declared no such slot.
type materialized struct {
	data     *EngineObjectData
	selected *selection.RawSelectionSet
}

// materializeResolverRSS runs a resolver's declared object/query RSS,
// resolving each VariablesResolver's InputKeys against args (for
// BindFromArgument) or by walking the dotted field path against the
// corresponding object (for BindFromObjectField/QueryField), per spec.md
// §4.4.
func (ex *Executor) materializeResolverRSS(ctx context.Context, resolver *FieldResolver, args map[string]interface{}, objectValue, queryValue *EngineObjectData) (materialized, materialized, error) {
	obj := materialized{data: objectValue}
	qry := materialized{data: queryValue}

	if resolver.ObjectSelections != nil {
		raw, err := resolver.ObjectSelections.Materialize(ctx, ex.Schema, inputsFromFn(args, objectValue))
		if err != nil {
			return obj, qry, err
		}
		obj = materialized{data: objectValue, selected: raw}
	}
	if resolver.QuerySelections != nil {
		raw, err := resolver.QuerySelections.Materialize(ctx, ex.Schema, inputsFromFn(args, queryValue))
		if err != nil {
			return obj, qry, err
		}
		qry = materialized{data: queryValue, selected: raw}
	}
	return obj, qry, nil
}

// inputsFromFn builds the per-VariablesResolver inputs map: each InputKey
// is looked up first in args (BindFromArgument), falling back to a
// dotted-path fetch against base (BindFromObjectField/QueryField). A
// BindProvider resolver (no InputKeys) is simply handed the full args set.
func inputsFromFn(args map[string]interface{}, base *EngineObjectData) func(rss.VariablesResolver) map[string]interface{} {
	return func(vr rss.VariablesResolver) map[string]interface{} {
		if len(vr.InputKeys) == 0 {
			return args
		}
		out := make(map[string]interface{}, len(vr.InputKeys))
		for _, key := range vr.InputKeys {
			if v, ok := args[key]; ok {
				out[key] = v
				continue
			}
			out[key] = fetchPath(base, key)
		}
		return out
	}
}

// fetchPath walks a dotted field path through nested EngineObjectData
// values, returning nil if any hop is unset, errored, or not itself an
// EngineObjectData.
func fetchPath(obj *EngineObjectData, path string) interface{} {
	if obj == nil {
		return nil
	}
	segs := strings.Split(path, ".")
	cur := obj
	for i, seg := range segs {
		v, err := cur.Fetch(seg)
		if err != nil {
			return nil
		}
		if i == len(segs)-1 {
			return v
		}
		next, ok := v.(*EngineObjectData)
		if !ok {
			return nil
		}
		cur = next
	}
	return nil
}

// ContinueInto awaits fe's result and, if it resolved to a composite
// *EngineObjectData and f declares a sub-selection, plans the child
// fields against it. A scalar/enum leaf, a nil value, or a fe that failed
// returns a nil child map -- the caller's response writer surfaces fe's
// own error at fe.Path in that case.
func (ex *Executor) ContinueInto(ctx context.Context, fe *FieldExecution, typeName string, f selection.Field, queryValue *EngineObjectData, vars selection.VariableEnv) map[string]*FieldExecution {
	if f.SubSelection == nil {
		return nil
	}
	v, err := fe.Result.Await()
	if err != nil || v == nil {
		return nil
	}
	obj, ok := v.(*EngineObjectData)
	if !ok {
		return nil
	}
	out := map[string]*FieldExecution{}
	for _, child := range f.SubSelection.Fields {
		childPath := append(append([]PathSegment{}, fe.Path...), FieldSeg(child.OutputName()))
		out[child.OutputName()] = ex.planField(ctx, typeName, obj, queryValue, child, vars, childPath)
	}
	return out
}

func (ex *Executor) resolveSingle(ctx context.Context, resolver *FieldResolver, sel *Selector) (v interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &FieldFetchingException{Message: "resolver panicked", Cause: panicToError(r)}
		}
	}()
	results := resolver.BatchResolve(ctx, []*Selector{sel})
	res, ok := results[sel]
	if !ok {
		return nil, &InternalEngineException{Message: "resolver returned no result for its own selector"}
	}
	return res.Value, res.Err
}

func (ex *Executor) runChecker(ctx context.Context, checker *CheckerExecutor, kind CheckerKind, typeName, fieldName string, args map[string]interface{}, objectValue, queryValue *EngineObjectData) error {
	var hookCtx context.Context
	var done func(CheckerResult)
	guardHook(ex, fmt.Sprintf("instrumentAccessCheck for %s", fieldName), func() {
		hookCtx, done = ex.Hooks.BeforeCheck(ctx, typeName, fieldName, kind)
	})

	objectDataMap := map[string]*EngineObjectData{"object": objectValue, "query": queryValue}
	res := checker.Execute(hookCtx, args, objectDataMap, CheckerResultContext{FieldName: fieldName, TypeName: typeName}, kind)
	guardHook(ex, fmt.Sprintf("instrumentAccessCheck completion for %s", fieldName), func() {
		done(res)
	})
	if res.Err == nil {
		return nil
	}
	return &CheckerError{Message: res.Err.Message}
}

