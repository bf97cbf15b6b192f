package engine

import (
	"context"

	"github.com/airbnb/viaduct/rss"
	"github.com/airbnb/viaduct/selection"
)

// Selector carries one input to a (possibly batched) resolver call,
// per spec.md §3/GLOSSARY.
type Selector struct {
	Arguments   map[string]interface{}
	ObjectValue *EngineObjectData
	QueryValue  *EngineObjectData
	Selections  *selection.RawSelectionSet // nil for a leaf scalar field
}

// NodeSelector is the Selector shape used by NodeResolver: just an id and
// the caller's sub-selection.
type NodeSelector struct {
	ID         string
	Selections *selection.RawSelectionSet
}

// Result is a per-selector outcome: either a value or a captured error,
// so a resolver-level batch failure can be distinguished from a uniform
// per-selector failure (spec.md §4.3 "Failure").
type Result[T any] struct {
	Value T
	Err   error
}

// Ok constructs a successful Result.
func Ok[T any](v T) Result[T] { return Result[T]{Value: v} }

// ErrResult constructs a failed Result.
func ErrResult[T any](err error) Result[T] { return Result[T]{Err: err} }

// FieldResolver is spec.md §3's FieldResolver contract.
type FieldResolver struct {
	ResolverID      string
	ObjectSelections *rss.RequiredSelectionSet // nil if this resolver needs no parent-object RSS
	QuerySelections  *rss.RequiredSelectionSet // nil if this resolver needs no query-root RSS
	IsBatching      bool
	BatchResolve    func(ctx context.Context, selectors []*Selector) map[*Selector]Result[interface{}]
}

// NodeRef is what a field resolver returns in place of an inline value to
// hand the engine a Node reference instead: "created by a resolver
// returning a node ref" (spec.md §3). The planner turns a NodeRef (or a
// slice of them, for a list-of-Node field) into a node-backed
// EngineObjectData via the request's NodeCache before the field's value
// is ever observed by response assembly or by a sibling resolver's Fetch.
type NodeRef struct {
	TypeName string
	ID       string
}

// NodeResolver is spec.md §3's NodeResolver contract.
type NodeResolver struct {
	TypeName     string
	IsSelective  bool
	IsBatching   bool
	BatchResolve func(ctx context.Context, selectors []*NodeSelector) map[*NodeSelector]Result[*EngineObjectData]
}

// CheckerKind distinguishes a field-level check from a type-level check
// (spec.md §4.6).
type CheckerKind int

const (
	CheckField CheckerKind = iota
	CheckType
)

// CheckerResultContext is passed to a CheckerError's IsErrorForResolver
// so a chained checker decision can be scoped per-resolver (spec.md §3).
type CheckerResultContext struct {
	ResolverID string
	FieldName  string
	TypeName   string
}

// CheckerResult is spec.md §3's CheckerExecutor result sum type:
// success, or a chainable error.
type CheckerResult struct {
	Err *CheckerFailure // nil means Success
}

func CheckSuccess() CheckerResult { return CheckerResult{} }

// CheckerFailure is the Error variant of CheckerResult: it knows whether
// it should fail the guarded field for a given context, and how to
// combine with another failure from a chained checker.
type CheckerFailure struct {
	Message           string
	IsErrorForResolver func(ctx CheckerResultContext) bool
	CombineWith        func(other *CheckerFailure) *CheckerFailure
}

func (f *CheckerFailure) Error() string { return f.Message }

// Combine folds two checker errors per spec.md §3/§4.6, defaulting to
// "first error wins" when no custom CombineWith is supplied.
func (f *CheckerFailure) Combine(other *CheckerFailure) *CheckerFailure {
	if other == nil {
		return f
	}
	if f.CombineWith != nil {
		return f.CombineWith(other)
	}
	return f
}

// CheckerExecutor is spec.md §3's CheckerExecutor contract.
type CheckerExecutor struct {
	RequiredSelectionSets map[string]*rss.RequiredSelectionSet // keyed by a caller-chosen RSS name, e.g. "object"/"query"
	Execute               func(ctx context.Context, args map[string]interface{}, objectDataMap map[string]*EngineObjectData, reqCtx CheckerResultContext, kind CheckerKind) CheckerResult
}
