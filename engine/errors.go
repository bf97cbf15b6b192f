// Package engine implements the execution planner/scheduler (spec.md
// §4.2), the EngineObjectData lazy object proxy and NodeReference
// lifecycle (spec.md §3), and their error taxonomy (spec.md §7).
//
// Grounded on thunder's graphql/executor2.go (Queue/ExecutionUnit/pending
// counter) and graphql/batch_executor.go/batch_scheduler.go (WorkUnit,
// BatchExecutor, scheduler), generalized from per-Go-type unwrap dispatch
// to the spec's FieldExecution tree with RSS-gated input bundles. The
// error taxonomy is grounded on graphql/errors.go's SafeError/ClientError/
// SanitizedError pattern.
package engine

import (
	"fmt"

	"github.com/airbnb/viaduct/deferred"
)

// FieldFetchingException is thrown/returned inside a resolver or its RSS.
// It produces one GraphQL field error at the field's path and a null
// value for that field (spec.md §7).
type FieldFetchingException struct {
	Path    []PathSegment
	Message string
	Cause   error
}

func (e *FieldFetchingException) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("field fetch failed at %s: %s: %v", formatPath(e.Path), e.Message, e.Cause)
	}
	return fmt.Sprintf("field fetch failed at %s: %s", formatPath(e.Path), e.Message)
}

func (e *FieldFetchingException) Unwrap() error { return e.Cause }

// InternalEngineException occurs during field completion (as opposed to
// inside the resolver itself) and is surfaced identically to a
// FieldFetchingException per spec.md §4.2.
type InternalEngineException struct {
	Path    []PathSegment
	Message string
	Cause   error
}

func (e *InternalEngineException) Error() string {
	return fmt.Sprintf("internal engine error at %s: %s", formatPath(e.Path), e.Message)
}
func (e *InternalEngineException) Unwrap() error { return e.Cause }

// CheckerError is a field error produced by a failed access check
// (spec.md §4.6); it degrades only the guarded field(s).
type CheckerError struct {
	Path    []PathSegment
	Message string
	Cause   error
}

func (e *CheckerError) Error() string {
	return fmt.Sprintf("access check failed at %s: %s", formatPath(e.Path), e.Message)
}
func (e *CheckerError) Unwrap() error { return e.Cause }

// UnsetSelection is raised by EngineObjectData.fetch when a resolver
// never populated the requested selection; this is a resolver programming
// error surfaced as a field error (spec.md §3, §7).
type UnsetSelection struct {
	Selection string
}

func (e *UnsetSelection) Error() string {
	return fmt.Sprintf("selection %q was not set on this object", e.Selection)
}

// FatalInstrumentationError wraps a panic/error raised outside the field
// fetch boundary -- instrumentation hooks or dispatcher completion
// callbacks -- which per spec.md §4.2 aborts the entire operation rather
// than scoping to one field.
type FatalInstrumentationError struct {
	HookName string
	Cause    error
}

func (e *FatalInstrumentationError) Error() string {
	return fmt.Sprintf("Explosion in %s: %v", e.HookName, e.Cause)
}
func (e *FatalInstrumentationError) Unwrap() error { return e.Cause }

// MissingNodeResolver is the one documented exception to the dispatcher
// registry's "missing key returns null" rule (spec.md §3): resolving a
// Node reference to a type with no registered node resolver fails.
type MissingNodeResolver struct {
	TypeName string
}

func (e *MissingNodeResolver) Error() string {
	return fmt.Sprintf("no node resolver registered for type %q", e.TypeName)
}

// BootstrapError surfaces at registry-assembly time (spec.md §7); it is
// not recoverable per-request.
type BootstrapError struct {
	Message string
}

func (e *BootstrapError) Error() string { return "bootstrap error: " + e.Message }

// PathSegment is one hop of a GraphQL response path: either a field name
// (string) or a list index (int).
type PathSegment struct {
	Field string
	Index int
	IsIdx bool
}

func FieldSeg(name string) PathSegment { return PathSegment{Field: name} }
func IndexSeg(i int) PathSegment       { return PathSegment{Index: i, IsIdx: true} }

func formatPath(path []PathSegment) string {
	s := ""
	for i, seg := range path {
		if i > 0 {
			s += "."
		}
		if seg.IsIdx {
			s += fmt.Sprintf("%d", seg.Index)
		} else {
			s += seg.Field
		}
	}
	return s
}

// AsFieldError converts err to a FieldError path-tagged surface value, per
// spec.md §6's FieldError{message, path, errorType}. Cancellation errors
// are surfaced with errorType "RequestTimeout" when they carry that
// reason, matching spec.md §5.
func AsFieldError(path []PathSegment, err error) FieldError {
	if cr, ok := deferred.Cancelled(err); ok {
		errType := "Cancelled"
		if cr.Reason == RequestTimeoutReason {
			errType = "RequestTimeout"
		}
		return FieldError{Message: cr.Error(), Path: pathToAny(path), ErrorType: errType}
	}
	switch e := err.(type) {
	case *FieldFetchingException:
		return FieldError{Message: e.Error(), Path: pathToAny(e.Path), ErrorType: "DataFetchingException"}
	case *InternalEngineException:
		return FieldError{Message: e.Error(), Path: pathToAny(e.Path), ErrorType: "DataFetchingException"}
	case *CheckerError:
		return FieldError{Message: e.Error(), Path: pathToAny(e.Path), ErrorType: "PermissionDenied"}
	case *UnsetSelection:
		return FieldError{Message: e.Error(), Path: pathToAny(path), ErrorType: "DataFetchingException"}
	case *FatalInstrumentationError:
		return FieldError{Message: e.Error(), Path: pathToAny(path), ErrorType: "FatalInstrumentationError"}
	default:
		return FieldError{Message: err.Error(), Path: pathToAny(path), ErrorType: "DataFetchingException"}
	}
}

func pathToAny(path []PathSegment) []interface{} {
	out := make([]interface{}, len(path))
	for i, seg := range path {
		if seg.IsIdx {
			out[i] = seg.Index
		} else {
			out[i] = seg.Field
		}
	}
	return out
}

// FieldError is spec.md §6's response-level error shape.
type FieldError struct {
	Message   string
	Path      []interface{}
	ErrorType string
}

// RequestTimeoutReason is the deterministic CancelReason.Reason used when
// a per-request timeout fires at the root (spec.md §5).
const RequestTimeoutReason = "RequestTimeout"
