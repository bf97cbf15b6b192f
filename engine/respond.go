package engine

import (
	"context"

	"github.com/airbnb/viaduct/schema"
	"github.com/airbnb/viaduct/selection"
)

// AssembleResponse drains a FieldExecution tree to completion and builds
// spec.md §6's `{ data, errors }` response shape, applying the null
// propagation rule of spec.md §7: a non-null field whose value becomes an
// error nulls out, and that null propagates to the nearest nullable
// ancestor.
func (ex *Executor) AssembleResponse(ctx context.Context, queryValue *EngineObjectData, vars selection.VariableEnv, fes map[string]*FieldExecution) (map[string]interface{}, []FieldError) {
	data, errs, _ := ex.assembleFields(ctx, queryValue, vars, fes)

	// A fatal instrumentation failure (spec.md §4.2) discards whatever
	// partial data the rest of the tree produced -- the other fields may
	// have settled as ordinary cancellation errors once ex.Group.Cancel
	// ran, racing with their own resolvers, so the fatal error itself is
	// the only result reported, not folded in alongside them.
	if fatal := ex.FatalError(); fatal != nil {
		return nil, []FieldError{AsFieldError(nil, fatal)}
	}

	return data, errs
}

// assembleFields assembles every field in fes, returning whether any of
// them propagated a null up through a non-null boundary (the caller, if
// itself nested inside a non-null field, must null out in turn).
func (ex *Executor) assembleFields(ctx context.Context, queryValue *EngineObjectData, vars selection.VariableEnv, fes map[string]*FieldExecution) (map[string]interface{}, []FieldError, bool) {
	data := make(map[string]interface{}, len(fes))
	var errs []FieldError
	propagated := false
	for name, fe := range fes {
		v, fieldErrs, propagate := ex.assembleField(ctx, fe, queryValue, vars)
		errs = append(errs, fieldErrs...)
		if propagate {
			propagated = true
			data[name] = nil
			continue
		}
		data[name] = v
	}
	return data, errs, propagated
}

// assembleField awaits fe and recurses into composite/list values,
// returning (value, errors, propagateNull). propagateNull is true when
// fe's own declared type is non-null and its value had to become null --
// the caller must null itself out too.
func (ex *Executor) assembleField(ctx context.Context, fe *FieldExecution, queryValue *EngineObjectData, vars selection.VariableEnv) (interface{}, []FieldError, bool) {
	v, err := fe.Result.Await()
	if err != nil {
		return nil, []FieldError{AsFieldError(fe.Path, err)}, ex.fieldIsNonNull(fe)
	}
	if v == nil {
		return nil, nil, false
	}

	typeRef := ex.fieldTypeRef(fe)

	val, errs, inner := ex.assembleValue(ctx, fe, typeRef, v, fe.Path, queryValue, vars)
	if inner {
		return nil, errs, ex.fieldIsNonNull(fe)
	}
	return val, errs, false
}

// assembleValue recurses through list nesting, then into a single
// composite object's children, or returns a leaf value unchanged.
// `inner` reports whether a non-null child forced this value itself to
// null -- distinct from fe's own nullability, which the caller applies.
//
// A list's elements are planned in one pass before any of them is
// awaited: planField only starts a field's resolution (deferred.Spawn),
// it does not block, but assembleFields *does* block on each child's
// result. Planning every element up front (instead of recursing
// plan-then-await per element) is what lets sibling list elements whose
// fields share a batching resolver (or a node resolver's batch, via
// nodecache) actually land in the same tick -- proving the
// exactly-once-per-batch property the resolver's own batching depends on.
func (ex *Executor) assembleValue(ctx context.Context, fe *FieldExecution, typeRef *refView, v interface{}, path []PathSegment, queryValue *EngineObjectData, vars selection.VariableEnv) (interface{}, []FieldError, bool) {
	items, isSlice := v.([]interface{})
	isList := typeRef != nil && typeRef.isList || (typeRef == nil && isSlice)
	if isList {
		if !isSlice {
			return v, nil, false
		}
		var elem *refView
		if typeRef != nil {
			elem = typeRef.elem
		}

		plans := make([]*listItemPlan, len(items))
		for i, item := range items {
			if item == nil {
				continue
			}
			itemPath := append(append([]PathSegment{}, path...), IndexSeg(i))
			plans[i] = ex.planListItem(ctx, fe, elem, item, itemPath, queryValue, vars)
		}

		out := make([]interface{}, len(items))
		var errs []FieldError
		for i, p := range plans {
			if p == nil {
				out[i] = nil
				continue
			}
			val, itemErrs, propagate := ex.awaitListItem(ctx, p, queryValue, vars)
			errs = append(errs, itemErrs...)
			if propagate && elem != nil && elem.nonNull {
				return nil, errs, true
			}
			out[i] = val
		}
		return out, errs, false
	}

	if fe.Field.SubSelection == nil {
		return v, nil, false
	}

	obj, ok := v.(*EngineObjectData)
	if !ok {
		return v, nil, false
	}

	childTypeName := ex.resolveChildTypeName(fe, typeRef, obj)
	children := make(map[string]*FieldExecution, len(fe.Field.SubSelection.Fields))
	for _, child := range fe.Field.SubSelection.Fields {
		childPath := append(append([]PathSegment{}, path...), FieldSeg(child.OutputName()))
		children[child.OutputName()] = ex.planField(ctx, childTypeName, obj, queryValue, child, vars, childPath)
	}
	data, errs, propagated := ex.assembleFields(ctx, queryValue, vars, children)
	if propagated {
		return nil, errs, true
	}
	return data, errs, false
}

// listItemPlan is one list element's planned-but-not-yet-awaited state:
// either a composite object whose children have already been planField'd,
// or a scalar/nested-list value carried through unchanged for
// awaitListItem to recurse into.
type listItemPlan struct {
	elem      *refView
	path      []PathSegment
	composite bool
	children  map[string]*FieldExecution // set when composite
	raw       interface{}                // set when !composite
}

func (ex *Executor) planListItem(ctx context.Context, fe *FieldExecution, elem *refView, item interface{}, itemPath []PathSegment, queryValue *EngineObjectData, vars selection.VariableEnv) *listItemPlan {
	if fe.Field.SubSelection == nil {
		return &listItemPlan{elem: elem, path: itemPath, raw: item}
	}
	obj, ok := item.(*EngineObjectData)
	if !ok {
		return &listItemPlan{elem: elem, path: itemPath, raw: item}
	}
	childTypeName := ex.resolveChildTypeName(fe, elem, obj)
	children := make(map[string]*FieldExecution, len(fe.Field.SubSelection.Fields))
	for _, child := range fe.Field.SubSelection.Fields {
		childPath := append(append([]PathSegment{}, itemPath...), FieldSeg(child.OutputName()))
		children[child.OutputName()] = ex.planField(ctx, childTypeName, obj, queryValue, child, vars, childPath)
	}
	return &listItemPlan{elem: elem, path: itemPath, composite: true, children: children}
}

func (ex *Executor) awaitListItem(ctx context.Context, p *listItemPlan, queryValue *EngineObjectData, vars selection.VariableEnv) (interface{}, []FieldError, bool) {
	if !p.composite {
		return ex.assembleValue(ctx, nil, p.elem, p.raw, p.path, queryValue, vars)
	}
	data, errs, propagated := ex.assembleFields(ctx, queryValue, vars, p.children)
	return data, errs, propagated
}

// refView is a flattened, direction-agnostic view of a schema.TypeRef's
// outermost wrapping, used only to decide null-propagation and list
// recursion without engine needing to re-walk schema.TypeRef at every
// nesting level.
type refView struct {
	nonNull bool
	isList  bool
	elem    *refView // set when isList
	named   string   // the leaf type name, set when !isList
}

func newRefView(r schema.TypeRef) *refView {
	if r.List != nil {
		return &refView{nonNull: r.NonNull, isList: true, elem: newRefView(*r.List)}
	}
	return &refView{nonNull: r.NonNull, named: r.Name}
}

func (ex *Executor) fieldTypeRef(fe *FieldExecution) *refView {
	if ex.Schema == nil {
		return nil
	}
	t, ok := ex.Schema.Types[fe.TypeName]
	if !ok {
		return nil
	}
	f, ok := t.Fields[fe.FieldName]
	if !ok {
		return nil
	}
	return newRefView(f.Type)
}

func (ex *Executor) fieldIsNonNull(fe *FieldExecution) bool {
	ref := ex.fieldTypeRef(fe)
	return ref != nil && ref.nonNull
}

// resolveChildTypeName picks the concrete type to plan a composite
// field's children against: the statically declared named type, unless
// the object carries its own "__typename" (the documented mechanism for
// resolving an interface/union field to its runtime type).
func (ex *Executor) resolveChildTypeName(fe *FieldExecution, ref *refView, obj *EngineObjectData) string {
	static := ""
	if ref != nil {
		leaf := ref
		for leaf.isList {
			leaf = leaf.elem
		}
		static = leaf.named
	}
	if ex.Schema != nil {
		if t, ok := ex.Schema.Types[static]; ok && t.Kind != schema.KindInterfaceType && t.Kind != schema.KindUnionType {
			return static
		}
	}
	if v, err := obj.Fetch("__typename"); err == nil {
		if name, ok := v.(string); ok && name != "" {
			return name
		}
	}
	return static
}
