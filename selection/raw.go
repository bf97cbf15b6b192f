package selection

import (
	"github.com/airbnb/viaduct/schema"
)

// RawSelectionSet pairs a ParsedSelections with a concrete variable
// environment and the host schema, per spec.md §3. It resolves
// @skip/@include at construction time so that its leaf-path set is fixed.
type RawSelectionSet struct {
	sch      *schema.Schema
	vars     VariableEnv
	parsed   *ParsedSelections
}

// NewRawSelectionSet binds parsed against vars and sch.
func NewRawSelectionSet(sch *schema.Schema, parsed *ParsedSelections, vars VariableEnv) *RawSelectionSet {
	return &RawSelectionSet{sch: sch, vars: vars, parsed: parsed}
}

func (r *RawSelectionSet) Parsed() *ParsedSelections { return r.parsed }
func (r *RawSelectionSet) Variables() VariableEnv    { return r.vars }

// leafPath uniquely identifies one reachable leaf selection: the chain of
// output names from the root down to a scalar/enum field, disambiguated
// by any type condition narrowing encountered along the way. It is the
// unit the coverage relation compares.
type leafPath struct {
	segments []string
	typeCond string // type condition in effect at the deepest narrowing, "" if none
}

func pathKey(p leafPath) string {
	s := p.typeCond + "|"
	for _, seg := range p.segments {
		s += seg + "/"
	}
	return s
}

// leafPaths walks p (resolving directives/fragments against vars) and
// returns every reachable leaf path, prefixed by prefix and narrowed by
// typeCond (the nearest enclosing inline-fragment/spread type condition,
// if any).
func (r *RawSelectionSet) leafPaths(p *ParsedSelections, prefix []string, typeCond string) []leafPath {
	var out []leafPath
	for _, f := range p.Fields {
		if skippedByDirectives(f.Directives, r.vars) {
			continue
		}
		path := append(append([]string{}, prefix...), f.OutputName())
		if f.SubSelection == nil {
			out = append(out, leafPath{segments: path, typeCond: typeCond})
			continue
		}
		out = append(out, r.leafPaths(f.SubSelection, path, typeCond)...)
	}
	for _, inl := range p.Inline {
		if skippedByDirectives(inl.Directives, r.vars) {
			continue
		}
		cond := typeCond
		if inl.TypeCondition != "" {
			cond = inl.TypeCondition
		}
		if inl.SubSelection != nil {
			out = append(out, r.leafPaths(inl.SubSelection, prefix, cond)...)
		}
	}
	for _, sp := range p.Spreads {
		if skippedByDirectives(sp.Directives, r.vars) {
			continue
		}
		def, ok := p.Fragments[sp.Name]
		if !ok || def.SubSelection == nil {
			continue
		}
		cond := typeCond
		if def.TypeCondition != "" {
			cond = def.TypeCondition
		}
		out = append(out, r.leafPaths(def.SubSelection, prefix, cond)...)
	}
	return out
}

func skippedByDirectives(dirs []schema.DirectiveApplication, vars VariableEnv) bool {
	for _, d := range dirs {
		ifArg, ok := d.Argument("if")
		if !ok {
			continue
		}
		val := resolveBoolArg(ifArg, vars)
		switch d.Name {
		case "skip":
			if val {
				return true
			}
		case "include":
			if !val {
				return true
			}
		}
	}
	return false
}

func resolveBoolArg(l schema.Literal, vars VariableEnv) bool {
	if l.Kind() == schema.KindEnum {
		if name, isVar := trimVariableRef(mustString(l)); isVar {
			if v, ok := vars[name]; ok {
				if b, ok := v.(bool); ok {
					return b
				}
			}
			return false
		}
	}
	b, _ := l.AsBool()
	return b
}

func mustString(l schema.Literal) string {
	s, _ := l.AsString()
	return s
}

// Covers implements spec.md §3's coverage relation: A.Covers(B) is true
// iff every leaf path reachable through B is reachable through A (under
// each set's own variable environment), taking type-condition narrowing
// into account: a leaf reached under a broader (or no) type condition in
// A covers the same leaf reached under a narrower condition in B, but not
// vice versa -- A must have at least as broad a view as B at every leaf.
func (a *RawSelectionSet) Covers(b *RawSelectionSet) bool {
	aPaths := a.leafPaths(a.parsed, nil, "")
	bPaths := b.leafPaths(b.parsed, nil, "")

	aByKey := map[string]leafPath{}
	for _, p := range aPaths {
		aByKey[pathKey(p)] = p
	}
	// A leaf with no type condition in A covers any type-conditioned
	// version of the same segments in B; index unconditioned A paths by
	// segment path alone too.
	aUnconditioned := map[string]bool{}
	for _, p := range aPaths {
		if p.typeCond == "" {
			aUnconditioned[segmentsKey(p.segments)] = true
		}
	}

	for _, p := range bPaths {
		if _, ok := aByKey[pathKey(p)]; ok {
			continue
		}
		if aUnconditioned[segmentsKey(p.segments)] {
			continue
		}
		return false
	}
	return true
}

func segmentsKey(segs []string) string {
	s := ""
	for _, seg := range segs {
		s += seg + "/"
	}
	return s
}
