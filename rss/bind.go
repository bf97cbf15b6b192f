package rss

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/samsarahq/go/oops"

	"github.com/airbnb/viaduct/selection"
)

// BindingKind tags a VariableBinding's source, per spec.md §4.4.
type BindingKind int

const (
	BindFromArgument BindingKind = iota
	BindFromObjectField
	BindFromQueryField
	BindProvider
)

// VariableBinding declares where one (or, for BindProvider, several)
// variables come from.
type VariableBinding struct {
	Kind BindingKind

	// BindFromArgument
	VarName Name
	ArgName string

	// BindFromObjectField / BindFromQueryField
	Path string // dotted field path, e.g. "profile.displayName"

	// BindProvider
	ProviderNames []Name
	ProviderFn    func(ctx context.Context, args map[string]Value) (map[Name]Value, error)
}

func (b VariableBinding) names() []Name {
	if b.Kind == BindProvider {
		return b.ProviderNames
	}
	return []Name{b.VarName}
}

// Spec is the explicit builder-call input to Build, corresponding to the
// "resolver class" of spec.md §4.4 made into data per spec.md §9.
type Spec struct {
	ObjectSelections *selection.ParsedSelections // nil if this resolver has no object RSS
	QuerySelections  *selection.ParsedSelections // nil if this resolver has no query RSS
	Bindings         []VariableBinding
	Attribution      string
	ForChecker       bool
}

// Built is the factory's output: the materialized object/query RSS pair,
// or nil for whichever side has no selections.
type Built struct {
	ObjectSelections *RequiredSelectionSet
	QuerySelections  *RequiredSelectionSet
}

// Build validates spec per spec.md §4.4's seven bootstrap rules and
// constructs the resulting RSS pair, or returns a BootstrapError-flavored
// error naming the violated rule.
func Build(spec Spec) (*Built, error) {
	if len(spec.Bindings) > 0 && spec.ObjectSelections == nil && spec.QuerySelections == nil {
		return nil, oops.Errorf("%s: declares variables but has no selection sets (VariablesRequireFragment)", spec.Attribution)
	}

	free := map[Name]struct{}{}
	if spec.ObjectSelections != nil {
		mergeFreeVars(free, spec.ObjectSelections.FreeVariables())
	}
	if spec.QuerySelections != nil {
		mergeFreeVars(free, spec.QuerySelections.FreeVariables())
	}

	producedBy := map[Name]string{} // variable -> description of producing binding, for duplicate detection
	var objVRs, queryVRs []VariablesResolver
	declaredNames := map[Name]struct{}{}

	for i, b := range spec.Bindings {
		if err := validateBindingSourcing(b, i, spec.Attribution); err != nil {
			return nil, err
		}
		if b.Kind == BindFromQueryField && spec.QuerySelections == nil {
			return nil, oops.Errorf("%s: FromQueryField binding for %q requires querySelections, which is absent", spec.Attribution, b.VarName)
		}
		names := b.names()
		for _, n := range names {
			if _, dup := producedBy[n]; dup {
				return nil, oops.Errorf("%s: variable %q is bound more than once (DuplicateVariable)", spec.Attribution, n)
			}
			producedBy[n] = bindingDescription(b)
			declaredNames[n] = struct{}{}
		}

		vr, target, err := toVariablesResolver(b, spec)
		if err != nil {
			return nil, err
		}
		switch target {
		case targetObject:
			objVRs = append(objVRs, vr)
		case targetQuery:
			queryVRs = append(queryVRs, vr)
		}
	}

	var unused []Name
	for n := range declaredNames {
		if _, ok := free[n]; !ok {
			unused = append(unused, n)
		}
	}
	if len(unused) > 0 {
		sort.Strings(unused)
		return nil, oops.Errorf("%s: declared variable(s) never referenced in any selection set: %s", spec.Attribution, strings.Join(unused, ", "))
	}

	var missing []Name
	for n := range free {
		if _, ok := declaredNames[n]; !ok {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, oops.Errorf("%s: variable(s) referenced in a selection set have no binding: %s (UnsourcedVariable)", spec.Attribution, strings.Join(missing, ", "))
	}

	built := &Built{}
	if spec.ObjectSelections != nil {
		built.ObjectSelections = &RequiredSelectionSet{
			Selections:         spec.ObjectSelections,
			VariablesResolvers: objVRs,
			ForChecker:         spec.ForChecker,
			Attribution:        spec.Attribution,
		}
	}
	if spec.QuerySelections != nil {
		built.QuerySelections = &RequiredSelectionSet{
			Selections:         spec.QuerySelections,
			VariablesResolvers: queryVRs,
			ForChecker:         spec.ForChecker,
			Attribution:        spec.Attribution,
		}
	}
	return built, nil
}

func mergeFreeVars(into, from map[Name]struct{}) {
	for n := range from {
		into[n] = struct{}{}
	}
}

func validateBindingSourcing(b VariableBinding, idx int, attribution string) error {
	sourced := 0
	switch b.Kind {
	case BindFromArgument:
		if b.ArgName != "" {
			sourced++
		}
	case BindFromObjectField, BindFromQueryField:
		if b.Path != "" {
			sourced++
		}
	case BindProvider:
		if b.ProviderFn != nil {
			sourced++
		}
	}
	if sourced == 0 {
		return oops.Errorf("%s: binding #%d has no source (UnsourcedVariable)", attribution, idx)
	}
	// OverconstrainedVariable: a binding naming more than one source kind
	// at once is impossible by construction here (BindingKind is a single
	// tag), but a caller assembling Bindings programmatically could set
	// fields from multiple kinds on one struct; detect that misuse.
	sources := 0
	if b.ArgName != "" {
		sources++
	}
	if b.Path != "" {
		sources++
	}
	if b.ProviderFn != nil {
		sources++
	}
	if sources > 1 {
		return oops.Errorf("%s: binding #%d sets more than one source (OverconstrainedVariable)", attribution, idx)
	}
	return nil
}

func bindingDescription(b VariableBinding) string {
	switch b.Kind {
	case BindFromArgument:
		return "FromArgument(" + b.ArgName + ")"
	case BindFromObjectField:
		return "FromObjectField(" + b.Path + ")"
	case BindFromQueryField:
		return "FromQueryField(" + b.Path + ")"
	default:
		return "VariablesProvider"
	}
}

type target int

const (
	targetObject target = iota
	targetQuery
	targetNone
)

func toVariablesResolver(b VariableBinding, spec Spec) (VariablesResolver, target, error) {
	switch b.Kind {
	case BindFromArgument:
		argName := b.ArgName
		varName := b.VarName
		return VariablesResolver{
			VariableNames: []Name{varName},
			InputKeys:     []Name{argName},
			Resolve: func(ctx context.Context, inputs map[Name]Value) (map[Name]Value, error) {
				return map[Name]Value{varName: inputs[argName]}, nil
			},
		}, targetNone, nil

	case BindFromObjectField:
		varName := b.VarName
		path := b.Path
		return VariablesResolver{
			VariableNames: []Name{varName},
			InputKeys:     []Name{path},
			Resolve: func(ctx context.Context, inputs map[Name]Value) (map[Name]Value, error) {
				return map[Name]Value{varName: inputs[path]}, nil
			},
		}, targetObject, nil

	case BindFromQueryField:
		varName := b.VarName
		path := b.Path
		return VariablesResolver{
			VariableNames: []Name{varName},
			InputKeys:     []Name{path},
			Resolve: func(ctx context.Context, inputs map[Name]Value) (map[Name]Value, error) {
				return map[Name]Value{varName: inputs[path]}, nil
			},
		}, targetQuery, nil

	case BindProvider:
		names := append([]Name{}, b.ProviderNames...)
		fn := b.ProviderFn
		return VariablesResolver{
			VariableNames: names,
			Resolve: func(ctx context.Context, inputs map[Name]Value) (map[Name]Value, error) {
				args := make(map[string]Value, len(inputs))
				for k, v := range inputs {
					args[k] = v
				}
				return fn(ctx, args)
			},
		}, targetNone, nil
	}
	return VariablesResolver{}, targetNone, oops.Errorf("unknown binding kind")
}

// ParseVariablesDirective parses an `@Variables` provider-declaration
// string per spec.md §4.4 rule 6: all-whitespace or all-commas strings
// produce zero variables; otherwise entries are "name:Type" pairs
// separated by commas, and anything else is a structured parse error
// naming the offending token (spec.md §9: NOT the source's generic
// "Failed requirement" message).
func ParseVariablesDirective(s string) ([]string, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" || isAllCommas(trimmed) {
		return nil, nil
	}
	var names []string
	for _, rawEntry := range strings.Split(trimmed, ",") {
		entry := strings.TrimSpace(rawEntry)
		if entry == "" {
			continue
		}
		parts := strings.Split(entry, ":")
		if len(parts) != 2 {
			return nil, oops.Errorf("malformed @Variables entry %q: expected \"name:Type\"", entry)
		}
		name := strings.TrimSpace(parts[0])
		typ := strings.TrimSpace(parts[1])
		if name == "" || typ == "" {
			return nil, oops.Errorf("malformed @Variables entry %q: empty name or type", entry)
		}
		if !variablesDirectiveNameRe.MatchString(name) {
			return nil, oops.Errorf("malformed @Variables entry %q: invalid variable name %q", entry, name)
		}
		names = append(names, name)
	}
	return names, nil
}

var variablesDirectiveNameRe = regexp.MustCompile(`^[_A-Za-z][_A-Za-z0-9]*$`)

func isAllCommas(s string) bool {
	for _, r := range s {
		if r != ',' && r != ' ' {
			return false
		}
	}
	return true
}
