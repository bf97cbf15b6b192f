package bootstrap

import (
	"context"

	"github.com/samsarahq/go/oops"

	"github.com/airbnb/viaduct/engine"
	"github.com/airbnb/viaduct/rss"
	"github.com/airbnb/viaduct/selection"
)

type selectionPlane int

const (
	planeObject selectionPlane = iota
	planeQuery
)

type namedSelectionSpec struct {
	name       string
	plane      selectionPlane
	selections *selection.ParsedSelections
	bindings   []rss.VariableBinding
}

// CheckerBuilder accumulates a checker's named object/query selection
// sets and its decision function, per spec.md §6's `checker {…}` grammar.
type CheckerBuilder struct {
	specs []*namedSelectionSpec
	fn    func(ctx context.Context, args map[string]interface{}, objectDataMap map[string]*engine.EngineObjectData) error
}

// Checker starts a new CheckerBuilder.
func Checker() *CheckerBuilder {
	return &CheckerBuilder{}
}

// ObjectSelections declares a named required-selection-set the checker
// reads from the guarded object, keyed by name in the objectDataMap
// handed to Fn.
func (b *CheckerBuilder) ObjectSelections(name string, p *selection.ParsedSelections) *CheckerBuilder {
	b.specs = append(b.specs, &namedSelectionSpec{name: name, plane: planeObject, selections: p})
	return b
}

// QuerySelections declares a named required-selection-set the checker
// reads from the query root.
func (b *CheckerBuilder) QuerySelections(name string, p *selection.ParsedSelections) *CheckerBuilder {
	b.specs = append(b.specs, &namedSelectionSpec{name: name, plane: planeQuery, selections: p})
	return b
}

// BindArgument binds a variable on the most recently declared named
// selection set to one of the checker's own field arguments.
func (b *CheckerBuilder) BindArgument(varName, argName string) *CheckerBuilder {
	b.currentSpec().bindings = append(b.currentSpec().bindings, rss.VariableBinding{Kind: rss.BindFromArgument, VarName: varName, ArgName: argName})
	return b
}

func (b *CheckerBuilder) currentSpec() *namedSelectionSpec {
	return b.specs[len(b.specs)-1]
}

// Fn registers the checker's decision function: returning a non-nil error
// fails the guarded field(s), per spec.md §6 ("throws to fail").
func (b *CheckerBuilder) Fn(fn func(ctx context.Context, args map[string]interface{}, objectDataMap map[string]*engine.EngineObjectData) error) *CheckerBuilder {
	b.fn = fn
	return b
}

func (b *CheckerBuilder) build(attribution string) (*engine.CheckerExecutor, error) {
	if b.fn == nil {
		return nil, oops.Errorf("%s: checker declares no Fn", attribution)
	}

	rssets := make(map[string]*rss.RequiredSelectionSet, len(b.specs))
	for _, spec := range b.specs {
		rssSpec := rss.Spec{
			Bindings:    spec.bindings,
			Attribution: attribution + " [" + spec.name + "]",
			ForChecker:  true,
		}
		if spec.plane == planeQuery {
			rssSpec.QuerySelections = spec.selections
		} else {
			rssSpec.ObjectSelections = spec.selections
		}
		built, err := rss.Build(rssSpec)
		if err != nil {
			return nil, err
		}
		if spec.plane == planeQuery {
			rssets[spec.name] = built.QuerySelections
		} else {
			rssets[spec.name] = built.ObjectSelections
		}
	}

	fn := b.fn
	return &engine.CheckerExecutor{
		RequiredSelectionSets: rssets,
		Execute: func(ctx context.Context, args map[string]interface{}, objectDataMap map[string]*engine.EngineObjectData, reqCtx engine.CheckerResultContext, kind engine.CheckerKind) engine.CheckerResult {
			if err := fn(ctx, args, objectDataMap); err != nil {
				return engine.CheckerResult{Err: &engine.CheckerFailure{Message: err.Error()}}
			}
			return engine.CheckSuccess()
		},
	}, nil
}
