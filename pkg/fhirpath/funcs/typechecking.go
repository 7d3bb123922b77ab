package funcs

import (
	"github.com/octofhir/fhirpath-go/pkg/fhirpath/eval"
	"github.com/octofhir/fhirpath-go/pkg/fhirpath/types"
)

func init() {
	// is() and as() take their argument as an unevaluated type name,
	// since Patient or FHIR.string would otherwise be navigated as paths.
	Register(FuncDef{
		Name:       "is",
		MinArgs:    1,
		MaxArgs:    1,
		LambdaArgs: []int{0},
		Fn:         fnIs,
	})

	Register(FuncDef{
		Name:       "as",
		MinArgs:    1,
		MaxArgs:    1,
		LambdaArgs: []int{0},
		Fn:         fnAs,
	})

	Register(FuncDef{
		Name:    "type",
		MinArgs: 0,
		MaxArgs: 0,
		Fn:      fnType,
	})
}

// fnIs is the function form of the is operator.
func fnIs(ctx *eval.Context, input types.Collection, args []Arg) (types.Collection, error) {
	spec, ok := eval.TypeNameOf(args[0].Lambda.Expression())
	if !ok {
		return nil, eval.NewError(eval.ErrType, "is expects a type name argument")
	}

	if input.Empty() {
		return types.EmptyCollection, nil
	}
	if len(input) > 1 {
		return nil, eval.MultiItemError(len(input))
	}
	return types.BoolCollection(eval.TypeMatches(ctx, input[0], spec)), nil
}

// fnAs is the function form of the as operator.
func fnAs(ctx *eval.Context, input types.Collection, args []Arg) (types.Collection, error) {
	spec, ok := eval.TypeNameOf(args[0].Lambda.Expression())
	if !ok {
		return nil, eval.NewError(eval.ErrType, "as expects a type name argument")
	}

	if input.Empty() {
		return types.EmptyCollection, nil
	}
	if len(input) > 1 {
		return nil, eval.MultiItemError(len(input))
	}
	return eval.CastAs(ctx, input[0], spec), nil
}

// fnType reifies each item's type as a TypeInfo value.
func fnType(_ *eval.Context, input types.Collection, _ []Arg) (types.Collection, error) {
	result := make(types.Collection, 0, len(input))
	for _, item := range input {
		result = append(result, item.TypeInfo())
	}
	return result, nil
}
