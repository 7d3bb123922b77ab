package funcs

import (
	"github.com/octofhir/fhirpath-go/pkg/fhirpath/eval"
	"github.com/octofhir/fhirpath-go/pkg/fhirpath/types"
)

func init() {
	Register(FuncDef{
		Name:       "where",
		MinArgs:    1,
		MaxArgs:    1,
		LambdaArgs: []int{0},
		Fn:         fnWhere,
	})

	Register(FuncDef{
		Name:       "select",
		MinArgs:    1,
		MaxArgs:    1,
		LambdaArgs: []int{0},
		Fn:         fnSelect,
	})

	Register(FuncDef{
		Name:       "repeat",
		MinArgs:    1,
		MaxArgs:    1,
		LambdaArgs: []int{0},
		Fn:         fnRepeat,
	})

	Register(FuncDef{
		Name:       "ofType",
		MinArgs:    1,
		MaxArgs:    1,
		LambdaArgs: []int{0},
		Fn:         fnOfType,
	})
}

// lambdaTruthy reports whether a criteria result keeps an element: a
// singleton boolean true. Empty and non-boolean results exclude it.
func lambdaTruthy(result types.Collection) bool {
	if len(result) != 1 {
		return false
	}
	b, isBool := result[0].(types.Boolean)
	return isBool && b.Bool()
}

// fnWhere retains elements whose criteria evaluates to true, preserving
// input order.
func fnWhere(ctx *eval.Context, input types.Collection, args []Arg) (types.Collection, error) {
	criteria := args[0].Lambda
	result := types.Collection{}

	for i, item := range input {
		if i%100 == 0 {
			if err := ctx.CheckCancellation(); err != nil {
				return nil, err
			}
		}
		value, err := criteria.Run(item, i, nil)
		if err != nil {
			return nil, err
		}
		if lambdaTruthy(value) {
			result = append(result, item)
		}
	}
	return result, nil
}

// fnSelect projects each element, flattening one level of collection in
// the outputs.
func fnSelect(ctx *eval.Context, input types.Collection, args []Arg) (types.Collection, error) {
	projection := args[0].Lambda
	result := types.Collection{}

	for i, item := range input {
		if i%100 == 0 {
			if err := ctx.CheckCancellation(); err != nil {
				return nil, err
			}
		}
		value, err := projection.Run(item, i, nil)
		if err != nil {
			return nil, err
		}
		result = append(result, value...)
		if err := ctx.CheckCollectionSize(result); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// fnRepeat applies the projection to a fixpoint: newly produced elements
// (by equivalence) are fed back in until no new element appears. The
// equivalence check guards against cycles.
func fnRepeat(ctx *eval.Context, input types.Collection, args []Arg) (types.Collection, error) {
	projection := args[0].Lambda
	result := types.Collection{}
	work := input

	for len(work) > 0 {
		if err := ctx.CheckCancellation(); err != nil {
			return nil, err
		}
		next := types.Collection{}
		for i, item := range work {
			value, err := projection.Run(item, i, nil)
			if err != nil {
				return nil, err
			}
			for _, v := range value {
				if !result.ContainsEquivalent(v) {
					result = append(result, v)
					next = append(next, v)
				}
			}
		}
		if err := ctx.CheckCollectionSize(result); err != nil {
			return nil, err
		}
		work = next
	}
	return result, nil
}

// fnOfType filters the collection to elements of the named type.
func fnOfType(ctx *eval.Context, input types.Collection, args []Arg) (types.Collection, error) {
	spec, ok := eval.TypeNameOf(args[0].Lambda.Expression())
	if !ok {
		return nil, eval.NewError(eval.ErrType, "ofType expects a type name argument")
	}

	result := types.Collection{}
	for _, item := range input {
		if eval.TypeMatches(ctx, item, spec) {
			result = append(result, item)
		}
	}
	return result, nil
}
