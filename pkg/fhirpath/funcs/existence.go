package funcs

import (
	"github.com/octofhir/fhirpath-go/pkg/fhirpath/eval"
	"github.com/octofhir/fhirpath-go/pkg/fhirpath/types"
)

func init() {
	Register(FuncDef{
		Name:    "empty",
		MinArgs: 0,
		MaxArgs: 0,
		Fn:      fnEmpty,
	})

	Register(FuncDef{
		Name:       "exists",
		MinArgs:    0,
		MaxArgs:    1,
		LambdaArgs: []int{0},
		Fn:         fnExists,
	})

	Register(FuncDef{
		Name:       "all",
		MinArgs:    1,
		MaxArgs:    1,
		LambdaArgs: []int{0},
		Fn:         fnAll,
	})

	Register(FuncDef{
		Name:       "any",
		MinArgs:    1,
		MaxArgs:    1,
		LambdaArgs: []int{0},
		Fn:         fnExists,
	})

	Register(FuncDef{
		Name:    "allTrue",
		MinArgs: 0,
		MaxArgs: 0,
		Fn:      fnAllTrue,
	})

	Register(FuncDef{
		Name:    "anyTrue",
		MinArgs: 0,
		MaxArgs: 0,
		Fn:      fnAnyTrue,
	})

	Register(FuncDef{
		Name:    "allFalse",
		MinArgs: 0,
		MaxArgs: 0,
		Fn:      fnAllFalse,
	})

	Register(FuncDef{
		Name:    "anyFalse",
		MinArgs: 0,
		MaxArgs: 0,
		Fn:      fnAnyFalse,
	})

	Register(FuncDef{
		Name:    "count",
		MinArgs: 0,
		MaxArgs: 0,
		Fn:      fnCount,
	})

	Register(FuncDef{
		Name:    "distinct",
		MinArgs: 0,
		MaxArgs: 0,
		Fn:      fnDistinct,
	})

	Register(FuncDef{
		Name:    "isDistinct",
		MinArgs: 0,
		MaxArgs: 0,
		Fn:      fnIsDistinct,
	})

	Register(FuncDef{
		Name:    "subsetOf",
		MinArgs: 1,
		MaxArgs: 1,
		Fn:      fnSubsetOf,
	})

	Register(FuncDef{
		Name:    "supersetOf",
		MinArgs: 1,
		MaxArgs: 1,
		Fn:      fnSupersetOf,
	})
}

// fnEmpty returns true if the collection is empty.
func fnEmpty(_ *eval.Context, input types.Collection, _ []Arg) (types.Collection, error) {
	return types.BoolCollection(input.Empty()), nil
}

// fnExists returns true if the collection is not empty. With criteria it
// is the short-circuit existential quantifier; empty input yields false.
func fnExists(ctx *eval.Context, input types.Collection, args []Arg) (types.Collection, error) {
	if len(args) == 0 || args[0].Lambda == nil {
		return types.BoolCollection(!input.Empty()), nil
	}

	criteria := args[0].Lambda
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
			return types.TrueCollection, nil
		}
	}
	return types.FalseCollection, nil
}

// fnAll is the short-circuit universal quantifier; empty input is
// vacuously true.
func fnAll(ctx *eval.Context, input types.Collection, args []Arg) (types.Collection, error) {
	criteria := args[0].Lambda
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
		if !lambdaTruthy(value) {
			return types.FalseCollection, nil
		}
	}
	return types.TrueCollection, nil
}

// fnAllTrue returns true if all items are boolean true.
func fnAllTrue(_ *eval.Context, input types.Collection, _ []Arg) (types.Collection, error) {
	return types.BoolCollection(input.Empty() || input.AllTrue()), nil
}

// fnAnyTrue returns true if any item is boolean true.
func fnAnyTrue(_ *eval.Context, input types.Collection, _ []Arg) (types.Collection, error) {
	return types.BoolCollection(!input.Empty() && input.AnyTrue()), nil
}

// fnAllFalse returns true if all items are boolean false.
func fnAllFalse(_ *eval.Context, input types.Collection, _ []Arg) (types.Collection, error) {
	return types.BoolCollection(input.Empty() || input.AllFalse()), nil
}

// fnAnyFalse returns true if any item is boolean false.
func fnAnyFalse(_ *eval.Context, input types.Collection, _ []Arg) (types.Collection, error) {
	return types.BoolCollection(!input.Empty() && input.AnyFalse()), nil
}

// fnCount returns the number of items in the collection.
func fnCount(_ *eval.Context, input types.Collection, _ []Arg) (types.Collection, error) {
	return types.Collection{types.GetInteger(int64(input.Count()))}, nil
}

// fnDistinct returns a collection with duplicates removed.
func fnDistinct(_ *eval.Context, input types.Collection, _ []Arg) (types.Collection, error) {
	return input.Distinct(), nil
}

// fnIsDistinct returns true if all items are distinct.
func fnIsDistinct(_ *eval.Context, input types.Collection, _ []Arg) (types.Collection, error) {
	return types.BoolCollection(input.IsDistinct()), nil
}

// fnSubsetOf returns true if all items in input are in the argument.
func fnSubsetOf(_ *eval.Context, input types.Collection, args []Arg) (types.Collection, error) {
	other := args[0].Value
	for _, item := range input {
		if !other.Contains(item) {
			return types.FalseCollection, nil
		}
	}
	return types.TrueCollection, nil
}

// fnSupersetOf returns true if all items in the argument are in input.
func fnSupersetOf(_ *eval.Context, input types.Collection, args []Arg) (types.Collection, error) {
	other := args[0].Value
	for _, item := range other {
		if !input.Contains(item) {
			return types.FalseCollection, nil
		}
	}
	return types.TrueCollection, nil
}
