package funcs

import (
	"github.com/octofhir/fhirpath-go/pkg/fhirpath/eval"
	"github.com/octofhir/fhirpath-go/pkg/fhirpath/types"
)

func init() {
	Register(FuncDef{
		Name:       "aggregate",
		MinArgs:    1,
		MaxArgs:    2,
		LambdaArgs: []int{0},
		Fn:         fnAggregate,
	})

	Register(FuncDef{
		Name:    "children",
		MinArgs: 0,
		MaxArgs: 0,
		Fn:      fnChildren,
	})

	Register(FuncDef{
		Name:    "descendants",
		MinArgs: 0,
		MaxArgs: 0,
		Fn:      fnDescendants,
	})

	Register(FuncDef{
		Name:    "not",
		MinArgs: 0,
		MaxArgs: 0,
		Fn:      fnNot,
	})

	Register(FuncDef{
		Name:    "hasValue",
		MinArgs: 0,
		MaxArgs: 0,
		Fn:      fnHasValue,
	})

	Register(FuncDef{
		Name:    "getValue",
		MinArgs: 0,
		MaxArgs: 0,
		Fn:      fnGetValue,
	})
}

// fnAggregate folds the collection through the aggregator expression with
// $total bound to the running accumulator, starting from the optional
// init value.
func fnAggregate(ctx *eval.Context, input types.Collection, args []Arg) (types.Collection, error) {
	aggregator := args[0].Lambda

	total := types.EmptyCollection
	if len(args) > 1 {
		total = args[1].Value
	}

	for i, item := range input {
		if i%100 == 0 {
			if err := ctx.CheckCancellation(); err != nil {
				return nil, err
			}
		}
		next, err := aggregator.Run(item, i, total)
		if err != nil {
			return nil, err
		}
		total = next
	}
	return total, nil
}

// fnChildren returns all direct children of the input elements.
func fnChildren(ctx *eval.Context, input types.Collection, _ []Arg) (types.Collection, error) {
	result := types.Collection{}
	for _, item := range input {
		if obj, isObj := item.(*types.ObjectValue); isObj {
			result = append(result, obj.Children()...)
		}
	}
	if err := ctx.CheckCollectionSize(result); err != nil {
		return nil, err
	}
	return result, nil
}

// fnDescendants returns all descendants of the input, breadth first.
func fnDescendants(ctx *eval.Context, input types.Collection, _ []Arg) (types.Collection, error) {
	maxDepth := ctx.Limit("maxDepth")
	if maxDepth <= 0 {
		maxDepth = 100
	}

	result := types.Collection{}
	work := input
	for depth := 0; depth < maxDepth && len(work) > 0; depth++ {
		if err := ctx.CheckCancellation(); err != nil {
			return nil, err
		}
		next := types.Collection{}
		for _, item := range work {
			if obj, isObj := item.(*types.ObjectValue); isObj {
				next = append(next, obj.Children()...)
			}
		}
		result = append(result, next...)
		if err := ctx.CheckCollectionSize(result); err != nil {
			return nil, err
		}
		work = next
	}
	return result, nil
}

// fnNot applies three-valued logical negation to the input.
func fnNot(_ *eval.Context, input types.Collection, _ []Arg) (types.Collection, error) {
	return eval.Not(input)
}

// fnHasValue reports whether the input is a single primitive value.
func fnHasValue(_ *eval.Context, input types.Collection, _ []Arg) (types.Collection, error) {
	if len(input) != 1 {
		return types.FalseCollection, nil
	}
	_, isObj := input[0].(*types.ObjectValue)
	return types.BoolCollection(!isObj), nil
}

// fnGetValue returns the primitive value of a single input, or empty.
func fnGetValue(_ *eval.Context, input types.Collection, _ []Arg) (types.Collection, error) {
	if len(input) != 1 {
		return types.EmptyCollection, nil
	}
	if _, isObj := input[0].(*types.ObjectValue); isObj {
		return types.EmptyCollection, nil
	}
	return input, nil
}
