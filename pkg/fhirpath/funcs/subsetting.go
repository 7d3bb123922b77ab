package funcs

import (
	"github.com/octofhir/fhirpath-go/pkg/fhirpath/eval"
	"github.com/octofhir/fhirpath-go/pkg/fhirpath/types"
)

func init() {
	Register(FuncDef{
		Name:    "first",
		MinArgs: 0,
		MaxArgs: 0,
		Fn:      fnFirst,
	})

	Register(FuncDef{
		Name:    "last",
		MinArgs: 0,
		MaxArgs: 0,
		Fn:      fnLast,
	})

	Register(FuncDef{
		Name:    "tail",
		MinArgs: 0,
		MaxArgs: 0,
		Fn:      fnTail,
	})

	Register(FuncDef{
		Name:    "skip",
		MinArgs: 1,
		MaxArgs: 1,
		Fn:      fnSkip,
	})

	Register(FuncDef{
		Name:    "take",
		MinArgs: 1,
		MaxArgs: 1,
		Fn:      fnTake,
	})

	Register(FuncDef{
		Name:    "single",
		MinArgs: 0,
		MaxArgs: 0,
		Fn:      fnSingle,
	})

	Register(FuncDef{
		Name:    "intersect",
		MinArgs: 1,
		MaxArgs: 1,
		Fn:      fnIntersect,
	})

	Register(FuncDef{
		Name:    "exclude",
		MinArgs: 1,
		MaxArgs: 1,
		Fn:      fnExclude,
	})

	Register(FuncDef{
		Name:    "union",
		MinArgs: 1,
		MaxArgs: 1,
		Fn:      fnUnion,
	})

	Register(FuncDef{
		Name:    "combine",
		MinArgs: 1,
		MaxArgs: 1,
		Fn:      fnCombine,
	})
}

// fnFirst returns the first element of the collection.
func fnFirst(_ *eval.Context, input types.Collection, _ []Arg) (types.Collection, error) {
	if first, ok := input.First(); ok {
		return types.Collection{first}, nil
	}
	return types.EmptyCollection, nil
}

// fnLast returns the last element of the collection.
func fnLast(_ *eval.Context, input types.Collection, _ []Arg) (types.Collection, error) {
	if last, ok := input.Last(); ok {
		return types.Collection{last}, nil
	}
	return types.EmptyCollection, nil
}

// fnTail returns all elements except the first.
func fnTail(_ *eval.Context, input types.Collection, _ []Arg) (types.Collection, error) {
	return input.Tail(), nil
}

// fnSkip returns elements after skipping the first n.
func fnSkip(_ *eval.Context, input types.Collection, args []Arg) (types.Collection, error) {
	n, err := integerArg(args[0], "skip")
	if err != nil {
		return nil, err
	}
	return input.Skip(int(n)), nil
}

// fnTake returns the first n elements.
func fnTake(_ *eval.Context, input types.Collection, args []Arg) (types.Collection, error) {
	n, err := integerArg(args[0], "take")
	if err != nil {
		return nil, err
	}
	return input.Take(int(n)), nil
}

// fnSingle returns the single element or errors if not exactly one.
func fnSingle(_ *eval.Context, input types.Collection, _ []Arg) (types.Collection, error) {
	if input.Empty() {
		return types.EmptyCollection, nil
	}
	if len(input) > 1 {
		return nil, eval.MultiItemError(len(input))
	}
	return input, nil
}

// fnIntersect returns elements present in both collections.
func fnIntersect(_ *eval.Context, input types.Collection, args []Arg) (types.Collection, error) {
	return input.Intersect(args[0].Value), nil
}

// fnExclude returns elements not present in the other collection.
func fnExclude(_ *eval.Context, input types.Collection, args []Arg) (types.Collection, error) {
	return input.Exclude(args[0].Value), nil
}

// fnUnion merges with the argument, deduplicating by equivalence.
func fnUnion(_ *eval.Context, input types.Collection, args []Arg) (types.Collection, error) {
	return input.Union(args[0].Value), nil
}

// fnCombine concatenates with the argument, keeping duplicates.
func fnCombine(_ *eval.Context, input types.Collection, args []Arg) (types.Collection, error) {
	return input.Combine(args[0].Value), nil
}

// integerArg extracts a singleton integer argument.
func integerArg(arg Arg, op string) (int64, error) {
	col := arg.Value
	if col.Empty() {
		return 0, eval.NewError(eval.ErrType, "expected integer argument in %s, got empty collection", op)
	}
	if len(col) > 1 {
		return 0, eval.MultiItemError(len(col))
	}
	i, isInt := col[0].(types.Integer)
	if !isInt {
		return 0, eval.TypeErrorf("Integer", col[0].Type(), op)
	}
	return i.Value(), nil
}
