package funcs

import (
	"github.com/octofhir/fhirpath-go/pkg/fhirpath/eval"
	"github.com/octofhir/fhirpath-go/pkg/fhirpath/types"
)

func init() {
	Register(FuncDef{Name: "abs", MinArgs: 0, MaxArgs: 0, Fn: fnAbs})
	Register(FuncDef{Name: "ceiling", MinArgs: 0, MaxArgs: 0, Fn: fnCeiling})
	Register(FuncDef{Name: "exp", MinArgs: 0, MaxArgs: 0, Fn: fnExp})
	Register(FuncDef{Name: "floor", MinArgs: 0, MaxArgs: 0, Fn: fnFloor})
	Register(FuncDef{Name: "ln", MinArgs: 0, MaxArgs: 0, Fn: fnLn})
	Register(FuncDef{Name: "log", MinArgs: 1, MaxArgs: 1, Fn: fnLog})
	Register(FuncDef{Name: "power", MinArgs: 1, MaxArgs: 1, Fn: fnPower})
	Register(FuncDef{Name: "round", MinArgs: 0, MaxArgs: 1, Fn: fnRound})
	Register(FuncDef{Name: "sqrt", MinArgs: 0, MaxArgs: 0, Fn: fnSqrt})
	Register(FuncDef{Name: "truncate", MinArgs: 0, MaxArgs: 0, Fn: fnTruncate})
	Register(FuncDef{Name: "sum", MinArgs: 0, MaxArgs: 0, Fn: fnSum})
	Register(FuncDef{Name: "min", MinArgs: 0, MaxArgs: 0, Fn: fnMin})
	Register(FuncDef{Name: "max", MinArgs: 0, MaxArgs: 0, Fn: fnMax})
	Register(FuncDef{Name: "avg", MinArgs: 0, MaxArgs: 0, Fn: fnAvg})
}

// numericInput enforces the singleton numeric input contract.
func numericInput(input types.Collection, op string) (types.Numeric, bool, error) {
	if input.Empty() {
		return nil, false, nil
	}
	if len(input) > 1 {
		return nil, false, eval.MultiItemError(len(input))
	}
	n, isNum := input[0].(types.Numeric)
	if !isNum {
		return nil, false, eval.TypeErrorf("Integer or Decimal", input[0].Type(), op)
	}
	return n, true, nil
}

// numericArg extracts a singleton numeric argument as Decimal.
func numericArg(arg Arg, op string) (types.Decimal, bool, error) {
	if arg.Value.Empty() {
		return types.Decimal{}, false, nil
	}
	if len(arg.Value) > 1 {
		return types.Decimal{}, false, eval.MultiItemError(len(arg.Value))
	}
	n, isNum := arg.Value[0].(types.Numeric)
	if !isNum {
		return types.Decimal{}, false, eval.TypeErrorf("Integer or Decimal", arg.Value[0].Type(), op)
	}
	return n.ToDecimal(), true, nil
}

// fnAbs returns the absolute value; quantities keep their unit.
func fnAbs(_ *eval.Context, input types.Collection, _ []Arg) (types.Collection, error) {
	if input.Empty() {
		return types.EmptyCollection, nil
	}
	if len(input) > 1 {
		return nil, eval.MultiItemError(len(input))
	}
	switch v := input[0].(type) {
	case types.Integer:
		result, ok := v.Abs()
		if !ok {
			return types.EmptyCollection, nil
		}
		return types.Collection{result}, nil
	case types.Decimal:
		return types.Collection{v.Abs()}, nil
	case types.Quantity:
		return types.Collection{types.NewQuantityFromDecimal(v.Value().Abs(), v.Unit())}, nil
	}
	return nil, eval.TypeErrorf("Integer, Decimal or Quantity", input[0].Type(), "abs")
}

// fnCeiling returns the smallest integer >= input.
func fnCeiling(_ *eval.Context, input types.Collection, _ []Arg) (types.Collection, error) {
	n, ok, err := numericInput(input, "ceiling")
	if err != nil || !ok {
		return types.EmptyCollection, err
	}
	return types.Collection{n.ToDecimal().Ceiling()}, nil
}

// fnExp returns e raised to the input.
func fnExp(_ *eval.Context, input types.Collection, _ []Arg) (types.Collection, error) {
	n, ok, err := numericInput(input, "exp")
	if err != nil || !ok {
		return types.EmptyCollection, err
	}
	return types.Collection{n.ToDecimal().Exp()}, nil
}

// fnFloor returns the largest integer <= input.
func fnFloor(_ *eval.Context, input types.Collection, _ []Arg) (types.Collection, error) {
	n, ok, err := numericInput(input, "floor")
	if err != nil || !ok {
		return types.EmptyCollection, err
	}
	return types.Collection{n.ToDecimal().Floor()}, nil
}

// fnLn returns the natural logarithm; non-positive input yields empty.
func fnLn(_ *eval.Context, input types.Collection, _ []Arg) (types.Collection, error) {
	n, ok, err := numericInput(input, "ln")
	if err != nil || !ok {
		return types.EmptyCollection, err
	}
	result, err := n.ToDecimal().Ln()
	if err != nil {
		return types.EmptyCollection, nil
	}
	return types.Collection{result}, nil
}

// fnLog returns the logarithm in the given base.
func fnLog(_ *eval.Context, input types.Collection, args []Arg) (types.Collection, error) {
	n, ok, err := numericInput(input, "log")
	if err != nil || !ok {
		return types.EmptyCollection, err
	}
	base, ok, err := numericArg(args[0], "log")
	if err != nil || !ok {
		return types.EmptyCollection, err
	}
	result, err := n.ToDecimal().Log(base)
	if err != nil {
		return types.EmptyCollection, nil
	}
	return types.Collection{result}, nil
}

// fnPower raises the input to the given exponent.
func fnPower(_ *eval.Context, input types.Collection, args []Arg) (types.Collection, error) {
	n, ok, err := numericInput(input, "power")
	if err != nil || !ok {
		return types.EmptyCollection, err
	}
	exponent, ok, err := numericArg(args[0], "power")
	if err != nil || !ok {
		return types.EmptyCollection, err
	}

	result := n.ToDecimal().Power(exponent)
	// Integer base and exponent with an integral result stays Integer.
	if _, isInt := n.(types.Integer); isInt && exponent.IsInteger() {
		if i, whole := result.ToInteger(); whole {
			return types.Collection{i}, nil
		}
	}
	return types.Collection{result}, nil
}

// fnRound rounds to the optional precision.
func fnRound(_ *eval.Context, input types.Collection, args []Arg) (types.Collection, error) {
	n, ok, err := numericInput(input, "round")
	if err != nil || !ok {
		return types.EmptyCollection, err
	}
	precision := int64(0)
	if len(args) > 0 {
		precision, err = integerArg(args[0], "round")
		if err != nil {
			return nil, err
		}
		if precision < 0 {
			return nil, eval.NewError(eval.ErrType, "round precision must be >= 0")
		}
	}
	return types.Collection{n.ToDecimal().Round(int32(precision))}, nil
}

// fnSqrt returns the square root; negative input yields empty.
func fnSqrt(_ *eval.Context, input types.Collection, _ []Arg) (types.Collection, error) {
	n, ok, err := numericInput(input, "sqrt")
	if err != nil || !ok {
		return types.EmptyCollection, err
	}
	result, err := n.ToDecimal().Sqrt()
	if err != nil {
		return types.EmptyCollection, nil
	}
	return types.Collection{result}, nil
}

// fnTruncate returns the integer part of the input.
func fnTruncate(_ *eval.Context, input types.Collection, _ []Arg) (types.Collection, error) {
	n, ok, err := numericInput(input, "truncate")
	if err != nil || !ok {
		return types.EmptyCollection, err
	}
	return types.Collection{n.ToDecimal().Truncate()}, nil
}

// fnSum sums a numeric collection; empty input yields 0.
func fnSum(_ *eval.Context, input types.Collection, _ []Arg) (types.Collection, error) {
	if input.Empty() {
		return types.Collection{types.GetInteger(0)}, nil
	}

	allInt := true
	total := types.NewDecimalFromInt(0)
	for _, item := range input {
		n, isNum := item.(types.Numeric)
		if !isNum {
			return nil, eval.TypeErrorf("Integer or Decimal", item.Type(), "sum")
		}
		if _, isInt := item.(types.Integer); !isInt {
			allInt = false
		}
		total = total.Add(n.ToDecimal())
	}
	if allInt {
		if i, whole := total.ToInteger(); whole {
			return types.Collection{i}, nil
		}
	}
	return types.Collection{total}, nil
}

// fnMin returns the smallest element of an ordered collection.
func fnMin(_ *eval.Context, input types.Collection, _ []Arg) (types.Collection, error) {
	return extremum(input, "min", -1)
}

// fnMax returns the largest element of an ordered collection.
func fnMax(_ *eval.Context, input types.Collection, _ []Arg) (types.Collection, error) {
	return extremum(input, "max", 1)
}

// extremum scans for the element whose comparison sign matches want.
func extremum(input types.Collection, op string, want int) (types.Collection, error) {
	if input.Empty() {
		return types.EmptyCollection, nil
	}

	best := input[0]
	for _, item := range input[1:] {
		cmp, isComp := best.(types.Comparable)
		if !isComp {
			return nil, eval.TypeErrorf("orderable value", best.Type(), op)
		}
		sign, err := cmp.Compare(item)
		if err != nil {
			return nil, eval.NewError(eval.ErrType, "%s: %s", op, err)
		}
		if (want < 0 && sign > 0) || (want > 0 && sign < 0) {
			best = item
		}
	}
	return types.Collection{best}, nil
}

// fnAvg averages a numeric collection; empty input yields empty.
func fnAvg(ctx *eval.Context, input types.Collection, args []Arg) (types.Collection, error) {
	if input.Empty() {
		return types.EmptyCollection, nil
	}
	sum, err := fnSum(ctx, input, args)
	if err != nil {
		return nil, err
	}
	total := sum[0].(types.Numeric).ToDecimal()
	avg, _ := total.Divide(types.NewDecimalFromInt(int64(len(input))))
	return types.Collection{avg}, nil
}
