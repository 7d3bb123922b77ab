package funcs

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/octofhir/fhirpath-go/pkg/fhirpath/eval"
	"github.com/octofhir/fhirpath-go/pkg/fhirpath/types"
)

func init() {
	Register(FuncDef{
		Name:       "iif",
		MinArgs:    2,
		MaxArgs:    3,
		LambdaArgs: []int{0, 1, 2},
		Fn:         fnIif,
	})

	conversions := []struct {
		name string
		fn   eval.FuncImpl
	}{
		{"toBoolean", fnToBoolean},
		{"convertsToBoolean", convertsTo(fnToBoolean)},
		{"toInteger", fnToInteger},
		{"convertsToInteger", convertsTo(fnToInteger)},
		{"toDecimal", fnToDecimal},
		{"convertsToDecimal", convertsTo(fnToDecimal)},
		{"toString", fnToString},
		{"convertsToString", convertsTo(fnToString)},
		{"toDate", fnToDate},
		{"convertsToDate", convertsTo(fnToDate)},
		{"toDateTime", fnToDateTime},
		{"convertsToDateTime", convertsTo(fnToDateTime)},
		{"toTime", fnToTime},
		{"convertsToTime", convertsTo(fnToTime)},
	}
	for _, c := range conversions {
		Register(FuncDef{Name: c.name, MinArgs: 0, MaxArgs: 0, Fn: c.fn})
	}

	Register(FuncDef{
		Name:    "toQuantity",
		MinArgs: 0,
		MaxArgs: 1,
		Fn:      fnToQuantity,
	})

	Register(FuncDef{
		Name:    "convertsToQuantity",
		MinArgs: 0,
		MaxArgs: 1,
		Fn:      convertsTo(fnToQuantity),
	})
}

// fnIif evaluates the condition first, then exactly one branch.
func fnIif(_ *eval.Context, _ types.Collection, args []Arg) (types.Collection, error) {
	condition, err := args[0].Lambda.EvalScoped()
	if err != nil {
		return nil, err
	}

	if lambdaTruthy(condition) {
		return args[1].Lambda.EvalScoped()
	}
	if len(args) > 2 {
		return args[2].Lambda.EvalScoped()
	}
	return types.EmptyCollection, nil
}

// conversionInput enforces the uniform conversion contract: empty input
// passes through, multi-element input is an error.
func conversionInput(input types.Collection) (types.Value, bool, error) {
	if input.Empty() {
		return nil, false, nil
	}
	if len(input) > 1 {
		return nil, false, eval.MultiItemError(len(input))
	}
	return input[0], true, nil
}

// convertsTo derives the convertsTo* predicate from a conversion.
func convertsTo(convert eval.FuncImpl) eval.FuncImpl {
	return func(ctx *eval.Context, input types.Collection, args []Arg) (types.Collection, error) {
		if _, ok, err := conversionInput(input); err != nil {
			return nil, err
		} else if !ok {
			return types.EmptyCollection, nil
		}
		converted, err := convert(ctx, input, args)
		if err != nil {
			return nil, err
		}
		return types.BoolCollection(!converted.Empty()), nil
	}
}

// fnToBoolean converts the singleton input to a boolean.
func fnToBoolean(_ *eval.Context, input types.Collection, _ []Arg) (types.Collection, error) {
	item, ok, err := conversionInput(input)
	if err != nil || !ok {
		return types.EmptyCollection, err
	}

	switch v := item.(type) {
	case types.Boolean:
		return types.Collection{v}, nil
	case types.String:
		switch strings.ToLower(v.Value()) {
		case "true", "t", "yes", "y", "1", "1.0":
			return types.TrueCollection, nil
		case "false", "f", "no", "n", "0", "0.0":
			return types.FalseCollection, nil
		}
	case types.Integer:
		switch v.Value() {
		case 1:
			return types.TrueCollection, nil
		case 0:
			return types.FalseCollection, nil
		}
	case types.Decimal:
		if v.Value().Equal(decimal.NewFromInt(1)) {
			return types.TrueCollection, nil
		}
		if v.Value().IsZero() {
			return types.FalseCollection, nil
		}
	}
	return types.EmptyCollection, nil
}

// fnToInteger converts the singleton input to an integer.
func fnToInteger(_ *eval.Context, input types.Collection, _ []Arg) (types.Collection, error) {
	item, ok, err := conversionInput(input)
	if err != nil || !ok {
		return types.EmptyCollection, err
	}

	switch v := item.(type) {
	case types.Integer:
		return types.Collection{v}, nil
	case types.Boolean:
		if v.Bool() {
			return types.Collection{types.NewInteger(1)}, nil
		}
		return types.Collection{types.NewInteger(0)}, nil
	case types.String:
		if i, err := strconv.ParseInt(v.Value(), 10, 64); err == nil {
			return types.Collection{types.NewInteger(i)}, nil
		}
	}
	return types.EmptyCollection, nil
}

// fnToDecimal converts the singleton input to a decimal.
func fnToDecimal(_ *eval.Context, input types.Collection, _ []Arg) (types.Collection, error) {
	item, ok, err := conversionInput(input)
	if err != nil || !ok {
		return types.EmptyCollection, err
	}

	switch v := item.(type) {
	case types.Decimal:
		return types.Collection{v}, nil
	case types.Integer:
		return types.Collection{v.ToDecimal()}, nil
	case types.Boolean:
		if v.Bool() {
			return types.Collection{types.NewDecimalFromInt(1)}, nil
		}
		return types.Collection{types.NewDecimalFromInt(0)}, nil
	case types.String:
		if d, err := types.NewDecimal(v.Value()); err == nil {
			return types.Collection{d}, nil
		}
	}
	return types.EmptyCollection, nil
}

// fnToString renders the singleton input in its canonical string form.
func fnToString(_ *eval.Context, input types.Collection, _ []Arg) (types.Collection, error) {
	item, ok, err := conversionInput(input)
	if err != nil || !ok {
		return types.EmptyCollection, err
	}
	if _, isObj := item.(*types.ObjectValue); isObj {
		return types.EmptyCollection, nil
	}
	return types.Collection{types.NewString(item.String())}, nil
}

// fnToDate converts the singleton input to a date.
func fnToDate(_ *eval.Context, input types.Collection, _ []Arg) (types.Collection, error) {
	item, ok, err := conversionInput(input)
	if err != nil || !ok {
		return types.EmptyCollection, err
	}

	switch v := item.(type) {
	case types.Date:
		return types.Collection{v}, nil
	case types.DateTime:
		return types.Collection{v.ToDate()}, nil
	case types.String:
		if d, err := types.NewDate(v.Value()); err == nil {
			return types.Collection{d}, nil
		}
	}
	return types.EmptyCollection, nil
}

// fnToDateTime converts the singleton input to a datetime.
func fnToDateTime(_ *eval.Context, input types.Collection, _ []Arg) (types.Collection, error) {
	item, ok, err := conversionInput(input)
	if err != nil || !ok {
		return types.EmptyCollection, err
	}

	switch v := item.(type) {
	case types.DateTime:
		return types.Collection{v}, nil
	case types.Date:
		return types.Collection{v.ToDateTime()}, nil
	case types.String:
		if dt, err := types.NewDateTime(v.Value()); err == nil {
			return types.Collection{dt}, nil
		}
	}
	return types.EmptyCollection, nil
}

// fnToTime converts the singleton input to a time.
func fnToTime(_ *eval.Context, input types.Collection, _ []Arg) (types.Collection, error) {
	item, ok, err := conversionInput(input)
	if err != nil || !ok {
		return types.EmptyCollection, err
	}

	switch v := item.(type) {
	case types.Time:
		return types.Collection{v}, nil
	case types.String:
		if t, err := types.NewTime(v.Value()); err == nil {
			return types.Collection{t}, nil
		}
	}
	return types.EmptyCollection, nil
}

// fnToQuantity converts the singleton input to a quantity. An optional
// unit argument applies to bare numeric inputs.
func fnToQuantity(_ *eval.Context, input types.Collection, args []Arg) (types.Collection, error) {
	item, ok, err := conversionInput(input)
	if err != nil || !ok {
		return types.EmptyCollection, err
	}

	unit := ""
	if len(args) > 0 && !args[0].Value.Empty() {
		if s, isStr := args[0].Value[0].(types.String); isStr {
			unit = s.Value()
		}
	}

	switch v := item.(type) {
	case types.Quantity:
		if unit != "" {
			converted, err := v.ConvertTo(unit)
			if err != nil {
				return types.EmptyCollection, nil
			}
			return types.Collection{converted}, nil
		}
		return types.Collection{v}, nil
	case types.Integer:
		return types.Collection{types.NewQuantityFromDecimal(v.ToDecimal().Value(), unit)}, nil
	case types.Decimal:
		return types.Collection{types.NewQuantityFromDecimal(v.Value(), unit)}, nil
	case types.Boolean:
		if v.Bool() {
			return types.Collection{types.NewQuantityFromDecimal(decimal.NewFromInt(1), "1")}, nil
		}
		return types.Collection{types.NewQuantityFromDecimal(decimal.NewFromInt(0), "1")}, nil
	case types.String:
		if q, err := types.NewQuantity(v.Value()); err == nil {
			return types.Collection{q}, nil
		}
	case *types.ObjectValue:
		if q, ok := v.ToQuantity(); ok {
			return types.Collection{q}, nil
		}
	}
	return types.EmptyCollection, nil
}
