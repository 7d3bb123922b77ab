package eval

import (
	"github.com/octofhir/fhirpath-go/pkg/fhirpath/ast"
	"github.com/octofhir/fhirpath-go/pkg/fhirpath/types"
)

// BinaryOp is one entry of the operator registry: it receives the fully
// evaluated operand collections and produces the operator's result.
type BinaryOp func(ctx *Context, left, right types.Collection) (types.Collection, error)

// OperatorRegistry maps operator symbols to implementations. It is
// immutable after construction and shared by reference across contexts.
type OperatorRegistry map[string]BinaryOp

// Get resolves an operator symbol.
func (r OperatorRegistry) Get(op string) (BinaryOp, bool) {
	fn, ok := r[op]
	return fn, ok
}

// arithmeticOp lifts a singleton value operator into a collection operator
// with empty propagation and singleton enforcement.
func arithmeticOp(fn func(left, right types.Value) (types.Collection, error)) BinaryOp {
	return func(_ *Context, left, right types.Collection) (types.Collection, error) {
		if left.Empty() || right.Empty() {
			return types.EmptyCollection, nil
		}
		if len(left) > 1 {
			return nil, MultiItemError(len(left))
		}
		if len(right) > 1 {
			return nil, MultiItemError(len(right))
		}
		return fn(left[0], right[0])
	}
}

// comparisonOp lifts an ordering operator; incomparable operands already
// surface as empty inside the value-level functions.
func comparisonOp(fn func(left, right types.Value) types.Collection) BinaryOp {
	return func(_ *Context, left, right types.Collection) (types.Collection, error) {
		if left.Empty() || right.Empty() {
			return types.EmptyCollection, nil
		}
		if len(left) > 1 {
			return nil, MultiItemError(len(left))
		}
		if len(right) > 1 {
			return nil, MultiItemError(len(right))
		}
		return fn(left[0], right[0]), nil
	}
}

// collectionOp lifts an operator defined over whole collections.
func collectionOp(fn func(left, right types.Collection) types.Collection) BinaryOp {
	return func(_ *Context, left, right types.Collection) (types.Collection, error) {
		return fn(left, right), nil
	}
}

// logicOp lifts a three-valued logic operator.
func logicOp(fn func(left, right types.Collection) (types.Collection, error)) BinaryOp {
	return func(_ *Context, left, right types.Collection) (types.Collection, error) {
		return fn(left, right)
	}
}

// DefaultOperators builds the standard operator registry.
func DefaultOperators() OperatorRegistry {
	return OperatorRegistry{
		"+":   arithmeticOp(Add),
		"-":   arithmeticOp(Subtract),
		"*":   arithmeticOp(Multiply),
		"/":   arithmeticOp(Divide),
		"div": arithmeticOp(IntegerDivide),
		"mod": arithmeticOp(Modulo),
		"&":   logicOp(Concatenate),

		"<":  comparisonOp(LessThan),
		"<=": comparisonOp(LessOrEqual),
		">":  comparisonOp(GreaterThan),
		">=": comparisonOp(GreaterOrEqual),

		"=":  collectionOp(Equal),
		"!=": collectionOp(NotEqual),
		"~":  collectionOp(Equivalent),
		"!~": collectionOp(NotEquivalent),

		"in":       collectionOp(In),
		"contains": collectionOp(Contains),
		"|":        collectionOp(Union),

		"and":     logicOp(And),
		"or":      logicOp(Or),
		"xor":     logicOp(Xor),
		"implies": logicOp(Implies),
	}
}

// Eval evaluates an expression node against a context. Every result is a
// flat collection; cancellation is polled at each node boundary.
func Eval(node ast.Expression, ctx *Context) (types.Collection, error) {
	if err := ctx.CheckCancellation(); err != nil {
		return nil, err
	}

	switch n := node.(type) {
	case *ast.NullLiteral:
		return types.EmptyCollection, nil

	case *ast.BooleanLiteral:
		return types.BoolCollection(n.Value), nil

	case *ast.IntegerLiteral:
		return types.Collection{types.NewInteger(n.Value)}, nil

	case *ast.DecimalLiteral:
		d, err := types.NewDecimal(n.Value)
		if err != nil {
			return nil, NewError(ErrParse, "invalid decimal literal %q", n.Value).WithSpan(n.Span())
		}
		return types.Collection{d}, nil

	case *ast.StringLiteral:
		return types.Collection{types.NewString(n.Value)}, nil

	case *ast.DateLiteral:
		d, err := types.NewDate(n.Value)
		if err != nil {
			return nil, NewError(ErrParse, "invalid date literal %q", n.Value).WithSpan(n.Span())
		}
		return types.Collection{d}, nil

	case *ast.DateTimeLiteral:
		dt, err := types.NewDateTime(n.Value)
		if err != nil {
			return nil, NewError(ErrParse, "invalid datetime literal %q", n.Value).WithSpan(n.Span())
		}
		return types.Collection{dt}, nil

	case *ast.TimeLiteral:
		t, err := types.NewTime(n.Value)
		if err != nil {
			return nil, NewError(ErrParse, "invalid time literal %q", n.Value).WithSpan(n.Span())
		}
		return types.Collection{t}, nil

	case *ast.QuantityLiteral:
		d, err := types.NewDecimal(n.Value)
		if err != nil {
			return nil, NewError(ErrParse, "invalid quantity literal %q", n.Value).WithSpan(n.Span())
		}
		return types.Collection{types.NewQuantityFromDecimal(d.Value(), n.Unit)}, nil

	case *ast.Identifier:
		return evalMember(ctx, ctx.Input(), n.Name)

	case *ast.ExternalConstant:
		if value, ok := ctx.Variable(n.Name); ok {
			return value, nil
		}
		return nil, UnknownVariableError(n.Name).WithSpan(n.Span())

	case *ast.ThisRef:
		return ctx.Input(), nil

	case *ast.IndexRef:
		if index, ok := ctx.Index(); ok {
			return types.Collection{types.GetInteger(int64(index))}, nil
		}
		return types.EmptyCollection, nil

	case *ast.TotalRef:
		return ctx.Total(), nil

	case *ast.MemberExpression:
		target, err := Eval(n.Target, ctx)
		if err != nil {
			return nil, err
		}
		return evalMember(ctx, target, n.Name)

	case *ast.IndexerExpression:
		return evalIndexer(n, ctx)

	case *ast.FunctionCall:
		return evalCall(n, ctx)

	case *ast.UnaryExpression:
		return evalUnary(n, ctx)

	case *ast.BinaryExpression:
		return evalBinary(n, ctx)

	case *ast.TypeExpression:
		return evalTypeExpression(n, ctx)
	}

	return nil, NewError(ErrInternal, "unhandled expression node %T", node)
}

// evalMember applies the path resolver to each item of the input. A
// resource is also reachable by its own type name head, including the
// Resource and DomainResource abstract heads.
func evalMember(ctx *Context, input types.Collection, name string) (types.Collection, error) {
	result := types.Collection{}
	for _, item := range input {
		if obj, isObj := item.(*types.ObjectValue); isObj && isTypeNameHead(name) {
			if builtinSubtypeOf(obj.Type(), name) {
				result = append(result, obj)
				continue
			}
		}
		values, err := ResolveMember(ctx, item, name)
		if err != nil {
			return nil, err
		}
		result = append(result, values...)
	}
	if err := ctx.CheckCollectionSize(result); err != nil {
		return nil, err
	}
	return result, nil
}

// isTypeNameHead reports whether a path segment can name a resource type.
func isTypeNameHead(name string) bool {
	return name != "" && name[0] >= 'A' && name[0] <= 'Z'
}

// evalIndexer evaluates target[index].
func evalIndexer(n *ast.IndexerExpression, ctx *Context) (types.Collection, error) {
	target, err := Eval(n.Target, ctx)
	if err != nil {
		return nil, err
	}
	index, err := Eval(n.Index, ctx)
	if err != nil {
		return nil, err
	}

	if index.Empty() {
		return types.EmptyCollection, nil
	}
	if len(index) > 1 {
		return nil, MultiItemError(len(index))
	}
	idx, isInt := index[0].(types.Integer)
	if !isInt {
		return nil, TypeErrorf("Integer", index[0].Type(), "indexer").WithSpan(n.Index.Span())
	}

	i := int(idx.Value())
	if i < 0 || i >= len(target) {
		return types.EmptyCollection, nil
	}
	return types.Collection{target[i]}, nil
}

// evalCall dispatches a function invocation: arity validation, eager
// evaluation of non-lambda arguments in the caller's context, and lambda
// positions wrapped as closures over the receiver context.
func evalCall(n *ast.FunctionCall, ctx *Context) (types.Collection, error) {
	input := ctx.Input()
	callCtx := ctx
	if n.Target != nil {
		target, err := Eval(n.Target, ctx)
		if err != nil {
			return nil, err
		}
		input = target
		callCtx = ctx.WithInput(target)
	}

	def, ok := ctx.Functions().Get(n.Name)
	if !ok {
		return nil, UnknownFunctionError(n.Name).WithSpan(n.Span())
	}

	argc := len(n.Args)
	if argc < def.MinArgs {
		return nil, ArityError(n.Name, def.MinArgs, argc).WithSpan(n.Span())
	}
	if def.MaxArgs >= 0 && argc > def.MaxArgs {
		return nil, ArityError(n.Name, def.MaxArgs, argc).WithSpan(n.Span())
	}

	args := make([]Arg, argc)
	for i, argExpr := range n.Args {
		if def.IsLambdaArg(i) {
			args[i] = Arg{Lambda: NewLambda(argExpr, callCtx)}
			continue
		}
		value, err := Eval(argExpr, ctx)
		if err != nil {
			return nil, err
		}
		args[i] = Arg{Value: value}
	}

	result, err := def.Fn(callCtx, input, args)
	if err != nil {
		if evalErr, isEval := err.(*Error); isEval {
			return nil, evalErr.WithSpan(n.Span())
		}
		return nil, err
	}
	if result == nil {
		result = types.EmptyCollection
	}
	return result, nil
}

// evalUnary evaluates the polarity operators.
func evalUnary(n *ast.UnaryExpression, ctx *Context) (types.Collection, error) {
	operand, err := Eval(n.Operand, ctx)
	if err != nil {
		return nil, err
	}
	if operand.Empty() {
		return types.EmptyCollection, nil
	}
	if len(operand) > 1 {
		return nil, MultiItemError(len(operand)).WithSpan(n.Span())
	}

	if n.Op == "-" {
		result, err := Negate(operand[0])
		if err != nil {
			if evalErr, isEval := err.(*Error); isEval {
				return nil, evalErr.WithSpan(n.Span())
			}
			return nil, err
		}
		return result, nil
	}
	result, err := Positive(operand[0])
	if err != nil {
		if evalErr, isEval := err.(*Error); isEval {
			return nil, evalErr.WithSpan(n.Span())
		}
		return nil, err
	}
	return result, nil
}

// evalBinary evaluates both sides and dispatches through the operator
// registry.
func evalBinary(n *ast.BinaryExpression, ctx *Context) (types.Collection, error) {
	left, err := Eval(n.Left, ctx)
	if err != nil {
		return nil, err
	}
	right, err := Eval(n.Right, ctx)
	if err != nil {
		return nil, err
	}

	op, ok := ctx.Operators().Get(n.Op)
	if !ok {
		return nil, NewError(ErrInternal, "unknown operator %q", n.Op).WithSpan(n.Span())
	}
	result, err := op(ctx, left, right)
	if err != nil {
		if evalErr, isEval := err.(*Error); isEval {
			return nil, evalErr.WithSpan(n.Span())
		}
		return nil, err
	}
	if result == nil {
		result = types.EmptyCollection
	}
	return result, nil
}

// evalTypeExpression evaluates operand is Type and operand as Type.
func evalTypeExpression(n *ast.TypeExpression, ctx *Context) (types.Collection, error) {
	operand, err := Eval(n.Operand, ctx)
	if err != nil {
		return nil, err
	}
	if operand.Empty() {
		return types.EmptyCollection, nil
	}
	if len(operand) > 1 {
		return nil, MultiItemError(len(operand)).WithSpan(n.Span())
	}

	switch n.Op {
	case "is":
		return types.BoolCollection(TypeMatches(ctx, operand[0], n.Type)), nil
	default:
		return CastAs(ctx, operand[0], n.Type), nil
	}
}
