package eval

import (
	"github.com/octofhir/fhirpath-go/pkg/fhirpath/ast"
	"github.com/octofhir/fhirpath-go/pkg/fhirpath/types"
)

// Arg is one marshalled function argument. Non-lambda positions arrive
// pre-evaluated in Value; lambda positions arrive as a Lambda closure and
// Value is nil.
type Arg struct {
	Value  types.Collection
	Lambda *Lambda
}

// FuncImpl is the signature for function implementations.
type FuncImpl func(ctx *Context, input types.Collection, args []Arg) (types.Collection, error)

// FuncDef defines a FHIRPath function: its arity bounds, which argument
// positions are lambdas (handed over unevaluated), and the implementation.
type FuncDef struct {
	Name       string
	MinArgs    int
	MaxArgs    int // -1 means variadic
	LambdaArgs []int
	Fn         FuncImpl
}

// IsLambdaArg reports whether the i-th argument is a lambda position.
func (d FuncDef) IsLambdaArg(i int) bool {
	for _, idx := range d.LambdaArgs {
		if idx == i {
			return true
		}
	}
	return false
}

// FuncRegistry is the function lookup interface the evaluator dispatches
// through. Lookup is by exact name; there is no overloading.
type FuncRegistry interface {
	Get(name string) (FuncDef, bool)
}

// Lambda is an unevaluated argument expression together with its defining
// context. Implementations invoke it per item with fresh implicit-variable
// bindings, or once against the defining context for branch arguments.
type Lambda struct {
	expr ast.Expression
	ctx  *Context
}

// NewLambda wraps an argument expression for deferred evaluation.
func NewLambda(expr ast.Expression, ctx *Context) *Lambda {
	return &Lambda{expr: expr, ctx: ctx}
}

// Expression returns the underlying argument expression.
func (l *Lambda) Expression() ast.Expression {
	return l.expr
}

// Run evaluates the lambda for one item, binding $this to the item,
// $index to its position and $total to the running accumulator, all in a
// child scope of the defining context.
func (l *Lambda) Run(item types.Value, index int, total types.Collection) (types.Collection, error) {
	lctx := l.ctx.WithLambda(types.Collection{item}, index, total)
	return Eval(l.expr, lctx)
}

// EvalScoped evaluates the lambda once against the defining context's
// input, in a child scope. Used for branch-style arguments such as the
// arms of iif().
func (l *Lambda) EvalScoped() (types.Collection, error) {
	return Eval(l.expr, l.ctx.WithScope())
}

// TypeNameOf interprets an argument expression as a type specifier, the
// form taken by is(Type), as(Type) and ofType(Type) arguments.
func TypeNameOf(expr ast.Expression) (ast.TypeSpecifier, bool) {
	switch e := expr.(type) {
	case *ast.Identifier:
		return ast.TypeSpecifier{Name: e.Name}, true
	case *ast.MemberExpression:
		if qual, ok := e.Target.(*ast.Identifier); ok {
			return ast.TypeSpecifier{Qualifier: qual.Name, Name: e.Name}, true
		}
	case *ast.StringLiteral:
		return ast.TypeSpecifier{Name: e.Value}, true
	}
	return ast.TypeSpecifier{}, false
}
