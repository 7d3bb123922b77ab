package fhirpath

import (
	"github.com/octofhir/fhirpath-go/pkg/fhirpath/ast"
	"github.com/octofhir/fhirpath-go/pkg/fhirpath/eval"
	"github.com/octofhir/fhirpath-go/pkg/fhirpath/funcs"
	"github.com/octofhir/fhirpath-go/pkg/fhirpath/types"
)

// Collection is an alias for types.Collection for easier external use.
type Collection = types.Collection

// Value is an alias for types.Value for easier external use.
type Value = types.Value

// Expression represents a compiled FHIRPath expression.
type Expression struct {
	source string
	tree   ast.Expression
}

// Evaluate executes the expression against a JSON resource.
func (e *Expression) Evaluate(resource []byte) (types.Collection, error) {
	ctx := eval.NewContextFromJSON(resource)
	return e.EvaluateWithContext(ctx)
}

// EvaluateValue executes the expression against an already-built input.
func (e *Expression) EvaluateValue(input types.Collection) (types.Collection, error) {
	return e.EvaluateWithContext(eval.NewContext(input))
}

// EvaluateWithContext executes the expression with a custom context.
func (e *Expression) EvaluateWithContext(ctx *eval.Context) (types.Collection, error) {
	if ctx.Functions() == nil {
		ctx.SetFunctions(funcs.GetRegistry())
	}
	result, err := eval.Eval(e.tree, ctx)
	if err != nil {
		return nil, err
	}
	if result == nil {
		result = types.EmptyCollection
	}
	return result, nil
}

// AST returns the expression tree.
func (e *Expression) AST() ast.Expression {
	return e.tree
}

// String returns the original expression string.
func (e *Expression) String() string {
	return e.source
}
