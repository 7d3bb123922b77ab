package fhirpath

import (
	"github.com/octofhir/fhirpath-go/pkg/fhirpath/ast"
	"github.com/octofhir/fhirpath-go/pkg/fhirpath/parser"
	"github.com/octofhir/fhirpath-go/pkg/fhirpath/types"
)

// Evaluate parses and evaluates a FHIRPath expression against a JSON
// resource. This is a convenience wrapper over Compile and Evaluate.
func Evaluate(resource []byte, expr string) (types.Collection, error) {
	compiled, err := Compile(expr)
	if err != nil {
		return nil, err
	}
	return compiled.Evaluate(resource)
}

// MustEvaluate is like Evaluate but panics on error.
func MustEvaluate(resource []byte, expr string) types.Collection {
	result, err := Evaluate(resource, expr)
	if err != nil {
		panic(err)
	}
	return result
}

// Compile parses a FHIRPath expression and returns a compiled Expression.
// The compiled expression is immutable and safe for concurrent reuse.
func Compile(expr string) (*Expression, error) {
	tree, err := parser.Parse(expr)
	if err != nil {
		return nil, err
	}
	return &Expression{source: expr, tree: tree}, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(expr string) *Expression {
	compiled, err := Compile(expr)
	if err != nil {
		panic(err)
	}
	return compiled
}

// FromAST wraps a host-constructed expression tree as a compiled
// Expression, bypassing the parser.
func FromAST(tree ast.Expression) *Expression {
	return &Expression{tree: tree}
}
