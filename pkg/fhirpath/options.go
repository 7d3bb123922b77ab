package fhirpath

import (
	"context"
	"time"

	"github.com/octofhir/fhirpath-go/pkg/fhirpath/eval"
	"github.com/octofhir/fhirpath-go/pkg/fhirpath/funcs"
	"github.com/octofhir/fhirpath-go/pkg/fhirpath/model"
	"github.com/octofhir/fhirpath-go/pkg/fhirpath/terminology"
	"github.com/octofhir/fhirpath-go/pkg/fhirpath/types"
)

// EvalOptions configures expression evaluation.
type EvalOptions struct {
	// Ctx carries cancellation and deadlines into provider calls.
	Ctx context.Context

	// Timeout for evaluation (0 means no timeout).
	Timeout time.Duration

	// MaxDepth limits recursion depth for descendants() (0 means 100).
	MaxDepth int

	// MaxCollectionSize limits intermediate collection sizes (0 = off).
	MaxCollectionSize int

	// Variables are external variables accessible via %name.
	// Reserved names are rejected at evaluation setup.
	Variables map[string]types.Collection

	// Functions overrides the global function registry.
	Functions *funcs.Registry

	// Operators overrides the default operator registry.
	Operators eval.OperatorRegistry

	// Model supplies FHIR type metadata for path resolution.
	Model model.Provider

	// Terminology backs the terminology functions.
	Terminology terminology.Provider

	// Resolver handles reference resolution for resolve().
	Resolver ReferenceResolver
}

// DefaultOptions returns evaluation defaults suitable for production.
func DefaultOptions() *EvalOptions {
	return &EvalOptions{
		Ctx:               context.Background(),
		Timeout:           5 * time.Second,
		MaxDepth:          100,
		MaxCollectionSize: 10000,
		Variables:         make(map[string]types.Collection),
	}
}

// EvalOption is a functional option for configuring evaluation.
type EvalOption func(*EvalOptions)

// WithContext sets the context for cancellation.
func WithContext(ctx context.Context) EvalOption {
	return func(o *EvalOptions) {
		o.Ctx = ctx
	}
}

// WithTimeout sets the evaluation timeout.
func WithTimeout(d time.Duration) EvalOption {
	return func(o *EvalOptions) {
		o.Timeout = d
	}
}

// WithMaxDepth sets the maximum recursion depth.
func WithMaxDepth(depth int) EvalOption {
	return func(o *EvalOptions) {
		o.MaxDepth = depth
	}
}

// WithMaxCollectionSize sets the maximum intermediate collection size.
func WithMaxCollectionSize(size int) EvalOption {
	return func(o *EvalOptions) {
		o.MaxCollectionSize = size
	}
}

// WithVariable sets an external variable.
func WithVariable(name string, value types.Collection) EvalOption {
	return func(o *EvalOptions) {
		if o.Variables == nil {
			o.Variables = make(map[string]types.Collection)
		}
		o.Variables[name] = value
	}
}

// WithFunctions sets a private function registry.
func WithFunctions(reg *funcs.Registry) EvalOption {
	return func(o *EvalOptions) {
		o.Functions = reg
	}
}

// WithOperators sets a custom operator registry.
func WithOperators(reg eval.OperatorRegistry) EvalOption {
	return func(o *EvalOptions) {
		o.Operators = reg
	}
}

// WithModelProvider sets the model provider.
func WithModelProvider(p model.Provider) EvalOption {
	return func(o *EvalOptions) {
		o.Model = p
	}
}

// WithTerminologyProvider sets the terminology provider.
func WithTerminologyProvider(p terminology.Provider) EvalOption {
	return func(o *EvalOptions) {
		o.Terminology = p
	}
}

// WithResolver sets the reference resolver.
func WithResolver(r ReferenceResolver) EvalOption {
	return func(o *EvalOptions) {
		o.Resolver = r
	}
}

// ReferenceResolver resolves FHIR references for the resolve() function.
type ReferenceResolver interface {
	// Resolve takes a reference string (e.g. "Patient/123") and returns
	// the referenced resource as JSON.
	Resolve(ctx context.Context, reference string) ([]byte, error)
}

// EvaluateWithOptions evaluates an expression with custom options.
func (e *Expression) EvaluateWithOptions(resource []byte, opts ...EvalOption) (types.Collection, error) {
	options := DefaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	ctx := options.Ctx
	if options.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, options.Timeout)
		defer cancel()
	}

	evalCtx := eval.NewContextFromJSON(resource)
	evalCtx.SetGoContext(ctx)
	evalCtx.SetLimit("maxDepth", options.MaxDepth)
	evalCtx.SetLimit("maxCollectionSize", options.MaxCollectionSize)

	for name, value := range options.Variables {
		if eval.IsReservedName(name) {
			return nil, eval.NewError(eval.ErrType, "cannot bind reserved variable %q", name)
		}
		evalCtx.SetVariable(name, value)
	}

	if options.Functions != nil {
		evalCtx.SetFunctions(options.Functions)
	}
	if options.Operators != nil {
		evalCtx.SetOperators(options.Operators)
	}
	if options.Model != nil {
		evalCtx.SetModelProvider(options.Model)
	}
	if options.Terminology != nil {
		evalCtx.SetTerminologyProvider(options.Terminology)
	}
	if options.Resolver != nil {
		evalCtx.SetResolver(resolverAdapter{options.Resolver})
	}

	return e.EvaluateWithContext(evalCtx)
}

// resolverAdapter adapts ReferenceResolver to eval.Resolver.
type resolverAdapter struct {
	resolver ReferenceResolver
}

func (a resolverAdapter) Resolve(ctx context.Context, reference string) ([]byte, error) {
	return a.resolver.Resolve(ctx, reference)
}
