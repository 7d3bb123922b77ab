package eval

import (
	"context"
	"sync"

	"github.com/octofhir/fhirpath-go/pkg/fhirpath/model"
	"github.com/octofhir/fhirpath-go/pkg/fhirpath/terminology"
	"github.com/octofhir/fhirpath-go/pkg/fhirpath/types"
)

// Resolver handles FHIR reference resolution for the resolve() function.
type Resolver interface {
	Resolve(ctx context.Context, reference string) ([]byte, error)
}

// typeCache memoizes type annotations per evaluation, keyed by
// source-location-derived keys. It is never shared across expressions.
type typeCache struct {
	mu      sync.Mutex
	entries map[string]types.TypeInfo
}

func newTypeCache() *typeCache {
	return &typeCache{entries: make(map[string]types.TypeInfo)}
}

func (c *typeCache) get(key string) (types.TypeInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ti, ok := c.entries[key]
	return ti, ok
}

func (c *typeCache) put(key string, ti types.TypeInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = ti
}

// Context holds the evaluation state: the current input collection, the
// root input, the variable scope and the shared collaborators. Contexts
// are cheap to copy; deriving a sub-context never mutates its parent.
type Context struct {
	root  types.Collection
	input types.Collection

	// lambda bindings
	index    int
	hasIndex bool
	total    types.Collection

	scope *Scope

	funcs       FuncRegistry
	operators   OperatorRegistry
	model       model.Provider
	terminology terminology.Provider
	resolver    Resolver

	goCtx  context.Context
	limits map[string]int
	cache  *typeCache
}

// NewContext creates an evaluation context rooted at the given input.
// %resource and %context resolve to the root per the FHIRPath spec.
func NewContext(root types.Collection) *Context {
	scope := NewRootScope()
	scope.Set("resource", root)
	scope.Set("rootResource", root)
	scope.Set("context", root)
	scope.Set("ucum", types.Collection{types.NewString("http://unitsofmeasure.org")})

	return &Context{
		root:      root,
		input:     root,
		scope:     scope,
		operators: DefaultOperators(),
		model:     model.NopProvider{},
		goCtx:     context.Background(),
		limits:    make(map[string]int),
		cache:     newTypeCache(),
	}
}

// NewContextFromJSON creates a context from a raw JSON resource.
func NewContextFromJSON(resource []byte) *Context {
	root, err := types.FromJSON(resource)
	if err != nil {
		root = types.Collection{}
	}
	return NewContext(root)
}

// Root returns the root collection.
func (c *Context) Root() types.Collection {
	return c.root
}

// Input returns the current input collection ($this outside lambdas).
func (c *Context) Input() types.Collection {
	return c.input
}

// Index returns the $index binding; ok is false outside lambdas.
func (c *Context) Index() (int, bool) {
	return c.index, c.hasIndex
}

// Total returns the $total binding of an aggregate fold.
func (c *Context) Total() types.Collection {
	return c.total
}

// Scope returns the variable scope.
func (c *Context) Scope() *Scope {
	return c.scope
}

// SetVariable binds an external variable in the current scope.
func (c *Context) SetVariable(name string, value types.Collection) {
	c.scope.Set(name, value)
}

// Variable resolves a variable by name through the scope chain.
func (c *Context) Variable(name string) (types.Collection, bool) {
	return c.scope.Get(name)
}

// SetFunctions sets the function registry.
func (c *Context) SetFunctions(reg FuncRegistry) {
	c.funcs = reg
}

// Functions returns the function registry.
func (c *Context) Functions() FuncRegistry {
	return c.funcs
}

// SetOperators replaces the operator registry.
func (c *Context) SetOperators(reg OperatorRegistry) {
	if reg != nil {
		c.operators = reg
	}
}

// Operators returns the operator registry.
func (c *Context) Operators() OperatorRegistry {
	return c.operators
}

// SetModelProvider sets the model provider.
func (c *Context) SetModelProvider(p model.Provider) {
	if p != nil {
		c.model = p
	}
}

// ModelProvider returns the model provider.
func (c *Context) ModelProvider() model.Provider {
	return c.model
}

// SetTerminologyProvider sets the terminology provider.
func (c *Context) SetTerminologyProvider(p terminology.Provider) {
	c.terminology = p
}

// TerminologyProvider returns the terminology provider, or nil.
func (c *Context) TerminologyProvider() terminology.Provider {
	return c.terminology
}

// SetResolver sets the reference resolver.
func (c *Context) SetResolver(r Resolver) {
	c.resolver = r
}

// GetResolver returns the reference resolver, or nil.
func (c *Context) GetResolver() Resolver {
	return c.resolver
}

// SetGoContext sets the Go context for cancellation.
func (c *Context) SetGoContext(ctx context.Context) {
	c.goCtx = ctx
}

// GoContext returns the Go context.
func (c *Context) GoContext() context.Context {
	if c.goCtx == nil {
		return context.Background()
	}
	return c.goCtx
}

// SetLimit sets a named limit (e.g. maxDepth, maxCollectionSize).
func (c *Context) SetLimit(name string, value int) {
	if c.limits == nil {
		c.limits = make(map[string]int)
	}
	c.limits[name] = value
}

// Limit gets a named limit; zero means unset.
func (c *Context) Limit(name string) int {
	if c.limits == nil {
		return 0
	}
	return c.limits[name]
}

// CheckCancellation polls the Go context; it is called at node boundaries.
func (c *Context) CheckCancellation() error {
	if c.goCtx == nil {
		return nil
	}
	select {
	case <-c.goCtx.Done():
		return CancelledError(c.goCtx.Err())
	default:
		return nil
	}
}

// CheckCollectionSize validates a collection against maxCollectionSize.
func (c *Context) CheckCollectionSize(col types.Collection) error {
	maxSize := c.Limit("maxCollectionSize")
	if maxSize > 0 && len(col) > maxSize {
		return NewError(ErrInternal,
			"collection size %d exceeds maximum allowed %d", len(col), maxSize)
	}
	return nil
}

// WithInput derives a context whose current input is the given collection.
func (c *Context) WithInput(input types.Collection) *Context {
	derived := *c
	derived.input = input
	return &derived
}

// WithLambda derives a per-item lambda context: a child scope and fresh
// $this, $index and $total bindings.
func (c *Context) WithLambda(item types.Collection, index int, total types.Collection) *Context {
	derived := *c
	derived.input = item
	derived.index = index
	derived.hasIndex = true
	derived.total = total
	derived.scope = ChildOf(c.scope)
	return &derived
}

// WithScope derives a context running in a fresh child scope.
func (c *Context) WithScope() *Context {
	derived := *c
	derived.scope = ChildOf(c.scope)
	return &derived
}

// CacheTypeAnnotation memoizes a resolved type for a path key.
func (c *Context) CacheTypeAnnotation(key string, ti types.TypeInfo) {
	if c.cache != nil {
		c.cache.put(key, ti)
	}
}

// CachedTypeAnnotation looks up a memoized type for a path key.
func (c *Context) CachedTypeAnnotation(key string) (types.TypeInfo, bool) {
	if c.cache == nil {
		return types.TypeInfo{}, false
	}
	return c.cache.get(key)
}
