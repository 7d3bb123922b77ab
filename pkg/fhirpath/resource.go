package fhirpath

import (
	"encoding/json"
	"fmt"
)

// Resource is any FHIR resource representation that knows its own type.
type Resource interface {
	GetResourceType() string
}

// EvaluateResource evaluates a FHIRPath expression against a Go struct.
// The resource is serialized to JSON first, then evaluated. For repeated
// evaluations, cache the JSON bytes with NewResourceJSON.
func EvaluateResource(resource Resource, expr string) (Collection, error) {
	jsonBytes, err := json.Marshal(resource)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal resource: %w", err)
	}
	return Evaluate(jsonBytes, expr)
}

// EvaluateResourceCached is like EvaluateResource but uses the expression
// cache.
func EvaluateResourceCached(resource Resource, expr string) (Collection, error) {
	jsonBytes, err := json.Marshal(resource)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal resource: %w", err)
	}
	return EvaluateCached(jsonBytes, expr)
}

// ResourceJSON pairs a resource with its pre-serialized JSON for
// efficient repeated evaluation.
type ResourceJSON struct {
	resource Resource
	json     []byte
}

// NewResourceJSON creates a ResourceJSON from a Go resource.
func NewResourceJSON(resource Resource) (*ResourceJSON, error) {
	jsonBytes, err := json.Marshal(resource)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal resource: %w", err)
	}
	return &ResourceJSON{resource: resource, json: jsonBytes}, nil
}

// MustNewResourceJSON is like NewResourceJSON but panics on error.
func MustNewResourceJSON(resource Resource) *ResourceJSON {
	r, err := NewResourceJSON(resource)
	if err != nil {
		panic(err)
	}
	return r
}

// Resource returns the wrapped resource.
func (r *ResourceJSON) Resource() Resource {
	return r.resource
}

// JSON returns the serialized resource.
func (r *ResourceJSON) JSON() []byte {
	return r.json
}

// Evaluate evaluates an expression against the cached JSON.
func (r *ResourceJSON) Evaluate(expr string) (Collection, error) {
	return EvaluateCached(r.json, expr)
}
