package eval

import (
	"strings"

	"github.com/octofhir/fhirpath-go/pkg/fhirpath/types"
)

// Scope is one frame of the lexically nested variable environment.
// A child scope shares its parent's map by reference until the first
// write promotes it to its own copy, so forking a scope never allocates.
type Scope struct {
	parent *Scope
	vars   map[string]types.Collection
	owned  bool
}

// reservedNames cannot be introduced by defineVariable.
var reservedNames = map[string]bool{
	"this": true, "index": true, "total": true,
	"context": true, "resource": true, "rootResource": true,
	"ucum": true, "terminologies": true,
	"sct": true, "loinc": true,
}

// IsReservedName reports whether a variable name is reserved.
func IsReservedName(name string) bool {
	return strings.HasPrefix(name, "$") || reservedNames[name]
}

// NewRootScope creates an empty top-level scope.
func NewRootScope() *Scope {
	return &Scope{}
}

// ChildOf creates a scope nested in parent. The parent's map is shared by
// reference; nothing is allocated until the child's first write.
func ChildOf(parent *Scope) *Scope {
	var shared map[string]types.Collection
	if parent != nil {
		shared = parent.vars
	}
	return &Scope{parent: parent, vars: shared}
}

// Set binds a name in this scope, promoting the shared map to an owned
// copy on the first write.
func (s *Scope) Set(name string, value types.Collection) {
	if !s.owned {
		copied := make(map[string]types.Collection, len(s.vars)+1)
		for k, v := range s.vars {
			copied[k] = v
		}
		s.vars = copied
		s.owned = true
	}
	s.vars[name] = value
}

// Get resolves a name in this scope or any ancestor. Shadowing wins: the
// nearest binding is returned.
func (s *Scope) Get(name string) (types.Collection, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if v, ok := cur.vars[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// CollectAll flattens the chain into a single map, nearest binding first.
func (s *Scope) CollectAll() map[string]types.Collection {
	all := make(map[string]types.Collection)
	for cur := s; cur != nil; cur = cur.parent {
		for k, v := range cur.vars {
			if _, seen := all[k]; !seen {
				all[k] = v
			}
		}
	}
	return all
}
