// Package terminology defines the remote terminology-service contract used
// by the terminology functions (memberOf, subsumes, ...). All payloads are
// FHIR Parameters resources as raw JSON; implementations own transport,
// authentication and caching.
package terminology

import "context"

// Coding is a system/code pair handed to provider operations.
type Coding struct {
	System  string
	Code    string
	Display string
}

// Provider is the remote terminology service. Implementations must be safe
// for concurrent use; calls honour context cancellation.
type Provider interface {
	// ValidateCode checks a code against a code system.
	// Returns a Parameters resource with a boolean "result" parameter.
	ValidateCode(ctx context.Context, system, code string) ([]byte, error)

	// ValidateInValueSet checks a coding against a value set URL.
	ValidateInValueSet(ctx context.Context, coding Coding, valueSetURL string) ([]byte, error)

	// Translate maps a coding through a concept map.
	Translate(ctx context.Context, coding Coding, conceptMapURL string, reverse bool) ([]byte, error)

	// Subsumes tests the subsumption relation between two codings.
	// The "outcome" parameter is one of equivalent, subsumes, subsumed-by
	// or not-subsumed.
	Subsumes(ctx context.Context, a, b Coding) ([]byte, error)

	// Expand expands a value set URL into its member codings.
	Expand(ctx context.Context, valueSetURL string) ([]byte, error)

	// Lookup fetches display, designations and properties for a coding.
	Lookup(ctx context.Context, coding Coding) ([]byte, error)
}
