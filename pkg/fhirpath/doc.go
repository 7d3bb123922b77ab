// Package fhirpath provides a FHIRPath engine for evaluating expressions
// over FHIR resources.
//
// Expressions are compiled once and may be evaluated many times against
// different resources:
//
//	expr, err := fhirpath.Compile("Patient.name.given")
//	result, err := expr.Evaluate(resourceJSON)
//
// Evaluation behaviour (variables, providers, limits, cancellation) is
// configured through functional options:
//
//	result, err := expr.EvaluateWithOptions(resourceJSON,
//	    fhirpath.WithContext(ctx),
//	    fhirpath.WithVariable("threshold", threshold),
//	    fhirpath.WithModelProvider(provider),
//	)
package fhirpath
