package eval

import (
	"strings"

	"github.com/octofhir/fhirpath-go/pkg/fhirpath/ast"
	"github.com/octofhir/fhirpath-go/pkg/fhirpath/types"
)

// fhirPrimitiveToSystem maps FHIR primitive type names to the System types
// their values materialise as.
var fhirPrimitiveToSystem = map[string]string{
	"boolean":      "Boolean",
	"string":       "String",
	"integer":      "Integer",
	"integer64":    "Integer",
	"positiveint":  "Integer",
	"unsignedint":  "Integer",
	"decimal":      "Decimal",
	"date":         "Date",
	"datetime":     "DateTime",
	"instant":      "DateTime",
	"time":         "Time",
	"uri":          "String",
	"url":          "String",
	"canonical":    "String",
	"oid":          "String",
	"uuid":         "String",
	"code":         "String",
	"id":           "String",
	"markdown":     "String",
	"base64binary": "String",
	"quantity":     "Quantity",
	"age":          "Quantity",
	"count":        "Quantity",
	"distance":     "Quantity",
	"duration":     "Quantity",
	"money":        "Quantity",
}

// nonDomainResources inherit directly from Resource, not DomainResource.
var nonDomainResources = map[string]bool{
	"Bundle":     true,
	"Binary":     true,
	"Parameters": true,
}

// isPossibleResourceType reports whether a type name looks like a FHIR
// resource type: PascalCase and not a system primitive.
func isPossibleResourceType(typeName string) bool {
	if typeName == "" {
		return false
	}
	switch typeName {
	case "Boolean", "String", "Integer", "Decimal",
		"Date", "DateTime", "Time", "Quantity", "Object":
		return false
	}
	return typeName[0] >= 'A' && typeName[0] <= 'Z'
}

// builtinSubtypeOf covers the hierarchy the engine knows without a model
// provider: the Resource and DomainResource abstract heads.
func builtinSubtypeOf(child, parent string) bool {
	if strings.EqualFold(child, parent) {
		return true
	}
	if strings.EqualFold(parent, "Resource") {
		return isPossibleResourceType(child)
	}
	if strings.EqualFold(parent, "DomainResource") {
		return isPossibleResourceType(child) && !nonDomainResources[child]
	}
	return false
}

// systemTypeMatches tests a System-namespace type name, honouring the
// Integer-is-a-Decimal widening.
func systemTypeMatches(actual, requested string) bool {
	if strings.EqualFold(actual, requested) {
		return true
	}
	if strings.EqualFold(requested, "Decimal") && actual == "Integer" {
		return true
	}
	return false
}

// TypeMatches implements the `is` relation: annotation first, then the
// model provider, then the built-in hierarchy and primitive mappings.
func TypeMatches(ctx *Context, v types.Value, spec ast.TypeSpecifier) bool {
	info := v.TypeInfo()

	switch spec.Qualifier {
	case "System":
		return info.Namespace == types.SystemNamespace && systemTypeMatches(info.Name, spec.Name)
	case "FHIR":
		return fhirTypeMatches(ctx, v, info, spec.Name)
	default:
		if info.Namespace == types.SystemNamespace && systemTypeMatches(info.Name, spec.Name) {
			return true
		}
		return fhirTypeMatches(ctx, v, info, spec.Name)
	}
}

// fhirTypeMatches tests a FHIR-namespace type name against a value.
func fhirTypeMatches(ctx *Context, v types.Value, info types.TypeInfo, requested string) bool {
	name := info.Name
	if info.Namespace == types.SystemNamespace {
		// Unannotated primitives still satisfy the FHIR primitive their
		// System type maps from (1 is FHIR integer).
		if sys, ok := fhirPrimitiveToSystem[strings.ToLower(requested)]; ok {
			return systemTypeMatches(name, sys)
		}
		return false
	}

	if strings.EqualFold(name, requested) {
		return true
	}

	// Annotated primitives: FHIR type maps to a System type the request
	// may name (valueString is String).
	if sys, ok := fhirPrimitiveToSystem[strings.ToLower(name)]; ok {
		if systemTypeMatches(sys, requested) {
			return true
		}
	}

	if is, err := ctx.ModelProvider().IsSubtypeOf(ctx.GoContext(), name, requested); err == nil && is {
		return true
	}
	return builtinSubtypeOf(name, requested)
}

// CastAs implements the `as` relation: the value unchanged when it already
// matches, a safe coercion when one exists, otherwise empty. It never
// fails.
func CastAs(ctx *Context, v types.Value, spec ast.TypeSpecifier) types.Collection {
	requested := strings.ToLower(spec.Name)

	// Numeric widening materialises the Decimal rather than passing the
	// Integer through on its is-a relation.
	if i, isInt := v.(types.Integer); isInt && requested == "decimal" {
		return types.Collection{i.ToDecimal()}
	}

	if TypeMatches(ctx, v, spec) {
		return types.Collection{v}
	}
	switch val := v.(type) {
	case types.Integer:
		if requested == "boolean" {
			switch val.Value() {
			case 0:
				return types.Collection{types.NewBoolean(false)}
			case 1:
				return types.Collection{types.NewBoolean(true)}
			}
		}
	case types.Boolean:
		if requested == "integer" {
			if val.Bool() {
				return types.Collection{types.NewInteger(1)}
			}
			return types.Collection{types.NewInteger(0)}
		}
	case types.String:
		switch requested {
		case "string":
			return types.Collection{types.NewString(val.Value())}
		case "uri":
			return types.Collection{types.NewStringKind(val.Value(), types.UriString)}
		case "url":
			return types.Collection{types.NewStringKind(val.Value(), types.UrlString)}
		case "id":
			return types.Collection{types.NewStringKind(val.Value(), types.IdString)}
		}
	case types.Date:
		if requested == "datetime" {
			return types.Collection{val.ToDateTime()}
		}
	}
	return types.EmptyCollection
}
