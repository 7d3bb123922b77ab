package eval

import (
	"github.com/buger/jsonparser"

	"github.com/octofhir/fhirpath-go/pkg/fhirpath/types"
)

// choiceSuffixTypes is the fallback table mapping value[x] suffixes to
// FHIR type names when the model provider cannot expand the choice.
var choiceSuffixTypes = map[string]string{
	// primitives
	"Boolean":      "boolean",
	"Integer":      "integer",
	"Integer64":    "integer64",
	"Decimal":      "decimal",
	"String":       "string",
	"Date":         "date",
	"DateTime":     "dateTime",
	"Time":         "time",
	"Instant":      "instant",
	"Uri":          "uri",
	"Url":          "url",
	"Id":           "id",
	"Oid":          "oid",
	"Uuid":         "uuid",
	"Canonical":    "canonical",
	"Markdown":     "markdown",
	"Code":         "code",
	"Base64Binary": "base64Binary",
	"PositiveInt":  "positiveInt",
	"UnsignedInt":  "unsignedInt",
	// complex types keep their own name
	"Quantity": "Quantity", "CodeableConcept": "CodeableConcept",
	"Coding": "Coding", "Range": "Range", "Period": "Period",
	"Ratio": "Ratio", "RatioRange": "RatioRange",
	"Identifier": "Identifier", "Reference": "Reference",
	"Attachment": "Attachment", "HumanName": "HumanName",
	"Address": "Address", "ContactPoint": "ContactPoint",
	"Timing": "Timing", "Signature": "Signature",
	"Annotation": "Annotation", "SampledData": "SampledData",
	"Age": "Age", "Distance": "Distance", "Duration": "Duration",
	"Count": "Count", "Money": "Money", "MoneyQuantity": "MoneyQuantity",
	"SimpleQuantity": "SimpleQuantity", "Meta": "Meta", "Dosage": "Dosage",
	"ContactDetail": "ContactDetail", "Contributor": "Contributor",
	"DataRequirement": "DataRequirement", "Expression": "Expression",
	"ParameterDefinition": "ParameterDefinition", "RelatedArtifact": "RelatedArtifact",
	"TriggerDefinition": "TriggerDefinition", "UsageContext": "UsageContext",
}

// ResolveMember implements property access on one value: direct fields,
// choice-type (value[x]) detection with type annotation, and navigation
// into the underscore element carried by annotated primitives.
func ResolveMember(ctx *Context, item types.Value, name string) (types.Collection, error) {
	switch v := item.(type) {
	case *types.ObjectValue:
		return resolveObjectMember(ctx, v, name)
	case types.TypeInfo:
		switch name {
		case "namespace":
			return types.Collection{types.NewString(v.Namespace)}, nil
		case "name":
			return types.Collection{types.NewString(v.Name)}, nil
		}
		return types.EmptyCollection, nil
	case types.Annotated:
		// Primitives annotated with a sibling _property element expose
		// its id and extension content.
		if element := v.Element(); element != nil {
			elem := types.NewObjectValue(element)
			return elem.GetCollection(name), nil
		}
		return types.EmptyCollection, nil
	default:
		return types.EmptyCollection, nil
	}
}

// resolveObjectMember resolves a property on a JSON-backed value.
func resolveObjectMember(ctx *Context, obj *types.ObjectValue, name string) (types.Collection, error) {
	// Direct field lookup, with the model provider supplying the field's
	// declared type when it knows the parent.
	if raw, kind, ok := obj.GetRaw(name); ok && kind != jsonparser.Null {
		fhirType := ""
		if parent := obj.FHIRType(); parent != "" {
			cacheKey := parent + "." + name
			if ti, hit := ctx.CachedTypeAnnotation(cacheKey); hit {
				fhirType = ti.Name
			} else if ti, err := ctx.ModelProvider().FieldType(ctx.GoContext(), parent, name); err == nil && ti != nil {
				fhirType = ti.Name
				ctx.CacheTypeAnnotation(cacheKey, types.NewTypeInfo(ti.Namespace, ti.Name))
			}
		}
		return fieldValues(obj, name, raw, kind, fhirType), nil
	}

	// Choice-type scan: keys of the form name<Suffix> with an
	// uppercase-initial suffix are the runtime choices of a polymorphic
	// property.
	var result types.Collection
	obj.EachField(func(key string, raw []byte, kind jsonparser.ValueType) {
		if kind == jsonparser.Null {
			return
		}
		if len(key) <= len(name) || key[:len(name)] != name {
			return
		}
		suffix := key[len(name):]
		if suffix[0] < 'A' || suffix[0] > 'Z' {
			return
		}
		fhirType := choiceTypeFor(ctx, name, suffix)
		result = append(result, fieldValues(obj, key, raw, kind, fhirType)...)
	})
	return result, nil
}

// choiceTypeFor maps a choice suffix to a FHIR type name: the model
// provider first, the fallback table second, Any for unknown suffixes.
func choiceTypeFor(ctx *Context, baseProperty, suffix string) string {
	if choices, err := ctx.ModelProvider().ExpandChoice(ctx.GoContext(), baseProperty); err == nil {
		for _, choice := range choices {
			if choice.Suffix == suffix {
				return choice.Type.Name
			}
		}
	}
	if t, ok := choiceSuffixTypes[suffix]; ok {
		return t
	}
	return "Any"
}

// fieldValues converts a raw field into its collection, annotating values
// with the resolved FHIR type and attaching sibling _property elements.
func fieldValues(obj *types.ObjectValue, key string, raw []byte, kind jsonparser.ValueType, fhirType string) types.Collection {
	if kind == jsonparser.Array {
		var result types.Collection
		elements := underscoreElements(obj, key)
		i := 0
		_, _ = jsonparser.ArrayEach(raw, func(value []byte, itemKind jsonparser.ValueType, _ int, _ error) {
			v := types.ValueFromJSON(value, itemKind)
			if v != nil {
				var element []byte
				if i < len(elements) {
					element = elements[i]
				}
				result = append(result, annotateValue(v, fhirType, element))
			}
			i++
		})
		return result
	}

	v := types.ValueFromJSON(raw, kind)
	if v == nil {
		return types.EmptyCollection
	}
	element := underscoreElement(obj, key)
	return types.Collection{annotateValue(v, fhirType, element)}
}

// annotateValue attaches type and element metadata where they apply.
func annotateValue(v types.Value, fhirType string, element []byte) types.Value {
	if fhirType == "" && element == nil {
		return v
	}
	return types.Annotate(v, fhirType, element)
}

// underscoreElement returns the sibling _key object for a scalar field.
func underscoreElement(obj *types.ObjectValue, key string) []byte {
	raw, kind, ok := obj.GetRaw("_" + key)
	if !ok || kind != jsonparser.Object {
		return nil
	}
	return raw
}

// underscoreElements returns the aligned sibling _key entries for an array
// field; entries may be nil where the source has null placeholders.
func underscoreElements(obj *types.ObjectValue, key string) [][]byte {
	raw, kind, ok := obj.GetRaw("_" + key)
	if !ok || kind != jsonparser.Array {
		return nil
	}
	var elements [][]byte
	_, _ = jsonparser.ArrayEach(raw, func(value []byte, itemKind jsonparser.ValueType, _ int, _ error) {
		if itemKind == jsonparser.Object {
			elements = append(elements, value)
		} else {
			elements = append(elements, nil)
		}
	})
	return elements
}
