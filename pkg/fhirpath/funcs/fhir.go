package funcs

import (
	"strings"

	"github.com/octofhir/fhirpath-go/pkg/fhirpath/eval"
	"github.com/octofhir/fhirpath-go/pkg/fhirpath/types"
)

func init() {
	Register(FuncDef{
		Name:    "resolve",
		MinArgs: 0,
		MaxArgs: 0,
		Fn:      fnResolve,
	})

	Register(FuncDef{
		Name:    "extension",
		MinArgs: 1,
		MaxArgs: 1,
		Fn:      fnExtension,
	})

	Register(FuncDef{
		Name:    "hasExtension",
		MinArgs: 1,
		MaxArgs: 1,
		Fn:      fnHasExtension,
	})

	Register(FuncDef{
		Name:    "getReferenceKey",
		MinArgs: 0,
		MaxArgs: 1,
		Fn:      fnGetReferenceKey,
	})
}

// fnResolve resolves FHIR references through the context's resolver.
// Without a resolver or for unresolvable references the result is empty.
func fnResolve(ctx *eval.Context, input types.Collection, _ []Arg) (types.Collection, error) {
	if input.Empty() {
		return types.EmptyCollection, nil
	}

	resolver := ctx.GetResolver()
	if resolver == nil {
		return types.EmptyCollection, nil
	}

	result := types.Collection{}
	for _, item := range input {
		reference := referenceOf(item)
		if reference == "" {
			continue
		}
		resourceJSON, err := resolver.Resolve(ctx.GoContext(), reference)
		if err != nil {
			continue
		}
		col, err := types.FromJSON(resourceJSON)
		if err != nil {
			continue
		}
		result = append(result, col...)
	}
	return result, nil
}

// referenceOf extracts the reference string of a value: a bare string, or
// the reference field of a Reference object.
func referenceOf(item types.Value) string {
	switch v := item.(type) {
	case types.String:
		return v.Value()
	case *types.ObjectValue:
		if ref, ok := v.Get("reference"); ok {
			if s, isStr := ref.(types.String); isStr {
				return s.Value()
			}
		}
	}
	return ""
}

// fnExtension returns the extensions matching the given URL. Annotated
// primitives search their underscore element's extension array.
func fnExtension(ctx *eval.Context, input types.Collection, args []Arg) (types.Collection, error) {
	url, ok := stringArg(args[0])
	if !ok || url == "" {
		return types.EmptyCollection, nil
	}

	result := types.Collection{}
	for _, item := range input {
		extensions, err := eval.ResolveMember(ctx, item, "extension")
		if err != nil {
			return nil, err
		}
		for _, ext := range extensions {
			extObj, isObj := ext.(*types.ObjectValue)
			if !isObj {
				continue
			}
			if extURL, ok := extObj.Get("url"); ok {
				if s, isStr := extURL.(types.String); isStr && s.Value() == url {
					result = append(result, extObj)
				}
			}
		}
	}
	return result, nil
}

// fnHasExtension reports whether any input element carries an extension
// with the given URL.
func fnHasExtension(ctx *eval.Context, input types.Collection, args []Arg) (types.Collection, error) {
	extensions, err := fnExtension(ctx, input, args)
	if err != nil {
		return nil, err
	}
	return types.BoolCollection(!extensions.Empty()), nil
}

// fnGetReferenceKey extracts "ResourceType/id" keys from references. The
// optional argument selects the "type" or "id" part.
func fnGetReferenceKey(_ *eval.Context, input types.Collection, args []Arg) (types.Collection, error) {
	part := "key"
	if len(args) > 0 {
		if s, ok := stringArg(args[0]); ok {
			part = s
		}
	}

	result := types.Collection{}
	for _, item := range input {
		reference := referenceOf(item)
		if reference == "" {
			continue
		}

		// Trim any server prefix down to ResourceType/id.
		if idx := strings.LastIndex(reference, "/"); idx > 0 {
			beforeSlash := reference[:idx]
			if lastSlashBefore := strings.LastIndex(beforeSlash, "/"); lastSlashBefore >= 0 {
				reference = beforeSlash[lastSlashBefore+1:] + "/" + reference[idx+1:]
			}
		}

		switch part {
		case "type":
			if idx := strings.Index(reference, "/"); idx > 0 {
				result = append(result, types.NewString(reference[:idx]))
			}
		case "id":
			if idx := strings.LastIndex(reference, "/"); idx >= 0 {
				result = append(result, types.NewString(reference[idx+1:]))
			} else {
				result = append(result, types.NewString(reference))
			}
		default:
			result = append(result, types.NewString(reference))
		}
	}
	return result, nil
}
