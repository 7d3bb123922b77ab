package funcs

import (
	"github.com/buger/jsonparser"

	"github.com/octofhir/fhirpath-go/pkg/fhirpath/eval"
	"github.com/octofhir/fhirpath-go/pkg/fhirpath/terminology"
	"github.com/octofhir/fhirpath-go/pkg/fhirpath/types"
)

func init() {
	Register(FuncDef{
		Name:    "memberOf",
		MinArgs: 1,
		MaxArgs: 1,
		Fn:      fnMemberOf,
	})

	Register(FuncDef{
		Name:    "subsumes",
		MinArgs: 1,
		MaxArgs: 1,
		Fn:      subsumption("subsumes"),
	})

	Register(FuncDef{
		Name:    "subsumedBy",
		MinArgs: 1,
		MaxArgs: 1,
		Fn:      subsumption("subsumed-by"),
	})
}

// codingOf extracts a Coding from a value: a Coding object, a
// CodeableConcept's first coding, or a bare code string.
func codingOf(item types.Value) (terminology.Coding, bool) {
	switch v := item.(type) {
	case types.String:
		return terminology.Coding{Code: v.Value()}, true
	case *types.ObjectValue:
		if codings := v.GetCollection("coding"); !codings.Empty() {
			if first, isObj := codings[0].(*types.ObjectValue); isObj {
				return codingFromObject(first), true
			}
		}
		if v.FHIRType() == "Coding" || v.Type() == "Coding" {
			return codingFromObject(v), true
		}
	}
	return terminology.Coding{}, false
}

func codingFromObject(obj *types.ObjectValue) terminology.Coding {
	coding := terminology.Coding{}
	if s, ok := obj.Get("system"); ok {
		if str, isStr := s.(types.String); isStr {
			coding.System = str.Value()
		}
	}
	if c, ok := obj.Get("code"); ok {
		if str, isStr := c.(types.String); isStr {
			coding.Code = str.Value()
		}
	}
	if d, ok := obj.Get("display"); ok {
		if str, isStr := d.(types.String); isStr {
			coding.Display = str.Value()
		}
	}
	return coding
}

// boolParameter reads a named boolean parameter from a FHIR Parameters
// payload.
func boolParameter(payload []byte, name string) (bool, bool) {
	found := false
	value := false
	_, _ = jsonparser.ArrayEach(payload, func(param []byte, kind jsonparser.ValueType, _ int, _ error) {
		if kind != jsonparser.Object || found {
			return
		}
		if n, err := jsonparser.GetString(param, "name"); err != nil || n != name {
			return
		}
		if b, err := jsonparser.GetBoolean(param, "valueBoolean"); err == nil {
			value = b
			found = true
		}
	}, "parameter")
	return value, found
}

// stringParameter reads a named string or code parameter from a FHIR
// Parameters payload.
func stringParameter(payload []byte, name string) (string, bool) {
	found := false
	value := ""
	_, _ = jsonparser.ArrayEach(payload, func(param []byte, kind jsonparser.ValueType, _ int, _ error) {
		if kind != jsonparser.Object || found {
			return
		}
		if n, err := jsonparser.GetString(param, "name"); err != nil || n != name {
			return
		}
		if s, err := jsonparser.GetString(param, "valueCode"); err == nil {
			value = s
			found = true
			return
		}
		if s, err := jsonparser.GetString(param, "valueString"); err == nil {
			value = s
			found = true
		}
	}, "parameter")
	return value, found
}

// fnMemberOf tests each input coding against a value set URL through the
// terminology provider.
func fnMemberOf(ctx *eval.Context, input types.Collection, args []Arg) (types.Collection, error) {
	if input.Empty() {
		return types.EmptyCollection, nil
	}
	if len(input) > 1 {
		return nil, eval.MultiItemError(len(input))
	}

	url, ok := stringArg(args[0])
	if !ok {
		return nil, eval.NewError(eval.ErrType, "memberOf expects a value set url")
	}

	provider := ctx.TerminologyProvider()
	if provider == nil {
		return nil, eval.NewError(eval.ErrTerminology, "no terminology provider configured")
	}

	coding, ok := codingOf(input[0])
	if !ok {
		return types.EmptyCollection, nil
	}

	payload, err := provider.ValidateInValueSet(ctx.GoContext(), coding, url)
	if err != nil {
		return nil, eval.NewError(eval.ErrTerminology, "memberOf: %s", err).WithUnderlying(err)
	}
	result, found := boolParameter(payload, "result")
	if !found {
		return types.EmptyCollection, nil
	}
	return types.BoolCollection(result), nil
}

// subsumption builds the subsumes/subsumedBy implementations; want is the
// outcome code that maps to true.
func subsumption(want string) eval.FuncImpl {
	return func(ctx *eval.Context, input types.Collection, args []Arg) (types.Collection, error) {
		if input.Empty() || args[0].Value.Empty() {
			return types.EmptyCollection, nil
		}
		if len(input) > 1 {
			return nil, eval.MultiItemError(len(input))
		}

		provider := ctx.TerminologyProvider()
		if provider == nil {
			return nil, eval.NewError(eval.ErrTerminology, "no terminology provider configured")
		}

		left, okL := codingOf(input[0])
		right, okR := codingOf(args[0].Value[0])
		if !okL || !okR {
			return types.EmptyCollection, nil
		}

		payload, err := provider.Subsumes(ctx.GoContext(), left, right)
		if err != nil {
			return nil, eval.NewError(eval.ErrTerminology, "subsumes: %s", err).WithUnderlying(err)
		}
		outcome, found := stringParameter(payload, "outcome")
		if !found {
			return types.EmptyCollection, nil
		}
		return types.BoolCollection(outcome == want || outcome == "equivalent"), nil
	}
}
