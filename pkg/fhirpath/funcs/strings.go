package funcs

import (
	"strings"

	"github.com/octofhir/fhirpath-go/pkg/fhirpath/eval"
	"github.com/octofhir/fhirpath-go/pkg/fhirpath/types"
)

func init() {
	Register(FuncDef{Name: "startsWith", MinArgs: 1, MaxArgs: 1, Fn: fnStartsWith})
	Register(FuncDef{Name: "endsWith", MinArgs: 1, MaxArgs: 1, Fn: fnEndsWith})
	Register(FuncDef{Name: "contains", MinArgs: 1, MaxArgs: 1, Fn: fnContains})
	Register(FuncDef{Name: "replace", MinArgs: 2, MaxArgs: 2, Fn: fnReplace})
	Register(FuncDef{Name: "matches", MinArgs: 1, MaxArgs: 1, Fn: fnMatches})
	Register(FuncDef{Name: "replaceMatches", MinArgs: 2, MaxArgs: 2, Fn: fnReplaceMatches})
	Register(FuncDef{Name: "indexOf", MinArgs: 1, MaxArgs: 1, Fn: fnIndexOf})
	Register(FuncDef{Name: "substring", MinArgs: 1, MaxArgs: 2, Fn: fnSubstring})
	Register(FuncDef{Name: "lower", MinArgs: 0, MaxArgs: 0, Fn: fnLower})
	Register(FuncDef{Name: "upper", MinArgs: 0, MaxArgs: 0, Fn: fnUpper})
	Register(FuncDef{Name: "toChars", MinArgs: 0, MaxArgs: 0, Fn: fnToChars})
	Register(FuncDef{Name: "split", MinArgs: 1, MaxArgs: 1, Fn: fnSplit})
	Register(FuncDef{Name: "join", MinArgs: 0, MaxArgs: 1, Fn: fnJoin})
	Register(FuncDef{Name: "trim", MinArgs: 0, MaxArgs: 0, Fn: fnTrim})
	Register(FuncDef{Name: "length", MinArgs: 0, MaxArgs: 0, Fn: fnLength})
}

// stringInput enforces the singleton-string input contract shared by the
// string functions. ok is false for empty input.
func stringInput(input types.Collection, op string) (types.String, bool, error) {
	if input.Empty() {
		return types.String{}, false, nil
	}
	if len(input) > 1 {
		return types.String{}, false, eval.MultiItemError(len(input))
	}
	s, isStr := input[0].(types.String)
	if !isStr {
		return types.String{}, false, eval.TypeErrorf("String", input[0].Type(), op)
	}
	return s, true, nil
}

// requiredStringArg extracts a mandatory singleton string argument.
func requiredStringArg(arg Arg, op string) (string, bool, error) {
	if arg.Value.Empty() {
		return "", false, nil
	}
	if len(arg.Value) > 1 {
		return "", false, eval.MultiItemError(len(arg.Value))
	}
	s, isStr := arg.Value[0].(types.String)
	if !isStr {
		return "", false, eval.TypeErrorf("String", arg.Value[0].Type(), op)
	}
	return s.Value(), true, nil
}

// fnStartsWith returns true if the string starts with the given prefix.
func fnStartsWith(_ *eval.Context, input types.Collection, args []Arg) (types.Collection, error) {
	s, ok, err := stringInput(input, "startsWith")
	if err != nil || !ok {
		return types.EmptyCollection, err
	}
	prefix, ok, err := requiredStringArg(args[0], "startsWith")
	if err != nil || !ok {
		return types.EmptyCollection, err
	}
	return types.BoolCollection(s.StartsWith(prefix)), nil
}

// fnEndsWith returns true if the string ends with the given suffix.
func fnEndsWith(_ *eval.Context, input types.Collection, args []Arg) (types.Collection, error) {
	s, ok, err := stringInput(input, "endsWith")
	if err != nil || !ok {
		return types.EmptyCollection, err
	}
	suffix, ok, err := requiredStringArg(args[0], "endsWith")
	if err != nil || !ok {
		return types.EmptyCollection, err
	}
	return types.BoolCollection(s.EndsWith(suffix)), nil
}

// fnContains returns true if the string contains the given substring.
func fnContains(_ *eval.Context, input types.Collection, args []Arg) (types.Collection, error) {
	s, ok, err := stringInput(input, "contains")
	if err != nil || !ok {
		return types.EmptyCollection, err
	}
	substr, ok, err := requiredStringArg(args[0], "contains")
	if err != nil || !ok {
		return types.EmptyCollection, err
	}
	return types.BoolCollection(s.Contains(substr)), nil
}

// fnReplace replaces all occurrences of pattern with substitution.
func fnReplace(_ *eval.Context, input types.Collection, args []Arg) (types.Collection, error) {
	s, ok, err := stringInput(input, "replace")
	if err != nil || !ok {
		return types.EmptyCollection, err
	}
	pattern, ok, err := requiredStringArg(args[0], "replace")
	if err != nil || !ok {
		return types.EmptyCollection, err
	}
	substitution, ok, err := requiredStringArg(args[1], "replace")
	if err != nil || !ok {
		return types.EmptyCollection, err
	}
	return types.Collection{s.Replace(pattern, substitution)}, nil
}

// fnMatches returns true if the string matches the regex pattern.
// Patterns compile through the shared cache with complexity limits.
func fnMatches(ctx *eval.Context, input types.Collection, args []Arg) (types.Collection, error) {
	s, ok, err := stringInput(input, "matches")
	if err != nil || !ok {
		return types.EmptyCollection, err
	}
	pattern, ok, err := requiredStringArg(args[0], "matches")
	if err != nil || !ok {
		return types.EmptyCollection, err
	}
	matched, err := globalRegexCache.Match(ctx.GoContext(), pattern, s.Value())
	if err != nil {
		return nil, eval.NewError(eval.ErrType, "invalid regex pattern: %s", err)
	}
	return types.BoolCollection(matched), nil
}

// fnReplaceMatches replaces regex matches with the substitution.
func fnReplaceMatches(ctx *eval.Context, input types.Collection, args []Arg) (types.Collection, error) {
	s, ok, err := stringInput(input, "replaceMatches")
	if err != nil || !ok {
		return types.EmptyCollection, err
	}
	pattern, ok, err := requiredStringArg(args[0], "replaceMatches")
	if err != nil || !ok {
		return types.EmptyCollection, err
	}
	substitution, ok, err := requiredStringArg(args[1], "replaceMatches")
	if err != nil || !ok {
		return types.EmptyCollection, err
	}
	replaced, err := globalRegexCache.Replace(ctx.GoContext(), pattern, s.Value(), substitution)
	if err != nil {
		return nil, eval.NewError(eval.ErrType, "invalid regex pattern: %s", err)
	}
	return types.Collection{types.NewString(replaced)}, nil
}

// fnIndexOf returns the 0-based index of the first occurrence, or -1.
func fnIndexOf(_ *eval.Context, input types.Collection, args []Arg) (types.Collection, error) {
	s, ok, err := stringInput(input, "indexOf")
	if err != nil || !ok {
		return types.EmptyCollection, err
	}
	substr, ok, err := requiredStringArg(args[0], "indexOf")
	if err != nil || !ok {
		return types.EmptyCollection, err
	}
	return types.Collection{types.GetInteger(int64(s.IndexOf(substr)))}, nil
}

// fnSubstring returns the substring at start with optional length.
func fnSubstring(_ *eval.Context, input types.Collection, args []Arg) (types.Collection, error) {
	s, ok, err := stringInput(input, "substring")
	if err != nil || !ok {
		return types.EmptyCollection, err
	}
	start, err := integerArg(args[0], "substring")
	if err != nil {
		return nil, err
	}
	if start < 0 || int(start) >= s.Length() {
		return types.EmptyCollection, nil
	}

	length := int64(s.Length()) - start
	if len(args) > 1 {
		if args[1].Value.Empty() {
			return types.EmptyCollection, nil
		}
		length, err = integerArg(args[1], "substring")
		if err != nil {
			return nil, err
		}
		if length <= 0 {
			return types.EmptyCollection, nil
		}
	}
	return types.Collection{s.Substring(int(start), int(length))}, nil
}

// fnLower converts the string to lowercase.
func fnLower(_ *eval.Context, input types.Collection, _ []Arg) (types.Collection, error) {
	s, ok, err := stringInput(input, "lower")
	if err != nil || !ok {
		return types.EmptyCollection, err
	}
	return types.Collection{s.Lower()}, nil
}

// fnUpper converts the string to uppercase.
func fnUpper(_ *eval.Context, input types.Collection, _ []Arg) (types.Collection, error) {
	s, ok, err := stringInput(input, "upper")
	if err != nil || !ok {
		return types.EmptyCollection, err
	}
	return types.Collection{s.Upper()}, nil
}

// fnToChars splits the string into single-character strings.
func fnToChars(_ *eval.Context, input types.Collection, _ []Arg) (types.Collection, error) {
	s, ok, err := stringInput(input, "toChars")
	if err != nil || !ok {
		return types.EmptyCollection, err
	}
	return s.ToChars(), nil
}

// fnSplit splits the string by the given separator.
func fnSplit(_ *eval.Context, input types.Collection, args []Arg) (types.Collection, error) {
	s, ok, err := stringInput(input, "split")
	if err != nil || !ok {
		return types.EmptyCollection, err
	}
	sep, ok, err := requiredStringArg(args[0], "split")
	if err != nil || !ok {
		return types.EmptyCollection, err
	}
	parts := strings.Split(s.Value(), sep)
	result := make(types.Collection, len(parts))
	for i, part := range parts {
		result[i] = types.NewString(part)
	}
	return result, nil
}

// fnJoin joins a collection of strings with an optional separator.
func fnJoin(_ *eval.Context, input types.Collection, args []Arg) (types.Collection, error) {
	sep := ""
	if len(args) > 0 {
		if s, ok, err := requiredStringArg(args[0], "join"); err != nil {
			return nil, err
		} else if ok {
			sep = s
		}
	}

	parts := make([]string, 0, len(input))
	for _, item := range input {
		s, isStr := item.(types.String)
		if !isStr {
			return nil, eval.TypeErrorf("String", item.Type(), "join")
		}
		parts = append(parts, s.Value())
	}
	return types.Collection{types.NewString(strings.Join(parts, sep))}, nil
}

// fnTrim removes leading and trailing whitespace.
func fnTrim(_ *eval.Context, input types.Collection, _ []Arg) (types.Collection, error) {
	s, ok, err := stringInput(input, "trim")
	if err != nil || !ok {
		return types.EmptyCollection, err
	}
	return types.Collection{types.NewString(strings.TrimSpace(s.Value()))}, nil
}

// fnLength returns the number of characters in the string.
func fnLength(_ *eval.Context, input types.Collection, _ []Arg) (types.Collection, error) {
	s, ok, err := stringInput(input, "length")
	if err != nil || !ok {
		return types.EmptyCollection, err
	}
	return types.Collection{types.GetInteger(int64(s.Length()))}, nil
}
