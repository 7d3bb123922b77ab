package eval_test

import (
	"context"
	"errors"
	"testing"

	"github.com/octofhir/fhirpath-go/pkg/fhirpath/eval"
	"github.com/octofhir/fhirpath-go/pkg/fhirpath/funcs"
	"github.com/octofhir/fhirpath-go/pkg/fhirpath/parser"
	"github.com/octofhir/fhirpath-go/pkg/fhirpath/types"
)

// run parses and evaluates an expression against a JSON resource.
func run(t *testing.T, resource, expr string) (types.Collection, error) {
	t.Helper()
	tree, err := parser.Parse(expr)
	if err != nil {
		t.Fatalf("parse %q: %v", expr, err)
	}
	ctx := eval.NewContextFromJSON([]byte(resource))
	ctx.SetFunctions(funcs.GetRegistry())
	return eval.Eval(tree, ctx)
}

// mustRun evaluates and fails the test on error.
func mustRun(t *testing.T, resource, expr string) types.Collection {
	t.Helper()
	result, err := run(t, resource, expr)
	if err != nil {
		t.Fatalf("eval %q: %v", expr, err)
	}
	return result
}

// wantBool asserts a singleton boolean result.
func wantBool(t *testing.T, resource, expr string, want bool) {
	t.Helper()
	result := mustRun(t, resource, expr)
	if len(result) != 1 {
		t.Fatalf("%q: expected singleton, got %s", expr, result)
	}
	b, ok := result[0].(types.Boolean)
	if !ok || b.Bool() != want {
		t.Errorf("%q: expected %v, got %s", expr, want, result)
	}
}

// wantEmpty asserts the empty collection.
func wantEmpty(t *testing.T, resource, expr string) {
	t.Helper()
	result := mustRun(t, resource, expr)
	if !result.Empty() {
		t.Errorf("%q: expected empty, got %s", expr, result)
	}
}

// wantStrings asserts an ordered collection of string values.
func wantStrings(t *testing.T, resource, expr string, want ...string) {
	t.Helper()
	result := mustRun(t, resource, expr)
	if len(result) != len(want) {
		t.Fatalf("%q: expected %d values, got %s", expr, len(want), result)
	}
	for i, w := range want {
		s, ok := result[i].(types.String)
		if !ok || s.Value() != w {
			t.Errorf("%q: element %d: expected %q, got %s", expr, i, w, result[i])
		}
	}
}

const emptyResource = `{}`

func TestLiterals(t *testing.T) {
	result := mustRun(t, emptyResource, "42")
	if len(result) != 1 || !result[0].Equal(types.NewInteger(42)) {
		t.Errorf("expected [42], got %s", result)
	}

	result = mustRun(t, emptyResource, "{}")
	if !result.Empty() {
		t.Errorf("expected empty, got %s", result)
	}

	result = mustRun(t, emptyResource, "'hello'")
	if len(result) != 1 || !result[0].Equal(types.NewString("hello")) {
		t.Errorf("expected [hello], got %s", result)
	}
}

func TestArithmetic(t *testing.T) {
	tests := []struct {
		expr string
		want string
	}{
		{"1 + 2", "3"},
		{"5 - 2", "3"},
		{"4 * 3", "12"},
		{"1 / 2", "0.5"},
		{"5 div 2", "2"},
		{"-7 div 2", "-3"},
		{"5 mod 2", "1"},
		{"1 + 2.5", "3.5"},
		{"-(3)", "-3"},
		{"2 + 3 * 4", "14"},
		{"(2 + 3) * 4", "20"},
	}
	for _, tc := range tests {
		result := mustRun(t, emptyResource, tc.expr)
		if len(result) != 1 || result[0].String() != tc.want {
			t.Errorf("%q: expected %s, got %s", tc.expr, tc.want, result)
		}
	}
}

func TestArithmeticEmptyPropagation(t *testing.T) {
	wantEmpty(t, emptyResource, "1 + {}")
	wantEmpty(t, emptyResource, "{} * 2")
	wantEmpty(t, emptyResource, "1 / 0")
	wantEmpty(t, emptyResource, "5 div 0")
	wantEmpty(t, emptyResource, "5 mod 0")
	wantEmpty(t, emptyResource, "9223372036854775807 + 1")
	wantEmpty(t, emptyResource, "9223372036854775807 * 2")
}

func TestStringOperators(t *testing.T) {
	wantStrings(t, emptyResource, "'a' + 'b'", "ab")
	wantStrings(t, emptyResource, "'a' & 'b'", "ab")
	wantStrings(t, emptyResource, "{} & 'x'", "x")
	wantStrings(t, emptyResource, "'x' & {}", "x")
	wantEmpty(t, emptyResource, "'a' + {}")
}

func TestThreeValuedLogic(t *testing.T) {
	wantEmpty(t, emptyResource, "true and {}")
	wantBool(t, emptyResource, "false and {}", false)
	wantBool(t, emptyResource, "true or {}", true)
	wantEmpty(t, emptyResource, "false or {}")
	wantEmpty(t, emptyResource, "{} or {}")
	wantEmpty(t, emptyResource, "{} xor true")
	wantBool(t, emptyResource, "false implies {}", true)
	wantEmpty(t, emptyResource, "true implies {}")
	wantBool(t, emptyResource, "true and true", true)
	wantBool(t, emptyResource, "true xor false", true)
	wantEmpty(t, emptyResource, "({}).not()")
	wantBool(t, emptyResource, "(true).not()", false)

	// Non-boolean operands are type errors.
	if _, err := run(t, emptyResource, "1 and true"); err == nil {
		t.Error("expected type error for 1 and true")
	}
}

func TestComparisons(t *testing.T) {
	wantBool(t, emptyResource, "1 < 2", true)
	wantBool(t, emptyResource, "2 <= 2", true)
	wantBool(t, emptyResource, "3 > 2.5", true)
	wantBool(t, emptyResource, "'abc' < 'abd'", true)
	wantBool(t, emptyResource, "@2023-01-01 < @2023-02-01", true)
	wantBool(t, emptyResource, "@2023-01-01 < @2023-01-01T10:00:00", true)
	wantBool(t, emptyResource, "@T10:00 < @T11:00", true)
	wantEmpty(t, emptyResource, "1 < {}")
	wantEmpty(t, emptyResource, "1 < 'x'")
	wantEmpty(t, emptyResource, "@2023 < @2023-06")
}

func TestEquality(t *testing.T) {
	wantBool(t, emptyResource, "1 = 1", true)
	wantBool(t, emptyResource, "1 = 1.0", true)
	wantBool(t, emptyResource, "1 != 2", true)
	wantBool(t, emptyResource, "'a' = 'a'", true)
	wantEmpty(t, emptyResource, "{} = 1")
	wantEmpty(t, emptyResource, "1 = {}")
	wantEmpty(t, emptyResource, "{} = {}")
	wantEmpty(t, emptyResource, "@2023-06 = @2023-06-15")
	wantBool(t, emptyResource, "@2023-05 = @2023-06-15", false)
	wantBool(t, emptyResource, "(1 | 2) = (1 | 2)", true)
	wantBool(t, emptyResource, "(1 | 2) = (2 | 1)", false)
}

func TestEquivalence(t *testing.T) {
	wantBool(t, emptyResource, "{} ~ {}", true)
	wantBool(t, emptyResource, "{} ~ 1", false)
	wantBool(t, emptyResource, "'Hello' ~ 'hello'", true)
	wantBool(t, emptyResource, "1.011 ~ 1.012", true)
	wantBool(t, emptyResource, "(1 | 2) ~ (2 | 1)", true)
	wantBool(t, emptyResource, "1 !~ 2", true)
}

func TestMembership(t *testing.T) {
	wantBool(t, emptyResource, "1 in (1 | 2 | 3)", true)
	wantBool(t, emptyResource, "4 in (1 | 2 | 3)", false)
	wantEmpty(t, emptyResource, "{} in (1 | 2)")
	wantBool(t, emptyResource, "1 in {}", false)
	wantBool(t, emptyResource, "(1 | 2 | 3) contains 2", true)
	wantBool(t, emptyResource, "(1 | 2) contains 5", false)
}

func TestUnion(t *testing.T) {
	result := mustRun(t, emptyResource, "1 | 2 | 2 | 3")
	if len(result) != 3 {
		t.Errorf("expected 3 distinct elements, got %s", result)
	}
}

func TestIndexer(t *testing.T) {
	wantStrings(t, `{"name":["a","b","c"]}`, "name[1]", "b")
	wantEmpty(t, `{"name":["a"]}`, "name[5]")
	wantEmpty(t, `{"name":["a"]}`, "name[-1]")
}

func TestTypeOperators(t *testing.T) {
	wantBool(t, emptyResource, "1 is Integer", true)
	wantBool(t, emptyResource, "1 is Decimal", true)
	wantBool(t, emptyResource, "1.5 is Integer", false)
	wantBool(t, emptyResource, "'x' is String", true)
	wantBool(t, emptyResource, "1 is System.Integer", true)
	wantBool(t, emptyResource, "@2023-01-01 is Date", true)

	result := mustRun(t, emptyResource, "1 as Decimal")
	if len(result) != 1 {
		t.Fatalf("expected singleton, got %s", result)
	}
	if _, isDec := result[0].(types.Decimal); !isDec {
		t.Errorf("expected Decimal, got %T", result[0])
	}

	wantEmpty(t, emptyResource, "'x' as Integer")

	result = mustRun(t, emptyResource, "1 as Boolean")
	if len(result) != 1 || !result[0].Equal(types.NewBoolean(true)) {
		t.Errorf("expected true, got %s", result)
	}

	result = mustRun(t, emptyResource, "@2023-01-01 as DateTime")
	if len(result) != 1 {
		t.Fatalf("expected singleton, got %s", result)
	}
	if _, isDT := result[0].(types.DateTime); !isDT {
		t.Errorf("expected DateTime, got %T", result[0])
	}
}

func TestTypeFunction(t *testing.T) {
	wantStrings(t, emptyResource, "(1).type().name", "Integer")
	wantStrings(t, emptyResource, "(1).type().namespace", "System")
}

func TestQuantityOperators(t *testing.T) {
	wantBool(t, emptyResource, "4 'g' = 4000 'mg'", true)
	wantBool(t, emptyResource, "4 'g' > 500 'mg'", true)

	result := mustRun(t, emptyResource, "4 'g' + 500 'mg'")
	if len(result) != 1 {
		t.Fatalf("expected singleton, got %s", result)
	}
	q := result[0].(types.Quantity)
	if q.Unit() != "g" || q.Value().String() != "4.5" {
		t.Errorf("expected 4.5 'g', got %s", q)
	}

	_, err := run(t, emptyResource, "4 'g' + 1 'mL'")
	var evalErr *eval.Error
	if !errors.As(err, &evalErr) || evalErr.Code != eval.ErrIncompatibleUnits {
		t.Errorf("expected IncompatibleUnits, got %v", err)
	}

	// Scalar multiplication preserves the unit.
	result = mustRun(t, emptyResource, "2 * 3 'mg'")
	q = result[0].(types.Quantity)
	if q.Unit() != "mg" || q.Value().String() != "6" {
		t.Errorf("expected 6 'mg', got %s", q)
	}

	// Same-dimension division cancels to a plain ratio.
	result = mustRun(t, emptyResource, "4 'g' / 2 'g'")
	if _, isDec := result[0].(types.Decimal); !isDec {
		t.Errorf("expected Decimal, got %T", result[0])
	}
}

func TestTemporalArithmetic(t *testing.T) {
	tests := []struct {
		expr string
		want string
	}{
		{"@2023-01-31 + 1 month", "2023-02-28"},
		{"@2023-06-15 + 1 'mo'", "2023-07-15"},
		{"@2023-06-15 - 1 week", "2023-06-08"},
		{"@2023-06-15T10:00:00 + 90 minutes", "2023-06-15T11:30:00"},
		{"@T23:30 + 1 hour", "00:30"},
	}
	for _, tc := range tests {
		result := mustRun(t, emptyResource, tc.expr)
		if len(result) != 1 || result[0].String() != tc.want {
			t.Errorf("%q: expected %s, got %s", tc.expr, tc.want, result)
		}
	}

	// Non-time units yield empty.
	wantEmpty(t, emptyResource, "@2023-06-15 + 1 meter")
	wantEmpty(t, emptyResource, "@2023-06-15 + 1 'm'")
}

const observation = `{
	"resourceType": "Observation",
	"status": "final",
	"valueString": "hi",
	"valueInteger": 42
}`

func TestChoiceTypeResolution(t *testing.T) {
	result := mustRun(t, observation, "value")
	if len(result) != 2 {
		t.Fatalf("expected 2 values, got %s", result)
	}

	s, ok := result[0].(types.String)
	if !ok || s.Value() != "hi" {
		t.Fatalf("expected 'hi', got %s", result[0])
	}
	if ti := s.TypeInfo(); ti.Namespace != types.FHIRNamespace || ti.Name != "string" {
		t.Errorf("expected FHIR.string, got %s", ti)
	}

	i, ok := result[1].(types.Integer)
	if !ok || i.Value() != 42 {
		t.Fatalf("expected 42, got %s", result[1])
	}
	if ti := i.TypeInfo(); ti.Namespace != types.FHIRNamespace || ti.Name != "integer" {
		t.Errorf("expected FHIR.integer, got %s", ti)
	}
}

func TestChoiceTypeOfType(t *testing.T) {
	wantStrings(t, observation, "value.ofType(string)", "hi")

	result := mustRun(t, observation, "value.ofType(integer)")
	if len(result) != 1 || !result[0].Equal(types.NewInteger(42)) {
		t.Errorf("expected [42], got %s", result)
	}
}

func TestPrimitiveExtensionCarryThrough(t *testing.T) {
	resource := `{
		"valueString": "hi",
		"_valueString": {
			"id": "v1",
			"extension": [{"url": "u", "valueString": "x"}]
		}
	}`
	wantStrings(t, resource, "value.extension.url", "u")
	wantStrings(t, resource, "value.id", "v1")
	wantStrings(t, resource, "value.extension.value", "x")
}

func TestResourceTypeHead(t *testing.T) {
	patient := `{"resourceType":"Patient","id":"p1"}`
	wantStrings(t, patient, "Patient.id", "p1")
	wantStrings(t, patient, "Resource.id", "p1")
	wantStrings(t, patient, "DomainResource.id", "p1")
	wantEmpty(t, patient, "Observation.id")
}

func TestVariables(t *testing.T) {
	patient := `{"resourceType":"Patient","id":"p1"}`
	wantStrings(t, patient, "%context.id", "p1")
	wantStrings(t, patient, "%resource.id", "p1")

	if _, err := run(t, patient, "%undefined"); err == nil {
		t.Error("expected unknown variable error")
	}
}

const patientNames = `{
	"resourceType": "Patient",
	"name": [
		{"use": "official", "family": "Chalmers", "given": ["Peter", "James"]},
		{"use": "usual", "given": ["Jim"]},
		{"use": "maiden", "family": "Windsor", "given": ["Peter"]}
	]
}`

func TestWhereAndSelect(t *testing.T) {
	wantStrings(t, patientNames, "name.where(use = 'official').family", "Chalmers")
	wantStrings(t, patientNames, "name.select(given)", "Peter", "James", "Jim", "Peter")
	wantStrings(t, patientNames, "name.where(use = 'nope').family")
	// Non-boolean criteria exclude the element.
	wantStrings(t, patientNames, "name.where(given).family")
}

func TestLambdaIndex(t *testing.T) {
	resource := `{"name":[{"given":["A"]},{"given":["B"]},{"given":["C"]}]}`
	wantStrings(t, resource, "name.where($index >= 1).given", "B", "C")
}

func TestQuantifiers(t *testing.T) {
	wantBool(t, patientNames, "name.all(use.exists())", true)
	wantBool(t, patientNames, "name.all(family.exists())", false)
	wantBool(t, patientNames, "name.any(use = 'usual')", true)
	wantBool(t, emptyResource, "{}.all(true)", true)
	wantBool(t, emptyResource, "{}.any(true)", false)
	wantBool(t, patientNames, "name.exists(use = 'maiden')", true)
}

func TestIif(t *testing.T) {
	wantStrings(t, emptyResource, "iif(true, 'yes', 'no')", "yes")
	wantStrings(t, emptyResource, "iif(false, 'yes', 'no')", "no")
	wantEmpty(t, emptyResource, "iif(false, 'yes')")
	// The untaken branch must not be evaluated.
	wantStrings(t, emptyResource, "iif(true, 'ok', %undefined)", "ok")
}

func TestRepeat(t *testing.T) {
	resource := `{
		"item": [
			{"linkId": "1", "item": [{"linkId": "1.1", "item": [{"linkId": "1.1.1"}]}]},
			{"linkId": "2"}
		]
	}`
	result := mustRun(t, resource, "repeat(item).linkId")
	if len(result) != 4 {
		t.Errorf("expected 4 linkIds, got %s", result)
	}
}

func TestAggregate(t *testing.T) {
	result := mustRun(t, emptyResource, "(1 | 2 | 3 | 4).aggregate($this + $total, 0)")
	if len(result) != 1 || !result[0].Equal(types.NewInteger(10)) {
		t.Errorf("expected [10], got %s", result)
	}

	result = mustRun(t, emptyResource, "(1 | 2 | 3).aggregate($this * $total, 1)")
	if len(result) != 1 || !result[0].Equal(types.NewInteger(6)) {
		t.Errorf("expected [6], got %s", result)
	}
}

func TestDefineVariable(t *testing.T) {
	result := mustRun(t, emptyResource, "defineVariable('v', 5).select(%v + 1)")
	if len(result) != 1 || !result[0].Equal(types.NewInteger(6)) {
		t.Errorf("expected [6], got %s", result)
	}

	// Reserved names yield empty.
	wantEmpty(t, emptyResource, "defineVariable('context')")
	wantEmpty(t, emptyResource, "defineVariable('this')")

	// A pass-through defineVariable leaves the path result unchanged.
	wantStrings(t, patientNames, "name.defineVariable('n').where(use = 'usual').given", "Jim")
}

func TestSingletonErrors(t *testing.T) {
	_, err := run(t, patientNames, "name.given + 'x'")
	var evalErr *eval.Error
	if !errors.As(err, &evalErr) || evalErr.Code != eval.ErrMultiItem {
		t.Errorf("expected MultiItem, got %v", err)
	}

	_, err = run(t, emptyResource, "(1 | 2).single()")
	if !errors.As(err, &evalErr) || evalErr.Code != eval.ErrMultiItem {
		t.Errorf("expected MultiItem, got %v", err)
	}
}

func TestArityErrors(t *testing.T) {
	_, err := run(t, emptyResource, "'abc'.substring()")
	var evalErr *eval.Error
	if !errors.As(err, &evalErr) || evalErr.Code != eval.ErrArity {
		t.Errorf("expected ArityError, got %v", err)
	}
}

func TestUnknownFunction(t *testing.T) {
	_, err := run(t, emptyResource, "florbinate()")
	var evalErr *eval.Error
	if !errors.As(err, &evalErr) || evalErr.Code != eval.ErrUnknownName {
		t.Errorf("expected UnknownName, got %v", err)
	}
}

func TestCancellation(t *testing.T) {
	tree, err := parser.Parse("1 + 2")
	if err != nil {
		t.Fatal(err)
	}
	goCtx, cancel := context.WithCancel(context.Background())
	cancel()

	ctx := eval.NewContextFromJSON([]byte(emptyResource))
	ctx.SetFunctions(funcs.GetRegistry())
	ctx.SetGoContext(goCtx)

	_, err = eval.Eval(tree, ctx)
	var evalErr *eval.Error
	if !errors.As(err, &evalErr) || evalErr.Code != eval.ErrCancelled {
		t.Errorf("expected Cancelled, got %v", err)
	}
}

func TestCollectionCanonicity(t *testing.T) {
	// select flattens one level regardless of projection cardinality.
	result := mustRun(t, patientNames, "name.select(given)")
	for _, v := range result {
		if _, isCol := any(v).(types.Collection); isCol {
			t.Fatal("nested collection in result")
		}
	}

	// where returns a subsequence of its input.
	names := mustRun(t, patientNames, "name")
	filtered := mustRun(t, patientNames, "name.where(use != 'usual')")
	j := 0
	for _, item := range names {
		if j < len(filtered) {
			if eq, ok := types.Equals(item, filtered[j]); ok && eq {
				j++
			}
		}
	}
	if j != len(filtered) {
		t.Error("where result is not a subsequence of its input")
	}
}

func TestConversionFunctions(t *testing.T) {
	wantBool(t, emptyResource, "'true'.toBoolean()", true)
	wantBool(t, emptyResource, "(1).toBoolean()", true)
	wantEmpty(t, emptyResource, "(5).toBoolean()")
	wantEmpty(t, emptyResource, "'zz'.toInteger()")
	wantStrings(t, emptyResource, "(42).toString()", "42")
	wantBool(t, emptyResource, "'1.5'.convertsToDecimal()", true)
	wantBool(t, emptyResource, "'x'.convertsToDecimal()", false)
	wantBool(t, emptyResource, "'2023-06-15'.convertsToDate()", true)

	result := mustRun(t, emptyResource, "'4 \\'g\\''.toQuantity()")
	if len(result) != 1 {
		t.Fatalf("expected singleton, got %s", result)
	}
	if q, ok := result[0].(types.Quantity); !ok || q.Unit() != "g" {
		t.Errorf("expected 4 'g', got %s", result)
	}

	// Multi-element input is an error.
	_, err := run(t, emptyResource, "(1 | 2).toInteger()")
	var evalErr *eval.Error
	if !errors.As(err, &evalErr) || evalErr.Code != eval.ErrMultiItem {
		t.Errorf("expected MultiItem, got %v", err)
	}
}
