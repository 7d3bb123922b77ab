package fhirpath_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/octofhir/fhirpath-go/pkg/fhirpath"
	"github.com/octofhir/fhirpath-go/pkg/fhirpath/types"
)

// The scenarios below exercise the engine end to end: choice-type
// resolution, primitive extensions, three-valued logic, quantity and
// calendar arithmetic, and lambda scoping.

func TestChoiceTypeScenario(t *testing.T) {
	observation := []byte(`{"resourceType":"Observation","valueString":"hi","valueInteger":42}`)

	result, err := fhirpath.Evaluate(observation, "value")
	require.NoError(t, err)
	require.Len(t, result, 2)

	assert.Equal(t, "hi", result[0].String())
	assert.Equal(t, "FHIR.string", result[0].TypeInfo().QualifiedName())

	assert.Equal(t, "42", result[1].String())
	assert.Equal(t, "FHIR.integer", result[1].TypeInfo().QualifiedName())
}

func TestPrimitiveExtensionScenario(t *testing.T) {
	resource := []byte(`{"valueString":"hi","_valueString":{"extension":[{"url":"u","valueString":"x"}]}}`)

	result, err := fhirpath.Evaluate(resource, "value.extension.url")
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, "u", result[0].String())
}

func TestThreeValuedLogicScenario(t *testing.T) {
	empty := []byte(`{}`)

	cases := []struct {
		expr  string
		empty bool
		value bool
	}{
		{expr: "true and {}", empty: true},
		{expr: "false and {}", value: false},
		{expr: "true or {}", value: true},
		{expr: "{} or {}", empty: true},
	}
	for _, tc := range cases {
		result, err := fhirpath.Evaluate(empty, tc.expr)
		require.NoError(t, err, tc.expr)
		if tc.empty {
			assert.Empty(t, result, tc.expr)
		} else {
			require.Len(t, result, 1, tc.expr)
			assert.Equal(t, tc.value, result[0].(types.Boolean).Bool(), tc.expr)
		}
	}
}

func TestQuantityScenario(t *testing.T) {
	empty := []byte(`{}`)

	result, err := fhirpath.Evaluate(empty, "4 'g' = 4000 'mg'")
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.True(t, result[0].(types.Boolean).Bool())

	result, err = fhirpath.Evaluate(empty, "4 'g' + 500 'mg'")
	require.NoError(t, err)
	require.Len(t, result, 1)
	q := result[0].(types.Quantity)
	assert.Equal(t, "g", q.Unit())
	assert.Equal(t, "4.5", q.Value().String())

	_, err = fhirpath.Evaluate(empty, "4 'g' + 1 'mL'")
	assert.Error(t, err)
}

func TestCalendarQuantityScenario(t *testing.T) {
	empty := []byte(`{}`)

	result, err := fhirpath.Evaluate(empty, "@2023-01-31 + 1 month")
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, "2023-02-28", result[0].String())

	result, err = fhirpath.Evaluate(empty, "@2023-06-15 + 1 'mo'")
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, "2023-07-15", result[0].String())

	result, err = fhirpath.Evaluate(empty, "@2023-06-15 + 1 meter")
	require.NoError(t, err)
	assert.Empty(t, result)
}

func TestLambdaIndexScenario(t *testing.T) {
	resource := []byte(`{"name":[{"given":["A"]},{"given":["B"]},{"given":["C"]}]}`)

	result, err := fhirpath.Evaluate(resource, "name.where($index >= 1).given")
	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Equal(t, "B", result[0].String())
	assert.Equal(t, "C", result[1].String())
}

func TestDefineVariablePassThrough(t *testing.T) {
	resource := []byte(`{"name":[{"given":["A"]},{"given":["B"]}]}`)

	direct, err := fhirpath.Evaluate(resource, "name.given")
	require.NoError(t, err)
	viaVariable, err := fhirpath.Evaluate(resource, "name.defineVariable('v').given")
	require.NoError(t, err)

	require.Len(t, viaVariable, len(direct))
	for i := range direct {
		assert.True(t, direct[i].Equal(viaVariable[i]))
	}
}

func TestEvaluationTimeout(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	expr := fhirpath.MustCompile("name.given")
	_, err := expr.EvaluateWithOptions(patient,
		fhirpath.WithContext(ctx),
		fhirpath.WithTimeout(time.Hour))
	assert.Error(t, err)
}

func TestUnionCommutativity(t *testing.T) {
	empty := []byte(`{}`)

	ab, err := fhirpath.Evaluate(empty, "(1 | 2 | 3) | (3 | 4)")
	require.NoError(t, err)
	ba, err := fhirpath.Evaluate(empty, "(3 | 4) | (1 | 2 | 3)")
	require.NoError(t, err)

	assert.True(t, ab.EquivalentTo(ba), "union must be commutative as a multiset")
}

func TestQuantityRoundTripProperty(t *testing.T) {
	empty := []byte(`{}`)

	// (x u) = ((x u) as converted) as u after decimal normalisation.
	result, err := fhirpath.Evaluate(empty, "(2.5 'kg'.toQuantity('g')).toQuantity('kg') = 2.5 'kg'")
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.True(t, result[0].(types.Boolean).Bool())
}
