package fhirpath_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/octofhir/fhirpath-go/pkg/fhirpath"
	"github.com/octofhir/fhirpath-go/pkg/fhirpath/types"
)

var patient = []byte(`{
	"resourceType": "Patient",
	"id": "example",
	"active": true,
	"name": [
		{
			"use": "official",
			"family": "Smith",
			"given": ["John", "James"]
		},
		{
			"use": "usual",
			"given": ["Johnny"]
		}
	],
	"birthDate": "1990-01-15"
}`)

func TestEvaluateJSON(t *testing.T) {
	tests := []struct {
		name      string
		expr      string
		wantCount int
		wantFirst string
	}{
		{
			name:      "simple path",
			expr:      "Patient.id",
			wantCount: 1,
			wantFirst: "example",
		},
		{
			name:      "nested path",
			expr:      "Patient.name.family",
			wantCount: 1,
			wantFirst: "Smith",
		},
		{
			name:      "array access",
			expr:      "Patient.name.given",
			wantCount: 3,
			wantFirst: "John",
		},
		{
			name:      "first function",
			expr:      "Patient.name.given.first()",
			wantCount: 1,
			wantFirst: "John",
		},
		{
			name:      "count function",
			expr:      "Patient.name.given.count()",
			wantCount: 1,
			wantFirst: "3",
		},
		{
			name:      "where filter",
			expr:      "name.where(use = 'usual').given",
			wantCount: 1,
			wantFirst: "Johnny",
		},
		{
			name:      "indexing",
			expr:      "name[1].given",
			wantCount: 1,
			wantFirst: "Johnny",
		},
		{
			name:      "missing property",
			expr:      "Patient.address",
			wantCount: 0,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result, err := fhirpath.Evaluate(patient, tc.expr)
			require.NoError(t, err)
			assert.Len(t, result, tc.wantCount)
			if tc.wantFirst != "" {
				require.NotEmpty(t, result)
				assert.Equal(t, tc.wantFirst, result[0].String())
			}
		})
	}
}

func TestCompileOnceEvaluateMany(t *testing.T) {
	expr, err := fhirpath.Compile("Patient.name.given.count()")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		result, err := expr.Evaluate(patient)
		require.NoError(t, err)
		require.Len(t, result, 1)
		assert.Equal(t, int64(3), result[0].(types.Integer).Value())
	}
}

func TestCompileError(t *testing.T) {
	_, err := fhirpath.Compile("name.where(")
	assert.Error(t, err)

	_, err = fhirpath.Compile("")
	assert.Error(t, err)

	assert.Panics(t, func() { fhirpath.MustCompile("((") })
}

func TestEvaluateWithOptions(t *testing.T) {
	expr := fhirpath.MustCompile("%threshold + 1")
	result, err := expr.EvaluateWithOptions(patient,
		fhirpath.WithVariable("threshold", types.Collection{types.NewInteger(41)}))
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, int64(42), result[0].(types.Integer).Value())
}

func TestReservedVariableRejected(t *testing.T) {
	expr := fhirpath.MustCompile("1")
	_, err := expr.EvaluateWithOptions(patient,
		fhirpath.WithVariable("context", types.Collection{types.NewInteger(1)}))
	assert.Error(t, err)
}

func TestExpressionCache(t *testing.T) {
	cache := fhirpath.NewExpressionCache(2)

	first, err := cache.Get("Patient.id")
	require.NoError(t, err)
	second, err := cache.Get("Patient.id")
	require.NoError(t, err)
	assert.Same(t, first, second)

	_, err = cache.Get("Patient.name")
	require.NoError(t, err)
	_, err = cache.Get("Patient.birthDate")
	require.NoError(t, err)
	assert.LessOrEqual(t, cache.Size(), 2)

	stats := cache.Stats()
	assert.Equal(t, int64(1), stats.Hits)

	cache.Clear()
	assert.Equal(t, 0, cache.Size())
}

func TestEvaluateCached(t *testing.T) {
	result, err := fhirpath.EvaluateCached(patient, "Patient.active")
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.True(t, result[0].(types.Boolean).Bool())
}

type testResource struct {
	ResourceType string `json:"resourceType"`
	ID           string `json:"id"`
}

func (r testResource) GetResourceType() string { return r.ResourceType }

func TestEvaluateResource(t *testing.T) {
	result, err := fhirpath.EvaluateResource(testResource{ResourceType: "Patient", ID: "abc"}, "Patient.id")
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, "abc", result[0].String())
}
