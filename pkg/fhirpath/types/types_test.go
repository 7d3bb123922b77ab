package types

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestIntegerCheckedArithmetic(t *testing.T) {
	t.Run("add overflow", func(t *testing.T) {
		if _, ok := NewInteger(1<<62).Add(NewInteger(1 << 62)); ok {
			t.Error("expected overflow")
		}
		sum, ok := NewInteger(2).Add(NewInteger(3))
		if !ok || sum.Value() != 5 {
			t.Errorf("expected 5, got %v ok=%v", sum, ok)
		}
	})

	t.Run("subtract overflow", func(t *testing.T) {
		if _, ok := NewInteger(-(1 << 62)).Subtract(NewInteger(1<<62 + 1)); ok {
			t.Error("expected overflow")
		}
	})

	t.Run("multiply overflow", func(t *testing.T) {
		if _, ok := NewInteger(1 << 40).Multiply(NewInteger(1 << 40)); ok {
			t.Error("expected overflow")
		}
		prod, ok := NewInteger(6).Multiply(NewInteger(7))
		if !ok || prod.Value() != 42 {
			t.Errorf("expected 42, got %v", prod)
		}
	})

	t.Run("division by zero", func(t *testing.T) {
		if _, ok := NewInteger(1).Div(NewInteger(0)); ok {
			t.Error("expected not ok")
		}
		if _, ok := NewInteger(1).Mod(NewInteger(0)); ok {
			t.Error("expected not ok")
		}
	})

	t.Run("div truncates toward zero", func(t *testing.T) {
		q, _ := NewInteger(-7).Div(NewInteger(2))
		if q.Value() != -3 {
			t.Errorf("expected -3, got %d", q.Value())
		}
	})
}

func TestNumericPromotion(t *testing.T) {
	i := NewInteger(3)
	d := MustDecimal("3.0")

	if !i.Equal(d) {
		t.Error("Integer(3) should equal Decimal(3.0)")
	}
	if !d.Equal(i) {
		t.Error("Decimal(3.0) should equal Integer(3)")
	}
	cmp, err := i.Compare(MustDecimal("3.5"))
	if err != nil || cmp != -1 {
		t.Errorf("expected -1, got %d err=%v", cmp, err)
	}
}

func TestDecimalEquivalenceRounding(t *testing.T) {
	a := MustDecimal("1.011")
	b := MustDecimal("1.012")
	if a.Equal(b) {
		t.Error("exact equality must distinguish 1.011 and 1.012")
	}
	if !a.Equivalent(b) {
		t.Error("equivalence rounds to two fractional digits")
	}
	if MustDecimal("1.016").Equivalent(MustDecimal("1.012")) {
		t.Error("1.02 is not equivalent to 1.01")
	}
}

func TestStringKinds(t *testing.T) {
	plain := NewString("http://example.org")
	uri := NewStringKind("http://example.org", UriString)
	id := NewStringKind("http://example.org", IdString)

	if !plain.Equal(uri) || !uri.Equal(id) || !id.Equal(plain) {
		t.Error("string kinds must compare equal to each other")
	}
	if uri.Type() != "Uri" {
		t.Errorf("expected Uri, got %s", uri.Type())
	}
}

func TestStringEquivalence(t *testing.T) {
	a := NewString("  Hello   World ")
	b := NewString("hello world")
	if !a.Equivalent(b) {
		t.Error("equivalence is case-insensitive with normalized whitespace")
	}
	if a.Equal(b) {
		t.Error("equality is exact")
	}
}

func TestCollectionAlgebra(t *testing.T) {
	a := Collection{NewInteger(1), NewInteger(2), NewInteger(2)}
	b := Collection{NewInteger(2), NewInteger(3)}

	t.Run("union dedupes by equivalence", func(t *testing.T) {
		u := a.Union(b)
		if u.Count() != 3 {
			t.Fatalf("expected 3 elements, got %d: %s", u.Count(), u)
		}
	})

	t.Run("union commutative as multiset", func(t *testing.T) {
		ab := a.Union(b)
		ba := b.Union(a)
		if !ab.EquivalentTo(ba) {
			t.Errorf("union must be commutative up to order: %s vs %s", ab, ba)
		}
	})

	t.Run("combine keeps duplicates", func(t *testing.T) {
		if c := a.Combine(b); c.Count() != 5 {
			t.Errorf("expected 5, got %d", c.Count())
		}
	})

	t.Run("distinct", func(t *testing.T) {
		if d := a.Distinct(); d.Count() != 2 {
			t.Errorf("expected 2, got %d", d.Count())
		}
		if a.IsDistinct() {
			t.Error("a has duplicates")
		}
	})

	t.Run("intersect and exclude", func(t *testing.T) {
		if i := a.Intersect(b); i.Count() != 1 || !i[0].Equal(NewInteger(2)) {
			t.Errorf("expected [2], got %s", i)
		}
		if e := a.Exclude(b); e.Count() != 1 || !e[0].Equal(NewInteger(1)) {
			t.Errorf("expected [1], got %s", e)
		}
	})
}

func TestQuantityEquality(t *testing.T) {
	g4, _ := NewQuantity("4 'g'")
	mg4000, _ := NewQuantity("4000 'mg'")
	mL4, _ := NewQuantity("4 'mL'")

	if !g4.Equal(mg4000) {
		t.Error("4 g must equal 4000 mg")
	}
	if g4.Equal(mL4) {
		t.Error("4 g must not equal 4 mL")
	}
}

func TestQuantityArithmetic(t *testing.T) {
	g4, _ := NewQuantity("4 'g'")
	mg500, _ := NewQuantity("500 'mg'")
	mL1, _ := NewQuantity("1 'mL'")

	sum, err := g4.Add(mg500)
	if err != nil {
		t.Fatal(err)
	}
	if sum.Unit() != "g" || !sum.Value().Equal(decimal.RequireFromString("4.5")) {
		t.Errorf("expected 4.5 g, got %s", sum)
	}

	if _, err := g4.Add(mL1); err == nil {
		t.Error("expected incompatible units error")
	}
}

func TestQuantityConversionRoundTrip(t *testing.T) {
	for _, tc := range []struct{ value, from, to string }{
		{"2.5", "kg", "g"},
		{"100", "cm", "m"},
		{"1.5", "h", "min"},
		{"4", "g", "mg"},
	} {
		q, _ := NewQuantity(tc.value + " '" + tc.from + "'")
		converted, err := q.ConvertTo(tc.to)
		if err != nil {
			t.Fatalf("%s -> %s: %v", tc.from, tc.to, err)
		}
		back, err := converted.ConvertTo(tc.from)
		if err != nil {
			t.Fatalf("%s -> %s: %v", tc.to, tc.from, err)
		}
		if !back.Value().Equal(q.Value()) {
			t.Errorf("round trip %s %s: got %s", tc.value, tc.from, back)
		}
	}
}

func TestAnnotate(t *testing.T) {
	v := Annotate(NewString("hi"), "string", []byte(`{"id":"x"}`))
	s, ok := v.(String)
	if !ok {
		t.Fatalf("expected String, got %T", v)
	}
	if s.FHIRType() != "string" {
		t.Errorf("expected string annotation, got %q", s.FHIRType())
	}
	if s.Element() == nil {
		t.Error("expected element annotation")
	}
	if ti := s.TypeInfo(); ti.Namespace != FHIRNamespace || ti.Name != "string" {
		t.Errorf("expected FHIR.string, got %s", ti)
	}
	// Annotation never affects equality.
	if !s.Equal(NewString("hi")) {
		t.Error("annotation must not affect equality")
	}
}

func TestFromJSON(t *testing.T) {
	col, err := FromJSON([]byte(`{"resourceType":"Patient","id":"p1"}`))
	if err != nil {
		t.Fatal(err)
	}
	if col.Count() != 1 {
		t.Fatalf("expected singleton, got %d", col.Count())
	}
	obj := col[0].(*ObjectValue)
	if obj.Type() != "Patient" {
		t.Errorf("expected Patient, got %s", obj.Type())
	}

	arr, err := FromJSON([]byte(`[1, 2.5, "x", true]`))
	if err != nil {
		t.Fatal(err)
	}
	if arr.Count() != 4 {
		t.Fatalf("expected 4 values, got %d", arr.Count())
	}
	if _, isInt := arr[0].(Integer); !isInt {
		t.Errorf("expected Integer, got %T", arr[0])
	}
	if _, isDec := arr[1].(Decimal); !isDec {
		t.Errorf("expected Decimal, got %T", arr[1])
	}
}

func TestObjectStructuralInference(t *testing.T) {
	quantity := NewObjectValue([]byte(`{"value":4,"unit":"g","system":"http://unitsofmeasure.org"}`))
	if quantity.Type() != "Quantity" {
		t.Errorf("expected Quantity, got %s", quantity.Type())
	}

	coding := NewObjectValue([]byte(`{"system":"http://loinc.org","code":"1234-5"}`))
	if coding.Type() != "Coding" {
		t.Errorf("expected Coding, got %s", coding.Type())
	}

	q, ok := quantity.ToQuantity()
	if !ok {
		t.Fatal("expected quantity coercion")
	}
	if q.Unit() != "g" {
		t.Errorf("expected g, got %s", q.Unit())
	}
}
