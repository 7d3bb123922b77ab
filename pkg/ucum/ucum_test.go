package ucum

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParse(t *testing.T) {
	tests := []struct {
		code   string
		factor string
	}{
		{"g", "1"},
		{"mg", "0.001"},
		{"kg", "1000"},
		{"ug", "0.000001"},
		{"m", "1"},
		{"cm", "0.01"},
		{"mL", "0.000001"}, // milli-litre in m3
		{"min", "60"},
		{"ms", "0.001"},
		{"%", "0.01"},
		{"[lb_av]", "453.59237"},
	}
	for _, tc := range tests {
		u, err := Parse(tc.code)
		if err != nil {
			t.Fatalf("%s: %v", tc.code, err)
		}
		want := decimal.RequireFromString(tc.factor)
		if !u.Factor().Equal(want) {
			t.Errorf("%s: factor %s, want %s", tc.code, u.Factor(), want)
		}
	}

	if _, err := Parse("florbs"); err == nil {
		t.Error("expected error for unknown unit")
	}
}

func TestParseCompound(t *testing.T) {
	u, err := Parse("mg/dL")
	if err != nil {
		t.Fatal(err)
	}
	if u.Dim()["g"] != 1 || u.Dim()["m"] != -3 {
		t.Errorf("mg/dL dimension wrong: %v", u.Dim())
	}

	u, err = Parse("m2")
	if err != nil {
		t.Fatal(err)
	}
	if u.Dim()["m"] != 2 {
		t.Errorf("m2 dimension wrong: %v", u.Dim())
	}

	u, err = Parse("m.s-1")
	if err != nil {
		t.Fatal(err)
	}
	if u.Dim()["m"] != 1 || u.Dim()["s"] != -1 {
		t.Errorf("m.s-1 dimension wrong: %v", u.Dim())
	}

	u, err = Parse("10*9/L")
	if err != nil {
		t.Fatal(err)
	}
	if u.Dim()["m"] != -3 {
		t.Errorf("10*9/L dimension wrong: %v", u.Dim())
	}

	u, err = Parse("/min")
	if err != nil {
		t.Fatal(err)
	}
	if u.Dim()["s"] != -1 {
		t.Errorf("/min dimension wrong: %v", u.Dim())
	}

	// Annotations are unity.
	u, err = Parse("mg{total}")
	if err != nil {
		t.Fatal(err)
	}
	if !u.Factor().Equal(decimal.RequireFromString("0.001")) {
		t.Errorf("annotation changed the factor: %s", u.Factor())
	}
}

func TestConvert(t *testing.T) {
	tests := []struct {
		value, from, to, want string
	}{
		{"4000", "mg", "g", "4"},
		{"4", "g", "mg", "4000"},
		{"1", "h", "min", "60"},
		{"2", "[lb_av]", "g", "907.18474"},
		{"1", "L", "mL", "1000"},
	}
	for _, tc := range tests {
		from := MustParse(tc.from)
		to := MustParse(tc.to)
		got, err := Convert(decimal.RequireFromString(tc.value), from, to)
		if err != nil {
			t.Fatalf("%s %s -> %s: %v", tc.value, tc.from, tc.to, err)
		}
		if !got.Equal(decimal.RequireFromString(tc.want)) {
			t.Errorf("%s %s -> %s: got %s, want %s", tc.value, tc.from, tc.to, got, tc.want)
		}
	}

	if _, err := Convert(decimal.NewFromInt(1), MustParse("g"), MustParse("mL")); err == nil {
		t.Error("expected incompatible units error")
	}
}

func TestUnitAlgebra(t *testing.T) {
	g := MustParse("g")
	s := MustParse("s")

	rate := Div(g, s)
	if rate.Dim()["g"] != 1 || rate.Dim()["s"] != -1 {
		t.Errorf("g/s dimension wrong: %v", rate.Dim())
	}
	if rate.Code() != "g/s" {
		t.Errorf("expected g/s, got %s", rate.Code())
	}

	area := Mul(MustParse("m"), MustParse("m"))
	if area.Dim()["m"] != 2 {
		t.Errorf("m*m dimension wrong: %v", area.Dim())
	}
	if area.Code() != "m2" {
		t.Errorf("expected m2, got %s", area.Code())
	}

	unity := Div(g, g)
	if !unity.Dim().IsDimensionless() {
		t.Errorf("g/g must be dimensionless: %v", unity.Dim())
	}
	if unity.Code() != "1" {
		t.Errorf("expected 1, got %s", unity.Code())
	}
}
