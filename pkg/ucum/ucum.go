// Package ucum implements the subset of UCUM (Unified Code for Units of
// Measure) the FHIRPath engine needs: parsing unit expressions into
// dimension vectors with exact decimal conversion factors, conversion
// between commensurable units, and the unit algebra behind quantity
// multiplication and division.
//
// Reference: https://ucum.org/ucum.html
package ucum

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Dimension maps base unit symbols (g, m, s, mol, K, rad, [IU], ...) to
// exponents. Two units are commensurable when their dimensions are equal.
type Dimension map[string]int

// Equals reports whether two dimensions are identical.
func (d Dimension) Equals(other Dimension) bool {
	if len(d) != len(other) {
		return false
	}
	for k, v := range d {
		if other[k] != v {
			return false
		}
	}
	return true
}

// IsDimensionless reports whether the dimension vector is empty.
func (d Dimension) IsDimensionless() bool {
	return len(d) == 0
}

func (d Dimension) clone() Dimension {
	c := make(Dimension, len(d))
	for k, v := range d {
		c[k] = v
	}
	return c
}

// Unit is a parsed UCUM unit expression: the original code, its dimension,
// and the exact factor converting a value in this unit to canonical base
// units.
type Unit struct {
	code   string
	factor decimal.Decimal
	dim    Dimension
}

// Code returns the original unit code.
func (u *Unit) Code() string {
	return u.code
}

// Factor returns the multiplier to canonical base units.
func (u *Unit) Factor() decimal.Decimal {
	return u.factor
}

// Dim returns the unit's dimension vector.
func (u *Unit) Dim() Dimension {
	return u.dim
}

// Compatible reports whether two units are dimensionally commensurable.
func (u *Unit) Compatible(other *Unit) bool {
	return u.dim.Equals(other.dim)
}

// atom is a named unit with its dimension, factor to base units, and
// whether metric prefixes may attach to it.
type atom struct {
	dim    Dimension
	factor decimal.Decimal
	metric bool
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic("ucum: bad factor constant " + s)
	}
	return d
}

var one = decimal.NewFromInt(1)

// atoms is the supported unit vocabulary. Factors are exact decimals in
// base units (mass g, length m, time s, amount mol, temperature K).
var atoms = map[string]atom{
	// unity
	"1": {dim: Dimension{}, factor: one},

	// base units
	"g":   {dim: Dimension{"g": 1}, factor: one, metric: true},
	"m":   {dim: Dimension{"m": 1}, factor: one, metric: true},
	"s":   {dim: Dimension{"s": 1}, factor: one, metric: true},
	"mol": {dim: Dimension{"mol": 1}, factor: one, metric: true},
	"K":   {dim: Dimension{"K": 1}, factor: one, metric: true},

	// time
	"min": {dim: Dimension{"s": 1}, factor: dec("60")},
	"h":   {dim: Dimension{"s": 1}, factor: dec("3600")},
	"d":   {dim: Dimension{"s": 1}, factor: dec("86400")},
	"wk":  {dim: Dimension{"s": 1}, factor: dec("604800")},
	"mo":  {dim: Dimension{"s": 1}, factor: dec("2629800")},   // mean month, 30.4375 d
	"a":   {dim: Dimension{"s": 1}, factor: dec("31557600")},  // Julian year

	// volume: L = dm^3
	"L": {dim: Dimension{"m": 3}, factor: dec("0.001"), metric: true},
	"l": {dim: Dimension{"m": 3}, factor: dec("0.001"), metric: true},

	// derived mechanical units (mass base is g, hence the 1000s)
	"N":  {dim: Dimension{"g": 1, "m": 1, "s": -2}, factor: dec("1000"), metric: true},
	"Pa": {dim: Dimension{"g": 1, "m": -1, "s": -2}, factor: dec("1000"), metric: true},
	"J":  {dim: Dimension{"g": 1, "m": 2, "s": -2}, factor: dec("1000"), metric: true},
	"W":  {dim: Dimension{"g": 1, "m": 2, "s": -3}, factor: dec("1000"), metric: true},
	"Hz": {dim: Dimension{"s": -1}, factor: one, metric: true},

	// temperature; offsets are out of scope, only scale is modelled
	"Cel":    {dim: Dimension{"K": 1}, factor: one},
	"[degF]": {dim: Dimension{"K": 1}, factor: dec("0.5555555555555555555555555556")},

	// dimensionless
	"%":     {dim: Dimension{}, factor: dec("0.01")},
	"[ppm]": {dim: Dimension{}, factor: dec("0.000001")},

	// arbitrary units keep their own dimension
	"[IU]": {dim: Dimension{"[IU]": 1}, factor: one, metric: true},

	// customary mass and length
	"[lb_av]": {dim: Dimension{"g": 1}, factor: dec("453.59237")},
	"[oz_av]": {dim: Dimension{"g": 1}, factor: dec("28.349523125")},
	"[in_i]":  {dim: Dimension{"m": 1}, factor: dec("0.0254")},
	"[ft_i]":  {dim: Dimension{"m": 1}, factor: dec("0.3048")},
	"[yd_i]":  {dim: Dimension{"m": 1}, factor: dec("0.9144")},
	"[mi_i]":  {dim: Dimension{"m": 1}, factor: dec("1609.344")},

	// customary volume
	"[gal_us]": {dim: Dimension{"m": 3}, factor: dec("0.003785411784")},
	"[qt_us]":  {dim: Dimension{"m": 3}, factor: dec("0.000946352946")},
	"[pt_us]":  {dim: Dimension{"m": 3}, factor: dec("0.000473176473")},
	"[foz_us]": {dim: Dimension{"m": 3}, factor: dec("0.0000295735295625")},
	"[cup_us]": {dim: Dimension{"m": 3}, factor: dec("0.0002365882365")},
	"[tbs_us]": {dim: Dimension{"m": 3}, factor: dec("0.00001478676478125")},
	"[tsp_us]": {dim: Dimension{"m": 3}, factor: dec("0.000004928921593750")},

	// pressure
	"mm[Hg]": {dim: Dimension{"g": 1, "m": -1, "s": -2}, factor: dec("133322.387415")},
	"[psi]":  {dim: Dimension{"g": 1, "m": -1, "s": -2}, factor: dec("6894757.293168")},
	"bar":    {dim: Dimension{"g": 1, "m": -1, "s": -2}, factor: dec("100000000"), metric: true},
	"atm":    {dim: Dimension{"g": 1, "m": -1, "s": -2}, factor: dec("101325000")},

	// energy
	"cal":   {dim: Dimension{"g": 1, "m": 2, "s": -2}, factor: dec("4184"), metric: true},
	"[Cal]": {dim: Dimension{"g": 1, "m": 2, "s": -2}, factor: dec("4184000")},

	// equivalents and osmoles behave like amounts of their own kind
	"eq":  {dim: Dimension{"eq": 1}, factor: one, metric: true},
	"osm": {dim: Dimension{"osm": 1}, factor: one, metric: true},
}

// prefixes maps metric prefix symbols to powers of ten.
var prefixes = map[string]int32{
	"Y": 24, "Z": 21, "E": 18, "P": 15, "T": 12, "G": 9, "M": 6,
	"k": 3, "h": 2, "da": 1,
	"d": -1, "c": -2, "m": -3, "u": -6, "n": -9, "p": -12,
	"f": -15, "a": -18, "z": -21, "y": -24,
}

// Parse parses a UCUM unit expression into a Unit.
// Supported syntax: components joined by '.' and '/', optional integer
// exponents (m2, s-1), powers of ten (10*9), curly-brace annotations
// (treated as unity), and metric prefixes on prefixable atoms.
func Parse(code string) (*Unit, error) {
	trimmed := strings.TrimSpace(code)
	u := &Unit{code: trimmed, factor: one, dim: Dimension{}}
	if trimmed == "" {
		return u, nil
	}

	sign := 1
	rest := trimmed
	for len(rest) > 0 {
		idx := strings.IndexAny(rest, "./")
		var comp string
		nextSign := sign
		if idx < 0 {
			comp = rest
			rest = ""
		} else {
			comp = rest[:idx]
			if rest[idx] == '/' {
				nextSign = -sign
			}
			rest = rest[idx+1:]
		}
		// A leading '/' means reciprocal of the first component.
		if comp == "" && idx >= 0 && trimmed[0] == '/' && u.dim.IsDimensionless() && u.factor.Equal(one) {
			sign = nextSign
			continue
		}
		if err := u.apply(comp, sign); err != nil {
			return nil, err
		}
		sign = nextSign
	}
	return u, nil
}

// MustParse is like Parse but panics on error.
func MustParse(code string) *Unit {
	u, err := Parse(code)
	if err != nil {
		panic(err)
	}
	return u
}

// apply folds one component (atom with optional exponent) into the unit.
func (u *Unit) apply(comp string, sign int) error {
	// Annotations are unity by definition.
	if i := strings.Index(comp, "{"); i >= 0 {
		if !strings.HasSuffix(comp, "}") {
			return fmt.Errorf("ucum: malformed annotation in %q", comp)
		}
		comp = comp[:i]
		if comp == "" {
			return nil
		}
	}

	// Powers of ten: 10*N.
	if strings.HasPrefix(comp, "10*") {
		n, err := strconv.Atoi(comp[3:])
		if err != nil {
			return fmt.Errorf("ucum: invalid power of ten %q", comp)
		}
		u.factor = u.factor.Mul(pow10(int32(n * sign)))
		return nil
	}

	name, exp := splitExponent(comp)
	if name == "" {
		return fmt.Errorf("ucum: empty unit component in %q", u.code)
	}
	exp *= sign

	a, prefixExp, err := resolveAtom(name)
	if err != nil {
		return err
	}

	f := a.factor.Mul(pow10(prefixExp))
	u.factor = u.factor.Mul(powDecimal(f, exp))
	for base, e := range a.dim {
		u.dim[base] += e * exp
		if u.dim[base] == 0 {
			delete(u.dim, base)
		}
	}
	return nil
}

// splitExponent splits a trailing signed integer exponent off a component.
func splitExponent(comp string) (string, int) {
	i := len(comp)
	for i > 0 && comp[i-1] >= '0' && comp[i-1] <= '9' {
		i--
	}
	if i == len(comp) {
		return comp, 1
	}
	// Bracketed atoms like [psi] never carry inline digits.
	if strings.HasSuffix(comp[:i], "]") || strings.Contains(comp[i:], "[") {
		return comp, 1
	}
	start := i
	if i > 0 && (comp[i-1] == '+' || comp[i-1] == '-') {
		start = i - 1
	}
	exp, err := strconv.Atoi(comp[start:])
	if err != nil {
		return comp, 1
	}
	return comp[:start], exp
}

// resolveAtom finds an atom by name, trying metric prefixes when the bare
// name is unknown.
func resolveAtom(name string) (atom, int32, error) {
	if a, ok := atoms[name]; ok {
		return a, 0, nil
	}
	for _, plen := range []int{2, 1} {
		if len(name) <= plen {
			continue
		}
		if exp, ok := prefixes[name[:plen]]; ok {
			if a, ok := atoms[name[plen:]]; ok && a.metric {
				return a, exp, nil
			}
		}
	}
	return atom{}, 0, fmt.Errorf("ucum: unknown unit %q", name)
}

// pow10 returns 10^n as an exact decimal.
func pow10(n int32) decimal.Decimal {
	return decimal.New(1, n)
}

// powDecimal raises an exact decimal to an integer power.
func powDecimal(d decimal.Decimal, n int) decimal.Decimal {
	if n == 0 {
		return one
	}
	neg := n < 0
	if neg {
		n = -n
	}
	result := one
	for i := 0; i < n; i++ {
		result = result.Mul(d)
	}
	if neg {
		return one.DivRound(result, 28)
	}
	return result
}

// Convert converts a value from one unit to another commensurable unit.
func Convert(value decimal.Decimal, from, to *Unit) (decimal.Decimal, error) {
	if !from.Compatible(to) {
		return decimal.Decimal{}, fmt.Errorf("ucum: incompatible units %q and %q", from.code, to.code)
	}
	if from.factor.Equal(to.factor) {
		return value, nil
	}
	return value.Mul(from.factor).DivRound(to.factor, 28), nil
}

// Mul combines two units multiplicatively. The result is expressed in
// canonical base units; ValueFactor scales operand values accordingly.
func Mul(a, b *Unit) *Unit {
	dim := a.dim.clone()
	for base, e := range b.dim {
		dim[base] += e
		if dim[base] == 0 {
			delete(dim, base)
		}
	}
	return &Unit{code: canonicalCode(dim), factor: one, dim: dim}
}

// Div combines two units by division. The result is expressed in canonical
// base units; ValueFactor scales operand values accordingly.
func Div(a, b *Unit) *Unit {
	dim := a.dim.clone()
	for base, e := range b.dim {
		dim[base] -= e
		if dim[base] == 0 {
			delete(dim, base)
		}
	}
	return &Unit{code: canonicalCode(dim), factor: one, dim: dim}
}

// ValueFactor returns the multiplier converting a value in this unit to the
// canonical base-unit representation.
func (u *Unit) ValueFactor() decimal.Decimal {
	return u.factor
}

// canonicalBaseOrder keeps canonical codes deterministic.
var canonicalBaseOrder = []string{"g", "m", "s", "mol", "K", "eq", "osm", "[IU]"}

// canonicalCode renders a dimension vector as a UCUM code over base units.
func canonicalCode(dim Dimension) string {
	if len(dim) == 0 {
		return "1"
	}
	ordered := make([]string, 0, len(dim))
	for _, base := range canonicalBaseOrder {
		if _, ok := dim[base]; ok {
			ordered = append(ordered, base)
		}
	}
	for base := range dim {
		known := false
		for _, b := range canonicalBaseOrder {
			if b == base {
				known = true
				break
			}
		}
		if !known {
			ordered = append(ordered, base)
		}
	}

	var num, den []string
	for _, base := range ordered {
		e := dim[base]
		switch {
		case e == 1:
			num = append(num, base)
		case e > 1:
			num = append(num, base+strconv.Itoa(e))
		case e == -1:
			den = append(den, base)
		case e < -1:
			den = append(den, base+strconv.Itoa(-e))
		}
	}

	code := strings.Join(num, ".")
	if code == "" {
		code = "1"
	}
	for _, d := range den {
		code += "/" + d
	}
	return code
}

// IsKnownUnit reports whether the code parses against the vocabulary.
func IsKnownUnit(code string) bool {
	_, err := Parse(code)
	return err == nil
}
