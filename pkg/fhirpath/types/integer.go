package types

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// Integer represents a FHIRPath integer value.
// Arithmetic is checked: operations report ok=false on int64 overflow and
// the evaluator propagates that as the empty collection.
type Integer struct {
	anno
	value int64
}

// NewInteger creates a new Integer value.
func NewInteger(v int64) Integer {
	return Integer{value: v}
}

// Value returns the underlying int64 value.
func (i Integer) Value() int64 {
	return i.value
}

// Type returns "Integer".
func (i Integer) Type() string {
	return "Integer"
}

// TypeInfo returns the qualified type of the value.
func (i Integer) TypeInfo() TypeInfo {
	if i.fhirType != "" {
		return TypeInfo{Namespace: FHIRNamespace, Name: i.fhirType}
	}
	return TypeInfo{Namespace: SystemNamespace, Name: "Integer"}
}

// Equal returns true if other is an Integer with the same value,
// or a Decimal with an equivalent numeric value.
func (i Integer) Equal(other Value) bool {
	switch o := other.(type) {
	case Integer:
		return i.value == o.value
	case Decimal:
		return i.ToDecimal().Equal(o)
	}
	return false
}

// Equivalent is the same as Equal for integers.
func (i Integer) Equivalent(other Value) bool {
	return i.Equal(other)
}

// String returns the decimal string representation.
func (i Integer) String() string {
	return fmt.Sprintf("%d", i.value)
}

// ToDecimal converts the integer to a Decimal.
func (i Integer) ToDecimal() Decimal {
	return Decimal{value: decimal.NewFromInt(i.value)}
}

// Compare compares two numeric values.
func (i Integer) Compare(other Value) (int, error) {
	switch o := other.(type) {
	case Integer:
		if i.value < o.value {
			return -1, nil
		}
		if i.value > o.value {
			return 1, nil
		}
		return 0, nil
	case Decimal:
		return i.ToDecimal().Compare(o)
	}
	return 0, fmt.Errorf("cannot compare Integer with %s", other.Type())
}

// Add returns the checked sum of two integers.
func (i Integer) Add(other Integer) (Integer, bool) {
	sum := i.value + other.value
	if (i.value > 0 && other.value > 0 && sum < 0) ||
		(i.value < 0 && other.value < 0 && sum >= 0) {
		return Integer{}, false
	}
	return NewInteger(sum), true
}

// Subtract returns the checked difference of two integers.
func (i Integer) Subtract(other Integer) (Integer, bool) {
	if other.value == math.MinInt64 {
		if i.value >= 0 {
			return Integer{}, false
		}
		return NewInteger(i.value - other.value), true
	}
	return i.Add(Integer{value: -other.value})
}

// Multiply returns the checked product of two integers.
func (i Integer) Multiply(other Integer) (Integer, bool) {
	if i.value == 0 || other.value == 0 {
		return NewInteger(0), true
	}
	prod := i.value * other.value
	if prod/other.value != i.value {
		return Integer{}, false
	}
	return NewInteger(prod), true
}

// Divide returns the result of division as a Decimal.
// ok is false for division by zero.
func (i Integer) Divide(other Integer) (Decimal, bool) {
	if other.value == 0 {
		return Decimal{}, false
	}
	return i.ToDecimal().Divide(other.ToDecimal())
}

// Div returns the integer division result, truncated toward zero.
// ok is false for division by zero.
func (i Integer) Div(other Integer) (Integer, bool) {
	if other.value == 0 {
		return Integer{}, false
	}
	return NewInteger(i.value / other.value), true
}

// Mod returns the modulo result. ok is false for division by zero.
func (i Integer) Mod(other Integer) (Integer, bool) {
	if other.value == 0 {
		return Integer{}, false
	}
	return NewInteger(i.value % other.value), true
}

// Negate returns the checked negation of the integer.
func (i Integer) Negate() (Integer, bool) {
	if i.value == math.MinInt64 {
		return Integer{}, false
	}
	return NewInteger(-i.value), true
}

// Abs returns the absolute value. ok is false when the value is MinInt64.
func (i Integer) Abs() (Integer, bool) {
	if i.value < 0 {
		return i.Negate()
	}
	return i, true
}

// Power returns the integer raised to the given power.
func (i Integer) Power(exp Integer) Decimal {
	return i.ToDecimal().Power(exp.ToDecimal())
}

// Sqrt returns the square root as a Decimal.
func (i Integer) Sqrt() (Decimal, error) {
	if i.value < 0 {
		return Decimal{}, fmt.Errorf("cannot take square root of negative number")
	}
	return NewDecimalFromFloat(math.Sqrt(float64(i.value))), nil
}
