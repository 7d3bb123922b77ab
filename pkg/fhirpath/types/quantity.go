package types

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/octofhir/fhirpath-go/pkg/ucum"
)

// Quantity represents a FHIRPath quantity value with a numeric value and
// an optional UCUM unit. The parsed unit is cached on first use.
type Quantity struct {
	anno
	value  decimal.Decimal
	unit   string
	parsed *ucum.Unit
}

// Quantity regex pattern: number followed by optional unit
var quantityPattern = regexp.MustCompile(`^([+-]?\d+\.?\d*)\s*(?:'([^']+)'|(\S+))?$`)

// NewQuantity creates a Quantity from a string such as "4 'g'" or "1 day".
func NewQuantity(s string) (Quantity, error) {
	matches := quantityPattern.FindStringSubmatch(strings.TrimSpace(s))
	if matches == nil {
		return Quantity{}, fmt.Errorf("invalid quantity format: %s", s)
	}

	val, err := decimal.NewFromString(matches[1])
	if err != nil {
		return Quantity{}, fmt.Errorf("invalid quantity value: %s", matches[1])
	}

	unit := ""
	if matches[2] != "" {
		unit = matches[2] // quoted UCUM unit
	} else if matches[3] != "" {
		unit = matches[3] // calendar word
	}

	return Quantity{value: val, unit: unit}, nil
}

// calendarWords are rendered without quotes, matching the literal syntax.
var calendarWords = map[string]bool{
	"year": true, "years": true, "month": true, "months": true,
	"week": true, "weeks": true, "day": true, "days": true,
	"hour": true, "hours": true, "minute": true, "minutes": true,
	"second": true, "seconds": true, "millisecond": true, "milliseconds": true,
}

// NewQuantityFromDecimal creates a Quantity from a decimal value and unit.
func NewQuantityFromDecimal(value decimal.Decimal, unit string) Quantity {
	return Quantity{value: value, unit: unit}
}

// Type returns the type name.
func (q Quantity) Type() string {
	return "Quantity"
}

// TypeInfo returns the qualified type of the value.
func (q Quantity) TypeInfo() TypeInfo {
	if q.fhirType != "" {
		return TypeInfo{Namespace: FHIRNamespace, Name: q.fhirType}
	}
	return TypeInfo{Namespace: SystemNamespace, Name: "Quantity"}
}

// Value returns the numeric value.
func (q Quantity) Value() decimal.Decimal {
	return q.value
}

// Unit returns the unit string.
func (q Quantity) Unit() string {
	return q.unit
}

// ucumUnit parses and caches the UCUM form of the unit. Calendar words are
// mapped to their UCUM time codes first.
func (q *Quantity) ucumUnit() (*ucum.Unit, error) {
	if q.parsed != nil {
		return q.parsed, nil
	}
	code := q.unit
	if cal, ok := ParseCalendarUnit(code); ok {
		code = ucumTimeCode(cal)
	}
	u, err := ucum.Parse(code)
	if err != nil {
		return nil, err
	}
	q.parsed = u
	return u, nil
}

// ucumTimeCode maps a calendar unit to its UCUM code.
func ucumTimeCode(u CalendarUnit) string {
	switch u {
	case UnitYears:
		return "a"
	case UnitMonths:
		return "mo"
	case UnitWeeks:
		return "wk"
	case UnitDays:
		return "d"
	case UnitHours:
		return "h"
	case UnitMinutes:
		return "min"
	case UnitSeconds:
		return "s"
	default:
		return "ms"
	}
}

// Equal checks equality with another value. Quantities with different
// units are equal only when the units are commensurable and the values
// coincide after conversion to a common unit.
func (q Quantity) Equal(other Value) bool {
	o, isQ := other.(Quantity)
	if !isQ {
		return false
	}

	if q.unit == o.unit {
		return q.value.Equal(o.value)
	}
	if q.unit == "" || o.unit == "" {
		return q.value.Equal(o.value)
	}

	converted, err := o.ConvertTo(q.unit)
	if err != nil {
		return false
	}
	return q.value.Equal(converted.value)
}

// Equivalent checks equivalence: the other quantity is converted to this
// quantity's unit and both values are compared after rounding to two
// fractional digits.
func (q Quantity) Equivalent(other Value) bool {
	o, isQ := other.(Quantity)
	if !isQ {
		return false
	}

	if q.unit == o.unit || q.unit == "" || o.unit == "" {
		return q.value.Round(2).Equal(o.value.Round(2))
	}

	converted, err := o.ConvertTo(q.unit)
	if err != nil {
		return false
	}
	return q.value.Round(2).Equal(converted.value.Round(2))
}

// String returns the string representation.
func (q Quantity) String() string {
	if q.unit == "" {
		return q.value.String()
	}
	if calendarWords[q.unit] {
		return fmt.Sprintf("%s %s", q.value.String(), q.unit)
	}
	return fmt.Sprintf("%s '%s'", q.value.String(), q.unit)
}

// Compare compares two quantities after unit conversion.
// Returns an error if the units are not commensurable.
// Implements the Comparable interface.
func (q Quantity) Compare(other Value) (int, error) {
	otherQ, isQ := other.(Quantity)
	if !isQ {
		return 0, fmt.Errorf("cannot compare Quantity with %s", other.Type())
	}

	if q.unit == otherQ.unit || q.unit == "" || otherQ.unit == "" {
		return q.value.Cmp(otherQ.value), nil
	}

	converted, err := otherQ.ConvertTo(q.unit)
	if err != nil {
		return 0, fmt.Errorf("incompatible units: %s and %s", q.unit, otherQ.unit)
	}
	return q.value.Cmp(converted.value), nil
}

// ConvertTo converts the quantity to the given unit.
func (q Quantity) ConvertTo(unit string) (Quantity, error) {
	if q.unit == unit {
		return q, nil
	}
	from, err := q.ucumUnit()
	if err != nil {
		return Quantity{}, err
	}
	target := Quantity{unit: unit}
	to, err := target.ucumUnit()
	if err != nil {
		return Quantity{}, err
	}
	v, err := ucum.Convert(q.value, from, to)
	if err != nil {
		return Quantity{}, fmt.Errorf("incompatible units: %s and %s", q.unit, unit)
	}
	return Quantity{value: v, unit: unit}, nil
}

// Add adds two quantities. The right operand is converted to the left
// operand's unit; incompatible units are an error.
func (q Quantity) Add(other Quantity) (Quantity, error) {
	if q.unit == other.unit || q.unit == "" || other.unit == "" {
		unit := q.unit
		if unit == "" {
			unit = other.unit
		}
		return Quantity{value: q.value.Add(other.value), unit: unit}, nil
	}
	converted, err := other.ConvertTo(q.unit)
	if err != nil {
		return Quantity{}, err
	}
	return Quantity{value: q.value.Add(converted.value), unit: q.unit}, nil
}

// Subtract subtracts two quantities with the same conversion rule as Add.
func (q Quantity) Subtract(other Quantity) (Quantity, error) {
	neg := Quantity{value: other.value.Neg(), unit: other.unit}
	return q.Add(neg)
}

// Multiply multiplies two quantities, combining units via UCUM algebra.
// A unitless operand preserves the other operand's unit.
func (q Quantity) Multiply(other Quantity) (Quantity, error) {
	if other.unit == "" {
		return Quantity{value: q.value.Mul(other.value), unit: q.unit}, nil
	}
	if q.unit == "" {
		return Quantity{value: q.value.Mul(other.value), unit: other.unit}, nil
	}
	lu, err := q.ucumUnit()
	if err != nil {
		return Quantity{}, err
	}
	ru, err := other.ucumUnit()
	if err != nil {
		return Quantity{}, err
	}
	combined := ucum.Mul(lu, ru)
	value := q.value.Mul(lu.ValueFactor()).Mul(other.value).Mul(ru.ValueFactor())
	return Quantity{value: value, unit: combined.Code()}, nil
}

// Divide divides two quantities, combining units via UCUM algebra.
// ok is false for division by zero.
func (q Quantity) Divide(other Quantity) (Quantity, bool, error) {
	if other.value.IsZero() {
		return Quantity{}, false, nil
	}
	if other.unit == "" {
		return Quantity{value: q.value.DivRound(other.value, 28), unit: q.unit}, true, nil
	}
	lu, err := q.ucumUnit()
	if err != nil {
		return Quantity{}, true, err
	}
	ru, err := other.ucumUnit()
	if err != nil {
		return Quantity{}, true, err
	}
	if lu.Compatible(ru) {
		// Same dimension cancels to a plain ratio.
		value := q.value.Mul(lu.ValueFactor()).DivRound(other.value.Mul(ru.ValueFactor()), 28)
		return Quantity{value: value, unit: ""}, true, nil
	}
	combined := ucum.Div(lu, ru)
	value := q.value.Mul(lu.ValueFactor()).DivRound(other.value.Mul(ru.ValueFactor()), 28)
	return Quantity{value: value, unit: combined.Code()}, true, nil
}

// Negate returns the quantity with its value negated.
func (q Quantity) Negate() Quantity {
	return Quantity{value: q.value.Neg(), unit: q.unit}
}

// CalendarUnitOf resolves the quantity's unit to a calendar unit for
// temporal arithmetic. ok is false for non-time units.
func (q Quantity) CalendarUnitOf() (CalendarUnit, bool) {
	return ParseCalendarUnit(q.unit)
}
