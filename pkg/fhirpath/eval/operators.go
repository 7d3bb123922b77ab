package eval

import (
	"github.com/octofhir/fhirpath-go/pkg/fhirpath/types"
)

// Arithmetic operators. Spec-permitted "no result" cases (integer
// overflow, division by zero, non-time units in temporal arithmetic)
// propagate as the empty collection; genuine type mismatches are errors.

// Add performs addition on two singleton values.
func Add(left, right types.Value) (types.Collection, error) {
	switch l := left.(type) {
	case types.Integer:
		switch r := right.(type) {
		case types.Integer:
			sum, ok := l.Add(r)
			if !ok {
				return types.EmptyCollection, nil
			}
			return types.Collection{sum}, nil
		case types.Decimal:
			return types.Collection{l.ToDecimal().Add(r)}, nil
		}
	case types.Decimal:
		switch r := right.(type) {
		case types.Integer:
			return types.Collection{l.Add(r.ToDecimal())}, nil
		case types.Decimal:
			return types.Collection{l.Add(r)}, nil
		}
	case types.String:
		if r, ok := right.(types.String); ok {
			return types.Collection{types.NewString(l.Value() + r.Value())}, nil
		}
	case types.Date:
		if q, ok := right.(types.Quantity); ok {
			return addDateQuantity(l, q, false), nil
		}
	case types.DateTime:
		if q, ok := right.(types.Quantity); ok {
			return addDateTimeQuantity(l, q, false), nil
		}
	case types.Time:
		if q, ok := right.(types.Quantity); ok {
			return addTimeQuantity(l, q, false), nil
		}
	case types.Quantity:
		if r, ok := right.(types.Quantity); ok {
			sum, err := l.Add(r)
			if err != nil {
				return nil, IncompatibleUnitsError(l.Unit(), r.Unit())
			}
			return types.Collection{sum}, nil
		}
	}
	return nil, InvalidOperationError("+", left.Type(), right.Type())
}

// Subtract performs subtraction on two singleton values.
func Subtract(left, right types.Value) (types.Collection, error) {
	switch l := left.(type) {
	case types.Integer:
		switch r := right.(type) {
		case types.Integer:
			diff, ok := l.Subtract(r)
			if !ok {
				return types.EmptyCollection, nil
			}
			return types.Collection{diff}, nil
		case types.Decimal:
			return types.Collection{l.ToDecimal().Subtract(r)}, nil
		}
	case types.Decimal:
		switch r := right.(type) {
		case types.Integer:
			return types.Collection{l.Subtract(r.ToDecimal())}, nil
		case types.Decimal:
			return types.Collection{l.Subtract(r)}, nil
		}
	case types.Date:
		if q, ok := right.(types.Quantity); ok {
			return addDateQuantity(l, q, true), nil
		}
	case types.DateTime:
		if q, ok := right.(types.Quantity); ok {
			return addDateTimeQuantity(l, q, true), nil
		}
	case types.Time:
		if q, ok := right.(types.Quantity); ok {
			return addTimeQuantity(l, q, true), nil
		}
	case types.Quantity:
		if r, ok := right.(types.Quantity); ok {
			diff, err := l.Subtract(r)
			if err != nil {
				return nil, IncompatibleUnitsError(l.Unit(), r.Unit())
			}
			return types.Collection{diff}, nil
		}
	}
	return nil, InvalidOperationError("-", left.Type(), right.Type())
}

func addDateQuantity(d types.Date, q types.Quantity, negate bool) types.Collection {
	unit, ok := q.CalendarUnitOf()
	if !ok {
		return types.EmptyCollection
	}
	value := q.Value()
	if negate {
		value = value.Neg()
	}
	result, ok := d.AddQuantity(value, unit)
	if !ok {
		return types.EmptyCollection
	}
	return types.Collection{result}
}

func addDateTimeQuantity(dt types.DateTime, q types.Quantity, negate bool) types.Collection {
	unit, ok := q.CalendarUnitOf()
	if !ok {
		return types.EmptyCollection
	}
	value := q.Value()
	if negate {
		value = value.Neg()
	}
	result, ok := dt.AddQuantity(value, unit)
	if !ok {
		return types.EmptyCollection
	}
	return types.Collection{result}
}

func addTimeQuantity(t types.Time, q types.Quantity, negate bool) types.Collection {
	unit, ok := q.CalendarUnitOf()
	if !ok {
		return types.EmptyCollection
	}
	value := q.Value()
	if negate {
		value = value.Neg()
	}
	result, ok := t.AddQuantity(value, unit)
	if !ok {
		return types.EmptyCollection
	}
	return types.Collection{result}
}

// Multiply performs multiplication on two singleton values.
func Multiply(left, right types.Value) (types.Collection, error) {
	switch l := left.(type) {
	case types.Integer:
		switch r := right.(type) {
		case types.Integer:
			prod, ok := l.Multiply(r)
			if !ok {
				return types.EmptyCollection, nil
			}
			return types.Collection{prod}, nil
		case types.Decimal:
			return types.Collection{l.ToDecimal().Multiply(r)}, nil
		case types.Quantity:
			return types.Collection{types.NewQuantityFromDecimal(r.Value().Mul(l.ToDecimal().Value()), r.Unit())}, nil
		}
	case types.Decimal:
		switch r := right.(type) {
		case types.Integer:
			return types.Collection{l.Multiply(r.ToDecimal())}, nil
		case types.Decimal:
			return types.Collection{l.Multiply(r)}, nil
		case types.Quantity:
			return types.Collection{types.NewQuantityFromDecimal(r.Value().Mul(l.Value()), r.Unit())}, nil
		}
	case types.Quantity:
		switch r := right.(type) {
		case types.Integer:
			return types.Collection{types.NewQuantityFromDecimal(l.Value().Mul(r.ToDecimal().Value()), l.Unit())}, nil
		case types.Decimal:
			return types.Collection{types.NewQuantityFromDecimal(l.Value().Mul(r.Value()), l.Unit())}, nil
		case types.Quantity:
			prod, err := l.Multiply(r)
			if err != nil {
				return nil, IncompatibleUnitsError(l.Unit(), r.Unit())
			}
			return types.Collection{prod}, nil
		}
	}
	return nil, InvalidOperationError("*", left.Type(), right.Type())
}

// Divide performs division on two singleton values. The numeric result is
// always Decimal; division by zero yields the empty collection.
func Divide(left, right types.Value) (types.Collection, error) {
	if lq, isQ := left.(types.Quantity); isQ {
		switch r := right.(type) {
		case types.Integer:
			q, ok, err := lq.Divide(types.NewQuantityFromDecimal(r.ToDecimal().Value(), ""))
			return divisionResult(q, ok, err)
		case types.Decimal:
			q, ok, err := lq.Divide(types.NewQuantityFromDecimal(r.Value(), ""))
			return divisionResult(q, ok, err)
		case types.Quantity:
			q, ok, err := lq.Divide(r)
			return divisionResult(q, ok, err)
		}
		return nil, InvalidOperationError("/", left.Type(), right.Type())
	}

	lNum, lOk := left.(types.Numeric)
	rNum, rOk := right.(types.Numeric)
	if !lOk || !rOk {
		return nil, InvalidOperationError("/", left.Type(), right.Type())
	}
	result, ok := lNum.ToDecimal().Divide(rNum.ToDecimal())
	if !ok {
		return types.EmptyCollection, nil
	}
	return types.Collection{result}, nil
}

func divisionResult(q types.Quantity, ok bool, err error) (types.Collection, error) {
	if err != nil {
		return nil, NewError(ErrIncompatibleUnits, "%s", err.Error())
	}
	if !ok {
		return types.EmptyCollection, nil
	}
	if q.Unit() == "" {
		return types.Collection{types.NewDecimalFromDecimal(q.Value())}, nil
	}
	return types.Collection{q}, nil
}

// IntegerDivide performs the div operator: truncated integer division.
func IntegerDivide(left, right types.Value) (types.Collection, error) {
	if l, isInt := left.(types.Integer); isInt {
		if r, isInt := right.(types.Integer); isInt {
			result, ok := l.Div(r)
			if !ok {
				return types.EmptyCollection, nil
			}
			return types.Collection{result}, nil
		}
	}
	lNum, lOk := left.(types.Numeric)
	rNum, rOk := right.(types.Numeric)
	if !lOk || !rOk {
		return nil, InvalidOperationError("div", left.Type(), right.Type())
	}
	quot, ok := lNum.ToDecimal().Divide(rNum.ToDecimal())
	if !ok {
		return types.EmptyCollection, nil
	}
	return types.Collection{quot.Truncate()}, nil
}

// Modulo performs the mod operator, matching div's truncation.
func Modulo(left, right types.Value) (types.Collection, error) {
	if l, isInt := left.(types.Integer); isInt {
		if r, isInt := right.(types.Integer); isInt {
			result, ok := l.Mod(r)
			if !ok {
				return types.EmptyCollection, nil
			}
			return types.Collection{result}, nil
		}
	}
	lNum, lOk := left.(types.Numeric)
	rNum, rOk := right.(types.Numeric)
	if !lOk || !rOk {
		return nil, InvalidOperationError("mod", left.Type(), right.Type())
	}
	ld, rd := lNum.ToDecimal(), rNum.ToDecimal()
	quot, ok := ld.Divide(rd)
	if !ok {
		return types.EmptyCollection, nil
	}
	remainder := ld.Subtract(quot.Truncate().ToDecimal().Multiply(rd))
	return types.Collection{remainder}, nil
}

// Negate negates a singleton numeric or quantity value.
func Negate(value types.Value) (types.Collection, error) {
	switch v := value.(type) {
	case types.Integer:
		result, ok := v.Negate()
		if !ok {
			return types.EmptyCollection, nil
		}
		return types.Collection{result}, nil
	case types.Decimal:
		return types.Collection{v.Negate()}, nil
	case types.Quantity:
		return types.Collection{v.Negate()}, nil
	}
	return nil, NewError(ErrType, "cannot negate %s", value.Type())
}

// Positive applies unary plus: identity on numerics and quantities.
func Positive(value types.Value) (types.Collection, error) {
	switch value.(type) {
	case types.Integer, types.Decimal, types.Quantity:
		return types.Collection{value}, nil
	}
	return nil, NewError(ErrType, "cannot apply unary '+' to %s", value.Type())
}

// Comparison operators.

// compareValues orders two singleton values. ok is false when the operands
// are incomparable or the ordering is ambiguous; both surface as the empty
// collection.
func compareValues(left, right types.Value) (int, bool) {
	// FHIR Quantity objects coerce for comparison against quantities.
	if obj, isObj := left.(*types.ObjectValue); isObj {
		if _, rq := right.(types.Quantity); rq {
			if q, ok := obj.ToQuantity(); ok {
				left = q
			}
		}
	}
	if obj, isObj := right.(*types.ObjectValue); isObj {
		if _, lq := left.(types.Quantity); lq {
			if q, ok := obj.ToQuantity(); ok {
				right = q
			}
		}
	}

	// Date is lifted to start-of-day UTC against DateTime.
	if d, isDate := left.(types.Date); isDate {
		if _, isDT := right.(types.DateTime); isDT {
			left = d.StartOfDayUTC()
		}
	}
	if d, isDate := right.(types.Date); isDate {
		if _, isDT := left.(types.DateTime); isDT {
			right = d.StartOfDayUTC()
		}
	}

	comp, isComp := left.(types.Comparable)
	if !isComp {
		return 0, false
	}
	cmp, err := comp.Compare(right)
	if err != nil {
		return 0, false
	}
	return cmp, true
}

// LessThan evaluates left < right.
func LessThan(left, right types.Value) types.Collection {
	cmp, ok := compareValues(left, right)
	if !ok {
		return types.EmptyCollection
	}
	return types.BoolCollection(cmp < 0)
}

// LessOrEqual evaluates left <= right.
func LessOrEqual(left, right types.Value) types.Collection {
	cmp, ok := compareValues(left, right)
	if !ok {
		return types.EmptyCollection
	}
	return types.BoolCollection(cmp <= 0)
}

// GreaterThan evaluates left > right.
func GreaterThan(left, right types.Value) types.Collection {
	cmp, ok := compareValues(left, right)
	if !ok {
		return types.EmptyCollection
	}
	return types.BoolCollection(cmp > 0)
}

// GreaterOrEqual evaluates left >= right.
func GreaterOrEqual(left, right types.Value) types.Collection {
	cmp, ok := compareValues(left, right)
	if !ok {
		return types.EmptyCollection
	}
	return types.BoolCollection(cmp >= 0)
}

// Equality operators.

// Equal evaluates left = right. One-sided empty propagates as empty;
// collections compare element-wise in order; temporal values at different
// precisions are indeterminate and also propagate as empty.
func Equal(left, right types.Collection) types.Collection {
	if left.Empty() || right.Empty() {
		return types.EmptyCollection
	}
	if len(left) != len(right) {
		return types.FalseCollection
	}
	for i := range left {
		eq, ok := types.Equals(left[i], right[i])
		if !ok {
			return types.EmptyCollection
		}
		if !eq {
			return types.FalseCollection
		}
	}
	return types.TrueCollection
}

// NotEqual evaluates left != right, passing empty through.
func NotEqual(left, right types.Collection) types.Collection {
	result := Equal(left, right)
	if result.Empty() {
		return result
	}
	return types.BoolCollection(!result[0].(types.Boolean).Bool())
}

// Equivalent evaluates left ~ right: both-empty is true, one-sided empty
// is false, collections compare as multisets by element equivalence.
func Equivalent(left, right types.Collection) types.Collection {
	if left.Empty() && right.Empty() {
		return types.TrueCollection
	}
	if left.Empty() || right.Empty() {
		return types.FalseCollection
	}
	return types.BoolCollection(left.EquivalentTo(right))
}

// NotEquivalent evaluates left !~ right.
func NotEquivalent(left, right types.Collection) types.Collection {
	result := Equivalent(left, right)
	return types.BoolCollection(!result[0].(types.Boolean).Bool())
}

// Logical operators: three-valued truth tables. Non-boolean singleton
// operands are type errors, multi-element operands are MultiItem errors.

// singletonBool coerces a logic operand. empty=true means the operand is
// the unknown value.
func singletonBool(col types.Collection, op string) (value bool, empty bool, err error) {
	if col.Empty() {
		return false, true, nil
	}
	if len(col) > 1 {
		return false, false, MultiItemError(len(col))
	}
	b, isBool := col[0].(types.Boolean)
	if !isBool {
		return false, false, TypeErrorf("Boolean", col[0].Type(), op)
	}
	return b.Bool(), false, nil
}

// And evaluates left and right.
func And(left, right types.Collection) (types.Collection, error) {
	l, lEmpty, err := singletonBool(left, "and")
	if err != nil {
		return nil, err
	}
	r, rEmpty, err := singletonBool(right, "and")
	if err != nil {
		return nil, err
	}

	if !lEmpty && !l {
		return types.FalseCollection, nil
	}
	if !rEmpty && !r {
		return types.FalseCollection, nil
	}
	if lEmpty || rEmpty {
		return types.EmptyCollection, nil
	}
	return types.TrueCollection, nil
}

// Or evaluates left or right.
func Or(left, right types.Collection) (types.Collection, error) {
	l, lEmpty, err := singletonBool(left, "or")
	if err != nil {
		return nil, err
	}
	r, rEmpty, err := singletonBool(right, "or")
	if err != nil {
		return nil, err
	}

	if !lEmpty && l {
		return types.TrueCollection, nil
	}
	if !rEmpty && r {
		return types.TrueCollection, nil
	}
	if lEmpty || rEmpty {
		return types.EmptyCollection, nil
	}
	return types.FalseCollection, nil
}

// Xor evaluates left xor right.
func Xor(left, right types.Collection) (types.Collection, error) {
	l, lEmpty, err := singletonBool(left, "xor")
	if err != nil {
		return nil, err
	}
	r, rEmpty, err := singletonBool(right, "xor")
	if err != nil {
		return nil, err
	}
	if lEmpty || rEmpty {
		return types.EmptyCollection, nil
	}
	return types.BoolCollection(l != r), nil
}

// Implies evaluates left implies right.
func Implies(left, right types.Collection) (types.Collection, error) {
	l, lEmpty, err := singletonBool(left, "implies")
	if err != nil {
		return nil, err
	}
	r, rEmpty, err := singletonBool(right, "implies")
	if err != nil {
		return nil, err
	}

	if !lEmpty && !l {
		return types.TrueCollection, nil
	}
	if !rEmpty && r {
		return types.TrueCollection, nil
	}
	if lEmpty || rEmpty {
		return types.EmptyCollection, nil
	}
	return types.FalseCollection, nil
}

// Not evaluates logical negation with three-valued logic.
func Not(value types.Collection) (types.Collection, error) {
	v, empty, err := singletonBool(value, "not")
	if err != nil {
		return nil, err
	}
	if empty {
		return types.EmptyCollection, nil
	}
	return types.BoolCollection(!v), nil
}

// String operators.

// Concatenate evaluates the & operator: both sides are totalised to their
// string form, with empty becoming the empty string.
func Concatenate(left, right types.Collection) (types.Collection, error) {
	lStr, err := concatOperand(left)
	if err != nil {
		return nil, err
	}
	rStr, err := concatOperand(right)
	if err != nil {
		return nil, err
	}
	return types.Collection{types.NewString(lStr + rStr)}, nil
}

func concatOperand(col types.Collection) (string, error) {
	if col.Empty() {
		return "", nil
	}
	if len(col) > 1 {
		return "", MultiItemError(len(col))
	}
	return col[0].String(), nil
}

// Collection operators.

// Union merges two collections, deduplicating by equivalence and
// preserving the order of first appearance.
func Union(left, right types.Collection) types.Collection {
	return left.Union(right)
}

// In evaluates left in right: empty left propagates as empty, empty right
// is false, a multi-element left is indeterminate.
func In(left, right types.Collection) types.Collection {
	if left.Empty() {
		return types.EmptyCollection
	}
	if len(left) > 1 {
		return types.EmptyCollection
	}
	if right.Empty() {
		return types.FalseCollection
	}
	return types.BoolCollection(right.Contains(left[0]))
}

// Contains evaluates left contains right, mirroring In with sides swapped.
func Contains(left, right types.Collection) types.Collection {
	return In(right, left)
}
