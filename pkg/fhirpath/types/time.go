package types

import (
	"fmt"
	"regexp"
	"strconv"
	gotime "time"

	"github.com/shopspring/decimal"
)

// Time represents a FHIRPath time value.
type Time struct {
	anno
	hour      int
	minute    int
	second    int
	millis    int
	precision TimePrecision
}

// TimePrecision indicates the precision of a time.
type TimePrecision int

const (
	HourPrecision TimePrecision = iota
	MinutePrecision
	SecondPrecision
	MillisPrecision
)

// Time regex pattern
var timePattern = regexp.MustCompile(
	`^T?(\d{2})(?::(\d{2})(?::(\d{2})(?:\.(\d+))?)?)?$`,
)

// NewTime creates a Time from a string.
func NewTime(s string) (Time, error) {
	matches := timePattern.FindStringSubmatch(s)
	if matches == nil {
		return Time{}, fmt.Errorf("invalid time format: %s", s)
	}

	t := Time{}
	precision := HourPrecision

	hour, err := strconv.Atoi(matches[1])
	if err != nil || hour > 23 {
		return Time{}, fmt.Errorf("invalid hour in time: %s", s)
	}
	t.hour = hour

	if matches[2] != "" {
		t.minute, _ = strconv.Atoi(matches[2])
		if t.minute > 59 {
			return Time{}, fmt.Errorf("invalid minute in time: %s", s)
		}
		precision = MinutePrecision
	}
	if matches[3] != "" {
		t.second, _ = strconv.Atoi(matches[3])
		if t.second > 60 {
			return Time{}, fmt.Errorf("invalid second in time: %s", s)
		}
		precision = SecondPrecision
	}
	if matches[4] != "" {
		ms := matches[4]
		for len(ms) < 3 {
			ms += "0"
		}
		if len(ms) > 3 {
			ms = ms[:3]
		}
		t.millis, _ = strconv.Atoi(ms)
		precision = MillisPrecision
	}

	t.precision = precision
	return t, nil
}

// NewTimeFromGoTime creates a Time from time.Time.
func NewTimeFromGoTime(t gotime.Time) Time {
	return Time{
		hour:      t.Hour(),
		minute:    t.Minute(),
		second:    t.Second(),
		millis:    t.Nanosecond() / 1000000,
		precision: MillisPrecision,
	}
}

// Type returns the type name.
func (t Time) Type() string {
	return "Time"
}

// TypeInfo returns the qualified type of the value.
func (t Time) TypeInfo() TypeInfo {
	if t.fhirType != "" {
		return TypeInfo{Namespace: FHIRNamespace, Name: t.fhirType}
	}
	return TypeInfo{Namespace: SystemNamespace, Name: "Time"}
}

// Equal checks equality with another value. Times at different precisions
// are never reported equal here; the indeterminate case is exposed by
// Equals via equalTri.
func (t Time) Equal(other Value) bool {
	eq, ok := false, false
	if o, isTime := other.(Time); isTime {
		eq, ok = t.equalTri(o)
	}
	return ok && eq
}

// equalTri compares two times; ok is false when the comparison is
// indeterminate because the precisions differ without a deciding component.
func (t Time) equalTri(other Time) (eq bool, ok bool) {
	minPrec := t.precision
	if other.precision < minPrec {
		minPrec = other.precision
	}
	if t.hour != other.hour {
		return false, true
	}
	if minPrec >= MinutePrecision && t.minute != other.minute {
		return false, true
	}
	if minPrec >= SecondPrecision && t.second != other.second {
		return false, true
	}
	if minPrec >= MillisPrecision && t.millis != other.millis {
		return false, true
	}
	if t.precision != other.precision {
		return false, false
	}
	return true, true
}

// Equivalent compares times component by component; times at different
// precisions are never equivalent.
func (t Time) Equivalent(other Value) bool {
	o, isTime := other.(Time)
	if !isTime {
		return false
	}
	eq, ok := t.equalTri(o)
	return ok && eq
}

// String returns the string representation.
func (t Time) String() string {
	result := fmt.Sprintf("%02d", t.hour)

	if t.precision >= MinutePrecision {
		result += fmt.Sprintf(":%02d", t.minute)
	}
	if t.precision >= SecondPrecision {
		result += fmt.Sprintf(":%02d", t.second)
	}
	if t.precision >= MillisPrecision {
		result += fmt.Sprintf(".%03d", t.millis)
	}

	return result
}

// Accessors
func (t Time) Hour() int                { return t.hour }
func (t Time) Minute() int              { return t.minute }
func (t Time) Second() int              { return t.second }
func (t Time) Millisecond() int         { return t.millis }
func (t Time) Precision() TimePrecision { return t.precision }

// AddQuantity adds a time-valued quantity to the time, wrapping modulo 24
// hours. ok is false for units coarser than an hour.
func (t Time) AddQuantity(value decimal.Decimal, unit CalendarUnit) (Time, bool) {
	var factor decimal.Decimal
	switch unit {
	case UnitHours:
		factor = decimal.NewFromInt(3600000)
	case UnitMinutes:
		factor = decimal.NewFromInt(60000)
	case UnitSeconds:
		factor = decimal.NewFromInt(1000)
	case UnitMilliseconds:
		factor = decimal.NewFromInt(1)
	default:
		return Time{}, false
	}

	const dayMillis = 24 * 3600 * 1000
	total := int64(t.hour)*3600000 + int64(t.minute)*60000 + int64(t.second)*1000 + int64(t.millis)
	total += value.Mul(factor).Truncate(0).IntPart()
	total %= dayMillis
	if total < 0 {
		total += dayMillis
	}

	result := Time{
		hour:      int(total / 3600000),
		minute:    int(total / 60000 % 60),
		second:    int(total / 1000 % 60),
		millis:    int(total % 1000),
		precision: t.precision,
	}
	if t.precision < MinutePrecision {
		result.minute = 0
	}
	if t.precision < SecondPrecision {
		result.second = 0
	}
	if t.precision < MillisPrecision {
		result.millis = 0
	}
	return result, true
}

// Compare compares two times. Returns -1, 0, or 1.
// Implements the Comparable interface.
// Returns an error if the precisions differ and no component decides.
func (t Time) Compare(other Value) (int, error) {
	otherTime, isTime := other.(Time)
	if !isTime {
		return 0, fmt.Errorf("cannot compare Time with %s", other.Type())
	}

	minPrec := t.precision
	if otherTime.precision < minPrec {
		minPrec = otherTime.precision
	}

	if t.hour != otherTime.hour {
		if t.hour < otherTime.hour {
			return -1, nil
		}
		return 1, nil
	}
	if minPrec >= MinutePrecision && t.minute != otherTime.minute {
		if t.minute < otherTime.minute {
			return -1, nil
		}
		return 1, nil
	}
	if minPrec >= SecondPrecision && t.second != otherTime.second {
		if t.second < otherTime.second {
			return -1, nil
		}
		return 1, nil
	}
	if minPrec >= MillisPrecision && t.millis != otherTime.millis {
		if t.millis < otherTime.millis {
			return -1, nil
		}
		return 1, nil
	}

	if t.precision != otherTime.precision {
		return 0, fmt.Errorf("ambiguous comparison between times with different precisions")
	}
	return 0, nil
}
