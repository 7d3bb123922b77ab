package types

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Date represents a FHIRPath date value.
// Supports partial dates: year, year-month, year-month-day.
type Date struct {
	anno
	year      int
	month     int // 0 if not specified
	day       int // 0 if not specified
	precision DatePrecision
}

// DatePrecision indicates the precision of a date.
type DatePrecision int

const (
	YearPrecision DatePrecision = iota
	MonthPrecision
	DayPrecision
)

// Date regex patterns
var (
	dateYearPattern  = regexp.MustCompile(`^(\d{4})$`)
	dateMonthPattern = regexp.MustCompile(`^(\d{4})-(\d{2})$`)
	dateDayPattern   = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)
)

// NewDate creates a Date from a string.
func NewDate(s string) (Date, error) {
	if matches := dateDayPattern.FindStringSubmatch(s); matches != nil {
		year, _ := strconv.Atoi(matches[1])
		month, _ := strconv.Atoi(matches[2])
		day, _ := strconv.Atoi(matches[3])
		if month < 1 || month > 12 || day < 1 || day > daysInMonth(year, month) {
			return Date{}, fmt.Errorf("invalid date: %s", s)
		}
		return Date{year: year, month: month, day: day, precision: DayPrecision}, nil
	}

	if matches := dateMonthPattern.FindStringSubmatch(s); matches != nil {
		year, _ := strconv.Atoi(matches[1])
		month, _ := strconv.Atoi(matches[2])
		if month < 1 || month > 12 {
			return Date{}, fmt.Errorf("invalid date: %s", s)
		}
		return Date{year: year, month: month, precision: MonthPrecision}, nil
	}

	if matches := dateYearPattern.FindStringSubmatch(s); matches != nil {
		year, _ := strconv.Atoi(matches[1])
		return Date{year: year, precision: YearPrecision}, nil
	}

	return Date{}, fmt.Errorf("invalid date format: %s", s)
}

// NewDateFromTime creates a Date from a time.Time.
func NewDateFromTime(t time.Time) Date {
	return Date{
		year:      t.Year(),
		month:     int(t.Month()),
		day:       t.Day(),
		precision: DayPrecision,
	}
}

// Type returns the type name.
func (d Date) Type() string {
	return "Date"
}

// TypeInfo returns the qualified type of the value.
func (d Date) TypeInfo() TypeInfo {
	if d.fhirType != "" {
		return TypeInfo{Namespace: FHIRNamespace, Name: d.fhirType}
	}
	return TypeInfo{Namespace: SystemNamespace, Name: "Date"}
}

// Equal checks equality with another value. Dates at different precisions
// are never reported equal here; the indeterminate case is exposed by
// Equals via equalTri.
func (d Date) Equal(other Value) bool {
	eq, ok := false, false
	if o, isDate := other.(Date); isDate {
		eq, ok = d.equalTri(o)
	}
	return ok && eq
}

// equalTri compares two dates; ok is false when the comparison is
// indeterminate because the precisions differ without a deciding component.
func (d Date) equalTri(other Date) (eq bool, ok bool) {
	minPrec := d.precision
	if other.precision < minPrec {
		minPrec = other.precision
	}
	if d.year != other.year {
		return false, true
	}
	if minPrec >= MonthPrecision && d.month != other.month {
		return false, true
	}
	if minPrec >= DayPrecision && d.day != other.day {
		return false, true
	}
	if d.precision != other.precision {
		return false, false
	}
	return true, true
}

// Equivalent compares dates component by component; dates at different
// precisions are never equivalent.
func (d Date) Equivalent(other Value) bool {
	o, isDate := other.(Date)
	if !isDate {
		return false
	}
	minPrec := d.precision
	if o.precision < minPrec {
		minPrec = o.precision
	}
	if d.year != o.year {
		return false
	}
	if minPrec >= MonthPrecision && d.month != o.month {
		return false
	}
	if minPrec >= DayPrecision && d.day != o.day {
		return false
	}
	return d.precision == o.precision
}

// String returns the string representation.
func (d Date) String() string {
	switch d.precision {
	case YearPrecision:
		return fmt.Sprintf("%04d", d.year)
	case MonthPrecision:
		return fmt.Sprintf("%04d-%02d", d.year, d.month)
	default:
		return fmt.Sprintf("%04d-%02d-%02d", d.year, d.month, d.day)
	}
}

// Year returns the year component.
func (d Date) Year() int {
	return d.year
}

// Month returns the month component (0 if not specified).
func (d Date) Month() int {
	return d.month
}

// Day returns the day component (0 if not specified).
func (d Date) Day() int {
	return d.day
}

// Precision returns the date precision.
func (d Date) Precision() DatePrecision {
	return d.precision
}

// ToTime converts to time.Time (uses defaults for missing components).
func (d Date) ToTime() time.Time {
	month := d.month
	if month == 0 {
		month = 1
	}
	day := d.day
	if day == 0 {
		day = 1
	}
	return time.Date(d.year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

// ToDateTime lifts the date to a DateTime preserving its precision.
func (d Date) ToDateTime() DateTime {
	dt := DateTime{year: d.year, month: d.month, day: d.day}
	switch d.precision {
	case YearPrecision:
		dt.precision = DTYearPrecision
	case MonthPrecision:
		dt.precision = DTMonthPrecision
	default:
		dt.precision = DTDayPrecision
	}
	return dt
}

// StartOfDayUTC lifts the date to a full-precision DateTime at 00:00:00.000
// UTC, the form used for ordering against DateTime values.
func (d Date) StartOfDayUTC() DateTime {
	month := d.month
	if month == 0 {
		month = 1
	}
	day := d.day
	if day == 0 {
		day = 1
	}
	return DateTime{
		year: d.year, month: month, day: day,
		hasTZ:     true,
		precision: DTMillisPrecision,
	}
}

// Compare compares two dates. Returns -1, 0, or 1.
// Implements the Comparable interface.
// Returns an error if the precisions differ and no component decides.
func (d Date) Compare(other Value) (int, error) {
	otherDate, isDate := other.(Date)
	if !isDate {
		return 0, fmt.Errorf("cannot compare Date with %s", other.Type())
	}

	minPrec := d.precision
	if otherDate.precision < minPrec {
		minPrec = otherDate.precision
	}

	if d.year != otherDate.year {
		if d.year < otherDate.year {
			return -1, nil
		}
		return 1, nil
	}
	if minPrec >= MonthPrecision && d.month != otherDate.month {
		if d.month < otherDate.month {
			return -1, nil
		}
		return 1, nil
	}
	if minPrec >= DayPrecision && d.day != otherDate.day {
		if d.day < otherDate.day {
			return -1, nil
		}
		return 1, nil
	}

	if d.precision != otherDate.precision {
		return 0, fmt.Errorf("ambiguous comparison between dates with different precisions")
	}
	return 0, nil
}

// daysInMonth returns the number of days in the given month.
func daysInMonth(year, month int) int {
	// Day 0 of the next month is the last day of this month.
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// addMonthsClamped shifts a (year, month, day) triple by n months, clamping
// the day-of-month to the target month's length (Jan 31 + 1 month = Feb 28).
func addMonthsClamped(year, month, day, n int) (int, int, int) {
	total := year*12 + (month - 1) + n
	y := total / 12
	m := total % 12
	if m < 0 {
		m += 12
		y--
	}
	m++
	if day > 0 {
		if max := daysInMonth(y, m); day > max {
			day = max
		}
	}
	return y, m, day
}

// AddQuantity adds a time-valued quantity to the date. Years and months use
// calendar arithmetic with the day-of-month clamped; weeks and days become
// whole days with fractions truncated. ok is false for units finer than a
// day or otherwise unsupported on dates.
func (d Date) AddQuantity(value decimal.Decimal, unit CalendarUnit) (Date, bool) {
	month := d.month
	if month == 0 {
		month = 1
	}
	switch unit {
	case UnitYears:
		n := int(value.Truncate(0).IntPart())
		y, m, day := addMonthsClamped(d.year, month, d.day, n*12)
		return d.rebuild(y, m, day), true
	case UnitMonths:
		n := int(value.Truncate(0).IntPart())
		y, m, day := addMonthsClamped(d.year, month, d.day, n)
		return d.rebuild(y, m, day), true
	case UnitWeeks:
		days := value.Mul(decimal.NewFromInt(7)).Truncate(0).IntPart()
		t := d.ToTime().AddDate(0, 0, int(days))
		return d.rebuild(t.Year(), int(t.Month()), t.Day()), true
	case UnitDays:
		days := value.Truncate(0).IntPart()
		t := d.ToTime().AddDate(0, 0, int(days))
		return d.rebuild(t.Year(), int(t.Month()), t.Day()), true
	}
	return Date{}, false
}

// rebuild constructs a result date at the receiver's precision.
func (d Date) rebuild(year, month, day int) Date {
	result := Date{year: year, month: month, day: day, precision: d.precision}
	if d.precision < MonthPrecision {
		result.month = 0
	}
	if d.precision < DayPrecision {
		result.day = 0
	}
	return result
}
