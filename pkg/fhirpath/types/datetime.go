package types

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// DateTime represents a FHIRPath datetime value.
type DateTime struct {
	anno
	year      int
	month     int
	day       int
	hour      int
	minute    int
	second    int
	millis    int
	tzOffset  int  // timezone offset in minutes
	hasTZ     bool // whether timezone is specified
	precision DateTimePrecision
}

// DateTimePrecision indicates the precision of a datetime.
type DateTimePrecision int

const (
	DTYearPrecision DateTimePrecision = iota
	DTMonthPrecision
	DTDayPrecision
	DTHourPrecision
	DTMinutePrecision
	DTSecondPrecision
	DTMillisPrecision
)

// DateTime regex pattern
var dateTimePattern = regexp.MustCompile(
	`^(\d{4})(?:-(\d{2})(?:-(\d{2})(?:T(\d{2})(?::(\d{2})(?::(\d{2})(?:\.(\d+))?)?)?)?)?)?(Z|[+-]\d{2}:\d{2})?$`,
)

// NewDateTime creates a DateTime from a string.
func NewDateTime(s string) (DateTime, error) {
	matches := dateTimePattern.FindStringSubmatch(s)
	if matches == nil {
		return DateTime{}, fmt.Errorf("invalid datetime format: %s", s)
	}

	dt := DateTime{}
	precision := DTYearPrecision

	year, err := strconv.Atoi(matches[1])
	if err != nil {
		return DateTime{}, fmt.Errorf("invalid year in datetime: %s", s)
	}
	dt.year = year

	if matches[2] != "" {
		dt.month, _ = strconv.Atoi(matches[2])
		if dt.month < 1 || dt.month > 12 {
			return DateTime{}, fmt.Errorf("invalid month in datetime: %s", s)
		}
		precision = DTMonthPrecision
	}
	if matches[3] != "" {
		dt.day, _ = strconv.Atoi(matches[3])
		if dt.day < 1 || dt.day > daysInMonth(dt.year, dt.month) {
			return DateTime{}, fmt.Errorf("invalid day in datetime: %s", s)
		}
		precision = DTDayPrecision
	}
	if matches[4] != "" {
		dt.hour, _ = strconv.Atoi(matches[4])
		if dt.hour > 23 {
			return DateTime{}, fmt.Errorf("invalid hour in datetime: %s", s)
		}
		precision = DTHourPrecision
	}
	if matches[5] != "" {
		dt.minute, _ = strconv.Atoi(matches[5])
		if dt.minute > 59 {
			return DateTime{}, fmt.Errorf("invalid minute in datetime: %s", s)
		}
		precision = DTMinutePrecision
	}
	if matches[6] != "" {
		dt.second, _ = strconv.Atoi(matches[6])
		if dt.second > 60 {
			return DateTime{}, fmt.Errorf("invalid second in datetime: %s", s)
		}
		precision = DTSecondPrecision
	}
	if matches[7] != "" {
		ms := matches[7]
		for len(ms) < 3 {
			ms += "0"
		}
		if len(ms) > 3 {
			ms = ms[:3]
		}
		dt.millis, _ = strconv.Atoi(ms)
		precision = DTMillisPrecision
	}

	if matches[8] != "" {
		dt.hasTZ = true
		if matches[8] == "Z" {
			dt.tzOffset = 0
		} else {
			sign := 1
			if matches[8][0] == '-' {
				sign = -1
			}
			hours, _ := strconv.Atoi(matches[8][1:3])
			mins, _ := strconv.Atoi(matches[8][4:6])
			dt.tzOffset = sign * (hours*60 + mins)
		}
	}

	dt.precision = precision
	return dt, nil
}

// NewDateTimeFromTime creates a DateTime from time.Time.
func NewDateTimeFromTime(t time.Time) DateTime {
	_, offset := t.Zone()
	return DateTime{
		year:      t.Year(),
		month:     int(t.Month()),
		day:       t.Day(),
		hour:      t.Hour(),
		minute:    t.Minute(),
		second:    t.Second(),
		millis:    t.Nanosecond() / 1000000,
		tzOffset:  offset / 60,
		hasTZ:     true,
		precision: DTMillisPrecision,
	}
}

// Type returns the type name.
func (dt DateTime) Type() string {
	return "DateTime"
}

// TypeInfo returns the qualified type of the value.
func (dt DateTime) TypeInfo() TypeInfo {
	if dt.fhirType != "" {
		return TypeInfo{Namespace: FHIRNamespace, Name: dt.fhirType}
	}
	return TypeInfo{Namespace: SystemNamespace, Name: "DateTime"}
}

// Equal checks equality with another value. DateTimes at different
// precisions are never reported equal here; the indeterminate case is
// exposed by Equals via equalTri.
func (dt DateTime) Equal(other Value) bool {
	eq, ok := false, false
	switch o := other.(type) {
	case DateTime:
		eq, ok = dt.equalTri(o)
	case Date:
		eq, ok = dt.equalTri(o.ToDateTime())
	}
	return ok && eq
}

// equalTri compares two datetimes; ok is false when the comparison is
// indeterminate because the precisions differ without a deciding component.
func (dt DateTime) equalTri(other DateTime) (eq bool, ok bool) {
	if dt.precision == other.precision {
		return dt.ToTime().Equal(other.ToTime()), true
	}
	minPrec := dt.precision
	if other.precision < minPrec {
		minPrec = other.precision
	}
	fields := [][2]int{
		{dt.year, other.year},
		{dt.month, other.month},
		{dt.day, other.day},
		{dt.hour, other.hour},
		{dt.minute, other.minute},
		{dt.second, other.second},
		{dt.millis, other.millis},
	}
	for i := DTYearPrecision; i <= minPrec; i++ {
		if fields[i][0] != fields[i][1] {
			return false, true
		}
	}
	return false, false
}

// Equivalent reports whether two datetimes share a precision and denote the
// same instant; datetimes at different precisions are never equivalent.
func (dt DateTime) Equivalent(other Value) bool {
	o, isDT := other.(DateTime)
	if !isDT {
		return false
	}
	if dt.precision != o.precision {
		return false
	}
	return dt.ToTime().Equal(o.ToTime())
}

// String returns the string representation.
func (dt DateTime) String() string {
	result := fmt.Sprintf("%04d", dt.year)

	if dt.precision >= DTMonthPrecision {
		result += fmt.Sprintf("-%02d", dt.month)
	}
	if dt.precision >= DTDayPrecision {
		result += fmt.Sprintf("-%02d", dt.day)
	}
	if dt.precision >= DTHourPrecision {
		result += fmt.Sprintf("T%02d", dt.hour)
	}
	if dt.precision >= DTMinutePrecision {
		result += fmt.Sprintf(":%02d", dt.minute)
	}
	if dt.precision >= DTSecondPrecision {
		result += fmt.Sprintf(":%02d", dt.second)
	}
	if dt.precision >= DTMillisPrecision {
		result += fmt.Sprintf(".%03d", dt.millis)
	}

	if dt.hasTZ && dt.precision >= DTHourPrecision {
		if dt.tzOffset == 0 {
			result += "Z"
		} else {
			sign := "+"
			offset := dt.tzOffset
			if offset < 0 {
				sign = "-"
				offset = -offset
			}
			result += fmt.Sprintf("%s%02d:%02d", sign, offset/60, offset%60)
		}
	}

	return result
}

// ToTime converts to time.Time.
func (dt DateTime) ToTime() time.Time {
	month := dt.month
	if month == 0 {
		month = 1
	}
	day := dt.day
	if day == 0 {
		day = 1
	}

	var loc *time.Location
	if dt.hasTZ {
		loc = time.FixedZone("", dt.tzOffset*60)
	} else {
		loc = time.UTC
	}

	return time.Date(dt.year, time.Month(month), day, dt.hour, dt.minute, dt.second, dt.millis*1000000, loc)
}

// ToDate truncates the datetime to its date part.
func (dt DateTime) ToDate() Date {
	d := Date{year: dt.year, month: dt.month, day: dt.day}
	switch {
	case dt.precision >= DTDayPrecision:
		d.precision = DayPrecision
	case dt.precision == DTMonthPrecision:
		d.precision = MonthPrecision
	default:
		d.precision = YearPrecision
	}
	return d
}

// Accessors
func (dt DateTime) Year() int                    { return dt.year }
func (dt DateTime) Month() int                   { return dt.month }
func (dt DateTime) Day() int                     { return dt.day }
func (dt DateTime) Hour() int                    { return dt.hour }
func (dt DateTime) Minute() int                  { return dt.minute }
func (dt DateTime) Second() int                  { return dt.second }
func (dt DateTime) Millisecond() int             { return dt.millis }
func (dt DateTime) Precision() DateTimePrecision { return dt.precision }

// AddQuantity adds a time-valued quantity to the datetime. Years and months
// use calendar arithmetic with the day-of-month clamped; weeks and days add
// whole days; smaller units convert through seconds.
func (dt DateTime) AddQuantity(value decimal.Decimal, unit CalendarUnit) (DateTime, bool) {
	month := dt.month
	if month == 0 {
		month = 1
	}

	switch unit {
	case UnitYears:
		n := int(value.Truncate(0).IntPart())
		y, m, d := addMonthsClamped(dt.year, month, dt.day, n*12)
		return dt.rebuildDate(y, m, d), true
	case UnitMonths:
		n := int(value.Truncate(0).IntPart())
		y, m, d := addMonthsClamped(dt.year, month, dt.day, n)
		return dt.rebuildDate(y, m, d), true
	case UnitWeeks:
		days := value.Mul(decimal.NewFromInt(7)).Truncate(0).IntPart()
		t := dt.ToTime().AddDate(0, 0, int(days))
		return dt.rebuildTime(t), true
	case UnitDays:
		days := value.Truncate(0).IntPart()
		t := dt.ToTime().AddDate(0, 0, int(days))
		return dt.rebuildTime(t), true
	case UnitHours, UnitMinutes, UnitSeconds, UnitMilliseconds:
		var factor decimal.Decimal
		switch unit {
		case UnitHours:
			factor = decimal.NewFromInt(3600)
		case UnitMinutes:
			factor = decimal.NewFromInt(60)
		case UnitSeconds:
			factor = decimal.NewFromInt(1)
		default:
			factor = decimal.New(1, -3)
		}
		nanos := value.Mul(factor).Mul(decimal.New(1, 9)).IntPart()
		t := dt.ToTime().Add(time.Duration(nanos))
		return dt.rebuildTime(t), true
	}
	return DateTime{}, false
}

// rebuildDate keeps the time-of-day components and replaces the date part.
func (dt DateTime) rebuildDate(year, month, day int) DateTime {
	result := dt
	result.anno = anno{}
	result.year = year
	result.month = month
	result.day = day
	result.trimToPrecision()
	return result
}

// rebuildTime rebuilds all components from a time.Time.
func (dt DateTime) rebuildTime(t time.Time) DateTime {
	result := DateTime{
		year:      t.Year(),
		month:     int(t.Month()),
		day:       t.Day(),
		hour:      t.Hour(),
		minute:    t.Minute(),
		second:    t.Second(),
		millis:    t.Nanosecond() / 1000000,
		tzOffset:  dt.tzOffset,
		hasTZ:     dt.hasTZ,
		precision: dt.precision,
	}
	result.trimToPrecision()
	return result
}

// trimToPrecision zeroes components beyond the datetime's precision.
func (dt *DateTime) trimToPrecision() {
	if dt.precision < DTMonthPrecision {
		dt.month = 0
	}
	if dt.precision < DTDayPrecision {
		dt.day = 0
	}
	if dt.precision < DTHourPrecision {
		dt.hour = 0
	}
	if dt.precision < DTMinutePrecision {
		dt.minute = 0
	}
	if dt.precision < DTSecondPrecision {
		dt.second = 0
	}
	if dt.precision < DTMillisPrecision {
		dt.millis = 0
	}
}

// Compare compares two datetimes. Returns -1, 0, or 1.
// Implements the Comparable interface.
// Returns an error if the precisions differ and no component decides.
func (dt DateTime) Compare(other Value) (int, error) {
	var otherDT DateTime
	switch o := other.(type) {
	case DateTime:
		otherDT = o
	case Date:
		otherDT = o.StartOfDayUTC()
	default:
		return 0, fmt.Errorf("cannot compare DateTime with %s", other.Type())
	}

	if dt.precision == otherDT.precision {
		t1 := dt.ToTime()
		t2 := otherDT.ToTime()
		if t1.Before(t2) {
			return -1, nil
		}
		if t1.After(t2) {
			return 1, nil
		}
		return 0, nil
	}

	minPrec := dt.precision
	if otherDT.precision < minPrec {
		minPrec = otherDT.precision
	}
	fields := [][2]int{
		{dt.year, otherDT.year},
		{dt.month, otherDT.month},
		{dt.day, otherDT.day},
		{dt.hour, otherDT.hour},
		{dt.minute, otherDT.minute},
		{dt.second, otherDT.second},
		{dt.millis, otherDT.millis},
	}
	for i := DTYearPrecision; i <= minPrec; i++ {
		if fields[i][0] != fields[i][1] {
			if fields[i][0] < fields[i][1] {
				return -1, nil
			}
			return 1, nil
		}
	}
	return 0, fmt.Errorf("ambiguous comparison between datetimes with different precisions")
}
