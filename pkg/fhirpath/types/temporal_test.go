package types

import (
	"testing"

	"github.com/shopspring/decimal"
)

func mustDate(t *testing.T, s string) Date {
	t.Helper()
	d, err := NewDate(s)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func mustDateTime(t *testing.T, s string) DateTime {
	t.Helper()
	dt, err := NewDateTime(s)
	if err != nil {
		t.Fatal(err)
	}
	return dt
}

func mustTime(t *testing.T, s string) Time {
	t.Helper()
	tm, err := NewTime(s)
	if err != nil {
		t.Fatal(err)
	}
	return tm
}

func TestDateParsing(t *testing.T) {
	tests := []struct {
		input     string
		precision DatePrecision
	}{
		{"2023", YearPrecision},
		{"2023-06", MonthPrecision},
		{"2023-06-15", DayPrecision},
	}
	for _, tc := range tests {
		d := mustDate(t, tc.input)
		if d.Precision() != tc.precision {
			t.Errorf("%s: wrong precision", tc.input)
		}
		if d.String() != tc.input {
			t.Errorf("%s: round trip got %s", tc.input, d)
		}
	}

	for _, bad := range []string{"2023-13", "2023-02-30", "23-01-01", "not-a-date"} {
		if _, err := NewDate(bad); err == nil {
			t.Errorf("expected error for %s", bad)
		}
	}
}

func TestDatePrecisionEquality(t *testing.T) {
	t.Run("same precision", func(t *testing.T) {
		eq, ok := Equals(mustDate(t, "2023-06-15"), mustDate(t, "2023-06-15"))
		if !ok || !eq {
			t.Error("identical dates must be equal")
		}
	})

	t.Run("different precision, shared prefix is indeterminate", func(t *testing.T) {
		_, ok := Equals(mustDate(t, "2023-06"), mustDate(t, "2023-06-15"))
		if ok {
			t.Error("expected indeterminate comparison")
		}
	})

	t.Run("different precision, differing component decides", func(t *testing.T) {
		eq, ok := Equals(mustDate(t, "2023-05"), mustDate(t, "2023-06-15"))
		if !ok || eq {
			t.Error("expected definite false")
		}
	})

	t.Run("date against datetime is indeterminate at shared prefix", func(t *testing.T) {
		_, ok := Equals(mustDate(t, "2023-06-15"), mustDateTime(t, "2023-06-15T10:00:00"))
		if ok {
			t.Error("expected indeterminate comparison")
		}
	})
}

func TestDateOrdering(t *testing.T) {
	cmp, err := mustDate(t, "2023-01-01").Compare(mustDate(t, "2023-02-01"))
	if err != nil || cmp != -1 {
		t.Errorf("expected -1, got %d err=%v", cmp, err)
	}

	if _, err := mustDate(t, "2023").Compare(mustDate(t, "2023-02")); err == nil {
		t.Error("expected ambiguous comparison error")
	}

	// Date lifts to start of day for ordering against DateTime.
	dt := mustDateTime(t, "2023-01-01T10:00:00")
	cmp, err = dt.Compare(mustDate(t, "2023-01-01"))
	if err != nil || cmp != 1 {
		t.Errorf("expected 1, got %d err=%v", cmp, err)
	}
}

func TestDateCalendarArithmetic(t *testing.T) {
	one := decimal.NewFromInt(1)

	t.Run("month addition clamps day", func(t *testing.T) {
		d, ok := mustDate(t, "2023-01-31").AddQuantity(one, UnitMonths)
		if !ok || d.String() != "2023-02-28" {
			t.Errorf("expected 2023-02-28, got %s", d)
		}
	})

	t.Run("leap year clamp", func(t *testing.T) {
		d, ok := mustDate(t, "2024-01-31").AddQuantity(one, UnitMonths)
		if !ok || d.String() != "2024-02-29" {
			t.Errorf("expected 2024-02-29, got %s", d)
		}
	})

	t.Run("plain month addition", func(t *testing.T) {
		d, ok := mustDate(t, "2023-06-15").AddQuantity(one, UnitMonths)
		if !ok || d.String() != "2023-07-15" {
			t.Errorf("expected 2023-07-15, got %s", d)
		}
	})

	t.Run("year addition", func(t *testing.T) {
		d, ok := mustDate(t, "2020-02-29").AddQuantity(one, UnitYears)
		if !ok || d.String() != "2021-02-28" {
			t.Errorf("expected 2021-02-28, got %s", d)
		}
	})

	t.Run("fractional days truncate", func(t *testing.T) {
		d, ok := mustDate(t, "2023-06-15").AddQuantity(decimal.RequireFromString("1.9"), UnitDays)
		if !ok || d.String() != "2023-06-16" {
			t.Errorf("expected 2023-06-16, got %s", d)
		}
	})

	t.Run("negative months", func(t *testing.T) {
		d, ok := mustDate(t, "2023-03-31").AddQuantity(one.Neg(), UnitMonths)
		if !ok || d.String() != "2023-02-28" {
			t.Errorf("expected 2023-02-28, got %s", d)
		}
	})

	t.Run("sub-day unit not supported on dates", func(t *testing.T) {
		if _, ok := mustDate(t, "2023-06-15").AddQuantity(one, UnitHours); ok {
			t.Error("expected not ok")
		}
	})

	t.Run("precision is preserved", func(t *testing.T) {
		d, ok := mustDate(t, "2023-06").AddQuantity(one, UnitMonths)
		if !ok || d.String() != "2023-07" {
			t.Errorf("expected 2023-07, got %s", d)
		}
	})
}

func TestDateTimeParsing(t *testing.T) {
	tests := []string{
		"2023",
		"2023-06",
		"2023-06-15",
		"2023-06-15T10",
		"2023-06-15T10:30",
		"2023-06-15T10:30:45",
		"2023-06-15T10:30:45.123",
		"2023-06-15T10:30:45.123Z",
		"2023-06-15T10:30:45.123+02:00",
	}
	for _, input := range tests {
		dt := mustDateTime(t, input)
		if dt.String() != input {
			t.Errorf("round trip %s: got %s", input, dt)
		}
	}

	for _, bad := range []string{"2023-06-15T25", "2023-13-01T10:00", "garbage"} {
		if _, err := NewDateTime(bad); err == nil {
			t.Errorf("expected error for %s", bad)
		}
	}
}

func TestDateTimeTimezoneNormalization(t *testing.T) {
	utc := mustDateTime(t, "2023-06-15T12:00:00Z")
	plus2 := mustDateTime(t, "2023-06-15T14:00:00+02:00")
	eq, ok := Equals(utc, plus2)
	if !ok || !eq {
		t.Error("instants at the same moment must be equal")
	}
}

func TestDateTimeArithmetic(t *testing.T) {
	dt := mustDateTime(t, "2023-01-31T10:30:00")

	result, ok := dt.AddQuantity(decimal.NewFromInt(1), UnitMonths)
	if !ok || result.String() != "2023-02-28T10:30:00" {
		t.Errorf("expected 2023-02-28T10:30:00, got %s", result)
	}

	result, ok = dt.AddQuantity(decimal.RequireFromString("1.5"), UnitHours)
	if !ok || result.String() != "2023-01-31T12:00:00" {
		t.Errorf("expected 2023-01-31T12:00:00, got %s", result)
	}
}

func TestTimeBehaviour(t *testing.T) {
	tm := mustTime(t, "14:30:00")
	if tm.String() != "14:30:00" {
		t.Errorf("round trip got %s", tm)
	}

	_, ok := Equals(mustTime(t, "14:30"), tm)
	if ok {
		t.Error("different precisions must be indeterminate")
	}

	cmp, err := tm.Compare(mustTime(t, "15:00:00"))
	if err != nil || cmp != -1 {
		t.Errorf("expected -1, got %d err=%v", cmp, err)
	}

	wrapped, ok := mustTime(t, "23:30:00").AddQuantity(decimal.NewFromInt(1), UnitHours)
	if !ok || wrapped.String() != "00:30:00" {
		t.Errorf("expected 00:30:00, got %s", wrapped)
	}
}
