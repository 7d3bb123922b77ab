package funcs

import (
	"github.com/octofhir/fhirpath-go/pkg/fhirpath/eval"
	"github.com/octofhir/fhirpath-go/pkg/fhirpath/types"
)

func init() {
	Register(FuncDef{Name: "year", MinArgs: 0, MaxArgs: 0, Fn: fnYear})
	Register(FuncDef{Name: "month", MinArgs: 0, MaxArgs: 0, Fn: fnMonth})
	Register(FuncDef{Name: "day", MinArgs: 0, MaxArgs: 0, Fn: fnDay})
	Register(FuncDef{Name: "hour", MinArgs: 0, MaxArgs: 0, Fn: fnHour})
	Register(FuncDef{Name: "minute", MinArgs: 0, MaxArgs: 0, Fn: fnMinute})
	Register(FuncDef{Name: "second", MinArgs: 0, MaxArgs: 0, Fn: fnSecond})
	Register(FuncDef{Name: "millisecond", MinArgs: 0, MaxArgs: 0, Fn: fnMillisecond})
}

// temporalInput enforces the singleton input contract of the component
// accessors.
func temporalInput(input types.Collection) (types.Value, bool, error) {
	if input.Empty() {
		return nil, false, nil
	}
	if len(input) > 1 {
		return nil, false, eval.MultiItemError(len(input))
	}
	return input[0], true, nil
}

// fnYear extracts the year of a date or datetime.
func fnYear(_ *eval.Context, input types.Collection, _ []Arg) (types.Collection, error) {
	item, ok, err := temporalInput(input)
	if err != nil || !ok {
		return types.EmptyCollection, err
	}
	switch v := item.(type) {
	case types.Date:
		return types.Collection{types.GetInteger(int64(v.Year()))}, nil
	case types.DateTime:
		return types.Collection{types.GetInteger(int64(v.Year()))}, nil
	}
	return types.EmptyCollection, nil
}

// fnMonth extracts the month of a date or datetime at month precision or
// finer.
func fnMonth(_ *eval.Context, input types.Collection, _ []Arg) (types.Collection, error) {
	item, ok, err := temporalInput(input)
	if err != nil || !ok {
		return types.EmptyCollection, err
	}
	switch v := item.(type) {
	case types.Date:
		if v.Precision() >= types.MonthPrecision {
			return types.Collection{types.GetInteger(int64(v.Month()))}, nil
		}
	case types.DateTime:
		if v.Precision() >= types.DTMonthPrecision {
			return types.Collection{types.GetInteger(int64(v.Month()))}, nil
		}
	}
	return types.EmptyCollection, nil
}

// fnDay extracts the day of a date or datetime at day precision or finer.
func fnDay(_ *eval.Context, input types.Collection, _ []Arg) (types.Collection, error) {
	item, ok, err := temporalInput(input)
	if err != nil || !ok {
		return types.EmptyCollection, err
	}
	switch v := item.(type) {
	case types.Date:
		if v.Precision() >= types.DayPrecision {
			return types.Collection{types.GetInteger(int64(v.Day()))}, nil
		}
	case types.DateTime:
		if v.Precision() >= types.DTDayPrecision {
			return types.Collection{types.GetInteger(int64(v.Day()))}, nil
		}
	}
	return types.EmptyCollection, nil
}

// fnHour extracts the hour of a time or datetime.
func fnHour(_ *eval.Context, input types.Collection, _ []Arg) (types.Collection, error) {
	item, ok, err := temporalInput(input)
	if err != nil || !ok {
		return types.EmptyCollection, err
	}
	switch v := item.(type) {
	case types.Time:
		return types.Collection{types.GetInteger(int64(v.Hour()))}, nil
	case types.DateTime:
		if v.Precision() >= types.DTHourPrecision {
			return types.Collection{types.GetInteger(int64(v.Hour()))}, nil
		}
	}
	return types.EmptyCollection, nil
}

// fnMinute extracts the minute of a time or datetime.
func fnMinute(_ *eval.Context, input types.Collection, _ []Arg) (types.Collection, error) {
	item, ok, err := temporalInput(input)
	if err != nil || !ok {
		return types.EmptyCollection, err
	}
	switch v := item.(type) {
	case types.Time:
		if v.Precision() >= types.MinutePrecision {
			return types.Collection{types.GetInteger(int64(v.Minute()))}, nil
		}
	case types.DateTime:
		if v.Precision() >= types.DTMinutePrecision {
			return types.Collection{types.GetInteger(int64(v.Minute()))}, nil
		}
	}
	return types.EmptyCollection, nil
}

// fnSecond extracts the second of a time or datetime.
func fnSecond(_ *eval.Context, input types.Collection, _ []Arg) (types.Collection, error) {
	item, ok, err := temporalInput(input)
	if err != nil || !ok {
		return types.EmptyCollection, err
	}
	switch v := item.(type) {
	case types.Time:
		if v.Precision() >= types.SecondPrecision {
			return types.Collection{types.GetInteger(int64(v.Second()))}, nil
		}
	case types.DateTime:
		if v.Precision() >= types.DTSecondPrecision {
			return types.Collection{types.GetInteger(int64(v.Second()))}, nil
		}
	}
	return types.EmptyCollection, nil
}

// fnMillisecond extracts the millisecond of a time or datetime.
func fnMillisecond(_ *eval.Context, input types.Collection, _ []Arg) (types.Collection, error) {
	item, ok, err := temporalInput(input)
	if err != nil || !ok {
		return types.EmptyCollection, err
	}
	switch v := item.(type) {
	case types.Time:
		if v.Precision() >= types.MillisPrecision {
			return types.Collection{types.GetInteger(int64(v.Millisecond()))}, nil
		}
	case types.DateTime:
		if v.Precision() >= types.DTMillisPrecision {
			return types.Collection{types.GetInteger(int64(v.Millisecond()))}, nil
		}
	}
	return types.EmptyCollection, nil
}
