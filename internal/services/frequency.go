// Package services holds the aggregation and projection engine.
//
// This file maps each recurrence frequency to its calendar step. Months are
// stepped with calendar arithmetic clamped to the month's end, never as a
// fixed number of days.
package services

import (
	"fmt"

	"familyledger/internal/core"
)

// Stepper places the n-th occurrence of a series that starts at start.
// Occurrences are always computed from start, so a clamped month does not
// shift the ones after it.
type Stepper interface {
	Step(start core.Date, n int) core.Date
}

// WeekStepper advances by a fixed number of weeks.
type WeekStepper struct {
	Weeks int
}

func (s WeekStepper) Step(start core.Date, n int) core.Date {
	return start.AddDays(7 * s.Weeks * n)
}

// MonthStepper advances by calendar months, clamping to the month's end.
type MonthStepper struct {
	Months int
}

func (s MonthStepper) Step(start core.Date, n int) core.Date {
	return start.AddMonths(s.Months * n)
}

var frequencySteppers = map[core.Frequency]Stepper{
	core.Weekly:     WeekStepper{Weeks: 1},
	core.Biweekly:   WeekStepper{Weeks: 2},
	core.Monthly:    MonthStepper{Months: 1},
	core.Quarterly:  MonthStepper{Months: 3},
	core.Semiannual: MonthStepper{Months: 6},
	core.Annual:     MonthStepper{Months: 12},
}

// GetStepper returns the calendar step for a frequency.
func GetStepper(f core.Frequency) (Stepper, error) {
	s, ok := frequencySteppers[f]
	if !ok {
		return nil, fmt.Errorf("%w: %q", core.ErrInvalidFrequency, f)
	}
	return s, nil
}

// RegisterStepper adds or replaces the step of a frequency.
func RegisterStepper(f core.Frequency, s Stepper) {
	frequencySteppers[f] = s
}

// Occurrences lists count dates of the series starting at start.
func Occurrences(f core.Frequency, start core.Date, count int) ([]core.Date, error) {
	s, err := GetStepper(f)
	if err != nil {
		return nil, err
	}
	dates := make([]core.Date, count)
	for i := range dates {
		dates[i] = s.Step(start, i)
	}
	return dates, nil
}
