// Package calendar holds the rental calendar rules. Everything here is pure: no storage,
// no clock, no hidden state. Day-of-week decisions are made in the facility's location.
package calendar

import (
	"time"
)

// maxLoanDays is the number of days a rental may run past its start date, keyed by the
// start weekday. The facility is closed on weekends, so Thursday loans stop on Friday and
// Friday loans bridge the weekend to Monday. Weekend starts are absent on purpose.
var maxLoanDays = map[time.Weekday]int{
	time.Monday:    2,
	time.Tuesday:   2,
	time.Wednesday: 2,
	time.Thursday:  1,
	time.Friday:    3,
}

// Engine evaluates rental ranges against the weekly policy.
type Engine struct {
	loc *time.Location
}

// NewEngine creates an Engine that interprets dates in loc. A nil loc means UTC.
func NewEngine(loc *time.Location) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{loc: loc}
}

// Location returns the facility location used for day boundaries.
func (e *Engine) Location() *time.Location {
	return e.loc
}

// MaxAllowedEnd returns the latest legal return date (midnight, facility time) for a
// rental starting on start's date. ok is false when start falls on a weekend.
func (e *Engine) MaxAllowedEnd(start time.Time) (maxEnd time.Time, ok bool) {
	day := e.dateOf(start)
	days, ok := maxLoanDays[day.Weekday()]
	if !ok {
		return time.Time{}, false
	}
	return day.AddDate(0, 0, days), true
}

// ValidateRange checks an absolute [start, end) against the calendar rules and returns
// it normalized to the facility location.
func (e *Engine) ValidateRange(start, end time.Time) (Range, error) {
	startDate, startClock := e.split(start)
	endDate, endClock := e.split(end)

	if err := e.ValidateParts(startDate, endDate, startClock, endClock); err != nil {
		return Range{}, err
	}
	return Range{Start: start.In(e.loc), End: end.In(e.loc)}, nil
}

// ValidateParts applies the rules to a range given as calendar dates plus clock times
// (offsets from midnight). Dates are interpreted in the facility location.
func (e *Engine) ValidateParts(startDate, endDate time.Time, startClock, endClock time.Duration) error {
	startDate = e.dateOf(startDate)
	endDate = e.dateOf(endDate)

	if startDate.After(endDate) || (startDate.Equal(endDate) && startClock >= endClock) {
		return ErrInvalidRange
	}

	if wd := startDate.Weekday(); wd == time.Sunday || wd == time.Saturday {
		return ErrWeekendStart
	}
	if endDate.Weekday() == time.Sunday {
		return ErrWeekendEnd
	}

	maxEnd, ok := e.MaxAllowedEnd(startDate)
	if !ok {
		return ErrWeekendStart
	}
	if endDate.After(maxEnd) {
		return exceedsMaxDuration(maxEnd)
	}
	return nil
}

// CountBusinessDays counts the weekdays in the inclusive date span [start, end].
// It is informational only; MaxAllowedEnd decides admission.
func (e *Engine) CountBusinessDays(start, end time.Time) int {
	from := e.dateOf(start)
	to := e.dateOf(end)

	count := 0
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			count++
		}
	}
	return count
}

// dateOf truncates t to midnight of its calendar day in the facility location.
func (e *Engine) dateOf(t time.Time) time.Time {
	y, m, d := t.In(e.loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, e.loc)
}

func (e *Engine) split(t time.Time) (time.Time, time.Duration) {
	local := t.In(e.loc)
	clock := time.Duration(local.Hour())*time.Hour +
		time.Duration(local.Minute())*time.Minute +
		time.Duration(local.Second())*time.Second +
		time.Duration(local.Nanosecond())
	return e.dateOf(local), clock
}
