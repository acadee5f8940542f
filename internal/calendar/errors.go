package calendar

import (
	"fmt"
	"time"
)

// Kind classifies a calendar rule violation.
type Kind string

const (
	KindInvalidRange       Kind = "INVALID_RANGE"
	KindWeekendStart       Kind = "WEEKEND_START"
	KindWeekendEnd         Kind = "WEEKEND_END"
	KindExceedsMaxDuration Kind = "EXCEEDS_MAX_DURATION"
	KindStartInPast        Kind = "START_IN_PAST"
)

// ValidationError reports why a proposed range breaks the rental calendar.
// MaxEnd is set for KindExceedsMaxDuration.
type ValidationError struct {
	Kind    Kind
	Message string
	MaxEnd  time.Time
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Is matches any ValidationError of the same Kind, so callers can compare against
// the package sentinels regardless of the message or MaxEnd.
func (e *ValidationError) Is(target error) bool {
	t, ok := target.(*ValidationError)
	return ok && t.Kind == e.Kind
}

var (
	ErrInvalidRange       = &ValidationError{Kind: KindInvalidRange, Message: "return time must be after the start time"}
	ErrWeekendStart       = &ValidationError{Kind: KindWeekendStart, Message: "rentals cannot start on a Saturday or Sunday"}
	ErrWeekendEnd         = &ValidationError{Kind: KindWeekendEnd, Message: "rentals cannot end on a Sunday"}
	ErrExceedsMaxDuration = &ValidationError{Kind: KindExceedsMaxDuration, Message: "rental period is too long"}
	// ErrStartInPast is raised by callers that know today's date. The engine itself has no clock.
	ErrStartInPast = &ValidationError{Kind: KindStartInPast, Message: "rentals cannot start before today"}
)

func exceedsMaxDuration(maxEnd time.Time) *ValidationError {
	return &ValidationError{
		Kind:    KindExceedsMaxDuration,
		Message: fmt.Sprintf("rentals starting on this day must end by %s", maxEnd.Format(time.DateOnly)),
		MaxEnd:  maxEnd,
	}
}
