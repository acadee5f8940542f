package calendar

import "time"

// Range is a half-open interval [Start, End) of absolute instants.
type Range struct {
	Start time.Time
	End   time.Time
}

// NewRange builds a Range, rejecting empty or inverted intervals.
func NewRange(start, end time.Time) (Range, error) {
	if !start.Before(end) {
		return Range{}, ErrInvalidRange
	}
	return Range{Start: start, End: end}, nil
}

// Overlaps reports whether r and o share at least one instant.
// Back-to-back ranges (r.End == o.Start) do not overlap.
func (r Range) Overlaps(o Range) bool {
	return r.Start.Before(o.End) && o.Start.Before(r.End)
}
