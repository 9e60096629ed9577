// Package schedule models the regular sequence of cycles a suite runs on.
package schedule

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNonPositiveStep = errors.New("time step must be positive and non-zero")
	ErrEndBeforeStart  = errors.New("end time must be at or after start time")
	ErrAlarmStep       = errors.New("alarm step must be a multiple of the clock step")
	ErrAlarmPhase      = errors.New("alarm start must reside on a clock step")
	ErrUnbounded       = errors.New("clock has no end time")
	ErrOutsideClock    = errors.New("time is not a cycle of the clock")
)

// Clock is the cycle sequence Start, Start+Step, Start+2*Step, ... up to and
// including End. A zero End means the clock never ends.
type Clock struct {
	Start time.Time
	Step  time.Duration
	End   time.Time
}

// New validates and returns a Clock. Pass a zero end for an unbounded clock.
func New(start time.Time, step time.Duration, end time.Time) (Clock, error) {
	if step <= 0 {
		return Clock{}, ErrNonPositiveStep
	}
	if !end.IsZero() && end.Before(start) {
		return Clock{}, ErrEndBeforeStart
	}
	return Clock{Start: start, Step: step, End: end}, nil
}

// Bounded reports whether the clock has an end time.
func (c Clock) Bounded() bool {
	return !c.End.IsZero()
}

// Contains reports whether t is one of the clock's cycles.
func (c Clock) Contains(t time.Time) bool {
	if t.Before(c.Start) {
		return false
	}
	if c.Bounded() && t.After(c.End) {
		return false
	}
	return t.Sub(c.Start)%c.Step == 0
}

// ContainsOffset reports whether dt is a whole number of steps.
func (c Clock) ContainsOffset(dt time.Duration) bool {
	return dt%c.Step == 0
}

// Covers reports whether every cycle of other is also a cycle of c.
func (c Clock) Covers(other Clock) bool {
	if other.Start.Before(c.Start) {
		return false
	}
	if other.Step%c.Step != 0 {
		return false
	}
	if other.Start.Sub(c.Start)%c.Step != 0 {
		return false
	}
	if !c.Bounded() {
		return true
	}
	if !other.Bounded() {
		return false
	}
	return !other.End.After(c.End)
}

// ForAlarm aligns alarm to this clock and clips it to the clock's bounds.
// The result starts at the first alarm tick at or after c.Start and ends at
// the last alarm tick no later than the earliest of the two end times.
func (c Clock) ForAlarm(alarm Clock) (Clock, error) {
	if alarm.Step%c.Step != 0 {
		return Clock{}, fmt.Errorf("%w: %v is not a multiple of %v", ErrAlarmStep, alarm.Step, c.Step)
	}
	if alarm.Start.Sub(c.Start)%c.Step != 0 {
		return Clock{}, fmt.Errorf("%w: %s", ErrAlarmPhase, alarm.Start.Format(time.RFC3339))
	}

	start := alarm.Start
	if start.Before(c.Start) {
		behind := c.Start.Sub(start)
		ticks := behind / alarm.Step
		if behind%alarm.Step != 0 {
			ticks++
		}
		start = start.Add(ticks * alarm.Step)
	}

	end := alarm.End
	switch {
	case end.IsZero():
		end = c.End
	case c.Bounded() && c.End.Before(end):
		end = c.End
	}
	if !end.IsZero() {
		if end.Before(start) {
			// No alarm tick fits; keep an empty but valid range.
			end = start.Add(-alarm.Step)
			return Clock{Start: start, Step: alarm.Step, End: end}, nil
		}
		end = start.Add(end.Sub(start) / alarm.Step * alarm.Step)
	}
	return Clock{Start: start, Step: alarm.Step, End: end}, nil
}

// Empty reports whether the clock contains no cycles.
func (c Clock) Empty() bool {
	return c.Bounded() && c.End.Before(c.Start)
}

// Next returns the cycle n steps after t. n may be negative.
func (c Clock) Next(t time.Time, n int) time.Time {
	return t.Add(time.Duration(n) * c.Step)
}

// Floor returns the latest cycle at or before t, ignoring the end bound.
// ok is false when t precedes the first cycle.
func (c Clock) Floor(t time.Time) (cycle time.Time, ok bool) {
	if t.Before(c.Start) {
		return time.Time{}, false
	}
	return c.Start.Add(t.Sub(c.Start) / c.Step * c.Step), true
}

// Cycles lists the cycles between from and to, inclusive, clipped to the
// clock. A zero from means the clock start; a zero to means the clock end.
// An unbounded clock needs an explicit to.
func (c Clock) Cycles(from, to time.Time) ([]time.Time, error) {
	if from.IsZero() || from.Before(c.Start) {
		from = c.Start
	}
	if to.IsZero() {
		if !c.Bounded() {
			return nil, ErrUnbounded
		}
		to = c.End
	}
	if c.Bounded() && to.After(c.End) {
		to = c.End
	}

	first, ok := c.Floor(from)
	if !ok {
		return nil, nil
	}
	if first.Before(from) {
		first = first.Add(c.Step)
	}

	var out []time.Time
	for t := first; !t.After(to); t = t.Add(c.Step) {
		out = append(out, t)
	}
	return out, nil
}

// String renders the clock as start/step/end.
func (c Clock) String() string {
	end := "forever"
	if c.Bounded() {
		end = c.End.Format(time.RFC3339)
	}
	return fmt.Sprintf("%s/%v/%s", c.Start.Format(time.RFC3339), c.Step, end)
}
