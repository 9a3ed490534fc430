// Package timeslot holds the pure time-slot rules for lessons: slots start
// on quarter-hour boundaries and run between 15 minutes and 4 hours. The
// scheduling service applies these rules to every create request, and the
// database repeats them as CHECK constraints.
package timeslot

import (
	"errors"
	"fmt"
	"time"
)

const (
	// SlotIncrementMinutes is the grid lessons snap to.
	SlotIncrementMinutes = 15
	// MinDurationMinutes is the shortest allowed lesson.
	MinDurationMinutes = 15
	// MaxDurationMinutes is the longest allowed lesson (4 hours).
	MaxDurationMinutes = 240
)

var (
	ErrNotAligned     = errors.New("time must be on a 15-minute increment with no seconds")
	ErrEndBeforeStart = errors.New("end time must be after start time")
	ErrTooShort       = fmt.Errorf("lesson must be at least %d minutes", MinDurationMinutes)
	ErrTooLong        = fmt.Errorf("lesson must be at most %d minutes", MaxDurationMinutes)
)

// IsAligned reports whether t sits on a quarter-hour boundary with zero
// seconds and sub-second components. No timezone conversion is performed;
// the timestamp is checked in its own location.
func IsAligned(t time.Time) bool {
	return t.Minute()%SlotIncrementMinutes == 0 && t.Second() == 0 && t.Nanosecond() == 0
}

// IsValidDuration reports whether end is after start and the whole-minute
// difference is within [MinDurationMinutes, MaxDurationMinutes].
func IsValidDuration(start, end time.Time) bool {
	if !end.After(start) {
		return false
	}
	minutes := int(end.Sub(start) / time.Minute)
	return minutes >= MinDurationMinutes && minutes <= MaxDurationMinutes
}

// Validate checks a candidate (start, end) window against every slot rule
// and returns the first violated one. Only the start has to sit on the
// quarter-hour grid; the end is constrained through the duration bounds.
func Validate(start, end time.Time) error {
	if !IsAligned(start) {
		return fmt.Errorf("start time: %w", ErrNotAligned)
	}
	if !end.After(start) {
		return ErrEndBeforeStart
	}
	minutes := int(end.Sub(start) / time.Minute)
	if minutes < MinDurationMinutes {
		return ErrTooShort
	}
	if minutes > MaxDurationMinutes {
		return ErrTooLong
	}
	return nil
}
