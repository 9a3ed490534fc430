package timeslot

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(hour, minute, sec, nsec int) time.Time {
	return time.Date(2025, 11, 10, hour, minute, sec, nsec, time.UTC)
}

func TestIsAligned(t *testing.T) {
	tests := []struct {
		name string
		ts   time.Time
		want bool
	}{
		{"on the hour", at(10, 0, 0, 0), true},
		{"quarter past", at(10, 15, 0, 0), true},
		{"half past", at(10, 30, 0, 0), true},
		{"quarter to", at(10, 45, 0, 0), true},
		{"one past", at(10, 1, 0, 0), false},
		{"seven past", at(10, 7, 0, 0), false},
		{"forty-four past", at(10, 44, 0, 0), false},
		{"aligned minute with seconds", at(10, 15, 30, 0), false},
		{"aligned minute with nanos", at(10, 15, 0, 500), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsAligned(tt.ts))
		})
	}
}

func TestIsValidDuration(t *testing.T) {
	start := at(10, 0, 0, 0)

	tests := []struct {
		name    string
		minutes int
		want    bool
	}{
		{"minimum 15", 15, true},
		{"maximum 240", 240, true},
		{"one below minimum", 14, false},
		{"one above maximum", 241, false},
		{"typical 45", 45, true},
		{"zero", 0, false},
		{"negative", -30, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			end := start.Add(time.Duration(tt.minutes) * time.Minute)
			assert.Equal(t, tt.want, IsValidDuration(start, end))
		})
	}
}

func TestValidate(t *testing.T) {
	start := at(10, 0, 0, 0)

	t.Run("valid window", func(t *testing.T) {
		require.NoError(t, Validate(start, start.Add(45*time.Minute)))
	})

	t.Run("misaligned start", func(t *testing.T) {
		err := Validate(at(10, 7, 0, 0), at(10, 52, 0, 0))
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrNotAligned)
	})

	t.Run("end before start", func(t *testing.T) {
		err := Validate(start, start.Add(-time.Hour))
		assert.ErrorIs(t, err, ErrEndBeforeStart)
	})

	t.Run("end equals start", func(t *testing.T) {
		err := Validate(start, start)
		assert.ErrorIs(t, err, ErrEndBeforeStart)
	})

	t.Run("too short", func(t *testing.T) {
		err := Validate(start, start.Add(10*time.Minute))
		assert.ErrorIs(t, err, ErrTooShort)
	})

	t.Run("too long", func(t *testing.T) {
		err := Validate(start, start.Add(241*time.Minute))
		assert.ErrorIs(t, err, ErrTooLong)
	})

	t.Run("alignment checked in the timestamp's own location", func(t *testing.T) {
		loc := time.FixedZone("UTC+5:30", 5*3600+1800)
		local := time.Date(2025, 11, 10, 10, 30, 0, 0, loc)
		require.NoError(t, Validate(local, local.Add(time.Hour)))
	})
}

func TestValidateErrorOrder(t *testing.T) {
	// A misaligned start with a bad duration reports alignment first.
	err := Validate(at(10, 7, 0, 0), at(10, 8, 0, 0))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotAligned))
}
