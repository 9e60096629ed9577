package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(hours int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(hours) * time.Hour)
}

func mustClock(t *testing.T, start time.Time, step time.Duration, end time.Time) Clock {
	t.Helper()
	c, err := New(start, step, end)
	require.NoError(t, err)
	return c
}

func TestNew_Validation(t *testing.T) {
	_, err := New(at(0), 0, time.Time{})
	require.ErrorIs(t, err, ErrNonPositiveStep)

	_, err = New(at(0), -time.Hour, time.Time{})
	require.ErrorIs(t, err, ErrNonPositiveStep)

	_, err = New(at(6), time.Hour, at(0))
	require.ErrorIs(t, err, ErrEndBeforeStart)

	c, err := New(at(0), 6*time.Hour, at(0))
	require.NoError(t, err)
	assert.True(t, c.Contains(at(0)))
}

func TestClock_Contains(t *testing.T) {
	c := mustClock(t, at(0), 6*time.Hour, at(24))

	testCases := []struct {
		when     time.Time
		expected bool
	}{
		{at(0), true},
		{at(6), true},
		{at(24), true},
		{at(3), false},
		{at(-6), false},
		{at(30), false},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.expected, c.Contains(tc.when), "time %s", tc.when)
	}

	unbounded := mustClock(t, at(0), 6*time.Hour, time.Time{})
	assert.True(t, unbounded.Contains(at(6000)))

	assert.True(t, c.ContainsOffset(-12*time.Hour))
	assert.False(t, c.ContainsOffset(time.Hour))
}

func TestClock_Covers(t *testing.T) {
	suite := mustClock(t, at(0), 6*time.Hour, at(48))

	testCases := []struct {
		name     string
		other    Clock
		expected bool
	}{
		{name: "itself", other: suite, expected: true},
		{name: "every 12h", other: mustClock(t, at(6), 12*time.Hour, at(42)), expected: true},
		{name: "starts earlier", other: mustClock(t, at(-6), 6*time.Hour, at(24)), expected: false},
		{name: "ends later", other: mustClock(t, at(0), 6*time.Hour, at(54)), expected: false},
		{name: "finer step", other: mustClock(t, at(0), 3*time.Hour, at(24)), expected: false},
		{name: "off phase", other: mustClock(t, at(3), 6*time.Hour, at(27)), expected: false},
		{name: "unbounded inside bounded", other: mustClock(t, at(0), 6*time.Hour, time.Time{}), expected: false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, suite.Covers(tc.other))
		})
	}

	eternal := mustClock(t, at(0), 6*time.Hour, time.Time{})
	assert.True(t, eternal.Covers(suite))
}

func TestClock_ForAlarm(t *testing.T) {
	suite := mustClock(t, at(0), 6*time.Hour, at(45*6))

	t.Run("aligned to clock start", func(t *testing.T) {
		alarm := mustClock(t, at(-18), 12*time.Hour, time.Time{})
		got, err := suite.ForAlarm(alarm)
		require.NoError(t, err)
		assert.Equal(t, at(6), got.Start)
		assert.Equal(t, 12*time.Hour, got.Step)
		// The suite end (270h) already sits on the 12h grid starting at 6h.
		assert.Equal(t, at(270), got.End)
		assert.True(t, suite.Covers(got))
	})

	t.Run("earlier alarm end wins", func(t *testing.T) {
		alarm := mustClock(t, at(0), 24*time.Hour, at(100))
		got, err := suite.ForAlarm(alarm)
		require.NoError(t, err)
		assert.Equal(t, at(0), got.Start)
		assert.Equal(t, at(96), got.End)
	})

	t.Run("step not a multiple", func(t *testing.T) {
		_, err := suite.ForAlarm(mustClock(t, at(0), 9*time.Hour, time.Time{}))
		require.ErrorIs(t, err, ErrAlarmStep)
	})

	t.Run("start off the clock grid", func(t *testing.T) {
		_, err := suite.ForAlarm(mustClock(t, at(3), 12*time.Hour, time.Time{}))
		require.ErrorIs(t, err, ErrAlarmPhase)
	})

	t.Run("both unbounded", func(t *testing.T) {
		eternal := mustClock(t, at(0), 6*time.Hour, time.Time{})
		got, err := eternal.ForAlarm(mustClock(t, at(12), 12*time.Hour, time.Time{}))
		require.NoError(t, err)
		assert.False(t, got.Bounded())
		assert.Equal(t, at(12), got.Start)
	})

	t.Run("no tick fits", func(t *testing.T) {
		short := mustClock(t, at(0), 6*time.Hour, at(6))
		got, err := short.ForAlarm(mustClock(t, at(12), 24*time.Hour, time.Time{}))
		require.NoError(t, err)
		assert.True(t, got.Empty())
		assert.False(t, got.Contains(at(12)))
	})
}

func TestClock_Cycles(t *testing.T) {
	c := mustClock(t, at(0), 6*time.Hour, at(24))

	all, err := c.Cycles(time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, []time.Time{at(0), at(6), at(12), at(18), at(24)}, all)

	window, err := c.Cycles(at(5), at(13))
	require.NoError(t, err)
	assert.Equal(t, []time.Time{at(6), at(12)}, window)

	unbounded := mustClock(t, at(0), 6*time.Hour, time.Time{})
	_, err = unbounded.Cycles(time.Time{}, time.Time{})
	require.ErrorIs(t, err, ErrUnbounded)

	assert.Equal(t, at(18), c.Next(at(6), 2))
	assert.Equal(t, at(0), c.Next(at(6), -1))

	floor, ok := c.Floor(at(10))
	require.True(t, ok)
	assert.Equal(t, at(6), floor)
}
