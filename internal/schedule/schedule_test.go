package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Empty(t *testing.T) {
	for _, raw := range []string{"", "   ", "\t\n"} {
		s, err := Parse(raw, time.UTC)
		require.NoError(t, err)
		assert.Equal(t, KindNone, s.Kind)
	}
}

func TestParse_CronExpressions(t *testing.T) {
	tests := []string{
		"* * * * *",
		"*/5 * * * *",
		"0 9 * * 1-5",
		"30 12 1 * *",
	}

	for _, raw := range tests {
		t.Run(raw, func(t *testing.T) {
			s, err := Parse(raw, time.UTC)
			require.NoError(t, err)
			assert.Equal(t, KindRecurring, s.Kind)
			assert.Equal(t, raw, s.Expr)
		})
	}
}

func TestParse_DailyTime(t *testing.T) {
	tests := []struct {
		raw  string
		expr string
	}{
		{"12.30", "30 12 * * *"},
		{"0.0", "0 0 * * *"},
		{"23.59", "59 23 * * *"},
		{"9.05", "5 9 * * *"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			s, err := Parse(tt.raw, time.UTC)
			require.NoError(t, err)
			assert.Equal(t, KindRecurring, s.Kind)
			assert.Equal(t, tt.expr, s.Expr)
		})
	}
}

func TestParse_DailyTimeOutOfRange(t *testing.T) {
	for _, raw := range []string{"24.00", "12.60", "-1.30", "ab.cd"} {
		t.Run(raw, func(t *testing.T) {
			_, err := Parse(raw, time.UTC)
			assert.ErrorIs(t, err, ErrInvalidTime)
		})
	}
}

func TestParse_AbsoluteInstant(t *testing.T) {
	s, err := Parse("24.12.25 18.30", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, KindOneTime, s.Kind)
	assert.Equal(t, time.Date(2025, time.December, 24, 18, 30, 0, 0, time.UTC), s.At)
}

func TestParse_AbsoluteInstantInvalidCalendar(t *testing.T) {
	// 31.02 does not exist; time.Date would normalize it to March.
	for _, raw := range []string{"31.02.25 10.00", "00.01.25 10.00", "15.13.25 10.00", "15.01.25 25.00"} {
		t.Run(raw, func(t *testing.T) {
			_, err := Parse(raw, time.UTC)
			assert.ErrorIs(t, err, ErrInvalidDate)
		})
	}
}

func TestParse_PastInstantSucceeds(t *testing.T) {
	// Parsing a past instant is not an error; refusing to arm it is the
	// scheduler's job.
	s, err := Parse("01.01.01 00.00", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, KindOneTime, s.Kind)
	assert.Negative(t, s.Delay(time.Now()))
}

func TestParse_Rejection(t *testing.T) {
	for _, raw := range []string{"tomorrow", "* * * *", "5m", "every day"} {
		t.Run(raw, func(t *testing.T) {
			_, err := Parse(raw, time.UTC)
			assert.ErrorIs(t, err, ErrInvalidDuration)
		})
	}
}

func TestParse_Idempotent(t *testing.T) {
	for _, raw := range []string{"*/5 * * * *", "12.30", "24.12.25 18.30", ""} {
		first, err1 := Parse(raw, time.UTC)
		second, err2 := Parse(raw, time.UTC)
		require.NoError(t, err1)
		require.NoError(t, err2)
		assert.Equal(t, first, second)
	}
}

func TestSchedule_Delay(t *testing.T) {
	now := time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)
	s := Schedule{Kind: KindOneTime, At: now.Add(90 * time.Minute)}
	assert.Equal(t, 90*time.Minute, s.Delay(now))
}
