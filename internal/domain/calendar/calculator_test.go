package calendar_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saludplena/claims-engine/internal/domain/calendar"
)

// Fixed test week: Monday 2026-03-02 through Monday 2026-03-09.
// Wednesday 2026-03-04 is declared a holiday.
var (
	monday    = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	tuesday   = monday.AddDate(0, 0, 1)
	wednesday = monday.AddDate(0, 0, 2) // holiday
	thursday  = monday.AddDate(0, 0, 3)
	friday    = monday.AddDate(0, 0, 4)
	saturday  = monday.AddDate(0, 0, 5)
	sunday    = monday.AddDate(0, 0, 6)
	nextMon   = monday.AddDate(0, 0, 7)
)

func fixedSource(t *testing.T, holidays ...string) calendar.HolidaySource {
	t.Helper()
	set, err := calendar.NewDateSet(holidays...)
	require.NoError(t, err)
	return calendar.HolidaySourceFunc(func(_ context.Context, _ int) (calendar.DateSet, error) {
		return set, nil
	})
}

func newTestCalculator(t *testing.T, holidays ...string) *calendar.Calculator {
	t.Helper()
	calc, err := calendar.NewCalculator(fixedSource(t, holidays...), true)
	require.NoError(t, err)
	return calc
}

func TestNewCalculator_NilSourceRejected(t *testing.T) {
	t.Parallel()

	_, err := calendar.NewCalculator(nil, true)
	assert.Error(t, err)
}

func TestIsBusinessDay(t *testing.T) {
	t.Parallel()

	calc := newTestCalculator(t, "2026-03-04")
	ctx := context.Background()

	cases := []struct {
		name string
		day  time.Time
		want bool
	}{
		{"regular weekday", monday, true},
		{"declared holiday", wednesday, false},
		{"saturday", saturday, false},
		{"sunday", sunday, false},
		{"weekday after holiday", thursday, true},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := calc.IsBusinessDay(ctx, tc.day)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestIsBusinessDay_WeekendsAllowed(t *testing.T) {
	t.Parallel()

	calc, err := calendar.NewCalculator(fixedSource(t, "2026-03-04"), false)
	require.NoError(t, err)

	got, err := calc.IsBusinessDay(context.Background(), saturday)
	require.NoError(t, err)
	assert.True(t, got, "saturday counts when weekend skipping is disabled")

	got, err = calc.IsBusinessDay(context.Background(), wednesday)
	require.NoError(t, err)
	assert.False(t, got, "holidays are excluded regardless of weekend setting")
}

func TestElapsedBusinessHours_NowBeforeStart(t *testing.T) {
	t.Parallel()

	calc := newTestCalculator(t)
	got, err := calc.ElapsedBusinessHours(context.Background(), tuesday, monday)
	require.NoError(t, err)
	assert.Equal(t, 0, got)
}

func TestElapsedBusinessHours_SameInstant(t *testing.T) {
	t.Parallel()

	calc := newTestCalculator(t)
	got, err := calc.ElapsedBusinessHours(context.Background(), monday, monday)
	require.NoError(t, err)
	assert.Equal(t, 0, got)
}

func TestElapsedBusinessHours_PlainWeekday(t *testing.T) {
	t.Parallel()

	calc := newTestCalculator(t, "2026-03-04")
	start := monday.Add(10 * time.Hour)
	now := tuesday.Add(10 * time.Hour)

	got, err := calc.ElapsedBusinessHours(context.Background(), start, now)
	require.NoError(t, err)
	assert.Equal(t, 24, got)
}

func TestElapsedBusinessHours_HolidayHoursDoNotCount(t *testing.T) {
	t.Parallel()

	calc := newTestCalculator(t, "2026-03-04")
	start := tuesday.Add(23 * time.Hour)
	now := thursday.Add(1 * time.Hour)

	// One hour on Tuesday, zero on the Wednesday holiday, one on Thursday.
	got, err := calc.ElapsedBusinessHours(context.Background(), start, now)
	require.NoError(t, err)
	assert.Equal(t, 2, got)
}

func TestElapsedBusinessHours_WeekendHoursDoNotCount(t *testing.T) {
	t.Parallel()

	calc := newTestCalculator(t)
	start := friday.Add(20 * time.Hour)
	now := nextMon.Add(4 * time.Hour)

	// Four hours on Friday night plus four on Monday morning.
	got, err := calc.ElapsedBusinessHours(context.Background(), start, now)
	require.NoError(t, err)
	assert.Equal(t, 8, got)
}

func TestElapsedBusinessHours_PartialHourNotCounted(t *testing.T) {
	t.Parallel()

	calc := newTestCalculator(t)
	start := monday.Add(10 * time.Hour)
	now := start.Add(90 * time.Minute)

	got, err := calc.ElapsedBusinessHours(context.Background(), start, now)
	require.NoError(t, err)
	assert.Equal(t, 1, got, "only whole elapsed hours count")
}

func TestAddBusinessHours_ZeroReturnsStart(t *testing.T) {
	t.Parallel()

	calc := newTestCalculator(t)
	start := monday.Add(10 * time.Hour)
	got, err := calc.AddBusinessHours(context.Background(), start, 0)
	require.NoError(t, err)
	assert.True(t, got.Equal(start))
}

func TestAddBusinessHours_NegativeRejected(t *testing.T) {
	t.Parallel()

	calc := newTestCalculator(t)
	_, err := calc.AddBusinessHours(context.Background(), monday, -1)
	assert.Error(t, err)
}

func TestAddBusinessHours_SkipsHoliday(t *testing.T) {
	t.Parallel()

	calc := newTestCalculator(t, "2026-03-04")
	start := tuesday.Add(23 * time.Hour)

	got, err := calc.AddBusinessHours(context.Background(), start, 2)
	require.NoError(t, err)
	assert.True(t, got.Equal(thursday.Add(1*time.Hour)),
		"expected %v, got %v", thursday.Add(1*time.Hour), got)
}

func TestAddBusinessHours_SkipsWeekend(t *testing.T) {
	t.Parallel()

	calc := newTestCalculator(t)
	start := friday.Add(20 * time.Hour)

	got, err := calc.AddBusinessHours(context.Background(), start, 8)
	require.NoError(t, err)
	assert.True(t, got.Equal(nextMon.Add(4*time.Hour)),
		"expected %v, got %v", nextMon.Add(4*time.Hour), got)
}

func TestAddBusinessHours_PreservesMinuteOffset(t *testing.T) {
	t.Parallel()

	calc := newTestCalculator(t)
	start := monday.Add(10*time.Hour + 30*time.Minute)

	got, err := calc.AddBusinessHours(context.Background(), start, 3)
	require.NoError(t, err)
	assert.Equal(t, 30, got.Minute())
}

// The deadline computation and the elapsed computation must be exact inverses:
// whatever budget AddBusinessHours consumes, ElapsedBusinessHours measures
// back from the same start.
func TestBusinessHours_RoundTrip(t *testing.T) {
	t.Parallel()

	calc := newTestCalculator(t, "2026-03-04", "2026-03-05")
	ctx := context.Background()

	starts := []time.Time{
		monday.Add(9 * time.Hour),
		tuesday.Add(22*time.Hour + 15*time.Minute),
		friday.Add(17 * time.Hour),
		saturday.Add(3 * time.Hour),
	}

	for _, start := range starts {
		for hours := 0; hours <= 60; hours += 7 {
			deadline, err := calc.AddBusinessHours(ctx, start, hours)
			require.NoError(t, err)

			elapsed, err := calc.ElapsedBusinessHours(ctx, start, deadline)
			require.NoError(t, err)
			assert.Equal(t, hours, elapsed,
				"round trip mismatch for start=%v hours=%d deadline=%v", start, hours, deadline)
		}
	}
}

func TestBusinessDaysBetween_InclusiveRange(t *testing.T) {
	t.Parallel()

	calc := newTestCalculator(t, "2026-03-04")
	// Monday through Sunday: Mon, Tue, Thu, Fri count; Wed is a holiday.
	got, err := calc.BusinessDaysBetween(context.Background(), monday, sunday)
	require.NoError(t, err)
	assert.Equal(t, 4, got)
}

func TestBusinessDaysBetween_SingleDay(t *testing.T) {
	t.Parallel()

	calc := newTestCalculator(t)
	got, err := calc.BusinessDaysBetween(context.Background(), monday, monday)
	require.NoError(t, err)
	assert.Equal(t, 1, got)
}

func TestBusinessDaysBetween_ReversedRangeRejected(t *testing.T) {
	t.Parallel()

	calc := newTestCalculator(t)
	_, err := calc.BusinessDaysBetween(context.Background(), tuesday, monday)
	assert.Error(t, err)
}
