package calendar

import (
	"context"
	"time"

	"github.com/saludplena/claims-engine/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// HolidaySource port
// ─────────────────────────────────────────────────────────────────────────────

// HolidaySource supplies the public-holiday dates for a calendar year.
// Implementations live in the infrastructure layer (HTTP feed with caching);
// the domain only depends on this port.
//
// A source that cannot resolve holidays for a year should return an empty
// DateSet rather than an error whenever a degraded answer is acceptable:
// business-time arithmetic then treats every weekday of that year as a
// business day, which over-counts elapsed time but never blocks processing.
type HolidaySource interface {
	Holidays(ctx context.Context, year int) (DateSet, error)
}

// HolidaySourceFunc adapts a plain function to the HolidaySource interface.
type HolidaySourceFunc func(ctx context.Context, year int) (DateSet, error)

// Holidays implements HolidaySource.
func (f HolidaySourceFunc) Holidays(ctx context.Context, year int) (DateSet, error) {
	return f(ctx, year)
}

// ─────────────────────────────────────────────────────────────────────────────
// Calculator
// ─────────────────────────────────────────────────────────────────────────────

// Calculator performs holiday-aware business-time arithmetic.  All methods
// normalise their inputs to UTC; callers may pass timestamps in any location.
//
// A business hour is a clock hour whose starting instant falls on a business
// day: a day that is neither a configured holiday nor, when weekend skipping
// is enabled, a Saturday or Sunday.  Minutes and seconds within the hour are
// preserved, so a window opened at 10:30 advances at 11:30, 12:30 and so on.
type Calculator struct {
	source       HolidaySource
	skipWeekends bool
}

// NewCalculator constructs a Calculator.
//
// Business rules:
//   - source must not be nil; use a HolidaySourceFunc returning an empty
//     DateSet to run without holiday data.
func NewCalculator(source HolidaySource, skipWeekends bool) (*Calculator, error) {
	if source == nil {
		return nil, errors.InvalidParam("holiday source must not be nil")
	}
	return &Calculator{source: source, skipWeekends: skipWeekends}, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Query methods
// ─────────────────────────────────────────────────────────────────────────────

// IsBusinessDay reports whether the UTC calendar date of t counts as a
// business day.
func (c *Calculator) IsBusinessDay(ctx context.Context, t time.Time) (bool, error) {
	t = t.UTC()

	if c.skipWeekends {
		switch t.Weekday() {
		case time.Saturday, time.Sunday:
			return false, nil
		}
	}

	holidays, err := c.source.Holidays(ctx, t.Year())
	if err != nil {
		return false, errors.Wrap(err, errors.ErrCodeHolidayFetchFailed, "failed to resolve holidays")
	}
	return !holidays.Contains(t), nil
}

// ElapsedBusinessHours returns the number of whole business hours between
// start and now.  Each counted hour is a step [t, t+1h] whose start t falls
// on a business day and whose end does not exceed now.  When now precedes
// start the result is 0.
//
// The function is the exact inverse of AddBusinessHours:
//
//	elapsed, _ := c.ElapsedBusinessHours(ctx, start, deadline)
//	// elapsed == h  whenever  deadline, _ = c.AddBusinessHours(ctx, start, h)
func (c *Calculator) ElapsedBusinessHours(ctx context.Context, start, now time.Time) (int, error) {
	start = start.UTC()
	now = now.UTC()

	if !now.After(start) {
		return 0, nil
	}

	elapsed := 0
	for t := start; !t.Add(time.Hour).After(now); t = t.Add(time.Hour) {
		ok, err := c.IsBusinessDay(ctx, t)
		if err != nil {
			return 0, err
		}
		if ok {
			elapsed++
		}
	}
	return elapsed, nil
}

// AddBusinessHours returns the instant at which a budget of business hours,
// started at start, is exhausted.  Hours whose starting instant falls on a
// non-business day do not consume budget; the clock simply advances past
// them.  A budget of 0 returns start unchanged.
func (c *Calculator) AddBusinessHours(ctx context.Context, start time.Time, hours int) (time.Time, error) {
	if hours < 0 {
		return time.Time{}, errors.New(errors.ErrCodeCalendarRangeInvalid, "business hours must not be negative")
	}

	t := start.UTC()
	budget := hours
	for budget > 0 {
		ok, err := c.IsBusinessDay(ctx, t)
		if err != nil {
			return time.Time{}, err
		}
		if ok {
			budget--
		}
		t = t.Add(time.Hour)
	}
	return t, nil
}

// BusinessDaysBetween counts the business days between from and to, both
// calendar dates inclusive.  Returns an error when to precedes from.
func (c *Calculator) BusinessDaysBetween(ctx context.Context, from, to time.Time) (int, error) {
	from = from.UTC().Truncate(24 * time.Hour)
	to = to.UTC().Truncate(24 * time.Hour)

	if to.Before(from) {
		return 0, errors.New(errors.ErrCodeCalendarRangeInvalid, "range end precedes range start")
	}

	days := 0
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		ok, err := c.IsBusinessDay(ctx, d)
		if err != nil {
			return 0, err
		}
		if ok {
			days++
		}
	}
	return days, nil
}
