// Package calendar implements holiday-aware business-time arithmetic.  It is
// the timekeeping core of the claims engine: every escalation threshold and
// quotation deadline is expressed in business hours computed here.
package calendar

import (
	"time"

	"github.com/saludplena/claims-engine/pkg/errors"
)

// DateLayout is the canonical date-only format used for holiday keys.
const DateLayout = "2006-01-02"

// ─────────────────────────────────────────────────────────────────────────────
// DateSet value object
// ─────────────────────────────────────────────────────────────────────────────

// DateSet is an immutable set of calendar dates keyed by their DateLayout
// representation.  A nil DateSet is valid and behaves as an empty set, which
// lets holiday lookups degrade gracefully when the external feed is down.
type DateSet map[string]struct{}

// NewDateSet builds a DateSet from date strings in DateLayout format.
// Strings that do not parse are rejected.
func NewDateSet(dates ...string) (DateSet, error) {
	set := make(DateSet, len(dates))
	for _, d := range dates {
		if _, err := time.Parse(DateLayout, d); err != nil {
			return nil, errors.InvalidParam("date must be in YYYY-MM-DD format").
				WithDetail("got=" + d)
		}
		set[d] = struct{}{}
	}
	return set, nil
}

// NewDateSetFromTimes builds a DateSet from time.Time values, keeping only
// their UTC calendar dates.
func NewDateSetFromTimes(times ...time.Time) DateSet {
	set := make(DateSet, len(times))
	for _, t := range times {
		set[t.UTC().Format(DateLayout)] = struct{}{}
	}
	return set
}

// Contains reports whether the UTC calendar date of t is in the set.
func (s DateSet) Contains(t time.Time) bool {
	if s == nil {
		return false
	}
	_, ok := s[t.UTC().Format(DateLayout)]
	return ok
}

// Len returns the number of dates in the set.
func (s DateSet) Len() int { return len(s) }

// Merge returns a new DateSet containing the union of s and other.
// Neither receiver nor argument is mutated.
func (s DateSet) Merge(other DateSet) DateSet {
	merged := make(DateSet, len(s)+len(other))
	for d := range s {
		merged[d] = struct{}{}
	}
	for d := range other {
		merged[d] = struct{}{}
	}
	return merged
}
