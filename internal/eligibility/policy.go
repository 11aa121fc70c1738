// Package eligibility decides which stock records may be disposed of and why.
// Evaluate is pure: callers load the records, batches and locations first.
package eligibility

import (
	"time"

	"fishfarm-backend/internal/apperr"
)

// Policy selects disposal candidates.
//
// MinAgeDays 0 disables the age filter. MaxAgeDays closes the range only when it
// is greater than MinAgeDays. FromDate/ToDate replace the age test: records
// processed outside the range are dropped whatever their storage state.
// InactiveStorageOnly ignores age and keeps only records whose storage is
// missing, unresolvable or not active.
type Policy struct {
	MinAgeDays          int        `json:"min_age_days"`
	MaxAgeDays          *int       `json:"max_age_days"`
	InactiveStorageOnly bool       `json:"inactive_storage_only"`
	FromDate            *time.Time `json:"from_date"`
	ToDate              *time.Time `json:"to_date"`
}

// Validate checks the bounds. loc must be the zone the evaluation's "today"
// is in, so from/to are ordered by the same calendar dates the filter uses.
func (p Policy) Validate(loc *time.Location) error {
	if p.MinAgeDays < 0 {
		return apperr.Validation("min_age_days must not be negative")
	}
	if p.MaxAgeDays != nil && *p.MaxAgeDays < 0 {
		return apperr.Validation("max_age_days must not be negative")
	}
	if p.FromDate != nil && p.ToDate != nil && dateOf(*p.ToDate, loc).Before(dateOf(*p.FromDate, loc)) {
		return apperr.Validation("to date is before from date")
	}
	return nil
}

func (p Policy) hasDateRange() bool {
	return p.FromDate != nil || p.ToDate != nil
}

// ageEligible applies the age test to a record stored for days days.
func (p Policy) ageEligible(days int) bool {
	if p.MinAgeDays == 0 {
		return true
	}
	if p.MaxAgeDays != nil && *p.MaxAgeDays > p.MinAgeDays {
		return days >= p.MinAgeDays && days <= *p.MaxAgeDays
	}
	return days >= p.MinAgeDays
}

// inDateRange compares calendar dates, both bounds inclusive; a missing bound
// is open.
func (p Policy) inDateRange(processed time.Time, loc *time.Location) bool {
	d := dateOf(processed, loc)
	if p.FromDate != nil && d.Before(dateOf(*p.FromDate, loc)) {
		return false
	}
	if p.ToDate != nil && d.After(dateOf(*p.ToDate, loc)) {
		return false
	}
	return true
}

// dateOf strips the clock from t as seen in loc.
func dateOf(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween counts calendar days from processed to today in today's zone.
func DaysBetween(processed, today time.Time) int {
	loc := today.Location()
	return int(dateOf(today, loc).Sub(dateOf(processed, loc)).Hours() / 24)
}
