package rules

import (
	"time"

	"github.com/casita-pms/revenueservice/internal/revenue/domain"
)

// Context carries the per-date signals rule predicates evaluate against.
// Today is always supplied by the caller; nothing here reads the wall clock.
type Context struct {
	Date  time.Time
	Today time.Time

	// DaysUntilCheckIn drives last-minute rules. For speculative availability
	// it is the distance from Today to Date.
	DaysUntilCheckIn int
	// DaysInAdvance is Date - Today, driving far-out rules.
	DaysInAdvance int

	// Gap signals from the availability analyzer. GapKnown is false when
	// reservation data was unreachable; orphan-day rules then never match.
	GapNights int
	GapKnown  bool

	// Occupancy signals. OccupancyKnown is false when the data source was
	// unreachable or the property has no active units.
	OccupancyRatio float64
	OccupancyKnown bool
}

// NewContext derives the date-arithmetic signals for a (date, today) pair.
// Gap and occupancy fields are filled in by the caller from the analyzer.
func NewContext(date, today time.Time) Context {
	ahead := domain.DaysBetween(today, date)
	return Context{
		Date:             domain.Midnight(date),
		Today:            domain.Midnight(today),
		DaysUntilCheckIn: ahead,
		DaysInAdvance:    ahead,
	}
}

// Matches evaluates the rule's activation predicate for the context. Inactive
// rules never match. The switch is exhaustive over domain.Categories.
func Matches(r *domain.Rule, ctx Context) bool {
	if !r.Active {
		return false
	}
	switch r.Category {
	case domain.CategorySeasonal:
		c := r.Config.Seasonal
		if c == nil {
			return false
		}
		d := ctx.Date
		return !d.Before(domain.Midnight(c.Start)) && !d.After(domain.Midnight(c.End))
	case domain.CategoryDayOfWeek:
		c := r.Config.DayOfWeek
		return c != nil && ctx.Date.Weekday() == c.Weekday
	case domain.CategoryLastMinute:
		c := r.Config.LastMinute
		return c != nil && ctx.DaysUntilCheckIn >= 0 && ctx.DaysUntilCheckIn <= c.DaysBefore
	case domain.CategoryFarOut:
		c := r.Config.FarOut
		return c != nil && ctx.DaysInAdvance >= c.DaysAhead
	case domain.CategoryOrphanDay:
		c := r.Config.OrphanDay
		return c != nil && ctx.GapKnown && ctx.GapNights > 0 && ctx.GapNights <= c.GapNights
	case domain.CategoryOccupancy:
		c := r.Config.Occupancy
		return c != nil && ctx.OccupancyKnown && ctx.OccupancyRatio >= c.Threshold
	case domain.CategoryEvent, domain.CategoryGeneric:
		return matchesMatcher(r.Config.Matcher, ctx)
	}
	return false
}

func matchesMatcher(m *domain.Matcher, ctx Context) bool {
	if m == nil {
		return false
	}
	if m.Start != nil && ctx.Date.Before(domain.Midnight(*m.Start)) {
		return false
	}
	if m.End != nil && ctx.Date.After(domain.Midnight(*m.End)) {
		return false
	}
	if len(m.Weekdays) > 0 {
		found := false
		for _, wd := range m.Weekdays {
			if ctx.Date.Weekday() == wd {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if m.MinOccupancy != nil {
		if !ctx.OccupancyKnown || ctx.OccupancyRatio < *m.MinOccupancy {
			return false
		}
	}
	if m.MinDaysAhead != nil && ctx.DaysInAdvance < *m.MinDaysAhead {
		return false
	}
	if m.MaxDaysAhead != nil && ctx.DaysInAdvance > *m.MaxDaysAhead {
		return false
	}
	return true
}
