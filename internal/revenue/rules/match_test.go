package rules

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/casita-pms/revenueservice/internal/revenue/domain"
)

func TestMatches_Seasonal(t *testing.T) {
	rule := domain.Rule{
		ID:       uuid.New(),
		Category: domain.CategorySeasonal,
		Active:   true,
		Config: domain.RuleConfig{Seasonal: &domain.SeasonalConfig{
			Start: domain.Day(2026, 6, 1),
			End:   domain.Day(2026, 8, 31),
		}},
	}

	today := domain.Day(2026, 5, 1)
	if !Matches(&rule, NewContext(domain.Day(2026, 6, 1), today)) {
		t.Fatal("window start should match")
	}
	if !Matches(&rule, NewContext(domain.Day(2026, 8, 31), today)) {
		t.Fatal("window end should match, bounds are inclusive")
	}
	if Matches(&rule, NewContext(domain.Day(2026, 5, 31), today)) {
		t.Fatal("day before window should not match")
	}
	if Matches(&rule, NewContext(domain.Day(2026, 9, 1), today)) {
		t.Fatal("day after window should not match")
	}
}

func TestMatches_InactiveNeverMatches(t *testing.T) {
	rule := domain.Rule{
		ID:       uuid.New(),
		Category: domain.CategorySeasonal,
		Active:   false,
		Config: domain.RuleConfig{Seasonal: &domain.SeasonalConfig{
			Start: domain.Day(2026, 1, 1),
			End:   domain.Day(2026, 12, 31),
		}},
	}
	if Matches(&rule, NewContext(domain.Day(2026, 7, 1), domain.Day(2026, 6, 1))) {
		t.Fatal("inactive rule matched")
	}
}

func TestMatches_DayOfWeek(t *testing.T) {
	// 2026-07-10 is a Friday.
	date := domain.Day(2026, 7, 10)
	if date.Weekday() != time.Friday {
		t.Fatalf("fixture drifted: expected Friday, got %s", date.Weekday())
	}

	rule := domain.Rule{
		ID:       uuid.New(),
		Category: domain.CategoryDayOfWeek,
		Active:   true,
		Config:   domain.RuleConfig{DayOfWeek: &domain.DayOfWeekConfig{Weekday: time.Friday}},
	}
	today := domain.Day(2026, 7, 1)
	if !Matches(&rule, NewContext(date, today)) {
		t.Fatal("friday rule should match friday")
	}
	if Matches(&rule, NewContext(date.AddDate(0, 0, 1), today)) {
		t.Fatal("friday rule should not match saturday")
	}
}

func TestMatches_LastMinute(t *testing.T) {
	rule := domain.Rule{
		ID:       uuid.New(),
		Category: domain.CategoryLastMinute,
		Active:   true,
		Config:   domain.RuleConfig{LastMinute: &domain.LastMinuteConfig{DaysBefore: 3}},
	}
	today := domain.Day(2026, 7, 1)

	if !Matches(&rule, NewContext(today, today)) {
		t.Fatal("same-day should match")
	}
	if !Matches(&rule, NewContext(today.AddDate(0, 0, 3), today)) {
		t.Fatal("boundary day should match")
	}
	if Matches(&rule, NewContext(today.AddDate(0, 0, 4), today)) {
		t.Fatal("day beyond window should not match")
	}
	if Matches(&rule, NewContext(today.AddDate(0, 0, -1), today)) {
		t.Fatal("past date should not match")
	}
}

func TestMatches_FarOut(t *testing.T) {
	rule := domain.Rule{
		ID:       uuid.New(),
		Category: domain.CategoryFarOut,
		Active:   true,
		Config:   domain.RuleConfig{FarOut: &domain.FarOutConfig{DaysAhead: 90}},
	}
	today := domain.Day(2026, 7, 1)

	if !Matches(&rule, NewContext(today.AddDate(0, 0, 90), today)) {
		t.Fatal("boundary day should match")
	}
	if Matches(&rule, NewContext(today.AddDate(0, 0, 89), today)) {
		t.Fatal("day inside threshold should not match")
	}
}

func TestMatches_OrphanDayNeedsGapSignal(t *testing.T) {
	rule := domain.Rule{
		ID:       uuid.New(),
		Category: domain.CategoryOrphanDay,
		Active:   true,
		Config:   domain.RuleConfig{OrphanDay: &domain.OrphanDayConfig{GapNights: 2}},
	}

	ctx := NewContext(domain.Day(2026, 7, 10), domain.Day(2026, 7, 1))
	if Matches(&rule, ctx) {
		t.Fatal("no gap signal, should not match")
	}

	ctx.GapKnown = true
	ctx.GapNights = 2
	if !Matches(&rule, ctx) {
		t.Fatal("two-night gap should match gap_nights 2")
	}

	ctx.GapNights = 3
	if Matches(&rule, ctx) {
		t.Fatal("three-night gap should not match gap_nights 2")
	}

	// Unreachable reservation data clears GapKnown; rule must sit out.
	ctx.GapKnown = false
	ctx.GapNights = 1
	if Matches(&rule, ctx) {
		t.Fatal("unknown gap signal should never match")
	}
}

func TestMatches_OccupancyThreshold(t *testing.T) {
	rule := domain.Rule{
		ID:       uuid.New(),
		Category: domain.CategoryOccupancy,
		Active:   true,
		Config:   domain.RuleConfig{Occupancy: &domain.OccupancyConfig{Threshold: 0.8}},
	}

	ctx := NewContext(domain.Day(2026, 7, 10), domain.Day(2026, 7, 1))
	ctx.OccupancyKnown = true
	ctx.OccupancyRatio = 0.8
	if !Matches(&rule, ctx) {
		t.Fatal("ratio at threshold should match")
	}

	ctx.OccupancyRatio = 0.79
	if Matches(&rule, ctx) {
		t.Fatal("ratio under threshold should not match")
	}

	ctx.OccupancyKnown = false
	ctx.OccupancyRatio = 1.0
	if Matches(&rule, ctx) {
		t.Fatal("unknown occupancy should never match")
	}
}

func TestMatches_EventMatcher(t *testing.T) {
	start := domain.Day(2026, 7, 3)
	end := domain.Day(2026, 7, 5)
	minOcc := 0.5
	rule := domain.Rule{
		ID:       uuid.New(),
		Category: domain.CategoryEvent,
		Active:   true,
		Config: domain.RuleConfig{Matcher: &domain.Matcher{
			Start:        &start,
			End:          &end,
			Weekdays:     []time.Weekday{time.Friday, time.Saturday},
			MinOccupancy: &minOcc,
		}},
	}

	today := domain.Day(2026, 7, 1)

	// 2026-07-03 is a Friday inside the window.
	ctx := NewContext(domain.Day(2026, 7, 3), today)
	ctx.OccupancyKnown = true
	ctx.OccupancyRatio = 0.6
	if !Matches(&rule, ctx) {
		t.Fatal("all conditions hold, should match")
	}

	// Sunday 07-05 is inside the window but not a listed weekday.
	ctx2 := NewContext(domain.Day(2026, 7, 5), today)
	ctx2.OccupancyKnown = true
	ctx2.OccupancyRatio = 0.6
	if Matches(&rule, ctx2) {
		t.Fatal("weekday condition should fail")
	}

	// Occupancy condition fails when the signal is unavailable.
	ctx3 := NewContext(domain.Day(2026, 7, 3), today)
	if Matches(&rule, ctx3) {
		t.Fatal("missing occupancy signal should fail the matcher")
	}
}

func TestMatches_GenericMatcherDaysAhead(t *testing.T) {
	minAhead, maxAhead := 10, 20
	rule := domain.Rule{
		ID:       uuid.New(),
		Category: domain.CategoryGeneric,
		Active:   true,
		Config: domain.RuleConfig{Matcher: &domain.Matcher{
			MinDaysAhead: &minAhead,
			MaxDaysAhead: &maxAhead,
		}},
	}
	today := domain.Day(2026, 7, 1)

	if !Matches(&rule, NewContext(today.AddDate(0, 0, 10), today)) {
		t.Fatal("lower bound should match")
	}
	if !Matches(&rule, NewContext(today.AddDate(0, 0, 20), today)) {
		t.Fatal("upper bound should match")
	}
	if Matches(&rule, NewContext(today.AddDate(0, 0, 9), today)) {
		t.Fatal("below lower bound should not match")
	}
	if Matches(&rule, NewContext(today.AddDate(0, 0, 21), today)) {
		t.Fatal("above upper bound should not match")
	}
}
