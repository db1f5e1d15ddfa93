package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RuleCategory identifies the rule variant. Categories are single-winner:
// at most one rule per category contributes to a resolved price, while
// different categories compose.
type RuleCategory string

const (
	CategorySeasonal   RuleCategory = "seasonal"
	CategoryDayOfWeek  RuleCategory = "day_of_week"
	CategoryLastMinute RuleCategory = "last_minute"
	CategoryFarOut     RuleCategory = "far_out"
	CategoryOrphanDay  RuleCategory = "orphan_day"
	CategoryOccupancy  RuleCategory = "occupancy"
	CategoryEvent      RuleCategory = "event"
	CategoryGeneric    RuleCategory = "generic"
)

// Categories lists every rule category in breakdown order.
var Categories = []RuleCategory{
	CategorySeasonal,
	CategoryDayOfWeek,
	CategoryLastMinute,
	CategoryFarOut,
	CategoryOrphanDay,
	CategoryOccupancy,
	CategoryEvent,
	CategoryGeneric,
}

// AdjustmentType describes how a rule's value modifies the running price.
type AdjustmentType string

const (
	// AdjustPercent multiplies the running price by (1 + value/100).
	AdjustPercent AdjustmentType = "percent"
	// AdjustFixed adds the literal value (cents) to the running price.
	AdjustFixed AdjustmentType = "fixed"
)

// Rule is a pricing adjustment scoped to a property and optionally narrowed
// to a single unit (UnitID != uuid.Nil). A unit-scoped rule shadows
// property-wide rules of the same category.
type Rule struct {
	ID              uuid.UUID      `json:"id"`
	PropertyID      uuid.UUID      `json:"property_id"`
	UnitID          uuid.UUID      `json:"unit_id,omitempty"` // uuid.Nil = property-wide
	Name            string         `json:"name"`
	Category        RuleCategory   `json:"category"`
	AdjustmentType  AdjustmentType `json:"adjustment_type"`
	AdjustmentValue float64        `json:"adjustment_value"` // signed; negative = discount
	Priority        int            `json:"priority"`         // lower applies first
	MinNights       int            `json:"min_nights"`       // 0 = unspecified
	ReduceMinStay   bool           `json:"reduce_min_stay"`  // orphan-day only
	Active          bool           `json:"active"`
	Config          RuleConfig     `json:"config"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// UnitScoped reports whether the rule targets a single unit.
func (r *Rule) UnitScoped() bool {
	return r.UnitID != uuid.Nil
}

// RuleConfig is the discriminated activation predicate: exactly one pointer
// is set, and it must agree with the rule's Category. This replaces the
// free-form conditions document the upstream schema carried.
type RuleConfig struct {
	Seasonal   *SeasonalConfig   `json:"seasonal,omitempty"`
	DayOfWeek  *DayOfWeekConfig  `json:"day_of_week,omitempty"`
	LastMinute *LastMinuteConfig `json:"last_minute,omitempty"`
	FarOut     *FarOutConfig     `json:"far_out,omitempty"`
	OrphanDay  *OrphanDayConfig  `json:"orphan_day,omitempty"`
	Occupancy  *OccupancyConfig  `json:"occupancy,omitempty"`
	Matcher    *Matcher          `json:"matcher,omitempty"` // event and generic rules
}

// SeasonalConfig activates within an inclusive date window.
type SeasonalConfig struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// DayOfWeekConfig activates on one weekday.
type DayOfWeekConfig struct {
	Weekday time.Weekday `json:"weekday"`
}

// LastMinuteConfig activates when check-in is at most DaysBefore days away.
type LastMinuteConfig struct {
	DaysBefore int `json:"days_before"`
}

// FarOutConfig activates when the stay date is at least DaysAhead days out.
type FarOutConfig struct {
	DaysAhead int `json:"days_ahead"`
}

// OrphanDayConfig activates on gap pockets of at most GapNights free nights.
type OrphanDayConfig struct {
	GapNights int `json:"gap_nights"`
}

// OccupancyConfig activates when the property occupancy ratio reaches
// Threshold (0..1).
type OccupancyConfig struct {
	Threshold float64 `json:"threshold"`
}

// Matcher is the structured predicate for event and generic rules. All set
// conditions must hold for the rule to match.
type Matcher struct {
	Start        *time.Time     `json:"start,omitempty"`
	End          *time.Time     `json:"end,omitempty"`
	Weekdays     []time.Weekday `json:"weekdays,omitempty"`
	MinOccupancy *float64       `json:"min_occupancy,omitempty"`
	MinDaysAhead *int           `json:"min_days_ahead,omitempty"`
	MaxDaysAhead *int           `json:"max_days_ahead,omitempty"`
}

// Validate checks the rule is well formed: recognized category and type,
// and a config that matches the category. Called at write time so matching
// never has to guess shapes.
func (r *Rule) Validate() error {
	switch r.AdjustmentType {
	case AdjustPercent, AdjustFixed:
	default:
		return NewInvalidInputError("invalid adjustment type", string(r.AdjustmentType))
	}
	if r.AdjustmentType == AdjustPercent && r.AdjustmentValue <= -100 {
		return NewInvalidInputError("percent adjustment at or below -100", fmt.Sprintf("%.2f", r.AdjustmentValue))
	}
	if r.MinNights < 0 {
		return NewInvalidInputError("min_nights must be non-negative", "")
	}
	if r.ReduceMinStay && r.Category != CategoryOrphanDay {
		return NewInvalidInputError("reduce_min_stay only applies to orphan_day rules", string(r.Category))
	}
	if n := r.Config.count(); n != 1 {
		return NewInvalidInputError("rule config must set exactly one variant", fmt.Sprintf("%d set", n))
	}
	switch r.Category {
	case CategorySeasonal:
		c := r.Config.Seasonal
		if c == nil {
			return configMismatch(r.Category)
		}
		if c.End.Before(c.Start) {
			return NewInvalidInputError("seasonal window end precedes start", "")
		}
	case CategoryDayOfWeek:
		c := r.Config.DayOfWeek
		if c == nil {
			return configMismatch(r.Category)
		}
		if c.Weekday < time.Sunday || c.Weekday > time.Saturday {
			return NewInvalidInputError("invalid weekday", fmt.Sprintf("%d", c.Weekday))
		}
	case CategoryLastMinute:
		c := r.Config.LastMinute
		if c == nil {
			return configMismatch(r.Category)
		}
		if c.DaysBefore < 0 {
			return NewInvalidInputError("days_before must be non-negative", "")
		}
	case CategoryFarOut:
		c := r.Config.FarOut
		if c == nil {
			return configMismatch(r.Category)
		}
		if c.DaysAhead < 0 {
			return NewInvalidInputError("days_ahead must be non-negative", "")
		}
	case CategoryOrphanDay:
		c := r.Config.OrphanDay
		if c == nil {
			return configMismatch(r.Category)
		}
		if c.GapNights < 1 {
			return NewInvalidInputError("gap_nights must be at least 1", "")
		}
	case CategoryOccupancy:
		c := r.Config.Occupancy
		if c == nil {
			return configMismatch(r.Category)
		}
		if c.Threshold < 0 || c.Threshold > 1 {
			return NewInvalidInputError("occupancy threshold must be within [0,1]", fmt.Sprintf("%.2f", c.Threshold))
		}
	case CategoryEvent, CategoryGeneric:
		c := r.Config.Matcher
		if c == nil {
			return configMismatch(r.Category)
		}
		if c.Start != nil && c.End != nil && c.End.Before(*c.Start) {
			return NewInvalidInputError("matcher window end precedes start", "")
		}
		if c.MinOccupancy != nil && (*c.MinOccupancy < 0 || *c.MinOccupancy > 1) {
			return NewInvalidInputError("matcher min_occupancy must be within [0,1]", "")
		}
	default:
		return NewInvalidInputError("unknown rule category", string(r.Category))
	}
	return nil
}

func (c *RuleConfig) count() int {
	n := 0
	if c.Seasonal != nil {
		n++
	}
	if c.DayOfWeek != nil {
		n++
	}
	if c.LastMinute != nil {
		n++
	}
	if c.FarOut != nil {
		n++
	}
	if c.OrphanDay != nil {
		n++
	}
	if c.Occupancy != nil {
		n++
	}
	if c.Matcher != nil {
		n++
	}
	return n
}

func configMismatch(cat RuleCategory) error {
	return NewInvalidInputError("rule config does not match category", string(cat))
}
