package resolver

import (
	"fmt"
	"math"
	"time"

	"github.com/casita-pms/revenueservice/internal/revenue/domain"
	"github.com/casita-pms/revenueservice/internal/revenue/rules"
)

// Inputs is everything one (unit, date) resolution reads. The caller takes
// these from a consistent snapshot; the resolver itself has no side effects
// and never reads the wall clock.
type Inputs struct {
	Property *domain.Property
	// SmartPrice is the latest successful sync record for (property, date),
	// nil when no usable record exists.
	SmartPrice *domain.SmartPricingSync
	// Rules holds the property's rule set, both scopes, active and inactive.
	Rules []domain.Rule
	// Ctx carries the per-date signals (today reference, gap, occupancy).
	Ctx rules.Context
}

// Meta reports soft conditions observed during a resolution.
type Meta struct {
	// Conflicts lists same-priority ties resolved by id tie-break.
	Conflicts []rules.Conflict
	// SmartPricingStale is set when smart pricing is enabled for the
	// property but no usable sync record covered the date.
	SmartPricingStale bool
}

// Resolve computes the final price and minimum stay for one (unit, date).
//
// The base price comes from the unit's pricing mode: inheriting units start
// from the property's smart-or-static price adjusted by their modifier,
// overriding units from their custom base. Matching rules then compose in
// priority order: percent adjustments multiply the running price, fixed
// adjustments add to it. The result is clamped into the unit's configured
// band.
func Resolve(unit *domain.Unit, date time.Time, in Inputs) (domain.ResolvedPrice, Meta, error) {
	var meta Meta
	if in.Property == nil || unit.PropertyID != in.Property.ID {
		return domain.ResolvedPrice{}, meta, domain.NewConfigurationError(
			"unit does not belong to the resolved property", unit.ID.String())
	}

	base, source, stale, err := basePrice(unit, in)
	if err != nil {
		return domain.ResolvedPrice{}, meta, err
	}
	meta.SmartPricingStale = stale

	winners, conflicts := rules.Select(in.Rules, unit.ID, in.Ctx)
	meta.Conflicts = conflicts

	running := float64(base)
	var breakdown domain.Breakdown
	applied := make([]domain.AppliedRule, 0, len(winners))
	minNights := unit.DefaultMinNights
	if minNights < 1 {
		minNights = 1
	}
	reduceMinStay := false

	for i := range winners {
		r := &winners[i]
		before := running
		switch r.AdjustmentType {
		case domain.AdjustPercent:
			running *= 1 + r.AdjustmentValue/100
		case domain.AdjustFixed:
			running += r.AdjustmentValue
		}
		// Deltas telescope: summing them reproduces adjusted - base exactly.
		delta := round(running) - round(before)
		breakdown.Set(r.Category, delta)
		applied = append(applied, domain.AppliedRule{RuleID: r.ID, Category: r.Category, Delta: delta})

		if r.MinNights > minNights {
			minNights = r.MinNights
		}
		if r.Category == domain.CategoryOrphanDay && r.ReduceMinStay {
			reduceMinStay = true
		}
	}

	// An orphan-day winner that reduces min stay pins the night to 1 so the
	// gap can actually sell.
	if reduceMinStay {
		minNights = 1
	}

	adjusted := base + breakdown.Total()
	final := clamp(adjusted, unit, in.Property)

	return domain.ResolvedPrice{
		BasePrice:     base,
		Breakdown:     breakdown,
		AdjustedPrice: adjusted,
		FinalPrice:    final,
		MinNights:     minNights,
		Source:        source,
		Applied:       applied,
	}, meta, nil
}

// basePrice resolves the pre-adjustment nightly price and its provenance.
func basePrice(unit *domain.Unit, in Inputs) (int64, domain.PriceSource, bool, error) {
	if !unit.InheritParentPricing {
		if unit.CustomBasePrice <= 0 {
			return 0, "", false, domain.NewConfigurationError(
				"unit overrides parent pricing but has no custom base price", unit.ID.String())
		}
		return unit.CustomBasePrice, domain.SourceRule, false, nil
	}

	parent := in.Property.BasePrice
	source := domain.SourceRule
	stale := false
	if in.Property.SmartPricingEnabled {
		if in.SmartPrice != nil && in.SmartPrice.Usable() {
			parent = in.SmartPrice.Price
			source = domain.SourceSmartPricing
		} else {
			// Soft condition: fall back to the static base price.
			stale = true
		}
	}
	if parent <= 0 {
		return 0, "", stale, domain.NewConfigurationError(
			"no resolvable base price for inheriting unit",
			fmt.Sprintf("unit %s property %s", unit.ID, unit.PropertyID))
	}

	switch unit.PriceModifierType {
	case domain.ModifierPercent, "":
		return round(float64(parent) * (1 + unit.PriceModifier/100)), source, stale, nil
	case domain.ModifierFixed:
		return parent + round(unit.PriceModifier), source, stale, nil
	default:
		return 0, "", stale, domain.NewConfigurationError(
			"invalid price modifier type", string(unit.PriceModifierType))
	}
}

// clamp bounds the final price into the unit's effective band. A zero bound
// is treated as unconfigured. The final price is never negative.
func clamp(price int64, unit *domain.Unit, p *domain.Property) int64 {
	min, max := unit.PriceBounds(p)
	if min > 0 && price < min {
		price = min
	}
	if max > 0 && price > max {
		price = max
	}
	if price < 0 {
		price = 0
	}
	return price
}

func round(v float64) int64 {
	return int64(math.Round(v))
}
