package domain

import (
	"time"

	"github.com/google/uuid"
)

// ModifierType describes how a unit's price modifier is applied to the
// parent property price.
type ModifierType string

const (
	ModifierPercent ModifierType = "percent"
	ModifierFixed   ModifierType = "fixed"
)

// PriceSource tags the provenance of a calendar entry's final price.
type PriceSource string

const (
	SourceSmartPricing PriceSource = "smart_pricing"
	SourceRule         PriceSource = "rule"
	SourceManual       PriceSource = "manual"
)

// Property is the root pricing scope. All prices are in cents.
type Property struct {
	ID                  uuid.UUID `json:"id"`
	Name                string    `json:"name"`
	Currency            string    `json:"currency"`
	BasePrice           int64     `json:"base_price"`
	MinPrice            int64     `json:"min_price"` // 0 = unset
	MaxPrice            int64     `json:"max_price"` // 0 = unset
	SmartPricingEnabled bool      `json:"smart_pricing_enabled"`
	Active              bool      `json:"active"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// Validate checks the price band invariant: min <= base <= max when set.
func (p *Property) Validate() error {
	if p.Name == "" {
		return NewInvalidInputError("property name is required", "")
	}
	if p.BasePrice < 0 || p.MinPrice < 0 || p.MaxPrice < 0 {
		return NewInvalidInputError("prices must be non-negative", "")
	}
	if p.MinPrice > 0 && p.BasePrice > 0 && p.MinPrice > p.BasePrice {
		return NewInvalidInputError("min_price exceeds base_price", "")
	}
	if p.MaxPrice > 0 && p.BasePrice > p.MaxPrice {
		return NewInvalidInputError("base_price exceeds max_price", "")
	}
	if p.MinPrice > 0 && p.MaxPrice > 0 && p.MinPrice > p.MaxPrice {
		return NewInvalidInputError("min_price exceeds max_price", "")
	}
	return nil
}

// Unit is a child listing under a property. It either inherits the parent
// price (adjusted by the modifier) or carries its own custom band; the custom
// fields are ignored while InheritParentPricing is true.
type Unit struct {
	ID                   uuid.UUID    `json:"id"`
	PropertyID           uuid.UUID    `json:"property_id"`
	Name                 string       `json:"name"`
	InheritParentPricing bool         `json:"inherit_parent_pricing"`
	PriceModifier        float64      `json:"price_modifier"` // percent points, or cents for fixed
	PriceModifierType    ModifierType `json:"price_modifier_type"`
	CustomBasePrice      int64        `json:"custom_base_price"`
	CustomMinPrice       int64        `json:"custom_min_price"`
	CustomMaxPrice       int64        `json:"custom_max_price"`
	DefaultMinNights     int          `json:"default_min_nights"`
	Active               bool         `json:"active"`
	CreatedAt            time.Time    `json:"created_at"`
	UpdatedAt            time.Time    `json:"updated_at"`
}

// PriceBounds returns the effective clamp band for the unit. Inheriting units
// use the property band; overriding units use their own. A zero bound means
// "not configured".
func (u *Unit) PriceBounds(p *Property) (min, max int64) {
	if u.InheritParentPricing {
		return p.MinPrice, p.MaxPrice
	}
	return u.CustomMinPrice, u.CustomMaxPrice
}

// ReservationStatus is the booking state of a reservation.
type ReservationStatus string

const (
	ReservationConfirmed ReservationStatus = "confirmed"
	ReservationPending   ReservationStatus = "pending"
	ReservationCancelled ReservationStatus = "cancelled"
)

// Reservation occupies the nights [CheckIn, CheckOut). The engine only reads
// reservations; it never mutates them.
type Reservation struct {
	ID       uuid.UUID         `json:"id"`
	UnitID   uuid.UUID         `json:"unit_id"`
	CheckIn  time.Time         `json:"check_in"`
	CheckOut time.Time         `json:"check_out"`
	Status   ReservationStatus `json:"status"`
}

// Occupies reports whether the reservation covers the given night.
func (r *Reservation) Occupies(date time.Time) bool {
	d := Midnight(date)
	return !d.Before(Midnight(r.CheckIn)) && d.Before(Midnight(r.CheckOut))
}

// SyncStatus is the outcome of an upstream smart-pricing sync.
type SyncStatus string

const (
	SyncSuccess SyncStatus = "success"
	SyncFailed  SyncStatus = "failed"
)

// SmartPricingSync is one upstream feed record per (property, date). History
// is immutable; the latest successful record per date is authoritative.
type SmartPricingSync struct {
	ID          uuid.UUID  `json:"id"`
	PropertyID  uuid.UUID  `json:"property_id"`
	Date        time.Time  `json:"date"`
	Price       int64      `json:"price"`
	DemandScore int        `json:"demand_score"`
	Status      SyncStatus `json:"status"`
	SyncedAt    time.Time  `json:"synced_at"`
}

// Usable reports whether the record may feed the resolver.
func (s *SmartPricingSync) Usable() bool {
	return s.Status == SyncSuccess && s.Price > 0
}

// Breakdown records the net price delta contributed by each rule category,
// in cents. The sum of the fields is AdjustedPrice - BasePrice.
type Breakdown struct {
	Seasonal  int64 `json:"seasonal"`
	DayOfWeek int64 `json:"day_of_week"`
	LastMin   int64 `json:"last_minute"`
	FarOut    int64 `json:"far_out"`
	OrphanDay int64 `json:"orphan_day"`
	Occupancy int64 `json:"occupancy"`
	Event     int64 `json:"event"`
	Generic   int64 `json:"generic"`
}

// Total returns the summed delta across all categories.
func (b Breakdown) Total() int64 {
	return b.Seasonal + b.DayOfWeek + b.LastMin + b.FarOut + b.OrphanDay + b.Occupancy + b.Event + b.Generic
}

// Set assigns the delta for a category.
func (b *Breakdown) Set(cat RuleCategory, delta int64) {
	switch cat {
	case CategorySeasonal:
		b.Seasonal = delta
	case CategoryDayOfWeek:
		b.DayOfWeek = delta
	case CategoryLastMinute:
		b.LastMin = delta
	case CategoryFarOut:
		b.FarOut = delta
	case CategoryOrphanDay:
		b.OrphanDay = delta
	case CategoryOccupancy:
		b.Occupancy = delta
	case CategoryEvent:
		b.Event = delta
	case CategoryGeneric:
		b.Generic = delta
	}
}

// Get returns the recorded delta for a category.
func (b Breakdown) Get(cat RuleCategory) int64 {
	switch cat {
	case CategorySeasonal:
		return b.Seasonal
	case CategoryDayOfWeek:
		return b.DayOfWeek
	case CategoryLastMinute:
		return b.LastMin
	case CategoryFarOut:
		return b.FarOut
	case CategoryOrphanDay:
		return b.OrphanDay
	case CategoryOccupancy:
		return b.Occupancy
	case CategoryEvent:
		return b.Event
	case CategoryGeneric:
		return b.Generic
	}
	return 0
}

// AppliedRule records one rule's contribution for observability.
type AppliedRule struct {
	RuleID   uuid.UUID    `json:"rule_id"`
	Category RuleCategory `json:"category"`
	Delta    int64        `json:"delta"`
}

// ResolvedPrice is the output of one (unit, date) resolution.
type ResolvedPrice struct {
	BasePrice     int64         `json:"base_price"`
	Breakdown     Breakdown     `json:"breakdown"`
	AdjustedPrice int64         `json:"adjusted_price"`
	FinalPrice    int64         `json:"final_price"`
	MinNights     int           `json:"min_nights"`
	Source        PriceSource   `json:"price_source"`
	Applied       []AppliedRule `json:"applied,omitempty"`
}

// CalendarEntry is the materialized row for one (unit, date). Rows are
// derived artifacts; identity is the (UnitID, Date) key only.
type CalendarEntry struct {
	UnitID        uuid.UUID   `json:"unit_id"`
	Date          time.Time   `json:"date"`
	BasePrice     int64       `json:"base_price"`
	Breakdown     Breakdown   `json:"breakdown"`
	AdjustedPrice int64       `json:"adjusted_price"`
	FinalPrice    int64       `json:"final_price"`
	Available     bool        `json:"available"`
	Blocked       bool        `json:"blocked"`
	BlockReason   string      `json:"block_reason,omitempty"`
	MinNights     int         `json:"min_nights"`
	PriceSource   PriceSource `json:"price_source"`
	LastUpdated   time.Time   `json:"last_updated"`
}

// Midnight normalizes a timestamp to its calendar date at 00:00 UTC. All
// calendar math in the engine runs on normalized dates.
func Midnight(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Day builds a normalized date.
func Day(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns b - a in whole days.
func DaysBetween(a, b time.Time) int {
	return int(Midnight(b).Sub(Midnight(a)).Hours() / 24)
}
