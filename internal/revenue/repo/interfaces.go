package repo

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/casita-pms/revenueservice/internal/revenue/domain"
)

type PropertyRepository interface {
	// GetByID retrieves a property by ID
	GetByID(ctx context.Context, id uuid.UUID) (domain.Property, error)

	// ListActive retrieves all active properties
	ListActive(ctx context.Context) ([]domain.Property, error)

	// Upsert creates or updates a property
	Upsert(ctx context.Context, p domain.Property) (domain.Property, error)
}

type UnitRepository interface {
	// GetByID retrieves a unit by ID
	GetByID(ctx context.Context, id uuid.UUID) (domain.Unit, error)

	// ListByProperty retrieves all units for a property
	ListByProperty(ctx context.Context, propertyID uuid.UUID) ([]domain.Unit, error)

	// Upsert creates or updates a unit
	Upsert(ctx context.Context, u domain.Unit) (domain.Unit, error)
}

type RuleRepository interface {
	// GetByID retrieves a rule by ID
	GetByID(ctx context.Context, id uuid.UUID) (domain.Rule, error)

	// ListByProperty retrieves all rules scoped to a property, both
	// property-wide and unit-narrowed, active or not
	ListByProperty(ctx context.Context, propertyID uuid.UUID) ([]domain.Rule, error)

	// Upsert validates and creates or updates a rule
	Upsert(ctx context.Context, r domain.Rule) (domain.Rule, error)

	// Delete removes a rule
	Delete(ctx context.Context, id uuid.UUID) error
}

type ReservationRepository interface {
	// ListByProperty retrieves non-cancelled reservations for a property's
	// units overlapping [from, to]
	ListByProperty(ctx context.Context, propertyID uuid.UUID, from, to time.Time) ([]domain.Reservation, error)

	// Upsert creates or updates a reservation
	Upsert(ctx context.Context, r domain.Reservation) (domain.Reservation, error)
}

type SmartPricingRepository interface {
	// Record appends a sync record; history is immutable
	Record(ctx context.Context, s domain.SmartPricingSync) error

	// LatestRange returns the latest successful record per date over
	// [from, to], keyed by normalized date
	LatestRange(ctx context.Context, propertyID uuid.UUID, from, to time.Time) (map[time.Time]domain.SmartPricingSync, error)
}

type CalendarRepository interface {
	// Get retrieves one calendar entry
	Get(ctx context.Context, unitID uuid.UUID, date time.Time) (domain.CalendarEntry, error)

	// Range retrieves a unit's entries over [from, to] ordered by date
	Range(ctx context.Context, unitID uuid.UUID, from, to time.Time) ([]domain.CalendarEntry, error)

	// UpsertBatch writes entries for a single unit, serialized per unit so
	// overlapping runs cannot interleave. A row is only overwritten when the
	// incoming LastUpdated is not older than the stored one (last writer
	// wins). Returns the number of rows written.
	UpsertBatch(ctx context.Context, unitID uuid.UUID, entries []domain.CalendarEntry) (int, error)
}

// CalendarKey identifies one materialized cell.
type CalendarKey struct {
	UnitID uuid.UUID
	Date   time.Time
}

// Snapshot is a point-in-time view of every input one materialization run
// needs, so a rule edited mid-run cannot produce a half-old calendar.
type Snapshot struct {
	Property     domain.Property
	Units        []domain.Unit
	Rules        []domain.Rule
	Reservations []domain.Reservation
	// SmartPrices holds the latest successful sync per normalized date.
	SmartPrices map[time.Time]domain.SmartPricingSync
	// Calendar holds the existing rows in the window, for manual-override
	// and block preservation.
	Calendar map[CalendarKey]domain.CalendarEntry
	// ReservationsUnavailable is set when the reservation source could not
	// be read; gap and occupancy rules are skipped rather than aborting.
	ReservationsUnavailable bool
}

// Store aggregates the engine's persistence surface.
type Store interface {
	Properties() PropertyRepository
	Units() UnitRepository
	Rules() RuleRepository
	Reservations() ReservationRepository
	SmartPricing() SmartPricingRepository
	Calendar() CalendarRepository

	// Snapshot reads all materialization inputs for a property and window
	// from a single consistent view.
	Snapshot(ctx context.Context, propertyID uuid.UUID, from, to time.Time) (*Snapshot, error)
}
