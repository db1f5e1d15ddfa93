package calendar

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/casita-pms/revenueservice/internal/cache"
	"github.com/casita-pms/revenueservice/internal/events"
	"github.com/casita-pms/revenueservice/internal/log"
	"github.com/casita-pms/revenueservice/internal/metrics"
	"github.com/casita-pms/revenueservice/internal/retry"
	"github.com/casita-pms/revenueservice/internal/revenue/domain"
	"github.com/casita-pms/revenueservice/internal/revenue/occupancy"
	"github.com/casita-pms/revenueservice/internal/revenue/repo"
	"github.com/casita-pms/revenueservice/internal/revenue/resolver"
	"github.com/casita-pms/revenueservice/internal/revenue/rules"
)

// BlockReasonReservation marks nights occupied by a confirmed reservation.
// Any other non-empty block reason is an operator block and is preserved
// across runs.
const BlockReasonReservation = "reservation"

// MaxHorizonDays caps any materialization window.
const MaxHorizonDays = 730

// Options controls one materialization run. Today is the explicit date
// reference for all rule arithmetic; Now is the timestamp written into
// rows. Neither is ever read from the wall clock, so a run is reproducible.
type Options struct {
	Today time.Time
	Now   time.Time // zero value falls back to Today
	// Force overwrites manually priced rows instead of preserving them.
	Force bool
}

// CellError reports a failed (unit, date) cell. The prior calendar row for
// a failed cell is left untouched.
type CellError struct {
	UnitID  uuid.UUID `json:"unit_id"`
	Date    time.Time `json:"date,omitempty"`
	Code    string    `json:"code"`
	Message string    `json:"message"`
}

// Report is the per-run diagnostics summary.
type Report struct {
	RunID                 uuid.UUID        `json:"run_id"`
	PropertyID            uuid.UUID        `json:"property_id"`
	From                  time.Time        `json:"from"`
	To                    time.Time        `json:"to"`
	Cells                 int              `json:"cells"`
	RowsWritten           int              `json:"rows_written"`
	Failures              []CellError      `json:"failures,omitempty"`
	Conflicts             []rules.Conflict `json:"conflicts,omitempty"`
	SmartPricingFallbacks int              `json:"smart_pricing_fallbacks"`
	UpstreamIssues        []string         `json:"upstream_issues,omitempty"`
}

// Materializer drives the price resolver across a date range for all units
// of a property and writes one calendar row per (unit, date).
type Materializer struct {
	store          repo.Store
	analyzer       *occupancy.Analyzer
	cache          *cache.CalendarCache     // optional
	publisher      events.CalendarPublisher // optional
	maxHorizonDays int
	retryCfg       retry.Config
}

// NewMaterializer wires a materializer. Cache and publisher may be nil.
func NewMaterializer(store repo.Store, analyzer *occupancy.Analyzer, cc *cache.CalendarCache, pub events.CalendarPublisher, maxHorizonDays int) *Materializer {
	if maxHorizonDays <= 0 || maxHorizonDays > MaxHorizonDays {
		maxHorizonDays = MaxHorizonDays
	}
	return &Materializer{
		store:          store,
		analyzer:       analyzer,
		cache:          cc,
		publisher:      pub,
		maxHorizonDays: maxHorizonDays,
		retryCfg:       retry.DefaultConfig(),
	}
}

// Materialize resolves and upserts the pricing calendar for every active
// unit of the property over [from, to]. Inputs are read from one consistent
// snapshot; a failed cell never corrupts its previously materialized row.
func (m *Materializer) Materialize(ctx context.Context, propertyID uuid.UUID, from, to time.Time, opts Options) (*Report, error) {
	start := time.Now()
	from, to = domain.Midnight(from), domain.Midnight(to)
	if to.Before(from) {
		return nil, domain.NewInvalidInputError("materialization window end precedes start", "")
	}
	if opts.Today.IsZero() {
		return nil, domain.NewInvalidInputError("today reference is required", "")
	}
	today := domain.Midnight(opts.Today)
	now := opts.Now
	if now.IsZero() {
		now = today
	}

	// Calendar horizon is always bounded, two years ahead at most.
	if days := domain.DaysBetween(from, to) + 1; days > m.maxHorizonDays {
		to = from.AddDate(0, 0, m.maxHorizonDays-1)
	}

	report := &Report{
		RunID:      uuid.New(),
		PropertyID: propertyID,
		From:       from,
		To:         to,
	}
	ctx = log.WithRunID(ctx, report.RunID.String())
	ctx = log.WithPropertyID(ctx, propertyID.String())

	snap, err := m.store.Snapshot(ctx, propertyID, from, to)
	if err != nil {
		metrics.ObserveRun("error", start)
		return nil, err
	}
	if snap.ReservationsUnavailable {
		report.UpstreamIssues = append(report.UpstreamIssues,
			"reservation source unavailable: occupancy and orphan-day rules skipped")
		log.Warn(ctx, "Reservation source unavailable, gap and occupancy rules skipped")
	}

	var unitIDs []string
	for i := range snap.Units {
		unit := snap.Units[i]
		if !unit.Active {
			continue
		}
		unitIDs = append(unitIDs, unit.ID.String())

		entries, unitErr := m.buildUnitEntries(ctx, &unit, snap, from, to, today, now, opts.Force, report)
		if unitErr != nil {
			report.Failures = append(report.Failures, *unitErr)
			metrics.ResolveErrors.WithLabelValues(unitErr.Code).Inc()
			log.Error(ctx, "Unit resolution failed, skipping unit",
				zap.String("unit_id", unit.ID.String()),
				zap.String("code", unitErr.Code),
				zap.String("message", unitErr.Message))
			continue
		}

		written, err := m.upsertUnit(ctx, unit.ID, entries)
		if err != nil {
			report.Failures = append(report.Failures, CellError{
				UnitID:  unit.ID,
				Code:    domain.ErrCodeInternal,
				Message: err.Error(),
			})
			log.Error(ctx, "Calendar write failed",
				zap.String("unit_id", unit.ID.String()),
				zap.Error(err))
			continue
		}
		report.RowsWritten += written
		metrics.CalendarRowsWritten.Add(float64(written))

		if m.cache != nil {
			if err := m.cache.InvalidateRange(ctx, unit.ID, from, to); err != nil {
				log.Warn(ctx, "Cache invalidation failed", zap.Error(err))
			} else if err := m.cache.SetBatch(ctx, entries); err != nil {
				log.Warn(ctx, "Cache refresh failed", zap.Error(err))
			}
		}
	}

	if m.publisher != nil && report.RowsWritten > 0 {
		ev := events.NewCalendarUpdated(propertyID.String(), unitIDs, from, to, report.RowsWritten, opts.Force)
		if err := m.publisher.PublishCalendarUpdated(ctx, ev); err != nil {
			log.Warn(ctx, "Calendar event publish failed", zap.Error(err))
		}
	}

	status := "ok"
	if len(report.Failures) > 0 {
		status = "partial"
	}
	metrics.ObserveRun(status, start)
	log.Info(ctx, "Materialization run complete",
		zap.Int("cells", report.Cells),
		zap.Int("rows_written", report.RowsWritten),
		zap.Int("failures", len(report.Failures)),
		zap.Int("conflicts", len(report.Conflicts)))
	return report, nil
}

// buildUnitEntries resolves every date for one unit. A configuration error
// aborts the unit (its remaining dates cannot resolve either); other cell
// errors are recorded and the loop continues.
func (m *Materializer) buildUnitEntries(ctx context.Context, unit *domain.Unit, snap *repo.Snapshot, from, to, today, now time.Time, force bool, report *Report) ([]domain.CalendarEntry, *CellError) {
	var entries []domain.CalendarEntry

	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		report.Cells++
		key := repo.CalendarKey{UnitID: unit.ID, Date: d}
		existing, hasExisting := snap.Calendar[key]

		// Confirmed reservations block their nights outright.
		if !snap.ReservationsUnavailable && occupiedNight(unit.ID, d, snap.Reservations) {
			entry := existing
			entry.UnitID = unit.ID
			entry.Date = d
			entry.Available = false
			entry.Blocked = true
			entry.BlockReason = BlockReasonReservation
			entry.LastUpdated = now
			entries = append(entries, entry)
			continue
		}

		// Operator blocks are preserved and skipped for pricing; the row
		// still records unavailability.
		if hasExisting && existing.Blocked && existing.BlockReason != BlockReasonReservation {
			entry := existing
			entry.Available = false
			entry.LastUpdated = now
			entries = append(entries, entry)
			continue
		}

		rctx := rules.NewContext(d, today)
		if !snap.ReservationsUnavailable {
			rctx.GapKnown = true
			if gap, ok := m.analyzer.GapLength(unit.ID, d, snap.Reservations); ok {
				rctx.GapNights = gap
			}
			rctx.OccupancyRatio, rctx.OccupancyKnown = m.analyzer.OccupancyRatio(snap.Units, d, snap.Reservations)
		}

		var smart *domain.SmartPricingSync
		if rec, ok := snap.SmartPrices[d]; ok {
			smart = &rec
		}

		resolved, meta, err := resolver.Resolve(unit, d, resolver.Inputs{
			Property:   &snap.Property,
			SmartPrice: smart,
			Rules:      snap.Rules,
			Ctx:        rctx,
		})
		if err != nil {
			if domain.IsConfigurationError(err) {
				return nil, &CellError{
					UnitID:  unit.ID,
					Code:    domain.ErrCodeConfiguration,
					Message: err.Error(),
				}
			}
			report.Failures = append(report.Failures, CellError{
				UnitID:  unit.ID,
				Date:    d,
				Code:    domain.ErrorCode(err),
				Message: err.Error(),
			})
			metrics.ResolveErrors.WithLabelValues(domain.ErrorCode(err)).Inc()
			continue
		}
		metrics.CellsResolved.Inc()

		for _, c := range meta.Conflicts {
			report.Conflicts = append(report.Conflicts, c)
			metrics.RuleConflicts.Inc()
			log.Warn(ctx, "Rule conflict resolved by id tie-break",
				zap.String("unit_id", unit.ID.String()),
				zap.Time("date", d),
				zap.String("conflict", c.String()))
		}
		if meta.SmartPricingStale {
			report.SmartPricingFallbacks++
			metrics.SmartPricingFallbacks.Inc()
		}

		entry := domain.CalendarEntry{
			UnitID:        unit.ID,
			Date:          d,
			BasePrice:     resolved.BasePrice,
			Breakdown:     resolved.Breakdown,
			AdjustedPrice: resolved.AdjustedPrice,
			FinalPrice:    resolved.FinalPrice,
			Available:     true,
			MinNights:     resolved.MinNights,
			PriceSource:   resolved.Source,
			LastUpdated:   now,
		}

		// Manual price overrides survive non-forced runs: the informational
		// base and breakdown are refreshed, the published price is not.
		if hasExisting && existing.PriceSource == domain.SourceManual && !force {
			entry.FinalPrice = existing.FinalPrice
			entry.MinNights = existing.MinNights
			entry.PriceSource = domain.SourceManual
			entry.Available = existing.Available
		}

		entries = append(entries, entry)
	}

	return entries, nil
}

// upsertUnit writes a unit's entries, retrying transient store failures.
// The store serializes writes per unit key.
func (m *Materializer) upsertUnit(ctx context.Context, unitID uuid.UUID, entries []domain.CalendarEntry) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}
	written := 0
	err := retry.Do(ctx, m.retryCfg, log.L(ctx), func() error {
		n, err := m.store.Calendar().UpsertBatch(ctx, unitID, entries)
		if err != nil {
			return err
		}
		written = n
		return nil
	})
	return written, err
}

func occupiedNight(unitID uuid.UUID, date time.Time, reservations []domain.Reservation) bool {
	for i := range reservations {
		r := &reservations[i]
		if r.UnitID == unitID && r.Status == domain.ReservationConfirmed && r.Occupies(date) {
			return true
		}
	}
	return false
}
