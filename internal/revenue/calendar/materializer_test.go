package calendar

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/casita-pms/revenueservice/internal/events"
	"github.com/casita-pms/revenueservice/internal/revenue/domain"
	"github.com/casita-pms/revenueservice/internal/revenue/occupancy"
	"github.com/casita-pms/revenueservice/internal/revenue/repo"
)

type fixture struct {
	store    *repo.MemoryStore
	property domain.Property
	unit     domain.Unit
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := repo.NewMemoryStore()

	p, err := store.Properties().Upsert(ctx, domain.Property{
		Name:      "Casa del Sol",
		Currency:  "USD",
		BasePrice: 20000,
		Active:    true,
	})
	require.NoError(t, err)

	u, err := store.Units().Upsert(ctx, domain.Unit{
		PropertyID:           p.ID,
		Name:                 "Suite 1",
		InheritParentPricing: true,
		DefaultMinNights:     1,
		Active:               true,
	})
	require.NoError(t, err)

	return &fixture{store: store, property: p, unit: u}
}

func newTestMaterializer(store repo.Store) *Materializer {
	return NewMaterializer(store, occupancy.NewAnalyzer(7), nil, events.NoopPublisher{}, MaxHorizonDays)
}

func TestMaterialize_WritesWindow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := newTestMaterializer(f.store)

	today := domain.Day(2026, 7, 1)
	from, to := today, today.AddDate(0, 0, 6)

	report, err := m.Materialize(ctx, f.property.ID, from, to, Options{Today: today})
	require.NoError(t, err)
	require.Equal(t, 7, report.Cells)
	require.Equal(t, 7, report.RowsWritten)
	require.Empty(t, report.Failures)

	entries, err := f.store.Calendar().Range(ctx, f.unit.ID, from, to)
	require.NoError(t, err)
	require.Len(t, entries, 7)
	for _, e := range entries {
		require.Equal(t, int64(20000), e.BasePrice)
		require.Equal(t, int64(20000), e.FinalPrice)
		require.True(t, e.Available)
		require.Equal(t, domain.SourceRule, e.PriceSource)
		require.Equal(t, 1, e.MinNights)
	}
}

func TestMaterialize_IsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := newTestMaterializer(f.store)

	today := domain.Day(2026, 7, 1)
	from, to := today, today.AddDate(0, 0, 9)
	opts := Options{Today: today, Now: today}

	_, err := m.Materialize(ctx, f.property.ID, from, to, opts)
	require.NoError(t, err)
	first, err := f.store.Calendar().Range(ctx, f.unit.ID, from, to)
	require.NoError(t, err)

	_, err = m.Materialize(ctx, f.property.ID, from, to, opts)
	require.NoError(t, err)
	second, err := f.store.Calendar().Range(ctx, f.unit.ID, from, to)
	require.NoError(t, err)

	require.Equal(t, first, second)
}

func TestMaterialize_AppliesSeasonalRule(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.store.Rules().Upsert(ctx, domain.Rule{
		PropertyID:      f.property.ID,
		Name:            "summer peak",
		Category:        domain.CategorySeasonal,
		AdjustmentType:  domain.AdjustPercent,
		AdjustmentValue: 25,
		Priority:        10,
		Active:          true,
		Config: domain.RuleConfig{Seasonal: &domain.SeasonalConfig{
			Start: domain.Day(2026, 7, 3),
			End:   domain.Day(2026, 7, 5),
		}},
	})
	require.NoError(t, err)

	m := newTestMaterializer(f.store)
	today := domain.Day(2026, 7, 1)
	_, err = m.Materialize(ctx, f.property.ID, today, today.AddDate(0, 0, 6), Options{Today: today})
	require.NoError(t, err)

	inSeason, err := f.store.Calendar().Get(ctx, f.unit.ID, domain.Day(2026, 7, 4))
	require.NoError(t, err)
	require.Equal(t, int64(25000), inSeason.FinalPrice)
	require.Equal(t, int64(5000), inSeason.Breakdown.Seasonal)

	offSeason, err := f.store.Calendar().Get(ctx, f.unit.ID, domain.Day(2026, 7, 2))
	require.NoError(t, err)
	require.Equal(t, int64(20000), offSeason.FinalPrice)
}

func TestMaterialize_BlocksReservedNights(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.store.Reservations().Upsert(ctx, domain.Reservation{
		UnitID:   f.unit.ID,
		CheckIn:  domain.Day(2026, 7, 3),
		CheckOut: domain.Day(2026, 7, 5),
		Status:   domain.ReservationConfirmed,
	})
	require.NoError(t, err)

	m := newTestMaterializer(f.store)
	today := domain.Day(2026, 7, 1)
	_, err = m.Materialize(ctx, f.property.ID, today, today.AddDate(0, 0, 6), Options{Today: today})
	require.NoError(t, err)

	for _, day := range []time.Time{domain.Day(2026, 7, 3), domain.Day(2026, 7, 4)} {
		e, err := f.store.Calendar().Get(ctx, f.unit.ID, day)
		require.NoError(t, err)
		require.True(t, e.Blocked)
		require.False(t, e.Available)
		require.Equal(t, BlockReasonReservation, e.BlockReason)
	}

	// Checkout day sells again.
	e, err := f.store.Calendar().Get(ctx, f.unit.ID, domain.Day(2026, 7, 5))
	require.NoError(t, err)
	require.False(t, e.Blocked)
	require.True(t, e.Available)
}

func TestMaterialize_PreservesOperatorBlocks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	today := domain.Day(2026, 7, 1)

	blocked := domain.Day(2026, 7, 4)
	_, err := f.store.Calendar().UpsertBatch(ctx, f.unit.ID, []domain.CalendarEntry{{
		UnitID:      f.unit.ID,
		Date:        blocked,
		FinalPrice:  18000,
		Blocked:     true,
		BlockReason: "maintenance",
		MinNights:   1,
		PriceSource: domain.SourceRule,
		LastUpdated: today.Add(-time.Hour),
	}})
	require.NoError(t, err)

	m := newTestMaterializer(f.store)
	_, err = m.Materialize(ctx, f.property.ID, today, today.AddDate(0, 0, 6), Options{Today: today})
	require.NoError(t, err)

	e, err := f.store.Calendar().Get(ctx, f.unit.ID, blocked)
	require.NoError(t, err)
	require.True(t, e.Blocked)
	require.Equal(t, "maintenance", e.BlockReason)
	require.Equal(t, int64(18000), e.FinalPrice)
	require.False(t, e.Available)
}

func TestMaterialize_PreservesManualOverrides(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	today := domain.Day(2026, 7, 1)

	manualDay := domain.Day(2026, 7, 4)
	_, err := f.store.Calendar().UpsertBatch(ctx, f.unit.ID, []domain.CalendarEntry{{
		UnitID:      f.unit.ID,
		Date:        manualDay,
		FinalPrice:  42000,
		Available:   true,
		MinNights:   4,
		PriceSource: domain.SourceManual,
		LastUpdated: today.Add(-time.Hour),
	}})
	require.NoError(t, err)

	m := newTestMaterializer(f.store)
	_, err = m.Materialize(ctx, f.property.ID, today, today.AddDate(0, 0, 6), Options{Today: today})
	require.NoError(t, err)

	e, err := f.store.Calendar().Get(ctx, f.unit.ID, manualDay)
	require.NoError(t, err)
	require.Equal(t, int64(42000), e.FinalPrice)
	require.Equal(t, 4, e.MinNights)
	require.Equal(t, domain.SourceManual, e.PriceSource)
	// The informational columns still refresh underneath the override.
	require.Equal(t, int64(20000), e.BasePrice)

	// A forced run reclaims the night for the engine.
	_, err = m.Materialize(ctx, f.property.ID, today, today.AddDate(0, 0, 6), Options{Today: today, Force: true})
	require.NoError(t, err)

	e, err = f.store.Calendar().Get(ctx, f.unit.ID, manualDay)
	require.NoError(t, err)
	require.Equal(t, int64(20000), e.FinalPrice)
	require.Equal(t, domain.SourceRule, e.PriceSource)
}

func TestMaterialize_ConfigurationErrorSkipsUnit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// A second unit that overrides pricing without a custom base can never
	// resolve; the first unit must still materialize.
	broken, err := f.store.Units().Upsert(ctx, domain.Unit{
		PropertyID: f.property.ID,
		Name:       "Suite 2",
		Active:     true,
	})
	require.NoError(t, err)

	m := newTestMaterializer(f.store)
	today := domain.Day(2026, 7, 1)
	report, err := m.Materialize(ctx, f.property.ID, today, today.AddDate(0, 0, 2), Options{Today: today})
	require.NoError(t, err)

	require.Len(t, report.Failures, 1)
	require.Equal(t, broken.ID, report.Failures[0].UnitID)
	require.Equal(t, domain.ErrCodeConfiguration, report.Failures[0].Code)

	healthy, err := f.store.Calendar().Range(ctx, f.unit.ID, today, today.AddDate(0, 0, 2))
	require.NoError(t, err)
	require.Len(t, healthy, 3)

	brokenRows, err := f.store.Calendar().Range(ctx, broken.ID, today, today.AddDate(0, 0, 2))
	require.NoError(t, err)
	require.Empty(t, brokenRows)
}

func TestMaterialize_ReservationOutageSkipsGapRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.store.Rules().Upsert(ctx, domain.Rule{
		PropertyID:      f.property.ID,
		Name:            "fill the gap",
		Category:        domain.CategoryOrphanDay,
		AdjustmentType:  domain.AdjustPercent,
		AdjustmentValue: -20,
		Priority:        10,
		Active:          true,
		Config:          domain.RuleConfig{OrphanDay: &domain.OrphanDayConfig{GapNights: 2}},
	})
	require.NoError(t, err)

	f.store.FailReservations(true)

	m := newTestMaterializer(f.store)
	today := domain.Day(2026, 7, 1)
	report, err := m.Materialize(ctx, f.property.ID, today, today.AddDate(0, 0, 4), Options{Today: today})
	require.NoError(t, err)
	require.NotEmpty(t, report.UpstreamIssues)

	// Prices still materialize, without the gap discount.
	entries, err := f.store.Calendar().Range(ctx, f.unit.ID, today, today.AddDate(0, 0, 4))
	require.NoError(t, err)
	require.Len(t, entries, 5)
	for _, e := range entries {
		require.Equal(t, int64(20000), e.FinalPrice)
		require.Zero(t, e.Breakdown.OrphanDay)
	}
}

func TestMaterialize_OrphanGapDiscountAndMinStay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.unit.DefaultMinNights = 3
	_, err := f.store.Units().Upsert(ctx, f.unit)
	require.NoError(t, err)

	_, err = f.store.Rules().Upsert(ctx, domain.Rule{
		PropertyID:      f.property.ID,
		Name:            "fill the gap",
		Category:        domain.CategoryOrphanDay,
		AdjustmentType:  domain.AdjustPercent,
		AdjustmentValue: -20,
		Priority:        10,
		ReduceMinStay:   true,
		Active:          true,
		Config:          domain.RuleConfig{OrphanDay: &domain.OrphanDayConfig{GapNights: 1}},
	})
	require.NoError(t, err)

	for _, res := range []struct{ in, out time.Time }{
		{domain.Day(2026, 7, 2), domain.Day(2026, 7, 4)},
		{domain.Day(2026, 7, 5), domain.Day(2026, 7, 7)},
	} {
		_, err := f.store.Reservations().Upsert(ctx, domain.Reservation{
			UnitID:   f.unit.ID,
			CheckIn:  res.in,
			CheckOut: res.out,
			Status:   domain.ReservationConfirmed,
		})
		require.NoError(t, err)
	}

	m := newTestMaterializer(f.store)
	today := domain.Day(2026, 7, 1)
	_, err = m.Materialize(ctx, f.property.ID, today, today.AddDate(0, 0, 7), Options{Today: today})
	require.NoError(t, err)

	// The 4th is the single free night between the two stays.
	gapNight, err := f.store.Calendar().Get(ctx, f.unit.ID, domain.Day(2026, 7, 4))
	require.NoError(t, err)
	require.Equal(t, int64(16000), gapNight.FinalPrice)
	require.Equal(t, int64(-4000), gapNight.Breakdown.OrphanDay)
	require.Equal(t, 1, gapNight.MinNights)

	// An open night outside any gap keeps the default minimum stay.
	openNight, err := f.store.Calendar().Get(ctx, f.unit.ID, domain.Day(2026, 7, 8))
	require.NoError(t, err)
	require.Equal(t, int64(20000), openNight.FinalPrice)
	require.Equal(t, 3, openNight.MinNights)
}

func TestMaterialize_SmartPricingFeedsBase(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.property.SmartPricingEnabled = true
	_, err := f.store.Properties().Upsert(ctx, f.property)
	require.NoError(t, err)

	synced := domain.Day(2026, 7, 2)
	require.NoError(t, f.store.SmartPricing().Record(ctx, domain.SmartPricingSync{
		PropertyID: f.property.ID,
		Date:       synced,
		Price:      31000,
		Status:     domain.SyncSuccess,
		SyncedAt:   time.Date(2026, 7, 1, 6, 0, 0, 0, time.UTC),
	}))

	m := newTestMaterializer(f.store)
	today := domain.Day(2026, 7, 1)
	report, err := m.Materialize(ctx, f.property.ID, today, today.AddDate(0, 0, 2), Options{Today: today})
	require.NoError(t, err)

	smart, err := f.store.Calendar().Get(ctx, f.unit.ID, synced)
	require.NoError(t, err)
	require.Equal(t, int64(31000), smart.FinalPrice)
	require.Equal(t, domain.SourceSmartPricing, smart.PriceSource)

	// Uncovered dates fall back to the static base and count as fallbacks.
	fallback, err := f.store.Calendar().Get(ctx, f.unit.ID, today)
	require.NoError(t, err)
	require.Equal(t, int64(20000), fallback.FinalPrice)
	require.Equal(t, domain.SourceRule, fallback.PriceSource)
	require.Equal(t, 2, report.SmartPricingFallbacks)
}

func TestMaterialize_HorizonCapped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	m := NewMaterializer(f.store, occupancy.NewAnalyzer(7), nil, events.NoopPublisher{}, 30)
	today := domain.Day(2026, 7, 1)
	report, err := m.Materialize(ctx, f.property.ID, today, today.AddDate(0, 0, 364), Options{Today: today})
	require.NoError(t, err)
	require.Equal(t, 30, report.Cells)
	require.Equal(t, today.AddDate(0, 0, 29), report.To)
}

func TestMaterialize_RequiresToday(t *testing.T) {
	f := newFixture(t)
	m := newTestMaterializer(f.store)
	_, err := m.Materialize(context.Background(), f.property.ID, domain.Day(2026, 7, 1), domain.Day(2026, 7, 5), Options{})
	require.Error(t, err)
}

func TestMaterialize_UnknownProperty(t *testing.T) {
	f := newFixture(t)
	m := newTestMaterializer(f.store)
	today := domain.Day(2026, 7, 1)
	_, err := m.Materialize(context.Background(), uuid.New(), today, today.AddDate(0, 0, 5), Options{Today: today})
	require.Error(t, err)
	require.Equal(t, domain.ErrCodeNotFound, domain.ErrorCode(err))
}
