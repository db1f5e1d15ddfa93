package analytics

import (
	"testing"

	"github.com/google/uuid"

	"github.com/casita-pms/revenueservice/internal/revenue/domain"
)

func TestDailyMetrics(t *testing.T) {
	propertyID := uuid.New()
	date := domain.Day(2026, 7, 10)

	u1 := domain.Unit{ID: uuid.New(), PropertyID: propertyID, Active: true}
	u2 := domain.Unit{ID: uuid.New(), PropertyID: propertyID, Active: true}
	u3 := domain.Unit{ID: uuid.New(), PropertyID: propertyID, Active: true}
	u4 := domain.Unit{ID: uuid.New(), PropertyID: propertyID, Active: false}

	reservations := []domain.Reservation{
		{ID: uuid.New(), UnitID: u1.ID, CheckIn: domain.Day(2026, 7, 9), CheckOut: domain.Day(2026, 7, 12), Status: domain.ReservationConfirmed},
		{ID: uuid.New(), UnitID: u2.ID, CheckIn: domain.Day(2026, 7, 10), CheckOut: domain.Day(2026, 7, 11), Status: domain.ReservationConfirmed},
	}
	entries := []domain.CalendarEntry{
		{UnitID: u1.ID, Date: date, FinalPrice: 20000},
		{UnitID: u2.ID, Date: date, FinalPrice: 16000},
		{UnitID: u3.ID, Date: date, FinalPrice: 30000}, // vacant, no revenue
	}

	got := DailyMetrics(propertyID, date, []domain.Unit{u1, u2, u3, u4}, reservations, entries)

	if got.TotalUnits != 3 {
		t.Fatalf("expected 3 active units, got %d", got.TotalUnits)
	}
	if got.OccupiedUnits != 2 {
		t.Fatalf("expected 2 occupied units, got %d", got.OccupiedUnits)
	}
	if got.OccupancyRate != 66.67 {
		t.Fatalf("expected occupancy 66.67, got %.2f", got.OccupancyRate)
	}
	if got.DailyRevenue != 36000 {
		t.Fatalf("expected revenue 36000, got %d", got.DailyRevenue)
	}
	// ADR = revenue / occupied, RevPAR = revenue / total.
	if got.ADR != 18000 {
		t.Fatalf("expected ADR 18000, got %d", got.ADR)
	}
	if got.RevPAR != 12000 {
		t.Fatalf("expected RevPAR 12000, got %d", got.RevPAR)
	}
}

func TestDailyMetrics_EmptyProperty(t *testing.T) {
	got := DailyMetrics(uuid.New(), domain.Day(2026, 7, 10), nil, nil, nil)
	if got.TotalUnits != 0 || got.OccupancyRate != 0 || got.ADR != 0 || got.RevPAR != 0 {
		t.Fatalf("expected zeroed metrics, got %+v", got)
	}
}

func TestSummarize(t *testing.T) {
	unitID := uuid.New()
	entries := []domain.CalendarEntry{
		{UnitID: unitID, Date: domain.Day(2026, 7, 30), FinalPrice: 20000},
		{UnitID: unitID, Date: domain.Day(2026, 7, 31), FinalPrice: 24000},
		{UnitID: unitID, Date: domain.Day(2026, 8, 1), FinalPrice: 30000},
		{UnitID: unitID, Date: domain.Day(2026, 8, 2), FinalPrice: 10000, Blocked: true}, // excluded
	}

	s := Summarize(entries)
	if s.Days != 3 {
		t.Fatalf("expected 3 priced days, got %d", s.Days)
	}
	if s.MinPrice != 20000 || s.MaxPrice != 30000 {
		t.Fatalf("expected range [20000, 30000], got [%d, %d]", s.MinPrice, s.MaxPrice)
	}
	// (20000 + 24000 + 30000) / 3
	if s.AvgPrice != 24666 {
		t.Fatalf("expected avg 24666, got %d", s.AvgPrice)
	}
	if s.MonthlyAverages["2026-07"] != 22000 {
		t.Fatalf("expected July average 22000, got %d", s.MonthlyAverages["2026-07"])
	}
	if s.MonthlyAverages["2026-08"] != 30000 {
		t.Fatalf("expected August average 30000, got %d", s.MonthlyAverages["2026-08"])
	}
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil)
	if s.Days != 0 || s.AvgPrice != 0 {
		t.Fatalf("expected zeroed summary, got %+v", s)
	}
}
