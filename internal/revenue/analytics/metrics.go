package analytics

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/casita-pms/revenueservice/internal/revenue/domain"
)

// Daily is the per-property performance rollup for one date, computed from
// the engine's calendar output and the reservation view. RevPAR and ADR are
// consumed downstream; the engine only derives them, never feeds them back.
type Daily struct {
	PropertyID    uuid.UUID `json:"property_id"`
	Date          time.Time `json:"date"`
	TotalUnits    int       `json:"total_units"`
	OccupiedUnits int       `json:"occupied_units"`
	OccupancyRate float64   `json:"occupancy_rate"` // percent
	DailyRevenue  int64     `json:"daily_revenue"`  // cents
	ADR           int64     `json:"adr"`            // cents
	RevPAR        int64     `json:"revpar"`         // cents
}

// DailyMetrics computes occupancy and revenue for one date. Revenue is the
// sum of the final calendar price over occupied units; units without a
// materialized row for the date contribute occupancy but no revenue.
func DailyMetrics(propertyID uuid.UUID, date time.Time, units []domain.Unit, reservations []domain.Reservation, entries []domain.CalendarEntry) Daily {
	d := domain.Midnight(date)
	out := Daily{PropertyID: propertyID, Date: d}

	prices := make(map[uuid.UUID]int64, len(entries))
	for i := range entries {
		if domain.Midnight(entries[i].Date).Equal(d) {
			prices[entries[i].UnitID] = entries[i].FinalPrice
		}
	}

	for i := range units {
		u := &units[i]
		if !u.Active {
			continue
		}
		out.TotalUnits++
		if !unitOccupied(u.ID, d, reservations) {
			continue
		}
		out.OccupiedUnits++
		out.DailyRevenue += prices[u.ID]
	}

	if out.TotalUnits > 0 {
		out.OccupancyRate = round2(float64(out.OccupiedUnits) / float64(out.TotalUnits) * 100)
		out.RevPAR = out.DailyRevenue / int64(out.TotalUnits)
	}
	if out.OccupiedUnits > 0 {
		out.ADR = out.DailyRevenue / int64(out.OccupiedUnits)
	}
	return out
}

// Summary aggregates final prices over a calendar window.
type Summary struct {
	Days            int              `json:"days"`
	AvgPrice        int64            `json:"avg_price"`
	MinPrice        int64            `json:"min_price"`
	MaxPrice        int64            `json:"max_price"`
	MonthlyAverages map[string]int64 `json:"monthly_averages"` // keyed YYYY-MM
}

// Summarize computes price statistics over materialized entries. Blocked
// rows carry no sellable price and are excluded.
func Summarize(entries []domain.CalendarEntry) Summary {
	s := Summary{MonthlyAverages: make(map[string]int64)}
	var total int64
	monthTotals := make(map[string]int64)
	monthCounts := make(map[string]int)

	for i := range entries {
		e := &entries[i]
		if e.Blocked {
			continue
		}
		s.Days++
		total += e.FinalPrice
		if s.MinPrice == 0 || e.FinalPrice < s.MinPrice {
			s.MinPrice = e.FinalPrice
		}
		if e.FinalPrice > s.MaxPrice {
			s.MaxPrice = e.FinalPrice
		}
		month := domain.Midnight(e.Date).Format("2006-01")
		monthTotals[month] += e.FinalPrice
		monthCounts[month]++
	}

	if s.Days > 0 {
		s.AvgPrice = total / int64(s.Days)
	}
	for month, sum := range monthTotals {
		s.MonthlyAverages[month] = sum / int64(monthCounts[month])
	}
	return s
}

func unitOccupied(unitID uuid.UUID, date time.Time, reservations []domain.Reservation) bool {
	for i := range reservations {
		r := &reservations[i]
		if r.UnitID == unitID && r.Status == domain.ReservationConfirmed && r.Occupies(date) {
			return true
		}
	}
	return false
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
