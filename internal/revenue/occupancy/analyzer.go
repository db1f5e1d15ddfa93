package occupancy

import (
	"time"

	"github.com/google/uuid"

	"github.com/casita-pms/revenueservice/internal/revenue/domain"
)

// DefaultLookaheadDays bounds how far the gap scan looks for a flanking
// reservation on either side of a candidate night.
const DefaultLookaheadDays = 7

// Analyzer derives gap-night and occupancy signals from a reservation
// snapshot. It is a pure reader; only confirmed reservations count.
type Analyzer struct {
	lookahead int
}

// NewAnalyzer creates an analyzer with the given gap lookahead horizon in
// days. Non-positive values fall back to the default.
func NewAnalyzer(lookaheadDays int) *Analyzer {
	if lookaheadDays <= 0 {
		lookaheadDays = DefaultLookaheadDays
	}
	return &Analyzer{lookahead: lookaheadDays}
}

// GapLength returns the length of the free pocket containing date, when the
// date is unbooked and flanked by confirmed reservations on both sides within
// the lookahead horizon. The second return is false when the night is not an
// orphan candidate (booked, unflanked, or flanks beyond the horizon).
func (a *Analyzer) GapLength(unitID uuid.UUID, date time.Time, reservations []domain.Reservation) (int, bool) {
	d := domain.Midnight(date)
	if occupied(unitID, d, reservations) {
		return 0, false
	}

	before, haveBefore := 0, false
	for back := 1; back <= a.lookahead; back++ {
		if occupied(unitID, d.AddDate(0, 0, -back), reservations) {
			before, haveBefore = back, true
			break
		}
	}
	if !haveBefore {
		return 0, false
	}

	after, haveAfter := 0, false
	for fwd := 1; fwd <= a.lookahead; fwd++ {
		if occupied(unitID, d.AddDate(0, 0, fwd), reservations) {
			after, haveAfter = fwd, true
			break
		}
	}
	if !haveAfter {
		return 0, false
	}

	// Free nights between the two flanking occupied nights.
	return before + after - 1, true
}

// OccupancyRatio returns occupied active units over total active units for a
// date. The second return is false when the property has no active units;
// occupancy rules then never match.
func (a *Analyzer) OccupancyRatio(units []domain.Unit, date time.Time, reservations []domain.Reservation) (float64, bool) {
	d := domain.Midnight(date)
	total := 0
	taken := 0
	for i := range units {
		if !units[i].Active {
			continue
		}
		total++
		if occupied(units[i].ID, d, reservations) {
			taken++
		}
	}
	if total == 0 {
		return 0, false
	}
	return float64(taken) / float64(total), true
}

func occupied(unitID uuid.UUID, date time.Time, reservations []domain.Reservation) bool {
	for i := range reservations {
		r := &reservations[i]
		if r.UnitID != unitID || r.Status != domain.ReservationConfirmed {
			continue
		}
		if r.Occupies(date) {
			return true
		}
	}
	return false
}
