package rules

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/casita-pms/revenueservice/internal/revenue/domain"
)

// Conflict records two rules of the same category, scope and priority that
// matched the same date. The winner was chosen by rule-id tie-break; the
// conflict is surfaced for operator visibility, never fatal.
type Conflict struct {
	Category domain.RuleCategory `json:"category"`
	Winner   uuid.UUID           `json:"winner"`
	Loser    uuid.UUID           `json:"loser"`
	Priority int                 `json:"priority"`
}

func (c Conflict) String() string {
	return fmt.Sprintf("%s priority %d: %s shadows %s", c.Category, c.Priority, c.Winner, c.Loser)
}

// Select picks the rules that contribute to a (unit, date) resolution:
//
//   - only rules matching the context are considered;
//   - a unit-scoped rule shadows all property-wide rules of its category;
//   - within the surviving scope, one winner per category: lowest priority
//     value, ties broken by lowest rule id;
//   - winners are returned in application order (priority ascending, id
//     ascending on ties).
func Select(all []domain.Rule, unitID uuid.UUID, ctx Context) ([]domain.Rule, []Conflict) {
	type bucket struct {
		unitScoped []domain.Rule
		propWide   []domain.Rule
	}
	buckets := make(map[domain.RuleCategory]*bucket)

	for i := range all {
		r := all[i]
		if r.UnitScoped() && r.UnitID != unitID {
			continue
		}
		if !Matches(&r, ctx) {
			continue
		}
		b := buckets[r.Category]
		if b == nil {
			b = &bucket{}
			buckets[r.Category] = b
		}
		if r.UnitScoped() {
			b.unitScoped = append(b.unitScoped, r)
		} else {
			b.propWide = append(b.propWide, r)
		}
	}

	var winners []domain.Rule
	var conflicts []Conflict
	for _, cat := range domain.Categories {
		b := buckets[cat]
		if b == nil {
			continue
		}
		pool := b.propWide
		if len(b.unitScoped) > 0 {
			pool = b.unitScoped
		}
		win, conflict := pickWinner(pool)
		if conflict != nil {
			conflicts = append(conflicts, *conflict)
		}
		winners = append(winners, win)
	}

	sort.SliceStable(winners, func(i, j int) bool {
		if winners[i].Priority != winners[j].Priority {
			return winners[i].Priority < winners[j].Priority
		}
		return lessID(winners[i].ID, winners[j].ID)
	})
	return winners, conflicts
}

// pickWinner picks the lowest-priority rule from a non-empty pool, breaking
// priority ties deterministically by rule id.
func pickWinner(pool []domain.Rule) (domain.Rule, *Conflict) {
	win := pool[0]
	var conflict *Conflict
	for _, r := range pool[1:] {
		switch {
		case r.Priority < win.Priority:
			win, conflict = r, nil
		case r.Priority == win.Priority:
			loser := r
			if lessID(r.ID, win.ID) {
				loser = win
				win = r
			}
			conflict = &Conflict{
				Category: win.Category,
				Winner:   win.ID,
				Loser:    loser.ID,
				Priority: win.Priority,
			}
		}
	}
	return win, conflict
}

func lessID(a, b uuid.UUID) bool {
	return a.String() < b.String()
}
