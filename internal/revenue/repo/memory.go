package repo

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/casita-pms/revenueservice/internal/revenue/domain"
)

// MemoryStore is an in-memory Store implementation used by tests and local
// development. A single lock gives every Snapshot a consistent view and
// serializes calendar writes.
type MemoryStore struct {
	mu           sync.RWMutex
	properties   map[uuid.UUID]domain.Property
	units        map[uuid.UUID]domain.Unit
	unitOrder    []uuid.UUID // maintain insertion order
	rules        map[uuid.UUID]domain.Rule
	ruleOrder    []uuid.UUID
	reservations map[uuid.UUID]domain.Reservation
	resOrder     []uuid.UUID
	smart        []domain.SmartPricingSync // append-only history
	calendar     map[CalendarKey]domain.CalendarEntry

	// failReservations simulates an unreachable reservation source.
	failReservations bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		properties:   make(map[uuid.UUID]domain.Property),
		units:        make(map[uuid.UUID]domain.Unit),
		rules:        make(map[uuid.UUID]domain.Rule),
		reservations: make(map[uuid.UUID]domain.Reservation),
		calendar:     make(map[CalendarKey]domain.CalendarEntry),
	}
}

// FailReservations toggles simulated reservation-source outages.
func (s *MemoryStore) FailReservations(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failReservations = fail
}

func (s *MemoryStore) Properties() PropertyRepository { return &memProperties{s} }

func (s *MemoryStore) Units() UnitRepository { return &memUnits{s} }

func (s *MemoryStore) Rules() RuleRepository { return &memRules{s} }

func (s *MemoryStore) Reservations() ReservationRepository { return &memReservations{s} }

func (s *MemoryStore) SmartPricing() SmartPricingRepository { return &memSmart{s} }

func (s *MemoryStore) Calendar() CalendarRepository { return &memCalendar{s} }

// Snapshot copies all inputs for a property under one lock acquisition.
func (s *MemoryStore) Snapshot(ctx context.Context, propertyID uuid.UUID, from, to time.Time) (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.properties[propertyID]
	if !ok {
		return nil, domain.NewNotFoundError("property", propertyID.String())
	}

	snap := &Snapshot{
		Property:    p,
		SmartPrices: make(map[time.Time]domain.SmartPricingSync),
		Calendar:    make(map[CalendarKey]domain.CalendarEntry),
	}

	for _, id := range s.unitOrder {
		u := s.units[id]
		if u.PropertyID == propertyID {
			snap.Units = append(snap.Units, u)
		}
	}
	for _, id := range s.ruleOrder {
		r := s.rules[id]
		if r.PropertyID == propertyID {
			snap.Rules = append(snap.Rules, r)
		}
	}

	if s.failReservations {
		snap.ReservationsUnavailable = true
	} else {
		for _, id := range s.resOrder {
			r := s.reservations[id]
			if r.Status == domain.ReservationCancelled {
				continue
			}
			if u, ok := s.units[r.UnitID]; !ok || u.PropertyID != propertyID {
				continue
			}
			snap.Reservations = append(snap.Reservations, r)
		}
	}

	for _, rec := range s.smart {
		if rec.PropertyID != propertyID || !rec.Usable() {
			continue
		}
		d := domain.Midnight(rec.Date)
		if d.Before(domain.Midnight(from)) || d.After(domain.Midnight(to)) {
			continue
		}
		if prev, ok := snap.SmartPrices[d]; !ok || rec.SyncedAt.After(prev.SyncedAt) {
			snap.SmartPrices[d] = rec
		}
	}

	for key, entry := range s.calendar {
		if key.Date.Before(domain.Midnight(from)) || key.Date.After(domain.Midnight(to)) {
			continue
		}
		if u, ok := s.units[key.UnitID]; !ok || u.PropertyID != propertyID {
			continue
		}
		snap.Calendar[key] = entry
	}

	return snap, nil
}

type memProperties struct{ s *MemoryStore }

func (m *memProperties) GetByID(ctx context.Context, id uuid.UUID) (domain.Property, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	p, ok := m.s.properties[id]
	if !ok {
		return domain.Property{}, domain.NewNotFoundError("property", id.String())
	}
	return p, nil
}

func (m *memProperties) ListActive(ctx context.Context) ([]domain.Property, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	var out []domain.Property
	for _, p := range m.s.properties {
		if p.Active {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memProperties) Upsert(ctx context.Context, p domain.Property) (domain.Property, error) {
	if err := p.Validate(); err != nil {
		return domain.Property{}, err
	}
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	m.s.properties[p.ID] = p
	return p, nil
}

type memUnits struct{ s *MemoryStore }

func (m *memUnits) GetByID(ctx context.Context, id uuid.UUID) (domain.Unit, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	u, ok := m.s.units[id]
	if !ok {
		return domain.Unit{}, domain.NewNotFoundError("unit", id.String())
	}
	return u, nil
}

func (m *memUnits) ListByProperty(ctx context.Context, propertyID uuid.UUID) ([]domain.Unit, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	var out []domain.Unit
	for _, id := range m.s.unitOrder {
		if u := m.s.units[id]; u.PropertyID == propertyID {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *memUnits) Upsert(ctx context.Context, u domain.Unit) (domain.Unit, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if _, exists := m.s.units[u.ID]; !exists {
		m.s.unitOrder = append(m.s.unitOrder, u.ID)
	}
	m.s.units[u.ID] = u
	return u, nil
}

type memRules struct{ s *MemoryStore }

func (m *memRules) GetByID(ctx context.Context, id uuid.UUID) (domain.Rule, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	r, ok := m.s.rules[id]
	if !ok {
		return domain.Rule{}, domain.NewNotFoundError("rule", id.String())
	}
	return r, nil
}

func (m *memRules) ListByProperty(ctx context.Context, propertyID uuid.UUID) ([]domain.Rule, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	var out []domain.Rule
	for _, id := range m.s.ruleOrder {
		if r := m.s.rules[id]; r.PropertyID == propertyID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memRules) Upsert(ctx context.Context, r domain.Rule) (domain.Rule, error) {
	if err := r.Validate(); err != nil {
		return domain.Rule{}, err
	}
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if _, exists := m.s.rules[r.ID]; !exists {
		m.s.ruleOrder = append(m.s.ruleOrder, r.ID)
	}
	m.s.rules[r.ID] = r
	return r, nil
}

func (m *memRules) Delete(ctx context.Context, id uuid.UUID) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for i, rid := range m.s.ruleOrder {
		if rid == id {
			m.s.ruleOrder = append(m.s.ruleOrder[:i], m.s.ruleOrder[i+1:]...)
			break
		}
	}
	delete(m.s.rules, id)
	return nil
}

type memReservations struct{ s *MemoryStore }

func (m *memReservations) ListByProperty(ctx context.Context, propertyID uuid.UUID, from, to time.Time) ([]domain.Reservation, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	if m.s.failReservations {
		return nil, domain.NewUpstreamUnavailableError("reservation source offline")
	}
	var out []domain.Reservation
	for _, id := range m.s.resOrder {
		r := m.s.reservations[id]
		if r.Status == domain.ReservationCancelled {
			continue
		}
		u, ok := m.s.units[r.UnitID]
		if !ok || u.PropertyID != propertyID {
			continue
		}
		if domain.Midnight(r.CheckOut).Before(domain.Midnight(from)) || domain.Midnight(r.CheckIn).After(domain.Midnight(to)) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (m *memReservations) Upsert(ctx context.Context, r domain.Reservation) (domain.Reservation, error) {
	if !r.CheckOut.After(r.CheckIn) {
		return domain.Reservation{}, domain.NewInvalidInputError("check_out must follow check_in", "")
	}
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if _, exists := m.s.reservations[r.ID]; !exists {
		m.s.resOrder = append(m.s.resOrder, r.ID)
	}
	m.s.reservations[r.ID] = r
	return r, nil
}

type memSmart struct{ s *MemoryStore }

func (m *memSmart) Record(ctx context.Context, rec domain.SmartPricingSync) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	rec.Date = domain.Midnight(rec.Date)
	m.s.smart = append(m.s.smart, rec)
	return nil
}

func (m *memSmart) LatestRange(ctx context.Context, propertyID uuid.UUID, from, to time.Time) (map[time.Time]domain.SmartPricingSync, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	out := make(map[time.Time]domain.SmartPricingSync)
	for _, rec := range m.s.smart {
		if rec.PropertyID != propertyID || !rec.Usable() {
			continue
		}
		d := domain.Midnight(rec.Date)
		if d.Before(domain.Midnight(from)) || d.After(domain.Midnight(to)) {
			continue
		}
		if prev, ok := out[d]; !ok || rec.SyncedAt.After(prev.SyncedAt) {
			out[d] = rec
		}
	}
	return out, nil
}

type memCalendar struct{ s *MemoryStore }

func (m *memCalendar) Get(ctx context.Context, unitID uuid.UUID, date time.Time) (domain.CalendarEntry, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	e, ok := m.s.calendar[CalendarKey{UnitID: unitID, Date: domain.Midnight(date)}]
	if !ok {
		return domain.CalendarEntry{}, domain.NewNotFoundError("calendar entry", unitID.String())
	}
	return e, nil
}

func (m *memCalendar) Range(ctx context.Context, unitID uuid.UUID, from, to time.Time) ([]domain.CalendarEntry, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	var out []domain.CalendarEntry
	for d := domain.Midnight(from); !d.After(domain.Midnight(to)); d = d.AddDate(0, 0, 1) {
		if e, ok := m.s.calendar[CalendarKey{UnitID: unitID, Date: d}]; ok {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memCalendar) UpsertBatch(ctx context.Context, unitID uuid.UUID, entries []domain.CalendarEntry) (int, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	written := 0
	for _, e := range entries {
		e.Date = domain.Midnight(e.Date)
		key := CalendarKey{UnitID: e.UnitID, Date: e.Date}
		if prev, ok := m.s.calendar[key]; ok && prev.LastUpdated.After(e.LastUpdated) {
			// Last writer wins on the monotonic timestamp.
			continue
		}
		m.s.calendar[key] = e
		written++
	}
	return written, nil
}
