package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/casita-pms/revenueservice/internal/revenue/domain"
	"github.com/casita-pms/revenueservice/internal/revenue/repo"
)

// Store is the PostgreSQL implementation of repo.Store.
type Store struct {
	db *pgxpool.Pool
}

// NewStore creates a new PostgreSQL store
func NewStore(connString string) (*Store, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Test the connection
	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: pool}, nil
}

// NewStoreWithPool wraps an existing pool, for callers that manage pooling.
func NewStoreWithPool(pool *pgxpool.Pool) *Store {
	return &Store{db: pool}
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		s.db.Close()
	}
	return nil
}

func (s *Store) Properties() repo.PropertyRepository { return &propertyRepository{store: s} }

func (s *Store) Units() repo.UnitRepository { return &unitRepository{store: s} }

func (s *Store) Rules() repo.RuleRepository { return &ruleRepository{store: s} }

func (s *Store) Reservations() repo.ReservationRepository { return &reservationRepository{store: s} }

func (s *Store) SmartPricing() repo.SmartPricingRepository { return &smartPricingRepository{store: s} }

func (s *Store) Calendar() repo.CalendarRepository { return &calendarRepository{store: s} }

// querier is satisfied by both the pool and a transaction, so the row scanners
// can serve Snapshot and the standalone repositories alike.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Snapshot reads every materialization input inside one REPEATABLE READ
// transaction, so concurrent rule or reservation edits cannot produce a
// half-old view. Reservations are read last: if that read fails the snapshot
// is still returned with ReservationsUnavailable set, and the caller skips
// gap and occupancy rules instead of aborting the run.
func (s *Store) Snapshot(ctx context.Context, propertyID uuid.UUID, from, to time.Time) (*repo.Snapshot, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.RepeatableRead,
		AccessMode: pgx.ReadOnly,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to begin snapshot transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	from = domain.Midnight(from)
	to = domain.Midnight(to)

	snap := &repo.Snapshot{
		SmartPrices: make(map[time.Time]domain.SmartPricingSync),
		Calendar:    make(map[repo.CalendarKey]domain.CalendarEntry),
	}

	snap.Property, err = fetchProperty(ctx, tx, propertyID)
	if err != nil {
		return nil, err
	}
	snap.Units, err = fetchUnits(ctx, tx, propertyID)
	if err != nil {
		return nil, err
	}
	snap.Rules, err = fetchRules(ctx, tx, propertyID)
	if err != nil {
		return nil, err
	}
	snap.SmartPrices, err = fetchLatestSmartPrices(ctx, tx, propertyID, from, to)
	if err != nil {
		return nil, err
	}

	for _, u := range snap.Units {
		entries, rerr := fetchCalendarRange(ctx, tx, u.ID, from, to)
		if rerr != nil {
			return nil, rerr
		}
		for _, e := range entries {
			snap.Calendar[repo.CalendarKey{UnitID: e.UnitID, Date: e.Date}] = e
		}
	}

	snap.Reservations, err = fetchReservations(ctx, tx, propertyID, from, to)
	if err != nil {
		snap.Reservations = nil
		snap.ReservationsUnavailable = true
		return snap, nil
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit snapshot transaction: %w", err)
	}
	return snap, nil
}

// propertyRepository implements repo.PropertyRepository
type propertyRepository struct {
	store *Store
}

const propertyColumns = `id, name, currency, base_price, min_price, max_price, smart_pricing_enabled, active, created_at, updated_at`

func scanProperty(row pgx.Row) (domain.Property, error) {
	var p domain.Property
	err := row.Scan(&p.ID, &p.Name, &p.Currency, &p.BasePrice, &p.MinPrice, &p.MaxPrice,
		&p.SmartPricingEnabled, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func fetchProperty(ctx context.Context, q querier, id uuid.UUID) (domain.Property, error) {
	p, err := scanProperty(q.QueryRow(ctx,
		`SELECT `+propertyColumns+` FROM properties WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Property{}, domain.NewNotFoundError("property", id.String())
	}
	if err != nil {
		return domain.Property{}, fmt.Errorf("failed to fetch property: %w", err)
	}
	return p, nil
}

func (r *propertyRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Property, error) {
	return fetchProperty(ctx, r.store.db, id)
}

func (r *propertyRepository) ListActive(ctx context.Context) ([]domain.Property, error) {
	rows, err := r.store.db.Query(ctx,
		`SELECT `+propertyColumns+` FROM properties WHERE active ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list properties: %w", err)
	}
	defer rows.Close()

	var out []domain.Property
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan property: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *propertyRepository) Upsert(ctx context.Context, p domain.Property) (domain.Property, error) {
	if err := p.Validate(); err != nil {
		return domain.Property{}, err
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	row := r.store.db.QueryRow(ctx, `
		INSERT INTO properties (id, name, currency, base_price, min_price, max_price, smart_pricing_enabled, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			currency = EXCLUDED.currency,
			base_price = EXCLUDED.base_price,
			min_price = EXCLUDED.min_price,
			max_price = EXCLUDED.max_price,
			smart_pricing_enabled = EXCLUDED.smart_pricing_enabled,
			active = EXCLUDED.active,
			updated_at = now()
		RETURNING `+propertyColumns,
		p.ID, p.Name, p.Currency, p.BasePrice, p.MinPrice, p.MaxPrice, p.SmartPricingEnabled, p.Active)
	saved, err := scanProperty(row)
	if err != nil {
		return domain.Property{}, fmt.Errorf("failed to upsert property: %w", err)
	}
	return saved, nil
}

// unitRepository implements repo.UnitRepository
type unitRepository struct {
	store *Store
}

const unitColumns = `id, property_id, name, inherit_parent_pricing, price_modifier, price_modifier_type, custom_base_price, custom_min_price, custom_max_price, default_min_nights, active, created_at, updated_at`

func scanUnit(row pgx.Row) (domain.Unit, error) {
	var u domain.Unit
	err := row.Scan(&u.ID, &u.PropertyID, &u.Name, &u.InheritParentPricing, &u.PriceModifier,
		&u.PriceModifierType, &u.CustomBasePrice, &u.CustomMinPrice, &u.CustomMaxPrice,
		&u.DefaultMinNights, &u.Active, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

func fetchUnits(ctx context.Context, q querier, propertyID uuid.UUID) ([]domain.Unit, error) {
	rows, err := q.Query(ctx,
		`SELECT `+unitColumns+` FROM units WHERE property_id = $1 ORDER BY created_at, id`, propertyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list units: %w", err)
	}
	defer rows.Close()

	var out []domain.Unit
	for rows.Next() {
		u, err := scanUnit(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan unit: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *unitRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Unit, error) {
	u, err := scanUnit(r.store.db.QueryRow(ctx,
		`SELECT `+unitColumns+` FROM units WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Unit{}, domain.NewNotFoundError("unit", id.String())
	}
	if err != nil {
		return domain.Unit{}, fmt.Errorf("failed to fetch unit: %w", err)
	}
	return u, nil
}

func (r *unitRepository) ListByProperty(ctx context.Context, propertyID uuid.UUID) ([]domain.Unit, error) {
	return fetchUnits(ctx, r.store.db, propertyID)
}

func (r *unitRepository) Upsert(ctx context.Context, u domain.Unit) (domain.Unit, error) {
	if u.PropertyID == uuid.Nil {
		return domain.Unit{}, domain.NewInvalidInputError("unit property_id is required", "")
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	row := r.store.db.QueryRow(ctx, `
		INSERT INTO units (id, property_id, name, inherit_parent_pricing, price_modifier, price_modifier_type,
			custom_base_price, custom_min_price, custom_max_price, default_min_nights, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			inherit_parent_pricing = EXCLUDED.inherit_parent_pricing,
			price_modifier = EXCLUDED.price_modifier,
			price_modifier_type = EXCLUDED.price_modifier_type,
			custom_base_price = EXCLUDED.custom_base_price,
			custom_min_price = EXCLUDED.custom_min_price,
			custom_max_price = EXCLUDED.custom_max_price,
			default_min_nights = EXCLUDED.default_min_nights,
			active = EXCLUDED.active,
			updated_at = now()
		RETURNING `+unitColumns,
		u.ID, u.PropertyID, u.Name, u.InheritParentPricing, u.PriceModifier, u.PriceModifierType,
		u.CustomBasePrice, u.CustomMinPrice, u.CustomMaxPrice, u.DefaultMinNights, u.Active)
	saved, err := scanUnit(row)
	if err != nil {
		return domain.Unit{}, fmt.Errorf("failed to upsert unit: %w", err)
	}
	return saved, nil
}

// ruleRepository implements repo.RuleRepository
type ruleRepository struct {
	store *Store
}

const ruleColumns = `id, property_id, unit_id, name, category, adjustment_type, adjustment_value, priority, min_nights, reduce_min_stay, active, config, created_at, updated_at`

func scanRule(row pgx.Row) (domain.Rule, error) {
	var (
		r      domain.Rule
		unitID *uuid.UUID
		cfg    []byte
	)
	err := row.Scan(&r.ID, &r.PropertyID, &unitID, &r.Name, &r.Category, &r.AdjustmentType,
		&r.AdjustmentValue, &r.Priority, &r.MinNights, &r.ReduceMinStay, &r.Active, &cfg,
		&r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return domain.Rule{}, err
	}
	if unitID != nil {
		r.UnitID = *unitID
	}
	if err := json.Unmarshal(cfg, &r.Config); err != nil {
		return domain.Rule{}, fmt.Errorf("failed to decode rule config: %w", err)
	}
	return r, nil
}

func fetchRules(ctx context.Context, q querier, propertyID uuid.UUID) ([]domain.Rule, error) {
	rows, err := q.Query(ctx,
		`SELECT `+ruleColumns+` FROM pricing_rules WHERE property_id = $1 ORDER BY created_at, id`, propertyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}
	defer rows.Close()

	var out []domain.Rule
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (r *ruleRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Rule, error) {
	rule, err := scanRule(r.store.db.QueryRow(ctx,
		`SELECT `+ruleColumns+` FROM pricing_rules WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Rule{}, domain.NewNotFoundError("rule", id.String())
	}
	if err != nil {
		return domain.Rule{}, fmt.Errorf("failed to fetch rule: %w", err)
	}
	return rule, nil
}

func (r *ruleRepository) ListByProperty(ctx context.Context, propertyID uuid.UUID) ([]domain.Rule, error) {
	return fetchRules(ctx, r.store.db, propertyID)
}

func (r *ruleRepository) Upsert(ctx context.Context, rule domain.Rule) (domain.Rule, error) {
	if err := rule.Validate(); err != nil {
		return domain.Rule{}, err
	}
	if rule.PropertyID == uuid.Nil {
		return domain.Rule{}, domain.NewInvalidInputError("rule property_id is required", "")
	}
	if rule.ID == uuid.Nil {
		rule.ID = uuid.New()
	}
	cfg, err := json.Marshal(rule.Config)
	if err != nil {
		return domain.Rule{}, fmt.Errorf("failed to encode rule config: %w", err)
	}
	var unitID *uuid.UUID
	if rule.UnitID != uuid.Nil {
		unitID = &rule.UnitID
	}
	row := r.store.db.QueryRow(ctx, `
		INSERT INTO pricing_rules (id, property_id, unit_id, name, category, adjustment_type,
			adjustment_value, priority, min_nights, reduce_min_stay, active, config)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			unit_id = EXCLUDED.unit_id,
			name = EXCLUDED.name,
			category = EXCLUDED.category,
			adjustment_type = EXCLUDED.adjustment_type,
			adjustment_value = EXCLUDED.adjustment_value,
			priority = EXCLUDED.priority,
			min_nights = EXCLUDED.min_nights,
			reduce_min_stay = EXCLUDED.reduce_min_stay,
			active = EXCLUDED.active,
			config = EXCLUDED.config,
			updated_at = now()
		RETURNING `+ruleColumns,
		rule.ID, rule.PropertyID, unitID, rule.Name, rule.Category, rule.AdjustmentType,
		rule.AdjustmentValue, rule.Priority, rule.MinNights, rule.ReduceMinStay, rule.Active, cfg)
	saved, err := scanRule(row)
	if err != nil {
		return domain.Rule{}, fmt.Errorf("failed to upsert rule: %w", err)
	}
	return saved, nil
}

func (r *ruleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.store.db.Exec(ctx, `DELETE FROM pricing_rules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete rule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewNotFoundError("rule", id.String())
	}
	return nil
}

// reservationRepository implements repo.ReservationRepository
type reservationRepository struct {
	store *Store
}

func fetchReservations(ctx context.Context, q querier, propertyID uuid.UUID, from, to time.Time) ([]domain.Reservation, error) {
	// A reservation occupies [check_in, check_out); it overlaps the window
	// when it starts on or before the last night and ends after the first.
	rows, err := q.Query(ctx, `
		SELECT r.id, r.unit_id, r.check_in, r.check_out, r.status
		FROM reservations r
		JOIN units u ON u.id = r.unit_id
		WHERE u.property_id = $1
		  AND r.status <> 'cancelled'
		  AND r.check_in <= $3
		  AND r.check_out > $2
		ORDER BY r.check_in, r.id`,
		propertyID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list reservations: %w", err)
	}
	defer rows.Close()

	var out []domain.Reservation
	for rows.Next() {
		var res domain.Reservation
		if err := rows.Scan(&res.ID, &res.UnitID, &res.CheckIn, &res.CheckOut, &res.Status); err != nil {
			return nil, fmt.Errorf("failed to scan reservation: %w", err)
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

func (r *reservationRepository) ListByProperty(ctx context.Context, propertyID uuid.UUID, from, to time.Time) ([]domain.Reservation, error) {
	return fetchReservations(ctx, r.store.db, propertyID, domain.Midnight(from), domain.Midnight(to))
}

func (r *reservationRepository) Upsert(ctx context.Context, res domain.Reservation) (domain.Reservation, error) {
	if res.UnitID == uuid.Nil {
		return domain.Reservation{}, domain.NewInvalidInputError("reservation unit_id is required", "")
	}
	if !domain.Midnight(res.CheckOut).After(domain.Midnight(res.CheckIn)) {
		return domain.Reservation{}, domain.NewInvalidInputError("check_out must be after check_in", "")
	}
	if res.ID == uuid.Nil {
		res.ID = uuid.New()
	}
	row := r.store.db.QueryRow(ctx, `
		INSERT INTO reservations (id, unit_id, check_in, check_out, status)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			check_in = EXCLUDED.check_in,
			check_out = EXCLUDED.check_out,
			status = EXCLUDED.status
		RETURNING id, unit_id, check_in, check_out, status`,
		res.ID, res.UnitID, domain.Midnight(res.CheckIn), domain.Midnight(res.CheckOut), res.Status)
	var saved domain.Reservation
	if err := row.Scan(&saved.ID, &saved.UnitID, &saved.CheckIn, &saved.CheckOut, &saved.Status); err != nil {
		return domain.Reservation{}, fmt.Errorf("failed to upsert reservation: %w", err)
	}
	return saved, nil
}

// smartPricingRepository implements repo.SmartPricingRepository
type smartPricingRepository struct {
	store *Store
}

func (r *smartPricingRepository) Record(ctx context.Context, s domain.SmartPricingSync) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	_, err := r.store.db.Exec(ctx, `
		INSERT INTO smart_pricing_sync (id, property_id, sync_date, price, demand_score, status, synced_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		s.ID, s.PropertyID, domain.Midnight(s.Date), s.Price, s.DemandScore, s.Status, s.SyncedAt)
	if err != nil {
		return fmt.Errorf("failed to record smart pricing sync: %w", err)
	}
	return nil
}

func fetchLatestSmartPrices(ctx context.Context, q querier, propertyID uuid.UUID, from, to time.Time) (map[time.Time]domain.SmartPricingSync, error) {
	rows, err := q.Query(ctx, `
		SELECT DISTINCT ON (sync_date) id, property_id, sync_date, price, demand_score, status, synced_at
		FROM smart_pricing_sync
		WHERE property_id = $1 AND status = 'success' AND sync_date BETWEEN $2 AND $3
		ORDER BY sync_date, synced_at DESC, id DESC`,
		propertyID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list smart pricing syncs: %w", err)
	}
	defer rows.Close()

	out := make(map[time.Time]domain.SmartPricingSync)
	for rows.Next() {
		var s domain.SmartPricingSync
		if err := rows.Scan(&s.ID, &s.PropertyID, &s.Date, &s.Price, &s.DemandScore, &s.Status, &s.SyncedAt); err != nil {
			return nil, fmt.Errorf("failed to scan smart pricing sync: %w", err)
		}
		out[domain.Midnight(s.Date)] = s
	}
	return out, rows.Err()
}

func (r *smartPricingRepository) LatestRange(ctx context.Context, propertyID uuid.UUID, from, to time.Time) (map[time.Time]domain.SmartPricingSync, error) {
	return fetchLatestSmartPrices(ctx, r.store.db, propertyID, domain.Midnight(from), domain.Midnight(to))
}

// calendarRepository implements repo.CalendarRepository
type calendarRepository struct {
	store *Store
}

const calendarColumns = `unit_id, calendar_date, base_price, adj_seasonal, adj_day_of_week, adj_last_minute, adj_far_out, adj_orphan_day, adj_occupancy, adj_event, adj_generic, adjusted_price, final_price, available, blocked, block_reason, min_nights, price_source, last_updated`

func scanCalendarEntry(row pgx.Row) (domain.CalendarEntry, error) {
	var e domain.CalendarEntry
	err := row.Scan(&e.UnitID, &e.Date, &e.BasePrice,
		&e.Breakdown.Seasonal, &e.Breakdown.DayOfWeek, &e.Breakdown.LastMin, &e.Breakdown.FarOut,
		&e.Breakdown.OrphanDay, &e.Breakdown.Occupancy, &e.Breakdown.Event, &e.Breakdown.Generic,
		&e.AdjustedPrice, &e.FinalPrice, &e.Available, &e.Blocked, &e.BlockReason,
		&e.MinNights, &e.PriceSource, &e.LastUpdated)
	return e, err
}

func (r *calendarRepository) Get(ctx context.Context, unitID uuid.UUID, date time.Time) (domain.CalendarEntry, error) {
	e, err := scanCalendarEntry(r.store.db.QueryRow(ctx,
		`SELECT `+calendarColumns+` FROM pricing_calendar WHERE unit_id = $1 AND calendar_date = $2`,
		unitID, domain.Midnight(date)))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.CalendarEntry{}, domain.NewNotFoundError("calendar entry", unitID.String())
	}
	if err != nil {
		return domain.CalendarEntry{}, fmt.Errorf("failed to fetch calendar entry: %w", err)
	}
	return e, nil
}

func fetchCalendarRange(ctx context.Context, q querier, unitID uuid.UUID, from, to time.Time) ([]domain.CalendarEntry, error) {
	rows, err := q.Query(ctx,
		`SELECT `+calendarColumns+` FROM pricing_calendar
		 WHERE unit_id = $1 AND calendar_date BETWEEN $2 AND $3
		 ORDER BY calendar_date`,
		unitID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list calendar entries: %w", err)
	}
	defer rows.Close()

	var out []domain.CalendarEntry
	for rows.Next() {
		e, err := scanCalendarEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan calendar entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *calendarRepository) Range(ctx context.Context, unitID uuid.UUID, from, to time.Time) ([]domain.CalendarEntry, error) {
	return fetchCalendarRange(ctx, r.store.db, unitID, domain.Midnight(from), domain.Midnight(to))
}

// UpsertBatch writes one unit's rows inside a transaction holding a per-unit
// advisory lock, so two overlapping runs for the same unit serialize instead
// of interleaving. The conditional upsert keeps the freshest row when an
// older run commits late (last writer wins on last_updated).
func (r *calendarRepository) UpsertBatch(ctx context.Context, unitID uuid.UUID, entries []domain.CalendarEntry) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}
	tx, err := r.store.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin calendar transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1::text, 0))`, unitID); err != nil {
		return 0, fmt.Errorf("failed to acquire unit lock: %w", err)
	}

	written := 0
	for _, e := range entries {
		tag, err := tx.Exec(ctx, `
			INSERT INTO pricing_calendar (unit_id, calendar_date, base_price,
				adj_seasonal, adj_day_of_week, adj_last_minute, adj_far_out,
				adj_orphan_day, adj_occupancy, adj_event, adj_generic,
				adjusted_price, final_price, available, blocked, block_reason,
				min_nights, price_source, last_updated)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
			ON CONFLICT (unit_id, calendar_date) DO UPDATE SET
				base_price = EXCLUDED.base_price,
				adj_seasonal = EXCLUDED.adj_seasonal,
				adj_day_of_week = EXCLUDED.adj_day_of_week,
				adj_last_minute = EXCLUDED.adj_last_minute,
				adj_far_out = EXCLUDED.adj_far_out,
				adj_orphan_day = EXCLUDED.adj_orphan_day,
				adj_occupancy = EXCLUDED.adj_occupancy,
				adj_event = EXCLUDED.adj_event,
				adj_generic = EXCLUDED.adj_generic,
				adjusted_price = EXCLUDED.adjusted_price,
				final_price = EXCLUDED.final_price,
				available = EXCLUDED.available,
				blocked = EXCLUDED.blocked,
				block_reason = EXCLUDED.block_reason,
				min_nights = EXCLUDED.min_nights,
				price_source = EXCLUDED.price_source,
				last_updated = EXCLUDED.last_updated
			WHERE pricing_calendar.last_updated <= EXCLUDED.last_updated`,
			unitID, domain.Midnight(e.Date), e.BasePrice,
			e.Breakdown.Seasonal, e.Breakdown.DayOfWeek, e.Breakdown.LastMin, e.Breakdown.FarOut,
			e.Breakdown.OrphanDay, e.Breakdown.Occupancy, e.Breakdown.Event, e.Breakdown.Generic,
			e.AdjustedPrice, e.FinalPrice, e.Available, e.Blocked, e.BlockReason,
			e.MinNights, e.PriceSource, e.LastUpdated)
		if err != nil {
			return 0, fmt.Errorf("failed to upsert calendar entry: %w", err)
		}
		written += int(tag.RowsAffected())
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit calendar transaction: %w", err)
	}
	return written, nil
}
