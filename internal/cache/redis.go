package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/casita-pms/revenueservice/internal/revenue/domain"
)

// DefaultTTL bounds how long a cached calendar entry is served before
// readers fall back to the store.
const DefaultTTL = 10 * time.Minute

// CalendarCache is a Redis read-through cache for materialized calendar
// entries, keyed cal:{unit_id}:{date}.
type CalendarCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCalendarCache creates a cache instance and verifies connectivity.
func NewCalendarCache(addr, password string, db int) (*CalendarCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return &CalendarCache{client: client, ttl: DefaultTTL}, nil
}

// NewCalendarCacheWithClient wraps an existing client; used by tests.
func NewCalendarCacheWithClient(client *redis.Client) *CalendarCache {
	return &CalendarCache{client: client, ttl: DefaultTTL}
}

// Close closes the Redis connection
func (c *CalendarCache) Close() error {
	return c.client.Close()
}

func entryKey(unitID uuid.UUID, date time.Time) string {
	return fmt.Sprintf("cal:%s:%s", unitID, domain.Midnight(date).Format("2006-01-02"))
}

// Get retrieves a cached entry. The second return is false on a miss.
func (c *CalendarCache) Get(ctx context.Context, unitID uuid.UUID, date time.Time) (domain.CalendarEntry, bool, error) {
	data, err := c.client.Get(ctx, entryKey(unitID, date)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return domain.CalendarEntry{}, false, nil
		}
		return domain.CalendarEntry{}, false, fmt.Errorf("failed to get key: %w", err)
	}

	var entry domain.CalendarEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return domain.CalendarEntry{}, false, fmt.Errorf("failed to unmarshal entry: %w", err)
	}
	return entry, true, nil
}

// SetBatch caches freshly materialized entries.
func (c *CalendarCache) SetBatch(ctx context.Context, entries []domain.CalendarEntry) error {
	pipe := c.client.Pipeline()
	for i := range entries {
		data, err := json.Marshal(&entries[i])
		if err != nil {
			return fmt.Errorf("failed to marshal entry: %w", err)
		}
		pipe.Set(ctx, entryKey(entries[i].UnitID, entries[i].Date), data, c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to cache entries: %w", err)
	}
	return nil
}

// InvalidateRange drops a unit's cached entries over [from, to].
func (c *CalendarCache) InvalidateRange(ctx context.Context, unitID uuid.UUID, from, to time.Time) error {
	keys := make([]string, 0, domain.DaysBetween(from, to)+1)
	for d := domain.Midnight(from); !d.After(domain.Midnight(to)); d = d.AddDate(0, 0, 1) {
		keys = append(keys, entryKey(unitID, d))
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to invalidate range: %w", err)
	}
	return nil
}
