package smartsync

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/casita-pms/revenueservice/internal/revenue/domain"
	"github.com/casita-pms/revenueservice/internal/revenue/repo"
)

func seed(t *testing.T) (*repo.MemoryStore, domain.Property) {
	t.Helper()
	store := repo.NewMemoryStore()
	p, err := store.Properties().Upsert(context.Background(), domain.Property{
		Name:                "Casa del Sol",
		Currency:            "USD",
		BasePrice:           20000,
		SmartPricingEnabled: true,
		Active:              true,
	})
	require.NoError(t, err)
	return store, p
}

func TestIngest_RecordsSuccessfulSync(t *testing.T) {
	store, p := seed(t)
	ing := NewIngestor(store)
	ctx := context.Background()
	date := domain.Day(2026, 7, 4)

	err := ing.Ingest(ctx, domain.SmartPricingSync{
		PropertyID:  p.ID,
		Date:        date,
		Price:       27500,
		DemandScore: 82,
		Status:      domain.SyncSuccess,
		SyncedAt:    time.Date(2026, 7, 1, 6, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	latest, err := store.SmartPricing().LatestRange(ctx, p.ID, date, date)
	require.NoError(t, err)
	require.Equal(t, int64(27500), latest[date].Price)
}

func TestIngest_FailedSyncIsKeptButNeverServed(t *testing.T) {
	store, p := seed(t)
	ing := NewIngestor(store)
	ctx := context.Background()
	date := domain.Day(2026, 7, 4)

	require.NoError(t, ing.Ingest(ctx, domain.SmartPricingSync{
		PropertyID: p.ID,
		Date:       date,
		Status:     domain.SyncFailed,
	}))

	latest, err := store.SmartPricing().LatestRange(ctx, p.ID, date, date)
	require.NoError(t, err)
	require.Empty(t, latest)
}

func TestIngest_Validation(t *testing.T) {
	store, p := seed(t)
	ing := NewIngestor(store)
	ctx := context.Background()
	date := domain.Day(2026, 7, 4)

	cases := []struct {
		name string
		rec  domain.SmartPricingSync
	}{
		{"missing property", domain.SmartPricingSync{Date: date, Price: 100, Status: domain.SyncSuccess}},
		{"missing date", domain.SmartPricingSync{PropertyID: p.ID, Price: 100, Status: domain.SyncSuccess}},
		{"success without price", domain.SmartPricingSync{PropertyID: p.ID, Date: date, Status: domain.SyncSuccess}},
		{"unknown status", domain.SmartPricingSync{PropertyID: p.ID, Date: date, Price: 100, Status: "maybe"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ing.Ingest(ctx, tc.rec)
			require.Equal(t, domain.ErrCodeInvalidInput, domain.ErrorCode(err))
		})
	}
}

func TestIngest_UnknownProperty(t *testing.T) {
	store, _ := seed(t)
	ing := NewIngestor(store)

	err := ing.Ingest(context.Background(), domain.SmartPricingSync{
		PropertyID: uuid.New(),
		Date:       domain.Day(2026, 7, 4),
		Price:      100,
		Status:     domain.SyncSuccess,
	})
	require.Equal(t, domain.ErrCodeNotFound, domain.ErrorCode(err))
}

func TestIngestBatch_AbortsOnFirstError(t *testing.T) {
	store, p := seed(t)
	ing := NewIngestor(store)
	ctx := context.Background()

	recs := []domain.SmartPricingSync{
		{PropertyID: p.ID, Date: domain.Day(2026, 7, 4), Price: 25000, Status: domain.SyncSuccess},
		{PropertyID: p.ID, Date: domain.Day(2026, 7, 5), Status: domain.SyncSuccess}, // invalid
		{PropertyID: p.ID, Date: domain.Day(2026, 7, 6), Price: 26000, Status: domain.SyncSuccess},
	}
	err := ing.IngestBatch(ctx, recs)
	require.Error(t, err)

	latest, err := store.SmartPricing().LatestRange(ctx, p.ID, domain.Day(2026, 7, 1), domain.Day(2026, 7, 31))
	require.NoError(t, err)
	require.Len(t, latest, 1)
}
