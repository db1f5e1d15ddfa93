package smartsync

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/casita-pms/revenueservice/internal/log"
	"github.com/casita-pms/revenueservice/internal/metrics"
	"github.com/casita-pms/revenueservice/internal/revenue/domain"
	"github.com/casita-pms/revenueservice/internal/revenue/repo"
)

// Ingestor records upstream smart-pricing feed records. The engine never
// computes smart prices itself; it treats the feed as an input signal and
// picks up new records on the next materialization pass. Failed syncs are
// kept for history but never feed the resolver.
type Ingestor struct {
	store repo.Store
}

func NewIngestor(store repo.Store) *Ingestor {
	return &Ingestor{store: store}
}

// Ingest validates and records one sync record.
func (i *Ingestor) Ingest(ctx context.Context, rec domain.SmartPricingSync) error {
	if rec.PropertyID == uuid.Nil {
		return domain.NewInvalidInputError("property id is required", "")
	}
	if rec.Date.IsZero() {
		return domain.NewInvalidInputError("sync date is required", "")
	}
	switch rec.Status {
	case domain.SyncSuccess:
		if rec.Price <= 0 {
			return domain.NewInvalidInputError("successful sync requires a positive price", "")
		}
	case domain.SyncFailed:
	default:
		return domain.NewInvalidInputError("unknown sync status", string(rec.Status))
	}
	if rec.SyncedAt.IsZero() {
		rec.SyncedAt = time.Now()
	}

	if _, err := i.store.Properties().GetByID(ctx, rec.PropertyID); err != nil {
		return err
	}

	if err := i.store.SmartPricing().Record(ctx, rec); err != nil {
		log.Error(ctx, "Failed to record smart pricing sync",
			zap.String("property_id", rec.PropertyID.String()),
			zap.Time("date", rec.Date),
			zap.Error(err))
		return err
	}

	metrics.SmartSyncRecords.WithLabelValues(string(rec.Status)).Inc()
	log.Debug(ctx, "Smart pricing sync recorded",
		zap.String("property_id", rec.PropertyID.String()),
		zap.Time("date", rec.Date),
		zap.Int64("price", rec.Price),
		zap.Int("demand_score", rec.DemandScore),
		zap.String("status", string(rec.Status)))
	return nil
}

// IngestBatch records a feed page. The first validation error aborts the
// batch so a partial page is never silently applied.
func (i *Ingestor) IngestBatch(ctx context.Context, recs []domain.SmartPricingSync) error {
	for idx := range recs {
		if err := i.Ingest(ctx, recs[idx]); err != nil {
			return err
		}
	}
	return nil
}
