package main

import (
	"context"
	stdlog "log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/casita-pms/revenueservice/internal/cache"
	"github.com/casita-pms/revenueservice/internal/config"
	"github.com/casita-pms/revenueservice/internal/db"
	"github.com/casita-pms/revenueservice/internal/events"
	"github.com/casita-pms/revenueservice/internal/log"
	"github.com/casita-pms/revenueservice/internal/metrics"
	"github.com/casita-pms/revenueservice/internal/revenue/calendar"
	"github.com/casita-pms/revenueservice/internal/revenue/domain"
	"github.com/casita-pms/revenueservice/internal/revenue/occupancy"
	"github.com/casita-pms/revenueservice/internal/revenue/repo/postgres"
)

func main() {
	configPath := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		configPath = v
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		stdlog.Fatalf("Failed to load configuration: %v", err)
	}

	if err := log.Init(cfg.Log.Level); err != nil {
		stdlog.Fatalf("Failed to initialize logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbPool, err := db.NewPool(ctx, &db.Config{
		DSN:               cfg.Postgres.DSN,
		MaxConns:          cfg.Postgres.MaxConns,
		MinConns:          2,
		MaxConnLifetime:   time.Hour,
		MaxConnIdleTime:   30 * time.Minute,
		HealthCheckPeriod: time.Minute,
	})
	if err != nil {
		stdlog.Fatalf("Failed to create database pool: %v", err)
	}
	defer dbPool.Close()

	store := postgres.NewStoreWithPool(dbPool.Pool)

	var cc *cache.CalendarCache
	if cfg.Redis.Enabled {
		cc, err = cache.NewCalendarCache(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Error(ctx, "Redis unavailable, continuing without calendar cache", zap.Error(err))
		} else {
			defer cc.Close()
		}
	}

	var publisher events.CalendarPublisher = events.NoopPublisher{}
	if cfg.Kafka.Enabled {
		kp, err := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, log.L(ctx))
		if err != nil {
			stdlog.Fatalf("Failed to create kafka publisher: %v", err)
		}
		publisher = kp
		defer kp.Close()
	}

	analyzer := occupancy.NewAnalyzer(cfg.Engine.GapLookaheadDays)
	materializer := calendar.NewMaterializer(store, analyzer, cc, publisher, cfg.Engine.MaxHorizonDays)

	metricsServer := metrics.NewServer(cfg.Metrics.Addr, log.L(ctx))
	go func() {
		if err := metricsServer.Start(ctx); err != nil {
			log.Error(ctx, "Metrics server stopped", zap.Error(err))
		}
	}()

	interval, err := time.ParseDuration(cfg.Engine.RecomputeInterval)
	if err != nil || interval <= 0 {
		interval = time.Hour
	}

	log.Info(ctx, "Revenue service started",
		zap.String("app", cfg.AppName),
		zap.Int("horizon_days", cfg.Engine.HorizonDays),
		zap.Duration("recompute_interval", interval))

	runAll(ctx, materializer, store, cfg.Engine.HorizonDays)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info(context.Background(), "Shutting down revenue service")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				log.Error(shutdownCtx, "Metrics server shutdown failed", zap.Error(err))
			}
			return
		case <-ticker.C:
			runAll(ctx, materializer, store, cfg.Engine.HorizonDays)
		}
	}
}

// runAll materializes the calendar for every active property. One failing
// property never blocks the rest of the sweep.
func runAll(ctx context.Context, m *calendar.Materializer, store *postgres.Store, horizonDays int) {
	properties, err := store.Properties().ListActive(ctx)
	if err != nil {
		log.Error(ctx, "Failed to list active properties", zap.Error(err))
		return
	}

	today := domain.Midnight(time.Now())
	from := today
	to := today.AddDate(0, 0, horizonDays-1)

	for _, p := range properties {
		if ctx.Err() != nil {
			return
		}
		report, err := m.Materialize(ctx, p.ID, from, to, calendar.Options{
			Today: today,
			Now:   time.Now().UTC(),
		})
		if err != nil {
			log.Error(ctx, "Materialization failed",
				zap.String("property_id", p.ID.String()),
				zap.Error(err))
			continue
		}
		log.Info(ctx, "Materialization complete",
			zap.String("property_id", p.ID.String()),
			zap.String("run_id", report.RunID.String()),
			zap.Int("cells", report.Cells),
			zap.Int("rows_written", report.RowsWritten),
			zap.Int("failures", len(report.Failures)),
			zap.Int("conflicts", len(report.Conflicts)))
	}
}
