package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"hoc_companion/internal/agent"
	"hoc_companion/internal/billing"
	"hoc_companion/internal/config"
	"hoc_companion/internal/ledger"
	"hoc_companion/internal/logging"
	"hoc_companion/internal/metrics"
	"hoc_companion/internal/models"
	"hoc_companion/internal/queue"
	"hoc_companion/internal/storage"
	"hoc_companion/internal/utils"
)

// NewRouter creates the HTTP handler with all dependencies wired up and
// their background workers started. Call Dependencies.Shutdown when done.
func NewRouter(ctx context.Context, cfg *config.Config, logger *utils.Logger) (http.Handler, *Dependencies, error) {
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	deps := &Dependencies{
		Logger:         logger,
		RequestTimeout: cfg.OpenAI.RequestTimeout,
	}
	fail := func(err error) (http.Handler, *Dependencies, error) {
		_ = deps.Shutdown(context.Background())
		return nil, nil, err
	}

	// Initialize database
	db, err := storage.NewDB(storage.DBConfigFrom(cfg.Database))
	if err != nil {
		return fail(fmt.Errorf("failed to initialize database: %w", err))
	}
	deps.Database = db
	deps.DBStats = db
	deps.onShutdown(func(context.Context) error { return db.Close() })

	if cfg.Metrics.Enabled {
		deps.Metrics = metrics.NewCollector(&cfg.Metrics, nil)
	}

	pipeline, provider, err := agent.NewFromConfig(cfg, db, deps.Metrics, logger)
	if err != nil {
		return fail(err)
	}
	deps.Pipeline = pipeline
	deps.onShutdown(func(context.Context) error { return provider.Close() })

	// Redis backs billing and the charge queue
	var redisClient *storage.RedisClient
	if cfg.Redis.Enabled {
		redisClient, err = storage.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return fail(fmt.Errorf("failed to initialize Redis: %w", err))
		}
		deps.onShutdown(func(context.Context) error { return redisClient.Close() })
	}

	deps.Billing = billing.NewNoopService()
	if cfg.Billing.Enabled {
		if redisClient == nil {
			return fail(fmt.Errorf("billing requires REDIS_ENABLED"))
		}
		billingService := billing.NewRedisBillingService(redisClient.Client(), cfg.Billing.MonthlyBudgetUSD)
		deps.Billing = billingService

		chargeCfg := queue.DefaultConfig("billing")
		chargeCfg.BatchTimeout = 5 * time.Second
		chargeCfg.RetryBackoff = time.Second
		chargeQueue, err := queue.NewRedisQueue[billing.Charge](redisClient.Client(), chargeCfg)
		if err != nil {
			return fail(fmt.Errorf("failed to create billing queue: %w", err))
		}
		chargeDLQ, err := queue.NewRedisDeadLetterQueue[billing.Charge](redisClient.Client(), chargeCfg)
		if err != nil {
			return fail(fmt.Errorf("failed to create billing DLQ: %w", err))
		}
		chargeWorker := billing.NewChargeWorker(chargeQueue, chargeDLQ, billingService, chargeCfg, logger.With("billing"))
		chargeWorker.Start(ctx)
		deps.Charges = chargeWorker
		deps.onShutdown(chargeWorker.Stop)
	}

	if cfg.Ledger.Enabled {
		l, err := ledger.Open(cfg.Ledger.Path)
		if err != nil {
			return fail(fmt.Errorf("failed to open usage ledger: %w", err))
		}
		deps.Ledger = l
		deps.onShutdown(func(context.Context) error { return l.Close() })

		retention := ledger.NewRetention(l, cfg.Ledger.Retention, cfg.Ledger.PruneSchedule, logger.With("retention"))
		if err := retention.Start(ctx); err != nil {
			return fail(err)
		}
		deps.onShutdown(func(context.Context) error {
			retention.Stop()
			return nil
		})

		usageCfg := queue.DefaultConfig("usage")
		if cfg.Ledger.QueueBatchSize > 0 {
			usageCfg.BatchSize = cfg.Ledger.QueueBatchSize
		}
		usageWorker := ledger.NewUsageWorker(
			queue.NewMemoryQueue[*models.UsageRecord](usageCfg),
			queue.NewMemoryDeadLetterQueue[*models.UsageRecord](),
			l, usageCfg, logger.With("ledger"),
		)
		usageWorker.Start(ctx)
		deps.Usage = usageWorker
		deps.onShutdown(usageWorker.Stop)
	}

	// Initialize request logger
	requestLogger, err := logging.NewLogger(
		cfg.RequestLogger.FilePathTemplate,
		cfg.RequestLogger.MaxSize,
		cfg.RequestLogger.MaxFiles,
		cfg.RequestLogger.BufferSize,
		cfg.RequestLogger.FlushInterval,
	)
	if err != nil {
		return fail(fmt.Errorf("failed to initialize request logger: %w", err))
	}

	var sink logging.Sink = logging.NewNoopSink()
	if cfg.LoggingSink.Enabled {
		s := cfg.LoggingSink
		writer, err := logging.NewS3Writer(ctx, s.S3Bucket, s.S3Region, s.S3Prefix, s.PodName, s.S3Endpoint, logger.With("s3-writer"))
		if err != nil {
			requestLogger.Shutdown()
			return fail(fmt.Errorf("failed to initialize S3 writer: %w", err))
		}
		sink = logging.NewS3Sink(ctx, logging.S3SinkConfig{
			BufferSize:    s.BufferSize,
			FlushSize:     s.FlushSize,
			FlushInterval: s.FlushInterval,
		}, writer, logger.With("s3-sink"))
	}
	deps.Recorder = logging.NewRecorder(logger, requestLogger, sink)
	deps.onShutdown(deps.Recorder.Close)

	return NewHandler(deps), deps, nil
}
