package di

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	"TrendPulse/internal/domain/models"
	drepo "TrendPulse/internal/domain/repository"
	"TrendPulse/internal/handler/api"
	mid "TrendPulse/internal/middleware"
	internalrepo "TrendPulse/internal/repository"
	"TrendPulse/internal/service/breaker"
	rescache "TrendPulse/internal/service/cache"
	"TrendPulse/internal/service/collector"
	"TrendPulse/internal/service/inference"
	"TrendPulse/internal/service/ledger"
	"TrendPulse/internal/usecase"
	"TrendPulse/pkg/bus"
	pkgcache "TrendPulse/pkg/cache"
	pkgch "TrendPulse/pkg/clickhouse"
	"TrendPulse/pkg/config"
	xhttp "TrendPulse/pkg/http"
	pkgkafka "TrendPulse/pkg/kafka"
	"TrendPulse/pkg/logger"
	"TrendPulse/pkg/metrics"
	"TrendPulse/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	return logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
}

// ProvideMetrics creates the Prometheus metrics recorder.
func ProvideMetrics() drepo.Metrics {
	return metrics.New()
}

// ProvidePgxPool creates the Postgres connection pool.
func ProvidePgxPool(cfg *config.Config) (*pgxpool.Pool, error) {
	pc, err := pgxpool.ParseConfig(cfg.Postgres.URL)
	if err != nil {
		return nil, fmt.Errorf("postgres config: %w", err)
	}
	if cfg.Postgres.MaxConns > 0 {
		pc.MaxConns = cfg.Postgres.MaxConns
	}
	if cfg.Postgres.MinConns > 0 {
		pc.MinConns = cfg.Postgres.MinConns
	}
	if cfg.Postgres.MaxConnLifetime > 0 {
		pc.MaxConnLifetime = cfg.Postgres.MaxConnLifetime
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	return pool, nil
}

// ProvidePostgres creates the relational store backing items, activity and
// flash markets.
func ProvidePostgres(pool *pgxpool.Pool) *internalrepo.Postgres {
	return internalrepo.NewPostgres(pool)
}

func ProvideItemStore(pg *internalrepo.Postgres) drepo.ItemStore         { return pg }
func ProvideActivityStore(pg *internalrepo.Postgres) drepo.ActivityStore { return pg }
func ProvideFlashStore(pg *internalrepo.Postgres) drepo.FlashStore       { return pg }

// ProvideClickHouseClient creates the ClickHouse client.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvideTrendStore creates the trend history store and ensures its schema.
func ProvideTrendStore(client *pkgch.Client) (drepo.TrendStore, error) {
	store := internalrepo.NewClickHouseTrendStore(client)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("trend store schema: %w", err)
	}
	return store, nil
}

// ProvideKafkaProducer creates the Kafka producer.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideBus creates the in-process event bus.
func ProvideBus() *bus.Bus {
	return bus.New()
}

// ProvideNotificationPublisher creates the outbound notification publisher.
// Every notification is also echoed on the in-process bus.
func ProvideNotificationPublisher(producer *pkgkafka.Producer, cfg *config.Config, b *bus.Bus) drepo.Publisher {
	return internalrepo.NewFanoutPublisher(
		internalrepo.NewKafkaPublisher(producer, cfg.Kafka.NotificationTopic), b)
}

// ProvideKafkaConsumer creates the engagement event consumer with a hook
// recording per-message handling latency.
func ProvideKafkaConsumer(cfg *config.Config, m drepo.Metrics) (*pkgkafka.Consumer, error) {
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.WithConsumerHook(pkgkafka.HookFuncs{
		Before: func(ctx context.Context, _ string, km kafkago.Message, data []byte) (context.Context, kafkago.Message, []byte, error) {
			ctx = pkgkafka.WithStartTime(ctx, time.Now())
			return pkgkafka.WithTraceID(ctx, pkgkafka.ExtractTraceID(km)), km, data, nil
		},
		After: func(ctx context.Context, topic string, _ kafkago.Message, _ []byte, err error) {
			if start, ok := ctx.Value(pkgkafka.CtxStartTime).(time.Time); ok {
				m.RecordLatency("engagement_consume", time.Since(start).Seconds())
			}
			if err != nil {
				m.RecordError("engagement_consume")
			}
		},
	})
	return consumer, nil
}

// ProvideEngagementHandler registers the handler for the engagement topic.
func ProvideEngagementHandler(
	cfg *config.Config,
	activity drepo.ActivityStore,
	m drepo.Metrics,
	log *logger.Logger,
) pkgkafka.MessageHandler {
	return usecase.NewEngagementHandler(cfg.Kafka.EngagementTopic, activity, m, log)
}

// ProvideResilientCache creates the coalescing read cache for ledger RPC.
func ProvideResilientCache(cfg *config.Config, log *logger.Logger) *rescache.Resilient {
	return rescache.NewResilient(rescache.Options{
		RequestsPerSecond: cfg.Cache.RequestsPerSecond,
		SweepInterval:     cfg.Cache.SweepInterval,
		RetryAttempts:     cfg.Cache.RetryAttempts,
		RetryBaseDelay:    cfg.Cache.RetryBaseDelay,
	}, log)
}

// ProvideLedger creates the settlement-layer RPC client.
func ProvideLedger(cfg *config.Config, cache *rescache.Resilient, log *logger.Logger) drepo.Ledger {
	return ledger.NewClient(cfg.Ledger.RPCURL, cfg.Ledger.Authority, cfg.Ledger.Timeout, cache, log)
}

// ProvideLedgerStream creates the settlement-layer event stream.
func ProvideLedgerStream(cfg *config.Config, log *logger.Logger) drepo.LedgerStream {
	return ledger.NewStream(
		cfg.Ledger.StreamURL,
		cfg.Ledger.Authority,
		cfg.Ledger.ReconnectDelay,
		cfg.Ledger.PingInterval,
		log,
	)
}

// ProvideBreaker creates the circuit breaker guarding the scorer.
func ProvideBreaker(cfg *config.Config, log *logger.Logger) *breaker.Breaker {
	return breaker.New(cfg.Inference.BreakerThreshold, cfg.Inference.BreakerTimeout, log)
}

// ProvideInferenceClient creates the scoring client.
func ProvideInferenceClient(cfg *config.Config, b *breaker.Breaker, log *logger.Logger) *inference.Client {
	return inference.NewClient(inference.Config{
		BaseURL: cfg.Inference.BaseURL,
		APIKey:  cfg.Inference.APIKey,
		Model:   cfg.Inference.Model,
		Timeout: cfg.Inference.Timeout,
	}, b, log)
}

// ProvideCollector creates the factor collector.
func ProvideCollector(
	activity drepo.ActivityStore,
	trends drepo.TrendStore,
	inf *inference.Client,
	log *logger.Logger,
) usecase.Collector {
	return collector.New(activity, trends, inf, log)
}

// ProvideScorer exposes the inference client as the orchestrator's scorer.
func ProvideScorer(inf *inference.Client) usecase.Scorer {
	return inf
}

// ProvideResultsCache creates the short-TTL trend result cache. With Redis
// enabled it is layered over a shared Redis; otherwise in-process only.
func ProvideResultsCache(cfg *config.Config) pkgcache.Service {
	opts := pkgcache.DefaultOptions()
	opts.DefaultTTL = time.Duration(cfg.Trend.CacheTTLMinutes) * time.Minute

	mem := pkgcache.NewMemoryCache(opts)
	if !cfg.Redis.Enabled {
		return mem
	}
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	return pkgcache.NewLayeredCache(mem, pkgcache.NewRedisCache(client, opts))
}

// ProvideOrchestrator creates the trend update orchestrator.
func ProvideOrchestrator(
	items drepo.ItemStore,
	trends drepo.TrendStore,
	col usecase.Collector,
	scorer usecase.Scorer,
	ldg drepo.Ledger,
	pub drepo.Publisher,
	results pkgcache.Service,
	m drepo.Metrics,
	cfg *config.Config,
	log *logger.Logger,
) *usecase.Orchestrator {
	return usecase.NewOrchestrator(items, trends, col, scorer, ldg, pub, results, m,
		usecase.OrchestratorConfig{
			UpdateInterval:  time.Duration(cfg.Trend.UpdateIntervalMinutes) * time.Minute,
			ActiveThreshold: time.Duration(cfg.Trend.ActiveMarketThresholdHours * float64(time.Hour)),
			CacheTTL:        time.Duration(cfg.Trend.CacheTTLMinutes) * time.Minute,
			BatchSize:       cfg.Trend.BatchSize,
		}, log)
}

// ProvideSpikeDetector creates the velocity spike detector.
func ProvideSpikeDetector(trends drepo.TrendStore, m drepo.Metrics, cfg *config.Config, log *logger.Logger) *usecase.SpikeDetector {
	return usecase.NewSpikeDetector(trends, m, cfg.Flash.VelocityThreshold, cfg.Flash.Cooldown, log)
}

// ProvideFlashLifecycle creates the flash market lifecycle.
func ProvideFlashLifecycle(
	items drepo.ItemStore,
	flash drepo.FlashStore,
	trends drepo.TrendStore,
	detector *usecase.SpikeDetector,
	ldg drepo.Ledger,
	pub drepo.Publisher,
	results pkgcache.Service,
	m drepo.Metrics,
	cfg *config.Config,
	log *logger.Logger,
) *usecase.FlashLifecycle {
	return usecase.NewFlashLifecycle(items, flash, trends, detector, ldg, pub, results, m,
		usecase.FlashConfig{
			ScanInterval:    cfg.Flash.ScanInterval,
			ResolveInterval: cfg.Flash.ResolveInterval,
			Window:          time.Duration(cfg.Flash.WindowSeconds) * time.Second,
			MinTrendScore:   cfg.Flash.MinTrendScore,
			CandidateLimit:  cfg.Flash.ScanCandidateLimit,
		}, log)
}

// ProvideEventProcessor creates the ledger event processor.
func ProvideEventProcessor(
	items drepo.ItemStore,
	activity drepo.ActivityStore,
	trends drepo.TrendStore,
	orch *usecase.Orchestrator,
	m drepo.Metrics,
	log *logger.Logger,
) *usecase.EventProcessor {
	return usecase.NewEventProcessor(items, activity, trends, orch, m, log)
}

// ProvideEventCollector creates the ledger event collector with its
// validation and throttling pipeline.
func ProvideEventCollector(
	stream drepo.LedgerStream,
	proc *usecase.EventProcessor,
	m drepo.Metrics,
	log *logger.Logger,
) *usecase.EventCollector {
	pipe := mid.NewEventPipeline(proc, m,
		mid.WithMaxRPS(50),
		mid.WithBufferSize(2000),
	)
	return usecase.NewEventCollector(stream, proc, m, pipe, log)
}

// ProvideHTTPHandler creates the API handler.
func ProvideHTTPHandler(
	log *logger.Logger,
	items drepo.ItemStore,
	trends drepo.TrendStore,
	flash drepo.FlashStore,
	results pkgcache.Service,
	orch *usecase.Orchestrator,
	b *breaker.Breaker,
	ldg drepo.Ledger,
) xhttp.Handler {
	return api.NewTrendsHandler(log, items, trends, flash, results, orch, b, ldg)
}

// ProvideApp assembles the application and registers shutdown hooks.
func ProvideApp(
	cfg *config.Config,
	log *logger.Logger,
	collector *usecase.EventCollector,
	orch *usecase.Orchestrator,
	flash *usecase.FlashLifecycle,
	consumer *pkgkafka.Consumer,
	kh pkgkafka.MessageHandler,
	handler xhttp.Handler,
	pg *internalrepo.Postgres,
	trends drepo.TrendStore,
	pub drepo.Publisher,
	results pkgcache.Service,
	rcache *rescache.Resilient,
	b *breaker.Breaker,
	evbus *bus.Bus,
) *server.App {
	// Fresh scores trigger an immediate spike check instead of waiting for
	// the next scan tick.
	unsubscribe := evbus.Subscribe(models.NotifyTrendUpdated, func(payload interface{}) {
		ev, ok := payload.(models.TrendUpdated)
		if !ok {
			return
		}
		go flash.OnTrendUpdate(context.Background(), ev.ItemID)
	})

	app := server.New(cfg, log, collector, orch, flash, consumer, kh, handler)
	app.OnClose(func() error { unsubscribe(); return nil })
	app.OnClose(pg.Close)
	app.OnClose(trends.Close)
	app.OnClose(pub.Close)
	app.OnClose(results.Close)
	app.OnClose(func() error { rcache.Close(); return nil })
	app.OnClose(func() error { b.Stop(); return nil })
	return app
}
