package di

import (
	"context"
	"fmt"
	"time"

	domrepo "SolPulse/internal/domain/repository"
	"SolPulse/internal/handler/api"
	"SolPulse/internal/middleware"
	internalrepo "SolPulse/internal/repository"
	"SolPulse/internal/service/live"
	"SolPulse/internal/service/ratelimit"
	"SolPulse/internal/services/scoring"
	"SolPulse/internal/usecase"
	"SolPulse/pkg/cache"
	pkgch "SolPulse/pkg/clickhouse"
	"SolPulse/pkg/config"
	xhttp "SolPulse/pkg/http"
	pkgkafka "SolPulse/pkg/kafka"
	applogger "SolPulse/pkg/logger"
	"SolPulse/pkg/metrics"
	"SolPulse/pkg/postgres"
	"SolPulse/pkg/queue"
	"SolPulse/pkg/server"

	"github.com/redis/go-redis/v9"
)

const initTimeout = 30 * time.Second

// ProvideLogger builds the application logger from the log section.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(applogger.String("env", cfg.Environment)), nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() domrepo.Metrics {
	return metrics.New()
}

// ProvideRedisClient returns nil when redis is disabled.
func ProvideRedisClient(cfg *config.Config) (*redis.Client, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

// ProvideCache selects the cache backend. Redis-backed caches share the
// client with the queue.
func ProvideCache(cfg *config.Config, client *redis.Client) cache.Service {
	switch cfg.Cache.Backend {
	case "redis":
		return cache.NewRedisCacheFromClient(client, cfg.Redis.Prefix)
	case "layered":
		return cache.NewLayeredCache(
			cache.NewRedisCacheFromClient(client, cfg.Redis.Prefix),
			cache.WithLayeredMemorySize(cfg.Cache.MemoryMaxSize),
		)
	default:
		return cache.NewMemoryCache(cache.WithMemoryMaxSize(cfg.Cache.MemoryMaxSize))
	}
}

// ProvideStore opens the storage driver named by storage.driver and applies
// its schema.
func ProvideStore(cfg *config.Config, l *applogger.Logger) (domrepo.Store, error) {
	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()

	switch cfg.Storage.Driver {
	case "postgres":
		pool, err := postgres.NewPool(ctx, cfg.Postgres.DSN, cfg.Postgres.MaxConns)
		if err != nil {
			return nil, fmt.Errorf("postgres pool: %w", err)
		}
		store := internalrepo.NewPostgresStore(pool, l)
		if err := store.Init(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("postgres schema: %w", err)
		}
		return store, nil
	case "clickhouse":
		client, err := ProvideClickHouseClient(cfg, l)
		if err != nil {
			return nil, err
		}
		store := internalrepo.NewClickHouseStore(client, l)
		if err := store.Init(ctx); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("clickhouse schema: %w", err)
		}
		return store, nil
	default:
		l.Warn("using in-memory storage; samples are lost on restart")
		return internalrepo.NewMemoryStore(), nil
	}
}

// ProvideClickHouseClient creates a ClickHouse client.
func ProvideClickHouseClient(cfg *config.Config, l *applogger.Logger) (*pkgch.Client, error) {
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
		pkgch.WithLogger(l),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvideKafkaProducer returns nil unless kafka is enabled with a rankings topic.
func ProvideKafkaProducer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled || cfg.Kafka.RankingsTopic == "" {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.BatchBytes, cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithHashByKey(true),
		pkgkafka.WithProducerLogger(l),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideKafkaConsumer returns nil when kafka is disabled.
func ProvideKafkaConsumer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
		pkgkafka.WithConsumerLogger(l),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.WithConsumerHook(pkgkafka.TraceHook{})
	return consumer, nil
}

// ProvideEngine builds the scoring engine over the store.
func ProvideEngine(cfg *config.Config, store domrepo.Store, m domrepo.Metrics, l *applogger.Logger) *scoring.Engine {
	return scoring.NewEngine(store,
		scoring.WithMetadata(store),
		scoring.WithWeights(scoring.WeightsFromConfig(cfg.Scoring)),
		scoring.WithWindow(cfg.Scoring.Window),
		scoring.WithCandidatePoolSize(cfg.Scoring.CandidatePoolSize),
		scoring.WithOutputSize(cfg.Scoring.OutputSize),
		scoring.WithMaxOutput(cfg.Scoring.MaxOutput),
		scoring.WithMetrics(m),
		scoring.WithLogger(l.With(applogger.String("component", "scoring"))),
	)
}

func ProvideRankings(cfg *config.Config, engine *scoring.Engine, c cache.Service, m domrepo.Metrics, l *applogger.Logger) *usecase.Rankings {
	return usecase.NewRankings(engine, c, cfg.Cache.RankingTTL, cfg.Cache.StaleTTL, m, l.With(applogger.String("component", "rankings")))
}

func ProvideTokens(cfg *config.Config, store domrepo.Store, c cache.Service, m domrepo.Metrics, l *applogger.Logger) *usecase.Tokens {
	return usecase.NewTokens(store, c, cfg.Cache.ClockTTL, cfg.Scoring.Window, m, l.With(applogger.String("component", "tokens")))
}

func ProvideNetwork(cfg *config.Config, store domrepo.Store, c cache.Service, m domrepo.Metrics, l *applogger.Logger) *usecase.Network {
	return usecase.NewNetwork(store, c, cfg.Cache.NetworkTTL, cfg.Scoring.Window, m, l.With(applogger.String("component", "network")))
}

// ProvideHub returns nil when the live feed is disabled.
func ProvideHub(cfg *config.Config, l *applogger.Logger) *live.Hub {
	if !cfg.Live.Enabled {
		return nil
	}
	return live.NewHub(l.With(applogger.String("component", "live")), cfg.Live.PingInterval)
}

// ProvideSnapshotter fans snapshots out to the store, the kafka topic and
// the live feed, whichever are configured.
func ProvideSnapshotter(cfg *config.Config, engine *scoring.Engine, store domrepo.Store, producer *pkgkafka.Producer, hub *live.Hub, c cache.Service, rankings *usecase.Rankings, m domrepo.Metrics, l *applogger.Logger) *usecase.RankingSnapshotter {
	sinks := []usecase.NamedSink{{Name: cfg.Storage.Driver, Sink: store}}
	if producer != nil {
		sinks = append(sinks, usecase.NamedSink{Name: "kafka", Sink: internalrepo.NewKafkaRankingPublisher(producer, cfg.Kafka.RankingsTopic)})
	}
	if hub != nil {
		sinks = append(sinks, usecase.NamedSink{Name: "live", Sink: hub})
	}
	return usecase.NewRankingSnapshotter(engine, sinks, c, rankings, m, l.With(applogger.String("component", "snapshotter")))
}

// ProvideQueue returns nil when the refresh queue is disabled.
func ProvideQueue(cfg *config.Config, client *redis.Client, snap *usecase.RankingSnapshotter, l *applogger.Logger) *queue.RedisQueue {
	if !cfg.Queue.Enabled {
		return nil
	}
	q := queue.NewRedisQueue(l, queue.QueueConfig{
		Workers:    cfg.Queue.Workers,
		RetryLimit: cfg.Queue.RetryLimit,
		RetryDelay: cfg.Queue.RetryDelay,
	}, client, queue.ModeProducerConsumer, queue.WithKeyPrefix(cfg.Redis.Prefix+":queue"))
	q.RegisterJobs(usecase.NewRefreshRankingsJob(snap, l.With(applogger.String("component", "refresh"))))
	return q
}

func ProvideRefresher(q *queue.RedisQueue, snap *usecase.RankingSnapshotter) *usecase.Refresher {
	// a nil *RedisQueue must not become a non-nil Publisher
	if q == nil {
		return usecase.NewRefresher(nil, snap)
	}
	return usecase.NewRefresher(q, snap)
}

// ProvideScheduler returns nil when scheduled snapshots are disabled.
func ProvideScheduler(cfg *config.Config, snap *usecase.RankingSnapshotter, l *applogger.Logger) (*usecase.SnapshotScheduler, error) {
	if !cfg.Scheduler.Enabled {
		return nil, nil
	}
	return usecase.NewSnapshotScheduler(snap, cfg.Scheduler.SnapshotSpec, cfg.Scheduler.SnapshotTimeout, l.With(applogger.String("component", "scheduler")))
}

// ProvideSamplesHandler returns nil when kafka is disabled.
func ProvideSamplesHandler(cfg *config.Config, store domrepo.Store, tokens *usecase.Tokens, m domrepo.Metrics, l *applogger.Logger) *usecase.KafkaSamplesHandler {
	if !cfg.Kafka.Enabled {
		return nil
	}
	writer := middleware.NewSamplePipeline(store, m, middleware.WithRetention(cfg.Scoring.Window+time.Hour))
	return usecase.NewKafkaSamplesHandler(cfg.Kafka.SamplesTopic, writer, store, tokens, m, l.With(applogger.String("component", "ingest")))
}

// ProvideNetworkHandler returns nil unless kafka is enabled with a network topic.
func ProvideNetworkHandler(cfg *config.Config, store domrepo.Store, network *usecase.Network, m domrepo.Metrics, l *applogger.Logger) *usecase.KafkaNetworkHandler {
	if !cfg.Kafka.Enabled || cfg.Kafka.NetworkTopic == "" {
		return nil
	}
	return usecase.NewKafkaNetworkHandler(cfg.Kafka.NetworkTopic, store, network, m, l.With(applogger.String("component", "ingest")))
}

// ProvideHandlers lists the HTTP route groups.
func ProvideHandlers(cfg *config.Config, rankings *usecase.Rankings, tokens *usecase.Tokens, network *usecase.Network, refresher *usecase.Refresher, hub *live.Hub, store domrepo.Store, l *applogger.Logger) []xhttp.Handler {
	hl := l.With(applogger.String("component", "api"))
	limiter := ratelimit.New(cfg.RateLimit.RefreshCapacity, cfg.RateLimit.RefreshPerSec)
	handlers := []xhttp.Handler{
		api.NewRankingsHandler(hl, rankings, refresher, limiter),
		api.NewTokensHandler(hl, tokens),
		api.NewNetworkHandler(hl, network),
		api.NewHealthHandler(hl, store),
	}
	if hub != nil {
		handlers = append(handlers, api.NewLiveHandler(hl, hub, store))
	}
	return handlers
}

func ProvideHTTPServer(cfg *config.Config, handlers []xhttp.Handler, l *applogger.Logger) *xhttp.Server {
	return xhttp.NewServer(handlers,
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithLogger(l),
	)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	httpServer *xhttp.Server,
	consumer *pkgkafka.Consumer,
	samples *usecase.KafkaSamplesHandler,
	network *usecase.KafkaNetworkHandler,
	q *queue.RedisQueue,
	scheduler *usecase.SnapshotScheduler,
	snap *usecase.RankingSnapshotter,
	hub *live.Hub,
	producer *pkgkafka.Producer,
	store domrepo.Store,
	c cache.Service,
	client *redis.Client,
) *server.App {
	app := server.New(cfg, l, httpServer)
	if consumer != nil && samples != nil {
		consumer.RegisterHandler(samples)
		if network != nil {
			consumer.RegisterHandler(network)
		}
		app.AddComponent(server.Component{Name: "kafka consumer", Start: consumer.Start, Stop: consumer.Stop})
	}
	if q != nil {
		app.AddComponent(server.Component{Name: "refresh queue", Start: q.Start, Stop: q.Stop})
	}
	if scheduler != nil {
		app.AddComponent(server.Component{
			Name:  "snapshot scheduler",
			Start: func() error { scheduler.Start(); return nil },
			Stop:  scheduler.Stop,
		})
	}

	app.AddCloser("snapshotter", func() error { snap.Close(); return nil })
	if hub != nil {
		app.AddCloser("live hub", func() error { hub.Close(); return nil })
	}
	if producer != nil {
		app.AddCloser("kafka producer", producer.Close)
	}
	app.AddCloser("store", store.Close)
	app.AddCloser("cache", c.Close)
	if client != nil {
		app.AddCloser("redis", client.Close)
	}
	return app
}
