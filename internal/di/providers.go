package di

import (
	"context"
	"fmt"
	"time"

	"FinEvent/internal/domain/models"
	domrepo "FinEvent/internal/domain/repository"
	"FinEvent/internal/handler/api"
	mid "FinEvent/internal/middleware"
	"FinEvent/internal/repository"
	"FinEvent/internal/service/finnhub"
	"FinEvent/internal/service/marketdata"
	"FinEvent/internal/service/ratelimit"
	"FinEvent/internal/services/nonevent"
	"FinEvent/internal/services/probability"
	"FinEvent/internal/services/returns"
	"FinEvent/internal/services/sessions"
	"FinEvent/internal/services/tagger"
	"FinEvent/internal/services/timeseries"
	"FinEvent/internal/usecase"
	"FinEvent/pkg/cache"
	pkgch "FinEvent/pkg/clickhouse"
	"FinEvent/pkg/config"
	xhttp "FinEvent/pkg/http"
	pkgkafka "FinEvent/pkg/kafka"
	"FinEvent/pkg/logger"
	"FinEvent/pkg/metrics"
	"FinEvent/pkg/queue"
	"FinEvent/pkg/server"
)

func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	return logger.New(&cfg.Logger)
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() domrepo.Metrics {
	return metrics.New(nil)
}

// ProvideClickHouseClient connects and creates the bars, events and tagged
// bars tables.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	ch := cfg.ClickHouse
	client, err := pkgch.NewClient(
		pkgch.WithAddress(ch.Host, ch.Port),
		pkgch.WithDatabase(ch.Database),
		pkgch.WithCredentials(ch.User, ch.Password),
		pkgch.WithPool(10, 5, 5*time.Minute),
		pkgch.WithHTTP(ch.UseHTTP),
		pkgch.WithAsyncInsert(ch.AsyncInsert, ch.WaitForAsync),
		pkgch.WithTimeouts(ch.DialTimeout, ch.ReadTimeout),
		pkgch.WithMaxExecutionTime(ch.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.InitSchema(ctx, pkgch.Schema(ch.Database)); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

func ProvideStore(client *pkgch.Client, log *logger.Logger, cfg *config.Config) *repository.CHStore {
	return repository.NewCHStore(client, log, cfg.Backend.BatchSize)
}

// ProvideKafkaProducer returns nil when no brokers are configured.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	k := cfg.Kafka
	if len(k.Brokers) == 0 {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(k.Brokers),
		pkgkafka.WithCompression(k.Compression),
		pkgkafka.WithRequiredAcks(k.RequiredAcks),
		pkgkafka.WithBatching(k.Producer.BatchSize, k.Producer.BatchBytes, k.Producer.Linger),
		pkgkafka.WithWriteTimeout(k.Producer.WriteTimeout),
		pkgkafka.WithMaxAttempts(k.Producer.MaxAttempts),
		pkgkafka.WithAsync(k.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideBarPublisher is nil unless a producer exists.
func ProvideBarPublisher(producer *pkgkafka.Producer, cfg *config.Config) domrepo.BarPublisher {
	if producer == nil {
		return nil
	}
	return repository.NewKafkaBarPublisher(producer, cfg.Kafka.BarsTopic)
}

// ProvideRedisCache returns nil when redis is disabled. Its client is shared
// with the refresh queue.
func ProvideRedisCache(cfg *config.Config) (*cache.RedisCache, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}
	rc, err := cache.NewRedisCache(
		cache.WithRedisAddr(cfg.Redis.Addr),
		cache.WithRedisAuth(cfg.Redis.Password, cfg.Redis.DB),
		cache.WithRedisPool(20, 4, 30*time.Second),
		cache.WithRedisPrefix(cfg.Cache.KeyPrefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return rc, nil
}

// ProvideCache is an in-process LRU, layered over Redis when available.
func ProvideCache(cfg *config.Config, rc *cache.RedisCache) cache.Service {
	mem := cache.NewMemoryCache(
		cache.WithMemoryMaxEntries(cfg.Cache.MaxEntries),
		cache.WithMemoryDefaultTTL(cfg.Cache.ReportTTL),
		cache.WithMemoryCleanup(time.Minute),
	)
	if rc == nil {
		return mem
	}
	return cache.NewLayeredCache(mem, rc, time.Minute)
}

func ProvideNormalizer(cfg *config.Config) (*timeseries.Normalizer, error) {
	return timeseries.NewNormalizer(cfg.Analysis.BarsTimezone, cfg.Analysis.ReferenceTimezone)
}

func ProvideEngines(cfg *config.Config, norm *timeseries.Normalizer) (usecase.Engines, error) {
	a := cfg.Analysis
	loc := norm.Location()
	seg, err := sessions.New(loc, a.Sessions)
	if err != nil {
		return usecase.Engines{}, fmt.Errorf("sessions: %w", err)
	}
	return usecase.Engines{
		Normalizer:  norm,
		Segmenter:   seg,
		Filter:      nonevent.New(loc, a.Windows),
		Aggregator:  returns.New(a.Scale, loc),
		Probability: probability.New(a.Scale, a.Granularity),
	}, nil
}

// ProvideAnalysis wires the analysis use case. Reports are announced on
// Kafka when a producer exists.
func ProvideAnalysis(
	cfg *config.Config,
	store *repository.CHStore,
	eng usecase.Engines,
	c cache.Service,
	m domrepo.Metrics,
	log *logger.Logger,
	producer *pkgkafka.Producer,
) (*usecase.AnalysisUseCase, error) {
	mode, err := tagger.ParseMode(cfg.Analysis.JoinMode)
	if err != nil {
		return nil, err
	}
	uc := usecase.NewAnalysisUseCase(store, store, eng, cfg.Keywords, c, m, log, usecase.AnalysisConfig{
		Mode:       mode,
		LatestDays: cfg.Analysis.LatestDays,
		MaxHorizon: cfg.Analysis.MaxHorizon,
		ReportTTL:  cfg.Cache.ReportTTL,
		MatrixTTL:  cfg.Cache.MatrixTTL,
		KeyPrefix:  cfg.Cache.KeyPrefix,
	})
	uc.SetTaggedStore(store)
	if producer != nil {
		uc.SetPublisher(repository.NewKafkaReportPublisher(producer, cfg.Kafka.ReportsTopic))
	}
	return uc, nil
}

func ProvideBarsUseCase(store *repository.CHStore) *usecase.BarsUseCase {
	return usecase.NewBarsUseCase(store)
}

func ProvideEventsUseCase(store *repository.CHStore, norm *timeseries.Normalizer, analysis *usecase.AnalysisUseCase, m domrepo.Metrics, log *logger.Logger) *usecase.EventsUseCase {
	return usecase.NewEventsUseCase(store, norm, analysis, m, log)
}

func ProvideBarProcessor(pub domrepo.BarPublisher, store *repository.CHStore, norm *timeseries.Normalizer, m domrepo.Metrics, cfg *config.Config) *usecase.BarProcessor {
	return usecase.NewBarProcessor(pub, store, norm, m, cfg.Backend.Type, cfg.Backend.BatchSize)
}

// ProvideTradeCollector builds the live bar feed, or nil when finnhub is
// disabled.
func ProvideTradeCollector(cfg *config.Config, proc *usecase.BarProcessor, m domrepo.Metrics, log *logger.Logger) *usecase.TradeCollector {
	f := cfg.Finnhub
	if !f.Enabled {
		return nil
	}
	interval := models.Interval(f.BarInterval)
	stream := finnhub.New(log, f.APIKey, f.WebSocketURL, f.Symbols, f.ReconnectDelay, f.PingInterval)
	sink := usecase.NewBarSink(finnhub.NewBarAggregator(interval, cfg.SymbolCode), proc, interval)
	pipe := mid.NewRealtimePipeline(sink, m,
		mid.WithMaxRPS(50),
		mid.WithBufferSize(2000),
	)
	return usecase.NewTradeCollector(stream, sink, pipe, m, log)
}

// ProvideKafkaConsumer subscribes the bars and events handlers, or returns
// nil when the consumer is disabled.
func ProvideKafkaConsumer(cfg *config.Config, log *logger.Logger, store *repository.CHStore, events *usecase.EventsUseCase, m domrepo.Metrics) (*pkgkafka.Consumer, error) {
	k := cfg.Kafka
	if !k.Consumer.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(log,
		pkgkafka.WithConsumerBrokers(k.Brokers),
		pkgkafka.WithConsumerGroupID(k.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(k.Consumer.Workers, k.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(k.Consumer.RetryMax, k.Consumer.BackoffMin, k.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(k.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(k.Consumer.MinBytes, k.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.SetHook(pkgkafka.LoggingHook{Log: log, Slow: time.Second})
	consumer.RegisterHandler(usecase.NewKafkaBarsHandler(k.BarsTopic, store, m))
	consumer.RegisterHandler(usecase.NewKafkaEventsHandler(k.EventsTopic, events, m))
	return consumer, nil
}

func ProvideRefreshUseCase(
	cfg *config.Config,
	store *repository.CHStore,
	proc *usecase.BarProcessor,
	analysis *usecase.AnalysisUseCase,
	c cache.Service,
	log *logger.Logger,
) *usecase.RefreshUseCase {
	yahoo := marketdata.NewYahoo(cfg.Provider.BaseURL, cfg.Provider.Timeout)
	return usecase.NewRefreshUseCase(yahoo, store, proc, analysis, c, log, cfg.Refresh.Range, cfg.Refresh.KeyPrefix)
}

// ProvideQueue runs refresh jobs on Redis, or is nil without Redis.
func ProvideQueue(cfg *config.Config, log *logger.Logger, rc *cache.RedisCache, refresh *usecase.RefreshUseCase) *queue.RedisQueue {
	if rc == nil {
		return nil
	}
	r := cfg.Refresh
	q := queue.NewRedisQueue(log, queue.Config{
		Workers:    r.Workers,
		RetryLimit: r.RetryLimit,
		RetryDelay: r.RetryDelay,
	}, rc.Client(), queue.ModeProducerConsumer, r.KeyPrefix)
	q.RegisterJob(refresh.Job())
	return q
}

// ProvideRefreshScheduler is nil unless refresh is enabled.
func ProvideRefreshScheduler(cfg *config.Config, q *queue.RedisQueue, log *logger.Logger) (*usecase.RefreshScheduler, error) {
	if !cfg.Refresh.Enabled || q == nil {
		return nil, nil
	}
	loc, err := time.LoadLocation(cfg.Analysis.ReferenceTimezone)
	if err != nil {
		return nil, err
	}
	instruments := make([]usecase.Instrument, len(cfg.Symbols))
	for i, s := range cfg.Symbols {
		instruments[i] = usecase.Instrument{Ticker: s.Ticker, Code: s.Code}
	}
	return usecase.NewRefreshScheduler(q, instruments, models.Interval(cfg.Refresh.Interval), loc, log), nil
}

func ProvideHandler(
	cfg *config.Config,
	log *logger.Logger,
	bars *usecase.BarsUseCase,
	analysis *usecase.AnalysisUseCase,
	events *usecase.EventsUseCase,
	store *repository.CHStore,
	eng usecase.Engines,
	scheduler *usecase.RefreshScheduler,
) *api.AnalysisHandler {
	rl := cfg.Server.RateLimit
	h := api.NewAnalysisHandler(log, bars, analysis, events, ratelimit.New(rl.RPS, rl.Burst), eng.Normalizer.Location())
	h.SetHealthCheck(store)
	if scheduler != nil {
		h.SetRefresher(scheduler)
	}
	return h
}

func ProvideHTTPServer(cfg *config.Config, log *logger.Logger, h *api.AnalysisHandler) *xhttp.Server {
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	return xhttp.NewServer(log, h,
		xhttp.WithAddress("", cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(cfg.Server.CORS),
		xhttp.WithMetricsPath(metricsPath),
	)
}

// ProvideApp assembles the lifecycle. Warn and error lines are also folded
// onto the logs topic when Kafka is available.
func ProvideApp(
	cfg *config.Config,
	log *logger.Logger,
	srv *xhttp.Server,
	events *usecase.EventsUseCase,
	proc *usecase.BarProcessor,
	collector *usecase.TradeCollector,
	consumer *pkgkafka.Consumer,
	producer *pkgkafka.Producer,
	q *queue.RedisQueue,
	scheduler *usecase.RefreshScheduler,
	client *pkgch.Client,
	c cache.Service,
) *server.App {
	if producer != nil {
		log.AddCollector(&logger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          cfg.Kafka.LogsTopic,
			Publisher:      producer,
		})
	}
	return server.New(cfg, log, server.Deps{
		HTTP:      srv,
		Events:    events,
		Processor: proc,
		Collector: collector,
		Consumer:  consumer,
		Producer:  producer,
		Queue:     q,
		Scheduler: scheduler,
		CH:        client,
		Closers:   []func() error{c.Close},
	})
}
