package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/palpitei-api/internal/catalog/changes"
	"github.com/radieske/palpitei-api/internal/catalog/model"
	"github.com/radieske/palpitei-api/internal/catalog/service"
	"github.com/radieske/palpitei-api/internal/ingest-worker/consumer"
	"github.com/radieske/palpitei-api/internal/shared/cache"
	"github.com/radieske/palpitei-api/internal/shared/config"
	"github.com/radieske/palpitei-api/internal/shared/kafka"
	"github.com/radieske/palpitei-api/internal/shared/logger"
	"github.com/radieske/palpitei-api/internal/shared/metrics"
	"github.com/radieske/palpitei-api/internal/shared/storage"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(fmt.Errorf("logger init: %w", err))
	}
	defer log.Sync()

	// Sinalização para shutdown gracioso (SIGINT/SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	backend, closeStore, err := storage.Open(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to open store", zap.Error(err))
	}
	defer closeStore()

	// sem redis, as escritas do worker não chegam aos clientes do feed
	var notifier changes.Notifier
	if cfg.ChangeFeed == config.FeedRedis {
		rdb, err := cache.ConnectRedis(ctx, cfg.RedisAddr)
		if err != nil {
			log.Fatal("failed to connect redis for change feed", zap.Error(err))
		}
		defer rdb.Close()
		notifier = changes.NewRedisBroadcaster(rdb, cfg.ChangesChannel)
	}

	catalog := service.New(backend, service.Options{
		Metrics:         metrics.NewCatalog(prometheus.DefaultRegisterer),
		Log:             log,
		Notifier:        notifier,
		SerializeWrites: cfg.SerializeWrites,
	})

	brokers := cfg.Brokers()
	if cfg.Env == "local" || cfg.Env == "dev" {
		tctx, tcancel := context.WithTimeout(ctx, 10*time.Second)
		for _, topic := range []string{cfg.TopicIngest, cfg.TopicIngestDLQ} {
			if created, err := kafka.EnsureTopic(tctx, brokers, topic); err != nil {
				log.Warn("failed to create kafka topic", zap.String("topic", topic), zap.Error(err))
			} else if created {
				log.Info("kafka topic created", zap.String("topic", topic))
			}
		}
		tcancel()
	}

	// Configura o consumer Kafka (consumer group do ingest)
	reader := kafka.NewReader(brokers, cfg.TopicIngest, cfg.IngestGroupID)
	defer reader.Close()
	dlq := kafka.NewWriter(brokers, cfg.TopicIngestDLQ)
	defer dlq.Close()

	// Métricas Prometheus para monitoramento do processamento
	consumed := prometheus.NewCounter(prometheus.CounterOpts{Name: "ingest_worker_messages_consumed_total", Help: "mensagens consumidas"})
	applied := prometheus.NewCounter(prometheus.CounterOpts{Name: "ingest_worker_messages_applied_total", Help: "payloads aplicados no catálogo"})
	records := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "ingest_worker_records_upserted_total", Help: "registros gravados por coleção"}, []string{"collection"})
	errorsBy := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "ingest_worker_errors_total", Help: "erros por estágio"}, []string{"stage"})
	prometheus.MustRegister(consumed, applied, records, errorsBy)

	proc := &consumer.Processor{
		Log:        log,
		Reader:     reader,
		Catalog:    catalog,
		DLQ:        dlq,
		OnConsumed: func() { consumed.Inc() },
		OnApplied: func(s model.IngestSummary) {
			applied.Inc()
			records.WithLabelValues(model.KindTeam.Collection()).Add(float64(s.TeamsUpserted))
			records.WithLabelValues(model.KindChampionship.Collection()).Add(float64(s.ChampionshipsUpserted))
			records.WithLabelValues(model.KindGame.Collection()).Add(float64(s.GamesUpserted))
			records.WithLabelValues(model.KindMarket.Collection()).Add(float64(s.MarketsUpserted))
		},
		OnError: func(stage string) { errorsBy.WithLabelValues(stage).Inc() },
	}

	// Servidor HTTP para métricas e health check
	metricsSrv := metrics.StartMetricsServer(log, cfg.MetricsPort, catalog.Ping)
	defer metricsSrv.Close()

	log.Info("ingest-worker started",
		zap.String("topic", cfg.TopicIngest),
		zap.String("group", cfg.IngestGroupID),
	)
	if err := proc.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatal("processor stopped with error", zap.Error(err))
	}
	log.Info("ingest-worker stopped")
}
