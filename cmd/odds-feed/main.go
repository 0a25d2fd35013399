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

	"github.com/radieske/palpitei-api/internal/odds-feed/publisher"
	"github.com/radieske/palpitei-api/internal/odds-feed/service"
	"github.com/radieske/palpitei-api/internal/shared/config"
	"github.com/radieske/palpitei-api/internal/shared/kafka"
	"github.com/radieske/palpitei-api/internal/shared/logger"
	"github.com/radieske/palpitei-api/internal/shared/metrics"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(fmt.Errorf("logger init: %w", err))
	}
	defer log.Sync()

	log.Info("Kafka brokers", zap.String("brokers", cfg.KafkaBrokers))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	brokers := cfg.Brokers()
	if cfg.Env == "local" || cfg.Env == "dev" {
		tctx, tcancel := context.WithTimeout(ctx, 10*time.Second)
		if created, err := kafka.EnsureTopic(tctx, brokers, cfg.TopicIngest); err != nil {
			log.Warn("failed to create kafka topic", zap.String("topic", cfg.TopicIngest), zap.Error(err))
		} else if created {
			log.Info("kafka topic created", zap.String("topic", cfg.TopicIngest))
		}
		tcancel()
	}

	// Kafka Publisher
	pub := publisher.NewKafkaPublisher(brokers, cfg.TopicIngest, cfg.ServiceName, log)
	defer pub.Close()

	received := prometheus.NewCounter(prometheus.CounterOpts{Name: "odds_feed_updates_received_total", Help: "atualizações recebidas do fornecedor"})
	published := prometheus.NewCounter(prometheus.CounterOpts{Name: "odds_feed_payloads_published_total", Help: "payloads de ingest publicados"})
	errorsBy := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "odds_feed_errors_total", Help: "erros por estágio"}, []string{"stage"})
	prometheus.MustRegister(received, published, errorsBy)

	// WS Client
	wsClient := &service.WSClient{
		URL:         cfg.SupplierWSURL,
		Provider:    cfg.FeedProvider,
		Log:         log,
		Publisher:   pub,
		OnReceived:  func() { received.Inc() },
		OnPublished: func() { published.Inc() },
		OnError:     func(stage string) { errorsBy.WithLabelValues(stage).Inc() },
	}

	// Metrics e health
	metricsSrv := metrics.StartMetricsServer(log, cfg.MetricsPort, nil)
	defer metricsSrv.Close()

	log.Info("odds-feed started", zap.String("supplier", cfg.SupplierWSURL))
	wsClient.Start(ctx)
	log.Info("odds-feed stopped")
}
