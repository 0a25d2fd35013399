package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/palpitei-api/internal/catalog/changes"
	"github.com/radieske/palpitei-api/internal/catalog/service"
	"github.com/radieske/palpitei-api/internal/shared/cache"
	"github.com/radieske/palpitei-api/internal/shared/config"
	"github.com/radieske/palpitei-api/internal/shared/logger"
	"github.com/radieske/palpitei-api/internal/shared/metrics"
	"github.com/radieske/palpitei-api/internal/shared/storage"
	httpapi "github.com/radieske/palpitei-api/internal/tips-api/http"
)

func main() {
	// .env é opcional (desenvolvimento local)
	_ = godotenv.Load()

	// carrega config
	cfg := config.Load()

	// inicia logger
	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(fmt.Errorf("logger init: %w", err))
	}
	defer log.Sync()

	log.Info("starting service",
		zap.String("service", cfg.ServiceName),
		zap.String("env", cfg.Env),
		zap.String("store", cfg.StoreBackend),
	)

	// Sinalização para shutdown gracioso (SIGINT/SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	backend, closeStore, err := storage.Open(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to open store", zap.Error(err))
	}
	defer closeStore()

	// feed de alterações: local entrega direto ao hub; redis também recebe
	// as escritas do ingest-worker via Pub/Sub
	hub := changes.NewHub(log, nil)
	var notifier changes.Notifier
	switch cfg.ChangeFeed {
	case config.FeedLocal:
		notifier = hub
	case config.FeedRedis:
		rdb, err := cache.ConnectRedis(ctx, cfg.RedisAddr)
		if err != nil {
			log.Fatal("failed to connect redis for change feed", zap.Error(err))
		}
		defer rdb.Close()
		if err := changes.StartRedisSubscriber(ctx, rdb, cfg.ChangesChannel, hub, log); err != nil {
			log.Fatal("failed to subscribe change feed", zap.Error(err))
		}
		notifier = changes.NewRedisBroadcaster(rdb, cfg.ChangesChannel)
	}

	catalog := service.New(backend, service.Options{
		Metrics:         metrics.NewCatalog(prometheus.DefaultRegisterer),
		Log:             log,
		Notifier:        notifier,
		SerializeWrites: cfg.SerializeWrites,
	})
	if cfg.SerializeWrites {
		log.Info("per-collection write serialization enabled")
	}

	// métricas e health em porta separada
	metricsSrv := metrics.StartMetricsServer(log, cfg.MetricsPort, catalog.Ping)

	api := httpapi.NewServer(log, catalog, metrics.NewHTTP(prometheus.DefaultRegisterer))
	if notifier != nil {
		api.WithChanges(hub)
	}
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           api.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("API listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", zap.Error(err))
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}
	_ = metricsSrv.Shutdown(shutdownCtx)
	log.Info("tips-api stopped")
}
