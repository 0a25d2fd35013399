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

	"github.com/radieske/palpitei-api/internal/odds-feed/simulator"
	"github.com/radieske/palpitei-api/internal/shared/config"
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

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Métricas Prometheus para monitoramento de conexões e mensagens
	wsConnections := prometheus.NewGauge(prometheus.GaugeOpts{Name: "supplier_ws_connections", Help: "Clientes WebSocket conectados"})
	wsMessagesSent := prometheus.NewCounter(prometheus.CounterOpts{Name: "supplier_ws_messages_sent_total", Help: "Total de mensagens WS enviadas"})
	prometheus.MustRegister(wsConnections, wsMessagesSent)

	hub := simulator.NewHub(log)
	hub.OnConnections = func(delta int) { wsConnections.Add(float64(delta)) }
	hub.OnSent = func() { wsMessagesSent.Inc() }

	// Gera e envia odds simuladas para todos os clientes a cada 3 segundos
	gen := simulator.NewGenerator(simulator.DefaultCatalog(time.Now()), cfg.ServiceName, time.Now().UnixNano())
	go func() {
		ticker := time.NewTicker(3 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				for _, u := range gen.Next(now) {
					hub.Broadcast(u)
				}
			}
		}
	}()

	metricsSrv := metrics.StartMetricsServer(log, cfg.MetricsPort, nil)
	defer metricsSrv.Close()

	mux := http.NewServeMux()
	mux.Handle("/ws", hub)
	srv := &http.Server{Addr: ":" + cfg.HTTPPort, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		log.Info("supplier simulator running", zap.String("addr", srv.Addr), zap.String("paths", "/ws"))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("public server error", zap.Error(err))
			cancel()
		}
	}()

	<-ctx.Done()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
	log.Info("supplier simulator stopped")
}
